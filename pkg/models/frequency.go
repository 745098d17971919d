package models

import (
	"fmt"
	"math"
)

// FrequencyRange is a closed frequency interval in Hz
type FrequencyRange struct {
	Min float64 `json:"minimum" doc:"Lower bound in Hz"`
	Max float64 `json:"maximum" doc:"Upper bound in Hz"`
}

// Contains reports whether f lies inside the range, bounds included
func (r FrequencyRange) Contains(f float64) bool {
	return r.Min <= f && f <= r.Max
}

// Valid reports whether the range is non-empty and finite
func (r FrequencyRange) Valid() bool {
	return r.Min < r.Max && !math.IsInf(r.Min, 0) && !math.IsInf(r.Max, 0)
}

func (r FrequencyRange) String() string {
	return fmt.Sprintf("[%g, %g]", r.Min, r.Max)
}

// Origin is the provenance label of a measurement point
type Origin string

const (
	OriginManufacturer Origin = "manufacturer"
	OriginDerived      Origin = "derived"
	OriginReference    Origin = "reference"
)

// MeasurementPoint is a single volumetric loss measurement, flattened
type MeasurementPoint struct {
	Frequency       float64 `json:"frequency" doc:"Excitation frequency in Hz"`
	FluxDensityPeak float64 `json:"magneticFluxDensityPeak" doc:"Peak magnetic flux density in T"`
	Temperature     float64 `json:"temperature" doc:"Core temperature in °C"`
	LossDensity     float64 `json:"volumetricLosses" doc:"Volumetric losses in W/m³"`
	Origin          Origin  `json:"origin,omitempty" enum:"manufacturer,derived,reference" doc:"Measurement provenance"`
}

// CoefficientSet is one Steinmetz range: P = k·f^alpha·B^beta·(ct0 - ct1·T + ct2·T²)
type CoefficientSet struct {
	K                float64 `json:"k"`
	Alpha            float64 `json:"alpha"`
	Beta             float64 `json:"beta"`
	Ct0              float64 `json:"ct0"`
	Ct1              float64 `json:"ct1"`
	Ct2              float64 `json:"ct2"`
	MinimumFrequency float64 `json:"minimumFrequency"`
	MaximumFrequency float64 `json:"maximumFrequency"`
}

// Range returns the validity domain of the set
func (c CoefficientSet) Range() FrequencyRange {
	return FrequencyRange{Min: c.MinimumFrequency, Max: c.MaximumFrequency}
}

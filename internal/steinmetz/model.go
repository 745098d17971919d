package steinmetz

import (
	"fmt"
	"math"
	"strings"

	"github.com/RMahshie/corefit/pkg/models"
)

// TemperatureMode decides how a non-positive temperature coefficient is handled
type TemperatureMode int

const (
	// TemperatureBatch drops the temperature term for the whole batch as soon
	// as one point has a non-positive coefficient.
	TemperatureBatch TemperatureMode = iota
	// TemperaturePerPoint drops the term only for the offending points.
	TemperaturePerPoint
)

func (m TemperatureMode) String() string {
	switch m {
	case TemperatureBatch:
		return "batch"
	case TemperaturePerPoint:
		return "per_point"
	default:
		return fmt.Sprintf("TemperatureMode(%d)", int(m))
	}
}

// ParseTemperatureMode parses "batch" or "per_point"
func ParseTemperatureMode(s string) (TemperatureMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "batch":
		return TemperatureBatch, nil
	case "per_point", "per-point", "point":
		return TemperaturePerPoint, nil
	default:
		return 0, fmt.Errorf("unknown temperature mode %q", s)
	}
}

// Params are the regression parameters, with k in log10 form
type Params struct {
	LogK  float64
	Alpha float64
	Beta  float64
	Ct0   float64
	Ct1   float64
	Ct2   float64
}

// DefaultSeed is the initial guess of every fit. The optimizer's basin of
// convergence depends on it.
var DefaultSeed = Params{
	LogK:  math.Log10(0.4),
	Alpha: 1.5,
	Beta:  2,
	Ct0:   1e-3,
	Ct1:   1e-6,
	Ct2:   1e-8,
}

// isothermal coefficients make the temperature factor exactly 1
var isothermal = [3]float64{1, 0, 0}

// TemperatureCoefficient evaluates ct2·T² − ct1·T + ct0
func (p Params) TemperatureCoefficient(t float64) float64 {
	return p.Ct2*t*t - p.Ct1*t + p.Ct0
}

// Coefficients converts the parameters into a coefficient set without bounds
func (p Params) Coefficients() models.CoefficientSet {
	return models.CoefficientSet{
		K:     math.Pow(10, p.LogK),
		Alpha: p.Alpha,
		Beta:  p.Beta,
		Ct0:   p.Ct0,
		Ct1:   p.Ct1,
		Ct2:   p.Ct2,
	}
}

// ParamsOf converts a coefficient set back into regression parameters
func ParamsOf(set models.CoefficientSet) Params {
	return Params{
		LogK:  math.Log10(set.K),
		Alpha: set.Alpha,
		Beta:  set.Beta,
		Ct0:   set.Ct0,
		Ct1:   set.Ct1,
		Ct2:   set.Ct2,
	}
}

func (p Params) vector() []float64 {
	return []float64{p.LogK, p.Alpha, p.Beta, p.Ct0, p.Ct1, p.Ct2}
}

// with overwrites the leading parameters with x
func (p Params) with(x []float64) Params {
	v := p.vector()
	copy(v, x)
	return Params{LogK: v[0], Alpha: v[1], Beta: v[2], Ct0: v[3], Ct1: v[4], Ct2: v[5]}
}

// Sample is a measurement point in regression space
type Sample struct {
	LogFrequency   float64
	LogFluxDensity float64
	Temperature    float64
	LogLoss        float64
}

// SamplesOf takes points to log–log–linear space
func SamplesOf(points []models.MeasurementPoint) []Sample {
	samples := make([]Sample, len(points))
	for i, p := range points {
		samples[i] = Sample{
			LogFrequency:   math.Log10(p.Frequency),
			LogFluxDensity: math.Log10(p.FluxDensityPeak),
			Temperature:    p.Temperature,
			LogLoss:        math.Log10(p.LossDensity),
		}
	}
	return samples
}

// LossModel is the generalized Steinmetz expression in log space:
//
//	log10(P) = logK + alpha·log10(f) + beta·log10(B) + log10(ct2·T² − ct1·T + ct0)
type LossModel struct {
	Mode TemperatureMode
}

// PredictLogLoss evaluates log10 of the loss density for every sample of the batch
func (m LossModel) PredictLogLoss(batch []Sample, p Params) []float64 {
	mask := m.temperatureMask(batch, p)
	out := make([]float64, len(batch))
	for i, s := range batch {
		v := p.LogK + p.Alpha*s.LogFrequency + p.Beta*s.LogFluxDensity
		if mask[i] {
			v += math.Log10(p.TemperatureCoefficient(s.Temperature))
		}
		out[i] = v
	}
	return out
}

// temperatureMask reports which samples carry the temperature term
func (m LossModel) temperatureMask(batch []Sample, p Params) []bool {
	mask := make([]bool, len(batch))
	all := true
	for i, s := range batch {
		mask[i] = p.TemperatureCoefficient(s.Temperature) > 0
		all = all && mask[i]
	}
	if m.Mode == TemperatureBatch && !all {
		clear(mask)
	}
	return mask
}

package steinmetz

import (
	"math"
	"slices"

	"github.com/RMahshie/corefit/pkg/models"
)

// MeasurementStore is a read-only view over one material's loss measurements.
// Points that cannot be taken to log space are dropped on construction.
type MeasurementStore struct {
	points  []models.MeasurementPoint
	dropped int
}

// NewMeasurementStore copies the usable points into a new store
func NewMeasurementStore(points []models.MeasurementPoint) *MeasurementStore {
	kept := make([]models.MeasurementPoint, 0, len(points))
	dropped := 0
	for _, p := range points {
		if !usable(p) {
			dropped++
			continue
		}
		kept = append(kept, p)
	}
	return &MeasurementStore{points: kept, dropped: dropped}
}

// Points returns a copy of the stored points
func (s *MeasurementStore) Points() []models.MeasurementPoint {
	return slices.Clone(s.points)
}

// Len returns the number of usable points
func (s *MeasurementStore) Len() int { return len(s.points) }

// Dropped returns how many input points were unusable
func (s *MeasurementStore) Dropped() int { return s.dropped }

// ByOrigin returns the subset of points with the given origin
func (s *MeasurementStore) ByOrigin(origin models.Origin) *MeasurementStore {
	subset := make([]models.MeasurementPoint, 0, len(s.points))
	for _, p := range s.points {
		if p.Origin == origin {
			subset = append(subset, p)
		}
	}
	return &MeasurementStore{points: subset}
}

// Temperatures returns the distinct temperatures, ascending
func (s *MeasurementStore) Temperatures() []float64 {
	return distinctTemperatures(s.points)
}

// FrequencySpan returns the lowest and highest measured frequency
func (s *MeasurementStore) FrequencySpan() (models.FrequencyRange, bool) {
	return frequencySpan(s.points)
}

func usable(p models.MeasurementPoint) bool {
	return positive(p.Frequency) && positive(p.FluxDensityPeak) && positive(p.LossDensity) &&
		!math.IsNaN(p.Temperature) && !math.IsInf(p.Temperature, 0)
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

func distinctTemperatures(points []models.MeasurementPoint) []float64 {
	temps := make([]float64, 0, 8)
	for _, p := range points {
		temps = append(temps, p.Temperature)
	}
	slices.Sort(temps)
	return slices.Compact(temps)
}

func frequencySpan(points []models.MeasurementPoint) (models.FrequencyRange, bool) {
	if len(points) == 0 {
		return models.FrequencyRange{}, false
	}
	span := models.FrequencyRange{Min: points[0].Frequency, Max: points[0].Frequency}
	for _, p := range points[1:] {
		span.Min = math.Min(span.Min, p.Frequency)
		span.Max = math.Max(span.Max, p.Frequency)
	}
	return span, true
}

package steinmetz

import (
	"github.com/RMahshie/corefit/pkg/models"
)

// CoefficientsAt picks the range that applies at frequency. Frequencies
// outside every range fall back to the lowest or highest range.
func CoefficientsAt(ranges []models.CoefficientSet, frequency float64) (models.CoefficientSet, error) {
	if len(ranges) == 0 {
		return models.CoefficientSet{}, ErrNoRanges
	}
	lowest, highest := 0, 0
	for i, r := range ranges {
		if r.Range().Contains(frequency) {
			return r, nil
		}
		if r.MinimumFrequency < ranges[lowest].MinimumFrequency {
			lowest = i
		}
		if r.MaximumFrequency > ranges[highest].MaximumFrequency {
			highest = i
		}
	}
	if frequency < ranges[lowest].MinimumFrequency {
		return ranges[lowest], nil
	}
	if frequency > ranges[highest].MaximumFrequency {
		return ranges[highest], nil
	}
	// a gap between ranges: take the closest one below
	best := lowest
	for i, r := range ranges {
		if r.MaximumFrequency <= frequency && r.MaximumFrequency > ranges[best].MaximumFrequency {
			best = i
		}
	}
	return ranges[best], nil
}

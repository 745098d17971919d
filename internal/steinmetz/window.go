package steinmetz

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/RMahshie/corefit/pkg/models"
)

// Range targets grow by these factors on every retry
const (
	rangeWidenLower = 0.8
	rangeWidenUpper = 1.2
)

// Target describes which measurement points a fit works on
type Target interface {
	// Select returns the points the target covers
	Select(points []models.MeasurementPoint) []models.MeasurementPoint
	// Widen returns a target covering more points, for retries
	Widen(step int) Target
	fmt.Stringer
}

// Select extracts the working subset of points for a target. An empty result
// means no fit is possible for it.
func Select(points []models.MeasurementPoint, target Target) []models.MeasurementPoint {
	return target.Select(points)
}

// RangeTarget selects every point whose frequency lies inside Range
type RangeTarget struct {
	Range models.FrequencyRange
}

func (t RangeTarget) Select(points []models.MeasurementPoint) []models.MeasurementPoint {
	subset := make([]models.MeasurementPoint, 0, len(points))
	for _, p := range points {
		if t.Range.Contains(p.Frequency) {
			subset = append(subset, p)
		}
	}
	return subset
}

func (t RangeTarget) Widen(int) Target {
	return RangeTarget{Range: models.FrequencyRange{
		Min: t.Range.Min * rangeWidenLower,
		Max: t.Range.Max * rangeWidenUpper,
	}}
}

func (t RangeTarget) String() string {
	return "range " + t.Range.String()
}

// PivotTarget selects the PerSide nearest points at or above Frequency and
// the PerSide nearest at or below it. Points exactly at the pivot land in
// both halves and are returned twice.
type PivotTarget struct {
	Frequency float64
	PerSide   int
}

func (t PivotTarget) Select(points []models.MeasurementPoint) []models.MeasurementPoint {
	var above, below []models.MeasurementPoint
	for _, p := range points {
		if p.Frequency >= t.Frequency {
			above = append(above, p)
		}
		if p.Frequency <= t.Frequency {
			below = append(below, p)
		}
	}
	slices.SortStableFunc(above, func(a, b models.MeasurementPoint) int {
		return cmp.Compare(a.Frequency, b.Frequency)
	})
	slices.SortStableFunc(below, func(a, b models.MeasurementPoint) int {
		return cmp.Compare(b.Frequency, a.Frequency)
	})
	n := max(t.PerSide, 0)
	subset := make([]models.MeasurementPoint, 0, 2*n)
	subset = append(subset, above[:min(n, len(above))]...)
	subset = append(subset, below[:min(n, len(below))]...)
	return subset
}

func (t PivotTarget) Widen(step int) Target {
	return PivotTarget{Frequency: t.Frequency, PerSide: t.PerSide + step}
}

func (t PivotTarget) String() string {
	return fmt.Sprintf("pivot %g Hz ±%d points", t.Frequency, t.PerSide)
}

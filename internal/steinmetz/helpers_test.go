package steinmetz

import (
	"math"

	"github.com/RMahshie/corefit/pkg/models"
)

// reference is a ferrite-like coefficient set whose temperature factor stays
// positive over 0–150 °C.
var reference = models.CoefficientSet{
	K:     0.5,
	Alpha: 1.3,
	Beta:  2.5,
	Ct0:   1.2e-3,
	Ct1:   1.5e-5,
	Ct2:   1e-7,
}

func logspace(from, to float64, n int) []float64 {
	out := make([]float64, n)
	step := (math.Log10(to) - math.Log10(from)) / float64(n-1)
	for i := range out {
		out[i] = math.Pow(10, math.Log10(from)+step*float64(i))
	}
	return out
}

func steinmetzLoss(set models.CoefficientSet, f, b, t float64) float64 {
	return set.K * math.Pow(f, set.Alpha) * math.Pow(b, set.Beta) * (set.Ct0 - set.Ct1*t + set.Ct2*t*t)
}

// synthesize samples the exact loss surface of set on a full grid
func synthesize(set models.CoefficientSet, freqs, fluxes, temps []float64, origin models.Origin) []models.MeasurementPoint {
	points := make([]models.MeasurementPoint, 0, len(freqs)*len(fluxes)*len(temps))
	for _, f := range freqs {
		for _, b := range fluxes {
			for _, t := range temps {
				points = append(points, models.MeasurementPoint{
					Frequency:       f,
					FluxDensityPeak: b,
					Temperature:     t,
					LossDensity:     steinmetzLoss(set, f, b, t),
					Origin:          origin,
				})
			}
		}
	}
	return points
}

func referencePoints() []models.MeasurementPoint {
	return synthesize(reference,
		logspace(1e4, 8e5, 12),
		[]float64{0.05, 0.1, 0.2, 0.3},
		[]float64{25, 50, 75, 100},
		models.OriginManufacturer)
}

package steinmetz

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/RMahshie/corefit/pkg/models"
)

const (
	DefaultMaxIterations = 1000
	DefaultTolerance     = 1e-14

	initialDamping = 1e-3
	minDamping     = 1e-12
	maxDamping     = 1e16
	// relative-reduction stops only count once the step is close to Gauss-Newton
	tightDamping = 1e6
	tinyCost     = 1e-30
)

// Regressor fits the loss model to measurements by Levenberg-Marquardt least
// squares on log10 of the loss density.
type Regressor struct {
	Model         LossModel
	Seed          Params
	MaxIterations int
	Tolerance     float64
}

// NewRegressor returns a regressor seeded with DefaultSeed
func NewRegressor(model LossModel) *Regressor {
	return &Regressor{
		Model:         model,
		Seed:          DefaultSeed,
		MaxIterations: DefaultMaxIterations,
		Tolerance:     DefaultTolerance,
	}
}

// Fit regresses the model over points. The returned set is bounded by the
// frequency span of the points. Windows spanning a single temperature are
// fitted without the temperature term and report ct0=1, ct1=ct2=0.
func (r *Regressor) Fit(points []models.MeasurementPoint) (models.CoefficientSet, error) {
	if len(points) == 0 {
		return models.CoefficientSet{}, ErrEmptyWindow
	}

	seed := r.Seed
	unknowns := 6
	if len(distinctTemperatures(points)) < 2 {
		unknowns = 3
		seed.Ct0, seed.Ct1, seed.Ct2 = isothermal[0], isothermal[1], isothermal[2]
	}
	if len(points) <= unknowns {
		return models.CoefficientSet{}, fmt.Errorf("%w: %d points for %d unknowns", ErrInsufficientPoints, len(points), unknowns)
	}

	p, err := r.solve(SamplesOf(points), seed, unknowns)
	if err != nil {
		return models.CoefficientSet{}, err
	}

	set := p.Coefficients()
	span, _ := frequencySpan(points)
	set.MinimumFrequency = span.Min
	set.MaximumFrequency = span.Max
	return set, nil
}

// solve runs the damped Gauss-Newton iteration over the first `unknowns`
// parameters; the rest stay at their seed values.
func (r *Regressor) solve(samples []Sample, seed Params, unknowns int) (Params, error) {
	n := len(samples)
	x := seed.vector()[:unknowns]

	residuals := func(x, dst []float64) float64 {
		predicted := r.Model.PredictLogLoss(samples, seed.with(x))
		var cost float64
		for i, s := range samples {
			dst[i] = predicted[i] - s.LogLoss
			cost += dst[i] * dst[i]
		}
		return cost / 2
	}

	res := make([]float64, n)
	trial := make([]float64, n)
	cost := residuals(x, res)
	if !finite(cost) {
		return Params{}, fmt.Errorf("%w: non-finite cost at seed", ErrNonConvergence)
	}

	jac := mat.NewDense(n, unknowns, nil)
	var jtj mat.SymDense
	grad := mat.NewVecDense(unknowns, nil)
	diag := make([]float64, unknowns)
	damping := initialDamping

	for iter := 0; iter < r.MaxIterations; iter++ {
		if cost <= tinyCost {
			return seed.with(x), nil
		}

		r.jacobian(jac, samples, seed.with(x))
		jtj.SymOuterK(1, jac.T())
		grad.MulVec(jac.T(), mat.NewVecDense(n, res))
		for j := range diag {
			diag[j] = math.Sqrt(jtj.At(j, j))
		}

		for {
			if damping > maxDamping {
				// no descent direction left
				return seed.with(x), nil
			}
			step, ok := dampedStep(&jtj, grad, diag, damping)
			if !ok {
				damping *= 10
				continue
			}
			candidate := make([]float64, unknowns)
			floats.AddTo(candidate, x, step)
			trialCost := residuals(candidate, trial)
			if !finite(trialCost) || trialCost >= cost {
				damping *= 10
				continue
			}

			reduction := cost - trialCost
			x, cost = candidate, trialCost
			res, trial = trial, res
			converged := damping < tightDamping &&
				(reduction <= r.Tolerance*cost || scaledNorm(step, diag) <= r.Tolerance*(scaledNorm(x, diag)+r.Tolerance))
			damping = math.Max(damping/10, minDamping)
			if converged {
				return seed.with(x), nil
			}
			break
		}
	}
	return Params{}, fmt.Errorf("%w after %d iterations", ErrNonConvergence, r.MaxIterations)
}

// jacobian fills dst with the derivatives of the predicted log loss
func (r *Regressor) jacobian(dst *mat.Dense, samples []Sample, p Params) {
	mask := r.Model.temperatureMask(samples, p)
	_, cols := dst.Dims()
	for i, s := range samples {
		dst.Set(i, 0, 1)
		dst.Set(i, 1, s.LogFrequency)
		dst.Set(i, 2, s.LogFluxDensity)
		if cols == 3 {
			continue
		}
		var d float64
		if mask[i] {
			d = 1 / (math.Ln10 * p.TemperatureCoefficient(s.Temperature))
		}
		dst.Set(i, 3, d)
		dst.Set(i, 4, -s.Temperature*d)
		dst.Set(i, 5, s.Temperature*s.Temperature*d)
	}
}

// dampedStep solves (JᵀJ + λ·diag(JᵀJ))·δ = −Jᵀr in column-scaled form.
// Columns with no sensitivity are damped by λ alone.
func dampedStep(jtj *mat.SymDense, grad *mat.VecDense, diag []float64, damping float64) ([]float64, bool) {
	m := len(diag)
	scale := make([]float64, m)
	for j, d := range diag {
		scale[j] = 1
		if d > 0 {
			scale[j] = 1 / d
		}
	}

	damped := mat.NewSymDense(m, nil)
	rhs := mat.NewVecDense(m, nil)
	for i := range m {
		for j := i; j < m; j++ {
			v := scale[i] * jtj.At(i, j) * scale[j]
			if i == j {
				v += damping
			}
			damped.SetSym(i, j, v)
		}
		rhs.SetVec(i, -scale[i]*grad.AtVec(i))
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(damped); !ok {
		return nil, false
	}
	var z mat.VecDense
	if err := chol.SolveVecTo(&z, rhs); err != nil {
		return nil, false
	}

	step := make([]float64, m)
	for j := range step {
		step[j] = scale[j] * z.AtVec(j)
		if !finite(step[j]) {
			return nil, false
		}
	}
	return step, true
}

func scaledNorm(v, diag []float64) float64 {
	var sum float64
	for j, x := range v {
		d := diag[j]
		if d == 0 {
			d = 1
		}
		sum += (d * x) * (d * x)
	}
	return math.Sqrt(sum)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

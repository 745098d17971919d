package steinmetz

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/RMahshie/corefit/pkg/models"
)

// Fitter regresses a coefficient set from a window of points
type Fitter interface {
	Fit(points []models.MeasurementPoint) (models.CoefficientSet, error)
}

// RetryPolicy bounds the window-enlarging retries around a single fit
type RetryPolicy struct {
	InitialWindow int
	Step          int
	MaxAttempts   int
}

// DefaultRetryPolicy starts with 200 points per side and adds 100 per retry
var DefaultRetryPolicy = RetryPolicy{InitialWindow: 200, Step: 100, MaxAttempts: 10}

// FitResult is the fit of every range of one partition
type FitResult struct {
	Partition     Partition
	Coefficients  []models.CoefficientSet
	ErrorPerRange []float64
	MeanError     float64
}

// WindowFit is a converged fit together with the window it used
type WindowFit struct {
	Coefficients models.CoefficientSet
	Points       []models.MeasurementPoint
	Target       Target
	Attempts     int
}

// Evaluator fits every range of a candidate partition
type Evaluator struct {
	Fitter Fitter
	Model  LossModel
	Retry  RetryPolicy
	logger zerolog.Logger
}

// NewEvaluator builds an evaluator around a fitter
func NewEvaluator(fitter Fitter, model LossModel, retry RetryPolicy, logger zerolog.Logger) *Evaluator {
	return &Evaluator{Fitter: fitter, Model: model, Retry: retry, logger: logger}
}

// Evaluate fits each range of the partition in order. Any range that cannot
// be fitted, or that fits to unphysical coefficients, discards the whole
// partition. Committed bounds are the partition's own range bounds.
func (e *Evaluator) Evaluate(ctx context.Context, partition Partition, store *MeasurementStore, manufacturerOnly bool) (*FitResult, error) {
	if manufacturerOnly {
		store = store.ByOrigin(models.OriginManufacturer)
	}
	points := store.Points()

	result := &FitResult{
		Partition:     partition,
		Coefficients:  make([]models.CoefficientSet, 0, len(partition)),
		ErrorPerRange: make([]float64, 0, len(partition)),
	}
	for _, r := range partition {
		fit, err := e.FitTarget(ctx, points, RangeTarget{Range: r})
		if err != nil {
			return nil, fmt.Errorf("range %s: %w", r, err)
		}
		if !IsValid(fit.Coefficients) {
			return nil, fmt.Errorf("range %s: %w: k=%g alpha=%g beta=%g", r, ErrInvalidCoefficients,
				fit.Coefficients.K, fit.Coefficients.Alpha, fit.Coefficients.Beta)
		}
		rangeError := e.RelativeError(fit.Points, fit.Coefficients)
		if !finite(rangeError) || !finiteSet(fit.Coefficients) {
			return nil, fmt.Errorf("range %s: %w: non-finite result", r, ErrInvalidCoefficients)
		}

		set := fit.Coefficients
		set.MinimumFrequency = r.Min
		set.MaximumFrequency = r.Max
		result.Coefficients = append(result.Coefficients, set)
		result.ErrorPerRange = append(result.ErrorPerRange, rangeError)
	}
	result.MeanError = stat.Mean(result.ErrorPerRange, nil)
	return result, nil
}

// FitTarget fits the points selected by target. When the optimizer does not
// converge the window is enlarged and the fit retried, up to the policy's
// attempt limit or until enlarging stops adding points.
func (e *Evaluator) FitTarget(ctx context.Context, points []models.MeasurementPoint, target Target) (WindowFit, error) {
	if pivot, ok := target.(PivotTarget); ok && pivot.PerSide <= 0 {
		pivot.PerSide = e.Retry.InitialWindow
		target = pivot
	}

	previous := -1
	var lastErr error
	for attempt := 1; attempt <= max(e.Retry.MaxAttempts, 1); attempt++ {
		if err := ctx.Err(); err != nil {
			return WindowFit{}, err
		}
		window := Select(points, target)
		if len(window) == 0 {
			return WindowFit{}, fmt.Errorf("%w: %s", ErrEmptyWindow, target)
		}
		if len(window) == previous {
			break
		}

		set, err := e.Fitter.Fit(window)
		if err == nil {
			return WindowFit{Coefficients: set, Points: window, Target: target, Attempts: attempt}, nil
		}
		if !errors.Is(err, ErrNonConvergence) {
			return WindowFit{}, err
		}

		e.logger.Debug().
			Str("target", target.String()).
			Int("points", len(window)).
			Int("attempt", attempt).
			Msg("Fit did not converge, enlarging window")
		lastErr = err
		previous = len(window)
		target = target.Widen(e.Retry.Step)
	}
	if lastErr == nil {
		lastErr = ErrNonConvergence
	}
	return WindowFit{}, fmt.Errorf("%s: %w", target, lastErr)
}

// RelativeError is the mean of |predicted − measured| / measured over points
func (e *Evaluator) RelativeError(points []models.MeasurementPoint, set models.CoefficientSet) float64 {
	if len(points) == 0 {
		return math.NaN()
	}
	samples := SamplesOf(points)
	predicted := e.Model.PredictLogLoss(samples, ParamsOf(set))
	deviations := make([]float64, len(points))
	for i, p := range points {
		deviations[i] = math.Abs(math.Pow(10, predicted[i])-p.LossDensity) / p.LossDensity
	}
	return stat.Mean(deviations, nil)
}

func finiteSet(set models.CoefficientSet) bool {
	for _, v := range []float64{set.K, set.Alpha, set.Beta, set.Ct0, set.Ct1, set.Ct2} {
		if !finite(v) {
			return false
		}
	}
	return true
}

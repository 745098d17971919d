package steinmetz

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/RMahshie/corefit/pkg/models"
)

// DefaultAcceptanceThreshold is the mean relative error a fit must stay below to be committed
const DefaultAcceptanceThreshold = 0.6

// State is the fit state of a single material
type State int

const (
	StatePending State = iota
	StateFitting
	StateCommitted
	StateRejected
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateFitting:
		return "fitting"
	case StateCommitted:
		return "committed"
	case StateRejected:
		return "rejected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Options configures an Orchestrator
type Options struct {
	Retry               RetryPolicy
	MaxIterations       int
	Seed                Params
	TemperatureMode     TemperatureMode
	AcceptanceThreshold float64
	ManufacturerOnly    bool
	Catalog             *Catalog
	Logger              *zerolog.Logger
}

// DefaultOptions mirrors the automatic batch fitter
func DefaultOptions() Options {
	return Options{
		Retry:               DefaultRetryPolicy,
		MaxIterations:       DefaultMaxIterations,
		Seed:                DefaultSeed,
		TemperatureMode:     TemperatureBatch,
		AcceptanceThreshold: DefaultAcceptanceThreshold,
		ManufacturerOnly:    true,
	}
}

// Orchestrator searches the partition catalog for the most accurate valid fit
// and decides whether it may replace a material's stored coefficients.
type Orchestrator struct {
	Catalog             *Catalog
	Evaluator           *Evaluator
	AcceptanceThreshold float64
	ManufacturerOnly    bool
	logger              zerolog.Logger
}

// New wires a regressor, evaluator and catalog from options
func New(opts Options) *Orchestrator {
	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	logger = logger.With().Str("component", "steinmetz").Logger()

	model := LossModel{Mode: opts.TemperatureMode}
	regressor := NewRegressor(model)
	if opts.Seed != (Params{}) {
		regressor.Seed = opts.Seed
	}
	if opts.MaxIterations > 0 {
		regressor.MaxIterations = opts.MaxIterations
	}

	catalog := opts.Catalog
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	threshold := opts.AcceptanceThreshold
	if threshold <= 0 {
		threshold = DefaultAcceptanceThreshold
	}
	retry := opts.Retry
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetryPolicy
	}

	return &Orchestrator{
		Catalog:             catalog,
		Evaluator:           NewEvaluator(regressor, model, retry, logger),
		AcceptanceThreshold: threshold,
		ManufacturerOnly:    opts.ManufacturerOnly,
		logger:              logger,
	}
}

// BestFit evaluates every candidate partition and returns the valid one with
// the lowest mean error, or ErrNoValidPartition.
func (o *Orchestrator) BestFit(ctx context.Context, store *MeasurementStore) (*FitResult, error) {
	var best *FitResult
	for _, partition := range o.Catalog.Candidates() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := o.Evaluator.Evaluate(ctx, partition, store, o.ManufacturerOnly)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			o.logger.Debug().Err(err).Str("partition", partition.String()).Msg("Partition discarded")
			continue
		}
		o.logger.Debug().
			Str("partition", partition.String()).
			Float64("meanError", result.MeanError).
			Msg("Partition fitted")
		if best == nil || result.MeanError < best.MeanError {
			best = result
		}
	}
	if best == nil {
		return nil, ErrNoValidPartition
	}
	return best, nil
}

// Accepts reports whether a result is accurate enough to commit
func (o *Orchestrator) Accepts(result *FitResult) bool {
	return result != nil && result.MeanError < o.AcceptanceThreshold
}

// Commit writes the result's coefficients into the material's "steinmetz"
// entry, replacing only its ranges. On any failure the material is returned
// unchanged with the reason.
func (o *Orchestrator) Commit(material models.Material, result *FitResult) (models.Material, error) {
	if result == nil {
		return material, ErrNoValidPartition
	}
	if !o.Accepts(result) {
		return material, fmt.Errorf("%w: mean error %.4f, threshold %.4f",
			ErrBelowAcceptanceThreshold, result.MeanError, o.AcceptanceThreshold)
	}
	return material.WithSteinmetzRanges(result.Coefficients)
}

// Outcome is the end state of refitting one material
type Outcome struct {
	Material models.Material
	State    State
	Result   *FitResult
	Reason   error
}

// Refit runs the full pipeline for one material. Fit failures end in
// StateRejected with the input material untouched; only context errors are
// returned as errors.
func (o *Orchestrator) Refit(ctx context.Context, material models.Material) (Outcome, error) {
	outcome := Outcome{Material: material, State: StatePending}
	store := NewMeasurementStore(material.Measurements())
	logger := o.logger.With().Str("material", material.Name()).Logger()
	if store.Dropped() > 0 {
		logger.Warn().Int("dropped", store.Dropped()).Msg("Dropped unusable measurement points")
	}

	outcome.State = StateFitting
	result, err := o.BestFit(ctx, store)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return outcome, err
		}
		outcome.State = StateRejected
		outcome.Reason = err
		return outcome, nil
	}
	outcome.Result = result

	updated, err := o.Commit(material, result)
	if err != nil {
		outcome.State = StateRejected
		outcome.Reason = err
		return outcome, nil
	}
	outcome.Material = updated
	outcome.State = StateCommitted
	return outcome, nil
}

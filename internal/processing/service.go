package processing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/RMahshie/corefit/internal/repository"
	"github.com/RMahshie/corefit/internal/steinmetz"
	"github.com/RMahshie/corefit/pkg/models"
)

// ErrInvalidRequest marks a fit request the service cannot act on
var ErrInvalidRequest = errors.New("invalid fit request")

// FitService fits Steinmetz coefficients for posted points and stored materials
type FitService interface {
	FitRanges(ctx context.Context, req models.FitRangesRequestBody) (*steinmetz.FitResult, error)
	BestFit(ctx context.Context, req models.BestFitRequestBody) (*steinmetz.FitResult, error)
	Coefficients(ctx context.Context, name string, frequency float64) ([]models.CoefficientSet, error)
	ProcessMaterial(ctx context.Context, name string) (models.MaterialReport, error)
	ProcessCatalog(ctx context.Context) (*models.CatalogReport, error)
	Accepts(result *steinmetz.FitResult) bool
}

type fitService struct {
	repository   repository.MaterialRepository
	orchestrator *steinmetz.Orchestrator
}

func NewFitService(repo repository.MaterialRepository, orchestrator *steinmetz.Orchestrator) FitService {
	return &fitService{
		repository:   repo,
		orchestrator: orchestrator,
	}
}

// FitRanges fits either the caller's ranges or a window around a pivot frequency
func (s *fitService) FitRanges(ctx context.Context, req models.FitRangesRequestBody) (*steinmetz.FitResult, error) {
	store := steinmetz.NewMeasurementStore(req.Points)
	if store.Dropped() > 0 {
		log.Warn().Int("dropped", store.Dropped()).Msg("Dropped unusable measurement points")
	}

	switch {
	case len(req.Ranges) > 0:
		partition := steinmetz.Partition(req.Ranges)
		for i, r := range partition {
			if !r.Valid() {
				return nil, fmt.Errorf("%w: range %d %s is empty", ErrInvalidRequest, i, r)
			}
		}
		return s.orchestrator.Evaluator.Evaluate(ctx, partition, store, req.ManufacturerOnly)

	case req.PivotFrequency > 0:
		if req.ManufacturerOnly {
			store = store.ByOrigin(models.OriginManufacturer)
		}
		evaluator := s.orchestrator.Evaluator
		fit, err := evaluator.FitTarget(ctx, store.Points(), steinmetz.PivotTarget{Frequency: req.PivotFrequency})
		if err != nil {
			return nil, err
		}
		if !steinmetz.IsValid(fit.Coefficients) {
			return nil, fmt.Errorf("%s: %w", fit.Target, steinmetz.ErrInvalidCoefficients)
		}
		rangeError := evaluator.RelativeError(fit.Points, fit.Coefficients)
		return &steinmetz.FitResult{
			Partition:     steinmetz.Partition{fit.Coefficients.Range()},
			Coefficients:  []models.CoefficientSet{fit.Coefficients},
			ErrorPerRange: []float64{rangeError},
			MeanError:     rangeError,
		}, nil

	default:
		return nil, fmt.Errorf("%w: either ranges or a pivot frequency is required", ErrInvalidRequest)
	}
}

// BestFit searches the partition catalog for posted points
func (s *fitService) BestFit(ctx context.Context, req models.BestFitRequestBody) (*steinmetz.FitResult, error) {
	orchestrator := *s.orchestrator
	orchestrator.ManufacturerOnly = req.ManufacturerOnly
	return orchestrator.BestFit(ctx, steinmetz.NewMeasurementStore(req.Points))
}

// Coefficients returns the stored ranges of a material, or the single range
// that applies at frequency when it is positive
func (s *fitService) Coefficients(ctx context.Context, name string, frequency float64) ([]models.CoefficientSet, error) {
	material, err := s.repository.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	method, ok := material.SteinmetzMethod()
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, steinmetz.ErrNoSteinmetzMethod)
	}
	if frequency <= 0 {
		if len(method.Ranges) == 0 {
			return nil, fmt.Errorf("%s: %w", name, steinmetz.ErrNoRanges)
		}
		return method.Ranges, nil
	}
	set, err := steinmetz.CoefficientsAt(method.Ranges, frequency)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return []models.CoefficientSet{set}, nil
}

// ProcessMaterial refits one stored material and saves it when the fit is committed
func (s *fitService) ProcessMaterial(ctx context.Context, name string) (models.MaterialReport, error) {
	material, err := s.repository.GetByName(ctx, name)
	if err != nil {
		return models.MaterialReport{}, err
	}

	outcome, err := s.orchestrator.Refit(ctx, material)
	if err != nil {
		return models.MaterialReport{}, err
	}
	if outcome.State == steinmetz.StateCommitted {
		if err := s.repository.Save(ctx, outcome.Material); err != nil {
			return models.MaterialReport{}, fmt.Errorf("failed to save material %s: %w", name, err)
		}
	}
	logOutcome("", outcome)
	return ReportOf(outcome), nil
}

// ProcessCatalog refits every material of the catalog and writes the committed
// ones back in a single save
func (s *fitService) ProcessCatalog(ctx context.Context) (*models.CatalogReport, error) {
	runID := uuid.New().String()
	started := time.Now()
	log.Info().Str("run_id", runID).Msg("Starting catalog refit")

	materials, err := s.repository.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list materials: %w", err)
	}

	report := &models.CatalogReport{
		RunID:     runID,
		StartedAt: started,
		Materials: make([]models.MaterialReport, 0, len(materials)),
	}
	committed := make([]models.Material, 0, len(materials))
	for _, material := range materials {
		outcome, err := s.orchestrator.Refit(ctx, material)
		if err != nil {
			return nil, fmt.Errorf("run %s interrupted at %s: %w", runID, material.Name(), err)
		}
		logOutcome(runID, outcome)

		if outcome.State == steinmetz.StateCommitted {
			committed = append(committed, outcome.Material)
			report.Committed++
		} else {
			report.Rejected++
		}
		report.Materials = append(report.Materials, ReportOf(outcome))
	}

	if len(committed) > 0 {
		if err := s.repository.SaveAll(ctx, committed); err != nil {
			return nil, fmt.Errorf("failed to save catalog: %w", err)
		}
	}

	report.Duration = time.Since(started)
	log.Info().
		Str("run_id", runID).
		Int("committed", report.Committed).
		Int("rejected", report.Rejected).
		Dur("duration", report.Duration).
		Msg("Catalog refit finished")
	return report, nil
}

func (s *fitService) Accepts(result *steinmetz.FitResult) bool {
	return s.orchestrator.Accepts(result)
}

// ReportOf summarizes a refit outcome
func ReportOf(outcome steinmetz.Outcome) models.MaterialReport {
	report := models.MaterialReport{
		Material: outcome.Material.Name(),
		State:    outcome.State.String(),
	}
	if outcome.Result != nil {
		meanError := outcome.Result.MeanError
		report.MeanError = &meanError
		report.Partition = outcome.Result.Partition
	}
	if outcome.State == steinmetz.StateCommitted && outcome.Result != nil {
		report.Ranges = outcome.Result.Coefficients
	}
	if outcome.Reason != nil {
		report.Reason = outcome.Reason.Error()
	}
	return report
}

func logOutcome(runID string, outcome steinmetz.Outcome) {
	event := log.Info()
	if outcome.State != steinmetz.StateCommitted {
		event = log.Warn().AnErr("reason", outcome.Reason)
	}
	if runID != "" {
		event = event.Str("run_id", runID)
	}
	if outcome.Result != nil {
		event = event.
			Str("partition", outcome.Result.Partition.String()).
			Float64("meanError", outcome.Result.MeanError)
	}
	event.
		Str("material", outcome.Material.Name()).
		Str("state", outcome.State.String()).
		Msg("Material refit")
}

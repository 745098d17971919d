package handlers

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/RMahshie/corefit/internal/processing"
	"github.com/RMahshie/corefit/internal/repository"
	"github.com/RMahshie/corefit/internal/steinmetz"
	"github.com/RMahshie/corefit/pkg/models"
)

// FitHandler handles Steinmetz fitting HTTP requests
type FitHandler struct {
	fitSvc processing.FitService
}

// NewFitHandler creates a new fit handler
func NewFitHandler(fitSvc processing.FitService) *FitHandler {
	return &FitHandler{fitSvc: fitSvc}
}

// FitRanges fits the posted points over explicit ranges or around a pivot frequency
func (h *FitHandler) FitRanges(ctx context.Context, req *models.FitRangesRequest) (*models.FitResponse, error) {
	fitID := uuid.New().String()
	log.Info().
		Str("fitID", fitID).
		Int("points", len(req.Body.Points)).
		Int("ranges", len(req.Body.Ranges)).
		Float64("pivot", req.Body.PivotFrequency).
		Msg("Range fit request received")

	result, err := h.fitSvc.FitRanges(ctx, req.Body)
	if err != nil {
		log.Warn().Err(err).Str("fitID", fitID).Msg("Range fit failed")
		return nil, fitError(err)
	}
	return h.respond(fitID, result), nil
}

// BestFit searches the partition catalog for the posted points
func (h *FitHandler) BestFit(ctx context.Context, req *models.BestFitRequest) (*models.FitResponse, error) {
	fitID := uuid.New().String()
	log.Info().Str("fitID", fitID).Int("points", len(req.Body.Points)).Msg("Best fit request received")

	result, err := h.fitSvc.BestFit(ctx, req.Body)
	if err != nil {
		log.Warn().Err(err).Str("fitID", fitID).Msg("Best fit failed")
		return nil, fitError(err)
	}
	log.Info().
		Str("fitID", fitID).
		Str("partition", result.Partition.String()).
		Float64("meanError", result.MeanError).
		Msg("Best fit found")
	return h.respond(fitID, result), nil
}

// GetMaterialCoefficients returns the stored Steinmetz ranges of a material
func (h *FitHandler) GetMaterialCoefficients(ctx context.Context, req *models.GetMaterialCoefficientsRequest) (*models.GetMaterialCoefficientsResponse, error) {
	ranges, err := h.fitSvc.Coefficients(ctx, req.Name, req.Frequency)
	if err != nil {
		return nil, fitError(err)
	}
	return &models.GetMaterialCoefficientsResponse{
		Body: models.GetMaterialCoefficientsResponseBody{
			Material: req.Name,
			Ranges:   ranges,
		},
	}, nil
}

// RefitMaterial refits a stored material and commits the result when accepted
func (h *FitHandler) RefitMaterial(ctx context.Context, req *models.RefitMaterialRequest) (*models.RefitMaterialResponse, error) {
	log.Info().Str("material", req.Name).Msg("Refit request received")
	report, err := h.fitSvc.ProcessMaterial(ctx, req.Name)
	if err != nil {
		return nil, fitError(err)
	}
	return &models.RefitMaterialResponse{Body: report}, nil
}

func (h *FitHandler) respond(fitID string, result *steinmetz.FitResult) *models.FitResponse {
	return &models.FitResponse{
		Body: models.FitResultBody{
			ID:                   fitID,
			CoefficientsPerRange: result.Coefficients,
			ErrorPerRange:        result.ErrorPerRange,
			MeanError:            result.MeanError,
			Accepted:             h.fitSvc.Accepts(result),
		},
	}
}

// fitError maps service errors to HTTP errors
func fitError(err error) error {
	switch {
	case errors.Is(err, processing.ErrInvalidRequest):
		return huma.Error400BadRequest(err.Error(), err)
	case errors.Is(err, repository.ErrMaterialNotFound):
		return huma.Error404NotFound("Material not found", err)
	case errors.Is(err, steinmetz.ErrNoSteinmetzMethod), errors.Is(err, steinmetz.ErrNoRanges):
		return huma.Error404NotFound("Material has no Steinmetz coefficients", err)
	case errors.Is(err, steinmetz.ErrNoValidPartition),
		errors.Is(err, steinmetz.ErrEmptyWindow),
		errors.Is(err, steinmetz.ErrInsufficientPoints),
		errors.Is(err, steinmetz.ErrNonConvergence),
		errors.Is(err, steinmetz.ErrInvalidCoefficients):
		return huma.Error422UnprocessableEntity("Measurements could not be fitted", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return huma.Error503ServiceUnavailable("Fit cancelled", err)
	default:
		return huma.Error500InternalServerError("Fit failed", err)
	}
}

package handlers

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/RMahshie/corefit/internal/processing"
	"github.com/RMahshie/corefit/internal/repository"
	"github.com/RMahshie/corefit/internal/steinmetz"
	"github.com/RMahshie/corefit/pkg/models"
)

// MockFitService implements processing.FitService for testing
type MockFitService struct {
	mock.Mock
}

func (m *MockFitService) FitRanges(ctx context.Context, req models.FitRangesRequestBody) (*steinmetz.FitResult, error) {
	args := m.Called(ctx, req)
	result, _ := args.Get(0).(*steinmetz.FitResult)
	return result, args.Error(1)
}

func (m *MockFitService) BestFit(ctx context.Context, req models.BestFitRequestBody) (*steinmetz.FitResult, error) {
	args := m.Called(ctx, req)
	result, _ := args.Get(0).(*steinmetz.FitResult)
	return result, args.Error(1)
}

func (m *MockFitService) Coefficients(ctx context.Context, name string, frequency float64) ([]models.CoefficientSet, error) {
	args := m.Called(ctx, name, frequency)
	ranges, _ := args.Get(0).([]models.CoefficientSet)
	return ranges, args.Error(1)
}

func (m *MockFitService) ProcessMaterial(ctx context.Context, name string) (models.MaterialReport, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(models.MaterialReport), args.Error(1)
}

func (m *MockFitService) ProcessCatalog(ctx context.Context) (*models.CatalogReport, error) {
	args := m.Called(ctx)
	report, _ := args.Get(0).(*models.CatalogReport)
	return report, args.Error(1)
}

func (m *MockFitService) Accepts(result *steinmetz.FitResult) bool {
	return result.MeanError < steinmetz.DefaultAcceptanceThreshold
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var se huma.StatusError
	require.True(t, errors.As(err, &se), "not a huma status error: %v", err)
	return se.GetStatus()
}

var sampleResult = &steinmetz.FitResult{
	Partition:     steinmetz.Partition{{Min: 1, Max: 1e9}},
	Coefficients:  []models.CoefficientSet{{K: 1, Alpha: 1.4, Beta: 2.5, Ct0: 1, MinimumFrequency: 1, MaximumFrequency: 1e9}},
	ErrorPerRange: []float64{0.12},
	MeanError:     0.12,
}

func TestFitRanges(t *testing.T) {
	tests := []struct {
		name       string
		result     *steinmetz.FitResult
		err        error
		wantStatus int
	}{
		{name: "fitted", result: sampleResult},
		{name: "bad request", err: fmt.Errorf("%w: no ranges", processing.ErrInvalidRequest), wantStatus: 400},
		{name: "empty window", err: fmt.Errorf("range [1, 10]: %w", steinmetz.ErrEmptyWindow), wantStatus: 422},
		{name: "unphysical", err: steinmetz.ErrInvalidCoefficients, wantStatus: 422},
		{name: "unexpected", err: assert.AnError, wantStatus: 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockFitService{}
			req := &models.FitRangesRequest{Body: models.FitRangesRequestBody{
				Points: []models.MeasurementPoint{{Frequency: 1e5, FluxDensityPeak: 0.1, Temperature: 25, LossDensity: 1e4}},
				Ranges: []models.FrequencyRange{{Min: 1, Max: 1e9}},
			}}
			svc.On("FitRanges", mock.Anything, req.Body).Return(tt.result, tt.err)

			resp, err := NewFitHandler(svc).FitRanges(context.Background(), req)

			if tt.wantStatus != 0 {
				assert.Equal(t, tt.wantStatus, statusOf(t, err))
			} else {
				require.NoError(t, err)
				assert.NotEmpty(t, resp.Body.ID)
				assert.Equal(t, sampleResult.Coefficients, resp.Body.CoefficientsPerRange)
				assert.Equal(t, 0.12, resp.Body.MeanError)
				assert.True(t, resp.Body.Accepted)
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestBestFit(t *testing.T) {
	svc := &MockFitService{}
	rejected := *sampleResult
	rejected.MeanError = 0.8
	svc.On("BestFit", mock.Anything, mock.Anything).Return(&rejected, nil).Once()
	svc.On("BestFit", mock.Anything, mock.Anything).Return(nil, steinmetz.ErrNoValidPartition).Once()
	handler := NewFitHandler(svc)
	req := &models.BestFitRequest{}

	resp, err := handler.BestFit(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, resp.Body.Accepted)

	_, err = handler.BestFit(context.Background(), req)
	assert.Equal(t, 422, statusOf(t, err))
}

func TestGetMaterialCoefficients(t *testing.T) {
	svc := &MockFitService{}
	svc.On("Coefficients", mock.Anything, "N87", 1e5).Return(sampleResult.Coefficients, nil)
	svc.On("Coefficients", mock.Anything, "nope", 0.0).Return(nil, fmt.Errorf("nope: %w", repository.ErrMaterialNotFound))
	svc.On("Coefficients", mock.Anything, "bare", 0.0).Return(nil, steinmetz.ErrNoSteinmetzMethod)
	handler := NewFitHandler(svc)

	resp, err := handler.GetMaterialCoefficients(context.Background(), &models.GetMaterialCoefficientsRequest{Name: "N87", Frequency: 1e5})
	require.NoError(t, err)
	assert.Equal(t, "N87", resp.Body.Material)
	assert.Len(t, resp.Body.Ranges, 1)

	_, err = handler.GetMaterialCoefficients(context.Background(), &models.GetMaterialCoefficientsRequest{Name: "nope"})
	assert.Equal(t, 404, statusOf(t, err))

	_, err = handler.GetMaterialCoefficients(context.Background(), &models.GetMaterialCoefficientsRequest{Name: "bare"})
	assert.Equal(t, 404, statusOf(t, err))
}

func TestRefitMaterial(t *testing.T) {
	svc := &MockFitService{}
	report := models.MaterialReport{Material: "N87", State: "rejected", Reason: "no valid partition"}
	svc.On("ProcessMaterial", mock.Anything, "N87").Return(report, nil)
	svc.On("ProcessMaterial", mock.Anything, "gone").Return(models.MaterialReport{}, context.Canceled)
	handler := NewFitHandler(svc)

	resp, err := handler.RefitMaterial(context.Background(), &models.RefitMaterialRequest{Name: "N87"})
	require.NoError(t, err)
	assert.Equal(t, report, resp.Body)

	_, err = handler.RefitMaterial(context.Background(), &models.RefitMaterialRequest{Name: "gone"})
	assert.Equal(t, 503, statusOf(t, err))
}

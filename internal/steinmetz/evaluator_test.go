package steinmetz

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/RMahshie/corefit/pkg/models"
)

type mockFitter struct {
	mock.Mock
}

func (m *mockFitter) Fit(points []models.MeasurementPoint) (models.CoefficientSet, error) {
	args := m.Called(len(points))
	return args.Get(0).(models.CoefficientSet), args.Error(1)
}

func newTestEvaluator(fitter Fitter) *Evaluator {
	return NewEvaluator(fitter, LossModel{}, DefaultRetryPolicy, zerolog.Nop())
}

func evenlySpaced(n int) []models.MeasurementPoint {
	freqs := make([]float64, n)
	for i := range freqs {
		freqs[i] = float64(i + 1)
	}
	return pointsAt(freqs...)
}

func TestFitTarget_RetriesAreBounded(t *testing.T) {
	fitter := new(mockFitter)
	fitter.On("Fit", mock.Anything).Return(models.CoefficientSet{}, ErrNonConvergence)

	_, err := newTestEvaluator(fitter).FitTarget(context.Background(), evenlySpaced(2000), PivotTarget{Frequency: 1000})

	assert.ErrorIs(t, err, ErrNonConvergence)
	fitter.AssertNumberOfCalls(t, "Fit", DefaultRetryPolicy.MaxAttempts)
	fitter.AssertCalled(t, "Fit", 400)
	fitter.AssertCalled(t, "Fit", 600)
}

func TestFitTarget_StopsWhenWindowStopsGrowing(t *testing.T) {
	fitter := new(mockFitter)
	fitter.On("Fit", 20).Return(models.CoefficientSet{}, ErrNonConvergence)

	_, err := newTestEvaluator(fitter).FitTarget(context.Background(), evenlySpaced(20), RangeTarget{Range: models.FrequencyRange{Min: 1, Max: 20}})

	assert.ErrorIs(t, err, ErrNonConvergence)
	fitter.AssertNumberOfCalls(t, "Fit", 1)
}

func TestFitTarget_SucceedsAfterEnlarging(t *testing.T) {
	want := models.CoefficientSet{K: 1, Alpha: 1, Beta: 2}
	fitter := new(mockFitter)
	fitter.On("Fit", 400).Return(models.CoefficientSet{}, ErrNonConvergence).Once()
	fitter.On("Fit", 600).Return(models.CoefficientSet{}, ErrNonConvergence).Once()
	fitter.On("Fit", 800).Return(want, nil).Once()

	got, err := newTestEvaluator(fitter).FitTarget(context.Background(), evenlySpaced(2000), PivotTarget{Frequency: 1000, PerSide: 200})

	require.NoError(t, err)
	assert.Equal(t, want, got.Coefficients)
	assert.Equal(t, 3, got.Attempts)
	assert.Len(t, got.Points, 800)
	assert.Equal(t, PivotTarget{Frequency: 1000, PerSide: 400}, got.Target)
	fitter.AssertExpectations(t)
}

func TestFitTarget_OtherErrorsAreNotRetried(t *testing.T) {
	fitter := new(mockFitter)
	fitter.On("Fit", mock.Anything).Return(models.CoefficientSet{}, ErrInsufficientPoints)

	_, err := newTestEvaluator(fitter).FitTarget(context.Background(), evenlySpaced(5), PivotTarget{Frequency: 3})

	assert.ErrorIs(t, err, ErrInsufficientPoints)
	fitter.AssertNumberOfCalls(t, "Fit", 1)
}

func TestFitTarget_EmptyWindow(t *testing.T) {
	fitter := new(mockFitter)

	_, err := newTestEvaluator(fitter).FitTarget(context.Background(), evenlySpaced(5), RangeTarget{Range: models.FrequencyRange{Min: 100, Max: 200}})

	assert.ErrorIs(t, err, ErrEmptyWindow)
	fitter.AssertNotCalled(t, "Fit", mock.Anything)
}

func TestFitTarget_HonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestEvaluator(new(mockFitter)).FitTarget(ctx, evenlySpaced(5), PivotTarget{Frequency: 3})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestEvaluate_FitsEveryRange(t *testing.T) {
	evaluator := newTestEvaluator(NewRegressor(LossModel{}))
	partition := Partition{{Min: 1, Max: 1e5}, {Min: 1e5, Max: 1e9}}

	result, err := evaluator.Evaluate(context.Background(), partition, NewMeasurementStore(referencePoints()), true)
	require.NoError(t, err)

	require.Len(t, result.Coefficients, 2)
	require.Len(t, result.ErrorPerRange, 2)
	for i, set := range result.Coefficients {
		assert.Equal(t, partition[i], set.Range())
		assert.True(t, IsValid(set))
		assert.Less(t, result.ErrorPerRange[i], 1e-3)
	}
	assert.InDelta(t, (result.ErrorPerRange[0]+result.ErrorPerRange[1])/2, result.MeanError, 1e-15)
}

func TestEvaluate_DiscardsUnphysicalFit(t *testing.T) {
	// losses falling with frequency pull alpha below zero
	falling := models.CoefficientSet{K: 2, Alpha: -0.5, Beta: 2.5, Ct0: 1}
	points := synthesize(falling, logspace(1e4, 1e5, 8), []float64{0.05, 0.1, 0.2}, []float64{25}, models.OriginManufacturer)

	_, err := newTestEvaluator(NewRegressor(LossModel{})).Evaluate(context.Background(),
		Partition{{Min: 1, Max: 1e9}}, NewMeasurementStore(points), true)

	assert.ErrorIs(t, err, ErrInvalidCoefficients)
}

func TestEvaluate_EmptyRangeDiscardsPartition(t *testing.T) {
	_, err := newTestEvaluator(NewRegressor(LossModel{})).Evaluate(context.Background(),
		Partition{{Min: 1, Max: 1e6}, {Min: 1e6, Max: 1e9}}, NewMeasurementStore(referencePoints()), true)

	assert.ErrorIs(t, err, ErrEmptyWindow)
}

func TestEvaluate_ManufacturerFilter(t *testing.T) {
	points := synthesize(reference, logspace(1e4, 8e5, 12), []float64{0.05, 0.1, 0.2, 0.3}, []float64{25, 50, 75, 100}, models.OriginDerived)
	store := NewMeasurementStore(points)
	evaluator := newTestEvaluator(NewRegressor(LossModel{}))
	partition := Partition{{Min: 1, Max: 1e9}}

	_, err := evaluator.Evaluate(context.Background(), partition, store, true)
	assert.ErrorIs(t, err, ErrEmptyWindow)

	result, err := evaluator.Evaluate(context.Background(), partition, store, false)
	require.NoError(t, err)
	assert.Less(t, result.MeanError, 1e-3)
}

func TestRelativeError(t *testing.T) {
	evaluator := newTestEvaluator(nil)
	points := referencePoints()

	assert.InDelta(t, 0, evaluator.RelativeError(points, reference), 1e-9)

	doubled := reference
	doubled.K *= 2
	assert.InDelta(t, 1, evaluator.RelativeError(points, doubled), 1e-9)
}

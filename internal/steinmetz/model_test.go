package steinmetz

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLossModel_TemperatureFallback(t *testing.T) {
	// ct1 = 0.1 makes the temperature factor negative above 10 °C
	p := Params{Ct0: 1, Ct1: 0.1}
	batch := []Sample{{Temperature: 5}, {Temperature: 20}}

	tests := []struct {
		name string
		mode TemperatureMode
		want []float64
	}{
		{name: "batch drops the term everywhere", mode: TemperatureBatch, want: []float64{0, 0}},
		{name: "per point drops only offenders", mode: TemperaturePerPoint, want: []float64{math.Log10(0.5), 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LossModel{Mode: tt.mode}.PredictLogLoss(batch, p)
			assert.InDeltaSlice(t, tt.want, got, 1e-12)
		})
	}
}

func TestLossModel_ModesAgreeWhenFactorPositive(t *testing.T) {
	p := ParamsOf(reference)
	samples := SamplesOf(referencePoints())

	batch := LossModel{Mode: TemperatureBatch}.PredictLogLoss(samples, p)
	perPoint := LossModel{Mode: TemperaturePerPoint}.PredictLogLoss(samples, p)

	assert.Equal(t, batch, perPoint)
	for i, s := range samples {
		assert.InDelta(t, s.LogLoss, batch[i], 1e-9)
	}
}

func TestLossModel_ZeroFactorIsOmitted(t *testing.T) {
	p := Params{Ct0: 0}
	got := LossModel{Mode: TemperaturePerPoint}.PredictLogLoss([]Sample{{Temperature: 25}}, p)
	assert.Equal(t, []float64{0}, got)
}

func TestParseTemperatureMode(t *testing.T) {
	tests := []struct {
		in      string
		want    TemperatureMode
		wantErr bool
	}{
		{in: "", want: TemperatureBatch},
		{in: "batch", want: TemperatureBatch},
		{in: "per_point", want: TemperaturePerPoint},
		{in: " Per-Point ", want: TemperaturePerPoint},
		{in: "sometimes", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTemperatureMode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParams_CoefficientsRoundTrip(t *testing.T) {
	set := ParamsOf(reference).Coefficients()

	assert.InEpsilon(t, reference.K, set.K, 1e-12)
	assert.Equal(t, reference.Alpha, set.Alpha)
	assert.Equal(t, reference.Ct2, set.Ct2)
}

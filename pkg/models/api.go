package models

import (
	"time"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Body struct {
		Status  string    `json:"status" example:"healthy" doc:"Service health status"`
		Version string    `json:"version" example:"1.0.0" doc:"API version"`
		Time    time.Time `json:"time" doc:"Current server time"`
	}
}

// FitRangesRequestBody is the body of an explicit-range fit request
type FitRangesRequestBody struct {
	Points           []MeasurementPoint `json:"points" minItems:"1" required:"true" doc:"Loss measurements to fit"`
	Ranges           []FrequencyRange   `json:"ranges,omitempty" doc:"Contiguous frequency ranges, one coefficient set each"`
	PivotFrequency   float64            `json:"pivotFrequency,omitempty" minimum:"0" doc:"Fit a window of points around this frequency instead of explicit ranges"`
	ManufacturerOnly bool               `json:"manufacturerOnly,omitempty" doc:"Only use points with manufacturer origin"`
}

// FitRangesRequest represents a request to fit caller-supplied frequency ranges
type FitRangesRequest struct {
	Body FitRangesRequestBody
}

// BestFitRequestBody is the body of a partition search request
type BestFitRequestBody struct {
	Points           []MeasurementPoint `json:"points" minItems:"1" required:"true" doc:"Loss measurements to fit"`
	ManufacturerOnly bool               `json:"manufacturerOnly,omitempty" doc:"Only use points with manufacturer origin"`
}

// BestFitRequest represents a request to search the partition catalog
type BestFitRequest struct {
	Body BestFitRequestBody
}

// FitResultBody is the result of fitting one partition
type FitResultBody struct {
	ID                   string           `json:"id" doc:"Fit identifier"`
	CoefficientsPerRange []CoefficientSet `json:"coefficientsPerRange" doc:"Fitted coefficients, one set per range"`
	ErrorPerRange        []float64        `json:"errorPerRange" doc:"Mean relative error of each range"`
	MeanError            float64          `json:"meanError" doc:"Mean of the per-range errors"`
	Accepted             bool             `json:"accepted" doc:"Whether the mean error is below the acceptance threshold"`
}

// FitResponse wraps a fit result
type FitResponse struct {
	Body FitResultBody
}

// GetMaterialCoefficientsRequest represents a lookup of stored coefficients
type GetMaterialCoefficientsRequest struct {
	Name      string  `path:"name" doc:"Material name"`
	Frequency float64 `query:"frequency" minimum:"0" doc:"Operating frequency in Hz; omit to list every range"`
}

// GetMaterialCoefficientsResponseBody is the body of a coefficient lookup
type GetMaterialCoefficientsResponseBody struct {
	Material string           `json:"material" doc:"Material name"`
	Ranges   []CoefficientSet `json:"ranges" doc:"Matching Steinmetz ranges"`
}

// GetMaterialCoefficientsResponse represents stored coefficients of a material
type GetMaterialCoefficientsResponse struct {
	Body GetMaterialCoefficientsResponseBody
}

// RefitMaterialRequest represents a request to refit and commit a stored material
type RefitMaterialRequest struct {
	Name string `path:"name" doc:"Material name"`
}

// MaterialReport summarizes the fit of one material
type MaterialReport struct {
	Material  string           `json:"material" doc:"Material name"`
	State     string           `json:"state" enum:"committed,rejected" doc:"Final fit state"`
	MeanError *float64         `json:"meanError,omitempty" doc:"Mean relative error of the best partition"`
	Partition []FrequencyRange `json:"partition,omitempty" doc:"Ranges of the best partition"`
	Ranges    []CoefficientSet `json:"ranges,omitempty" doc:"Committed coefficients"`
	Reason    string           `json:"reason,omitempty" doc:"Why the fit was not committed"`
}

// RefitMaterialResponse represents the outcome of a refit
type RefitMaterialResponse struct {
	Body MaterialReport
}

// CatalogReport summarizes a batch run over a whole catalog
type CatalogReport struct {
	RunID     string           `json:"run_id"`
	Committed int              `json:"committed"`
	Rejected  int              `json:"rejected"`
	Materials []MaterialReport `json:"materials"`
	StartedAt time.Time        `json:"started_at"`
	Duration  time.Duration    `json:"duration"`
}

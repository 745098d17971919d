package api

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/RMahshie/corefit/internal/api/handlers"
	"github.com/RMahshie/corefit/internal/processing"
)

// RegisterRoutes sets up all API routes
func RegisterRoutes(api huma.API, fitSvc processing.FitService) {
	fitHandler := handlers.NewFitHandler(fitSvc)

	huma.Register(api, huma.Operation{
		OperationID: "fitRanges",
		Method:      http.MethodPost,
		Path:        "/api/steinmetz/fit",
		Summary:     "Fit explicit ranges",
		Description: "Fits Steinmetz coefficients over caller-supplied frequency ranges, or over a window around a pivot frequency",
		Tags:        []string{"Steinmetz"},
	}, fitHandler.FitRanges)

	huma.Register(api, huma.Operation{
		OperationID: "bestFit",
		Method:      http.MethodPost,
		Path:        "/api/steinmetz/best",
		Summary:     "Search partitions",
		Description: "Fits every candidate partition and returns the one with the lowest mean error",
		Tags:        []string{"Steinmetz"},
	}, fitHandler.BestFit)

	huma.Register(api, huma.Operation{
		OperationID: "getMaterialCoefficients",
		Method:      http.MethodGet,
		Path:        "/api/materials/{name}/steinmetz",
		Summary:     "Get stored coefficients",
		Description: "Returns the stored Steinmetz ranges of a material, or the one that applies at a frequency",
		Tags:        []string{"Materials"},
	}, fitHandler.GetMaterialCoefficients)

	huma.Register(api, huma.Operation{
		OperationID: "refitMaterial",
		Method:      http.MethodPost,
		Path:        "/api/materials/{name}/refit",
		Summary:     "Refit a material",
		Description: "Refits a stored material and commits the coefficients when the fit is accurate enough",
		Tags:        []string{"Materials"},
	}, fitHandler.RefitMaterial)
}

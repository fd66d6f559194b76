package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/scanworth/scanworth/internal/estimator"
	domain "github.com/scanworth/scanworth/pkg/types"
)

// EstimateHandler handles resale price estimate requests.
type EstimateHandler struct {
	provider estimator.Provider
}

// NewEstimateHandler creates a new EstimateHandler.
func NewEstimateHandler(p estimator.Provider) *EstimateHandler {
	return &EstimateHandler{provider: p}
}

// EstimateInput is the request body for the estimate endpoint.
type EstimateInput struct {
	Body struct {
		Query string `json:"query" minLength:"1" doc:"Item name or 8-14 digit product code" example:"EarthBound SNES"`
	}
}

// EstimateOutput is the response body for the estimate endpoint.
type EstimateOutput struct {
	Body domain.EstimateResult
}

// Estimate runs the multi-source aggregation for one search term.
func (h *EstimateHandler) Estimate(ctx context.Context, input *EstimateInput) (*EstimateOutput, error) {
	res, err := h.provider.Estimate(ctx, input.Body.Query)
	if err != nil {
		switch {
		case errors.Is(err, estimator.ErrNoSources):
			return nil, huma.Error503ServiceUnavailable("no marketplace source configured")
		case errors.Is(err, estimator.ErrEmptyTerm):
			return nil, huma.Error422UnprocessableEntity("search term is empty")
		default:
			return nil, huma.Error500InternalServerError("estimate failed: " + err.Error())
		}
	}

	return &EstimateOutput{Body: *res}, nil
}

// RegisterEstimateRoutes registers estimate endpoints with the Huma API.
func RegisterEstimateRoutes(api huma.API, h *EstimateHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "estimate-price",
		Method:      http.MethodPost,
		Path:        "/api/v1/estimate",
		Summary:     "Estimate resale price",
		Description: "Aggregates current listings and sold comps across marketplace sources and returns robust price statistics.",
		Tags:        []string{"estimate"},
		Errors:      []int{http.StatusUnprocessableEntity, http.StatusServiceUnavailable},
	}, h.Estimate)
}

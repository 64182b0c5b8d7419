// Package handler provides HTTP handlers for the weather dashboard API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/weatherdash/weatherdash/internal/analytics"
	"github.com/weatherdash/weatherdash/internal/api/models"
	"github.com/weatherdash/weatherdash/internal/api/response"
)

// maxFilterBody caps filter request bodies.
const maxFilterBody = 16 << 10

// AnalyticsHandler exposes the query controller over HTTP.
type AnalyticsHandler struct {
	controller *analytics.Controller
	logger     zerolog.Logger
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(controller *analytics.Controller, logger zerolog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		controller: controller,
		logger:     logger,
	}
}

// GetView handles GET /v1/analytics - the current render-ready view.
func (h *AnalyticsHandler) GetView(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, h.controller.View())
}

// SetFilter handles PUT /v1/analytics/filter - replace the filter inputs without querying.
func (h *AnalyticsHandler) SetFilter(w http.ResponseWriter, r *http.Request) {
	filter, ok, present := h.decodeFilter(w, r)
	if !ok {
		return
	}
	if !present {
		response.BadRequest(w, r, "request body is required", nil)
		return
	}

	st := h.controller.SetFilter(filter)
	response.JSON(w, r, http.StatusOK, analytics.BuildView(st))
}

// RunQuery handles POST /v1/analytics/query - run a query and return the resolved view.
// An optional body replaces the filter inputs first; without one the current inputs are used.
func (h *AnalyticsHandler) RunQuery(w http.ResponseWriter, r *http.Request) {
	filter, ok, present := h.decodeFilter(w, r)
	if !ok {
		return
	}

	// A client that disconnects mid-query must not turn the shared view into an error.
	ctx := context.WithoutCancel(r.Context())

	var st analytics.State
	if present {
		h.controller.SetFilter(filter)
		st = h.controller.RunQuery(ctx, filter)
	} else {
		st = h.controller.Query(ctx)
	}
	response.JSON(w, r, http.StatusOK, analytics.BuildView(st))
}

// Export handles GET /v1/analytics/export - download the loaded result as CSV.
// Responds 204 when there is nothing to export.
func (h *AnalyticsHandler) Export(w http.ResponseWriter, r *http.Request) {
	export, ok := h.controller.Export()
	if !ok {
		response.NoContent(w, r)
		return
	}

	h.logger.Info().
		Str("request_id", requestID(r)).
		Str("filename", export.Filename).
		Msg("serving analytics export")

	response.Attachment(w, r, export.Filename, export.ContentType, export.Data)
}

// decodeFilter reads an optional FilterRequest body. ok is false when an error
// response has been written; present is false for an empty body.
func (h *AnalyticsHandler) decodeFilter(w http.ResponseWriter, r *http.Request) (filter analytics.Filter, ok, present bool) {
	var input models.FilterRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxFilterBody))
	dec.DisallowUnknownFields()

	if err := dec.Decode(&input); err != nil {
		if errors.Is(err, io.EOF) {
			return analytics.Filter{}, true, false
		}
		response.BadRequest(w, r, "invalid JSON body", nil)
		return analytics.Filter{}, false, false
	}

	filter = input.Filter()
	if err := filter.Validate(); err != nil {
		response.BadRequest(w, r, err.Error(), models.FieldErrorsFrom(filter.FieldErrors(), "INVALID_DATE"))
		return analytics.Filter{}, false, true
	}
	return filter, true, true
}

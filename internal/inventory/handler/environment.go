package handler

import (
	"encoding/json"
	"net/http"

	"github.com/medflow/drug-warehouse/internal/inventory/repository"
	"github.com/medflow/drug-warehouse/internal/inventory/service"
	"github.com/medflow/drug-warehouse/pkg/errors"
	"github.com/medflow/drug-warehouse/pkg/httputil"
	"github.com/medflow/drug-warehouse/pkg/i18n"
	"github.com/medflow/drug-warehouse/pkg/logger"
	"github.com/shopspring/decimal"
)

// EnvironmentHandler handles the environment reading endpoints
type EnvironmentHandler struct {
	service *service.EnvironmentService
	logger  *logger.Logger
}

// NewEnvironmentHandler creates a new environment handler
func NewEnvironmentHandler(svc *service.EnvironmentService, log *logger.Logger) *EnvironmentHandler {
	return &EnvironmentHandler{
		service: svc,
		logger:  log,
	}
}

// Sync stores a reading pushed by the monitoring device
func (h *EnvironmentHandler) Sync(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Temperature json.RawMessage `json:"temperature"`
		Humidity    json.RawMessage `json:"humidity"`
		Note        string          `json:"note"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	details := map[string]string{}
	temperature := parseDecimal(r, details, "temperature", req.Temperature)
	humidity := parseDecimal(r, details, "humidity", req.Humidity)
	if len(details) > 0 {
		httputil.ErrorLocalized(w, r, errors.Validation(details))
		return
	}

	reading, err := h.service.Record(r.Context(), temperature, humidity, req.Note)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.Created(w, map[string]interface{}{
		"message": i18n.TFromContext(r.Context(), "results.environment_sync"),
		"reading": reading,
	})
}

// Latest returns the most recent reading
func (h *EnvironmentHandler) Latest(w http.ResponseWriter, r *http.Request) {
	reading, err := h.service.Latest(r.Context())
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, reading)
}

// Readings lists readings between from and to
func (h *EnvironmentHandler) Readings(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r, r.URL.Query())
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	readings, err := h.service.List(r.Context(), repository.ReadingFilter{From: rng.from, To: rng.to, Limit: rng.limit})
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, readings, &httputil.Meta{Total: int64(len(readings))})
}

// parseDecimal accepts a JSON number or a numeric string
func parseDecimal(r *http.Request, details map[string]string, field string, raw json.RawMessage) decimal.Decimal {
	if len(raw) == 0 || string(raw) == "null" {
		details[field] = i18n.TFromContext(r.Context(), "validation.required")
		return decimal.Zero
	}

	var d decimal.Decimal
	if err := d.UnmarshalJSON(raw); err != nil {
		details[field] = i18n.TFromContext(r.Context(), "validation.decimal")
		return decimal.Zero
	}
	return d
}

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/medflow/drug-warehouse/internal/inventory/service"
	"github.com/medflow/drug-warehouse/pkg/httputil"
	"github.com/medflow/drug-warehouse/pkg/i18n"
	"github.com/medflow/drug-warehouse/pkg/logger"
)

// DrugHandler handles batch listing and the stock operations
type DrugHandler struct {
	service *service.InventoryService
	logger  *logger.Logger
}

// NewDrugHandler creates a new drug handler
func NewDrugHandler(svc *service.InventoryService, log *logger.Logger) *DrugHandler {
	return &DrugHandler{
		service: svc,
		logger:  log,
	}
}

// OperationResponse is returned by every stock operation
type OperationResponse struct {
	Message string `json:"message"`
	*service.OperationResult
}

// List lists batches, optionally filtered by a name substring
func (h *DrugHandler) List(w http.ResponseWriter, r *http.Request) {
	batches, err := h.service.ListBatches(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, batches, &httputil.Meta{Total: int64(len(batches))})
}

// Get gets a batch by ID
func (h *DrugHandler) Get(w http.ResponseWriter, r *http.Request) {
	batch, err := h.service.GetBatch(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batch)
}

// Inbound receives stock
func (h *DrugHandler) Inbound(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name          string `json:"name" validate:"required"`
		BatchNumber   string `json:"batch_number" validate:"required"`
		Specification string `json:"specification" validate:"required"`
		ExpiryDate    string `json:"expiry_date" validate:"required,datetime=2006-01-02"`
		Quantity      int    `json:"quantity" validate:"gt=0"`
		Location      string `json:"location" validate:"required"`
	}
	if !decode(w, r, &req) {
		return
	}

	res, err := h.service.Inbound(r.Context(), service.InboundInput{
		Name:          req.Name,
		BatchNumber:   req.BatchNumber,
		Specification: req.Specification,
		ExpiryDate:    req.ExpiryDate,
		Quantity:      req.Quantity,
		Location:      req.Location,
	})
	h.respond(w, r, "results.inbound", res, err)
}

// Outbound dispatches stock from a batch
func (h *DrugHandler) Outbound(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BatchID  string `json:"batch_id" validate:"required"`
		Quantity int    `json:"quantity" validate:"gt=0"`
	}
	if !decode(w, r, &req) {
		return
	}

	res, err := h.service.Outbound(r.Context(), req.BatchID, req.Quantity)
	h.respond(w, r, "results.outbound", res, err)
}

// Transfer moves a batch to a new location
func (h *DrugHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BatchID     string `json:"batch_id" validate:"required"`
		NewLocation string `json:"new_location" validate:"required"`
	}
	if !decode(w, r, &req) {
		return
	}

	res, err := h.service.Transfer(r.Context(), req.BatchID, req.NewLocation)
	h.respond(w, r, "results.transfer", res, err)
}

// Isolate quarantines an expired or expiring batch
func (h *DrugHandler) Isolate(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.service.Quarantine(r.Context(), req.BatchID)
	h.respond(w, r, "results.quarantine", res, err)
}

// Dispose disposes of a quarantined batch
func (h *DrugHandler) Dispose(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.service.Dispose(r.Context(), req.BatchID)
	h.respond(w, r, "results.dispose", res, err)
}

type batchRequest struct {
	BatchID string `json:"batch_id" validate:"required"`
}

func (h *DrugHandler) respond(w http.ResponseWriter, r *http.Request, messageKey string, res *service.OperationResult, err error) {
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, OperationResponse{
		Message:         i18n.TFromContext(r.Context(), messageKey),
		OperationResult: res,
	})
}

// decode reads and validates a JSON body, writing the error response on failure
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := httputil.DecodeJSON(r, v); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return false
	}
	if err := httputil.ValidateContext(r.Context(), v); err != nil {
		httputil.ErrorLocalized(w, r, err)
		return false
	}
	return true
}

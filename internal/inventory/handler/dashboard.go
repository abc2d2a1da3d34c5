package handler

import (
	"net/http"

	"github.com/medflow/drug-warehouse/internal/inventory/service"
	"github.com/medflow/drug-warehouse/pkg/httputil"
	"github.com/medflow/drug-warehouse/pkg/logger"
)

// DashboardHandler handles dashboard endpoints
type DashboardHandler struct {
	service *service.InventoryService
	logger  *logger.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(svc *service.InventoryService, log *logger.Logger) *DashboardHandler {
	return &DashboardHandler{
		service: svc,
		logger:  log,
	}
}

// Get returns the warehouse overview
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	dash, err := h.service.Dashboard(r.Context())
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, dash)
}

package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/medflow/drug-warehouse/internal/inventory/repository"
	"github.com/medflow/drug-warehouse/internal/inventory/service"
	"github.com/medflow/drug-warehouse/pkg/errors"
	"github.com/medflow/drug-warehouse/pkg/httputil"
	"github.com/medflow/drug-warehouse/pkg/i18n"
	"github.com/medflow/drug-warehouse/pkg/logger"
)

// OperationHandler serves the operation ledger
type OperationHandler struct {
	service *service.InventoryService
	logger  *logger.Logger
}

// NewOperationHandler creates a new operation handler
func NewOperationHandler(svc *service.InventoryService, log *logger.Logger) *OperationHandler {
	return &OperationHandler{
		service: svc,
		logger:  log,
	}
}

// List lists ledger entries filtered by batch_id, kind, from, to and limit
func (h *OperationHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rng, err := parseRange(r, q)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	filter := repository.LedgerFilter{
		BatchID: q.Get("batch_id"),
		Kind:    repository.OperationKind(q.Get("kind")),
		From:    rng.from,
		To:      rng.to,
		Limit:   rng.limit,
	}
	entries, total, err := h.service.ListOperations(r.Context(), filter)
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	limit := filter.Limit
	if limit == 0 {
		limit = service.DefaultOperationLimit
	}
	httputil.JSONWithMeta(w, http.StatusOK, entries, &httputil.Meta{Total: total, Limit: limit})
}

// Reconcile checks every batch quantity against its ledger
func (h *OperationHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Reconcile(r.Context())
	if err != nil {
		httputil.ErrorLocalized(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, report)
}

type timeRange struct {
	from, to time.Time
	limit    int
}

// parseRange reads from, to and limit. Times are RFC 3339 or a YYYY-MM-DD day in server local time.
func parseRange(r *http.Request, q url.Values) (timeRange, error) {
	var rng timeRange
	details := map[string]string{}

	for _, p := range []struct {
		name string
		dst  *time.Time
	}{{"from", &rng.from}, {"to", &rng.to}} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		t, ok := parseTime(raw)
		if !ok {
			details[p.name] = i18n.TFromContext(r.Context(), "validation.rfc3339")
			continue
		}
		*p.dst = t
	}

	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			details["limit"] = i18n.TFromContext(r.Context(), "validation.gte", map[string]string{"param": "0"})
		}
		rng.limit = n
	}

	if len(details) > 0 {
		return rng, errors.Validation(details)
	}
	return rng, nil
}

func parseTime(raw string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation(repository.DateLayout, raw, time.Local); err == nil {
		return t, true
	}
	return time.Time{}, false
}

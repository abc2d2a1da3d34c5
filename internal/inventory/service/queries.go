package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/medflow/drug-warehouse/internal/inventory/repository"
	"github.com/medflow/drug-warehouse/pkg/errors"
	"github.com/medflow/drug-warehouse/pkg/i18n"
)

// Ledger listing limits
const (
	DefaultOperationLimit = 100
	MaxOperationLimit     = 1000
)

// Dashboard is the warehouse overview
type Dashboard struct {
	TotalStock      int64 `json:"total_stock"`
	ExpiringSoon    int64 `json:"expiring_soon"`
	Expired         int64 `json:"expired"`
	Quarantined     int64 `json:"quarantined"`
	Batches         int64 `json:"batches"`
	TodayOperations int64 `json:"today_operations"`
}

// Dashboard refreshes every tracked status, then aggregates stock and today's ledger activity
func (s *InventoryService) Dashboard(ctx context.Context) (*Dashboard, error) {
	if _, err := s.RefreshStatuses(ctx); err != nil {
		return nil, storageError(err)
	}

	summary, err := s.store.Batches().Summary(ctx)
	if err != nil {
		return nil, storageError(err)
	}

	from := s.today().Time(s.location)
	count, err := s.store.Ledger().Count(ctx, repository.LedgerFilter{
		From: from,
		To:   from.AddDate(0, 0, 1),
	})
	if err != nil {
		return nil, storageError(err)
	}

	s.metrics.SetStock(summary.TotalQuantity, summary.ExpiringSoon, summary.Expired)

	return &Dashboard{
		TotalStock:      summary.TotalQuantity,
		ExpiringSoon:    summary.ExpiringSoon,
		Expired:         summary.Expired,
		Quarantined:     summary.Quarantined,
		Batches:         summary.Batches,
		TodayOperations: count,
	}, nil
}

// ListBatches lists batches whose name contains name, with current statuses
func (s *InventoryService) ListBatches(ctx context.Context, name string) ([]*repository.Batch, error) {
	if s.sweepAll() {
		if _, err := s.RefreshStatuses(ctx); err != nil {
			return nil, storageError(err)
		}
	}

	batches, err := s.store.Batches().List(ctx, name)
	if err != nil {
		return nil, storageError(err)
	}

	if !s.sweepAll() {
		if _, err := s.refresh(ctx, batches); err != nil {
			return nil, storageError(err)
		}
	}
	return batches, nil
}

// GetBatch returns one batch with its current status
func (s *InventoryService) GetBatch(ctx context.Context, id string) (*repository.Batch, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errors.NotFoundWithKey("batch")
	}

	if s.sweepAll() {
		if _, err := s.RefreshStatuses(ctx); err != nil {
			return nil, storageError(err)
		}
	}

	batch, err := s.store.Batches().GetByID(ctx, id)
	if err != nil {
		return nil, storageError(err)
	}

	if !s.sweepAll() {
		if _, err := s.refresh(ctx, []*repository.Batch{batch}); err != nil {
			return nil, storageError(err)
		}
	}
	return batch, nil
}

// ListOperations returns ledger entries matching filter and the total number of matches.
// A zero limit uses DefaultOperationLimit.
func (s *InventoryService) ListOperations(ctx context.Context, filter repository.LedgerFilter) ([]*repository.LedgerEntry, int64, error) {
	details := map[string]string{}
	if filter.BatchID != "" {
		if _, err := uuid.Parse(filter.BatchID); err != nil {
			details["batch_id"] = i18n.TFromContext(ctx, "validation.uuid")
		}
	}
	if filter.Kind != "" && !filter.Kind.Valid() {
		details["kind"] = i18n.TFromContext(ctx, "validation.oneof", map[string]string{"param": "inbound outbound transfer quarantine dispose"})
	}
	if filter.Limit < 0 || filter.Limit > MaxOperationLimit {
		details["limit"] = i18n.TFromContext(ctx, "validation.lte", map[string]string{"param": "1000"})
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && !filter.From.Before(filter.To) {
		details["to"] = i18n.TFromContext(ctx, "validation.invalid")
	}
	if len(details) > 0 {
		return nil, 0, errors.Validation(details)
	}
	if filter.Limit == 0 {
		filter.Limit = DefaultOperationLimit
	}

	ledger := s.store.Ledger()
	entries, err := ledger.List(ctx, filter)
	if err != nil {
		return nil, 0, storageError(err)
	}
	total, err := ledger.Count(ctx, filter)
	if err != nil {
		return nil, 0, storageError(err)
	}
	return entries, total, nil
}

// ReconciliationLine compares one batch's quantity with its ledger
type ReconciliationLine struct {
	BatchID  string `json:"batch_id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Inbound  int64  `json:"inbound"`
	Outbound int64  `json:"outbound"`
	Disposed int64  `json:"disposed"`
	Expected int64  `json:"expected"`
}

// ReconciliationReport lists batches whose quantity does not match inbound - outbound - disposed
type ReconciliationReport struct {
	CheckedAt  time.Time             `json:"checked_at"`
	Batches    int                   `json:"batches"`
	Balanced   bool                  `json:"balanced"`
	Mismatches []*ReconciliationLine `json:"mismatches"`
}

// Reconcile replays ledger totals against every batch in one transaction
func (s *InventoryService) Reconcile(ctx context.Context) (*ReconciliationReport, error) {
	report := &ReconciliationReport{
		CheckedAt:  s.clock.Now().UTC(),
		Mismatches: []*ReconciliationLine{},
	}

	err := s.store.Run(ctx, func(batches repository.BatchStore, ledger repository.LedgerStore) error {
		all, err := batches.List(ctx, "")
		if err != nil {
			return err
		}
		totals, err := ledger.Totals(ctx)
		if err != nil {
			return err
		}

		sums := make(map[string]map[repository.OperationKind]int64, len(all))
		for _, t := range totals {
			if sums[t.BatchID] == nil {
				sums[t.BatchID] = map[repository.OperationKind]int64{}
			}
			sums[t.BatchID][t.Kind] = t.Quantity
		}

		report.Batches = len(all)
		for _, b := range all {
			k := sums[b.ID]
			line := &ReconciliationLine{
				BatchID:  b.ID,
				Name:     b.Name,
				Quantity: b.Quantity,
				Inbound:  k[repository.KindInbound],
				Outbound: k[repository.KindOutbound],
				Disposed: k[repository.KindDispose],
			}
			line.Expected = line.Inbound - line.Outbound - line.Disposed
			if line.Expected != int64(b.Quantity) {
				report.Mismatches = append(report.Mismatches, line)
			}
		}
		return nil
	})
	if err != nil {
		return nil, storageError(err)
	}

	report.Balanced = len(report.Mismatches) == 0
	if !report.Balanced {
		s.logger.Warn().Int("mismatches", len(report.Mismatches)).Msg("ledger does not reconcile with stock")
	}
	return report, nil
}

package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/medflow/drug-warehouse/internal/inventory/events"
	"github.com/medflow/drug-warehouse/internal/inventory/repository"
	"github.com/medflow/drug-warehouse/pkg/config"
	"github.com/medflow/drug-warehouse/pkg/database"
	"github.com/medflow/drug-warehouse/pkg/errors"
	"github.com/medflow/drug-warehouse/pkg/i18n"
	"github.com/medflow/drug-warehouse/pkg/logger"
	"github.com/medflow/drug-warehouse/pkg/metrics"
)

// Column bounds for descriptive batch fields, in runes
const (
	maxNameLength          = 128
	maxBatchNumberLength   = 64
	maxSpecificationLength = 64
)

// Store is the persistence the inventory service runs on. *repository.Store implements it.
type Store interface {
	Batches() repository.BatchStore
	Ledger() repository.LedgerStore
	// Run executes fn in one transaction. fn must only use the stores it is given.
	Run(ctx context.Context, fn func(batches repository.BatchStore, ledger repository.LedgerStore) error) error
}

// InventoryService applies stock operations and keeps batch status current
type InventoryService struct {
	store       Store
	rules       config.InventoryConfig
	clock       Clock
	ledgerClock *LedgerClock
	location    *time.Location
	publisher   *events.InventoryEventPublisher
	metrics     *metrics.Recorder
	logger      *logger.Logger
}

// Option configures an InventoryService
type Option func(*InventoryService)

// WithClock replaces the wall clock, e.g. to pin "today" in tests
func WithClock(c Clock) Option {
	return func(s *InventoryService) {
		s.clock = c
	}
}

// WithLocation sets the zone that decides calendar days. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(s *InventoryService) {
		s.location = loc
	}
}

// NewInventoryService creates a new inventory service. publisher and rec may be nil.
func NewInventoryService(
	store Store,
	rules config.InventoryConfig,
	publisher *events.InventoryEventPublisher,
	rec *metrics.Recorder,
	log *logger.Logger,
	opts ...Option,
) *InventoryService {
	if rules.ExpiryWarningDays <= 0 {
		rules.ExpiryWarningDays = DefaultExpiryWarningDays
	}
	if rules.LocationMaxLength <= 0 {
		rules.LocationMaxLength = 32
	}
	if rules.LocationMaxLength > config.LocationColumnWidth {
		rules.LocationMaxLength = config.LocationColumnWidth
	}
	if rules.StatusSweep == "" {
		rules.StatusSweep = config.SweepAll
	}

	s := &InventoryService{
		store:     store,
		rules:     rules,
		clock:     ClockFunc(time.Now),
		location:  time.Local,
		publisher: publisher,
		metrics:   rec,
		logger:    log,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ledgerClock = NewLedgerClock(s.clock)
	return s
}

// InboundInput describes received stock
type InboundInput struct {
	Name          string
	BatchNumber   string
	Specification string
	ExpiryDate    string // YYYY-MM-DD
	Quantity      int
	Location      string
}

// OperationResult is the committed state after a stock operation
type OperationResult struct {
	Batch   *repository.Batch       `json:"batch"`
	Entry   *repository.LedgerEntry `json:"entry"`
	Created bool                    `json:"created"`

	previous repository.Status
}

// Inbound receives stock. Stock matching an existing batch's identity is added to it.
func (s *InventoryService) Inbound(ctx context.Context, in InboundInput) (*OperationResult, error) {
	start := time.Now()
	res, err := s.inbound(ctx, in)
	return s.complete(ctx, repository.KindInbound, start, res, err)
}

func (s *InventoryService) inbound(ctx context.Context, in InboundInput) (*OperationResult, error) {
	details := map[string]string{}
	s.checkText(ctx, details, "name", in.Name, maxNameLength)
	s.checkText(ctx, details, "batch_number", in.BatchNumber, maxBatchNumberLength)
	s.checkText(ctx, details, "specification", in.Specification, maxSpecificationLength)
	s.checkText(ctx, details, "location", in.Location, s.rules.LocationMaxLength)

	var expiry repository.Date
	if strings.TrimSpace(in.ExpiryDate) == "" {
		details["expiry_date"] = i18n.TFromContext(ctx, "validation.required")
	} else if d, err := repository.ParseDate(in.ExpiryDate); err != nil {
		details["expiry_date"] = i18n.TFromContext(ctx, "validation.date")
	} else {
		expiry = d
	}
	if in.Quantity <= 0 {
		details["quantity"] = i18n.TFromContext(ctx, "validation.gt", map[string]string{"param": "0"})
	}
	if len(details) > 0 {
		return nil, errors.Validation(details)
	}

	today := s.today()
	received := s.clock.Now()
	batch := &repository.Batch{
		ID:            uuid.New().String(),
		Name:          in.Name,
		BatchNumber:   in.BatchNumber,
		Specification: in.Specification,
		ExpiryDate:    expiry,
		Location:      in.Location,
		Quantity:      in.Quantity,
		CreatedAt:     received,
		UpdatedAt:     received,
	}
	batch.Status = DeriveStatus(expiry, today, in.Quantity, repository.StatusNormal, s.rules.ExpiryWarningDays)

	var res *OperationResult
	err := s.store.Run(ctx, func(batches repository.BatchStore, ledger repository.LedgerStore) error {
		created, err := batches.UpsertInbound(ctx, batch)
		if err != nil {
			return err
		}

		// The upsert holds the row lock until commit, so the ledger time is taken under it
		stored, err := batches.GetByID(ctx, batch.ID)
		if err != nil {
			return err
		}
		now := s.ledgerClock.Now()

		previous := stored.Status
		stored.Status = DeriveStatus(stored.ExpiryDate, today, stored.Quantity, stored.Status, s.rules.ExpiryWarningDays)
		stored.UpdatedAt = now
		if err := batches.Update(ctx, stored); err != nil {
			return err
		}

		detail := fmt.Sprintf("received %d units at %s", in.Quantity, in.Location)
		if !created {
			detail = fmt.Sprintf("received %d units at %s, %d on hand", in.Quantity, in.Location, stored.Quantity)
		}
		entry := &repository.LedgerEntry{
			Kind:       repository.KindInbound,
			BatchID:    stored.ID,
			Quantity:   in.Quantity,
			Detail:     detail,
			OccurredAt: now,
		}
		if err := ledger.Append(ctx, entry); err != nil {
			return err
		}

		res = &OperationResult{Batch: stored, Entry: entry, Created: created, previous: previous}
		return nil
	})
	if err != nil {
		return nil, storageError(err)
	}
	return res, nil
}

// Outbound removes quantity units from a batch. It never takes a batch below zero.
func (s *InventoryService) Outbound(ctx context.Context, batchID string, quantity int) (*OperationResult, error) {
	start := time.Now()
	res, err := s.outbound(ctx, batchID, quantity)
	return s.complete(ctx, repository.KindOutbound, start, res, err)
}

func (s *InventoryService) outbound(ctx context.Context, batchID string, quantity int) (*OperationResult, error) {
	details := map[string]string{}
	if strings.TrimSpace(batchID) == "" {
		details["batch_id"] = i18n.TFromContext(ctx, "validation.required")
	}
	if quantity <= 0 {
		details["quantity"] = i18n.TFromContext(ctx, "validation.gt", map[string]string{"param": "0"})
	}
	if len(details) > 0 {
		return nil, errors.Validation(details)
	}

	return s.mutate(ctx, batchID, func(b *repository.Batch, today repository.Date) (*repository.LedgerEntry, error) {
		if b.Quantity < quantity {
			return nil, errors.PreconditionFailed("errors.insufficient_stock", map[string]string{
				"available": strconv.Itoa(b.Quantity),
				"requested": strconv.Itoa(quantity),
			})
		}

		b.Quantity -= quantity
		b.Status = DeriveStatus(b.ExpiryDate, today, b.Quantity, b.Status, s.rules.ExpiryWarningDays)

		return &repository.LedgerEntry{
			Kind:     repository.KindOutbound,
			Quantity: quantity,
			Detail:   fmt.Sprintf("dispatched %d units from %s, %d remaining", quantity, b.Location, b.Quantity),
		}, nil
	}, nil)
}

// Transfer moves a batch to another storage location
func (s *InventoryService) Transfer(ctx context.Context, batchID, newLocation string) (*OperationResult, error) {
	start := time.Now()
	res, err := s.transfer(ctx, batchID, newLocation)
	return s.complete(ctx, repository.KindTransfer, start, res, err)
}

func (s *InventoryService) transfer(ctx context.Context, batchID, newLocation string) (*OperationResult, error) {
	details := map[string]string{}
	if strings.TrimSpace(batchID) == "" {
		details["batch_id"] = i18n.TFromContext(ctx, "validation.required")
	}
	s.checkText(ctx, details, "new_location", newLocation, s.rules.LocationMaxLength)
	if len(details) > 0 {
		return nil, errors.Validation(details)
	}

	return s.mutate(ctx, batchID, func(b *repository.Batch, _ repository.Date) (*repository.LedgerEntry, error) {
		old := b.Location
		b.Location = newLocation
		return &repository.LedgerEntry{
			Kind:     repository.KindTransfer,
			Quantity: 0,
			Detail:   fmt.Sprintf("moved from %s to %s", old, newLocation),
		}, nil
	}, func(ctx context.Context, batches repository.BatchStore, b *repository.Batch) error {
		// Two batches may not share an identity, so the target must not hold this lot already
		identity := b.Identity()
		identity.Location = newLocation
		existing, err := batches.FindByIdentity(ctx, identity)
		switch {
		case err == nil && existing.ID != b.ID:
			return locationTaken(newLocation)
		case err != nil && !errors.Is(err, errors.ErrNotFound):
			return err
		}
		return nil
	})
}

func locationTaken(location string) error {
	return errors.PreconditionFailed("errors.location_taken", map[string]string{"location": location})
}

// Quarantine isolates an expired or expiring batch. Quarantine holds until disposal.
func (s *InventoryService) Quarantine(ctx context.Context, batchID string) (*OperationResult, error) {
	start := time.Now()
	res, err := s.quarantine(ctx, batchID)
	return s.complete(ctx, repository.KindQuarantine, start, res, err)
}

func (s *InventoryService) quarantine(ctx context.Context, batchID string) (*OperationResult, error) {
	if strings.TrimSpace(batchID) == "" {
		return nil, errors.Validation(map[string]string{"batch_id": i18n.TFromContext(ctx, "validation.required")})
	}

	return s.mutate(ctx, batchID, func(b *repository.Batch, today repository.Date) (*repository.LedgerEntry, error) {
		current := DeriveStatus(b.ExpiryDate, today, b.Quantity, b.Status, s.rules.ExpiryWarningDays)
		if current != repository.StatusExpired && current != repository.StatusExpiringSoon {
			return nil, errors.PreconditionFailed("errors.not_eligible_for_quarantine", map[string]string{"status": string(current)})
		}

		b.Status = repository.StatusQuarantined
		return &repository.LedgerEntry{
			Kind:     repository.KindQuarantine,
			Quantity: b.Quantity,
			Detail:   fmt.Sprintf("quarantined %d units (%s) at %s", b.Quantity, current, b.Location),
		}, nil
	}, nil)
}

// Dispose destroys a quarantined batch's stock, leaving it expired at zero
func (s *InventoryService) Dispose(ctx context.Context, batchID string) (*OperationResult, error) {
	start := time.Now()
	res, err := s.dispose(ctx, batchID)
	return s.complete(ctx, repository.KindDispose, start, res, err)
}

func (s *InventoryService) dispose(ctx context.Context, batchID string) (*OperationResult, error) {
	if strings.TrimSpace(batchID) == "" {
		return nil, errors.Validation(map[string]string{"batch_id": i18n.TFromContext(ctx, "validation.required")})
	}

	return s.mutate(ctx, batchID, func(b *repository.Batch, _ repository.Date) (*repository.LedgerEntry, error) {
		if b.Status != repository.StatusQuarantined {
			return nil, errors.PreconditionFailed("errors.not_quarantined", nil)
		}

		disposed := b.Quantity
		b.Quantity = 0
		b.Status = repository.StatusExpired
		return &repository.LedgerEntry{
			Kind:     repository.KindDispose,
			Quantity: disposed,
			Detail:   fmt.Sprintf("disposed %d units", disposed),
		}, nil
	}, nil)
}

// mutation changes a locked batch in place and describes the change for the ledger
type mutation func(b *repository.Batch, today repository.Date) (*repository.LedgerEntry, error)

// precheck inspects other rows before the locked batch is written
type precheck func(ctx context.Context, batches repository.BatchStore, b *repository.Batch) error

// mutate runs the read-modify-write of one batch and its ledger entry in a single transaction
func (s *InventoryService) mutate(ctx context.Context, batchID string, apply mutation, check precheck) (*OperationResult, error) {
	if _, err := uuid.Parse(batchID); err != nil {
		return nil, errors.NotFoundWithKey("batch")
	}

	today := s.today()
	var res *OperationResult
	err := s.store.Run(ctx, func(batches repository.BatchStore, ledger repository.LedgerStore) error {
		b, err := batches.GetForUpdate(ctx, batchID)
		if err != nil {
			return err
		}

		previous := b.Status
		entry, err := apply(b, today)
		if err != nil {
			return err
		}
		if check != nil {
			if err := check(ctx, batches, b); err != nil {
				return err
			}
		}

		now := s.ledgerClock.Now()
		b.UpdatedAt = now
		if err := batches.Update(ctx, b); err != nil {
			// location is the only identity column an update can change
			if database.IsUniqueViolation(err) {
				return locationTaken(b.Location)
			}
			return err
		}

		entry.BatchID = b.ID
		entry.OccurredAt = now
		if err := ledger.Append(ctx, entry); err != nil {
			return err
		}

		res = &OperationResult{Batch: b, Entry: entry, previous: previous}
		return nil
	})
	if err != nil {
		return nil, storageError(err)
	}
	return res, nil
}

// complete runs the post-commit steps of an operation. Their failures are logged only.
func (s *InventoryService) complete(ctx context.Context, kind repository.OperationKind, start time.Time, res *OperationResult, err error) (*OperationResult, error) {
	if err != nil {
		s.metrics.Observe(ctx, string(kind), false, time.Since(start))
		if !errors.IsServerError(err) {
			s.logger.Debug().Err(err).Str("operation", string(kind)).Msg("operation rejected")
		} else {
			s.logger.Error().Err(err).Str("operation", string(kind)).Msg("operation failed")
		}
		return nil, err
	}

	s.publisher.PublishLedgerAppended(ctx, res.Entry, res.Batch)
	if res.previous != res.Batch.Status && !res.Created {
		s.publisher.PublishStatusChanged(ctx, res.Batch, res.previous)
	}

	if (kind == repository.KindInbound || kind == repository.KindOutbound) && s.rules.StatusSweep == config.SweepAll {
		if _, err := s.RefreshStatuses(ctx); err != nil {
			s.logger.Error().Err(err).Str("operation", string(kind)).Msg("status sweep after operation failed")
		}
	}

	s.metrics.Observe(ctx, string(kind), true, time.Since(start))
	s.logger.WithBatchID(res.Batch.ID).Info().
		Str("operation", string(kind)).
		Int64("entry_id", res.Entry.ID).
		Int("quantity", res.Entry.Quantity).
		Int("on_hand", res.Batch.Quantity).
		Str("status", string(res.Batch.Status)).
		Msg("stock operation recorded")
	return res, nil
}

// RefreshStatuses re-derives the status of every tracked batch and stores the changes.
// It returns the number of batches whose status changed.
func (s *InventoryService) RefreshStatuses(ctx context.Context) (int, error) {
	batches, err := s.store.Batches().ListTracked(ctx)
	if err != nil {
		return 0, err
	}
	return s.refresh(ctx, batches)
}

// refresh re-derives the given batches, updating them in place
func (s *InventoryService) refresh(ctx context.Context, batches []*repository.Batch) (int, error) {
	today := s.today()
	store := s.store.Batches()

	changed := 0
	for _, b := range batches {
		derived := DeriveStatus(b.ExpiryDate, today, b.Quantity, b.Status, s.rules.ExpiryWarningDays)
		if derived == b.Status {
			continue
		}

		now := s.clock.Now()
		ok, err := store.SetDerivedStatus(ctx, b.ID, derived, now)
		if err != nil {
			s.metrics.StatusUpdates(changed)
			return changed, err
		}
		if !ok {
			continue
		}

		old := b.Status
		b.Status = derived
		b.UpdatedAt = now
		changed++
		s.publisher.PublishStatusChanged(ctx, b, old)
	}

	s.metrics.StatusUpdates(changed)
	if changed > 0 {
		s.logger.Debug().Int("changed", changed).Int("checked", len(batches)).Msg("batch statuses refreshed")
	}
	return changed, nil
}

func (s *InventoryService) sweepAll() bool {
	return s.rules.StatusSweep == config.SweepAll
}

func (s *InventoryService) today() repository.Date {
	return repository.DateOf(s.clock.Now().In(s.location))
}

// checkText requires a non-blank value of at most max runes
func (s *InventoryService) checkText(ctx context.Context, details map[string]string, field, value string, max int) {
	switch {
	case strings.TrimSpace(value) == "":
		details[field] = i18n.TFromContext(ctx, "validation.required")
	case utf8.RuneCountInString(value) > max:
		details[field] = i18n.TFromContext(ctx, "validation.max", map[string]string{"param": strconv.Itoa(max)})
	}
}

// storageError passes AppErrors through and wraps anything else as a storage failure
func storageError(err error) error {
	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if mapped := database.MapError(err); mapped != nil {
		return mapped
	}
	return errors.Storage(err)
}

package service

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/medflow/drug-warehouse/internal/inventory/events"
	"github.com/medflow/drug-warehouse/internal/inventory/repository"
	"github.com/medflow/drug-warehouse/pkg/errors"
	"github.com/medflow/drug-warehouse/pkg/i18n"
	"github.com/medflow/drug-warehouse/pkg/logger"
	"github.com/medflow/drug-warehouse/pkg/metrics"
	"github.com/shopspring/decimal"
)

const maxNoteLength = 64

var (
	minHumidity = decimal.Zero
	maxHumidity = decimal.NewFromInt(100)
)

// EnvironmentService records warehouse temperature and humidity samples
type EnvironmentService struct {
	readings  repository.EnvironmentStore
	clock     Clock
	publisher *events.InventoryEventPublisher
	metrics   *metrics.Recorder
	logger    *logger.Logger
}

// NewEnvironmentService creates a new environment service
func NewEnvironmentService(readings repository.EnvironmentStore, publisher *events.InventoryEventPublisher, rec *metrics.Recorder, log *logger.Logger) *EnvironmentService {
	return &EnvironmentService{
		readings:  readings,
		clock:     ClockFunc(time.Now),
		publisher: publisher,
		metrics:   rec,
		logger:    log,
	}
}

// Record stores a reading taken now
func (s *EnvironmentService) Record(ctx context.Context, temperature, humidity decimal.Decimal, note string) (*repository.EnvironmentReading, error) {
	start := time.Now()

	details := map[string]string{}
	if humidity.LessThan(minHumidity) {
		details["humidity"] = i18n.TFromContext(ctx, "validation.gte", map[string]string{"param": "0"})
	} else if humidity.GreaterThan(maxHumidity) {
		details["humidity"] = i18n.TFromContext(ctx, "validation.lte", map[string]string{"param": "100"})
	}
	if utf8.RuneCountInString(note) > maxNoteLength {
		details["note"] = i18n.TFromContext(ctx, "validation.max", map[string]string{"param": "64"})
	}
	if len(details) > 0 {
		s.metrics.Observe(ctx, "environment_sync", false, time.Since(start))
		return nil, errors.Validation(details)
	}

	reading := &repository.EnvironmentReading{
		Temperature: temperature,
		Humidity:    humidity,
		Note:        note,
		RecordedAt:  s.clock.Now(),
	}
	if err := s.readings.Append(ctx, reading); err != nil {
		s.metrics.Observe(ctx, "environment_sync", false, time.Since(start))
		s.logger.Error().Err(err).Msg("failed to store environment reading")
		return nil, storageError(err)
	}

	s.metrics.Observe(ctx, "environment_sync", true, time.Since(start))
	s.publisher.PublishEnvironmentRecorded(ctx, reading)
	return reading, nil
}

// Latest returns the most recent reading
func (s *EnvironmentService) Latest(ctx context.Context) (*repository.EnvironmentReading, error) {
	reading, err := s.readings.Latest(ctx)
	if err != nil {
		return nil, storageError(err)
	}
	return reading, nil
}

// List returns readings in a time range. A zero limit uses DefaultOperationLimit.
func (s *EnvironmentService) List(ctx context.Context, filter repository.ReadingFilter) ([]*repository.EnvironmentReading, error) {
	if filter.Limit < 0 || filter.Limit > MaxOperationLimit {
		return nil, errors.Validation(map[string]string{
			"limit": i18n.TFromContext(ctx, "validation.lte", map[string]string{"param": "1000"}),
		})
	}
	if filter.Limit == 0 {
		filter.Limit = DefaultOperationLimit
	}

	readings, err := s.readings.List(ctx, filter)
	if err != nil {
		return nil, storageError(err)
	}
	return readings, nil
}

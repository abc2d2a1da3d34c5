package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/medflow/drug-warehouse/pkg/errors"
)

const readingColumns = `id, temperature, humidity, note, recorded_at`

// EnvironmentRepository stores temperature and humidity readings
type EnvironmentRepository struct {
	db sqlx.ExtContext
}

// NewEnvironmentRepository creates a new environment repository
func NewEnvironmentRepository(db sqlx.ExtContext) *EnvironmentRepository {
	return &EnvironmentRepository{db: db}
}

// Append stores a reading and sets its ID
func (r *EnvironmentRepository) Append(ctx context.Context, reading *EnvironmentReading) error {
	query := `
		INSERT INTO environment_readings (temperature, humidity, note, recorded_at)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`

	err := r.db.QueryRowxContext(ctx, r.db.Rebind(query),
		reading.Temperature.String(), reading.Humidity.String(), reading.Note, reading.RecordedAt.UTC(),
	).Scan(&reading.ID)
	if err != nil {
		return fmt.Errorf("append environment reading: %w", err)
	}
	return nil
}

// Latest returns the most recent reading
func (r *EnvironmentRepository) Latest(ctx context.Context) (*EnvironmentReading, error) {
	query := `SELECT ` + readingColumns + ` FROM environment_readings ORDER BY recorded_at DESC, id DESC LIMIT 1`

	var reading EnvironmentReading
	if err := sqlx.GetContext(ctx, r.db, &reading, query); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFoundMessage("errors.no_environment_data")
		}
		return nil, fmt.Errorf("latest environment reading: %w", err)
	}
	return &reading, nil
}

// List returns readings in the filter's range, oldest first
func (r *EnvironmentRepository) List(ctx context.Context, filter ReadingFilter) ([]*EnvironmentReading, error) {
	var conds []string
	var args []interface{}
	if !filter.From.IsZero() {
		conds = append(conds, "recorded_at >= ?")
		args = append(args, filter.From.UTC())
	}
	if !filter.To.IsZero() {
		conds = append(conds, "recorded_at < ?")
		args = append(args, filter.To.UTC())
	}

	query := `SELECT ` + readingColumns + ` FROM environment_readings`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY recorded_at, id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	readings := []*EnvironmentReading{}
	if err := sqlx.SelectContext(ctx, r.db, &readings, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list environment readings: %w", err)
	}
	return readings, nil
}

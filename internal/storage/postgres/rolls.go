package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cory-johannsen/polydie/internal/game/dice"
)

// ErrInvalidLimit is returned when a listing limit is not positive.
var ErrInvalidLimit = errors.New("limit must be > 0")

// RollRecord is one persisted roll.
type RollRecord struct {
	ID        uuid.UUID
	Notation  string
	Faces     int
	Values    []int
	Total     int
	CreatedAt time.Time
}

// RollRepository persists roll history.
type RollRepository struct {
	db *pgxpool.Pool
}

// NewRollRepository creates a RollRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewRollRepository(db *pgxpool.Pool) *RollRepository {
	return &RollRepository{db: db}
}

// Record inserts result as a new history row.
//
// Precondition: result.Notation must be non-empty.
// Postcondition: Returns the stored RollRecord with ID and CreatedAt set.
func (r *RollRepository) Record(ctx context.Context, result dice.RollResult) (RollRecord, error) {
	if result.Notation == "" {
		return RollRecord{}, errors.New("recording roll: notation must not be empty")
	}

	id := uuid.New()
	values := make([]int64, len(result.Values))
	for i, v := range result.Values {
		values[i] = int64(v)
	}

	var createdAt time.Time
	err := r.db.QueryRow(ctx,
		`INSERT INTO roll_history (id, notation, faces, roll_values, total)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		id.String(), result.Notation, result.Faces, values, result.Total(),
	).Scan(&createdAt)
	if err != nil {
		return RollRecord{}, fmt.Errorf("inserting roll: %w", err)
	}

	return RollRecord{
		ID:        id,
		Notation:  result.Notation,
		Faces:     result.Faces,
		Values:    append([]int(nil), result.Values...),
		Total:     result.Total(),
		CreatedAt: createdAt,
	}, nil
}

// ErrRollNotFound is returned when a roll lookup yields no results.
var ErrRollNotFound = errors.New("roll not found")

// Get returns the record stored under id.
//
// Postcondition: Returns the RollRecord or ErrRollNotFound.
func (r *RollRepository) Get(ctx context.Context, id uuid.UUID) (RollRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id::text, notation, faces, roll_values, total, created_at
		FROM roll_history WHERE id = $1`,
		id.String(),
	)
	if err != nil {
		return RollRecord{}, fmt.Errorf("querying roll: %w", err)
	}
	records, err := scanRecords(rows, 1)
	if err != nil {
		return RollRecord{}, err
	}
	if len(records) == 0 {
		return RollRecord{}, ErrRollNotFound
	}
	return records[0], nil
}

// Recent returns up to limit records, newest first.
//
// Precondition: limit > 0.
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *RollRepository) Recent(ctx context.Context, limit int) ([]RollRecord, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	rows, err := r.db.Query(ctx, `
		SELECT id::text, notation, faces, roll_values, total, created_at
		FROM roll_history ORDER BY created_at DESC, id DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing rolls: %w", err)
	}
	return scanRecords(rows, limit)
}

func scanRecords(rows pgx.Rows, capHint int) ([]RollRecord, error) {
	defer rows.Close()

	records := make([]RollRecord, 0, capHint)
	for rows.Next() {
		var (
			rec    RollRecord
			rawID  string
			values []int64
		)
		if err := rows.Scan(&rawID, &rec.Notation, &rec.Faces, &values, &rec.Total, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning roll row: %w", err)
		}
		id, err := uuid.Parse(rawID)
		if err != nil {
			return nil, fmt.Errorf("parsing roll id %q: %w", rawID, err)
		}
		rec.ID = id
		rec.Values = make([]int, len(values))
		for i, v := range values {
			rec.Values[i] = int(v)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Recorder adapts Record into a dice.Recorder. Persistence failures are
// logged at warn level and never surface to the roller.
//
// Precondition: logger must be non-nil.
func (r *RollRepository) Recorder(ctx context.Context, logger *zap.Logger) dice.Recorder {
	return func(result dice.RollResult) {
		if _, err := r.Record(ctx, result); err != nil {
			logger.Warn("recording roll history failed",
				zap.String("notation", result.Notation),
				zap.Error(err),
			)
		}
	}
}

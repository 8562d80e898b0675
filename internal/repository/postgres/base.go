package postgres

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/jwalitptl/booking-api/internal/repository"
)

// Constraint names from migrations/001_init.sql.
const (
	constraintRequestID     = "appointments_request_id_key"
	constraintBookingID     = "appointments_booking_id_key"
	constraintConfirmedSlot = "appointments_confirmed_slot_idx"

	uniqueViolation = "23505"
)

// BaseRepository provides common functionality for all repositories
type BaseRepository struct {
	db *sqlx.DB
}

// NewBaseRepository creates a new base repository
func NewBaseRepository(db *sqlx.DB) BaseRepository {
	return BaseRepository{db: db}
}

// GetDB returns the database instance
func (r *BaseRepository) GetDB() *sqlx.DB {
	return r.db
}

// translate maps driver errors onto repository sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		switch pqErr.Constraint {
		case constraintRequestID:
			return repository.ErrDuplicateRequest
		case constraintBookingID:
			return repository.ErrDuplicateBookingID
		case constraintConfirmedSlot:
			return repository.ErrSlotTaken
		}
	}
	return err
}

// expectOne turns a zero-row conditional update into ErrStaleState.
func expectOne(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return repository.ErrStaleState
	}
	return nil
}

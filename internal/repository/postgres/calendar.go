package postgres

import (
	"context"
	"fmt"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
	"github.com/jwalitptl/booking-api/pkg/civildate"
)

const dayColumns = `day, morning, afternoon, night, available, updated_at`

type calendarRepository struct {
	BaseRepository
}

func NewCalendarRepository(base BaseRepository) repository.CalendarRepository {
	return &calendarRepository{base}
}

// slotColumn whitelists the column a slot maps to; queries interpolate it.
func slotColumn(slot model.Slot) (string, error) {
	switch slot {
	case model.SlotMorning:
		return "morning", nil
	case model.SlotAfternoon:
		return "afternoon", nil
	case model.SlotNight:
		return "night", nil
	}
	return "", fmt.Errorf("unknown slot %q", slot)
}

func (r *calendarRepository) GetDay(ctx context.Context, date civildate.Date) (*model.AvailabilityDay, error) {
	query := `SELECT ` + dayColumns + ` FROM availability_days WHERE day = $1`

	var day model.AvailabilityDay
	if err := r.db.GetContext(ctx, &day, query, date); err != nil {
		return nil, translate(err)
	}
	return &day, nil
}

func (r *calendarRepository) ListDays(ctx context.Context, from, to civildate.Date) ([]*model.AvailabilityDay, error) {
	query := `SELECT ` + dayColumns + ` FROM availability_days WHERE day BETWEEN $1 AND $2 ORDER BY day`

	days := make([]*model.AvailabilityDay, 0)
	if err := r.db.SelectContext(ctx, &days, query, from, to); err != nil {
		return nil, fmt.Errorf("failed to list availability days: %w", err)
	}
	return days, nil
}

func (r *calendarRepository) ListOfferable(ctx context.Context, from, to civildate.Date) ([]*model.AvailabilityDay, error) {
	query := `
		SELECT ` + dayColumns + `
		FROM availability_days
		WHERE day BETWEEN $1 AND $2
		AND available
		AND (morning OR afternoon OR night)
		ORDER BY day
	`

	days := make([]*model.AvailabilityDay, 0)
	if err := r.db.SelectContext(ctx, &days, query, from, to); err != nil {
		return nil, fmt.Errorf("failed to list available days: %w", err)
	}
	return days, nil
}

// UpsertDay closes held slots inside the statement itself, so a booking
// persisted before it cannot be reopened by the operator's payload.
func (r *calendarRepository) UpsertDay(ctx context.Context, day *model.AvailabilityDay) error {
	query := `
		WITH held AS (
			SELECT time_slot FROM appointments
			WHERE appointment_date = $1 AND status = 'CONFIRMED'
		)
		INSERT INTO availability_days (day, morning, afternoon, night, available, updated_at)
		VALUES (
			$1,
			$2 AND NOT EXISTS (SELECT 1 FROM held WHERE time_slot = 'MORNING'),
			$3 AND NOT EXISTS (SELECT 1 FROM held WHERE time_slot = 'AFTERNOON'),
			$4 AND NOT EXISTS (SELECT 1 FROM held WHERE time_slot = 'NIGHT'),
			$5,
			NOW()
		)
		ON CONFLICT (day) DO UPDATE SET
			morning = EXCLUDED.morning,
			afternoon = EXCLUDED.afternoon,
			night = EXCLUDED.night,
			available = EXCLUDED.available,
			updated_at = EXCLUDED.updated_at
		RETURNING morning, afternoon, night, updated_at
	`
	err := r.db.QueryRowxContext(ctx, query,
		day.Date,
		day.Morning,
		day.Afternoon,
		day.Night,
		day.Available,
	).Scan(&day.Morning, &day.Afternoon, &day.Night, &day.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert availability day: %w", err)
	}
	return nil
}

// ClaimSlot is a single conditional UPDATE; concurrent callers race on the
// row lock and only one sees a matching row.
func (r *calendarRepository) ClaimSlot(ctx context.Context, date civildate.Date, slot model.Slot) (bool, error) {
	col, err := slotColumn(slot)
	if err != nil {
		return false, err
	}
	query := fmt.Sprintf(
		`UPDATE availability_days SET %[1]s = FALSE, updated_at = NOW() WHERE day = $1 AND available AND %[1]s`,
		col,
	)

	result, err := r.db.ExecContext(ctx, query, date)
	if err != nil {
		return false, fmt.Errorf("failed to claim slot: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to claim slot: %w", err)
	}
	return rows == 1, nil
}

func (r *calendarRepository) ReleaseSlot(ctx context.Context, date civildate.Date, slot model.Slot) error {
	col, err := slotColumn(slot)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
		UPDATE availability_days SET %[1]s = TRUE, updated_at = NOW()
		WHERE day = $1
		AND available
		AND NOT EXISTS (
			SELECT 1 FROM appointments
			WHERE appointment_date = $1 AND time_slot = $2 AND status = 'CONFIRMED'
		)
	`, col)

	if _, err := r.db.ExecContext(ctx, query, date, string(slot)); err != nil {
		return fmt.Errorf("failed to release slot: %w", err)
	}
	return nil
}

func (r *calendarRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

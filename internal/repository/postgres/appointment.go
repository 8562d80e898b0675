package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
	"github.com/jwalitptl/booking-api/pkg/civildate"
)

const appointmentColumns = `
	id, booking_id, request_id, payment_order_id,
	client_name, email, phone, address,
	appointment_date, time_slot, service, notes, status,
	charged_amount, application_fee, paypal_fee,
	cancel_reason, canceled_at, refund_amount,
	created_at, updated_at`

type appointmentRepository struct {
	BaseRepository
}

func NewAppointmentRepository(base BaseRepository) repository.AppointmentRepository {
	return &appointmentRepository{base}
}

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, booking_id, request_id, payment_order_id,
			client_name, email, phone, address,
			appointment_date, time_slot, service, notes, status,
			charged_amount, application_fee, paypal_fee,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	if appointment.ID == uuid.Nil {
		appointment.ID = uuid.New()
	}
	appointment.CreatedAt = time.Now()
	appointment.UpdatedAt = appointment.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		appointment.ID,
		appointment.BookingID,
		appointment.RequestID,
		appointment.PaymentOrderID,
		appointment.ClientName,
		appointment.Email,
		appointment.Phone,
		appointment.Address,
		appointment.AppointmentDate,
		appointment.Time,
		appointment.Service,
		appointment.Notes,
		appointment.Status,
		appointment.ChargedAmount,
		appointment.ApplicationFee,
		appointment.PaypalFee,
		appointment.CreatedAt,
		appointment.UpdatedAt,
	)
	if err != nil {
		if mapped := translate(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) GetByBookingID(ctx context.Context, bookingID string) (*model.Appointment, error) {
	return r.getBy(ctx, "booking_id", bookingID)
}

func (r *appointmentRepository) GetByRequestID(ctx context.Context, requestID string) (*model.Appointment, error) {
	return r.getBy(ctx, "request_id", requestID)
}

func (r *appointmentRepository) getBy(ctx context.Context, column, value string) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE ` + column + ` = $1`

	var appointment model.Appointment
	if err := r.db.GetContext(ctx, &appointment, query, value); err != nil {
		if mapped := translate(err); mapped == repository.ErrNotFound {
			return nil, mapped
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	var (
		where []string
		args  []interface{}
	)
	if filters != nil {
		if !filters.From.IsZero() {
			args = append(args, filters.From)
			where = append(where, fmt.Sprintf("appointment_date >= $%d", len(args)))
		}
		if !filters.To.IsZero() {
			args = append(args, filters.To)
			where = append(where, fmt.Sprintf("appointment_date <= $%d", len(args)))
		}
		if filters.Status != "" {
			args = append(args, filters.Status)
			where = append(where, fmt.Sprintf("status = $%d", len(args)))
		}
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointments`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += ` ORDER BY appointment_date, CASE time_slot WHEN 'MORNING' THEN 0 WHEN 'AFTERNOON' THEN 1 ELSE 2 END`
	if filters != nil && filters.Limit > 0 {
		args = append(args, filters.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	appointments := make([]*model.Appointment, 0)
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListConfirmedOn(ctx context.Context, date civildate.Date) ([]*model.Appointment, error) {
	return r.List(ctx, &model.AppointmentFilters{From: date, To: date, Status: model.AppointmentStatusConfirmed})
}

func (r *appointmentRepository) Reschedule(ctx context.Context, id uuid.UUID, from, to model.SlotRef) error {
	query := `
		UPDATE appointments
		SET appointment_date = $1, time_slot = $2, updated_at = NOW()
		WHERE id = $3 AND status = 'CONFIRMED' AND appointment_date = $4 AND time_slot = $5
	`
	result, err := r.db.ExecContext(ctx, query, to.Date, to.Slot, id, from.Date, from.Slot)
	if err != nil {
		if mapped := translate(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("failed to reschedule appointment: %w", err)
	}
	return expectOne(result)
}

func (r *appointmentRepository) Cancel(ctx context.Context, id uuid.UUID, reason string, canceledAt time.Time, refund decimal.Decimal) error {
	query := `
		UPDATE appointments
		SET status = 'CANCELED', cancel_reason = $1, canceled_at = $2, refund_amount = $3, updated_at = NOW()
		WHERE id = $4 AND status = 'CONFIRMED'
	`
	result, err := r.db.ExecContext(ctx, query, reason, canceledAt, refund, id)
	if err != nil {
		return fmt.Errorf("failed to cancel appointment: %w", err)
	}
	return expectOne(result)
}

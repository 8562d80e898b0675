package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
)

// Emitter records lifecycle events for asynchronous delivery.
type Emitter interface {
	Emit(ctx context.Context, eventType, aggregateID string, payload interface{}) error
}

type EventService struct {
	outboxRepo repository.OutboxRepository
}

func NewEventService(outboxRepo repository.OutboxRepository) *EventService {
	return &EventService{outboxRepo: outboxRepo}
}

// Emit writes the event to the outbox; the worker publishes it.
func (s *EventService) Emit(ctx context.Context, eventType, aggregateID string, payload interface{}) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	event := &model.OutboxEvent{
		EventType:   eventType,
		AggregateID: aggregateID,
		Payload:     payloadJSON,
	}

	if err := s.outboxRepo.Create(ctx, event); err != nil {
		return fmt.Errorf("failed to create outbox event: %w", err)
	}
	return nil
}

// BookingEvent is the payload of booking.confirmed, appointment.rescheduled
// and appointment.canceled.
type BookingEvent struct {
	BookingID      string                  `json:"booking_id"`
	Email          string                  `json:"email"`
	ClientName     string                  `json:"client_name"`
	Service        model.ServiceType       `json:"service"`
	Date           string                  `json:"date"`
	Slot           model.Slot              `json:"slot"`
	PreviousDate   string                  `json:"previous_date,omitempty"`
	PreviousSlot   model.Slot              `json:"previous_slot,omitempty"`
	PaymentOrderID string                  `json:"payment_order_id,omitempty"`
	Status         model.AppointmentStatus `json:"status"`
	Refund         *model.RefundView       `json:"refund,omitempty"`
	Reason         string                  `json:"reason,omitempty"`
}

// NewBookingEvent fills the fields every lifecycle event shares.
func NewBookingEvent(apt *model.Appointment) BookingEvent {
	return BookingEvent{
		BookingID:      apt.BookingID,
		Email:          apt.Email,
		ClientName:     apt.ClientName,
		Service:        apt.Service,
		Date:           apt.AppointmentDate.String(),
		Slot:           apt.Time,
		PaymentOrderID: apt.PaymentOrderID,
		Status:         apt.Status,
	}
}

package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/repository"
	"github.com/jwalitptl/booking-api/internal/service/calendar"
	"github.com/jwalitptl/booking-api/pkg/civildate"
	"github.com/jwalitptl/booking-api/pkg/logger"
)

// SlotReleaseHandler finishes releases that failed inline. Delivery is
// at-least-once, so by the time an event arrives the slot may have been
// released and booked again; a slot a confirmed appointment holds is left
// claimed. The calendar store enforces the same rule in its release write.
type SlotReleaseHandler struct {
	calendar     *calendar.Service
	appointments repository.AppointmentRepository
	logger       *logger.Logger
}

func NewSlotReleaseHandler(cal *calendar.Service, appointments repository.AppointmentRepository, log *logger.Logger) *SlotReleaseHandler {
	return &SlotReleaseHandler{calendar: cal, appointments: appointments, logger: log}
}

func (h *SlotReleaseHandler) Handle(ctx context.Context, event *model.OutboxEvent) error {
	var payload model.SlotReleasePayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return fmt.Errorf("decode slot release payload: %w", err)
	}

	date, err := civildate.Parse(payload.Date)
	if err != nil {
		return fmt.Errorf("slot release payload: %w", err)
	}
	if !payload.Slot.Valid() {
		return fmt.Errorf("slot release payload: unknown slot %q", payload.Slot)
	}

	ref := model.SlotRef{Date: date, Slot: payload.Slot}
	held, err := h.appointments.ListConfirmedOn(ctx, date)
	if err != nil {
		return fmt.Errorf("slot release: %w", err)
	}
	for _, apt := range held {
		if apt.Time == ref.Slot {
			h.logger.Info("deferred slot release skipped, slot is booked again",
				"slot", ref.String(), "booking_id", payload.BookingID, "holder", apt.BookingID)
			return nil
		}
	}

	if err := h.calendar.Release(ctx, ref); err != nil {
		return err
	}

	h.logger.Info("deferred slot release completed",
		"slot", ref.String(), "booking_id", payload.BookingID, "reason", payload.Reason)
	return nil
}

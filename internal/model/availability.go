package model

import (
	"time"

	"github.com/jwalitptl/booking-api/pkg/civildate"
)

// AvailabilityDay is the operator-managed record for one civil date. A slot
// flag of true means the slot is open for booking.
type AvailabilityDay struct {
	Date      civildate.Date `db:"day" json:"date"`
	Morning   bool           `db:"morning" json:"morning"`
	Afternoon bool           `db:"afternoon" json:"afternoon"`
	Night     bool           `db:"night" json:"night"`
	Available bool           `db:"available" json:"available"`
	UpdatedAt time.Time      `db:"updated_at" json:"updated_at"`
}

func (d *AvailabilityDay) IsOpen(slot Slot) bool {
	switch slot {
	case SlotMorning:
		return d.Morning
	case SlotAfternoon:
		return d.Afternoon
	case SlotNight:
		return d.Night
	}
	return false
}

func (d *AvailabilityDay) SetSlot(slot Slot, open bool) {
	switch slot {
	case SlotMorning:
		d.Morning = open
	case SlotAfternoon:
		d.Afternoon = open
	case SlotNight:
		d.Night = open
	}
}

func (d *AvailabilityDay) HasOpenSlot() bool {
	return d.Morning || d.Afternoon || d.Night
}

// Offerable reports whether the day may be shown to customers, ignoring the
// "after today" rule which depends on the clock.
func (d *AvailabilityDay) Offerable() bool {
	return d.Available && d.HasOpenSlot()
}

// OpenSlots returns the open slots in display order.
func (d *AvailabilityDay) OpenSlots() []Slot {
	open := make([]Slot, 0, len(Slots))
	for _, s := range Slots {
		if d.IsOpen(s) {
			open = append(open, s)
		}
	}
	return open
}

// SetDayRequest is the operator's wholesale replacement for a day.
type SetDayRequest struct {
	Date      civildate.Date `json:"date" validate:"required,datekey"`
	Morning   bool           `json:"morning"`
	Afternoon bool           `json:"afternoon"`
	Night     bool           `json:"night"`
	// Available is the day's kill switch. Absent means open.
	Available *bool `json:"available,omitempty"`
}

func (r *SetDayRequest) IsAvailable() bool {
	return r.Available == nil || *r.Available
}

// SetDayResult echoes the stored day and the slots that stayed claimed
// because a confirmed appointment holds them.
type SetDayResult struct {
	Day         *AvailabilityDay `json:"day"`
	KeptClaimed []Slot           `json:"kept_claimed,omitempty"`
}

package model

import (
	"fmt"
	"strings"

	"github.com/jwalitptl/booking-api/pkg/civildate"
)

// Slot is one of the fixed time bands of a day.
type Slot string

const (
	SlotMorning   Slot = "MORNING"
	SlotAfternoon Slot = "AFTERNOON"
	SlotNight     Slot = "NIGHT"
)

// Slots lists the bands in display order.
var Slots = []Slot{SlotMorning, SlotAfternoon, SlotNight}

// ParseSlot accepts any casing.
func ParseSlot(s string) (Slot, error) {
	slot := Slot(strings.ToUpper(strings.TrimSpace(s)))
	if !slot.Valid() {
		return "", fmt.Errorf("unknown slot %q", s)
	}
	return slot, nil
}

func (s Slot) Valid() bool {
	switch s {
	case SlotMorning, SlotAfternoon, SlotNight:
		return true
	}
	return false
}

// SlotRef addresses a single claimable unit of the calendar.
type SlotRef struct {
	Date civildate.Date `json:"date"`
	Slot Slot           `json:"slot"`
}

func (r SlotRef) String() string {
	return r.Date.String() + "/" + string(r.Slot)
}

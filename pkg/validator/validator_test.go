package validator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-api/pkg/civildate"
)

type sample struct {
	BookingID string          `json:"booking_id" validate:"omitempty,bookingid"`
	RequestID string          `json:"request_id" validate:"required,requestid"`
	Date      civildate.Date  `json:"date" validate:"required,datekey"`
	Slot      string          `json:"slot" validate:"required,slot"`
	Service   string          `json:"service" validate:"required,servicetype"`
	Amount    decimal.Decimal `json:"amount" validate:"money"`
}

func valid() sample {
	return sample{
		BookingID: "BK-7Q2Z-K9P",
		RequestID: "0123456789abcdef01234567",
		Date:      civildate.MustParse("2026-04-01"),
		Slot:      "MORNING",
		Service:   "REPAIR",
		Amount:    decimal.RequireFromString("200.00"),
	}
}

func TestStructAcceptsValidInput(t *testing.T) {
	require.NoError(t, Struct(valid()))
}

func TestStructRejects(t *testing.T) {
	tests := []struct {
		name  string
		field string
		edit  func(*sample)
	}{
		{"malformed booking id", "booking_id", func(s *sample) { s.BookingID = "BK-123" }},
		{"uppercase request id", "request_id", func(s *sample) { s.RequestID = "0123456789ABCDEF01234567" }},
		{"short request id", "request_id", func(s *sample) { s.RequestID = "abc" }},
		{"zero date", "date", func(s *sample) { s.Date = civildate.Date{} }},
		{"unknown slot", "slot", func(s *sample) { s.Slot = "EVENING" }},
		{"unknown service", "service", func(s *sample) { s.Service = "CLEANING" }},
		{"negative amount", "amount", func(s *sample) { s.Amount = decimal.RequireFromString("-1") }},
		{"sub-cent amount", "amount", func(s *sample) { s.Amount = decimal.RequireFromString("1.005") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.edit(&s)
			err := Struct(s)
			require.Error(t, err)
			assert.Contains(t, Messages(err), tt.field)
		})
	}
}

func TestSummary(t *testing.T) {
	s := valid()
	s.Slot = ""
	s.Service = ""
	assert.Equal(t, "service: field is required; slot: field is required", Summary(Struct(s)))
}

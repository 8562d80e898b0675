package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RefundBreakdown carries exact amounts; rounding happens in Rounded.
type RefundBreakdown struct {
	ChargedAmount       decimal.Decimal
	BaseCancellationFee decimal.Decimal
	RefundableAmount    decimal.Decimal
	RefundAmount        decimal.Decimal
	RefundPercent       int64
	NoticeDays          int
}

// Rounded renders the breakdown at two decimals.
func (b RefundBreakdown) Rounded() RefundView {
	return RefundView{
		ChargedAmount:       b.ChargedAmount.StringFixed(2),
		BaseCancellationFee: b.BaseCancellationFee.StringFixed(2),
		RefundableAmount:    b.RefundableAmount.StringFixed(2),
		RefundAmount:        b.RefundAmount.StringFixed(2),
		RefundPercent:       b.RefundPercent,
		NoticeDays:          b.NoticeDays,
	}
}

type RefundView struct {
	ChargedAmount       string `json:"charged_amount"`
	BaseCancellationFee string `json:"base_cancellation_fee"`
	RefundableAmount    string `json:"refundable_amount"`
	RefundAmount        string `json:"refund_amount"`
	RefundPercent       int64  `json:"refund_percent"`
	NoticeDays          int    `json:"notice_days"`
}

// RefundResult is returned by a cancellation or a quote.
type RefundResult struct {
	BookingID  string            `json:"booking_id"`
	Status     AppointmentStatus `json:"status"`
	Refund     RefundView        `json:"refund"`
	CanceledAt *time.Time        `json:"canceled_at,omitempty"`
	Quote      bool              `json:"quote,omitempty"`
}

// Package refund computes cancellation refunds. It is pure: no clock, no I/O.
package refund

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/pkg/errors"
)

var hundred = decimal.NewFromInt(100)

// Policy holds the refund tiers.
type Policy struct {
	FullRefundPercent    int64
	PartialRefundPercent int64
	// FullRefundNoticeDays is the minimum notice for the full tier.
	FullRefundNoticeDays int
}

func DefaultPolicy() Policy {
	return Policy{
		FullRefundPercent:    95,
		PartialRefundPercent: 50,
		FullRefundNoticeDays: 2,
	}
}

type Calculator struct {
	policy Policy
}

func NewCalculator(policy Policy) *Calculator {
	return &Calculator{policy: policy}
}

// Input is what a cancellation knows about the original charge.
type Input struct {
	ChargedAmount  decimal.Decimal
	ApplicationFee decimal.Decimal
	PaypalFee      decimal.Decimal
	// NoticeDays is the civil-day distance from today to the appointment.
	// Zero or negative means same day and gets the partial tier.
	NoticeDays int
}

// Calculate returns the exact breakdown. Processing fees are never refunded
// and no amount goes below zero.
func (c *Calculator) Calculate(in Input) (model.RefundBreakdown, error) {
	if in.ChargedAmount.IsNegative() || in.ApplicationFee.IsNegative() || in.PaypalFee.IsNegative() {
		return model.RefundBreakdown{}, errors.BadRequest("amounts must not be negative",
			fmt.Errorf("charged=%s application=%s paypal=%s", in.ChargedAmount, in.ApplicationFee, in.PaypalFee))
	}

	base := in.ApplicationFee.Add(in.PaypalFee)
	refundable := decimal.Max(decimal.Zero, in.ChargedAmount.Sub(base))

	percent := c.policy.PartialRefundPercent
	if in.NoticeDays >= c.policy.FullRefundNoticeDays {
		percent = c.policy.FullRefundPercent
	}
	refund := decimal.Max(decimal.Zero, refundable.Mul(decimal.NewFromInt(percent)).Div(hundred))

	return model.RefundBreakdown{
		ChargedAmount:       in.ChargedAmount,
		BaseCancellationFee: base,
		RefundableAmount:    refundable,
		RefundAmount:        refund,
		RefundPercent:       percent,
		NoticeDays:          in.NoticeDays,
	}, nil
}

// IsFullTier reports whether a breakdown used the full-refund percentage.
func (c *Calculator) IsFullTier(b model.RefundBreakdown) bool {
	return b.NoticeDays >= c.policy.FullRefundNoticeDays
}

package refund

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-api/pkg/errors"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCalculate(t *testing.T) {
	calc := NewCalculator(DefaultPolicy())

	tests := []struct {
		name       string
		in         Input
		base       string
		refundable string
		refund     string
		percent    int64
	}{
		{"three days notice", Input{d("200"), d("3"), d("7"), 3}, "10.00", "190.00", "180.50", 95},
		{"exactly two days", Input{d("200"), d("3"), d("7"), 2}, "10.00", "190.00", "180.50", 95},
		{"one day notice", Input{d("200"), d("3"), d("7"), 1}, "10.00", "190.00", "95.00", 50},
		{"same day", Input{d("200"), d("3"), d("7"), 0}, "10.00", "190.00", "95.00", 50},
		{"fees exceed charge", Input{d("5.00"), d("4"), d("6"), 10}, "10.00", "0.00", "0.00", 95},
		{"no fees", Input{d("99.99"), d("0"), d("0"), 5}, "0.00", "99.99", "94.99", 95},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := calc.Calculate(tt.in)
			require.NoError(t, err)

			view := b.Rounded()
			assert.Equal(t, tt.base, view.BaseCancellationFee)
			assert.Equal(t, tt.refundable, view.RefundableAmount)
			assert.Equal(t, tt.refund, view.RefundAmount)
			assert.Equal(t, tt.percent, view.RefundPercent)
		})
	}
}

func TestCalculateKeepsPrecisionUntilOutput(t *testing.T) {
	b, err := NewCalculator(DefaultPolicy()).Calculate(Input{d("99.99"), d("0"), d("0"), 5})
	require.NoError(t, err)

	assert.True(t, b.RefundAmount.Equal(d("94.9905")))
	assert.Equal(t, "94.99", b.Rounded().RefundAmount)
}

func TestCalculateRejectsNegativeInput(t *testing.T) {
	_, err := NewCalculator(DefaultPolicy()).Calculate(Input{d("-1"), d("0"), d("0"), 3})
	assert.ErrorIs(t, err, errors.ValidationError)
}

func TestCustomPolicy(t *testing.T) {
	calc := NewCalculator(Policy{FullRefundPercent: 100, PartialRefundPercent: 0, FullRefundNoticeDays: 7})

	b, err := calc.Calculate(Input{d("100"), d("0"), d("0"), 6})
	require.NoError(t, err)
	assert.Equal(t, "0.00", b.Rounded().RefundAmount)
	assert.False(t, calc.IsFullTier(b))

	b, err = calc.Calculate(Input{d("100"), d("0"), d("0"), 7})
	require.NoError(t, err)
	assert.Equal(t, "100.00", b.Rounded().RefundAmount)
}

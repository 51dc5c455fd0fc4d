package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRentalDays(t *testing.T) {
	r := &Rental{
		StartDate: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 1, 12, 0, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, 3, r.RentalDays())

	late := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
	r.ActualReturnDate = &late
	assert.Equal(t, 6, r.ActualRentalDays())
}

func TestOrderTotal(t *testing.T) {
	r := &Rental{
		TotalAmount:      decimal.RequireFromString("600"),
		Deposit:          decimal.RequireFromString("500"),
		CrossLocationFee: decimal.RequireFromString("100"),
		OverdueFee:       decimal.RequireFromString("200"),
	}

	// Cross-location fee only counts when the return is cross-location.
	assert.Equal(t, "1300.00", r.OrderTotal().StringFixed(2))

	r.IsCrossLocationReturn = true
	assert.Equal(t, "1400.00", r.OrderTotal().StringFixed(2))
}

func TestOutstandingAmount(t *testing.T) {
	r := &Rental{
		TotalAmount: decimal.RequireFromString("600"),
		AmountPaid:  decimal.RequireFromString("400"),
	}
	assert.Equal(t, "200.00", r.OutstandingAmount().StringFixed(2))

	r.AmountPaid = decimal.RequireFromString("900")
	assert.True(t, r.OutstandingAmount().IsZero())
}

func TestRentalStatusTerminal(t *testing.T) {
	assert.True(t, RentalStatusCompleted.Terminal())
	assert.True(t, RentalStatusCancelled.Terminal())
	assert.False(t, RentalStatusPending.Terminal())
	assert.False(t, RentalStatusOngoing.Terminal())
	assert.False(t, RentalStatusOverdue.Terminal())
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type RentalStatus string

const (
	RentalStatusPending   RentalStatus = "PENDING"
	RentalStatusOngoing   RentalStatus = "ONGOING"
	RentalStatusOverdue   RentalStatus = "OVERDUE"
	RentalStatusCompleted RentalStatus = "COMPLETED"
	RentalStatusCancelled RentalStatus = "CANCELLED"
)

// Terminal reports whether no further status transition is allowed.
func (s RentalStatus) Terminal() bool {
	return s == RentalStatusCompleted || s == RentalStatusCancelled
}

type SettlementStatus string

const (
	SettlementStatusUnsettled SettlementStatus = "UNSETTLED"
	SettlementStatusPartial   SettlementStatus = "PARTIAL"
	SettlementStatusSettled   SettlementStatus = "SETTLED"
)

type DepositMethod string

const (
	DepositMethodCash        DepositMethod = "CASH"
	DepositMethodStudentCard DepositMethod = "STUDENT_CARD"
	DepositMethodVIPFree     DepositMethod = "VIP_FREE"
	DepositMethodFirstFree   DepositMethod = "FIRST_FREE"
)

// StudentCard holds the collateral details collected when the deposit
// method is STUDENT_CARD.
type StudentCard struct {
	StudentID string `json:"student_id"`
	Name      string `json:"name"`
	School    string `json:"school"`
	Major     string `json:"major,omitempty"`
	Verified  bool   `json:"verified"`
	Returned  bool   `json:"returned"`
}

// Rental is the central order aggregate. AmountPaid and AmountRefunded are
// caches derived from the payment ledger; only the settlement refresh may
// write them.
type Rental struct {
	ID         int32 `json:"id"`
	CustomerID int32 `json:"customer_id"`
	VehicleID  int32 `json:"vehicle_id"`

	StartDate        time.Time  `json:"start_date"`
	EndDate          time.Time  `json:"end_date"`
	ActualReturnDate *time.Time `json:"actual_return_date,omitempty"`

	PickupLocation string `json:"pickup_location"`
	// ReturnLocation is the declared drop-off store for a cross-location
	// return; ActualReturnLocation is where the vehicle really came back.
	ReturnLocation        string `json:"return_location,omitempty"`
	ActualReturnLocation  string `json:"actual_return_location,omitempty"`
	IsCrossLocationReturn bool   `json:"is_cross_location_return"`

	TotalAmount      decimal.Decimal `json:"total_amount"`
	Deposit          decimal.Decimal `json:"deposit"`
	CrossLocationFee decimal.Decimal `json:"cross_location_fee"`
	OverdueFee       decimal.Decimal `json:"overdue_fee"`

	DepositMethod DepositMethod `json:"deposit_method"`
	StudentCard   *StudentCard  `json:"student_card,omitempty"`

	Status           RentalStatus     `json:"status"`
	SettlementStatus SettlementStatus `json:"settlement_status"`
	SettledAt        *time.Time       `json:"settled_at,omitempty"`
	AmountPaid       decimal.Decimal  `json:"amount_paid"`
	AmountRefunded   decimal.Decimal  `json:"amount_refunded"`

	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RentalDays returns the booked duration, counting both the start and the
// end date.
func (r *Rental) RentalDays() int {
	if r.EndDate.Before(r.StartDate) {
		return 0
	}
	return daysBetween(r.StartDate, r.EndDate) + 1
}

// ActualRentalDays returns the real duration when the vehicle has been
// returned, otherwise the booked duration.
func (r *Rental) ActualRentalDays() int {
	if r.ActualReturnDate == nil {
		return r.RentalDays()
	}
	return daysBetween(r.StartDate, *r.ActualReturnDate) + 1
}

// OrderTotal is the canonical financial obligation of the order:
// base rental charge + deposit + applicable cross-location fee + overdue fee.
func (r *Rental) OrderTotal() decimal.Decimal {
	total := r.TotalAmount.Add(r.Deposit).Add(r.OverdueFee)
	if r.IsCrossLocationReturn {
		total = total.Add(r.CrossLocationFee)
	}
	return total
}

// OutstandingAmount is what the customer still owes, ignoring refunds.
func (r *Rental) OutstandingAmount() decimal.Decimal {
	remaining := r.OrderTotal().Sub(r.AmountPaid)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

func daysBetween(a, b time.Time) int {
	a = time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	b = time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"car-rental-backend/internal/domain"
	"car-rental-backend/internal/pricing"
)

// Clock is the single time source for transition rules and fee calculation,
// injected so tests can pin the current day.
type Clock interface {
	Now() time.Time
	// Today returns the current day at UTC midnight.
	Today() time.Time
}

type realClock struct{}

func NewClock() Clock { return realClock{} }

func (realClock) Now() time.Time { return time.Now().UTC() }

func (realClock) Today() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// PaymentSummary is the financial position of one order, recomputed from the
// payment ledger on demand.
type PaymentSummary struct {
	Paid     decimal.Decimal `json:"paid"`
	Refunded decimal.Decimal `json:"refunded"`
	NetPaid  decimal.Decimal `json:"net_paid"`
	// Remaining is what the customer still owes on the booked charges
	// (base + deposit + declared cross-location fee), never negative.
	Remaining decimal.Decimal `json:"remaining"`
}

// LedgerService appends to the payment ledger. Records are never mutated;
// every successful write triggers a settlement refresh on the order.
type LedgerService interface {
	RecordCharge(ctx context.Context, rentalID int32, amount decimal.Decimal, method domain.PaymentMethod, description string) (*domain.Payment, error)
	// RecordRefund resolves the refund recipient (explicit user, then the
	// payer of the first successful charge, then the customer's linked
	// account) and fails with ErrNoRefundRecipient before writing anything
	// when none resolves.
	RecordRefund(ctx context.Context, rentalID int32, amount decimal.Decimal, method domain.PaymentMethod, description string, recipientUserID *int32) (*domain.Payment, error)
	Summarize(ctx context.Context, rentalID int32) (*PaymentSummary, error)
}

// SettlementService recomputes an order's cached financial state from the
// ledger. Refresh is idempotent.
type SettlementService interface {
	Refresh(ctx context.Context, rentalID int32) (*domain.Rental, error)
}

// MembershipService evaluates and applies VIP eligibility.
type MembershipService interface {
	// Evaluate returns whether the customer qualifies for VIP and the
	// current consecutive-good-order streak.
	Evaluate(ctx context.Context, customerID int32) (bool, int, error)
	// Upgrade promotes a NORMAL customer to VIP. Returns false when the
	// customer is already VIP.
	Upgrade(ctx context.Context, customerID int32) (bool, error)
}

// CreateOrderInput carries everything needed to book a rental order.
type CreateOrderInput struct {
	CustomerID int32
	VehicleID  int32
	StartDate  time.Time
	EndDate    time.Time

	PickupLocation string
	// ReturnLocation and IsCrossLocationReturn are the customer's
	// declaration at booking time; a zero DeclaredCrossLocationFee means
	// the default pricing applies.
	ReturnLocation           string
	IsCrossLocationReturn    bool
	DeclaredCrossLocationFee decimal.Decimal

	DepositMethod domain.DepositMethod
	StudentCard   *domain.StudentCard
	Notes         string
}

// RentalService is the order state machine: PENDING -> ONGOING ->
// {OVERDUE, COMPLETED}, with CANCELLED reachable from any non-terminal state.
type RentalService interface {
	CreateOrder(ctx context.Context, in CreateOrderInput) (*domain.Rental, error)
	GetOrder(ctx context.Context, id int32) (*domain.Rental, error)

	// QuoteCharge prices the base rental charge without booking.
	QuoteCharge(ctx context.Context, customerID, vehicleID int32, start, end time.Time) (decimal.Decimal, error)
	// QuoteDeposit prices the security deposit without booking.
	QuoteDeposit(ctx context.Context, customerID, vehicleID int32, start, end time.Time, method domain.DepositMethod) (decimal.Decimal, pricing.DepositBreakdown, error)

	// ActivateDueOrders moves PENDING orders whose start date has arrived
	// to ONGOING. Returns the number of orders activated.
	ActivateDueOrders(ctx context.Context) (int, error)
	// MarkOverdueOrders moves ONGOING orders past their end date to
	// OVERDUE. Returns the number of orders marked.
	MarkOverdueOrders(ctx context.Context) (int, error)

	ReturnVehicle(ctx context.Context, orderID int32, actualDate time.Time, actualLocation string) (*domain.Rental, error)
	CancelOrder(ctx context.Context, orderID int32, reason string) (*domain.Rental, error)
	// RefundDeposit refunds the not-yet-refunded part of the deposit.
	// Returns (false, 0, nil) when nothing is refundable or no refund
	// recipient resolves.
	RefundDeposit(ctx context.Context, orderID int32, recipientUserID *int32) (bool, decimal.Decimal, error)
}

// NotificationSink receives lifecycle events. Implementations are
// fire-and-forget: failures are logged, never returned.
type NotificationSink interface {
	OrderCompleted(customer *domain.Customer, rental *domain.Rental)
	OrderCancelled(customer *domain.Customer, rental *domain.Rental, reason string)
	MemberUpgraded(customer *domain.Customer)
}

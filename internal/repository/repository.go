package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"car-rental-backend/internal/domain"
)

// TxRunner runs fn inside a single database transaction. Repository calls
// made with the context passed to fn join that transaction; any error rolls
// everything back.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type VehicleRepository interface {
	Create(ctx context.Context, vehicle *domain.Vehicle) error
	GetByID(ctx context.Context, id int32) (*domain.Vehicle, error)
	// GetByIDForUpdate locks the vehicle row for the duration of the
	// surrounding transaction, serializing concurrent bookings.
	GetByIDForUpdate(ctx context.Context, id int32) (*domain.Vehicle, error)
	Update(ctx context.Context, vehicle *domain.Vehicle) error
	UpdateStatus(ctx context.Context, id int32, status domain.VehicleStatus) error
	ListByStatus(ctx context.Context, status domain.VehicleStatus, page, pageSize int32) ([]domain.Vehicle, int32, error)
}

type CustomerRepository interface {
	Create(ctx context.Context, customer *domain.Customer) error
	GetByID(ctx context.Context, id int32) (*domain.Customer, error)
	Update(ctx context.Context, customer *domain.Customer) error
	UpdateMemberLevel(ctx context.Context, id int32, level domain.MemberLevel) error
}

type RentalRepository interface {
	Create(ctx context.Context, rental *domain.Rental) error
	GetByID(ctx context.Context, id int32) (*domain.Rental, error)
	// GetByIDForUpdate locks the order row for the duration of the
	// surrounding transaction, serializing concurrent return, cancel and
	// refund workflows on the same order.
	GetByIDForUpdate(ctx context.Context, id int32) (*domain.Rental, error)
	Update(ctx context.Context, rental *domain.Rental) error

	// ListByVehicleAndStatus returns the vehicle's orders in any of the
	// given statuses, used for booking conflict checks.
	ListByVehicleAndStatus(ctx context.Context, vehicleID int32, statuses []domain.RentalStatus) ([]domain.Rental, error)
	// CountByVehicleAndStatus counts the vehicle's orders in the given
	// status, excluding excludeID when nonzero.
	CountByVehicleAndStatus(ctx context.Context, vehicleID int32, status domain.RentalStatus, excludeID int32) (int32, error)
	// CountByCustomerAndStatus counts the customer's orders in any of the
	// given statuses, excluding excludeID when nonzero.
	CountByCustomerAndStatus(ctx context.Context, customerID int32, statuses []domain.RentalStatus, excludeID int32) (int32, error)
	// ListCompletedByCustomer returns the customer's COMPLETED orders with
	// a recorded actual return date, newest first.
	ListCompletedByCustomer(ctx context.Context, customerID int32) ([]domain.Rental, error)

	// ListDueForActivation returns PENDING orders whose start date is on or
	// before the given day.
	ListDueForActivation(ctx context.Context, today time.Time) ([]domain.Rental, error)
	// ListPastDue returns ONGOING orders whose end date is before the given
	// day.
	ListPastDue(ctx context.Context, today time.Time) ([]domain.Rental, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	ListByRental(ctx context.Context, rentalID int32) ([]domain.Payment, error)
	// SumByRental totals the amounts of the rental's payments with the
	// given transaction type and status.
	SumByRental(ctx context.Context, rentalID int32, txType domain.TransactionType, status domain.PaymentStatus) (decimal.Decimal, error)
	// FirstPaidCharge returns the earliest CHARGE/PAID record for the
	// rental, or (nil, nil) when there is none.
	FirstPaidCharge(ctx context.Context, rentalID int32) (*domain.Payment, error)
}

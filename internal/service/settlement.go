package service

import (
	"context"
	"fmt"
	"log/slog"

	"car-rental-backend/internal/domain"
	"car-rental-backend/internal/logger"
	"car-rental-backend/internal/repository"
)

type settlementService struct {
	rentals  repository.RentalRepository
	payments repository.PaymentRepository
	clock    Clock
	logger   *slog.Logger
}

func NewSettlementService(
	rentals repository.RentalRepository,
	payments repository.PaymentRepository,
	clock Clock,
) SettlementService {
	return &settlementService{
		rentals:  rentals,
		payments: payments,
		clock:    clock,
		logger:   logger.WithService("settlement"),
	}
}

// Refresh recomputes the order's cached amount_paid / amount_refunded from
// the ledger and re-derives the settlement status. An order is SETTLED only
// once it is COMPLETED and fully paid; settled_at is set the first time that
// holds and cleared only when the order drops all the way back to UNSETTLED.
func (s *settlementService) Refresh(ctx context.Context, rentalID int32) (*domain.Rental, error) {
	rental, err := s.rentals.GetByID(ctx, rentalID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order %d: %w", rentalID, err)
	}

	paid, err := s.payments.SumByRental(ctx, rental.ID, domain.TransactionTypeCharge, domain.PaymentStatusPaid)
	if err != nil {
		return nil, fmt.Errorf("failed to sum charges for order %d: %w", rental.ID, err)
	}
	refunded, err := s.payments.SumByRental(ctx, rental.ID, domain.TransactionTypeRefund, domain.PaymentStatusRefunded)
	if err != nil {
		return nil, fmt.Errorf("failed to sum refunds for order %d: %w", rental.ID, err)
	}

	rental.AmountPaid = paid
	rental.AmountRefunded = refunded

	switch {
	case rental.Status == domain.RentalStatusCompleted && rental.OrderTotal().LessThanOrEqual(paid):
		rental.SettlementStatus = domain.SettlementStatusSettled
		if rental.SettledAt == nil {
			now := s.clock.Now()
			rental.SettledAt = &now
		}
	case paid.IsPositive():
		rental.SettlementStatus = domain.SettlementStatusPartial
	default:
		rental.SettlementStatus = domain.SettlementStatusUnsettled
		rental.SettledAt = nil
	}

	if err := s.rentals.Update(ctx, rental); err != nil {
		return nil, fmt.Errorf("failed to update order %d: %w", rental.ID, err)
	}

	s.logger.Debug("settlement refreshed",
		"rental_id", rental.ID,
		"settlement_status", string(rental.SettlementStatus),
		"amount_paid", paid.String(),
		"amount_refunded", refunded.String())
	return rental, nil
}

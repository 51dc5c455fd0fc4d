package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"car-rental-backend/internal/domain"
	"car-rental-backend/internal/logger"
	"car-rental-backend/internal/repository"
)

type ledgerService struct {
	payments   repository.PaymentRepository
	rentals    repository.RentalRepository
	customers  repository.CustomerRepository
	settlement SettlementService
	clock      Clock
	logger     *slog.Logger
}

func NewLedgerService(
	payments repository.PaymentRepository,
	rentals repository.RentalRepository,
	customers repository.CustomerRepository,
	settlement SettlementService,
	clock Clock,
) LedgerService {
	return &ledgerService{
		payments:   payments,
		rentals:    rentals,
		customers:  customers,
		settlement: settlement,
		clock:      clock,
		logger:     logger.WithService("ledger"),
	}
}

func (s *ledgerService) RecordCharge(ctx context.Context, rentalID int32, amount decimal.Decimal, method domain.PaymentMethod, description string) (*domain.Payment, error) {
	rental, err := s.rentals.GetByID(ctx, rentalID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order %d: %w", rentalID, err)
	}

	customer, err := s.customers.GetByID(ctx, rental.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load customer %d: %w", rental.CustomerID, err)
	}

	now := s.clock.Now()
	payment := &domain.Payment{
		RentalID:        rental.ID,
		UserID:          customer.UserID,
		Amount:          amount.Round(2),
		Method:          method,
		TransactionType: domain.TransactionTypeCharge,
		Status:          domain.PaymentStatusPaid,
		Description:     description,
		TransactionID:   chargeTransactionID(),
		PaidAt:          &now,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to record charge: %w", err)
	}

	s.logger.Info("charge recorded",
		"rental_id", rental.ID,
		"amount", payment.Amount.String(),
		"transaction_id", payment.TransactionID)

	if _, err := s.settlement.Refresh(ctx, rental.ID); err != nil {
		return nil, fmt.Errorf("failed to refresh settlement for order %d: %w", rental.ID, err)
	}
	return payment, nil
}

func (s *ledgerService) RecordRefund(ctx context.Context, rentalID int32, amount decimal.Decimal, method domain.PaymentMethod, description string, recipientUserID *int32) (*domain.Payment, error) {
	rental, err := s.rentals.GetByID(ctx, rentalID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order %d: %w", rentalID, err)
	}

	firstCharge, err := s.payments.FirstPaidCharge(ctx, rental.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up payer of record for order %d: %w", rental.ID, err)
	}

	// Recipient resolution must succeed before anything is written.
	recipient := recipientUserID
	if recipient == nil && firstCharge != nil {
		recipient = firstCharge.UserID
	}
	if recipient == nil {
		customer, err := s.customers.GetByID(ctx, rental.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("failed to load customer %d: %w", rental.CustomerID, err)
		}
		recipient = customer.UserID
	}
	if recipient == nil {
		return nil, domain.ErrNoRefundRecipient
	}

	if method == "" {
		if firstCharge != nil {
			method = firstCharge.Method
		} else {
			method = domain.PaymentMethodCash
		}
	}

	now := s.clock.Now()
	payment := &domain.Payment{
		RentalID:        rental.ID,
		UserID:          recipient,
		Amount:          amount.Round(2),
		Method:          method,
		TransactionType: domain.TransactionTypeRefund,
		Status:          domain.PaymentStatusRefunded,
		Description:     description,
		TransactionID:   refundTransactionID(),
		PaidAt:          &now,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to record refund: %w", err)
	}

	s.logger.Info("refund recorded",
		"rental_id", rental.ID,
		"amount", payment.Amount.String(),
		"transaction_id", payment.TransactionID)

	if _, err := s.settlement.Refresh(ctx, rental.ID); err != nil {
		return nil, fmt.Errorf("failed to refresh settlement for order %d: %w", rental.ID, err)
	}
	return payment, nil
}

func (s *ledgerService) Summarize(ctx context.Context, rentalID int32) (*PaymentSummary, error) {
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

	// Remaining covers the booked charges only; overdue fees are settled
	// separately at return time.
	booked := rental.TotalAmount.Add(rental.Deposit)
	if rental.IsCrossLocationReturn {
		booked = booked.Add(rental.CrossLocationFee)
	}
	remaining := booked.Sub(paid)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	return &PaymentSummary{
		Paid:      paid,
		Refunded:  refunded,
		NetPaid:   paid.Sub(refunded),
		Remaining: remaining,
	}, nil
}

func chargeTransactionID() string {
	return "TXN-" + uuid.NewString()
}

func refundTransactionID() string {
	return "REF-" + uuid.NewString()
}

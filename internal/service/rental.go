package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"car-rental-backend/internal/domain"
	"car-rental-backend/internal/logger"
	"car-rental-backend/internal/pricing"
	"car-rental-backend/internal/repository"
)

// activeStatuses are the order states that occupy a vehicle's calendar.
var activeStatuses = []domain.RentalStatus{
	domain.RentalStatusPending,
	domain.RentalStatusOngoing,
	domain.RentalStatusOverdue,
}

type rentalService struct {
	tx         repository.TxRunner
	rentals    repository.RentalRepository
	vehicles   repository.VehicleRepository
	customers  repository.CustomerRepository
	payments   repository.PaymentRepository
	ledger     LedgerService
	settlement SettlementService
	membership MembershipService
	sink       NotificationSink
	clock      Clock
	// storeNetwork is the known store list; empty means every location is
	// considered in-network.
	storeNetwork []string
	logger       *slog.Logger
}

func NewRentalService(
	tx repository.TxRunner,
	rentals repository.RentalRepository,
	vehicles repository.VehicleRepository,
	customers repository.CustomerRepository,
	payments repository.PaymentRepository,
	ledger LedgerService,
	settlement SettlementService,
	membership MembershipService,
	sink NotificationSink,
	clock Clock,
	storeNetwork []string,
) RentalService {
	return &rentalService{
		tx:           tx,
		rentals:      rentals,
		vehicles:     vehicles,
		customers:    customers,
		payments:     payments,
		ledger:       ledger,
		settlement:   settlement,
		membership:   membership,
		sink:         sink,
		clock:        clock,
		storeNetwork: storeNetwork,
		logger:       logger.WithService("rental"),
	}
}

func (s *rentalService) CreateOrder(ctx context.Context, in CreateOrderInput) (*domain.Rental, error) {
	if in.EndDate.Before(in.StartDate) {
		return nil, domain.ErrInvalidDateRange
	}
	start := toDay(in.StartDate)
	end := toDay(in.EndDate)

	var created *domain.Rental
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		customer, err := s.customers.GetByID(ctx, in.CustomerID)
		if err != nil {
			return fmt.Errorf("failed to load customer %d: %w", in.CustomerID, err)
		}
		// The row lock serializes concurrent bookings on the vehicle, so
		// the availability and overlap checks below cannot race.
		vehicle, err := s.vehicles.GetByIDForUpdate(ctx, in.VehicleID)
		if err != nil {
			return fmt.Errorf("failed to load vehicle %d: %w", in.VehicleID, err)
		}
		if vehicle.Status != domain.VehicleStatusAvailable {
			return domain.ErrVehicleUnavailable
		}

		// Booking conflict check against every order still occupying the
		// vehicle. Ranges are inclusive on both ends.
		others, err := s.rentals.ListByVehicleAndStatus(ctx, vehicle.ID, activeStatuses)
		if err != nil {
			return fmt.Errorf("failed to list active orders for vehicle %d: %w", vehicle.ID, err)
		}
		for _, other := range others {
			if !(end.Before(toDay(other.StartDate)) || start.After(toDay(other.EndDate))) {
				return domain.ErrDateConflict
			}
		}

		base, err := pricing.BaseCharge(customer.MemberLevel, vehicle.DailyRate, start, end)
		if err != nil {
			return err
		}

		prior, err := s.rentals.CountByCustomerAndStatus(ctx, customer.ID,
			[]domain.RentalStatus{domain.RentalStatusCompleted, domain.RentalStatusCancelled}, 0)
		if err != nil {
			return fmt.Errorf("failed to count prior orders for customer %d: %w", customer.ID, err)
		}

		deposit, _ := pricing.DynamicDeposit(pricing.DepositInput{
			Method:          in.DepositMethod,
			MemberLevel:     customer.MemberLevel,
			CreditScore:     customer.CreditScore,
			PriorOrderCount: prior,
			DailyRate:       vehicle.DailyRate,
			EstimatedValue:  vehicle.EstimatedValue,
			RentalDays:      pricing.RentalDays(start, end),
		})

		crossFee := pricing.CrossLocationFee(vehicle.DailyRate, in.IsCrossLocationReturn,
			in.DeclaredCrossLocationFee, s.inNetwork(in.ReturnLocation))

		rental := &domain.Rental{
			CustomerID:            customer.ID,
			VehicleID:             vehicle.ID,
			StartDate:             start,
			EndDate:               end,
			PickupLocation:        in.PickupLocation,
			ReturnLocation:        in.ReturnLocation,
			IsCrossLocationReturn: in.IsCrossLocationReturn,
			TotalAmount:           base,
			Deposit:               deposit,
			CrossLocationFee:      crossFee,
			OverdueFee:            decimal.Zero,
			DepositMethod:         in.DepositMethod,
			StudentCard:           in.StudentCard,
			Status:                domain.RentalStatusPending,
			SettlementStatus:      domain.SettlementStatusUnsettled,
			AmountPaid:            decimal.Zero,
			AmountRefunded:        decimal.Zero,
			Notes:                 in.Notes,
		}
		if err := s.rentals.Create(ctx, rental); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		if err := s.vehicles.UpdateStatus(ctx, vehicle.ID, domain.VehicleStatusRented); err != nil {
			return fmt.Errorf("failed to mark vehicle %d rented: %w", vehicle.ID, err)
		}
		created = rental
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order created",
		"rental_id", created.ID,
		"customer_id", created.CustomerID,
		"vehicle_id", created.VehicleID,
		"total_amount", created.TotalAmount.String(),
		"deposit", created.Deposit.String())
	return created, nil
}

func (s *rentalService) GetOrder(ctx context.Context, id int32) (*domain.Rental, error) {
	return s.rentals.GetByID(ctx, id)
}

func (s *rentalService) QuoteCharge(ctx context.Context, customerID, vehicleID int32, start, end time.Time) (decimal.Decimal, error) {
	customer, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load customer %d: %w", customerID, err)
	}
	vehicle, err := s.vehicles.GetByID(ctx, vehicleID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load vehicle %d: %w", vehicleID, err)
	}
	return pricing.BaseCharge(customer.MemberLevel, vehicle.DailyRate, start, end)
}

func (s *rentalService) QuoteDeposit(ctx context.Context, customerID, vehicleID int32, start, end time.Time, method domain.DepositMethod) (decimal.Decimal, pricing.DepositBreakdown, error) {
	if end.Before(start) {
		return decimal.Zero, pricing.DepositBreakdown{}, domain.ErrInvalidDateRange
	}
	customer, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		return decimal.Zero, pricing.DepositBreakdown{}, fmt.Errorf("failed to load customer %d: %w", customerID, err)
	}
	vehicle, err := s.vehicles.GetByID(ctx, vehicleID)
	if err != nil {
		return decimal.Zero, pricing.DepositBreakdown{}, fmt.Errorf("failed to load vehicle %d: %w", vehicleID, err)
	}
	prior, err := s.rentals.CountByCustomerAndStatus(ctx, customerID,
		[]domain.RentalStatus{domain.RentalStatusCompleted, domain.RentalStatusCancelled}, 0)
	if err != nil {
		return decimal.Zero, pricing.DepositBreakdown{}, fmt.Errorf("failed to count prior orders for customer %d: %w", customerID, err)
	}

	deposit, breakdown := pricing.DynamicDeposit(pricing.DepositInput{
		Method:          method,
		MemberLevel:     customer.MemberLevel,
		CreditScore:     customer.CreditScore,
		PriorOrderCount: prior,
		DailyRate:       vehicle.DailyRate,
		EstimatedValue:  vehicle.EstimatedValue,
		RentalDays:      pricing.RentalDays(start, end),
	})
	return deposit, breakdown, nil
}

// ActivateDueOrders is the daily activation batch. A failure on one order is
// logged and does not stop the rest.
func (s *rentalService) ActivateDueOrders(ctx context.Context) (int, error) {
	today := s.clock.Today()
	due, err := s.rentals.ListDueForActivation(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("failed to list orders due for activation: %w", err)
	}

	activated := 0
	for i := range due {
		order := due[i]
		err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
			order.Status = domain.RentalStatusOngoing
			if err := s.rentals.Update(ctx, &order); err != nil {
				return err
			}
			return s.vehicles.UpdateStatus(ctx, order.VehicleID, domain.VehicleStatusRented)
		})
		if err != nil {
			s.logger.Error("failed to activate order", "rental_id", order.ID, "error", err)
			continue
		}
		activated++
	}

	s.logger.Info("activation batch finished", "due", len(due), "activated", activated)
	return activated, nil
}

// MarkOverdueOrders is the daily overdue batch. Orders are never
// auto-completed; an overdue order stays open until the vehicle comes back.
func (s *rentalService) MarkOverdueOrders(ctx context.Context) (int, error) {
	today := s.clock.Today()
	pastDue, err := s.rentals.ListPastDue(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("failed to list past-due orders: %w", err)
	}

	marked := 0
	for i := range pastDue {
		order := pastDue[i]
		order.Status = domain.RentalStatusOverdue
		if err := s.rentals.Update(ctx, &order); err != nil {
			s.logger.Error("failed to mark order overdue", "rental_id", order.ID, "error", err)
			continue
		}
		marked++
	}

	s.logger.Info("overdue batch finished", "past_due", len(pastDue), "marked", marked)
	return marked, nil
}

func (s *rentalService) ReturnVehicle(ctx context.Context, orderID int32, actualDate time.Time, actualLocation string) (*domain.Rental, error) {
	var (
		returned *domain.Rental
		customer *domain.Customer
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		rental, err := s.rentals.GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return fmt.Errorf("failed to load order %d: %w", orderID, err)
		}
		if rental.Status != domain.RentalStatusOngoing && rental.Status != domain.RentalStatusOverdue {
			return domain.ErrInvalidTransition
		}

		day := toDay(actualDate)
		if day.Before(toDay(rental.StartDate)) || day.After(s.clock.Today()) {
			return domain.ErrInvalidReturnDate
		}

		if actualLocation == "" {
			actualLocation = rental.PickupLocation
		}

		vehicle, err := s.vehicles.GetByID(ctx, rental.VehicleID)
		if err != nil {
			return fmt.Errorf("failed to load vehicle %d: %w", rental.VehicleID, err)
		}

		rental.ActualReturnDate = &day
		rental.ActualReturnLocation = actualLocation

		// Retroactive cross-location detection.
		if !rental.IsCrossLocationReturn && !pricing.SameLocation(actualLocation, rental.PickupLocation) {
			rental.IsCrossLocationReturn = true
			rental.ReturnLocation = actualLocation
			rental.CrossLocationFee = pricing.CrossLocationFee(vehicle.DailyRate, true,
				decimal.Zero, s.inNetwork(actualLocation))
		}

		rental.OverdueFee = pricing.OverdueFee(vehicle.DailyRate, rental.EndDate, day)
		if rental.StudentCard != nil {
			rental.StudentCard.Returned = true
		}
		rental.Status = domain.RentalStatusCompleted
		if err := s.rentals.Update(ctx, rental); err != nil {
			return fmt.Errorf("failed to update order %d: %w", rental.ID, err)
		}

		if err := s.releaseVehicleIfIdle(ctx, rental); err != nil {
			return err
		}

		if _, _, err := s.refundDeposit(ctx, rental, nil); err != nil {
			return err
		}

		refreshed, err := s.settlement.Refresh(ctx, rental.ID)
		if err != nil {
			return err
		}
		returned = refreshed

		eligible, streak, err := s.membership.Evaluate(ctx, rental.CustomerID)
		if err != nil {
			return err
		}
		if eligible {
			if _, err := s.membership.Upgrade(ctx, rental.CustomerID); err != nil {
				return err
			}
		}
		s.logger.Debug("membership evaluated",
			"customer_id", rental.CustomerID, "streak", streak, "eligible", eligible)

		customer, err = s.customers.GetByID(ctx, rental.CustomerID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("vehicle returned",
		"rental_id", returned.ID,
		"overdue_fee", returned.OverdueFee.String(),
		"cross_location", returned.IsCrossLocationReturn)
	s.sink.OrderCompleted(customer, returned)
	return returned, nil
}

func (s *rentalService) CancelOrder(ctx context.Context, orderID int32, reason string) (*domain.Rental, error) {
	var (
		cancelled *domain.Rental
		customer  *domain.Customer
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		rental, err := s.rentals.GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return fmt.Errorf("failed to load order %d: %w", orderID, err)
		}
		if rental.Status.Terminal() {
			return domain.ErrInvalidTransition
		}

		summary, err := s.ledger.Summarize(ctx, rental.ID)
		if err != nil {
			return err
		}
		if summary.NetPaid.IsPositive() {
			_, err := s.ledger.RecordRefund(ctx, rental.ID, summary.NetPaid, "",
				cancellationNote(reason), nil)
			if errors.Is(err, domain.ErrNoRefundRecipient) {
				s.logger.Warn("cancellation refund skipped, no recipient",
					"rental_id", rental.ID, "net_paid", summary.NetPaid.String())
			} else if err != nil {
				return err
			}
		}

		rental.Status = domain.RentalStatusCancelled
		rental.Notes = appendNote(rental.Notes, cancellationNote(reason))
		if err := s.rentals.Update(ctx, rental); err != nil {
			return fmt.Errorf("failed to update order %d: %w", rental.ID, err)
		}

		if err := s.releaseVehicleIfIdle(ctx, rental); err != nil {
			return err
		}

		refreshed, err := s.settlement.Refresh(ctx, rental.ID)
		if err != nil {
			return err
		}
		cancelled = refreshed

		customer, err = s.customers.GetByID(ctx, rental.CustomerID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order cancelled", "rental_id", cancelled.ID, "reason", reason)
	s.sink.OrderCancelled(customer, cancelled, reason)
	return cancelled, nil
}

func (s *rentalService) RefundDeposit(ctx context.Context, orderID int32, recipientUserID *int32) (bool, decimal.Decimal, error) {
	var (
		refunded bool
		amount   decimal.Decimal
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		rental, err := s.rentals.GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return fmt.Errorf("failed to load order %d: %w", orderID, err)
		}
		refunded, amount, err = s.refundDeposit(ctx, rental, recipientUserID)
		return err
	})
	if err != nil {
		return false, decimal.Zero, err
	}
	return refunded, amount, nil
}

// refundDeposit refunds the part of the deposit not yet covered by earlier
// refunds. It is a silent no-op when nothing is refundable or no recipient
// resolves, so return and cancel flows never fail on it.
func (s *rentalService) refundDeposit(ctx context.Context, rental *domain.Rental, recipientUserID *int32) (bool, decimal.Decimal, error) {
	refundedSoFar, err := s.payments.SumByRental(ctx, rental.ID,
		domain.TransactionTypeRefund, domain.PaymentStatusRefunded)
	if err != nil {
		return false, decimal.Zero, fmt.Errorf("failed to sum refunds for order %d: %w", rental.ID, err)
	}

	refundable := rental.Deposit.Sub(refundedSoFar)
	if !refundable.IsPositive() {
		return false, decimal.Zero, nil
	}

	_, err = s.ledger.RecordRefund(ctx, rental.ID, refundable, "", "deposit refund", recipientUserID)
	if errors.Is(err, domain.ErrNoRefundRecipient) {
		s.logger.Warn("deposit refund skipped, no recipient", "rental_id", rental.ID)
		return false, decimal.Zero, nil
	}
	if err != nil {
		return false, decimal.Zero, err
	}
	return true, refundable, nil
}

// releaseVehicleIfIdle frees the vehicle unless another open order still
// holds it. A vehicle stays RENTED while any order on it is PENDING, ONGOING
// or OVERDUE.
func (s *rentalService) releaseVehicleIfIdle(ctx context.Context, rental *domain.Rental) error {
	for _, status := range activeStatuses {
		count, err := s.rentals.CountByVehicleAndStatus(ctx, rental.VehicleID, status, rental.ID)
		if err != nil {
			return fmt.Errorf("failed to count open orders for vehicle %d: %w", rental.VehicleID, err)
		}
		if count > 0 {
			return nil
		}
	}
	return s.vehicles.UpdateStatus(ctx, rental.VehicleID, domain.VehicleStatusAvailable)
}

func (s *rentalService) inNetwork(location string) bool {
	if location == "" || len(s.storeNetwork) == 0 {
		return true
	}
	for _, store := range s.storeNetwork {
		if pricing.SameLocation(store, location) {
			return true
		}
	}
	return false
}

func cancellationNote(reason string) string {
	if reason == "" {
		return "cancelled"
	}
	return "cancelled: " + reason
}

func appendNote(notes, note string) string {
	if notes == "" {
		return note
	}
	return notes + "\n" + note
}

func toDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

package service

import (
	"context"
	"fmt"
	"log/slog"

	"car-rental-backend/internal/domain"
	"car-rental-backend/internal/logger"
	"car-rental-backend/internal/pricing"
	"car-rental-backend/internal/repository"
)

// vipStreakTarget is the number of consecutive good completions required for
// a VIP upgrade.
const vipStreakTarget = 10

type membershipService struct {
	customers repository.CustomerRepository
	rentals   repository.RentalRepository
	sink      NotificationSink
	logger    *slog.Logger
}

func NewMembershipService(
	customers repository.CustomerRepository,
	rentals repository.RentalRepository,
	sink NotificationSink,
) MembershipService {
	return &membershipService{
		customers: customers,
		rentals:   rentals,
		sink:      sink,
		logger:    logger.WithService("membership"),
	}
}

// Evaluate walks the customer's completed orders newest first and counts the
// streak of good ones. A good order was returned on time (no overdue fee)
// and, if it was a cross-location return, to the store the customer declared.
func (s *membershipService) Evaluate(ctx context.Context, customerID int32) (bool, int, error) {
	orders, err := s.rentals.ListCompletedByCustomer(ctx, customerID)
	if err != nil {
		return false, 0, fmt.Errorf("failed to list completed orders for customer %d: %w", customerID, err)
	}

	streak := 0
	for _, order := range orders {
		if !goodCompletion(&order) {
			break
		}
		streak++
	}
	return streak >= vipStreakTarget, streak, nil
}

func (s *membershipService) Upgrade(ctx context.Context, customerID int32) (bool, error) {
	customer, err := s.customers.GetByID(ctx, customerID)
	if err != nil {
		return false, fmt.Errorf("failed to load customer %d: %w", customerID, err)
	}
	if customer.MemberLevel == domain.MemberLevelVIP {
		return false, nil
	}

	if err := s.customers.UpdateMemberLevel(ctx, customerID, domain.MemberLevelVIP); err != nil {
		return false, fmt.Errorf("failed to upgrade customer %d: %w", customerID, err)
	}
	customer.MemberLevel = domain.MemberLevelVIP

	s.logger.Info("customer upgraded to VIP", "customer_id", customerID)
	s.sink.MemberUpgraded(customer)
	return true, nil
}

// goodCompletion reports whether the order counts toward the VIP streak: no
// overdue fee, and the cross-location flag on record agrees with where the
// vehicle actually came back. Orders with no recorded return location are
// taken at their word.
func goodCompletion(order *domain.Rental) bool {
	if !order.OverdueFee.IsZero() {
		return false
	}
	if order.ActualReturnLocation == "" {
		return true
	}
	actualCross := !pricing.SameLocation(order.ActualReturnLocation, order.PickupLocation)
	return order.IsCrossLocationReturn == actualCross
}

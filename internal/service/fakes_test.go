package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"car-rental-backend/internal/domain"
)

// fakeState is an in-memory stand-in for the database, shared by the fake
// repositories so multi-step workflows see each other's writes.
type fakeState struct {
	vehicles  map[int32]*domain.Vehicle
	customers map[int32]*domain.Customer
	rentals   map[int32]*domain.Rental
	payments  []*domain.Payment

	nextRentalID  int32
	nextPaymentID int32
	seq           int

	vehicleLocks int
	rentalLocks  int
}

func newFakeState() *fakeState {
	return &fakeState{
		vehicles:  make(map[int32]*domain.Vehicle),
		customers: make(map[int32]*domain.Customer),
		rentals:   make(map[int32]*domain.Rental),
	}
}

func (s *fakeState) nextCreatedAt() time.Time {
	s.seq++
	return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(s.seq) * time.Minute)
}

func copyRental(rt *domain.Rental) *domain.Rental {
	cp := *rt
	if rt.StudentCard != nil {
		card := *rt.StudentCard
		cp.StudentCard = &card
	}
	return &cp
}

// fakeTx runs the workflow directly; rollback behavior is not simulated.
type fakeTx struct{}

func (fakeTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeVehicleRepo struct{ s *fakeState }

func (r *fakeVehicleRepo) Create(ctx context.Context, v *domain.Vehicle) error {
	r.s.vehicles[v.ID] = v
	return nil
}

func (r *fakeVehicleRepo) GetByID(ctx context.Context, id int32) (*domain.Vehicle, error) {
	v, ok := r.s.vehicles[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (r *fakeVehicleRepo) GetByIDForUpdate(ctx context.Context, id int32) (*domain.Vehicle, error) {
	r.s.vehicleLocks++
	return r.GetByID(ctx, id)
}

func (r *fakeVehicleRepo) Update(ctx context.Context, v *domain.Vehicle) error {
	cp := *v
	r.s.vehicles[v.ID] = &cp
	return nil
}

func (r *fakeVehicleRepo) UpdateStatus(ctx context.Context, id int32, status domain.VehicleStatus) error {
	v, ok := r.s.vehicles[id]
	if !ok {
		return domain.ErrNotFound
	}
	v.Status = status
	return nil
}

func (r *fakeVehicleRepo) ListByStatus(ctx context.Context, status domain.VehicleStatus, page, pageSize int32) ([]domain.Vehicle, int32, error) {
	var out []domain.Vehicle
	for _, v := range r.s.vehicles {
		if v.Status == status {
			out = append(out, *v)
		}
	}
	return out, int32(len(out)), nil
}

type fakeCustomerRepo struct{ s *fakeState }

func (r *fakeCustomerRepo) Create(ctx context.Context, c *domain.Customer) error {
	r.s.customers[c.ID] = c
	return nil
}

func (r *fakeCustomerRepo) GetByID(ctx context.Context, id int32) (*domain.Customer, error) {
	c, ok := r.s.customers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeCustomerRepo) Update(ctx context.Context, c *domain.Customer) error {
	cp := *c
	r.s.customers[c.ID] = &cp
	return nil
}

func (r *fakeCustomerRepo) UpdateMemberLevel(ctx context.Context, id int32, level domain.MemberLevel) error {
	c, ok := r.s.customers[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.MemberLevel = level
	return nil
}

type fakeRentalRepo struct{ s *fakeState }

func (r *fakeRentalRepo) Create(ctx context.Context, rt *domain.Rental) error {
	r.s.nextRentalID++
	rt.ID = r.s.nextRentalID
	rt.CreatedAt = r.s.nextCreatedAt()
	rt.UpdatedAt = rt.CreatedAt
	r.s.rentals[rt.ID] = copyRental(rt)
	return nil
}

func (r *fakeRentalRepo) GetByID(ctx context.Context, id int32) (*domain.Rental, error) {
	rt, ok := r.s.rentals[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyRental(rt), nil
}

func (r *fakeRentalRepo) GetByIDForUpdate(ctx context.Context, id int32) (*domain.Rental, error) {
	r.s.rentalLocks++
	return r.GetByID(ctx, id)
}

func (r *fakeRentalRepo) Update(ctx context.Context, rt *domain.Rental) error {
	if _, ok := r.s.rentals[rt.ID]; !ok {
		return domain.ErrNotFound
	}
	r.s.rentals[rt.ID] = copyRental(rt)
	return nil
}

func (r *fakeRentalRepo) ListByVehicleAndStatus(ctx context.Context, vehicleID int32, statuses []domain.RentalStatus) ([]domain.Rental, error) {
	var out []domain.Rental
	for _, rt := range r.s.rentals {
		if rt.VehicleID != vehicleID {
			continue
		}
		for _, st := range statuses {
			if rt.Status == st {
				out = append(out, *copyRental(rt))
				break
			}
		}
	}
	return out, nil
}

func (r *fakeRentalRepo) CountByVehicleAndStatus(ctx context.Context, vehicleID int32, status domain.RentalStatus, excludeID int32) (int32, error) {
	var count int32
	for _, rt := range r.s.rentals {
		if rt.VehicleID == vehicleID && rt.Status == status && rt.ID != excludeID {
			count++
		}
	}
	return count, nil
}

func (r *fakeRentalRepo) CountByCustomerAndStatus(ctx context.Context, customerID int32, statuses []domain.RentalStatus, excludeID int32) (int32, error) {
	var count int32
	for _, rt := range r.s.rentals {
		if rt.CustomerID != customerID || rt.ID == excludeID {
			continue
		}
		for _, st := range statuses {
			if rt.Status == st {
				count++
				break
			}
		}
	}
	return count, nil
}

func (r *fakeRentalRepo) ListCompletedByCustomer(ctx context.Context, customerID int32) ([]domain.Rental, error) {
	var out []domain.Rental
	for _, rt := range r.s.rentals {
		if rt.CustomerID == customerID && rt.Status == domain.RentalStatusCompleted && rt.ActualReturnDate != nil {
			out = append(out, *copyRental(rt))
		}
	}
	// newest first
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].CreatedAt.After(out[i].CreatedAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (r *fakeRentalRepo) ListDueForActivation(ctx context.Context, today time.Time) ([]domain.Rental, error) {
	var out []domain.Rental
	for _, rt := range r.s.rentals {
		if rt.Status == domain.RentalStatusPending && !rt.StartDate.After(today) {
			out = append(out, *copyRental(rt))
		}
	}
	return out, nil
}

func (r *fakeRentalRepo) ListPastDue(ctx context.Context, today time.Time) ([]domain.Rental, error) {
	var out []domain.Rental
	for _, rt := range r.s.rentals {
		if rt.Status == domain.RentalStatusOngoing && rt.EndDate.Before(today) {
			out = append(out, *copyRental(rt))
		}
	}
	return out, nil
}

type fakePaymentRepo struct{ s *fakeState }

func (r *fakePaymentRepo) Create(ctx context.Context, p *domain.Payment) error {
	r.s.nextPaymentID++
	p.ID = r.s.nextPaymentID
	p.CreatedAt = r.s.nextCreatedAt()
	cp := *p
	r.s.payments = append(r.s.payments, &cp)
	return nil
}

func (r *fakePaymentRepo) ListByRental(ctx context.Context, rentalID int32) ([]domain.Payment, error) {
	var out []domain.Payment
	for _, p := range r.s.payments {
		if p.RentalID == rentalID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) SumByRental(ctx context.Context, rentalID int32, txType domain.TransactionType, status domain.PaymentStatus) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, p := range r.s.payments {
		if p.RentalID == rentalID && p.TransactionType == txType && p.Status == status {
			total = total.Add(p.Amount)
		}
	}
	return total, nil
}

func (r *fakePaymentRepo) FirstPaidCharge(ctx context.Context, rentalID int32) (*domain.Payment, error) {
	for _, p := range r.s.payments {
		if p.RentalID == rentalID && p.TransactionType == domain.TransactionTypeCharge && p.Status == domain.PaymentStatusPaid {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

func (c *fixedClock) Today() time.Time {
	return time.Date(c.now.Year(), c.now.Month(), c.now.Day(), 0, 0, 0, 0, time.UTC)
}

// recordingSink captures lifecycle notifications for assertions.
type recordingSink struct {
	completed []int32
	cancelled []int32
	upgraded  []int32
}

func (s *recordingSink) OrderCompleted(c *domain.Customer, rt *domain.Rental) {
	s.completed = append(s.completed, rt.ID)
}

func (s *recordingSink) OrderCancelled(c *domain.Customer, rt *domain.Rental, reason string) {
	s.cancelled = append(s.cancelled, rt.ID)
}

func (s *recordingSink) MemberUpgraded(c *domain.Customer) {
	s.upgraded = append(s.upgraded, c.ID)
}

type testEnv struct {
	state *fakeState
	clock *fixedClock
	sink  *recordingSink

	ledger     LedgerService
	settlement SettlementService
	membership MembershipService
	rental     RentalService
}

func newTestEnv(stores ...string) *testEnv {
	state := newFakeState()
	clock := &fixedClock{now: time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)}
	sink := &recordingSink{}

	rentals := &fakeRentalRepo{s: state}
	vehicles := &fakeVehicleRepo{s: state}
	customers := &fakeCustomerRepo{s: state}
	payments := &fakePaymentRepo{s: state}

	settlement := NewSettlementService(rentals, payments, clock)
	ledger := NewLedgerService(payments, rentals, customers, settlement, clock)
	membership := NewMembershipService(customers, rentals, sink)
	rental := NewRentalService(fakeTx{}, rentals, vehicles, customers, payments,
		ledger, settlement, membership, sink, clock, stores)

	return &testEnv{
		state:      state,
		clock:      clock,
		sink:       sink,
		ledger:     ledger,
		settlement: settlement,
		membership: membership,
		rental:     rental,
	}
}

func (e *testEnv) addVehicle(id int32, rate string, value string) *domain.Vehicle {
	v := &domain.Vehicle{
		ID:             id,
		LicensePlate:   "TEST-001",
		DailyRate:      decimal.RequireFromString(rate),
		EstimatedValue: decimal.RequireFromString(value),
		Status:         domain.VehicleStatusAvailable,
	}
	e.state.vehicles[id] = v
	return v
}

func (e *testEnv) addCustomer(id int32, level domain.MemberLevel, userID *int32) *domain.Customer {
	c := &domain.Customer{
		ID:          id,
		UserID:      userID,
		Name:        "Test Customer",
		Email:       "customer@example.com",
		MemberLevel: level,
		CreditScore: 100,
	}
	e.state.customers[id] = c
	return c
}

func userIDPtr(id int32) *int32 { return &id }

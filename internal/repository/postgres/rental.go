package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"car-rental-backend/internal/domain"
	"car-rental-backend/internal/repository"
)

type rentalRepository struct {
	db *sql.DB
}

func NewRentalRepository(db *sql.DB) repository.RentalRepository {
	return &rentalRepository{db: db}
}

const rentalColumns = `id, customer_id, vehicle_id, start_date, end_date, actual_return_date,
	pickup_location, return_location, actual_return_location, is_cross_location_return,
	total_amount, deposit, cross_location_fee, overdue_fee, deposit_method,
	student_id, student_name, student_school, student_major, card_verified, card_returned,
	status, settlement_status, settled_at, amount_paid, amount_refunded, notes, created_at, updated_at`

func (r *rentalRepository) Create(ctx context.Context, rt *domain.Rental) error {
	query := `INSERT INTO rentals (customer_id, vehicle_id, start_date, end_date, actual_return_date,
	              pickup_location, return_location, actual_return_location, is_cross_location_return,
	              total_amount, deposit, cross_location_fee, overdue_fee, deposit_method,
	              student_id, student_name, student_school, student_major, card_verified, card_returned,
	              status, settlement_status, settled_at, amount_paid, amount_refunded, notes, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
	                  $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28)
	          RETURNING id`
	now := time.Now()
	card := rt.StudentCard
	if card == nil {
		card = &domain.StudentCard{}
	}
	return q(ctx, r.db).QueryRowContext(ctx, query,
		rt.CustomerID, rt.VehicleID, rt.StartDate, rt.EndDate, rt.ActualReturnDate,
		rt.PickupLocation, nullString(rt.ReturnLocation), nullString(rt.ActualReturnLocation), rt.IsCrossLocationReturn,
		rt.TotalAmount, rt.Deposit, rt.CrossLocationFee, rt.OverdueFee, rt.DepositMethod,
		nullString(card.StudentID), nullString(card.Name), nullString(card.School), nullString(card.Major),
		card.Verified, card.Returned,
		rt.Status, rt.SettlementStatus, rt.SettledAt, rt.AmountPaid, rt.AmountRefunded,
		nullString(rt.Notes), now, now,
	).Scan(&rt.ID)
}

func (r *rentalRepository) GetByID(ctx context.Context, id int32) (*domain.Rental, error) {
	return r.getByID(ctx, `SELECT `+rentalColumns+` FROM rentals WHERE id = $1`, id)
}

// GetByIDForUpdate takes a row lock so concurrent return/cancel/refund
// workflows on one order run one at a time. Only meaningful inside RunInTx.
func (r *rentalRepository) GetByIDForUpdate(ctx context.Context, id int32) (*domain.Rental, error) {
	return r.getByID(ctx, `SELECT `+rentalColumns+` FROM rentals WHERE id = $1 FOR UPDATE`, id)
}

func (r *rentalRepository) getByID(ctx context.Context, query string, id int32) (*domain.Rental, error) {
	rt, err := scanRental(q(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rt, nil
}

func (r *rentalRepository) Update(ctx context.Context, rt *domain.Rental) error {
	query := `UPDATE rentals SET start_date=$1, end_date=$2, actual_return_date=$3,
	              pickup_location=$4, return_location=$5, actual_return_location=$6, is_cross_location_return=$7,
	              total_amount=$8, deposit=$9, cross_location_fee=$10, overdue_fee=$11, deposit_method=$12,
	              card_verified=$13, card_returned=$14,
	              status=$15, settlement_status=$16, settled_at=$17, amount_paid=$18, amount_refunded=$19,
	              notes=$20, updated_at=$21
	          WHERE id=$22`
	cardVerified, cardReturned := false, false
	if rt.StudentCard != nil {
		cardVerified, cardReturned = rt.StudentCard.Verified, rt.StudentCard.Returned
	}
	_, err := q(ctx, r.db).ExecContext(ctx, query,
		rt.StartDate, rt.EndDate, rt.ActualReturnDate,
		rt.PickupLocation, nullString(rt.ReturnLocation), nullString(rt.ActualReturnLocation), rt.IsCrossLocationReturn,
		rt.TotalAmount, rt.Deposit, rt.CrossLocationFee, rt.OverdueFee, rt.DepositMethod,
		cardVerified, cardReturned,
		rt.Status, rt.SettlementStatus, rt.SettledAt, rt.AmountPaid, rt.AmountRefunded,
		nullString(rt.Notes), time.Now(), rt.ID,
	)
	return err
}

func (r *rentalRepository) ListByVehicleAndStatus(ctx context.Context, vehicleID int32, statuses []domain.RentalStatus) ([]domain.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE vehicle_id = $1 AND status = ANY($2) ORDER BY start_date`
	rows, err := q(ctx, r.db).QueryContext(ctx, query, vehicleID, pq.Array(statusStrings(statuses)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRentals(rows)
}

func (r *rentalRepository) CountByVehicleAndStatus(ctx context.Context, vehicleID int32, status domain.RentalStatus, excludeID int32) (int32, error) {
	var count int32
	query := `SELECT count(*) FROM rentals WHERE vehicle_id = $1 AND status = $2 AND id != $3`
	err := q(ctx, r.db).QueryRowContext(ctx, query, vehicleID, status, excludeID).Scan(&count)
	return count, err
}

func (r *rentalRepository) CountByCustomerAndStatus(ctx context.Context, customerID int32, statuses []domain.RentalStatus, excludeID int32) (int32, error) {
	var count int32
	query := `SELECT count(*) FROM rentals WHERE customer_id = $1 AND status = ANY($2) AND id != $3`
	err := q(ctx, r.db).QueryRowContext(ctx, query, customerID, pq.Array(statusStrings(statuses)), excludeID).Scan(&count)
	return count, err
}

func (r *rentalRepository) ListCompletedByCustomer(ctx context.Context, customerID int32) ([]domain.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals
	          WHERE customer_id = $1 AND status = $2 AND actual_return_date IS NOT NULL
	          ORDER BY created_at DESC`
	rows, err := q(ctx, r.db).QueryContext(ctx, query, customerID, domain.RentalStatusCompleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRentals(rows)
}

func (r *rentalRepository) ListDueForActivation(ctx context.Context, today time.Time) ([]domain.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE status = $1 AND start_date <= $2 ORDER BY start_date`
	rows, err := q(ctx, r.db).QueryContext(ctx, query, domain.RentalStatusPending, today)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRentals(rows)
}

func (r *rentalRepository) ListPastDue(ctx context.Context, today time.Time) ([]domain.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE status = $1 AND end_date < $2 ORDER BY end_date`
	rows, err := q(ctx, r.db).QueryContext(ctx, query, domain.RentalStatusOngoing, today)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRentals(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRental(row rowScanner) (*domain.Rental, error) {
	rt := &domain.Rental{}
	var (
		actualReturnDate                            sql.NullTime
		returnLocation, actualReturnLocation, notes sql.NullString
		studentID, studentName, school, major       sql.NullString
		cardVerified, cardReturned                  bool
		settledAt                                   sql.NullTime
	)
	err := row.Scan(
		&rt.ID, &rt.CustomerID, &rt.VehicleID, &rt.StartDate, &rt.EndDate, &actualReturnDate,
		&rt.PickupLocation, &returnLocation, &actualReturnLocation, &rt.IsCrossLocationReturn,
		&rt.TotalAmount, &rt.Deposit, &rt.CrossLocationFee, &rt.OverdueFee, &rt.DepositMethod,
		&studentID, &studentName, &school, &major, &cardVerified, &cardReturned,
		&rt.Status, &rt.SettlementStatus, &settledAt, &rt.AmountPaid, &rt.AmountRefunded,
		&notes, &rt.CreatedAt, &rt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if actualReturnDate.Valid {
		rt.ActualReturnDate = &actualReturnDate.Time
	}
	if settledAt.Valid {
		rt.SettledAt = &settledAt.Time
	}
	rt.ReturnLocation = returnLocation.String
	rt.ActualReturnLocation = actualReturnLocation.String
	rt.Notes = notes.String
	if studentID.Valid {
		rt.StudentCard = &domain.StudentCard{
			StudentID: studentID.String,
			Name:      studentName.String,
			School:    school.String,
			Major:     major.String,
			Verified:  cardVerified,
			Returned:  cardReturned,
		}
	}
	return rt, nil
}

func collectRentals(rows *sql.Rows) ([]domain.Rental, error) {
	var rentals []domain.Rental
	for rows.Next() {
		rt, err := scanRental(rows)
		if err != nil {
			return nil, err
		}
		rentals = append(rentals, *rt)
	}
	return rentals, rows.Err()
}

func statusStrings(statuses []domain.RentalStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

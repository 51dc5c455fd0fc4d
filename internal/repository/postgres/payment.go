package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"car-rental-backend/internal/domain"
	"car-rental-backend/internal/repository"
)

type paymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) repository.PaymentRepository {
	return &paymentRepository{db: db}
}

const paymentColumns = `id, rental_id, user_id, amount, payment_method, transaction_type, status, description, transaction_id, paid_at, created_at`

func (r *paymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	query := `INSERT INTO payments (rental_id, user_id, amount, payment_method, transaction_type, status, description, transaction_id, paid_at, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`
	return q(ctx, r.db).QueryRowContext(ctx, query,
		p.RentalID, p.UserID, p.Amount, p.Method, p.TransactionType, p.Status,
		nullString(p.Description), p.TransactionID, p.PaidAt, time.Now(),
	).Scan(&p.ID)
}

func (r *paymentRepository) ListByRental(ctx context.Context, rentalID int32) ([]domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE rental_id = $1 ORDER BY created_at`
	rows, err := q(ctx, r.db).QueryContext(ctx, query, rentalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

func (r *paymentRepository) SumByRental(ctx context.Context, rentalID int32, txType domain.TransactionType, status domain.PaymentStatus) (decimal.Decimal, error) {
	var total decimal.Decimal
	query := `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE rental_id = $1 AND transaction_type = $2 AND status = $3`
	err := q(ctx, r.db).QueryRowContext(ctx, query, rentalID, txType, status).Scan(&total)
	return total, err
}

func (r *paymentRepository) FirstPaidCharge(ctx context.Context, rentalID int32) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments
	          WHERE rental_id = $1 AND transaction_type = $2 AND status = $3
	          ORDER BY created_at LIMIT 1`
	p, err := scanPayment(q(ctx, r.db).QueryRowContext(ctx, query, rentalID, domain.TransactionTypeCharge, domain.PaymentStatusPaid))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func scanPayment(row rowScanner) (*domain.Payment, error) {
	p := &domain.Payment{}
	var (
		userID      sql.NullInt32
		description sql.NullString
		paidAt      sql.NullTime
	)
	err := row.Scan(
		&p.ID, &p.RentalID, &userID, &p.Amount, &p.Method, &p.TransactionType,
		&p.Status, &description, &p.TransactionID, &paidAt, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if userID.Valid {
		p.UserID = &userID.Int32
	}
	if paidAt.Valid {
		p.PaidAt = &paidAt.Time
	}
	p.Description = description.String
	return p, nil
}

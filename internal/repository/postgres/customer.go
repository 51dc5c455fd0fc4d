package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"car-rental-backend/internal/domain"
	"car-rental-backend/internal/repository"
)

type customerRepository struct {
	db *sql.DB
}

func NewCustomerRepository(db *sql.DB) repository.CustomerRepository {
	return &customerRepository{db: db}
}

const customerColumns = `id, user_id, name, phone, email, id_card, license_number, license_type, member_level, credit_score, created_at, updated_at`

func (r *customerRepository) Create(ctx context.Context, c *domain.Customer) error {
	query := `INSERT INTO customers (user_id, name, phone, email, id_card, license_number, license_type, member_level, credit_score, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`
	now := time.Now()
	return q(ctx, r.db).QueryRowContext(ctx, query,
		c.UserID, c.Name, c.Phone, c.Email, c.IDCard, c.LicenseNumber,
		c.LicenseType, c.MemberLevel, c.CreditScore, now, now,
	).Scan(&c.ID)
}

func (r *customerRepository) GetByID(ctx context.Context, id int32) (*domain.Customer, error) {
	c := &domain.Customer{}
	var userID sql.NullInt32
	var email sql.NullString
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`
	err := q(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&c.ID, &userID, &c.Name, &c.Phone, &email, &c.IDCard,
		&c.LicenseNumber, &c.LicenseType, &c.MemberLevel, &c.CreditScore,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if userID.Valid {
		c.UserID = &userID.Int32
	}
	c.Email = email.String
	return c, nil
}

func (r *customerRepository) Update(ctx context.Context, c *domain.Customer) error {
	query := `UPDATE customers SET user_id=$1, name=$2, phone=$3, email=$4, id_card=$5, license_number=$6,
	          license_type=$7, member_level=$8, credit_score=$9, updated_at=$10 WHERE id=$11`
	_, err := q(ctx, r.db).ExecContext(ctx, query,
		c.UserID, c.Name, c.Phone, c.Email, c.IDCard, c.LicenseNumber,
		c.LicenseType, c.MemberLevel, c.CreditScore, time.Now(), c.ID,
	)
	return err
}

func (r *customerRepository) UpdateMemberLevel(ctx context.Context, id int32, level domain.MemberLevel) error {
	query := `UPDATE customers SET member_level=$1, updated_at=$2 WHERE id=$3`
	_, err := q(ctx, r.db).ExecContext(ctx, query, level, time.Now(), id)
	return err
}

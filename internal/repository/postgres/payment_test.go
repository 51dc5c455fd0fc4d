package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"car-rental-backend/internal/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var paymentCols = []string{
	"id", "rental_id", "user_id", "amount", "payment_method", "transaction_type",
	"status", "description", "transaction_id", "paid_at", "created_at",
}

func TestPaymentRepository_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPaymentRepository(db)

	now := time.Now()
	userID := int32(11)
	payment := &domain.Payment{
		RentalID:        1,
		UserID:          &userID,
		Amount:          dec("600"),
		Method:          domain.PaymentMethodAlipay,
		TransactionType: domain.TransactionTypeCharge,
		Status:          domain.PaymentStatusPaid,
		Description:     "rental charge",
		TransactionID:   "TXN-test",
		PaidAt:          &now,
	}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO payments")).
		WithArgs(int64(1), int64(11), sqlmock.AnyArg(), "ALIPAY", "CHARGE", "PAID",
			"rental charge", "TXN-test", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	require.NoError(t, repo.Create(context.Background(), payment))
	assert.Equal(t, int32(7), payment.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_ListByRental(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPaymentRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM payments WHERE rental_id = $1")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(paymentCols).
			AddRow(1, 1, 11, "600.00", "ALIPAY", "CHARGE", "PAID", "rental charge", "TXN-a", now, now).
			AddRow(2, 1, nil, "100.00", "ALIPAY", "REFUND", "REFUNDED", nil, "REF-b", now, now))

	payments, err := repo.ListByRental(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, payments, 2)

	require.NotNil(t, payments[0].UserID)
	assert.Equal(t, int32(11), *payments[0].UserID)
	assert.Equal(t, "600.00", payments[0].Amount.StringFixed(2))
	assert.Equal(t, domain.TransactionTypeCharge, payments[0].TransactionType)

	assert.Nil(t, payments[1].UserID)
	assert.Empty(t, payments[1].Description)
	assert.Equal(t, domain.TransactionTypeRefund, payments[1].TransactionType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_SumByRental(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPaymentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COALESCE(SUM(amount), 0) FROM payments")).
		WithArgs(int64(1), "CHARGE", "PAID").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("750.50"))

	total, err := repo.SumByRental(context.Background(), 1,
		domain.TransactionTypeCharge, domain.PaymentStatusPaid)
	require.NoError(t, err)
	assert.Equal(t, "750.50", total.StringFixed(2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPaymentRepository_FirstPaidCharge(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewPaymentRepository(db)

		now := time.Now()
		mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at LIMIT 1")).
			WithArgs(int64(1), "CHARGE", "PAID").
			WillReturnRows(sqlmock.NewRows(paymentCols).
				AddRow(3, 1, 42, "600.00", "BANK", "CHARGE", "PAID", nil, "TXN-c", now, now))

		payment, err := repo.FirstPaidCharge(context.Background(), 1)
		require.NoError(t, err)
		require.NotNil(t, payment)
		require.NotNil(t, payment.UserID)
		assert.Equal(t, int32(42), *payment.UserID)
		assert.Equal(t, domain.PaymentMethodBank, payment.Method)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no rows means no payer of record", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewPaymentRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at LIMIT 1")).
			WithArgs(int64(1), "CHARGE", "PAID").
			WillReturnRows(sqlmock.NewRows(paymentCols))

		payment, err := repo.FirstPaidCharge(context.Background(), 1)
		require.NoError(t, err)
		assert.Nil(t, payment)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

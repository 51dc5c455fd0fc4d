package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"car-rental-backend/internal/domain"
)

var vehicleCols = []string{
	"id", "license_plate", "brand", "model", "vehicle_type", "color", "seats",
	"daily_rate", "estimated_value", "status", "created_at", "updated_at",
}

func addVehicleRow(rows *sqlmock.Rows, id int32, status string) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(
		id, "ABC-123", "Toyota", "Corolla", "SEDAN", "White", 5,
		"200.00", "100000.00", status, now, now,
	)
}

func TestVehicleRepository_GetByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewVehicleRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta("FROM vehicles WHERE id = $1")).
			WithArgs(int64(3)).
			WillReturnRows(addVehicleRow(sqlmock.NewRows(vehicleCols), 3, "AVAILABLE"))

		vehicle, err := repo.GetByID(context.Background(), 3)
		require.NoError(t, err)
		assert.Equal(t, int32(3), vehicle.ID)
		assert.Equal(t, domain.VehicleStatusAvailable, vehicle.Status)
		assert.Equal(t, "200.00", vehicle.DailyRate.StringFixed(2))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewVehicleRepository(db)

		mock.ExpectQuery(regexp.QuoteMeta("FROM vehicles WHERE id = $1")).
			WithArgs(int64(99)).
			WillReturnRows(sqlmock.NewRows(vehicleCols))

		_, err := repo.GetByID(context.Background(), 99)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestVehicleRepository_GetByIDForUpdate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewVehicleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM vehicles WHERE id = $1 FOR UPDATE")).
		WithArgs(int64(3)).
		WillReturnRows(addVehicleRow(sqlmock.NewRows(vehicleCols), 3, "AVAILABLE"))

	vehicle, err := repo.GetByIDForUpdate(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int32(3), vehicle.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVehicleRepository_UpdateStatus(t *testing.T) {
	db, mock := newMock(t)
	repo := NewVehicleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE vehicles SET status=$1")).
		WithArgs("RENTED", sqlmock.AnyArg(), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), 3, domain.VehicleStatusRented))
	assert.NoError(t, mock.ExpectationsWereMet())
}

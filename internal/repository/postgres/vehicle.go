package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"car-rental-backend/internal/domain"
	"car-rental-backend/internal/repository"
)

type vehicleRepository struct {
	db *sql.DB
}

func NewVehicleRepository(db *sql.DB) repository.VehicleRepository {
	return &vehicleRepository{db: db}
}

const vehicleColumns = `id, license_plate, brand, model, vehicle_type, color, seats, daily_rate, estimated_value, status, created_at, updated_at`

func (r *vehicleRepository) Create(ctx context.Context, v *domain.Vehicle) error {
	query := `INSERT INTO vehicles (license_plate, brand, model, vehicle_type, color, seats, daily_rate, estimated_value, status, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`
	now := time.Now()
	return q(ctx, r.db).QueryRowContext(ctx, query,
		v.LicensePlate, v.Brand, v.Model, v.VehicleType, v.Color, v.Seats,
		v.DailyRate, v.EstimatedValue, v.Status, now, now,
	).Scan(&v.ID)
}

func (r *vehicleRepository) GetByID(ctx context.Context, id int32) (*domain.Vehicle, error) {
	return r.getByID(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE id = $1`, id)
}

// GetByIDForUpdate takes a row lock so two transactions cannot both book the
// same vehicle. Only meaningful inside RunInTx.
func (r *vehicleRepository) GetByIDForUpdate(ctx context.Context, id int32) (*domain.Vehicle, error) {
	return r.getByID(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE id = $1 FOR UPDATE`, id)
}

func (r *vehicleRepository) getByID(ctx context.Context, query string, id int32) (*domain.Vehicle, error) {
	v := &domain.Vehicle{}
	err := q(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&v.ID, &v.LicensePlate, &v.Brand, &v.Model, &v.VehicleType, &v.Color,
		&v.Seats, &v.DailyRate, &v.EstimatedValue, &v.Status, &v.CreatedAt, &v.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (r *vehicleRepository) Update(ctx context.Context, v *domain.Vehicle) error {
	query := `UPDATE vehicles SET license_plate=$1, brand=$2, model=$3, vehicle_type=$4, color=$5, seats=$6,
	          daily_rate=$7, estimated_value=$8, status=$9, updated_at=$10 WHERE id=$11`
	_, err := q(ctx, r.db).ExecContext(ctx, query,
		v.LicensePlate, v.Brand, v.Model, v.VehicleType, v.Color, v.Seats,
		v.DailyRate, v.EstimatedValue, v.Status, time.Now(), v.ID,
	)
	return err
}

func (r *vehicleRepository) UpdateStatus(ctx context.Context, id int32, status domain.VehicleStatus) error {
	query := `UPDATE vehicles SET status=$1, updated_at=$2 WHERE id=$3`
	_, err := q(ctx, r.db).ExecContext(ctx, query, status, time.Now(), id)
	return err
}

func (r *vehicleRepository) ListByStatus(ctx context.Context, status domain.VehicleStatus, page, pageSize int32) ([]domain.Vehicle, int32, error) {
	offset := (page - 1) * pageSize

	var count int32
	countQuery := `SELECT count(*) FROM vehicles WHERE status = $1`
	if err := q(ctx, r.db).QueryRowContext(ctx, countQuery, status).Scan(&count); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE status = $1 ORDER BY license_plate LIMIT $2 OFFSET $3`
	rows, err := q(ctx, r.db).QueryContext(ctx, query, status, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var vehicles []domain.Vehicle
	for rows.Next() {
		var v domain.Vehicle
		if err := rows.Scan(
			&v.ID, &v.LicensePlate, &v.Brand, &v.Model, &v.VehicleType, &v.Color,
			&v.Seats, &v.DailyRate, &v.EstimatedValue, &v.Status, &v.CreatedAt, &v.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		vehicles = append(vehicles, v)
	}
	return vehicles, count, rows.Err()
}

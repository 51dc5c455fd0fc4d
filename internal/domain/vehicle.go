package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type VehicleStatus string

const (
	VehicleStatusAvailable   VehicleStatus = "AVAILABLE"
	VehicleStatusRented      VehicleStatus = "RENTED"
	VehicleStatusMaintenance VehicleStatus = "MAINTENANCE"
)

type Vehicle struct {
	ID           int32           `json:"id"`
	LicensePlate string          `json:"license_plate"`
	Brand        string          `json:"brand"`
	Model        string          `json:"model"`
	VehicleType  string          `json:"vehicle_type"`
	Color        string          `json:"color"`
	Seats        int32           `json:"seats"`
	DailyRate    decimal.Decimal `json:"daily_rate"`
	// EstimatedValue is the appraised market value used for deposit
	// calculation. Zero means unknown; pricing falls back to an estimate
	// derived from the daily rate.
	EstimatedValue decimal.Decimal `json:"estimated_value"`
	Status         VehicleStatus   `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

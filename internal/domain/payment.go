package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusFailed   PaymentStatus = "FAILED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

type TransactionType string

const (
	TransactionTypeCharge TransactionType = "CHARGE"
	TransactionTypeRefund TransactionType = "REFUND"
)

type PaymentMethod string

const (
	PaymentMethodAlipay PaymentMethod = "ALIPAY"
	PaymentMethodWechat PaymentMethod = "WECHAT"
	PaymentMethodBank   PaymentMethod = "BANK"
	PaymentMethodCash   PaymentMethod = "CASH"
)

// Payment is an append-only ledger entry for a rental order. Records are
// never updated or deleted once created.
type Payment struct {
	ID       int32 `json:"id"`
	RentalID int32 `json:"rental_id"`
	// UserID is the paying (or refunded) account, when one is known.
	UserID          *int32          `json:"user_id,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	Method          PaymentMethod   `json:"method"`
	TransactionType TransactionType `json:"transaction_type"`
	Status          PaymentStatus   `json:"status"`
	Description     string          `json:"description,omitempty"`
	TransactionID   string          `json:"transaction_id"`
	PaidAt          *time.Time      `json:"paid_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

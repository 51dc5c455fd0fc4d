package domain

import "time"

type MemberLevel string

const (
	MemberLevelNormal MemberLevel = "NORMAL"
	MemberLevelVIP    MemberLevel = "VIP"
)

type Customer struct {
	ID int32 `json:"id"`
	// UserID links the customer to a login account when one exists. It is
	// the refund recipient of last resort.
	UserID        *int32      `json:"user_id,omitempty"`
	Name          string      `json:"name"`
	Phone         string      `json:"phone"`
	Email         string      `json:"email"`
	IDCard        string      `json:"id_card"`
	LicenseNumber string      `json:"license_number"`
	LicenseType   string      `json:"license_type"`
	MemberLevel   MemberLevel `json:"member_level"`
	// CreditScore is a 0-100 risk score, 100 for new customers. Higher
	// score means a smaller deposit.
	CreditScore int32     `json:"credit_score"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

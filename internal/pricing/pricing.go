package pricing

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"car-rental-backend/internal/domain"
)

var (
	vipDiscountRate = decimal.NewFromFloat(0.10)

	baseDepositRate    = decimal.NewFromFloat(0.03)
	durationDailyStep  = decimal.NewFromFloat(0.01)
	maxDepositRate     = decimal.NewFromFloat(0.15)
	minDepositDays     = decimal.NewFromInt(3)
	estimatedValueDays = decimal.NewFromInt(365)

	crossLocationRate   = decimal.NewFromFloat(0.5)
	offNetworkSurcharge = decimal.NewFromFloat(1.5)
)

// durationCapDays caps the deposit duration factor: day 1 contributes 1.00,
// day 30 contributes 1.29, longer rentals add no further risk premium.
const durationCapDays = 30

// RentalDays counts the booked duration including both the start and the
// end date, so a same-day rental is 1 day.
func RentalDays(start, end time.Time) int {
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	end = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start).Hours()/24) + 1
}

// BaseCharge computes the base rental charge: daily rate times inclusive
// rental days, minus 10% for VIP members. Money is rounded half-up to two
// decimal places.
func BaseCharge(level domain.MemberLevel, dailyRate decimal.Decimal, start, end time.Time) (decimal.Decimal, error) {
	if end.Before(start) {
		return decimal.Zero, domain.ErrInvalidDateRange
	}
	days := decimal.NewFromInt(int64(RentalDays(start, end)))
	base := dailyRate.Mul(days)
	if level == domain.MemberLevelVIP {
		base = base.Sub(base.Mul(vipDiscountRate))
	}
	return base.Round(2), nil
}

// DepositInput carries everything the deposit policy looks at. The prior
// order count excludes the order being priced.
type DepositInput struct {
	Method          domain.DepositMethod
	MemberLevel     domain.MemberLevel
	CreditScore     int32
	PriorOrderCount int32
	DailyRate       decimal.Decimal
	EstimatedValue  decimal.Decimal
	RentalDays      int
}

// DepositBreakdown exposes every intermediate value of the deposit
// calculation for auditability.
type DepositBreakdown struct {
	VehicleValue   decimal.Decimal `json:"vehicle_value"`
	BaseDeposit    decimal.Decimal `json:"base_deposit"`
	RentalDays     int             `json:"rental_days"`
	DurationFactor decimal.Decimal `json:"duration_factor"`
	CreditScore    int32           `json:"credit_score"`
	CreditFactor   decimal.Decimal `json:"credit_factor"`
	MinDeposit     decimal.Decimal `json:"min_deposit"`
	MaxDeposit     decimal.Decimal `json:"max_deposit"`
	FinalDeposit   decimal.Decimal `json:"final_deposit"`
	Reason         string          `json:"reason,omitempty"`
}

// waiverRule is one terminal zero-deposit policy. Rules are evaluated in
// declaration order; the first match wins.
type waiverRule struct {
	reason  string
	applies func(DepositInput) bool
}

var waiverRules = []waiverRule{
	{
		reason: "student-card collateral",
		applies: func(in DepositInput) bool {
			return in.Method == domain.DepositMethodStudentCard
		},
	},
	{
		reason: "VIP member",
		applies: func(in DepositInput) bool {
			return in.MemberLevel == domain.MemberLevelVIP || in.Method == domain.DepositMethodVIPFree
		},
	},
	{
		reason: "first rental",
		applies: func(in DepositInput) bool {
			return in.Method == domain.DepositMethodFirstFree || in.PriorOrderCount == 0
		},
	},
}

// DynamicDeposit computes the risk-based security deposit.
//
// Waivers (student card, VIP, first rental) are terminal and yield zero.
// Otherwise:
//
//	base            = estimated_value * 0.03
//	duration_factor = 1 + (min(days, 30) - 1) * 0.01
//	credit_factor   = 2.00 - credit_score/100
//	deposit         = clamp(base * duration_factor * credit_factor,
//	                        daily_rate * 3, estimated_value * 0.15)
//
// A missing (zero) estimated value is replaced by daily_rate * 365.
func DynamicDeposit(in DepositInput) (decimal.Decimal, DepositBreakdown) {
	value := in.EstimatedValue
	if value.IsZero() {
		value = in.DailyRate.Mul(estimatedValueDays)
	}

	for _, rule := range waiverRules {
		if rule.applies(in) {
			return decimal.Zero, DepositBreakdown{
				VehicleValue:   value.Round(2),
				RentalDays:     in.RentalDays,
				DurationFactor: decimal.NewFromInt(1),
				CreditScore:    clampScore(in.CreditScore),
				CreditFactor:   decimal.NewFromInt(1),
				FinalDeposit:   decimal.Zero,
				Reason:         rule.reason,
			}
		}
	}

	base := value.Mul(baseDepositRate)

	cappedDays := in.RentalDays
	if cappedDays > durationCapDays {
		cappedDays = durationCapDays
	}
	if cappedDays < 1 {
		cappedDays = 1
	}
	durationFactor := decimal.NewFromInt(1).
		Add(decimal.NewFromInt(int64(cappedDays - 1)).Mul(durationDailyStep))

	score := clampScore(in.CreditScore)
	creditFactor := decimal.NewFromInt(2).
		Sub(decimal.NewFromInt(int64(score)).Div(decimal.NewFromInt(100)))

	final := base.Mul(durationFactor).Mul(creditFactor)

	min := in.DailyRate.Mul(minDepositDays)
	max := value.Mul(maxDepositRate)
	if final.LessThan(min) {
		final = min
	}
	if final.GreaterThan(max) {
		final = max
	}

	breakdown := DepositBreakdown{
		VehicleValue:   value.Round(2),
		BaseDeposit:    base.Round(2),
		RentalDays:     in.RentalDays,
		DurationFactor: durationFactor.Round(2),
		CreditScore:    score,
		CreditFactor:   creditFactor.Round(2),
		MinDeposit:     min.Round(2),
		MaxDeposit:     max.Round(2),
		FinalDeposit:   final.Round(2),
	}
	return final.Round(2), breakdown
}

func clampScore(score int32) int32 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// CrossLocationFee prices a cross-location return. A nonzero declared fee
// wins; otherwise the default is half the daily rate, with a 1.5x surcharge
// when the return location is outside the known store network.
func CrossLocationFee(dailyRate decimal.Decimal, isCross bool, declaredFee decimal.Decimal, inNetwork bool) decimal.Decimal {
	if !isCross {
		return decimal.Zero
	}
	if !declaredFee.IsZero() {
		return declaredFee.Round(2)
	}
	fee := dailyRate.Mul(crossLocationRate)
	if !inNetwork {
		fee = fee.Mul(offNetworkSurcharge)
	}
	return fee.Round(2)
}

// OverdueFee charges one daily rate per day the actual return ran past the
// planned end date.
func OverdueFee(dailyRate decimal.Decimal, plannedEnd, actualReturn time.Time) decimal.Decimal {
	if !actualReturn.After(plannedEnd) {
		return decimal.Zero
	}
	lateDays := RentalDays(plannedEnd, actualReturn) - 1
	return dailyRate.Mul(decimal.NewFromInt(int64(lateDays))).Round(2)
}

// SameLocation compares two store names ignoring surrounding whitespace.
func SameLocation(a, b string) bool {
	return strings.TrimSpace(a) == strings.TrimSpace(b)
}

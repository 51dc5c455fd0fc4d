package domain

import "errors"

// Error taxonomy of the rental core. All are recoverable at the caller and
// surfaced as user-facing messages; none should crash the process.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidDateRange   = errors.New("end date must not be before start date")
	ErrDateConflict       = errors.New("vehicle already booked for an overlapping date range")
	ErrVehicleUnavailable = errors.New("vehicle is not available for rental")
	ErrInvalidReturnDate  = errors.New("return date must be between the start date and today")
	ErrInvalidTransition  = errors.New("invalid order status transition")
	ErrNoRefundRecipient  = errors.New("no refund recipient could be resolved")
)

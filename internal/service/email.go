package service

import (
	"fmt"
	"log/slog"

	"gopkg.in/gomail.v2"

	"car-rental-backend/internal/config"
	"car-rental-backend/internal/domain"
	"car-rental-backend/internal/logger"
)

// emailSink sends lifecycle notifications over SMTP. Delivery failures are
// logged and swallowed; notifications never affect the order workflow.
type emailSink struct {
	dialer *gomail.Dialer
	from   string
	logger *slog.Logger
}

// NewEmailSink returns a gomail-backed sink, or the no-op sink when SMTP is
// not configured.
func NewEmailSink(cfg config.SMTPConfig) NotificationSink {
	if cfg.Host == "" {
		return NoopSink{}
	}
	return &emailSink{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.From,
		logger: logger.WithService("email"),
	}
}

func (s *emailSink) OrderCompleted(customer *domain.Customer, rental *domain.Rental) {
	subject := fmt.Sprintf("Rental order #%d completed", rental.ID)
	body := fmt.Sprintf(
		"Hi %s,\n\nYour rental order #%d is complete. Total charges: %s, overdue fee: %s.\n\nThank you for renting with us.",
		customer.Name, rental.ID, rental.OrderTotal().StringFixed(2), rental.OverdueFee.StringFixed(2),
	)
	s.send(customer, subject, body)
}

func (s *emailSink) OrderCancelled(customer *domain.Customer, rental *domain.Rental, reason string) {
	subject := fmt.Sprintf("Rental order #%d cancelled", rental.ID)
	body := fmt.Sprintf(
		"Hi %s,\n\nYour rental order #%d has been cancelled.",
		customer.Name, rental.ID,
	)
	if reason != "" {
		body += "\nReason: " + reason
	}
	s.send(customer, subject, body)
}

func (s *emailSink) MemberUpgraded(customer *domain.Customer) {
	subject := "Welcome to VIP membership"
	body := fmt.Sprintf(
		"Hi %s,\n\nCongratulations, your account has been upgraded to VIP. You now enjoy a 10%% rental discount and deposit-free bookings.",
		customer.Name,
	)
	s.send(customer, subject, body)
}

func (s *emailSink) send(customer *domain.Customer, subject, body string) {
	if customer == nil || customer.Email == "" {
		return
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", customer.Email)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		s.logger.Warn("failed to send notification email",
			"to", customer.Email, "subject", subject, "error", err)
		return
	}
	s.logger.Debug("notification email sent", "to", customer.Email, "subject", subject)
}

// NoopSink discards all notifications.
type NoopSink struct{}

func (NoopSink) OrderCompleted(*domain.Customer, *domain.Rental)         {}
func (NoopSink) OrderCancelled(*domain.Customer, *domain.Rental, string) {}
func (NoopSink) MemberUpgraded(*domain.Customer)                         {}

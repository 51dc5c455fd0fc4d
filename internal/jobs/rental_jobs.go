package jobs

import (
	"context"

	"car-rental-backend/internal/logger"
)

// ActivateDueOrders moves PENDING orders whose start date has arrived to
// ONGOING
func (jr *JobRunner) ActivateDueOrders() {
	jr.runWithRecovery("ActivateDueOrders", func() {
		ctx := context.Background()

		activated, err := jr.services.Rental.ActivateDueOrders(ctx)
		if err != nil {
			logger.Error("Failed to activate due orders", "error", err)
			return
		}
		logger.Info("Activated due orders", "count", activated)
	})
}

// MarkOverdueOrders marks ONGOING orders as OVERDUE once they are past their
// end_date
func (jr *JobRunner) MarkOverdueOrders() {
	jr.runWithRecovery("MarkOverdueOrders", func() {
		ctx := context.Background()

		marked, err := jr.services.Rental.MarkOverdueOrders(ctx)
		if err != nil {
			logger.Error("Failed to mark overdue orders", "error", err)
			return
		}
		logger.Info("Marked orders as overdue", "count", marked)
	})
}

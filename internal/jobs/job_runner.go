package jobs

import (
	"sync"
	"time"

	"car-rental-backend/internal/config"
	"car-rental-backend/internal/logger"
	"car-rental-backend/internal/service"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	services *Services
	config   *config.Config

	// lastRun records each batch's last successful start so a re-trigger
	// within the cooldown window is skipped. Both batches are idempotent;
	// the cooldown only avoids redundant scans.
	mu      sync.Mutex
	lastRun map[string]time.Time
	now     func() time.Time
}

// Services holds all service dependencies needed by jobs
type Services struct {
	Rental service.RentalService
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(services *Services, cfg *config.Config) *JobRunner {
	return &JobRunner{
		services: services,
		config:   cfg,
		lastRun:  make(map[string]time.Time),
		now:      time.Now,
	}
}

// Config exposes the runner's configuration to the scheduler
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery and the cooldown
// guard
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	if !jr.claimRun(jobName) {
		logger.Info("Job skipped, ran recently", "job", jobName)
		return
	}

	logger.Info("Starting job", "job", jobName)
	jobFunc()
	logger.Info("Job completed", "job", jobName)
}

func (jr *JobRunner) claimRun(jobName string) bool {
	cooldown := time.Duration(jr.config.Jobs.CooldownMinutes) * time.Minute

	jr.mu.Lock()
	defer jr.mu.Unlock()

	now := jr.now()
	if last, ok := jr.lastRun[jobName]; ok && now.Sub(last) < cooldown {
		return false
	}
	jr.lastRun[jobName] = now
	return true
}

// RunAllNightlyJobs runs all nightly jobs (for manual execution)
func (jr *JobRunner) RunAllNightlyJobs() {
	jr.ActivateDueOrders()
	jr.MarkOverdueOrders()
}

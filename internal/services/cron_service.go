package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// CronService manages scheduled background jobs
type CronService struct {
	cron    *cron.Cron
	sweeper *StalePaymentSweeper
	timeout time.Duration
	logger  *logrus.Logger
}

// NewCronService creates a new CronService. timeout bounds each job run.
func NewCronService(sweeper *StalePaymentSweeper, timeout time.Duration, logger *logrus.Logger) *CronService {
	return &CronService{
		cron:    cron.New(cron.WithSeconds()),
		sweeper: sweeper,
		timeout: timeout,
		logger:  logger,
	}
}

// Start schedules the stale payment sweep and starts the scheduler.
// Cron format: second minute hour day month weekday
func (s *CronService) Start(staleSweepSchedule string) error {
	if _, err := s.cron.AddFunc(staleSweepSchedule, s.staleSweepJob); err != nil {
		return fmt.Errorf("failed to schedule stale payment sweep: %w", err)
	}
	s.logger.WithField("schedule", staleSweepSchedule).Info("Scheduled: stale payment sweep")

	s.cron.Start()
	s.logger.Info("Cron service started")
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *CronService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron service stopped")
}

func (s *CronService) staleSweepJob() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	startTime := time.Now()
	report, err := s.sweeper.RunOnce(ctx)
	if err != nil {
		s.logger.WithError(err).Error("[CRON] Stale payment sweep failed")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"stale":    len(report.Payments),
		"cutoff":   report.Cutoff,
		"duration": time.Since(startTime).String(),
	}).Info("[CRON] Stale payment sweep finished")
}

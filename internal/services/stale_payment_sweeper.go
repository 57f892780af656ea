package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/venuebooking/booking-backend/internal/models"
)

// StaleReport summarises one sweep
type StaleReport struct {
	Cutoff   time.Time         `json:"cutoff"`
	Payments []*models.Payment `json:"payments"`
}

// StalePaymentSweeper reports PENDING payments that never reached the gateway's
// outcome. Rows are left as they are; a late webhook may still complete them.
// Each payment is reported once: rows already carrying a stale_pending audit
// are not listed again.
type StalePaymentSweeper struct {
	payments PaymentStore
	after    time.Duration
	rec      *recorder
	logger   *logrus.Logger
	now      func() time.Time
}

// NewStalePaymentSweeper creates a sweeper flagging payments pending longer than after
func NewStalePaymentSweeper(payments PaymentStore, after time.Duration, audit AuditLogger, logger *logrus.Logger) *StalePaymentSweeper {
	return &StalePaymentSweeper{
		payments: payments,
		after:    after,
		rec:      newRecorder(audit, nil, logger),
		logger:   logger,
		now:      time.Now,
	}
}

// RunOnce lists newly stale payments and writes a stale_pending audit for each
func (s *StalePaymentSweeper) RunOnce(ctx context.Context) (*StaleReport, error) {
	cutoff := s.now().Add(-s.after)

	stale, err := s.payments.ListUnreportedStalePayments(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale payments: %w", err)
	}

	for _, p := range stale {
		s.logger.WithFields(logrus.Fields{
			"payment_id":     p.ID,
			"booking_id":     p.BookingID,
			"transaction_id": p.TransactionIDValue(),
			"created_at":     p.CreatedAt,
		}).Warn("Payment still pending")

		s.rec.record(ctx, models.NewPaymentAudit(models.PaymentEventStalePending, models.PaymentSourceSystem).
			SetPayment(p).
			SetError(fmt.Sprintf("pending since %s", p.CreatedAt.Format(time.RFC3339)), nil))
	}

	return &StaleReport{Cutoff: cutoff, Payments: stale}, nil
}

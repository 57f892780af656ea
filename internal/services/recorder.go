package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/venuebooking/booking-backend/internal/models"
)

// recorder writes audit entries and publishes domain events. Neither may fail
// the operation that triggered it, so failures are logged and swallowed.
type recorder struct {
	audit  AuditLogger
	events EventPublisher
	logger *logrus.Logger
}

func newRecorder(audit AuditLogger, events EventPublisher, logger *logrus.Logger) *recorder {
	return &recorder{audit: audit, events: events, logger: logger}
}

func (r *recorder) record(ctx context.Context, audit *models.PaymentAudit) {
	if r.audit == nil {
		return
	}
	meta := requestMetaFrom(ctx)
	audit.SetMetadata(meta.IPAddress, meta.UserAgent, meta.DeviceInfo)

	if err := r.audit.Log(ctx, audit); err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"event_type": audit.EventType,
			"payment_id": audit.PaymentID,
			"booking_id": audit.BookingID,
		}).Error("Failed to write payment audit")
	}
}

func (r *recorder) publish(ctx context.Context, event models.DomainEvent) {
	if r.events == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	if err := r.events.PublishJSON(ctx, event.Type, event); err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"event":      event.Type,
			"booking_id": event.BookingID,
		}).Warn("Failed to publish domain event")
	}
}

func paymentEvent(eventType string, p *models.Payment, source models.PaymentEventSource) models.DomainEvent {
	id := p.ID
	return models.DomainEvent{
		Type:      eventType,
		BookingID: p.BookingID,
		PaymentID: &id,
		UserID:    p.UserID,
		Status:    string(p.Status),
		Amount:    p.Amount,
		Source:    string(source),
	}
}

func bookingEvent(eventType string, b *models.Booking, source models.PaymentEventSource) models.DomainEvent {
	return models.DomainEvent{
		Type:      eventType,
		BookingID: b.ID,
		UserID:    b.UserID,
		Status:    string(b.Status),
		Amount:    b.TotalPrice,
		Source:    string(source),
	}
}

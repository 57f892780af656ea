package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/venuebooking/booking-backend/internal/models"
)

const paymentColumns = `id, booking_id, user_id, amount, payment_method, status,
	transaction_id, gateway_order_id, gateway_response, payment_date,
	version, created_at, updated_at`

// PaymentRepository handles database operations for payments table
type PaymentRepository struct {
	db DB
}

// NewPaymentRepository creates a new PaymentRepository
func NewPaymentRepository(db DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// CreatePayment inserts a new payment at version 1
func (r *PaymentRepository) CreatePayment(ctx context.Context, payment *models.Payment) error {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	now := time.Now()
	payment.CreatedAt = now
	payment.UpdatedAt = now
	payment.Version = 1

	query := `
		INSERT INTO payments (
			id, booking_id, user_id, amount, payment_method, status,
			transaction_id, gateway_order_id, gateway_response, payment_date,
			version, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
	`

	_, err := r.db.ExecContext(ctx, query,
		payment.ID, payment.BookingID, payment.UserID, payment.Amount, payment.Method, payment.Status,
		payment.TransactionID, payment.GatewayOrderID, payment.GatewayResponse, payment.PaymentDate,
		payment.Version, payment.CreatedAt, payment.UpdatedAt,
	)
	if err != nil {
		if translated := translatePaymentError(err); translated != err {
			return translated
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// GetPaymentByID retrieves a payment by ID
func (r *PaymentRepository) GetPaymentByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	return r.get(ctx, query, id)
}

// GetPaymentByTransactionID returns the most recent payment carrying the gateway transaction id
func (r *PaymentRepository) GetPaymentByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments
		WHERE transaction_id = $1 ORDER BY created_at DESC LIMIT 1`
	return r.get(ctx, query, transactionID)
}

// GetPaymentByOrderID returns the payment created for a gateway order
func (r *PaymentRepository) GetPaymentByOrderID(ctx context.Context, orderID string) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments
		WHERE gateway_order_id = $1 ORDER BY created_at DESC LIMIT 1`
	return r.get(ctx, query, orderID)
}

// ListPaymentsByBooking returns every payment attempt for a booking, oldest first
func (r *PaymentRepository) ListPaymentsByBooking(ctx context.Context, bookingID uuid.UUID) ([]*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE booking_id = $1 ORDER BY created_at ASC`
	return r.list(ctx, query, bookingID)
}

// ListPaymentsByUser returns a user's payments, newest first
func (r *PaymentRepository) ListPaymentsByUser(ctx context.Context, userID uuid.UUID) ([]*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE user_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, userID)
}

// ListPayments returns all payments, newest first
func (r *PaymentRepository) ListPayments(ctx context.Context) ([]*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments ORDER BY created_at DESC`
	return r.list(ctx, query)
}

// ListUnreportedStalePayments returns PENDING payments created before the cutoff
// that carry no stale_pending audit yet
func (r *PaymentRepository) ListUnreportedStalePayments(ctx context.Context, createdBefore time.Time) ([]*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments
		WHERE status = $1 AND created_at < $2
		AND NOT EXISTS (
			SELECT 1 FROM payment_audits a
			WHERE a.payment_id = payments.id AND a.event_type = $3
		)
		ORDER BY created_at ASC`
	return r.list(ctx, query, models.PaymentStatusPending, createdBefore, models.PaymentEventStalePending)
}

// UpdatePayment writes the mutable fields if the stored version still matches,
// then bumps payment.Version
func (r *PaymentRepository) UpdatePayment(ctx context.Context, payment *models.Payment) error {
	now := time.Now()
	query := `
		UPDATE payments
		SET amount = $3, payment_method = $4, status = $5, transaction_id = $6,
			gateway_order_id = $7, gateway_response = $8, payment_date = $9,
			version = version + 1, updated_at = $10
		WHERE id = $1 AND version = $2
	`

	result, err := r.db.ExecContext(ctx, query,
		payment.ID, payment.Version,
		payment.Amount, payment.Method, payment.Status, payment.TransactionID,
		payment.GatewayOrderID, payment.GatewayResponse, payment.PaymentDate, now,
	)
	if err != nil {
		if translated := translatePaymentError(err); translated != err {
			return translated
		}
		return fmt.Errorf("failed to update payment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		var exists bool
		if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM payments WHERE id = $1)`, payment.ID); err != nil {
			return fmt.Errorf("failed to check payment: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
		return ErrVersionConflict
	}

	payment.Version++
	payment.UpdatedAt = now
	return nil
}

func (r *PaymentRepository) get(ctx context.Context, query string, args ...interface{}) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.GetContext(ctx, &payment, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return &payment, nil
}

func (r *PaymentRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Payment, error) {
	payments := []*models.Payment{}
	if err := r.db.SelectContext(ctx, &payments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}

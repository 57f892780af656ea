package services

import (
	"errors"
	"fmt"

	"github.com/venuebooking/booking-backend/pkg/razorpay"
)

// ErrorKind classifies a ServiceError for the HTTP boundary
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
	KindGateway
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "VALIDATION_ERROR"
	case KindUnauthenticated:
		return "UNAUTHENTICATED"
	case KindForbidden:
		return "FORBIDDEN"
	case KindNotFound:
		return "NOT_FOUND"
	case KindConflict:
		return "CONFLICT"
	case KindGateway:
		return "GATEWAY_ERROR"
	default:
		return "INTERNAL_ERROR"
	}
}

// ServiceError is a domain failure carrying the message shown to clients
type ServiceError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of err, KindInternal for anything unclassified
func KindOf(err error) ErrorKind {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return KindInternal
}

func validationError(format string, args ...interface{}) error {
	return &ServiceError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func unauthenticatedError(message string) error {
	return &ServiceError{Kind: KindUnauthenticated, Message: message}
}

func forbiddenError(message string) error {
	return &ServiceError{Kind: KindForbidden, Message: message}
}

func notFoundError(message string) error {
	return &ServiceError{Kind: KindNotFound, Message: message}
}

func conflictError(message string) error {
	return &ServiceError{Kind: KindConflict, Message: message}
}

func internalError(message string, err error) error {
	return &ServiceError{Kind: KindInternal, Message: message, Err: err}
}

// gatewayError wraps a Razorpay failure, embedding the gateway's own message
func gatewayError(err error) error {
	if errors.Is(err, razorpay.ErrTimeout) {
		return &ServiceError{Kind: KindGateway, Message: "Payment gateway timed out, please retry", Err: err}
	}
	var apiErr *razorpay.APIError
	if errors.As(err, &apiErr) {
		return &ServiceError{Kind: KindGateway, Message: "Payment gateway error: " + apiErr.Description, Err: err}
	}
	return &ServiceError{Kind: KindGateway, Message: "Payment gateway error: " + err.Error(), Err: err}
}

package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultBaseURL is the live Razorpay REST endpoint
const DefaultBaseURL = "https://api.razorpay.com/v1"

// ErrTimeout marks a gateway call that exceeded its deadline; the call may be retried
var ErrTimeout = errors.New("razorpay: request timed out")

// APIError is a non-2xx response from the gateway
type APIError struct {
	StatusCode  int
	Code        string `json:"code"`
	Description string `json:"description"`
	Field       string `json:"field,omitempty"`
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("razorpay: status %d", e.StatusCode)
	}
	return fmt.Sprintf("razorpay: %s (%s)", e.Description, e.Code)
}

// Config holds the credentials and transport settings of a Client
type Config struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	Timeout   time.Duration
}

// Client talks to the Razorpay Orders, Payments and Refunds APIs
type Client struct {
	config Config
	logger *logrus.Logger
	client *http.Client
}

// NewClient creates a new Razorpay client
func NewClient(cfg Config, logger *logrus.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		config: cfg,
		logger: logger,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// KeyID returns the public key id handed to checkout clients
func (c *Client) KeyID() string {
	return c.config.KeyID
}

// CreateOrder creates a remote order for a checkout
func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	c.logger.WithFields(logrus.Fields{
		"amount":   req.Amount,
		"currency": req.Currency,
		"receipt":  req.Receipt,
	}).Info("Creating Razorpay order")

	var order Order
	if err := c.do(ctx, http.MethodPost, "/orders", req, &order); err != nil {
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"order_id": order.ID,
		"status":   order.Status,
	}).Info("Razorpay order created")

	return &order, nil
}

// FetchPayment returns the gateway's view of a payment
func (c *Client) FetchPayment(ctx context.Context, paymentID string) (*Payment, error) {
	var payment Payment
	if err := c.do(ctx, http.MethodGet, "/payments/"+url.PathEscape(paymentID), nil, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// Refund requests a refund against a captured payment
func (c *Client) Refund(ctx context.Context, paymentID string, req RefundRequest) (*Refund, error) {
	c.logger.WithFields(logrus.Fields{
		"payment_id": paymentID,
		"amount":     req.Amount,
	}).Info("Requesting Razorpay refund")

	var refund Refund
	if err := c.do(ctx, http.MethodPost, "/payments/"+url.PathEscape(paymentID)+"/refund", req, &refund); err != nil {
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"refund_id":  refund.ID,
		"payment_id": paymentID,
		"status":     refund.Status,
	}).Info("Razorpay refund created")

	return &refund, nil
}

// FetchRefund returns a refund by id
func (c *Client) FetchRefund(ctx context.Context, refundID string) (*Refund, error) {
	var refund Refund
	if err := c.do(ctx, http.MethodGet, "/refunds/"+url.PathEscape(refundID), nil, &refund); err != nil {
		return nil, err
	}
	return &refund, nil
}

// ListRefunds returns all refunds issued against a payment
func (c *Client) ListRefunds(ctx context.Context, paymentID string) ([]Refund, error) {
	var collection refundCollection
	if err := c.do(ctx, http.MethodGet, "/payments/"+url.PathEscape(paymentID)+"/refunds", nil, &collection); err != nil {
		return nil, err
	}
	if collection.Items == nil {
		return []Refund{}, nil
	}
	return collection.Items, nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	endpoint := strings.TrimRight(c.config.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.SetBasicAuth(c.config.KeyID, c.config.KeySecret)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"method": method,
			"path":   path,
		}).Error("Failed to call Razorpay")
		if isTimeout(err) {
			return fmt.Errorf("%w: %s %s", ErrTimeout, method, path)
		}
		return fmt.Errorf("failed to call payment gateway: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"method":      method,
		"path":        path,
		"status_code": resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("Razorpay response received")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseAPIError(resp.StatusCode, respBody)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func parseAPIError(status int, body []byte) error {
	var envelope struct {
		Error APIError `json:"error"`
	}
	apiErr := &APIError{StatusCode: status}
	if err := json.Unmarshal(body, &envelope); err == nil {
		envelope.Error.StatusCode = status
		apiErr = &envelope.Error
	}
	if apiErr.Description == "" {
		apiErr.Description = strings.TrimSpace(string(body))
	}
	return apiErr
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

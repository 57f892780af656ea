package razorpay

// OrderRequest is the body of POST /orders
type OrderRequest struct {
	Amount   int64             `json:"amount"` // minor units (paise)
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt,omitempty"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// Order is a gateway order entity
type Order struct {
	ID         string            `json:"id"`
	Entity     string            `json:"entity"`
	Amount     int64             `json:"amount"`
	AmountPaid int64             `json:"amount_paid"`
	AmountDue  int64             `json:"amount_due"`
	Currency   string            `json:"currency"`
	Receipt    string            `json:"receipt"`
	Status     string            `json:"status"`
	Attempts   int               `json:"attempts"`
	Notes      map[string]string `json:"notes"`
	CreatedAt  int64             `json:"created_at"`
}

// Payment is a gateway payment entity
type Payment struct {
	ID               string            `json:"id"`
	Entity           string            `json:"entity"`
	Amount           int64             `json:"amount"`
	Currency         string            `json:"currency"`
	Status           string            `json:"status"` // created, authorized, captured, refunded, failed
	OrderID          string            `json:"order_id"`
	Method           string            `json:"method"` // card, upi, netbanking, wallet, emi...
	AmountRefunded   int64             `json:"amount_refunded"`
	RefundStatus     *string           `json:"refund_status"`
	Captured         bool              `json:"captured"`
	Description      string            `json:"description"`
	Email            string            `json:"email"`
	Contact          string            `json:"contact"`
	Notes            map[string]string `json:"notes"`
	ErrorCode        string            `json:"error_code"`
	ErrorDescription string            `json:"error_description"`
	ErrorSource      string            `json:"error_source"`
	ErrorReason      string            `json:"error_reason"`
	CreatedAt        int64             `json:"created_at"`
}

// RefundRequest is the body of POST /payments/{id}/refund
type RefundRequest struct {
	Amount int64             `json:"amount,omitempty"` // minor units; zero means full refund
	Speed  string            `json:"speed,omitempty"`
	Notes  map[string]string `json:"notes,omitempty"`
}

// Refund is a gateway refund entity
type Refund struct {
	ID        string            `json:"id"`
	Entity    string            `json:"entity"`
	Amount    int64             `json:"amount"`
	Currency  string            `json:"currency"`
	PaymentID string            `json:"payment_id"`
	Status    string            `json:"status"` // pending, processed, failed
	Speed     string            `json:"speed_processed"`
	Notes     map[string]string `json:"notes"`
	CreatedAt int64             `json:"created_at"`
}

type refundCollection struct {
	Entity string   `json:"entity"`
	Count  int      `json:"count"`
	Items  []Refund `json:"items"`
}

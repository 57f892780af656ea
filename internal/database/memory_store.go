package database

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/venuebooking/booking-backend/internal/models"
)

// MemoryStore keeps bookings, payments, venues, users and audits in process.
// It honours the same version checks as the Postgres repositories and hands
// out copies, so callers never share rows.
type MemoryStore struct {
	mu       sync.RWMutex
	bookings map[uuid.UUID]models.Booking
	payments map[uuid.UUID]models.Payment
	venues   map[uuid.UUID]models.Venue
	users    map[uuid.UUID]models.User
	audits   []models.PaymentAudit
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bookings: make(map[uuid.UUID]models.Booking),
		payments: make(map[uuid.UUID]models.Payment),
		venues:   make(map[uuid.UUID]models.Venue),
		users:    make(map[uuid.UUID]models.User),
	}
}

// PutVenue adds or replaces a venue
func (s *MemoryStore) PutVenue(venue models.Venue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.venues[venue.ID] = venue
}

// PutUser adds or replaces a user
func (s *MemoryStore) PutUser(user models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
}

// GetVenueByID retrieves a venue by ID
func (s *MemoryStore) GetVenueByID(_ context.Context, id uuid.UUID) (*models.Venue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	venue, ok := s.venues[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &venue, nil
}

// GetUserByID retrieves a user by ID
func (s *MemoryStore) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

// CreateBooking stores a new booking at version 1
func (s *MemoryStore) CreateBooking(_ context.Context, booking *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	now := time.Now()
	booking.CreatedAt = now
	booking.UpdatedAt = now
	if s.overlapsLive(booking) {
		return ErrBookingOverlap
	}
	booking.Version = 1
	s.bookings[booking.ID] = cloneBooking(*booking)
	return nil
}

// GetBookingByID retrieves a booking by ID
func (s *MemoryStore) GetBookingByID(_ context.Context, id uuid.UUID) (*models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	booking, ok := s.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	b := cloneBooking(booking)
	return &b, nil
}

// ListBookingsByVenue returns every booking for a venue ordered by start date
func (s *MemoryStore) ListBookingsByVenue(_ context.Context, venueID uuid.UUID) ([]*models.Booking, error) {
	list := s.filterBookings(func(b *models.Booking) bool { return b.VenueID == venueID })
	sort.Slice(list, func(i, j int) bool { return list[i].StartDate.Before(list[j].StartDate) })
	return list, nil
}

// ListBookingsByUser returns a user's bookings, newest first
func (s *MemoryStore) ListBookingsByUser(_ context.Context, userID uuid.UUID) ([]*models.Booking, error) {
	return sortBookingsNewest(s.filterBookings(func(b *models.Booking) bool { return b.UserID == userID })), nil
}

// ListBookingsByOwner returns bookings for venues owned by ownerID
func (s *MemoryStore) ListBookingsByOwner(_ context.Context, ownerID uuid.UUID) ([]*models.Booking, error) {
	s.mu.RLock()
	owned := make(map[uuid.UUID]bool)
	for _, v := range s.venues {
		if v.OwnerID == ownerID {
			owned[v.ID] = true
		}
	}
	s.mu.RUnlock()
	return sortBookingsNewest(s.filterBookings(func(b *models.Booking) bool { return owned[b.VenueID] })), nil
}

// ListBookings returns all bookings, newest first
func (s *MemoryStore) ListBookings(_ context.Context) ([]*models.Booking, error) {
	return sortBookingsNewest(s.filterBookings(func(*models.Booking) bool { return true })), nil
}

// UpdateBooking replaces the stored booking if its version matches
func (s *MemoryStore) UpdateBooking(_ context.Context, booking *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.bookings[booking.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Version != booking.Version {
		return ErrVersionConflict
	}
	if s.overlapsLive(booking) {
		return ErrBookingOverlap
	}
	booking.Version++
	booking.UpdatedAt = time.Now()
	booking.CreatedAt = current.CreatedAt
	s.bookings[booking.ID] = cloneBooking(*booking)
	return nil
}

// CreatePayment stores a new payment at version 1
func (s *MemoryStore) CreatePayment(_ context.Context, payment *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	now := time.Now()
	payment.CreatedAt = now
	payment.UpdatedAt = now
	if s.completedElsewhere(payment) {
		return ErrDuplicateCompleted
	}
	if s.orderTaken(payment) {
		return ErrDuplicateOrder
	}
	payment.Version = 1
	s.payments[payment.ID] = clonePayment(*payment)
	return nil
}

// GetPaymentByID retrieves a payment by ID
func (s *MemoryStore) GetPaymentByID(_ context.Context, id uuid.UUID) (*models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	payment, ok := s.payments[id]
	if !ok {
		return nil, ErrNotFound
	}
	p := clonePayment(payment)
	return &p, nil
}

// GetPaymentByTransactionID returns the most recent payment carrying the transaction id
func (s *MemoryStore) GetPaymentByTransactionID(_ context.Context, transactionID string) (*models.Payment, error) {
	return s.newestPayment(func(p *models.Payment) bool {
		return p.TransactionID != nil && *p.TransactionID == transactionID
	})
}

// GetPaymentByOrderID returns the payment created for a gateway order
func (s *MemoryStore) GetPaymentByOrderID(_ context.Context, orderID string) (*models.Payment, error) {
	return s.newestPayment(func(p *models.Payment) bool {
		return p.GatewayOrderID != nil && *p.GatewayOrderID == orderID
	})
}

// ListPaymentsByBooking returns every payment for a booking, oldest first
func (s *MemoryStore) ListPaymentsByBooking(_ context.Context, bookingID uuid.UUID) ([]*models.Payment, error) {
	list := s.filterPayments(func(p *models.Payment) bool { return p.BookingID == bookingID })
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list, nil
}

// ListPaymentsByUser returns a user's payments, newest first
func (s *MemoryStore) ListPaymentsByUser(_ context.Context, userID uuid.UUID) ([]*models.Payment, error) {
	return sortPaymentsNewest(s.filterPayments(func(p *models.Payment) bool { return p.UserID == userID })), nil
}

// ListPayments returns all payments, newest first
func (s *MemoryStore) ListPayments(_ context.Context) ([]*models.Payment, error) {
	return sortPaymentsNewest(s.filterPayments(func(*models.Payment) bool { return true })), nil
}

// ListUnreportedStalePayments returns PENDING payments created before the cutoff
// that carry no stale_pending audit yet
func (s *MemoryStore) ListUnreportedStalePayments(_ context.Context, createdBefore time.Time) ([]*models.Payment, error) {
	s.mu.RLock()
	reported := make(map[uuid.UUID]bool)
	for _, a := range s.audits {
		if a.EventType == models.PaymentEventStalePending && a.PaymentID != nil {
			reported[*a.PaymentID] = true
		}
	}
	s.mu.RUnlock()

	list := s.filterPayments(func(p *models.Payment) bool {
		return p.Status == models.PaymentStatusPending && p.CreatedAt.Before(createdBefore) && !reported[p.ID]
	})
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list, nil
}

// UpdatePayment replaces the stored payment if its version matches
func (s *MemoryStore) UpdatePayment(_ context.Context, payment *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.payments[payment.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Version != payment.Version {
		return ErrVersionConflict
	}
	if s.completedElsewhere(payment) {
		return ErrDuplicateCompleted
	}
	if s.orderTaken(payment) {
		return ErrDuplicateOrder
	}
	payment.Version++
	payment.UpdatedAt = time.Now()
	payment.CreatedAt = current.CreatedAt
	s.payments[payment.ID] = clonePayment(*payment)
	return nil
}

// Log records a payment audit entry
func (s *MemoryStore) Log(_ context.Context, audit *models.PaymentAudit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if audit.ID == uuid.Nil {
		audit.ID = uuid.New()
	}
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = time.Now()
	}
	s.audits = append(s.audits, *audit)
	return nil
}

// Audits returns a snapshot of all recorded audit entries
func (s *MemoryStore) Audits() []models.PaymentAudit {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.PaymentAudit, len(s.audits))
	copy(out, s.audits)
	return out
}

// completedElsewhere mirrors the partial unique index on completed payments. Caller holds s.mu.
func (s *MemoryStore) completedElsewhere(payment *models.Payment) bool {
	if payment.Status != models.PaymentStatusCompleted {
		return false
	}
	for id, other := range s.payments {
		if id != payment.ID && other.BookingID == payment.BookingID && other.Status == models.PaymentStatusCompleted {
			return true
		}
	}
	return false
}

// orderTaken mirrors the unique index on gateway order ids. Caller holds s.mu.
func (s *MemoryStore) orderTaken(payment *models.Payment) bool {
	if payment.GatewayOrderID == nil {
		return false
	}
	for id, other := range s.payments {
		if id != payment.ID && other.GatewayOrderID != nil && *other.GatewayOrderID == *payment.GatewayOrderID {
			return true
		}
	}
	return false
}

// overlapsLive mirrors the venue overlap exclusion constraint. Caller holds s.mu.
func (s *MemoryStore) overlapsLive(booking *models.Booking) bool {
	if booking.IsCancelled() {
		return false
	}
	for id, other := range s.bookings {
		if id == booking.ID || other.VenueID != booking.VenueID || other.IsCancelled() {
			continue
		}
		if other.Overlaps(booking.StartDate, booking.EndDate) {
			return true
		}
	}
	return false
}

func (s *MemoryStore) filterBookings(keep func(*models.Booking) bool) []*models.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := []*models.Booking{}
	for _, b := range s.bookings {
		b := cloneBooking(b)
		if keep(&b) {
			list = append(list, &b)
		}
	}
	return list
}

func (s *MemoryStore) filterPayments(keep func(*models.Payment) bool) []*models.Payment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := []*models.Payment{}
	for _, p := range s.payments {
		p := clonePayment(p)
		if keep(&p) {
			list = append(list, &p)
		}
	}
	return list
}

func (s *MemoryStore) newestPayment(match func(*models.Payment) bool) (*models.Payment, error) {
	list := sortPaymentsNewest(s.filterPayments(match))
	if len(list) == 0 {
		return nil, ErrNotFound
	}
	return list[0], nil
}

func sortBookingsNewest(list []*models.Booking) []*models.Booking {
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list
}

func sortPaymentsNewest(list []*models.Payment) []*models.Payment {
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list
}

// cloneBooking copies the pointer fields so stored rows are not aliased
func cloneBooking(b models.Booking) models.Booking {
	b.EventType = cloneString(b.EventType)
	b.SpecialRequests = cloneString(b.SpecialRequests)
	return b
}

// clonePayment copies the pointer fields so stored rows are not aliased
func clonePayment(p models.Payment) models.Payment {
	p.TransactionID = cloneString(p.TransactionID)
	p.GatewayOrderID = cloneString(p.GatewayOrderID)
	p.GatewayResponse = cloneString(p.GatewayResponse)
	if p.PaymentDate != nil {
		t := *p.PaymentDate
		p.PaymentDate = &t
	}
	return p
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

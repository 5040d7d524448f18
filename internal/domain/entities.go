package domain

import (
	"time"

	"github.com/google/uuid"
)

// Per-ticket-type cap enforced on cart adds.
const MaxQuantityPerTicketType = 4

// CartLine is one cart row joined with the effective unit price
// (custom price when positive, template price otherwise).
type CartLine struct {
	TicketTypeID uuid.UUID
	ProductName  string
	TicketName   string
	Quantity     int
	UnitPrice    float64
}

type TicketQuota struct {
	TicketTypeID uuid.UUID
	IsLimited    bool
	Remaining    *int
}

// CanCover reports whether the quota row satisfies the required quantity.
// Unlimited types always can; a limited type with no counter cannot.
func (q TicketQuota) CanCover(required int) bool {
	if !q.IsLimited {
		return true
	}
	return q.Remaining != nil && *q.Remaining >= required
}

const (
	ReservationLocked  = "LOCKED"
	ReservationExpired = "EXPIRED"
)

type Reservation struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Quantity    int
	TotalAmount int64
	Status      string
	CreatedAt   time.Time
	ExpiresAt   time.Time
	Items       []ReservationItem
}

type ReservationItem struct {
	TicketTypeID uuid.UUID
	Quantity     int
	UnitPrice    float64
}

const (
	OrderPending   = "PENDING"
	OrderConfirmed = "CONFIRMED"
	OrderFailed    = "FAILED"
)

type Order struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Status      string
	TotalAmount int64
	Invoice     Invoice
	Items       []OrderItem
}

type OrderItem struct {
	TicketTypeID uuid.UUID
	Quantity     int
	UnitPrice    float64
}

// CartTotal sums quantity times effective unit price over the cart
// snapshot, truncated to integer currency units.
func CartTotal(lines []CartLine) int64 {
	var sum float64
	for _, l := range lines {
		sum += float64(l.Quantity) * l.UnitPrice
	}
	return int64(sum)
}

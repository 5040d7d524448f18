package domain

import (
	"time"

	"github.com/google/uuid"
)

// NewReservation snapshots the cart into a LOCKED reservation with one item
// per distinct ticket type.
func NewReservation(userID uuid.UUID, lines []CartLine, ttl time.Duration) Reservation {
	now := time.Now()
	items := make([]ReservationItem, len(lines))
	total := 0
	for i, l := range lines {
		items[i] = ReservationItem{
			TicketTypeID: l.TicketTypeID,
			Quantity:     l.Quantity,
			UnitPrice:    l.UnitPrice,
		}
		total += l.Quantity
	}
	return Reservation{
		ID:          uuid.New(),
		UserID:      userID,
		Quantity:    total,
		TotalAmount: CartTotal(lines),
		Status:      ReservationLocked,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
		Items:       items,
	}
}

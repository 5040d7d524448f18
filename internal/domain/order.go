package domain

import "github.com/google/uuid"

// NewOrder builds a PENDING order from the same cart snapshot used for the
// reservation, so the committed total can never diverge from the reserved one.
func NewOrder(userID uuid.UUID, lines []CartLine, inv Invoice) Order {
	items := make([]OrderItem, len(lines))
	for i, l := range lines {
		items[i] = OrderItem{
			TicketTypeID: l.TicketTypeID,
			Quantity:     l.Quantity,
			UnitPrice:    l.UnitPrice,
		}
	}
	return Order{
		ID:          uuid.New(),
		UserID:      userID,
		Status:      OrderPending,
		TotalAmount: CartTotal(lines),
		Invoice:     inv,
		Items:       items,
	}
}

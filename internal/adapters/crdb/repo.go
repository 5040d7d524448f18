package crdb

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/openticket/checkout-service/internal/domain"
)

const (
	SerializationFailureCode = "40001"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE")
	if err != nil {
		return err
	}

	err = fn(tx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == SerializationFailureCode {
			return domain.ErrSerializationFailure
		}
		return err
	}

	return tx.Commit(ctx)
}

// AddCartItem adds quantity to the user's line for the ticket type. The new
// total is capped at domain.MaxQuantityPerTicketType; a non-positive result
// deletes the line, and a non-positive add without an existing line is a
// no-op.
func (r *Repository) AddCartItem(ctx context.Context, tx pgx.Tx, userID, ticketTypeID uuid.UUID, quantity int) error {
	var existing int
	err := tx.QueryRow(ctx, `
		SELECT quantity FROM cart_items WHERE user_id = $1 AND ticket_type_id = $2
	`, userID, ticketTypeID).Scan(&existing)
	if err != nil && err != pgx.ErrNoRows {
		return err
	}
	hasLine := err == nil

	total := existing + quantity
	if total <= 0 {
		if !hasLine {
			return nil
		}
		_, err := tx.Exec(ctx, `
			DELETE FROM cart_items WHERE user_id = $1 AND ticket_type_id = $2
		`, userID, ticketTypeID)
		return err
	}
	if total > domain.MaxQuantityPerTicketType {
		return errors.Wrapf(domain.ErrCartLimitExceeded, "at most %d per ticket type", domain.MaxQuantityPerTicketType)
	}

	if hasLine {
		_, err = tx.Exec(ctx, `
			UPDATE cart_items SET quantity = $3 WHERE user_id = $1 AND ticket_type_id = $2
		`, userID, ticketTypeID, total)
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO cart_items (user_id, ticket_type_id, quantity) VALUES ($1, $2, $3)
	`, userID, ticketTypeID, total)
	return err
}

// GetCart returns the user's cart joined with product metadata and the
// effective unit price: custom price when positive, template price otherwise.
func (r *Repository) GetCart(ctx context.Context, tx pgx.Tx, userID uuid.UUID) ([]domain.CartLine, error) {
	rows, err := tx.Query(ctx, `
		SELECT ci.ticket_type_id, tt.product_name, tt.ticket_name, ci.quantity,
			CASE
				WHEN tt.custom_price IS NOT NULL AND tt.custom_price > 0 THEN tt.custom_price
				ELSE tt.template_price
			END AS unit_price
		FROM cart_items ci
		JOIN ticket_types tt ON ci.ticket_type_id = tt.id
		WHERE ci.user_id = $1
		ORDER BY tt.product_name, tt.ticket_name
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []domain.CartLine
	for rows.Next() {
		var l domain.CartLine
		if err := rows.Scan(&l.TicketTypeID, &l.ProductName, &l.TicketName, &l.Quantity, &l.UnitPrice); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *Repository) ClearCart(ctx context.Context, tx pgx.Tx, userID uuid.UUID) error {
	_, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	return err
}

// CheckStock reports whether the ticket type can cover the required
// quantity. Unlimited types are always sufficient; a missing row fails
// closed as insufficient.
func (r *Repository) CheckStock(ctx context.Context, ticketTypeID uuid.UUID, required int) (bool, error) {
	quota := domain.TicketQuota{TicketTypeID: ticketTypeID}
	err := r.pool.QueryRow(ctx, `
		SELECT is_limited, remaining FROM ticket_types WHERE id = $1
	`, ticketTypeID).Scan(&quota.IsLimited, &quota.Remaining)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return quota.CanCover(required), nil
}

// DecreaseStock subtracts quantity from a limited ticket type with a
// conditional update, so two racing checkouts can never drive remaining
// below zero. Zero rows affected means insufficient stock.
func (r *Repository) DecreaseStock(ctx context.Context, tx pgx.Tx, ticketTypeID uuid.UUID, quantity int) error {
	var isLimited bool
	err := tx.QueryRow(ctx, `
		SELECT is_limited FROM ticket_types WHERE id = $1
	`, ticketTypeID).Scan(&isLimited)
	if err == pgx.ErrNoRows {
		return errors.Wrapf(domain.ErrInsufficientStock, "unknown ticket type %s", ticketTypeID)
	}
	if err != nil {
		return err
	}
	if !isLimited {
		return nil
	}

	result, err := tx.Exec(ctx, `
		UPDATE ticket_types SET remaining = remaining - $2
		WHERE id = $1 AND remaining >= $2
	`, ticketTypeID, quantity)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return errors.Wrapf(domain.ErrInsufficientStock, "ticket type %s", ticketTypeID)
	}
	return nil
}

// ReturnQuota credits quantity back to a limited ticket type. Used by the
// expiry worker when a LOCKED reservation lapses.
func (r *Repository) ReturnQuota(ctx context.Context, tx pgx.Tx, ticketTypeID uuid.UUID, quantity int) error {
	_, err := tx.Exec(ctx, `
		UPDATE ticket_types SET remaining = remaining + $2
		WHERE id = $1 AND is_limited
	`, ticketTypeID, quantity)
	return err
}

func (r *Repository) CreateReservation(ctx context.Context, tx pgx.Tx, res domain.Reservation) error {
	if len(res.Items) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO reservations (id, user_id, quantity, total_amount, status, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, res.ID, res.UserID, res.Quantity, res.TotalAmount, res.Status, res.CreatedAt, res.ExpiresAt)
	if err != nil {
		return err
	}
	for _, item := range res.Items {
		_, err := tx.Exec(ctx, `
			INSERT INTO reservation_items (reservation_id, ticket_type_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4)
		`, res.ID, item.TicketTypeID, item.Quantity, item.UnitPrice)
		if err != nil {
			return err
		}
	}
	return nil
}

// GetExpiredReservations lists LOCKED reservations past their expiry,
// items included.
func (r *Repository) GetExpiredReservations(ctx context.Context, now time.Time) ([]domain.Reservation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT r.id, r.user_id, r.quantity, r.total_amount, r.created_at, r.expires_at,
			ri.ticket_type_id, ri.quantity, ri.unit_price
		FROM reservations r
		JOIN reservation_items ri ON ri.reservation_id = r.id
		WHERE r.status = 'LOCKED' AND r.expires_at <= $1
		ORDER BY r.id
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reservations []domain.Reservation
	var current *domain.Reservation
	for rows.Next() {
		var (
			res  domain.Reservation
			item domain.ReservationItem
		)
		err := rows.Scan(&res.ID, &res.UserID, &res.Quantity, &res.TotalAmount,
			&res.CreatedAt, &res.ExpiresAt, &item.TicketTypeID, &item.Quantity, &item.UnitPrice)
		if err != nil {
			return nil, err
		}
		if current == nil || current.ID != res.ID {
			if current != nil {
				reservations = append(reservations, *current)
			}
			res.Status = domain.ReservationLocked
			current = &res
		}
		current.Items = append(current.Items, item)
	}
	if current != nil {
		reservations = append(reservations, *current)
	}
	return reservations, rows.Err()
}

// ExpireReservation flips a LOCKED reservation to EXPIRED. Zero rows
// affected means another worker already took it.
func (r *Repository) ExpireReservation(ctx context.Context, tx pgx.Tx, reservationID uuid.UUID) error {
	result, err := tx.Exec(ctx, `
		UPDATE reservations SET status = 'EXPIRED' WHERE id = $1 AND status = 'LOCKED'
	`, reservationID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repository) CreateOrder(ctx context.Context, tx pgx.Tx, order domain.Order) error {
	inv := order.Invoice
	_, err := tx.Exec(ctx, `
		INSERT INTO orders (id, user_id, status, total_amount,
			invoice_type, invoice_value, invoice_carrier_type, invoice_carrier_code,
			invoice_tax_id, invoice_donation_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, order.ID, order.UserID, order.Status, order.TotalAmount,
		inv.Type, inv.Value, inv.CarrierType, inv.CarrierCode, inv.TaxID, inv.DonationCode)
	if err != nil {
		return err
	}

	// A pgx.Tx is bound to one connection and is not safe for concurrent
	// use; the items go out as a single batch round trip instead.
	batch := &pgx.Batch{}
	for _, item := range order.Items {
		batch.Queue(`
			INSERT INTO order_items (order_id, ticket_type_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4)
		`, order.ID, item.TicketTypeID, item.Quantity, item.UnitPrice)
	}
	return tx.SendBatch(ctx, batch).Close()
}

// GetOrder loads the header and the items in parallel; both reads go
// through the pool, which hands each goroutine its own connection.
func (r *Repository) GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	var order domain.Order
	var items []domain.OrderItem

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		inv := &order.Invoice
		err := r.pool.QueryRow(gctx, `
			SELECT id, user_id, status, total_amount,
				invoice_type, invoice_value, invoice_carrier_type, invoice_carrier_code,
				invoice_tax_id, invoice_donation_code
			FROM orders WHERE id = $1
		`, orderID).Scan(&order.ID, &order.UserID, &order.Status, &order.TotalAmount,
			&inv.Type, &inv.Value, &inv.CarrierType, &inv.CarrierCode, &inv.TaxID, &inv.DonationCode)
		if err == pgx.ErrNoRows {
			return domain.ErrNotFound
		}
		return err
	})
	g.Go(func() error {
		rows, err := r.pool.Query(gctx, `
			SELECT ticket_type_id, quantity, unit_price
			FROM order_items WHERE order_id = $1
		`, orderID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var item domain.OrderItem
			if err := rows.Scan(&item.TicketTypeID, &item.Quantity, &item.UnitPrice); err != nil {
				return err
			}
			items = append(items, item)
		}
		return rows.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	order.Items = items
	return &order, nil
}

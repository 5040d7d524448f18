// Package checkout sequences reservation creation, stock decrement, payment
// dispatch, order persistence, and cart clearing as one unit of work.
package checkout

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/openticket/checkout-service/internal/adapters/crdb"
	"github.com/openticket/checkout-service/internal/domain"
	"github.com/openticket/checkout-service/internal/observability"
	"github.com/openticket/checkout-service/internal/payment"
)

// Store is the persistence surface the orchestrator needs. *crdb.Repository
// satisfies it.
type Store interface {
	WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error
	GetCart(ctx context.Context, tx pgx.Tx, userID uuid.UUID) ([]domain.CartLine, error)
	AddCartItem(ctx context.Context, tx pgx.Tx, userID, ticketTypeID uuid.UUID, quantity int) error
	ClearCart(ctx context.Context, tx pgx.Tx, userID uuid.UUID) error
	CheckStock(ctx context.Context, ticketTypeID uuid.UUID, required int) (bool, error)
	CreateReservation(ctx context.Context, tx pgx.Tx, res domain.Reservation) error
	DecreaseStock(ctx context.Context, tx pgx.Tx, ticketTypeID uuid.UUID, quantity int) error
	CreateOrder(ctx context.Context, tx pgx.Tx, order domain.Order) error
	InsertOutbox(ctx context.Context, tx pgx.Tx, record crdb.OutboxRecord) error
}

// Locker serializes checkouts per user so a double submit cannot run two
// transactions against the same cart.
type Locker interface {
	AcquireCheckoutLock(ctx context.Context, userID uuid.UUID) (bool, error)
	ReleaseCheckoutLock(ctx context.Context, userID uuid.UUID) error
}

// AuditSink records committed checkouts out-of-band; failures are logged,
// never propagated.
type AuditSink interface {
	LogOrder(ctx context.Context, order domain.Order) error
}

const (
	StatusECPay   = "ecpay"
	StatusSuccess = "success"
)

// Result discriminates a gateway redirect from a direct settlement.
type Result struct {
	Status  string
	Message string
}

type Service struct {
	store          Store
	locker         Locker
	dispatcher     *payment.Dispatcher
	audit          AuditSink
	logger         observability.Logger
	reservationTTL time.Duration
}

func NewService(store Store, locker Locker, dispatcher *payment.Dispatcher, audit AuditSink, logger observability.Logger, reservationTTL time.Duration) *Service {
	return &Service{
		store:          store,
		locker:         locker,
		dispatcher:     dispatcher,
		audit:          audit,
		logger:         logger,
		reservationTTL: reservationTTL,
	}
}

// ProcessOrder runs one checkout for the given user. All form validation
// happens before the transaction opens; every mutation inside it rolls back
// together on any failure.
func (s *Service) ProcessOrder(ctx context.Context, userID uuid.UUID, form domain.CheckoutForm) (Result, error) {
	method, err := domain.ParsePaymentMethod(form.PaymentMethod)
	if err != nil {
		return Result{}, err
	}
	if err := form.ValidateInvoice(); err != nil {
		return Result{}, err
	}
	strategy, err := s.dispatcher.Select(method)
	if err != nil {
		return Result{}, err
	}
	if err := strategy.Validate(form); err != nil {
		return Result{}, err
	}

	ok, err := s.locker.AcquireCheckoutLock(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{}, errors.Wrap(domain.ErrConflict, "checkout already in progress")
	}
	defer s.locker.ReleaseCheckoutLock(ctx, userID)

	var (
		outcome payment.Outcome
		order   domain.Order
	)
	start := time.Now()
	err = s.store.WithTx(ctx, func(tx pgx.Tx) error {
		// Single cart snapshot: reservation items, total, and order items
		// all come from these lines, so a price change mid-checkout cannot
		// make them diverge.
		lines, err := s.store.GetCart(ctx, tx, userID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return domain.ErrEmptyCart
		}

		res := domain.NewReservation(userID, lines, s.reservationTTL)
		if err := s.store.CreateReservation(ctx, tx, res); err != nil {
			return err
		}

		for _, l := range lines {
			if err := s.store.DecreaseStock(ctx, tx, l.TicketTypeID, l.Quantity); err != nil {
				return err
			}
		}

		outcome, err = strategy.Pay(form, domain.CartTotal(lines))
		if err != nil {
			return err
		}

		inv := domain.DeriveInvoice(form.InvoiceType, form.InvoiceOption, form.InvoiceValue)
		order = domain.NewOrder(userID, lines, inv)
		if err := s.store.CreateOrder(ctx, tx, order); err != nil {
			return err
		}

		payload, _ := json.Marshal(map[string]interface{}{
			"order_id": order.ID,
			"user_id":  order.UserID,
			"total":    order.TotalAmount,
		})
		record := crdb.OutboxRecord{
			ID:            uuid.New(),
			AggregateType: "order",
			AggregateID:   order.ID,
			EventType:     "order.created",
			Payload:       payload,
			DedupeKey:     uuid.New().String(),
		}
		if err := s.store.InsertOutbox(ctx, tx, record); err != nil {
			return err
		}

		return s.store.ClearCart(ctx, tx, userID)
	})
	observability.DBTxDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientStock) {
			observability.InsufficientStockTotal.Inc()
		}
		observability.CheckoutsTotal.WithLabelValues("failed").Inc()
		return Result{}, err
	}

	if auditErr := s.audit.LogOrder(ctx, order); auditErr != nil {
		s.logger.WithField("order_id", order.ID).Error("failed to write audit log", auditErr)
	}
	observability.CheckoutsTotal.WithLabelValues("created").Inc()
	s.logger.WithField("order_id", order.ID).WithField("user_id", userID).Info("order created")

	if outcome.Redirect {
		return Result{Status: StatusECPay, Message: outcome.Payload}, nil
	}
	return Result{Status: StatusSuccess, Message: "order created"}, nil
}

// AddToCart applies the additive cart policy: new total = existing +
// requested, capped per ticket type; a non-positive result removes the line.
// Limited ticket types are checked against remaining quota before the write.
func (s *Service) AddToCart(ctx context.Context, userID, ticketTypeID uuid.UUID, quantity int) error {
	if quantity > 0 {
		ok, err := s.store.CheckStock(ctx, ticketTypeID, quantity)
		if err != nil {
			return err
		}
		if !ok {
			return errors.Wrapf(domain.ErrInsufficientStock, "ticket type %s", ticketTypeID)
		}
	}
	return s.store.WithTx(ctx, func(tx pgx.Tx) error {
		return s.store.AddCartItem(ctx, tx, userID, ticketTypeID, quantity)
	})
}

// CartSummary returns the current cart snapshot and its total.
func (s *Service) CartSummary(ctx context.Context, userID uuid.UUID) ([]domain.CartLine, int64, error) {
	var lines []domain.CartLine
	err := s.store.WithTx(ctx, func(tx pgx.Tx) error {
		var err error
		lines, err = s.store.GetCart(ctx, tx, userID)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return lines, domain.CartTotal(lines), nil
}

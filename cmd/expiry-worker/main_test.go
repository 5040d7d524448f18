package main

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openticket/checkout-service/internal/domain"
	"github.com/openticket/checkout-service/internal/observability"
)

type fakeReservationStore struct {
	expireErr error
	expired   []uuid.UUID
	returned  map[uuid.UUID]int
}

func (f *fakeReservationStore) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}

func (f *fakeReservationStore) GetExpiredReservations(ctx context.Context, now time.Time) ([]domain.Reservation, error) {
	return nil, nil
}

func (f *fakeReservationStore) ExpireReservation(ctx context.Context, tx pgx.Tx, reservationID uuid.UUID) error {
	if f.expireErr != nil {
		return f.expireErr
	}
	f.expired = append(f.expired, reservationID)
	return nil
}

func (f *fakeReservationStore) ReturnQuota(ctx context.Context, tx pgx.Tx, ticketTypeID uuid.UUID, quantity int) error {
	if f.returned == nil {
		f.returned = map[uuid.UUID]int{}
	}
	f.returned[ticketTypeID] += quantity
	return nil
}

type fakePublisher struct {
	keys []string
}

func (p *fakePublisher) Publish(ctx context.Context, key string, msg amqp.Publishing) error {
	p.keys = append(p.keys, key)
	return nil
}

type fakeAudit struct {
	expired []uuid.UUID
}

func (a *fakeAudit) LogReservationExpired(ctx context.Context, res domain.Reservation) error {
	a.expired = append(a.expired, res.ID)
	return nil
}

func expiredReservation() domain.Reservation {
	return domain.Reservation{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Status: domain.ReservationLocked,
		Items: []domain.ReservationItem{
			{TicketTypeID: uuid.New(), Quantity: 2, UnitPrice: 500},
			{TicketTypeID: uuid.New(), Quantity: 1, UnitPrice: 300},
		},
	}
}

func TestReleaseWithRetry_ReturnsQuotaAndPublishes(t *testing.T) {
	store := &fakeReservationStore{}
	pub := &fakePublisher{}
	audit := &fakeAudit{}
	worker := NewExpiryWorker(store, pub, audit, observability.NewLogger())
	res := expiredReservation()

	require.NoError(t, worker.releaseWithRetry(context.Background(), res))

	assert.Equal(t, []uuid.UUID{res.ID}, store.expired)
	assert.Equal(t, 2, store.returned[res.Items[0].TicketTypeID])
	assert.Equal(t, 1, store.returned[res.Items[1].TicketTypeID])
	assert.Equal(t, []string{"reservation.expired"}, pub.keys)
	assert.Equal(t, []uuid.UUID{res.ID}, audit.expired)
}

func TestReleaseWithRetry_AlreadyTakenByAnotherWorker(t *testing.T) {
	res := expiredReservation()
	store := &fakeReservationStore{
		// The repo wraps the sentinel with context; the worker must still
		// treat it as someone else winning the race, not as a failure.
		expireErr: errors.Wrapf(domain.ErrNotFound, "reservation %s", res.ID),
	}
	pub := &fakePublisher{}
	audit := &fakeAudit{}
	worker := NewExpiryWorker(store, pub, audit, observability.NewLogger())

	require.NoError(t, worker.releaseWithRetry(context.Background(), res))

	assert.Empty(t, store.returned, "quota must not be credited twice")
	assert.Empty(t, pub.keys, "no event for a reservation another worker released")
	assert.Empty(t, audit.expired)
}

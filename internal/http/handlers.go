package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/openticket/checkout-service/internal/adapters/crdb"
	"github.com/openticket/checkout-service/internal/checkout"
	"github.com/openticket/checkout-service/internal/config"
	"github.com/openticket/checkout-service/internal/domain"
	"github.com/openticket/checkout-service/internal/idempotency"
	"github.com/openticket/checkout-service/internal/observability"
)

// IdempotencyStore is the replay cache surface the handlers need.
// *idempotency.Idempotency satisfies it.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*idempotency.Response, error)
	Set(ctx context.Context, key string, resp idempotency.Response) error
}

type Handlers struct {
	cfg     *config.Config
	service *checkout.Service
	repo    *crdb.Repository
	idemp   IdempotencyStore
	logger  observability.Logger
}

func NewHandlers(cfg *config.Config, service *checkout.Service, repo *crdb.Repository, idemp IdempotencyStore, logger observability.Logger) *Handlers {
	return &Handlers{
		cfg:     cfg,
		service: service,
		repo:    repo,
		idemp:   idemp,
		logger:  logger,
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrUnsupportedPaymentMethod),
		errors.Is(err, domain.ErrEmptyCart),
		errors.Is(err, domain.ErrCartLimitExceeded):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrSerializationFailure):
		http.Error(w, "conflict, try again", http.StatusConflict)
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing user identity", http.StatusUnauthorized)
		return
	}

	var req struct {
		TicketTypeID uuid.UUID `json:"ticket_type_id"`
		Quantity     int       `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.service.AddToCart(r.Context(), userID, req.TicketTypeID, req.Quantity); err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "success", "message": "cart updated"})
}

func (h *Handlers) CartSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing user identity", http.StatusUnauthorized)
		return
	}

	lines, total, err := h.service.CartSummary(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	type lineDTO struct {
		TicketTypeID uuid.UUID `json:"ticket_type_id"`
		ProductName  string    `json:"product_name"`
		TicketName   string    `json:"ticket_name"`
		UnitPrice    float64   `json:"unit_price"`
		Quantity     int       `json:"quantity"`
		Subtotal     float64   `json:"subtotal"`
	}
	dto := make([]lineDTO, len(lines))
	for i, l := range lines {
		dto[i] = lineDTO{
			TicketTypeID: l.TicketTypeID,
			ProductName:  l.ProductName,
			TicketName:   l.TicketName,
			UnitPrice:    l.UnitPrice,
			Quantity:     l.Quantity,
			Subtotal:     l.UnitPrice * float64(l.Quantity),
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"order":        dto,
		"total_amount": total,
	})
}

func (h *Handlers) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing user identity", http.StatusUnauthorized)
		return
	}

	key := r.Header.Get("Idempotency-Key")
	existing, err := h.idemp.Get(r.Context(), key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if existing != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(existing.Status)
		w.Write(existing.Result)
		return
	}

	var form domain.CheckoutForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.service.ProcessOrder(r.Context(), userID, form)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	data, _ := json.Marshal(map[string]string{
		"status":  result.Status,
		"message": result.Message,
	})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)

	// A dead replay cache must not fail the order, but it has to be visible.
	if err := h.idemp.Set(r.Context(), key, idempotency.Response{Status: http.StatusOK, Result: data}); err != nil {
		h.logger.WithField("idempotency_key", key).Error("failed to store idempotent response", err)
	}
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	order, err := h.repo.GetOrder(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"order_id": order.ID,
		"status":   order.Status,
		"total":    order.TotalAmount,
		"items":    order.Items,
	})
}

// ECPayReturn is the gateway's server callback. The payload is a terminal
// acknowledgment only; the browser ends up on the static success page.
func (h *Handlers) ECPayReturn(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/success.html", http.StatusFound)
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}

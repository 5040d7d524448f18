// Package payment dispatches a checkout to one of the supported payment
// strategies. The method set is closed; selection happens before any
// stateful work so an unsupported code never reaches the ledger.
package payment

import (
	"github.com/cockroachdb/errors"
	"github.com/openticket/checkout-service/internal/domain"
	"github.com/openticket/checkout-service/internal/ecpay"
)

// Outcome is either a direct settlement (ATM, awaiting manual transfer
// confirmation) or a gateway redirect carrying the signed form payload.
type Outcome struct {
	Redirect bool
	Payload  string
}

type Strategy interface {
	Validate(form domain.CheckoutForm) error
	Pay(form domain.CheckoutForm, totalAmount int64) (Outcome, error)
}

type Dispatcher struct {
	gateway *ecpay.Client
}

func NewDispatcher(gateway *ecpay.Client) *Dispatcher {
	return &Dispatcher{gateway: gateway}
}

func (d *Dispatcher) Select(method domain.PaymentMethod) (Strategy, error) {
	switch method {
	case domain.MethodATM:
		return atmStrategy{}, nil
	case domain.MethodCreditCard:
		return creditCardStrategy{gateway: d.gateway}, nil
	case domain.MethodLinePay:
		return linePayStrategy{gateway: d.gateway}, nil
	default:
		return nil, errors.Wrapf(domain.ErrUnsupportedPaymentMethod, "method %q", method)
	}
}

type atmStrategy struct{}

func (atmStrategy) Validate(form domain.CheckoutForm) error {
	return domain.ValidateATMAccount(form.ATMLast5)
}

func (atmStrategy) Pay(form domain.CheckoutForm, totalAmount int64) (Outcome, error) {
	if err := domain.ValidateATMAccount(form.ATMLast5); err != nil {
		return Outcome{}, err
	}
	return Outcome{Redirect: false}, nil
}

type creditCardStrategy struct {
	gateway *ecpay.Client
}

func (creditCardStrategy) Validate(domain.CheckoutForm) error { return nil }

func (s creditCardStrategy) Pay(form domain.CheckoutForm, totalAmount int64) (Outcome, error) {
	payload := s.gateway.BuildRedirect(totalAmount, "OpenTicket Order", "ticket purchase", "Credit")
	return Outcome{Redirect: true, Payload: payload}, nil
}

type linePayStrategy struct {
	gateway *ecpay.Client
}

func (linePayStrategy) Validate(domain.CheckoutForm) error { return nil }

// The gateway handles LINE Pay through the same Credit flow, so the only
// difference from the card strategy is the trade description.
func (s linePayStrategy) Pay(form domain.CheckoutForm, totalAmount int64) (Outcome, error) {
	payload := s.gateway.BuildRedirect(totalAmount, "OpenTicket LINE Pay Order", "LINE Pay transaction", "Credit")
	return Outcome{Redirect: true, Payload: payload}, nil
}

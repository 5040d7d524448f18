package payment

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openticket/checkout-service/internal/domain"
	"github.com/openticket/checkout-service/internal/ecpay"
)

func testDispatcher() *Dispatcher {
	return NewDispatcher(ecpay.NewClient(ecpay.Config{
		MerchantID:    "2000132",
		HashKey:       "5294y06JbISpM5x9",
		HashIV:        "v77hoKGq4kWxNNIS",
		APIURL:        "https://payment-stage.ecpay.com.tw/Cashier/AioCheckOut/V5",
		ClientBackURL: "https://shop.example.com/success.html",
		Domain:        "https://shop.example.com",
	}))
}

func TestSelect_KnownMethods(t *testing.T) {
	d := testDispatcher()
	for _, m := range []domain.PaymentMethod{domain.MethodATM, domain.MethodCreditCard, domain.MethodLinePay} {
		s, err := d.Select(m)
		require.NoError(t, err, "method %s", m)
		require.NotNil(t, s)
	}
}

func TestSelect_UnknownMethod(t *testing.T) {
	d := testDispatcher()
	_, err := d.Select(domain.PaymentMethod("BITCOIN"))
	assert.True(t, errors.Is(err, domain.ErrUnsupportedPaymentMethod))
}

func TestATM_RejectsNonDigitSuffix(t *testing.T) {
	d := testDispatcher()
	s, err := d.Select(domain.MethodATM)
	require.NoError(t, err)

	err = s.Validate(domain.CheckoutForm{ATMLast5: "12AB5"})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = s.Pay(domain.CheckoutForm{ATMLast5: "12AB5"}, 1000)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestATM_DirectSettlement(t *testing.T) {
	d := testDispatcher()
	s, err := d.Select(domain.MethodATM)
	require.NoError(t, err)

	out, err := s.Pay(domain.CheckoutForm{ATMLast5: "12345"}, 1000)
	require.NoError(t, err)
	assert.False(t, out.Redirect)
	assert.Empty(t, out.Payload)
}

func TestGatewayMethods_ReturnRedirect(t *testing.T) {
	d := testDispatcher()
	for _, m := range []domain.PaymentMethod{domain.MethodCreditCard, domain.MethodLinePay} {
		s, err := d.Select(m)
		require.NoError(t, err)
		require.NoError(t, s.Validate(domain.CheckoutForm{}))

		out, err := s.Pay(domain.CheckoutForm{}, 1300)
		require.NoError(t, err)
		assert.True(t, out.Redirect, "method %s", m)
		assert.Contains(t, out.Payload, "<form id='ecpay-form'")
		assert.Contains(t, out.Payload, "name='ChoosePayment' value='Credit'")
		assert.Contains(t, out.Payload, "name='TotalAmount' value='1300'")
	}
}

package domain

import (
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePaymentMethod(t *testing.T) {
	for _, raw := range []string{"ATM", "CARD", "LINEPAY"} {
		m, err := ParsePaymentMethod(raw)
		require.NoError(t, err)
		assert.Equal(t, PaymentMethod(raw), m)
	}

	_, err := ParsePaymentMethod("")
	assert.True(t, errors.Is(err, ErrValidation))

	_, err = ParsePaymentMethod("PAYPAL")
	assert.True(t, errors.Is(err, ErrUnsupportedPaymentMethod))
}

func TestValidateInvoice(t *testing.T) {
	tests := []struct {
		name    string
		form    CheckoutForm
		wantErr bool
	}{
		{"missing type", CheckoutForm{}, true},
		{"company 8 digits", CheckoutForm{InvoiceType: InvoiceCompany, InvoiceValue: "12345678"}, false},
		{"company 7 digits", CheckoutForm{InvoiceType: InvoiceCompany, InvoiceValue: "1234567"}, true},
		{"company letters", CheckoutForm{InvoiceType: InvoiceCompany, InvoiceValue: "1234567a"}, true},
		{"e-invoice carrier", CheckoutForm{InvoiceType: InvoiceElectronic, InvoiceValue: "/ABC+123"}, false},
		{"e-invoice blank", CheckoutForm{InvoiceType: InvoiceElectronic, InvoiceValue: "   "}, true},
		{"donation code", CheckoutForm{InvoiceType: InvoiceDonation, InvoiceValue: "919"}, false},
		{"donation blank", CheckoutForm{InvoiceType: InvoiceDonation, InvoiceValue: ""}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.form.ValidateInvoice()
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrValidation))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateATMAccount(t *testing.T) {
	assert.NoError(t, ValidateATMAccount("12345"))
	assert.Error(t, ValidateATMAccount("12AB5"))
	assert.Error(t, ValidateATMAccount("1234"))
	assert.Error(t, ValidateATMAccount("123456"))
	assert.Error(t, ValidateATMAccount(""))
}

func TestDeriveInvoice(t *testing.T) {
	inv := DeriveInvoice(InvoiceElectronic, CarrierOptionBarcode, "/ABC+123")
	require.NotNil(t, inv.CarrierType)
	assert.Equal(t, "Mobile Barcode", *inv.CarrierType)
	require.NotNil(t, inv.CarrierCode)
	assert.Equal(t, "/ABC+123", *inv.CarrierCode)
	assert.Nil(t, inv.TaxID)
	assert.Nil(t, inv.DonationCode)

	inv = DeriveInvoice(InvoiceElectronic, CarrierOptionSameEmail, "user@example.com")
	require.NotNil(t, inv.CarrierType)
	assert.Equal(t, "Email", *inv.CarrierType)
	assert.Nil(t, inv.CarrierCode)

	inv = DeriveInvoice(InvoiceCompany, "", "12345678")
	require.NotNil(t, inv.TaxID)
	assert.Equal(t, "12345678", *inv.TaxID)
	assert.Nil(t, inv.CarrierType)

	inv = DeriveInvoice(InvoiceDonation, "", "919")
	require.NotNil(t, inv.DonationCode)
	assert.Equal(t, "919", *inv.DonationCode)

	inv = DeriveInvoice("PAPER", "WHATEVER", "x")
	assert.Nil(t, inv.CarrierType)
	assert.Nil(t, inv.CarrierCode)
	assert.Nil(t, inv.TaxID)
	assert.Nil(t, inv.DonationCode)
}

func TestTicketQuotaCanCover(t *testing.T) {
	remaining := 3
	limited := TicketQuota{TicketTypeID: uuid.New(), IsLimited: true, Remaining: &remaining}
	assert.True(t, limited.CanCover(3))
	assert.False(t, limited.CanCover(4))

	unlimited := TicketQuota{TicketTypeID: uuid.New()}
	assert.True(t, unlimited.CanCover(1000))

	// Limited with no counter fails closed.
	broken := TicketQuota{TicketTypeID: uuid.New(), IsLimited: true}
	assert.False(t, broken.CanCover(1))
}

func TestCartTotal(t *testing.T) {
	lines := []CartLine{
		{TicketTypeID: uuid.New(), Quantity: 2, UnitPrice: 500},
		{TicketTypeID: uuid.New(), Quantity: 1, UnitPrice: 300},
	}
	assert.Equal(t, int64(1300), CartTotal(lines))

	assert.Equal(t, int64(0), CartTotal(nil))

	// Truncated, not rounded.
	assert.Equal(t, int64(1999), CartTotal([]CartLine{{Quantity: 2, UnitPrice: 999.99}}))
}

func TestNewReservation(t *testing.T) {
	userID := uuid.New()
	lines := []CartLine{
		{TicketTypeID: uuid.New(), Quantity: 2, UnitPrice: 500},
		{TicketTypeID: uuid.New(), Quantity: 1, UnitPrice: 300},
	}
	res := NewReservation(userID, lines, 15*time.Minute)

	assert.Equal(t, ReservationLocked, res.Status)
	assert.Equal(t, userID, res.UserID)
	assert.Equal(t, 3, res.Quantity)
	assert.Equal(t, int64(1300), res.TotalAmount)
	require.Len(t, res.Items, 2)
	assert.Equal(t, lines[0].TicketTypeID, res.Items[0].TicketTypeID)
	assert.WithinDuration(t, res.CreatedAt.Add(15*time.Minute), res.ExpiresAt, time.Second)
}

func TestNewOrder(t *testing.T) {
	userID := uuid.New()
	lines := []CartLine{
		{TicketTypeID: uuid.New(), Quantity: 2, UnitPrice: 500},
		{TicketTypeID: uuid.New(), Quantity: 1, UnitPrice: 300},
	}
	inv := DeriveInvoice(InvoiceCompany, "", "12345678")

	order := NewOrder(userID, lines, inv)
	assert.Equal(t, OrderPending, order.Status)
	assert.Equal(t, int64(1300), order.TotalAmount)
	require.Len(t, order.Items, 2)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.Equal(t, 500.0, order.Items[0].UnitPrice)
	require.NotNil(t, order.Invoice.TaxID)
}

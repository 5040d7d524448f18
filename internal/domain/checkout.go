package domain

import (
	"regexp"

	"github.com/cockroachdb/errors"
)

// PaymentMethod is the closed set of supported methods. Parsing the raw
// form value happens before any stateful work, so an unknown code can
// never follow a stock decrement.
type PaymentMethod string

const (
	MethodATM        PaymentMethod = "ATM"
	MethodCreditCard PaymentMethod = "CARD"
	MethodLinePay    PaymentMethod = "LINEPAY"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(s) {
	case MethodATM, MethodCreditCard, MethodLinePay:
		return PaymentMethod(s), nil
	case "":
		return "", errors.Wrap(ErrValidation, "payment method is required")
	default:
		return "", errors.Wrapf(ErrUnsupportedPaymentMethod, "method %q", s)
	}
}

// CheckoutForm carries the fields submitted from the checkout page.
type CheckoutForm struct {
	PaymentMethod string `json:"payment_method"`
	ATMLast5      string `json:"atm_last5"`
	InvoiceType   string `json:"invoice_type"`
	InvoiceValue  string `json:"invoice_value"`
	InvoiceOption string `json:"inv_option"`
	CustomerEmail string `json:"customer_email"`
}

var (
	taxIDPattern    = regexp.MustCompile(`^\d{8}$`)
	atmLast5Pattern = regexp.MustCompile(`^\d{5}$`)
	blankPattern    = regexp.MustCompile(`^\s*$`)
)

// ValidateInvoice enforces the per-type invoice field rules.
func (f CheckoutForm) ValidateInvoice() error {
	if f.InvoiceType == "" {
		return errors.Wrap(ErrValidation, "invoice type is required")
	}
	switch f.InvoiceType {
	case InvoiceCompany:
		if !taxIDPattern.MatchString(f.InvoiceValue) {
			return errors.Wrap(ErrValidation, "tax id must be exactly 8 digits")
		}
	case InvoiceElectronic:
		if blankPattern.MatchString(f.InvoiceValue) {
			return errors.Wrap(ErrValidation, "mobile barcode or email is required")
		}
	case InvoiceDonation:
		if blankPattern.MatchString(f.InvoiceValue) {
			return errors.Wrap(ErrValidation, "donation code is required")
		}
	}
	return nil
}

// ValidateATMAccount checks the 5-digit bank-account suffix used by the
// ATM transfer method.
func ValidateATMAccount(last5 string) error {
	if !atmLast5Pattern.MatchString(last5) {
		return errors.Wrap(ErrValidation, "atm account suffix must be 5 digits")
	}
	return nil
}

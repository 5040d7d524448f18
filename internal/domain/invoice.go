package domain

const (
	InvoiceElectronic = "E_INVOICE"
	InvoiceCompany    = "COMPANY"
	InvoiceDonation   = "DONATION"
)

const (
	CarrierOptionBarcode     = "CUSTOM_BARCODE"
	CarrierOptionSameEmail   = "SAME_EMAIL"
	CarrierOptionCustomEmail = "CUSTOM_EMAIL"
)

// Invoice holds the derived invoice fields stored on the order header.
// Sub-fields not applicable to the invoice type stay nil.
type Invoice struct {
	Type         string
	Value        string
	CarrierType  *string
	CarrierCode  *string
	TaxID        *string
	DonationCode *string
}

// DeriveInvoice maps invoice type and option code onto carrier/tax/donation
// fields. Unrecognized combinations leave every sub-field absent.
func DeriveInvoice(invType, option, value string) Invoice {
	inv := Invoice{Type: invType, Value: value}
	switch invType {
	case InvoiceElectronic:
		switch option {
		case CarrierOptionBarcode:
			inv.CarrierType = strptr("Mobile Barcode")
			inv.CarrierCode = strptr(value)
		case CarrierOptionSameEmail, CarrierOptionCustomEmail:
			inv.CarrierType = strptr("Email")
		}
	case InvoiceCompany:
		inv.TaxID = strptr(value)
	case InvoiceDonation:
		inv.DonationCode = strptr(value)
	}
	return inv
}

func strptr(s string) *string { return &s }

package checkout

import "strings"

// PaymentMethod is the top-level payment choice.
type PaymentMethod string

const (
	// PaymentCOD is cash on delivery.
	PaymentCOD PaymentMethod = "cod"
	// PaymentOnline is a manual online transfer, evidenced by an uploaded proof.
	PaymentOnline PaymentMethod = "online"
)

// OnlineOption is the manual transfer channel for online payments.
type OnlineOption string

const (
	OnlineOptionNone   OnlineOption = ""
	OnlineJazzCash     OnlineOption = "JazzCash"
	OnlineEasyPaisa    OnlineOption = "EasyPaisa"
	OnlineBankTransfer OnlineOption = "BankTransfer"
)

// DefaultCountry is the fixed country for this single-country deployment.
const DefaultCountry = "Pakistan"

// ShippingForm carries the shipping address and payment choice for an order.
type ShippingForm struct {
	FirstName string
	LastName  string
	Email     string
	Address   string
	City      string
	// PostCode is optional and never validated.
	PostCode string
	Country  string
	// MobileNumber must be a syntactically plausible international number.
	MobileNumber  string
	PaymentMethod PaymentMethod
	// SaveInfo asks the backend to remember this address for future orders.
	SaveInfo            bool
	OnlinePaymentOption OnlineOption
}

// NewShippingForm returns a form with the deployment defaults applied.
func NewShippingForm() ShippingForm {
	return ShippingForm{
		Country:       DefaultCountry,
		PaymentMethod: PaymentCOD,
		SaveInfo:      true,
	}
}

// Normalized returns a submission-ready copy: whitespace trimmed and a blank
// postal code dropped entirely so the backend never receives an empty string.
func (f ShippingForm) Normalized() ShippingForm {
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	f.Email = strings.TrimSpace(f.Email)
	f.Address = strings.TrimSpace(f.Address)
	f.City = strings.TrimSpace(f.City)
	f.PostCode = strings.TrimSpace(f.PostCode)
	f.MobileNumber = strings.TrimSpace(f.MobileNumber)
	if f.Country == "" {
		f.Country = DefaultCountry
	}
	if f.PaymentMethod != PaymentOnline {
		f.OnlinePaymentOption = OnlineOptionNone
	}
	return f
}

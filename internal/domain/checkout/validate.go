package checkout

import (
	"regexp"
	"sort"
	"strings"
)

// FieldErrors maps a form field name to a user-facing message. An empty map
// means the form is valid.
type FieldErrors map[string]string

// Valid reports whether no field failed validation.
func (e FieldErrors) Valid() bool {
	return len(e) == 0
}

// Clear removes the error for a single field. Used for optimistic clearing
// when the customer edits a field: only that field's error goes away, the
// rest of the error set stays.
func (e FieldErrors) Clear(field string) {
	delete(e, field)
}

// Messages returns all error messages in stable field order.
func (e FieldErrors) Messages() []string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	msgs := make([]string, len(fields))
	for i, f := range fields {
		msgs[i] = e[f]
	}
	return msgs
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// validEmail checks standard email-address syntax.
func validEmail(s string) bool {
	return emailPattern.MatchString(s)
}

var phoneDigits = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// validMobile checks general international phone-number syntax. Separators
// are stripped first; the check is deliberately not locale-restricted.
func validMobile(s string) bool {
	stripped := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "").Replace(s)
	return phoneDigits.MatchString(stripped)
}

// Validate checks the form against the submission rules and returns all
// accumulated field errors. proofAttached reports whether a payment proof
// file is currently attached; it is only consulted for online payments.
// PostCode is always optional and Country carries a fixed default, so
// neither is validated.
func Validate(f ShippingForm, proofAttached bool) FieldErrors {
	errs := FieldErrors{}

	if strings.TrimSpace(f.FirstName) == "" {
		errs["firstName"] = "First Name is required"
	}
	if strings.TrimSpace(f.LastName) == "" {
		errs["lastName"] = "Last Name is required"
	}
	if strings.TrimSpace(f.Email) == "" || !validEmail(strings.TrimSpace(f.Email)) {
		errs["email"] = "Valid email is required"
	}
	if strings.TrimSpace(f.Address) == "" {
		errs["address"] = "Address is required"
	}
	if strings.TrimSpace(f.City) == "" {
		errs["city"] = "City is required"
	}
	if strings.TrimSpace(f.MobileNumber) == "" || !validMobile(strings.TrimSpace(f.MobileNumber)) {
		errs["mobileNumber"] = "Valid mobile number is required"
	}

	if f.PaymentMethod == PaymentOnline {
		if f.OnlinePaymentOption == OnlineOptionNone {
			errs["onlinePaymentOption"] = "Please select a payment option"
		}
		if !proofAttached {
			errs["paymentProof"] = "Payment proof is required for online payments"
		}
	}

	return errs
}

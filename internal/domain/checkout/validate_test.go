package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validForm() ShippingForm {
	f := NewShippingForm()
	f.FirstName = "Ayesha"
	f.LastName = "Khan"
	f.Email = "ayesha@example.com"
	f.Address = "14-B Gulberg III"
	f.City = "Lahore"
	f.MobileNumber = "+92 300 1234567"
	return f
}

func TestValidate_ValidCODForm(t *testing.T) {
	errs := Validate(validForm(), false)
	assert.True(t, errs.Valid())
}

func TestValidate_RequiredFields(t *testing.T) {
	tests := []struct {
		field  string
		mutate func(*ShippingForm)
	}{
		{"firstName", func(f *ShippingForm) { f.FirstName = "" }},
		{"lastName", func(f *ShippingForm) { f.LastName = "  " }},
		{"email", func(f *ShippingForm) { f.Email = "" }},
		{"address", func(f *ShippingForm) { f.Address = "" }},
		{"city", func(f *ShippingForm) { f.City = "\t" }},
		{"mobileNumber", func(f *ShippingForm) { f.MobileNumber = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			f := validForm()
			tt.mutate(&f)

			errs := Validate(f, false)
			require.False(t, errs.Valid())
			assert.Contains(t, errs, tt.field)
		})
	}
}

func TestValidate_EmailSyntax(t *testing.T) {
	f := validForm()
	f.Email = "not-an-email"

	errs := Validate(f, false)
	assert.Equal(t, "Valid email is required", errs["email"])
}

func TestValidate_MobileSyntax(t *testing.T) {
	accepted := []string{
		"+923001234567",
		"03001234567",
		"+1 (415) 555-0123",
		"0300-123-4567",
	}
	rejected := []string{
		"12345",
		"not a number",
		"+92300123456789012345",
	}

	for _, num := range accepted {
		f := validForm()
		f.MobileNumber = num
		assert.NotContains(t, Validate(f, false), "mobileNumber", "expected %q to be accepted", num)
	}
	for _, num := range rejected {
		f := validForm()
		f.MobileNumber = num
		assert.Contains(t, Validate(f, false), "mobileNumber", "expected %q to be rejected", num)
	}
}

func TestValidate_PostCodeNeverValidated(t *testing.T) {
	f := validForm()
	f.PostCode = ""
	assert.NotContains(t, Validate(f, false), "postCode")

	f.PostCode = "anything at all"
	assert.NotContains(t, Validate(f, false), "postCode")
}

func TestValidate_OnlineRequiresOptionAndProof(t *testing.T) {
	f := validForm()
	f.PaymentMethod = PaymentOnline

	errs := Validate(f, false)
	assert.Equal(t, "Please select a payment option", errs["onlinePaymentOption"])
	assert.Equal(t, "Payment proof is required for online payments", errs["paymentProof"])

	f.OnlinePaymentOption = OnlineJazzCash
	errs = Validate(f, true)
	assert.True(t, errs.Valid())
}

func TestValidate_CODNeverRequiresOnlineFields(t *testing.T) {
	f := validForm()
	f.PaymentMethod = PaymentCOD
	f.OnlinePaymentOption = OnlineOptionNone

	errs := Validate(f, false)
	assert.NotContains(t, errs, "onlinePaymentOption")
	assert.NotContains(t, errs, "paymentProof")
}

func TestFieldErrors_OptimisticClearing(t *testing.T) {
	f := ShippingForm{PaymentMethod: PaymentCOD}
	errs := Validate(f, false)
	require.Greater(t, len(errs), 1)

	before := len(errs)
	errs.Clear("email")

	assert.NotContains(t, errs, "email")
	assert.Len(t, errs, before-1)
}

func TestFieldErrors_MessagesStableOrder(t *testing.T) {
	errs := FieldErrors{
		"lastName":  "Last Name is required",
		"firstName": "First Name is required",
	}
	assert.Equal(t, []string{"First Name is required", "Last Name is required"}, errs.Messages())
}

func TestShippingForm_Normalized(t *testing.T) {
	f := validForm()
	f.FirstName = "  Ayesha "
	f.PostCode = "   "
	f.OnlinePaymentOption = OnlineJazzCash // stale from a reverted online choice

	n := f.Normalized()
	assert.Equal(t, "Ayesha", n.FirstName)
	assert.Empty(t, n.PostCode)
	assert.Equal(t, OnlineOptionNone, n.OnlinePaymentOption)
	assert.Equal(t, DefaultCountry, n.Country)
}

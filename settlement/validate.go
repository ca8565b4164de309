package settlement

import (
	"net/mail"
	"net/url"
	"regexp"
	"strings"

	"github.com/sig-0/remesas/storage/types"
)

var (
	phoneRegex   = regexp.MustCompile(`^\+?[0-9]{10,13}$`)
	accountRegex = regexp.MustCompile(`^[0-9]{10,20}$`)
)

// validateRecipient verifies the payout details of a VES recipient
func validateRecipient(r *types.Recipient, verr *ValidationError) {
	if r == nil {
		verr.add("recipient", "required for VES payouts")

		return
	}

	if strings.TrimSpace(r.FullName) == "" {
		verr.add("recipient.full_name", "required")
	}

	if strings.TrimSpace(r.NationalID) == "" {
		verr.add("recipient.national_id", "required")
	}

	if strings.TrimSpace(r.Bank) == "" {
		verr.add("recipient.bank", "required")
	}

	switch r.PaymentMethod {
	case types.PaymentMethodBank:
		if !accountRegex.MatchString(r.AccountNumber) {
			verr.add("recipient.account_number", "must be 10 to 20 digits")
		}
	case types.PaymentMethodPagoMovil:
		if !phoneRegex.MatchString(r.PhoneNumber) {
			verr.add("recipient.phone_number", "must be a valid phone number")
		}
	default:
		verr.add("recipient.payment_method", "must be bank or pagoMovil")
	}
}

// validateReceiptURL verifies the receipt reference is an absolute URL
func validateReceiptURL(raw string) error {
	u, err := url.ParseRequestURI(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		verr := newValidationError()
		verr.add("receipt_url", "must be an absolute http(s) URL")

		return verr
	}

	return nil
}

// validateAccount verifies the admin account details
func validateAccount(acc *types.AdminAccount) error {
	verr := newValidationError()

	required := []struct {
		field, value string
	}{
		{"bank_name", acc.BankName},
		{"account_holder", acc.AccountHolder},
		{"national_id", acc.NationalID},
		{"account_type", acc.AccountType},
		{"account_number", acc.AccountNumber},
	}

	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			verr.add(r.field, "required")
		}
	}

	if acc.Email != "" {
		if _, err := mail.ParseAddress(acc.Email); err != nil {
			verr.add("email", "must be a valid email address")
		}
	}

	return verr.orNil()
}

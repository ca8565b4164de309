package types

import (
	"errors"
	"fmt"
	"math"
	"time"
)

type Currency string

func (c Currency) String() string {
	return string(c)
}

// Status is the settlement status of a transaction
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

func (s Status) String() string {
	return string(s)
}

// Valid returns true if the status is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal returns true if no further transitions are allowed
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// PaymentMethod is how the recipient is paid out
type PaymentMethod string

const (
	PaymentMethodBank      PaymentMethod = "bank"
	PaymentMethodPagoMovil PaymentMethod = "pagoMovil"
)

// Recipient holds the payout details for the receiving side
type Recipient struct {
	PaymentMethod PaymentMethod `json:"payment_method" bson:"payment_method"`
	FullName      string        `json:"full_name" bson:"full_name"`
	NationalID    string        `json:"national_id" bson:"national_id"`
	Bank          string        `json:"bank" bson:"bank"`
	AccountNumber string        `json:"account_number,omitempty" bson:"account_number,omitempty"`
	PhoneNumber   string        `json:"phone_number,omitempty" bson:"phone_number,omitempty"`
}

// Transaction is a single recorded conversion intent
type Transaction struct {
	CreatedAt       time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" bson:"updated_at"`
	Recipient       *Recipient `json:"recipient,omitempty" bson:"recipient,omitempty"`
	ID              string     `json:"id" bson:"_id"`
	UserID          string     `json:"user_id" bson:"user_id"`
	FromCurrency    Currency   `json:"from_currency" bson:"from_currency"`
	ToCurrency      Currency   `json:"to_currency" bson:"to_currency"`
	Status          Status     `json:"status" bson:"status"`
	UserReceiptURL  string     `json:"user_receipt_url,omitempty" bson:"user_receipt_url,omitempty"`
	AdminReceiptURL string     `json:"admin_receipt_url,omitempty" bson:"admin_receipt_url,omitempty"`
	AmountSend      float64    `json:"amount_send" bson:"amount_send"`
	AmountReceive   float64    `json:"amount_receive" bson:"amount_receive"`
	RateApplied     float64    `json:"rate_applied" bson:"rate_applied"`
	SnapshotVersion uint64     `json:"snapshot_version" bson:"snapshot_version"`
}

// AdminAccount is a destination account for CLP settlement
type AdminAccount struct {
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
	ID            string    `json:"id" bson:"_id"`
	BankName      string    `json:"bank_name" bson:"bank_name"`
	AccountHolder string    `json:"account_holder" bson:"account_holder"`
	NationalID    string    `json:"national_id" bson:"national_id"`
	AccountType   string    `json:"account_type" bson:"account_type"`
	AccountNumber string    `json:"account_number" bson:"account_number"`
	Email         string    `json:"email,omitempty" bson:"email,omitempty"`
	UpdatedBy     string    `json:"updated_by" bson:"updated_by"`
}

const (
	DefaultDiscountWLDCLP = 0.14
	DefaultDiscountCLPVES = 0.06
	DefaultMarginUSDTCLP  = 0.004
)

var ErrFractionOutOfRange = errors.New("fraction must be within [0, 1]")

// MarginConfig holds the discounts and margins applied on top of the
// derived base rates. All values are fractions in [0, 1]
type MarginConfig struct {
	UpdatedAt      time.Time `json:"updated_at" bson:"updated_at"`
	UpdatedBy      string    `json:"updated_by,omitempty" bson:"updated_by,omitempty"`
	DiscountWLDCLP float64   `json:"discount_wld_clp" bson:"discount_wld_clp"`
	DiscountCLPVES float64   `json:"discount_clp_ves" bson:"discount_clp_ves"`
	MarginUSDTCLP  float64   `json:"margin_usdt_clp" bson:"margin_usdt_clp"`
}

// DefaultMarginConfig returns the default margin configuration
func DefaultMarginConfig() MarginConfig {
	return MarginConfig{
		DiscountWLDCLP: DefaultDiscountWLDCLP,
		DiscountCLPVES: DefaultDiscountCLPVES,
		MarginUSDTCLP:  DefaultMarginUSDTCLP,
	}
}

// Validate verifies every fraction is a finite value within [0, 1]
func (m MarginConfig) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"discount_wld_clp", m.DiscountWLDCLP},
		{"discount_clp_ves", m.DiscountCLPVES},
		{"margin_usdt_clp", m.MarginUSDTCLP},
	}

	for _, f := range fields {
		if math.IsNaN(f.value) || f.value < 0 || f.value > 1 {
			return fmt.Errorf("%s: %w", f.name, ErrFractionOutOfRange)
		}
	}

	return nil
}

// Page is a single page of query results
type Page[T any] struct {
	Results []T   `json:"results"`
	Total   int64 `json:"total"`
}

// TransactionQuery filters a transaction listing.
// Nil filters match everything
type TransactionQuery struct {
	UserID *string `json:"user_id,omitempty"`
	Status *Status `json:"status,omitempty"`
	Limit  uint    `json:"limit,omitempty"`
	Offset uint    `json:"offset,omitempty"`
}

const (
	DefaultPageLimit = 100
	MaxPageLimit     = 500
)

// PageLimit returns the effective page size of the query
func (q *TransactionQuery) PageLimit() uint {
	if q == nil || q.Limit == 0 {
		return DefaultPageLimit
	}

	if q.Limit > MaxPageLimit {
		return MaxPageLimit
	}

	return q.Limit
}

// Matches returns true if the transaction passes the query filters
func (q *TransactionQuery) Matches(tx *Transaction) bool {
	if q == nil {
		return true
	}

	if q.UserID != nil && tx.UserID != *q.UserID {
		return false
	}

	if q.Status != nil && tx.Status != *q.Status {
		return false
	}

	return true
}

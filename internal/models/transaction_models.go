package models

import (
	"fmt"
	"strings"
	"time"

	"fraud-detector/internal/custom_err"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCreditCard   PaymentMethod = "CREDIT_CARD"
	PaymentGoPay        PaymentMethod = "GOPAY"
	PaymentOVO          PaymentMethod = "OVO"
	PaymentBankTransfer PaymentMethod = "BANK_TRANSFER"
)

func (p PaymentMethod) IsValid() bool {
	switch p {
	case PaymentCreditCard, PaymentGoPay, PaymentOVO, PaymentBankTransfer:
		return true
	}
	return false
}

type TransactionStatus string

const (
	StatusApproved     TransactionStatus = "APPROVED"
	StatusSoftDeclined TransactionStatus = "SOFT_DECLINED"
	StatusHardDeclined TransactionStatus = "HARD_DECLINED"
)

func (s TransactionStatus) IsValid() bool {
	return s == StatusApproved || s == StatusSoftDeclined || s == StatusHardDeclined
}

// DeclinedStatuses are the statuses counted as declines in the decline window.
func DeclinedStatuses() []TransactionStatus {
	return []TransactionStatus{StatusSoftDeclined, StatusHardDeclined}
}

type ProductCategory string

const (
	CategoryLaptop      ProductCategory = "LAPTOP"
	CategorySmartphone  ProductCategory = "SMARTPHONE"
	CategoryCamera      ProductCategory = "CAMERA"
	CategoryAccessories ProductCategory = "ACCESSORIES"
)

func (c ProductCategory) IsValid() bool {
	switch c {
	case CategoryLaptop, CategorySmartphone, CategoryCamera, CategoryAccessories:
		return true
	}
	return false
}

// IsHighValue reports whether bulk orders of the category are suspicious.
func (c ProductCategory) IsHighValue() bool {
	return c == CategoryLaptop || c == CategorySmartphone || c == CategoryCamera
}

// Transaction is a persisted e-commerce transaction. Timestamp is always UTC
// and is the only clock used for window computations.
type Transaction struct {
	ID                string            `json:"transaction_id" db:"transaction_id"`
	Timestamp         time.Time         `json:"timestamp" db:"timestamp"`
	CustomerEmail     string            `json:"customer_email" db:"customer_email"`
	CustomerIP        string            `json:"customer_ip" db:"customer_ip"`
	BillingCountry    string            `json:"billing_country" db:"billing_country"`
	ShippingCountry   string            `json:"shipping_country" db:"shipping_country"`
	CardBIN           *string           `json:"card_bin" db:"card_bin"`
	PaymentMethod     PaymentMethod     `json:"payment_method" db:"payment_method"`
	AmountUSD         decimal.Decimal   `json:"amount_usd" db:"amount_usd"`
	Status            TransactionStatus `json:"status" db:"status"`
	ProductCategory   ProductCategory   `json:"product_category" db:"product_category"`
	Quantity          int               `json:"quantity" db:"quantity"`
	UnitPrice         decimal.Decimal   `json:"unit_price" db:"unit_price"`
	DeviceFingerprint *string           `json:"device_fingerprint" db:"device_fingerprint"`
	IsFirstPurchase   bool              `json:"is_first_purchase" db:"is_first_purchase"`
	CreatedAt         time.Time         `json:"created_at" db:"created_at"`
}

// RawTransaction is a transaction record as it arrives from the upstream feed,
// before the timestamp has been normalised.
type RawTransaction struct {
	ID                string            `json:"transaction_id"`
	Timestamp         string            `json:"timestamp"`
	CustomerEmail     string            `json:"customer_email"`
	CustomerIP        string            `json:"customer_ip"`
	BillingCountry    string            `json:"billing_country"`
	ShippingCountry   string            `json:"shipping_country"`
	CardBIN           *string           `json:"card_bin"`
	PaymentMethod     PaymentMethod     `json:"payment_method"`
	AmountUSD         decimal.Decimal   `json:"amount_usd"`
	Status            TransactionStatus `json:"status"`
	ProductCategory   ProductCategory   `json:"product_category"`
	Quantity          int               `json:"quantity"`
	UnitPrice         decimal.Decimal   `json:"unit_price"`
	DeviceFingerprint *string           `json:"device_fingerprint"`
	IsFirstPurchase   bool              `json:"is_first_purchase"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 timestamp. Seconds may be omitted and a
// bare date means midnight. Inputs without a zone are taken as UTC, never
// local time.
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, custom_err.ErrMalformedTimestamp
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", custom_err.ErrMalformedTimestamp, raw)
}

func isCountryCode(s string) bool {
	if len(s) != 2 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'A' || c > 'Z') && (c < 'a' || c > 'z') {
			return false
		}
	}
	return true
}

func isCardBIN(s string) bool {
	if len(s) != 6 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Normalize validates the raw record and converts it into a Transaction.
func (r RawTransaction) Normalize() (*Transaction, error) {
	if strings.TrimSpace(r.ID) == "" {
		return nil, fmt.Errorf("%w: transaction_id is required", custom_err.ErrInvalidInput)
	}

	ts, err := ParseTimestamp(r.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("transaction %s: %w", r.ID, err)
	}

	switch {
	case !r.PaymentMethod.IsValid():
		return nil, fmt.Errorf("%w: transaction %s: unknown payment_method %q", custom_err.ErrInvalidInput, r.ID, r.PaymentMethod)
	case !r.Status.IsValid():
		return nil, fmt.Errorf("%w: transaction %s: unknown status %q", custom_err.ErrInvalidInput, r.ID, r.Status)
	case !r.ProductCategory.IsValid():
		return nil, fmt.Errorf("%w: transaction %s: unknown product_category %q", custom_err.ErrInvalidInput, r.ID, r.ProductCategory)
	case !r.AmountUSD.IsPositive():
		return nil, fmt.Errorf("%w: transaction %s: amount_usd must be positive", custom_err.ErrInvalidInput, r.ID)
	case !isCountryCode(r.BillingCountry):
		return nil, fmt.Errorf("%w: transaction %s: billing_country %q is not a two-letter code", custom_err.ErrInvalidInput, r.ID, r.BillingCountry)
	case !isCountryCode(r.ShippingCountry):
		return nil, fmt.Errorf("%w: transaction %s: shipping_country %q is not a two-letter code", custom_err.ErrInvalidInput, r.ID, r.ShippingCountry)
	case r.CardBIN != nil && !isCardBIN(*r.CardBIN):
		return nil, fmt.Errorf("%w: transaction %s: card_bin %q is not six digits", custom_err.ErrInvalidInput, r.ID, *r.CardBIN)
	case r.Quantity <= 0:
		return nil, fmt.Errorf("%w: transaction %s: quantity must be positive", custom_err.ErrInvalidInput, r.ID)
	case !r.UnitPrice.IsPositive():
		return nil, fmt.Errorf("%w: transaction %s: unit_price must be positive", custom_err.ErrInvalidInput, r.ID)
	}

	return &Transaction{
		ID:                r.ID,
		Timestamp:         ts,
		CustomerEmail:     r.CustomerEmail,
		CustomerIP:        r.CustomerIP,
		BillingCountry:    r.BillingCountry,
		ShippingCountry:   r.ShippingCountry,
		CardBIN:           r.CardBIN,
		PaymentMethod:     r.PaymentMethod,
		AmountUSD:         r.AmountUSD,
		Status:            r.Status,
		ProductCategory:   r.ProductCategory,
		Quantity:          r.Quantity,
		UnitPrice:         r.UnitPrice,
		DeviceFingerprint: r.DeviceFingerprint,
		IsFirstPurchase:   r.IsFirstPurchase,
	}, nil
}

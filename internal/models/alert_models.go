package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AlertStatus string

const (
	AlertNeedsReview    AlertStatus = "NEEDS_REVIEW"
	AlertInvestigated   AlertStatus = "INVESTIGATED"
	AlertCleared        AlertStatus = "CLEARED"
	AlertConfirmedFraud AlertStatus = "CONFIRMED_FRAUD"
)

func (s AlertStatus) IsValid() bool {
	switch s {
	case AlertNeedsReview, AlertInvestigated, AlertCleared, AlertConfirmedFraud:
		return true
	}
	return false
}

// PayloadStatusNew is the status carried by every freshly emitted alert payload.
const PayloadStatusNew = "NEW"

// FraudAlert references its transaction by ID only; the alert for a
// transaction is looked up through the alert repository.
type FraudAlert struct {
	ID             uuid.UUID   `json:"alert_id" db:"alert_id"`
	TransactionID  string      `json:"transaction_id" db:"transaction_id"`
	RiskScore      int         `json:"risk_score" db:"risk_score"`
	TriggeredRules []RuleName  `json:"triggered_rules" db:"triggered_rules"`
	Status         AlertStatus `json:"alert_status" db:"alert_status"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt      *time.Time  `json:"updated_at" db:"updated_at"`
}

// AlertPayload is what observers receive once an alert has been committed.
type AlertPayload struct {
	AlertID         uuid.UUID       `json:"alert_id"`
	TransactionID   string          `json:"transaction_id"`
	RiskScore       int             `json:"risk_score"`
	TriggeredRules  []RuleName      `json:"triggered_rules"`
	AlertStatus     string          `json:"alert_status"`
	AmountUSD       decimal.Decimal `json:"amount_usd"`
	CustomerEmail   string          `json:"customer_email"`
	ProductCategory ProductCategory `json:"product_category"`
}

// MarshalJSON writes amount_usd as a JSON number. The decimal text is
// emitted as-is, so no precision is lost.
func (p AlertPayload) MarshalJSON() ([]byte, error) {
	type payload AlertPayload
	return json.Marshal(struct {
		payload
		AmountUSD json.Number `json:"amount_usd"`
	}{
		payload:   payload(p),
		AmountUSD: json.Number(p.AmountUSD.String()),
	})
}

func NewAlertPayload(alert *FraudAlert, tx *Transaction) AlertPayload {
	return AlertPayload{
		AlertID:         alert.ID,
		TransactionID:   alert.TransactionID,
		RiskScore:       alert.RiskScore,
		TriggeredRules:  alert.TriggeredRules,
		AlertStatus:     PayloadStatusNew,
		AmountUSD:       tx.AmountUSD,
		CustomerEmail:   tx.CustomerEmail,
		ProductCategory: tx.ProductCategory,
	}
}

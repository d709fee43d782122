package models

type RuleName string

const (
	RuleVelocity               RuleName = "VELOCITY"
	RuleHighValueFirstPurchase RuleName = "HIGH_VALUE_FIRST_PURCHASE"
	RuleMultipleDeclines       RuleName = "MULTIPLE_DECLINES"
	RuleGeographicMismatch     RuleName = "GEOGRAPHIC_MISMATCH"
	RuleUnusualQuantity        RuleName = "UNUSUAL_QUANTITY"
)

// RuleVerdict is the outcome of a single rule against a single transaction.
type RuleVerdict struct {
	Rule       RuleName `json:"rule_name"`
	Triggered  bool     `json:"triggered"`
	ScoreDelta int      `json:"score_delta"`
	Reason     string   `json:"reason"`
}

// ScoreResult aggregates the verdicts of one transaction.
type ScoreResult struct {
	RiskScore      int              `json:"risk_score"`
	TriggeredRules []RuleName       `json:"triggered_rules"`
	IsFlagged      bool             `json:"is_flagged"`
	Breakdown      map[RuleName]int `json:"breakdown"`
}

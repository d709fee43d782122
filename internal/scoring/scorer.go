package scoring

import (
	"fraud-detector/internal/config"
	"fraud-detector/internal/models"
)

const MaxRiskScore = 100

// Scorer holds no mutable state and is safe for concurrent use.
type Scorer struct {
	threshold int
}

func NewScorer(cfg *config.RulesConfig) *Scorer {
	return &Scorer{threshold: cfg.RiskScoreThreshold}
}

// Calculate sums the deltas of triggered verdicts, caps the sum at
// MaxRiskScore and flags when the capped score reaches the threshold.
func (s *Scorer) Calculate(verdicts []models.RuleVerdict) models.ScoreResult {
	result := models.ScoreResult{
		TriggeredRules: []models.RuleName{},
		Breakdown:      make(map[models.RuleName]int),
	}

	raw := 0
	for _, v := range verdicts {
		if !v.Triggered {
			continue
		}
		result.TriggeredRules = append(result.TriggeredRules, v.Rule)
		result.Breakdown[v.Rule] = v.ScoreDelta
		raw += v.ScoreDelta
	}

	result.RiskScore = min(raw, MaxRiskScore)
	result.IsFlagged = result.RiskScore >= s.threshold
	return result
}

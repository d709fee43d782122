// Package rules holds the fraud heuristics. Every rule is stateless; rules
// that need history read it through History, anchored at the transaction's
// own timestamp so replays of old data give the same verdicts.
package rules

import (
	"context"
	"fmt"
	"log/slog"

	"fraud-detector/internal/config"
	"fraud-detector/internal/models"
	"fraud-detector/internal/storage"
)

const (
	VelocityScore               = 30
	HighValueFirstPurchaseScore = 35
	MultipleDeclinesScore       = 25
	GeographicMismatchScore     = 20
	UnusualQuantityScore        = 15
)

// History is the read side of the transaction store the rules depend on.
type History interface {
	CountByEmailInWindow(ctx context.Context, email string, w storage.Window) (int, error)
	CountByEmailAndStatusInWindow(ctx context.Context, email string, statuses []models.TransactionStatus, w storage.Window) (int, error)
}

type Rule interface {
	Name() models.RuleName
	Evaluate(ctx context.Context, tx *models.Transaction, h History) (models.RuleVerdict, error)
}

func verdict(name models.RuleName, triggered bool, delta int, reason string) models.RuleVerdict {
	if !triggered {
		delta = 0
	}
	return models.RuleVerdict{Rule: name, Triggered: triggered, ScoreDelta: delta, Reason: reason}
}

func exceedsOrWithin(exceeds bool) string {
	if exceeds {
		return "exceeds"
	}
	return "within"
}

type Velocity struct {
	cfg *config.RulesConfig
}

func NewVelocity(cfg *config.RulesConfig) *Velocity { return &Velocity{cfg: cfg} }

func (r *Velocity) Name() models.RuleName { return models.RuleVelocity }

// Evaluate counts the customer's transactions in [t-W, t]. The window
// includes the transaction itself, so it must already be persisted.
func (r *Velocity) Evaluate(ctx context.Context, tx *models.Transaction, h History) (models.RuleVerdict, error) {
	const op = "rules.Velocity"

	count, err := h.CountByEmailInWindow(ctx, tx.CustomerEmail, storage.Trailing(tx.Timestamp, r.cfg.VelocityWindow(), true))
	if err != nil {
		return models.RuleVerdict{}, fmt.Errorf("%s: %w", op, err)
	}

	reason := fmt.Sprintf("Found %d transactions from %s in the last %d minutes (threshold: %d)",
		count, tx.CustomerEmail, r.cfg.VelocityWindowMinutes, r.cfg.VelocityMaxTransactions)
	return verdict(r.Name(), count > r.cfg.VelocityMaxTransactions, VelocityScore, reason), nil
}

type HighValueFirstPurchase struct {
	cfg *config.RulesConfig
}

func NewHighValueFirstPurchase(cfg *config.RulesConfig) *HighValueFirstPurchase {
	return &HighValueFirstPurchase{cfg: cfg}
}

func (r *HighValueFirstPurchase) Name() models.RuleName { return models.RuleHighValueFirstPurchase }

func (r *HighValueFirstPurchase) Evaluate(_ context.Context, tx *models.Transaction, _ History) (models.RuleVerdict, error) {
	exceeds := tx.AmountUSD.GreaterThan(r.cfg.HighValueThreshold)
	reason := fmt.Sprintf("Amount $%s %s threshold $%s, first_purchase=%t",
		tx.AmountUSD.StringFixed(2), exceedsOrWithin(exceeds), r.cfg.HighValueThreshold.StringFixed(2), tx.IsFirstPurchase)
	return verdict(r.Name(), exceeds && tx.IsFirstPurchase, HighValueFirstPurchaseScore, reason), nil
}

type MultipleDeclines struct {
	cfg *config.RulesConfig
}

func NewMultipleDeclines(cfg *config.RulesConfig) *MultipleDeclines { return &MultipleDeclines{cfg: cfg} }

func (r *MultipleDeclines) Name() models.RuleName { return models.RuleMultipleDeclines }

// Evaluate only applies to approved transactions and never queries the store
// otherwise. The window [t-W, t) excludes the transaction being evaluated.
func (r *MultipleDeclines) Evaluate(ctx context.Context, tx *models.Transaction, h History) (models.RuleVerdict, error) {
	const op = "rules.MultipleDeclines"

	if tx.Status != models.StatusApproved {
		reason := fmt.Sprintf("Transaction status is %s, rule only applies to APPROVED", tx.Status)
		return verdict(r.Name(), false, MultipleDeclinesScore, reason), nil
	}

	count, err := h.CountByEmailAndStatusInWindow(
		ctx, tx.CustomerEmail, models.DeclinedStatuses(), storage.Trailing(tx.Timestamp, r.cfg.DeclineWindow(), false),
	)
	if err != nil {
		return models.RuleVerdict{}, fmt.Errorf("%s: %w", op, err)
	}

	reason := fmt.Sprintf("Found %d declined transactions from %s in the last %d hour(s) (threshold: %d)",
		count, tx.CustomerEmail, r.cfg.DeclineWindowHours, r.cfg.DeclineMinCount)
	return verdict(r.Name(), count >= r.cfg.DeclineMinCount, MultipleDeclinesScore, reason), nil
}

type GeographicMismatch struct{}

func NewGeographicMismatch() *GeographicMismatch { return &GeographicMismatch{} }

func (r *GeographicMismatch) Name() models.RuleName { return models.RuleGeographicMismatch }

func (r *GeographicMismatch) Evaluate(_ context.Context, tx *models.Transaction, _ History) (models.RuleVerdict, error) {
	mismatch := tx.BillingCountry != tx.ShippingCountry
	cmp := "=="
	if mismatch {
		cmp = "!="
	}
	reason := fmt.Sprintf("Billing country (%s) %s shipping country (%s)", tx.BillingCountry, cmp, tx.ShippingCountry)
	return verdict(r.Name(), mismatch, GeographicMismatchScore, reason), nil
}

type UnusualQuantity struct {
	cfg *config.RulesConfig
}

func NewUnusualQuantity(cfg *config.RulesConfig) *UnusualQuantity { return &UnusualQuantity{cfg: cfg} }

func (r *UnusualQuantity) Name() models.RuleName { return models.RuleUnusualQuantity }

func (r *UnusualQuantity) Evaluate(_ context.Context, tx *models.Transaction, _ History) (models.RuleVerdict, error) {
	exceeds := tx.Quantity > r.cfg.UnusualQuantityThreshold
	highValue := tx.ProductCategory.IsHighValue()

	membership := "not in"
	if highValue {
		membership = "in"
	}
	reason := fmt.Sprintf("Quantity %d of %s %s threshold %d, category %s high-value set",
		tx.Quantity, tx.ProductCategory, exceedsOrWithin(exceeds), r.cfg.UnusualQuantityThreshold, membership)
	return verdict(r.Name(), exceeds && highValue, UnusualQuantityScore, reason), nil
}

// Engine runs the rules in a fixed order and always evaluates all of them.
type Engine struct {
	rules []Rule
	log   *slog.Logger
}

// NewEngine builds the engine with the five rules in evaluation order.
func NewEngine(cfg *config.RulesConfig, log *slog.Logger) *Engine {
	return &Engine{
		rules: []Rule{
			NewVelocity(cfg),
			NewHighValueFirstPurchase(cfg),
			NewMultipleDeclines(cfg),
			NewGeographicMismatch(),
			NewUnusualQuantity(cfg),
		},
		log: log,
	}
}

// EvaluateAll returns one verdict per rule in engine order. A history read
// error aborts the evaluation; a rule never passes on unreadable history.
func (e *Engine) EvaluateAll(ctx context.Context, tx *models.Transaction, h History) ([]models.RuleVerdict, error) {
	verdicts := make([]models.RuleVerdict, 0, len(e.rules))
	for _, rule := range e.rules {
		v, err := rule.Evaluate(ctx, tx, h)
		if err != nil {
			return nil, fmt.Errorf("evaluate %s for transaction %s: %w", rule.Name(), tx.ID, err)
		}
		e.log.Debug("rule evaluated",
			slog.String("transaction_id", tx.ID),
			slog.String("rule", string(v.Rule)),
			slog.Bool("triggered", v.Triggered),
			slog.String("reason", v.Reason))
		verdicts = append(verdicts, v)
	}
	return verdicts, nil
}

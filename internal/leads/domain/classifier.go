package domain

import "strings"

// DefaultAttemptCeiling is the number of logged contact attempts after which
// an imported lead is considered exhausted.
const DefaultAttemptCeiling = 5

// Signals are the structured facts an import carries next to its free-text
// stage label.
type Signals struct {
	PaymentMethodPresent      bool
	LossReasonPresent         bool
	AttemptCount              int
	HasAnyInteractionEvidence bool
}

// Rule identifies which classification rule produced a status.
type Rule string

const (
	RulePaymentMethod  Rule = "payment_method"
	RuleLossReason     Rule = "loss_reason"
	RuleAttemptCeiling Rule = "attempt_ceiling"
	RuleLabel          Rule = "label"
	RuleDefault        Rule = "default"
	RuleInteraction    Rule = "interaction_evidence"
)

// IsTerminalEvidence reports whether the rule is backed by a recorded
// payment or loss reason, the only evidence allowed to move a lead that has
// already converged to a terminal status.
func (r Rule) IsTerminalEvidence() bool {
	return r == RulePaymentMethod || r == RuleLossReason
}

// Classification is the outcome of Explain.
type Classification struct {
	Status  Status
	Rule    Rule
	Keyword string // matched keyword, for RuleLabel only
}

type keywordGroup struct {
	status   Status
	keywords []string
}

// labelKeywords are checked in order; the first group with a keyword
// contained in the folded label wins. Keywords are stored folded.
var labelKeywords = []keywordGroup{
	{status: StatusNew, keywords: []string{"novo", "new", "entrada"}},
	{status: StatusConnecting, keywords: []string{"conectando", "ligacao", "conexao", "tentativa", "connecting"}},
	{status: StatusScheduled, keywords: []string{"agenda", "entrevista", "scheduled"}},
	{status: StatusNegotiation, keywords: []string{"negociacao", "negotiation"}},
	{status: StatusNoShow, keywords: []string{"bolo", "no-show", "no_show", "no show", "noshow"}},
	{status: StatusWon, keywords: []string{"won", "matriculado", "ganho"}},
	{status: StatusClosed, keywords: []string{"closed", "perdido", "sem sucesso", "encerrado"}},
}

// Classifier maps external stage labels and signals to a canonical status.
type Classifier struct {
	attemptCeiling int
}

// NewClassifier creates a classifier. A non-positive ceiling falls back to
// DefaultAttemptCeiling.
func NewClassifier(attemptCeiling int) *Classifier {
	if attemptCeiling <= 0 {
		attemptCeiling = DefaultAttemptCeiling
	}
	return &Classifier{attemptCeiling: attemptCeiling}
}

// Classify returns the canonical status for an imported record.
func (c *Classifier) Classify(rawLabel string, signals Signals) Status {
	return c.Explain(rawLabel, signals).Status
}

// Explain classifies and reports the deciding rule. Evidence rules are
// evaluated before the label and are never overridden by it.
func (c *Classifier) Explain(rawLabel string, signals Signals) Classification {
	switch {
	case signals.PaymentMethodPresent:
		return Classification{Status: StatusWon, Rule: RulePaymentMethod}
	case signals.LossReasonPresent:
		return Classification{Status: StatusClosed, Rule: RuleLossReason}
	case signals.AttemptCount >= c.attemptCeiling:
		return Classification{Status: StatusClosed, Rule: RuleAttemptCeiling}
	}

	result := Classification{Status: StatusNew, Rule: RuleDefault}
	if status, keyword, ok := matchLabel(rawLabel); ok {
		result = Classification{Status: status, Rule: RuleLabel, Keyword: keyword}
	}

	if result.Status == StatusNew && signals.HasAnyInteractionEvidence {
		return Classification{Status: StatusConnecting, Rule: RuleInteraction}
	}
	return result
}

func matchLabel(rawLabel string) (Status, string, bool) {
	label := Fold(rawLabel)
	if label == "" {
		return "", "", false
	}
	for _, group := range labelKeywords {
		for _, keyword := range group.keywords {
			if strings.Contains(label, keyword) {
				return group.status, keyword, true
			}
		}
	}
	return "", "", false
}

var defaultClassifier = NewClassifier(DefaultAttemptCeiling)

// Classify uses the default attempt ceiling.
func Classify(rawLabel string, signals Signals) Status {
	return defaultClassifier.Classify(rawLabel, signals)
}

package domain

import "testing"

func TestClassifyPaymentEvidenceBeatsAnyLabel(t *testing.T) {
	labels := []string{"", "Novo lead", "Perdido", "Negociação", "Bolo", "Conectando"}
	for _, label := range labels {
		got := Classify(label, Signals{PaymentMethodPresent: true, LossReasonPresent: true, AttemptCount: 9})
		if got != StatusWon {
			t.Errorf("Classify(%q) with payment = %s, want %s", label, got, StatusWon)
		}
	}
}

func TestClassifyLossReasonBeatsLabel(t *testing.T) {
	got := Classify("Matriculado", Signals{LossReasonPresent: true})
	if got != StatusClosed {
		t.Fatalf("expected %s, got %s", StatusClosed, got)
	}
}

func TestClassifyAttemptCeiling(t *testing.T) {
	if got := Classify("Novo lead", Signals{AttemptCount: 5}); got != StatusClosed {
		t.Fatalf("expected %s at the ceiling, got %s", StatusClosed, got)
	}
	if got := Classify("Em negociação", Signals{AttemptCount: 7}); got != StatusClosed {
		t.Fatalf("expected attempts to outrank a negotiation label, got %s", got)
	}
	if got := Classify("Novo lead", Signals{AttemptCount: 4}); got != StatusNew {
		t.Fatalf("expected %s below the ceiling, got %s", StatusNew, got)
	}
}

func TestClassifierCustomCeiling(t *testing.T) {
	c := NewClassifier(3)
	if got := c.Classify("Entrevista", Signals{AttemptCount: 3}); got != StatusClosed {
		t.Fatalf("expected %s with ceiling 3, got %s", StatusClosed, got)
	}
	if got := NewClassifier(0).Classify("Entrevista", Signals{AttemptCount: 4}); got != StatusScheduled {
		t.Fatalf("expected non-positive ceiling to fall back to default, got %s", got)
	}
}

func TestClassifyLabels(t *testing.T) {
	tests := []struct {
		label string
		want  Status
	}{
		{"Novo lead", StatusNew},
		{"ENTRADA", StatusNew},
		{"Conectando", StatusConnecting},
		{"2ª ligação", StatusConnecting},
		{"Ligacao sem resposta", StatusConnecting},
		{"Conexão", StatusConnecting},
		{"Entrevista agendada", StatusScheduled},
		{"Agendamento", StatusScheduled},
		{"Em Negociação", StatusNegotiation},
		{"negociacao", StatusNegotiation},
		{"Deu bolo", StatusNoShow},
		{"No-Show", StatusNoShow},
		{"no_show", StatusNoShow},
		{"Matriculado", StatusWon},
		{"Ganho", StatusWon},
		{"Perdido", StatusClosed},
		{"Sem sucesso", StatusClosed},
		{"Encerrado", StatusClosed},
		{"qualquer coisa", StatusNew},
		{"", StatusNew},
	}

	for _, tt := range tests {
		if got := Classify(tt.label, Signals{}); got != tt.want {
			t.Errorf("Classify(%q) = %s, want %s", tt.label, got, tt.want)
		}
	}
}

func TestClassifyGroupOrderIsFirstMatch(t *testing.T) {
	// Both "tentativa" and "perdido" appear; the connecting group is checked first.
	if got := Classify("Tentativa perdida", Signals{}); got != StatusConnecting {
		t.Fatalf("expected %s, got %s", StatusConnecting, got)
	}
}

func TestClassifyEscalatesNewWithInteractionEvidence(t *testing.T) {
	if got := Classify("", Signals{HasAnyInteractionEvidence: true}); got != StatusConnecting {
		t.Fatalf("expected %s, got %s", StatusConnecting, got)
	}
	if got := Classify("Novo", Signals{HasAnyInteractionEvidence: true}); got != StatusConnecting {
		t.Fatalf("expected labelled new lead with activity to escalate, got %s", got)
	}
	if got := Classify("Entrevista", Signals{HasAnyInteractionEvidence: true}); got != StatusScheduled {
		t.Fatalf("expected escalation to leave non-new statuses alone, got %s", got)
	}
}

func TestExplainReportsRule(t *testing.T) {
	c := NewClassifier(DefaultAttemptCeiling)

	tests := []struct {
		label   string
		signals Signals
		rule    Rule
	}{
		{"Ganho", Signals{PaymentMethodPresent: true}, RulePaymentMethod},
		{"", Signals{LossReasonPresent: true}, RuleLossReason},
		{"", Signals{AttemptCount: 5}, RuleAttemptCeiling},
		{"Bolo", Signals{}, RuleLabel},
		{"", Signals{}, RuleDefault},
		{"", Signals{HasAnyInteractionEvidence: true}, RuleInteraction},
	}

	for _, tt := range tests {
		got := c.Explain(tt.label, tt.signals)
		if got.Rule != tt.rule {
			t.Errorf("Explain(%q, %+v).Rule = %s, want %s", tt.label, tt.signals, got.Rule, tt.rule)
		}
	}

	if got := c.Explain("Deu bolo", Signals{}); got.Keyword != "bolo" {
		t.Errorf("expected matched keyword bolo, got %q", got.Keyword)
	}
	if !RulePaymentMethod.IsTerminalEvidence() || RuleAttemptCeiling.IsTerminalEvidence() {
		t.Error("only payment and loss reason count as terminal evidence")
	}
}

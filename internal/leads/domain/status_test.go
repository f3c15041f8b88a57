package domain

import "testing"

func TestStatusVocabulary(t *testing.T) {
	statuses := Statuses()
	if len(statuses) != 7 || statuses[0] != StatusNew || statuses[6] != StatusClosed {
		t.Fatalf("unexpected board order %v", statuses)
	}

	for _, s := range statuses {
		want := s == StatusWon || s == StatusClosed
		if s.IsTerminal() != want {
			t.Errorf("%s.IsTerminal() = %v, want %v", s, s.IsTerminal(), want)
		}
	}

	if got, ok := ParseStatus("  No_Show "); !ok || got != StatusNoShow {
		t.Errorf("ParseStatus = %s, %v", got, ok)
	}
	if _, ok := ParseStatus("lost"); ok {
		t.Error("expected unknown status to fail parsing")
	}
	if StatusNoShow.RequiresConfirmation() || !StatusConnecting.RequiresConfirmation() {
		t.Error("unexpected confirmation gates")
	}
}

func TestTaskTitle(t *testing.T) {
	tests := []struct {
		status Status
		name   string
		want   string
	}{
		{StatusScheduled, "Ana", "Reunião: Ana"},
		{StatusConnecting, "Ana", "Retentativa: Ana"},
		{StatusNegotiation, "Ana", "Negociação: Ana"},
		{StatusNoShow, "Ana", "No Show: Ana"},
		{StatusNew, " Ana ", "Iniciar Conexão: Ana"},
		{StatusNew, "", "Iniciar Conexão: " + unnamedLead},
	}
	for _, tt := range tests {
		got, ok := TaskTitle(tt.status, tt.name)
		if !ok || got != tt.want {
			t.Errorf("TaskTitle(%s, %q) = %q, %v; want %q", tt.status, tt.name, got, ok, tt.want)
		}
	}

	for _, s := range []Status{StatusWon, StatusClosed} {
		if _, ok := TaskTitle(s, "Ana"); ok {
			t.Errorf("expected no task title for %s", s)
		}
	}
}

func TestFold(t *testing.T) {
	if got := Fold("  Negociação "); got != "negociacao" {
		t.Fatalf("Fold = %q", got)
	}
}

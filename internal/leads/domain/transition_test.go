package domain

import (
	"errors"
	"testing"
)

const msgExpectedRejection = "expected *RejectionError, got %v"

func TestValidateTransitionTerminalIsSticky(t *testing.T) {
	for _, from := range []Status{StatusWon, StatusClosed} {
		for _, to := range Statuses() {
			if to == from {
				continue
			}
			_, err := ValidateTransition(from, to, MovePayload{Notes: "x", ProposedValue: "10", AppointmentDate: "2026-01-02"})
			var rej *RejectionError
			if !errors.As(err, &rej) {
				t.Fatalf(msgExpectedRejection, err)
			}
			if rej.Reason != ReasonTerminal {
				t.Errorf("%s -> %s: reason = %s, want %s", from, to, rej.Reason, ReasonTerminal)
			}
		}
	}
}

func TestValidateTransitionSameStatusIsNoOp(t *testing.T) {
	tr, err := ValidateTransition(StatusWon, StatusWon, MovePayload{})
	if err != nil {
		t.Fatalf("expected no-op success, got %v", err)
	}
	if !tr.NoOp {
		t.Fatal("expected NoOp to be set")
	}

	tr, err = ValidateTransition(StatusNegotiation, StatusNegotiation, MovePayload{})
	if err != nil || !tr.NoOp {
		t.Fatalf("expected no-op without required fields, got %+v, %v", tr, err)
	}
}

func TestValidateTransitionRequiredFields(t *testing.T) {
	tests := []struct {
		to      Status
		payload MovePayload
		missing []Field
	}{
		{StatusScheduled, MovePayload{}, []Field{FieldAppointmentDate}},
		{StatusScheduled, MovePayload{AppointmentDate: "amanhã"}, []Field{FieldAppointmentDate}},
		{StatusNegotiation, MovePayload{}, []Field{FieldProposedValue, FieldNotes}},
		{StatusNegotiation, MovePayload{ProposedValue: "1.500,00"}, []Field{FieldNotes}},
		{StatusNegotiation, MovePayload{Notes: "   "}, []Field{FieldProposedValue, FieldNotes}},
		{StatusClosed, MovePayload{}, []Field{FieldNotes}},
	}

	for _, tt := range tests {
		_, err := ValidateTransition(StatusConnecting, tt.to, tt.payload)
		var rej *RejectionError
		if !errors.As(err, &rej) {
			t.Fatalf(msgExpectedRejection, err)
		}
		if rej.Reason != ReasonMissingFields {
			t.Fatalf("reason = %s, want %s", rej.Reason, ReasonMissingFields)
		}
		if len(rej.Missing) != len(tt.missing) {
			t.Fatalf("%s missing = %v, want %v", tt.to, rej.Missing, tt.missing)
		}
		for i := range tt.missing {
			if rej.Missing[i] != tt.missing[i] {
				t.Errorf("%s missing[%d] = %s, want %s", tt.to, i, rej.Missing[i], tt.missing[i])
			}
		}
	}
}

func TestValidateTransitionRejectsNewAndUnknown(t *testing.T) {
	_, err := ValidateTransition(StatusConnecting, StatusNew, MovePayload{})
	var rej *RejectionError
	if !errors.As(err, &rej) || rej.Reason != ReasonReopenNew {
		t.Fatalf("expected %s rejection, got %v", ReasonReopenNew, err)
	}

	_, err = ValidateTransition(StatusNew, Status("archived"), MovePayload{})
	if !errors.As(err, &rej) || rej.Reason != ReasonUnknownStatus {
		t.Fatalf("expected %s rejection, got %v", ReasonUnknownStatus, err)
	}
}

func TestValidateTransitionNormalizesPayload(t *testing.T) {
	tr, err := ValidateTransition(StatusScheduled, StatusNegotiation, MovePayload{
		Notes:         "  proposta   enviada <b>hoje</b> ",
		ProposedValue: "1.500,00",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Payload.Notes != "proposta enviada hoje" {
		t.Errorf("notes = %q", tr.Payload.Notes)
	}
	if tr.Payload.ProposedValue == nil || *tr.Payload.ProposedValue != 1500 {
		t.Errorf("proposedValue = %v, want 1500", tr.Payload.ProposedValue)
	}
	if len(tr.Payload.Malformed) != 0 {
		t.Errorf("unexpected malformed fields %v", tr.Payload.Malformed)
	}
}

func TestValidateTransitionMalformedMoneyCoercesToZero(t *testing.T) {
	tr, err := ValidateTransition(StatusScheduled, StatusNegotiation, MovePayload{Notes: "ok", ProposedValue: "abc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tr.Payload.ProposedValue == nil || *tr.Payload.ProposedValue != 0 {
		t.Fatalf("expected proposedValue 0, got %v", tr.Payload.ProposedValue)
	}
	if len(tr.Payload.Malformed) != 1 || tr.Payload.Malformed[0] != FieldProposedValue {
		t.Fatalf("expected proposedValue flagged malformed, got %v", tr.Payload.Malformed)
	}
}

func TestValidateTransitionSimpleMoves(t *testing.T) {
	for _, to := range []Status{StatusConnecting, StatusNoShow, StatusWon} {
		if _, err := ValidateTransition(StatusNew, to, MovePayload{}); err != nil {
			t.Errorf("new -> %s: unexpected error %v", to, err)
		}
	}
}

func TestParseAppointmentDate(t *testing.T) {
	for _, raw := range []string{"2026-03-10T14:00:00-03:00", "2026-03-10", "10/03/2026", "10/03/2026 14:30"} {
		at, ok := ParseAppointmentDate(raw)
		if !ok {
			t.Errorf("ParseAppointmentDate(%q) failed", raw)
			continue
		}
		if at.Month() != 3 || at.Day() != 10 {
			t.Errorf("ParseAppointmentDate(%q) = %s, want 10 March", raw, at)
		}
	}
}

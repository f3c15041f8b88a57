// Package events defines the domain events exchanged between CRM modules.
// Infrastructure (Bus, Handler) lives in platform/events.
package events

import (
	"time"

	"franchise_crm_backend/platform/events"

	"github.com/google/uuid"
)

type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

var NewBaseEvent = events.NewBaseEvent

// Lead event sources.
const (
	SourceImport  = "import"
	SourceWebhook = "webhook"
	SourceBoard   = "board"
	SourceForm    = "form"
)

// LeadCreated is published after a lead is first stored.
type LeadCreated struct {
	BaseEvent
	LeadID     uuid.UUID `json:"leadId"`
	ExternalID string    `json:"externalId,omitempty"`
	UnitID     string    `json:"unitId,omitempty"`
	Status     string    `json:"status"`
	Source     string    `json:"source"`
}

func (e LeadCreated) EventName() string { return "crm.lead.created" }

// LeadStatusChanged is published after a committed status change.
type LeadStatusChanged struct {
	BaseEvent
	LeadID        uuid.UUID  `json:"leadId"`
	UnitID        string     `json:"unitId,omitempty"`
	OldStatus     string     `json:"oldStatus"`
	NewStatus     string     `json:"newStatus"`
	AppointmentAt *time.Time `json:"appointmentAt,omitempty"`
	Source        string     `json:"source"`
}

func (e LeadStatusChanged) EventName() string { return "crm.lead.status_changed" }

// ImportCompleted is published when a batch import run finishes.
type ImportCompleted struct {
	BaseEvent
	ImportID  uuid.UUID `json:"importId"`
	Source    string    `json:"source"`
	Total     int       `json:"total"`
	Created   int       `json:"created"`
	Updated   int       `json:"updated"`
	Unchanged int       `json:"unchanged"`
	Failed    int       `json:"failed"`
}

func (e ImportCompleted) EventName() string { return "crm.import.completed" }

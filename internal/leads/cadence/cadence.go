// Package cadence defines the scripted follow-up sequences that start when a
// lead enters certain statuses.
package cadence

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"franchise_crm_backend/internal/leads/domain"
	"franchise_crm_backend/internal/leads/repository"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Type is one of the closed set of cadences.
type Type string

const (
	TypeNoShowRecovery          Type = "no_show_recovery"
	TypeNegotiationFollowUp     Type = "negotiation_follow_up"
	TypeAppointmentConfirmation Type = "appointment_confirmation"
)

var knownTypes = map[Type]bool{
	TypeNoShowRecovery:          true,
	TypeNegotiationFollowUp:     true,
	TypeAppointmentConfirmation: true,
}

//go:embed cadences.yaml
var defaultDefinitions []byte

// Step is one scripted action.
type Step struct {
	Name   string        `yaml:"name"`
	Offset time.Duration `yaml:"offset"`
}

// Definition is an ordered cadence.
type Definition struct {
	Type    Type          `yaml:"type"`
	Trigger domain.Status `yaml:"trigger"`
	Steps   []Step        `yaml:"steps"`
}

// Catalog indexes definitions by type and trigger status.
type Catalog struct {
	byType    map[Type]Definition
	byTrigger map[domain.Status]Definition
}

// Default loads the embedded definitions.
func Default() (*Catalog, error) {
	return Parse(defaultDefinitions)
}

// Parse builds a catalog from YAML.
func Parse(data []byte) (*Catalog, error) {
	var doc struct {
		Cadences []Definition `yaml:"cadences"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse cadences: %w", err)
	}

	c := &Catalog{
		byType:    make(map[Type]Definition, len(doc.Cadences)),
		byTrigger: make(map[domain.Status]Definition),
	}
	for _, def := range doc.Cadences {
		if !knownTypes[def.Type] {
			return nil, fmt.Errorf("unknown cadence type %q", def.Type)
		}
		if len(def.Steps) == 0 {
			return nil, fmt.Errorf("cadence %s has no steps", def.Type)
		}
		if _, dup := c.byType[def.Type]; dup {
			return nil, fmt.Errorf("cadence %s defined twice", def.Type)
		}
		c.byType[def.Type] = def

		if def.Trigger == "" {
			continue
		}
		if !def.Trigger.Valid() || def.Trigger.IsTerminal() {
			return nil, fmt.Errorf("cadence %s: invalid trigger %q", def.Type, def.Trigger)
		}
		c.byTrigger[def.Trigger] = def
	}
	return c, nil
}

// Get returns the definition of t.
func (c *Catalog) Get(t Type) (Definition, bool) {
	def, ok := c.byType[t]
	return def, ok
}

// ForStatus returns the cadence triggered by entering s, if any.
func (c *Catalog) ForStatus(s domain.Status) (Definition, bool) {
	def, ok := c.byTrigger[s]
	return def, ok
}

// Plan lays the definition's steps out for a lead starting at start.
func (d Definition) Plan(leadID uuid.UUID, start time.Time) []repository.CreateCadenceStepParams {
	steps := make([]repository.CreateCadenceStepParams, 0, len(d.Steps))
	for i, step := range d.Steps {
		due := start.Add(step.Offset)
		steps = append(steps, repository.CreateCadenceStepParams{
			LeadID:      leadID,
			CadenceType: string(d.Type),
			StepName:    step.Name,
			Position:    i + 1,
			DueAt:       &due,
			Status:      repository.CadenceStepPending,
		})
	}
	return steps
}

// StartForStatus logs the cadence triggered by status for a lead. Steps
// already logged are kept, so repeated calls insert nothing.
func (c *Catalog) StartForStatus(ctx context.Context, log repository.CadenceLog, leadID uuid.UUID, status domain.Status, now time.Time) (int, error) {
	def, ok := c.ForStatus(status)
	if !ok {
		return 0, nil
	}
	return log.CreateCadenceSteps(ctx, def.Plan(leadID, now))
}

// Start logs cadence t for a lead.
func (c *Catalog) Start(ctx context.Context, log repository.CadenceLog, leadID uuid.UUID, t Type, now time.Time) (int, error) {
	def, ok := c.Get(t)
	if !ok {
		return 0, fmt.Errorf("unknown cadence type %q", t)
	}
	return log.CreateCadenceSteps(ctx, def.Plan(leadID, now))
}

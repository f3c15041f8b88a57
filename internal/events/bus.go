// Package events re-exports the platform event bus so modules import a
// single events package.
package events

import (
	platformevents "franchise_crm_backend/platform/events"
	"franchise_crm_backend/platform/logger"
)

// InMemoryBus is the platform in-process bus.
type InMemoryBus = platformevents.InMemoryBus

// NewInMemoryBus creates an in-process event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return platformevents.NewInMemoryBus(log)
}

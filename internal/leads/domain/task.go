package domain

import (
	"fmt"
	"strings"
)

var taskTitlePrefixes = map[Status]string{
	StatusNew:         "Iniciar Conexão",
	StatusConnecting:  "Retentativa",
	StatusScheduled:   "Reunião",
	StatusNegotiation: "Negociação",
	StatusNoShow:      "No Show",
}

const unnamedLead = "Lead sem nome"

// TaskTitle returns the open-task title for a lead in status s. Terminal
// statuses have no task and return false.
func TaskTitle(s Status, leadName string) (string, bool) {
	prefix, ok := taskTitlePrefixes[s]
	if !ok {
		return "", false
	}
	name := strings.TrimSpace(leadName)
	if name == "" {
		name = unnamedLead
	}
	return fmt.Sprintf("%s: %s", prefix, name), true
}

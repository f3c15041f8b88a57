package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskLeadReconcile = "leads:reconcile"

const TaskAppointmentReminder = "leads:appointment_reminder"

// ReconcileLeadPayload carries one webhook record. Columns use the same
// header vocabulary as spreadsheet imports.
type ReconcileLeadPayload struct {
	DeliveryID string            `json:"deliveryId,omitempty"`
	ExternalID string            `json:"externalId,omitempty"`
	Columns    map[string]string `json:"columns"`
}

type AppointmentReminderPayload struct {
	LeadID        string    `json:"leadId"`
	AppointmentAt time.Time `json:"appointmentAt"`
}

func NewLeadReconcileTask(payload ReconcileLeadPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLeadReconcile, data), nil
}

func ParseLeadReconcilePayload(task *asynq.Task) (ReconcileLeadPayload, error) {
	var payload ReconcileLeadPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ReconcileLeadPayload{}, err
	}
	return payload, nil
}

func NewAppointmentReminderTask(payload AppointmentReminderPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAppointmentReminder, data), nil
}

func ParseAppointmentReminderPayload(task *asynq.Task) (AppointmentReminderPayload, error) {
	var payload AppointmentReminderPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return AppointmentReminderPayload{}, err
	}
	return payload, nil
}

package management

import (
	"franchise_crm_backend/internal/leads/domain"
	"franchise_crm_backend/internal/leads/repository"
	"franchise_crm_backend/internal/leads/transport"
)

func ToLeadResponse(lead repository.Lead) transport.LeadResponse {
	return transport.LeadResponse{
		ID:              lead.ID,
		ExternalID:      lead.ExternalID,
		UnitID:          lead.UnitID,
		Status:          lead.Status,
		Name:            lead.Name,
		Phone:           lead.Phone,
		Email:           lead.Email,
		CourseInterest:  lead.CourseInterest,
		ProposedValue:   lead.ProposedValue,
		EnrollmentValue: lead.EnrollmentValue,
		PaymentMethod:   lead.PaymentMethod,
		LossReason:      lead.LossReason,
		AppointmentAt:   lead.AppointmentAt,
		CreatedAt:       lead.CreatedAt,
		UpdatedAt:       lead.UpdatedAt,
	}
}

// StatusColumns describes the board columns in order.
func StatusColumns() []transport.StatusColumnResponse {
	statuses := domain.Statuses()
	out := make([]transport.StatusColumnResponse, len(statuses))
	for i, s := range statuses {
		required := s.RequiredFields()
		fields := make([]string, len(required))
		for j, f := range required {
			fields[j] = string(f)
		}
		out[i] = transport.StatusColumnResponse{
			Status:               string(s),
			Position:             s.Position(),
			Terminal:             s.IsTerminal(),
			RequiredFields:       fields,
			RequiresConfirmation: s.RequiresConfirmation(),
		}
	}
	return out
}

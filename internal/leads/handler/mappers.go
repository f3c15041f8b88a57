package handler

import (
	"errors"

	"franchise_crm_backend/internal/leads/board"
	"franchise_crm_backend/internal/leads/importer"
	"franchise_crm_backend/internal/leads/management"
	"franchise_crm_backend/internal/leads/transport"

	"github.com/google/uuid"
)

func toMoveResponse(result board.MoveResult) transport.MoveLeadResponse {
	resp := transport.MoveLeadResponse{
		Outcome: string(result.Outcome),
		Reason:  string(result.Reason),
		Message: result.Message,
		NoOp:    result.NoOp,
	}
	if result.Lead.ID != uuid.Nil {
		lead := management.ToLeadResponse(result.Lead)
		resp.Lead = &lead
	}
	for _, f := range result.RequiredFields {
		resp.RequiredFields = append(resp.RequiredFields, string(f))
	}
	return resp
}

func isSheetError(err error) bool {
	return errors.Is(err, importer.ErrUnsupported) ||
		errors.Is(err, importer.ErrUnreadable) ||
		errors.Is(err, importer.ErrNoWorksheet) ||
		errors.Is(err, importer.ErrEmptyWorksheet) ||
		errors.Is(err, importer.ErrNoLabelColumn) ||
		errors.Is(err, importer.ErrNoIdentityColumn)
}

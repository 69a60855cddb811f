package service

import (
	"context"

	"medident/internal/dto"
	"medident/internal/ledger"
	"medident/internal/repository"

	"github.com/google/uuid"
)

// AuditService exposes the adjustment history. It never writes.
type AuditService interface {
	List(ctx context.Context, filter dto.AuditLogFilter) (*dto.AuditLogListResponse, error)
}

type auditService struct {
	repo repository.AuditLogRepository
}

func NewAuditService(repo repository.AuditLogRepository) AuditService {
	return &auditService{repo: repo}
}

func (s *auditService) List(ctx context.Context, f dto.AuditLogFilter) (*dto.AuditLogListResponse, error) {
	if f.ActionType != "" && !ledger.IsValidActionType(f.ActionType) {
		return nil, invalid("unknown actionType %q", f.ActionType)
	}
	rf := repository.AuditLogFilter{ActionType: f.ActionType, Page: f.Page, Limit: f.Limit}
	if rf.Page < 1 {
		rf.Page = 1
	}
	if rf.Limit < 1 {
		rf.Limit = 50
	}
	if rf.Limit > 500 {
		rf.Limit = 500
	}

	var err error
	if rf.ItemID, err = parseOptionalUUID("itemId", f.ItemID); err != nil {
		return nil, err
	}
	if rf.UserID, err = parseOptionalUUID("userId", f.UserID); err != nil {
		return nil, err
	}
	if f.From != "" {
		d, err := dto.ParseDate(f.From)
		if err != nil {
			return nil, invalid("from must be a date (YYYY-MM-DD)")
		}
		rf.From = &d.Time
	}
	if f.To != "" {
		d, err := dto.ParseDate(f.To)
		if err != nil {
			return nil, invalid("to must be a date (YYYY-MM-DD)")
		}
		// exclusive upper bound: the whole of the "to" day is included
		end := d.Time.AddDate(0, 0, 1)
		rf.To = &end
	}
	if rf.From != nil && rf.To != nil && !rf.From.Before(*rf.To) {
		return nil, invalid("from must not be after to")
	}

	entries, total, err := s.repo.List(ctx, rf)
	if err != nil {
		return nil, err
	}
	resp := &dto.AuditLogListResponse{
		AuditLogs:  make([]dto.AuditLogResponse, len(entries)),
		Pagination: dto.NewPagination(rf.Page, rf.Limit, total),
	}
	for i := range entries {
		resp.AuditLogs[i] = toAuditLogResponse(&entries[i])
	}
	return resp, nil
}

func parseOptionalUUID(field, raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, invalid("%s must be a UUID", field)
	}
	return &id, nil
}

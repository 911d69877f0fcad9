package usecase

import (
	"context"

	"github.com/atvirokodosprendimai/officeapi/internal/core/domain"
	"github.com/atvirokodosprendimai/officeapi/internal/core/ports"
)

// AuditService exposes the office audit trail for reads.
type AuditService struct {
	repo ports.AuditRepository
}

func NewAuditService(repo ports.AuditRepository) *AuditService {
	return &AuditService{repo: repo}
}

func (s *AuditService) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEvent, error) {
	if filter.TenantID == "" {
		return nil, domain.ErrNotFound
	}
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	if filter.Limit > 1000 {
		filter.Limit = 1000
	}
	return s.repo.List(ctx, filter)
}

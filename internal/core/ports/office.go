package ports

import (
	"context"

	"github.com/atvirokodosprendimai/officeapi/internal/core/domain"
)

// OfficeRepository persists offices. CreateWithEvents and UpdateWithEvents
// write the office and its outbox event in one transaction.
type OfficeRepository interface {
	CreateWithEvents(ctx context.Context, office domain.Office, meta domain.MutationMetadata) (domain.Office, error)
	UpdateWithEvents(ctx context.Context, office domain.Office, meta domain.MutationMetadata) (domain.Office, error)
	GetByID(ctx context.Context, tenantID string, id int64) (domain.Office, error)
	List(ctx context.Context, tenantID string, filter domain.OfficeListFilter) ([]domain.Office, error)
}

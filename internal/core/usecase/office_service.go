package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atvirokodosprendimai/officeapi/internal/core/domain"
	"github.com/atvirokodosprendimai/officeapi/internal/core/ports"
	"github.com/atvirokodosprendimai/officeapi/internal/core/validation"
)

// OfficeService validates office commands and applies them. Validation runs
// to completion before anything touches the repository: a create or update
// either passes all its applicable rules or is rejected with the full list
// of violations.
type OfficeService struct {
	repo      ports.OfficeRepository
	audit     ports.AuditRepository
	validator *validation.Validator
}

func NewOfficeService(repo ports.OfficeRepository, audit ports.AuditRepository) *OfficeService {
	return &OfficeService{repo: repo, audit: audit, validator: validation.NewOfficeValidator()}
}

// Create validates a create payload, resolves the parent hierarchy and
// persists the new office together with its office.created outbox event.
func (s *OfficeService) Create(ctx context.Context, tenantID string, payload []byte, meta domain.MutationMetadata) (domain.Office, error) {
	if err := s.validator.ValidateForCreate(payload); err != nil {
		return domain.Office{}, err
	}

	cmd, err := bindOfficeCommand(payload)
	if err != nil {
		return domain.Office{}, fmt.Errorf("bind office command: %w", err)
	}

	office := domain.Office{
		TenantID:  tenantID,
		Hierarchy: domain.RootHierarchy,
	}
	cmd.apply(&office)

	if office.ParentID != nil {
		parent, err := s.repo.GetByID(ctx, tenantID, *office.ParentID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.Office{}, domain.ErrParentNotFound
			}
			return domain.Office{}, err
		}
		office.Hierarchy = parent.ChildHierarchy()
	}

	if err := office.Validate(); err != nil {
		return domain.Office{}, err
	}

	meta = meta.Normalize()
	created, err := s.repo.CreateWithEvents(ctx, office, meta)
	if err != nil {
		return domain.Office{}, err
	}

	_ = s.audit.Log(ctx, domain.AuditEvent{
		TenantID:   tenantID,
		OfficeID:   created.ID,
		Action:     "create",
		Actor:      meta.Actor,
		Source:     meta.Source,
		RequestID:  meta.RequestID,
		AfterJSON:  mustSnapshot(created),
		OccurredAt: meta.OccurredAt,
	})

	return created, nil
}

// Update validates an update payload and applies only the fields it carries.
// Absent fields keep their stored values; partial updates are the norm.
func (s *OfficeService) Update(ctx context.Context, tenantID string, id int64, payload []byte, meta domain.MutationMetadata) (domain.Office, error) {
	if err := s.validator.ValidateForUpdate(payload); err != nil {
		return domain.Office{}, err
	}

	cmd, err := bindOfficeCommand(payload)
	if err != nil {
		return domain.Office{}, fmt.Errorf("bind office command: %w", err)
	}

	office, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return domain.Office{}, err
	}
	before := mustSnapshot(office)

	cmd.apply(&office)

	if cmd.parentID != nil {
		parent, err := s.repo.GetByID(ctx, tenantID, *cmd.parentID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.Office{}, domain.ErrParentNotFound
			}
			return domain.Office{}, err
		}
		// An office cannot move under itself or one of its descendants.
		if parent.ID == office.ID || strings.Contains(parent.Hierarchy, fmt.Sprintf(".%d.", office.ID)) {
			return domain.Office{}, domain.ErrParentNotFound
		}
		office.Hierarchy = parent.ChildHierarchy()
	}

	if err := office.Validate(); err != nil {
		return domain.Office{}, err
	}

	meta = meta.Normalize()
	updated, err := s.repo.UpdateWithEvents(ctx, office, meta)
	if err != nil {
		return domain.Office{}, err
	}

	_ = s.audit.Log(ctx, domain.AuditEvent{
		TenantID:   tenantID,
		OfficeID:   updated.ID,
		Action:     "update",
		Actor:      meta.Actor,
		Source:     meta.Source,
		RequestID:  meta.RequestID,
		BeforeJSON: before,
		AfterJSON:  mustSnapshot(updated),
		OccurredAt: meta.OccurredAt,
	})

	return updated, nil
}

func (s *OfficeService) Get(ctx context.Context, tenantID string, id int64) (domain.Office, error) {
	if id <= 0 {
		return domain.Office{}, domain.ErrNotFound
	}
	return s.repo.GetByID(ctx, tenantID, id)
}

func (s *OfficeService) List(ctx context.Context, tenantID string, filter domain.OfficeListFilter) ([]domain.Office, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	if filter.Limit > 1000 {
		filter.Limit = 1000
	}
	return s.repo.List(ctx, tenantID, filter)
}

// officeCommand is the typed form of a validated office payload. Pointers
// distinguish absent fields (nil) from supplied ones; explicit nulls also
// bind as nil and therefore leave stored values alone on update.
type officeCommand struct {
	name                *string
	externalID          *string
	parentID            *int64
	openingDate         *time.Time
	cin                 *string
	roc                 *string
	companyName         *string
	companyStatus       *string
	registrationAddress *string
	funds               *int64
	registrationNumber  *int64
	incorporatedDate    *time.Time
}

// bindOfficeCommand extracts the typed fields from a payload that already
// passed validation. companyStatus always binds as its wire string, whichever
// mode validated it.
func bindOfficeCommand(raw []byte) (officeCommand, error) {
	p, err := validation.Parse(raw)
	if err != nil {
		return officeCommand{}, err
	}

	var cmd officeCommand
	if cmd.name, err = p.String("name"); err != nil {
		return officeCommand{}, err
	}
	if cmd.externalID, err = p.String("externalId"); err != nil {
		return officeCommand{}, err
	}
	if cmd.parentID, err = p.Integer("parentId"); err != nil {
		return officeCommand{}, err
	}
	if cmd.openingDate, err = p.Date("openingDate"); err != nil {
		return officeCommand{}, err
	}
	if cmd.cin, err = p.String("cin"); err != nil {
		return officeCommand{}, err
	}
	if cmd.roc, err = p.String("roc"); err != nil {
		return officeCommand{}, err
	}
	if cmd.companyName, err = p.String("companyName"); err != nil {
		return officeCommand{}, err
	}
	if cmd.companyStatus, err = p.String("companyStatus"); err != nil {
		return officeCommand{}, err
	}
	if cmd.registrationAddress, err = p.String("registrationAddress"); err != nil {
		return officeCommand{}, err
	}
	if cmd.funds, err = p.Integer("funds"); err != nil {
		return officeCommand{}, err
	}
	if cmd.registrationNumber, err = p.Integer("registrationNumber"); err != nil {
		return officeCommand{}, err
	}
	if cmd.incorporatedDate, err = p.Date("incorporatedDate"); err != nil {
		return officeCommand{}, err
	}
	return cmd, nil
}

func (c officeCommand) apply(o *domain.Office) {
	if c.name != nil {
		o.Name = *c.name
	}
	if c.externalID != nil {
		o.ExternalID = *c.externalID
	}
	if c.parentID != nil {
		o.ParentID = c.parentID
	}
	if c.openingDate != nil {
		o.OpeningDate = *c.openingDate
	}
	if c.cin != nil {
		o.CIN = *c.cin
	}
	if c.roc != nil {
		o.ROC = *c.roc
	}
	if c.companyName != nil {
		o.CompanyName = *c.companyName
	}
	if c.companyStatus != nil {
		o.CompanyStatus = *c.companyStatus
	}
	if c.registrationAddress != nil {
		o.RegistrationAddress = *c.registrationAddress
	}
	if c.funds != nil {
		o.Funds = c.funds
	}
	if c.registrationNumber != nil {
		o.RegistrationNumber = c.registrationNumber
	}
	if c.incorporatedDate != nil {
		o.IncorporatedDate = *c.incorporatedDate
	}
}

func mustSnapshot(office domain.Office) json.RawMessage {
	raw, err := json.Marshal(office)
	if err != nil {
		return nil
	}
	return raw
}

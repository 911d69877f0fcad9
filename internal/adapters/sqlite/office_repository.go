package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atvirokodosprendimai/officeapi/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/officeapi/internal/core/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type officeModel struct {
	ID                  int64     `gorm:"column:id;primaryKey;autoIncrement"`
	TenantID            string    `gorm:"column:tenant_id;not null;uniqueIndex:idx_offices_tenant_name,priority:1"`
	Name                string    `gorm:"column:name;not null;uniqueIndex:idx_offices_tenant_name,priority:2"`
	ExternalID          string    `gorm:"column:external_id"`
	ParentID            *int64    `gorm:"column:parent_id"`
	Hierarchy           string    `gorm:"column:hierarchy;not null"`
	OpeningDate         time.Time `gorm:"column:opening_date"`
	CIN                 string    `gorm:"column:cin"`
	ROC                 string    `gorm:"column:roc"`
	CompanyName         string    `gorm:"column:company_name"`
	CompanyStatus       string    `gorm:"column:company_status"`
	RegistrationAddress string    `gorm:"column:registration_address"`
	Funds               *int64    `gorm:"column:funds"`
	RegistrationNumber  *int64    `gorm:"column:registration_number"`
	IncorporatedDate    time.Time `gorm:"column:incorporated_date"`
	CreatedAt           time.Time `gorm:"column:created_at;not null"`
	UpdatedAt           time.Time `gorm:"column:updated_at;not null"`
}

func (officeModel) TableName() string {
	return "offices"
}

// OfficeRepository persists offices and appends their lifecycle events to the
// outbox in the same write transaction, so a committed office always has its
// event row and vice versa.
type OfficeRepository struct {
	db *gormsqlite.DB
}

func NewOfficeRepository(db *gormsqlite.DB) *OfficeRepository {
	return &OfficeRepository{db: db}
}

func (r *OfficeRepository) CreateWithEvents(ctx context.Context, office domain.Office, meta domain.MutationMetadata) (domain.Office, error) {
	meta = meta.Normalize()
	var result domain.Office

	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		now := meta.OccurredAt.UTC()
		model := toOfficeModel(office)
		model.CreatedAt = now
		model.UpdatedAt = now

		if err := tx.Create(&model).Error; err != nil {
			if isUniqueViolation(err) {
				return domain.ErrDuplicateName
			}
			return fmt.Errorf("insert office: %w", err)
		}

		result = toOfficeDomain(model)
		return appendOutboxEvent(tx, "office.created", result, meta)
	})
	if err != nil {
		return domain.Office{}, err
	}
	return result, nil
}

func (r *OfficeRepository) UpdateWithEvents(ctx context.Context, office domain.Office, meta domain.MutationMetadata) (domain.Office, error) {
	meta = meta.Normalize()
	var result domain.Office

	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		var existing officeModel
		err := tx.Where("tenant_id = ? AND id = ?", office.TenantID, office.ID).First(&existing).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("load office: %w", err)
		}

		model := toOfficeModel(office)
		model.CreatedAt = existing.CreatedAt
		model.UpdatedAt = meta.OccurredAt.UTC()

		if err := tx.Model(&officeModel{}).Where("id = ?", office.ID).Select("*").Omit("id", "created_at").Updates(&model).Error; err != nil {
			if isUniqueViolation(err) {
				return domain.ErrDuplicateName
			}
			return fmt.Errorf("update office: %w", err)
		}

		result = toOfficeDomain(model)
		return appendOutboxEvent(tx, "office.updated", result, meta)
	})
	if err != nil {
		return domain.Office{}, err
	}
	return result, nil
}

func (r *OfficeRepository) GetByID(ctx context.Context, tenantID string, id int64) (domain.Office, error) {
	var model officeModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Where("tenant_id = ? AND id = ?", tenantID, id).First(&model).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Office{}, domain.ErrNotFound
		}
		return domain.Office{}, fmt.Errorf("get office: %w", err)
	}
	return toOfficeDomain(model), nil
}

func (r *OfficeRepository) List(ctx context.Context, tenantID string, filter domain.OfficeListFilter) ([]domain.Office, error) {
	var models []officeModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		query := tx.Model(&officeModel{}).Where("tenant_id = ?", tenantID)
		if filter.ParentID != nil {
			query = query.Where("parent_id = ?", *filter.ParentID)
		}
		if filter.AfterID > 0 {
			query = query.Where("id > ?", filter.AfterID)
		}
		return query.Order("id ASC").Limit(filter.Limit).Find(&models).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list offices: %w", err)
	}

	offices := make([]domain.Office, 0, len(models))
	for _, model := range models {
		offices = append(offices, toOfficeDomain(model))
	}
	return offices, nil
}

// appendOutboxEvent writes the pending outbox row for an office mutation
// inside the caller's transaction.
func appendOutboxEvent(tx *gormsqlite.Tx, eventType string, office domain.Office, meta domain.MutationMetadata) error {
	snapshot, err := json.Marshal(office)
	if err != nil {
		return fmt.Errorf("marshal office snapshot: %w", err)
	}

	envelope := domain.EventEnvelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		SchemaVersion: domain.CurrentEventSchemaVersion,
		TenantID:      office.TenantID,
		OfficeID:      office.ID,
		OccurredAt:    meta.OccurredAt.UTC(),
		Actor:         meta.Actor,
		Source:        meta.Source,
		Payload:       snapshot,
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	row := outboxEventModel{
		EventID:       envelope.EventID,
		TenantID:      office.TenantID,
		Topic:         "offices",
		PayloadJSON:   string(payload),
		Status:        "pending",
		NextAttemptAt: meta.OccurredAt.UTC(),
		CreatedAt:     meta.OccurredAt.UTC(),
	}
	if err := tx.Create(&row).Error; err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

func toOfficeModel(o domain.Office) officeModel {
	return officeModel{
		ID:                  o.ID,
		TenantID:            o.TenantID,
		Name:                o.Name,
		ExternalID:          o.ExternalID,
		ParentID:            o.ParentID,
		Hierarchy:           o.Hierarchy,
		OpeningDate:         o.OpeningDate,
		CIN:                 o.CIN,
		ROC:                 o.ROC,
		CompanyName:         o.CompanyName,
		CompanyStatus:       o.CompanyStatus,
		RegistrationAddress: o.RegistrationAddress,
		Funds:               o.Funds,
		RegistrationNumber:  o.RegistrationNumber,
		IncorporatedDate:    o.IncorporatedDate,
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,
	}
}

func toOfficeDomain(m officeModel) domain.Office {
	return domain.Office{
		ID:                  m.ID,
		TenantID:            m.TenantID,
		Name:                m.Name,
		ExternalID:          m.ExternalID,
		ParentID:            m.ParentID,
		Hierarchy:           m.Hierarchy,
		OpeningDate:         m.OpeningDate,
		CIN:                 m.CIN,
		ROC:                 m.ROC,
		CompanyName:         m.CompanyName,
		CompanyStatus:       m.CompanyStatus,
		RegistrationAddress: m.RegistrationAddress,
		Funds:               m.Funds,
		RegistrationNumber:  m.RegistrationNumber,
		IncorporatedDate:    m.IncorporatedDate,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/atvirokodosprendimai/officeapi/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/officeapi/internal/core/domain"
)

type auditEventModel struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	EventID    string    `gorm:"column:event_id;not null"`
	TenantID   string    `gorm:"column:tenant_id;not null"`
	OfficeID   int64     `gorm:"column:office_id;not null"`
	Action     string    `gorm:"column:action;not null"`
	Actor      string    `gorm:"column:actor;not null"`
	Source     string    `gorm:"column:source;not null"`
	RequestID  string    `gorm:"column:request_id;not null"`
	BeforeJSON string    `gorm:"column:before_json"`
	AfterJSON  string    `gorm:"column:after_json"`
	OccurredAt time.Time `gorm:"column:occurred_at;not null"`
}

func (auditEventModel) TableName() string {
	return "audit_events"
}

// AuditRepository records office mutations for the audit trail. Writes are
// best-effort from the caller's point of view and happen outside the office
// write transaction.
type AuditRepository struct {
	db *gormsqlite.DB
}

func NewAuditRepository(db *gormsqlite.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Log(ctx context.Context, event domain.AuditEvent) error {
	row := auditEventModel{
		EventID:    event.EventID,
		TenantID:   event.TenantID,
		OfficeID:   event.OfficeID,
		Action:     event.Action,
		Actor:      event.Actor,
		Source:     event.Source,
		RequestID:  event.RequestID,
		BeforeJSON: string(event.BeforeJSON),
		AfterJSON:  string(event.AfterJSON),
		OccurredAt: event.OccurredAt.UTC(),
	}
	if row.OccurredAt.IsZero() {
		row.OccurredAt = time.Now().UTC()
	}

	err := r.db.WriteTX(ctx, func(tx *gormsqlite.Tx) error {
		return tx.Create(&row).Error
	})
	if err != nil {
		return fmt.Errorf("log audit event: %w", err)
	}
	return nil
}

func (r *AuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEvent, error) {
	var rows []auditEventModel
	err := r.db.ReadTX(ctx, func(tx *gormsqlite.Tx) error {
		query := tx.Model(&auditEventModel{}).Where("tenant_id = ?", filter.TenantID)
		if filter.OfficeID > 0 {
			query = query.Where("office_id = ?", filter.OfficeID)
		}
		if filter.Action != "" {
			query = query.Where("action = ?", filter.Action)
		}
		if filter.AfterID > 0 {
			query = query.Where("id < ?", filter.AfterID)
		}
		return query.Order("id DESC").Limit(filter.Limit).Find(&rows).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}

	result := make([]domain.AuditEvent, 0, len(rows))
	for _, row := range rows {
		result = append(result, domain.AuditEvent{
			ID:         row.ID,
			EventID:    row.EventID,
			TenantID:   row.TenantID,
			OfficeID:   row.OfficeID,
			Action:     row.Action,
			Actor:      row.Actor,
			Source:     row.Source,
			RequestID:  row.RequestID,
			BeforeJSON: json.RawMessage(row.BeforeJSON),
			AfterJSON:  json.RawMessage(row.AfterJSON),
			OccurredAt: row.OccurredAt,
		})
	}

	return result, nil
}

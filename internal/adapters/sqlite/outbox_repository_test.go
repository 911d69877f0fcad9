package sqlite

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/atvirokodosprendimai/officeapi/internal/core/domain"
	"github.com/atvirokodosprendimai/officeapi/internal/core/usecase"
)

func seedOffice(t *testing.T, repo *OfficeRepository, name string) domain.Office {
	t.Helper()
	office, err := repo.CreateWithEvents(context.Background(), domain.Office{
		TenantID:  "t1",
		Name:      name,
		Hierarchy: domain.RootHierarchy,
	}, testMeta())
	if err != nil {
		t.Fatalf("seed office %s: %v", name, err)
	}
	return office
}

func TestOutboxRepositoryMarkFlow(t *testing.T) {
	ctx := context.Background()
	db, _ := openTestDB(t)
	offices := NewOfficeRepository(db)
	outbox := NewOutboxRepository(db)

	seedOffice(t, offices, "HQ")
	seedOffice(t, offices, "Branch")

	pending, err := outbox.FetchPending(ctx, 10)
	if err != nil {
		t.Fatalf("fetch pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending events, got %d", len(pending))
	}
	var envelope domain.EventEnvelope
	if err := json.Unmarshal(pending[0].PayloadJSON, &envelope); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if envelope.EventType != "office.created" {
		t.Fatalf("unexpected event type: %s", envelope.EventType)
	}

	if err := outbox.MarkDispatched(ctx, pending[0].ID); err != nil {
		t.Fatalf("mark dispatched: %v", err)
	}

	next := time.Now().UTC().Add(-time.Second).Format(time.RFC3339Nano)
	if err := outbox.MarkFailed(ctx, pending[1].ID, 1, next, "boom"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	remaining, err := outbox.FetchPending(ctx, 10)
	if err != nil {
		t.Fatalf("fetch after mark: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != pending[1].ID {
		t.Fatalf("unexpected remaining events: %+v", remaining)
	}
	if remaining[0].Attempts != 1 || remaining[0].LastError != "boom" {
		t.Fatalf("unexpected failure state: %+v", remaining[0])
	}

	if err := outbox.MarkDead(ctx, pending[1].ID, 5, "gave up"); err != nil {
		t.Fatalf("mark dead: %v", err)
	}
	empty, err := outbox.FetchPending(ctx, 10)
	if err != nil {
		t.Fatalf("fetch after dead: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no pending events, got %d", len(empty))
	}
}

func TestOutboxRepositoryFailedEventWaitsForNextAttempt(t *testing.T) {
	ctx := context.Background()
	db, _ := openTestDB(t)
	offices := NewOfficeRepository(db)
	outbox := NewOutboxRepository(db)

	seedOffice(t, offices, "HQ")
	pending, err := outbox.FetchPending(ctx, 10)
	if err != nil {
		t.Fatalf("fetch pending: %v", err)
	}

	next := time.Now().UTC().Add(time.Hour).Format(time.RFC3339Nano)
	if err := outbox.MarkFailed(ctx, pending[0].ID, 1, next, "slow down"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}

	deferred, err := outbox.FetchPending(ctx, 10)
	if err != nil {
		t.Fatalf("fetch deferred: %v", err)
	}
	if len(deferred) != 0 {
		t.Fatalf("expected deferred event to be skipped, got %d", len(deferred))
	}
}

func TestAPIKeyRepositoryUpsertAndFind(t *testing.T) {
	ctx := context.Background()
	db, _ := openTestDB(t)
	repo := NewAPIKeyRepository(db)

	hash := usecase.HashToken("secret-token")
	key := domain.APIKey{TokenHash: hash, TenantID: "t1", Name: "ci", Active: true, CreatedAt: time.Now().UTC()}
	if err := repo.Upsert(ctx, key); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	found, err := repo.FindByTokenHash(ctx, hash)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found.TenantID != "t1" || !found.Active {
		t.Fatalf("unexpected key: %+v", found)
	}

	// A second upsert with the same hash updates in place.
	key.Active = false
	if err := repo.Upsert(ctx, key); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	found, err = repo.FindByTokenHash(ctx, hash)
	if err != nil {
		t.Fatalf("find after update: %v", err)
	}
	if found.Active {
		t.Fatal("expected key to be deactivated")
	}
}

func TestAuditRepositoryLogAndList(t *testing.T) {
	ctx := context.Background()
	db, _ := openTestDB(t)
	repo := NewAuditRepository(db)

	events := []domain.AuditEvent{
		{TenantID: "t1", OfficeID: 1, Action: "create", Actor: "alice", Source: "api", AfterJSON: json.RawMessage(`{"name":"HQ"}`)},
		{TenantID: "t1", OfficeID: 1, Action: "update", Actor: "bob", Source: "api", BeforeJSON: json.RawMessage(`{"name":"HQ"}`), AfterJSON: json.RawMessage(`{"name":"HQ2"}`)},
		{TenantID: "t2", OfficeID: 9, Action: "create", Actor: "eve", Source: "api"},
	}
	for _, event := range events {
		if err := repo.Log(ctx, event); err != nil {
			t.Fatalf("log %s: %v", event.Action, err)
		}
	}

	listed, err := repo.List(ctx, domain.AuditFilter{TenantID: "t1", Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 events, got %d", len(listed))
	}
	// Newest first.
	if listed[0].Action != "update" || listed[1].Action != "create" {
		t.Fatalf("unexpected order: %s, %s", listed[0].Action, listed[1].Action)
	}
	if string(listed[0].BeforeJSON) != `{"name":"HQ"}` {
		t.Fatalf("unexpected before snapshot: %s", listed[0].BeforeJSON)
	}

	updates, err := repo.List(ctx, domain.AuditFilter{TenantID: "t1", Action: "update", Limit: 10})
	if err != nil {
		t.Fatalf("list updates: %v", err)
	}
	if len(updates) != 1 || updates[0].Actor != "bob" {
		t.Fatalf("unexpected updates: %+v", updates)
	}
}

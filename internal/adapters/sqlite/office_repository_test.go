package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/atvirokodosprendimai/officeapi/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/officeapi/internal/core/domain"
	"github.com/atvirokodosprendimai/officeapi/migrations"
)

func openTestDB(t *testing.T) (*gormsqlite.DB, *sql.DB) {
	t.Helper()
	ctx := context.Background()

	dbPath := filepath.Join(t.TempDir(), "offices.sqlite")
	db, err := gormsqlite.Open(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	wdb, err := db.WriteSQLDB()
	if err != nil {
		t.Fatalf("writer sql db: %v", err)
	}
	if err := migrations.Up(ctx, wdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db, wdb
}

func testMeta() domain.MutationMetadata {
	return domain.MutationMetadata{
		Actor:      "tester",
		Source:     "test",
		RequestID:  "req-1",
		OccurredAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestOfficeRepositoryCreateWritesOutboxRow(t *testing.T) {
	ctx := context.Background()
	db, wdb := openTestDB(t)
	repo := NewOfficeRepository(db)

	created, err := repo.CreateWithEvents(ctx, domain.Office{
		TenantID:  "t1",
		Name:      "Head Office",
		Hierarchy: domain.RootHierarchy,
	}, testMeta())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == 0 {
		t.Fatalf("expected assigned id")
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Fatalf("expected timestamps to be set")
	}

	assertTableCount(t, ctx, wdb, "offices", 1)
	assertTableCount(t, ctx, wdb, "outbox_events", 1)

	var payload string
	row := wdb.QueryRowContext(ctx, "SELECT payload_json FROM outbox_events WHERE topic = 'offices'")
	if err := row.Scan(&payload); err != nil {
		t.Fatalf("read outbox payload: %v", err)
	}
	var envelope domain.EventEnvelope
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.EventType != "office.created" {
		t.Fatalf("unexpected event type: %s", envelope.EventType)
	}
	if envelope.OfficeID != created.ID {
		t.Fatalf("unexpected office id: %d", envelope.OfficeID)
	}
	if envelope.EventID == "" {
		t.Fatalf("expected event id")
	}
	if envelope.SchemaVersion != domain.CurrentEventSchemaVersion {
		t.Fatalf("unexpected schema version: %d", envelope.SchemaVersion)
	}
	var snapshot domain.Office
	if err := json.Unmarshal(envelope.Payload, &snapshot); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snapshot.Name != "Head Office" {
		t.Fatalf("unexpected snapshot name: %s", snapshot.Name)
	}
}

func TestOfficeRepositoryCreateDuplicateName(t *testing.T) {
	ctx := context.Background()
	db, _ := openTestDB(t)
	repo := NewOfficeRepository(db)

	office := domain.Office{TenantID: "t1", Name: "Branch", Hierarchy: domain.RootHierarchy}
	if _, err := repo.CreateWithEvents(ctx, office, testMeta()); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := repo.CreateWithEvents(ctx, office, testMeta()); !errors.Is(err, domain.ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}

	// The same name under another tenant is fine.
	office.TenantID = "t2"
	if _, err := repo.CreateWithEvents(ctx, office, testMeta()); err != nil {
		t.Fatalf("other tenant create: %v", err)
	}
}

func TestOfficeRepositoryOutboxFailureRollsBackCreate(t *testing.T) {
	ctx := context.Background()
	db, wdb := openTestDB(t)
	repo := NewOfficeRepository(db)

	if _, err := wdb.ExecContext(ctx, `
		CREATE TRIGGER trg_fail_outbox_insert
		BEFORE INSERT ON outbox_events
		BEGIN
			SELECT RAISE(ABORT, 'forced outbox failure');
		END;
	`); err != nil {
		t.Fatalf("create failure trigger: %v", err)
	}

	_, err := repo.CreateWithEvents(ctx, domain.Office{
		TenantID:  "t1",
		Name:      "Head Office",
		Hierarchy: domain.RootHierarchy,
	}, testMeta())
	if err == nil {
		t.Fatalf("expected create error")
	}
	if !strings.Contains(err.Error(), "forced outbox failure") {
		t.Fatalf("expected forced outbox failure, got: %v", err)
	}

	assertTableCount(t, ctx, wdb, "offices", 0)
	assertTableCount(t, ctx, wdb, "outbox_events", 0)
}

func TestOfficeRepositoryUpdatePreservesCreatedAt(t *testing.T) {
	ctx := context.Background()
	db, wdb := openTestDB(t)
	repo := NewOfficeRepository(db)

	created, err := repo.CreateWithEvents(ctx, domain.Office{
		TenantID:  "t1",
		Name:      "Head Office",
		Hierarchy: domain.RootHierarchy,
	}, testMeta())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	later := testMeta()
	later.OccurredAt = later.OccurredAt.Add(time.Hour)
	created.Name = "Renamed Office"
	created.ExternalID = "EXT-9"
	updated, err := repo.UpdateWithEvents(ctx, created, later)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Renamed Office" || updated.ExternalID != "EXT-9" {
		t.Fatalf("unexpected updated office: %+v", updated)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("created_at changed: %v -> %v", created.CreatedAt, updated.CreatedAt)
	}
	if !updated.UpdatedAt.After(updated.CreatedAt) {
		t.Fatalf("expected updated_at after created_at")
	}

	assertTableCount(t, ctx, wdb, "outbox_events", 2)

	got, err := repo.GetByID(ctx, "t1", created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Renamed Office" {
		t.Fatalf("unexpected persisted name: %s", got.Name)
	}
}

func TestOfficeRepositoryUpdateMissingOffice(t *testing.T) {
	ctx := context.Background()
	db, _ := openTestDB(t)
	repo := NewOfficeRepository(db)

	_, err := repo.UpdateWithEvents(ctx, domain.Office{
		ID:        42,
		TenantID:  "t1",
		Name:      "Ghost",
		Hierarchy: domain.RootHierarchy,
	}, testMeta())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOfficeRepositoryGetScopesByTenant(t *testing.T) {
	ctx := context.Background()
	db, _ := openTestDB(t)
	repo := NewOfficeRepository(db)

	created, err := repo.CreateWithEvents(ctx, domain.Office{
		TenantID:  "t1",
		Name:      "Head Office",
		Hierarchy: domain.RootHierarchy,
	}, testMeta())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := repo.GetByID(ctx, "t2", created.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign tenant, got %v", err)
	}
}

func TestOfficeRepositoryListFiltersAndPaginates(t *testing.T) {
	ctx := context.Background()
	db, _ := openTestDB(t)
	repo := NewOfficeRepository(db)

	root, err := repo.CreateWithEvents(ctx, domain.Office{
		TenantID:  "t1",
		Name:      "Head Office",
		Hierarchy: domain.RootHierarchy,
	}, testMeta())
	if err != nil {
		t.Fatalf("create root: %v", err)
	}
	for _, name := range []string{"Branch North", "Branch South"} {
		if _, err := repo.CreateWithEvents(ctx, domain.Office{
			TenantID:  "t1",
			Name:      name,
			ParentID:  &root.ID,
			Hierarchy: root.ChildHierarchy(),
		}, testMeta()); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	all, err := repo.List(ctx, "t1", domain.OfficeListFilter{Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 offices, got %d", len(all))
	}

	children, err := repo.List(ctx, "t1", domain.OfficeListFilter{ParentID: &root.ID, Limit: 10})
	if err != nil {
		t.Fatalf("list children: %v", err)
	}
	if len(children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(children))
	}

	page, err := repo.List(ctx, "t1", domain.OfficeListFilter{AfterID: all[0].ID, Limit: 1})
	if err != nil {
		t.Fatalf("list page: %v", err)
	}
	if len(page) != 1 || page[0].ID != all[1].ID {
		t.Fatalf("unexpected page: %+v", page)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	_, wdb := openTestDB(t)

	if err := migrations.Up(ctx, wdb); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func assertTableCount(t *testing.T, ctx context.Context, wdb *sql.DB, table string, want int) {
	t.Helper()
	var got int
	row := wdb.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table)
	if err := row.Scan(&got); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	if got != want {
		t.Fatalf("unexpected %s count: got %d want %d", table, got, want)
	}
}

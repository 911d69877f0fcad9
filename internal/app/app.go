package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/atvirokodosprendimai/officeapi/internal/adapters/events"
	"github.com/atvirokodosprendimai/officeapi/internal/adapters/httpapi"
	sqliteadapter "github.com/atvirokodosprendimai/officeapi/internal/adapters/sqlite"
	"github.com/atvirokodosprendimai/officeapi/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/officeapi/internal/config"
	"github.com/atvirokodosprendimai/officeapi/internal/core/domain"
	"github.com/atvirokodosprendimai/officeapi/internal/core/ports"
	"github.com/atvirokodosprendimai/officeapi/internal/core/usecase"
	"github.com/atvirokodosprendimai/officeapi/internal/core/validation"
	"github.com/atvirokodosprendimai/officeapi/migrations"
)

type resourceCloser struct {
	closers []io.Closer
}

func (r resourceCloser) Close() error {
	var firstErr error
	for _, c := range r.closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NewServer wires the full service: storage, migrations, use cases, the
// outbox dispatcher and the HTTP surface. The returned closer stops the
// dispatcher and closes the database.
func NewServer(ctx context.Context, cfg config.Config) (*http.Server, io.Closer, error) {
	// A schema that fails to compile is a programming error; refuse to start.
	if err := validation.OfficeSchema().CompileCheck(); err != nil {
		return nil, nil, fmt.Errorf("office command schema: %w", err)
	}

	db, err := gormsqlite.Open(cfg.Database.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite: %w", err)
	}

	writeSQLDB, err := db.WriteSQLDB()
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("resolve writer sql db: %w", err)
	}

	migrateCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := migrations.Up(migrateCtx, writeSQLDB); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	officeRepo := sqliteadapter.NewOfficeRepository(db)
	auditRepo := sqliteadapter.NewAuditRepository(db)
	apiKeyRepo := sqliteadapter.NewAPIKeyRepository(db)
	outboxRepo := sqliteadapter.NewOutboxRepository(db)

	officeService := usecase.NewOfficeService(officeRepo, auditRepo)
	auditService := usecase.NewAuditService(auditRepo)
	authService := usecase.NewAuthService(apiKeyRepo)

	var publisher ports.EventPublisher = events.NewLogPublisher()
	if cfg.Outbox.WebhookURL != "" {
		publisher = events.NewWebhookPublisher(cfg.Outbox.WebhookURL, cfg.Outbox.WebhookSecret, cfg.Outbox.WebhookTimeout)
	}
	dispatcher := usecase.NewOutboxDispatcher(outboxRepo, publisher, nil, cfg.Outbox.Interval, cfg.Outbox.BatchSize)
	dispatcher.Start(context.Background())

	if cfg.Bootstrap.APIKey != "" {
		bootstrapCtx, bootstrapCancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := apiKeyRepo.Upsert(bootstrapCtx, domain.APIKey{
			TokenHash: usecase.HashToken(cfg.Bootstrap.APIKey),
			TenantID:  cfg.Bootstrap.TenantID,
			Name:      cfg.Bootstrap.KeyName,
			Active:    true,
			CreatedAt: time.Now().UTC(),
		})
		bootstrapCancel()
		if err != nil {
			_ = dispatcher.Close()
			_ = db.Close()
			return nil, nil, fmt.Errorf("bootstrap api key: %w", err)
		}
	}

	metrics := httpapi.NewMetrics(dispatcher.Metrics)
	handler := httpapi.NewHandler(officeService, auditService, authService, metrics)

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	return server, resourceCloser{closers: []io.Closer{dispatcher, db}}, nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/atvirokodosprendimai/officeapi/internal/app"
	"github.com/atvirokodosprendimai/officeapi/internal/config"
	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:  "officeapi",
		Usage: "Office management API with validated JSON commands",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Sources: cli.EnvVars("OFFICEAPI_CONFIG"),
				Usage:   "Path to YAML configuration file",
			},
			&cli.StringFlag{
				Name:  "addr",
				Usage: "HTTP listen address (overrides config)",
			},
			&cli.StringFlag{
				Name:  "db-path",
				Usage: "SQLite file path (overrides config)",
			},
			&cli.StringFlag{
				Name:    "bootstrap-api-key",
				Sources: cli.EnvVars("OFFICEAPI_BOOTSTRAP_API_KEY"),
				Usage:   "Optional API key to upsert at startup",
			},
			&cli.StringFlag{
				Name:    "webhook-url",
				Sources: cli.EnvVars("OFFICEAPI_WEBHOOK_URL"),
				Usage:   "Outbox event webhook target URL",
			},
			&cli.StringFlag{
				Name:    "webhook-secret",
				Sources: cli.EnvVars("OFFICEAPI_WEBHOOK_SECRET"),
				Usage:   "HMAC-SHA256 signing secret for outbound webhook requests",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			if addr := c.String("addr"); addr != "" {
				cfg.Server.Addr = addr
			}
			if path := c.String("db-path"); path != "" {
				cfg.Database.Path = path
			}
			if key := c.String("bootstrap-api-key"); key != "" {
				cfg.Bootstrap.APIKey = key
			}
			if url := c.String("webhook-url"); url != "" {
				cfg.Outbox.WebhookURL = url
			}
			if secret := c.String("webhook-secret"); secret != "" {
				cfg.Outbox.WebhookSecret = secret
			}

			server, closer, err := app.NewServer(ctx, cfg)
			if err != nil {
				return fmt.Errorf("create server: %w", err)
			}
			defer func() {
				if closeErr := closer.Close(); closeErr != nil {
					log.Printf("close resources: %v", closeErr)
				}
			}()

			errCh := make(chan error, 1)
			go func() {
				log.Printf("listening on %s", cfg.Server.Addr)
				errCh <- server.ListenAndServe()
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			shutdown := func() error {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			}

			select {
			case <-ctx.Done():
				return shutdown()
			case sig := <-sigCh:
				log.Printf("received signal %s", sig)
				return shutdown()
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			}
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

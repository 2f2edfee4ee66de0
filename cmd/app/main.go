package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/atvirokodosprendimai/envadmin/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/envadmin/internal/app"
	"github.com/atvirokodosprendimai/envadmin/internal/logging"
	"github.com/atvirokodosprendimai/envadmin/migrations"
)

const envPrefix = "ENVADMIN_"

func env(name string) cli.ValueSourceChain {
	return cli.EnvVars(envPrefix + name)
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("load .env: %v", err)
	}

	cmd := &cli.Command{
		Name:  "envadmin",
		Usage: "Environmental services administration API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "db-path",
				Value:   "./envadmin.sqlite",
				Sources: env("DB_PATH"),
				Usage:   "SQLite file path",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Sources: env("LOG_LEVEL"),
				Usage:   "debug, info, warn or error",
			},
		},
		Commands: []*cli.Command{serveCommand(), migrateCommand()},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API (applies pending migrations first)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: ":8080", Sources: env("ADDR"), Usage: "HTTP listen address"},
			&cli.StringFlag{Name: "auth-mode", Value: app.AuthModeJWT, Sources: env("AUTH_MODE"), Usage: "jwt, oidc or none"},
			&cli.StringFlag{Name: "jwt-public-key", Sources: env("JWT_PUBLIC_KEY"), Usage: "PEM file with the identity provider's RSA public key"},
			&cli.StringFlag{Name: "jwt-issuer", Sources: env("JWT_ISSUER"), Usage: "Expected iss claim"},
			&cli.StringFlag{Name: "jwt-audience", Sources: env("JWT_AUDIENCE"), Usage: "Expected aud claim"},
			&cli.StringFlag{Name: "oidc-issuer", Sources: env("OIDC_ISSUER"), Usage: "OpenID Connect issuer URL"},
			&cli.StringFlag{Name: "oidc-audience", Sources: env("OIDC_AUDIENCE"), Usage: "OpenID Connect client id; empty skips the check"},
			&cli.StringFlag{Name: "redis-url", Sources: env("REDIS_URL"), Usage: "redis:// URL for the session cache"},
			&cli.DurationFlag{Name: "session-ttl", Value: 8 * time.Hour, Sources: env("SESSION_TTL"), Usage: "Lifetime of opened sessions"},
			&cli.DurationFlag{Name: "session-sweep-interval", Value: 15 * time.Minute, Sources: env("SESSION_SWEEP_INTERVAL"), Usage: "How often expired sessions are deleted"},
			&cli.IntFlag{Name: "audit-buffer", Value: 1024, Sources: env("AUDIT_BUFFER"), Usage: "Pending audit entries before new ones are dropped"},
			&cli.IntFlag{Name: "audit-workers", Value: 2, Sources: env("AUDIT_WORKERS"), Usage: "Concurrent audit writers"},
			&cli.DurationFlag{Name: "audit-write-timeout", Value: 5 * time.Second, Sources: env("AUDIT_WRITE_TIMEOUT"), Usage: "Deadline for persisting one audit entry"},
			&cli.BoolFlag{Name: "audit-resolve-sessions", Sources: env("AUDIT_RESOLVE_SESSIONS"), Usage: "Attach session identity from X-Session-Token to audit entries"},
			&cli.IntFlag{Name: "audit-max-payload-chars", Value: 10000, Sources: env("AUDIT_MAX_PAYLOAD_CHARS"), Usage: "Payloads longer than this are stored as a truncation marker"},
			&cli.StringSliceFlag{Name: "audit-sensitive-field", Sources: env("AUDIT_SENSITIVE_FIELDS"), Usage: "Payload key to mask (repeatable); replaces the built-in list"},
			&cli.BoolFlag{Name: "audit-log-forward", Sources: env("AUDIT_LOG_FORWARD"), Usage: "Also write every stored audit entry to the log"},
			&cli.StringFlag{Name: "webhook-url", Sources: env("WEBHOOK_URL"), Usage: "Forward stored audit entries to this URL"},
			&cli.StringFlag{Name: "webhook-secret", Sources: env("WEBHOOK_SECRET"), Usage: "HMAC-SHA256 signing secret for webhook requests"},
			&cli.DurationFlag{Name: "webhook-timeout", Value: 5 * time.Second, Sources: env("WEBHOOK_TIMEOUT"), Usage: "Webhook request timeout"},
			&cli.DurationFlag{Name: "shutdown-timeout", Value: 10 * time.Second, Sources: env("SHUTDOWN_TIMEOUT"), Usage: "Grace period for in-flight requests and audit drain"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg := app.Config{
				Addr:                 c.String("addr"),
				DBPath:               c.String("db-path"),
				LogLevel:             c.String("log-level"),
				AuthMode:             strings.ToLower(c.String("auth-mode")),
				JWTPublicKeyPath:     c.String("jwt-public-key"),
				JWTIssuer:            c.String("jwt-issuer"),
				JWTAudience:          c.String("jwt-audience"),
				OIDCIssuerURL:        c.String("oidc-issuer"),
				OIDCAudience:         c.String("oidc-audience"),
				RedisURL:             c.String("redis-url"),
				SessionTTL:           c.Duration("session-ttl"),
				SessionSweepInterval: c.Duration("session-sweep-interval"),
				AuditBufferSize:      int(c.Int("audit-buffer")),
				AuditWorkers:         int(c.Int("audit-workers")),
				AuditWriteTimeout:    c.Duration("audit-write-timeout"),
				AuditResolveSessions: c.Bool("audit-resolve-sessions"),
				AuditMaxPayloadChars: int(c.Int("audit-max-payload-chars")),
				AuditLogForward:      c.Bool("audit-log-forward"),
				SensitiveFields:      c.StringSlice("audit-sensitive-field"),
				WebhookURL:           c.String("webhook-url"),
				WebhookSecret:        c.String("webhook-secret"),
				WebhookTimeout:       c.Duration("webhook-timeout"),
				ShutdownTimeout:      c.Duration("shutdown-timeout"),
			}
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg app.Config) error {
	z, err := logging.NewZapLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = z.Sync() }()

	server, closer, err := app.NewServer(ctx, cfg, z)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}
	defer func() {
		if closeErr := closer.Close(); closeErr != nil {
			z.Error("close resources", zap.Error(closeErr))
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		z.Info("listening", zap.String("addr", cfg.Addr), zap.String("auth_mode", cfg.AuthMode))
		errCh <- server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	shutdown := func() error {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}

	select {
	case <-ctx.Done():
		return shutdown()
	case sig := <-sigCh:
		z.Info("received signal", zap.String("signal", sig.String()))
		return shutdown()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Manage the database schema",
		Commands: []*cli.Command{
			{Name: "up", Usage: "Apply all pending migrations", Action: migrateUp},
			{Name: "status", Usage: "List migrations and whether they are applied", Action: migrateStatus},
		},
	}
}

func openSchemaDB(c *cli.Command) (*gormsqlite.DB, *sql.DB, *zap.Logger, error) {
	z, err := logging.NewZapLogger(c.String("log-level"))
	if err != nil {
		return nil, nil, nil, err
	}
	db, err := app.OpenDB(c.String("db-path"), z)
	if err != nil {
		return nil, nil, nil, err
	}
	sqlDB, err := db.WriteSQLDB()
	if err != nil {
		_ = db.Close()
		return nil, nil, nil, fmt.Errorf("resolve writer sql db: %w", err)
	}
	return db, sqlDB, z, nil
}

func migrateUp(ctx context.Context, c *cli.Command) error {
	db, sqlDB, z, err := openSchemaDB(c)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrations.Up(ctx, sqlDB); err != nil {
		return err
	}
	z.Info("migrations applied", zap.String("db_path", c.String("db-path")))
	return nil
}

func migrateStatus(ctx context.Context, c *cli.Command) error {
	db, sqlDB, _, err := openSchemaDB(c)
	if err != nil {
		return err
	}
	defer db.Close()

	states, err := migrations.Status(ctx, sqlDB)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tAPPLIED\tAPPLIED AT\tSOURCE")
	for _, s := range states {
		appliedAt := "-"
		if s.Applied {
			appliedAt = s.AppliedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%d\t%t\t%s\t%s\n", s.Version, s.Applied, appliedAt, s.Source)
	}
	return w.Flush()
}

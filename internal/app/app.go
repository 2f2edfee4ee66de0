package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/atvirokodosprendimai/envadmin/internal/adapters/auth"
	"github.com/atvirokodosprendimai/envadmin/internal/adapters/events"
	"github.com/atvirokodosprendimai/envadmin/internal/adapters/httpapi"
	"github.com/atvirokodosprendimai/envadmin/internal/adapters/redis"
	sqliteadapter "github.com/atvirokodosprendimai/envadmin/internal/adapters/sqlite"
	"github.com/atvirokodosprendimai/envadmin/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/envadmin/internal/core/domain"
	"github.com/atvirokodosprendimai/envadmin/internal/core/ports"
	"github.com/atvirokodosprendimai/envadmin/internal/core/snapshot"
	"github.com/atvirokodosprendimai/envadmin/internal/core/usecase"
	"github.com/atvirokodosprendimai/envadmin/internal/logging"
	"github.com/atvirokodosprendimai/envadmin/internal/metrics"
	"github.com/atvirokodosprendimai/envadmin/migrations"
)

const (
	AuthModeJWT  = "jwt"
	AuthModeOIDC = "oidc"
	AuthModeNone = "none"
)

// Config is built once at startup and never re-read.
type Config struct {
	Addr     string
	DBPath   string
	LogLevel string

	AuthMode         string
	JWTPublicKeyPath string
	JWTIssuer        string
	JWTAudience      string
	OIDCIssuerURL    string
	OIDCAudience     string

	RedisURL             string
	SessionTTL           time.Duration
	SessionSweepInterval time.Duration

	AuditBufferSize      int
	AuditWorkers         int
	AuditWriteTimeout    time.Duration
	AuditResolveSessions bool
	AuditMaxPayloadChars int
	AuditLogForward      bool
	SensitiveFields      []string

	WebhookURL     string
	WebhookSecret  string
	WebhookTimeout time.Duration

	ShutdownTimeout time.Duration
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.DBPath) == "" {
		errs = append(errs, errors.New("db path is required"))
	}
	switch c.AuthMode {
	case AuthModeJWT:
		if c.JWTPublicKeyPath == "" {
			errs = append(errs, errors.New("jwt auth mode needs a public key path"))
		}
	case AuthModeOIDC:
		if c.OIDCIssuerURL == "" {
			errs = append(errs, errors.New("oidc auth mode needs an issuer url"))
		}
	case AuthModeNone:
	default:
		errs = append(errs, fmt.Errorf("unknown auth mode %q", c.AuthMode))
	}
	if c.AuditBufferSize < 0 || c.AuditWorkers < 0 {
		errs = append(errs, errors.New("audit buffer size and workers must not be negative"))
	}
	if c.WebhookSecret != "" && c.WebhookURL == "" {
		errs = append(errs, errors.New("webhook secret set without webhook url"))
	}
	return errors.Join(errs...)
}

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

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func NewServer(ctx context.Context, cfg Config, z *zap.Logger) (*http.Server, io.Closer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	log := zapr.NewLogger(z)

	db, err := OpenDB(cfg.DBPath, z)
	if err != nil {
		return nil, nil, err
	}
	closers := []io.Closer{db}
	fail := func(err error) (*http.Server, io.Closer, error) {
		_ = resourceCloser{closers: reverse(closers)}.Close()
		return nil, nil, err
	}

	writeSQLDB, err := db.WriteSQLDB()
	if err != nil {
		return fail(fmt.Errorf("resolve writer sql db: %w", err))
	}
	migrateCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	err = migrations.Up(migrateCtx, writeSQLDB)
	cancel()
	if err != nil {
		return fail(err)
	}

	verifier, err := newVerifier(ctx, cfg)
	if err != nil {
		return fail(fmt.Errorf("token verifier: %w", err))
	}

	var cache ports.SessionCache
	if cfg.RedisURL != "" {
		client, err := redis.NewClientFromURL(ctx, cfg.RedisURL)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, client)
		cache = redis.NewSessionCache(client)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	vehicleRepo := sqliteadapter.NewVehicleRepository(db)
	emissionRepo := sqliteadapter.NewEmissionTestRepository(db)
	auditRepo := sqliteadapter.NewAuditLogRepository(db)
	sessionRepo := sqliteadapter.NewSessionRepository(db)

	schemas, err := usecase.NewPayloadValidator()
	if err != nil {
		return fail(err)
	}
	sessions := usecase.NewSessionService(sessionRepo, cache, log)
	auditService := usecase.NewAuditService(auditRepo, log)

	var resolver ports.SessionResolver
	if cfg.AuditResolveSessions {
		resolver = sessions
	}
	recorder := usecase.NewAuditRecorder(auditService, log, usecase.AuditRecorderOptions{
		BufferSize:   cfg.AuditBufferSize,
		Workers:      cfg.AuditWorkers,
		WriteTimeout: cfg.AuditWriteTimeout,
		Sessions:     resolver,
		Forwarder:    newForwarder(cfg, log),
		Observer:     metrics.NewAuditMetrics(reg),
	})
	closers = append(closers, closerFunc(func() error {
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg))
		defer cancel()
		return recorder.Close(drainCtx)
	}))

	janitor := startSessionJanitor(sessionRepo, cfg.SessionSweepInterval, log)
	closers = append(closers, janitor)

	handler := httpapi.NewHandler(httpapi.Deps{
		Vehicles:        usecase.NewVehicleService(vehicleRepo),
		Emissions:       usecase.NewEmissionService(vehicleRepo, emissionRepo),
		Audit:           auditService,
		Auth:            usecase.NewAuthService(verifier),
		Sessions:        sessions,
		Schemas:         schemas,
		AuditSink:       recorder,
		Masker:          snapshot.NewMasker(cfg.SensitiveFields, cfg.AuditMaxPayloadChars),
		ResolveSessions: cfg.AuditResolveSessions,
		SessionTTL:      cfg.SessionTTL,
		HTTPMetrics:     metrics.NewHTTPMetrics(reg),
		MetricsHandler:  promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Log:             log,
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ErrorLog:          logging.StdLogger(z, "http"),
	}

	// Resources close in reverse order of acquisition: the recorder drains
	// before the database goes away.
	return server, resourceCloser{closers: reverse(closers)}, nil
}

// OpenDB opens the SQLite database with GORM output routed through z.
func OpenDB(path string, z *zap.Logger) (*gormsqlite.DB, error) {
	db, err := gormsqlite.Open(path, gormsqlite.Options{Logger: logging.StdLogger(z, "gorm")})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return db, nil
}

func newVerifier(ctx context.Context, cfg Config) (ports.TokenVerifier, error) {
	switch cfg.AuthMode {
	case AuthModeJWT:
		return auth.NewJWTVerifierFromFile(cfg.JWTPublicKeyPath, auth.JWTConfig{
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
			Leeway:   30 * time.Second,
		})
	case AuthModeOIDC:
		return auth.NewOIDCVerifier(ctx, cfg.OIDCIssuerURL, cfg.OIDCAudience)
	default:
		return auth.NewStaticVerifier(domain.Principal{Subject: "dev", Email: "dev@localhost"}), nil
	}
}

func newForwarder(cfg Config, log logr.Logger) ports.AuditForwarder {
	switch {
	case cfg.WebhookURL != "":
		return events.NewWebhookForwarder(cfg.WebhookURL, cfg.WebhookSecret, cfg.WebhookTimeout)
	case cfg.AuditLogForward:
		return events.NewLogForwarder(log)
	default:
		return nil
	}
}

func shutdownTimeout(cfg Config) time.Duration {
	if cfg.ShutdownTimeout > 0 {
		return cfg.ShutdownTimeout
	}
	return 10 * time.Second
}

func reverse(in []io.Closer) []io.Closer {
	out := make([]io.Closer, len(in))
	for i, c := range in {
		out[len(in)-1-i] = c
	}
	return out
}

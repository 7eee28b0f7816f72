package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"hackathon-gateway/internal/audit"
	"hackathon-gateway/internal/auth"
	"hackathon-gateway/internal/backend"
	"hackathon-gateway/internal/config"
	"hackathon-gateway/internal/httpapi"
	"hackathon-gateway/internal/liveness"
	"hackathon-gateway/internal/proxy"
	"hackathon-gateway/internal/signin"
	"hackathon-gateway/internal/upload"
	"hackathon-gateway/pkg/utils"

	"github.com/redis/go-redis/v9"
)

type deps struct {
	tokens   *auth.Manager
	registry auth.Registry
	audit    *audit.Service
	monitor  *liveness.Monitor
	api      httpapi.Handlers
	uploads  proxy.Handlers
	cookies  auth.CookieOptions
	pagesDir string
}

// buildDeps opens the optional stores and wires services. Without Postgres
// or Redis the gateway runs on in-memory stores (single replica only).
func buildDeps(ctx context.Context, cfg config.Config, log *slog.Logger) (deps, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var auditRepo audit.Repository = audit.NewMemoryRepo()
	if cfg.HasDB() {
		db, err := utils.OpenPostgres(ctx, "pgx", cfg.PostgresDSN(), utils.AuditDBOptions{})
		if err != nil {
			return deps{}, cleanup, err
		}
		closers = append(closers, func() { _ = db.Close() })
		pg := audit.NewPostgresRepo(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			cleanup()
			return deps{}, func() {}, err
		}
		auditRepo = pg
		logDB(log, db)
	} else {
		log.Warn("postgres not configured; audit events kept in memory")
	}

	var (
		registry auth.Registry = auth.NewMemoryRegistry(cfg.Session.RefreshTTL)
		limiter  proxy.Limiter = proxy.NoopLimiter{}
	)
	if cfg.HasRedis() {
		rdb, err := utils.OpenRedis(ctx, utils.RedisConfig{Addr: cfg.RedisAddr()})
		if err != nil {
			cleanup()
			return deps{}, func() {}, err
		}
		closers = append(closers, func() { _ = rdb.Close() })
		registry = auth.NewRedisRegistry(rdb, cfg.Session.RefreshTTL)
		limiter = proxy.NewRedisLimiter(rdb, cfg.Upload.MaxConcurrent, 5*time.Minute)
		logRedis(log, rdb)
	} else {
		log.Warn("redis not configured; sessions kept in memory")
	}

	tokens := auth.NewManager(cfg.Session)
	auditSvc := audit.NewService(auditRepo)
	cookies := auth.CookieOptions{Secure: cfg.Session.CookieSecure}

	svc := &signin.Service{Tokens: tokens, Registry: registry, Audit: auditSvc, Logger: log}
	client := backend.NewClient(backend.Options{
		BaseURL:    cfg.Backend.BaseURL,
		Timeout:    cfg.Backend.Timeout,
		Terminator: svc,
		Logger:     log,
	})
	svc.Backend = client

	monitor := &liveness.Monitor{
		Registry:    registry,
		Pinger:      client,
		Revoker:     svc,
		Interval:    cfg.Liveness.Interval,
		Concurrency: cfg.Liveness.Concurrency,
		Logger:      log,
	}

	d := deps{
		tokens:   tokens,
		registry: registry,
		audit:    auditSvc,
		monitor:  monitor,
		cookies:  cookies,
		pagesDir: cfg.App.FrontendDir,
		api: httpapi.Handlers{
			Sessions: svc,
			Client:   client,
			Monitor:  monitor,
			Cookies:  cookies,
		},
		uploads: proxy.Handlers{
			Forwarder: proxy.Forwarder{
				BaseURL:    cfg.Backend.BaseURL,
				HTTPClient: &http.Client{Timeout: 4 * cfg.Backend.Timeout},
			},
			ProjectRules: upload.ProjectRules(cfg.Upload.MaxProjectBytes),
			AvatarRules:  upload.AvatarRules(cfg.Upload.MaxAvatarBytes),
			MaxBodyBytes: cfg.Upload.MaxBodyBytes,
			Limiter:      limiter,
		},
	}
	return d, cleanup, nil
}

func logDB(log *slog.Logger, db *sql.DB) {
	s := db.Stats()
	log.Info("postgres connected", "max_open", s.MaxOpenConnections)
}

func logRedis(log *slog.Logger, rdb *redis.Client) {
	log.Info("redis connected", "addr", rdb.Options().Addr)
}

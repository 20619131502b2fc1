// Command objectosd runs the ObjectOS kernel: it assembles the five
// plugins (permission, audit, job queue, notifications, metadata) onto the
// bootstrap kernel, then serves the public API
// (gin+chi, on Server.Addr) and the admin surface (gorilla/mux, on
// Admin.Addr) until an interrupt or terminate signal arrives.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"

	"github.com/objectql/objectos-sub004/internal/audit"
	"github.com/objectql/objectos-sub004/internal/audit/sqlstore"
	"github.com/objectql/objectos-sub004/internal/httpapi"
	"github.com/objectql/objectos-sub004/internal/jobqueue"
	"github.com/objectql/objectos-sub004/internal/metadata"
	"github.com/objectql/objectos-sub004/internal/notify"
	"github.com/objectql/objectos-sub004/internal/permission"
	"github.com/objectql/objectos-sub004/internal/retry"
	"github.com/objectql/objectos-sub004/pkg/config"
	"github.com/objectql/objectos-sub004/pkg/logger"
	"github.com/objectql/objectos-sub004/system/bootstrap"
	"github.com/objectql/objectos-sub004/system/core"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (overrides CONFIG_FILE)")
	flag.Parse()

	if *configPath != "" {
		os.Setenv("CONFIG_FILE", *configPath)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "objectosd: load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.LoggingConfig(cfg.Logging))

	auditPipeline, closeAudit := buildAuditPipeline(cfg, log)
	if closeAudit != nil {
		defer closeAudit()
	}

	permEngine := permission.NewEngine(permission.EngineConfig{
		Cache:    buildPermissionCache(cfg, log),
		CacheTTL: time.Duration(cfg.Permission.CacheTTL) * time.Second,
	})

	jobQueue := jobqueue.New(jobqueue.Config{
		DefaultMaxRetries: cfg.JobQueue.MaxRetries,
		RetryStrategy:     retry.Linear,
		CronSpec:          cfg.JobQueue.CronSpec,
	})

	notifyQueue := notify.New(notify.Config{
		Synchronous:       cfg.Notify.Synchronous,
		DefaultMaxRetries: 3,
		RetryStrategy:     retry.Exponential,
		CronSpec:          cfg.Notify.CronSpec,
	})
	registerStubChannels(notifyQueue, log)

	metaRegistry := metadata.NewRegistry()

	auditPlugin := audit.NewPlugin(auditPipeline)
	permPlugin := permission.NewPlugin(permEngine)
	jobPlugin := jobqueue.NewPlugin(jobQueue)
	notifyPlugin := notify.NewPlugin(notifyQueue)
	metaPlugin := metadata.NewPlugin(metaRegistry)

	k, err := bootstrap.Bootstrap(context.Background(), bootstrap.Config{
		Logger: log.Logger,
		Plugins: []core.Plugin{
			permPlugin, auditPlugin, jobPlugin, notifyPlugin, metaPlugin,
		},
	})
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}

	server := httpapi.NewServer(httpapi.Dependencies{
		Bus:                k.Bus,
		Permission:         permEngine,
		Audit:              auditPipeline,
		Jobs:               jobQueue,
		Notify:             notifyQueue,
		Metadata:           metaRegistry,
		JWTSecret:          cfg.Auth.JWTSecret,
		RateLimitPerSecond: cfg.RateLimit.RequestsPerSecond,
		RateLimitBurst:     cfg.RateLimit.Burst,
	})

	publicAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	adminAddr := fmt.Sprintf("%s:%d", cfg.Admin.Host, cfg.Admin.Port)

	publicSrv := &http.Server{Addr: publicAddr, Handler: server.Handler(), ReadTimeout: 15 * time.Second, WriteTimeout: 15 * time.Second}
	adminSrv := &http.Server{Addr: adminAddr, Handler: httpapi.AdminHandler(k), ReadTimeout: 15 * time.Second, WriteTimeout: 15 * time.Second}

	go func() {
		log.Infof("objectosd public API listening on %s", publicAddr)
		if err := publicSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("public server: %v", err)
		}
	}()
	go func() {
		log.Infof("objectosd admin surface listening on %s", adminAddr)
		if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("admin server: %v", err)
		}
	}()

	dispatchCtx, cancelDispatch := context.WithCancel(context.Background())
	if err := jobQueue.Start(dispatchCtx); err != nil {
		log.Errorf("job queue start: %v", err)
	}
	if err := notifyQueue.Start(dispatchCtx); err != nil {
		log.Errorf("notification queue start: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Info("objectosd shutting down")

	cancelDispatch()
	jobQueue.Stop()
	notifyQueue.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = publicSrv.Shutdown(shutdownCtx)
	_ = adminSrv.Shutdown(shutdownCtx)
	if err := k.Shutdown(shutdownCtx); err != nil {
		log.Errorf("kernel shutdown: %v", err)
	}
}

// buildPermissionCache backs the permission engine's Check cache with Redis
// when cfg.Permission.RedisAddr is set, so the TTL cache survives across
// process restarts and is shared across replicas; nil (the in-process
// TTLCache) otherwise.
func buildPermissionCache(cfg *config.Config, log *logger.Logger) permission.Cache {
	addr := strings.TrimSpace(cfg.Permission.RedisAddr)
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Warnf("permission: redis ping failed, falling back to in-process cache: %v", err)
		return nil
	}
	return permission.NewRedisCache(client, "objectos")
}

// buildAuditPipeline wires the sqlstore-backed Store when cfg.Audit.SQLDSN
// is set, falling back to the in-memory reference Store otherwise (spec.md
// §1, persistence drivers are an external concern; sqlstore is one
// reference implementation of the Store contract, not a kernel requirement).
func buildAuditPipeline(cfg *config.Config, log *logger.Logger) (*audit.Pipeline, func()) {
	var store audit.Store
	var closeFn func()

	if dsn := strings.TrimSpace(cfg.Audit.SQLDSN); dsn != "" {
		db, err := sqlx.Connect("postgres", dsn)
		if err != nil {
			log.Warnf("audit: postgres connect failed, falling back to memory store: %v", err)
		} else {
			sqlStore := sqlstore.New(db)
			if err := sqlstore.Migrate(sqlStore, false); err != nil {
				log.Warnf("audit: schema migration failed, falling back to memory store: %v", err)
				_ = db.Close()
			} else {
				store = sqlStore
				closeFn = func() { _ = db.Close() }
			}
		}
	}

	pipeline := audit.NewPipeline(audit.PipelineConfig{
		Store:         store,
		ChainSecret:   cfg.Audit.ChainSecret,
		RetentionDays: cfg.Audit.RetentionDays,
	})
	pipeline.SetEnabled(cfg.Audit.Enabled)
	return pipeline, closeFn
}

// registerStubChannels registers a log-only handler for every channel, so a
// default deployment with no SMTP/SMS/push/webhook client configured still
// dispatches (and records) notifications rather than leaving them stuck
// pending forever.
func registerStubChannels(q *notify.Queue, log *logger.Logger) {
	for _, ch := range []notify.Channel{notify.ChannelEmail, notify.ChannelSMS, notify.ChannelPush, notify.ChannelWebhook} {
		channel := ch
		q.RegisterChannel(channel, func(_ context.Context, n notify.Notification) error {
			log.Infof("notify[%s]: dispatching %q to %v", channel, n.Request.Subject, n.Request.Recipients)
			return nil
		})
	}
}

// Command server wires the platform core: Postgres stores, the audit
// recorder and its Kafka outbox worker, external-data clients with their
// cache, and the HTTP surface. Business logic lives in internal packages.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/Stratton1/ppukv6-0-sub001/internal/audit"
	"github.com/Stratton1/ppukv6-0-sub001/internal/audit/outbox"
	"github.com/Stratton1/ppukv6-0-sub001/internal/blob"
	"github.com/Stratton1/ppukv6-0-sub001/internal/external"
	extcache "github.com/Stratton1/ppukv6-0-sub001/internal/external/cache"
	httptransport "github.com/Stratton1/ppukv6-0-sub001/internal/http"
	jwttoken "github.com/Stratton1/ppukv6-0-sub001/internal/jwt_token"
	"github.com/Stratton1/ppukv6-0-sub001/internal/platform/config"
	"github.com/Stratton1/ppukv6-0-sub001/internal/platform/httpserver"
	"github.com/Stratton1/ppukv6-0-sub001/internal/platform/logger"
	"github.com/Stratton1/ppukv6-0-sub001/internal/platform/metrics"
	platformredis "github.com/Stratton1/ppukv6-0-sub001/internal/platform/redis"
	"github.com/Stratton1/ppukv6-0-sub001/internal/property"
	"github.com/Stratton1/ppukv6-0-sub001/internal/records"
	"github.com/Stratton1/ppukv6-0-sub001/internal/relationship"
	"github.com/Stratton1/ppukv6-0-sub001/internal/snapshot"
	"github.com/Stratton1/ppukv6-0-sub001/internal/watchlist"
	"github.com/Stratton1/ppukv6-0-sub001/pkg/platform/tx"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return err
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	m := metrics.New()

	var cache extcache.Cache
	if redisClient != nil {
		cache = extcache.NewRedis(redisClient.Client)
		log.Info("external cache backed by redis")
	} else {
		cache = extcache.NewMemory()
		log.Info("external cache in memory; set PPUK_REDIS_URL to share across replicas")
	}

	runner := tx.NewSQLRunner(db)
	relStore := relationship.NewPostgresStore(db)
	propStore := property.NewPostgresStore(db)
	auditStore := audit.NewPostgresStore(db)
	recorder := audit.NewRecorder(auditStore, m)
	blobStore := blob.NewMockStore()

	extService := external.NewService(external.Clients{
		EPC:      external.MockEPCClient{Latency: 50 * time.Millisecond},
		Flood:    external.MockFloodClient{Latency: 50 * time.Millisecond},
		Postcode: external.MockPostcodeClient{Latency: 50 * time.Millisecond},
	}, cache, cfg.External, m, log)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "ppuk-platform", "ppuk-api")

	snapshotSvc := snapshot.NewService(propStore, propStore, propStore, propStore, relStore, extService, m, log)
	watchlistSvc := watchlist.NewService(runner, relStore, propStore, recorder, m, log)
	relationshipSvc := relationship.NewService(runner, relStore, propStore, recorder, log)
	recordsSvc := records.NewService(runner, propStore, propStore, propStore, propStore, relStore, recorder, blobStore, log)

	checks := map[string]httptransport.HealthChecker{
		"postgres": db.PingContext,
	}
	if redisClient != nil {
		checks["redis"] = redisClient.Health
	}

	router := httptransport.New(httptransport.Deps{
		Logger:    log,
		Metrics:   m,
		Validator: jwttoken.NewMiddlewareAdapter(jwtService),
		Authed: []httptransport.Registrar{
			snapshot.NewHandler(snapshotSvc, log),
			watchlist.NewHandler(watchlistSvc, log),
			relationship.NewHandler(relationshipSvc, log),
			records.NewHandler(recordsSvc, log),
		},
		Checks: checks,
	})

	// The outbox worker is optional: without brokers, audit entries stay
	// queryable in Postgres and the outbox simply accumulates.
	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := outbox.NewKafkaPublisher(ctx, cfg.Kafka.Brokers, cfg.Kafka.AuditTopic)
		if err != nil {
			return err
		}
		defer publisher.Close()

		worker := outbox.NewWorker(outbox.NewPostgresStore(db), publisher, log, m, cfg.Kafka.PollInterval)
		go func() {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("outbox worker stopped", "error", err)
			}
		}()
		log.Info("audit outbox worker started", "topic", cfg.Kafka.AuditTopic)
	} else {
		log.Warn("no kafka brokers configured; audit outbox publishing disabled")
	}

	srv := httpserver.New(cfg.Addr, router)
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

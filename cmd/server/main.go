// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal service
// packages.
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
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	"smpd/internal/idfactory"
	jwttoken "smpd/internal/jwt_token"
	migmetrics "smpd/internal/migration/metrics"
	migservice "smpd/internal/migration/service"
	migstore "smpd/internal/migration/store"
	"smpd/internal/platform/config"
	"smpd/internal/platform/httpserver"
	"smpd/internal/platform/logger"
	platformredis "smpd/internal/platform/redis"
	"smpd/internal/servicegroup/cache"
	sgmetrics "smpd/internal/servicegroup/metrics"
	sgservice "smpd/internal/servicegroup/service"
	sgstore "smpd/internal/servicegroup/store"
	"smpd/internal/sml"
	httptransport "smpd/internal/transport/http"
	"smpd/pkg/platform/audit"
	auditmemory "smpd/pkg/platform/audit/store/memory"
	auditpostgres "smpd/pkg/platform/audit/store/postgres"
	auditworker "smpd/pkg/platform/audit/worker"
	"smpd/pkg/platform/tx"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage: PostgreSQL when configured, in-memory otherwise.
	var (
		db      *sql.DB
		groupSt sgstore.Store = sgstore.NewInMemory()
		migSt   migstore.Store = migstore.NewInMemory()
		auditSt audit.Store   = auditmemory.New()
		runner  tx.Runner     = tx.NopRunner{}
		ids     migservice.IDSource
		checks  []httptransport.Option
	)
	if cfg.Database.URL != "" {
		var err error
		db, err = sql.Open("postgres", cfg.Database.URL)
		if err != nil {
			log.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("database unreachable", "error", err)
			os.Exit(1)
		}
		groupSt = sgstore.NewPostgres(db)
		migSt = migstore.NewPostgres(db)
		auditSt = auditpostgres.New(db)
		runner = tx.NewSQLRunner(db)
		ids = idfactory.NewSequencer(idfactory.NewPostgres(db, cfg.IDs.Baseline), cfg.IDs.BlockSize)
		checks = append(checks, httptransport.WithHealthCheck("database", dbHealth{db}))
	} else {
		ids = idfactory.NewSequencer(idfactory.NewInMemory(cfg.IDs.Baseline), cfg.IDs.BlockSize)
	}

	// Identifier cache: Redis when configured, in-process otherwise.
	var identifierCache cache.Cache = cache.NewInMemory(cfg.Cache.TTL)
	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		identifierCache = cache.NewRedis(redisClient.Client, cfg.Cache.TTL, log)
		checks = append(checks, httptransport.WithHealthCheck("redis", redisClient))
	}

	// Directory integration.
	var hook sml.RegistrationHook = sml.NoOpHook{}
	var migClient sml.MigrationClient
	smpID := ""
	if cfg.SML.Enabled && cfg.SML.Endpoint != "" {
		client := sml.NewClient(cfg.SML.Endpoint, cfg.SML.SMPID,
			&http.Client{Timeout: cfg.SML.Timeout}, log)
		hook = client
		migClient = client
		smpID = cfg.SML.SMPID
	}
	checks = append(checks, httptransport.WithSMLEnabled(cfg.SML.Enabled))

	auditPublisher := audit.NewPublisher(auditSt)

	groups := sgservice.NewManager(groupSt, hook,
		sgservice.WithLogger(log),
		sgservice.WithMetrics(sgmetrics.New()),
		sgservice.WithAuditPublisher(auditPublisher),
		sgservice.WithTxRunner(runner),
		sgservice.WithCache(identifierCache),
	)
	migrations := migservice.NewCoordinator(migSt, migClient, groups, smpID,
		migservice.WithLogger(log),
		migservice.WithMetrics(migmetrics.New()),
		migservice.WithAuditPublisher(auditPublisher),
		migservice.WithTxRunner(runner),
		migservice.WithIDSource(ids),
	)

	jwtService := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, "smpd", "smpd-api")
	handler := httptransport.NewHandler(groups, migrations,
		jwttoken.NewJWTServiceAdapter(jwtService), log, checks...)
	srv := httpserver.New(cfg.Server.Addr, httptransport.NewRouter(handler))

	group, groupCtx := errgroup.WithContext(ctx)

	// Audit relay: only meaningful with the postgres outbox and a broker.
	if outbox, ok := auditSt.(*auditpostgres.Store); ok && len(cfg.Kafka.Seeds) > 0 {
		kafkaClient, err := kgo.NewClient(
			kgo.SeedBrokers(cfg.Kafka.Seeds...),
			kgo.DefaultProduceTopic(cfg.Kafka.AuditTopic),
		)
		if err != nil {
			log.Error("failed to create kafka client", "error", err)
			os.Exit(1)
		}
		defer kafkaClient.Close()
		worker := auditworker.New(outbox, kafkaClient, cfg.Kafka.AuditTopic, 5*time.Second, log)
		group.Go(func() error { return worker.Run(groupCtx) })
	}

	group.Go(func() error {
		log.Info("starting smpd", "addr", cfg.Server.Addr, "sml_enabled", cfg.SML.Enabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

type dbHealth struct {
	db *sql.DB
}

func (h dbHealth) Health(ctx context.Context) error {
	return h.db.PingContext(ctx)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"medident/internal/config"
	"medident/internal/infra"
	"medident/internal/ledger"
	"medident/internal/repository"
	"medident/internal/router"
	"medident/internal/service"
	"medident/internal/telemetry"
	"medident/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: pretty in dev, JSON in production
	if cfg.Env != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	config.ApplyLogLevel(cfg.LogLevel)
	config.WatchLogLevel()

	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET must be set")
	}

	pool := infra.PoolConfig{MaxOpen: cfg.DBMaxOpenConns, MaxIdle: cfg.DBMaxIdleConns}
	db, err := infra.NewDatabase(cfg.DatabaseURL, pool)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to get sql.DB")
	}
	if err := infra.RunMigrations(sqlDB, "up"); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}
	if version, dirty, err := infra.MigrationVersion(sqlDB); err == nil {
		log.Info().Uint("version", version).Bool("dirty", dirty).Msg("schema ready")
	}

	reportDB, err := infra.NewReportingDB(cfg.DatabaseURL, pool)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open reporting connection")
	}
	defer reportDB.Close()

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer rdb.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Ledger ───────────────────────────────────────────────────────────────
	lockTimeout := time.Duration(cfg.LedgerLockTimeoutMS) * time.Millisecond
	itemLedger := ledger.New(
		repository.NewLedgerStore(db, lockTimeout),
		ledger.WithObserver(telemetry.LedgerObserver{}),
	)

	// ── Background work ──────────────────────────────────────────────────────
	// Worker handlers are wired here (composition root) so that the pool
	// has full access to all infrastructure dependencies.
	mailer := infra.NewMailer(cfg)
	if !mailer.Configured() {
		log.Warn().Msg("SMTP_HOST not set, email jobs will fail and land in the DLQ")
	}
	smtpCB := infra.NewCircuitBreaker(infra.DefaultCBConfig("smtp"))
	dispatcher := worker.NewDispatcher(rdb)
	recipients := splitList(cfg.AlertEmailTo)

	emailWorker := worker.NewEmailWorker(mailer, smtpCB)
	workers := worker.NewPool(rdb, cfg.WorkerPoolSize)
	workers.Handle(worker.JobTypeEmail, emailWorker)
	workers.Handle(worker.JobTypeLowStockAlert, worker.NewAlertWorker(emailWorker, recipients))

	alertSvc := service.NewAlertService(repository.NewReportRepository(reportDB), cfg.ExpiringDaysDefault)

	r := router.New(cfg, router.Deps{
		DB:         db,
		ReportDB:   reportDB,
		Redis:      rdb,
		Ledger:     itemLedger,
		Dispatcher: dispatcher,
		MailerCB:   smtpCB,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.MetricsPort),
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return workers.Run(gctx) })
	telemetry.StartDBStatsCollector(gctx, sqlDB)
	worker.StartAlertScanner(gctx, worker.AlertScannerConfig{
		Source:       alertSvc,
		Enqueuer:     dispatcher,
		CB:           smtpCB,
		Recipients:   recipients,
		Interval:     time.Duration(cfg.AlertScanIntervalMinutes) * time.Minute,
		ExpiringDays: cfg.ExpiringDaysDefault,
	})
	g.Go(func() error {
		log.Info().Msgf("MediDent inventory API listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info().Msgf("metrics listening on :%d", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		// Graceful shutdown on SIGINT / SIGTERM or when any component fails
		<-gctx.Done()
		log.Info().Msg("shutting down server…")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return errors.Join(srv.Shutdown(shutdownCtx), metricsSrv.Shutdown(shutdownCtx))
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("server exited")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"jobboard-billing/internal/config"
	"jobboard-billing/internal/domain/ports/repository"
	"jobboard-billing/internal/infra/api"
	"jobboard-billing/internal/infra/api/apiv1"
	"jobboard-billing/internal/infra/db/migrations"
	pg "jobboard-billing/internal/infra/db/postgres"
	"jobboard-billing/internal/infra/logging"
	"jobboard-billing/internal/infra/metrics"
	red "jobboard-billing/internal/infra/redis"
	"jobboard-billing/internal/infra/sched"
	"jobboard-billing/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, auto-migrate)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] Enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	if cfg.Runtime.Dev {
		if err := migrations.Up(cfg.Database.URL); err != nil {
			logger.Fatal().Err(err).Msg("migrate")
		}
	}
	pool, err := pg.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Repositories ----
	var planRepo repository.PlanRepository = pg.NewPlanRepo(pool)
	payRepo := pg.NewPaymentRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	directory := pg.NewDirectoryRepo(pool)
	txm := pg.NewTxManager(pool)

	// ---- Redis (optional) ----
	var locker red.Locker
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
		planRepo = pg.NewPlanRepoCacheDecorator(planRepo, redisClient, cfg.Redis.TTL, logger)
		locker = red.NewLocker(redisClient)
		logger.Info().Dur("ttl", cfg.Redis.TTL).Msg("plan cache enabled")
	}

	// ---- Use cases ----
	planUC := usecase.NewPlanUseCase(planRepo, logger)
	subUC := usecase.NewSubscriptionUseCase(subRepo, logger)
	payUC := usecase.NewPaymentUseCase(payRepo, subRepo, planRepo, directory, txm,
		usecase.FeeSettings{ApplicationFee: cfg.Billing.ApplicationFee, Currency: cfg.Billing.Currency}, logger)
	entUC := usecase.NewEntitlementUseCase(subUC, payRepo, directory, usecase.EnforcementPolicy{
		JobPosts:     cfg.Entitlements.JobPostsEnforced(),
		Applications: cfg.Entitlements.ApplicationsEnforced(),
	}, logger)
	statsUC := usecase.NewStatsUseCase(payRepo, directory, cfg.Billing.Currency, logger)

	// ---- HTTP ----
	srv := apiv1.NewServer(apiv1.Deps{
		Plans:         planUC,
		Payments:      payUC,
		Subscriptions: subUC,
		Entitlements:  entUC,
		Stats:         statsUC,
		Auth:          apiv1.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		Logger:        logger,
	})
	server := api.NewHTTPServer(api.NewRouter(srv, pool, cfg.HTTP, logger), cfg.HTTP)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
			cancel()
		}
	}()

	// ---- Background workers ----
	if cfg.Scheduler.ExpirySweepInterval > 0 {
		worker := sched.NewExpiryWorker(cfg.Scheduler.ExpirySweepInterval, subUC, locker, logger)
		go func() { _ = worker.Run(ctx) }()
	}
	go sched.ReportPoolStats(ctx, cfg.Scheduler.PoolStatsInterval, sched.PgxPoolStats(pool))

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
		logger.Info().Msg("shutdown requested")
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, done := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer done()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}

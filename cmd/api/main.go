package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"

	"careline/internal/audit"
	"careline/internal/auth"
	"careline/internal/calls"
	"careline/internal/campaign"
	"careline/internal/config"
	"careline/internal/httpapi"
	"careline/internal/pastoral"
	"careline/internal/people"
	"careline/internal/pricing"
	"careline/internal/reconcile"
	"careline/internal/reporting"
	"careline/internal/script"
	"careline/internal/sms"
	"careline/internal/sweeper"
	"careline/internal/voice"
	"careline/pkg/logger"
	"careline/pkg/utils"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	voiceClient, err := voice.NewClient(cfg.Voice)
	if err != nil {
		log.Error("voice provider init failed", "err", err)
		os.Exit(1)
	}

	// SMS is optional; a nil notifier disables escalation pings.
	var notifier reconcile.Notifier
	if cfg.SMSEnabled() {
		smsClient, err := sms.NewClient(cfg.SMS)
		if err != nil {
			log.Error("sms provider init failed", "err", err)
			os.Exit(1)
		}
		notifier = smsClient
	}

	callStore := calls.NewSQLStore(db)
	auditSvc := audit.NewService(audit.NewSQLRecorder(db), log)
	pastoralSvc := pastoral.NewService(pastoral.NewSQLStore(db))
	estimator := pricing.NewEstimator(cfg.Voice.CostPerCallMinor)
	campaignStore := campaign.NewSQLStore(db)

	campaignSvc := campaign.NewService(campaign.ServiceDeps{
		Campaigns:      campaignStore,
		Scripts:        script.NewSQLStore(db),
		Resolver:       people.NewResolver(people.NewSQLDirectory(db)),
		CallStore:      callStore,
		Dialer:         voiceClient,
		Gate:           campaign.NewRedisGate(rdb, cfg.Dispatch.OrgConcurrency, time.Hour),
		Estimator:      estimator,
		Audit:          auditSvc,
		Logger:         log,
		InterCallDelay: cfg.Voice.InterCallDelay,
	})
	reconciler := reconcile.NewService(callStore, pastoralSvc, auditSvc, notifier, log)

	sweep := sweeper.New(callStore, cfg.Dispatch.AttemptTimeout, log)
	if err := sweep.Start(cfg.Dispatch.SweepInterval); err != nil {
		log.Error("sweeper init failed", "err", err)
		os.Exit(1)
	}
	defer sweep.Stop()

	router := httpapi.NewRouter(httpapi.RouterDeps{
		Logger:      log,
		AuthManager: authManager,
		Handlers: httpapi.NewHandlers(
			campaignSvc,
			reporting.NewService(campaignStore, callStore, estimator),
			pastoralSvc,
		),
		Reconciler:    reconciler,
		WebhookSecret: cfg.Voice.WebhookSecret,
		Health: func(ctx context.Context) error {
			return utils.HealthCheck(ctx, db, 2*time.Second)
		},
	})

	srv := httpapi.NewServer(cfg.HTTPAddr(), router)

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
}

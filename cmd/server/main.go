package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	httpadapter "bloodlink/internal/adapters/http"
	"bloodlink/internal/adapters/memory"
	pg "bloodlink/internal/adapters/postgres"
	"bloodlink/internal/config"
	"bloodlink/internal/logger"
	"bloodlink/internal/ports"
	"bloodlink/internal/recommend"
	"bloodlink/internal/services/auth"
	"bloodlink/internal/services/bloodbanks"
	"bloodlink/internal/services/dashboards"
	"bloodlink/internal/services/donations"
	"bloodlink/internal/services/donors"
	"bloodlink/internal/services/hospitals"
	"bloodlink/internal/services/requests"
	"bloodlink/internal/workers/recommendrunner"
)

func main() {
	cfg, cfgErr := config.Load()
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, "bloodlink")
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()
	if cfgErr != nil && !errors.Is(cfgErr, config.ErrNoDatabase) {
		log.Fatal("invalid configuration", zap.Error(cfgErr))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		store  ports.Store
		health func(context.Context) error
	)
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, using in-memory store; data is lost on exit")
		store = memory.New()
	} else {
		db, err := pg.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal("db connect error", zap.Error(err))
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			log.Fatal("migrations failed", zap.Error(err))
		}
		store, health = db, db.Ping
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis unavailable, rate limiting fails open", zap.Error(err))
		}
	}

	rec := recommend.New(recommend.ScriptProcedure{
		Interpreter: cfg.RecommendPython,
		Script:      cfg.RecommendScript,
		Timeout:     cfg.RecommendTimeout,
	}, store, log.Named("recommend"))
	processor := recommendrunner.RequestProcessor{Requests: store, Recommender: rec, Log: log}

	srv := httpadapter.New(httpadapter.Deps{
		Accounts:   auth.New(store, auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL), log),
		BloodBanks: bloodbanks.New(store, log),
		Donors:     donors.New(store, log),
		Donations:  donations.New(store, log, donations.Options{StrictTransitions: cfg.StrictTransitions}),
		Requests: requests.New(store, rec, processor, log, requests.Options{
			StrictTransitions: cfg.StrictTransitions,
			DefaultState:      cfg.DefaultState,
			DefaultMonths:     cfg.DefaultMonths,
		}),
		Hospitals:  hospitals.New(store),
		Dashboards: dashboards.New(store),
		Redis:      rdb,
		Health:     health,
	}, log.Named("http"), httpadapter.Options{
		CookieSecure:  cfg.CookieSecure,
		AuthRateLimit: cfg.AuthRateLimit,
		TrustProxy:    cfg.TrustProxy,
		InlineTimeout: cfg.RecommendTimeout + 5*time.Second,
	})
	r := chi.NewRouter()
	r.Mount("/", srv.Routes())

	workersDone := recommendrunner.Run(ctx, store, processor, cfg.RecommendWorkers, cfg.RecommendPoll, log.Named("recommendrunner"))
	if cfg.RecommendWorkers > 0 {
		log.Info("recommendation workers started", zap.Int("workers", cfg.RecommendWorkers))
	}

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()
	log.Info("listening", zap.String("addr", cfg.ListenAddr), zap.String("env", cfg.Env))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", zap.Error(err))
		}
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", zap.Error(err))
	}
	cancel()
	select {
	case <-workersDone:
	case <-shutdownCtx.Done():
		log.Warn("recommendation workers did not stop in time")
	}
}

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/park285/famhub/internal/calls"
	appcfg "github.com/park285/famhub/internal/config"
	"github.com/park285/famhub/internal/games"
	"github.com/park285/famhub/internal/httpapi"
	"github.com/park285/famhub/internal/obslog"
	"github.com/park285/famhub/internal/poll"
	"github.com/park285/famhub/internal/presence"
	"github.com/park285/famhub/internal/signaling"
	"github.com/park285/famhub/internal/store"
	"go.uber.org/zap"
)

func main() {
	if err := obslog.InitFromEnv("logs/famhub.log"); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.Named("main")
	defer func() { _ = obslog.L().Sync() }()

	cfg, err := appcfg.Load()
	if err != nil {
		logger.Fatal("config_error", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	rdb, err := games.OpenRedis(initCtx, cfg.RedisURL)
	if err != nil {
		cancel()
		logger.Fatal("redis_init_error", zap.Error(err))
	}
	db, err := store.Open(initCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		logger.Fatal("db_init_error", zap.Error(err))
	}

	tracker := presence.NewTracker(cfg.PresenceTimeout)
	dir := calls.NewDirectory(calls.Config{
		PendingTTL:       cfg.CallPendingTTL,
		DeclineGrace:     cfg.CallDeclineGrace,
		NotifySuperseded: cfg.CallNotifySuperseded,
		GlareTiebreak:    cfg.CallGlareTiebreak,
	}, calls.WithOnline(tracker.IsOnline))
	sig := signaling.NewService(dir, tracker, db)
	coord := games.NewCoordinator(games.NewStore(rdb, cfg.GameStateTTL),
		games.WithResults(db),
		games.WithRoster(db),
		games.WithReward(cfg.GameWinReward),
	)

	sweepers := []*poll.Task{
		poll.Start(ctx, poll.Options{Interval: cfg.PresenceSweepInterval}, func(context.Context) bool {
			tracker.Sweep()
			return false
		}),
		poll.Start(ctx, poll.Options{Interval: cfg.CallSweepInterval}, func(context.Context) bool {
			if res := dir.Sweep(); res.Total() > 0 {
				logger.Info("call_sweep",
					zap.Int("expired_pending", res.ExpiredPending),
					zap.Int("dropped_accepted", res.DroppedAccepted),
					zap.Int("expired_outcomes", res.ExpiredOutcomes),
				)
			}
			return false
		}),
	}

	handler := httpapi.NewHandler(sig, coord, db,
		httpapi.Check{Name: "redis", Fn: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
		httpapi.Check{Name: "db", Fn: db.Ping},
	)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.NewRouter(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("http_listen", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_serve_error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http_shutdown_error", zap.Error(err))
	}
	for _, t := range sweepers {
		t.Stop()
	}
	_ = rdb.Close()
	_ = db.Close()
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/boss-battle-client/internal/badges"
	"github.com/DoyleJ11/boss-battle-client/internal/battle"
	"github.com/DoyleJ11/boss-battle-client/internal/config"
	"github.com/DoyleJ11/boss-battle-client/internal/effects"
	"github.com/DoyleJ11/boss-battle-client/internal/engine"
	"github.com/DoyleJ11/boss-battle-client/internal/httpapi"
	"github.com/DoyleJ11/boss-battle-client/internal/hub"
	"github.com/DoyleJ11/boss-battle-client/internal/joincode"
	"github.com/DoyleJ11/boss-battle-client/internal/logging"
	"github.com/DoyleJ11/boss-battle-client/internal/metrics"
	"github.com/DoyleJ11/boss-battle-client/internal/prefs"
	"github.com/DoyleJ11/boss-battle-client/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config", zap.Error(err))
	}
	log, err := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		zap.NewExample().Fatal("logger", zap.Error(err))
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("exited", zap.Error(err))
		os.Exit(1)
	}
	log.Info("bye")
}

func run(parent context.Context, cfg config.Config, log *zap.Logger) (err error) {
	// Reaching the podium ends the process.
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	store, err := prefs.Open(cfg.PrefsDSN, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, store.Close()) }()
	ids := prefs.NewIdentities(store, cfg.IdentityTTL)

	sess, err := joincode.NewResolver(cfg.APIBaseURL, &http.Client{Timeout: 10 * time.Second}).Resolve(ctx, cfg.JoinCode)
	if err != nil {
		return err
	}
	log = log.With(zap.String("session_key", sess.SessionKey), zap.String("boss_id", sess.BossID))

	mount := engine.Mount{
		SessionKey: sess.SessionKey,
		BossID:     sess.BossID,
		JoinCode:   cfg.JoinCode,
		UserID:     cfg.PlayerID,
		PlayerName: cfg.PlayerName,
	}
	if prev, err := ids.Load(ctx, sess.SessionKey, cfg.PlayerID); err == nil {
		mount.LastKnownPlayerID = prev.PlayerID
		log.Info("rejoining", zap.String("player_id", prev.PlayerID))
	} else if !errors.Is(err, prefs.ErrNotFound) {
		log.Warn("identity lookup failed", zap.Error(err))
	}

	ch := ws.Dial(ctx, ws.Options{URL: cfg.ServerURL, MaxInterval: cfg.ReconnectMaxInterval, Logger: log})
	defer func() { err = multierr.Append(err, ch.Close()) }()

	m := metrics.New()
	h := hub.NewHub(ctx)

	_, err = h.Mount(ctx, sess.SessionKey, func(ctx context.Context) *battle.Battle {
		sink := effects.LogSink{Log: log.Named("sink"), OnNavigate: func(string) { cancel() }}
		return battle.New(ctx, battle.Options{
			Mount:     mount,
			Rules:     cfg.Rules(),
			Transport: ch,
			Scope:     ws.NewScope(ch),
			Sequencer: effects.NewSequencer(sink, effects.Options{
				FlashDuration: cfg.FlashDuration,
				NumberTTL:     cfg.DamageNumberTTL,
				Logger:        log,
			}),
			Badges:     badges.NewQueue(cfg.BadgeTTL),
			Identities: ids,
			Metrics:    m,
			Logger:     log,
		})
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.StatusAddr,
		Handler:           httpapi.SetupRoutes(h, m, log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("status server listening", zap.String("addr", cfg.StatusAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return multierr.Combine(srv.Shutdown(shutCtx), h.Shutdown(shutCtx))
	})
	return g.Wait()
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/Presence/internal/adapters/http"
	"github.com/dkeye/Presence/internal/adapters/presence"
	"github.com/dkeye/Presence/internal/app"
	"github.com/dkeye/Presence/internal/auth"
	"github.com/dkeye/Presence/internal/config"
	"github.com/dkeye/Presence/internal/core"
	"github.com/dkeye/Presence/internal/storage"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
	}

	gate := app.NewAccessGate(cfg.EnforceLAN, cfg.Subnets())
	authenticator := auth.NewTokenAuthenticator(cfg.Secret)
	registry := core.NewRegistry()

	var sink core.AuditSink
	audit, err := storage.Open(cfg.AuditPath)
	if err != nil {
		log.Error().Err(err).Msg("audit log unavailable, continuing without it")
	} else {
		sink = audit
		defer func() {
			if err := audit.Close(); err != nil {
				log.Error().Err(err).Msg("audit log close")
			}
		}()
	}

	hub := app.NewHub(registry, gate, authenticator, app.SimplePolicy{}, sink, nil)

	monitor := app.NewHeartbeatMonitor(hub, registry, nil, cfg.HeartbeatInterval, cfg.IdleTimeout)
	go func() {
		if err := monitor.Run(ctx); err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("heartbeat monitor stopped")
		}
	}()

	limiter := presence.NewConnRateLimiter(cfg.ConnRateLimit, cfg.ConnRateWindow)
	ctl := presence.NewController(hub, limiter, cfg.ReadLimit)

	r := router.SetupRouter(ctx, cfg, hub, ctl, gate, authenticator, audit)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Presence server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	hub.Shutdown()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}

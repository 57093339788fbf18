package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	stdhttp "net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/relaychat/internal/config"
	"github.com/vovakirdan/relaychat/internal/core"
	"github.com/vovakirdan/relaychat/internal/metrics"
	"github.com/vovakirdan/relaychat/internal/responder"
	"github.com/vovakirdan/relaychat/internal/store"
	"github.com/vovakirdan/relaychat/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/relaychat/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	// Initialize database store
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	count, err := st.CountMessages(ctx)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("count messages: %w", err)
	}
	logger.Info().Str("db_path", cfg.DatabasePath).Int64("messages", count).Msg("database initialized")

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// A nil responder makes /bot answer with the fallback text.
	var bot core.Responder
	if cfg.Bot.Endpoint != "" {
		bot = responder.New(cfg.Bot.Endpoint, responder.WithTimeout(cfg.Bot.Timeout))
	} else {
		logger.Warn().Msg("bot endpoint not configured, /bot will answer with the fallback text")
	}

	hub := core.NewHub(st, bot, core.Options{
		DefaultUsername:   cfg.DefaultUsername,
		SystemName:        cfg.SystemName,
		HistoryLimit:      cfg.HistoryLimit,
		BotTrigger:        cfg.Bot.Trigger,
		BotName:           cfg.Bot.Name,
		BotFallbackText:   cfg.Bot.FallbackText,
		BotUsageText:      cfg.Bot.UsageText,
		BotMaxTypingDelay: cfg.Bot.MaxTypingDelay,
	}, logger, m)
	server := transporthttp.NewServer(hub, st, reg, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		store:           st,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	// Live sockets inherit gctx and close when the app stops.
	a.server.BaseContext = func(net.Listener) context.Context { return gctx }

	g.Go(func() error {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return a.shutdown()
	})

	return g.Wait()
}

// shutdown stops accepting connections, waits for sessions and pending bot
// replies within the shutdown timeout, then closes the store.
func (a *App) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	a.log.Info().Msg("shutting down http server")
	var errs []error
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
	}

	if err := a.hub.Wait(shutdownCtx); err != nil {
		a.log.Warn().Err(err).Msg("gave up waiting for sessions and bot replies")
	}

	if err := a.cleanup(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// cleanup closes database and other resources.
func (a *App) cleanup() error {
	if a.store == nil {
		return nil
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close store")
		return fmt.Errorf("close store: %w", err)
	}
	a.log.Info().Msg("store closed")
	return nil
}

package app

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/tradejournal/internal/ingest"
	"github.com/alanyoungcy/tradejournal/internal/pipeline"
	"github.com/alanyoungcy/tradejournal/internal/server"
	"github.com/alanyoungcy/tradejournal/internal/server/handler"
	"github.com/alanyoungcy/tradejournal/internal/server/ws"
	"github.com/alanyoungcy/tradejournal/internal/service"
	"github.com/alanyoungcy/tradejournal/internal/stats"
)

// ServerMode serves the HTTP API and the WebSocket hub until ctx is cancelled.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode", slog.String("component", "app"))

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps)
	return g.Wait()
}

// BackupMode runs one backup of every user and returns.
func (a *App) BackupMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting backup mode", slog.String("component", "app"))

	if deps.Archiver == nil {
		return fmt.Errorf("backup mode: object storage is not configured")
	}
	backup := pipeline.NewBackup(deps.UserStore, deps.Archiver, deps.Notifier, a.logger)
	report, err := backup.Run(ctx)
	a.logger.InfoContext(ctx, "backup finished",
		slog.String("component", "app"),
		slog.Int64("users", report.Users),
		slog.Int64("trades", report.Trades),
		slog.Int64("entries", report.Entries),
		slog.Int("failed", len(report.Failed)),
	)
	if err != nil {
		return fmt.Errorf("backup mode: %w", err)
	}
	return nil
}

// FullMode serves the API and runs scheduled backups side by side.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode", slog.String("component", "app"))

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps)

	if deps.Archiver != nil {
		backup := pipeline.NewBackup(deps.UserStore, deps.Archiver, deps.Notifier, a.logger)
		g.Go(func() error {
			return backup.RunCron(ctx, a.cfg.Backup.Cron)
		})
	} else {
		a.logger.WarnContext(ctx, "full mode: backups disabled (no object storage)", slog.String("component", "app"))
	}

	return g.Wait()
}

// startHTTPServer builds the services and handlers, then runs the HTTP server
// and the WebSocket hub under g. The server shuts down gracefully when ctx is
// cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	cfg := a.cfg

	parser := ingest.NewParser(ingest.Options{
		Location: cfg.Location(),
		MaxRows:  cfg.Import.MaxRows,
	})
	agg := stats.NewAggregator(stats.WithLocation(cfg.Location()))

	authSvc := service.NewAuthService(
		deps.UserStore, deps.Issuer, deps.TokenRevoker, deps.RateLimiter,
		deps.AuditStore, deps.Notifier,
		service.AuthConfig{
			BcryptCost:  cfg.Auth.BcryptCost,
			LoginLimit:  cfg.Auth.LoginLimit,
			LoginWindow: cfg.Auth.LoginWindow.Duration,
		},
		a.logger,
	)
	accountSvc := service.NewAccountService(deps.AccountStore, deps.SignalBus, deps.AuditStore, deps.StatsCache, a.logger)
	tradeSvc := service.NewTradeService(deps.TradeStore, deps.AccountStore, deps.SignalBus, deps.AuditStore, deps.StatsCache, a.logger)
	importSvc := service.NewImportService(service.ImportDeps{
		Accounts: deps.AccountStore,
		Trades:   deps.TradeStore,
		Locks:    deps.LockManager,
		Parser:   parser,
		Blobs:    deps.BlobWriter,
		Archive:  deps.BlobReader,
		Bus:      deps.SignalBus,
		Audit:    deps.AuditStore,
		Cache:    deps.StatsCache,
		Notifier: deps.Notifier,
	}, service.ImportConfig{
		MaxBytes: cfg.Import.MaxBytes,
		LockTTL:  cfg.Import.LockTTL.Duration,
		Archive:  cfg.Import.Archive,
	}, a.logger)
	statsSvc := service.NewStatsService(deps.TradeStore, deps.AccountStore, deps.StatsCache, agg, a.logger)
	journalSvc := service.NewJournalService(deps.JournalStore, deps.TradeStore, deps.AuditStore, a.logger)

	checks := make(map[string]handler.Check, len(deps.Checks))
	for name, fn := range deps.Checks {
		checks[name] = fn
	}

	hub := ws.NewHub(deps.SignalBus, cfg.Server.CORSOrigins, a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	srv := server.NewServer(
		server.Config{
			Port:        cfg.Server.Port,
			CORSOrigins: cfg.Server.CORSOrigins,
			RateLimit:   cfg.Server.RateLimit,
			RateWindow:  cfg.Server.RateWindow.Duration,
		},
		server.Handlers{
			Health:   handler.NewHealthHandler(checks, a.logger),
			Auth:     handler.NewAuthHandler(authSvc, cfg.Auth.CookieSecure, a.logger),
			Accounts: handler.NewAccountHandler(accountSvc, a.logger),
			Trades:   handler.NewTradeHandler(tradeSvc, a.logger),
			Imports:  handler.NewImportHandler(importSvc, cfg.Import.MaxBytes, a.logger),
			Stats:    handler.NewStatsHandler(statsSvc, a.logger),
			Journal:  handler.NewJournalHandler(journalSvc, a.logger),
		},
		server.Deps{
			Authn:   authSvc,
			Limiter: deps.RateLimiter,
			Hub:     hub,
		},
		a.logger,
	)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout.Duration)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

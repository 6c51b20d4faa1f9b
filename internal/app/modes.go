package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/chainbets/chainbet/internal/domain"
	"github.com/chainbets/chainbet/internal/server"
	"github.com/chainbets/chainbet/internal/server/handler"
	"github.com/chainbets/chainbet/internal/server/ws"
	"github.com/chainbets/chainbet/internal/service"
)

// buildServices constructs the reconcile, market, and bet services, attaching
// whichever optional collaborators the wiring produced.
func (a *App) buildServices(deps *Dependencies) (*service.ReconcileService, *service.MarketService, *service.BetService) {
	rec := service.NewReconcileService(deps.QuestionReader, deps.MarketStore, a.logger)
	if deps.LockManager != nil {
		rec.WithLockManager(deps.LockManager)
	}
	if deps.SignalBus != nil {
		rec.WithSignalBus(deps.SignalBus)
	}
	if deps.MarketCache != nil {
		rec.WithMarketCache(deps.MarketCache)
	}
	if deps.SnapshotArchiver != nil {
		rec.WithSnapshotArchiver(deps.SnapshotArchiver)
	}
	if deps.Notifier != nil {
		rec.WithNotifier(deps.Notifier)
	}

	markets := service.NewMarketService(deps.MarketStore, a.logger)
	if deps.MarketCache != nil {
		markets.WithMarketCache(deps.MarketCache)
	}
	if deps.SignalBus != nil {
		markets.WithSignalBus(deps.SignalBus)
	}
	if a.cfg.Reconcile.OnCreate {
		markets.WithReconciler(rec)
	}

	bets := service.NewBetService(deps.BetStore, deps.MarketStore, a.logger)
	if deps.MarketCache != nil {
		bets.WithMarketCache(deps.MarketCache)
	}
	if deps.SignalBus != nil {
		bets.WithSignalBus(deps.SignalBus)
	}

	return rec, markets, bets
}

// ReconcileMode runs a single reconciliation pass and exits. Intended for
// cron-style operation and manual runs.
func (a *App) ReconcileMode(ctx context.Context, deps *Dependencies) error {
	rec, _, _ := a.buildServices(deps)

	out, err := rec.ReconcileNext(ctx)
	if err != nil {
		return fmt.Errorf("app: reconcile: %w", err)
	}

	a.logger.InfoContext(ctx, "reconciliation pass complete",
		slog.String("status", string(out.Status)),
		slog.String("id", out.Identity),
		slog.Bool("written", out.Written),
	)
	return nil
}

// ServerMode serves the HTTP API; reconciliation runs only on demand (market
// creation and POST /api/reconcile).
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	rec, markets, bets := a.buildServices(deps)

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps, rec, markets, bets)
	return g.Wait()
}

// FullMode serves the HTTP API and runs the periodic reconcile loop.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	rec, markets, bets := a.buildServices(deps)

	g, ctx := errgroup.WithContext(ctx)
	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, rec, markets, bets)
	}
	g.Go(func() error {
		return a.runReconcileLoop(ctx, rec)
	})
	return g.Wait()
}

// runReconcileLoop runs a reconciliation pass every configured interval until
// the context is cancelled. Pass failures are logged and retried on the next
// tick; a chain outage must not bring the process down.
func (a *App) runReconcileLoop(ctx context.Context, rec *service.ReconcileService) error {
	interval := a.cfg.Reconcile.Interval.Duration
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	a.logger.InfoContext(ctx, "reconcile loop started",
		slog.Duration("interval", interval),
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			out, err := rec.ReconcileNext(ctx)
			if err != nil {
				if errors.Is(err, domain.ErrLockHeld) {
					a.logger.DebugContext(ctx, "reconcile pass skipped, lock held elsewhere")
					continue
				}
				a.logger.ErrorContext(ctx, "reconcile pass failed",
					slog.String("error", err.Error()),
				)
				continue
			}
			if out.Written {
				a.logger.InfoContext(ctx, "reconcile pass wrote",
					slog.String("status", string(out.Status)),
					slog.String("id", out.Identity),
				)
			}
		}
	}
}

// startHTTPServer adds the HTTP server (and the WebSocket hub when the signal
// bus is available) to the given errgroup. The server shuts down gracefully
// when the context is cancelled.
func (a *App) startHTTPServer(
	ctx context.Context,
	g *errgroup.Group,
	deps *Dependencies,
	rec *service.ReconcileService,
	markets *service.MarketService,
	bets *service.BetService,
) {
	handlers := server.Handlers{
		Health:    handler.NewHealthHandler(a.logger),
		Markets:   handler.NewMarketHandler(markets, a.logger),
		Bets:      handler.NewBetHandler(bets, a.logger),
		Reconcile: handler.NewReconcileHandler(rec, a.logger),
	}

	var hub *ws.Hub
	if deps.SignalBus != nil {
		hub = ws.NewHub(deps.SignalBus, a.logger, a.cfg.Mode)
		g.Go(func() error {
			return hub.Run(ctx)
		})
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
		RateLimit:   a.cfg.Server.RateLimit,
		RateWindow:  a.cfg.Server.RateWindow.Duration,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/chainbets/chainbet/internal/domain"
	"github.com/chainbets/chainbet/internal/fingerprint"
	"github.com/chainbets/chainbet/internal/notify"
)

// Signal-bus channels published by the services and relayed by the WebSocket
// hub.
const (
	ChannelMarkets   = "markets"
	ChannelBets      = "bets"
	ChannelReconcile = "reconcile"
)

const (
	reconcileLockKey = "reconcile"
	reconcileLockTTL = 30 * time.Second
)

// ReconcileService matches locally created markets against the on-chain
// question list. One pass handles at most one pending market: it fingerprints
// the market's title, scans the chain snapshot for the same fingerprint, and
// either adopts the chain-assigned identity (verifying the market for good)
// or parks the market on a speculative identity one past the end of the
// snapshot.
//
// A pass performs at most one local write, so an aborted pass never leaves a
// partially reconciled row; re-running it is always safe.
type ReconcileService struct {
	chain   domain.QuestionReader
	markets domain.MarketStore
	logger  *slog.Logger

	// mu serializes passes within this process. Two overlapping passes
	// would race on selecting and rewriting the same pending row.
	mu sync.Mutex

	// Optional collaborators.
	locks    domain.LockManager
	bus      domain.SignalBus
	cache    domain.MarketCache
	archiver domain.SnapshotArchiver
	notifier *notify.Notifier
}

// NewReconcileService creates a ReconcileService with its required
// dependencies. Optional collaborators are attached with the With* methods.
func NewReconcileService(
	chain domain.QuestionReader,
	markets domain.MarketStore,
	logger *slog.Logger,
) *ReconcileService {
	return &ReconcileService{
		chain:   chain,
		markets: markets,
		logger:  logger.With(slog.String("component", "reconciler")),
	}
}

// WithLockManager adds a distributed lock, serializing passes across every
// process sharing the lock backend. Without it, only in-process passes are
// serialized.
func (s *ReconcileService) WithLockManager(locks domain.LockManager) *ReconcileService {
	s.locks = locks
	return s
}

// WithSignalBus publishes a reconcile event after every pass that writes.
func (s *ReconcileService) WithSignalBus(bus domain.SignalBus) *ReconcileService {
	s.bus = bus
	return s
}

// WithMarketCache invalidates cached entries touched by identity rewrites.
func (s *ReconcileService) WithMarketCache(cache domain.MarketCache) *ReconcileService {
	s.cache = cache
	return s
}

// WithSnapshotArchiver archives every fetched snapshot, best effort.
func (s *ReconcileService) WithSnapshotArchiver(archiver domain.SnapshotArchiver) *ReconcileService {
	s.archiver = archiver
	return s
}

// WithNotifier sends operator notifications on market verification.
func (s *ReconcileService) WithNotifier(n *notify.Notifier) *ReconcileService {
	s.notifier = n
	return s
}

// ReconcileNext runs a single reconciliation pass.
//
// Chain fetch failures abort the pass before any local read or write and
// wrap domain.ErrChainUnavailable. Local store failures abort the pass with
// the pending market unchanged (or, for a failed write, unwritten); the next
// pass re-evaluates it from scratch.
func (s *ReconcileService) ReconcileNext(ctx context.Context) (domain.ReconcileOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.locks != nil {
		unlock, err := s.locks.Acquire(ctx, reconcileLockKey, reconcileLockTTL)
		if err != nil {
			return domain.ReconcileOutcome{}, fmt.Errorf("reconcile: acquire lock: %w", err)
		}
		defer unlock()
	}

	questions, err := s.chain.FetchQuestions(ctx)
	if err != nil {
		return domain.ReconcileOutcome{}, fmt.Errorf("reconcile: fetch questions: %w: %w",
			domain.ErrChainUnavailable, err)
	}

	if s.archiver != nil {
		if aerr := s.archiver.Archive(ctx, time.Now().UTC(), questions); aerr != nil {
			// Archiving is audit-only; a failed upload never blocks
			// reconciliation.
			s.logger.WarnContext(ctx, "snapshot archive failed",
				slog.String("error", aerr.Error()),
			)
		}
	}

	m, err := s.markets.FirstUnverified(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ReconcileOutcome{Status: domain.ReconcileNoPending}, nil
	}
	if err != nil {
		return domain.ReconcileOutcome{}, fmt.Errorf("reconcile: select pending market: %w", err)
	}

	fp := fingerprint.Title(m.Title)

	// First fingerprint match in snapshot order wins. Duplicate
	// fingerprints cannot occur for content-addressed questions; if the
	// contract ever returns them anyway, the earliest entry is taken.
	for _, q := range questions {
		if q.Fingerprint != nil && q.Fingerprint.Cmp(fp) == 0 {
			return s.verify(ctx, m, q)
		}
	}

	return s.renumber(ctx, m, suggestIdentity(questions))
}

// verify adopts the matched question's identity and field values in a single
// row-handle-keyed update and marks the market verified.
func (s *ReconcileService) verify(ctx context.Context, m domain.Market, q domain.ChainQuestion) (domain.ReconcileOutcome, error) {
	if err := s.markets.ResolveIdentity(ctx, m.RowID, q); err != nil {
		return domain.ReconcileOutcome{}, fmt.Errorf("reconcile: resolve market row %d: %w", m.RowID, err)
	}

	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, m.Identity)
		_ = s.cache.Invalidate(ctx, q.Identity)
	}

	s.logger.InfoContext(ctx, "market verified against chain",
		slog.String("title", m.Title),
		slog.String("old_id", m.Identity),
		slog.String("chain_id", q.Identity),
	)

	s.publish(ctx, reconcileEvent{
		Type:     "market_verified",
		MarketID: q.Identity,
		OldID:    m.Identity,
		Title:    m.Title,
	})

	if s.notifier != nil {
		msg := fmt.Sprintf("%q is now question #%s on-chain (was #%s)", m.Title, q.Identity, m.Identity)
		if nerr := s.notifier.Notify(ctx, notify.EventMarketVerified, "Market verified", msg); nerr != nil {
			s.logger.WarnContext(ctx, "verification notification failed",
				slog.String("error", nerr.Error()),
			)
		}
	}

	return domain.ReconcileOutcome{
		Status:   domain.ReconcileVerified,
		Identity: q.Identity,
		Written:  true,
	}, nil
}

// renumber parks the pending market on the suggested identity, writing only
// when it differs from the current one. Repeated passes against an unchanged
// snapshot therefore settle into a no-op.
func (s *ReconcileService) renumber(ctx context.Context, m domain.Market, suggested string) (domain.ReconcileOutcome, error) {
	if suggested == m.Identity {
		return domain.ReconcileOutcome{
			Status:   domain.ReconcileUnmatched,
			Identity: suggested,
			Written:  false,
		}, nil
	}

	if err := s.markets.RenumberIdentity(ctx, m.RowID, suggested); err != nil {
		return domain.ReconcileOutcome{}, fmt.Errorf("reconcile: renumber market row %d: %w", m.RowID, err)
	}

	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, m.Identity)
	}

	s.logger.DebugContext(ctx, "pending market renumbered",
		slog.String("title", m.Title),
		slog.String("old_id", m.Identity),
		slog.String("new_id", suggested),
	)

	s.publish(ctx, reconcileEvent{
		Type:     "market_renumbered",
		MarketID: suggested,
		OldID:    m.Identity,
		Title:    m.Title,
	})

	return domain.ReconcileOutcome{
		Status:   domain.ReconcileUnmatched,
		Identity: suggested,
		Written:  true,
	}, nil
}

// suggestIdentity is one past the last snapshot entry's numeric identity, or
// "1" for an empty snapshot. The snapshot is trusted to arrive in ascending
// identity order; a non-numeric trailing identity counts as 0.
func suggestIdentity(questions []domain.ChainQuestion) string {
	if len(questions) == 0 {
		return "1"
	}
	last, _ := strconv.ParseInt(questions[len(questions)-1].Identity, 10, 64)
	return strconv.FormatInt(last+1, 10)
}

// reconcileEvent is the JSON payload published on the reconcile channel.
type reconcileEvent struct {
	Type     string `json:"type"`
	MarketID string `json:"market_id"`
	OldID    string `json:"old_id"`
	Title    string `json:"title"`
}

func (s *ReconcileService) publish(ctx context.Context, ev reconcileEvent) {
	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, ChannelReconcile, payload); err != nil {
		s.logger.WarnContext(ctx, "reconcile event publish failed",
			slog.String("type", ev.Type),
			slog.String("error", err.Error()),
		)
	}
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/chainbets/chainbet/internal/domain"
)

// CreateMarketInput carries the caller-supplied fields for a new market.
// Identity is optional; when empty the service allocates a provisional one.
type CreateMarketInput struct {
	Identity    string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ExpiresAt   time.Time `json:"expires_at"`
	Creator     string    `json:"creator"`
}

// MarketService serves market reads and creations. Reads go through the cache
// when one is attached; creations trigger a reconciliation pass first so the
// provisional identity is allocated against a fresh view of the chain.
type MarketService struct {
	markets    domain.MarketStore
	logger     *slog.Logger
	cache      domain.MarketCache
	bus        domain.SignalBus
	reconciler *ReconcileService
}

// NewMarketService creates a MarketService backed by the given store.
func NewMarketService(markets domain.MarketStore, logger *slog.Logger) *MarketService {
	return &MarketService{
		markets: markets,
		logger:  logger.With(slog.String("component", "markets")),
	}
}

// WithMarketCache enables cache-first reads for GetMarket.
func (s *MarketService) WithMarketCache(cache domain.MarketCache) *MarketService {
	s.cache = cache
	return s
}

// WithSignalBus publishes a market event after every creation.
func (s *MarketService) WithSignalBus(bus domain.SignalBus) *MarketService {
	s.bus = bus
	return s
}

// WithReconciler runs one reconciliation pass before each identity
// allocation, so speculative identities are assigned against the latest
// chain snapshot.
func (s *MarketService) WithReconciler(r *ReconcileService) *MarketService {
	s.reconciler = r
	return s
}

// CreateMarket validates the input, allocates a provisional identity when the
// caller did not supply one, and persists the market unverified. The
// reconciler picks it up on its next pass.
func (s *MarketService) CreateMarket(ctx context.Context, in CreateMarketInput) (domain.Market, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return domain.Market{}, fmt.Errorf("markets: %w: title is required", domain.ErrInvalidMarket)
	}
	if !in.ExpiresAt.IsZero() && in.ExpiresAt.Before(time.Now()) {
		return domain.Market{}, fmt.Errorf("markets: %w: expiry is in the past", domain.ErrInvalidMarket)
	}

	if s.reconciler != nil {
		if _, err := s.reconciler.ReconcileNext(ctx); err != nil {
			return domain.Market{}, fmt.Errorf("markets: pre-create reconcile: %w", err)
		}
	}

	identity := strings.TrimSpace(in.Identity)
	if identity == "" {
		var err error
		identity, err = s.nextIdentity(ctx)
		if err != nil {
			return domain.Market{}, err
		}
	}

	m := domain.Market{
		Identity:    identity,
		Title:       in.Title,
		Description: in.Description,
		ExpiresAt:   in.ExpiresAt,
		Creator:     in.Creator,
	}

	created, err := s.markets.Create(ctx, m)
	if err != nil {
		return domain.Market{}, fmt.Errorf("markets: create: %w", err)
	}

	s.logger.InfoContext(ctx, "market created",
		slog.String("id", created.Identity),
		slog.String("title", created.Title),
	)
	s.publishMarketEvent(ctx, "market_created", created)

	return created, nil
}

// nextIdentity allocates one past the largest numeric identity already
// persisted. That can never collide with an existing row, including an
// unverified one parked on a speculative identity.
func (s *MarketService) nextIdentity(ctx context.Context) (string, error) {
	max, err := s.markets.MaxNumericIdentity(ctx)
	if err != nil {
		return "", fmt.Errorf("markets: allocate identity: %w", err)
	}
	return strconv.FormatInt(max+1, 10), nil
}

// GetMarket returns the market with the given identity, cache-first.
func (s *MarketService) GetMarket(ctx context.Context, identity string) (domain.Market, error) {
	if s.cache != nil {
		if m, err := s.cache.Get(ctx, identity); err == nil {
			return m, nil
		} else if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "market cache read failed",
				slog.String("id", identity),
				slog.String("error", err.Error()),
			)
		}
	}

	m, err := s.markets.GetByIdentity(ctx, identity)
	if err != nil {
		return domain.Market{}, fmt.Errorf("markets: get %q: %w", identity, err)
	}

	// Only verified markets are cached; unverified identities are about to
	// be rewritten and would go stale immediately.
	if s.cache != nil && m.Verified {
		if cerr := s.cache.Set(ctx, m); cerr != nil {
			s.logger.WarnContext(ctx, "market cache write failed",
				slog.String("id", identity),
				slog.String("error", cerr.Error()),
			)
		}
	}

	return m, nil
}

// ListMarkets returns markets in insertion order.
func (s *MarketService) ListMarkets(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	markets, err := s.markets.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("markets: list: %w", err)
	}
	return markets, nil
}

// CountMarkets returns the total number of markets.
func (s *MarketService) CountMarkets(ctx context.Context) (int64, error) {
	n, err := s.markets.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("markets: count: %w", err)
	}
	return n, nil
}

func (s *MarketService) publishMarketEvent(ctx context.Context, eventType string, m domain.Market) {
	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(struct {
		Type   string        `json:"type"`
		Market domain.Market `json:"market"`
	}{Type: eventType, Market: m})
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, ChannelMarkets, payload); err != nil {
		s.logger.WarnContext(ctx, "market event publish failed",
			slog.String("type", eventType),
			slog.String("error", err.Error()),
		)
	}
}

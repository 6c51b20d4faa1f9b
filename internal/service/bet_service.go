package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chainbets/chainbet/internal/domain"
)

// PlaceBetInput carries the caller-supplied fields for a new bet.
type PlaceBetInput struct {
	MarketID string            `json:"market_id"`
	Bettor   string            `json:"bettor"`
	Outcome  domain.BetOutcome `json:"outcome"`
	Amount   int64             `json:"amount"`
}

// BetService places and lists bets against local markets.
type BetService struct {
	bets    domain.BetStore
	markets domain.MarketStore
	logger  *slog.Logger
	cache   domain.MarketCache
	bus     domain.SignalBus
}

// NewBetService creates a BetService backed by the given stores.
func NewBetService(bets domain.BetStore, markets domain.MarketStore, logger *slog.Logger) *BetService {
	return &BetService{
		bets:    bets,
		markets: markets,
		logger:  logger.With(slog.String("component", "bets")),
	}
}

// WithMarketCache invalidates the market's cached entry after a bet changes
// its total staked amount.
func (s *BetService) WithMarketCache(cache domain.MarketCache) *BetService {
	s.cache = cache
	return s
}

// WithSignalBus publishes a bet event after every placement.
func (s *BetService) WithSignalBus(bus domain.SignalBus) *BetService {
	s.bus = bus
	return s
}

// PlaceBet validates the input, resolves the market, and records the bet.
// The bet is keyed to the market's internal row handle so a later identity
// rewrite cannot orphan it.
func (s *BetService) PlaceBet(ctx context.Context, in PlaceBetInput) (domain.Bet, error) {
	if err := validateBetInput(in); err != nil {
		return domain.Bet{}, err
	}

	m, err := s.markets.GetByIdentity(ctx, in.MarketID)
	if err != nil {
		return domain.Bet{}, fmt.Errorf("bets: resolve market %q: %w", in.MarketID, err)
	}
	if !m.ExpiresAt.IsZero() && m.ExpiresAt.Before(time.Now()) {
		return domain.Bet{}, fmt.Errorf("bets: %w: market %q has expired", domain.ErrInvalidBet, in.MarketID)
	}

	b := domain.Bet{
		ID:          uuid.NewString(),
		MarketRowID: m.RowID,
		MarketID:    m.Identity,
		Bettor:      strings.TrimSpace(in.Bettor),
		Outcome:     in.Outcome,
		Amount:      in.Amount,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.bets.Place(ctx, b); err != nil {
		return domain.Bet{}, fmt.Errorf("bets: place: %w", err)
	}

	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, m.Identity)
	}

	s.logger.InfoContext(ctx, "bet placed",
		slog.String("bet_id", b.ID),
		slog.String("market_id", b.MarketID),
		slog.String("outcome", string(b.Outcome)),
		slog.Int64("amount", b.Amount),
	)
	s.publishBetEvent(ctx, b)

	return b, nil
}

// ListBetsByBettor returns a bettor's bets, newest first.
func (s *BetService) ListBetsByBettor(ctx context.Context, bettor string, opts domain.ListOpts) ([]domain.Bet, error) {
	bets, err := s.bets.ListByBettor(ctx, bettor, opts)
	if err != nil {
		return nil, fmt.Errorf("bets: list by bettor %q: %w", bettor, err)
	}
	return bets, nil
}

// ListBetsByMarket returns a market's bets, newest first. The market is
// looked up by its current identity.
func (s *BetService) ListBetsByMarket(ctx context.Context, marketIdentity string, opts domain.ListOpts) ([]domain.Bet, error) {
	m, err := s.markets.GetByIdentity(ctx, marketIdentity)
	if err != nil {
		return nil, fmt.Errorf("bets: resolve market %q: %w", marketIdentity, err)
	}
	bets, err := s.bets.ListByMarket(ctx, m.RowID, opts)
	if err != nil {
		return nil, fmt.Errorf("bets: list by market %q: %w", marketIdentity, err)
	}
	return bets, nil
}

func validateBetInput(in PlaceBetInput) error {
	if strings.TrimSpace(in.MarketID) == "" {
		return fmt.Errorf("bets: %w: market id is required", domain.ErrInvalidBet)
	}
	if strings.TrimSpace(in.Bettor) == "" {
		return fmt.Errorf("bets: %w: bettor is required", domain.ErrInvalidBet)
	}
	if in.Outcome != domain.BetOutcomeYes && in.Outcome != domain.BetOutcomeNo {
		return fmt.Errorf("bets: %w: outcome must be %q or %q",
			domain.ErrInvalidBet, domain.BetOutcomeYes, domain.BetOutcomeNo)
	}
	if in.Amount <= 0 {
		return fmt.Errorf("bets: %w: amount must be positive", domain.ErrInvalidBet)
	}
	return nil
}

func (s *BetService) publishBetEvent(ctx context.Context, b domain.Bet) {
	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(struct {
		Type string     `json:"type"`
		Bet  domain.Bet `json:"bet"`
	}{Type: "bet_placed", Bet: b})
	if err != nil {
		return
	}
	if err := s.bus.Publish(ctx, ChannelBets, payload); err != nil {
		s.logger.WarnContext(ctx, "bet event publish failed",
			slog.String("error", err.Error()),
		)
	}
}

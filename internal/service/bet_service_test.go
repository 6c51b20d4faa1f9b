package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chainbets/chainbet/internal/domain"
)

// memBetStore is an in-memory BetStore; Place mirrors the transactional
// stake bump of the real store.
type memBetStore struct {
	bets    []domain.Bet
	markets *memMarketStore
}

func (s *memBetStore) Place(ctx context.Context, b domain.Bet) error {
	if err := s.markets.AddStake(ctx, b.MarketRowID, b.Amount); err != nil {
		return err
	}
	s.bets = append(s.bets, b)
	return nil
}

func (s *memBetStore) ListByBettor(_ context.Context, bettor string, _ domain.ListOpts) ([]domain.Bet, error) {
	var out []domain.Bet
	for _, b := range s.bets {
		if b.Bettor == bettor {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *memBetStore) ListByMarket(_ context.Context, marketRowID int64, _ domain.ListOpts) ([]domain.Bet, error) {
	var out []domain.Bet
	for _, b := range s.bets {
		if b.MarketRowID == marketRowID {
			out = append(out, b)
		}
	}
	return out, nil
}

func TestPlaceBet(t *testing.T) {
	markets := newMemMarketStore()
	m := markets.add(domain.Market{
		Identity:  "42",
		Title:     "Will it rain tomorrow?",
		ExpiresAt: time.Now().Add(24 * time.Hour),
		Verified:  true,
	})
	bets := &memBetStore{markets: markets}
	cache := newFakeCache()

	svc := NewBetService(bets, markets, testLogger()).WithMarketCache(cache)

	b, err := svc.PlaceBet(context.Background(), PlaceBetInput{
		MarketID: "42",
		Bettor:   "0xcccccccccccccccccccccccccccccccccccccccc",
		Outcome:  domain.BetOutcomeYes,
		Amount:   250,
	})
	if err != nil {
		t.Fatalf("PlaceBet: %v", err)
	}
	if b.ID == "" {
		t.Error("bet id not assigned")
	}
	if b.MarketRowID != m.RowID {
		t.Errorf("market row = %d, want %d", b.MarketRowID, m.RowID)
	}
	if got := markets.byRow(m.RowID); got.TotalStaked != 250 {
		t.Errorf("total staked = %d, want 250", got.TotalStaked)
	}
	if cache.invalidations != 1 {
		t.Errorf("cache invalidations = %d, want 1", cache.invalidations)
	}
}

func TestPlaceBet_Validation(t *testing.T) {
	markets := newMemMarketStore()
	markets.add(domain.Market{Identity: "42", Title: "Open market"})
	svc := NewBetService(&memBetStore{markets: markets}, markets, testLogger())

	tests := []struct {
		name string
		in   PlaceBetInput
	}{
		{name: "missing market", in: PlaceBetInput{Bettor: "a", Outcome: domain.BetOutcomeYes, Amount: 1}},
		{name: "missing bettor", in: PlaceBetInput{MarketID: "42", Outcome: domain.BetOutcomeYes, Amount: 1}},
		{name: "bad outcome", in: PlaceBetInput{MarketID: "42", Bettor: "a", Outcome: "maybe", Amount: 1}},
		{name: "zero amount", in: PlaceBetInput{MarketID: "42", Bettor: "a", Outcome: domain.BetOutcomeNo}},
		{name: "negative amount", in: PlaceBetInput{MarketID: "42", Bettor: "a", Outcome: domain.BetOutcomeNo, Amount: -5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.PlaceBet(context.Background(), tt.in)
			if !errors.Is(err, domain.ErrInvalidBet) {
				t.Errorf("error = %v, want domain.ErrInvalidBet", err)
			}
		})
	}
}

func TestPlaceBet_UnknownMarket(t *testing.T) {
	markets := newMemMarketStore()
	svc := NewBetService(&memBetStore{markets: markets}, markets, testLogger())

	_, err := svc.PlaceBet(context.Background(), PlaceBetInput{
		MarketID: "404",
		Bettor:   "a",
		Outcome:  domain.BetOutcomeYes,
		Amount:   10,
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("error = %v, want domain.ErrNotFound", err)
	}
}

func TestPlaceBet_ExpiredMarket(t *testing.T) {
	markets := newMemMarketStore()
	markets.add(domain.Market{
		Identity:  "42",
		Title:     "Closed market",
		ExpiresAt: time.Now().Add(-time.Minute),
	})
	svc := NewBetService(&memBetStore{markets: markets}, markets, testLogger())

	_, err := svc.PlaceBet(context.Background(), PlaceBetInput{
		MarketID: "42",
		Bettor:   "a",
		Outcome:  domain.BetOutcomeNo,
		Amount:   10,
	})
	if !errors.Is(err, domain.ErrInvalidBet) {
		t.Errorf("error = %v, want domain.ErrInvalidBet", err)
	}
}

func TestListBetsByMarket(t *testing.T) {
	markets := newMemMarketStore()
	m := markets.add(domain.Market{Identity: "42", Title: "Busy market", Verified: true})
	bets := &memBetStore{markets: markets}
	svc := NewBetService(bets, markets, testLogger())

	for i := 0; i < 3; i++ {
		if _, err := svc.PlaceBet(context.Background(), PlaceBetInput{
			MarketID: "42",
			Bettor:   "a",
			Outcome:  domain.BetOutcomeYes,
			Amount:   100,
		}); err != nil {
			t.Fatalf("PlaceBet: %v", err)
		}
	}

	got, err := svc.ListBetsByMarket(context.Background(), "42", domain.ListOpts{})
	if err != nil {
		t.Fatalf("ListBetsByMarket: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for _, b := range got {
		if b.MarketRowID != m.RowID {
			t.Errorf("bet %s row = %d, want %d", b.ID, b.MarketRowID, m.RowID)
		}
	}
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chainbets/chainbet/internal/domain"
)

// fakeCache is an in-memory MarketCache counting writes and invalidations.
type fakeCache struct {
	items         map[string]domain.Market
	sets          int
	invalidations int
}

func newFakeCache() *fakeCache {
	return &fakeCache{items: map[string]domain.Market{}}
}

func (c *fakeCache) Get(_ context.Context, identity string) (domain.Market, error) {
	m, ok := c.items[identity]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (c *fakeCache) Set(_ context.Context, m domain.Market) error {
	c.items[m.Identity] = m
	c.sets++
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, identity string) error {
	delete(c.items, identity)
	c.invalidations++
	return nil
}

func TestCreateMarket_AllocatesNextIdentity(t *testing.T) {
	store := newMemMarketStore()
	store.add(domain.Market{Identity: "3", Title: "Old one", Verified: true})
	store.add(domain.Market{Identity: "7", Title: "Newer one", Verified: true})

	svc := NewMarketService(store, testLogger())

	m, err := svc.CreateMarket(context.Background(), CreateMarketInput{
		Title:     "Will the merge land this quarter?",
		ExpiresAt: time.Now().Add(24 * time.Hour),
		Creator:   "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
	})
	if err != nil {
		t.Fatalf("CreateMarket: %v", err)
	}
	if m.Identity != "8" {
		t.Errorf("identity = %q, want %q", m.Identity, "8")
	}
	if m.Verified {
		t.Error("new market created verified, want unverified")
	}
}

func TestCreateMarket_KeepsCallerIdentity(t *testing.T) {
	store := newMemMarketStore()
	svc := NewMarketService(store, testLogger())

	m, err := svc.CreateMarket(context.Background(), CreateMarketInput{
		Identity: "99",
		Title:    "Pinned identity",
	})
	if err != nil {
		t.Fatalf("CreateMarket: %v", err)
	}
	if m.Identity != "99" {
		t.Errorf("identity = %q, want caller-supplied %q", m.Identity, "99")
	}
}

func TestCreateMarket_Validation(t *testing.T) {
	svc := NewMarketService(newMemMarketStore(), testLogger())

	tests := []struct {
		name string
		in   CreateMarketInput
	}{
		{name: "empty title", in: CreateMarketInput{Title: "   "}},
		{
			name: "past expiry",
			in:   CreateMarketInput{Title: "Expired", ExpiresAt: time.Now().Add(-time.Hour)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateMarket(context.Background(), tt.in)
			if !errors.Is(err, domain.ErrInvalidMarket) {
				t.Errorf("error = %v, want domain.ErrInvalidMarket", err)
			}
		})
	}
}

func TestCreateMarket_ReconcilesFirst(t *testing.T) {
	store := newMemMarketStore()
	pending := store.add(domain.Market{Identity: "1", Title: "Already on chain"})

	reader := &fakeReader{questions: []domain.ChainQuestion{
		question("42", "Already on chain"),
	}}
	reconciler := NewReconcileService(reader, store, testLogger())
	svc := NewMarketService(store, testLogger()).WithReconciler(reconciler)

	if _, err := svc.CreateMarket(context.Background(), CreateMarketInput{Title: "Fresh market"}); err != nil {
		t.Fatalf("CreateMarket: %v", err)
	}

	if reader.calls != 1 {
		t.Errorf("chain fetched %d time(s), want 1", reader.calls)
	}
	if got := store.byRow(pending.RowID); got.Identity != "42" || !got.Verified {
		t.Errorf("pending market not reconciled before allocation: {id: %q, verified: %t}",
			got.Identity, got.Verified)
	}
	// The fresh market allocates past the just-verified chain identity.
	if fresh := store.byRow(pending.RowID + 1); fresh == nil || fresh.Identity != "43" {
		t.Errorf("fresh market identity = %v, want %q", fresh, "43")
	}
}

func TestCreateMarket_AbortsWhenReconcileFails(t *testing.T) {
	store := newMemMarketStore()
	reader := &fakeReader{err: errors.New("rpc: timeout")}
	reconciler := NewReconcileService(reader, store, testLogger())
	svc := NewMarketService(store, testLogger()).WithReconciler(reconciler)

	_, err := svc.CreateMarket(context.Background(), CreateMarketInput{Title: "Should not land"})
	if !errors.Is(err, domain.ErrChainUnavailable) {
		t.Fatalf("error = %v, want domain.ErrChainUnavailable", err)
	}
	if n, _ := store.Count(context.Background()); n != 0 {
		t.Errorf("market count = %d, want 0", n)
	}
}

func TestGetMarket_CacheFirst(t *testing.T) {
	store := newMemMarketStore()
	store.add(domain.Market{Identity: "42", Title: "Verified one", Verified: true})

	cache := newFakeCache()
	svc := NewMarketService(store, testLogger()).WithMarketCache(cache)

	// First read: miss, store hit, cache populated.
	m, err := svc.GetMarket(context.Background(), "42")
	if err != nil {
		t.Fatalf("GetMarket: %v", err)
	}
	if m.Title != "Verified one" {
		t.Errorf("title = %q, want %q", m.Title, "Verified one")
	}
	if cache.sets != 1 {
		t.Errorf("cache sets = %d, want 1", cache.sets)
	}

	// Second read is served from cache; removing the row must not matter.
	store.markets = nil
	if _, err := svc.GetMarket(context.Background(), "42"); err != nil {
		t.Fatalf("cached GetMarket: %v", err)
	}
}

func TestGetMarket_UnverifiedNotCached(t *testing.T) {
	store := newMemMarketStore()
	store.add(domain.Market{Identity: "5", Title: "Pending one"})

	cache := newFakeCache()
	svc := NewMarketService(store, testLogger()).WithMarketCache(cache)

	if _, err := svc.GetMarket(context.Background(), "5"); err != nil {
		t.Fatalf("GetMarket: %v", err)
	}
	if cache.sets != 0 {
		t.Errorf("cache sets = %d, want 0 for unverified market", cache.sets)
	}
}

func TestGetMarket_NotFound(t *testing.T) {
	svc := NewMarketService(newMemMarketStore(), testLogger())

	_, err := svc.GetMarket(context.Background(), "nope")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("error = %v, want domain.ErrNotFound", err)
	}
}

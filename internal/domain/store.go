package domain

import (
	"context"
	"io"
	"time"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// MarketStore persists local market records. Mutating operations that the
// reconciler performs are keyed by the internal row handle, never by
// identity, because identity is exactly what reconciliation rewrites.
type MarketStore interface {
	Create(ctx context.Context, m Market) (Market, error)
	GetByIdentity(ctx context.Context, identity string) (Market, error)
	List(ctx context.Context, opts ListOpts) ([]Market, error)
	Count(ctx context.Context) (int64, error)

	// FirstUnverified returns the oldest-inserted market with Verified =
	// false, or ErrNotFound when every market is verified.
	FirstUnverified(ctx context.Context) (Market, error)

	// ResolveIdentity rewrites the row's identity, expiry, creator, and
	// total staked from the matched chain question and flips Verified to
	// true, all in a single statement.
	ResolveIdentity(ctx context.Context, rowID int64, q ChainQuestion) error

	// RenumberIdentity rewrites only the identity of an unverified row.
	// Returns ErrMarketVerified if the row has been verified in the
	// meantime.
	RenumberIdentity(ctx context.Context, rowID int64, identity string) error

	// MaxNumericIdentity returns the largest identity that parses as an
	// integer, or 0 when the table is empty.
	MaxNumericIdentity(ctx context.Context) (int64, error)

	// AddStake increments a market's total staked amount.
	AddStake(ctx context.Context, rowID int64, amount int64) error
}

// BetStore persists bets.
type BetStore interface {
	// Place inserts the bet and bumps the market's total staked amount in
	// one transaction.
	Place(ctx context.Context, b Bet) error
	ListByBettor(ctx context.Context, bettor string, opts ListOpts) ([]Bet, error)
	ListByMarket(ctx context.Context, marketRowID int64, opts ListOpts) ([]Bet, error)
}

// QuestionReader fetches the authoritative on-chain question list. The
// returned slice preserves the contract's return order, which is assumed to
// be ascending identity; callers do not re-sort it.
type QuestionReader interface {
	FetchQuestions(ctx context.Context) ([]ChainQuestion, error)
}

// MarketCache caches verified markets for fast reads.
type MarketCache interface {
	Get(ctx context.Context, identity string) (Market, error)
	Set(ctx context.Context, m Market) error
	Invalidate(ctx context.Context, identity string) error
}

// LockManager provides distributed mutual exclusion. Acquire returns an
// unlock function on success and ErrLockHeld when another holder owns the
// lock.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// RateLimiter provides distributed rate limiting. Allow reports whether a
// request for key fits under limit per window, counting it when it does.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// SignalBus is a lightweight publish/subscribe fabric for pushing events to
// WebSocket clients and other consumers.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// BlobWriter stores opaque objects (snapshot archives) in object storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// SnapshotArchiver persists a fetched chain snapshot for audit and replay.
type SnapshotArchiver interface {
	Archive(ctx context.Context, fetchedAt time.Time, questions []ChainQuestion) error
}

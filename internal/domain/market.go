package domain

import (
	"math/big"
	"time"
)

// Market is a locally persisted prediction-market question. Its Identity is
// provisional until the reconciler matches the market to an on-chain question
// by title fingerprint; after that the identity is fixed for good.
type Market struct {
	// RowID is the immutable internal row handle. All reconciler writes are
	// keyed by RowID because Identity itself is what gets rewritten.
	RowID       int64     `json:"-"`
	Identity    string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ExpiresAt   time.Time `json:"expires_at"`
	Creator     string    `json:"creator"`
	TotalStaked int64     `json:"total_staked"`
	Verified    bool      `json:"verified"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ChainQuestion is one entry of the on-chain question list, as returned by the
// question contract. Read-only; the snapshot order is assumed to follow
// ascending on-chain identity.
type ChainQuestion struct {
	// Identity is the decimal form of the contract's uint256 question id.
	Identity string

	// Fingerprint is the uint128 title fingerprint committed on-chain at
	// question creation.
	Fingerprint *big.Int

	ExpiresAt   time.Time
	Creator     string
	TotalStaked int64
}

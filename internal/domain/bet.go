package domain

import "time"

// BetOutcome is the side of a binary market a bet is placed on.
type BetOutcome string

const (
	BetOutcomeYes BetOutcome = "yes"
	BetOutcomeNo  BetOutcome = "no"
)

// Bet is a single stake placed against a local market. Bets reference the
// market's internal row handle rather than its identity, since the identity
// of an unverified market may still be renumbered.
type Bet struct {
	ID          string     `json:"id"`
	MarketRowID int64      `json:"-"`
	MarketID    string     `json:"market_id"`
	Bettor      string     `json:"bettor"`
	Outcome     BetOutcome `json:"outcome"`
	Amount      int64      `json:"amount"`
	CreatedAt   time.Time  `json:"created_at"`
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chainbets/chainbet/internal/domain"
)

// BetStore implements domain.BetStore using PostgreSQL.
type BetStore struct {
	pool *pgxpool.Pool
}

// NewBetStore creates a new BetStore backed by the given connection pool.
func NewBetStore(pool *pgxpool.Pool) *BetStore {
	return &BetStore{pool: pool}
}

// Place inserts the bet and bumps the market's total staked amount in one
// transaction, so the stake counter can never drift from the bet log.
func (s *BetStore) Place(ctx context.Context, b domain.Bet) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin place bet: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO bets (id, market_row_id, bettor, outcome, amount, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		b.ID, b.MarketRowID, b.Bettor, string(b.Outcome), b.Amount, b.CreatedAt,
	); err != nil {
		return fmt.Errorf("postgres: insert bet %s: %w", b.ID, err)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE markets SET total_staked = total_staked + $2, updated_at = NOW() WHERE row_id = $1`,
		b.MarketRowID, b.Amount,
	)
	if err != nil {
		return fmt.Errorf("postgres: bump stake for bet %s: %w", b.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit place bet %s: %w", b.ID, err)
	}
	return nil
}

const betCols = `b.id, b.market_row_id, m.identity, b.bettor, b.outcome, b.amount, b.created_at`

func scanBets(rows pgx.Rows) ([]domain.Bet, error) {
	var bets []domain.Bet
	for rows.Next() {
		var b domain.Bet
		var outcome string
		if err := rows.Scan(
			&b.ID, &b.MarketRowID, &b.MarketID, &b.Bettor, &outcome, &b.Amount, &b.CreatedAt,
		); err != nil {
			return nil, err
		}
		b.Outcome = domain.BetOutcome(outcome)
		bets = append(bets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bets, nil
}

// ListByBettor returns a bettor's bets, newest first.
func (s *BetStore) ListByBettor(ctx context.Context, bettor string, opts domain.ListOpts) ([]domain.Bet, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+betCols+`
		 FROM bets b JOIN markets m ON m.row_id = b.market_row_id
		 WHERE b.bettor = $1
		 ORDER BY b.created_at DESC
		 LIMIT $2 OFFSET $3`,
		bettor, listLimit(opts), opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list bets by bettor %s: %w", bettor, err)
	}
	defer rows.Close()

	bets, err := scanBets(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan bets by bettor %s: %w", bettor, err)
	}
	return bets, nil
}

// ListByMarket returns a market's bets, newest first, keyed by the internal
// row handle so the listing survives identity renumbering.
func (s *BetStore) ListByMarket(ctx context.Context, marketRowID int64, opts domain.ListOpts) ([]domain.Bet, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+betCols+`
		 FROM bets b JOIN markets m ON m.row_id = b.market_row_id
		 WHERE b.market_row_id = $1
		 ORDER BY b.created_at DESC
		 LIMIT $2 OFFSET $3`,
		marketRowID, listLimit(opts), opts.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list bets for market row %d: %w", marketRowID, err)
	}
	defer rows.Close()

	bets, err := scanBets(rows)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: scan bets for market row %d: %w", marketRowID, err)
	}
	return bets, nil
}

func listLimit(opts domain.ListOpts) int {
	if opts.Limit > 0 {
		return opts.Limit
	}
	return 50
}

// Compile-time interface check.
var _ domain.BetStore = (*BetStore)(nil)

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chainbets/chainbet/internal/domain"
)

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a new MarketStore backed by the given connection pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

const marketCols = `row_id, identity, title, description, expires_at,
	creator, total_staked, verified, created_at, updated_at`

// scanMarket scans a single market row into a domain.Market.
func scanMarket(row pgx.Row) (domain.Market, error) {
	var m domain.Market
	err := row.Scan(
		&m.RowID, &m.Identity, &m.Title, &m.Description, &m.ExpiresAt,
		&m.Creator, &m.TotalStaked, &m.Verified, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return domain.Market{}, err
	}
	return m, nil
}

// Create inserts a new unverified market and returns the stored row with its
// assigned row handle.
func (s *MarketStore) Create(ctx context.Context, m domain.Market) (domain.Market, error) {
	const query = `
		INSERT INTO markets (identity, title, description, expires_at, creator, total_staked, verified)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE)
		RETURNING ` + marketCols

	row := s.pool.QueryRow(ctx, query,
		m.Identity, m.Title, m.Description, m.ExpiresAt, m.Creator, m.TotalStaked,
	)
	created, err := scanMarket(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.Market{}, domain.ErrAlreadyExists
		}
		return domain.Market{}, fmt.Errorf("postgres: create market %q: %w", m.Identity, err)
	}
	return created, nil
}

// GetByIdentity retrieves a market by its current identity.
func (s *MarketStore) GetByIdentity(ctx context.Context, identity string) (domain.Market, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+marketCols+` FROM markets WHERE identity = $1`, identity)
	m, err := scanMarket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("postgres: get market %s: %w", identity, err)
	}
	return m, nil
}

// List returns markets in insertion order with pagination.
func (s *MarketStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	query := `SELECT ` + marketCols + ` FROM markets ORDER BY row_id`
	args := []any{}
	argIdx := 1

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list markets: %w", err)
	}
	defer rows.Close()

	var markets []domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan market: %w", err)
		}
		markets = append(markets, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list markets rows: %w", err)
	}
	return markets, nil
}

// Count returns the total number of markets.
func (s *MarketStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM markets").Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: count markets: %w", err)
	}
	return count, nil
}

// FirstUnverified returns the oldest-inserted unverified market. Insertion
// order is row_id order; ties cannot occur on a serial column.
func (s *MarketStore) FirstUnverified(ctx context.Context) (domain.Market, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+marketCols+` FROM markets WHERE NOT verified ORDER BY row_id LIMIT 1`)
	m, err := scanMarket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("postgres: first unverified market: %w", err)
	}
	return m, nil
}

// ResolveIdentity rewrites the row from the matched chain question and marks
// it verified in a single statement, keyed by the internal row handle.
func (s *MarketStore) ResolveIdentity(ctx context.Context, rowID int64, q domain.ChainQuestion) error {
	const query = `
		UPDATE markets
		SET identity = $2,
			expires_at = $3,
			creator = $4,
			total_staked = $5,
			verified = TRUE,
			updated_at = NOW()
		WHERE row_id = $1 AND NOT verified`

	tag, err := s.pool.Exec(ctx, query,
		rowID, q.Identity, q.ExpiresAt, q.Creator, q.TotalStaked,
	)
	if err != nil {
		return fmt.Errorf("postgres: resolve market row %d: %w", rowID, err)
	}
	if tag.RowsAffected() == 0 {
		return s.rowWriteMiss(ctx, rowID)
	}
	return nil
}

// RenumberIdentity rewrites only the identity of an unverified row.
func (s *MarketStore) RenumberIdentity(ctx context.Context, rowID int64, identity string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE markets SET identity = $2, updated_at = NOW() WHERE row_id = $1 AND NOT verified`,
		rowID, identity,
	)
	if err != nil {
		return fmt.Errorf("postgres: renumber market row %d: %w", rowID, err)
	}
	if tag.RowsAffected() == 0 {
		return s.rowWriteMiss(ctx, rowID)
	}
	return nil
}

// rowWriteMiss distinguishes a missing row from one that was verified after
// the caller read it.
func (s *MarketStore) rowWriteMiss(ctx context.Context, rowID int64) error {
	var verified bool
	err := s.pool.QueryRow(ctx,
		`SELECT verified FROM markets WHERE row_id = $1`, rowID,
	).Scan(&verified)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("postgres: inspect market row %d: %w", rowID, err)
	}
	if verified {
		return domain.ErrMarketVerified
	}
	return domain.ErrNotFound
}

// MaxNumericIdentity returns the largest integer identity currently in use,
// or 0 for an empty table. Non-numeric identities are ignored.
func (s *MarketStore) MaxNumericIdentity(ctx context.Context) (int64, error) {
	var max int64
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(MAX(identity::BIGINT), 0) FROM markets WHERE identity ~ '^[0-9]+$'`,
	).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("postgres: max numeric identity: %w", err)
	}
	return max, nil
}

// AddStake increments a market's total staked amount.
func (s *MarketStore) AddStake(ctx context.Context, rowID int64, amount int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE markets SET total_staked = total_staked + $2, updated_at = NOW() WHERE row_id = $1`,
		rowID, amount,
	)
	if err != nil {
		return fmt.Errorf("postgres: add stake to market row %d: %w", rowID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Compile-time interface check.
var _ domain.MarketStore = (*MarketStore)(nil)

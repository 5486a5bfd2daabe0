package db

import (
	"context"
	"fmt"
	"time"

	"github.com/okdsgnr/Strata/service/audit"
)

// FetchLabels returns the known, unexpired labels for a batch of wallet
// addresses. Addresses without a label are simply absent from the result.
func (s *Store) FetchLabels(ctx context.Context, addresses []string) (map[string]audit.Label, error) {
	if len(addresses) == 0 {
		return map[string]audit.Label{}, nil
	}
	defer s.record("fetch_labels")()

	rows, err := s.pool.Query(ctx, `
		SELECT address, type, label
		FROM wallet_labels
		WHERE address = ANY($1) AND (expires_at IS NULL OR expires_at > now())`,
		addresses,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch wallet labels: %w", err)
	}
	defer rows.Close()

	labels := make(map[string]audit.Label)
	for rows.Next() {
		var (
			address string
			label   audit.Label
		)
		if err := rows.Scan(&address, &label.Type, &label.Label); err != nil {
			return nil, err
		}
		labels[address] = label
	}
	return labels, rows.Err()
}

// UpsertLabel inserts or replaces a wallet label. A nil expiresAt means the
// label never expires.
func (s *Store) UpsertLabel(ctx context.Context, address, labelType, label string, expiresAt *time.Time) error {
	defer s.record("upsert_label")()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO wallet_labels (address, type, label, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (address) DO UPDATE SET
			type       = EXCLUDED.type,
			label      = EXCLUDED.label,
			expires_at = EXCLUDED.expires_at`,
		address, labelType, label, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("upsert label for %s: %w", address, err)
	}
	return nil
}

// LogSearch records one audit request against a token.
func (s *Store) LogSearch(ctx context.Context, mint string) error {
	defer s.record("log_search")()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO token_searches (token_address) VALUES ($1)`,
		mint,
	)
	if err != nil {
		return fmt.Errorf("log search for %s: %w", mint, err)
	}
	return nil
}

// TrendingToken is one entry in the most-searched ranking.
type TrendingToken struct {
	TokenAddress string
	Searches     int64
}

// TrendingTokens returns the most-searched tokens within the window.
func (s *Store) TrendingTokens(ctx context.Context, window time.Duration, limit int) ([]TrendingToken, error) {
	defer s.record("trending_tokens")()

	rows, err := s.pool.Query(ctx, `
		SELECT token_address, COUNT(*) AS searches
		FROM token_searches
		WHERE searched_at >= now() - $1::interval
		GROUP BY token_address
		ORDER BY searches DESC, token_address
		LIMIT $2`,
		window, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query trending tokens: %w", err)
	}
	defer rows.Close()

	var trending []TrendingToken
	for rows.Next() {
		var t TrendingToken
		if err := rows.Scan(&t.TokenAddress, &t.Searches); err != nil {
			return nil, err
		}
		trending = append(trending, t)
	}
	return trending, rows.Err()
}

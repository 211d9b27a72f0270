package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/oauth2"
)

// DefaultAccount is the key tokens are stored under. The assistant serves a
// single mailbox.
const DefaultAccount = "default"

type PGStore struct {
	pool    *pgxpool.Pool
	account string
}

func NewPGStore(ctx context.Context, dsn string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &PGStore{pool: pool, account: DefaultAccount}, nil
}

func (s *PGStore) Close() {
	s.pool.Close()
}

func (s *PGStore) Migrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS oauth_tokens (
			account TEXT PRIMARY KEY,
			token JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
	}
	for _, q := range queries {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("migrate query failed: %w", err)
		}
	}
	return nil
}

func (s *PGStore) Load(ctx context.Context) (*oauth2.Token, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT token FROM oauth_tokens WHERE account = $1`, s.account).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(raw, &tok); err != nil {
		return nil, fmt.Errorf("decode stored token: %w", err)
	}
	return &tok, nil
}

func (s *PGStore) Save(ctx context.Context, tok *oauth2.Token) error {
	raw, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO oauth_tokens (account, token, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (account) DO UPDATE
		SET token = EXCLUDED.token, updated_at = NOW()
	`, s.account, raw)
	return err
}

package conversation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists conversation turns in PostgreSQL.
type PostgresStore struct {
	pool      *pgxpool.Pool
	retention int
}

func NewPostgresStore(ctx context.Context, databaseURL string, retention int) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initPostgresSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &PostgresStore{pool: pool, retention: retention}, nil
}

func initPostgresSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS conversation_turns (
			id TEXT PRIMARY KEY,
			seq BIGSERIAL NOT NULL,
			scope TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_conversation_turns_scope_seq ON conversation_turns (scope, seq);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, scope string, turn Turn) error {
	if scope == "" {
		return ErrInvalidScope
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO conversation_turns (id, scope, role, content, created_at)
			 VALUES ($1, $2, $3, $4, $5)`,
			uuid.NewString(),
			scope,
			string(turn.Role),
			turn.Content,
			time.Now().UTC(),
		); err != nil {
			return fmt.Errorf("insert turn: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`DELETE FROM conversation_turns
			 WHERE scope = $1 AND seq <= (
				SELECT seq FROM conversation_turns WHERE scope = $1
				ORDER BY seq DESC OFFSET $2 LIMIT 1
			 )`,
			scope,
			s.retention,
		); err != nil {
			return fmt.Errorf("prune turns: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

func (s *PostgresStore) Recent(ctx context.Context, scope string, limit int) ([]Turn, error) {
	if limit <= 0 {
		limit = s.retention
	}

	rows, err := s.pool.Query(ctx,
		`SELECT role, content FROM conversation_turns
		 WHERE scope = $1 ORDER BY seq DESC LIMIT $2`,
		scope,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent turns: %w", err)
	}
	defer rows.Close()

	items := make([]Turn, 0, limit)
	for rows.Next() {
		var (
			role string
			t    Turn
		)
		if err := rows.Scan(&role, &t.Content); err != nil {
			return nil, fmt.Errorf("scan turn row: %w", err)
		}
		t.Role = Role(role)
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turn rows: %w", err)
	}

	reverse(items)
	return items, nil
}

func (s *PostgresStore) Forget(ctx context.Context, scope string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM conversation_turns WHERE scope = $1`, scope); err != nil {
		return fmt.Errorf("forget scope: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// reverse puts newest-first rows back into chronological order.
func reverse(items []Turn) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
}

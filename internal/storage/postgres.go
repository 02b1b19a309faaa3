package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/KevinKickass/OpenBoardCore/internal/boards"
	"github.com/KevinKickass/OpenBoardCore/internal/config"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresHistoryStore struct {
	pool *pgxpool.Pool
}

func NewPostgresHistoryStore(ctx context.Context, cfg config.DatabaseConfig) (*PostgresHistoryStore, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse pool config: %w", err)
	}

	if cfg.MaxConnections > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConnections)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresHistoryStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (p *PostgresHistoryStore) migrate(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS board_history (
			port_key   TEXT PRIMARY KEY,
			board_name TEXT NOT NULL,
			board_fqbn TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to migrate board_history: %w", err)
	}
	return nil
}

func (p *PostgresHistoryStore) List(ctx context.Context) ([]HistoryEntry, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT port_key, board_name, board_fqbn, updated_at
		FROM board_history
		ORDER BY port_key
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	entries := make([]HistoryEntry, 0)
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.PortKey, &e.Board.Name, &e.Board.FQBN, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func (p *PostgresHistoryStore) Get(ctx context.Context, portKey string) (HistoryEntry, error) {
	e := HistoryEntry{PortKey: portKey}
	err := p.pool.QueryRow(ctx, `
		SELECT board_name, board_fqbn, updated_at
		FROM board_history
		WHERE port_key = $1
	`, portKey).Scan(&e.Board.Name, &e.Board.FQBN, &e.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return HistoryEntry{}, fmt.Errorf("%w: %s", ErrNotFound, portKey)
		}
		return HistoryEntry{}, fmt.Errorf("failed to load history entry: %w", err)
	}
	return e, nil
}

func (p *PostgresHistoryStore) Put(ctx context.Context, portKey string, board boards.BoardIdentifier) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO board_history (port_key, board_name, board_fqbn, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (port_key) DO UPDATE
		SET board_name = EXCLUDED.board_name,
		    board_fqbn = EXCLUDED.board_fqbn,
		    updated_at = EXCLUDED.updated_at
	`, portKey, board.Name, board.FQBN)

	if err != nil {
		return fmt.Errorf("failed to save history entry: %w", err)
	}
	return nil
}

func (p *PostgresHistoryStore) Delete(ctx context.Context, portKey string) error {
	result, err := p.pool.Exec(ctx, `
		DELETE FROM board_history
		WHERE port_key = $1
	`, portKey)

	if err != nil {
		return fmt.Errorf("failed to delete history entry: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, portKey)
	}

	return nil
}

func (p *PostgresHistoryStore) Close() error {
	p.pool.Close()
	return nil
}

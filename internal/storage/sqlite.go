package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/KevinKickass/OpenBoardCore/internal/boards"
)

// SQLiteHistoryStore keeps the history in an embedded SQLite file.
type SQLiteHistoryStore struct {
	db *sql.DB
}

func NewSQLiteHistoryStore(ctx context.Context, path string) (*SQLiteHistoryStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	// single writer
	db.SetMaxOpenConns(1)

	s := &SQLiteHistoryStore{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteHistoryStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS board_history (
			port_key   TEXT PRIMARY KEY,
			board_name TEXT NOT NULL,
			board_fqbn TEXT NOT NULL DEFAULT '',
			updated_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to migrate board_history: %w", err)
	}
	return nil
}

func (s *SQLiteHistoryStore) List(ctx context.Context) ([]HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
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
		var updatedAt int64
		if err := rows.Scan(&e.PortKey, &e.Board.Name, &e.Board.FQBN, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		e.UpdatedAt = time.UnixMilli(updatedAt).UTC()
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func (s *SQLiteHistoryStore) Get(ctx context.Context, portKey string) (HistoryEntry, error) {
	e := HistoryEntry{PortKey: portKey}
	var updatedAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT board_name, board_fqbn, updated_at
		FROM board_history
		WHERE port_key = ?
	`, portKey).Scan(&e.Board.Name, &e.Board.FQBN, &updatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return HistoryEntry{}, fmt.Errorf("%w: %s", ErrNotFound, portKey)
		}
		return HistoryEntry{}, fmt.Errorf("failed to load history entry: %w", err)
	}
	e.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return e, nil
}

func (s *SQLiteHistoryStore) Put(ctx context.Context, portKey string, board boards.BoardIdentifier) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO board_history (port_key, board_name, board_fqbn, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(port_key) DO UPDATE
		SET board_name = excluded.board_name,
		    board_fqbn = excluded.board_fqbn,
		    updated_at = excluded.updated_at
	`, portKey, board.Name, board.FQBN, time.Now().UnixMilli())

	if err != nil {
		return fmt.Errorf("failed to save history entry: %w", err)
	}
	return nil
}

func (s *SQLiteHistoryStore) Delete(ctx context.Context, portKey string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM board_history WHERE port_key = ?`, portKey)
	if err != nil {
		return fmt.Errorf("failed to delete history entry: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete history entry: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, portKey)
	}
	return nil
}

func (s *SQLiteHistoryStore) Close() error {
	return s.db.Close()
}

package storage

import (
	"context"
	"errors"
	"time"

	"github.com/KevinKickass/OpenBoardCore/internal/boards"
)

var ErrNotFound = errors.New("history entry not found")

// HistoryEntry is one remembered port → board assignment.
type HistoryEntry struct {
	PortKey   string                 `json:"port_key"`
	Board     boards.BoardIdentifier `json:"board"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// HistoryStore persists the board list history.
type HistoryStore interface {
	// List returns all entries ordered by port key.
	List(ctx context.Context) ([]HistoryEntry, error)
	Get(ctx context.Context, portKey string) (HistoryEntry, error)
	// Put inserts or replaces the entry for portKey.
	Put(ctx context.Context, portKey string, board boards.BoardIdentifier) error
	// Delete removes the entry for portKey, ErrNotFound if there is none.
	Delete(ctx context.Context, portKey string) error
	Close() error
}

// LoadHistory reads every entry of store into a BoardListHistory.
func LoadHistory(ctx context.Context, store HistoryStore) (boards.BoardListHistory, error) {
	entries, err := store.List(ctx)
	if err != nil {
		return nil, err
	}

	history := make(boards.BoardListHistory, len(entries))
	for _, e := range entries {
		history[e.PortKey] = e.Board
	}
	return history, nil
}

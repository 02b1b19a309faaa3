// Package provider keeps the current board list: the latest discovery
// snapshot, the user's selection and the board list history.
package provider

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"

	"github.com/KevinKickass/OpenBoardCore/internal/boards"
	"github.com/KevinKickass/OpenBoardCore/internal/config"
	"github.com/KevinKickass/OpenBoardCore/internal/storage"
	"github.com/KevinKickass/OpenBoardCore/internal/streaming"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrUnknownPort = errors.New("port not detected")

type Provider struct {
	store    storage.HistoryStore
	streamer *streaming.Streamer
	logger   *zap.Logger

	mu       sync.RWMutex
	detected boards.DetectedPorts
	config   boards.BoardsConfig
	history  boards.BoardListHistory
	current  *streaming.Update
}

// New loads the history from store and publishes a first, empty board list.
func New(ctx context.Context, store storage.HistoryStore, streamer *streaming.Streamer, initial boards.BoardsConfig, logger *zap.Logger) (*Provider, error) {
	history, err := storage.LoadHistory(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("failed to load board list history: %w", err)
	}

	p := &Provider{
		store:    store,
		streamer: streamer,
		logger:   logger,
		detected: make(boards.DetectedPorts),
		config:   initial,
		history:  history,
	}

	p.mu.Lock()
	p.rebuild()
	p.mu.Unlock()

	logger.Info("Board list provider ready", zap.Int("history_entries", len(history)))
	return p, nil
}

// BoardsConfigFromSelection converts the configured initial selection.
func BoardsConfigFromSelection(cfg config.SelectionConfig) boards.BoardsConfig {
	var bc boards.BoardsConfig
	if cfg.Board != nil {
		name := cfg.Board.Name
		if name == "" {
			name = cfg.Board.FQBN
		}
		bc.SelectedBoard = &boards.BoardIdentifier{Name: name, FQBN: cfg.Board.FQBN}
	}
	if cfg.Port != nil && cfg.Port.Address != "" {
		bc.SelectedPort = &boards.PortIdentifier{Protocol: cfg.Port.Protocol, Address: cfg.Port.Address}
	}
	return bc
}

// rebuild recomputes and publishes the board list. Callers hold p.mu.
func (p *Provider) rebuild() {
	list := boards.CreateBoardList(p.detected, p.config, p.history)
	p.current = p.streamer.Publish(list)

	p.logger.Debug("Board list rebuilt",
		zap.String("revision", p.current.Revision.String()),
		zap.Int("items", list.Len()),
		zap.Int("selected_index", list.SelectedIndex()))
}

// UpdateDetectedPorts replaces the discovery snapshot.
func (p *Provider) UpdateDetectedPorts(detected boards.DetectedPorts) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.detected = maps.Clone(detected)
	if p.detected == nil {
		p.detected = make(boards.DetectedPorts)
	}
	p.rebuild()
}

// Select stores the selection in memory. When both a board and a detected
// port are selected the history is updated: a board that discovery already
// reports on the port removes the port's entry, any other board is
// remembered for the port.
func (p *Provider) Select(ctx context.Context, selection boards.BoardsConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.config = cloneConfig(selection)

	if selection.IsDefined() {
		key := selection.SelectedPort.Key()
		if dp, ok := p.detected[key]; ok {
			if err := p.recordSelection(ctx, key, dp, *selection.SelectedBoard); err != nil {
				p.rebuild()
				return err
			}
		}
	}

	p.rebuild()

	p.logger.Info("Selection updated",
		zap.Any("board", selection.SelectedBoard),
		zap.Any("port", selection.SelectedPort))
	return nil
}

func (p *Provider) recordSelection(ctx context.Context, key string, dp boards.DetectedPort, board boards.BoardIdentifier) error {
	for i := range dp.Boards {
		if boards.BoardIdentifierEquals(&dp.Boards[i], &board) {
			if _, remembered := p.history[key]; !remembered {
				return nil
			}
			if err := p.store.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("failed to forget board for %s: %w", key, err)
			}
			delete(p.history, key)
			return nil
		}
	}

	if err := p.store.Put(ctx, key, board); err != nil {
		return fmt.Errorf("failed to remember board for %s: %w", key, err)
	}
	p.history[key] = board
	return nil
}

// ForgetPort removes the history entry of a port. storage.ErrNotFound is
// returned when there is none.
func (p *Provider) ForgetPort(ctx context.Context, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.store.Delete(ctx, key); err != nil {
		return err
	}
	delete(p.history, key)
	p.rebuild()

	p.logger.Info("Board list history entry removed", zap.String("port", key))
	return nil
}

// BoardList returns the current board list.
func (p *Provider) BoardList() *boards.BoardList {
	return p.Current().List
}

// Current returns the current board list together with its revision.
func (p *Provider) Current() *streaming.Update {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

func (p *Provider) BoardsConfig() boards.BoardsConfig {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return cloneConfig(p.config)
}

func (p *Provider) History() boards.BoardListHistory {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return maps.Clone(p.history)
}

// HistoryEntries reads the history with timestamps from the store.
func (p *Provider) HistoryEntries(ctx context.Context) ([]storage.HistoryEntry, error) {
	return p.store.List(ctx)
}

// DetectedPort returns the detected port with the given identity.
func (p *Provider) DetectedPort(id boards.PortIdentifier) (boards.DetectedPort, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	dp, ok := p.detected[id.Key()]
	if !ok {
		return boards.DetectedPort{}, fmt.Errorf("%w: %s", ErrUnknownPort, id.Key())
	}
	return dp, nil
}

func (p *Provider) Subscribe() (uuid.UUID, <-chan *streaming.Update) {
	return p.streamer.Subscribe()
}

func (p *Provider) Unsubscribe(id uuid.UUID) {
	p.streamer.Unsubscribe(id)
}

func (p *Provider) SubscriberCount() int {
	return p.streamer.SubscriberCount()
}

func cloneConfig(c boards.BoardsConfig) boards.BoardsConfig {
	var clone boards.BoardsConfig
	if c.SelectedBoard != nil {
		board := *c.SelectedBoard
		clone.SelectedBoard = &board
	}
	if c.SelectedPort != nil {
		port := *c.SelectedPort
		clone.SelectedPort = &port
	}
	return clone
}

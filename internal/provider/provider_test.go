package provider

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/KevinKickass/OpenBoardCore/internal/boards"
	"github.com/KevinKickass/OpenBoardCore/internal/config"
	"github.com/KevinKickass/OpenBoardCore/internal/storage"
	"github.com/KevinKickass/OpenBoardCore/internal/streaming"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var (
	uno     = boards.BoardIdentifier{Name: "Arduino Uno", FQBN: "arduino:avr:uno"}
	mkr1000 = boards.BoardIdentifier{Name: "Arduino MKR1000", FQBN: "arduino:samd:mkr1000"}

	serialPort = boards.Port{
		Address:       "/dev/ttyACM0",
		AddressLabel:  "/dev/ttyACM0",
		Protocol:      "serial",
		ProtocolLabel: "Serial Port (USB)",
		Properties:    map[string]string{"vid": "0x2341", "pid": "0x0043"},
		HardwareID:    "75830303934351618212",
	}
	unknownPort = boards.Port{
		Address:       "/dev/ttyUSB0",
		AddressLabel:  "/dev/ttyUSB0",
		Protocol:      "serial",
		ProtocolLabel: "Serial Port (USB)",
		Properties:    map[string]string{"vid": "0x1a86", "pid": "0x7523"},
	}
)

func newTestProvider(t *testing.T, initial boards.BoardsConfig) (*Provider, storage.HistoryStore) {
	t.Helper()

	ctx := context.Background()
	store, err := storage.NewSQLiteHistoryStore(ctx, filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	p, err := New(ctx, store, streaming.NewStreamer(), initial, zaptest.NewLogger(t))
	require.NoError(t, err)
	return p, store
}

func detectedFixture() boards.DetectedPorts {
	return boards.NewDetectedPorts(
		boards.DetectedPort{Port: serialPort, Boards: []boards.BoardIdentifier{uno}},
		boards.DetectedPort{Port: unknownPort},
	)
}

func TestNewPublishesEmptyList(t *testing.T) {
	p, _ := newTestProvider(t, boards.BoardsConfig{})

	current := p.Current()
	require.NotNil(t, current)
	assert.Equal(t, uint64(1), current.Sequence)
	assert.Equal(t, 0, p.BoardList().Len())
	assert.Equal(t, -1, p.BoardList().SelectedIndex())
}

func TestNewLoadsHistory(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewSQLiteHistoryStore(ctx, filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Put(ctx, unknownPort.Key(), mkr1000))

	p, err := New(ctx, store, streaming.NewStreamer(), boards.BoardsConfig{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, boards.BoardListHistory{unknownPort.Key(): mkr1000}, p.History())

	p.UpdateDetectedPorts(detectedFixture())

	list := p.BoardList()
	require.Equal(t, 2, list.Len())
	var inferred []boards.BoardListItem
	for _, item := range list.Items() {
		if item.IsInferred() {
			inferred = append(inferred, item)
		}
	}
	require.Len(t, inferred, 1)
	assert.Equal(t, boards.ItemTypeBoardSelect, inferred[0].Type)
	assert.Equal(t, &mkr1000, inferred[0].InferredBoard)
}

func TestUpdateDetectedPortsRepublishes(t *testing.T) {
	p, _ := newTestProvider(t, boards.BoardsConfig{})
	_, updates := p.Subscribe()

	first := <-updates
	assert.Equal(t, 0, first.List.Len())

	p.UpdateDetectedPorts(detectedFixture())

	select {
	case update := <-updates:
		assert.Equal(t, 2, update.List.Len())
		assert.NotEqual(t, first.Revision, update.Revision)
		assert.Equal(t, first.Sequence+1, update.Sequence)
	case <-time.After(time.Second):
		t.Fatal("no update after UpdateDetectedPorts")
	}
}

func TestSelectRemembersUndetectedBoard(t *testing.T) {
	ctx := context.Background()
	p, store := newTestProvider(t, boards.BoardsConfig{})
	p.UpdateDetectedPorts(detectedFixture())

	id := unknownPort.Identifier()
	require.NoError(t, p.Select(ctx, boards.BoardsConfig{SelectedBoard: &mkr1000, SelectedPort: &id}))

	entry, err := store.Get(ctx, unknownPort.Key())
	require.NoError(t, err)
	assert.Equal(t, mkr1000, entry.Board)

	list := p.BoardList()
	require.GreaterOrEqual(t, list.SelectedIndex(), 0)
	selected := list.Item(list.SelectedIndex())
	assert.Equal(t, unknownPort.Key(), selected.Port.Key())
	assert.Equal(t, &mkr1000, selected.InferredBoard)
}

func TestSelectDetectedBoardForgetsHistory(t *testing.T) {
	ctx := context.Background()
	p, store := newTestProvider(t, boards.BoardsConfig{})
	p.UpdateDetectedPorts(detectedFixture())

	id := serialPort.Identifier()
	require.NoError(t, p.Select(ctx, boards.BoardsConfig{SelectedBoard: &mkr1000, SelectedPort: &id}))
	_, err := store.Get(ctx, serialPort.Key())
	require.NoError(t, err)

	// Selecting the board discovery reports on the port drops the override.
	require.NoError(t, p.Select(ctx, boards.BoardsConfig{SelectedBoard: &uno, SelectedPort: &id}))
	_, err = store.Get(ctx, serialPort.Key())
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Empty(t, p.History())

	list := p.BoardList()
	require.GreaterOrEqual(t, list.SelectedIndex(), 0)
	assert.Equal(t, boards.ItemTypeDetected, list.Item(list.SelectedIndex()).Type)
}

func TestSelectWithoutDetectedPortKeepsHistory(t *testing.T) {
	ctx := context.Background()
	p, store := newTestProvider(t, boards.BoardsConfig{})

	id := boards.PortIdentifier{Protocol: "serial", Address: "/dev/ttyACM9"}
	require.NoError(t, p.Select(ctx, boards.BoardsConfig{SelectedBoard: &uno, SelectedPort: &id}))

	entries, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, &uno, p.BoardsConfig().SelectedBoard)
	assert.Equal(t, -1, p.BoardList().SelectedIndex())
}

func TestBoardsConfigIsCopied(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProvider(t, boards.BoardsConfig{})

	board := uno
	require.NoError(t, p.Select(ctx, boards.BoardsConfig{SelectedBoard: &board}))
	board.Name = "changed"

	assert.Equal(t, "Arduino Uno", p.BoardsConfig().SelectedBoard.Name)
}

func TestForgetPort(t *testing.T) {
	ctx := context.Background()
	p, _ := newTestProvider(t, boards.BoardsConfig{})
	p.UpdateDetectedPorts(detectedFixture())

	id := unknownPort.Identifier()
	require.NoError(t, p.Select(ctx, boards.BoardsConfig{SelectedBoard: &mkr1000, SelectedPort: &id}))

	entries, err := p.HistoryEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	require.NoError(t, p.ForgetPort(ctx, unknownPort.Key()))
	assert.Empty(t, p.History())
	assert.ErrorIs(t, p.ForgetPort(ctx, unknownPort.Key()), storage.ErrNotFound)

	for _, item := range p.BoardList().Items() {
		assert.False(t, item.IsInferred())
	}
}

func TestDetectedPort(t *testing.T) {
	p, _ := newTestProvider(t, boards.BoardsConfig{})
	p.UpdateDetectedPorts(detectedFixture())

	dp, err := p.DetectedPort(serialPort.Identifier())
	require.NoError(t, err)
	assert.Equal(t, []boards.BoardIdentifier{uno}, dp.Boards)

	_, err = p.DetectedPort(boards.PortIdentifier{Protocol: "network", Address: "10.0.0.1"})
	assert.ErrorIs(t, err, ErrUnknownPort)
}

func TestBoardsConfigFromSelection(t *testing.T) {
	tests := []struct {
		name     string
		input    config.SelectionConfig
		expected boards.BoardsConfig
	}{
		{
			name:     "empty",
			input:    config.SelectionConfig{},
			expected: boards.BoardsConfig{},
		},
		{
			name: "board and port",
			input: config.SelectionConfig{
				Board: &config.SelectedBoardConfig{Name: "Arduino Uno", FQBN: "arduino:avr:uno"},
				Port:  &config.SelectedPortConfig{Protocol: "serial", Address: "/dev/ttyACM0"},
			},
			expected: boards.BoardsConfig{
				SelectedBoard: &uno,
				SelectedPort:  &boards.PortIdentifier{Protocol: "serial", Address: "/dev/ttyACM0"},
			},
		},
		{
			name: "board without name falls back to fqbn",
			input: config.SelectionConfig{
				Board: &config.SelectedBoardConfig{FQBN: "arduino:avr:uno"},
				Port:  &config.SelectedPortConfig{Protocol: "serial"},
			},
			expected: boards.BoardsConfig{
				SelectedBoard: &boards.BoardIdentifier{Name: "arduino:avr:uno", FQBN: "arduino:avr:uno"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, BoardsConfigFromSelection(tt.input))
		})
	}
}

package system

import (
	"context"
	"fmt"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/KevinKickass/OpenBoardCore/internal/boards"
	"github.com/KevinKickass/OpenBoardCore/internal/catalog"
	"github.com/KevinKickass/OpenBoardCore/internal/config"
	"github.com/KevinKickass/OpenBoardCore/internal/discovery"
	"github.com/KevinKickass/OpenBoardCore/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type switchableSource struct {
	mu    sync.Mutex
	ports []boards.DetectedPort
}

func (s *switchableSource) Name() string { return "test" }

func (s *switchableSource) Scan(ctx context.Context) ([]boards.DetectedPort, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]boards.DetectedPort(nil), s.ports...), nil
}

func (s *switchableSource) set(ports ...boards.DetectedPort) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ports = ports
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.HTTPPort = 0
	cfg.Server.GRPCPort = 0
	cfg.Discovery.Interval = time.Hour
	cfg.Discovery.MDNS.Enabled = false
	cfg.Catalog.SearchPaths = []string{filepath.Join("..", "catalog", "testdata", "boards")}
	return cfg
}

func newTestManager(t *testing.T, source discovery.Source) *LifecycleManager {
	t.Helper()

	ctx := context.Background()
	logger := zaptest.NewLogger(t)
	cfg := testConfig()

	store, err := storage.NewSQLiteHistoryStore(ctx, filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cat, err := catalog.Load(cfg.Catalog.SearchPaths, logger)
	require.NoError(t, err)

	lm, err := newLifecycleManager(ctx, store, cfg, cat, []discovery.Source{source}, logger)
	require.NoError(t, err)
	return lm
}

func TestLifecycleStartAndShutdown(t *testing.T) {
	source := &switchableSource{}
	source.set(boards.DetectedPort{Port: boards.Port{
		Protocol:   "serial",
		Address:    "/dev/ttyACM0",
		Properties: map[string]string{"vid": "0x2341", "pid": "0x0043"},
	}})

	lm := newTestManager(t, source)
	assert.Equal(t, "INITIALIZING", lm.GetCurrentStatus().State)

	require.NoError(t, lm.Start())

	status := lm.GetCurrentStatus()
	assert.Equal(t, "RUNNING", status.State)
	assert.True(t, status.WatcherRunning)
	assert.Equal(t, 1, status.DetectedPorts)
	assert.Greater(t, status.CatalogBoards, 0)

	// The catalog recognized the Uno by its USB ids.
	list := lm.Provider().BoardList()
	require.Equal(t, 1, list.Len())
	require.NotNil(t, list.Item(0).Board)
	assert.Equal(t, "arduino:avr:uno", list.Item(0).Board.FQBN)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, lm.Shutdown(ctx))

	assert.Equal(t, "STOPPED", lm.GetCurrentStatus().State)
	assert.False(t, lm.GetCurrentStatus().WatcherRunning)
	select {
	case <-lm.Done():
	default:
		t.Fatal("Done not closed after Shutdown")
	}

	// idempotent
	require.NoError(t, lm.Shutdown(ctx))
}

func TestLifecycleRescan(t *testing.T) {
	source := &switchableSource{}
	lm := newTestManager(t, source)

	_, err := lm.Rescan(context.Background())
	assert.Error(t, err)

	require.NoError(t, lm.Start())
	defer lm.Shutdown(context.Background())

	changed, err := lm.Rescan(context.Background())
	require.NoError(t, err)
	assert.False(t, changed)

	source.set(boards.DetectedPort{Port: boards.Port{Protocol: "network", Address: "192.168.0.10"}})
	changed, err = lm.Rescan(context.Background())
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1, lm.Provider().BoardList().Len())
}

func TestLifecycleGRPCHealth(t *testing.T) {
	lm := newTestManager(t, &switchableSource{})
	require.NoError(t, lm.Start())

	port := lm.grpcAddr.(*net.TCPAddr).Port
	conn, err := grpc.NewClient(fmt.Sprintf("127.0.0.1:%d", port),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	client := healthpb.NewHealthClient(conn)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: HealthService})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)

	require.NoError(t, lm.Shutdown(ctx))
}

func TestValidateTransition(t *testing.T) {
	tests := []struct {
		from, to SystemState
		valid    bool
	}{
		{StateInitializing, StateRunning, true},
		{StateInitializing, StateStopping, true},
		{StateRunning, StateStopping, true},
		{StateRunning, StateInitializing, false},
		{StateStopping, StateStopped, true},
		{StateStopped, StateRunning, false},
		{StateStopped, StateInitializing, true},
		{StateError, StateStopped, true},
		{SystemState(42), StateRunning, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s->%s", tt.from, tt.to), func(t *testing.T) {
			err := ValidateTransition(tt.from, tt.to)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestSystemStateString(t *testing.T) {
	assert.Equal(t, "RUNNING", StateRunning.String())
	assert.Equal(t, "UNKNOWN", SystemState(42).String())
}

package system

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/KevinKickass/OpenBoardCore/internal/api/rest"
	"github.com/KevinKickass/OpenBoardCore/internal/api/websocket"
	"github.com/KevinKickass/OpenBoardCore/internal/catalog"
	"github.com/KevinKickass/OpenBoardCore/internal/config"
	"github.com/KevinKickass/OpenBoardCore/internal/discovery"
	"github.com/KevinKickass/OpenBoardCore/internal/interfaces"
	"github.com/KevinKickass/OpenBoardCore/internal/provider"
	"github.com/KevinKickass/OpenBoardCore/internal/storage"
	"github.com/KevinKickass/OpenBoardCore/internal/streaming"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthService is the gRPC health service name that tracks the board list.
const HealthService = "openboardcore.BoardList"

var _ interfaces.LifecycleManager = (*LifecycleManager)(nil)

type LifecycleManager struct {
	config   *config.Config
	catalog  *catalog.Catalog
	streamer *streaming.Streamer
	provider *provider.Provider
	watcher  *discovery.Watcher
	wsHub    *websocket.Hub
	logger   *zap.Logger

	restServer   *rest.Server
	grpcServer   *grpc.Server
	healthServer *health.Server
	grpcAddr     net.Addr

	runCancel context.CancelFunc

	stateMu      sync.RWMutex
	currentState SystemState

	shutdownChan chan struct{}
	shutdownOnce sync.Once
}

// NewLifecycleManager loads the catalog and the history and wires discovery to
// the board list provider. Nothing runs until Start.
func NewLifecycleManager(ctx context.Context, store storage.HistoryStore, cfg *config.Config, logger *zap.Logger) (*LifecycleManager, error) {
	cat, err := catalog.Load(cfg.Catalog.SearchPaths, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	return newLifecycleManager(ctx, store, cfg, cat, discovery.NewSources(cfg.Discovery, cat, logger), logger)
}

func newLifecycleManager(
	ctx context.Context,
	store storage.HistoryStore,
	cfg *config.Config,
	cat *catalog.Catalog,
	sources []discovery.Source,
	logger *zap.Logger,
) (*LifecycleManager, error) {
	streamer := streaming.NewStreamer()

	initial := provider.BoardsConfigFromSelection(cfg.Selection)
	prov, err := provider.New(ctx, store, streamer, initial, logger)
	if err != nil {
		return nil, err
	}

	watcher := discovery.NewWatcher(sources, cat, cfg.Discovery.Interval, cfg.Discovery.ScanTimeout, logger)
	watcher.OnChange(prov.UpdateDetectedPorts)

	return &LifecycleManager{
		config:       cfg,
		catalog:      cat,
		streamer:     streamer,
		provider:     prov,
		watcher:      watcher,
		wsHub:        websocket.NewHub(logger, streamer),
		logger:       logger,
		currentState: StateInitializing,
		shutdownChan: make(chan struct{}),
	}, nil
}

func (lm *LifecycleManager) Config() *config.Config       { return lm.config }
func (lm *LifecycleManager) Provider() *provider.Provider { return lm.provider }
func (lm *LifecycleManager) Catalog() *catalog.Catalog    { return lm.catalog }

// Done is closed once Shutdown has finished.
func (lm *LifecycleManager) Done() <-chan struct{} {
	return lm.shutdownChan
}

// Start runs a first discovery scan, then starts polling and the servers.
func (lm *LifecycleManager) Start() error {
	lm.logger.Info("Starting OpenBoardCore",
		zap.Int("catalog_boards", lm.catalog.Len()))

	runCtx, cancel := context.WithCancel(context.Background())
	lm.runCancel = cancel

	go lm.wsHub.Run(runCtx)
	_, updates := lm.streamer.Subscribe()
	go lm.wsHub.Forward(runCtx, updates)

	if err := lm.watcher.Start(); err != nil {
		lm.setError(fmt.Errorf("failed to start discovery: %w", err))
		return err
	}

	if err := lm.startGRPCServer(); err != nil {
		lm.setError(fmt.Errorf("failed to start gRPC: %w", err))
		return err
	}

	if err := lm.startRESTServer(); err != nil {
		lm.setError(fmt.Errorf("failed to start REST API: %w", err))
		return err
	}

	lm.setState(StateRunning)
	lm.healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	lm.healthServer.SetServingStatus(HealthService, healthpb.HealthCheckResponse_SERVING)
	lm.broadcastStatus()

	lm.logger.Info("System started successfully",
		zap.Int("grpc_port", lm.config.Server.GRPCPort),
		zap.Int("http_port", lm.config.Server.HTTPPort),
		zap.Int("detected_ports", len(lm.watcher.Snapshot())))

	return nil
}

// Shutdown gracefully shuts down the system
func (lm *LifecycleManager) Shutdown(ctx context.Context) error {
	var shutdownErr error

	lm.shutdownOnce.Do(func() {
		lm.logger.Info("Shutting down system")

		lm.setState(StateStopping)
		lm.broadcastStatus()

		shutdownErr = lm.gracefulShutdown(ctx)

		if lm.runCancel != nil {
			lm.runCancel()
		}
		lm.streamer.Close()

		lm.setState(StateStopped)
		close(lm.shutdownChan)
	})

	return shutdownErr
}

func (lm *LifecycleManager) gracefulShutdown(ctx context.Context) error {
	var wg sync.WaitGroup
	errChan := make(chan error, 3)

	if lm.healthServer != nil {
		lm.healthServer.Shutdown()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		lm.watcher.Stop()
	}()

	if lm.restServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			if err := lm.restServer.Shutdown(shutdownCtx); err != nil {
				errChan <- fmt.Errorf("rest api shutdown failed: %w", err)
			}
		}()
	}

	if lm.grpcServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lm.logger.Info("Stopping gRPC server")
			lm.grpcServer.GracefulStop()
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		select {
		case err := <-errChan:
			return err
		default:
		}
		lm.logger.Info("Graceful shutdown completed")
		return nil
	case <-ctx.Done():
		lm.logger.Warn("Shutdown timeout, forcing stop")
		if lm.grpcServer != nil {
			lm.grpcServer.Stop()
		}
		return fmt.Errorf("shutdown timeout exceeded")
	}
}

func (lm *LifecycleManager) startGRPCServer() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", lm.config.Server.GRPCPort))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	lm.grpcAddr = lis.Addr()

	lm.grpcServer = grpc.NewServer()
	lm.healthServer = health.NewServer()
	lm.healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	lm.healthServer.SetServingStatus(HealthService, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(lm.grpcServer, lm.healthServer)

	go func() {
		lm.logger.Info("gRPC server listening",
			zap.String("address", lis.Addr().String()),
			zap.String("services", "grpc.health.v1.Health"))
		if err := lm.grpcServer.Serve(lis); err != nil {
			lm.logger.Error("gRPC server failed", zap.Error(err))
		}
	}()

	return nil
}

func (lm *LifecycleManager) startRESTServer() error {
	lm.restServer = rest.NewServer(lm.config, lm, lm.logger, lm.wsHub)
	return lm.restServer.Start()
}

// Rescan runs one discovery scan outside the polling schedule.
func (lm *LifecycleManager) Rescan(ctx context.Context) (bool, error) {
	if state := lm.state(); state != StateRunning {
		return false, fmt.Errorf("cannot rescan: system is %s", state)
	}

	_, changed := lm.watcher.Scan(ctx)
	if changed {
		lm.broadcastStatus()
	}
	return changed, nil
}

func (lm *LifecycleManager) state() SystemState {
	lm.stateMu.RLock()
	defer lm.stateMu.RUnlock()
	return lm.currentState
}

func (lm *LifecycleManager) setState(state SystemState) {
	lm.stateMu.Lock()
	defer lm.stateMu.Unlock()

	if err := ValidateTransition(lm.currentState, state); err != nil {
		lm.logger.Warn("Ignoring state change", zap.Error(err))
		return
	}
	lm.currentState = state
}

func (lm *LifecycleManager) setError(err error) {
	lm.logger.Error("System error", zap.Error(err))
	lm.setState(StateError)
	lm.broadcastStatus()
}

func (lm *LifecycleManager) broadcastStatus() {
	lm.wsHub.Broadcast(websocket.NewMessage(websocket.MessageTypeSystemStatus, lm.GetCurrentStatus()))
}

// GetCurrentStatus returns current system status (Interface implementation)
func (lm *LifecycleManager) GetCurrentStatus() interfaces.SystemStatus {
	current := lm.provider.Current()

	return interfaces.SystemStatus{
		State:          lm.state().String(),
		Revision:       current.Revision.String(),
		DetectedPorts:  len(current.List.DetectedPorts()),
		BoardListItems: current.List.Len(),
		CatalogBoards:  lm.catalog.Len(),
		Subscribers:    lm.wsHub.GetClientCount(),
		WatcherRunning: lm.watcher.IsRunning(),
	}
}

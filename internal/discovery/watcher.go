package discovery

import (
	"context"
	"maps"
	"reflect"
	"sync"
	"time"

	"github.com/KevinKickass/OpenBoardCore/internal/boards"
	"go.uber.org/zap"
)

// Watcher polls its sources and publishes a DetectedPorts snapshot whenever
// the set of ports or the boards on them change.
type Watcher struct {
	sources     []Source
	catalog     Catalog
	interval    time.Duration
	scanTimeout time.Duration
	logger      *zap.Logger

	onChange func(boards.DetectedPorts)

	stopChan chan struct{}
	wg       sync.WaitGroup
	running  bool
	mu       sync.Mutex

	scanMu   sync.Mutex
	lastScan map[string][]boards.DetectedPort

	snapshotMu sync.RWMutex
	snapshot   boards.DetectedPorts
	scanned    bool
}

// NewWatcher creates a watcher. cat may be nil; ports then carry only the
// boards their source reported.
func NewWatcher(sources []Source, cat Catalog, interval, scanTimeout time.Duration, logger *zap.Logger) *Watcher {
	if scanTimeout <= 0 || scanTimeout > interval {
		scanTimeout = interval
	}
	return &Watcher{
		sources:     sources,
		catalog:     cat,
		interval:    interval,
		scanTimeout: scanTimeout,
		logger:      logger,
		lastScan:    make(map[string][]boards.DetectedPort),
		snapshot:    make(boards.DetectedPorts),
	}
}

// OnChange registers the snapshot callback. Call it before Start.
func (w *Watcher) OnChange(fn func(boards.DetectedPorts)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = fn
}

// Start runs a first scan synchronously, then polls every interval.
func (w *Watcher) Start() error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopChan = make(chan struct{})
	w.mu.Unlock()

	w.Scan(context.Background())

	w.wg.Add(1)
	go w.pollLoop()

	w.logger.Info("Discovery watcher started",
		zap.Int("sources", len(w.sources)),
		zap.Duration("interval", w.interval))

	return nil
}

// Stop stops polling and waits for a running scan to finish.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	stopChan := w.stopChan
	w.mu.Unlock()

	close(stopChan)
	w.wg.Wait()

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("Discovery watcher stopped")
}

func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Snapshot returns a copy of the latest snapshot.
func (w *Watcher) Snapshot() boards.DetectedPorts {
	w.snapshotMu.RLock()
	defer w.snapshotMu.RUnlock()
	return maps.Clone(w.snapshot)
}

func (w *Watcher) pollLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.Scan(context.Background())
		}
	}
}

// Scan queries every source once, in parallel, and merges the results. It
// returns the new snapshot and whether it differs from the previous one; the
// OnChange callback is invoked only in that case.
func (w *Watcher) Scan(ctx context.Context) (boards.DetectedPorts, bool) {
	w.scanMu.Lock()
	defer w.scanMu.Unlock()

	results := make([]scanResult, len(w.sources))
	var wg sync.WaitGroup
	for i, source := range w.sources {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = w.scanSource(ctx, source)
		}()
	}
	wg.Wait()

	merged := make([][]boards.DetectedPort, len(w.sources))
	for i, result := range results {
		name := w.sources[i].Name()
		if result.err != nil {
			w.logger.Warn("Discovery scan failed, keeping previous ports",
				zap.String("source", name),
				zap.Duration("elapsed", result.elapsed),
				zap.Error(result.err))
			merged[i] = w.lastScan[name]
			continue
		}
		w.lastScan[name] = result.ports
		merged[i] = result.ports
	}

	snapshot := make(boards.DetectedPorts)
	for _, ports := range merged {
		for _, dp := range ports {
			key := dp.Port.Key()
			if _, exists := snapshot[key]; exists {
				continue
			}
			if len(dp.Boards) == 0 && w.catalog != nil {
				dp.Boards = w.catalog.Identify(dp.Port)
			}
			snapshot[key] = dp
		}
	}

	w.snapshotMu.Lock()
	changed := !w.scanned || !reflect.DeepEqual(w.snapshot, snapshot)
	w.snapshot = snapshot
	w.scanned = true
	w.snapshotMu.Unlock()

	if !changed {
		return maps.Clone(snapshot), false
	}

	w.logger.Info("Detected ports changed", zap.Int("ports", len(snapshot)))

	w.mu.Lock()
	onChange := w.onChange
	w.mu.Unlock()
	if onChange != nil {
		onChange(maps.Clone(snapshot))
	}

	return maps.Clone(snapshot), true
}

type scanResult struct {
	ports   []boards.DetectedPort
	err     error
	elapsed time.Duration
}

func (w *Watcher) scanSource(ctx context.Context, source Source) scanResult {
	ctx, cancel := context.WithTimeout(ctx, w.scanTimeout)
	defer cancel()

	start := time.Now()
	ports, err := source.Scan(ctx)
	return scanResult{ports: ports, err: err, elapsed: time.Since(start)}
}

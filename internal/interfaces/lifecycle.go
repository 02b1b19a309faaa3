package interfaces

import (
	"context"

	"github.com/KevinKickass/OpenBoardCore/internal/catalog"
	"github.com/KevinKickass/OpenBoardCore/internal/config"
	"github.com/KevinKickass/OpenBoardCore/internal/provider"
)

// SystemStatus represents the current system state
type SystemStatus struct {
	State          string `json:"state"`
	Revision       string `json:"revision,omitempty"`
	DetectedPorts  int    `json:"detected_ports"`
	BoardListItems int    `json:"board_list_items"`
	CatalogBoards  int    `json:"catalog_boards"`
	Subscribers    int    `json:"subscribers"`
	WatcherRunning bool   `json:"watcher_running"`
}

type LifecycleManager interface {
	Config() *config.Config
	Provider() *provider.Provider
	Catalog() *catalog.Catalog
	GetCurrentStatus() SystemStatus
	// Rescan runs one discovery scan and reports whether the detected ports changed.
	Rescan(ctx context.Context) (bool, error)
	Shutdown(ctx context.Context) error
}

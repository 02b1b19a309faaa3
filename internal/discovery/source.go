// Package discovery finds ports and reports them as DetectedPorts snapshots.
package discovery

import (
	"context"
	"errors"
	"strings"

	"github.com/KevinKickass/OpenBoardCore/internal/boards"
	"github.com/KevinKickass/OpenBoardCore/internal/catalog"
	"github.com/KevinKickass/OpenBoardCore/internal/config"
	"go.uber.org/zap"
)

// ErrSourceUnavailable is returned by a source that cannot scan at all
// (no multicast socket, no USB access, ...).
var ErrSourceUnavailable = errors.New("discovery source unavailable")

// Source is a discovery backend. Scan returns the ports currently visible to it.
type Source interface {
	Name() string
	Scan(ctx context.Context) ([]boards.DetectedPort, error)
}

// Catalog is the part of the board catalog discovery uses.
type Catalog interface {
	Identify(port boards.Port) []boards.BoardIdentifier
	ByBoardID(id string) (*catalog.BoardDefinition, error)
	ByFQBN(fqbn string) (*catalog.BoardDefinition, error)
	HasUSB(vid, pid string) bool
}

type funcSource struct {
	name string
	scan func(ctx context.Context) ([]boards.DetectedPort, error)
}

// NewFuncSource adapts a function to the Source interface.
func NewFuncSource(name string, scan func(ctx context.Context) ([]boards.DetectedPort, error)) Source {
	return &funcSource{name: name, scan: scan}
}

func (s *funcSource) Name() string { return s.name }

func (s *funcSource) Scan(ctx context.Context) ([]boards.DetectedPort, error) {
	return s.scan(ctx)
}

// NewSources builds the enabled sources in merge order: static ports first, so
// their hints win over what mDNS or USB report for the same port.
func NewSources(cfg config.DiscoveryConfig, cat Catalog, logger *zap.Logger) []Source {
	var sources []Source
	if len(cfg.StaticPorts) > 0 {
		sources = append(sources, NewStaticSource(cfg.StaticPorts, cat, logger))
	}
	if cfg.MDNS.Enabled {
		sources = append(sources, NewMDNSSource(cfg.MDNS, nil, logger))
	}
	if cfg.USB.Enabled {
		sources = append(sources, NewUSBSource(cfg.USB, cat, nil, logger))
	}
	return sources
}

func defaultProtocolLabel(protocol string) string {
	switch protocol {
	case boards.ProtocolSerial:
		return "Serial Port"
	case boards.ProtocolNetwork:
		return "Network Port"
	case ProtocolUSB:
		return "USB"
	default:
		return strings.ToUpper(protocol)
	}
}

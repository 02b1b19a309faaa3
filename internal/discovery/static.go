package discovery

import (
	"context"
	"maps"

	"github.com/KevinKickass/OpenBoardCore/internal/boards"
	"github.com/KevinKickass/OpenBoardCore/internal/config"
	"go.uber.org/zap"
)

// StaticSource reports the ports declared in the configuration.
type StaticSource struct {
	ports []boards.DetectedPort
}

// NewStaticSource resolves the board hints of every configured port. A hint
// that names a board missing from the catalog is logged and ignored, except
// an FQBN, which is kept as a board known by its FQBN only.
func NewStaticSource(ports []config.StaticPortConfig, cat Catalog, logger *zap.Logger) *StaticSource {
	s := &StaticSource{ports: make([]boards.DetectedPort, 0, len(ports))}

	for _, p := range ports {
		port := boards.Port{
			Protocol:      p.Protocol,
			Address:       p.Address,
			AddressLabel:  p.Label,
			ProtocolLabel: p.ProtocolLabel,
			Properties:    maps.Clone(p.Properties),
		}
		if port.AddressLabel == "" {
			port.AddressLabel = p.Address
		}
		if port.ProtocolLabel == "" {
			port.ProtocolLabel = defaultProtocolLabel(p.Protocol)
		}

		dp := boards.DetectedPort{Port: port}

		switch {
		case p.FQBN != "":
			board := boards.BoardIdentifier{Name: p.FQBN, FQBN: p.FQBN}
			if cat != nil {
				if def, err := cat.ByFQBN(p.FQBN); err == nil {
					board.Name = def.Board.Name
				} else {
					logger.Warn("Static port board not installed",
						zap.String("port", port.Key()),
						zap.String("fqbn", p.FQBN))
				}
			}
			dp.Boards = []boards.BoardIdentifier{board}

		case p.BoardID != "":
			if cat == nil {
				break
			}
			def, err := cat.ByBoardID(p.BoardID)
			if err != nil {
				logger.Warn("Static port board not installed",
					zap.String("port", port.Key()),
					zap.String("board_id", p.BoardID))
				break
			}
			dp.Boards = []boards.BoardIdentifier{def.Identifier()}
		}

		s.ports = append(s.ports, dp)
	}

	return s
}

func (s *StaticSource) Name() string { return "static" }

func (s *StaticSource) Scan(ctx context.Context) ([]boards.DetectedPort, error) {
	ports := make([]boards.DetectedPort, len(s.ports))
	for i, dp := range s.ports {
		dp.Port.Properties = maps.Clone(dp.Port.Properties)
		dp.Boards = append([]boards.BoardIdentifier(nil), dp.Boards...)
		ports[i] = dp
	}
	return ports, nil
}

package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/KevinKickass/OpenBoardCore/internal/boards"
	"github.com/KevinKickass/OpenBoardCore/internal/config"
	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"
)

// MDNSResolver browses DNS-SD services. Browse sends every entry it finds to
// entries and returns when ctx is done; it never closes entries.
type MDNSResolver interface {
	Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error
}

// zeroconfResolver opens a fresh zeroconf resolver per browse. The library
// shuts its client down once the browse context ends.
type zeroconfResolver struct{}

func (zeroconfResolver) Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	found := make(chan *zeroconf.ServiceEntry, 32)
	if err := resolver.Browse(ctx, service, domain, found); err != nil {
		return fmt.Errorf("failed to browse %s: %w", service, err)
	}

	for {
		select {
		case entry, ok := <-found:
			if !ok {
				return nil
			}
			select {
			case entries <- entry:
			case <-ctx.Done():
				return nil
			}
		case <-ctx.Done():
			return nil
		}
	}
}

// MDNSSource reports boards announcing themselves over mDNS as network ports.
type MDNSSource struct {
	resolver MDNSResolver
	service  string
	domain   string
	logger   *zap.Logger
}

// NewMDNSSource creates the source. A nil resolver selects the zeroconf one.
func NewMDNSSource(cfg config.MDNSConfig, resolver MDNSResolver, logger *zap.Logger) *MDNSSource {
	if resolver == nil {
		resolver = zeroconfResolver{}
	}
	service := cfg.Service
	if service == "" {
		service = "_arduino._tcp"
	}
	domain := cfg.Domain
	if domain == "" {
		domain = "local."
	}

	return &MDNSSource{
		resolver: resolver,
		service:  service,
		domain:   domain,
		logger:   logger,
	}
}

func (s *MDNSSource) Name() string { return "mdns" }

// Scan browses until ctx is done.
func (s *MDNSSource) Scan(ctx context.Context) ([]boards.DetectedPort, error) {
	entries := make(chan *zeroconf.ServiceEntry)
	errCh := make(chan error, 1)

	go func() {
		defer close(entries)
		errCh <- s.resolver.Browse(ctx, s.service, s.domain, entries)
	}()

	seen := make(map[string]bool)
	ports := make([]boards.DetectedPort, 0)
	for entry := range entries {
		port, ok := entryToPort(entry)
		if !ok {
			s.logger.Debug("Ignoring mDNS entry without address", zap.String("instance", entry.Instance))
			continue
		}
		if seen[port.Key()] {
			continue
		}
		seen[port.Key()] = true
		ports = append(ports, boards.DetectedPort{Port: port})
	}

	if err := <-errCh; err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		return nil, err
	}
	return ports, nil
}

// entryToPort maps a service entry to a network port: the first IPv4 address
// (else the first IPv6 one), the TXT pairs plus hostname and port as properties.
func entryToPort(entry *zeroconf.ServiceEntry) (boards.Port, bool) {
	var ip net.IP
	switch {
	case len(entry.AddrIPv4) > 0:
		ip = entry.AddrIPv4[0]
	case len(entry.AddrIPv6) > 0:
		ip = entry.AddrIPv6[0]
	default:
		return boards.Port{}, false
	}
	address := ip.String()

	properties := parseTXT(entry.Text)
	properties["hostname"] = strings.TrimSuffix(entry.HostName, ".")
	properties["port"] = strconv.Itoa(entry.Port)

	return boards.Port{
		Address:       address,
		AddressLabel:  fmt.Sprintf("%s at %s", entry.Instance, address),
		Protocol:      boards.ProtocolNetwork,
		ProtocolLabel: "Network Port",
		Properties:    properties,
	}, true
}

// parseTXT splits "key=value" records. A record without "=" is a flag with an
// empty value.
func parseTXT(records []string) map[string]string {
	txt := make(map[string]string, len(records)+2)
	for _, record := range records {
		key, value, _ := strings.Cut(record, "=")
		if key == "" {
			continue
		}
		txt[key] = value
	}
	return txt
}

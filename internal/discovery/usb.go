package discovery

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/KevinKickass/OpenBoardCore/internal/boards"
	"github.com/KevinKickass/OpenBoardCore/internal/config"
	"github.com/google/gousb"
	"go.uber.org/zap"
)

// ProtocolUSB is the protocol of ports reported by the USB source.
const ProtocolUSB = "usb"

// USBDevice is the part of a USB device descriptor the source needs.
type USBDevice struct {
	Bus       int
	Port      int
	Path      []int
	VendorID  uint16
	ProductID uint16
}

// Address returns the sysfs-style location "<bus>-<port>[.<port>...]".
func (d USBDevice) Address() string {
	path := d.Path
	if len(path) == 0 {
		path = []int{d.Port}
	}
	parts := make([]string, len(path))
	for i, p := range path {
		parts[i] = strconv.Itoa(p)
	}
	return fmt.Sprintf("%d-%s", d.Bus, strings.Join(parts, "."))
}

// USBEnumerator lists the attached USB devices.
type USBEnumerator func(ctx context.Context) ([]USBDevice, error)

// EnumerateUSB lists devices with libusb. Devices are only described, never opened.
func EnumerateUSB(ctx context.Context) ([]USBDevice, error) {
	var devices []USBDevice

	usb := gousb.NewContext()
	defer usb.Close()

	_, err := usb.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}

		devices = append(devices, USBDevice{
			Bus:       desc.Bus,
			Port:      desc.Port,
			Path:      append([]int(nil), desc.Path...),
			VendorID:  uint16(desc.Vendor),
			ProductID: uint16(desc.Product),
		})
		return false
	})
	if err != nil && err != gousb.ErrorAccess {
		return nil, fmt.Errorf("%w: usb: %v", ErrSourceUnavailable, err)
	}

	return devices, nil
}

// USBSource reports USB devices as ports of the "usb" protocol. Only devices
// with a VID/PID known to the catalog are reported unless allDevices is set.
type USBSource struct {
	catalog    Catalog
	allDevices bool
	enumerate  USBEnumerator
	logger     *zap.Logger
}

// NewUSBSource creates the source. A nil enumerate selects EnumerateUSB.
func NewUSBSource(cfg config.USBConfig, cat Catalog, enumerate USBEnumerator, logger *zap.Logger) *USBSource {
	if enumerate == nil {
		enumerate = EnumerateUSB
	}
	return &USBSource{
		catalog:    cat,
		allDevices: cfg.AllDevices,
		enumerate:  enumerate,
		logger:     logger,
	}
}

func (s *USBSource) Name() string { return "usb" }

func (s *USBSource) Scan(ctx context.Context) ([]boards.DetectedPort, error) {
	devices, err := s.enumerate(ctx)
	if err != nil {
		return nil, err
	}

	ports := make([]boards.DetectedPort, 0, len(devices))
	for _, d := range devices {
		vid := fmt.Sprintf("0x%04x", d.VendorID)
		pid := fmt.Sprintf("0x%04x", d.ProductID)

		known := s.catalog != nil && s.catalog.HasUSB(vid, pid)
		if !known && !s.allDevices {
			continue
		}

		ports = append(ports, boards.DetectedPort{Port: boards.Port{
			Address:       d.Address(),
			AddressLabel:  d.Address(),
			Protocol:      ProtocolUSB,
			ProtocolLabel: "USB",
			Properties:    map[string]string{"vid": vid, "pid": pid},
			HardwareID:    fmt.Sprintf("%04X:%04X", d.VendorID, d.ProductID),
		}})
	}

	s.logger.Debug("USB scan finished",
		zap.Int("devices", len(devices)),
		zap.Int("ports", len(ports)))

	return ports, nil
}

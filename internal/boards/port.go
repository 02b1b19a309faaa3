// Package boards reconciles detected ports, known boards and the user's
// selection into a sorted, queryable board list.
package boards

import "fmt"

// Well-known port protocols. Any other value is treated as a third-party protocol.
const (
	ProtocolSerial  = "serial"
	ProtocolNetwork = "network"
)

// PortIdentifier is the identity-only projection of a Port.
type PortIdentifier struct {
	Protocol string `json:"protocol"`
	Address  string `json:"address"`
}

// Port is a hardware or network communication endpoint reported by discovery.
type Port struct {
	Address       string            `json:"address"`
	AddressLabel  string            `json:"address_label"`
	Protocol      string            `json:"protocol"`
	ProtocolLabel string            `json:"protocol_label"`
	Properties    map[string]string `json:"properties,omitempty"`
	HardwareID    string            `json:"hardware_id,omitempty"`
}

// Identifier returns the (protocol, address) identity of the port.
func (p Port) Identifier() PortIdentifier {
	return PortIdentifier{Protocol: p.Protocol, Address: p.Address}
}

// Key returns the join key of the port. See KeyOf.
func (p Port) Key() string {
	return KeyOf(p.Identifier())
}

// Key returns the join key of the identifier. See KeyOf.
func (id PortIdentifier) Key() string {
	return KeyOf(id)
}

// KeyOf derives the deterministic key shared by detected ports, board list
// items and history entries. Only protocol and address take part in it.
func KeyOf(id PortIdentifier) string {
	return fmt.Sprintf("arduino+%s://%s", id.Protocol, id.Address)
}

// PortIdentifierEquals reports whether both identifiers point at the same port.
// Two nil identifiers are equal; a nil and a non-nil one are not.
func PortIdentifierEquals(left, right *PortIdentifier) bool {
	if left == nil || right == nil {
		return left == nil && right == nil
	}
	return left.Protocol == right.Protocol && left.Address == right.Address
}

// FindMatchingPortIndex returns the index of the first port whose identity
// equals the given one, or -1.
func FindMatchingPortIndex(id *PortIdentifier, ports []Port) int {
	if id == nil {
		return -1
	}
	for i := range ports {
		portID := ports[i].Identifier()
		if PortIdentifierEquals(id, &portID) {
			return i
		}
	}
	return -1
}

// protocolPriority orders serial before network before everything else.
func protocolPriority(protocol string) int {
	switch protocol {
	case ProtocolSerial:
		return 0
	case ProtocolNetwork:
		return 1
	default:
		return 2
	}
}

// DetectedPort is a live discovery result: a port and the boards the
// discovery backend believes are attached to it.
type DetectedPort struct {
	Port   Port              `json:"port"`
	Boards []BoardIdentifier `json:"boards,omitempty"`
}

// DetectedPorts maps KeyOf(port) to the detected port.
type DetectedPorts map[string]DetectedPort

// NewDetectedPorts indexes the given detected ports by their key. A later
// entry with the same key replaces an earlier one.
func NewDetectedPorts(ports ...DetectedPort) DetectedPorts {
	detected := make(DetectedPorts, len(ports))
	for _, dp := range ports {
		detected[dp.Port.Key()] = dp
	}
	return detected
}

// IsVisiblePort is the default UI filter: serial and network ports are always
// shown, ports of other protocols only when a board was recognized on them.
func IsVisiblePort(dp DetectedPort) bool {
	switch dp.Port.Protocol {
	case ProtocolSerial, ProtocolNetwork:
		return true
	default:
		return len(dp.Boards) > 0
	}
}

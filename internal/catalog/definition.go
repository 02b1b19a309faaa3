package catalog

import (
	"fmt"
	"strings"

	"github.com/KevinKickass/OpenBoardCore/internal/boards"
)

// BoardDefinition is the content of a board definition file.
type BoardDefinition struct {
	Board          BoardInfo                `json:"board"`
	Identification []USBIdentification      `json:"identification,omitempty"`
	ConfigOptions  []ConfigOptionDefinition `json:"config_options,omitempty"`
}

type BoardInfo struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	FQBN         string `json:"fqbn"`
	Vendor       string `json:"vendor"`
	Architecture string `json:"architecture"`
}

// USBIdentification is a VID/PID pair in "0x2341" notation.
type USBIdentification struct {
	VID string `json:"vid"`
	PID string `json:"pid"`
}

type ConfigOptionDefinition struct {
	Option string        `json:"option"`
	Label  string        `json:"label"`
	Values []ConfigValue `json:"values"`
}

type ConfigValue struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Selected bool   `json:"selected,omitempty"`
}

// Identifier returns the board identifier used by board lists.
func (d *BoardDefinition) Identifier() boards.BoardIdentifier {
	return boards.BoardIdentifier{Name: d.Board.Name, FQBN: d.Board.FQBN}
}

// check enforces the rules the JSON schema cannot express.
func (d *BoardDefinition) check() error {
	fqbn, err := boards.ParseFQBN(d.Board.FQBN)
	if err != nil {
		return err
	}
	if len(fqbn.Options) > 0 {
		return fmt.Errorf("fqbn %q must not carry config options", d.Board.FQBN)
	}
	if fqbn.Vendor != d.Board.Vendor || fqbn.Architecture != d.Board.Architecture || fqbn.BoardID != d.Board.ID {
		return fmt.Errorf("fqbn %q does not match %s:%s:%s",
			d.Board.FQBN, d.Board.Vendor, d.Board.Architecture, d.Board.ID)
	}

	seen := make(map[string]bool, len(d.ConfigOptions))
	for _, opt := range d.ConfigOptions {
		if seen[opt.Option] {
			return fmt.Errorf("duplicate config option %q", opt.Option)
		}
		seen[opt.Option] = true

		selected := 0
		for _, v := range opt.Values {
			if v.Selected {
				selected++
			}
		}
		if selected > 1 {
			return fmt.Errorf("config option %q has %d selected values", opt.Option, selected)
		}
	}
	return nil
}

// DefaultFQBN returns the board FQBN with the selected value of every config
// option appended. Options without a selected value are left out.
func DefaultFQBN(def *BoardDefinition) string {
	fqbn, err := boards.ParseFQBN(def.Board.FQBN)
	if err != nil {
		return def.Board.FQBN
	}
	for _, opt := range def.ConfigOptions {
		for _, v := range opt.Values {
			if v.Selected {
				fqbn = fqbn.WithConfigOptions(boards.ConfigOption{Option: opt.Option, Value: v.Value})
				break
			}
		}
	}
	return fqbn.String()
}

// usbKey normalizes a VID/PID pair: "0x2341", "2341" and "0X2341" are the same.
func usbKey(vid, pid string) string {
	return normalizeHex(vid) + ":" + normalizeHex(pid)
}

func normalizeHex(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "0x")
	for len(s) < 4 {
		s = "0" + s
	}
	return s
}

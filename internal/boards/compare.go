package boards

import (
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// A Collator keeps per-call buffers and must not be shared between goroutines.
var collators = sync.Pool{
	New: func() any {
		return collate.New(language.Und, collate.Numeric)
	},
}

// NaturalCompare compares two strings with locale-aware collation where runs
// of digits compare by numeric value ("COM2" < "COM10").
func NaturalCompare(left, right string) int {
	c := collators.Get().(*collate.Collator)
	defer collators.Put(c)
	return c.CompareString(left, right)
}

// CompareVersions orders version strings. Two valid semantic versions compare
// by semver precedence, anything else falls back to NaturalCompare. One
// leading "v" is allowed.
func CompareVersions(left, right string) int {
	lv, lerr := semver.StrictNewVersion(strings.TrimPrefix(left, "v"))
	rv, rerr := semver.StrictNewVersion(strings.TrimPrefix(right, "v"))
	if lerr == nil && rerr == nil {
		return lv.Compare(rv)
	}
	return NaturalCompare(left, right)
}

// CompareBoardIdentifiers orders boards: present before absent, FQBNs of the
// "arduino" vendor before other vendors, then by name.
func CompareBoardIdentifiers(left, right *BoardIdentifier) int {
	if left == nil {
		if right == nil {
			return 0
		}
		return 1
	}
	if right == nil {
		return -1
	}

	leftArduino := left.HasFQBN() && Vendor(left.FQBN) == "arduino"
	rightArduino := right.HasFQBN() && Vendor(right.FQBN) == "arduino"
	if leftArduino && !rightArduino {
		return -1
	}
	if !leftArduino && rightArduino {
		return 1
	}
	return NaturalCompare(left.Name, right.Name)
}

// CompareBoardListItems is the total order of a board list: port protocol
// priority, then the (detected or inferred) board, then the port address.
func CompareBoardListItems(left, right BoardListItem) int {
	if result := protocolPriority(left.Port.Protocol) - protocolPriority(right.Port.Protocol); result != 0 {
		return result
	}
	if result := CompareBoardIdentifiers(left.EffectiveBoard(), right.EffectiveBoard()); result != 0 {
		return result
	}
	return NaturalCompare(left.Port.Address, right.Port.Address)
}

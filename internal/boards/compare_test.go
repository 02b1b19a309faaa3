package boards

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNaturalCompare(t *testing.T) {
	assert.Negative(t, NaturalCompare("COM1", "COM10"))
	assert.Negative(t, NaturalCompare("COM2", "COM10"))
	assert.Positive(t, NaturalCompare("COM10", "COM9"))
	assert.Zero(t, NaturalCompare("COM10", "COM10"))
	assert.Negative(t, NaturalCompare("/dev/ttyACM2", "/dev/ttyACM11"))
	assert.Negative(t, NaturalCompare("Arduino MKR1000", "Arduino Uno"))
}

func TestCompareVersions(t *testing.T) {
	assert.Positive(t, CompareVersions("1.8.1", "1.6.1"))
	assert.Negative(t, CompareVersions("5.1.0-beta.1", "5.1.0"))
	assert.Negative(t, CompareVersions("COM1", "COM10"))
	assert.Zero(t, CompareVersions("COM10", "COM10"))
	assert.Negative(t, CompareVersions("1.0.9", "1.0.10"))
	assert.Negative(t, CompareVersions("v5.1.0-beta.1", "v5.1.0"))
	assert.Positive(t, CompareVersions("v1.8.1", "1.6.1"))
	assert.Zero(t, CompareVersions("v2.0.0", "2.0.0"))
	// not strict semver: natural order
	assert.Negative(t, CompareVersions("1.2", "1.10"))
}

func TestCompareBoardIdentifiers(t *testing.T) {
	assert.Zero(t, CompareBoardIdentifiers(nil, nil))
	assert.Positive(t, CompareBoardIdentifiers(nil, &uno))
	assert.Negative(t, CompareBoardIdentifiers(&uno, nil))

	assert.Negative(t, CompareBoardIdentifiers(&uno, &aaaBoard))
	assert.Positive(t, CompareBoardIdentifiers(&esp32, &uno))
	assert.Negative(t, CompareBoardIdentifiers(&mkr1000, &uno))

	// a board without fqbn has no vendor priority
	assert.Positive(t, CompareBoardIdentifiers(&unoR4, &uno))
	assert.Negative(t, CompareBoardIdentifiers(&unoR4, &esp32))
}

func TestCompareBoardListItemsFallsBackToAddress(t *testing.T) {
	left := newItem(serialPort("COM2"), nil, nil)
	right := newItem(serialPort("COM10"), nil, nil)
	assert.Negative(t, CompareBoardListItems(left, right))
	assert.Positive(t, CompareBoardListItems(right, left))

	// two unrecognized protocols tie on priority and fall through
	a := newItem(Port{Protocol: "dfu", Address: "a"}, nil, nil)
	b := newItem(Port{Protocol: "usb", Address: "b"}, nil, nil)
	assert.Negative(t, CompareBoardListItems(a, b))
}

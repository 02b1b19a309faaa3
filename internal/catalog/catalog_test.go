package catalog

import (
	"path/filepath"
	"testing"

	"github.com/KevinKickass/OpenBoardCore/internal/boards"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func loadTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Load([]string{filepath.Join("testdata", "boards")}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return c
}

func TestLoad(t *testing.T) {
	c := loadTestCatalog(t)

	assert.Equal(t, 5, c.Len())
	assert.Equal(t, []boards.BoardIdentifier{
		{Name: "Arduino MKR1000", FQBN: "arduino:samd:mkr1000"},
		{Name: "Arduino Nano ESP32", FQBN: "arduino:esp32:nano_nora"},
		{Name: "Arduino Uno", FQBN: "arduino:avr:uno"},
		{Name: "ESP32 Dev Module", FQBN: "esp32:esp32:esp32"},
		{Name: "ESP32 Wrover Module", FQBN: "esp32:esp32:esp32wrover"},
	}, c.Boards())
	assert.Equal(t, filepath.Join("testdata", "boards", "arduino", "avr", "uno.json"), c.Source("arduino:avr:uno:cpu=x"))
}

func TestLoadMissingSearchPath(t *testing.T) {
	c, err := Load([]string{filepath.Join(t.TempDir(), "nope")}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Zero(t, c.Len())
}

func TestLoadDirReportsInvalidFiles(t *testing.T) {
	c, err := New(zaptest.NewLogger(t))
	require.NoError(t, err)

	err = c.LoadDir(filepath.Join("testdata", "invalid"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing_name.json")
	assert.Contains(t, err.Error(), "fqbn_mismatch.json")
	assert.Contains(t, err.Error(), "truncated.json")

	assert.Equal(t, 1, c.Len())
	_, err = c.ByFQBN("acme:avr:aaa")
	assert.NoError(t, err)
}

func TestLoadDirRejectsDuplicates(t *testing.T) {
	c := loadTestCatalog(t)
	err := c.LoadDir(filepath.Join("testdata", "boards", "arduino", "avr"))
	assert.ErrorContains(t, err, "duplicate board definition arduino:avr:uno")
}

func TestByFQBN(t *testing.T) {
	c := loadTestCatalog(t)

	def, err := c.ByFQBN("esp32:esp32:esp32:FlashMode=dio")
	require.NoError(t, err)
	assert.Equal(t, "ESP32 Dev Module", def.Board.Name)

	_, err = c.ByFQBN("arduino:avr:leonardo")
	assert.ErrorIs(t, err, ErrBoardNotFound)
}

func TestByBoardID(t *testing.T) {
	c := loadTestCatalog(t)

	def, err := c.ByBoardID("mkr1000")
	require.NoError(t, err)
	assert.Equal(t, "arduino:samd:mkr1000", def.Board.FQBN)

	_, err = c.ByBoardID("leonardo")
	assert.ErrorIs(t, err, ErrBoardNotFound)
}

func TestByUSB(t *testing.T) {
	c := loadTestCatalog(t)

	defs := c.ByUSB("0x10C4", "0xEA60")
	require.Len(t, defs, 2)
	assert.Equal(t, "ESP32 Dev Module", defs[0].Board.Name)
	assert.Equal(t, "ESP32 Wrover Module", defs[1].Board.Name)

	defs = c.ByUSB("2a03", "43")
	require.Len(t, defs, 1)
	assert.Equal(t, "arduino:avr:uno", defs[0].Board.FQBN)

	assert.True(t, c.HasUSB("0x2341", "0x804E"))
	assert.False(t, c.HasUSB("0x2341", "0xffff"))
}

func TestIdentify(t *testing.T) {
	c := loadTestCatalog(t)

	usb := boards.Port{Protocol: "usb", Address: "1-2", Properties: map[string]string{"vid": "0x2341", "pid": "0x0070"}}
	assert.Equal(t, []boards.BoardIdentifier{{Name: "Arduino Nano ESP32", FQBN: "arduino:esp32:nano_nora"}}, c.Identify(usb))

	network := boards.Port{Protocol: "network", Address: "192.168.0.104", Properties: map[string]string{"board": "mkr1000"}}
	assert.Equal(t, []boards.BoardIdentifier{{Name: "Arduino MKR1000", FQBN: "arduino:samd:mkr1000"}}, c.Identify(network))

	unknown := boards.Port{Protocol: "serial", Address: "COM3", Properties: map[string]string{"vid": "0x0403", "pid": "0x6001"}}
	assert.Empty(t, c.Identify(unknown))
	assert.Empty(t, c.Identify(boards.Port{Protocol: "serial", Address: "COM4"}))
}

func TestDefaultFQBN(t *testing.T) {
	c := loadTestCatalog(t)

	for fqbn, expected := range map[string]string{
		"arduino:avr:uno":         "arduino:avr:uno",
		"arduino:esp32:nano_nora": "arduino:esp32:nano_nora:PartitionScheme=default,PinNumbers=default",
		"esp32:esp32:esp32":       "esp32:esp32:esp32:FlashMode=qio",
	} {
		def, err := c.ByFQBN(fqbn)
		require.NoError(t, err)
		assert.Equal(t, expected, DefaultFQBN(def), fqbn)
	}
}

func TestVendors(t *testing.T) {
	c := loadTestCatalog(t)

	vendors := c.Vendors()
	require.Len(t, vendors, 2)
	assert.Equal(t, "arduino", vendors[0].Vendor)
	assert.Equal(t, 3, vendors[0].BoardCount())
	assert.Equal(t, "esp32", vendors[1].Vendor)
	assert.Len(t, vendors[1].Boards["esp32"], 2)
}

func TestAdd(t *testing.T) {
	c, err := New(zaptest.NewLogger(t))
	require.NoError(t, err)

	def := &BoardDefinition{Board: BoardInfo{
		ID: "aaa", Name: "AAA Board", FQBN: "acme:avr:aaa", Vendor: "acme", Architecture: "avr",
	}}
	require.NoError(t, c.Add(def))
	assert.Equal(t, "", c.Source("acme:avr:aaa"))

	bad := &BoardDefinition{Board: BoardInfo{
		ID: "bbb", Name: "BBB", FQBN: "acme:avr:bbb:cpu=x", Vendor: "acme", Architecture: "avr",
	}}
	assert.Error(t, c.Add(bad))

	twoSelected := &BoardDefinition{
		Board: BoardInfo{ID: "ccc", Name: "CCC", FQBN: "acme:avr:ccc", Vendor: "acme", Architecture: "avr"},
		ConfigOptions: []ConfigOptionDefinition{{
			Option: "cpu", Label: "CPU",
			Values: []ConfigValue{{Value: "a", Label: "A", Selected: true}, {Value: "b", Label: "B", Selected: true}},
		}},
	}
	assert.ErrorContains(t, c.Add(twoSelected), "2 selected values")
}

// Package catalog holds the installed boards: board definition files found
// under the configured search paths, plus the vendor index files next to them.
package catalog

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/KevinKickass/OpenBoardCore/internal/boards"
	"go.uber.org/zap"
)

var ErrBoardNotFound = errors.New("board not found")

type Catalog struct {
	validator *Validator
	logger    *zap.Logger

	mu      sync.RWMutex
	byFQBN  map[string]*BoardDefinition
	byID    map[string][]*BoardDefinition
	byUSB   map[string][]*BoardDefinition
	files   map[string]string
	vendors map[string]VendorIndex
}

func New(logger *zap.Logger) (*Catalog, error) {
	validator, err := NewValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to create validator: %w", err)
	}

	return &Catalog{
		validator: validator,
		logger:    logger,
		byFQBN:    make(map[string]*BoardDefinition),
		byID:      make(map[string][]*BoardDefinition),
		byUSB:     make(map[string][]*BoardDefinition),
		files:     make(map[string]string),
		vendors:   make(map[string]VendorIndex),
	}, nil
}

// Load creates a catalog and loads every search path. Missing directories are
// skipped. Invalid files are logged and left out.
func Load(searchPaths []string, logger *zap.Logger) (*Catalog, error) {
	c, err := New(logger)
	if err != nil {
		return nil, err
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			logger.Warn("Catalog search path does not exist", zap.String("path", path))
			continue
		}
		if err := c.LoadDir(path); err != nil {
			logger.Warn("Catalog loaded with errors", zap.String("path", path), zap.Error(err))
		}
	}

	logger.Info("Catalog loaded",
		zap.Strings("search_paths", searchPaths),
		zap.Int("boards", c.Len()),
		zap.Int("vendors", len(c.Vendors())))

	return c, nil
}

// LoadDir walks root for board definition files (*.json) and vendor index
// files (index.yaml). Every valid file is added; the errors of the invalid
// ones are joined and returned.
func (c *Catalog) LoadDir(root string) error {
	var errs []error

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		switch {
		case d.Name() == vendorIndexFile:
			index, err := readVendorIndex(path)
			if err != nil {
				errs = append(errs, err)
				return nil
			}
			c.mu.Lock()
			c.vendors[index.Vendor] = *index
			c.mu.Unlock()

		case filepath.Ext(path) == ".json":
			if err := c.loadFile(path); err != nil {
				errs = append(errs, err)
			}
		}
		return nil
	})
	if walkErr != nil {
		return fmt.Errorf("failed to walk %s: %w", root, walkErr)
	}

	return errors.Join(errs...)
}

func (c *Catalog) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	def, err := c.validator.Parse(data)
	if err != nil {
		return fmt.Errorf("validation failed for %s: %w", path, err)
	}

	if err := c.add(def, path); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	c.logger.Debug("Board definition loaded",
		zap.String("fqbn", def.Board.FQBN),
		zap.String("path", path))
	return nil
}

// Add validates def and adds it to the catalog.
func (c *Catalog) Add(def *BoardDefinition) error {
	if err := c.validator.ValidateDefinition(def); err != nil {
		return err
	}
	return c.add(def, "")
}

func (c *Catalog) add(def *BoardDefinition, path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.byFQBN[def.Board.FQBN]; exists {
		return fmt.Errorf("duplicate board definition %s (first loaded from %s)", def.Board.FQBN, c.files[def.Board.FQBN])
	}

	c.byFQBN[def.Board.FQBN] = def
	c.files[def.Board.FQBN] = path
	c.byID[def.Board.ID] = append(c.byID[def.Board.ID], def)
	for _, usb := range def.Identification {
		key := usbKey(usb.VID, usb.PID)
		c.byUSB[key] = append(c.byUSB[key], def)
	}
	return nil
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byFQBN)
}

// ByFQBN looks a board up by FQBN. Config options are ignored.
func (c *Catalog) ByFQBN(fqbn string) (*BoardDefinition, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	def, ok := c.byFQBN[boards.SanitizeFQBN(fqbn)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBoardNotFound, fqbn)
	}
	return def, nil
}

// ByBoardID returns the board with the given id. When several vendors use the
// same id the one sorting first wins.
func (c *Catalog) ByBoardID(id string) (*BoardDefinition, error) {
	c.mu.RLock()
	defs := slices.Clone(c.byID[id])
	c.mu.RUnlock()

	if len(defs) == 0 {
		return nil, fmt.Errorf("%w: board id %s", ErrBoardNotFound, id)
	}
	sortDefinitions(defs)
	return defs[0], nil
}

// ByUSB returns every board identified by the VID/PID pair, sorted.
func (c *Catalog) ByUSB(vid, pid string) []*BoardDefinition {
	c.mu.RLock()
	defs := slices.Clone(c.byUSB[usbKey(vid, pid)])
	c.mu.RUnlock()

	sortDefinitions(defs)
	return defs
}

// HasUSB reports whether any board is identified by the VID/PID pair.
func (c *Catalog) HasUSB(vid, pid string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byUSB[usbKey(vid, pid)]) > 0
}

// Definitions returns all definitions in board order.
func (c *Catalog) Definitions() []*BoardDefinition {
	c.mu.RLock()
	defs := make([]*BoardDefinition, 0, len(c.byFQBN))
	for _, def := range c.byFQBN {
		defs = append(defs, def)
	}
	c.mu.RUnlock()

	sortDefinitions(defs)
	return defs
}

// Boards returns the identifiers of all installed boards in board order.
func (c *Catalog) Boards() []boards.BoardIdentifier {
	defs := c.Definitions()
	ids := make([]boards.BoardIdentifier, len(defs))
	for i, def := range defs {
		ids[i] = def.Identifier()
	}
	return ids
}

// Identify returns the boards recognized on a port: by the "vid"/"pid"
// properties of USB and serial ports, or by the "board" property mDNS
// services announce.
func (c *Catalog) Identify(port boards.Port) []boards.BoardIdentifier {
	var defs []*BoardDefinition

	vid, hasVID := port.Properties["vid"]
	pid, hasPID := port.Properties["pid"]
	if hasVID && hasPID {
		defs = c.ByUSB(vid, pid)
	}

	if id, ok := port.Properties["board"]; ok && len(defs) == 0 {
		if def, err := c.ByBoardID(id); err == nil {
			defs = append(defs, def)
		}
	}

	if len(defs) == 0 {
		return nil
	}
	ids := make([]boards.BoardIdentifier, len(defs))
	for i, def := range defs {
		ids[i] = def.Identifier()
	}
	return ids
}

// Source returns the file a definition was loaded from, empty for definitions
// added in memory.
func (c *Catalog) Source(fqbn string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.files[boards.SanitizeFQBN(fqbn)]
}

func sortDefinitions(defs []*BoardDefinition) {
	slices.SortStableFunc(defs, func(a, b *BoardDefinition) int {
		left, right := a.Identifier(), b.Identifier()
		if result := boards.CompareBoardIdentifiers(&left, &right); result != 0 {
			return result
		}
		return boards.NaturalCompare(a.Board.FQBN, b.Board.FQBN)
	})
}

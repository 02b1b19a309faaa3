package catalog

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

const vendorIndexFile = "index.yaml"

// VendorIndex describes a vendor directory of the catalog.
type VendorIndex struct {
	Vendor      string                `yaml:"vendor" json:"vendor"`
	Description string                `yaml:"description" json:"description"`
	Website     string                `yaml:"website" json:"website,omitempty"`
	Boards      map[string][]BoardRef `yaml:"boards" json:"boards"`
}

// BoardRef points at a board definition file, relative to the index.
type BoardRef struct {
	ID     string `yaml:"id" json:"id"`
	File   string `yaml:"file" json:"file"`
	Name   string `yaml:"name" json:"name"`
	Tested bool   `yaml:"tested" json:"tested"`
}

// BoardCount returns the number of boards over all architectures.
func (v VendorIndex) BoardCount() int {
	n := 0
	for _, refs := range v.Boards {
		n += len(refs)
	}
	return n
}

func readVendorIndex(path string) (*VendorIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vendor index %s: %w", path, err)
	}

	var index VendorIndex
	if err := yaml.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("failed to parse vendor index %s: %w", path, err)
	}
	if index.Vendor == "" {
		return nil, fmt.Errorf("vendor index %s: missing vendor", path)
	}

	return &index, nil
}

// Vendors returns the loaded vendor indexes, "arduino" first.
func (c *Catalog) Vendors() []VendorIndex {
	c.mu.RLock()
	vendors := make([]VendorIndex, 0, len(c.vendors))
	for _, v := range c.vendors {
		vendors = append(vendors, v)
	}
	c.mu.RUnlock()

	slices.SortFunc(vendors, func(a, b VendorIndex) int {
		if a.Vendor == "arduino" && b.Vendor != "arduino" {
			return -1
		}
		if b.Vendor == "arduino" && a.Vendor != "arduino" {
			return 1
		}
		return strings.Compare(a.Vendor, b.Vendor)
	})
	return vendors
}

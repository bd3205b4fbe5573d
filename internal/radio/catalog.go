package radio

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog is a static description of devices this build knows about,
// independent of whether their hardware backend is actually compiled in
// (mirrors the teacher's willingness to describe a device's configuration
// shape in YAML before any hardware is touched).
type Catalog struct {
	Devices []CatalogDevice `yaml:"devices"`
}

// CatalogDevice describes one named device entry: its display name, its
// backend and the sample rates it is known to support. It is used for
// "-d help" listings and device-open error hints; the scan planner takes
// sample rates from the opened device, never from the catalog.
type CatalogDevice struct {
	Name        string `yaml:"name"`
	Driver      string `yaml:"driver"`
	SampleRates []uint `yaml:"sampleRates"`
}

// DefaultCatalog is the built-in catalog used when no -catalog file is
// given. It documents the two real backends this repository ships and
// the mock backend.
var DefaultCatalog = Catalog{
	Devices: []CatalogDevice{
		{
			Name:        "rtl-sdr",
			Driver:      "rtl",
			SampleRates: []uint{250_000, 1_024_000, 1_536_000, 1_792_000, 1_920_000, 2_048_000, 2_160_000, 2_560_000, 2_880_000, 3_200_000},
		},
		{
			Name:        "hackrf",
			Driver:      "hackrf",
			SampleRates: []uint{2_000_000, 4_000_000, 8_000_000, 10_000_000, 12_500_000, 16_000_000, 20_000_000},
		},
		{
			Name:        "mock",
			Driver:      "mock",
			SampleRates: []uint{2_048_000},
		},
	},
}

// LoadCatalog reads a device catalog from a YAML file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}

	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	return &cat, nil
}

// Find returns the catalog entry with the given name.
func (c *Catalog) Find(name string) (CatalogDevice, bool) {
	for _, d := range c.Devices {
		if d.Name == name {
			return d, true
		}
	}
	return CatalogDevice{}, false
}

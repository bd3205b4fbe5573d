package radio_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/wbscan/wbscan/internal/radio"
)

func TestDefaultCatalogFind(t *testing.T) {
	dev, ok := radio.DefaultCatalog.Find("hackrf")
	if !ok {
		t.Fatal("DefaultCatalog should list hackrf")
	}
	if dev.Driver != "hackrf" {
		t.Errorf("Driver = %q, want hackrf", dev.Driver)
	}
	if len(dev.SampleRates) == 0 {
		t.Error("expected at least one sample rate for hackrf")
	}

	if _, ok := radio.DefaultCatalog.Find("nonexistent"); ok {
		t.Error("Find should return false for an unknown device name")
	}
}

func TestLoadCatalogParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	yaml := `
devices:
  - name: fixture-sdr
    driver: mock
    sampleRates: [1000000, 2000000]
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cat, err := radio.LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	dev, ok := cat.Find("fixture-sdr")
	if !ok {
		t.Fatal("loaded catalog should contain fixture-sdr")
	}
	if dev.Driver != "mock" {
		t.Errorf("Driver = %q, want mock", dev.Driver)
	}
	if len(dev.SampleRates) != 2 || dev.SampleRates[1] != 2_000_000 {
		t.Errorf("SampleRates = %v, want [1000000 2000000]", dev.SampleRates)
	}
}

func TestLoadCatalogMissingFile(t *testing.T) {
	if _, err := radio.LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error loading a nonexistent catalog file")
	}
}

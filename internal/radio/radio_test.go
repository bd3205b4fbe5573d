package radio_test

import (
	"errors"
	"testing"

	"github.com/wbscan/wbscan/internal/radio"
	"github.com/wbscan/wbscan/internal/radio/mock"
)

func TestOpenFindsDeviceAcrossDrivers(t *testing.T) {
	drivers := []radio.Driver{
		mock.New(mock.Config{Name: "alpha"}),
		mock.New(mock.Config{Name: "beta"}),
	}

	dev, err := radio.Open(drivers, "beta")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if dev == nil {
		t.Fatal("Open returned nil device")
	}
}

func TestOpenUnknownNameReturnsDeviceNotFound(t *testing.T) {
	drivers := []radio.Driver{mock.New(mock.Config{Name: "alpha"})}

	_, err := radio.Open(drivers, "nonexistent")
	if !errors.Is(err, radio.ErrDeviceNotFound) {
		t.Fatalf("Open error = %v, want ErrDeviceNotFound", err)
	}
}

func TestEnumerateAllGathersEveryDriver(t *testing.T) {
	drivers := []radio.Driver{
		mock.New(mock.Config{Name: "alpha"}),
		mock.New(mock.Config{Name: "beta"}),
	}

	descs := radio.EnumerateAll(drivers)
	if len(descs) != 2 {
		t.Fatalf("EnumerateAll returned %d descriptors, want 2", len(descs))
	}
	names := map[string]bool{}
	for _, d := range descs {
		names[d.Name] = true
	}
	if !names["alpha"] || !names["beta"] {
		t.Errorf("EnumerateAll names = %v, want alpha and beta", names)
	}
}

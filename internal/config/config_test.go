package config

import "testing"

func TestParseFrequencyRoundTrip(t *testing.T) {
	cases := map[string]int64{
		"1k":   1_000,
		"2.5M": 2_500_000,
		"1g":   1_000_000_000,
		"100":  100,
	}
	for in, want := range cases {
		got, err := ParseFrequency(in)
		if err != nil {
			t.Errorf("ParseFrequency(%q) error: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseFrequency(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestParseFrequencyRejectsUnknownSuffix(t *testing.T) {
	if _, err := ParseFrequency("100x"); err == nil {
		t.Error("expected error for unknown suffix")
	}
	if _, err := ParseFrequency("1kg"); err == nil {
		t.Error("expected error for doubled suffix")
	}
}

func TestParseRequiresStartFrequency(t *testing.T) {
	if _, err := Parse([]string{"-c", "0.25"}); err == nil {
		t.Fatal("expected error for missing -s")
	}
}

func TestParseFullConfig(t *testing.T) {
	cfg, err := Parse([]string{"-s", "100M", "-e", "200M", "-c", "0.1", "-t", "5", "-1"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Plan.StartFrequency != 100_000_000 {
		t.Errorf("StartFrequency = %d, want 100000000", cfg.Plan.StartFrequency)
	}
	if cfg.Plan.EndFrequency != 200_000_000 {
		t.Errorf("EndFrequency = %d, want 200000000", cfg.Plan.EndFrequency)
	}
	if cfg.SweepCount != 1 {
		t.Errorf("SweepCount = %d, want 1 (single sweep)", cfg.SweepCount)
	}
	if cfg.Theme != "classic" {
		t.Errorf("Theme = %q, want classic", cfg.Theme)
	}
}

func TestParseDeviceHelp(t *testing.T) {
	cfg, err := Parse([]string{"-d", "help"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !cfg.ListDevices {
		t.Error("ListDevices = false, want true for \"-d help\"")
	}
	if cfg.Catalog == nil {
		t.Error("Catalog should be populated (default) even on \"-d help\"")
	}
}

func TestParseOFlagSelectsSnapshotStorePath(t *testing.T) {
	cfg, err := Parse([]string{"-s", "100M", "-o", "/tmp/wbscan.db", "-assets", "/srv/www"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.StorePath != "/tmp/wbscan.db" {
		t.Errorf("StorePath = %q, want /tmp/wbscan.db (from -o)", cfg.StorePath)
	}
	if cfg.PublicDir != "/srv/www" {
		t.Errorf("PublicDir = %q, want /srv/www (from -assets)", cfg.PublicDir)
	}
}

func TestParseUsesDefaultCatalogWhenNoCatalogFlag(t *testing.T) {
	cfg, err := Parse([]string{"-s", "100M"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, ok := cfg.Catalog.Find("rtl-sdr"); !ok {
		t.Error("default catalog should list rtl-sdr")
	}
}

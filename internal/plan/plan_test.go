package plan

import "testing"

func baseConfig() Config {
	return Config{
		StartFrequency:  100_000_000,
		EndFrequency:    0,
		CropRatio:       0.25,
		ScanTimeSeconds: 10,
	}
}

func baseCaps() DeviceCapabilities {
	return DeviceCapabilities{SampleRates: []uint{250_000, 1_024_000, 2_048_000, 3_200_000}}
}

func TestPlannerTotality(t *testing.T) {
	p, err := Compute(baseConfig(), baseCaps())
	if err != nil {
		t.Fatalf("Compute returned error: %v", err)
	}
	if p.TuningCount < 1 {
		t.Errorf("TuningCount = %d, want >= 1", p.TuningCount)
	}
	if p.FFTSize < MinFFTSize || p.FFTSize > MaxFFTSize {
		t.Errorf("FFTSize = %d, out of [%d, %d]", p.FFTSize, MinFFTSize, MaxFFTSize)
	}
	if p.FFTSize&(p.FFTSize-1) != 0 {
		t.Errorf("FFTSize = %d is not a power of two", p.FFTSize)
	}
	if p.PowerBuckets < 1 {
		t.Errorf("PowerBuckets = %d, want >= 1", p.PowerBuckets)
	}
}

func TestMissingStartFrequency(t *testing.T) {
	cfg := baseConfig()
	cfg.StartFrequency = 0
	if _, err := Compute(cfg, baseCaps()); err == nil {
		t.Fatal("expected error for missing start frequency")
	}
}

func TestCoverage(t *testing.T) {
	cfg := baseConfig()
	cfg.EndFrequency = cfg.StartFrequency + 5_000_000
	p, err := Compute(cfg, baseCaps())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	covered := int64(p.TuningCount) * p.TuningBandwidth
	required := (p.EndFrequency - p.StartFrequency) + int64(p.CropRatio*float64(p.SampleRate))
	if covered < required {
		t.Errorf("coverage %d < required %d", covered, required)
	}
}

func TestDwellFloor(t *testing.T) {
	cfg := baseConfig()
	cfg.ScanTimeSeconds = 0.0001 // tiny, should still hit the floor
	p, err := Compute(cfg, baseCaps())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if p.DwellTimeMicros < MinDwellMicros {
		t.Errorf("DwellTimeMicros = %d, want >= %d", p.DwellTimeMicros, MinDwellMicros)
	}
}

func TestCropClamp(t *testing.T) {
	cfg := baseConfig()
	cfg.CropRatio = 5.0
	p, err := Compute(cfg, baseCaps())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if p.CropRatio != 0.6 {
		t.Errorf("CropRatio = %v, want 0.6", p.CropRatio)
	}

	cfg.CropRatio = -1.0
	p, err = Compute(cfg, baseCaps())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if p.CropRatio != 0 {
		t.Errorf("CropRatio = %v, want 0", p.CropRatio)
	}
}

func TestAutoEndFrequencyCentered(t *testing.T) {
	cfg := baseConfig()
	cfg.EndFrequency = 0
	p, err := Compute(cfg, baseCaps())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	wantBW := int64(float64(p.SampleRate) * (1 - p.CropRatio))
	gotBW := p.EndFrequency - p.StartFrequency
	if diff := gotBW - wantBW; diff < -1 || diff > 1 {
		t.Errorf("auto bandwidth = %d, want ~%d", gotBW, wantBW)
	}

	mid := (p.StartFrequency + p.EndFrequency) / 2
	if diff := mid - cfg.StartFrequency; diff < -1 || diff > 1 {
		t.Errorf("auto band center = %d, want ~%d", mid, cfg.StartFrequency)
	}
}

func TestRoundUpPow2(t *testing.T) {
	cases := map[int]int{1: 1, 2: 2, 3: 4, 1023: 1024, 1024: 1024, 1025: 2048}
	for in, want := range cases {
		if got := roundUpPow2(in); got != want {
			t.Errorf("roundUpPow2(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestResolutionOverrideWhenFFTTooLarge(t *testing.T) {
	cfg := baseConfig()
	cfg.FrequencyResolution = 1 // would need sampleRate samples, far more than 2^16
	p, err := Compute(cfg, baseCaps())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if p.FFTSize > MaxFFTSize {
		t.Errorf("FFTSize = %d, want <= %d", p.FFTSize, MaxFFTSize)
	}
}

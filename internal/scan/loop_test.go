package scan

import (
	"context"
	"log/slog"
	"io"
	"testing"
	"time"

	"github.com/wbscan/wbscan/internal/accumulator"
	"github.com/wbscan/wbscan/internal/dsp"
	"github.com/wbscan/wbscan/internal/plan"
	"github.com/wbscan/wbscan/internal/radio/mock"
	"github.com/wbscan/wbscan/internal/tuner"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestLoop(t *testing.T, p plan.Plan, source mock.Source, repetitionLimit int) (*Loop, *accumulator.Accumulator) {
	t.Helper()
	drv := mock.New(mock.Config{
		Name:        "m",
		SampleRates: []uint{p.SampleRate},
		SampleRate:  p.SampleRate,
		Source:      source,
		ClockStart:  time.Unix(0, 0),
	})
	dev, err := drv.Open("m")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := dev.SetupRXStream(0, 0); err != nil {
		t.Fatalf("SetupRXStream: %v", err)
	}
	if err := dev.Activate(0); err != nil {
		t.Fatalf("Activate: %v", err)
	}

	acc := accumulator.New(p.StartFrequency, p.FrequencyResolution, p.TuningBandwidth, p.PowerBuckets)
	pipeline := dsp.New(p.FFTSize, p.FrequencyResolution, acc)
	tu := tuner.New(dev, 0, nil)
	signals := &SignalHandler{logger: discardLogger()}

	l := New(p, dev, 0, tu, pipeline, signals, discardLogger(), repetitionLimit, nil)
	return l, acc
}

// TestScenarioA_SingleTuningNoCrop checks spec §8 Scenario A.
func TestScenarioA_SingleTuningNoCrop(t *testing.T) {
	cfg := plan.Config{
		StartFrequency:  100_000_000,
		CropRatio:       0,
		ScanTimeSeconds: 0.2,
	}
	caps := plan.DeviceCapabilities{SampleRates: []uint{8192 * 2}}
	cfg.EndFrequency = cfg.StartFrequency + int64(caps.SampleRates[0])
	cfg.FrequencyResolution = caps.SampleRates[0] / 8192

	p, err := plan.Compute(cfg, caps)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if p.TuningCount != 1 {
		t.Fatalf("TuningCount = %d, want 1", p.TuningCount)
	}
	if p.FFTSize != 8192 {
		t.Fatalf("FFTSize = %d, want 8192", p.FFTSize)
	}

	l, acc := newTestLoop(t, p, mock.FullScaleSource(), 1)
	if _, err := l.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	snap := acc.Snapshot()
	if len(snap.Power) != p.PowerBuckets {
		t.Errorf("PowerBuckets mismatch: got %d, want %d", len(snap.Power), p.PowerBuckets)
	}
	if snap.AccumulationCount < 1 {
		t.Errorf("AccumulationCount = %d, want >= 1", snap.AccumulationCount)
	}
}

// TestScenarioE_AutoEndFrequency checks spec §8 Scenario E.
func TestScenarioE_AutoEndFrequency(t *testing.T) {
	cfg := plan.Config{
		StartFrequency:  100_000_000,
		CropRatio:       0.25,
		ScanTimeSeconds: 1,
	}
	caps := plan.DeviceCapabilities{SampleRates: []uint{2_048_000}}
	p, err := plan.Compute(cfg, caps)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	wantBW := int64(float64(p.SampleRate) * (1 - p.CropRatio))
	if diff := (p.EndFrequency - p.StartFrequency) - wantBW; diff < -1 || diff > 1 {
		t.Errorf("bandwidth = %d, want ~%d", p.EndFrequency-p.StartFrequency, wantBW)
	}
	mid := (p.StartFrequency + p.EndFrequency) / 2
	if diff := mid - cfg.StartFrequency; diff < -1 || diff > 1 {
		t.Errorf("center = %d, want ~%d", mid, cfg.StartFrequency)
	}
}

// TestScenarioF_ToneDetection checks spec §8 Scenario F: a tone at a
// known baseband offset ends up in the loudest accumulator bin.
func TestScenarioF_ToneDetection(t *testing.T) {
	cfg := plan.Config{
		StartFrequency:      100_000_000,
		CropRatio:           0,
		ScanTimeSeconds:     0.1,
		FrequencyResolution: 1000,
	}
	caps := plan.DeviceCapabilities{SampleRates: []uint{2_048_000}}
	p, err := plan.Compute(cfg, caps)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	const toneOffset = 1000.0
	source := mock.ToneSource(toneOffset, float64(p.SampleRate))

	l, acc := newTestLoop(t, p, source, 1)
	if _, err := l.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	snap := acc.Snapshot()
	centerBin := int((p.TuningStart - p.StartFrequency) / int64(p.FrequencyResolution))
	wantBin := centerBin + int(toneOffset/float64(p.FrequencyResolution))

	peakBin := 0
	for i, v := range snap.Power {
		if v > snap.Power[peakBin] {
			peakBin = i
		}
	}
	// Allow a one-bin tolerance for rounding at the planner's resolution.
	if diff := peakBin - wantBin; diff < -1 || diff > 1 {
		t.Errorf("peak bin = %d, want ~%d", peakBin, wantBin)
	}
}

// TestScanLoopStopsAfterLevelOneSignal checks that a single interrupt
// already pending when Run starts stops the loop cleanly, without
// aborting and before any repetition begins.
func TestScanLoopStopsAfterLevelOneSignal(t *testing.T) {
	cfg := plan.Config{
		StartFrequency:  100_000_000,
		CropRatio:       0.25,
		ScanTimeSeconds: 0.05,
	}
	caps := plan.DeviceCapabilities{SampleRates: []uint{2_048_000}}
	cfg.EndFrequency = cfg.StartFrequency + int64(float64(caps.SampleRates[0])*1.5)

	p, err := plan.Compute(cfg, caps)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if p.TuningCount < 2 {
		t.Fatalf("TuningCount = %d, want >= 2", p.TuningCount)
	}

	l, _ := newTestLoop(t, p, nil, 0)
	l.Signals.caught.Store(1)

	result, err := l.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Aborted {
		t.Error("a single signal should finish cleanly, not abort")
	}
	if result.Repetitions != 0 {
		t.Errorf("Repetitions = %d, want 0 (stopped before starting a repetition)", result.Repetitions)
	}
}

// TestScanLoopAbortsOnSecondSignal checks spec Scenario D.
func TestScanLoopAbortsOnSecondSignal(t *testing.T) {
	cfg := plan.Config{
		StartFrequency:  100_000_000,
		CropRatio:       0.25,
		ScanTimeSeconds: 0.05,
	}
	caps := plan.DeviceCapabilities{SampleRates: []uint{2_048_000}}
	cfg.EndFrequency = cfg.StartFrequency + int64(float64(caps.SampleRates[0])*3)

	p, err := plan.Compute(cfg, caps)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	// Both signals arrive during the first tuning: the source fires them
	// on the tuner's flush read, after the tuning boundary checks passed.
	var signals *SignalHandler
	source := func(centerHz int64, maxPairs int) ([]complex64, bool) {
		if signals != nil {
			signals.caught.Store(2)
		}
		return nil, false
	}
	l, _ := newTestLoop(t, p, source, 0)
	signals = l.Signals

	result, err := l.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Aborted {
		t.Error("two signals within a tuning should abort immediately")
	}
}

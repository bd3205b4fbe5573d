// Package plan implements the pure Scan Planner (spec §4.1): it derives a
// complete ScanPlan from user-supplied configuration and the capabilities
// of an opened device. It performs no I/O, logging, or randomness, so it
// can be exhaustively tested without a radio.
package plan

import (
	"fmt"
	"math/bits"
)

// MinDwellMicros is the floor dwell time for any single tuning.
const MinDwellMicros = 100_000

// MaxFFTSize is the largest FFT the pipeline will ever run.
const MaxFFTSize = 1 << 16

// MinFFTSize is the smallest FFT the pipeline will ever run.
const MinFFTSize = 4

// Config mirrors the subset of spec.ScanConfig the planner needs.
type Config struct {
	StartFrequency          int64
	EndFrequency            int64 // 0 or <= start => auto-derive
	FrequencyResolution     uint  // 0 => auto-derive
	RequestedSampleRateCap  uint  // 0 => unlimited
	CropRatio               float64
	ScanTimeSeconds         float64
}

// DeviceCapabilities is the subset of DeviceInfo the planner needs.
type DeviceCapabilities struct {
	SampleRates []uint // ascending, at least one entry
}

// Plan is the derived, immutable scan plan (spec §3 ScanPlan).
type Plan struct {
	SampleRate          uint
	TuningBandwidth     int64
	TuningStart         int64
	TuningCount         int
	DwellTimeMicros     int64
	FFTSize             int
	FrequencyResolution uint
	PowerBuckets        int
	StartFrequency      int64
	EndFrequency        int64
	CropRatio           float64
}

// Error describes why a configuration could not be turned into a Plan.
type Error struct {
	Reason string
}

func (e *Error) Error() string { return "configuration: " + e.Reason }

// Compute implements spec §4.1 rules 1-13, in order.
func Compute(cfg Config, caps DeviceCapabilities) (Plan, error) {
	if len(caps.SampleRates) == 0 {
		return Plan{}, &Error{Reason: "device reports no sample rates"}
	}

	// Rule 1: clamp crop ratio.
	crop := cfg.CropRatio
	if crop < 0 {
		crop = 0
	}
	if crop > 0.6 {
		crop = 0.6
	}

	// Rule 2: start frequency is mandatory.
	if cfg.StartFrequency <= 0 {
		return Plan{}, &Error{Reason: "missing start frequency"}
	}
	start := cfg.StartFrequency
	end := cfg.EndFrequency

	// Rule 4: choose sample rate before we need it for rule 3's default
	// bandwidth (the spec computes rule 3 using "sample_rate", so the
	// rate must be picked first even though it is numbered after it).
	sampleRate := chooseSampleRate(caps.SampleRates, cfg.RequestedSampleRateCap)

	// Rule 3: auto end-frequency, centered default bandwidth.
	if end <= 0 || end <= start {
		defaultBW := float64(sampleRate) * (1 - crop)
		half := int64(defaultBW / 2)
		start = cfg.StartFrequency - half
		end = cfg.StartFrequency + half
		if start < 0 {
			start = 0
		}
	}

	// Rule 5 & 6: resolution, possibly overridden or defaulted.
	resolution := cfg.FrequencyResolution
	if resolution != 0 {
		samplesNeeded := sampleRate / resolution
		if samplesNeeded > MaxFFTSize {
			resolution = sampleRate / MaxFFTSize
			if resolution == 0 {
				resolution = 1
			}
		}
	} else {
		resolution = sampleRate / MaxFFTSize
		if resolution == 0 {
			resolution = 1
		}
	}

	// Rule 7: tuning bandwidth.
	tuningBW := int64(ceilFloat(float64(sampleRate) * (1 - crop)))
	if tuningBW <= 0 {
		return Plan{}, &Error{Reason: "tuning bandwidth collapsed to zero"}
	}

	// Rule 8: first tuning center.
	tuningStart := start + tuningBW/2

	// Rule 9 & 10: total scan width and tuning count.
	totalScan := (end - start) + int64(crop*float64(sampleRate))
	tuningCount := int(ceilDiv(totalScan, tuningBW))
	if tuningCount < 1 {
		tuningCount = 1
	}

	// Rule 11: dwell time floor.
	dwell := int64(1_000_000 * cfg.ScanTimeSeconds / float64(tuningCount))
	if dwell < MinDwellMicros {
		dwell = MinDwellMicros
	}

	// Rule 12: FFT size from resolution, clamped, resolution recomputed.
	fftSize := roundUpPow2(int(sampleRate / resolution))
	if fftSize < MinFFTSize {
		fftSize = MinFFTSize
	}
	if fftSize > MaxFFTSize {
		fftSize = MaxFFTSize
	}
	resolution = sampleRate / uint(fftSize)
	if resolution == 0 {
		resolution = 1
	}

	// Rule 13: power bucket count.
	powerBuckets := int(ceilDiv(end-start, int64(resolution)))
	if powerBuckets < 1 {
		powerBuckets = 1
	}

	return Plan{
		SampleRate:          sampleRate,
		TuningBandwidth:     tuningBW,
		TuningStart:         tuningStart,
		TuningCount:         tuningCount,
		DwellTimeMicros:     dwell,
		FFTSize:             fftSize,
		FrequencyResolution: resolution,
		PowerBuckets:        powerBuckets,
		StartFrequency:      start,
		EndFrequency:        end,
		CropRatio:           crop,
	}, nil
}

// chooseSampleRate picks the largest device-supported rate <= cap, or the
// largest available rate when cap is zero (unlimited).
func chooseSampleRate(rates []uint, cap uint) uint {
	best := rates[0]
	for _, r := range rates {
		if cap != 0 && r > cap {
			continue
		}
		if r > best || (cap != 0 && best > cap) {
			best = r
		}
	}
	if cap != 0 && best > cap {
		// every rate exceeded the cap: fall back to the smallest.
		best = rates[0]
		for _, r := range rates {
			if r < best {
				best = r
			}
		}
	}
	return best
}

func ceilDiv(a, b int64) int64 {
	if b == 0 {
		return 0
	}
	if a <= 0 {
		return 0
	}
	q := a / b
	if a%b != 0 {
		q++
	}
	return q
}

func ceilFloat(f float64) float64 {
	i := int64(f)
	if float64(i) < f {
		i++
	}
	return float64(i)
}

// roundUpPow2 returns the smallest power of two >= n (n > 0).
func roundUpPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

// String renders a human-readable summary, used by verbose logging.
func (p Plan) String() string {
	return fmt.Sprintf(
		"sampleRate=%d tuningBandwidth=%d tuningCount=%d dwellUs=%d fftSize=%d resolution=%d buckets=%d",
		p.SampleRate, p.TuningBandwidth, p.TuningCount, p.DwellTimeMicros, p.FFTSize, p.FrequencyResolution, p.PowerBuckets,
	)
}

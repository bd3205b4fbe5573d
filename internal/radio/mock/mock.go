// Package mock implements a deterministic radio.Driver used by tests and
// by "-d mock" runs that need no hardware. It is modeled on
// hz.tools/sdr's mock package: a functional-options Config selects the
// behavior, and the returned Device implements the real facade interface.
package mock

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/wbscan/wbscan/internal/radio"
)

// Source produces one block of IQ samples for a Read call. It is handed
// the channel's current center frequency so tests can synthesize a tone
// at a known baseband offset.
type Source func(centerHz int64, maxPairs int) (samples []complex64, ok bool)

// Config configures a mock device.
type Config struct {
	Name        string
	SampleRates []uint
	SampleRate  uint
	Source      Source // nil => silence (all-zero samples)

	// ClockStart is the monotonic instant Now() is measured relative to.
	// Tests that need reproducible timestamps set this explicitly; zero
	// means "use time.Now() directly".
	ClockStart time.Time
}

// Driver is a radio.Driver that always returns a single mock device named
// cfg.Name.
type Driver struct {
	cfg Config
}

// New creates a mock radio.Driver.
func New(cfg Config) *Driver {
	if cfg.Name == "" {
		cfg.Name = "mock"
	}
	if len(cfg.SampleRates) == 0 {
		cfg.SampleRates = []uint{2_048_000}
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = cfg.SampleRates[len(cfg.SampleRates)-1]
	}
	return &Driver{cfg: cfg}
}

func (d *Driver) Enumerate() ([]radio.DeviceDescriptor, error) {
	return []radio.DeviceDescriptor{{
		Name:         d.cfg.Name,
		Manufacturer: "wbscan",
		Product:      "mock radio",
	}}, nil
}

func (d *Driver) Open(name string) (radio.Device, error) {
	if name != d.cfg.Name {
		return nil, radio.ErrDeviceNotFound
	}
	return &device{cfg: d.cfg, freq: map[int]int64{}, rate: d.cfg.SampleRate}, nil
}

type device struct {
	cfg  Config
	mu   sync.Mutex
	freq map[int]int64
	rate uint
	t0   time.Time
}

func (d *device) Info() radio.DeviceInfo {
	return radio.DeviceInfo{
		ChannelCount: 1,
		SampleRates:  d.cfg.SampleRates,
		SampleRate:   d.rate,
		StreamFormat: radio.CS16,
	}
}

func (d *device) ListSampleRates(int) ([]uint, error) {
	return d.cfg.SampleRates, nil
}

func (d *device) SetSampleRate(_ int, rate uint) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rate = rate
	return nil
}

func (d *device) SetGain(int, float64) error { return nil }

func (d *device) SetFrequency(channel int, hz int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.freq[channel] = hz
	return nil
}

func (d *device) SetupRXStream(int, radio.SampleFormat) error { return nil }

func (d *device) Activate(int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.t0.IsZero() {
		if d.cfg.ClockStart.IsZero() {
			d.t0 = time.Unix(0, 0)
		} else {
			d.t0 = d.cfg.ClockStart
		}
	}
	return nil
}

func (d *device) Deactivate(int) error { return nil }

func (d *device) Close() error { return nil }

func (d *device) Read(ctx context.Context, channel int, buf []int16) (int, radio.ReadFlags, int64, error) {
	d.mu.Lock()
	center := d.freq[channel]
	source := d.cfg.Source
	d.mu.Unlock()

	maxPairs := len(buf) / 2
	var samples []complex64
	if source != nil {
		samples, _ = source(center, maxPairs)
	}

	n := len(samples)
	if n > maxPairs {
		n = maxPairs
	}
	for i := 0; i < n; i++ {
		buf[2*i] = clampI16(real(samples[i]) * 32767)
		buf[2*i+1] = clampI16(imag(samples[i]) * 32767)
	}
	for i := n; i < maxPairs; i++ {
		buf[2*i] = 0
		buf[2*i+1] = 0
	}
	if maxPairs == 0 {
		n = 0
	} else if n == 0 {
		n = maxPairs // silence still fills the block
	}

	return n, radio.FlagHasTime, time.Since(d.t0).Nanoseconds(), nil
}

func clampI16(v float32) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(math.Round(float64(v)))
}

// ToneSource returns a Source that emits a continuous complex sinusoid at
// centerHz+offsetHz, sampled at sampleRate, with phase carried across
// calls so successive blocks tile seamlessly.
func ToneSource(offsetHz float64, sampleRate float64) Source {
	var phase float64
	var mu sync.Mutex
	return func(centerHz int64, maxPairs int) ([]complex64, bool) {
		mu.Lock()
		defer mu.Unlock()

		out := make([]complex64, maxPairs)
		step := 2 * math.Pi * offsetHz / sampleRate
		for i := range out {
			out[i] = complex(float32(math.Cos(phase)), float32(math.Sin(phase)))
			phase += step
			if phase > 2*math.Pi {
				phase -= 2 * math.Pi
			}
		}
		return out, true
	}
}

// FullScaleSource returns a Source whose every sample is the maximum
// positive real value, used by the scan loop's single-tuning scenario test.
func FullScaleSource() Source {
	return func(centerHz int64, maxPairs int) ([]complex64, bool) {
		out := make([]complex64, maxPairs)
		for i := range out {
			out[i] = complex(float32(1.0), 0)
		}
		return out, true
	}
}

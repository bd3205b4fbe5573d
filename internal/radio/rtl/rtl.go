//go:build rtlsdr

// Package rtl is the RTL-SDR backend for the radio facade. It is only
// compiled when the "rtlsdr" build tag is specified, the same gating the
// teacher repository uses for platform-specific runtime lookup
// (internal/sdr/driver/runtime_linux.go) and the pattern
// ArgusSDR-argus-collector uses for its own rtlsdr backend.
package rtl

import (
	"context"
	"fmt"
	"time"

	"github.com/jpoirier/gortlsdr"

	"github.com/wbscan/wbscan/internal/radio"
)

// validSampleRates are the RTL-SDR tuner's commonly supported rates; used
// as a fallback set when the device itself can't be asked (the
// gortlsdr/rtl-sdr library has no "list supported rates" call).
var validSampleRates = []uint{
	250_000, 1_024_000, 1_536_000, 1_792_000, 1_920_000,
	2_048_000, 2_160_000, 2_560_000, 2_880_000, 3_200_000,
}

// Driver is a radio.Driver backed by librtlsdr via gortlsdr.
type Driver struct{}

// New creates an RTL-SDR radio.Driver.
func New() *Driver { return &Driver{} }

func (*Driver) Enumerate() ([]radio.DeviceDescriptor, error) {
	count := rtlsdr.GetDeviceCount()
	descs := make([]radio.DeviceDescriptor, 0, count)
	for i := 0; i < count; i++ {
		manufacturer, product, serial, err := rtlsdr.GetDeviceUsbStrings(i)
		name := rtlsdr.GetDeviceName(i)
		if err != nil {
			descs = append(descs, radio.DeviceDescriptor{Name: name})
			continue
		}
		descs = append(descs, radio.DeviceDescriptor{
			Name:         name,
			Manufacturer: manufacturer,
			Product:      product,
			Serial:       serial,
		})
	}
	return descs, nil
}

func (*Driver) Open(name string) (radio.Device, error) {
	count := rtlsdr.GetDeviceCount()
	for i := 0; i < count; i++ {
		if rtlsdr.GetDeviceName(i) != name {
			continue
		}
		dev, err := rtlsdr.Open(i)
		if err != nil {
			return nil, fmt.Errorf("opening rtl-sdr %s: %w", name, err)
		}
		return &device{dev: dev}, nil
	}
	return nil, radio.ErrDeviceNotFound
}

type device struct {
	dev  *rtlsdr.Context
	rate uint
}

func (d *device) Info() radio.DeviceInfo {
	return radio.DeviceInfo{
		ChannelCount: 1,
		SampleRates:  validSampleRates,
		SampleRate:   d.rate,
		StreamFormat: radio.CS16,
	}
}

func (d *device) ListSampleRates(int) ([]uint, error) {
	return validSampleRates, nil
}

func (d *device) closestValidRate(requested uint) uint {
	var best uint
	var minDiff uint = ^uint(0)
	for _, r := range validSampleRates {
		diff := r - requested
		if requested > r {
			diff = requested - r
		}
		if diff < minDiff {
			minDiff = diff
			best = r
		}
	}
	return best
}

func (d *device) SetSampleRate(_ int, rate uint) error {
	if err := d.dev.SetSampleRate(int(rate)); err != nil {
		fallback := d.closestValidRate(rate)
		if err := d.dev.SetSampleRate(int(fallback)); err != nil {
			return fmt.Errorf("setting sample rate %d (fallback %d): %w", rate, fallback, err)
		}
		d.rate = fallback
		return nil
	}
	d.rate = rate
	return nil
}

func (d *device) SetGain(_ int, gainDB float64) error {
	if err := d.dev.SetTunerGainMode(true); err != nil {
		return fmt.Errorf("enabling manual gain: %w", err)
	}
	if err := d.dev.SetTunerGain(int(gainDB * 10)); err != nil {
		return fmt.Errorf("setting gain %.1f dB: %w", gainDB, err)
	}
	return nil
}

func (d *device) SetFrequency(_ int, hz int64) error {
	if err := d.dev.SetCenterFreq(int(hz)); err != nil {
		return fmt.Errorf("setting frequency %d Hz: %w", hz, err)
	}
	return nil
}

func (d *device) SetupRXStream(_ int, format radio.SampleFormat) error {
	if format != radio.CS16 {
		return fmt.Errorf("rtl-sdr: unsupported sample format")
	}
	return d.dev.ResetBuffer()
}

func (d *device) Activate(int) error   { return nil }
func (d *device) Deactivate(int) error { return nil }
func (d *device) Close() error         { return d.dev.Close() }

// readTimeout bounds a single ReadSync call when ctx carries no deadline
// of its own (the radio facade requires Read to honor ReadTimeout;
// gortlsdr's ReadSync has no built-in timeout parameter).
const readTimeout = time.Second

func (d *device) Read(ctx context.Context, _ int, buf []int16) (int, radio.ReadFlags, int64, error) {
	// librtlsdr delivers unsigned 8-bit IQ; convert into the facade's
	// signed 16-bit contract by centering and scaling.
	raw := make([]byte, len(buf))

	deadline := readTimeout
	if dl, ok := ctx.Deadline(); ok {
		if remaining := time.Until(dl); remaining > 0 {
			deadline = remaining
		}
	}

	// ReadSync can block indefinitely on a stalled device, so it runs in
	// its own goroutine and races against ctx/deadline, the same pattern
	// ArgusSDR's rtlsdr collector uses around this same call.
	type readResult struct {
		n   int
		err error
	}
	readChan := make(chan readResult, 1)
	go func() {
		n, err := d.dev.ReadSync(raw, len(raw))
		readChan <- readResult{n: n, err: err}
	}()

	var n int
	var err error
	select {
	case res := <-readChan:
		n, err = res.n, res.err
	case <-time.After(deadline):
		return -1, 0, 0, nil // soft failure: Tuner retries
	case <-ctx.Done():
		return -1, 0, 0, nil
	}

	if err != nil {
		return -1, 0, 0, nil // soft failure: Tuner retries
	}
	pairs := n / 2
	for i := 0; i < pairs; i++ {
		buf[2*i] = (int16(raw[2*i]) - 128) * 256
		buf[2*i+1] = (int16(raw[2*i+1]) - 128) * 256
	}
	return pairs, radio.FlagHasTime, time.Now().UnixNano(), nil
}

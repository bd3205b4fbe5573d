// Package radio is the thin capability surface over whatever SDR library
// happens to be present on the host. It knows nothing about scan planning,
// windowing or accumulation; it only enumerates, opens, configures and
// streams IQ samples off of hardware (or a mock standing in for it).
package radio

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// SampleFormat identifies the wire layout of samples returned by Read.
// CS16 is the only format this facade exposes: interleaved signed 16-bit
// I/Q pairs.
type SampleFormat int

const (
	// CS16 is interleaved [I0, Q0, I1, Q1, ...] signed 16-bit integers.
	CS16 SampleFormat = iota
)

// ReadTimeout bounds every blocking call into a Driver.
const ReadTimeout = 1 * time.Second

// ReadFlags carries out-of-band information about a Read result.
type ReadFlags uint32

const (
	// FlagHasTime indicates the driver populated a hardware timestamp for
	// the returned block. When unset, the caller must substitute the
	// monotonic clock.
	FlagHasTime ReadFlags = 1 << iota

	// FlagOverflow indicates the driver dropped samples before this block.
	FlagOverflow
)

// Kind classifies facade errors so callers can decide whether to retry,
// abandon a tuning, or abort the whole run.
type Kind int

const (
	KindUnknown Kind = iota
	KindDeviceNotFound
	KindDriver
	KindTransientIO
)

// Error wraps a facade failure with a Kind so the scan loop can branch on
// it without string matching.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("radio: %s", e.Op)
	}
	return fmt.Sprintf("radio: %s: %s", e.Op, e.Err.Error())
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// ErrDeviceNotFound is returned by Open when the named device does not
// appear in Enumerate's results.
var ErrDeviceNotFound = errors.New("device not found")

// ErrNoDevices reports that no backend produced any device descriptor.
// Neither Enumerate nor EnumerateAll returns it; an empty result is
// returned instead.
var ErrNoDevices = errors.New("no devices available")

// DeviceDescriptor identifies one device a Driver can Open.
type DeviceDescriptor struct {
	Name         string
	Manufacturer string
	Product      string
	Serial       string
}

// DeviceInfo is populated once a device is opened and a stream configured.
// It captures hardware capability, not user intent.
type DeviceInfo struct {
	ChannelCount    int
	SampleRates     []uint // device-supported sample rates, ascending
	SampleRate      uint   // the rate actually chosen
	StreamFormat    SampleFormat
}

// Device is a single opened, channel-bound SDR ready to stream.
//
// All methods are synchronous; implementations must apply ReadTimeout (or
// an equivalent) to Read so a wedged driver cannot hang the Tuner forever.
type Device interface {
	// Info returns the capability snapshot gathered at Open/SetupRXStream time.
	Info() DeviceInfo

	// ListSampleRates returns the sample rates the given channel supports.
	ListSampleRates(channel int) ([]uint, error)

	// SetSampleRate configures the channel's sample rate.
	SetSampleRate(channel int, rate uint) error

	// SetGain sets the receiver gain, in dB, for the given channel.
	SetGain(channel int, gainDB float64) error

	// SetFrequency tunes the given channel's center frequency, in Hz.
	SetFrequency(channel int, hz int64) error

	// SetupRXStream prepares channel for streaming in the given format.
	// Must be called once, after SetSampleRate, before Activate.
	SetupRXStream(channel int, format SampleFormat) error

	// Activate starts the configured RX stream.
	Activate(channel int) error

	// Deactivate stops the RX stream; the device may be reconfigured and
	// reactivated afterward.
	Deactivate(channel int) error

	// Close releases the device. The Device must not be used afterward.
	Close() error

	// Read blocks for up to ReadTimeout, filling buf with up to
	// len(buf)/2 interleaved I/Q sample pairs. It returns the number of
	// pairs read, flags describing the block, and — if FlagHasTime is
	// set — the hardware timestamp in nanoseconds since an arbitrary
	// epoch. A negative pairsRead is a soft failure the Tuner retries; a
	// non-nil error is fatal to the current tuning.
	Read(ctx context.Context, channel int, buf []int16) (pairsRead int, flags ReadFlags, timestampNS int64, err error)
}

// Driver enumerates and opens devices. Each supported backend (mock, rtl,
// hackrf, ...) implements this once.
type Driver interface {
	// Enumerate lists every device this backend can see.
	Enumerate() ([]DeviceDescriptor, error)

	// Open opens the named device. name must be one returned by
	// Enumerate, or ErrDeviceNotFound is returned.
	Open(name string) (Device, error)
}

// Open enumerates every known driver and opens the first device whose
// descriptor name matches. It is the entry point cmd/wbscan uses to turn
// a "-d name" flag into a Device.
func Open(drivers []Driver, name string) (Device, error) {
	for _, d := range drivers {
		descs, err := d.Enumerate()
		if err != nil {
			continue
		}
		for _, desc := range descs {
			if desc.Name == name {
				dev, err := d.Open(name)
				if err != nil {
					return nil, newError(KindDriver, "open", err)
				}
				return dev, nil
			}
		}
	}
	return nil, newError(KindDeviceNotFound, "open", fmt.Errorf("%w: %s", ErrDeviceNotFound, name))
}

// EnumerateAll gathers device descriptors across every driver, skipping
// backends that fail to enumerate (e.g. a library not present at runtime).
func EnumerateAll(drivers []Driver) []DeviceDescriptor {
	var out []DeviceDescriptor
	for _, d := range drivers {
		descs, err := d.Enumerate()
		if err != nil {
			continue
		}
		out = append(out, descs...)
	}
	return out
}

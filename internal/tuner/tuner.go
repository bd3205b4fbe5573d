// Package tuner implements the per-retune state machine of spec §4.3:
// Tuning -> Flushing -> Ready, discarding stale samples left in the
// device's buffer from the previous frequency before the Scan Loop
// resumes acquisition.
package tuner

import (
	"context"
	"fmt"
	"time"

	"github.com/wbscan/wbscan/internal/radio"
)

// RetuneSleepMicros is the settle time before the first flush read.
const RetuneSleepMicros = 5_000

// MaxFlushSamples is the largest single discard read, in I/Q pairs.
const MaxFlushSamples = 1 << 16

// maxFlushAttempts is the number of discard reads attempted before a
// retune is declared failed.
const maxFlushAttempts = 3

// Clock abstracts the monotonic clock used to synthesise timestamps when
// the driver does not report HAS_TIME (spec §4.2), so tests can supply a
// deterministic one.
type Clock func() time.Time

// Tuner drives one device channel through Tuning -> Flushing -> Ready for
// every retune the Scan Loop requests.
type Tuner struct {
	dev     radio.Device
	channel int
	clock   Clock

	firstTime time.Time
	lastTime  time.Time
	hasFirst  bool

	currentFrequency int64
}

// New builds a Tuner bound to an already-opened device channel.
func New(dev radio.Device, channel int, clock Clock) *Tuner {
	if clock == nil {
		clock = time.Now
	}
	return &Tuner{dev: dev, channel: channel, clock: clock}
}

// CurrentFrequency returns the frequency committed at the last successful
// Retune. It is only meaningful once Retune has returned nil.
func (t *Tuner) CurrentFrequency() int64 { return t.currentFrequency }

// FirstTime returns the timestamp of the very first successful flush read
// of the process (spec §4.3).
func (t *Tuner) FirstTime() time.Time { return t.firstTime }

// LastTime returns the timestamp of the most recent successful flush
// read.
func (t *Tuner) LastTime() time.Time { return t.lastTime }

// Retune drives Tuning -> Flushing -> Ready for a new center frequency.
// current_frequency is committed only once Ready is reached, matching
// spec §4.3's exit condition.
func (t *Tuner) Retune(ctx context.Context, frequencyHz int64) error {
	retuneStart := t.clock()

	if err := t.dev.SetFrequency(t.channel, frequencyHz); err != nil {
		return fmt.Errorf("tuning: %w", err)
	}

	sleepCtx(ctx, RetuneSleepMicros*time.Microsecond)

	buf := make([]int16, 2*MaxFlushSamples)
	var failures int
	for failures < maxFlushAttempts {
		pairsRead, flags, timestampNS, err := t.dev.Read(ctx, t.channel, buf)
		if err != nil {
			return fmt.Errorf("flushing: %w", err)
		}
		if pairsRead < 0 {
			failures++
			continue
		}

		ts := t.resolveTimestamp(flags, timestampNS)
		if ts.Before(retuneStart) {
			ts = retuneStart
		}
		if !t.hasFirst {
			t.firstTime = ts
			t.hasFirst = true
		}
		t.lastTime = ts
		t.currentFrequency = frequencyHz
		return nil
	}

	return fmt.Errorf("flushing: %d consecutive read failures", failures)
}

func (t *Tuner) resolveTimestamp(flags radio.ReadFlags, timestampNS int64) time.Time {
	if flags&radio.FlagHasTime != 0 {
		return time.Unix(0, timestampNS)
	}
	return t.clock()
}

// sleepCtx sleeps for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

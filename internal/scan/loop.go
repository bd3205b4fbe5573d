// Package scan wires the planner, tuner, FFT pipeline and accumulator
// together into the outer Scan Loop (spec §4.6), and owns the two-level
// signal handling that lets an operator stop a long-running sweep
// cleanly or abort it immediately (spec §4.8).
package scan

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wbscan/wbscan/internal/dsp"
	"github.com/wbscan/wbscan/internal/plan"
	"github.com/wbscan/wbscan/internal/radio"
	"github.com/wbscan/wbscan/internal/tuner"
)

// MaxSamples bounds a single acquisition read, in I/Q pairs.
const MaxSamples = 1 << 16

// Clock abstracts the monotonic clock substituted for timestamps the
// driver does not report (spec §4.2).
type Clock func() time.Time

// Loop runs the acquisition pipeline: for each repetition, for each
// tuning, retune then acquire blocks until the dwell deadline, forwarding
// every block to the FFT pipeline which in turn feeds the Accumulator.
type Loop struct {
	Plan    plan.Plan
	Device  radio.Device
	Channel int

	Tuner      *tuner.Tuner
	Pipeline   *dsp.Pipeline
	Signals    *SignalHandler
	Logger     *slog.Logger

	// RepetitionLimit is the number of outer sweeps to run; 0 means
	// continuous until a signal is observed (spec §6 "-l n").
	RepetitionLimit int

	clock    Clock
	lastTime time.Time
}

// New builds a Loop ready to Run. The Loop does not hold the accumulator:
// the caller (cmd/wbscan) wires it as the pipeline's Sink and reads its
// Snapshot directly after Run returns.
func New(p plan.Plan, dev radio.Device, channel int, tu *tuner.Tuner, pipeline *dsp.Pipeline, signals *SignalHandler, logger *slog.Logger, repetitionLimit int, clock Clock) *Loop {
	if clock == nil {
		clock = time.Now
	}
	return &Loop{
		Plan:            p,
		Device:          dev,
		Channel:         channel,
		Tuner:           tu,
		Pipeline:        pipeline,
		Signals:         signals,
		Logger:          logger,
		RepetitionLimit: repetitionLimit,
		clock:           clock,
	}
}

// Result reports how a Run concluded.
type Result struct {
	Aborted     bool
	Repetitions int
}

// Run executes the Scan Loop until the repetition limit is reached, a
// level-1 interrupt ends it at the next tuning boundary, or a level-2
// interrupt aborts it before the next block read.
func (l *Loop) Run(ctx context.Context) (Result, error) {
	rep := 0
	for l.RepetitionLimit == 0 || rep < l.RepetitionLimit {
		if l.Signals.Caught() >= 1 {
			break
		}

		if err := l.Device.SetSampleRate(l.Channel, l.Plan.SampleRate); err != nil {
			return Result{Repetitions: rep}, fmt.Errorf("set sample rate: %w", err)
		}

		frequency := l.Plan.TuningStart
		for i := 0; i < l.Plan.TuningCount; i++ {
			if l.Signals.Caught() > 1 {
				l.Logger.Info("scan aborted", "repetition", rep, "tuning", i)
				return Result{Aborted: true, Repetitions: rep}, nil
			}
			if l.Signals.Caught() >= 1 {
				break
			}

			if err := l.Tuner.Retune(ctx, frequency); err != nil {
				l.Logger.Warn("retune failed, abandoning repetition", "error", err, "frequency", frequency)
				break
			}
			l.lastTime = l.Tuner.LastTime()

			deadline := l.lastTime.Add(time.Duration(l.Plan.DwellTimeMicros) * time.Microsecond)
			for l.lastTime.Before(deadline) {
				if l.Signals.Caught() > 1 {
					l.Logger.Info("scan aborted", "repetition", rep, "tuning", i)
					return Result{Aborted: true, Repetitions: rep}, nil
				}
				if !l.acquireOneBlock(ctx, frequency) {
					break
				}
			}

			frequency += l.Plan.TuningBandwidth
		}

		rep++
	}

	return Result{Repetitions: rep}, nil
}

func (l *Loop) acquireOneBlock(ctx context.Context, frequency int64) bool {
	buf := make([]int16, 2*MaxSamples)
	pairsRead, flags, timestampNS, err := l.Device.Read(ctx, l.Channel, buf)
	if err != nil {
		l.Logger.Warn("acquisition read failed", "error", err, "frequency", frequency)
		return false
	}
	if pairsRead < 0 {
		return false
	}

	if flags&radio.FlagHasTime != 0 {
		l.lastTime = time.Unix(0, timestampNS)
	} else {
		l.lastTime = l.clock()
	}

	l.Pipeline.Push(buf[:2*pairsRead], frequency)
	return true
}

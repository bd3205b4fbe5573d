// Package accumulator implements the Accumulator (spec §4.5): the global
// power array that sums retained FFT bins from every tuning and every
// repetition of a scan. It implements dsp.Sink so the Scan Loop can wire
// it directly as the FFT pipeline's delivery target.
package accumulator

import (
	"sync"

	"github.com/wbscan/wbscan/internal/dsp"
)

// Accumulator holds power_accumulation[], accumulation_count, and the
// synchronisation surface between the Scan Loop writer and the
// Publisher's concurrent readers (spec §5: a single RWMutex, write-locked
// only while a single frame's bins are being added).
type Accumulator struct {
	mu sync.RWMutex

	startFrequency      int64
	frequencyResolution uint
	tuningBandwidth     int64

	power []float32
	count uint64
}

// New builds an Accumulator sized for powerBuckets bins spanning
// [startFrequency, startFrequency+powerBuckets*frequencyResolution) at
// frequencyResolution Hz/bin. tuningBandwidth is needed at Deliver time to
// compute lowest_frequency_retained (spec §4.5 step 1).
func New(startFrequency int64, frequencyResolution uint, tuningBandwidth int64, powerBuckets int) *Accumulator {
	return &Accumulator{
		startFrequency:      startFrequency,
		frequencyResolution: frequencyResolution,
		tuningBandwidth:     tuningBandwidth,
		power:               make([]float32, powerBuckets),
	}
}

// Deliver implements dsp.Sink, applying spec §4.5's six-step algorithm.
// Out-of-range frames are silently dropped, as documented at spec §4.5
// step 4 and §9's edge-drop note.
func (a *Accumulator) Deliver(frame dsp.Frame) {
	lowestFrequencyRetained := frame.CenterFrequency - a.tuningBandwidth/2
	lowestBin := int((lowestFrequencyRetained - a.startFrequency) / int64(a.frequencyResolution))
	retainedBinCount := int(a.tuningBandwidth / int64(a.frequencyResolution))

	if lowestBin < 0 || lowestBin+retainedBinCount > len(a.power) {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for j := 0; j < retainedBinCount; j++ {
		offset := lowestFrequencyRetained + int64(j)*int64(a.frequencyResolution) - frame.CenterFrequency
		idx, ok := dsp.OffsetIndex(frame.FFTSize, frame.Resolution, offset)
		if !ok {
			// The bin at the tuning's exact center (offset 0, the dropped
			// DC bin) contributes nothing (spec §4.4, §9).
			continue
		}
		a.power[lowestBin+j] += float32(frame.Magnitudes[idx])
	}
	a.count++
}

// Snapshot is a read-only, point-in-time copy of the accumulator state,
// safe to serve to the Publisher without holding any lock.
type Snapshot struct {
	StartFrequency      int64
	FrequencyResolution uint
	AccumulationCount   uint64
	Power               []float32
}

// Snapshot copies the current accumulator state under a read lock (spec
// §4.6: "Accumulator snapshots taken by T_web need not be consistent with
// any single FFT frame boundary; they must never observe uninitialised
// memory or out-of-range indices").
func (a *Accumulator) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	power := make([]float32, len(a.power))
	copy(power, a.power)
	return Snapshot{
		StartFrequency:      a.startFrequency,
		FrequencyResolution: a.frequencyResolution,
		AccumulationCount:   a.count,
		Power:               power,
	}
}

// Averaged divides every bin by AccumulationCount, the normalisation the
// Publisher applies when serving a snapshot (spec §4.5: "addition is
// single-precision float; no normalisation on the hot path").
func (s Snapshot) Averaged() []float32 {
	out := make([]float32, len(s.Power))
	if s.AccumulationCount == 0 {
		return out
	}
	div := float32(s.AccumulationCount)
	for i, v := range s.Power {
		out[i] = v / div
	}
	return out
}

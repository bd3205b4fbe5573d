package publisher

import (
	"math"
	"time"

	"github.com/wbscan/wbscan/internal/accumulator"
)

// SnapshotView is the JSON wire shape served at /snapshot and persisted by
// internal/store: one averaged power-bin array plus the metadata needed
// to map bin index back to a frequency.
type SnapshotView struct {
	TakenAt             time.Time `json:"taken_at"`
	StartFrequency      int64     `json:"start_frequency_hz"`
	FrequencyResolution uint      `json:"frequency_resolution_hz"`
	AccumulationCount   uint64    `json:"accumulation_count"`
	PowerDB             []float32 `json:"power_db"`
}

// BuildSnapshotView averages the accumulator's raw sums and converts them
// to dB, the normalisation spec §4.5 defers to the publisher.
func BuildSnapshotView(snap accumulator.Snapshot, now time.Time) SnapshotView {
	avg := snap.Averaged()
	db := make([]float32, len(avg))
	for i, v := range avg {
		db[i] = magnitudeToDB(v)
	}
	return SnapshotView{
		TakenAt:             now,
		StartFrequency:      snap.StartFrequency,
		FrequencyResolution: snap.FrequencyResolution,
		AccumulationCount:   snap.AccumulationCount,
		PowerDB:             db,
	}
}

func magnitudeToDB(v float32) float32 {
	if v <= 0 {
		return -200
	}
	return float32(20 * math.Log10(float64(v)))
}

package publisher

import (
	"testing"
	"time"

	"github.com/wbscan/wbscan/internal/accumulator"
)

func TestBuildSnapshotViewConvertsToDB(t *testing.T) {
	acc := accumulator.New(100_000_000, 1000, 2_000_000, 4)
	snap := acc.Snapshot()
	snap.Power = []float32{0, 1, 10, 100}
	snap.AccumulationCount = 1

	view := BuildSnapshotView(snap, time.Unix(0, 0))

	if view.PowerDB[0] != -200 {
		t.Errorf("PowerDB[0] = %v, want -200 for zero magnitude", view.PowerDB[0])
	}
	if view.PowerDB[1] != 0 {
		t.Errorf("PowerDB[1] = %v, want 0 dB for unit magnitude", view.PowerDB[1])
	}
	if got, want := view.PowerDB[2], float32(20); got != want {
		t.Errorf("PowerDB[2] = %v, want %v", got, want)
	}
	if got, want := view.PowerDB[3], float32(40); got != want {
		t.Errorf("PowerDB[3] = %v, want %v", got, want)
	}
}

func TestColorMapperClampsOutOfRangeValues(t *testing.T) {
	cm := NewColorMapper(ClassicTheme, -50, 0)

	below := cm.Color(-1000)
	atMin := cm.Color(-50)
	if below != atMin {
		t.Error("Color(-1000) should clamp to the same color as Color(min)")
	}

	above := cm.Color(1000)
	atMax := cm.Color(0)
	if above != atMax {
		t.Error("Color(1000) should clamp to the same color as Color(max)")
	}
}

func TestColorMapperDegenerateRangeDoesNotPanic(t *testing.T) {
	cm := NewColorMapper(GrayscaleTheme, -50, -50)
	_ = cm.Color(-50)
}

func TestThemesProduceDistinctPalettes(t *testing.T) {
	classic := NewColorMapper(ClassicTheme, 0, 1).Color(0.5)
	gray := NewColorMapper(GrayscaleTheme, 0, 1).Color(0.5)
	thermal := NewColorMapper(ThermalTheme, 0, 1).Color(0.5)

	if classic == gray && gray == thermal {
		t.Error("expected distinct mid-range colors across themes")
	}
}

// Heatmap rendering is grounded on cmd/heatmap/app/render.go's
// border+annotate structure, adapted to draw a single averaged spectrum
// snapshot instead of a time-scrolling waterfall. The teacher embeds a
// TrueType font via github.com/golang/freetype for axis labels; that
// asset is not available here, so axis text uses
// golang.org/x/image/font/basicfont's built-in bitmap face instead,
// keeping the x/image dependency wired without requiring a font file
// (see DESIGN.md).
package publisher

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"

	"github.com/dustin/go-humanize"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// encodePNG writes img as a PNG. image/png is standard library; no
// example repo in the corpus pulls in a third-party PNG encoder, so this
// one ambient conversion stays on the standard library (see DESIGN.md).
func encodePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

const (
	topBorder    = 24
	bottomBorder = 24
	leftBorder   = 8
	rightBorder  = 8
	rowHeight    = 80
)

// RenderHeatmap draws one averaged spectrum snapshot as a horizontal
// strip: color encodes power, x encodes frequency. Labels mark the start
// and end frequencies using go-humanize's SI scaling (e.g. "100 MHz"),
// and the accumulation count below the strip.
func RenderHeatmap(view SnapshotView, theme ColorTheme) *image.RGBA {
	width := len(view.PowerDB)
	if width == 0 {
		width = 1
	}

	min, max := boundsOf(view.PowerDB)
	cm := NewColorMapper(theme, min, max)

	fullW := width + leftBorder + rightBorder
	fullH := rowHeight + topBorder + bottomBorder
	img := image.NewRGBA(image.Rect(0, 0, fullW, fullH))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	for x, db := range view.PowerDB {
		c := cm.Color(db)
		for y := 0; y < rowHeight; y++ {
			img.Set(leftBorder+x, topBorder+y, c)
		}
	}

	drawLabel(img, leftBorder, topBorder-6, frequencyLabel(view.StartFrequency))
	endFreq := view.StartFrequency + int64(width)*int64(view.FrequencyResolution)
	drawLabel(img, fullW-rightBorder-60, topBorder-6, frequencyLabel(endFreq))

	bottomY := topBorder + rowHeight + 14
	drawLabel(img, leftBorder, bottomY, fmt.Sprintf("n=%d", view.AccumulationCount))

	return img
}

func boundsOf(values []float32) (min, max float64) {
	if len(values) == 0 {
		return -120, 0
	}
	min, max = float64(values[0]), float64(values[0])
	for _, v := range values {
		f := float64(v)
		if f < min {
			min = f
		}
		if f > max {
			max = f
		}
	}
	return min, max
}

func frequencyLabel(hz int64) string {
	return humanize.SI(float64(hz), "Hz")
}

func drawLabel(img *image.RGBA, x, y int, text string) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

package publisher

import (
	"image/color"
	"math"
)

// ColorTheme selects a power-to-color mapping for the heatmap endpoint,
// adapted from cmd/heatmap/app/color_mapper.go's theme table.
type ColorTheme string

const (
	ClassicTheme   ColorTheme = "classic"
	GrayscaleTheme ColorTheme = "grayscale"
	ThermalTheme   ColorTheme = "thermal"
)

const defaultColorMapSize = 256

// ColorMapper pre-computes a lookup table mapping a normalized power value
// in [min, max] to a color, so the heatmap renderer never runs HSV math
// per pixel.
type ColorMapper struct {
	colorMap []color.Color
	min, max float64
}

// NewColorMapper builds a ColorMapper for theme over [min, max] dB.
func NewColorMapper(theme ColorTheme, min, max float64) *ColorMapper {
	if max <= min {
		max = min + 1
	}
	fn := themeFunc(theme)
	cm := &ColorMapper{colorMap: make([]color.Color, defaultColorMapSize), min: min, max: max}
	for i := range cm.colorMap {
		cm.colorMap[i] = fn(float64(i) / float64(len(cm.colorMap)-1))
	}
	return cm
}

// Color maps a raw dB value into the precomputed table, clamping at the
// configured bounds.
func (cm *ColorMapper) Color(db float32) color.Color {
	norm := (float64(db) - cm.min) / (cm.max - cm.min)
	if norm < 0 {
		norm = 0
	}
	if norm > 1 {
		norm = 1
	}
	idx := int(norm * float64(len(cm.colorMap)-1))
	return cm.colorMap[idx]
}

type hsv struct{ h, s, v float64 }

func (c hsv) rgb() color.Color {
	if c.s <= 0 {
		v := uint8(c.v * 255)
		return color.RGBA{R: v, G: v, B: v, A: 255}
	}
	h := math.Mod(c.h, 360) / 60
	i := math.Floor(h)
	f := h - i
	p := c.v * (1 - c.s)
	q := c.v * (1 - c.s*f)
	t := c.v * (1 - c.s*(1-f))

	var r, g, b float64
	switch int(i) {
	case 0:
		r, g, b = c.v, t, p
	case 1:
		r, g, b = q, c.v, p
	case 2:
		r, g, b = p, c.v, t
	case 3:
		r, g, b = p, q, c.v
	case 4:
		r, g, b = t, p, c.v
	default:
		r, g, b = c.v, p, q
	}
	return color.RGBA{R: uint8(r * 255), G: uint8(g * 255), B: uint8(b * 255), A: 255}
}

func themeFunc(theme ColorTheme) func(float64) color.Color {
	switch theme {
	case GrayscaleTheme:
		return func(p float64) color.Color {
			v := uint8(math.Pow(p, 0.7) * 255)
			return color.RGBA{R: v, G: v, B: v, A: 255}
		}
	case ThermalTheme:
		return func(p float64) color.Color {
			switch {
			case p < 0.33:
				return color.RGBA{R: uint8(p * 3 * 255), A: 255}
			case p < 0.66:
				return color.RGBA{R: 255, G: uint8((p - 0.33) * 3 * 255), A: 255}
			default:
				return color.RGBA{R: 255, G: 255, B: uint8((p - 0.66) * 3 * 255), A: 255}
			}
		}
	default: // ClassicTheme
		return func(p float64) color.Color {
			return hsv{h: 240 - p*240, s: 0.9 + p*0.1, v: math.Pow(p, 0.7)}.rgb()
		}
	}
}

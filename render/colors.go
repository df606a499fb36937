package render

import (
	"image/color"

	colorful "github.com/lucasb-eyer/go-colorful"
)

var (
	// classColors is the fixed palette used to paint detection boxes
	classColors = []color.RGBA{
		{R: 255, G: 56, B: 56, A: 255},   // #FF3838
		{R: 255, G: 178, B: 29, A: 255},  // #FFB21D
		{R: 72, G: 249, B: 10, A: 255},   // #48F90A
		{R: 0, G: 212, B: 187, A: 255},   // #00D4BB
		{R: 0, G: 194, B: 255, A: 255},   // #00C2FF
		{R: 100, G: 115, B: 255, A: 255}, // #6473FF
		{R: 203, G: 56, B: 255, A: 255},  // #CB38FF
		{R: 255, G: 55, B: 199, A: 255},  // #FF37C7
	}

	Black  = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Yellow = color.RGBA{R: 255, G: 255, B: 50, A: 255}
)

// ClassColor returns the palette color for index i, wrapping around when
// more boxes than palette entries are drawn in one frame
func ClassColor(i int) color.RGBA {
	return classColors[i%len(classColors)]
}

// HueRamp generates n visually distinct colors spaced evenly around the
// hue wheel, for callers drawing more classes than the fixed palette
// covers
func HueRamp(n int) []color.RGBA {

	out := make([]color.RGBA, n)

	for i := range out {
		h := float64(i) * 360.0 / float64(n)

		r, g, b := colorful.Hsv(h, 0.75, 0.95).RGB255()

		out[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}

	return out
}

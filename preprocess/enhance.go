package preprocess

import (
	"github.com/Oculis-Navigate/go-routesight"
	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/effect"
)

// contrastBoost is the contrast change applied ahead of symbol reading
const contrastBoost = 0.25

// Enhance flattens a cropped region to grayscale and stretches its
// contrast.  Route numbers sit on high contrast sign boards, so this
// lifts dim or hazy captures ahead of the symbol reader without
// disturbing clean ones.  The result is an RGBA buffer.
func Enhance(src *routesight.ImageBuffer) *routesight.ImageBuffer {

	img := src.ToImage()

	gray := effect.Grayscale(img)
	boosted := adjust.Contrast(gray, contrastBoost)

	return routesight.FromImage(boosted)
}

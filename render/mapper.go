package render

import (
	"image"
	"math"

	"github.com/Oculis-Navigate/go-routesight"
)

// Orientation is the physical orientation of the capture device when a
// frame was taken
type Orientation int

const (
	// Portrait is the natural handheld orientation
	Portrait Orientation = iota
	// PortraitUpsideDown is portrait rotated a half turn
	PortraitUpsideDown
	// LandscapeLeft is landscape with the home side on the left
	LandscapeLeft
	// LandscapeRight is landscape with the home side on the right
	LandscapeRight
)

// String returns a readable name for the orientation
func (o Orientation) String() string {
	switch o {
	case Portrait:
		return "Portrait"
	case PortraitUpsideDown:
		return "PortraitUpsideDown"
	case LandscapeLeft:
		return "LandscapeLeft"
	case LandscapeRight:
		return "LandscapeRight"
	}

	return "Unknown"
}

// portrait returns true for the portrait family of orientations
func (o Orientation) portrait() bool {
	return o == Portrait || o == PortraitUpsideDown
}

// Viewport is the display surface detection boxes are mapped onto
type Viewport struct {
	Width  int
	Height int
}

// AspectRatio holds the long and short side of the capture preset, for
// example 1920 and 1080.  Only the ratio between them matters and it is
// independent of device orientation.
type AspectRatio struct {
	Long  float32
	Short float32
}

// MapBox converts a normalized detection box into viewport pixel
// coordinates.  Portrait orientations present the sensor frame in the
// aspect fill style of a camera preview, so the overflowing axis is
// cropped equally on both sides and boxes shift by the overflow offset.
// Landscape orientations scale linearly with centering offsets, the same
// letterbox arithmetic used when fitting frames to a detector input.
// Upside down frames mirror both axes before the branch logic; the
// mirrored variants only occur in portrait because the capture session
// re-orients landscape frames before delivery.  The input box is clamped
// first and a degenerate box or viewport maps to the empty rectangle.
func MapBox(box routesight.NormalizedBox, vp Viewport, src AspectRatio,
	o Orientation) image.Rectangle {

	box = box.Clamp()

	if box.Empty() || vp.Width <= 0 || vp.Height <= 0 ||
		src.Long <= 0 || src.Short <= 0 {
		return image.Rectangle{}
	}

	if o == PortraitUpsideDown {
		box = mirror(box)
	}

	scaleX, scaleY, offX, offY := geometry(vp, src, o.portrait())

	x0 := float64(box.X*scaleX + offX)
	y0 := float64(box.Y*scaleY + offY)
	x1 := float64((box.X+box.Width)*scaleX + offX)
	y1 := float64((box.Y+box.Height)*scaleY + offY)

	rect := image.Rect(
		int(math.Round(x0)), int(math.Round(y0)),
		int(math.Round(x1)), int(math.Round(y1)),
	)

	// in fill mode boxes can extend past the display edges
	return rect.Intersect(image.Rect(0, 0, vp.Width, vp.Height))
}

// UnmapRect converts a viewport pixel rectangle back into a normalized
// box, inverting MapBox for the same viewport, aspect, and orientation.
// A degenerate rectangle or viewport unmaps to the zero box.
func UnmapRect(rect image.Rectangle, vp Viewport, src AspectRatio,
	o Orientation) routesight.NormalizedBox {

	rect = rect.Canon()

	if rect.Dx() <= 0 || rect.Dy() <= 0 || vp.Width <= 0 ||
		vp.Height <= 0 || src.Long <= 0 || src.Short <= 0 {
		return routesight.NormalizedBox{}
	}

	scaleX, scaleY, offX, offY := geometry(vp, src, o.portrait())

	box := routesight.NormalizedBox{
		X:      (float32(rect.Min.X) - offX) / scaleX,
		Y:      (float32(rect.Min.Y) - offY) / scaleY,
		Width:  float32(rect.Dx()) / scaleX,
		Height: float32(rect.Dy()) / scaleY,
	}

	if o == PortraitUpsideDown {
		box = mirror(box)
	}

	return box.Clamp()
}

// mirror flips a normalized box across both axes of the unit square
func mirror(box routesight.NormalizedBox) routesight.NormalizedBox {
	return routesight.NormalizedBox{
		X:      1 - box.X - box.Width,
		Y:      1 - box.Y - box.Height,
		Width:  box.Width,
		Height: box.Height,
	}
}

// geometry computes the affine transform between unit frame space and
// viewport pixels.  The sensor frame is Short by Long in portrait and
// Long by Short in landscape.  Portrait fills the viewport so the larger
// scale factor wins, landscape fits inside it so the smaller one does;
// either way the frame is centered and the offsets carry the difference.
func geometry(vp Viewport, src AspectRatio,
	portrait bool) (scaleX, scaleY, offX, offY float32) {

	frameW := src.Long
	frameH := src.Short

	if portrait {
		frameW, frameH = src.Short, src.Long
	}

	scaleW := float32(vp.Width) / frameW
	scaleH := float32(vp.Height) / frameH

	scale := scaleW

	if portrait {
		if scaleH > scaleW {
			scale = scaleH
		}
	} else {
		if scaleH < scaleW {
			scale = scaleH
		}
	}

	scaleX = frameW * scale
	scaleY = frameH * scale
	offX = (float32(vp.Width) - scaleX) / 2
	offY = (float32(vp.Height) - scaleY) / 2

	return scaleX, scaleY, offX, offY
}

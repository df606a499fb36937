package preprocess

import (
	"fmt"
	"image"

	"github.com/Oculis-Navigate/go-routesight"
	"golang.org/x/image/draw"
)

// Scale resizes src to the given dimensions using bilinear interpolation.
// Detector backends usually want a fixed input size regardless of how big
// the cropped region was.  The result is always an RGBA buffer.
func Scale(src *routesight.ImageBuffer,
	width, height int) (*routesight.ImageBuffer, error) {

	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid scale dimensions %dx%d",
			width, height)
	}

	in := src.ToImage()

	// already the right size
	if src.Width == width && src.Height == height {
		return routesight.FromImage(in), nil
	}

	out := image.NewRGBA(image.Rect(0, 0, width, height))

	draw.BiLinear.Scale(out, out.Bounds(), in, in.Bounds(), draw.Src, nil)

	return routesight.FromImage(out), nil
}

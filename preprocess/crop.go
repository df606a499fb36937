// Package preprocess prepares camera frames and cropped regions for the
// detection stages.
package preprocess

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/Oculis-Navigate/go-routesight"
)

// ErrInvalidBounds is returned when a crop region does not fit inside the
// source image
var ErrInvalidBounds = errors.New("invalid crop bounds")

// Crop copies the part of src covered by the normalized box into a new
// buffer.  The box is converted to integer pixel bounds by rounding, so a
// clamped box can still land outside the source by a pixel; that case
// returns ErrInvalidBounds and the caller skips the region this cycle.
// The returned buffer keeps the source pixel format, has a tight stride,
// and never aliases source memory.
func Crop(src *routesight.ImageBuffer,
	box routesight.NormalizedBox) (*routesight.ImageBuffer, error) {

	x := int(math.Round(float64(box.X) * float64(src.Width)))
	y := int(math.Round(float64(box.Y) * float64(src.Height)))
	w := int(math.Round(float64(box.Width) * float64(src.Width)))
	h := int(math.Round(float64(box.Height) * float64(src.Height)))

	return cropPixels(src, x, y, w, h)
}

// CropRect is the pixel space variant of Crop.  The rectangle must be
// canonical, a swapped or empty rectangle returns ErrInvalidBounds.
func CropRect(src *routesight.ImageBuffer,
	rect image.Rectangle) (*routesight.ImageBuffer, error) {

	return cropPixels(src, rect.Min.X, rect.Min.Y, rect.Dx(), rect.Dy())
}

// cropPixels validates the pixel bounds and performs the row by row copy
func cropPixels(src *routesight.ImageBuffer,
	x, y, w, h int) (*routesight.ImageBuffer, error) {

	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("crop size %dx%d: %w", w, h, ErrInvalidBounds)
	}

	if x < 0 || y < 0 {
		return nil, fmt.Errorf("crop origin %d,%d: %w", x, y,
			ErrInvalidBounds)
	}

	if x+w > src.Width || y+h > src.Height {
		return nil, fmt.Errorf(
			"crop region %dx%d at %d,%d exceeds source %dx%d: %w",
			w, h, x, y, src.Width, src.Height, ErrInvalidBounds)
	}

	dst, err := routesight.NewImageBuffer(w, h, src.Format)

	if err != nil {
		return nil, fmt.Errorf("error allocating crop buffer: %w", err)
	}

	bpp := src.Format.BytesPerPixel()

	// copy row by row honoring both strides
	for row := 0; row < h; row++ {
		srcOff := (y+row)*src.Stride + x*bpp
		dstOff := row * dst.Stride

		copy(dst.Pix[dstOff:dstOff+w*bpp], src.Pix[srcOff:srcOff+w*bpp])
	}

	return dst, nil
}

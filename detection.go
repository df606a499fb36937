package routesight

import (
	"context"
	"errors"
)

// ErrUnavailable is returned by detector backends compiled out of the
// current build
var ErrUnavailable = errors.New("detector backend unavailable in this build")

// Detection is a single object or symbol found by a detector.  The box is
// normalized to the image the detector was handed, so primary detections
// live in frame space and secondary detections live in crop space.
type Detection struct {
	Box        NormalizedBox
	Label      string
	Confidence float32
}

// Detector is the capability used for both detection stages.  The primary
// detector locates vehicles in full frames and the secondary detector
// locates character symbols inside cropped regions.  Implementations are
// supplied by the caller and may be backed by any inference runtime.
type Detector interface {
	Detect(ctx context.Context, img *ImageBuffer) ([]Detection, error)
}

// DetectorFunc adapts a plain function to the Detector interface
type DetectorFunc func(ctx context.Context, img *ImageBuffer) ([]Detection, error)

// Detect calls the wrapped function
func (f DetectorFunc) Detect(ctx context.Context,
	img *ImageBuffer) ([]Detection, error) {
	return f(ctx, img)
}

package preprocess

import (
	"fmt"

	"github.com/Oculis-Navigate/go-routesight"
	"gocv.io/x/gocv"
)

// ImageFromMat copies a gocv Mat into an ImageBuffer.  Capture devices
// deliver 8 bit BGR Mats; single channel and BGRA Mats are accepted too.
func ImageFromMat(mat gocv.Mat) (*routesight.ImageBuffer, error) {

	if mat.Empty() {
		return nil, fmt.Errorf("mat is empty")
	}

	var format routesight.PixelFormat

	switch mat.Type() {
	case gocv.MatTypeCV8UC1:
		format = routesight.FormatGray
	case gocv.MatTypeCV8UC3:
		format = routesight.FormatBGR
	case gocv.MatTypeCV8UC4:
		format = routesight.FormatBGRA
	default:
		return nil, fmt.Errorf("unsupported mat type %d", mat.Type())
	}

	// region views are not continuous in memory, flatten those first
	src := mat

	if !mat.IsContinuous() {
		src = mat.Clone()
		defer src.Close()
	}

	buf, err := routesight.NewImageBuffer(src.Cols(), src.Rows(), format)

	if err != nil {
		return nil, fmt.Errorf("error allocating buffer: %w", err)
	}

	copy(buf.Pix, src.ToBytes())

	return buf, nil
}

// MatFromImage converts an ImageBuffer into a new BGR Mat for gocv based
// consumers.  The caller owns the returned Mat and must Close it.
func MatFromImage(buf *routesight.ImageBuffer) (gocv.Mat, error) {

	rgba := buf.ToImage()

	mat, err := gocv.NewMatFromBytes(buf.Height, buf.Width,
		gocv.MatTypeCV8UC4, rgba.Pix)

	if err != nil || mat.Empty() {
		return gocv.NewMat(), fmt.Errorf("error creating mat from buffer")
	}

	gocv.CvtColor(mat, &mat, gocv.ColorRGBAToBGR)

	return mat, nil
}

package routesight

import (
	"fmt"
	"image"
	"image/color"
)

// PixelFormat describes the channel layout of an ImageBuffer
type PixelFormat int

const (
	FormatGray PixelFormat = iota
	FormatRGB
	FormatBGR
	FormatRGBA
	FormatBGRA
)

// BytesPerPixel returns the number of bytes used per pixel for the format
func (p PixelFormat) BytesPerPixel() int {
	switch p {
	case FormatGray:
		return 1
	case FormatRGB, FormatBGR:
		return 3
	case FormatRGBA, FormatBGRA:
		return 4
	}

	return 0
}

// String returns a readable name for the pixel format
func (p PixelFormat) String() string {
	switch p {
	case FormatGray:
		return "Gray"
	case FormatRGB:
		return "RGB"
	case FormatBGR:
		return "BGR"
	case FormatRGBA:
		return "RGBA"
	case FormatBGRA:
		return "BGRA"
	}

	return "Unknown"
}

// ImageBuffer is a packed 8-bit raster.  It is the currency type handed to
// detectors and returned by the cropper.  Stride is the number of bytes per
// row and may exceed Width*BytesPerPixel when rows carry padding.
type ImageBuffer struct {
	Width  int
	Height int
	Format PixelFormat
	Stride int
	Pix    []byte
}

// NewImageBuffer allocates a buffer with a tight stride
func NewImageBuffer(width, height int, format PixelFormat) (*ImageBuffer, error) {
	return NewImageBufferStride(width, height, format,
		width*format.BytesPerPixel())
}

// NewImageBufferStride allocates a buffer with an explicit row stride
func NewImageBufferStride(width, height int, format PixelFormat,
	stride int) (*ImageBuffer, error) {

	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid dimensions %dx%d", width, height)
	}

	bpp := format.BytesPerPixel()

	if bpp == 0 {
		return nil, fmt.Errorf("unknown pixel format %d", format)
	}

	if stride < width*bpp {
		return nil, fmt.Errorf("stride %d is less than row width %d",
			stride, width*bpp)
	}

	return &ImageBuffer{
		Width:  width,
		Height: height,
		Format: format,
		Stride: stride,
		Pix:    make([]byte, stride*height),
	}, nil
}

// Clone returns a deep copy of the buffer
func (b *ImageBuffer) Clone() *ImageBuffer {

	pix := make([]byte, len(b.Pix))
	copy(pix, b.Pix)

	return &ImageBuffer{
		Width:  b.Width,
		Height: b.Height,
		Format: b.Format,
		Stride: b.Stride,
		Pix:    pix,
	}
}

// RowOffset returns the byte offset of the start of row y
func (b *ImageBuffer) RowOffset(y int) int {
	return y * b.Stride
}

// ToImage converts the buffer to a standard library RGBA image
func (b *ImageBuffer) ToImage() *image.RGBA {

	img := image.NewRGBA(image.Rect(0, 0, b.Width, b.Height))

	bpp := b.Format.BytesPerPixel()

	for y := 0; y < b.Height; y++ {

		src := b.Pix[y*b.Stride:]
		dst := img.Pix[y*img.Stride:]

		for x := 0; x < b.Width; x++ {

			s := src[x*bpp:]
			d := dst[x*4 : x*4+4]

			switch b.Format {
			case FormatGray:
				d[0], d[1], d[2], d[3] = s[0], s[0], s[0], 0xff
			case FormatRGB:
				d[0], d[1], d[2], d[3] = s[0], s[1], s[2], 0xff
			case FormatBGR:
				d[0], d[1], d[2], d[3] = s[2], s[1], s[0], 0xff
			case FormatRGBA:
				d[0], d[1], d[2], d[3] = s[0], s[1], s[2], s[3]
			case FormatBGRA:
				d[0], d[1], d[2], d[3] = s[2], s[1], s[0], s[3]
			}
		}
	}

	return img
}

// FromImage converts a standard library image into an RGBA format buffer.
// A zero area image converts to nil.
func FromImage(img image.Image) *ImageBuffer {

	bounds := img.Bounds()

	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil
	}

	out, _ := NewImageBuffer(bounds.Dx(), bounds.Dy(), FormatRGBA)

	// fast path for RGBA images with matching layout
	if rgba, ok := img.(*image.RGBA); ok {

		for y := 0; y < out.Height; y++ {
			src := rgba.Pix[y*rgba.Stride : y*rgba.Stride+out.Width*4]
			dst := out.Pix[y*out.Stride:]
			copy(dst, src)
		}

		return out
	}

	for y := 0; y < out.Height; y++ {

		dst := out.Pix[y*out.Stride:]

		for x := 0; x < out.Width; x++ {
			c := color.RGBAModel.Convert(
				img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.RGBA)

			d := dst[x*4 : x*4+4]
			d[0], d[1], d[2], d[3] = c.R, c.G, c.B, c.A
		}
	}

	return out
}

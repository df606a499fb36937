//go:build cgo

// Package tesseract provides a symbol detector backed by the Tesseract
// OCR engine.  It reads individual characters with their bounding boxes
// out of a cropped region, so it slots in as the secondary detector when
// no trained symbol recognition model is available.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"sync"

	"github.com/Oculis-Navigate/go-routesight"
	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

const (
	// DefaultWhitelist is the symbol set route identifiers are read from
	DefaultWhitelist = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// DefaultLanguage is the tesseract language model used
	DefaultLanguage = "eng"
	// minReadHeight is the height crops are scaled up to before OCR, the
	// engine reads small regions poorly
	minReadHeight = 64
)

// Params defines the struct containing parameters for the symbol reader
type Params struct {
	// Whitelist restricts recognition to these characters
	Whitelist string
	// Language is the tesseract language model to load
	Language string
}

// Reader reads character symbols with the Tesseract engine.  A Reader
// holds one engine client which handles a single read at a time, so share
// Readers across goroutines through a DetectorPool.
type Reader struct {
	params Params

	mu     sync.Mutex
	client *gosseract.Client
}

// NewReader returns a symbol reader.  Zero params fall back to their
// defaults.
func NewReader(p Params) (*Reader, error) {

	if p.Whitelist == "" {
		p.Whitelist = DefaultWhitelist
	}

	if p.Language == "" {
		p.Language = DefaultLanguage
	}

	client := gosseract.NewClient()

	if err := client.SetLanguage(p.Language); err != nil {
		client.Close()
		return nil, fmt.Errorf("error setting language: %w", err)
	}

	if err := client.SetWhitelist(p.Whitelist); err != nil {
		client.Close()
		return nil, fmt.Errorf("error setting whitelist: %w", err)
	}

	// route identifiers are a single line of text
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_LINE); err != nil {
		client.Close()
		return nil, fmt.Errorf("error setting page mode: %w", err)
	}

	return &Reader{
		params: p,
		client: client,
	}, nil
}

// Detect reads character symbols out of the image.  Boxes are normalized
// to the handed image and each detection carries a single character label.
func (r *Reader) Detect(ctx context.Context,
	img *routesight.ImageBuffer) ([]routesight.Detection, error) {

	if img == nil {
		return nil, fmt.Errorf("nil image")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// flatten to grayscale and scale small crops up for the engine
	prep := imaging.Grayscale(img.ToImage())

	if prep.Bounds().Dy() < minReadHeight {
		prep = imaging.Resize(prep, 0, minReadHeight, imaging.Lanczos)
	}

	w := float32(prep.Bounds().Dx())
	h := float32(prep.Bounds().Dy())

	var buf bytes.Buffer

	if err := png.Encode(&buf, prep); err != nil {
		return nil, fmt.Errorf("error encoding image: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client == nil {
		return nil, routesight.ErrUnavailable
	}

	if err := r.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("error setting image: %w", err)
	}

	boxes, err := r.client.GetBoundingBoxes(gosseract.RIL_SYMBOL)

	if err != nil {
		return nil, fmt.Errorf("error reading symbols: %w", err)
	}

	dets := make([]routesight.Detection, 0, len(boxes))

	for _, box := range boxes {

		if box.Word == "" {
			continue
		}

		conf := float32(box.Confidence) / 100

		if conf < 0 {
			conf = 0
		}

		if conf > 1 {
			conf = 1
		}

		dets = append(dets, routesight.Detection{
			Box: routesight.NormalizedBox{
				X:      float32(box.Box.Min.X) / w,
				Y:      float32(box.Box.Min.Y) / h,
				Width:  float32(box.Box.Dx()) / w,
				Height: float32(box.Box.Dy()) / h,
			}.Clamp(),
			Label:      box.Word,
			Confidence: conf,
		})
	}

	return dets, nil
}

// Close releases the engine client.  The reader cannot be used afterwards.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.client == nil {
		return nil
	}

	err := r.client.Close()
	r.client = nil

	return err
}

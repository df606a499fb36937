//go:build !cgo

// Package tesseract provides a symbol detector backed by the Tesseract
// OCR engine.  Builds without cgo get this stub, which reports the
// backend as unavailable.
package tesseract

import (
	"context"

	"github.com/Oculis-Navigate/go-routesight"
)

const (
	// DefaultWhitelist is the symbol set route identifiers are read from
	DefaultWhitelist = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// DefaultLanguage is the tesseract language model used
	DefaultLanguage = "eng"
)

// Params defines the struct containing parameters for the symbol reader
type Params struct {
	// Whitelist restricts recognition to these characters
	Whitelist string
	// Language is the tesseract language model to load
	Language string
}

// Reader is the stub symbol reader for builds without cgo
type Reader struct {
	params Params
}

// NewReader returns a stub reader whose Detect always reports the backend
// unavailable
func NewReader(p Params) (*Reader, error) {
	return &Reader{params: p}, nil
}

// Detect reports the backend unavailable
func (r *Reader) Detect(ctx context.Context,
	img *routesight.ImageBuffer) ([]routesight.Detection, error) {

	return nil, routesight.ErrUnavailable
}

// Close is a no-op on the stub reader
func (r *Reader) Close() error {
	return nil
}

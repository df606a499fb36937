package postprocess

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Oculis-Navigate/go-routesight"
	"github.com/x448/float16"
)

// TensorType identifies the element type of a raw model output buffer
type TensorType int

const (
	TensorFloat32 TensorType = iota
	TensorFloat16
)

// SequenceParams defines the struct containing the parameters for decoding
// sequence recognition model output
type SequenceParams struct {
	// Alphabet is the ordered list of symbols the model was trained on
	Alphabet []string
	// BlankIndex is the alphabet index that stands for no symbol.  Out of
	// range values fall back to the last alphabet entry, the usual blank
	// position for these models.
	BlankIndex int
}

// SequenceDecoder decodes the probability grid emitted by a sequence
// recognition model into positioned symbol fragments.  Models of this
// family read a fixed number of horizontal steps across the image and
// emit one column of symbol scores per step.
type SequenceDecoder struct {
	Params SequenceParams
}

// NewSequenceDecoder returns an instance of the sequence decoder
func NewSequenceDecoder(p SequenceParams) *SequenceDecoder {

	d := &SequenceDecoder{
		Params: p,
	}

	if d.Params.BlankIndex < 0 || d.Params.BlankIndex >= len(p.Alphabet) {
		d.Params.BlankIndex = len(p.Alphabet) - 1
	}

	return d
}

// DecodeGrid decodes a probability grid laid out step major, one alphabet
// row per step, into symbol fragments.  Repeated symbols collapse to one
// and blanks separate genuine doubles.  Each fragment gets a synthetic
// box centered on its step, full height, so stitching works the same
// whether symbols came from a box detector or a sequence model.  Grid
// values are treated as confidences as given.
func (d *SequenceDecoder) DecodeGrid(grid []float32,
	steps int) ([]routesight.Detection, error) {

	numChar := len(d.Params.Alphabet)

	if steps <= 0 || numChar == 0 {
		return nil, fmt.Errorf("invalid decode shape, %d steps by %d symbols",
			steps, numChar)
	}

	if len(grid) < steps*numChar {
		return nil, fmt.Errorf("grid has %d values, need %d",
			len(grid), steps*numChar)
	}

	var out []routesight.Detection

	// previous step's strongest symbol, used to collapse repeats
	prev := d.Params.BlankIndex

	for step := 0; step < steps; step++ {
		row := grid[step*numChar : (step+1)*numChar]

		best := argMax(row)

		if best == d.Params.BlankIndex || best == prev {
			prev = best
			continue
		}

		width := 1 / float32(steps)

		out = append(out, routesight.Detection{
			Box: routesight.NormalizedBox{
				X:      float32(step) * width,
				Y:      0,
				Width:  width,
				Height: 1,
			},
			Label:      d.Params.Alphabet[best],
			Confidence: row[best],
		})

		prev = best
	}

	return out, nil
}

// DecodeRaw decodes a raw little endian tensor buffer and hands it to
// DecodeGrid.  Inference runtimes commonly emit float16 output which Go
// has no native support for, so those values are widened first.
func (d *SequenceDecoder) DecodeRaw(raw []byte, dtype TensorType,
	steps int) ([]routesight.Detection, error) {

	var grid []float32

	switch dtype {
	case TensorFloat32:
		if len(raw)%4 != 0 {
			return nil, fmt.Errorf(
				"float32 buffer length %d is not a multiple of 4", len(raw))
		}

		grid = make([]float32, len(raw)/4)

		for i := range grid {
			grid[i] = math.Float32frombits(
				binary.LittleEndian.Uint32(raw[i*4:]))
		}

	case TensorFloat16:
		if len(raw)%2 != 0 {
			return nil, fmt.Errorf(
				"float16 buffer length %d is not a multiple of 2", len(raw))
		}

		grid = make([]float32, len(raw)/2)

		for i := range grid {
			f16 := float16.Frombits(binary.LittleEndian.Uint16(raw[i*2:]))
			grid[i] = f16.Float32()
		}

	default:
		return nil, fmt.Errorf("unknown tensor type %d", dtype)
	}

	return d.DecodeGrid(grid, steps)
}

// argMax returns the index of the maximum value in the array
func argMax(arr []float32) int {

	maxIndex := 0

	for i, value := range arr {
		if value > arr[maxIndex] {
			maxIndex = i
		}
	}

	return maxIndex
}

// ForwardFunc runs a recognition model over a prepared region and returns
// its probability grid along with the number of steps in it
type ForwardFunc func(ctx context.Context,
	img *routesight.ImageBuffer) ([]float32, int, error)

// SequenceDetector adapts a sequence recognition model to the Detector
// capability, so models that read whole strings plug into the same
// pipeline slot as symbol box detectors.
type SequenceDetector struct {
	decoder *SequenceDecoder
	forward ForwardFunc
}

// NewSequenceDetector returns a Detector backed by the given forward pass
// and decode parameters
func NewSequenceDetector(p SequenceParams,
	forward ForwardFunc) *SequenceDetector {

	return &SequenceDetector{
		decoder: NewSequenceDecoder(p),
		forward: forward,
	}
}

// Detect runs the forward pass and decodes its output into fragments
func (s *SequenceDetector) Detect(ctx context.Context,
	img *routesight.ImageBuffer) ([]routesight.Detection, error) {

	grid, steps, err := s.forward(ctx, img)

	if err != nil {
		return nil, fmt.Errorf("error running sequence model: %w", err)
	}

	return s.decoder.DecodeGrid(grid, steps)
}

// Package dnn provides a detector backed by the gocv DNN module running
// YOLO style ONNX models.  It serves either pipeline stage, vehicle
// detection over full frames or symbol detection over cropped regions,
// depending on the model it is given.
package dnn

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/Oculis-Navigate/go-routesight"
	"github.com/Oculis-Navigate/go-routesight/preprocess"
	"gocv.io/x/gocv"
)

const (
	// DefaultInputSize is the square tensor size used when none is set
	DefaultInputSize = 640
	// DefaultScoreThreshold drops rows below this confidence before NMS
	DefaultScoreThreshold = 0.2
	// DefaultNMSThreshold is the overlap threshold used by NMS
	DefaultNMSThreshold = 0.45
)

// Params defines the struct containing parameters for a DNN detector
type Params struct {
	// ModelFile is the ONNX model to load
	ModelFile string
	// Labels are the class labels the model was trained on
	Labels []string
	// InputSize is the square tensor size the model expects
	InputSize int
	// ScoreThreshold drops weak rows before NMS
	ScoreThreshold float32
	// NMSThreshold is the overlap threshold used by NMS
	NMSThreshold float32
}

// Detector runs a YOLO style ONNX detection model.  The network handles
// one forward pass at a time, so share instances across goroutines
// through a DetectorPool.
type Detector struct {
	params Params

	mu  sync.Mutex
	net gocv.Net
}

// NewDetector loads the ONNX model.  Zero params fall back to their
// defaults.
func NewDetector(p Params) (*Detector, error) {

	if p.InputSize <= 0 {
		p.InputSize = DefaultInputSize
	}

	if p.ScoreThreshold <= 0 {
		p.ScoreThreshold = DefaultScoreThreshold
	}

	if p.NMSThreshold <= 0 {
		p.NMSThreshold = DefaultNMSThreshold
	}

	net := gocv.ReadNetFromONNX(p.ModelFile)

	if net.Empty() {
		return nil, fmt.Errorf("error loading model %s", p.ModelFile)
	}

	return &Detector{
		params: p,
		net:    net,
	}, nil
}

// Detect runs one forward pass and decodes the output rows into
// detections with boxes normalized to the handed image
func (d *Detector) Detect(ctx context.Context,
	img *routesight.ImageBuffer) ([]routesight.Detection, error) {

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := preprocess.MatFromImage(img)

	if err != nil {
		return nil, fmt.Errorf("error converting image: %w", err)
	}

	defer mat.Close()

	size := d.params.InputSize

	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(size, size),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.mu.Lock()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")

	d.mu.Unlock()

	defer output.Close()

	return d.decode(output)
}

// decode converts the model output tensor into detections.  Rows are laid
// out [cx cy w h objectness class scores...] in input tensor pixels, the
// YOLOv5 ONNX export layout.
func (d *Detector) decode(output gocv.Mat) ([]routesight.Detection, error) {

	dims := output.Size()

	if len(dims) != 3 {
		return nil, fmt.Errorf("unexpected output shape %v", dims)
	}

	rows := dims[1]
	cols := dims[2]

	if cols < 6 {
		return nil, fmt.Errorf("unexpected output row width %d", cols)
	}

	data, err := output.DataPtrFloat32()

	if err != nil {
		return nil, fmt.Errorf("error reading output tensor: %w", err)
	}

	size := float32(d.params.InputSize)

	var (
		boxes  []image.Rectangle
		scores []float32
		cands  []routesight.Detection
	)

	for i := 0; i < rows; i++ {

		row := data[i*cols : (i+1)*cols]

		obj := row[4]

		if obj < d.params.ScoreThreshold {
			continue
		}

		// strongest class for the row
		clsID := 0
		clsScore := float32(0)

		for c := 5; c < cols; c++ {
			if row[c] > clsScore {
				clsScore = row[c]
				clsID = c - 5
			}
		}

		score := obj * clsScore

		if score < d.params.ScoreThreshold {
			continue
		}

		label := fmt.Sprintf("%d", clsID)

		if clsID < len(d.params.Labels) {
			label = d.params.Labels[clsID]
		}

		cx, cy, w, h := row[0], row[1], row[2], row[3]

		// pixel rect in tensor space for NMS
		boxes = append(boxes, image.Rect(
			int(cx-w/2), int(cy-h/2), int(cx+w/2), int(cy+h/2)))
		scores = append(scores, score)

		cands = append(cands, routesight.Detection{
			Box: routesight.NormalizedBox{
				X:      (cx - w/2) / size,
				Y:      (cy - h/2) / size,
				Width:  w / size,
				Height: h / size,
			}.Clamp(),
			Label:      label,
			Confidence: score,
		})
	}

	if len(cands) == 0 {
		return nil, nil
	}

	keep := gocv.NMSBoxes(boxes, scores, d.params.ScoreThreshold,
		d.params.NMSThreshold)

	dets := make([]routesight.Detection, 0, len(keep))

	for _, idx := range keep {
		dets = append(dets, cands[idx])
	}

	return dets, nil
}

// Close releases the network
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.net.Close()
}

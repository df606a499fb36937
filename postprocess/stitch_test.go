package postprocess

import (
	"testing"

	"github.com/Oculis-Navigate/go-routesight"
)

// almostEqual compares two float32 values and returns true if they are
// within the given tolerance of each other
func almostEqual(a, b, tolerance float32) bool {
	diff := a - b

	if diff < 0 {
		diff = -diff
	}

	return diff <= tolerance
}

// fragAt builds a symbol fragment centered horizontally at cx in crop
// local coordinates
func fragAt(cx float32, label string, conf float32) routesight.Detection {
	return routesight.Detection{
		Box: routesight.NormalizedBox{
			X: cx - 0.05, Y: 0.3, Width: 0.1, Height: 0.4,
		},
		Label:      label,
		Confidence: conf,
	}
}

func TestStitchOrdering(t *testing.T) {

	s := NewStitcher(StitchParams{})

	region := routesight.NormalizedBox{X: 0.3, Y: 0.4, Width: 0.2, Height: 0.1}

	// fragments arrive in detector order, not reading order
	frags := []routesight.Detection{
		fragAt(0.8, "3", 0.9),
		fragAt(0.1, "A", 0.8),
		fragAt(0.5, "7", 0.95),
	}

	read := s.Stitch(frags, region)

	if read.Text != "A73" {
		t.Errorf("expected A73, got %q", read.Text)
	}

	if len(read.Symbols) != 3 {
		t.Fatalf("expected 3 symbols, got %d", len(read.Symbols))
	}

	// symbols come back ordered left to right in frame space
	for i := 1; i < len(read.Symbols); i++ {
		if read.Symbols[i-1].Box.CenterX() > read.Symbols[i].Box.CenterX() {
			t.Errorf("symbols not ordered by horizontal center")
		}
	}
}

func TestStitchFiltering(t *testing.T) {

	s := NewStitcher(StitchParams{MinConfidence: 0.5})

	region := routesight.NormalizedBox{X: 0, Y: 0, Width: 1, Height: 1}

	frags := []routesight.Detection{
		fragAt(0.2, "1", 0.4),  // below threshold
		fragAt(0.5, "2", 0.5),  // exactly at threshold, kept
		fragAt(0.8, "3", 0.35), // below threshold
	}

	read := s.Stitch(frags, region)

	if read.Text != "2" {
		t.Errorf("expected 2, got %q", read.Text)
	}

	// nothing surviving the filter yields the zero read
	read = s.Stitch([]routesight.Detection{fragAt(0.5, "9", 0.1)}, region)

	if read.Text != "" || read.Score != 0 || len(read.Symbols) != 0 {
		t.Errorf("expected zero read, got %+v", read)
	}

	// no fragments at all yields the zero read too
	read = s.Stitch(nil, region)

	if read.Text != "" {
		t.Errorf("expected empty text for no fragments, got %q", read.Text)
	}
}

func TestStitchRemap(t *testing.T) {

	s := NewStitcher(StitchParams{})

	region := routesight.NormalizedBox{X: 0.3, Y: 0.4, Width: 0.2, Height: 0.1}

	// fragment occupying the left half of the crop
	frags := []routesight.Detection{
		{
			Box:        routesight.NormalizedBox{X: 0, Y: 0, Width: 0.5, Height: 1},
			Label:      "5",
			Confidence: 0.9,
		},
	}

	read := s.Stitch(frags, region)

	got := read.Symbols[0].Box

	if !almostEqual(got.X, 0.3, 1e-6) ||
		!almostEqual(got.Y, 0.4, 1e-6) ||
		!almostEqual(got.Width, 0.1, 1e-6) ||
		!almostEqual(got.Height, 0.1, 1e-6) {
		t.Errorf("unexpected remapped box %+v", got)
	}
}

func TestStitchScore(t *testing.T) {

	s := NewStitcher(StitchParams{})

	region := routesight.NormalizedBox{X: 0, Y: 0, Width: 1, Height: 1}

	frags := []routesight.Detection{
		fragAt(0.2, "1", 0.8),
		fragAt(0.6, "2", 0.6),
	}

	read := s.Stitch(frags, region)

	if !almostEqual(read.Score, 0.7, 1e-6) {
		t.Errorf("expected mean score 0.7, got %f", read.Score)
	}
}

func TestStitchDefaultThreshold(t *testing.T) {

	s := NewStitcher(StitchParams{})

	if s.Params.MinConfidence != DefaultMinConfidence {
		t.Errorf("expected default threshold %f, got %f",
			float64(DefaultMinConfidence), float64(s.Params.MinConfidence))
	}
}

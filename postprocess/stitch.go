// Package postprocess turns raw detector output into route identifier
// reads.
package postprocess

import (
	"sort"

	"github.com/Oculis-Navigate/go-routesight"
	"gonum.org/v1/gonum/stat"
)

// DefaultMinConfidence is the fragment confidence threshold used when none
// is configured
const DefaultMinConfidence = 0.5

// StitchParams defines the struct containing the stitcher parameters to
// use for assembling symbol fragments
type StitchParams struct {
	// MinConfidence is the threshold below which fragments are ignored
	MinConfidence float32
}

// Stitcher assembles the symbol fragments found inside a cropped region
// into a single route identifier string
type Stitcher struct {
	Params StitchParams
}

// Read is a stitched route identifier
type Read struct {
	// Text is the assembled identifier, empty when nothing was read
	Text string
	// Score is the mean confidence of the fragments used
	Score float32
	// Symbols are the fragments used, remapped into frame space and
	// ordered left to right
	Symbols []routesight.Detection
}

// NewStitcher returns an instance of the fragment stitcher.  A zero
// MinConfidence falls back to the default threshold.
func NewStitcher(p StitchParams) *Stitcher {

	if p.MinConfidence <= 0 {
		p.MinConfidence = DefaultMinConfidence
	}

	return &Stitcher{
		Params: p,
	}
}

// Stitch filters out weak fragments, remaps the rest from crop local
// coordinates into frame space using the region that was cropped, orders
// them left to right, and concatenates their labels.  Labels are joined
// exactly as read, there is no separator and no plausibility filtering.
// A read where nothing survives the filter returns the zero Read, an
// empty text is still a meaningful observation for consensus.
func (s *Stitcher) Stitch(frags []routesight.Detection,
	region routesight.NormalizedBox) Read {

	kept := make([]routesight.Detection, 0, len(frags))

	// filter weak fragments and remap the rest into frame space
	for _, f := range frags {
		if f.Confidence < s.Params.MinConfidence {
			continue
		}

		f.Box = f.Box.Within(region)
		kept = append(kept, f)
	}

	if len(kept) == 0 {
		return Read{}
	}

	// order by horizontal center, the stable sort keeps detector order
	// for fragments with identical centers
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Box.CenterX() < kept[j].Box.CenterX()
	})

	text := ""
	scores := make([]float64, len(kept))

	for i, f := range kept {
		text += f.Label
		scores[i] = float64(f.Confidence)
	}

	return Read{
		Text:    text,
		Score:   float32(stat.Mean(scores, nil)),
		Symbols: kept,
	}
}

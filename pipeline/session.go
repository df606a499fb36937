// Package pipeline wires the detection stages, the stitcher, and the
// consensus engine into a running session over a stream of frames.
package pipeline

import (
	"context"
	"time"

	"github.com/Oculis-Navigate/go-routesight"
	"github.com/Oculis-Navigate/go-routesight/postprocess"
	"github.com/Oculis-Navigate/go-routesight/preprocess"
	"github.com/Oculis-Navigate/go-routesight/tracker"
	"golang.org/x/sync/errgroup"
)

// Frame is one captured image handed to a running session
type Frame struct {
	// Image is the frame pixel data
	Image *routesight.ImageBuffer
	// When the frame was captured
	When time.Time
}

// Cycle reports what one frame's processing cycle saw, for overlays,
// logging, and tests
type Cycle struct {
	// Vehicle is the qualifying primary detection, nil when none was found
	Vehicle *routesight.Detection
	// Region is the clamped frame region that was read
	Region routesight.NormalizedBox
	// Read is the stitched result, zero when the read was skipped
	Read postprocess.Read
	// Candidate is the string ingested into the consensus history
	Candidate string
}

// Session runs the detection and announcement pipeline.  Detectors and
// the announcer are injected capabilities, the session owns no model
// state of its own.
type Session struct {
	params    Params
	primary   routesight.Detector
	secondary routesight.Detector
	voice     routesight.Announcer
	stitcher  *postprocess.Stitcher
	consensus *tracker.Consensus

	// OnCycle, when set before Run, is called after every processed frame
	OnCycle func(Cycle)
	// OnAnnounce, when set before Run, is called for every announcement
	OnAnnounce func(text string)
}

// NewSession returns a session over the given detectors and announcer.
// A nil announcer is replaced with the silent one.
func NewSession(p Params, primary, secondary routesight.Detector,
	voice routesight.Announcer) (*Session, error) {

	if err := p.Validate(); err != nil {
		return nil, err
	}

	if voice == nil {
		voice = routesight.Silent{}
	}

	return &Session{
		params:    p,
		primary:   primary,
		secondary: secondary,
		voice:     voice,
		stitcher: postprocess.NewStitcher(postprocess.StitchParams{
			MinConfidence: p.MinConfidence,
		}),
		consensus: tracker.NewConsensus(tracker.ConsensusParams{
			HistorySize:   p.History.Size,
			MinRepeat:     p.History.MinRepeat,
			EvaluateEvery: time.Duration(p.History.EvaluateEvery),
			RepeatAfter:   time.Duration(p.History.RepeatAfter),
		}),
	}, nil
}

// Consensus exposes the session's consensus engine for inspection
func (s *Session) Consensus() *tracker.Consensus {
	return s.consensus
}

// ProcessFrame runs one full cycle over a frame: primary detection,
// region crop, symbol detection, stitching, and ingestion.  Exactly one
// candidate is ingested per call, an empty one when any stage came up
// short.  Failures are absorbed into empty results, a bad frame never
// ends the session.
func (s *Session) ProcessFrame(ctx context.Context,
	img *routesight.ImageBuffer) Cycle {

	cycle := Cycle{}

	if img == nil {
		s.consensus.Ingest("")
		return cycle
	}

	dets, err := s.primary.Detect(ctx, img)

	if err != nil {
		// a failed detector reads as an empty frame
		dets = nil
	}

	// pick the strongest detection of the tracked category
	var vehicle *routesight.Detection

	for i := range dets {
		d := dets[i]

		if d.Label != s.params.TargetLabel ||
			d.Confidence <= s.params.VehicleThreshold {
			continue
		}

		if vehicle == nil || d.Confidence > vehicle.Confidence {
			vehicle = &dets[i]
		}
	}

	if vehicle == nil {
		s.consensus.Ingest("")
		return cycle
	}

	found := *vehicle
	cycle.Vehicle = &found

	region := found.Box.Clamp()
	cycle.Region = region

	crop, err := preprocess.Crop(img, region)

	if err != nil {
		// region fell outside the frame, skip the read this cycle
		s.consensus.Ingest("")
		return cycle
	}

	if s.params.EnhanceRegion {
		crop = preprocess.Enhance(crop)
	}

	frags, err := s.secondary.Detect(ctx, crop)

	if err != nil {
		// a failed read contributes an empty candidate
		frags = nil
	}

	read := s.stitcher.Stitch(frags, region)

	cycle.Read = read
	cycle.Candidate = read.Text

	s.consensus.Ingest(read.Text)

	return cycle
}

// Evaluate takes a consensus vote at time now, reporting the winning
// value when one should be announced
func (s *Session) Evaluate(now time.Time) (string, bool) {
	return s.consensus.Evaluate(now)
}

// Run drives a live session until the context is canceled or the frame
// channel closes.  Frames are consumed by a single goroutine so
// candidate ingestion stays serialized, while a second goroutine
// evaluates the history on the configured cadence and hands winners to
// the announcer.
func (s *Session) Run(ctx context.Context, frames <-chan Frame) error {

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	// frame consumer, the only ingestion path while running
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil

			case frame, ok := <-frames:
				if !ok {
					// end of stream stops the whole session
					cancel()
					return nil
				}

				cycle := s.ProcessFrame(ctx, frame.Image)

				if s.OnCycle != nil {
					s.OnCycle(cycle)
				}
			}
		}
	})

	// evaluator, announces winners on the configured cadence
	g.Go(func() error {
		ticker := time.NewTicker(s.consensus.Params().EvaluateEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil

			case now := <-ticker.C:
				text, ok := s.Evaluate(now)

				if !ok {
					continue
				}

				s.voice.Speak(text)

				if s.OnAnnounce != nil {
					s.OnAnnounce(text)
				}
			}
		}
	})

	return g.Wait()
}

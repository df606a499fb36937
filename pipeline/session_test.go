package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Oculis-Navigate/go-routesight"
)

// testFrame returns a small frame buffer for pipeline tests
func testFrame(t *testing.T) *routesight.ImageBuffer {
	t.Helper()

	img, err := routesight.NewImageBuffer(100, 100, routesight.FormatRGBA)

	if err != nil {
		t.Fatalf("error creating frame: %v", err)
	}

	return img
}

// busDetector returns a primary detector that always sees one bus
func busDetector(box routesight.NormalizedBox,
	conf float32) routesight.DetectorFunc {

	return func(ctx context.Context,
		img *routesight.ImageBuffer) ([]routesight.Detection, error) {

		return []routesight.Detection{
			{Box: box, Label: "bus", Confidence: conf},
		}, nil
	}
}

// symbolDetector returns a secondary detector that always reads the given
// fragments
func symbolDetector(frags []routesight.Detection) routesight.DetectorFunc {

	return func(ctx context.Context,
		img *routesight.ImageBuffer) ([]routesight.Detection, error) {

		return frags, nil
	}
}

func TestProcessFrameEndToEnd(t *testing.T) {

	primary := busDetector(routesight.NormalizedBox{
		X: 0.3, Y: 0.4, Width: 0.2, Height: 0.1}, 0.9)

	secondary := symbolDetector([]routesight.Detection{
		{Box: routesight.NormalizedBox{X: 0.05, Y: 0.2, Width: 0.1, Height: 0.6},
			Label: "5", Confidence: 0.9},
		{Box: routesight.NormalizedBox{X: 0.55, Y: 0.2, Width: 0.1, Height: 0.6},
			Label: "B", Confidence: 0.8},
	})

	s, err := NewSession(DefaultParams(), primary, secondary, nil)

	if err != nil {
		t.Fatalf("error creating session: %v", err)
	}

	img := testFrame(t)

	var cycle Cycle

	// fill the history with consistent reads
	for i := 0; i < 10; i++ {
		cycle = s.ProcessFrame(context.Background(), img)
	}

	if cycle.Vehicle == nil {
		t.Fatal("expected a qualifying vehicle detection")
	}

	if cycle.Candidate != "5B" {
		t.Errorf("expected candidate 5B, got %q", cycle.Candidate)
	}

	// fragments came back remapped into frame space
	if len(cycle.Read.Symbols) != 2 {
		t.Fatalf("expected 2 symbols, got %d", len(cycle.Read.Symbols))
	}

	first := cycle.Read.Symbols[0].Box

	if !almostEqual(first.X, 0.3+0.05*0.2, 0.0001) {
		t.Errorf("expected remapped symbol x %v, got %v",
			0.3+0.05*0.2, first.X)
	}

	// a consistent history announces once and then debounces
	t0 := time.Now()

	text, ok := s.Evaluate(t0)

	if !ok || text != "5B" {
		t.Fatalf("expected announcement 5B, got %q ok=%v", text, ok)
	}

	if _, ok := s.Evaluate(t0.Add(time.Second)); ok {
		t.Error("expected unchanged winner inside cooldown to be suppressed")
	}

	if text, ok := s.Evaluate(t0.Add(1600 * time.Millisecond)); !ok ||
		text != "5B" {
		t.Errorf("expected re-announcement after cooldown, got %q ok=%v",
			text, ok)
	}
}

func TestProcessFrameAbsorbsFailures(t *testing.T) {

	failing := routesight.DetectorFunc(func(ctx context.Context,
		img *routesight.ImageBuffer) ([]routesight.Detection, error) {

		return nil, errors.New("inference failed")
	})

	cases := []struct {
		name      string
		primary   routesight.Detector
		secondary routesight.Detector
	}{
		{
			name:      "primary failure",
			primary:   failing,
			secondary: symbolDetector(nil),
		},
		{
			name: "no qualifying label",
			primary: routesight.DetectorFunc(func(ctx context.Context,
				img *routesight.ImageBuffer) ([]routesight.Detection, error) {

				return []routesight.Detection{
					{Box: routesight.NormalizedBox{X: 0.1, Y: 0.1,
						Width: 0.5, Height: 0.5},
						Label: "car", Confidence: 0.9},
				}, nil
			}),
			secondary: symbolDetector(nil),
		},
		{
			name: "confidence below threshold",
			primary: busDetector(routesight.NormalizedBox{
				X: 0.1, Y: 0.1, Width: 0.5, Height: 0.5}, 0.1),
			secondary: symbolDetector(nil),
		},
		{
			name: "region too small to crop",
			primary: busDetector(routesight.NormalizedBox{
				X: 0.5, Y: 0.5, Width: 0.001, Height: 0.001}, 0.9),
			secondary: symbolDetector(nil),
		},
		{
			name: "secondary failure",
			primary: busDetector(routesight.NormalizedBox{
				X: 0.1, Y: 0.1, Width: 0.5, Height: 0.5}, 0.9),
			secondary: failing,
		},
	}

	for _, tc := range cases {
		s, err := NewSession(DefaultParams(), tc.primary, tc.secondary, nil)

		if err != nil {
			t.Fatalf("case %q: error creating session: %v", tc.name, err)
		}

		cycle := s.ProcessFrame(context.Background(), testFrame(t))

		if cycle.Candidate != "" {
			t.Errorf("case %q: expected empty candidate, got %q",
				tc.name, cycle.Candidate)
		}

		// the empty candidate still entered the history
		if hist := s.Consensus().History(); len(hist) != 1 || hist[0] != "" {
			t.Errorf("case %q: expected empty candidate ingested, got %v",
				tc.name, hist)
		}
	}
}

func TestProcessFramePicksStrongestVehicle(t *testing.T) {

	primary := routesight.DetectorFunc(func(ctx context.Context,
		img *routesight.ImageBuffer) ([]routesight.Detection, error) {

		return []routesight.Detection{
			{Box: routesight.NormalizedBox{X: 0, Y: 0, Width: 0.2, Height: 0.2},
				Label: "bus", Confidence: 0.5},
			{Box: routesight.NormalizedBox{X: 0.5, Y: 0.5, Width: 0.3, Height: 0.3},
				Label: "bus", Confidence: 0.8},
			{Box: routesight.NormalizedBox{X: 0.1, Y: 0.1, Width: 0.6, Height: 0.6},
				Label: "car", Confidence: 0.99},
		}, nil
	})

	s, err := NewSession(DefaultParams(), primary, symbolDetector(nil), nil)

	if err != nil {
		t.Fatalf("error creating session: %v", err)
	}

	cycle := s.ProcessFrame(context.Background(), testFrame(t))

	if cycle.Vehicle == nil {
		t.Fatal("expected a vehicle detection")
	}

	if cycle.Vehicle.Confidence != 0.8 {
		t.Errorf("expected strongest bus picked, got confidence %v",
			cycle.Vehicle.Confidence)
	}
}

func TestRunAnnouncesOverFrameStream(t *testing.T) {

	primary := busDetector(routesight.NormalizedBox{
		X: 0.2, Y: 0.2, Width: 0.4, Height: 0.3}, 0.9)

	secondary := symbolDetector([]routesight.Detection{
		{Box: routesight.NormalizedBox{X: 0.1, Y: 0.2, Width: 0.2, Height: 0.6},
			Label: "4", Confidence: 0.9},
		{Box: routesight.NormalizedBox{X: 0.6, Y: 0.2, Width: 0.2, Height: 0.6},
			Label: "2", Confidence: 0.9},
	})

	p := DefaultParams()
	p.History.EvaluateEvery = Duration(20 * time.Millisecond)

	s, err := NewSession(p, primary, secondary, nil)

	if err != nil {
		t.Fatalf("error creating session: %v", err)
	}

	announced := make(chan string, 1)

	s.OnAnnounce = func(text string) {
		select {
		case announced <- text:
		default:
		}
	}

	img := testFrame(t)

	frames := make(chan Frame, 60)

	for i := 0; i < 60; i++ {
		frames <- Frame{Image: img, When: time.Now()}
	}

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)

	go func() {
		done <- s.Run(ctx, frames)
	}()

	select {
	case text := <-announced:
		if text != "42" {
			t.Errorf("expected announcement 42, got %q", text)
		}

	case <-time.After(2 * time.Second):
		t.Error("timed out waiting for announcement")
	}

	cancel()

	if err := <-done; err != nil {
		t.Errorf("expected clean shutdown, got %v", err)
	}
}

func TestRunStopsOnChannelClose(t *testing.T) {

	s, err := NewSession(DefaultParams(),
		symbolDetector(nil), symbolDetector(nil), nil)

	if err != nil {
		t.Fatalf("error creating session: %v", err)
	}

	frames := make(chan Frame)
	close(frames)

	if err := s.Run(context.Background(), frames); err != nil {
		t.Errorf("expected nil on closed frame channel, got %v", err)
	}
}

// almostEqual compares floats within the given tolerance
func almostEqual(a, b, tolerance float32) bool {
	diff := a - b

	if diff < 0 {
		diff = -diff
	}

	return diff <= tolerance
}

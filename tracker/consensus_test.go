package tracker

import (
	"testing"
	"time"
)

func TestEvaluateMajority(t *testing.T) {

	tests := []struct {
		name    string
		history []string
		want    string
		wantOK  bool
	}{
		{
			name: "clear majority over noise",
			history: []string{"12", "12", "", "12", "45", "12", "12", "",
				"12", "12"},
			want:   "12",
			wantOK: true,
		},
		{
			name: "empty majority falls back to repeated value",
			history: []string{"", "", "", "A1", "A1", "A1", "", "", "",
				""},
			want:   "A1",
			wantOK: true,
		},
		{
			name: "empty majority with too few repeats stays quiet",
			history: []string{"", "", "", "", "A1", "A1", "", "", "",
				""},
			want:   "",
			wantOK: false,
		},
		{
			name:    "empty history stays quiet",
			history: nil,
			want:    "",
			wantOK:  false,
		},
		{
			name:    "all empty stays quiet",
			history: []string{"", "", "", ""},
			want:    "",
			wantOK:  false,
		},
		{
			name:    "tie breaks to value seen first",
			history: []string{"88", "71", "88", "71"},
			want:    "88",
			wantOK:  true,
		},
		{
			name:    "single candidate wins",
			history: []string{"301"},
			want:    "301",
			wantOK:  true,
		},
	}

	for _, tc := range tests {
		c := NewConsensus(ConsensusParams{})

		for _, cand := range tc.history {
			c.Ingest(cand)
		}

		got, ok := c.Evaluate(time.Now())

		if got != tc.want || ok != tc.wantOK {
			t.Errorf("%s: expected (%q, %v), got (%q, %v)",
				tc.name, tc.want, tc.wantOK, got, ok)
		}
	}
}

func TestHistoryEviction(t *testing.T) {

	c := NewConsensus(ConsensusParams{HistorySize: 10})

	// fill the window with one value then push it out with another
	for i := 0; i < 10; i++ {
		c.Ingest("old")
	}

	for i := 0; i < 6; i++ {
		c.Ingest("new")
	}

	history := c.History()

	if len(history) != 10 {
		t.Fatalf("expected history length 10, got %d", len(history))
	}

	// oldest entries must have been evicted
	if history[0] != "old" || history[9] != "new" {
		t.Errorf("unexpected window contents %v", history)
	}

	got, ok := c.Evaluate(time.Now())

	if !ok || got != "new" {
		t.Errorf("expected new value to win after eviction, got (%q, %v)",
			got, ok)
	}
}

func TestEvaluateDebounce(t *testing.T) {

	c := NewConsensus(ConsensusParams{
		RepeatAfter: 1500 * time.Millisecond,
	})

	base := time.Unix(1000, 0)

	for i := 0; i < 5; i++ {
		c.Ingest("7")
	}

	// first sighting announces
	got, ok := c.Evaluate(base)

	if !ok || got != "7" {
		t.Fatalf("expected first announcement of 7, got (%q, %v)", got, ok)
	}

	// unchanged value inside the cooldown is suppressed
	got, ok = c.Evaluate(base.Add(1000 * time.Millisecond))

	if ok {
		t.Errorf("expected suppression inside cooldown, got %q", got)
	}

	// suppression must not move the announcement clock
	_, at := c.LastAnnounced()

	if !at.Equal(base) {
		t.Errorf("suppressed evaluation moved announcement time to %v", at)
	}

	// after the cooldown the unchanged value re-announces
	got, ok = c.Evaluate(base.Add(1600 * time.Millisecond))

	if !ok || got != "7" {
		t.Errorf("expected re-announcement after cooldown, got (%q, %v)",
			got, ok)
	}
}

func TestEvaluateValueChange(t *testing.T) {

	c := NewConsensus(ConsensusParams{})

	base := time.Unix(1000, 0)

	for i := 0; i < 5; i++ {
		c.Ingest("7")
	}

	got, ok := c.Evaluate(base)

	if !ok || got != "7" {
		t.Fatalf("expected announcement of 7, got (%q, %v)", got, ok)
	}

	// a different winner announces immediately, no cooldown applies
	for i := 0; i < 10; i++ {
		c.Ingest("23")
	}

	got, ok = c.Evaluate(base.Add(100 * time.Millisecond))

	if !ok || got != "23" {
		t.Errorf("expected immediate announcement of new value, got (%q, %v)",
			got, ok)
	}
}

func TestReset(t *testing.T) {

	c := NewConsensus(ConsensusParams{})

	c.Ingest("42")
	c.Ingest("42")

	if _, ok := c.Evaluate(time.Now()); !ok {
		t.Fatalf("expected announcement before reset")
	}

	c.Reset()

	if len(c.History()) != 0 {
		t.Errorf("expected empty history after reset")
	}

	last, at := c.LastAnnounced()

	if last != "" || !at.IsZero() {
		t.Errorf("expected cleared announcement state, got (%q, %v)",
			last, at)
	}

	if _, ok := c.Evaluate(time.Now()); ok {
		t.Errorf("expected no announcement from empty history")
	}
}

func TestDefaultsApplied(t *testing.T) {

	c := NewConsensus(ConsensusParams{})

	p := c.Params()

	if p.HistorySize != DefaultHistorySize ||
		p.MinRepeat != DefaultMinRepeat ||
		p.EvaluateEvery != DefaultEvaluateEvery ||
		p.RepeatAfter != DefaultRepeatAfter {
		t.Errorf("expected defaults to be applied, got %+v", p)
	}
}

// Package tracker keeps the temporal state of what identifier string is
// currently believed to be in front of the camera.  Individual frame
// reads are noisy, so decisions are made over a bounded history of
// candidates rather than any single observation.
package tracker

import (
	"sync"
	"time"
)

const (
	// DefaultHistorySize is the number of most recent candidates kept
	DefaultHistorySize = 10
	// DefaultMinRepeat is the times a value must repeat to win a window
	// dominated by failed reads
	DefaultMinRepeat = 3
	// DefaultEvaluateEvery is the cadence the history is evaluated on
	DefaultEvaluateEvery = 500 * time.Millisecond
	// DefaultRepeatAfter is how long before the same value is re-announced
	DefaultRepeatAfter = 1500 * time.Millisecond
)

// ConsensusParams configures a Consensus instance
type ConsensusParams struct {
	// HistorySize is the maximum number of most recent candidates to keep
	HistorySize int
	// MinRepeat is the minimum occurrences a non-empty value needs to win
	// when empty reads hold the majority
	MinRepeat int
	// EvaluateEvery is the cadence the session loop evaluates on
	EvaluateEvery time.Duration
	// RepeatAfter is the cooldown before re-announcing an unchanged value
	RepeatAfter time.Duration
}

// DefaultConsensusParams returns the stock consensus configuration
func DefaultConsensusParams() ConsensusParams {
	return ConsensusParams{
		HistorySize:   DefaultHistorySize,
		MinRepeat:     DefaultMinRepeat,
		EvaluateEvery: DefaultEvaluateEvery,
		RepeatAfter:   DefaultRepeatAfter,
	}
}

// Consensus keeps a bounded history of candidate strings and decides by
// debounced majority vote when a value should be announced.  Empty
// candidates are kept in the history because a run of failed reads is
// evidence the previous value is no longer visible.
type Consensus struct {
	params ConsensusParams
	// history of candidates, oldest first
	history []string
	// last announced value and when it was announced
	lastText string
	lastAt   time.Time
	sync.Mutex
}

// NewConsensus returns a new consensus instance.  Zero fields in params
// fall back to their defaults.
func NewConsensus(params ConsensusParams) *Consensus {

	if params.HistorySize <= 0 {
		params.HistorySize = DefaultHistorySize
	}

	if params.MinRepeat <= 0 {
		params.MinRepeat = DefaultMinRepeat
	}

	if params.EvaluateEvery <= 0 {
		params.EvaluateEvery = DefaultEvaluateEvery
	}

	if params.RepeatAfter <= 0 {
		params.RepeatAfter = DefaultRepeatAfter
	}

	return &Consensus{
		params:  params,
		history: make([]string, 0, params.HistorySize),
	}
}

// Params returns the configuration the instance was created with
func (c *Consensus) Params() ConsensusParams {
	return c.params
}

// Reset clears all history and announcement state
func (c *Consensus) Reset() {
	c.Lock()
	defer c.Unlock()

	c.history = c.history[:0]
	c.lastText = ""
	c.lastAt = time.Time{}
}

// Ingest appends a cycle's candidate to the history.  Empty candidates
// are ingested like any other value and dilute the vote.
func (c *Consensus) Ingest(candidate string) {
	c.Lock()
	defer c.Unlock()

	c.history = append(c.history, candidate)

	// check if history is exceeded and drop oldest candidate
	if len(c.history) > c.params.HistorySize {
		c.history = c.history[1:]
	}
}

// History returns a snapshot of the current candidate window, oldest first
func (c *Consensus) History() []string {
	c.Lock()
	defer c.Unlock()

	out := make([]string, len(c.history))
	copy(out, c.history)

	return out
}

// LastAnnounced returns the most recently announced value and when it was
// announced.  An empty value means nothing has been announced yet.
func (c *Consensus) LastAnnounced() (string, time.Time) {
	c.Lock()
	defer c.Unlock()

	return c.lastText, c.lastAt
}

// Evaluate takes a majority vote over the current history and reports
// whether a value should be announced at time now.  The winning value is
// the most frequent; ties break to the value seen earliest in the window
// so repeated evaluations of an unchanged history agree.  When empty
// reads hold the majority, a non-empty value repeated at least MinRepeat
// times still wins, which keeps a briefly obscured identifier announced.
// An unchanged winner inside the RepeatAfter cooldown is suppressed and
// leaves the announcement state untouched.
func (c *Consensus) Evaluate(now time.Time) (string, bool) {
	c.Lock()
	defer c.Unlock()

	if len(c.history) == 0 {
		return "", false
	}

	// count frequencies, remembering the order values were first seen
	counts := make(map[string]int, len(c.history))
	order := make([]string, 0, len(c.history))

	for _, cand := range c.history {
		if _, seen := counts[cand]; !seen {
			order = append(order, cand)
		}

		counts[cand]++
	}

	// find the majority value
	winner := ""
	best := 0

	for _, v := range order {
		if counts[v] > best {
			winner = v
			best = counts[v]
		}
	}

	if winner == "" {
		// failed reads hold the window, fall back to the most frequent
		// non-empty value with enough repeats
		best = 0

		for _, v := range order {
			if v == "" || counts[v] < c.params.MinRepeat {
				continue
			}

			if counts[v] > best {
				winner = v
				best = counts[v]
			}
		}

		if winner == "" {
			// nothing read reliably in this window
			return "", false
		}
	}

	// debounce, an unchanged value is only re-announced after the cooldown
	if winner == c.lastText && now.Sub(c.lastAt) < c.params.RepeatAfter {
		return "", false
	}

	c.lastText = winner
	c.lastAt = now

	return winner, true
}

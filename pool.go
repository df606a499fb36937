package routesight

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/shirou/gopsutil/v3/cpu"
)

// ErrClosed is returned when a detection is requested from a closed pool
var ErrClosed = errors.New("pool is closed")

// DetectorPool shares a set of detector handles across concurrent callers.
// Handles backed by real inference runtimes usually allow one inference at
// a time, so each borrower gets exclusive use of a handle.
type DetectorPool struct {
	// pool of detector handles
	handles chan Detector
	// size of pool
	size  int
	close sync.Once
}

// NewDetectorPool creates a new pool of size handles built by the given
// factory function
func NewDetectorPool(size int,
	factory func() (Detector, error)) (*DetectorPool, error) {

	if size < 1 {
		return nil, fmt.Errorf("pool size must be at least 1, got %d", size)
	}

	p := &DetectorPool{
		handles: make(chan Detector, size),
		size:    size,
	}

	for i := 0; i < size; i++ {
		d, err := factory()

		if err != nil {
			// close any handles that may have been created before receiving
			// the error
			p.Close()
			return nil, fmt.Errorf("error creating pool handle %d: %w", i, err)
		}

		// attach to pool
		p.Return(d)
	}

	return p, nil
}

// Get a detector handle from the pool, blocking until one is free
func (p *DetectorPool) Get() Detector {
	return <-p.handles
}

// Return a detector handle to the pool
func (p *DetectorPool) Return(d Detector) {
	select {
	case p.handles <- d:
	default:
		// pool is full or closed
	}
}

// Detect borrows a handle for a single call, so a pool drops in anywhere
// a plain Detector is expected
func (p *DetectorPool) Detect(ctx context.Context,
	img *ImageBuffer) ([]Detection, error) {

	select {
	case d := <-p.handles:
		if d == nil {
			return nil, ErrClosed
		}

		res, err := d.Detect(ctx, img)
		p.Return(d)

		return res, err

	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close the pool and all handles in it
func (p *DetectorPool) Close() {
	p.close.Do(func() {
		// close channel
		close(p.handles)

		// close all handles that support it
		for next := range p.handles {
			if c, ok := next.(io.Closer); ok {
				_ = c.Close()
			}
		}
	})
}

// DefaultPoolSize returns a pool size suited to the host CPU count,
// clamped to the range 1 to 4
func DefaultPoolSize() int {

	count, err := cpu.Counts(true)

	if err != nil || count < 1 {
		return 1
	}

	if count > 4 {
		return 4
	}

	return count
}

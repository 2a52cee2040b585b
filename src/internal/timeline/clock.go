// FILE: src/internal/timeline/clock.go
package timeline

import (
	"sync"

	"chronicle/src/internal/record"
)

// Clock tracks the current position on every named timeline.
// A single clock is shared by a logger and all loggers derived from it,
// so timeline setters affect subsequent records regardless of which
// derived logger emits them.
type Clock struct {
	mu     sync.Mutex
	points map[string]record.TimePoint
}

func NewClock() *Clock {
	return &Clock{
		points: make(map[string]record.TimePoint),
	}
}

// SetSequence sets a sequence-index timeline to the given step.
// Re-setting an axis with a different kind overwrites it.
func (c *Clock) SetSequence(name string, step int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.points[name] = record.TimePoint{
		Kind:     record.TimelineSequence,
		Sequence: step,
	}
}

// SetSeconds sets a wall-clock timeline to the given timestamp
func (c *Clock) SetSeconds(name string, secs float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.points[name] = record.TimePoint{
		Kind:    record.TimelineSeconds,
		Seconds: secs,
	}
}

// Reset removes a timeline from the clock
func (c *Clock) Reset(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.points, name)
}

// Snapshot returns a copy of the current timeline positions, suitable
// for attaching to a record. Returns nil when no timeline is set.
func (c *Clock) Snapshot() map[string]record.TimePoint {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.points) == 0 {
		return nil
	}

	snap := make(map[string]record.TimePoint, len(c.points))
	for name, point := range c.points {
		snap[name] = point
	}
	return snap
}

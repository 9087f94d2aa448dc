package history

import (
	"sync"
	"time"

	"constellation/internal/debounce"
)

// DefaultDragWindow is the quiet period that ends a drag burst.
const DefaultDragWindow = 500 * time.Millisecond

// Coalescer collapses a burst of continuous edits, such as dragging, into
// one history entry. The first call of a burst pushes; further calls
// inside the window only extend it.
type Coalescer struct {
	engine *Engine
	window time.Duration

	mu     sync.Mutex
	bursts map[string]*debounce.Debouncer
}

// NewCoalescer creates a coalescer pushing into e.
func (e *Engine) NewCoalescer(window time.Duration) *Coalescer {
	if window <= 0 {
		window = DefaultDragWindow
	}
	return &Coalescer{engine: e, window: window, bursts: make(map[string]*debounce.Debouncer)}
}

// Push records description for documentID unless a burst is already open.
// It reports whether a new entry was pushed.
func (c *Coalescer) Push(documentID, description string) (bool, error) {
	c.mu.Lock()
	b, ok := c.bursts[documentID]
	if !ok {
		b = debounce.New(c.engine.clock, c.window, 0)
		c.bursts[documentID] = b
	}
	c.mu.Unlock()

	pushed := false
	if !b.Pending() {
		if err := c.engine.PushAction(documentID, description); err != nil {
			return false, err
		}
		pushed = true
	}
	b.Trigger(func() {})
	return pushed, nil
}

// Open reports whether a burst is in progress for documentID.
func (c *Coalescer) Open(documentID string) bool {
	c.mu.Lock()
	b, ok := c.bursts[documentID]
	c.mu.Unlock()
	return ok && b.Pending()
}

// End closes the burst for documentID so the next Push records a new
// entry.
func (c *Coalescer) End(documentID string) {
	c.mu.Lock()
	b, ok := c.bursts[documentID]
	delete(c.bursts, documentID)
	c.mu.Unlock()
	if ok {
		b.Cancel()
	}
}

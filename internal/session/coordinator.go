package session

import (
	"sort"
	"sync"
)

// Coordinator links the panes of one window. Selecting in one pane clears
// the selection of every other registered pane.
type Coordinator struct {
	mu    sync.Mutex
	next  uint64
	panes map[string]registration
}

type registration struct {
	token   uint64
	clearFn func()
}

// NewCoordinator returns an empty coordinator.
func NewCoordinator() *Coordinator {
	return &Coordinator{panes: make(map[string]registration)}
}

// RegisterPane registers clearFn as the selection reset of pane id,
// replacing any earlier registration. The returned function removes this
// registration only; it is a no-op once id has been registered again.
func (c *Coordinator) RegisterPane(id string, clearFn func()) (unregister func()) {
	c.mu.Lock()
	c.next++
	token := c.next
	c.panes[id] = registration{token: token, clearFn: clearFn}
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		if r, ok := c.panes[id]; ok && r.token == token {
			delete(c.panes, id)
		}
		c.mu.Unlock()
	}
}

// Unregister removes pane id.
func (c *Coordinator) Unregister(id string) {
	c.mu.Lock()
	delete(c.panes, id)
	c.mu.Unlock()
}

// ClearOthers clears the selection of every pane except id, in pane id
// order.
func (c *Coordinator) ClearOthers(id string) {
	c.mu.Lock()
	ids := make([]string, 0, len(c.panes))
	for other := range c.panes {
		if other != id {
			ids = append(ids, other)
		}
	}
	sort.Strings(ids)
	fns := make([]func(), len(ids))
	for i, other := range ids {
		fns[i] = c.panes[other].clearFn
	}
	c.mu.Unlock()

	// callbacks run unlocked so they may call back into the coordinator
	for _, fn := range fns {
		fn()
	}
}

// Panes returns the registered pane ids.
func (c *Coordinator) Panes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.panes))
	for id := range c.panes {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

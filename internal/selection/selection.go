// Package selection tracks multi-selection over a pane's flattened view.
package selection

import (
	"sort"
	"sync"

	"github.com/justyntemme/twinpane/internal/debug"
	"github.com/justyntemme/twinpane/internal/tree"
)

// Modifiers are the keys held during a click.
type Modifiers struct {
	Ctrl  bool // ctrl on linux/windows, cmd on darwin
	Shift bool
}

// Model holds the selected ids of one pane plus the anchor used for range
// selection. Indices refer to the view passed to each call; the view is
// recomputed by the caller on every event because it depends on expansion.
type Model struct {
	mu       sync.Mutex
	selected map[tree.NodeID]bool
	anchor   int
	focus    int
}

// New returns an empty selection.
func New() *Model {
	return &Model{
		selected: make(map[tree.NodeID]bool),
		anchor:   -1,
		focus:    -1,
	}
}

// View drops the parent link from a flattened node list. Every index used
// by the model is an index into this view.
func View(nodes []tree.Node) []tree.Node {
	out := make([]tree.Node, 0, len(nodes))
	for _, n := range nodes {
		if n.ID != tree.ParentLinkID {
			out = append(out, n)
		}
	}
	return out
}

func indexOf(view []tree.Node, id tree.NodeID) int {
	for i, n := range view {
		if n.ID == id {
			return i
		}
	}
	return -1
}

// Click applies a click on id. Plain click replaces the selection and moves
// the anchor, ctrl toggles membership and keeps the anchor, shift adds the
// range between anchor and target. It reports false when id is not
// selectable in view.
func (m *Model) Click(nodes []tree.Node, id tree.NodeID, mods Modifiers) bool {
	view := View(nodes)
	idx := indexOf(view, id)
	if idx < 0 {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case mods.Shift && m.anchor >= 0 && m.anchor < len(view):
		m.addRangeLocked(view, m.anchor, idx)
	case mods.Ctrl:
		if m.selected[id] {
			delete(m.selected, id)
		} else {
			m.selected[id] = true
		}
		if m.anchor < 0 {
			m.anchor = idx
		}
	default:
		m.selectOnlyLocked(id, idx)
	}
	m.focus = idx

	debug.Log(debug.SELECT, "Click: id=%s idx=%d ctrl=%v shift=%v -> %d selected, anchor=%d",
		id, idx, mods.Ctrl, mods.Shift, len(m.selected), m.anchor)
	return true
}

// Move shifts the focus by delta (arrow keys). With extend set the range from
// the anchor to the new focus is added; otherwise the focused node alone is
// selected and becomes the anchor. It returns the id now focused.
func (m *Model) Move(nodes []tree.Node, delta int, extend bool) (tree.NodeID, bool) {
	view := View(nodes)
	if len(view) == 0 {
		return "", false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	target := m.focus + delta
	if m.focus < 0 || m.focus >= len(view) {
		target = 0
		if delta < 0 {
			target = len(view) - 1
		}
	}
	if target < 0 {
		target = 0
	}
	if target >= len(view) {
		target = len(view) - 1
	}

	id := view[target].ID
	if extend && m.anchor >= 0 && m.anchor < len(view) {
		m.addRangeLocked(view, m.anchor, target)
	} else {
		m.selectOnlyLocked(id, target)
	}
	m.focus = target
	return id, true
}

func (m *Model) selectOnlyLocked(id tree.NodeID, idx int) {
	m.selected = map[tree.NodeID]bool{id: true}
	m.anchor = idx
}

func (m *Model) addRangeLocked(view []tree.Node, a, b int) {
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	for i := lo; i <= hi; i++ {
		m.selected[view[i].ID] = true
	}
}

// SelectAll selects every node in view.
func (m *Model) SelectAll(nodes []tree.Node) {
	view := View(nodes)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selected = make(map[tree.NodeID]bool, len(view))
	for _, n := range view {
		m.selected[n.ID] = true
	}
	if len(view) > 0 && m.anchor < 0 {
		m.anchor = 0
	}
}

// Clear empties the selection and forgets the anchor.
func (m *Model) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.selected) > 0 {
		m.selected = make(map[tree.NodeID]bool)
	}
	m.anchor = -1
	m.focus = -1
}

// Retain drops ids that are no longer in view, e.g. after a collapse.
func (m *Model) Retain(nodes []tree.Node) {
	view := View(nodes)
	present := make(map[tree.NodeID]bool, len(view))
	for _, n := range view {
		present[n.ID] = true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.selected {
		if !present[id] {
			delete(m.selected, id)
		}
	}
}

// Has reports whether id is selected.
func (m *Model) Has(id tree.NodeID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selected[id]
}

// Len returns the number of selected ids.
func (m *Model) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.selected)
}

// Anchor returns the anchor index, or -1.
func (m *Model) Anchor() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.anchor
}

// IDs returns the selected ids in a stable order.
func (m *Model) IDs() []tree.NodeID {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]tree.NodeID, 0, len(m.selected))
	for id := range m.selected {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Nodes returns the selected nodes in view order.
func (m *Model) Nodes(nodes []tree.Node) []tree.Node {
	view := View(nodes)
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []tree.Node
	for _, n := range view {
		if m.selected[n.ID] {
			out = append(out, n)
		}
	}
	return out
}

package tree

import "sort"

// ExpansionSet is the set of expanded folder ids of one pane.
type ExpansionSet map[NodeID]struct{}

// NewExpansionSet returns a set holding ids.
func NewExpansionSet(ids ...NodeID) ExpansionSet {
	s := make(ExpansionSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s ExpansionSet) Has(id NodeID) bool {
	_, ok := s[id]
	return ok
}

func (s ExpansionSet) Add(id NodeID)    { s[id] = struct{}{} }
func (s ExpansionSet) Remove(id NodeID) { delete(s, id) }

// IDs returns the members in a stable order.
func (s ExpansionSet) IDs() []NodeID {
	out := make([]NodeID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Clone returns an independent copy.
func (s ExpansionSet) Clone() ExpansionSet {
	out := make(ExpansionSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Prune drops ids whose node is no longer in c.
func (s ExpansionSet) Prune(c *Cache) {
	for id := range s {
		if !c.Contains(id) {
			delete(s, id)
		}
	}
}

package tree

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// SortKey selects the secondary ordering after folders-first.
type SortKey int

const (
	SortByName SortKey = iota
	SortByCreated
	SortByModified
	SortByLastOpened
)

func (k SortKey) String() string {
	switch k {
	case SortByCreated:
		return "created"
	case SortByModified:
		return "modified"
	case SortByLastOpened:
		return "lastOpened"
	default:
		return "name"
	}
}

// ParseSortKey maps a config or flag value to a SortKey.
func ParseSortKey(s string) (SortKey, error) {
	switch strings.ToLower(s) {
	case "", "name":
		return SortByName, nil
	case "created", "date-created":
		return SortByCreated, nil
	case "modified", "date", "date-modified":
		return SortByModified, nil
	case "lastopened", "last-opened", "opened":
		return SortByLastOpened, nil
	}
	return SortByName, fmt.Errorf("unknown sort key %q", s)
}

// less orders folders first, then by key (dates newest first), ties broken by
// name and finally by path so the order is a pure function of the nodes.
func less(a, b *Node, key SortKey) bool {
	if a.IsFolder() != b.IsFolder() {
		return a.IsFolder()
	}

	var ta, tb time.Time
	switch key {
	case SortByCreated:
		ta, tb = a.CreatedAt, b.CreatedAt
	case SortByModified:
		ta, tb = a.ModifiedAt, b.ModifiedAt
	case SortByLastOpened:
		ta, tb = a.LastOpenedAt, b.LastOpenedAt
	}
	if !ta.Equal(tb) {
		return ta.After(tb)
	}

	na, nb := strings.ToLower(a.Name), strings.ToLower(b.Name)
	if na != nb {
		return na < nb
	}
	return a.Path < b.Path
}

func sortIDs(ids []NodeID, nodes map[NodeID]*Node, key SortKey) {
	sort.SliceStable(ids, func(i, j int) bool {
		return less(nodes[ids[i]], nodes[ids[j]], key)
	})
}

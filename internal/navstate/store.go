// Package navstate persists each pane's navigation state per volume.
package navstate

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/justyntemme/twinpane/internal/debug"
)

// NoIdentity is the key segment used when the provider cannot supply a
// stable volume identity.
const NoIdentity = "none"

// State is the persisted record for one (pane, volume) pair.
type State struct {
	CurrentPath     string   `json:"currentPath"`
	ExpandedFolders []string `json:"expandedFolders"`
}

// Record is a stored state together with the key parts it was saved under.
type Record struct {
	PaneID   string
	Identity string
	State    State
}

// Backend is a string key/value store.
type Backend interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Close() error
}

// Store maps (paneID, volumeIdentity) to State on top of a Backend.
type Store struct {
	backend Backend
}

// New returns a Store over b.
func New(b Backend) *Store {
	return &Store{backend: b}
}

// Key serializes the (paneID, identity) tuple.
func Key(paneID, identity string) string {
	if identity == "" {
		identity = NoIdentity
	}
	return paneID + ":" + identity
}

// splitKey splits on the last colon: identities never contain one, pane ids
// may.
func splitKey(key string) (paneID, identity string) {
	i := strings.LastIndexByte(key, ':')
	if i < 0 {
		return key, ""
	}
	return key[:i], key[i+1:]
}

// Save stores path and the expanded ids for the pair.
func (s *Store) Save(ctx context.Context, paneID, identity, path string, expanded []string) error {
	st := State{CurrentPath: path, ExpandedFolders: expanded}
	if st.ExpandedFolders == nil {
		st.ExpandedFolders = []string{}
	}
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	key := Key(paneID, identity)
	debug.Log(debug.STORE, "Save: %s -> %s (%d expanded)", key, path, len(expanded))
	return s.backend.Put(ctx, key, string(data))
}

// Load returns the saved state for the pair. ok is false when nothing was
// saved.
func (s *Store) Load(ctx context.Context, paneID, identity string) (State, bool, error) {
	key := Key(paneID, identity)
	value, ok, err := s.backend.Get(ctx, key)
	if err != nil || !ok {
		return State{}, false, err
	}
	st, err := Decode(value)
	if err != nil {
		return State{}, false, fmt.Errorf("navigation state %s: %w", key, err)
	}
	debug.Log(debug.STORE, "Load: %s -> %s (%d expanded)", key, st.CurrentPath, len(st.ExpandedFolders))
	return st, true, nil
}

// Forget removes the saved state for the pair.
func (s *Store) Forget(ctx context.Context, paneID, identity string) error {
	return s.backend.Delete(ctx, Key(paneID, identity))
}

// List returns every record, sorted by key. Undecodable values are skipped.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	keys, err := s.backend.Keys(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)

	var out []Record
	for _, k := range keys {
		value, ok, err := s.backend.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		st, err := Decode(value)
		if err != nil {
			debug.Log(debug.STORE, "List: skipping %s: %v", k, err)
			continue
		}
		pane, identity := splitKey(k)
		out = append(out, Record{PaneID: pane, Identity: identity, State: st})
	}
	return out, nil
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// Decode parses a stored value. Besides the JSON record it accepts the
// legacy formats: a bare path, or a JSON-encoded path string.
func Decode(value string) (State, error) {
	trimmed := strings.TrimSpace(value)
	switch {
	case trimmed == "":
		return State{}, fmt.Errorf("empty value")
	case strings.HasPrefix(trimmed, "{"):
		var st State
		if err := json.Unmarshal([]byte(trimmed), &st); err != nil {
			return State{}, err
		}
		if st.ExpandedFolders == nil {
			st.ExpandedFolders = []string{}
		}
		return st, nil
	case strings.HasPrefix(trimmed, `"`):
		var path string
		if err := json.Unmarshal([]byte(trimmed), &path); err == nil {
			return State{CurrentPath: path, ExpandedFolders: []string{}}, nil
		}
	}
	return State{CurrentPath: trimmed, ExpandedFolders: []string{}}, nil
}

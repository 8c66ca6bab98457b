// Package connstate implements the per-connector state store: last-poll
// timestamp and a per-item version map, owned by exactly one connector
// task (a single-writer keyspace per connector name).
package connstate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/arc-self/supplyrisk/internal/bus"
)

// MaxVersionMapEntries bounds the number of per-item versions retained per
// connector, evicting the oldest entries once the cap is exceeded. This is
// a safety valve against unbounded growth, not a
// correctness guarantee: evicting an entry only risks one redundant
// republish of an unchanged item, never a missed change, since eviction
// simply forgets a version rather than fabricating one.
const MaxVersionMapEntries = 10_000

// State is the persisted state of one connector instance.
type State struct {
	LastPollUTC string            `json:"last_poll_utc"`
	Versions    map[string]string `json:"versions"` // provider item id -> last published version
	// order tracks insertion order so eviction can drop the oldest entry
	// first (a simple LRU-by-insertion approximation, not access-order).
	order []string
}

// Store persists and loads State, one instance per connector name.
type Store struct {
	store bus.Store
}

// New constructs a Store atop the shared key-value backend.
func New(store bus.Store) *Store {
	return &Store{store: store}
}

func (s *Store) key(connectorName string) string {
	return fmt.Sprintf("connstate:%s", connectorName)
}

type wireState struct {
	LastPollUTC string            `json:"last_poll_utc"`
	Versions    map[string]string `json:"versions"`
	Order       []string          `json:"order"`
}

// Load returns the persisted state for connectorName, or a fresh empty State
// if none has been persisted yet.
func (s *Store) Load(ctx context.Context, connectorName string) (*State, error) {
	raw, found, err := s.store.Get(ctx, s.key(connectorName))
	if err != nil {
		return nil, fmt.Errorf("connstate: load %q: %w", connectorName, err)
	}
	if !found {
		return &State{Versions: make(map[string]string)}, nil
	}
	var w wireState
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return nil, fmt.Errorf("connstate: decode %q: %w", connectorName, err)
	}
	if w.Versions == nil {
		w.Versions = make(map[string]string)
	}
	return &State{LastPollUTC: w.LastPollUTC, Versions: w.Versions, order: w.Order}, nil
}

// Save persists state for connectorName in one write, applying the
// version-map cap before writing.
func (s *Store) Save(ctx context.Context, connectorName string, state *State) error {
	state.evictExcess()
	w := wireState{LastPollUTC: state.LastPollUTC, Versions: state.Versions, Order: state.order}
	payload, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("connstate: encode %q: %w", connectorName, err)
	}
	if err := s.store.Set(ctx, s.key(connectorName), string(payload), 0); err != nil {
		return fmt.Errorf("connstate: save %q: %w", connectorName, err)
	}
	return nil
}

// Touch stamps LastPollUTC to the given time.
func (state *State) Touch(at time.Time) {
	state.LastPollUTC = at.UTC().Format(time.RFC3339Nano)
}

// Version returns the last published version for itemID, if any.
func (state *State) Version(itemID string) (string, bool) {
	v, ok := state.Versions[itemID]
	return v, ok
}

// SetVersion records version as the last published version for itemID.
func (state *State) SetVersion(itemID, version string) {
	if state.Versions == nil {
		state.Versions = make(map[string]string)
	}
	if _, exists := state.Versions[itemID]; !exists {
		state.order = append(state.order, itemID)
	}
	state.Versions[itemID] = version
}

func (state *State) evictExcess() {
	for len(state.order) > MaxVersionMapEntries {
		oldest := state.order[0]
		state.order = state.order[1:]
		delete(state.Versions, oldest)
	}
}

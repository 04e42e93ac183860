// Package progress defines the persisted session cursor and counters.
package progress

import (
	"context"
	"maps"
	"time"
)

// State is the resumable position of a review session.
type State struct {
	SessionID string         `json:"session_id"`
	Cursor    int            `json:"cursor"`
	Counters  map[string]int `json:"counters"`
	// LastItem is the ID of the item the last decision touched.
	LastItem string `json:"last_item,omitempty"`
	// CatalogSize is the catalog length when the state was saved.
	CatalogSize int       `json:"catalog_size"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Clone returns a copy with its own counter map.
func (s State) Clone() State {
	c := s
	c.Counters = maps.Clone(s.Counters)
	if c.Counters == nil {
		c.Counters = map[string]int{}
	}
	return c
}

// Count returns the counter for kind.
func (s State) Count(kind string) int {
	return s.Counters[kind]
}

// Total returns the sum of all counters.
func (s State) Total() int {
	n := 0
	for _, v := range s.Counters {
		n += v
	}
	return n
}

// Store persists State.
type Store interface {
	// Load returns the stored state. found is false when nothing usable is
	// stored.
	Load(ctx context.Context) (state State, found bool, err error)
	// Save replaces the stored state.
	Save(ctx context.Context, state State) error
}

// Resolution describes how a loaded state was reconciled with the catalog.
type Resolution int

const (
	// Fresh means no state was stored.
	Fresh Resolution = iota
	// Resumed means the stored cursor is usable.
	Resumed
	// Reset means the stored cursor was out of range and was discarded.
	Reset
)

func (r Resolution) String() string {
	switch r {
	case Resumed:
		return "resumed"
	case Reset:
		return "reset"
	default:
		return "fresh"
	}
}

// Resolve reconciles a loaded state with the current catalog length. A
// cursor outside [0, catalogLen) discards the cursor and the counters; the
// session ID survives so the journal stays correlated.
func Resolve(state State, found bool, catalogLen int) (State, Resolution) {
	if !found {
		return State{Counters: map[string]int{}}, Fresh
	}

	if state.Cursor < 0 || state.Cursor >= catalogLen {
		return State{SessionID: state.SessionID, Counters: map[string]int{}}, Reset
	}

	return state.Clone(), Resumed
}

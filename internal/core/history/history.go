// Package history defines the undo stack of applied review decisions.
package history

import (
	"errors"
	"fmt"
	"time"

	"github.com/colonyops/relabel/internal/core/catalog"
	"github.com/colonyops/relabel/internal/core/geometry"
	"github.com/colonyops/relabel/internal/core/progress"
	"github.com/colonyops/relabel/internal/fileops"
)

// ErrEmpty is returned when popping an empty stack.
var ErrEmpty = errors.New("history is empty")

// ActionKind is a terminal decision on a work item.
type ActionKind string

const (
	Commit ActionKind = "commit"
	Keep   ActionKind = "keep"
	Reject ActionKind = "reject"
	Skip   ActionKind = "skip"
)

// Kinds lists every action kind in display order.
var Kinds = []ActionKind{Commit, Keep, Reject, Skip}

// ParseActionKind parses s into an ActionKind.
func ParseActionKind(s string) (ActionKind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown action kind %q", s)
}

// RemovesItem reports whether the action takes the item out of the catalog.
func (k ActionKind) RemovesItem() bool {
	return k == Reject
}

// Record captures enough about an applied decision to reverse it exactly.
type Record struct {
	Kind ActionKind
	// Index is the cursor position the decision was made at.
	Index int
	Item  catalog.WorkItem
	// Code is the target token of a commit.
	Code string
	// Region is the clamped box of a commit.
	Region  geometry.Region
	Effects fileops.Effects
	// Before is the session state the decision was applied to.
	Before progress.State
	At     time.Time
}

// Revert undoes the recorded file effects.
func (r Record) Revert() error {
	if err := r.Effects.Revert(); err != nil {
		return fmt.Errorf("revert %s of %s: %w", r.Kind, r.Item.ID, err)
	}
	return nil
}

// Stack is an unbounded LIFO of records.
type Stack struct {
	records []Record
}

// Push appends r.
func (s *Stack) Push(r Record) {
	s.records = append(s.records, r)
}

// Peek returns the most recent record without removing it.
func (s *Stack) Peek() (Record, bool) {
	if len(s.records) == 0 {
		return Record{}, false
	}
	return s.records[len(s.records)-1], true
}

// Pop removes and returns the most recent record.
func (s *Stack) Pop() (Record, error) {
	r, ok := s.Peek()
	if !ok {
		return Record{}, ErrEmpty
	}
	s.records = s.records[:len(s.records)-1]
	return r, nil
}

// Len returns the number of records.
func (s *Stack) Len() int { return len(s.records) }

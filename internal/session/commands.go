package session

import (
	"github.com/colonyops/relabel/internal/core/catalog"
	"github.com/colonyops/relabel/internal/core/geometry"
	"github.com/colonyops/relabel/internal/core/history"
)

// Command is an input to Engine.Dispatch.
type Command interface {
	command()
}

// Commit accepts the current item under a new code, boxing the region
// around Point. Empty fields fall back to the configured defaults.
type Commit struct {
	Code   string
	Point  geometry.Point
	Anchor geometry.Anchor
}

// Keep accepts the current item unchanged.
type Keep struct{}

// Reject moves the current item into quarantine.
type Reject struct{}

// Skip copies the current item into the ambiguous directory.
type Skip struct{}

// Undo reverses the most recent decision.
type Undo struct{}

func (Commit) command() {}
func (Keep) command()   {}
func (Reject) command() {}
func (Skip) command()   {}
func (Undo) command()   {}

// Outcome reports what a dispatched command did.
type Outcome struct {
	Kind history.ActionKind `json:"kind,omitempty"`
	// Undone is set when the command reversed a decision of Kind.
	Undone bool `json:"undone,omitempty"`
	// NothingToUndo is set when Undo found an empty history.
	NothingToUndo bool             `json:"nothing_to_undo,omitempty"`
	Item          catalog.WorkItem `json:"item"`
	Region        geometry.Region  `json:"region"`
	// Paths lists the files the decision produced or restored.
	Paths    []string `json:"paths,omitempty"`
	Cursor   int      `json:"cursor"`
	Complete bool     `json:"complete"`
}

package session

import (
	"context"
	"time"

	"github.com/colonyops/relabel/internal/core/geometry"
	"github.com/colonyops/relabel/internal/core/history"
	"github.com/colonyops/relabel/internal/fileops"
)

// Info describes a session when it is opened.
type Info struct {
	ID        string    `json:"id"`
	InputRoot string    `json:"input_root"`
	OutputDir string    `json:"output_dir"`
	Items     int       `json:"items"`
	StartedAt time.Time `json:"started_at"`
	ResumedAt time.Time `json:"resumed_at"`
}

// JournalEntry is the audit record of one applied decision or undo.
type JournalEntry struct {
	ID        string             `json:"id"`
	SessionID string             `json:"session_id"`
	Seq       int                `json:"seq"`
	Kind      history.ActionKind `json:"kind"`
	Undo      bool               `json:"undo"`
	ItemID    string             `json:"item_id"`
	Index     int                `json:"index"`
	Code      string             `json:"code,omitempty"`
	Region    geometry.Region    `json:"region"`
	Effects   fileops.Effects    `json:"effects"`
	Cursor    int                `json:"cursor"`
	CreatedAt time.Time          `json:"created_at"`
}

// Journal receives every applied decision. It is an audit trail only; the
// engine never reads it back and journal failures never fail a command.
type Journal interface {
	BeginSession(ctx context.Context, info Info) error
	Append(ctx context.Context, entry JournalEntry) error
}

func entryFor(sessionID string, rec history.Record, undo bool, cursor int) JournalEntry {
	return JournalEntry{
		SessionID: sessionID,
		Kind:      rec.Kind,
		Undo:      undo,
		ItemID:    rec.Item.ID,
		Index:     rec.Index,
		Code:      rec.Code,
		Region:    rec.Region,
		Effects:   rec.Effects,
		Cursor:    cursor,
		CreatedAt: time.Now(),
	}
}

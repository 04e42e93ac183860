package logging

import (
	"context"
	"testing"
)

func TestWithSessionID(t *testing.T) {
	ctx := context.Background()
	sessionID := "test-session-123"

	ctx = WithSessionID(ctx, sessionID)
	got := GetSessionID(ctx)

	if got != sessionID {
		t.Errorf("GetSessionID() = %q, want %q", got, sessionID)
	}
}

func TestWithItemID(t *testing.T) {
	ctx := context.Background()
	itemID := "test-IMG_D_A2_001.jpg"

	ctx = WithItemID(ctx, itemID)
	got := GetItemID(ctx)

	if got != itemID {
		t.Errorf("GetItemID() = %q, want %q", got, itemID)
	}
}

func TestGetSessionID_NotPresent(t *testing.T) {
	ctx := context.Background()
	got := GetSessionID(ctx)

	if got != "" {
		t.Errorf("GetSessionID() = %q, want empty string", got)
	}
}

func TestGetItemID_NotPresent(t *testing.T) {
	ctx := context.Background()
	got := GetItemID(ctx)

	if got != "" {
		t.Errorf("GetItemID() = %q, want empty string", got)
	}
}

func TestBothIDs(t *testing.T) {
	ctx := context.Background()
	sessionID := "session-1"
	itemID := "IMG_D_A1_002.jpg"

	ctx = WithSessionID(ctx, sessionID)
	ctx = WithItemID(ctx, itemID)

	if got := GetSessionID(ctx); got != sessionID {
		t.Errorf("GetSessionID() = %q, want %q", got, sessionID)
	}

	if got := GetItemID(ctx); got != itemID {
		t.Errorf("GetItemID() = %q, want %q", got, itemID)
	}
}

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	log.Logger = zerolog.New(&buf)

	logger := Component("test-component")
	logger.Info().Msg("test message")

	var logEntry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("failed to parse log: %v", err)
	}

	cmp, ok := logEntry["cmp"]
	if !ok {
		t.Fatal("expected 'cmp' key in log output")
	}

	if cmp != "test-component" {
		t.Errorf("Component() cmp = %q, want %q", cmp, "test-component")
	}

	msg, ok := logEntry["message"]
	if !ok {
		t.Fatal("expected 'message' key in log output")
	}

	if msg != "test message" {
		t.Errorf("Component() message = %q, want %q", msg, "test message")
	}
}

func TestInstall_AttachesContextHook(t *testing.T) {
	var buf bytes.Buffer
	Install(zerolog.New(&buf))

	ctx := WithItemID(WithSessionID(context.Background(), "s-1"), "a/IMG_D_A1_001.jpg")
	logger := Component("session")
	logger.Info().Ctx(ctx).Msg("commit")

	var logEntry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("failed to parse log: %v", err)
	}

	if logEntry["session_id"] != "s-1" {
		t.Errorf("session_id = %v, want s-1", logEntry["session_id"])
	}
	if logEntry["item_id"] != "a/IMG_D_A1_001.jpg" {
		t.Errorf("item_id = %v, want a/IMG_D_A1_001.jpg", logEntry["item_id"])
	}
	if logEntry["cmp"] != "session" {
		t.Errorf("cmp = %v, want session", logEntry["cmp"])
	}
}

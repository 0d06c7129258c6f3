package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestWithLogger_FromContext(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := WithLogger(context.Background(), l)

	retrieved := FromContext(ctx)
	if retrieved == nil {
		t.Fatal("FromContext returned nil")
	}

	retrieved.Info("test message")

	if buf.Len() == 0 {
		t.Error("Logger from context should produce output")
	}
}

func TestFromContext_Default(t *testing.T) {
	ctx := context.Background()

	l := FromContext(ctx)
	if l == nil {
		t.Error("FromContext should return default logger, got nil")
	}
}

func TestWithClientID(t *testing.T) {
	ctx := WithClientID(context.Background(), "01HX000000000000000000001")

	retrieved := ClientIDFromContext(ctx)
	if retrieved != "01HX000000000000000000001" {
		t.Errorf("ClientIDFromContext() = %q, want %q", retrieved, "01HX000000000000000000001")
	}
}

func TestClientIDFromContext_Empty(t *testing.T) {
	ctx := context.Background()

	if retrieved := ClientIDFromContext(ctx); retrieved != "" {
		t.Errorf("ClientIDFromContext() = %q, want empty string", retrieved)
	}
}

func TestL_WithClientID(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := WithLogger(context.Background(), l)
	ctx = WithClientID(ctx, "01HX000000000000000000001")

	L(ctx).Info("test message")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}

	clientID, ok := entry["client_id"].(string)
	if !ok || clientID != "01HX000000000000000000001" {
		t.Errorf("expected client_id='01HX000000000000000000001', got %v", entry["client_id"])
	}
}

func TestL_NoClientID(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := WithLogger(context.Background(), l)

	L(ctx).Info("test message")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}

	if _, ok := entry["client_id"]; ok {
		t.Error("should not have client_id when not set")
	}
}

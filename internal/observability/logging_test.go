package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestWithBuildID(t *testing.T) {
	ctx := WithBuildID(context.Background(), "build-123")

	lc := GetContext(ctx)
	if lc.BuildID != "build-123" {
		t.Errorf("expected build-123, got %s", lc.BuildID)
	}
}

func TestMultipleContextValues(t *testing.T) {
	ctx := context.Background()
	ctx = WithBuildID(ctx, "build-1")
	ctx = WithStage(ctx, "render")
	ctx = WithPath(ctx, "about.md")

	lc := GetContext(ctx)
	if lc.BuildID != "build-1" {
		t.Error("expected build-1")
	}
	if lc.Stage != "render" {
		t.Error("expected render")
	}
	if lc.Path != "about.md" {
		t.Error("expected about.md")
	}
}

func TestOverwriteContextValue(t *testing.T) {
	ctx := context.Background()
	ctx = WithStage(ctx, "load")
	ctx = WithStage(ctx, "parse")

	if lc := GetContext(ctx); lc.Stage != "parse" {
		t.Errorf("expected parse, got %s", lc.Stage)
	}
}

func TestEmptyContext(t *testing.T) {
	lc := GetContext(context.Background())
	if lc.BuildID != "" || lc.Stage != "" || lc.Path != "" {
		t.Error("expected empty context")
	}
}

func captureDefault(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestContextLoggingAddsAttributes(t *testing.T) {
	buf := captureDefault(t)

	ctx := WithBuildID(context.Background(), "build-1")
	ctx = WithStage(ctx, "render")
	ctx = WithPath(ctx, "_posts/2020-01-05-x.md")

	WarnContext(ctx, "unused footnote", slog.String("footnote", "spare"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["build_id"] != "build-1" || entry["stage"] != "render" || entry["path"] != "_posts/2020-01-05-x.md" {
		t.Errorf("missing context attributes: %v", entry)
	}
	if entry["footnote"] != "spare" || entry["level"] != "WARN" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestLevels(t *testing.T) {
	buf := captureDefault(t)
	ctx := context.Background()

	DebugContext(ctx, "d")
	InfoContext(ctx, "i")
	ErrorContext(ctx, "e")

	lines := bytes.Count(buf.Bytes(), []byte("\n"))
	if lines != 3 {
		t.Errorf("expected 3 log lines, got %d", lines)
	}
}

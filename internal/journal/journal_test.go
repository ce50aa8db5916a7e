package journal

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/parlolabs/parlo-core/internal/config"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestOpenEphemeral(t *testing.T) {
	ctx := context.Background()
	cfg := config.JournalConfig{RetentionMode: "ephemeral"}
	j, err := Open(ctx, cfg, newLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	if err := j.Ensure(); err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	if err := j.Append(ctx, Entry{SessionID: "s", Kind: KindUserMessage, Text: "hi"}); err != nil {
		t.Fatalf("ephemeral append should be a no-op: %v", err)
	}
}

func TestAppendAndTimeline(t *testing.T) {
	tmp := t.TempDir()
	cfg := config.JournalConfig{Path: filepath.Join(tmp, "sessions.db"), RetentionMode: "session"}
	j, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })

	sessionID := "session-123"
	if err := j.BeginSession(context.Background(), sessionID, "economy", 2); err != nil {
		t.Fatalf("begin session: %v", err)
	}
	if err := j.Append(context.Background(), Entry{SessionID: sessionID, Kind: KindAgentMessage, Text: "What do you think?"}); err != nil {
		t.Fatalf("append agent message: %v", err)
	}
	if err := j.Append(context.Background(), Entry{SessionID: sessionID, Kind: KindUserMessage, Text: "I think it grows.", Score: 85}); err != nil {
		t.Fatalf("append user message: %v", err)
	}

	entries, err := j.SessionTimeline(context.Background(), sessionID, 10)
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Kind != KindAgentMessage || entries[1].Kind != KindUserMessage {
		t.Fatalf("timeline out of order: %v, %v", entries[0].Kind, entries[1].Kind)
	}
	if entries[1].Score != 85 {
		t.Fatalf("score = %d, want 85", entries[1].Score)
	}
}

func TestPruneByDaysAndSessions(t *testing.T) {
	tmp := t.TempDir()
	cfg := config.JournalConfig{Path: filepath.Join(tmp, "sessions.db"), RetentionMode: "persistent", RetentionDays: 1, MaxSessions: 1}
	j, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })

	j.clock = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }
	if err := j.BeginSession(context.Background(), "old-session", "economy", 1); err != nil {
		t.Fatalf("begin session: %v", err)
	}
	if err := j.Append(context.Background(), Entry{SessionID: "old-session", Kind: KindOutcome}); err != nil {
		t.Fatalf("append entry: %v", err)
	}

	j.clock = func() time.Time { return time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC) }
	if err := j.BeginSession(context.Background(), "new-session", "economy", 1); err != nil {
		t.Fatalf("begin session: %v", err)
	}
	if err := j.Prune(context.Background()); err != nil {
		t.Fatalf("prune: %v", err)
	}

	old, err := j.SessionTimeline(context.Background(), "old-session", 10)
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}
	if len(old) != 0 {
		t.Fatalf("expected old session entries pruned, got %d", len(old))
	}
}

package ops

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hpungsan/strand/internal/errors"
)

func TestStartCreatesSequence(t *testing.T) {
	database := testDB(t)

	out, err := Start(context.Background(), database, StartInput{
		Goal:        "Design auth flow",
		ProjectName: "demo",
	})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if out.SequenceID == 0 {
		t.Error("sequence id not assigned")
	}
	if out.ProjectName != "demo" {
		t.Errorf("project = %s, want demo", out.ProjectName)
	}
	wantSession := "session-" + time.Now().UTC().Format("2006-01-02")
	if out.SessionName != wantSession {
		t.Errorf("session = %s, want %s", out.SessionName, wantSession)
	}
}

func TestStartDefaultsProject(t *testing.T) {
	database := testDB(t)

	out, err := Start(context.Background(), database, StartInput{Goal: "anything"})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if out.ProjectName != "default" {
		t.Errorf("project = %s, want default", out.ProjectName)
	}
}

func TestStartRequiresGoal(t *testing.T) {
	database := testDB(t)

	_, err := Start(context.Background(), database, StartInput{Goal: "  "})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("expected INVALID_REQUEST, got %v", err)
	}
}

func TestSequenceNameTruncation(t *testing.T) {
	short := "fits as is"
	if got := sequenceName(short); got != short {
		t.Errorf("sequenceName(%q) = %q", short, got)
	}

	long := strings.Repeat("x", 200)
	got := sequenceName(long)
	if !strings.HasSuffix(got, "…") {
		t.Errorf("long name not truncated with ellipsis: %q", got)
	}
	if len([]rune(got)) > maxSequenceNameChars+1 {
		t.Errorf("truncated name too long: %d runes", len([]rune(got)))
	}
}

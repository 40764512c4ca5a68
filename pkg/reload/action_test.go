package reload

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCommandActionEmptyIsNoop(t *testing.T) {
	if err := (CommandAction{Command: "  "}).Run(context.Background()); err != nil {
		t.Fatalf("empty command: %v", err)
	}
}

func TestCommandActionSuccess(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "ran")
	if err := (CommandAction{Command: "touch " + marker}).Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := os.Stat(marker); err != nil {
		t.Fatalf("expected command side effect: %v", err)
	}
}

func TestCommandActionNonZeroExit(t *testing.T) {
	err := (CommandAction{Command: "echo nope >&2; exit 3"}).Run(context.Background())
	if !errors.Is(err, ErrActionFailed) {
		t.Fatalf("expected ErrActionFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "nope") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
}

func TestCommandActionTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := (CommandAction{Command: "exec sleep 5"}).Run(ctx)
	if !errors.Is(err, ErrActionFailed) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected timeout failure, got %v", err)
	}
}

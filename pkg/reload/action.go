package reload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ErrActionFailed wraps every failure reported by an Action run.
var ErrActionFailed = errors.New("reload: action failed")

// Action performs one reload of the external consumer.
type Action interface {
	Run(ctx context.Context) error
}

// ActionFunc adapts a function to Action.
type ActionFunc func(ctx context.Context) error

func (fn ActionFunc) Run(ctx context.Context) error {
	if fn == nil {
		return nil
	}
	return fn(ctx)
}

// CommandAction runs Command through Shell ("sh" when empty) with -c. An empty
// command succeeds without running anything. Exit status zero is success.
type CommandAction struct {
	Command string
	Shell   string
}

func (a CommandAction) Run(ctx context.Context) error {
	command := strings.TrimSpace(a.Command)
	if command == "" {
		return nil
	}
	shell := a.Shell
	if shell == "" {
		shell = "sh"
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, shell, "-c", command)
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %q: %v: %s", ErrActionFailed, command, err, msg)
		}
		return fmt.Errorf("%w: %q: %w", ErrActionFailed, command, err)
	}
	return nil
}

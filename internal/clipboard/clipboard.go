// Package clipboard hands a generated chart to the system clipboard so it can
// be pasted into the EMR.
package clipboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

var ErrUnavailable = errors.New("no clipboard command available")

const copyTimeout = 4 * time.Second

type commandSpec struct {
	name string
	args []string
	// detached commands keep running to serve the selection, so they are
	// started and released instead of waited on.
	detached bool
}

// CopyText copies value using the first clipboard tool found for this OS.
func CopyText(ctx context.Context, value string) error {
	spec, err := detectCommand(runtime.GOOS, exec.LookPath)
	if err != nil {
		return err
	}
	return run(ctx, spec, value)
}

func detectCommand(goos string, lookPath func(string) (string, error)) (commandSpec, error) {
	var candidates []commandSpec
	switch goos {
	case "darwin":
		candidates = []commandSpec{{name: "pbcopy"}}
	case "windows":
		candidates = []commandSpec{{name: "clip.exe"}}
	default:
		candidates = []commandSpec{
			{name: "wl-copy"},
			{name: "xclip", args: []string{"-selection", "clipboard", "-in", "-silent"}, detached: true},
			{name: "xsel", args: []string{"--clipboard", "--input"}},
		}
	}

	for _, candidate := range candidates {
		if _, err := lookPath(candidate.name); err == nil {
			return candidate, nil
		}
	}
	return commandSpec{}, ErrUnavailable
}

func run(ctx context.Context, spec commandSpec, value string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if spec.detached {
		return runDetached(spec, value)
	}

	copyCtx, cancel := context.WithTimeout(ctx, copyTimeout)
	defer cancel()

	cmd := exec.CommandContext(copyCtx, spec.name, spec.args...)
	cmd.Stdin = strings.NewReader(value)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard

	if err := cmd.Run(); err != nil {
		if errors.Is(copyCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("copy to clipboard timed out: %w", copyCtx.Err())
		}
		return fmt.Errorf("copy to clipboard with %s: %w", spec.name, err)
	}
	return nil
}

func runDetached(spec commandSpec, value string) error {
	cmd := exec.Command(spec.name, spec.args...)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open clipboard stdin: %w", err)
	}
	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start %s: %w", spec.name, err)
	}

	if _, err := io.WriteString(stdin, value); err != nil {
		_ = stdin.Close()
		_ = cmd.Process.Kill()
		return fmt.Errorf("write clipboard data: %w", err)
	}
	if err := stdin.Close(); err != nil {
		_ = cmd.Process.Kill()
		return fmt.Errorf("close clipboard stdin: %w", err)
	}

	_ = cmd.Process.Release()
	return nil
}

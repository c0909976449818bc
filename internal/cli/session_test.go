package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jshclinic/aichart/internal/config"
	"github.com/jshclinic/aichart/internal/transcribe"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sessionScript(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

func TestSessionEncounterLifecycle(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, &fakeService{text: sampleChart})
	audio := env.writeAudio(t, "visit.wav", sampleWAV())

	script := sessionScript(
		"state",
		"submit",
		"load "+audio,
		"state",
		"submit",
		"show",
		"load "+audio,
		"reset",
		"state",
		"history",
		"quit",
		"state",
	)

	stdout, stderr, err := env.run(t, script, "session", "--no-copy")
	require.NoError(t, err)
	require.Contains(t, stderr, "> ")

	lines := strings.Split(strings.TrimRight(stdout, "\n"), "\n")
	require.Equal(t, "idle", lines[0])
	require.Equal(t, "error: no recording captured", lines[1])
	require.Equal(t, "captured "+strconv.Itoa(len(sampleWAV()))+" bytes", lines[2])
	require.Equal(t, "captured (recording held)", lines[3])

	require.Equal(t, 3, strings.Count(stdout, sampleChart))
	require.Contains(t, stdout, "error: operation not allowed in current state")
	require.Contains(t, stdout, "ready for a new encounter")
	require.Contains(t, stdout, "== 2026-10-18 09:00:00 ==")
	require.Empty(t, env.copies)
	require.Equal(t, 1, env.service.calls)

	idle := 0
	for _, line := range lines {
		if line == "idle" {
			idle++
		}
	}
	// The state command after quit never runs.
	require.Equal(t, 2, idle)
}

func TestSessionFailureKeepsRecordingForRetry(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, &fakeService{err: errors.New("upstream unavailable")})
	audio := env.writeAudio(t, "visit.wav", sampleWAV())

	script := sessionScript(
		"load "+audio,
		"submit",
		"state",
		"show",
		"submit minimal",
		"bogus",
	)

	stdout, _, err := env.run(t, script, "session")
	require.NoError(t, err)

	require.Equal(t, 2, strings.Count(stdout, "error: The transcription service returned an error"))
	require.Contains(t, stdout, "\nfailed (recording held)\n")
	require.Contains(t, stdout, "upstream unavailable")
	require.Contains(t, stdout, `error: unknown command "bogus" (type help)`)
	require.NotContains(t, stdout, "no recording captured")
	require.Equal(t, 2, env.service.calls)
	requireDirEmpty(t, env.staging)
}

func TestSessionHelp(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, &fakeService{})

	stdout, _, err := env.run(t, "help\n", "session")
	require.NoError(t, err)
	require.Contains(t, stdout, "submit [template]")
	require.Contains(t, stdout, "history [date]")
}

// blockingService holds Generate open until the request context ends.
type blockingService struct {
	started chan struct{}
}

func (b *blockingService) Name() string { return "blocking" }

func (b *blockingService) Generate(ctx context.Context, _ string, _ transcribe.Request) (string, error) {
	close(b.started)
	<-ctx.Done()
	return "", ctx.Err()
}

type sessionRun struct {
	stdin  *io.PipeWriter
	cancel context.CancelFunc
	done   chan error
	stdout *strings.Builder
}

// startSession runs the session command with stdin left open until cleanup.
func startSession(t *testing.T, env *testEnv) *sessionRun {
	t.Helper()

	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pw.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	run := &sessionRun{stdin: pw, cancel: cancel, done: make(chan error, 1), stdout: new(strings.Builder)}
	args := env.args("session", "--no-copy")
	go func() {
		cmd := newRootCmd(env.app)
		cmd.SetIn(pr)
		cmd.SetOut(run.stdout)
		cmd.SetErr(io.Discard)
		cmd.SetArgs(args)
		run.done <- cmd.ExecuteContext(ctx)
	}()
	return run
}

func (r *sessionRun) wait(t *testing.T) error {
	t.Helper()
	select {
	case err := <-r.done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("session did not stop after cancellation")
		return nil
	}
}

func TestSessionEndsWhenCancelledAtPrompt(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, &fakeService{})
	run := startSession(t, env)

	_, err := io.WriteString(run.stdin, "state\n")
	require.NoError(t, err)

	run.cancel()
	require.NoError(t, run.wait(t))
}

func TestSessionEndsWhenCancelledDuringSubmit(t *testing.T) {
	t.Parallel()

	svc := &blockingService{started: make(chan struct{})}
	env := newTestEnv(t, nil)
	env.app.serviceFn = func(config.Config, *zap.Logger) (transcribe.Service, error) { return svc, nil }
	audio := env.writeAudio(t, "visit.wav", sampleWAV())

	run := startSession(t, env)
	_, err := io.WriteString(run.stdin, sessionScript("load "+audio, "submit"))
	require.NoError(t, err)

	select {
	case <-svc.started:
	case <-time.After(5 * time.Second):
		t.Fatal("submit never reached the service")
	}

	run.cancel()
	require.NoError(t, run.wait(t))
	require.Contains(t, run.stdout.String(), "error: The transcription service returned an error")
	requireDirEmpty(t, env.staging)

	_, statErr := os.Stat(env.logFile)
	require.True(t, os.IsNotExist(statErr))
}

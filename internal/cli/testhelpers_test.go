package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jshclinic/aichart/internal/config"
	"github.com/jshclinic/aichart/internal/transcribe"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeService struct {
	mu      sync.Mutex
	text    string
	err     error
	calls   int
	prompts []string
}

func (f *fakeService) Name() string { return "fake" }

func (f *fakeService) Generate(_ context.Context, _ string, req transcribe.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.prompts = append(f.prompts, req.Instructions)
	return f.text, f.err
}

type testEnv struct {
	dir        string
	configFile string
	logFile    string
	journal    string
	staging    string
	apiKey     string
	copies     []string
	service    *fakeService
	app        *appState
}

func newTestEnv(t *testing.T, svc *fakeService) *testEnv {
	t.Helper()

	dir := t.TempDir()
	env := &testEnv{
		dir:     dir,
		logFile: filepath.Join(dir, "data", "charts.csv"),
		journal: filepath.Join(dir, "data", "encounters.jsonl"),
		staging: filepath.Join(dir, "staging"),
		apiKey:  "test-key",
		service: svc,
	}
	require.NoError(t, os.MkdirAll(env.staging, 0o755))
	require.NoError(t, os.WriteFile(env.envFile(), nil, 0o600))

	env.configFile = filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(env.configFile, []byte("provider: gemini\n"), 0o600))

	env.app = &appState{
		now: func() time.Time { return time.Date(2026, 10, 18, 9, 0, 0, 0, time.Local) },
		serviceFn: func(config.Config, *zap.Logger) (transcribe.Service, error) {
			return svc, nil
		},
		copyFn: func(_ context.Context, value string) error {
			env.copies = append(env.copies, value)
			return nil
		},
	}
	return env
}

func (e *testEnv) run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	return runCommandWith(t, e.app, e.args(args...), strings.NewReader(stdin))
}

func (e *testEnv) args(args ...string) []string {
	full := append([]string{}, args...)
	full = append(full,
		"--config", e.configFile,
		"--env-file", e.envFile(),
		"--log-file", e.logFile,
		"--journal-file", e.journal,
		"--staging-dir", e.staging,
		"--no-progress",
	)
	if e.apiKey != "" {
		full = append(full, "--api-key", e.apiKey)
	}
	return full
}

// envFile returns an empty dotenv file so a developer's ./.env never leaks
// into a test run.
func (e *testEnv) envFile() string {
	return filepath.Join(e.dir, "test.env")
}

func (e *testEnv) writeAudio(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func runCommand(t *testing.T, args []string) (stdout string, stderr string, err error) {
	t.Helper()
	return runCommandWith(t, newAppState(), args, strings.NewReader(""))
}

func runCommandWith(t *testing.T, app *appState, args []string, stdin io.Reader) (stdout string, stderr string, err error) {
	t.Helper()

	cmd := newRootCmd(app)
	outBuf := new(bytes.Buffer)
	errBuf := new(bytes.Buffer)

	cmd.SetIn(stdin)
	cmd.SetOut(outBuf)
	cmd.SetErr(errBuf)
	cmd.SetArgs(args)

	err = cmd.Execute()
	return outBuf.String(), errBuf.String(), err
}

func requireDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func sampleWAV() []byte {
	return []byte("RIFF\x24\x00\x00\x00WAVEfmt \x10\x00\x00\x00\x01\x00\x01\x00\x80\x3e\x00\x00\x00\x7d\x00\x00\x02\x00\x10\x00data\x00\x00\x00\x00")
}

package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jshclinic/aichart/internal/chart"
	"github.com/jshclinic/aichart/internal/config"
	"github.com/jshclinic/aichart/internal/pipeline"
	"github.com/spf13/cobra"
)

const sessionHelp = `Commands:
  load <audio-file>   capture a recording (replaces an untranscribed one)
  submit [template]   generate the chart for the captured recording
  show                print the current chart or error
  state               print the encounter state
  reset               clear the encounter and start a new one
  history [date]      list charts for a date (default today)
  help                show this help
  quit                leave the session`

func newSessionCmd(app *appState) *cobra.Command {
	var noCopy bool

	cmd := &cobra.Command{
		Use:   "session",
		Short: "Run an interactive charting session",
		Long:  "Run an interactive charting session reading operator commands from stdin.\n\n" + sessionHelp,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.loadConfig(cmd)
			if err != nil {
				return err
			}
			deps, err := app.newEncounter(cfg)
			if err != nil {
				return err
			}

			s := &session{
				app:    app,
				cfg:    cfg,
				deps:   deps,
				out:    cmd.OutOrStdout(),
				prompt: cmd.ErrOrStderr(),
				copy:   !noCopy,
			}
			return s.run(cmd.Context(), cmd.InOrStdin())
		},
	}

	cmd.Flags().BoolVar(&noCopy, "no-copy", false, "Do not copy generated charts to the clipboard")
	return cmd
}

type session struct {
	app    *appState
	cfg    config.Config
	deps   encounterDeps
	out    io.Writer
	prompt io.Writer
	copy   bool
}

// run reads commands until quit, end of input, or ctx is cancelled. Input is
// scanned in its own goroutine so an interrupt at the prompt ends the session.
func (s *session) run(ctx context.Context, in io.Reader) error {
	if ctx == nil {
		ctx = context.Background()
	}

	lines := make(chan string)
	var scanErr error
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr = scanner.Err()
	}()

	for {
		fmt.Fprint(s.prompt, "> ")

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(s.prompt)
			s.app.log().Info("session interrupted")
			return nil
		case next, ok := <-lines:
			if !ok {
				fmt.Fprintln(s.prompt)
				return scanErr
			}
			line = next
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		command, args := strings.ToLower(fields[0]), fields[1:]
		if command == "quit" || command == "exit" {
			return nil
		}
		if err := s.dispatch(ctx, command, args); err != nil {
			fmt.Fprintf(s.out, "error: %s\n", err)
		}
	}
}

func (s *session) dispatch(ctx context.Context, command string, args []string) error {
	orchestrator := s.deps.orchestrator

	switch command {
	case "load", "capture":
		if len(args) != 1 {
			return errors.New("usage: load <audio-file>")
		}
		artifact, err := readArtifact(args[0], strings.NewReader(""))
		if err != nil {
			return err
		}
		if err := orchestrator.Capture(artifact); err != nil {
			return err
		}
		s.app.warnIfSilent(artifact)
		fmt.Fprintf(s.out, "captured %d bytes\n", artifact.Len())
		return nil

	case "submit":
		name := s.cfg.Template
		if len(args) > 0 {
			name = args[0]
		}
		tmpl, err := chart.LookupTemplate(name)
		if err != nil {
			return err
		}

		stopSpinner := startSpinner(s.app.progressEnabled(), "Generating chart")
		snap, err := orchestrator.Submit(ctx, tmpl)
		stopSpinner()
		if err != nil {
			if errors.Is(err, pipeline.ErrBusy) || errors.Is(err, pipeline.ErrNoArtifact) || errors.Is(err, pipeline.ErrInvalidState) {
				return err
			}
			return &operatorError{err: err}
		}
		s.printChart(ctx, snap)
		return nil

	case "show":
		snap := orchestrator.Snapshot()
		switch snap.State {
		case pipeline.Completed:
			fmt.Fprintln(s.out, snap.Chart)
		case pipeline.Failed:
			fmt.Fprintln(s.out, chart.Describe(snap.Err))
		default:
			fmt.Fprintf(s.out, "nothing to show (%s)\n", snap.State)
		}
		return nil

	case "state":
		snap := orchestrator.Snapshot()
		if snap.HasArtifact() {
			fmt.Fprintf(s.out, "%s (recording held)\n", snap.State)
			return nil
		}
		fmt.Fprintln(s.out, snap.State)
		return nil

	case "reset":
		if err := orchestrator.Reset(); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "ready for a new encounter")
		return nil

	case "history":
		date := s.app.clock()().Format(chart.DateLayout)
		if len(args) > 0 {
			date = args[0]
		}
		return printHistory(s.out, s.deps.store, date)

	case "help":
		fmt.Fprintln(s.out, sessionHelp)
		return nil

	default:
		return fmt.Errorf("unknown command %q (type help)", command)
	}
}

func (s *session) printChart(ctx context.Context, snap pipeline.Snapshot) {
	fmt.Fprintln(s.out, snap.Chart)
	if s.copy {
		s.app.copyChart(ctx, snap.Chart)
	}
	if snap.PersistErr != nil {
		fmt.Fprintf(s.out, "warning: %s\n", chart.Describe(snap.PersistErr))
	}
}

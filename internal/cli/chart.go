package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/jshclinic/aichart/internal/chart"
	"github.com/jshclinic/aichart/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// operatorError carries a classified failure with a message meant for the
// operator; errors.Is/As still see the original error.
type operatorError struct {
	err error
}

func (e *operatorError) Error() string { return chart.Describe(e.err) }

func (e *operatorError) Unwrap() error { return e.err }

func newChartCmd(app *appState) *cobra.Command {
	var noCopy bool

	cmd := &cobra.Command{
		Use:   "chart <audio-file|->",
		Short: "Generate a chart from a recorded encounter",
		Long: "Generate a S.O.A.P. chart from a recorded encounter and append it to the chart log.\n" +
			"Pass - to read the recording from stdin.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.loadConfig(cmd)
			if err != nil {
				return err
			}
			return app.runChart(cmd.Context(), cfg, args[0], cmd.InOrStdin(), cmd.OutOrStdout(), !noCopy)
		},
	}

	cmd.Flags().BoolVar(&noCopy, "no-copy", false, "Do not copy the chart to the clipboard")
	return cmd
}

func (a *appState) runChart(ctx context.Context, cfg config.Config, source string, stdin io.Reader, out io.Writer, copyToClipboard bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	tmpl, err := chart.LookupTemplate(cfg.Template)
	if err != nil {
		return err
	}

	artifact, err := readArtifact(source, stdin)
	if err != nil {
		return err
	}
	a.warnIfSilent(artifact)

	deps, err := a.newEncounter(cfg)
	if err != nil {
		return err
	}
	if err := deps.orchestrator.Capture(artifact); err != nil {
		return err
	}

	stopSpinner := startSpinner(a.progressEnabled(), "Generating chart")
	snap, err := deps.orchestrator.Submit(ctx, tmpl)
	stopSpinner()
	if err != nil {
		return &operatorError{err: err}
	}

	fmt.Fprintln(out, snap.Chart)
	if copyToClipboard {
		a.copyChart(ctx, snap.Chart)
	}

	if snap.PersistErr != nil {
		return &operatorError{err: snap.PersistErr}
	}

	a.log().Info("chart saved",
		zap.String("log", deps.store.Path()),
		zap.String("journal", deps.journal.Path()),
		zap.String("date", snap.Record.Date),
		zap.String("time", snap.Record.Time),
		zap.String("template", tmpl.ID()),
	)
	return nil
}

package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/jshclinic/aichart/internal/chart"
	"github.com/jshclinic/aichart/internal/store"
	"github.com/spf13/cobra"
)

var historyHeadingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#D4AF37"))

func newHistoryCmd(app *appState) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show charts recorded on a date, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.loadConfig(cmd)
			if err != nil {
				return err
			}
			if date == "" {
				date = app.clock()().Format(chart.DateLayout)
			}
			return printHistory(cmd.OutOrStdout(), store.New(cfg.LogFile, app.log()), date)
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Date to show as YYYY-MM-DD (default today)")
	return cmd
}

func printHistory(out io.Writer, chartStore *store.Store, date string) error {
	records, err := chartStore.QueryByDate(date)
	if err != nil {
		return &operatorError{err: err}
	}

	if len(records) == 0 {
		fmt.Fprintf(out, "No charts recorded on %s.\n", date)
		return nil
	}

	for i, rec := range records {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintln(out, historyHeadingStyle.Render(fmt.Sprintf("== %s %s ==", rec.Date, rec.Time)))
		fmt.Fprintln(out, rec.Content)
	}
	return nil
}

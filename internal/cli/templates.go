package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/jshclinic/aichart/internal/chart"
	"github.com/spf13/cobra"
)

func newTemplatesCmd() *cobra.Command {
	var show string

	cmd := &cobra.Command{
		Use:   "templates",
		Short: "List chart templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if show != "" {
				tmpl, err := chart.LookupTemplate(show)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "# %s\n%s", tmpl.ID(), tmpl.Text())
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tVERSION\tDESCRIPTION")
			for _, tmpl := range chart.Templates() {
				marker := ""
				if tmpl.Name == chart.DefaultTemplateName {
					marker = " (default)"
				}
				fmt.Fprintf(w, "%s\tv%d\t%s%s\n", tmpl.Name, tmpl.Version, tmpl.Description, marker)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&show, "show", "", "Print the instruction text of the named template")
	return cmd
}

// ABOUTME: templates subcommand for checking stage template files
// ABOUTME: Validates a YAML template file and prints its stages
package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/harperreed/canvass/models"
	"github.com/harperreed/canvass/templates"
	"github.com/spf13/cobra"
)

func newTemplatesCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Work with stage template files",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "check <file>",
		Short: "Validate a template file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := templates.LoadTemplateSet(args[0])
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "STAGE\tNAME\tKEYWORDS\tPHRASES")
			for _, st := range set.Templates() {
				_, _ = fmt.Fprintf(w, "%d\t%s\t%d\t%d\n", st.Stage, st.Name, len(st.Keywords), len(st.Phrases))
			}
			if err := w.Flush(); err != nil {
				return err
			}

			for stage := models.StageCanvassing; stage <= models.MaxStage; stage++ {
				if _, ok := set.Stage(stage); !ok {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: no template for %s\n", models.StageLabel(stage))
				}
			}
			return nil
		},
	})
	return cmd
}

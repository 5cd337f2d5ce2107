// ABOUTME: prospects and cycles listing subcommands
// ABOUTME: Print tabular views of stored prospects and canvassing cycles
package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/harperreed/canvass/db"
	"github.com/harperreed/canvass/models"
	"github.com/spf13/cobra"
)

func newProspectsCommand(rt *runtime) *cobra.Command {
	var query string
	var limit int

	cmd := &cobra.Command{
		Use:   "prospects",
		Short: "List prospects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := rt.open(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			prospects, err := app.Store.FindProspects(cmd.Context(), query, limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "HANDLE\tCATEGORY\tCHANNEL\tCONTACT\tCREATED")
			_, _ = fmt.Fprintln(w, "------\t--------\t-------\t-------\t-------")
			for _, p := range prospects {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					p.Handle, p.Category, p.Channel, p.ContactNumber, p.CreatedAt.Format("2006-01-02"))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "Handle substring")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of prospects")
	return cmd
}

func newCyclesCommand(rt *runtime) *cobra.Command {
	var staffID int64
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "cycles",
		Short: "List canvassing cycles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := db.CycleFilter{StaffID: staffID, Limit: limit}
			if status != "" {
				s, err := models.ParseCycleStatus(status)
				if err != nil {
					return err
				}
				filter.Status = s
			}

			app, err := rt.open(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			cycles, err := app.Store.ListCycles(cmd.Context(), filter)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "PROSPECT\tSTAFF\tSTATUS\tSTAGE\tMESSAGES\tNEXT\tDUE")
			_, _ = fmt.Fprintln(w, "--------\t-----\t------\t-----\t--------\t----\t---")
			for _, c := range cycles {
				due := "-"
				if c.NextFollowupDate != nil {
					due = c.NextFollowupDate.Format("2006-01-02")
				}
				_, _ = fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%d\t%s\t%s\n",
					c.ProspectHandle, c.StaffID, c.Status, c.CurrentStage, c.MessageCount, c.NextAction, due)
			}
			return w.Flush()
		},
	}

	cmd.Flags().Int64Var(&staffID, "staff", 0, "Only this staff member's cycles")
	cmd.Flags().StringVar(&status, "status", "", "Only cycles in this status")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of cycles")
	return cmd
}

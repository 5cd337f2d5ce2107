// ABOUTME: review subcommand launching the supervisor TUI
// ABOUTME: Opens the pending review queue in the alternate screen
package cli

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/harperreed/canvass/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newReviewCommand(rt *runtime) *cobra.Command {
	var supervisorID, staffID int64

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review pending uploads in a terminal UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if supervisorID <= 0 {
				return fmt.Errorf("--supervisor must be a positive user ID")
			}
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				return fmt.Errorf("review needs an interactive terminal")
			}

			app, err := rt.open(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			p := tea.NewProgram(tui.NewModel(app.Supervisor, supervisorID, staffID), tea.WithAltScreen())
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("error running TUI: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().Int64Var(&supervisorID, "supervisor", 0, "Supervisor user ID recorded on each review (required)")
	cmd.Flags().Int64Var(&staffID, "staff", 0, "Only show uploads from this staff member")
	_ = cmd.MarkFlagRequired("supervisor")
	return cmd
}

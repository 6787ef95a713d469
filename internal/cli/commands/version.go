package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display Sluice version and build information.`,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Sluice v%s\n", version)
			_, _ = fmt.Fprintln(out, "Streaming SQL materialization orchestrator")
			if commit != "unknown" || date != "unknown" {
				_, _ = fmt.Fprintf(out, "commit %s, built %s\n", commit, date)
			}
		},
	}
}

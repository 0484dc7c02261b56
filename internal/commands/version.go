package commands

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/erpdesk/erpdesk/internal/output"
	"github.com/erpdesk/erpdesk/internal/version"
)

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := map[string]string{
				"version": version.Version,
				"commit":  version.Commit,
				"date":    version.Date,
				"go":      runtime.Version(),
			}
			// version skips app setup, so write through a default writer
			// honoring only --json.
			w := output.New(output.Options{Format: output.FormatAuto, Writer: cmd.OutOrStdout()})
			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				w = output.New(output.Options{Format: output.FormatJSON, Writer: cmd.OutOrStdout()})
			}
			return w.OK(info, output.WithSummary(version.Full()))
		},
	}
}

package configcmd

import (
	"github.com/spf13/cobra"

	"launcher/internal/cli/output"
)

func newPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Long:  `Display the path to the configuration file being used.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.NewWriter(outputFormat).WithOutput(cmd.OutOrStdout())
			if path := configFile(); path != "" {
				return out.Write(path)
			}
			return out.Write("No config file found, using defaults")
		},
	}
}

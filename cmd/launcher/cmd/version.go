package cmd

import (
	"github.com/spf13/cobra"

	"launcher/internal/cli/output"
	"launcher/internal/version"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of launcher.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := output.NewWriter(env.Output).WithOutput(cmd.OutOrStdout())
		info := version.Get()
		if out.Format() == output.FormatTable {
			out.Printf("launcher %s\n", info.String())
			out.Printf("%s\n", info.Full())
			return nil
		}
		return out.Write(info)
	},
}

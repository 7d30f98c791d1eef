package configcmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	clierrors "launcher/internal/cli/errors"
	"launcher/internal/cli/output"
	"launcher/internal/config"
)

func newInitCmd() *cobra.Command {
	var (
		force  bool
		format string
		dir    string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate default configuration",
		Long: `Generate a default configuration file.

If a configuration file already exists, this will not overwrite it
unless --force is specified.

Examples:
  launcher config init
  launcher config init --daemon
  launcher config init --format json --dir /etc/launcherd --daemon`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.NewWriter(outputFormat).WithOutput(cmd.OutOrStdout())

			path, err := config.GenerateConfig(appName(), format, dir)
			if err != nil && path != "" {
				if !force {
					return clierrors.Wrap(err, clierrors.CodeAlreadyExists, "Configuration already exists").
						WithDetails(fmt.Sprintf("File: %s", path)).
						WithSuggestions("Use --force to overwrite it")
				}
				if err := os.Remove(path); err != nil {
					return fmt.Errorf("failed to remove existing config: %w", err)
				}
				path, err = config.GenerateConfig(appName(), format, dir)
			}
			if err != nil {
				return fmt.Errorf("failed to generate config: %w", err)
			}

			out.Success(fmt.Sprintf("Configuration initialized at: %s", path))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite existing configuration")
	cmd.Flags().StringVar(&format, "format", "yaml", "file format ("+strings.Join(config.SupportedFormats, ", ")+")")
	cmd.Flags().StringVar(&dir, "dir", "", "target directory (default is the user config directory)")
	_ = cmd.MarkFlagDirname("dir")

	return cmd
}

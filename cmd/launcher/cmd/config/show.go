package configcmd

import (
	"github.com/spf13/cobra"

	clierrors "launcher/internal/cli/errors"
	"launcher/internal/cli/output"
	"launcher/internal/config"
)

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Long: `Display the configuration values that are in effect, after defaults,
environment variables and secret references are applied.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return output.NewWriter(outputFormat).WithOutput(cmd.OutOrStdout()).Write(cfg)
		},
	}
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		Long: `Validate the configuration for errors.

Checks for:
  - Valid YAML/JSON/TOML syntax
  - Resolvable secret references
  - A valid reload schedule and server port (--daemon)
  - A registry or catalog file`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := load(); err != nil {
				return err
			}
			output.NewWriter(outputFormat).WithOutput(cmd.OutOrStdout()).Success("Configuration is valid")
			return nil
		},
	}
}

// load loads the configuration of the selected app.
func load() (any, error) {
	path := configFile()
	if configDaemon {
		cfg, err := config.LoadLauncherd(path)
		if err != nil {
			return nil, clierrors.ConfigInvalid(path, err)
		}
		return cfg, nil
	}

	cfg, err := config.LoadLauncher(path)
	if err != nil {
		return nil, clierrors.ConfigInvalid(path, err)
	}
	if cfg.Registry.CatalogFile == "" && cfg.Registry.URL == "" && cfg.Platforms.RegistryID == "" {
		return nil, clierrors.ConfigInvalid(path, errNoRegistry)
	}
	return cfg, nil
}

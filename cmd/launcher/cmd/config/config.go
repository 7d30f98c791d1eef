// Package configcmd implements the config commands of the launcher CLI.
package configcmd

import (
	"errors"

	"github.com/spf13/cobra"

	"launcher/internal/cli/output"
	"launcher/internal/config"
)

var (
	configDaemon bool // --daemon flag for launcherd config

	outputFormat  = output.FormatTable
	loadedCfgFile string
)

// SetOutputFormat sets the output format (called from root command)
func SetOutputFormat(format output.Format) {
	outputFormat = format
}

// SetConfigFile sets the --config flag value (called from root command)
func SetConfigFile(path string) {
	loadedCfgFile = path
}

// NewCommand returns the config command with all subcommands registered
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `View and manage launcher configuration.

Use --daemon to manage launcherd configuration instead of the CLI's.

Subcommands:
  show      Display current configuration
  path      Show config file path
  init      Generate default configuration
  validate  Validate configuration`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newPathCmd())
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newValidateCmd())

	cmd.PersistentFlags().BoolVar(&configDaemon, "daemon", false, "manage launcherd configuration")

	return cmd
}

func appName() string {
	if configDaemon {
		return config.AppLauncherd
	}
	return config.AppLauncher
}

// configFile returns the file in use for the selected app.
func configFile() string {
	if loadedCfgFile != "" && !configDaemon {
		return loadedCfgFile
	}
	return config.ConfigFileUsed(appName())
}

var errNoRegistry = errors.New("platforms.registry_id, registry.url or registry.catalog_file is required")

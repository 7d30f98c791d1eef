package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	catalogcmd "launcher/cmd/launcher/cmd/catalog"
	configcmd "launcher/cmd/launcher/cmd/config"
	clierrors "launcher/internal/cli/errors"
	"launcher/internal/cli/output"
	"launcher/internal/config"
	"launcher/internal/logger"
)

var (
	// cfgFile is the path to the config file (set via --config flag)
	cfgFile string

	// cfg holds the loaded configuration
	cfg *config.LauncherConfig

	// log is the logger instance
	log *logger.Logger

	// auditLog is the audit logger instance
	auditLog *logger.AuditLogger

	// cmdStartTime tracks when command execution started
	cmdStartTime time.Time

	// cmdCtx carries the logger and the command context
	cmdCtx context.Context

	// Global output flags
	outputFormat string
	noColor      bool

	// env is shared with the catalog commands once the config is loaded
	env = &catalogcmd.Env{}
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "launcher",
	Short: "launcher inspects platform catalogs",
	Long: `launcher is a command-line client for platform catalogs.

It fetches the catalog from a registry, or from a local catalog file, and
answers the same stream, extension and resolution queries as launcherd
without a running daemon.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	// Allow flags before or after subcommand
	TraverseChildren: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(cmd); err != nil {
			return err
		}

		var err error
		log, err = logger.New(cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if cfg.Log.AuditPath != "" {
			auditLog, err = logger.NewAuditLogger(cfg.Log.AuditPath, cfg.Log.AuditMaxAgeDays)
			if err != nil {
				log.Warn("failed to initialize audit logger", "error", err)
			}
		}

		cc := logger.NewCommandContext(cmd, args)
		cmdCtx = logger.WithCommandContext(context.Background(), cc)
		cmdCtx = logger.WithLogger(cmdCtx, log)

		cmdStartTime = time.Now()

		log.Debug("command started", cc.LogGroup())

		env.Config = cfg
		env.Log = log
		env.Ctx = cmdCtx
		env.Output = output.ParseFormat(cfg.Output.Format)
		env.Color = cfg.Output.Color && !noColor
		configcmd.SetOutputFormat(env.Output)

		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if log == nil {
			return nil
		}

		duration := time.Since(cmdStartTime)
		cc := logger.CommandContextFrom(cmdCtx)

		log.Debug("command completed",
			"command", cc.Command,
			"duration_ms", duration.Milliseconds(),
			"request_id", cc.RequestID,
		)

		auditLog.LogCommand(cmdCtx, cc.Command, logger.AuditOutcomeSuccess, map[string]any{
			"duration_ms": duration.Milliseconds(),
			"args":        cc.Args,
		})

		closeLoggers()
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if cmdCtx != nil {
			cc := logger.CommandContextFrom(cmdCtx)
			auditLog.LogCommand(cmdCtx, cc.Command, logger.AuditOutcomeFailure, map[string]any{
				"error": err.Error(),
			})
		}
		closeLoggers()

		if !noColor && isTerminal(os.Stderr) {
			fmt.Fprintln(os.Stderr, clierrors.Display(err))
		} else {
			fmt.Fprint(os.Stderr, clierrors.DisplaySimple(err))
		}
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(onInitialize)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/launcher/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format (json, yaml, table, quiet)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable styled output")

	_ = viper.BindPFlag("output.format", rootCmd.PersistentFlags().Lookup("output"))

	rootCmd.AddCommand(catalogcmd.NewCommand(env))
	rootCmd.AddCommand(configcmd.NewCommand())
	rootCmd.AddCommand(versionCmd)
}

// onInitialize is called before any command runs
func onInitialize() {
	if cfgFile == "" {
		path, created, err := config.GenerateConfigIfNotExists(config.AppLauncher, "yaml")
		if err == nil && created {
			fmt.Fprintf(os.Stderr, "Created default config at: %s\n", path)
		}
	}
	configcmd.SetConfigFile(cfgFile)
}

// loadConfig loads the configuration
func loadConfig(cmd *cobra.Command) error {
	var err error
	cfg, err = config.LoadLauncher(cfgFile)
	if err != nil {
		return clierrors.ConfigInvalid(cfgFile, err)
	}

	if cmd.Flags().Changed("output") {
		cfg.Output.Format = viper.GetString("output.format")
	}

	return nil
}

func closeLoggers() {
	if auditLog != nil {
		_ = auditLog.Close()
		auditLog = nil
	}
	if log != nil {
		_ = log.Close()
		log = nil
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

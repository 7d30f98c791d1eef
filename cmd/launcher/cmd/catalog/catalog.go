// Package catalogcmd implements the catalog commands of the launcher CLI.
package catalogcmd

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"launcher/internal/catalog"
	"launcher/internal/cli/output"
	"launcher/internal/config"
	"launcher/internal/domain"
	"launcher/internal/generator"
	"launcher/internal/logger"
	"launcher/internal/registry"
)

// Env is the state the root command prepares before a catalog command runs.
type Env struct {
	Config *config.LauncherConfig
	Log    *logger.Logger
	Ctx    context.Context
	Output output.Format
	Color  bool
}

var (
	streamKey string
	validate  bool
)

// NewCommand returns the catalog command with all subcommands registered.
func NewCommand(env *Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Query platform catalogs",
		Long: `Fetch the platform catalog once and query it.

The catalog is read from the configured registry, or from
registry.catalog_file when set.

Subcommands:
  streams     List the platform streams
  extensions  List the extensions of a stream
  presets     List the presets available in a stream
  resolve     Resolve a project request against a stream
  status      Show the loaded catalog state`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVarP(&streamKey, "stream", "s", "", "stream key or bare stream id (default is the recommended stream)")
	cmd.PersistentFlags().BoolVar(&validate, "validate", false, "run the canary probes before answering")

	cmd.AddCommand(newStreamsCmd(env))
	cmd.AddCommand(newExtensionsCmd(env))
	cmd.AddCommand(newPresetsCmd(env))
	cmd.AddCommand(newResolveCmd(env))
	cmd.AddCommand(newStatusCmd(env))

	return cmd
}

// load fetches, builds and validates the catalog once and returns a service
// over it.
func load(env *Env) (*catalog.Service, error) {
	catalog.SetLogger(env.Log)
	registry.SetLogger(env.Log)

	cfg := env.Config
	fetcher := registry.NewFetcher(cfg.Registry, cfg.Platforms.RegistryID)
	builder := catalog.NewBuilder(fetcher, catalog.BuilderOptions{
		JavaLTSVersions: cfg.Platforms.JavaLTSVersions,
		JavaExclusions:  cfg.Platforms.JavaExclusions(),
	})
	validator := catalog.NewValidator(generator.NoopGenerator{}, catalog.ValidatorOptions{
		FastMode:    !validate,
		Timeout:     cfg.Platforms.ValidationTimeout,
		Concurrency: cfg.Platforms.ValidationConcurrency,
		Canaries:    catalog.CanariesFromConfig(cfg.Platforms.Canaries),
	}, nil)

	store := catalog.NewStore()
	refresher := catalog.NewRefresher(fetcher, builder, validator, store, nil)

	res, err := refresher.Refresh(env.Ctx)
	if err != nil {
		return nil, err
	}
	env.Log.Debug("catalog loaded",
		"cycle_id", res.CycleID,
		"streams", res.Streams,
		"source_timestamp", res.SourceTimestamp,
		"duration", res.Duration,
	)

	return catalog.NewService(store, nil, nil, catalog.ServiceOptions{
		Presets:    domain.DefaultPresets(),
		RegistryID: cfg.Platforms.RegistryID,
	})
}

func writer(env *Env, w io.Writer) *output.Writer {
	return output.NewWriter(env.Output).WithOutput(w).WithColor(env.Color)
}

func newStatusCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the loaded catalog state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := load(env)
			if err != nil {
				return err
			}
			h := svc.Health()
			out := writer(env, cmd.OutOrStdout())
			if out.Format() == output.FormatTable {
				out.Printf("Recommended stream: %s (core %s, %d extensions)\n", h.RecommendedStreamKey, h.RecommendedCoreVersion, h.RecommendedExtensions)
				out.Printf("Source timestamp:   %s\n", h.SourceTimestamp)
				out.Printf("Streams:            %d\n", len(h.Streams))
				return nil
			}
			return out.Write(h)
		},
	}
}

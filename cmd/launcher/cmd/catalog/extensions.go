package catalogcmd

import (
	"github.com/spf13/cobra"

	"launcher/internal/catalog"
)

func newExtensionsCmd(env *Env) *cobra.Command {
	var (
		all    bool
		id     string
		filter string
	)

	cmd := &cobra.Command{
		Use:   "extensions",
		Short: "List the extensions of a stream",
		Long: `List the extensions of a stream in catalog order.

Only platform extensions are listed unless --all is given. --filter takes a
CEL expression over the variable ext, for example:

  launcher catalog extensions --filter 'ext.category == "Web"'
  launcher catalog extensions --filter '"rest" in ext.keywords' --all`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := load(env)
			if err != nil {
				return err
			}

			exts, err := svc.ListExtensions(streamKey, catalog.ExtensionQuery{
				PlatformOnly: !all,
				ID:           id,
				Filter:       filter,
			})
			if err != nil {
				return err
			}
			return writer(env, cmd.OutOrStdout()).Write(extensionList(exts))
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "include extensions outside the platform BOM")
	cmd.Flags().StringVar(&id, "id", "", "only the extension with this exact id")
	cmd.Flags().StringVarP(&filter, "filter", "f", "", "CEL filter over ext")

	return cmd
}

func newPresetsCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the presets available in a stream",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := load(env)
			if err != nil {
				return err
			}

			presets, err := svc.Presets(streamKey)
			if err != nil {
				return err
			}
			return writer(env, cmd.OutOrStdout()).Write(presetList(presets))
		},
	}
}

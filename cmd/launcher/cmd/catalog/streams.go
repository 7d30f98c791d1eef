package catalogcmd

import (
	"github.com/spf13/cobra"
)

func newStreamsCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "streams",
		Short: "List the platform streams",
		Long: `List every stream of the catalog in registry order.

The recommended Java version of a stream is marked with *.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := load(env)
			if err != nil {
				return err
			}

			if streamKey != "" {
				s, err := svc.StreamInfo(streamKey)
				if err != nil {
					return err
				}
				return writer(env, cmd.OutOrStdout()).Write(streamList{s})
			}

			streams, err := svc.ListStreams()
			if err != nil {
				return err
			}
			return writer(env, cmd.OutOrStdout()).Write(streamList(streams))
		},
	}
}

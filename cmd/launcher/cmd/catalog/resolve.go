package catalogcmd

import (
	"github.com/spf13/cobra"

	"launcher/internal/catalog"
)

func newResolveCmd(env *Env) *cobra.Command {
	var req catalog.ProjectRequest

	cmd := &cobra.Command{
		Use:   "resolve EXTENSION...",
		Short: "Resolve a project request against a stream",
		Long: `Resolve extension identifiers to canonical ids and validate the
project settings against a stream.

Extensions may be given as full ids, artifact ids or short names, e.g.

  launcher catalog resolve rest hibernate-orm --java 21
  launcher catalog resolve io.quarkus:quarkus-rest --stream 3.16 --build-tool gradle`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := load(env)
			if err != nil {
				return err
			}

			req.Extensions = args
			resolved, err := svc.ResolveProject(streamKey, req)
			if err != nil {
				return err
			}

			return writer(env, cmd.OutOrStdout()).Write(resolution{
				StreamKey:   resolved.Platform.Stream().Key,
				Extensions:  resolved.Extensions,
				JavaVersion: resolved.JavaVersion,
				BuildTool:   string(resolved.BuildTool),
				GroupID:     resolved.GroupID,
				ArtifactID:  resolved.ArtifactID,
				Version:     resolved.Version,
				NoCode:      resolved.NoCode,
			})
		},
	}

	cmd.Flags().IntVar(&req.JavaVersion, "java", 0, "Java version (default is the stream's recommended version)")
	cmd.Flags().StringVar(&req.BuildTool, "build-tool", "", "build tool (maven, gradle, gradle_kotlin_dsl)")
	cmd.Flags().StringVar(&req.GroupID, "group-id", "", "project group id")
	cmd.Flags().StringVar(&req.ArtifactID, "artifact-id", "", "project artifact id")
	cmd.Flags().StringVar(&req.Version, "version", "", "project version")
	cmd.Flags().BoolVar(&req.NoCode, "no-code", false, "generate without example code")

	return cmd
}

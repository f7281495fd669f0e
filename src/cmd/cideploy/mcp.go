package main

import (
	"github.com/spf13/cobra"

	"ci-deployer/src/mcp"
	"ci-deployer/src/store"
)

var mcpServerCmd = &cobra.Command{
	Use:   "mcp-server",
	Short: "Serve the Jenkins lookups over MCP on stdin/stdout",
	Long: `Run a Model Context Protocol server on stdio exposing the job, build
and download-link lookups. Deployment history is exposed too when
POSTGRES_DSN is set.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{needsJenkins: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		var history store.Store
		if appConfig.PostgresDSN != "" {
			pg, err := store.NewPostgresStore(cmd.Context(), appConfig.PostgresDSN)
			if err != nil {
				return err
			}
			defer pg.Close()
			history = pg
		}

		resolver, _ := newResolver()
		return mcp.NewServer(resolver, history, version).Run()
	},
}

func init() {
	rootCmd.AddCommand(mcpServerCmd)
}

// Command mcpdir serves the MCP server catalog as server-rendered HTML.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	envFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:           "mcpdir",
		Short:         "Server-side rendered MCP server catalog",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before the process environment")

	rootCmd.AddCommand(newServeCmd(opts))
	rootCmd.AddCommand(newRenderCmd(opts))
	return rootCmd
}

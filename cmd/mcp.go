package cmd

import (
	"context"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/joescharf/fmtplay/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets coding agents format, lint and share templates through fmtplay.
Configure in your MCP client with:

  {
    "mcpServers": {
      "fmtplay": { "command": "fmtplay", "args": ["mcp"] }
    }
  }

Available tools: fmtplay_format, fmtplay_lint, fmtplay_permalink,
fmtplay_decode, fmtplay_report`,
	RunE: func(cmd *cobra.Command, args []string) error {
		pg, err := newPlayground()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals()...)
		defer stop()
		return mcp.NewServer(pg, buildVersion).ServeStdio(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

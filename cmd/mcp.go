package cmd

import (
	"github.com/lambentLogic/spectrum/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the Spectrum MCP server",
	Long:  `Launch an MCP server that allows AI agents to score and select model weights via standard tools.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		// Keep stdout quiet during setup since stdio carries the protocol.
		return sharedSetup(rootCtx, cmd, args)
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, cacheManager)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

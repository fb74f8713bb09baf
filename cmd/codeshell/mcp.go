package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/aretw0/codeshell/internal/cli"
	"github.com/aretw0/codeshell/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts codeshell as an MCP Server so that AI agents can browse, edit and run workspace files as tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		opts := optionsFrom(cmd)
		if opts.LogLevel == "" {
			opts.LogLevel = "info"
		}

		sigCtx := cli.NewSignalContext(cmd.Context())
		defer sigCtx.Cancel()

		app, err := cli.Build(sigCtx, opts)
		if err != nil {
			return err
		}
		defer app.Close()

		srv := mcp.NewServer(app.Shell, mcp.WithWorkspace(app.WorkspaceID), mcp.WithLogger(app.Logger))

		switch transport {
		case "stdio":
			// Ensure logs don't corrupt JSON-RPC on Stdout
			log.SetOutput(os.Stderr)
			app.Logger.Info("Starting codeshell MCP Server (Stdio)")
			return srv.ServeStdio()
		case "sse":
			app.Logger.Info("Starting codeshell MCP Server (SSE)", "port", port)
			if err := srv.ServeSSE(sigCtx, port); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("MCP server failed: %w", err)
			}
			app.Logger.Info("MCP Server stopped gracefully")
			return nil
		default:
			return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
}

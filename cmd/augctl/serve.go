package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/augeas"
	"github.com/aretw0/augeas/internal/cli"
	"github.com/aretw0/augeas/internal/presentation/tui"
)

var serveOpts cli.ServeOptions

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the tree over an HTTP JSON API",
	Long: `Starts an HTTP server exposing one session: GET/PUT/DELETE /tree, GET /match,
POST /mv, /load and /save, the transforms and errors lists, and Prometheus
metrics on /metrics.`,
	Args: cli.Args(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if !jsonOutput {
			tui.PrintBanner(os.Stdout, augeas.Version)
		}
		serveOpts.Session = sessionOpts
		return cli.Serve(ctx, serveOpts, logger, os.Stdout)
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts an MCP server exposing the tree as aug_* tools, so AI agents can
inspect and edit configuration files. The stdio transport keeps stdout for
protocol traffic; logs go to stderr.`,
	Args: cli.Args(cobra.NoArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		serveOpts.Session = sessionOpts
		return cli.ServeMCP(ctx, serveOpts, logger)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveOpts.Addr, "addr", ":8080", "Address to listen on")
	serveCmd.Flags().StringVar(&serveOpts.RedisURL, "redis", "", "Redis URL for the distributed session lock")
	serveCmd.Flags().BoolVar(&serveOpts.Validate, "validate", false, "Validate requests against the OpenAPI document")

	mcpCmd.Flags().StringVar(&serveOpts.Transport, "transport", "stdio", "Transport: stdio or sse")
	mcpCmd.Flags().StringVar(&serveOpts.Addr, "addr", ":8081", "Address to listen on for sse")
	mcpCmd.Flags().StringVar(&serveOpts.BaseURL, "base-url", "", "Public base URL for sse (default http://localhost ADDR)")
	mcpCmd.Flags().StringVar(&serveOpts.RedisURL, "redis", "", "Redis URL for the distributed session lock")

	rootCmd.AddCommand(serveCmd, mcpCmd)
}

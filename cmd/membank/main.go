// Package main provides the entry point for the membank MCP server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0-dev"

	flagTransport string
	flagHost      string
	flagPort      int
	flagConfig    string
	flagDebug     bool
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	rootCmd := &cobra.Command{
		Use:     "membank",
		Short:   "An MCP server that stores and retrieves memories in a vector database",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}

	rootCmd.Flags().StringVar(&flagTransport, "transport", "stdio", "Transport protocol (stdio, sse or streamable-http)")
	rootCmd.Flags().StringVar(&flagHost, "host", "0.0.0.0", "Host to bind for network transports")
	rootCmd.Flags().IntVar(&flagPort, "port", 8000, "Port to bind for network transports")
	rootCmd.Flags().StringVar(&flagConfig, "config", "", "Path to a config file")
	rootCmd.Flags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")

	return rootCmd.ExecuteContext(ctx)
}

func serve(ctx context.Context) error {
	return withDeps(func(d *Deps) error {
		addr := fmt.Sprintf("%s:%d", flagHost, flagPort)

		switch flagTransport {
		case "stdio":
			return d.Server.ServeStdio(ctx)
		case "sse":
			return d.Server.ServeSSE(ctx, addr)
		case "streamable-http":
			return d.Server.ServeStreamableHTTP(ctx, addr)
		default:
			return fmt.Errorf("unknown transport %q", flagTransport)
		}
	})
}

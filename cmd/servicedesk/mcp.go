package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rhuss/servicedesk/pkg/capability/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Expose the service desk capabilities as an MCP server on stdio",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := build(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		srv, err := mcpserver.New(a.registry, version)
		if err != nil {
			return err
		}
		return mcpserver.ServeStdio(ctx, srv)
	},
}

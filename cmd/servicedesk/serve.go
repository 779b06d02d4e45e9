package main

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/rhuss/servicedesk/pkg/capability/mcpserver"
	"github.com/rhuss/servicedesk/pkg/session"
	transporthttp "github.com/rhuss/servicedesk/pkg/transport/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the session API over HTTP",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := build(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		sessions := session.NewManager(a.engine, cfg.Sessions.MaxSessions, cfg.Sessions.MaxInputLength)
		defer sessions.Close()

		opts := []transporthttp.ServerOption{
			transporthttp.WithAddr(fmt.Sprintf(":%d", cfg.Server.Port)),
			transporthttp.WithReadTimeout(cfg.Server.ReadTimeout),
			transporthttp.WithWriteTimeout(cfg.Server.WriteTimeout),
			transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
			transporthttp.WithLogger(slog.Default()),
		}
		if m := cfg.Observability.Metrics; m.Enabled {
			opts = append(opts, transporthttp.WithHandler("GET "+m.Path, promhttp.Handler()))
		}
		if s := cfg.MCP.Serve; s.Enabled {
			srv, err := mcpserver.New(a.registry, version)
			if err != nil {
				return err
			}
			opts = append(opts, transporthttp.WithHandler(s.Path, mcpserver.Handler(srv)))
		}

		server := transporthttp.NewServer(sessions, sessions, opts...)

		slog.Info("starting servicedesk",
			"port", cfg.Server.Port,
			"oracle", a.oracle.Name(),
			"capabilities", a.registry.Len(),
			"metrics", cfg.Observability.Metrics.Enabled,
			"mcp", cfg.MCP.Serve.Enabled,
		)
		return server.Run(ctx)
	},
}

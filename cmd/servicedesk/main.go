// Command servicedesk runs the corporate service desk assistant.
//
//	servicedesk chat    interactive console session
//	servicedesk serve   HTTP session API with /metrics and /mcp
//	servicedesk mcp     expose the capabilities as an MCP server on stdio
//
// Configuration is read from config.yaml (or --config) and SERVICEDESK_*
// environment variables; OPENAI_API_KEY, GEMINI_API_KEY and TAVILY_API_KEY
// are honored.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rhuss/servicedesk/pkg/config"
	"github.com/rhuss/servicedesk/pkg/debug"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// errReported marks failures that were already shown to the user.
var errReported = errors.New("reported")

var (
	configPath string
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "servicedesk",
	Short:         "Corporate service desk assistant",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded

		debug.Init(debug.Options{
			Categories: cfg.Logging.Debug,
			Level:      cfg.Logging.Level,
			Format:     cfg.Logging.Format,
			Output:     os.Stderr,
		})
		debug.Log("config", "loaded", "oracle", cfg.Oracle.Provider, "grievances", cfg.Grievances.Backend)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml")
	rootCmd.AddCommand(chatCmd, serveCmd, mcpCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			slog.Error("servicedesk failed", "error", err)
		}
		os.Exit(1)
	}
}

// Package config provides unified configuration for the service desk.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (SERVICEDESK_ prefix)
//  4. Provider key variables (OPENAI_API_KEY, GEMINI_API_KEY, TAVILY_API_KEY)
//  5. File reference resolution (_file suffix fields)
//  6. Validation
package config

import (
	"path/filepath"
	"time"
)

// Config holds all configuration for the service desk.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Oracle        OracleConfig        `yaml:"oracle"`
	Engine        EngineConfig        `yaml:"engine"`
	Search        SearchConfig        `yaml:"search"`
	Records       RecordsConfig       `yaml:"records"`
	Grievances    GrievancesConfig    `yaml:"grievances"`
	Sessions      SessionsConfig      `yaml:"sessions"`
	MCP           MCPConfig           `yaml:"mcp"`
	Observability ObservabilityConfig `yaml:"observability"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`             // default: 8080
	ReadTimeout     time.Duration `yaml:"read_timeout"`     // default: 30s
	WriteTimeout    time.Duration `yaml:"write_timeout"`    // default: 300s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 10s
}

// OracleConfig selects and configures the reasoning backend.
type OracleConfig struct {
	Provider    string        `yaml:"provider"`     // "openai" or "gemini", default: "openai"
	BaseURL     string        `yaml:"base_url"`     // openai only; default: https://api.openai.com
	APIKey      string        `yaml:"api_key"`
	APIKeyFile  string        `yaml:"api_key_file"` // _file variant for api_key
	Model       string        `yaml:"model"`        // default depends on provider
	Temperature float64       `yaml:"temperature"`  // default: 0
	Timeout     time.Duration `yaml:"timeout"`      // default: 120s
	MaxRetries  int           `yaml:"max_retries"`  // default: 3; negative disables retries
}

// EngineConfig holds orchestration loop settings.
type EngineConfig struct {
	MaxIterations     int           `yaml:"max_iterations"`     // default: 10
	ParallelDispatch  bool          `yaml:"parallel_dispatch"`  // default: true
	CapabilityTimeout time.Duration `yaml:"capability_timeout"` // default: 30s
}

// SearchConfig configures search-external-opportunities.
type SearchConfig struct {
	Backend       string        `yaml:"backend"` // "tavily", "searxng" or "none", default: "tavily"
	URL           string        `yaml:"url"`
	APIKey        string        `yaml:"api_key"`
	APIKeyFile    string        `yaml:"api_key_file"`
	MaxResults    int           `yaml:"max_results"`     // default: 5
	RatePerSecond float64       `yaml:"rate_per_second"` // default: 1
	Burst         int           `yaml:"burst"`           // default: 2
	Timeout       time.Duration `yaml:"timeout"`         // default: 15s
}

// RecordsConfig locates the JSON record sets.
type RecordsConfig struct {
	Dir   string `yaml:"dir"`   // default: "data"
	Watch bool   `yaml:"watch"` // default: true
}

// GrievancesConfig selects the grievance log backend.
type GrievancesConfig struct {
	Backend  string         `yaml:"backend"` // "jsonfile", "memory", "sqlite" or "postgres", default: "jsonfile"
	Path     string         `yaml:"path"`    // jsonfile: default <records.dir>/log_grievances.json; sqlite: default <records.dir>/grievances.db
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 4
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: true
}

// SessionsConfig bounds the sessions kept by the HTTP server.
type SessionsConfig struct {
	MaxSessions    int `yaml:"max_sessions"`     // default: 1000; 0 = unlimited
	MaxInputLength int `yaml:"max_input_length"` // default: 32768 bytes
}

// MCPConfig holds Model Context Protocol settings.
type MCPConfig struct {
	// Servers are remote MCP servers whose tools become capabilities.
	Servers []MCPServerConfig `yaml:"servers"`

	// Serve exposes the registry as an MCP server.
	Serve MCPServeConfig `yaml:"serve"`
}

// MCPServerConfig describes a single MCP server connection.
type MCPServerConfig struct {
	Name      string            `yaml:"name"`
	URL       string            `yaml:"url"`
	Transport string            `yaml:"transport"` // "streamable-http" (default) or "sse"
	Headers   map[string]string `yaml:"headers"`
	Auth      MCPAuthConfig     `yaml:"auth"`
}

// MCPAuthConfig configures outgoing MCP authentication.
type MCPAuthConfig struct {
	Type             string   `yaml:"type"` // "" or "oauth_client_credentials"
	TokenURL         string   `yaml:"token_url"`
	ClientID         string   `yaml:"client_id"`
	ClientIDFile     string   `yaml:"client_id_file"`
	ClientSecret     string   `yaml:"client_secret"`
	ClientSecretFile string   `yaml:"client_secret_file"`
	Scopes           []string `yaml:"scopes"`
}

// MCPServeConfig controls the MCP endpoint of the HTTP server.
type MCPServeConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/mcp"
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// LoggingConfig holds log output settings. SERVICEDESK_LOG_LEVEL and
// SERVICEDESK_DEBUG take precedence at runtime.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // default: "INFO"
	Format string `yaml:"format"` // "text" or "json", default: "text"
	Debug  string `yaml:"debug"`  // comma-separated debug categories
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    300 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Oracle: OracleConfig{
			Provider:   "openai",
			Timeout:    120 * time.Second,
			MaxRetries: 3,
		},
		Engine: EngineConfig{
			MaxIterations:     10,
			ParallelDispatch:  true,
			CapabilityTimeout: 30 * time.Second,
		},
		Search: SearchConfig{
			Backend:       "tavily",
			MaxResults:    5,
			RatePerSecond: 1,
			Burst:         2,
			Timeout:       15 * time.Second,
		},
		Records: RecordsConfig{
			Dir:   "data",
			Watch: true,
		},
		Grievances: GrievancesConfig{
			Backend: "jsonfile",
			Postgres: PostgresConfig{
				MaxConns:       4,
				MigrateOnStart: true,
			},
		},
		Sessions: SessionsConfig{
			MaxSessions:    1000,
			MaxInputLength: 32 * 1024,
		},
		MCP: MCPConfig{
			Serve: MCPServeConfig{
				Enabled: true,
				Path:    "/mcp",
			},
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
		},
	}
}

// GrievancePath returns the configured grievance path or the backend's
// default location under the records directory.
func (c *Config) GrievancePath() string {
	if c.Grievances.Path != "" {
		return c.Grievances.Path
	}
	if c.Grievances.Backend == "sqlite" {
		return filepath.Join(c.Records.Dir, "grievances.db")
	}
	return filepath.Join(c.Records.Dir, "log_grievances.json")
}

package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for required fields and valid values.
// All problems are reported together, each with its field path.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 {
		errs = append(errs, fmt.Errorf("server.port must be > 0, got %d", c.Server.Port))
	}

	switch strings.ToLower(c.Oracle.Provider) {
	case "openai":
		// A custom base_url may point at a local server that needs no key.
		if c.Oracle.APIKey == "" && c.Oracle.BaseURL == "" {
			errs = append(errs, fmt.Errorf("oracle.api_key (or OPENAI_API_KEY) is required for the openai provider"))
		}
	case "gemini":
		if c.Oracle.APIKey == "" {
			errs = append(errs, fmt.Errorf("oracle.api_key (or GEMINI_API_KEY) is required for the gemini provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("oracle.provider must be \"openai\" or \"gemini\", got %q", c.Oracle.Provider))
	}
	if c.Oracle.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("oracle.timeout must be > 0, got %s", c.Oracle.Timeout))
	}
	if c.Oracle.Temperature < 0 || c.Oracle.Temperature > 2 {
		errs = append(errs, fmt.Errorf("oracle.temperature must be within [0, 2], got %g", c.Oracle.Temperature))
	}

	if c.Engine.MaxIterations <= 0 {
		errs = append(errs, fmt.Errorf("engine.max_iterations must be > 0, got %d", c.Engine.MaxIterations))
	}
	if c.Engine.CapabilityTimeout <= 0 {
		errs = append(errs, fmt.Errorf("engine.capability_timeout must be > 0, got %s", c.Engine.CapabilityTimeout))
	}

	switch c.Search.Backend {
	case "tavily":
		if c.Search.APIKey == "" {
			errs = append(errs, fmt.Errorf("search.api_key (or TAVILY_API_KEY) is required for the tavily backend"))
		}
	case "searxng":
		if c.Search.URL == "" {
			errs = append(errs, fmt.Errorf("search.url is required for the searxng backend"))
		}
	case "none":
	default:
		errs = append(errs, fmt.Errorf("search.backend must be \"tavily\", \"searxng\" or \"none\", got %q", c.Search.Backend))
	}
	if c.Search.MaxResults <= 0 || c.Search.MaxResults > 20 {
		errs = append(errs, fmt.Errorf("search.max_results must be within [1, 20], got %d", c.Search.MaxResults))
	}

	if c.Records.Dir == "" {
		errs = append(errs, fmt.Errorf("records.dir is required"))
	}

	switch c.Grievances.Backend {
	case "jsonfile", "memory", "sqlite":
	case "postgres":
		if c.Grievances.Postgres.DSN == "" && c.Grievances.Postgres.DSNFile == "" {
			errs = append(errs, fmt.Errorf("grievances.postgres.dsn or grievances.postgres.dsn_file is required when grievances.backend is \"postgres\""))
		}
	default:
		errs = append(errs, fmt.Errorf("grievances.backend must be \"jsonfile\", \"memory\", \"sqlite\" or \"postgres\", got %q", c.Grievances.Backend))
	}

	if c.Sessions.MaxSessions < 0 {
		errs = append(errs, fmt.Errorf("sessions.max_sessions must be >= 0, got %d", c.Sessions.MaxSessions))
	}

	seen := make(map[string]bool)
	for i, s := range c.MCP.Servers {
		if s.Name == "" {
			errs = append(errs, fmt.Errorf("mcp.servers[%d].name is required", i))
		} else if seen[s.Name] {
			errs = append(errs, fmt.Errorf("mcp.servers[%d].name %q is duplicated", i, s.Name))
		}
		seen[s.Name] = true
		if s.URL == "" {
			errs = append(errs, fmt.Errorf("mcp.servers[%d].url is required", i))
		}
		switch s.Transport {
		case "", "streamable-http", "sse":
		default:
			errs = append(errs, fmt.Errorf("mcp.servers[%d].transport must be \"streamable-http\" or \"sse\", got %q", i, s.Transport))
		}
		switch s.Auth.Type {
		case "":
		case "oauth_client_credentials":
			if s.Auth.TokenURL == "" || s.Auth.ClientID == "" || s.Auth.ClientSecret == "" {
				errs = append(errs, fmt.Errorf("mcp.servers[%d].auth requires token_url, client_id and client_secret", i))
			}
		default:
			errs = append(errs, fmt.Errorf("mcp.servers[%d].auth.type must be \"oauth_client_credentials\", got %q", i, s.Auth.Type))
		}
	}
	if c.MCP.Serve.Enabled && !strings.HasPrefix(c.MCP.Serve.Path, "/") {
		errs = append(errs, fmt.Errorf("mcp.serve.path must start with \"/\", got %q", c.MCP.Serve.Path))
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be \"text\" or \"json\", got %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}

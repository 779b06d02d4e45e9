package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, SERVICEDESK_CONFIG env, ./config.yaml, /etc/servicedesk/config.yaml)
//  3. SERVICEDESK_* environment variables
//  4. Provider key variables
//  5. File reference resolution (_file suffix)
//  6. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
		slog.Debug("loaded config file", "path", filePath)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}
	applyProviderKeys(&cfg)

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. SERVICEDESK_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/servicedesk/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}
	if envPath := os.Getenv("SERVICEDESK_CONFIG"); envPath != "" {
		return envPath
	}
	for _, path := range []string{"config.yaml", "/etc/servicedesk/config.yaml"} {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps SERVICEDESK_* variables to config fields.
// Malformed numeric and boolean values are reported together.
func applyEnvOverrides(cfg *Config) error {
	var errs []error

	str := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = n
		}
	}
	flag := func(name string, dst *bool) {
		if v := os.Getenv(name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = b
		}
	}
	dur := func(name string, dst *time.Duration) {
		if v := os.Getenv(name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = d
		}
	}

	num("SERVICEDESK_PORT", &cfg.Server.Port)

	str("SERVICEDESK_ORACLE_PROVIDER", &cfg.Oracle.Provider)
	str("SERVICEDESK_ORACLE_URL", &cfg.Oracle.BaseURL)
	str("SERVICEDESK_ORACLE_API_KEY", &cfg.Oracle.APIKey)
	str("SERVICEDESK_MODEL", &cfg.Oracle.Model)
	dur("SERVICEDESK_ORACLE_TIMEOUT", &cfg.Oracle.Timeout)
	num("SERVICEDESK_ORACLE_MAX_RETRIES", &cfg.Oracle.MaxRetries)

	num("SERVICEDESK_MAX_ITERATIONS", &cfg.Engine.MaxIterations)
	flag("SERVICEDESK_PARALLEL_DISPATCH", &cfg.Engine.ParallelDispatch)
	dur("SERVICEDESK_CAPABILITY_TIMEOUT", &cfg.Engine.CapabilityTimeout)

	str("SERVICEDESK_SEARCH_BACKEND", &cfg.Search.Backend)
	str("SERVICEDESK_SEARCH_URL", &cfg.Search.URL)

	str("SERVICEDESK_RECORDS_DIR", &cfg.Records.Dir)
	flag("SERVICEDESK_RECORDS_WATCH", &cfg.Records.Watch)

	str("SERVICEDESK_GRIEVANCE_BACKEND", &cfg.Grievances.Backend)
	str("SERVICEDESK_GRIEVANCE_PATH", &cfg.Grievances.Path)
	str("SERVICEDESK_POSTGRES_DSN", &cfg.Grievances.Postgres.DSN)

	num("SERVICEDESK_MAX_SESSIONS", &cfg.Sessions.MaxSessions)

	str("SERVICEDESK_LOG_FORMAT", &cfg.Logging.Format)

	// SERVICEDESK_MCP_SERVERS: JSON array of MCP server configs.
	if v := os.Getenv("SERVICEDESK_MCP_SERVERS"); v != "" {
		servers, err := parseMCPServersJSON(v)
		if err != nil {
			errs = append(errs, err)
		} else if len(servers) > 0 {
			cfg.MCP.Servers = servers
		}
	}

	return errors.Join(errs...)
}

// applyProviderKeys fills empty API keys from the variables the provider
// SDKs use by convention.
func applyProviderKeys(cfg *Config) {
	if cfg.Oracle.APIKey == "" && cfg.Oracle.APIKeyFile == "" {
		switch strings.ToLower(cfg.Oracle.Provider) {
		case "openai":
			cfg.Oracle.APIKey = os.Getenv("OPENAI_API_KEY")
		case "gemini":
			cfg.Oracle.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}
	if cfg.Search.APIKey == "" && cfg.Search.APIKeyFile == "" {
		cfg.Search.APIKey = os.Getenv("TAVILY_API_KEY")
	}
}

// parseMCPServersJSON parses a JSON array of MCP server configurations.
func parseMCPServersJSON(jsonStr string) ([]MCPServerConfig, error) {
	var raw []struct {
		Name    string            `json:"name"`
		URL     string            `json:"url"`
		Headers map[string]string `json:"headers"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		return nil, fmt.Errorf("parsing MCP servers JSON: %w", err)
	}
	servers := make([]MCPServerConfig, len(raw))
	for i, r := range raw {
		servers[i] = MCPServerConfig{Name: r.Name, URL: r.URL, Headers: r.Headers}
	}
	return servers, nil
}

type secretRef struct {
	path  string
	file  string
	value *string
}

// resolveFileReferences reads _file fields and populates the corresponding value fields.
// For each field ending in _file, if the value field is empty and the file field is set,
// the file is read, whitespace is trimmed, and the value field is populated.
func resolveFileReferences(cfg *Config) error {
	refs := []secretRef{
		{"oracle.api_key_file", cfg.Oracle.APIKeyFile, &cfg.Oracle.APIKey},
		{"search.api_key_file", cfg.Search.APIKeyFile, &cfg.Search.APIKey},
		{"grievances.postgres.dsn_file", cfg.Grievances.Postgres.DSNFile, &cfg.Grievances.Postgres.DSN},
	}
	for i := range cfg.MCP.Servers {
		auth := &cfg.MCP.Servers[i].Auth
		refs = append(refs,
			secretRef{fmt.Sprintf("mcp.servers[%d].auth.client_id_file", i), auth.ClientIDFile, &auth.ClientID},
			secretRef{fmt.Sprintf("mcp.servers[%d].auth.client_secret_file", i), auth.ClientSecretFile, &auth.ClientSecret},
		)
	}

	for _, ref := range refs {
		if ref.file == "" || *ref.value != "" {
			continue
		}
		val, err := readSecretFile(ref.file)
		if err != nil {
			return fmt.Errorf("%s: %w", ref.path, err)
		}
		*ref.value = val
	}
	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

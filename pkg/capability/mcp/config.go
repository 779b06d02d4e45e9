package mcp

// ServerConfig describes a single MCP server connection.
type ServerConfig struct {
	// Name identifies the server in logs and errors.
	Name string

	// Transport is "streamable-http" (default) or "sse".
	Transport string

	URL string

	// Headers are sent with every request.
	Headers map[string]string

	Auth AuthConfig
}

// AuthConfig configures OAuth 2.0 client credentials. An empty Type
// disables authentication.
type AuthConfig struct {
	Type         string // "" or "oauth_client_credentials"
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

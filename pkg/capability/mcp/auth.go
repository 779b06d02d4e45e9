package mcp

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// httpClient returns the client used by the MCP transport, or nil when
// neither static headers nor authentication are configured.
//
// Static headers are applied first; the OAuth transport then sets
// Authorization, so a configured token wins over a static header.
func httpClient(cfg ServerConfig) *http.Client {
	var base http.RoundTripper = http.DefaultTransport

	if cfg.Auth.Type == "oauth_client_credentials" {
		cc := &clientcredentials.Config{
			ClientID:     cfg.Auth.ClientID,
			ClientSecret: cfg.Auth.ClientSecret,
			TokenURL:     cfg.Auth.TokenURL,
			Scopes:       cfg.Auth.Scopes,
		}
		// The token source outlives the connect call, so it gets its own
		// context. Tokens are cached until shortly before expiry.
		base = &oauth2.Transport{
			Source: cc.TokenSource(context.Background()),
			Base:   base,
		}
	} else if len(cfg.Headers) == 0 {
		return nil
	}

	if len(cfg.Headers) > 0 {
		base = &headerTransport{base: base, headers: cfg.Headers}
	}
	return &http.Client{Transport: base}
}

// headerTransport adds static headers to every request.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.base.RoundTrip(req)
}

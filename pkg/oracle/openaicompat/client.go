package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rhuss/servicedesk/pkg/api"
	"github.com/rhuss/servicedesk/pkg/capability"
	"github.com/rhuss/servicedesk/pkg/debug"
	"github.com/rhuss/servicedesk/pkg/oracle"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gpt-4o-mini"

// DefaultBaseURL is the public OpenAI endpoint.
const DefaultBaseURL = "https://api.openai.com"

// Config configures the client.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	// Temperature defaults to 0 for reproducible answers.
	Temperature *float64
	// Timeout bounds a single HTTP call (default 120s).
	Timeout time.Duration
}

// Client is an oracle talking to a Chat Completions backend.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	model       string
	temperature float64
}

var _ oracle.Oracle = (*Client)(nil)

// NewClient creates a Client. The base URL must not include /v1.
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	var temp float64
	if cfg.Temperature != nil {
		temp = *cfg.Temperature
	}

	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     baseURL,
		apiKey:      cfg.APIKey,
		model:       model,
		temperature: temp,
	}
}

// Name returns "openai".
func (c *Client) Name() string { return "openai" }

// Model returns the configured model.
func (c *Client) Model() string { return c.model }

// Infer sends the transcript to /v1/chat/completions.
func (c *Client) Infer(ctx context.Context, turns []api.Turn, decls []capability.Declaration) (oracle.Response, error) {
	temp := c.temperature
	chatReq, err := TranslateToChat(c.model, &temp, turns, decls)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}
	if debug.TraceIsEnabled("oracle") {
		debug.Raw("oracle", "-> "+string(body))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	debug.Log("oracle", "request", "model", c.model, "turns", len(turns), "tools", len(decls))

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("backend connection error: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, MapHTTPError(httpResp)
	}

	var chatResp ChatCompletionResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&chatResp); err != nil {
		return nil, &ProtocolError{Msg: err.Error()}
	}
	if chatResp.Usage != nil {
		debug.Log("oracle", "response",
			"model", chatResp.Model,
			"prompt_tokens", chatResp.Usage.PromptTokens,
			"completion_tokens", chatResp.Usage.CompletionTokens,
		)
	}

	return TranslateResponse(&chatResp)
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

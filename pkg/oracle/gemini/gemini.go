// Package gemini implements an oracle backed by Google Gemini through the
// google.golang.org/genai SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/rhuss/servicedesk/pkg/api"
	"github.com/rhuss/servicedesk/pkg/capability"
	"github.com/rhuss/servicedesk/pkg/debug"
	"github.com/rhuss/servicedesk/pkg/oracle"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gemini-2.5-flash"

// Config configures the adapter.
type Config struct {
	APIKey      string
	Model       string
	Temperature float32
}

// generator is the subset of *genai.Models the adapter uses.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Oracle calls Gemini's GenerateContent.
type Oracle struct {
	models      generator
	model       string
	temperature float32
}

var _ oracle.Oracle = (*Oracle)(nil)

// New creates a Gemini oracle.
func New(ctx context.Context, cfg Config) (*Oracle, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return newWithGenerator(client.Models, cfg), nil
}

func newWithGenerator(g generator, cfg Config) *Oracle {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Oracle{models: g, model: model, temperature: cfg.Temperature}
}

// Name returns "gemini".
func (o *Oracle) Name() string { return "gemini" }

// Infer sends the transcript to Gemini.
func (o *Oracle) Infer(ctx context.Context, turns []api.Turn, decls []capability.Declaration) (oracle.Response, error) {
	contents, system := toContents(turns)

	temp := o.temperature
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       &temp,
	}
	if tools := toTools(decls); tools != nil {
		cfg.Tools = tools
	}

	debug.Log("oracle", "request", "model", o.model, "turns", len(turns), "tools", len(decls))

	resp, err := o.models.GenerateContent(ctx, o.model, contents, cfg)
	if err != nil {
		return nil, mapError(err)
	}
	return fromResponse(resp)
}

// statusError wraps a genai API error with retry classification.
type statusError struct {
	code int
	err  error
}

func (e *statusError) Error() string { return e.err.Error() }
func (e *statusError) Unwrap() error { return e.err }

func (e *statusError) Retryable() bool {
	return e.code == http.StatusTooManyRequests || e.code >= http.StatusInternalServerError
}

func mapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &statusError{code: apiErr.Code, err: err}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return &statusError{code: apiErrPtr.Code, err: err}
	}
	return fmt.Errorf("gemini: %w", err)
}

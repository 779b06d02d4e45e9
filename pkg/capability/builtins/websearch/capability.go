// Package websearch provides the search-external-opportunities capability:
// web search through a pluggable backend (Tavily or SearXNG).
package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/rhuss/servicedesk/pkg/capability"
)

// Name is the capability name the oracle sees.
const Name = "search-external-opportunities"

const (
	defaultMaxResults = 5
	maxMaxResults     = 20
)

// Config selects and configures the search backend.
type Config struct {
	// Backend is "tavily" (default) or "searxng".
	Backend string
	// URL overrides the Tavily endpoint or is the SearXNG base URL.
	URL string
	// APIKey is required for Tavily.
	APIKey string
	// MaxResults is used when the oracle omits max-results (default 5).
	MaxResults int
	// RatePerSecond limits outgoing searches; zero disables limiting.
	RatePerSecond float64
	// Burst is the limiter burst size (default 1).
	Burst int
	// Timeout bounds a single search request (default 15s).
	Timeout time.Duration
}

// Capability searches the web for opportunities outside the company.
type Capability struct {
	adapter    SearchAdapter
	backend    string
	maxResults int
	limiter    *rate.Limiter

	queries *prometheus.CounterVec
	results *prometheus.HistogramVec
}

var (
	_ capability.Capability        = (*Capability)(nil)
	_ capability.CollectorProvider = (*Capability)(nil)
)

// New builds the capability from cfg.
func New(cfg Config) (*Capability, error) {
	backend := strings.ToLower(cfg.Backend)
	if backend == "" {
		backend = "tavily"
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	var adapter SearchAdapter
	switch backend {
	case "tavily":
		if cfg.APIKey == "" {
			return nil, errors.New("web search: api key is required for the tavily backend")
		}
		adapter = NewTavily(cfg.URL, cfg.APIKey, client)
	case "searxng":
		if cfg.URL == "" {
			return nil, errors.New("web search: url is required for the searxng backend")
		}
		adapter = NewSearXNG(cfg.URL, client)
	default:
		return nil, fmt.Errorf("web search: unknown backend %q", cfg.Backend)
	}

	c := NewWithAdapter(adapter, backend, cfg.MaxResults)
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	return c, nil
}

// NewWithAdapter builds the capability around an existing adapter.
func NewWithAdapter(adapter SearchAdapter, backend string, maxResults int) *Capability {
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}
	return &Capability{
		adapter:    adapter,
		backend:    backend,
		maxResults: min(maxResults, maxMaxResults),
		queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "servicedesk_websearch_queries_total",
				Help: "Total web search queries",
			},
			[]string{"backend", "status"},
		),
		results: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "servicedesk_websearch_results_returned",
				Help:    "Number of web search results returned",
				Buckets: []float64{0, 1, 2, 3, 5, 10, 20},
			},
			[]string{"backend"},
		),
	}
}

// Declaration describes the capability to the oracle.
func (c *Capability) Declaration() capability.Declaration {
	return capability.Declaration{
		Name: Name,
		Description: "Search the web for job vacancies or opportunities outside the company. " +
			"Use for current industry trends in the IT or CSE sector.",
		Parameters: capability.ObjectSchema([]string{"query"}, map[string]*jsonschema.Schema{
			"query": capability.StringProperty("Search query"),
			"max-results": {
				Type:        "integer",
				Description: "Maximum number of results to return",
				Default:     json.RawMessage(fmt.Sprint(c.maxResults)),
			},
		}),
	}
}

// Invoke runs the search and formats the results as text.
func (c *Capability) Invoke(ctx context.Context, args map[string]any) (string, error) {
	query := strings.TrimSpace(capability.StringArg(args, "query"))
	if query == "" {
		c.queries.WithLabelValues(c.backend, "error").Inc()
		return "", errors.New("query must not be empty")
	}

	n := capability.IntArg(args, "max-results", c.maxResults)
	if n <= 0 {
		n = c.maxResults
	}
	n = min(n, maxMaxResults)

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			c.queries.WithLabelValues(c.backend, "rate_limited").Inc()
			return "", fmt.Errorf("waiting for search rate limit: %w", err)
		}
	}

	slog.Info("searching web", "query", query, "max_results", n, "backend", c.backend)

	res, err := c.adapter.Search(ctx, query, n)
	if err != nil {
		c.queries.WithLabelValues(c.backend, "error").Inc()
		return "", fmt.Errorf("search failed: %w", err)
	}

	c.queries.WithLabelValues(c.backend, "success").Inc()
	c.results.WithLabelValues(c.backend).Observe(float64(len(res.Hits)))

	return formatResults(query, res), nil
}

// Collectors returns the capability's Prometheus metrics.
func (c *Capability) Collectors() []prometheus.Collector {
	return []prometheus.Collector{c.queries, c.results}
}

// formatResults builds a human-readable text block from search results.
func formatResults(query string, res *Results) string {
	if res.Answer == "" && len(res.Hits) == 0 {
		return fmt.Sprintf("No results found for %q.", query)
	}

	var b strings.Builder
	if res.Answer != "" {
		fmt.Fprintf(&b, "Answer: %s\n\n", res.Answer)
	}
	fmt.Fprintf(&b, "Search results for %q:\n", query)

	for i, h := range res.Hits {
		fmt.Fprintf(&b, "\n%d. %s\n   URL: %s\n   %s\n", i+1, h.Title, h.URL, h.Snippet)
	}

	return b.String()
}

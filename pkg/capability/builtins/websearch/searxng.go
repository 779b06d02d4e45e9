package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

// htmlTagRegex matches HTML tags for stripping from snippets.
var htmlTagRegex = regexp.MustCompile(`<[^>]*>`)

// SearXNGAdapter implements SearchAdapter using a SearXNG instance.
type SearXNGAdapter struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewSearXNG creates a SearXNG adapter with the given base URL.
func NewSearXNG(baseURL string, client *http.Client) *SearXNGAdapter {
	if client == nil {
		client = http.DefaultClient
	}
	return &SearXNGAdapter{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: client,
	}
}

type searxngResponse struct {
	Answers []string        `json:"answers"`
	Results []searxngResult `json:"results"`
}

type searxngResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Search queries the SearXNG instance.
func (s *SearXNGAdapter) Search(ctx context.Context, query string, maxResults int) (*Results, error) {
	searchURL := fmt.Sprintf("%s/search?q=%s&format=json&categories=general",
		s.BaseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search backend returned status %d", resp.StatusCode)
	}

	var sr searxngResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	out := &Results{Hits: make([]Hit, 0, min(len(sr.Results), maxResults))}
	if len(sr.Answers) > 0 {
		out.Answer = stripHTML(sr.Answers[0])
	}
	for i, r := range sr.Results {
		if i >= maxResults {
			break
		}
		out.Hits = append(out.Hits, Hit{
			Title:   stripHTML(r.Title),
			URL:     r.URL,
			Snippet: stripHTML(r.Content),
		})
	}
	return out, nil
}

// stripHTML removes HTML tags from text.
func stripHTML(s string) string {
	return strings.TrimSpace(htmlTagRegex.ReplaceAllString(s, ""))
}

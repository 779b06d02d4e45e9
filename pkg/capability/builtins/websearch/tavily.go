package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultTavilyURL is the Tavily API endpoint base.
const DefaultTavilyURL = "https://api.tavily.com"

// TavilyAdapter implements SearchAdapter using the Tavily search API.
type TavilyAdapter struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewTavily creates a Tavily adapter. An empty baseURL selects the public
// endpoint.
func NewTavily(baseURL, apiKey string, client *http.Client) *TavilyAdapter {
	if baseURL == "" {
		baseURL = DefaultTavilyURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &TavilyAdapter{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		HTTPClient: client,
	}
}

type tavilyRequest struct {
	Query         string `json:"query"`
	MaxResults    int    `json:"max_results"`
	IncludeAnswer bool   `json:"include_answer"`
}

type tavilyResponse struct {
	Answer  string         `json:"answer"`
	Results []tavilyResult `json:"results"`
}

type tavilyResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Search posts the query to Tavily with answer synthesis enabled.
func (t *TavilyAdapter) Search(ctx context.Context, query string, maxResults int) (*Results, error) {
	body, err := json.Marshal(tavilyRequest{Query: query, MaxResults: maxResults, IncludeAnswer: true})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.BaseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.APIKey)

	resp, err := t.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("search backend returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var tr tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	out := &Results{Answer: strings.TrimSpace(tr.Answer), Hits: make([]Hit, 0, min(len(tr.Results), maxResults))}
	for i, r := range tr.Results {
		if i >= maxResults {
			break
		}
		out.Hits = append(out.Hits, Hit{Title: r.Title, URL: r.URL, Snippet: strings.TrimSpace(r.Content)})
	}
	return out, nil
}

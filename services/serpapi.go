package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	serpapi "github.com/serpapi/google-search-results-golang"
)

// SearchRequest is one web search.
type SearchRequest struct {
	Query      string
	Language   string
	Region     string
	NumResults int
}

// SearchItem is a ranked snippet. Either field may be empty.
type SearchItem struct {
	Title   string `json:"title,omitempty"`
	Snippet string `json:"snippet,omitempty"`
	Link    string `json:"link,omitempty"`
}

// SearchResponse holds the optional answer box and the organic results in
// provider rank order.
type SearchResponse struct {
	AnswerBox      *SearchItem  `json:"answer_box,omitempty"`
	OrganicResults []SearchItem `json:"organic_results"`
}

// SearchProvider executes web searches.
type SearchProvider interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
}

type serpAPIProvider struct {
	httpClient *http.Client
	apiKey     string
	query      func(params map[string]string) (map[string]interface{}, error)
}

// NewSerpAPIProvider queries the SerpAPI Google engine. A nil httpClient
// keeps the client library's default.
func NewSerpAPIProvider(httpClient *http.Client, apiKey string) SearchProvider {
	p := &serpAPIProvider{httpClient: httpClient, apiKey: apiKey}
	p.query = p.googleSearch
	return p
}

func (s *serpAPIProvider) googleSearch(params map[string]string) (map[string]interface{}, error) {
	search := serpapi.NewGoogleSearch(params, s.apiKey)
	if s.httpClient != nil {
		search.HttpSearch = s.httpClient
	}
	return search.GetJSON()
}

func (s *serpAPIProvider) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	// the client library takes no context
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	params := map[string]string{
		"q":   req.Query,
		"hl":  req.Language,
		"gl":  req.Region,
		"num": strconv.Itoa(req.NumResults),
	}
	result, err := s.query(params)
	if err != nil {
		return nil, fmt.Errorf("serpapi search failed: %w", err)
	}
	if msg, ok := result["error"].(string); ok && msg != "" {
		return nil, fmt.Errorf("serpapi error: %s", msg)
	}
	return decodeSerpAPIResult(result)
}

// decodeSerpAPIResult maps the generic result map onto SearchResponse. Only
// answer_box and organic_results are kept.
func decodeSerpAPIResult(result map[string]interface{}) (*SearchResponse, error) {
	data, err := json.Marshal(map[string]interface{}{
		"answer_box":      result["answer_box"],
		"organic_results": result["organic_results"],
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode serpapi result: %w", err)
	}
	var parsed SearchResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode serpapi result: %w", err)
	}
	return &parsed, nil
}

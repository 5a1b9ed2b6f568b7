package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cs-instructor-backend/internal/logger"
)

const tavilyEndpoint = "https://api.tavily.com/search"

// WebSearch queries the Tavily search API and formats the top results for the
// agent. When the API is unreachable or unconfigured it degrades to the
// canned fallback instead of surfacing an error.
type WebSearch struct {
	apiKey   string
	http     *http.Client
	fallback *FallbackSearch
}

func NewWebSearch(apiKey string) *WebSearch {
	return &WebSearch{
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 15 * time.Second},
		fallback: NewFallbackSearch(),
	}
}

func (t *WebSearch) Name() string { return "search_information" }

func (t *WebSearch) Description() string {
	return "Search the web for current technical information, documentation, or tutorials. Input: a search query."
}

func (t *WebSearch) Run(ctx context.Context, query string) string {
	if t.apiKey == "" {
		return t.fallback.Run(ctx, query)
	}

	result, err := t.search(ctx, query)
	if err != nil {
		logger.Warn("web search failed, using fallback", "error", err.Error())
		return t.fallback.Run(ctx, query)
	}
	return result
}

type tavilyResponse struct {
	Answer  string `json:"answer"`
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

func (t *WebSearch) search(ctx context.Context, query string) (string, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"api_key":        t.apiKey,
		"query":          query,
		"search_depth":   "basic",
		"include_answer": true,
		"max_results":    5,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tavilyEndpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search API returned status %d", resp.StatusCode)
	}

	var body tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}

	var sb strings.Builder
	if body.Answer != "" {
		fmt.Fprintf(&sb, "Answer: %s\n\n", body.Answer)
	}
	for i, result := range body.Results {
		if i == 3 {
			break
		}
		fmt.Fprintf(&sb, "%d. %s\n%s\nSource: %s\n\n", i+1, result.Title, result.Content, result.URL)
	}
	if sb.Len() == 0 {
		return "No search results found for: " + query, nil
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// FallbackSearch serves canned summaries for common topics so the search tool
// still answers something useful offline.
type FallbackSearch struct{}

func NewFallbackSearch() *FallbackSearch { return &FallbackSearch{} }

func (t *FallbackSearch) Name() string { return "search_information" }

func (t *FallbackSearch) Description() string {
	return "Look up summaries of common programming topics. Input: a search query."
}

func (t *FallbackSearch) Run(_ context.Context, query string) string {
	lower := strings.ToLower(query)

	switch {
	case containsAny(lower, "algorithm", "sort", "complexity", "big o"):
		return `Algorithm complexity describes how running time grows with input size.
O(1) constant, O(log n) logarithmic (binary search), O(n) linear, O(n log n) (good sorts), O(n^2) quadratic (nested loops).
Pick data structures to match the dominant operation: maps for lookup, heaps for priority, slices for iteration.`

	case hasWord(lower, "go") || containsAny(lower, "golang", "goroutine"):
		return `Go is a statically typed, compiled language designed for simplicity and concurrency.
Key features: goroutines and channels for concurrency, fast compilation, a rich standard library, and garbage collection.
Common uses: network services, CLI tools, and cloud infrastructure.`

	case containsAny(lower, "javascript", "node", "typescript"):
		return `JavaScript is the language of the web, running in browsers and on servers via Node.js.
Key features: first-class functions, prototype-based objects, async/await, and a vast package ecosystem.
TypeScript adds static typing on top of JavaScript.`

	default:
		return fmt.Sprintf("No offline summary available for %q. Try asking about Go, JavaScript, or algorithms, or configure a search API key for live results.", query)
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func hasWord(s, word string) bool {
	for _, field := range strings.Fields(s) {
		if strings.Trim(field, ".,!?") == word {
			return true
		}
	}
	return false
}

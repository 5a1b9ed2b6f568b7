package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cs-instructor-backend/internal/config"
	"cs-instructor-backend/internal/logger"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	genai "github.com/google/generative-ai-go/genai"
)

// LLMProvider generates completions for agent prompts.
type LLMProvider interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Available(ctx context.Context) bool
	Name() string
}

// GeminiProvider wraps the Google Generative AI API with a circuit breaker
// and a client-side rate limiter.
type GeminiProvider struct {
	client      *genai.Client
	model       string
	breaker     *gobreaker.CircuitBreaker
	rateLimiter *rate.Limiter
}

func NewGeminiProvider(ctx context.Context, cfg *config.Config) (*GeminiProvider, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, err
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "GeminiAPI",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	})

	// Free-tier RPM with some buffer.
	rateLimiter := rate.NewLimiter(rate.Limit(9.0/60.0), 2)

	return &GeminiProvider{
		client:      client,
		model:       cfg.LLMModel,
		breaker:     breaker,
		rateLimiter: rateLimiter,
	}, nil
}

func (p *GeminiProvider) Generate(ctx context.Context, prompt string) (string, error) {
	if err := p.rateLimiter.Wait(ctx); err != nil {
		return "", err
	}

	result, err := p.breaker.Execute(func() (interface{}, error) {
		model := p.client.GenerativeModel(p.model)
		model.SetTemperature(0.7)
		model.SetMaxOutputTokens(2048)

		resp, err := model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return nil, err
		}
		return extractText(resp), nil
	})

	if err != nil {
		if err == gobreaker.ErrOpenState {
			return "I'm experiencing high demand right now. Please try again in a moment.", nil
		}
		return "", err
	}

	return result.(string), nil
}

func (p *GeminiProvider) Available(_ context.Context) bool { return p.client != nil }
func (p *GeminiProvider) Name() string                     { return "gemini" }

func (p *GeminiProvider) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	var sb strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
	}
	return sb.String()
}

// OllamaProvider calls a local Ollama server.
type OllamaProvider struct {
	baseURL string
	model   string
	http    *http.Client
}

func NewOllamaProvider(cfg *config.Config) *OllamaProvider {
	model := cfg.LLMModel
	if strings.HasPrefix(model, "gemini") {
		model = "llama2"
	}
	return &OllamaProvider{
		baseURL: cfg.OllamaBaseURL,
		model:   model,
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *OllamaProvider) Generate(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"model":  p.model,
		"prompt": prompt,
		"stream": false,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return "Ollama server is not running. Please start Ollama and try again.", nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var body struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if body.Response == "" {
		return "No response generated", nil
	}
	return body.Response, nil
}

func (p *OllamaProvider) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (p *OllamaProvider) Name() string { return "ollama" }

// RuleBasedProvider is the always-available fallback. It answers common CS
// topics with canned explanations so the service degrades instead of failing
// when no model backend is reachable.
type RuleBasedProvider struct{}

func NewRuleBasedProvider() *RuleBasedProvider { return &RuleBasedProvider{} }

func (p *RuleBasedProvider) Generate(_ context.Context, prompt string) (string, error) {
	lower := strings.ToLower(prompt)

	switch {
	case containsAny(lower, "hello", "hi ", "help"):
		return "Final Answer: Hello! I'm your CS lab instructor. I can help you with programming questions, explain code, run code examples, and search for technical information. What would you like to learn today?", nil

	case containsAny(lower, "sort", "search", "algorithm", "complexity", "big o"):
		return `Final Answer: Common algorithms:

**Sorting**:
- Bubble Sort: O(n^2) - Simple but inefficient
- Quick Sort: O(n log n) average - Divide and conquer
- Merge Sort: O(n log n) - Stable, predictable

**Searching**:
- Linear Search: O(n) - Check each element
- Binary Search: O(log n) - Requires sorted input

Would you like me to show you implementation examples?`, nil

	case containsAny(lower, "variable", "function", "struct", "slice", "goroutine"):
		return `Final Answer: Here are some Go basics:

**Variables**: declared with var or :=
**Functions**: reusable blocks of code, may return multiple values
**Slices and maps**: the workhorse collection types
**Goroutines and channels**: lightweight concurrency

Would you like me to explain any specific concept in more detail?`, nil

	default:
		return `Final Answer: As your CS lab instructor, I can help with:
- Programming concepts and syntax
- Code explanation and debugging
- Algorithm explanations
- Running code examples
- Searching for technical resources

Please ask a more specific question, for example "Explain functions" or "Show me a sorting algorithm".`, nil
	}
}

func (p *RuleBasedProvider) Available(_ context.Context) bool { return true }
func (p *RuleBasedProvider) Name() string                     { return "fallback" }

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// SelectLLMProvider is a pure function over configuration and availability
// probes: try the preferred provider, then degrade to the rule-based one.
func SelectLLMProvider(ctx context.Context, cfg *config.Config) LLMProvider {
	switch cfg.LLMProvider {
	case "ollama":
		ollama := NewOllamaProvider(cfg)
		if ollama.Available(ctx) {
			return ollama
		}
		logger.Warn("ollama unavailable, falling back", "base_url", cfg.OllamaBaseURL)
	case "gemini", "":
		if gemini, err := NewGeminiProvider(ctx, cfg); err == nil {
			return gemini
		} else {
			logger.Warn("gemini unavailable, falling back", "error", err.Error())
		}
	}
	return NewRuleBasedProvider()
}

package ai

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"
	"net/http"
	"sync"
	"time"

	"cs-instructor-backend/internal/config"
	"cs-instructor-backend/internal/logger"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Embedder produces a fixed-dimension vector for a text. Implementations are
// selected from configuration plus availability probes.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Available(ctx context.Context) bool
	Name() string
}

const (
	embedMaxRetries   = 3
	embedInitialDelay = 500 * time.Millisecond
)

// embedWithRetry retries a transient embedding failure with exponential backoff.
func embedWithRetry(ctx context.Context, name string, fn func(context.Context) ([]float32, error)) ([]float32, error) {
	delay := embedInitialDelay
	var lastErr error
	for attempt := 0; attempt < embedMaxRetries; attempt++ {
		vec, err := fn(ctx)
		if err == nil {
			return vec, nil
		}
		lastErr = err
		logger.Warn("embedding attempt failed", "provider", name, "attempt", attempt+1, "error", err.Error())

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
			delay *= 2
		}
	}
	return nil, fmt.Errorf("%s embeddings failed after %d attempts: %w", name, embedMaxRetries, lastErr)
}

// GeminiEmbedder embeds text via the Google Generative AI API.
type GeminiEmbedder struct {
	client *genai.Client
	model  string
}

func NewGeminiEmbedder(ctx context.Context, cfg *config.Config) (*GeminiEmbedder, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY for embeddings")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, err
	}
	return &GeminiEmbedder{client: client, model: cfg.GoogleEmbeddingsModel}, nil
}

func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return embedWithRetry(ctx, e.Name(), func(ctx context.Context) ([]float32, error) {
		model := e.client.EmbeddingModel(e.model)
		resp, err := model.EmbedContent(ctx, genai.Text(text))
		if err != nil {
			return nil, err
		}
		if resp.Embedding == nil {
			return nil, fmt.Errorf("no embedding returned")
		}
		return resp.Embedding.Values, nil
	})
}

func (e *GeminiEmbedder) Available(ctx context.Context) bool { return e.client != nil }
func (e *GeminiEmbedder) Name() string                       { return "gemini" }

func (e *GeminiEmbedder) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// OllamaEmbedder embeds text via a local Ollama server.
type OllamaEmbedder struct {
	baseURL string
	model   string
	http    *http.Client
}

func NewOllamaEmbedder(cfg *config.Config) *OllamaEmbedder {
	return &OllamaEmbedder{
		baseURL: cfg.OllamaBaseURL,
		model:   cfg.OllamaEmbeddingsModel,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return embedWithRetry(ctx, e.Name(), func(ctx context.Context) ([]float32, error) {
		payload, err := json.Marshal(map[string]string{
			"model":  e.model,
			"prompt": text,
		})
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embeddings", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := e.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("ollama embeddings returned status %d", resp.StatusCode)
		}

		var body struct {
			Embedding []float64 `json:"embedding"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return nil, err
		}
		if len(body.Embedding) == 0 {
			return nil, fmt.Errorf("empty embedding from ollama")
		}

		vec := make([]float32, len(body.Embedding))
		for i, v := range body.Embedding {
			vec[i] = float32(v)
		}
		return vec, nil
	})
}

func (e *OllamaEmbedder) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := e.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (e *OllamaEmbedder) Name() string { return "ollama" }

// HashEmbedder is a deterministic local fallback that needs no provider.
// Vectors carry only crude lexical signal; retrieval quality is poor but the
// system keeps working when no embedding backend is reachable.
type HashEmbedder struct {
	dimensions int
}

func NewHashEmbedder(dimensions int) *HashEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &HashEmbedder{dimensions: dimensions}
}

func (e *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, e.dimensions)
	var norm float64
	for i := range vec {
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], seed+uint64(i))
		h.Reset()
		h.Write(buf[:])
		v := float32(h.Sum64()%1000) / 1000.0
		vec[i] = v
		norm += float64(v) * float64(v)
	}

	// Normalize so cosine similarity behaves.
	if norm > 0 {
		inv := float32(1.0 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec, nil
}

func (e *HashEmbedder) Available(_ context.Context) bool { return true }
func (e *HashEmbedder) Name() string                     { return "hash" }

// EmbeddingRecorder receives one event per embedding provider call. It is
// satisfied by telemetry.Metrics; a nil recorder disables recording.
type EmbeddingRecorder interface {
	RecordEmbeddingCall(provider string, success bool)
}

// FallbackEmbedder wraps a primary embedder with the hash fallback so that an
// unreachable provider degrades instead of failing ingestion or search.
//
// All vectors handed to one index must share a dimension, so the first
// successful embed pins it for the lifetime of the embedder. Fallback vectors
// are generated at the pinned dimension, and a primary that starts returning
// a different size fails the call instead of poisoning the index.
type FallbackEmbedder struct {
	primary  Embedder
	recorder EmbeddingRecorder

	mu         sync.Mutex
	dimensions int // pinned by the first successful embed
	fallback   *HashEmbedder
}

func NewFallbackEmbedder(primary Embedder, dimensions int, recorder EmbeddingRecorder) *FallbackEmbedder {
	return &FallbackEmbedder{
		primary:  primary,
		recorder: recorder,
		fallback: NewHashEmbedder(dimensions),
	}
}

func (e *FallbackEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.primary != nil {
		vec, err := e.primary.Embed(ctx, text)
		e.record(e.primary.Name(), err == nil)
		if err == nil {
			if pinErr := e.pin(len(vec)); pinErr != nil {
				return nil, pinErr
			}
			return vec, nil
		}
		logger.Warn("primary embedder unavailable, using hash fallback", "provider", e.primary.Name(), "error", err.Error())
	}

	e.mu.Lock()
	if e.dimensions == 0 {
		e.dimensions = e.fallback.dimensions
	}
	if e.fallback.dimensions != e.dimensions {
		e.fallback = NewHashEmbedder(e.dimensions)
	}
	fallback := e.fallback
	e.mu.Unlock()

	vec, err := fallback.Embed(ctx, text)
	e.record(fallback.Name(), err == nil)
	return vec, err
}

// pin fixes the vector dimension on first success and rejects later drift.
func (e *FallbackEmbedder) pin(n int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dimensions == 0 {
		e.dimensions = n
		return nil
	}
	if e.dimensions != n {
		return fmt.Errorf("embedding dimension %d does not match the index dimension %d", n, e.dimensions)
	}
	return nil
}

func (e *FallbackEmbedder) record(provider string, success bool) {
	if e.recorder != nil {
		e.recorder.RecordEmbeddingCall(provider, success)
	}
}

func (e *FallbackEmbedder) Available(_ context.Context) bool { return true }

func (e *FallbackEmbedder) Name() string {
	if e.primary != nil {
		return e.primary.Name() + "+hash"
	}
	return "hash"
}

// SelectEmbedder picks the configured embedding provider, probing
// availability and degrading to the hash fallback when nothing is reachable.
func SelectEmbedder(ctx context.Context, cfg *config.Config, recorder EmbeddingRecorder) Embedder {
	switch cfg.EmbeddingsProvider {
	case "gemini", "google", "":
		if gemini, err := NewGeminiEmbedder(ctx, cfg); err == nil {
			return NewFallbackEmbedder(gemini, cfg.EmbeddingDimensions, recorder)
		} else {
			logger.Warn("gemini embedder unavailable", "error", err.Error())
		}
	case "ollama":
		ollama := NewOllamaEmbedder(cfg)
		if ollama.Available(ctx) {
			return NewFallbackEmbedder(ollama, cfg.EmbeddingDimensions, recorder)
		}
		logger.Warn("ollama embedder unavailable", "base_url", cfg.OllamaBaseURL)
	}
	return NewFallbackEmbedder(nil, cfg.EmbeddingDimensions, recorder)
}

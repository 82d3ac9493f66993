// Package vertexai embeds text with Google embedding models through the
// unified genai SDK, on Vertex AI or the Gemini API.
package vertexai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/kailas-cloud/vecstore/internal/domain"
	"github.com/kailas-cloud/vecstore/internal/metrics"
)

// DefaultModel is the Vertex AI text embedding model used when none is set.
const DefaultModel = "text-embedding-005"

// Config holds the embedding provider settings.
// With Project set the Vertex AI backend is used, otherwise the Gemini API with APIKey.
type Config struct {
	Project    string
	Location   string
	APIKey     string
	Model      string
	TaskType   string
	Dimensions int
	// BaseURL overrides the API endpoint (tests, private gateways).
	BaseURL string
	Logger  *zap.Logger
}

// Embedder is an embedding provider backed by the genai SDK.
type Embedder struct {
	client     *genai.Client
	model      string
	taskType   string
	dimensions int
	provider   string
	logger     *zap.Logger
}

// NewEmbedder creates a genai client and wraps it as an embedder.
func NewEmbedder(ctx context.Context, cfg *Config) (*Embedder, error) {
	cc := &genai.ClientConfig{HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL}}
	provider := "vertexai"
	if cfg.Project != "" {
		cc.Backend = genai.BackendVertexAI
		cc.Project = cfg.Project
		cc.Location = cfg.Location
	} else {
		if cfg.APIKey == "" {
			return nil, errors.New("vertexai: project or api key is required")
		}
		cc.Backend = genai.BackendGeminiAPI
		cc.APIKey = cfg.APIKey
		provider = "gemini"
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Embedder{
		client:     client,
		model:      model,
		taskType:   cfg.TaskType,
		dimensions: cfg.Dimensions,
		provider:   provider,
		logger:     logger,
	}, nil
}

// WithTaskType returns a copy that embeds for another task, e.g. RETRIEVAL_QUERY
// for queries against RETRIEVAL_DOCUMENT rows. The client is shared.
func (e *Embedder) WithTaskType(taskType string) *Embedder {
	cp := *e
	cp.taskType = taskType
	return &cp
}

// Provider returns the metrics label of the backend in use.
func (e *Embedder) Provider() string { return e.provider }

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := e.BatchEmbed(ctx, []string{text})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{
		Embedding:    res.Embeddings[0],
		PromptTokens: res.PromptTokens,
		TotalTokens:  res.TotalTokens,
	}, nil
}

// BatchEmbed implements domain.BatchEmbedder with one EmbedContent call.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}
	cfg := &genai.EmbedContentConfig{TaskType: e.taskType}
	if e.dimensions > 0 {
		dim := int32(e.dimensions) //nolint:gosec // bounded by config validation
		cfg.OutputDimensionality = &dim
	}

	start := time.Now()
	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, cfg)
	duration := time.Since(start)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, e.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, e.model, "api_error").Inc()
		return domain.BatchEmbeddingResult{}, parseAPIError(err)
	}
	if len(resp.Embeddings) != len(texts) {
		metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, e.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, e.model, "empty_response").Inc()
		return domain.BatchEmbeddingResult{}, fmt.Errorf("got %d embeddings for %d texts: %w",
			len(resp.Embeddings), len(texts), domain.ErrEmbeddingProviderError)
	}

	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return domain.BatchEmbeddingResult{}, fmt.Errorf("empty embedding for input %d: %w",
				i, domain.ErrEmbeddingProviderError)
		}
		out.Embeddings[i] = emb.Values
		if emb.Statistics != nil {
			out.PromptTokens += int(emb.Statistics.TokenCount)
			if emb.Statistics.Truncated {
				e.logger.Warn("Embedding input truncated", zap.Int("input", i), zap.String("model", e.model))
			}
		}
	}
	out.TotalTokens = out.PromptTokens

	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, e.model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(e.provider, e.model).Observe(duration.Seconds())
	if out.TotalTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, e.model, "total").Add(float64(out.TotalTokens))
	}
	return out, nil
}

// HealthCheck embeds a one-word probe.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.Embed(ctx, "ping"); err != nil {
		return fmt.Errorf("probe embed: %w", err)
	}
	return nil
}

// parseAPIError classifies genai failures: 429 is a rate limit, 5xx an outage.
func parseAPIError(err error) error {
	code, msg := 0, err.Error()
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code, msg = apiErr.Code, apiErr.Message
	case errors.As(err, &apiErrPtr):
		code, msg = apiErrPtr.Code, apiErrPtr.Message
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("embedding request: %w", err)
	default:
		return fmt.Errorf("embedding request failed: %s: %w", msg, domain.ErrEmbeddingUnavailable)
	}

	switch {
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("embedding API error %d: %s: %w", code, msg, domain.ErrRateLimited)
	case code >= http.StatusInternalServerError:
		return fmt.Errorf("embedding API error %d: %s: %w", code, msg, domain.ErrEmbeddingUnavailable)
	default:
		return fmt.Errorf("embedding API error %d: %s: %w", code, msg, domain.ErrEmbeddingProviderError)
	}
}

package vecstore

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/vecstore/internal/domain"
	"github.com/kailas-cloud/vecstore/internal/transport/openai"
	"github.com/kailas-cloud/vecstore/internal/transport/vertexai"
)

// EmbeddingResult carries the embedding vector and token counts.
type EmbeddingResult = domain.EmbeddingResult

// BatchEmbeddingResult carries multiple embedding vectors and aggregate token usage.
type BatchEmbeddingResult = domain.BatchEmbeddingResult

// Embedder converts text to vector embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// BatchEmbedder vectorizes multiple texts in a single API call.
// An Embedder that also implements it is used for batch ingestion.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

// Task types understood by Google embedding models.
const (
	TaskRetrievalDocument  = "RETRIEVAL_DOCUMENT"
	TaskRetrievalQuery     = "RETRIEVAL_QUERY"
	TaskSemanticSimilarity = "SEMANTIC_SIMILARITY"
)

// EmbedderOption configures a provider embedder.
type EmbedderOption func(*embedderConfig)

type embedderConfig struct {
	dimensions int
	baseURL    string
	taskType   string
}

// WithDimensions truncates output vectors to dim where the model supports it.
func WithDimensions(dim int) EmbedderOption {
	return func(c *embedderConfig) {
		c.dimensions = dim
	}
}

// WithBaseURL overrides the provider endpoint.
func WithBaseURL(url string) EmbedderOption {
	return func(c *embedderConfig) {
		c.baseURL = url
	}
}

// WithTaskType sets the Google task type. Default: RETRIEVAL_DOCUMENT.
// Ignored by OpenAI-compatible providers.
func WithTaskType(t string) EmbedderOption {
	return func(c *embedderConfig) {
		c.taskType = t
	}
}

func newEmbedderConfig(opts []EmbedderOption) embedderConfig {
	cfg := embedderConfig{taskType: TaskRetrievalDocument}
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}

// GenAIEmbedder embeds with Google models on Vertex AI or the Gemini API.
type GenAIEmbedder struct {
	inner *vertexai.Embedder
	model string
}

// NewVertexAIEmbedder authenticates with application default credentials.
// An empty model means text-embedding-005.
func NewVertexAIEmbedder(ctx context.Context, project, location, model string, opts ...EmbedderOption) (*GenAIEmbedder, error) {
	if project == "" {
		return nil, fmt.Errorf("vecstore: vertex ai project is required: %w", ErrInvalidSchema)
	}
	return newGenAIEmbedder(ctx, &vertexai.Config{Project: project, Location: location, Model: model}, opts)
}

// NewGeminiEmbedder uses the Gemini API with an API key.
func NewGeminiEmbedder(ctx context.Context, apiKey, model string, opts ...EmbedderOption) (*GenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("vecstore: gemini api key is required: %w", ErrInvalidSchema)
	}
	return newGenAIEmbedder(ctx, &vertexai.Config{APIKey: apiKey, Model: model}, opts)
}

func newGenAIEmbedder(ctx context.Context, cfg *vertexai.Config, opts []EmbedderOption) (*GenAIEmbedder, error) {
	ec := newEmbedderConfig(opts)
	cfg.TaskType = ec.taskType
	cfg.Dimensions = ec.dimensions
	cfg.BaseURL = ec.baseURL
	if cfg.Model == "" {
		cfg.Model = vertexai.DefaultModel
	}
	e, err := vertexai.NewEmbedder(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("vecstore: %w", err)
	}
	return &GenAIEmbedder{inner: e, model: cfg.Model}, nil
}

// ForQueries returns a copy that embeds with RETRIEVAL_QUERY. The client is shared.
func (g *GenAIEmbedder) ForQueries() *GenAIEmbedder {
	return &GenAIEmbedder{inner: g.inner.WithTaskType(TaskRetrievalQuery), model: g.model}
}

// Provider returns "vertexai" or "gemini".
func (g *GenAIEmbedder) Provider() string { return g.inner.Provider() }

// Model returns the embedding model name.
func (g *GenAIEmbedder) Model() string { return g.model }

// Embed implements Embedder.
func (g *GenAIEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return g.inner.Embed(ctx, text) //nolint:wrapcheck // transparent adapter
}

// BatchEmbed implements BatchEmbedder.
func (g *GenAIEmbedder) BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error) {
	return g.inner.BatchEmbed(ctx, texts) //nolint:wrapcheck // transparent adapter
}

// HealthCheck embeds a probe text.
func (g *GenAIEmbedder) HealthCheck(ctx context.Context) error {
	return g.inner.HealthCheck(ctx) //nolint:wrapcheck // transparent adapter
}

// OpenAIEmbedder embeds through any OpenAI-compatible endpoint.
type OpenAIEmbedder struct {
	inner *openai.Embedder
	model string
}

// NewOpenAIEmbedder creates an OpenAI-compatible embedder.
func NewOpenAIEmbedder(apiKey, model string, opts ...EmbedderOption) (*OpenAIEmbedder, error) {
	if model == "" {
		return nil, fmt.Errorf("vecstore: openai model is required: %w", ErrInvalidSchema)
	}
	ec := newEmbedderConfig(opts)
	e := openai.NewEmbedder(&openai.Config{
		APIKey:     apiKey,
		BaseURL:    ec.baseURL,
		Model:      model,
		Dimensions: ec.dimensions,
	})
	return &OpenAIEmbedder{inner: e, model: model}, nil
}

// Provider returns "openai".
func (o *OpenAIEmbedder) Provider() string { return "openai" }

// Model returns the embedding model name.
func (o *OpenAIEmbedder) Model() string { return o.model }

// Embed implements Embedder.
func (o *OpenAIEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return o.inner.Embed(ctx, text) //nolint:wrapcheck // transparent adapter
}

// BatchEmbed implements BatchEmbedder.
func (o *OpenAIEmbedder) BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error) {
	return o.inner.BatchEmbed(ctx, texts) //nolint:wrapcheck // transparent adapter
}

// HealthCheck calls the provider with a probe text.
func (o *OpenAIEmbedder) HealthCheck(ctx context.Context) error {
	return o.inner.HealthCheck(ctx) //nolint:wrapcheck // transparent adapter
}

package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecstore"
	"github.com/kailas-cloud/vecstore/internal/config"
)

// clientOptions maps the loaded configuration onto SDK options.
func clientOptions(ctx context.Context, cfg config.Config, logger *zap.Logger) ([]vecstore.Option, error) {
	r := cfg.Embedding.Retry
	opts := []vecstore.Option{
		vecstore.WithLogger(logger),
		vecstore.WithReadinessTimeout(time.Duration(cfg.Store.ReadinessTimeout) * time.Second),
		vecstore.WithMaxBatchSize(cfg.Vector.MaxBatchSize),
		vecstore.WithEmbedConcurrency(cfg.Vector.EmbedConcurrency),
		vecstore.WithMinIndexRows(cfg.Vector.MinIndexRows),
		vecstore.WithRetry(r.MaxAttempts,
			time.Duration(r.BaseDelayMs)*time.Millisecond,
			time.Duration(r.MaxDelayMs)*time.Millisecond),
	}

	switch cfg.Store.Driver {
	case "bigquery":
		opts = append(opts, vecstore.WithBigQuery(cfg.Store.Project, cfg.Store.Location))
		if cfg.Store.CredentialsFile != "" {
			opts = append(opts, vecstore.WithCredentialsFile(cfg.Store.CredentialsFile))
		}
		if cfg.Store.Endpoint != "" {
			opts = append(opts, vecstore.WithBigQueryEndpoint(cfg.Store.Endpoint))
		}
	case "redis":
		opts = append(opts, vecstore.WithRedis(cfg.Store.Addrs[0], cfg.Store.Password))
	case "valkey":
		opts = append(opts, vecstore.WithValkey(cfg.Store.Addrs[0], cfg.Store.Password))
	case "memory":
		opts = append(opts, vecstore.WithMemory())
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	p, ok := cfg.Embedding.Active()
	if !ok {
		return opts, nil
	}
	doc, query, err := buildEmbedders(ctx, cfg.Embedding, p)
	if err != nil {
		return nil, err
	}
	opts = append(opts,
		vecstore.WithEmbedder(doc),
		vecstore.WithInstructions(cfg.Embedding.DocumentInstruction, cfg.Embedding.QueryInstruction),
		vecstore.WithBudget(p.Budget.DailyTokenLimit, p.Budget.MonthlyTokenLimit, p.Budget.Action),
	)
	if query != doc {
		opts = append(opts, vecstore.WithQueryEmbedder(query))
	}
	if cfg.Embedding.CacheTTLHours > 0 {
		opts = append(opts, vecstore.WithEmbeddingCache(time.Duration(cfg.Embedding.CacheTTLHours)*time.Hour))
	}
	if p.RequestsPerSecond > 0 {
		opts = append(opts, vecstore.WithRateLimit(p.RequestsPerSecond))
	}
	return opts, nil
}

// buildEmbedders creates the document and query embedders of the active provider.
// Providers without task types share one embedder for both roles.
func buildEmbedders(
	ctx context.Context, ec config.EmbeddingConfig, p config.ProviderConfig,
) (doc, query vecstore.Embedder, err error) {
	var opts []vecstore.EmbedderOption
	if ec.Dimensions > 0 {
		opts = append(opts, vecstore.WithDimensions(ec.Dimensions))
	}
	if p.BaseURL != "" {
		opts = append(opts, vecstore.WithBaseURL(p.BaseURL))
	}

	switch p.Kind {
	case "vertexai", "gemini":
		newGenAI := func(taskType string) (*vecstore.GenAIEmbedder, error) {
			o := append(append([]vecstore.EmbedderOption{}, opts...), vecstore.WithTaskType(taskType))
			if p.Kind == "gemini" {
				return vecstore.NewGeminiEmbedder(ctx, p.APIKey, ec.Model, o...)
			}
			return vecstore.NewVertexAIEmbedder(ctx, p.Project, p.Location, ec.Model, o...)
		}
		d, err := newGenAI(ec.DocumentTaskType)
		if err != nil {
			return nil, nil, fmt.Errorf("%s embedder: %w", ec.Provider, err)
		}
		if ec.QueryTaskType == vecstore.TaskRetrievalQuery {
			return d, d.ForQueries(), nil
		}
		if ec.QueryTaskType == ec.DocumentTaskType {
			return d, d, nil
		}
		q, err := newGenAI(ec.QueryTaskType)
		if err != nil {
			return nil, nil, fmt.Errorf("%s query embedder: %w", ec.Provider, err)
		}
		return d, q, nil
	case "openai":
		o, err := vecstore.NewOpenAIEmbedder(p.APIKey, ec.Model, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("%s embedder: %w", ec.Provider, err)
		}
		return o, o, nil
	default:
		return nil, nil, fmt.Errorf("unknown embedding provider kind %q", p.Kind)
	}
}

// storeOptions maps vector settings onto VectorStore options.
func storeOptions(cfg config.Config) []vecstore.StoreOption {
	opts := []vecstore.StoreOption{
		vecstore.WithDistanceStrategy(vecstore.DistanceStrategy(cfg.Vector.DistanceStrategy)),
	}
	if cfg.Embedding.Dimensions > 0 {
		opts = append(opts, vecstore.WithVectorDimensions(cfg.Embedding.Dimensions))
	}
	for _, f := range cfg.Vector.FilterFields {
		opts = append(opts, vecstore.WithFilterField(f.Name, vecstore.FieldType(f.Type)))
	}
	return opts
}

package vecstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vecstore/internal/db"
	"github.com/kailas-cloud/vecstore/internal/db/bigquery"
	"github.com/kailas-cloud/vecstore/internal/db/memory"
	"github.com/kailas-cloud/vecstore/internal/db/redis"
	"github.com/kailas-cloud/vecstore/internal/domain"
	"github.com/kailas-cloud/vecstore/internal/metrics"
	budgetrepo "github.com/kailas-cloud/vecstore/internal/repository/budget"
	documentrepo "github.com/kailas-cloud/vecstore/internal/repository/document"
	"github.com/kailas-cloud/vecstore/internal/repository/embcache"
	jobrepo "github.com/kailas-cloud/vecstore/internal/repository/job"
	searchrepo "github.com/kailas-cloud/vecstore/internal/repository/search"
	tablerepo "github.com/kailas-cloud/vecstore/internal/repository/table"
	chitransport "github.com/kailas-cloud/vecstore/internal/transport/chi"
	datasetuc "github.com/kailas-cloud/vecstore/internal/usecase/dataset"
	documentuc "github.com/kailas-cloud/vecstore/internal/usecase/document"
	embeddinguc "github.com/kailas-cloud/vecstore/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/vecstore/internal/usecase/health"
	jobuc "github.com/kailas-cloud/vecstore/internal/usecase/job"
	searchuc "github.com/kailas-cloud/vecstore/internal/usecase/search"
	usageuc "github.com/kailas-cloud/vecstore/internal/usecase/usage"
)

const defaultReadinessTimeout = 30 * time.Second

// Client is the entry point of the library. It owns the backend connection,
// the embedding pipeline and the use cases built on them.
// A Client is safe for concurrent use.
type Client struct {
	store    db.Store
	raw      db.Store
	location string
	backend  string

	docEmbedder   domain.Embedder
	queryEmbedder domain.Embedder
	budget        *embeddinguc.BudgetTracker

	datasets  *datasetuc.Service
	documents *documentuc.Service
	search    *searchuc.Service
	jobs      *jobuc.Service
	usage     *usageuc.Service
	health    *healthuc.Service

	minIndexRows int64
	logger       *zap.Logger
	obs          *observer
}

// New connects to the configured backend and assembles the client.
// Exactly one of WithBigQuery, WithRedis, WithValkey or WithMemory is required.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := defaultClientConfig()
	for _, o := range opts {
		o.apply(cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	obs, err := newObserver(logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	raw, location, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := raw.WaitForReady(ctx, cfg.readinessTimeout); err != nil {
		raw.Close()
		return nil, fmt.Errorf("vecstore: %s not ready: %w", cfg.driver, err)
	}
	store := db.Observe(raw, cfg.driver)

	c := &Client{
		store:        store,
		raw:          raw,
		location:     location,
		backend:      cfg.driver,
		minIndexRows: cfg.minIndexRows,
		logger:       logger,
		obs:          obs,
	}
	if err := c.buildEmbedders(ctx, cfg); err != nil {
		raw.Close()
		return nil, err
	}

	tables := tablerepo.New(store)
	c.datasets = datasetuc.New(tables)
	c.documents = documentuc.New(documentrepo.New(store), c.docEmbedder).
		WithBatching(cfg.maxBatchSize, cfg.embedConcurrency)
	c.search = searchuc.New(searchrepo.New(store), c.queryEmbedder)
	c.jobs = jobuc.New(jobrepo.New(store), location)

	var br usageuc.BudgetReader
	if c.budget != nil {
		br = c.budget
	}
	c.usage = usageuc.New(br)

	var hc healthuc.EmbeddingChecker
	if checker, ok := c.docEmbedder.(domain.HealthChecker); ok {
		hc = checker
	}
	c.health = healthuc.New(store, hc)

	logger.Info("vecstore client ready",
		zap.String("backend", cfg.driver),
		zap.String("location", location),
		zap.Bool("embedder", c.docEmbedder != nil),
	)
	return c, nil
}

func openStore(ctx context.Context, cfg *clientConfig) (db.Store, string, error) {
	switch cfg.driver {
	case "bigquery":
		loc := cfg.location
		if loc == "" {
			loc = domain.DefaultVectorConfig().DefaultDatasetRegion
		}
		s, err := bigquery.NewStore(ctx, bigquery.Config{
			ProjectID:       cfg.project,
			Location:        loc,
			CredentialsFile: cfg.credentialsFile,
			Endpoint:        cfg.endpoint,
		})
		if err != nil {
			return nil, "", fmt.Errorf("vecstore: bigquery: %w", err)
		}
		return s, loc, nil
	case "redis", "valkey":
		s, err := redis.NewStore(redis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
			Location: cfg.location,
		})
		if err != nil {
			return nil, "", fmt.Errorf("vecstore: %s: %w", cfg.driver, err)
		}
		return s, cfg.location, nil
	case "memory":
		loc := cfg.location
		if loc == "" {
			loc = domain.DefaultVectorConfig().DefaultDatasetRegion
		}
		return memory.NewStore(loc), loc, nil
	case "":
		return nil, "", errors.New("vecstore: no backend configured (use WithBigQuery, WithRedis, WithValkey or WithMemory)")
	default:
		return nil, "", fmt.Errorf("vecstore: unknown backend %q", cfg.driver)
	}
}

// buildEmbedders wraps the configured providers as
// resilient → cached → instrumented → instruction.
func (c *Client) buildEmbedders(ctx context.Context, cfg *clientConfig) error {
	if cfg.embedder == nil {
		if cfg.queryEmbedder != nil {
			return fmt.Errorf("vecstore: WithQueryEmbedder requires WithEmbedder: %w", ErrInvalidSchema)
		}
		return nil
	}

	kv, _ := c.raw.(db.KVStore)

	if cfg.budget.daily > 0 || cfg.budget.monthly > 0 {
		action, err := embeddinguc.ParseBudgetAction(cfg.budget.action)
		if err != nil {
			return fmt.Errorf("vecstore: %w: %w", err, ErrInvalidSchema)
		}
		provider, _ := describeEmbedder(cfg.embedder)
		c.budget = embeddinguc.NewBudgetTracker(provider, cfg.budget.daily, cfg.budget.monthly, action, c.logger)
		if kv != nil {
			c.budget.WithStore(ctx, budgetrepo.New(kv, 0, 0))
		}
	}

	c.docEmbedder = c.wrapEmbedder(cfg, cfg.embedder, kv, "doc", cfg.docInstr)
	query := cfg.queryEmbedder
	if query == nil {
		query = cfg.embedder
	}
	c.queryEmbedder = c.wrapEmbedder(cfg, query, kv, "query", cfg.queryInstr)
	return nil
}

func (c *Client) wrapEmbedder(cfg *clientConfig, base Embedder, kv db.KVStore, role, instruction string) domain.Embedder {
	provider, model := describeEmbedder(base)

	var e domain.Embedder = embeddinguc.NewResilientEmbedder(base, provider, cfg.rps, cfg.retry, c.logger)
	if kv != nil && cfg.cacheTTL > 0 {
		ns := provider + ":" + model + ":" + role + ":" + instruction
		e = embcache.New(e, kv, ns, metrics.EmbeddingCacheTotal, c.logger).WithTTL(cfg.cacheTTL)
	}

	var budget embeddinguc.BudgetChecker
	if c.budget != nil {
		budget = c.budget
	}
	instrumented := embeddinguc.NewInstrumentedEmbedder(e, provider, model, budget, c.logger)
	if cfg.maxBatchSize > 0 {
		instrumented = instrumented.WithMaxAPIBatch(cfg.maxBatchSize)
	}
	return domain.NewInstructionEmbedder(instrumented, instruction)
}

// describeEmbedder reads the provider and model labels of embedders that expose them.
func describeEmbedder(e Embedder) (provider, model string) {
	provider, model = "custom", "unknown"
	if p, ok := e.(interface{ Provider() string }); ok {
		provider = p.Provider()
	}
	if m, ok := e.(interface{ Model() string }); ok {
		model = m.Model()
	}
	return provider, model
}

// Datasets returns the dataset manager.
func (c *Client) Datasets() *Datasets {
	return &Datasets{c: c}
}

// Embed embeds text with the document embedder, through the cache and budget.
func (c *Client) Embed(ctx context.Context, text string) (_ []float32, err error) {
	defer func(start time.Time) { c.obs.observe("embed", start, err) }(time.Now())
	if c.docEmbedder == nil {
		return nil, ErrEmbedderNotConfigured
	}
	res, err := c.docEmbedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	return res.Embedding, nil
}

// JobStats fetches statistics of a backend job. An empty location means the
// client's default location.
func (c *Client) JobStats(ctx context.Context, jobID, location string) (_ JobStats, err error) {
	defer func(start time.Time) { c.obs.observe("job_stats", start, err) }(time.Now())
	st, err := c.jobs.Stats(ctx, jobID, location)
	if err != nil {
		return JobStats{}, fmt.Errorf("job stats: %w", err)
	}
	return JobStats{
		ID:                  st.ID,
		Kind:                JobKind(st.Kind),
		State:               string(st.State),
		CreatedAt:           st.CreatedAt,
		StartedAt:           st.StartedAt,
		EndedAt:             st.EndedAt,
		Duration:            st.Duration(),
		TotalBytesProcessed: st.TotalBytesProcessed,
		TotalBytesBilled:    st.TotalBytesBilled,
		SlotMillis:          st.SlotMillis,
		CacheHit:            st.CacheHit,
		InputRows:           st.InputRows,
		OutputRows:          st.OutputRows,
		Error:               st.Error,
	}, nil
}

// Ping checks backend connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Health checks the backend and the embedding provider.
func (c *Client) Health(ctx context.Context) HealthStatus {
	r := c.health.Check(ctx)
	checks := make(map[string]string, len(r.Checks))
	for k, v := range r.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{Status: string(r.Status), Checks: checks}
}

// Usage reports embedding token usage for "day" (default) or "month".
func (c *Client) Usage(ctx context.Context, period UsagePeriod) (UsageReport, error) {
	p, err := usageuc.ParsePeriod(string(period))
	if err != nil {
		return UsageReport{}, fmt.Errorf("usage: %w: %w", err, ErrInvalidSchema)
	}
	r := c.usage.GetReport(ctx, p)
	return UsageReport{
		Period:      UsagePeriod(r.Period),
		PeriodStart: r.PeriodStart,
		PeriodEnd:   r.PeriodEnd,
		Used:        r.Used,
		Limit:       r.Limit,
		Remaining:   r.Remaining,
		Exhausted:   r.Exhausted,
	}, nil
}

// Handler exposes the client over HTTP. Requests must carry one of apiKeys
// as a bearer token; an empty list disables authentication.
// Embedding and store metrics are registered on the default Prometheus registry.
func (c *Client) Handler(apiKeys []string) http.Handler {
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterStoreMetrics()
	srv := chitransport.NewServer(
		c.datasets, c.documents, c.search, c.jobs, c.usage, c.health, c.logger,
	).WithMinIndexRows(c.minIndexRows)
	return chitransport.NewRouter(srv, apiKeys, c.logger)
}

// Close releases the backend connection.
func (c *Client) Close() error {
	c.raw.Close()
	return nil
}

// Backend returns the configured backend name.
func (c *Client) Backend() string { return c.backend }

package vecstore

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecstore/internal/domain"
	embeddinguc "github.com/kailas-cloud/vecstore/internal/usecase/embedding"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type budgetConfig struct {
	daily   int64
	monthly int64
	action  string
}

type clientConfig struct {
	driver string // "bigquery", "redis", "valkey" or "memory"

	// bigquery
	project         string
	location        string
	credentialsFile string
	endpoint        string

	// redis, valkey
	addrs    []string
	password string

	embedder      Embedder
	queryEmbedder Embedder
	docInstr      string
	queryInstr    string
	cacheTTL      time.Duration
	rps           float64
	retry         embeddinguc.RetryPolicy
	budget        budgetConfig

	maxBatchSize     int
	embedConcurrency int
	minIndexRows     int64
	readinessTimeout time.Duration

	logger     *zap.Logger
	metricsReg prometheus.Registerer
}

func defaultClientConfig() *clientConfig {
	vc := domain.DefaultVectorConfig()
	return &clientConfig{
		retry:            embeddinguc.DefaultRetryPolicy(),
		maxBatchSize:     vc.MaxBatchSize,
		embedConcurrency: vc.EmbedConcurrency,
		minIndexRows:     int64(vc.MinIndexRows),
		readinessTimeout: defaultReadinessTimeout,
	}
}

// WithBigQuery stores tables in BigQuery under project. location is the
// default dataset and job location ("US" when empty).
func WithBigQuery(project, location string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "bigquery"
		c.project = project
		c.location = location
	})
}

// WithCredentialsFile authenticates BigQuery with a service account key
// instead of application default credentials.
func WithCredentialsFile(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.credentialsFile = path
	})
}

// WithBigQueryEndpoint points BigQuery at an emulator. Authentication is disabled.
func WithBigQueryEndpoint(endpoint string) Option {
	return optionFunc(func(c *clientConfig) {
		c.endpoint = endpoint
	})
}

// WithRedis stores tables in Redis 8+ with the search module.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithValkey stores tables in Valkey with valkey-search.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithMemory keeps everything in process. Search is exact.
func WithMemory() Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "memory"
	})
}

// WithEmbedder sets the embedding provider for documents and, unless
// WithQueryEmbedder is given, for queries too.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithQueryEmbedder sets a separate embedding provider for search queries.
func WithQueryEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.queryEmbedder = e
	})
}

// WithInstructions prefixes every document or query text before embedding.
func WithInstructions(document, query string) Option {
	return optionFunc(func(c *clientConfig) {
		c.docInstr = document
		c.queryInstr = query
	})
}

// WithEmbeddingCache caches vectors in the backend's key-value store for ttl.
// Ignored on backends without one (BigQuery).
func WithEmbeddingCache(ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheTTL = ttl
	})
}

// WithRateLimit paces embedding calls to rps requests per second.
func WithRateLimit(rps float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.rps = rps
	})
}

// WithRetry retries rate-limited and unavailable embedding calls with
// exponential backoff. maxAttempts of 1 disables retries. Zero delays use
// the defaults of 500ms and 10s.
func WithRetry(maxAttempts int, baseDelay, maxDelay time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.retry = embeddinguc.RetryPolicy{MaxAttempts: maxAttempts, BaseDelay: baseDelay, MaxDelay: maxDelay}
	})
}

// WithBudget caps embedding tokens per UTC day and month (0 = unlimited).
// action is "warn" (default) or "reject".
func WithBudget(daily, monthly int64, action string) Option {
	return optionFunc(func(c *clientConfig) {
		c.budget = budgetConfig{daily: daily, monthly: monthly, action: action}
	})
}

// WithMaxBatchSize sets how many texts are embedded and written per chunk.
// Default: 250.
func WithMaxBatchSize(size int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxBatchSize = size
	})
}

// WithEmbedConcurrency bounds concurrent embedding calls during AddTexts.
// Default: 4.
func WithEmbedConcurrency(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedConcurrency = n
	})
}

// WithMinIndexRows sets the row count below which CreateVectorIndex is a no-op.
// Default: 5000.
func WithMinIndexRows(n int64) Option {
	return optionFunc(func(c *clientConfig) {
		c.minIndexRows = n
	})
}

// WithReadinessTimeout bounds the initial backend readiness check.
func WithReadinessTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.readinessTimeout = d
	})
}

// WithLogger enables structured logging for SDK operations.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}

// StoreOption configures a VectorStore.
type StoreOption func(*storeConfig)

type storeConfig struct {
	dim         int
	strategy    DistanceStrategy
	fields      []FieldInfo
	description string
}

// WithDistanceStrategy sets the ranking metric. Default: Euclidean.
func WithDistanceStrategy(s DistanceStrategy) StoreOption {
	return func(c *storeConfig) {
		c.strategy = s
	}
}

// WithVectorDimensions sets the table's vector size. When unset, an existing
// table's size is used, or the embedder is probed.
func WithVectorDimensions(dim int) StoreOption {
	return func(c *storeConfig) {
		c.dim = dim
	}
}

// WithFilterField declares a filterable metadata key. Redis and Valkey can
// only filter on declared keys; BigQuery filters on any key.
func WithFilterField(name string, t FieldType) StoreOption {
	return func(c *storeConfig) {
		c.fields = append(c.fields, FieldInfo{Name: name, Type: t})
	}
}

// WithTableDescription sets the description of a newly created table.
func WithTableDescription(d string) StoreOption {
	return func(c *storeConfig) {
		c.description = d
	}
}

// DatasetOption configures Datasets().Ensure.
type DatasetOption func(*datasetConfig)

type datasetConfig struct {
	location    string
	description string
}

// WithLocation sets the dataset region. Default: the client location, or "US".
func WithLocation(loc string) DatasetOption {
	return func(c *datasetConfig) {
		c.location = loc
	}
}

// WithDescription sets the dataset description.
func WithDescription(d string) DatasetOption {
	return func(c *datasetConfig) {
		c.description = d
	}
}

package domain

// KeyPrefix namespaces every key the Redis backend and the embedding cache write.
const KeyPrefix = "vecstore:"

// VectorConfig holds vectorization defaults, not exposed to clients.
type VectorConfig struct {
	Model                string
	Dimensions           int
	DistanceStrategy     string
	DocumentTaskType     string
	QueryTaskType        string
	MaxBatchSize         int
	EmbedConcurrency     int
	MinIndexRows         int
	DefaultDatasetRegion string
}

// DefaultVectorConfig returns defaults tuned for Vertex AI text-embedding-005.
func DefaultVectorConfig() VectorConfig {
	return VectorConfig{
		Model:                "text-embedding-005",
		Dimensions:           768,
		DistanceStrategy:     "EUCLIDEAN",
		DocumentTaskType:     "RETRIEVAL_DOCUMENT",
		QueryTaskType:        "RETRIEVAL_QUERY",
		MaxBatchSize:         250,
		EmbedConcurrency:     4,
		MinIndexRows:         5000,
		DefaultDatasetRegion: "US",
	}
}

package request

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/vecstore/internal/domain/search/filter"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed search query length.
	MaxQueryLength = 4096
	DefaultK       = 4
	MaxK           = 500
)

// Request is a validated similarity query. Exactly one of query text or
// query vector is set.
type Request struct {
	query          string
	vector         []float32
	filters        filter.Expression
	k              int
	maxDistance    *float64
	includeVectors bool
	bruteForce     bool
}

// New validates and normalizes search parameters.
// Defaults: k=4. k above MaxK is clamped.
func New(
	query string,
	vector []float32,
	filters filter.Expression,
	k int,
	maxDistance *float64,
	includeVectors, bruteForce bool,
) (Request, error) {
	switch {
	case query == "" && len(vector) == 0:
		return Request{}, fmt.Errorf("query or vector is required")
	case query != "" && len(vector) > 0:
		return Request{}, fmt.Errorf("query and vector are mutually exclusive")
	}
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("query too long (max %d chars)", MaxQueryLength)
	}
	for i, v := range vector {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return Request{}, fmt.Errorf("vector[%d] is not a finite number", i)
		}
	}
	if k < 0 {
		return Request{}, fmt.Errorf("k must not be negative")
	}
	if k == 0 {
		k = DefaultK
	}
	if k > MaxK {
		k = MaxK
	}
	if maxDistance != nil && math.IsNaN(*maxDistance) {
		return Request{}, fmt.Errorf("max_distance must be a number")
	}

	return Request{
		query:          query,
		vector:         vector,
		filters:        filters,
		k:              k,
		maxDistance:    maxDistance,
		includeVectors: includeVectors,
		bruteForce:     bruteForce,
	}, nil
}

// Query returns the search query text (empty for vector queries).
func (r *Request) Query() string { return r.query }

// Vector returns the caller-supplied query vector (nil for text queries).
func (r *Request) Vector() []float32 { return r.vector }

// HasVector reports whether the query is already vectorized.
func (r *Request) HasVector() bool { return len(r.vector) > 0 }

// Filters returns the pre-filter expression.
func (r *Request) Filters() filter.Expression { return r.filters }

// K returns the number of nearest neighbours to return.
func (r *Request) K() int { return r.k }

// MaxDistance returns the distance cutoff, nil when unset.
func (r *Request) MaxDistance() *float64 { return r.maxDistance }

// IncludeVectors reports whether vectors should be included in results.
func (r *Request) IncludeVectors() bool { return r.includeVectors }

// BruteForce reports whether an exact scan was requested over the vector index.
func (r *Request) BruteForce() bool { return r.bruteForce }

// Package distance defines the metrics a vector store ranks results by.
package distance

import (
	"fmt"
	"math"
	"strings"
)

// Strategy is the distance metric chosen when a store is constructed.
type Strategy string

const (
	// Euclidean is L2 distance. Default.
	Euclidean Strategy = "EUCLIDEAN"
	// Cosine is 1 - cosine similarity.
	Cosine Strategy = "COSINE"
	// DotProduct is the negated inner product, so smaller still means closer.
	DotProduct Strategy = "DOT_PRODUCT"
)

// Parse accepts the canonical names plus a few common aliases, case-insensitively.
func Parse(s string) (Strategy, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "EUCLIDEAN", "EUCLIDEAN_DISTANCE", "L2":
		return Euclidean, nil
	case "COSINE", "COSINE_DISTANCE":
		return Cosine, nil
	case "DOT_PRODUCT", "DOT", "IP", "INNER_PRODUCT", "MAX_INNER_PRODUCT":
		return DotProduct, nil
	default:
		return "", fmt.Errorf("unknown distance strategy %q", s)
	}
}

// IsValid reports whether s is one of the supported strategies.
func (s Strategy) IsValid() bool {
	return s == Euclidean || s == Cosine || s == DotProduct
}

// Compute returns the distance between a and b. Vectors must have equal length.
func (s Strategy) Compute(a, b []float32) float64 {
	switch s {
	case Cosine:
		return cosineDistance(a, b)
	case DotProduct:
		return -dot(a, b)
	default:
		return euclidean(a, b)
	}
}

func euclidean(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func cosineDistance(a, b []float32) float64 {
	na := math.Sqrt(dot(a, a))
	nb := math.Sqrt(dot(b, b))
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot(a, b)/(na*nb)
}

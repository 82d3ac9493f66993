package vecstore

import (
	"context"
	"fmt"
)

// TypedStore is a schema-first VectorStore. Documents are structs of type T
// whose vecstore tags name the ID, the content and the metadata fields.
type TypedStore[T any] struct {
	store *VectorStore
	meta  *schemaMeta
}

// NewTypedStore binds T to dataset.table. tag and numeric fields are declared
// as filter fields; opts are applied after them.
func NewTypedStore[T any](
	ctx context.Context, c *Client, datasetName, tableName string, opts ...StoreOption,
) (*TypedStore[T], error) {
	meta, err := parseSchema[T]()
	if err != nil {
		return nil, fmt.Errorf("typed store %s.%s: %w", datasetName, tableName, err)
	}
	vs, err := c.VectorStore(ctx, datasetName, tableName, append(meta.storeOptions(), opts...)...)
	if err != nil {
		return nil, err
	}
	return &TypedStore[T]{store: vs, meta: meta}, nil
}

// Store returns the underlying untyped handle.
func (ts *TypedStore[T]) Store() *VectorStore { return ts.store }

// Add embeds and stores items. Items with an empty ID get a generated one.
func (ts *TypedStore[T]) Add(ctx context.Context, items ...T) (WriteResult, error) {
	docs := make([]Document, len(items))
	for i, item := range items {
		docs[i] = ts.meta.toDocument(item)
	}
	return ts.store.AddDocuments(ctx, docs)
}

// Delete removes items by ID.
func (ts *TypedStore[T]) Delete(ctx context.Context, ids ...string) (int64, error) {
	_, n, err := ts.store.Delete(ctx, ids...)
	return n, err
}

// Search returns a fluent search builder for this store.
func (ts *TypedStore[T]) Search() *SearchBuilder[T] {
	return &SearchBuilder[T]{ts: ts}
}

// Hit is a typed search result.
type Hit[T any] struct {
	Item     T
	Distance float64
}

// SearchBuilder is a fluent builder for typed search queries.
type SearchBuilder[T any] struct {
	ts *TypedStore[T]
	q  Query
}

// Query searches by text.
func (b *SearchBuilder[T]) Query(text string) *SearchBuilder[T] {
	b.q.Text = text
	return b
}

// Vector searches by a pre-computed vector.
func (b *SearchBuilder[T]) Vector(v []float32) *SearchBuilder[T] {
	b.q.Vector = v
	return b
}

// Where adds an exact-match condition.
func (b *SearchBuilder[T]) Where(key string, value any) *SearchBuilder[T] {
	b.q.Must = append(b.q.Must, Match(key, value))
	return b
}

// Between adds a lo <= value <= hi condition.
func (b *SearchBuilder[T]) Between(key string, lo, hi float64) *SearchBuilder[T] {
	b.q.Must = append(b.q.Must, Between(key, lo, hi))
	return b
}

// Not excludes items matching key = value.
func (b *SearchBuilder[T]) Not(key string, value any) *SearchBuilder[T] {
	b.q.MustNot = append(b.q.MustNot, Match(key, value))
	return b
}

// MaxDistance drops hits farther than d.
func (b *SearchBuilder[T]) MaxDistance(d float64) *SearchBuilder[T] {
	b.q.MaxDistance = &d
	return b
}

// Limit sets the maximum number of results.
func (b *SearchBuilder[T]) Limit(n int) *SearchBuilder[T] {
	b.q.K = n
	return b
}

// Do executes the search and returns typed results, closest first.
func (b *SearchBuilder[T]) Do(ctx context.Context) ([]Hit[T], error) {
	page, err := b.ts.store.Search(ctx, b.q)
	if err != nil {
		return nil, err
	}
	hits := make([]Hit[T], 0, len(page.Results))
	for _, r := range page.Results {
		item, ok := b.ts.meta.fromResult(r).(T)
		if !ok {
			continue
		}
		hits = append(hits, Hit[T]{Item: item, Distance: r.Distance})
	}
	return hits, nil
}

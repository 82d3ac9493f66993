package vecstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/vecstore/internal/domain"
	"github.com/kailas-cloud/vecstore/internal/domain/distance"
	domdoc "github.com/kailas-cloud/vecstore/internal/domain/document"
	"github.com/kailas-cloud/vecstore/internal/domain/search/filter"
	"github.com/kailas-cloud/vecstore/internal/domain/search/request"
	"github.com/kailas-cloud/vecstore/internal/domain/search/result"
	"github.com/kailas-cloud/vecstore/internal/domain/table"
)

// dimensionProbe is embedded once to learn the vector size of a new table.
const dimensionProbe = "dimension probe"

// VectorStore is a handle bound to one dataset table. Its distance strategy
// and vector size are fixed when it is created.
type VectorStore struct {
	c        *Client
	tbl      table.Table
	location string
}

// VectorStore returns a handle for dataset.table, creating the table when it
// does not exist. The dataset must exist (see Datasets().Ensure).
//
// The vector size is, in order: WithVectorDimensions, the size of the
// existing table, or the size of a probe embedding.
func (c *Client) VectorStore(ctx context.Context, datasetName, tableName string, opts ...StoreOption) (_ *VectorStore, err error) {
	defer func(start time.Time) { c.obs.observe("vector_store", start, err) }(time.Now())

	cfg := storeConfig{strategy: Euclidean}
	for _, o := range opts {
		o(&cfg)
	}
	strategy, err := distance.Parse(string(cfg.strategy))
	if err != nil {
		return nil, fmt.Errorf("vector store: %w: %w", err, ErrInvalidSchema)
	}

	ref := table.Ref{Dataset: datasetName, Table: tableName}
	if cfg.dim == 0 {
		snap, err := c.datasets.Describe(ctx, ref)
		switch {
		case err == nil:
			cfg.dim = snap.Table.VectorDim()
		case !errors.Is(err, domain.ErrNotFound):
			return nil, fmt.Errorf("vector store: %w", err)
		}
	}
	if cfg.dim == 0 {
		if cfg.dim, err = c.probeDimensions(ctx); err != nil {
			return nil, fmt.Errorf("vector store %s: %w", ref, err)
		}
	}

	fields := make([]table.Field, 0, len(cfg.fields))
	for _, f := range cfg.fields {
		field, err := table.NewField(f.Name, table.FieldType(f.Type))
		if err != nil {
			return nil, fmt.Errorf("vector store: %w: %w", err, ErrInvalidSchema)
		}
		fields = append(fields, field)
	}
	want, err := table.New(datasetName, tableName, cfg.dim, strategy, fields)
	if err != nil {
		return nil, fmt.Errorf("vector store: %w: %w", err, ErrInvalidSchema)
	}

	tbl, err := c.datasets.EnsureTable(ctx, want, cfg.description)
	if err != nil {
		return nil, fmt.Errorf("vector store: %w", err)
	}
	if tbl.Location() == "" {
		// freshly created tables live in their dataset's location
		ds, err := c.datasets.GetDataset(ctx, datasetName)
		if err != nil {
			return nil, fmt.Errorf("vector store: %w", err)
		}
		tbl = tbl.WithLocation(ds.Location())
	}
	location := tbl.Location()
	if location == "" {
		location = c.location
	}
	return &VectorStore{c: c, tbl: tbl, location: location}, nil
}

func (c *Client) probeDimensions(ctx context.Context) (int, error) {
	if c.docEmbedder == nil {
		return 0, fmt.Errorf("vector dimensions unknown without an embedder: %w", ErrInvalidSchema)
	}
	res, err := c.docEmbedder.Embed(ctx, dimensionProbe)
	if err != nil {
		return 0, fmt.Errorf("probe embedding: %w", err)
	}
	if len(res.Embedding) == 0 {
		return 0, fmt.Errorf("probe embedding is empty: %w", ErrEmbeddingProviderError)
	}
	return len(res.Embedding), nil
}

// Dataset returns the dataset name.
func (s *VectorStore) Dataset() string { return s.tbl.Ref().Dataset }

// Table returns the table name.
func (s *VectorStore) Table() string { return s.tbl.Ref().Table }

// Distance returns the fixed distance strategy.
func (s *VectorStore) Distance() DistanceStrategy { return DistanceStrategy(s.tbl.Strategy()) }

// Dimensions returns the vector size.
func (s *VectorStore) Dimensions() int { return s.tbl.VectorDim() }

// Location returns the region jobs against the table run in.
func (s *VectorStore) Location() string { return s.location }

// Info describes the table with its current row count.
func (s *VectorStore) Info(ctx context.Context) (TableInfo, error) {
	snap, err := s.c.datasets.Describe(ctx, s.tbl.Ref())
	if err != nil {
		return TableInfo{}, fmt.Errorf("describe: %w", err)
	}
	fields := make([]FieldInfo, 0, len(snap.Table.Fields()))
	for _, f := range snap.Table.Fields() {
		fields = append(fields, FieldInfo{Name: f.Name(), Type: FieldType(f.Type())})
	}
	return TableInfo{
		Dataset:   s.Dataset(),
		Table:     s.Table(),
		VectorDim: snap.Table.VectorDim(),
		Distance:  DistanceStrategy(snap.Table.Strategy()),
		Fields:    fields,
		Rows:      snap.Rows,
		Location:  snap.Location,
	}, nil
}

// AddTexts embeds texts and stores them with the matching metadata.
// metadatas is either empty or as long as texts. Returns the generated IDs.
func (s *VectorStore) AddTexts(ctx context.Context, texts []string, metadatas []map[string]any) ([]string, error) {
	if len(metadatas) > 0 && len(metadatas) != len(texts) {
		return nil, fmt.Errorf("add texts: %d metadatas for %d texts: %w",
			len(metadatas), len(texts), ErrInvalidSchema)
	}
	docs := make([]Document, len(texts))
	for i, text := range texts {
		docs[i] = Document{Content: text}
		if len(metadatas) > 0 {
			docs[i].Metadata = metadatas[i]
		}
	}
	res, err := s.AddDocuments(ctx, docs)
	if err != nil {
		return nil, err
	}
	return res.IDs, nil
}

// AddDocuments embeds and stores documents. Empty IDs are generated.
// Nothing is written unless every text embeds successfully.
func (s *VectorStore) AddDocuments(ctx context.Context, docs []Document) (_ WriteResult, err error) {
	defer func(start time.Time) { s.c.obs.observe("add_texts", start, err) }(time.Now())
	dd, err := toDomainDocuments(docs, false)
	if err != nil {
		return WriteResult{}, fmt.Errorf("add documents: %w", err)
	}
	res, err := s.c.documents.AddTexts(ctx, s.tbl, dd)
	if err != nil {
		return WriteResult{}, fmt.Errorf("add documents: %w", err)
	}
	return WriteResult(res), nil
}

// AddVectors stores documents that already carry vectors of the table's size.
func (s *VectorStore) AddVectors(ctx context.Context, docs []Document) (_ WriteResult, err error) {
	defer func(start time.Time) { s.c.obs.observe("add_vectors", start, err) }(time.Now())
	dd, err := toDomainDocuments(docs, true)
	if err != nil {
		return WriteResult{}, fmt.Errorf("add vectors: %w", err)
	}
	res, err := s.c.documents.AddVectors(ctx, s.tbl, dd)
	if err != nil {
		return WriteResult{}, fmt.Errorf("add vectors: %w", err)
	}
	return WriteResult(res), nil
}

func toDomainDocuments(docs []Document, withVectors bool) ([]domdoc.Document, error) {
	out := make([]domdoc.Document, len(docs))
	for i, d := range docs {
		id := d.ID
		if id == "" {
			id = uuid.NewString()
		}
		doc, err := domdoc.New(id, d.Content, d.Metadata)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w: %w", i, err, ErrInvalidSchema)
		}
		if withVectors {
			if len(d.Vector) == 0 {
				return nil, fmt.Errorf("document %s: vector is required: %w", id, ErrInvalidSchema)
			}
			doc.SetVector(d.Vector)
		}
		out[i] = doc
	}
	return out, nil
}

// Delete removes documents by ID. Returns the backend job ID and the number
// of removed rows.
func (s *VectorStore) Delete(ctx context.Context, ids ...string) (jobID string, deleted int64, err error) {
	defer func(start time.Time) { s.c.obs.observe("delete", start, err) }(time.Now())
	jobID, deleted, err = s.c.documents.Delete(ctx, s.tbl.Ref(), ids)
	if err != nil {
		return "", 0, fmt.Errorf("delete: %w", err)
	}
	return jobID, deleted, nil
}

// SimilaritySearch embeds text and returns the k nearest documents.
// k <= 0 means 4.
func (s *VectorStore) SimilaritySearch(ctx context.Context, text string, k int, opts ...SearchOption) ([]SearchResult, error) {
	q := Query{Text: text, K: k}
	for _, o := range opts {
		o(&q)
	}
	page, err := s.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	return page.Results, nil
}

// SimilaritySearchByVector returns the k nearest documents to vector.
func (s *VectorStore) SimilaritySearchByVector(ctx context.Context, vector []float32, k int, opts ...SearchOption) ([]SearchResult, error) {
	q := Query{Vector: vector, K: k}
	for _, o := range opts {
		o(&q)
	}
	page, err := s.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	return page.Results, nil
}

// Search runs q and returns the results with the backend job ID.
func (s *VectorStore) Search(ctx context.Context, q Query) (_ SearchPage, err error) {
	defer func(start time.Time) { s.c.obs.observe("search", start, err) }(time.Now())

	expr, err := q.expression()
	if err != nil {
		return SearchPage{}, fmt.Errorf("search: %w: %w", err, ErrInvalidSchema)
	}
	req, err := request.New(q.Text, q.Vector, expr, q.K, q.MaxDistance, q.IncludeVectors, q.BruteForce)
	if err != nil {
		return SearchPage{}, fmt.Errorf("search: %w: %w", err, ErrInvalidSchema)
	}

	ctx, usage := domain.NewContextWithUsage(ctx)
	page, err := s.c.search.Search(ctx, s.tbl, &req)
	if err != nil {
		return SearchPage{}, fmt.Errorf("search: %w", err)
	}
	return toSearchPage(page, usage.TotalTokens()), nil
}

func toSearchPage(page result.Page, tokens int) SearchPage {
	out := SearchPage{Results: make([]SearchResult, len(page.Results)), JobID: page.JobID, Tokens: tokens}
	for i := range page.Results {
		r := &page.Results[i]
		out.Results[i] = SearchResult{
			ID:       r.ID(),
			Content:  r.Content(),
			Metadata: r.Metadata(),
			Distance: r.Distance(),
			Vector:   r.Vector(),
		}
	}
	return out
}

// CreateVectorIndex builds the ANN index once the table holds enough rows.
// Smaller tables are searched exactly and nothing is created. numLists <= 0
// lets the backend choose.
func (s *VectorStore) CreateVectorIndex(ctx context.Context, numLists int) (jobID string, created bool, err error) {
	defer func(start time.Time) { s.c.obs.observe("create_vector_index", start, err) }(time.Now())
	jobID, created, err = s.c.datasets.EnsureVectorIndex(ctx, s.tbl, s.c.minIndexRows, numLists)
	if err != nil {
		return "", false, fmt.Errorf("create vector index: %w", err)
	}
	return jobID, created, nil
}

// JobStats fetches statistics of a job run against this store's location.
func (s *VectorStore) JobStats(ctx context.Context, jobID string) (JobStats, error) {
	return s.c.JobStats(ctx, jobID, s.location)
}

// Query is a similarity search. Exactly one of Text or Vector is set.
type Query struct {
	Text   string
	Vector []float32
	// K is the number of results; 0 means 4, values above 500 are clamped.
	K int
	// Filter is an exact-match constraint on metadata keys, all of which must hold.
	Filter map[string]any
	// Must, Should and MustNot are combined with Filter. At least one Should
	// condition must hold when any are given.
	Must        []Condition
	Should      []Condition
	MustNot     []Condition
	MaxDistance *float64
	// IncludeVectors returns stored vectors with each result.
	IncludeVectors bool
	// BruteForce skips the ANN index and searches exactly.
	BruteForce bool
}

func (q *Query) expression() (filter.Expression, error) {
	fromMap, err := filter.FromMap(q.Filter)
	if err != nil {
		return filter.Expression{}, err
	}
	must, err := toConditions(q.Must)
	if err != nil {
		return filter.Expression{}, err
	}
	should, err := toConditions(q.Should)
	if err != nil {
		return filter.Expression{}, err
	}
	mustNot, err := toConditions(q.MustNot)
	if err != nil {
		return filter.Expression{}, err
	}
	return filter.NewExpression(append(fromMap.Must(), must...), should, mustNot)
}

// Condition is one metadata constraint: an exact match or a numeric range.
type Condition struct {
	Key   string
	Match any
	Range *Range
}

// Range bounds a numeric metadata value. Nil bounds are open.
type Range struct {
	GT, GTE, LT, LTE *float64
}

// Match returns an exact-match condition.
func Match(key string, v any) Condition { return Condition{Key: key, Match: v} }

// Between returns a condition holding when lo <= value <= hi.
func Between(key string, lo, hi float64) Condition {
	return Condition{Key: key, Range: &Range{GTE: &lo, LTE: &hi}}
}

// AtLeast returns a condition holding when value >= lo.
func AtLeast(key string, lo float64) Condition {
	return Condition{Key: key, Range: &Range{GTE: &lo}}
}

// AtMost returns a condition holding when value <= hi.
func AtMost(key string, hi float64) Condition {
	return Condition{Key: key, Range: &Range{LTE: &hi}}
}

func toConditions(cs []Condition) ([]filter.Condition, error) {
	out := make([]filter.Condition, 0, len(cs))
	for _, c := range cs {
		switch {
		case c.Range != nil && c.Match != nil:
			return nil, fmt.Errorf("condition %q: match and range are mutually exclusive", c.Key)
		case c.Range != nil:
			r, err := filter.NewRangeFilter(c.Range.GT, c.Range.GTE, c.Range.LT, c.Range.LTE)
			if err != nil {
				return nil, fmt.Errorf("condition %q: %w", c.Key, err)
			}
			cond, err := filter.NewRange(c.Key, r)
			if err != nil {
				return nil, err //nolint:wrapcheck // already names the key
			}
			out = append(out, cond)
		default:
			cond, err := filter.NewMatch(c.Key, c.Match)
			if err != nil {
				return nil, err //nolint:wrapcheck // already names the key
			}
			out = append(out, cond)
		}
	}
	return out, nil
}

// SearchOption refines SimilaritySearch and SimilaritySearchByVector.
type SearchOption func(*Query)

// WithFilter keeps only documents whose metadata equals every key/value in f.
// A document without one of the keys never matches.
func WithFilter(f map[string]any) SearchOption {
	return func(q *Query) {
		q.Filter = f
	}
}

// WithMust adds conditions that must all hold.
func WithMust(cs ...Condition) SearchOption {
	return func(q *Query) {
		q.Must = append(q.Must, cs...)
	}
}

// WithShould adds conditions of which at least one must hold.
func WithShould(cs ...Condition) SearchOption {
	return func(q *Query) {
		q.Should = append(q.Should, cs...)
	}
}

// WithMustNot adds conditions that must not hold.
func WithMustNot(cs ...Condition) SearchOption {
	return func(q *Query) {
		q.MustNot = append(q.MustNot, cs...)
	}
}

// WithMaxDistance drops results farther than d.
func WithMaxDistance(d float64) SearchOption {
	return func(q *Query) {
		q.MaxDistance = &d
	}
}

// WithVectors returns stored vectors with each result.
func WithVectors() SearchOption {
	return func(q *Query) {
		q.IncludeVectors = true
	}
}

// WithBruteForce skips the ANN index.
func WithBruteForce() SearchOption {
	return func(q *Query) {
		q.BruteForce = true
	}
}

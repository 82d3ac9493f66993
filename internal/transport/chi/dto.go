package chi

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/vecstore/internal/domain/distance"
	domdoc "github.com/kailas-cloud/vecstore/internal/domain/document"
	domjob "github.com/kailas-cloud/vecstore/internal/domain/job"
	"github.com/kailas-cloud/vecstore/internal/domain/search/filter"
	"github.com/kailas-cloud/vecstore/internal/domain/search/request"
	"github.com/kailas-cloud/vecstore/internal/domain/search/result"
	"github.com/kailas-cloud/vecstore/internal/domain/table"
	healthuc "github.com/kailas-cloud/vecstore/internal/usecase/health"
	usageuc "github.com/kailas-cloud/vecstore/internal/usecase/usage"
)

// ErrorCode is the machine-readable error kind in ErrorResponse.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest            ErrorCode = "bad_request"
	CodeUnauthorized          ErrorCode = "unauthorized"
	CodeValidationFailed      ErrorCode = "validation_failed"
	CodeNotFound              ErrorCode = "not_found"
	CodeAlreadyExists         ErrorCode = "already_exists"
	CodeSchemaMismatch        ErrorCode = "schema_mismatch"
	CodeVectorDimMismatch     ErrorCode = "vector_dim_mismatch"
	CodeRateLimited           ErrorCode = "rate_limited"
	CodeQuotaExceeded         ErrorCode = "embedding_quota_exceeded"
	CodeProviderError         ErrorCode = "embedding_provider_error"
	CodeProviderUnavailable   ErrorCode = "embedding_provider_unavailable"
	CodeEmbedderNotConfigured ErrorCode = "embedder_not_configured"
	CodeNotSupported          ErrorCode = "not_supported"
	CodeInternal              ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// EnsureDatasetRequest is the body of PUT /v1/datasets/{dataset}.
type EnsureDatasetRequest struct {
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
}

// DatasetResponse describes a dataset.
type DatasetResponse struct {
	Name        string `json:"name"`
	Location    string `json:"location"`
	Description string `json:"description,omitempty"`
	Created     bool   `json:"created"`
}

// FieldDTO declares a filterable metadata key.
type FieldDTO struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// EnsureTableRequest is the body of PUT /v1/datasets/{dataset}/tables/{table}.
type EnsureTableRequest struct {
	VectorDim        int        `json:"vector_dim"`
	DistanceStrategy string     `json:"distance_strategy,omitempty"`
	Fields           []FieldDTO `json:"fields,omitempty"`
	Description      string     `json:"description,omitempty"`
}

// TableResponse describes a vector table.
type TableResponse struct {
	Dataset          string     `json:"dataset"`
	Table            string     `json:"table"`
	VectorDim        int        `json:"vector_dim"`
	DistanceStrategy string     `json:"distance_strategy"`
	Fields           []FieldDTO `json:"fields,omitempty"`
	Rows             *int64     `json:"rows,omitempty"`
	Location         string     `json:"location,omitempty"`
}

// TextItem is one document to ingest. An empty ID is generated.
type TextItem struct {
	ID       string         `json:"id,omitempty"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Vector   []float32      `json:"vector,omitempty"`
}

// AddTextsRequest is the body of POST .../texts and POST .../vectors.
type AddTextsRequest struct {
	Items []TextItem `json:"items"`
}

// WriteResponse reports a completed write.
type WriteResponse struct {
	IDs    []string `json:"ids"`
	JobIDs []string `json:"job_ids,omitempty"`
}

// DeleteRequest is the body of DELETE .../documents.
type DeleteRequest struct {
	IDs []string `json:"ids"`
}

// DeleteResponse reports a completed delete.
type DeleteResponse struct {
	JobID   string `json:"job_id,omitempty"`
	Deleted int64  `json:"deleted"`
}

// RangeDTO bounds a numeric metadata value.
type RangeDTO struct {
	GT  *float64 `json:"gt,omitempty"`
	GTE *float64 `json:"gte,omitempty"`
	LT  *float64 `json:"lt,omitempty"`
	LTE *float64 `json:"lte,omitempty"`
}

// ConditionDTO is a single filter condition: match or range, not both.
type ConditionDTO struct {
	Key   string    `json:"key"`
	Match any       `json:"match,omitempty"`
	Range *RangeDTO `json:"range,omitempty"`
}

// FilterDTO groups conditions.
type FilterDTO struct {
	Must    []ConditionDTO `json:"must,omitempty"`
	Should  []ConditionDTO `json:"should,omitempty"`
	MustNot []ConditionDTO `json:"must_not,omitempty"`
}

// SearchRequest is the body of POST .../search.
// Filter is the exact-match shorthand; Filters the grouped form. They are exclusive.
type SearchRequest struct {
	Query          string         `json:"query,omitempty"`
	Vector         []float32      `json:"vector,omitempty"`
	Filter         map[string]any `json:"filter,omitempty"`
	Filters        *FilterDTO     `json:"filters,omitempty"`
	K              int            `json:"k,omitempty"`
	MaxDistance    *float64       `json:"max_distance,omitempty"`
	IncludeVectors bool           `json:"include_vectors,omitempty"`
	BruteForce     bool           `json:"brute_force,omitempty"`
}

// SearchResultItem is one hit.
type SearchResultItem struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Distance float64        `json:"distance"`
	Vector   []float32      `json:"vector,omitempty"`
}

// SearchResponse lists hits by ascending distance.
type SearchResponse struct {
	Items []SearchResultItem `json:"items"`
	Total int                `json:"total"`
	JobID string             `json:"job_id,omitempty"`
}

// EnsureIndexRequest is the body of POST .../index.
type EnsureIndexRequest struct {
	MinRows  *int64 `json:"min_rows,omitempty"`
	NumLists int    `json:"num_lists,omitempty"`
}

// EnsureIndexResponse reports whether an index build was started.
type EnsureIndexResponse struct {
	Created bool   `json:"created"`
	JobID   string `json:"job_id,omitempty"`
}

// JobResponse is the statistics of one backend job.
type JobResponse struct {
	ID                  string     `json:"id"`
	Kind                string     `json:"kind"`
	State               string     `json:"state"`
	CreatedAt           *time.Time `json:"created_at,omitempty"`
	StartedAt           *time.Time `json:"started_at,omitempty"`
	EndedAt             *time.Time `json:"ended_at,omitempty"`
	DurationMs          int64      `json:"duration_ms"`
	TotalBytesProcessed int64      `json:"total_bytes_processed"`
	TotalBytesBilled    int64      `json:"total_bytes_billed"`
	SlotMillis          int64      `json:"slot_millis"`
	CacheHit            bool       `json:"cache_hit"`
	InputRows           int64      `json:"input_rows"`
	OutputRows          int64      `json:"output_rows"`
	Error               string     `json:"error,omitempty"`
}

// UsageResponse is the embedding token budget for one period.
type UsageResponse struct {
	Period        string    `json:"period"`
	PeriodStartAt time.Time `json:"period_start_at"`
	PeriodEndAt   time.Time `json:"period_end_at"`
	TokensUsed    int64     `json:"tokens_used"`
	TokensLimit   int64     `json:"tokens_limit"`
	Remaining     int64     `json:"tokens_remaining"`
	IsExhausted   bool      `json:"is_exhausted"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// --- Converters ---

func tableFromRequest(ds, name string, req EnsureTableRequest) (table.Table, error) {
	strategy, err := distance.Parse(req.DistanceStrategy)
	if err != nil {
		return table.Table{}, err //nolint:wrapcheck // already descriptive
	}
	fields := make([]table.Field, 0, len(req.Fields))
	for _, f := range req.Fields {
		fld, err := table.NewField(f.Name, table.FieldType(f.Type))
		if err != nil {
			return table.Table{}, fmt.Errorf("field: %w", err)
		}
		fields = append(fields, fld)
	}
	tbl, err := table.New(ds, name, req.VectorDim, strategy, fields)
	if err != nil {
		return table.Table{}, fmt.Errorf("table: %w", err)
	}
	return tbl, nil
}

func tableToDTO(t table.Table) TableResponse {
	resp := TableResponse{
		Dataset:          t.Ref().Dataset,
		Table:            t.Ref().Table,
		VectorDim:        t.VectorDim(),
		DistanceStrategy: string(t.Strategy()),
	}
	for _, f := range t.Fields() {
		resp.Fields = append(resp.Fields, FieldDTO{Name: f.Name(), Type: string(f.Type())})
	}
	return resp
}

func snapshotToDTO(s table.Snapshot) TableResponse {
	resp := tableToDTO(s.Table)
	rows := s.Rows
	resp.Rows = &rows
	resp.Location = s.Location
	return resp
}

// documentsFromItems validates items and fills missing IDs with UUIDs.
func documentsFromItems(items []TextItem, withVectors bool) ([]domdoc.Document, error) {
	if len(items) == 0 {
		return nil, errors.New("items must not be empty")
	}
	docs := make([]domdoc.Document, 0, len(items))
	for i, it := range items {
		id := it.ID
		if id == "" {
			id = uuid.NewString()
		}
		doc, err := domdoc.New(id, it.Content, it.Metadata)
		if err != nil {
			return nil, fmt.Errorf("items[%d]: %w", i, err)
		}
		if withVectors {
			if len(it.Vector) == 0 {
				return nil, fmt.Errorf("items[%d]: vector is required", i)
			}
			doc.SetVector(it.Vector)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func searchRequestFromDTO(req SearchRequest) (request.Request, error) {
	if req.Filter != nil && req.Filters != nil {
		return request.Request{}, errors.New("filter and filters are mutually exclusive")
	}
	var expr filter.Expression
	var err error
	switch {
	case req.Filter != nil:
		expr, err = filter.FromMap(req.Filter)
	case req.Filters != nil:
		expr, err = filtersFromDTO(req.Filters)
	}
	if err != nil {
		return request.Request{}, err
	}
	r, err := request.New(req.Query, req.Vector, expr, req.K, req.MaxDistance, req.IncludeVectors, req.BruteForce)
	if err != nil {
		return request.Request{}, fmt.Errorf("search request: %w", err)
	}
	return r, nil
}

func filtersFromDTO(f *FilterDTO) (filter.Expression, error) {
	must, err := conditionsFromDTO(f.Must)
	if err != nil {
		return filter.Expression{}, err
	}
	should, err := conditionsFromDTO(f.Should)
	if err != nil {
		return filter.Expression{}, err
	}
	mustNot, err := conditionsFromDTO(f.MustNot)
	if err != nil {
		return filter.Expression{}, err
	}
	expr, err := filter.NewExpression(must, should, mustNot)
	if err != nil {
		return filter.Expression{}, fmt.Errorf("new expression: %w", err)
	}
	return expr, nil
}

func conditionsFromDTO(cs []ConditionDTO) ([]filter.Condition, error) {
	out := make([]filter.Condition, 0, len(cs))
	for _, c := range cs {
		cond, err := conditionFromDTO(c)
		if err != nil {
			return nil, err
		}
		out = append(out, cond)
	}
	return out, nil
}

func conditionFromDTO(c ConditionDTO) (filter.Condition, error) {
	switch {
	case c.Match != nil && c.Range != nil:
		return filter.Condition{}, fmt.Errorf("filter condition for %q must have match or range, not both", c.Key)
	case c.Match != nil:
		cond, err := filter.NewMatch(c.Key, c.Match)
		if err != nil {
			return filter.Condition{}, fmt.Errorf("match filter: %w", err)
		}
		return cond, nil
	case c.Range != nil:
		rf, err := filter.NewRangeFilter(c.Range.GT, c.Range.GTE, c.Range.LT, c.Range.LTE)
		if err != nil {
			return filter.Condition{}, fmt.Errorf("range filter: %w", err)
		}
		cond, err := filter.NewRange(c.Key, rf)
		if err != nil {
			return filter.Condition{}, fmt.Errorf("range condition: %w", err)
		}
		return cond, nil
	}
	return filter.Condition{}, errors.New("filter condition must have either match or range")
}

func searchResultToDTO(r *result.Result) SearchResultItem {
	return SearchResultItem{
		ID:       r.ID(),
		Content:  r.Content(),
		Metadata: r.Metadata(),
		Distance: r.Distance(),
		Vector:   r.Vector(),
	}
}

func jobToDTO(s *domjob.Stats) JobResponse {
	return JobResponse{
		ID:                  s.ID,
		Kind:                string(s.Kind),
		State:               string(s.State),
		CreatedAt:           timePtr(s.CreatedAt),
		StartedAt:           timePtr(s.StartedAt),
		EndedAt:             timePtr(s.EndedAt),
		DurationMs:          s.Duration().Milliseconds(),
		TotalBytesProcessed: s.TotalBytesProcessed,
		TotalBytesBilled:    s.TotalBytesBilled,
		SlotMillis:          s.SlotMillis,
		CacheHit:            s.CacheHit,
		InputRows:           s.InputRows,
		OutputRows:          s.OutputRows,
		Error:               s.Error,
	}
}

func usageToDTO(r usageuc.Report) UsageResponse {
	return UsageResponse{
		Period:        string(r.Period),
		PeriodStartAt: r.PeriodStart,
		PeriodEndAt:   r.PeriodEnd,
		TokensUsed:    r.Used,
		TokensLimit:   r.Limit,
		Remaining:     r.Remaining,
		IsExhausted:   r.Exhausted,
	}
}

func healthToDTO(r healthuc.Report) HealthResponse {
	checks := make(map[string]string, len(r.Checks))
	for k, v := range r.Checks {
		checks[k] = string(v)
	}
	return HealthResponse{Status: string(r.Status), Checks: checks}
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

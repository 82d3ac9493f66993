package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	gochi "github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecstore/internal/domain"
	domds "github.com/kailas-cloud/vecstore/internal/domain/dataset"
	"github.com/kailas-cloud/vecstore/internal/domain/table"
	logpkg "github.com/kailas-cloud/vecstore/internal/logger"
	datasetuc "github.com/kailas-cloud/vecstore/internal/usecase/dataset"
	documentuc "github.com/kailas-cloud/vecstore/internal/usecase/document"
	healthuc "github.com/kailas-cloud/vecstore/internal/usecase/health"
	jobuc "github.com/kailas-cloud/vecstore/internal/usecase/job"
	searchuc "github.com/kailas-cloud/vecstore/internal/usecase/search"
	usageuc "github.com/kailas-cloud/vecstore/internal/usecase/usage"
)

const maxItemsPerRequest = 1000

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the vector store workflow over HTTP.
type Server struct {
	datasets      *datasetuc.Service
	documents     *documentuc.Service
	search        *searchuc.Service
	jobs          *jobuc.Service
	usage         *usageuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	minIndexRows  int64
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	datasets *datasetuc.Service,
	documents *documentuc.Service,
	search *searchuc.Service,
	jobs *jobuc.Service,
	usage *usageuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		datasets:     datasets,
		documents:    documents,
		search:       search,
		jobs:         jobs,
		usage:        usage,
		health:       health,
		logger:       logger,
		minIndexRows: int64(domain.DefaultVectorConfig().MinIndexRows),
	}
	s.errorHandlers = []errorHandler{
		dimensionHandler,
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrAlreadyExists, http.StatusConflict, CodeAlreadyExists),
		sentinelHandler(domain.ErrSchemaMismatch, http.StatusConflict, CodeSchemaMismatch),
		sentinelHandler(domain.ErrInvalidSchema, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, CodeRateLimited),
		sentinelHandler(domain.ErrEmbeddingQuotaExceeded, http.StatusPaymentRequired, CodeQuotaExceeded),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeProviderError),
		sentinelHandler(domain.ErrEmbeddingUnavailable, http.StatusServiceUnavailable, CodeProviderUnavailable),
		sentinelHandler(domain.ErrEmbedderNotConfigured, http.StatusNotImplemented, CodeEmbedderNotConfigured),
		sentinelHandler(domain.ErrNotSupported, http.StatusNotImplemented, CodeNotSupported),
	}
	return s
}

// WithMinIndexRows overrides the row count below which POST .../index is a no-op.
func (s *Server) WithMinIndexRows(n int64) *Server {
	s.minIndexRows = n
	return s
}

// Routes registers every endpoint on r.
func (s *Server) Routes(r gochi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/v1", func(r gochi.Router) {
		r.Get("/usage", s.GetUsage)
		r.Get("/jobs/{job}", s.GetJob)

		r.Route("/datasets/{dataset}", func(r gochi.Router) {
			r.Put("/", s.EnsureDataset)
			r.Get("/", s.GetDataset)

			r.Route("/tables/{table}", func(r gochi.Router) {
				r.Put("/", s.EnsureTable)
				r.Get("/", s.GetTable)
				r.Post("/texts", s.AddTexts)
				r.Post("/vectors", s.AddVectors)
				r.Delete("/documents", s.DeleteDocuments)
				r.Post("/search", s.Search)
				r.Post("/index", s.EnsureIndex)
			})
		})
	})
}

// EnsureDataset handles PUT /v1/datasets/{dataset}.
func (s *Server) EnsureDataset(w http.ResponseWriter, r *http.Request) {
	var req EnsureDatasetRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	ds, err := domds.New(gochi.URLParam(r, "dataset"), req.Location, req.Description)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	created, err := s.datasets.EnsureDataset(r.Context(), ds)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, DatasetResponse{
		Name:        ds.Name(),
		Location:    ds.Location(),
		Description: ds.Description(),
		Created:     created,
	})
}

// GetDataset handles GET /v1/datasets/{dataset}.
func (s *Server) GetDataset(w http.ResponseWriter, r *http.Request) {
	ds, err := s.datasets.GetDataset(r.Context(), gochi.URLParam(r, "dataset"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DatasetResponse{
		Name:        ds.Name(),
		Location:    ds.Location(),
		Description: ds.Description(),
	})
}

// EnsureTable handles PUT /v1/datasets/{dataset}/tables/{table}.
func (s *Server) EnsureTable(w http.ResponseWriter, r *http.Request) {
	var req EnsureTableRequest
	if !decodeBody(w, r, &req) {
		return
	}
	want, err := tableFromRequest(gochi.URLParam(r, "dataset"), gochi.URLParam(r, "table"), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	tbl, err := s.datasets.EnsureTable(r.Context(), want, req.Description)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tableToDTO(tbl))
}

// GetTable handles GET /v1/datasets/{dataset}/tables/{table}.
func (s *Server) GetTable(w http.ResponseWriter, r *http.Request) {
	snap, err := s.datasets.Describe(r.Context(), tableRef(r))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshotToDTO(snap))
}

// AddTexts handles POST /v1/datasets/{dataset}/tables/{table}/texts.
func (s *Server) AddTexts(w http.ResponseWriter, r *http.Request) {
	s.addDocuments(w, r, false)
}

// AddVectors handles POST /v1/datasets/{dataset}/tables/{table}/vectors.
func (s *Server) AddVectors(w http.ResponseWriter, r *http.Request) {
	s.addDocuments(w, r, true)
}

func (s *Server) addDocuments(w http.ResponseWriter, r *http.Request, withVectors bool) {
	var req AddTextsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Items) > maxItemsPerRequest {
		writeError(w, http.StatusBadRequest, CodeValidationFailed,
			"too many items (max "+strconv.Itoa(maxItemsPerRequest)+")")
		return
	}
	docs, err := documentsFromItems(req.Items, withVectors)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	tbl, ok := s.resolveTable(w, r)
	if !ok {
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	var res documentuc.WriteResult
	if withVectors {
		res, err = s.documents.AddVectors(ctx, tbl, docs)
	} else {
		res, err = s.documents.AddTexts(ctx, tbl, docs)
	}
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusCreated, WriteResponse{IDs: res.IDs, JobIDs: res.JobIDs})
}

// DeleteDocuments handles DELETE /v1/datasets/{dataset}/tables/{table}/documents.
func (s *Server) DeleteDocuments(w http.ResponseWriter, r *http.Request) {
	var req DeleteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.IDs) > maxItemsPerRequest {
		writeError(w, http.StatusBadRequest, CodeValidationFailed,
			"too many ids (max "+strconv.Itoa(maxItemsPerRequest)+")")
		return
	}

	jobID, deleted, err := s.documents.Delete(r.Context(), tableRef(r), req.IDs)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteResponse{JobID: jobID, Deleted: deleted})
}

// Search handles POST /v1/datasets/{dataset}/tables/{table}/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	searchReq, err := searchRequestFromDTO(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	tbl, ok := s.resolveTable(w, r)
	if !ok {
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	page, err := s.search.Search(ctx, tbl, &searchReq)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]SearchResultItem, len(page.Results))
	for i := range page.Results {
		items[i] = searchResultToDTO(&page.Results[i])
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, SearchResponse{Items: items, Total: len(items), JobID: page.JobID})
}

// EnsureIndex handles POST /v1/datasets/{dataset}/tables/{table}/index.
func (s *Server) EnsureIndex(w http.ResponseWriter, r *http.Request) {
	var req EnsureIndexRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	minRows := s.minIndexRows
	if req.MinRows != nil {
		minRows = *req.MinRows
	}

	tbl, ok := s.resolveTable(w, r)
	if !ok {
		return
	}

	jobID, created, err := s.datasets.EnsureVectorIndex(r.Context(), tbl, minRows, req.NumLists)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusAccepted
	}
	writeJSON(w, status, EnsureIndexResponse{Created: created, JobID: jobID})
}

// GetJob handles GET /v1/jobs/{job}?location=.
func (s *Server) GetJob(w http.ResponseWriter, r *http.Request) {
	stats, err := s.jobs.Stats(r.Context(), gochi.URLParam(r, "job"), r.URL.Query().Get("location"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jobToDTO(&stats))
}

// GetUsage handles GET /v1/usage?period=day|month.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	period, err := usageuc.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, usageToDTO(s.usage.GetReport(r.Context(), period)))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, healthToDTO(report))
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// resolveTable loads the stored table the request addresses.
func (s *Server) resolveTable(w http.ResponseWriter, r *http.Request) (table.Table, bool) {
	snap, err := s.datasets.Describe(r.Context(), tableRef(r))
	if err != nil {
		s.handleDomainError(w, r, err)
		return table.Table{}, false
	}
	return snap.Table, true
}

func tableRef(r *http.Request) table.Ref {
	return table.Ref{Dataset: gochi.URLParam(r, "dataset"), Table: gochi.URLParam(r, "table")}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// decodeOptional accepts an empty body.
func decodeOptional(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil || r.Body == http.NoBody || r.ContentLength == 0 {
		return true
	}
	return decodeBody(w, r, v)
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage != nil && usage.Used() {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens()))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

var clientSentinels = []error{
	domain.ErrNotFound,
	domain.ErrAlreadyExists,
	domain.ErrSchemaMismatch,
	domain.ErrVectorDimMismatch,
	domain.ErrInvalidSchema,
	domain.ErrRateLimited,
	domain.ErrEmbeddingQuotaExceeded,
	domain.ErrEmbeddingProviderError,
	domain.ErrEmbeddingUnavailable,
	domain.ErrEmbedderNotConfigured,
	domain.ErrNotSupported,
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	for _, s := range clientSentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// dimensionHandler reports the expected and actual sizes of a dimension mismatch.
func dimensionHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrVectorDimMismatch) {
		return false
	}
	var de *domain.DimensionError
	if errors.As(err, &de) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"code":     CodeVectorDimMismatch,
			"message":  de.Error(),
			"expected": de.Expected,
			"actual":   de.Actual,
		})
		return true
	}
	writeError(w, http.StatusBadRequest, CodeVectorDimMismatch, msg)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContextOr(r.Context(), s.logger)
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternal, "internal error")
}

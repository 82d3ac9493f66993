package result

// Result is a single search hit. Lower distance means more similar.
type Result struct {
	id       string
	distance float64
	content  string
	metadata map[string]any
	vector   []float32
}

// New creates a search result.
func New(id string, distance float64, content string, metadata map[string]any, vector []float32) Result {
	return Result{id: id, distance: distance, content: content, metadata: metadata, vector: vector}
}

// ID returns the document identifier.
func (r *Result) ID() string { return r.id }

// Distance returns the distance to the query vector.
func (r *Result) Distance() float64 { return r.distance }

// Content returns the document content.
func (r *Result) Content() string { return r.content }

// Metadata returns the document metadata.
func (r *Result) Metadata() map[string]any { return r.metadata }

// Vector returns the document embedding vector, nil unless requested.
func (r *Result) Vector() []float32 { return r.vector }

// Page is an ordered result list plus the backend job that produced it.
type Page struct {
	Results []Result
	JobID   string
}

package document

import (
	"encoding/json"
	"fmt"
	"maps"
	"regexp"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_.:-]+$`)

// Document limits.
const (
	// MaxContentSize is the maximum document content size in bytes.
	MaxContentSize  = 163840 // 160KB
	MaxIDLength     = 256
	MaxMetadataKeys = 128
)

// Document is the unit of ingestion: text, metadata and (once embedded) a vector.
type Document struct {
	id       string
	content  string
	metadata map[string]any
	vector   []float32
}

// New validates and creates a Document.
// ID: ^[a-zA-Z0-9_.:-]+$, 1-256 chars. Content: non-empty, max 160KB.
// Metadata must be JSON-encodable.
func New(id, content string, metadata map[string]any) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("document ID is required")
	}
	if len(id) > MaxIDLength {
		return Document{}, fmt.Errorf("document ID too long (max %d)", MaxIDLength)
	}
	if !idRegex.MatchString(id) {
		return Document{}, fmt.Errorf("document ID %q contains invalid characters", id)
	}
	if content == "" {
		return Document{}, fmt.Errorf("content is required")
	}
	if len(content) > MaxContentSize {
		return Document{}, fmt.Errorf("content too large (max %d bytes)", MaxContentSize)
	}
	if len(metadata) > MaxMetadataKeys {
		return Document{}, fmt.Errorf("too many metadata keys (max %d)", MaxMetadataKeys)
	}
	for k := range metadata {
		if k == "" {
			return Document{}, fmt.Errorf("metadata key must not be empty")
		}
	}
	if _, err := json.Marshal(metadata); err != nil {
		return Document{}, fmt.Errorf("metadata is not JSON-encodable: %w", err)
	}

	return Document{
		id:       id,
		content:  content,
		metadata: maps.Clone(metadata),
	}, nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(id, content string, metadata map[string]any, vector []float32) Document {
	return Document{id: id, content: content, metadata: metadata, vector: vector}
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.id }

// Content returns the document text.
func (d *Document) Content() string { return d.content }

// Metadata returns the attached key/value pairs.
func (d *Document) Metadata() map[string]any { return d.metadata }

// Vector returns the embedding vector.
func (d *Document) Vector() []float32 { return d.vector }

// WithVector returns a copy with the given vector set.
func (d *Document) WithVector(v []float32) Document {
	return Document{id: d.id, content: d.content, metadata: d.metadata, vector: v}
}

// SetVector sets the vector in place.
func (d *Document) SetVector(v []float32) { d.vector = v }

// MetadataJSON encodes metadata as a JSON object ("{}" when empty).
func (d *Document) MetadataJSON() (string, error) {
	if len(d.metadata) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(d.metadata)
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}
	return string(b), nil
}

// DecodeMetadata parses a JSON object produced by MetadataJSON.
// Numbers come back as float64, matching encoding/json defaults.
func DecodeMetadata(raw string) (map[string]any, error) {
	if raw == "" || raw == "null" {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

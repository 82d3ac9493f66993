package table

import "fmt"

// FieldType is how a metadata key is indexed by schema-bound backends.
type FieldType string

// Field type constants.
const (
	// FieldTag is an exact-match string field.
	FieldTag     FieldType = "tag"
	FieldNumeric FieldType = "numeric"
)

var reservedFieldNames = map[string]bool{
	"doc_id": true, "content": true, "metadata": true, "embedding": true, "distance": true,
}

// Field declares a filterable metadata key.
type Field struct {
	name      string
	fieldType FieldType
}

// NewField validates and creates a Field.
func NewField(name string, ft FieldType) (Field, error) {
	if name == "" {
		return Field{}, fmt.Errorf("field name is required")
	}
	if len(name) > 64 {
		return Field{}, fmt.Errorf("field name %q too long (max 64)", name)
	}
	if reservedFieldNames[name] {
		return Field{}, fmt.Errorf("field name %q is reserved", name)
	}
	if ft != FieldTag && ft != FieldNumeric {
		return Field{}, fmt.Errorf("invalid field type %q for %q", ft, name)
	}
	return Field{name: name, fieldType: ft}, nil
}

// ReconstructField creates a Field without validation.
func ReconstructField(name string, ft FieldType) Field {
	return Field{name: name, fieldType: ft}
}

// Name returns the metadata key.
func (f Field) Name() string { return f.name }

// Type returns the indexing type.
func (f Field) Type() FieldType { return f.fieldType }

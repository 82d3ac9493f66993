package vecstore

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

const tagKey = "vecstore"

// schemaMeta holds parsed struct tag metadata, cached per TypedStore.
type schemaMeta struct {
	typ reflect.Type

	idIdx      int
	contentIdx int

	// Declared filter fields for table creation.
	fields []FieldInfo

	// Struct field index → metadata key.
	tagFields     []fieldMapping
	numericFields []fieldMapping
	plainFields   []fieldMapping
}

type fieldMapping struct {
	structIdx int
	name      string
}

// parseSchema reflects on T and extracts vecstore struct tag metadata.
//
//	type Fruit struct {
//		ID   string `vecstore:"id,id"`
//		Name string `vecstore:"name,content"`
//		Len  int    `vecstore:"len,numeric"`
//	}
func parseSchema[T any]() (*schemaMeta, error) {
	var zero T
	t := reflect.TypeOf(zero)
	if t == nil {
		return nil, fmt.Errorf("vecstore: type parameter must be a struct: %w", ErrInvalidSchema)
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("vecstore: type %s is not a struct: %w", t, ErrInvalidSchema)
	}

	meta := &schemaMeta{typ: t, idIdx: -1, contentIdx: -1}
	for i := range t.NumField() {
		f := t.Field(i)
		tag := f.Tag.Get(tagKey)
		if tag == "" || tag == "-" || !f.IsExported() {
			continue
		}
		if err := applyTag(meta, i, f, tag); err != nil {
			return nil, err
		}
	}
	return validateSchema(meta, t)
}

// applyTag processes a single struct field's vecstore tag.
func applyTag(meta *schemaMeta, idx int, f reflect.StructField, tag string) error {
	name, modifier, _ := strings.Cut(tag, ",")
	if name == "" {
		name = strings.ToLower(f.Name)
	}

	switch modifier {
	case "id":
		if meta.idIdx != -1 {
			return fmt.Errorf("vecstore: duplicate id tag on field %s: %w", f.Name, ErrInvalidSchema)
		}
		if f.Type.Kind() != reflect.String {
			return fmt.Errorf("vecstore: id field %s must be a string: %w", f.Name, ErrInvalidSchema)
		}
		meta.idIdx = idx
	case "content":
		if meta.contentIdx != -1 {
			return fmt.Errorf("vecstore: duplicate content tag on field %s: %w", f.Name, ErrInvalidSchema)
		}
		if f.Type.Kind() != reflect.String {
			return fmt.Errorf("vecstore: content field %s must be a string: %w", f.Name, ErrInvalidSchema)
		}
		meta.contentIdx = idx
	case "tag":
		meta.fields = append(meta.fields, FieldInfo{Name: name, Type: FieldTag})
		meta.tagFields = append(meta.tagFields, fieldMapping{structIdx: idx, name: name})
	case "numeric":
		if !isNumericKind(f.Type.Kind()) {
			return fmt.Errorf("vecstore: numeric field %s has kind %s: %w", f.Name, f.Type.Kind(), ErrInvalidSchema)
		}
		meta.fields = append(meta.fields, FieldInfo{Name: name, Type: FieldNumeric})
		meta.numericFields = append(meta.numericFields, fieldMapping{structIdx: idx, name: name})
	case "":
		// stored in metadata, not declared for filtering
		meta.plainFields = append(meta.plainFields, fieldMapping{structIdx: idx, name: name})
	default:
		return fmt.Errorf("vecstore: unknown modifier %q on field %s: %w", modifier, f.Name, ErrInvalidSchema)
	}
	return nil
}

func validateSchema(meta *schemaMeta, t reflect.Type) (*schemaMeta, error) {
	if meta.idIdx == -1 {
		return nil, fmt.Errorf("vecstore: no field with `vecstore:\"...,id\"` tag in %s: %w", t, ErrInvalidSchema)
	}
	if meta.contentIdx == -1 {
		return nil, fmt.Errorf("vecstore: no field with `vecstore:\"...,content\"` tag in %s: %w", t, ErrInvalidSchema)
	}
	return meta, nil
}

// storeOptions declares the schema's filter fields.
func (m *schemaMeta) storeOptions() []StoreOption {
	opts := make([]StoreOption, 0, len(m.fields))
	for _, f := range m.fields {
		opts = append(opts, WithFilterField(f.Name, f.Type))
	}
	return opts
}

// toDocument converts a typed struct to Document using schema metadata.
func (m *schemaMeta) toDocument(item any) Document {
	v := reflect.ValueOf(item)

	meta := make(map[string]any, len(m.tagFields)+len(m.numericFields)+len(m.plainFields))
	for _, tf := range m.tagFields {
		meta[tf.name] = fmt.Sprint(v.Field(tf.structIdx).Interface())
	}
	for _, nf := range m.numericFields {
		meta[nf.name] = toFloat64(v.Field(nf.structIdx))
	}
	for _, pf := range m.plainFields {
		meta[pf.name] = v.Field(pf.structIdx).Interface()
	}

	return Document{
		ID:       v.Field(m.idIdx).String(),
		Content:  v.Field(m.contentIdx).String(),
		Metadata: meta,
	}
}

// fromResult converts a search hit back to a typed struct.
// Metadata values that do not fit their field are left zero.
func (m *schemaMeta) fromResult(r SearchResult) any {
	v := reflect.New(m.typ).Elem()

	v.Field(m.idIdx).SetString(r.ID)
	v.Field(m.contentIdx).SetString(r.Content)
	for _, tf := range m.tagFields {
		if val, ok := r.Metadata[tf.name]; ok {
			setValue(v.Field(tf.structIdx), val)
		}
	}
	for _, nf := range m.numericFields {
		if val, ok := r.Metadata[nf.name]; ok {
			if f, ok := numberOf(val); ok {
				setFloat(v.Field(nf.structIdx), f)
			}
		}
	}
	for _, pf := range m.plainFields {
		if val, ok := r.Metadata[pf.name]; ok {
			setValue(v.Field(pf.structIdx), val)
		}
	}
	return v.Interface()
}

func isNumericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Float32, reflect.Float64,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	default:
		return false
	}
}

func toFloat64(v reflect.Value) float64 {
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return v.Float()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint())
	default:
		return 0
	}
}

func setFloat(v reflect.Value, f float64) {
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		v.SetFloat(f)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v.SetInt(int64(f))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if f >= 0 {
			v.SetUint(uint64(f))
		}
	}
}

// numberOf accepts the numeric shapes metadata takes after a storage round trip.
func numberOf(val any) (float64, bool) {
	rv := reflect.ValueOf(val)
	if rv.IsValid() && isNumericKind(rv.Kind()) {
		return toFloat64(rv), true
	}
	if s, ok := val.(string); ok {
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}

func setValue(field reflect.Value, val any) {
	if isNumericKind(field.Kind()) {
		if f, ok := numberOf(val); ok {
			setFloat(field, f)
		}
		return
	}
	if field.Kind() == reflect.String {
		field.SetString(fmt.Sprint(val))
		return
	}
	rv := reflect.ValueOf(val)
	if rv.IsValid() && rv.Type().ConvertibleTo(field.Type()) {
		field.Set(rv.Convert(field.Type()))
	}
}

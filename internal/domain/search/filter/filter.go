package filter

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
)

// MaxConditionsPerGroup is the maximum number of conditions per filter group.
const MaxConditionsPerGroup = 32

var keyRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,63}$`)

// ValidKey reports whether key can be used as a metadata filter key.
// Keys end up in JSON paths and index field names, so the alphabet is narrow.
func ValidKey(key string) bool { return keyRegex.MatchString(key) }

// Expression is a structured filter with must/should/must_not boolean semantics.
type Expression struct {
	must    []Condition
	should  []Condition
	mustNot []Condition
}

// NewExpression validates and creates a filter Expression.
func NewExpression(must, should, mustNot []Condition) (Expression, error) {
	if len(must) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("too many must conditions (max %d)", MaxConditionsPerGroup)
	}
	if len(should) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("too many should conditions (max %d)", MaxConditionsPerGroup)
	}
	if len(mustNot) > MaxConditionsPerGroup {
		return Expression{}, fmt.Errorf("too many must_not conditions (max %d)", MaxConditionsPerGroup)
	}
	return Expression{must: must, should: should, mustNot: mustNot}, nil
}

// FromMap builds an all-must exact-match expression, e.g. {"len": 6}.
// Conditions are ordered by key so generated queries are deterministic.
func FromMap(m map[string]any) (Expression, error) {
	if len(m) == 0 {
		return Expression{}, nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	must := make([]Condition, 0, len(keys))
	for _, k := range keys {
		c, err := NewMatch(k, m[k])
		if err != nil {
			return Expression{}, err
		}
		must = append(must, c)
	}
	return NewExpression(must, nil, nil)
}

// Must returns the must conditions.
func (e Expression) Must() []Condition { return e.must }

// Should returns the should conditions.
func (e Expression) Should() []Condition { return e.should }

// MustNot returns the must-not conditions.
func (e Expression) MustNot() []Condition { return e.mustNot }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool {
	return len(e.must) == 0 && len(e.should) == 0 && len(e.mustNot) == 0
}

// Conditions returns every condition across all groups.
func (e Expression) Conditions() []Condition {
	out := make([]Condition, 0, len(e.must)+len(e.should)+len(e.mustNot))
	out = append(out, e.must...)
	out = append(out, e.should...)
	return append(out, e.mustNot...)
}

// Matches evaluates the expression against a metadata map.
// All must, at least one should (when present), and no must_not condition has to hold.
func (e Expression) Matches(metadata map[string]any) bool {
	for _, c := range e.must {
		if !c.Matches(metadata) {
			return false
		}
	}
	if len(e.should) > 0 {
		if !slices.ContainsFunc(e.should, func(c Condition) bool { return c.Matches(metadata) }) {
			return false
		}
	}
	for _, c := range e.mustNot {
		if c.Matches(metadata) {
			return false
		}
	}
	return true
}

// Condition is a single filter clause: either an exact match or a numeric range.
type Condition struct {
	key       string
	match     *Value
	rangeExpr *Range
}

// NewMatch creates an exact match condition. v must be a string, bool or number.
func NewMatch(key string, v any) (Condition, error) {
	if !ValidKey(key) {
		return Condition{}, fmt.Errorf("invalid filter key %q", key)
	}
	val, err := ValueOf(v)
	if err != nil {
		return Condition{}, fmt.Errorf("filter %q: %w", key, err)
	}
	if val.Kind() == KindString && val.Text() == "" {
		return Condition{}, fmt.Errorf("match value is required for key %q", key)
	}
	return Condition{key: key, match: &val}, nil
}

// NewRange creates a numeric range condition.
func NewRange(key string, r Range) (Condition, error) {
	if !ValidKey(key) {
		return Condition{}, fmt.Errorf("invalid filter key %q", key)
	}
	return Condition{key: key, rangeExpr: &r}, nil
}

// Key returns the metadata key.
func (c Condition) Key() string { return c.key }

// Match returns the exact match value (zero Value for range conditions).
func (c Condition) Match() Value {
	if c.match == nil {
		return Value{}
	}
	return *c.match
}

// Range returns the numeric range expression.
func (c Condition) Range() *Range { return c.rangeExpr }

// IsMatch reports whether this is a match condition.
func (c Condition) IsMatch() bool { return c.match != nil }

// IsRange reports whether this is a range condition.
func (c Condition) IsRange() bool { return c.rangeExpr != nil }

// Matches evaluates the condition. A missing key never matches.
// Numbers compare numerically (numeric strings included); strings and
// bools compare on their canonical text, as a JSON_VALUE lookup would.
func (c Condition) Matches(metadata map[string]any) bool {
	raw, ok := metadata[c.key]
	if !ok || raw == nil {
		return false
	}
	if c.rangeExpr != nil {
		n, ok := asNumber(raw)
		return ok && c.rangeExpr.Contains(n)
	}
	if c.match == nil {
		return false
	}
	if c.match.kind == KindNumber {
		n, ok := asNumber(raw)
		return ok && n == c.match.num
	}
	text, ok := asText(raw)
	return ok && text == c.match.Text()
}

// Range is a numeric range with gt/gte/lt/lte boundaries.
type Range struct {
	gt  *float64
	gte *float64
	lt  *float64
	lte *float64
}

// NewRangeFilter validates and creates a Range.
// At least one boundary required. gt/gte and lt/lte are mutually exclusive.
func NewRangeFilter(gt, gte, lt, lte *float64) (Range, error) {
	if gt == nil && gte == nil && lt == nil && lte == nil {
		return Range{}, fmt.Errorf("at least one range boundary is required")
	}
	if gt != nil && gte != nil {
		return Range{}, fmt.Errorf("cannot specify both gt and gte")
	}
	if lt != nil && lte != nil {
		return Range{}, fmt.Errorf("cannot specify both lt and lte")
	}
	return Range{gt: gt, gte: gte, lt: lt, lte: lte}, nil
}

// GT returns the lower exclusive bound.
func (r Range) GT() *float64 { return r.gt }

// GTE returns the lower inclusive bound.
func (r Range) GTE() *float64 { return r.gte }

// LT returns the upper exclusive bound.
func (r Range) LT() *float64 { return r.lt }

// LTE returns the upper inclusive bound.
func (r Range) LTE() *float64 { return r.lte }

// Contains reports whether n lies within the range.
func (r Range) Contains(n float64) bool {
	if r.gt != nil && n <= *r.gt {
		return false
	}
	if r.gte != nil && n < *r.gte {
		return false
	}
	if r.lt != nil && n >= *r.lt {
		return false
	}
	if r.lte != nil && n > *r.lte {
		return false
	}
	return true
}

// ValueKind is the scalar type of a match value.
type ValueKind int

// Value kinds.
const (
	KindString ValueKind = iota
	KindNumber
	KindBool
)

// Value is a scalar filter operand.
type Value struct {
	kind ValueKind
	str  string
	num  float64
	b    bool
}

// ValueOf converts a Go scalar into a Value.
func ValueOf(v any) (Value, error) {
	switch x := v.(type) {
	case string:
		return Value{kind: KindString, str: x}, nil
	case bool:
		return Value{kind: KindBool, b: x}, nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", x, err)
		}
		return numberValue(f)
	}
	if f, ok := numeric(v); ok {
		return numberValue(f)
	}
	return Value{}, fmt.Errorf("unsupported filter value type %T", v)
}

func numberValue(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, fmt.Errorf("filter value must be finite")
	}
	return Value{kind: KindNumber, num: f}, nil
}

// Kind returns the scalar kind.
func (v Value) Kind() ValueKind { return v.kind }

// Number returns the numeric value (KindNumber only).
func (v Value) Number() float64 { return v.num }

// Bool returns the boolean value (KindBool only).
func (v Value) Bool() bool { return v.b }

// Text returns the canonical text form: strings as-is, numbers in shortest
// decimal notation, bools as "true"/"false".
func (v Value) Text() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return v.str
	}
}

// Interface returns the value as a plain Go scalar.
func (v Value) Interface() any {
	switch v.kind {
	case KindNumber:
		return v.num
	case KindBool:
		return v.b
	default:
		return v.str
	}
}

func numeric(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}

func asNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	}
	return numeric(v)
}

func asText(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case bool:
		return strconv.FormatBool(x), true
	case json.Number:
		return x.String(), true
	}
	if f, ok := numeric(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64), true
	}
	return "", false
}

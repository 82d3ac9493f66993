package filter

import (
	"encoding/json"
	"strings"
	"testing"
)

func floatPtr(f float64) *float64 { return &f }

// --- Range tests ---

func TestNewRangeFilter_Valid(t *testing.T) {
	tests := []struct {
		name             string
		gt, gte, lt, lte *float64
	}{
		{"gt only", floatPtr(1), nil, nil, nil},
		{"gte only", nil, floatPtr(0), nil, nil},
		{"lt only", nil, nil, floatPtr(10), nil},
		{"lte only", nil, nil, nil, floatPtr(100)},
		{"gt+lt", floatPtr(0), nil, floatPtr(10), nil},
		{"gte+lte", nil, floatPtr(0), nil, floatPtr(10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRangeFilter(tt.gt, tt.gte, tt.lt, tt.lte)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if (r.GT() == nil) != (tt.gt == nil) {
				t.Error("GT() mismatch")
			}
			if (r.GTE() == nil) != (tt.gte == nil) {
				t.Error("GTE() mismatch")
			}
			if (r.LT() == nil) != (tt.lt == nil) {
				t.Error("LT() mismatch")
			}
			if (r.LTE() == nil) != (tt.lte == nil) {
				t.Error("LTE() mismatch")
			}
		})
	}
}

func TestNewRangeFilter_NoBoundary(t *testing.T) {
	_, err := NewRangeFilter(nil, nil, nil, nil)
	if err == nil || !strings.Contains(err.Error(), "at least one") {
		t.Errorf("error = %v", err)
	}
}

func TestNewRangeFilter_Exclusive(t *testing.T) {
	if _, err := NewRangeFilter(floatPtr(1), floatPtr(1), nil, nil); err == nil {
		t.Error("expected error for gt+gte")
	}
	if _, err := NewRangeFilter(nil, nil, floatPtr(1), floatPtr(1)); err == nil {
		t.Error("expected error for lt+lte")
	}
}

func TestRange_Contains(t *testing.T) {
	r, _ := NewRangeFilter(floatPtr(4), nil, nil, floatPtr(6))
	tests := []struct {
		n    float64
		want bool
	}{
		{4, false},
		{4.5, true},
		{6, true},
		{6.1, false},
	}
	for _, tt := range tests {
		if got := r.Contains(tt.n); got != tt.want {
			t.Errorf("Contains(%v) = %v, want %v", tt.n, got, tt.want)
		}
	}
}

// --- Value tests ---

func TestValueOf(t *testing.T) {
	tests := []struct {
		name     string
		in       any
		wantKind ValueKind
		wantText string
	}{
		{"string", "fruit", KindString, "fruit"},
		{"int", 6, KindNumber, "6"},
		{"int64", int64(-3), KindNumber, "-3"},
		{"float", 2.5, KindNumber, "2.5"},
		{"float32", float32(0.5), KindNumber, "0.5"},
		{"json number", json.Number("6"), KindNumber, "6"},
		{"bool", true, KindBool, "true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ValueOf(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if v.Kind() != tt.wantKind {
				t.Errorf("Kind() = %v, want %v", v.Kind(), tt.wantKind)
			}
			if v.Text() != tt.wantText {
				t.Errorf("Text() = %q, want %q", v.Text(), tt.wantText)
			}
		})
	}
}

func TestValueOf_Unsupported(t *testing.T) {
	for _, in := range []any{nil, []int{1}, map[string]any{}, struct{}{}} {
		if _, err := ValueOf(in); err == nil {
			t.Errorf("ValueOf(%#v): expected error", in)
		}
	}
}

// --- Condition tests ---

func TestNewMatch_InvalidKey(t *testing.T) {
	for _, key := range []string{"", "1len", "a-b", "a.b", "$.x", strings.Repeat("k", 65)} {
		if _, err := NewMatch(key, "v"); err == nil {
			t.Errorf("NewMatch(%q): expected error", key)
		}
	}
}

func TestNewMatch_EmptyString(t *testing.T) {
	if _, err := NewMatch("color", ""); err == nil {
		t.Fatal("expected error for empty match value")
	}
}

func TestCondition_Matches(t *testing.T) {
	meta := map[string]any{
		"len":    6,
		"lenStr": "6",
		"name":   "Banana",
		"ripe":   true,
		"weight": json.Number("1.5"),
		"nil":    nil,
	}
	tests := []struct {
		name  string
		key   string
		value any
		want  bool
	}{
		{"number equals int", "len", 6, true},
		{"number equals float", "len", 6.0, true},
		{"number differs", "len", 5, false},
		{"number matches numeric string", "lenStr", 6, true},
		{"string matches number text", "len", "6", true},
		{"string equals", "name", "Banana", true},
		{"string is case sensitive", "name", "banana", false},
		{"bool equals", "ripe", true, true},
		{"bool differs", "ripe", false, false},
		{"json number", "weight", 1.5, true},
		{"missing key", "color", "red", false},
		{"nil value", "nil", "x", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewMatch(tt.key, tt.value)
			if err != nil {
				t.Fatalf("NewMatch: %v", err)
			}
			if got := c.Matches(meta); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCondition_RangeMatches(t *testing.T) {
	r, _ := NewRangeFilter(nil, floatPtr(5), nil, nil)
	c, err := NewRange("len", r)
	if err != nil {
		t.Fatalf("NewRange: %v", err)
	}
	if !c.IsRange() || c.IsMatch() {
		t.Fatal("expected range condition")
	}
	if !c.Matches(map[string]any{"len": 9}) {
		t.Error("9 should satisfy len >= 5")
	}
	if c.Matches(map[string]any{"len": "short"}) {
		t.Error("non-numeric value should not match a range")
	}
	if c.Matches(map[string]any{}) {
		t.Error("missing key should not match")
	}
}

// --- Expression tests ---

func mustMatch(t *testing.T, key string, v any) Condition {
	t.Helper()
	c, err := NewMatch(key, v)
	if err != nil {
		t.Fatalf("NewMatch(%q): %v", key, err)
	}
	return c
}

func TestFromMap(t *testing.T) {
	expr, err := FromMap(map[string]any{"len": 6, "kind": "fruit"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	must := expr.Must()
	if len(must) != 2 {
		t.Fatalf("expected 2 must conditions, got %d", len(must))
	}
	if must[0].Key() != "kind" || must[1].Key() != "len" {
		t.Errorf("conditions not sorted by key: %s, %s", must[0].Key(), must[1].Key())
	}
	if must[1].Match().Number() != 6 {
		t.Errorf("len match = %v, want 6", must[1].Match().Number())
	}
}

func TestFromMap_Empty(t *testing.T) {
	expr, err := FromMap(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !expr.IsEmpty() {
		t.Error("expected empty expression")
	}
}

func TestFromMap_InvalidValue(t *testing.T) {
	if _, err := FromMap(map[string]any{"len": []int{6}}); err == nil {
		t.Fatal("expected error for slice value")
	}
}

func TestNewExpression_TooMany(t *testing.T) {
	conds := make([]Condition, MaxConditionsPerGroup+1)
	if _, err := NewExpression(conds, nil, nil); err == nil {
		t.Error("expected error for too many must")
	}
	if _, err := NewExpression(nil, conds, nil); err == nil {
		t.Error("expected error for too many should")
	}
	if _, err := NewExpression(nil, nil, conds); err == nil {
		t.Error("expected error for too many must_not")
	}
}

func TestExpression_Matches(t *testing.T) {
	texts := map[string]map[string]any{
		"Apples and oranges": {"len": 18},
		"Cars and airplanes": {"len": 18},
		"Pineapple":          {"len": 9},
		"Train":              {"len": 5},
		"Banana":             {"len": 6},
	}

	expr, err := FromMap(map[string]any{"len": 6})
	if err != nil {
		t.Fatalf("FromMap: %v", err)
	}
	var matched []string
	for text, meta := range texts {
		if expr.Matches(meta) {
			matched = append(matched, text)
		}
	}
	if len(matched) != 1 || matched[0] != "Banana" {
		t.Errorf("matched = %v, want [Banana]", matched)
	}
}

func TestExpression_ShouldAndMustNot(t *testing.T) {
	expr, err := NewExpression(
		nil,
		[]Condition{mustMatch(t, "kind", "fruit"), mustMatch(t, "kind", "vehicle")},
		[]Condition{mustMatch(t, "len", 5)},
	)
	if err != nil {
		t.Fatalf("NewExpression: %v", err)
	}

	tests := []struct {
		name string
		meta map[string]any
		want bool
	}{
		{"first should", map[string]any{"kind": "fruit", "len": 6}, true},
		{"second should", map[string]any{"kind": "vehicle", "len": 18}, true},
		{"no should", map[string]any{"kind": "other"}, false},
		{"must_not hit", map[string]any{"kind": "vehicle", "len": 5}, false},
		{"missing must_not key passes", map[string]any{"kind": "fruit"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := expr.Matches(tt.meta); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExpression_EmptyMatchesAll(t *testing.T) {
	var expr Expression
	if !expr.Matches(nil) {
		t.Error("empty expression should match everything")
	}
	if len(expr.Conditions()) != 0 {
		t.Error("expected no conditions")
	}
}

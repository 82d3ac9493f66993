package bigquery

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"cloud.google.com/go/bigquery"

	"github.com/kailas-cloud/vecstore/internal/db"
	"github.com/kailas-cloud/vecstore/internal/domain/distance"
	"github.com/kailas-cloud/vecstore/internal/domain/search/filter"
)

const paramQueryVector = "query_vector"

var indexNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,127}$`)

func distanceType(st distance.Strategy) (string, error) {
	switch st {
	case distance.Euclidean, "":
		return "EUCLIDEAN", nil
	case distance.Cosine:
		return "COSINE", nil
	case distance.DotProduct:
		return "DOT_PRODUCT", nil
	default:
		return "", fmt.Errorf("unsupported distance strategy %q", st)
	}
}

// buildSearchSQL renders a VECTOR_SEARCH query. User-supplied values travel
// as query parameters; only validated identifiers and integers are inlined.
func buildSearchSQL(table string, q *db.KNNQuery) (string, []bigquery.QueryParameter, error) {
	dt, err := distanceType(q.Distance)
	if err != nil {
		return "", nil, err
	}
	if q.K <= 0 {
		return "", nil, fmt.Errorf("k must be positive")
	}

	p := &params{}
	p.list = append(p.list, bigquery.QueryParameter{Name: paramQueryVector, Value: toFloat64(q.Vector)})

	where, err := buildWhere(q.Filters, p)
	if err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	sb.WriteString("SELECT base.doc_id AS doc_id, base.content AS content, ")
	sb.WriteString("TO_JSON_STRING(base.metadata) AS metadata, distance")
	if q.IncludeVector {
		sb.WriteString(", base.embedding AS embedding")
	}
	sb.WriteString("\nFROM VECTOR_SEARCH(\n  (SELECT doc_id, content, metadata, embedding FROM ")
	sb.WriteString(table)
	if where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}
	sb.WriteString("),\n  'embedding',\n  (SELECT @" + paramQueryVector + " AS embedding),\n")
	sb.WriteString("  top_k => " + strconv.Itoa(q.K) + ",\n")
	sb.WriteString("  distance_type => '" + dt + "'")
	if q.BruteForce {
		sb.WriteString(",\n  options => '{\"use_brute_force\":true}'")
	}
	sb.WriteString("\n)\nORDER BY distance, doc_id")

	return sb.String(), p.list, nil
}

type params struct {
	list []bigquery.QueryParameter
	n    int
}

// add registers a positional filter parameter and returns its placeholder.
func (p *params) add(v any) string {
	name := "f" + strconv.Itoa(p.n)
	p.n++
	p.list = append(p.list, bigquery.QueryParameter{Name: name, Value: v})
	return "@" + name
}

// buildWhere translates a filter into a boolean SQL expression. Every
// predicate is wrapped in IFNULL so a missing key evaluates to FALSE.
func buildWhere(expr filter.Expression, p *params) (string, error) {
	if expr.IsEmpty() {
		return "", nil
	}

	var parts []string
	for _, c := range expr.Must() {
		sql, err := buildCondition(c, p)
		if err != nil {
			return "", err
		}
		parts = append(parts, sql)
	}

	if len(expr.Should()) > 0 {
		should := make([]string, 0, len(expr.Should()))
		for _, c := range expr.Should() {
			sql, err := buildCondition(c, p)
			if err != nil {
				return "", err
			}
			should = append(should, sql)
		}
		parts = append(parts, "("+strings.Join(should, " OR ")+")")
	}

	for _, c := range expr.MustNot() {
		sql, err := buildCondition(c, p)
		if err != nil {
			return "", err
		}
		parts = append(parts, "NOT "+sql)
	}

	return strings.Join(parts, " AND "), nil
}

func buildCondition(c filter.Condition, p *params) (string, error) {
	// keys are restricted to [A-Za-z0-9_], which is safe inside a JSON path literal
	if !filter.ValidKey(c.Key()) {
		return "", fmt.Errorf("invalid filter key %q", c.Key())
	}
	text := fmt.Sprintf("JSON_VALUE(metadata, '$.%s')", c.Key())
	num := fmt.Sprintf("SAFE_CAST(%s AS FLOAT64)", text)

	if c.IsRange() {
		r := c.Range()
		var bounds []string
		if r.GT() != nil {
			bounds = append(bounds, num+" > "+p.add(*r.GT()))
		}
		if r.GTE() != nil {
			bounds = append(bounds, num+" >= "+p.add(*r.GTE()))
		}
		if r.LT() != nil {
			bounds = append(bounds, num+" < "+p.add(*r.LT()))
		}
		if r.LTE() != nil {
			bounds = append(bounds, num+" <= "+p.add(*r.LTE()))
		}
		return "IFNULL(" + strings.Join(bounds, " AND ") + ", FALSE)", nil
	}

	v := c.Match()
	if v.Kind() == filter.KindNumber {
		return "IFNULL(" + num + " = " + p.add(v.Number()) + ", FALSE)", nil
	}
	return "IFNULL(" + text + " = " + p.add(v.Text()) + ", FALSE)", nil
}

// buildIndexDDL renders CREATE VECTOR INDEX for the embedding column.
func buildIndexDDL(table string, def *db.VectorIndexDefinition) (string, error) {
	name := def.Name
	if name == "" {
		name = def.Ref.Table + "_embedding_idx"
	}
	if !indexNameRegex.MatchString(name) {
		return "", fmt.Errorf("invalid index name %q", name)
	}
	dt, err := distanceType(def.Distance)
	if err != nil {
		return "", err
	}
	if def.NumLists < 0 {
		return "", fmt.Errorf("num_lists must not be negative")
	}

	opts := "index_type = 'IVF', distance_type = '" + dt + "'"
	if def.NumLists > 0 {
		opts += fmt.Sprintf(", ivf_options = '{\"num_lists\": %d}'", def.NumLists)
	}
	return fmt.Sprintf("CREATE VECTOR INDEX IF NOT EXISTS %s ON %s(%s) OPTIONS(%s)",
		name, table, colEmbedding, opts), nil
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}

func toFloat32(v []float64) []float32 {
	if len(v) == 0 {
		return nil
	}
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}

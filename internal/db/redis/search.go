package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/vecstore/internal/db"
	"github.com/kailas-cloud/vecstore/internal/domain/distance"
	"github.com/kailas-cloud/vecstore/internal/domain/search/filter"
)

// SearchKNN runs a KNN vector similarity search via FT.SEARCH.
// Filters resolve against the table's current schema, which includes keys
// discovered by InsertRows. A filter that can never match (e.g. on a key no
// row carries) short-circuits to an empty result without querying.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if q.K <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}
	started := s.now()

	types := fieldTypes(q.Fields)
	if !q.Filters.IsEmpty() {
		meta, err := s.tableMeta(ctx, q.Table)
		if err != nil {
			return nil, err
		}
		for _, f := range meta.fields {
			types[f.Name] = f.Type
		}
	}

	var entries []db.SearchEntry
	filterStr, ok := buildFilter(q.Filters, types)
	if ok {
		raw, err := s.do(ctx, s.b().Arbitrary("FT.SEARCH").Args(knnArgs(q, filterStr)...).Build()).ToArray()
		if err != nil {
			if isRedisErr(err, "unknown index name") || isRedisErr(err, "no such index") {
				return nil, db.ErrTableNotFound
			}
			return nil, &db.Error{Op: db.OpFTSearch, Err: err}
		}
		entries, err = parseKNNResult(raw, q.Distance, q.IncludeVector)
		if err != nil {
			return nil, err
		}
	}

	jobID, err := s.recordJob(ctx, &db.JobStatus{
		Type:       db.JobTypeQuery,
		StartedAt:  started,
		InputRows:  1,
		OutputRows: int64(len(entries)),
	})
	if err != nil {
		return nil, err
	}
	return &db.SearchResult{JobID: jobID, Entries: entries}, nil
}

func knnArgs(q *db.KNNQuery, filterStr string) []string {
	knnPart := fmt.Sprintf("[KNN %d @%s $BLOB AS %s]", q.K, fieldVector, fieldDistance)
	queryStr := "*=>" + knnPart
	if filterStr != "" {
		queryStr = fmt.Sprintf("(%s)=>%s", filterStr, knnPart)
	}

	returnFields := []string{fieldDocID, fieldContent, fieldMetadata, fieldDistance}
	if q.IncludeVector {
		returnFields = append(returnFields, fieldVector)
	}

	args := []string{indexName(q.Table), queryStr, "RETURN", strconv.Itoa(len(returnFields))}
	args = append(args, returnFields...)
	return append(args,
		"LIMIT", "0", strconv.Itoa(q.K),
		"PARAMS", "2", "BLOB", vectorToBytes(q.Vector),
		"DIALECT", "2",
	)
}

// --- Result parsing ---

func parseKNNResult(raw []rueidis.RedisMessage, strategy distance.Strategy, withVector bool) ([]db.SearchEntry, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return nil, nil
	}

	entries := make([]db.SearchEntry, 0, total)
	// 2-stride: [total, key1, fields1, key2, fields2, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		fieldList, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}
		fields := parseFieldPairs(fieldList)

		entry := db.SearchEntry{
			ID:      fields[fieldDocID],
			Content: fields[fieldContent],
		}
		if entry.ID == "" {
			entry.ID = key[strings.LastIndexByte(key, ':')+1:]
		}
		if metaJSON := fields[fieldMetadata]; metaJSON != "" {
			if err := json.Unmarshal([]byte(metaJSON), &entry.Metadata); err != nil {
				return nil, fmt.Errorf("row %s: decode metadata: %w", entry.ID, err)
			}
		}
		if score, err := strconv.ParseFloat(fields[fieldDistance], 64); err == nil {
			entry.Distance = fromScore(score, strategy)
		}
		if withVector {
			entry.Vector = bytesToVector(fields[fieldVector])
		}
		entries = append(entries, entry)
	}

	slices.SortStableFunc(entries, func(a, b db.SearchEntry) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		}
		return 0
	})
	return entries, nil
}

// fromScore converts an FT vector score into the distance.Strategy scale:
// L2 scores are squared, IP scores are 1 - dot.
func fromScore(score float64, strategy distance.Strategy) float64 {
	switch strategy {
	case distance.Cosine:
		return score
	case distance.DotProduct:
		return score - 1
	default:
		return math.Sqrt(max(0, score))
	}
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// --- Filter building ---

// buildFilter translates filter.Expression into an FT.SEARCH pre-filter.
// ok=false means the expression can never match the indexed rows.
func buildFilter(expr filter.Expression, types map[string]db.FieldType) (string, bool) {
	if expr.IsEmpty() {
		return "", true
	}

	var parts []string

	for _, cond := range expr.Must() {
		c, ok := buildCondition(cond, types)
		if !ok {
			return "", false
		}
		parts = append(parts, c)
	}

	if len(expr.Should()) > 0 {
		should := make([]string, 0, len(expr.Should()))
		for _, cond := range expr.Should() {
			if c, ok := buildCondition(cond, types); ok {
				should = append(should, c)
			}
		}
		if len(should) == 0 {
			return "", false
		}
		parts = append(parts, "("+strings.Join(should, " | ")+")")
	}

	for _, cond := range expr.MustNot() {
		// a condition that can never match excludes nothing
		if c, ok := buildCondition(cond, types); ok {
			parts = append(parts, "-"+c)
		}
	}

	return strings.Join(parts, " "), true
}

func buildCondition(cond filter.Condition, types map[string]db.FieldType) (string, bool) {
	ft, known := types[cond.Key()]
	if !known {
		return "", false
	}
	field := fieldPrefix + cond.Key()

	if cond.IsRange() {
		if ft != db.FieldNumeric {
			return "", false
		}
		return buildNumericFilter(field, *cond.Range()), true
	}

	v := cond.Match()
	if ft == db.FieldNumeric {
		n, ok := numericText(v)
		if !ok {
			return "", false
		}
		return fmt.Sprintf("@%s:[%s %s]", field, n, n), true
	}
	return fmt.Sprintf("@%s:{%s}", field, tagEscaper.Replace(v.Text())), true
}

func buildNumericFilter(field string, r filter.Range) string {
	minBound := "-inf"
	maxBound := "+inf"

	if r.GT() != nil {
		minBound = fmt.Sprintf("(%g", *r.GT())
	} else if r.GTE() != nil {
		minBound = fmt.Sprintf("%g", *r.GTE())
	}

	if r.LT() != nil {
		maxBound = fmt.Sprintf("(%g", *r.LT())
	} else if r.LTE() != nil {
		maxBound = fmt.Sprintf("%g", *r.LTE())
	}

	return fmt.Sprintf("@%s:[%s %s]", field, minBound, maxBound)
}

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"|", "\\|",
	" ", "\\ ",
)

package redis

import (
	"strings"

	"github.com/kailas-cloud/vecstore/internal/db"
	"github.com/kailas-cloud/vecstore/internal/domain"
)

// Hash field names of a stored row. Metadata scalars are flattened next to
// them under fieldPrefix so FT.SEARCH can filter on them.
const (
	fieldDocID    = "__doc_id"
	fieldContent  = "__content"
	fieldMetadata = "__metadata"
	fieldVector   = "__vector"
	fieldDistance = "__distance"
	fieldPrefix   = "m_"
)

func datasetKey(name string) string {
	return domain.KeyPrefix + "ds:" + name
}

func tableKey(ref db.TableRef) string {
	return domain.KeyPrefix + "tbl:" + ref.Dataset + ":" + ref.Table
}

func tablePattern(dataset string) string {
	return domain.KeyPrefix + "tbl:" + dataset + ":*"
}

func rowPrefix(ref db.TableRef) string {
	return domain.KeyPrefix + "row:" + ref.Dataset + ":" + ref.Table + ":"
}

func rowKey(ref db.TableRef, id string) string {
	return rowPrefix(ref) + id
}

func indexName(ref db.TableRef) string {
	return domain.KeyPrefix + ref.Dataset + ":" + ref.Table
}

func jobKey(id string) string {
	return domain.KeyPrefix + "job:" + id
}

// refFromTableKey reverses tableKey.
func refFromTableKey(key string) (db.TableRef, bool) {
	rest, ok := strings.CutPrefix(key, domain.KeyPrefix+"tbl:")
	if !ok {
		return db.TableRef{}, false
	}
	ds, tbl, ok := strings.Cut(rest, ":")
	if !ok {
		return db.TableRef{}, false
	}
	return db.TableRef{Dataset: ds, Table: tbl}, true
}

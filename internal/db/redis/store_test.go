package redis

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/vecstore/internal/db"
	"github.com/kailas-cloud/vecstore/internal/domain/distance"
)

var testRef = db.TableRef{Dataset: "my_dataset", Table: "doc_and_vectors"}

func okResults(n int) []rueidis.RedisResult {
	out := make([]rueidis.RedisResult, n)
	for i := range out {
		out[i] = mock.Result(mock.RedisInt64(1))
	}
	return out
}

// expectJobRecord expects the HSET+EXPIRE pipeline written for every job.
func expectJobRecord(c *mock.Client) *gomock.Call {
	return c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, cmds ...rueidis.Completed) []rueidis.RedisResult {
			return okResults(len(cmds))
		})
}

func tableMetaReply(fields string) rueidis.RedisResult {
	return mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{
		"dim":      mock.RedisString("3"),
		"distance": mock.RedisString("EUCLIDEAN"),
		"fields":   mock.RedisString(fields),
	}))
}

// --- client.go tests ---

func TestPing_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewStore_RequiresAddrs(t *testing.T) {
	if _, err := NewStore(Config{}); err == nil {
		t.Fatal("expected error for empty addrs")
	}
}

// --- dataset.go tests ---

func TestCreateDataset_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	gomock.InOrder(
		c.EXPECT().
			Do(gomock.Any(), mock.Match("HSETNX", "vecstore:ds:my_dataset", "name", "my_dataset")).
			Return(mock.Result(mock.RedisInt64(1))),
		c.EXPECT().
			Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
				return cmd[0] == "HSET" && cmd[1] == "vecstore:ds:my_dataset" && slices.Contains(cmd, "US")
			})).
			Return(mock.Result(mock.RedisInt64(3))),
	)

	s := NewStoreForTest(c)
	err := s.CreateDataset(context.Background(), &db.DatasetDefinition{Name: "my_dataset", Location: "US"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateDataset_Exists(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "HSETNX" })).
		Return(mock.Result(mock.RedisInt64(0)))

	s := NewStoreForTest(c)
	err := s.CreateDataset(context.Background(), &db.DatasetDefinition{Name: "my_dataset"})
	if !errors.Is(err, db.ErrDatasetExists) {
		t.Errorf("expected ErrDatasetExists, got %v", err)
	}
}

func TestGetDataset(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("HGETALL", "vecstore:ds:my_dataset")).
		Return(mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{
			"name":       mock.RedisString("my_dataset"),
			"location":   mock.RedisString("EU"),
			"created_at": mock.RedisString("2026-01-02T03:04:05Z"),
		})))

	s := NewStoreForTest(c)
	info, err := s.GetDataset(context.Background(), "my_dataset")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Location != "EU" {
		t.Errorf("Location = %q, want EU", info.Location)
	}
	if !info.CreatedAt.Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Errorf("CreatedAt = %v", info.CreatedAt)
	}
}

func TestGetDataset_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("HGETALL", "vecstore:ds:missing")).
		Return(mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{})))

	s := NewStoreForTest(c)
	_, err := s.GetDataset(context.Background(), "missing")
	if !errors.Is(err, db.ErrDatasetNotFound) {
		t.Errorf("expected ErrDatasetNotFound, got %v", err)
	}
}

// --- table.go tests ---

func TestCreateTable_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var ftArgs []string
	gomock.InOrder(
		c.EXPECT().
			Do(gomock.Any(), mock.Match("EXISTS", "vecstore:ds:my_dataset")).
			Return(mock.Result(mock.RedisInt64(1))),
		c.EXPECT().
			Do(gomock.Any(), mock.Match("HSETNX", "vecstore:tbl:my_dataset:doc_and_vectors", "dim", "768")).
			Return(mock.Result(mock.RedisInt64(1))),
		c.EXPECT().
			Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
				if cmd[0] != "FT.CREATE" {
					return false
				}
				ftArgs = cmd
				return true
			})).
			Return(mock.Result(mock.RedisString("OK"))),
		c.EXPECT().
			Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
				return cmd[0] == "HSET" && cmd[1] == "vecstore:tbl:my_dataset:doc_and_vectors"
			})).
			Return(mock.Result(mock.RedisInt64(4))),
	)

	s := NewStoreForTest(c)
	err := s.CreateTable(context.Background(), &db.TableDefinition{
		Ref:       testRef,
		VectorDim: 768,
		Distance:  distance.Euclidean,
		Fields:    []db.FieldDef{{Name: "len", Type: db.FieldNumeric}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	joined := strings.Join(ftArgs, " ")
	for _, want := range []string{
		"vecstore:my_dataset:doc_and_vectors ON HASH",
		"PREFIX 1 vecstore:row:my_dataset:doc_and_vectors:",
		"m_len NUMERIC",
		"__vector VECTOR HNSW",
		"DISTANCE_METRIC L2",
		"DIM 768",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("FT.CREATE args missing %q: %s", want, joined)
		}
	}
}

func TestCreateTable_DatasetMissing(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("EXISTS", "vecstore:ds:my_dataset")).
		Return(mock.Result(mock.RedisInt64(0)))

	s := NewStoreForTest(c)
	err := s.CreateTable(context.Background(), &db.TableDefinition{Ref: testRef, VectorDim: 3})
	if !errors.Is(err, db.ErrDatasetNotFound) {
		t.Errorf("expected ErrDatasetNotFound, got %v", err)
	}
}

func TestCreateTable_IndexErrorRollsBack(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	gomock.InOrder(
		c.EXPECT().
			Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "EXISTS" })).
			Return(mock.Result(mock.RedisInt64(1))),
		c.EXPECT().
			Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "HSETNX" })).
			Return(mock.Result(mock.RedisInt64(1))),
		c.EXPECT().
			Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "FT.CREATE" })).
			Return(mock.ErrorResult(context.DeadlineExceeded)),
		c.EXPECT().
			Do(gomock.Any(), mock.Match("DEL", "vecstore:tbl:my_dataset:doc_and_vectors")).
			Return(mock.Result(mock.RedisInt64(1))),
	)

	s := NewStoreForTest(c)
	err := s.CreateTable(context.Background(), &db.TableDefinition{Ref: testRef, VectorDim: 3})
	if err == nil {
		t.Fatal("expected error")
	}
	if !isDBError(err) {
		t.Errorf("expected db.Error, got %T", err)
	}
}

func TestCreateTable_Exists(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	gomock.InOrder(
		c.EXPECT().
			Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "EXISTS" })).
			Return(mock.Result(mock.RedisInt64(1))),
		c.EXPECT().
			Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "HSETNX" })).
			Return(mock.Result(mock.RedisInt64(0))),
	)

	s := NewStoreForTest(c)
	err := s.CreateTable(context.Background(), &db.TableDefinition{Ref: testRef, VectorDim: 3})
	if !errors.Is(err, db.ErrTableExists) {
		t.Errorf("expected ErrTableExists, got %v", err)
	}
}

func TestGetTable(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	gomock.InOrder(
		c.EXPECT().
			Do(gomock.Any(), mock.Match("HGETALL", "vecstore:tbl:my_dataset:doc_and_vectors")).
			Return(tableMetaReply(`[{"Name":"len","Type":"numeric"}]`)),
		c.EXPECT().
			Do(gomock.Any(), mock.Match("FT.INFO", "vecstore:my_dataset:doc_and_vectors")).
			Return(mock.Result(mock.RedisArray(
				mock.RedisString("index_name"), mock.RedisString("vecstore:my_dataset:doc_and_vectors"),
				mock.RedisString("num_docs"), mock.RedisString("5"),
			))),
	)

	s := NewStoreForTest(c)
	info, err := s.GetTable(context.Background(), testRef)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.VectorDim != 3 || info.Distance != distance.Euclidean {
		t.Errorf("unexpected info %+v", info)
	}
	if info.Rows != 5 {
		t.Errorf("Rows = %d, want 5", info.Rows)
	}
	if len(info.Fields) != 1 || info.Fields[0].Type != db.FieldNumeric {
		t.Errorf("Fields = %+v", info.Fields)
	}
}

func TestGetTable_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "HGETALL" })).
		Return(mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{})))

	s := NewStoreForTest(c)
	_, err := s.GetTable(context.Background(), testRef)
	if !errors.Is(err, db.ErrTableNotFound) {
		t.Errorf("expected ErrTableNotFound, got %v", err)
	}
}

func TestDropTable(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	gomock.InOrder(
		c.EXPECT().
			Do(gomock.Any(), mock.Match("FT.DROPINDEX", "vecstore:my_dataset:doc_and_vectors", "DD")).
			Return(mock.Result(mock.RedisString("OK"))),
		c.EXPECT().
			Do(gomock.Any(), mock.Match("DEL", "vecstore:tbl:my_dataset:doc_and_vectors")).
			Return(mock.Result(mock.RedisInt64(1))),
	)

	s := NewStoreForTest(c)
	if err := s.DropTable(context.Background(), testRef); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateVectorIndex_NoOp(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("EXISTS", "vecstore:tbl:my_dataset:doc_and_vectors")).
		Return(mock.Result(mock.RedisInt64(1)))

	s := NewStoreForTest(c)
	jobID, err := s.CreateVectorIndex(context.Background(), &db.VectorIndexDefinition{Ref: testRef})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if jobID != "" {
		t.Errorf("jobID = %q, want empty", jobID)
	}
}

// --- rows.go tests ---

func TestInsertRows_AddsNewFields(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var written []string
	gomock.InOrder(
		c.EXPECT().
			Do(gomock.Any(), mock.Match("HGETALL", "vecstore:tbl:my_dataset:doc_and_vectors")).
			Return(tableMetaReply("")),
		c.EXPECT().
			Do(gomock.Any(), mock.Match(
				"FT.ALTER", "vecstore:my_dataset:doc_and_vectors", "SCHEMA", "ADD", "m_len", "NUMERIC",
			)).
			Return(mock.Result(mock.RedisString("OK"))),
		c.EXPECT().
			Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
				return cmd[0] == "HSET" && slices.Contains(cmd, `[{"Name":"len","Type":"numeric"}]`)
			})).
			Return(mock.Result(mock.RedisInt64(0))),
		c.EXPECT().
			DoMulti(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, cmds ...rueidis.Completed) []rueidis.RedisResult {
				for _, cmd := range cmds {
					written = append(written, strings.Join(cmd.Commands(), " "))
				}
				return okResults(len(cmds))
			}),
		expectJobRecord(c),
	)

	s := NewStoreForTest(c)
	res, err := s.InsertRows(context.Background(), testRef, []db.Row{
		{ID: "a", Content: "Banana", Metadata: map[string]any{"len": 6}, Vector: []float32{1, 2, 3}},
		{ID: "b", Content: "Train", Metadata: map[string]any{"len": 5}, Vector: []float32{3, 2, 1}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Affected != 2 {
		t.Errorf("Affected = %d, want 2", res.Affected)
	}
	if !strings.HasPrefix(res.JobID, "job_") {
		t.Errorf("JobID = %q", res.JobID)
	}
	if len(written) != 4 {
		t.Fatalf("expected DEL+HSET per row, got %v", written)
	}
	if !strings.HasPrefix(written[0], "DEL vecstore:row:my_dataset:doc_and_vectors:a") {
		t.Errorf("first command = %q", written[0])
	}
	if !strings.Contains(written[1], "m_len 6") {
		t.Errorf("flattened metadata missing: %q", written[1])
	}
}

func TestInsertRows_TableMissing(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "HGETALL" })).
		Return(mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{})))

	s := NewStoreForTest(c)
	_, err := s.InsertRows(context.Background(), testRef, []db.Row{{ID: "a"}})
	if !errors.Is(err, db.ErrTableNotFound) {
		t.Errorf("expected ErrTableNotFound, got %v", err)
	}
}

func TestDeleteRows(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	gomock.InOrder(
		c.EXPECT().
			Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "HGETALL" })).
			Return(tableMetaReply("")),
		c.EXPECT().
			Do(gomock.Any(), mock.Match(
				"DEL",
				"vecstore:row:my_dataset:doc_and_vectors:a",
				"vecstore:row:my_dataset:doc_and_vectors:b",
			)).
			Return(mock.Result(mock.RedisInt64(1))),
		expectJobRecord(c),
	)

	s := NewStoreForTest(c)
	res, err := s.DeleteRows(context.Background(), testRef, []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Affected != 1 {
		t.Errorf("Affected = %d, want 1", res.Affected)
	}
}

// --- search.go tests ---

func TestSearchKNN_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var query string
	gomock.InOrder(
		c.EXPECT().
			Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
				if cmd[0] != "FT.SEARCH" {
					return false
				}
				query = cmd[2]
				return cmd[1] == "vecstore:my_dataset:doc_and_vectors"
			})).
			Return(mock.Result(mock.RedisArray(
				mock.RedisInt64(2),
				mock.RedisString("vecstore:row:my_dataset:doc_and_vectors:b"),
				mock.RedisArray(
					mock.RedisString("__doc_id"), mock.RedisString("b"),
					mock.RedisString("__content"), mock.RedisString("Pineapple"),
					mock.RedisString("__metadata"), mock.RedisString(`{"len":9}`),
					mock.RedisString("__distance"), mock.RedisString("4"),
				),
				mock.RedisString("vecstore:row:my_dataset:doc_and_vectors:a"),
				mock.RedisArray(
					mock.RedisString("__doc_id"), mock.RedisString("a"),
					mock.RedisString("__content"), mock.RedisString("Banana"),
					mock.RedisString("__metadata"), mock.RedisString(`{"len":6}`),
					mock.RedisString("__distance"), mock.RedisString("1"),
				),
			))),
		expectJobRecord(c),
	)

	s := NewStoreForTest(c)
	res, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		Table:    testRef,
		Vector:   []float32{0.1, 0.2, 0.3},
		K:        4,
		Distance: distance.Euclidean,
		Fields:   []db.FieldDef{{Name: "len", Type: db.FieldNumeric}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if query != "*=>[KNN 4 @__vector $BLOB AS __distance]" {
		t.Errorf("query = %q", query)
	}
	if len(res.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(res.Entries))
	}
	// L2 scores are squared; results come back closest first.
	if res.Entries[0].ID != "a" || res.Entries[0].Distance != 1 {
		t.Errorf("first entry = %+v", res.Entries[0])
	}
	if res.Entries[1].Distance != 2 {
		t.Errorf("second distance = %f, want 2", res.Entries[1].Distance)
	}
	if res.Entries[0].Metadata["len"] != float64(6) {
		t.Errorf("metadata = %v", res.Entries[0].Metadata)
	}
	if res.JobID == "" {
		t.Error("expected a job ID")
	}
}

func TestSearchKNN_UnknownFilterFieldSkipsQuery(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	gomock.InOrder(
		c.EXPECT().
			Do(gomock.Any(), mock.Match("HGETALL", "vecstore:tbl:my_dataset:doc_and_vectors")).
			Return(tableMetaReply(`[{"Name":"len","Type":"numeric"}]`)),
		expectJobRecord(c),
	)

	s := NewStoreForTest(c)
	res, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		Table:   testRef,
		Vector:  []float32{0.1},
		K:       4,
		Filters: mustFilter(t, map[string]any{"color": "red"}),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Entries) != 0 {
		t.Errorf("expected no entries, got %d", len(res.Entries))
	}
}

func TestSearchKNN_FilterOnDiscoveredField(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	var query string
	gomock.InOrder(
		c.EXPECT().
			Do(gomock.Any(), mock.Match("HGETALL", "vecstore:tbl:my_dataset:doc_and_vectors")).
			Return(tableMetaReply(`[{"Name":"len","Type":"numeric"}]`)),
		c.EXPECT().
			Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
				if cmd[0] != "FT.SEARCH" {
					return false
				}
				query = cmd[2]
				return true
			})).
			Return(mock.Result(mock.RedisArray(
				mock.RedisInt64(1),
				mock.RedisString("vecstore:row:my_dataset:doc_and_vectors:e"),
				mock.RedisArray(
					mock.RedisString("__doc_id"), mock.RedisString("e"),
					mock.RedisString("__content"), mock.RedisString("Banana"),
					mock.RedisString("__metadata"), mock.RedisString(`{"len":6}`),
					mock.RedisString("__distance"), mock.RedisString("25"),
				),
			))),
		expectJobRecord(c),
	)

	// The store handle was opened before any row carried "len", so the
	// query declares no fields; the live schema supplies the type.
	s := NewStoreForTest(c)
	res, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		Table:    testRef,
		Vector:   []float32{11, 1, 0},
		K:        4,
		Distance: distance.Euclidean,
		Filters:  mustFilter(t, map[string]any{"len": 6}),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if query != "(@m_len:[6 6])=>[KNN 4 @__vector $BLOB AS __distance]" {
		t.Errorf("query = %q", query)
	}
	if len(res.Entries) != 1 || res.Entries[0].Content != "Banana" {
		t.Fatalf("entries = %+v, want only Banana", res.Entries)
	}
}

func TestSearchKNN_FilterTableMissing(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "HGETALL" })).
		Return(mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{})))

	s := NewStoreForTest(c)
	_, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		Table:   testRef,
		Vector:  []float32{0.1},
		K:       4,
		Filters: mustFilter(t, map[string]any{"len": 6}),
	})
	if !errors.Is(err, db.ErrTableNotFound) {
		t.Errorf("expected ErrTableNotFound, got %v", err)
	}
}

func TestSearchKNN_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "FT.SEARCH" })).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	_, err := s.SearchKNN(context.Background(), &db.KNNQuery{Table: testRef, Vector: []float32{0.1}, K: 4})
	if !isDBError(err) {
		t.Errorf("expected db.Error, got %v", err)
	}
}

func TestSearchKNN_UnknownIndex(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "FT.SEARCH" })).
		Return(mock.Result(mock.RedisError("Unknown Index name")))

	s := NewStoreForTest(c)
	_, err := s.SearchKNN(context.Background(), &db.KNNQuery{Table: testRef, Vector: []float32{0.1}, K: 4})
	if !errors.Is(err, db.ErrTableNotFound) {
		t.Errorf("expected ErrTableNotFound, got %v", err)
	}
}

func TestSearchKNN_Validation(t *testing.T) {
	s := &Store{}
	ctx := context.Background()

	if _, err := s.SearchKNN(ctx, &db.KNNQuery{K: 10}); err == nil {
		t.Error("expected error for empty vector")
	}
	if _, err := s.SearchKNN(ctx, &db.KNNQuery{Vector: []float32{0.1}, K: 0}); err == nil {
		t.Error("expected error for k=0")
	}
}

// --- jobs.go tests ---

func TestJobStatus(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("HGETALL", "vecstore:job:job_1")).
		Return(mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{
			"type":        mock.RedisString("load"),
			"state":       mock.RedisString("DONE"),
			"started_at":  mock.RedisString("2026-01-02T03:04:05Z"),
			"ended_at":    mock.RedisString("2026-01-02T03:04:06Z"),
			"input_rows":  mock.RedisString("5"),
			"output_rows": mock.RedisString("5"),
		})))

	s := NewStoreForTest(c)
	st, err := s.JobStatus(context.Background(), "job_1", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Type != db.JobTypeLoad || st.State != db.JobStateDone {
		t.Errorf("unexpected status %+v", st)
	}
	if st.OutputRows != 5 {
		t.Errorf("OutputRows = %d, want 5", st.OutputRows)
	}
	if st.EndedAt.Sub(st.StartedAt) != time.Second {
		t.Errorf("duration = %v", st.EndedAt.Sub(st.StartedAt))
	}
}

func TestJobStatus_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("HGETALL", "vecstore:job:nope")).
		Return(mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{})))

	s := NewStoreForTest(c)
	_, err := s.JobStatus(context.Background(), "nope", "")
	if !errors.Is(err, db.ErrJobNotFound) {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}

// --- kv.go tests ---

func TestGet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "mykey")).
		Return(mock.Result(mock.RedisBlobString("value")))

	s := NewStoreForTest(c)
	data, err := s.Get(context.Background(), "mykey")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "value" {
		t.Errorf("unexpected data: %s", data)
	}
}

func TestGet_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "mykey")).
		Return(mock.Result(mock.RedisNil()))

	s := NewStoreForTest(c)
	_, err := s.Get(context.Background(), "mykey")
	if !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestSetWithTTL_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "SET" && cmd[1] == "mykey" && cmd[2] == "myvalue"
		})).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c)
	if err := s.SetWithTTL(context.Background(), "mykey", []byte("myvalue"), time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestIncrBy_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("INCRBY", "counter", "5")).
		Return(mock.Result(mock.RedisInt64(5)))

	s := NewStoreForTest(c)
	if err := s.IncrBy(context.Background(), "counter", 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExpire_WithNX(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "EXPIRE" && cmd[1] == "mykey" && slices.Contains(cmd, "NX")
		})).
		Return(mock.Result(mock.RedisInt64(1)))

	s := NewStoreForTest(c)
	if err := s.Expire(context.Background(), "mykey", 5*time.Minute, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func isDBError(err error) bool {
	var dbErr *db.Error
	return errors.As(err, &dbErr)
}

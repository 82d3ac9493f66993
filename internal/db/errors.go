package db

import "errors"

// Sentinel errors for database operations.
var (
	ErrKeyNotFound     = errors.New("db: key not found")
	ErrDatasetNotFound = errors.New("db: dataset not found")
	ErrDatasetExists   = errors.New("db: dataset already exists")
	ErrTableNotFound   = errors.New("db: table not found")
	ErrTableExists     = errors.New("db: table already exists")
	ErrJobNotFound     = errors.New("db: job not found")
	ErrIndexExists     = errors.New("db: index already exists")
	ErrSchemaMismatch  = errors.New("db: table schema mismatch")
)

// Op constants name the failing backend operation for error context.
const (
	OpCreateDataset = "create dataset"
	OpGetDataset    = "get dataset"
	OpDeleteDataset = "delete dataset"
	OpCreateTable   = "create table"
	OpGetTable      = "get table"
	OpDropTable     = "drop table"
	OpCreateIndex   = "create vector index"
	OpInsert        = "insert rows"
	OpDelete        = "delete rows"
	OpSearch        = "vector search"
	OpJobStatus     = "job status"

	OpFTCreate = "FT.CREATE"
	OpFTAlter  = "FT.ALTER"
	OpFTDrop   = "FT.DROPINDEX"
	OpFTInfo   = "FT.INFO"
	OpFTSearch = "FT.SEARCH"
	OpDel      = "DEL"
	OpHGetAll  = "HGETALL"
	OpHSet     = "HSET"
	OpScan     = "SCAN"
	OpGet      = "GET"
	OpSet      = "SET"
	OpIncrBy   = "INCRBY"
	OpExpire   = "EXPIRE"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// Package bigquery implements db.Store on Google BigQuery: tables hold
// doc_id/content/metadata/embedding rows, ingestion runs as load jobs and
// search uses the VECTOR_SEARCH table function.
package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/kailas-cloud/vecstore/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Config holds connection parameters for BigQuery.
type Config struct {
	ProjectID       string
	Location        string
	CredentialsFile string
	// Endpoint overrides the API endpoint (emulators, tests). Auth is disabled when set.
	Endpoint string
}

// Store implements db.Store via cloud.google.com/go/bigquery.
type Store struct {
	client   *bigquery.Client
	project  string
	location string
}

// NewStore creates a BigQuery store. Application default credentials are
// used unless CredentialsFile is set.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("project id is required")
	}

	var opts []option.ClientOption
	switch {
	case cfg.Endpoint != "":
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := bigquery.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	if cfg.Location != "" {
		client.Location = cfg.Location
	}

	return &Store{client: client, project: cfg.ProjectID, location: cfg.Location}, nil
}

// Ping lists at most one dataset to verify credentials and connectivity.
func (s *Store) Ping(ctx context.Context) error {
	it := s.client.Datasets(ctx)
	it.PageInfo().MaxSize = 1
	if _, err := it.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close releases the client.
func (s *Store) Close() {
	_ = s.client.Close()
}

// WaitForReady polls Ping until BigQuery responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		if err := s.Ping(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for bigquery: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// fqn renders a fully qualified, backquoted table name. Dataset and table
// names are validated identifiers by the time they reach here.
func (s *Store) fqn(ref db.TableRef) string {
	return fmt.Sprintf("`%s.%s.%s`", s.project, ref.Dataset, ref.Table)
}

func (s *Store) locationOr(loc string) string {
	if loc != "" {
		return loc
	}
	return s.location
}

func apiStatus(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return 0
}

// isNotFound covers both API responses and job errors reported in a job status.
func isNotFound(err error) bool {
	if apiStatus(err) == http.StatusNotFound {
		return true
	}
	var jerr *bigquery.Error
	return errors.As(err, &jerr) && jerr.Reason == "notFound"
}

func isConflict(err error) bool { return apiStatus(err) == http.StatusConflict }

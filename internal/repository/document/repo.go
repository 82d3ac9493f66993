package document

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/vecstore/internal/db"
	"github.com/kailas-cloud/vecstore/internal/domain"
	domdoc "github.com/kailas-cloud/vecstore/internal/domain/document"
	"github.com/kailas-cloud/vecstore/internal/domain/table"
)

// store is the consumer interface for row writes (ISP).
type store interface {
	InsertRows(ctx context.Context, ref db.TableRef, rows []db.Row) (*db.WriteResult, error)
	DeleteRows(ctx context.Context, ref db.TableRef, ids []string) (*db.WriteResult, error)
}

// Repo implements usecase/document.Repository.
type Repo struct {
	store store
}

// New creates a document repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Upsert writes embedded documents, replacing rows with the same ID.
// Returns the backend job ID of the write.
func (r *Repo) Upsert(ctx context.Context, ref table.Ref, docs []domdoc.Document) (string, error) {
	rows := make([]db.Row, len(docs))
	for i := range docs {
		if len(docs[i].Vector()) == 0 {
			return "", fmt.Errorf("document %s has no vector: %w", docs[i].ID(), domain.ErrInvalidSchema)
		}
		rows[i] = toRow(&docs[i])
	}

	res, err := r.store.InsertRows(ctx, toRef(ref), rows)
	if err != nil {
		return "", mapErr(fmt.Sprintf("insert into %s", ref), err)
	}
	return res.JobID, nil
}

// Delete removes documents by ID. Unknown IDs are ignored.
func (r *Repo) Delete(ctx context.Context, ref table.Ref, ids []string) (string, int64, error) {
	res, err := r.store.DeleteRows(ctx, toRef(ref), ids)
	if err != nil {
		return "", 0, mapErr(fmt.Sprintf("delete from %s", ref), err)
	}
	return res.JobID, res.Affected, nil
}

func toRef(ref table.Ref) db.TableRef {
	return db.TableRef{Dataset: ref.Dataset, Table: ref.Table, Location: ref.Location}
}

func toRow(doc *domdoc.Document) db.Row {
	return db.Row{
		ID:       doc.ID(),
		Content:  doc.Content(),
		Metadata: doc.Metadata(),
		Vector:   doc.Vector(),
	}
}

func mapErr(op string, err error) error {
	if errors.Is(err, db.ErrTableNotFound) {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

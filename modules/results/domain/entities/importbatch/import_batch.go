// Package importbatch records the audit trail of committed imports: one
// immutable record per commit, never one for a dry-run.
package importbatch

import (
	"context"
	"time"

	gerrors "github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/pmc-edu/results-portal/pkg/importer"
)

var ErrNotFound = gerrors.New("import batch not found")

type Kind string

const (
	KindStudents Kind = "students"
	KindResults  Kind = "results"
)

type ImportBatch struct {
	ID             uuid.UUID
	Kind           Kind
	StartedBy      string
	SourceFilename string
	Notes          string

	RowCount    int
	CreatedRows int
	UpdatedRows int
	SkippedRows int
	ErrorRows   int

	CreatedAt   time.Time
	CompletedAt time.Time
}

// FromReport summarizes a reconciled batch for the audit trail. An all-zero
// effect report still produces a batch: no-op re-runs stay auditable.
func FromReport(kind Kind, actor, filename, notes string, report *importer.Report, now time.Time) *ImportBatch {
	return &ImportBatch{
		ID:             uuid.New(),
		Kind:           kind,
		StartedBy:      actor,
		SourceFilename: filename,
		Notes:          notes,
		RowCount:       report.TotalRows,
		CreatedRows:    report.Created,
		UpdatedRows:    report.Updated,
		SkippedRows:    report.Skipped,
		ErrorRows:      report.Errored,
		CreatedAt:      now,
		CompletedAt:    now,
	}
}

type FindParams struct {
	Kind  Kind
	Limit int
}

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*ImportBatch, error)
	List(ctx context.Context, params *FindParams) ([]*ImportBatch, error)
	Create(ctx context.Context, b *ImportBatch) error
}

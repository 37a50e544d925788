package persistence

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/pmc-edu/results-portal/modules/results/domain/entities/importbatch"
	"github.com/pmc-edu/results-portal/pkg/composables"
)

const (
	batchSelectColumns = `
		id,
		kind,
		started_by,
		source_filename,
		notes,
		row_count,
		created_rows,
		updated_rows,
		skipped_rows,
		error_rows,
		created_at,
		completed_at`

	batchInsertQuery = `
		INSERT INTO import_batches (
			id,
			kind,
			started_by,
			source_filename,
			notes,
			row_count,
			created_rows,
			updated_rows,
			skipped_rows,
			error_rows,
			created_at,
			completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
)

type PgImportBatchRepository struct{}

func NewPgImportBatchRepository() *PgImportBatchRepository {
	return &PgImportBatchRepository{}
}

func (r *PgImportBatchRepository) GetByID(ctx context.Context, id uuid.UUID) (*importbatch.ImportBatch, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	row := tx.QueryRow(ctx, `SELECT`+batchSelectColumns+` FROM import_batches WHERE id = $1`, id)
	return scanImportBatch(row)
}

func (r *PgImportBatchRepository) List(ctx context.Context, params *importbatch.FindParams) ([]*importbatch.ImportBatch, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	query := `SELECT` + batchSelectColumns + ` FROM import_batches`
	var args []any
	if params != nil && params.Kind != "" {
		args = append(args, string(params.Kind))
		query += ` WHERE kind = $1`
	}
	query += ` ORDER BY created_at DESC`
	if params != nil && params.Limit > 0 {
		args = append(args, params.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query import batches")
	}
	defer rows.Close()

	var out []*importbatch.ImportBatch
	for rows.Next() {
		b, err := scanImportBatch(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating import batches")
	}
	return out, nil
}

func (r *PgImportBatchRepository) Create(ctx context.Context, b *importbatch.ImportBatch) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}
	_, err = tx.Exec(ctx, batchInsertQuery,
		b.ID,
		string(b.Kind),
		b.StartedBy,
		b.SourceFilename,
		nullableText(b.Notes),
		b.RowCount,
		b.CreatedRows,
		b.UpdatedRows,
		b.SkippedRows,
		b.ErrorRows,
		b.CreatedAt,
		b.CompletedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to insert import batch")
	}
	return nil
}

func scanImportBatch(row pgx.Row) (*importbatch.ImportBatch, error) {
	var (
		b     importbatch.ImportBatch
		kind  string
		notes *string
	)
	if err := row.Scan(
		&b.ID,
		&kind,
		&b.StartedBy,
		&b.SourceFilename,
		&notes,
		&b.RowCount,
		&b.CreatedRows,
		&b.UpdatedRows,
		&b.SkippedRows,
		&b.ErrorRows,
		&b.CreatedAt,
		&b.CompletedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, importbatch.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to scan import batch")
	}
	b.Kind = importbatch.Kind(kind)
	if notes != nil {
		b.Notes = *notes
	}
	return &b, nil
}

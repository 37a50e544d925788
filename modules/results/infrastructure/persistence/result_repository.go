package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/pmc-edu/results-portal/modules/results/domain/entities/result"
	"github.com/pmc-edu/results-portal/pkg/composables"
	"github.com/pmc-edu/results-portal/pkg/importer"
)

const (
	resultSelectColumns = `
		id,
		student_id,
		import_batch_id,
		respondent_id,
		roll_number,
		student_name,
		block,
		year,
		subject,
		written_marks,
		viva_marks,
		total_marks,
		grade,
		exam_date,
		status,
		published_at,
		created_at,
		updated_at`

	resultInsertQuery = `
		INSERT INTO results (
			id,
			student_id,
			import_batch_id,
			respondent_id,
			roll_number,
			student_name,
			block,
			year,
			subject,
			written_marks,
			viva_marks,
			total_marks,
			grade,
			exam_date,
			status,
			published_at,
			created_at,
			updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	resultUpdateQuery = `
		UPDATE results
		SET student_id = $2,
			import_batch_id = $3,
			respondent_id = $4,
			student_name = $5,
			block = $6,
			year = $7,
			written_marks = $8,
			viva_marks = $9,
			total_marks = $10,
			grade = $11,
			status = $12,
			published_at = $13,
			updated_at = $14
		WHERE id = $1`

	transitionInsertQuery = `
		INSERT INTO result_status_log (result_id, from_status, to_status, actor, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	transitionSelectQuery = `
		SELECT result_id, from_status, to_status, actor, note, created_at
		FROM result_status_log
		WHERE result_id = ANY($1)
		ORDER BY created_at, id`
)

type PgResultRepository struct{}

func NewPgResultRepository() *PgResultRepository {
	return &PgResultRepository{}
}

func (r *PgResultRepository) GetByID(ctx context.Context, id uuid.UUID) (result.Result, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return result.Result{}, errors.Wrap(err, "failed to get transaction")
	}
	row := tx.QueryRow(ctx, `SELECT`+resultSelectColumns+` FROM results WHERE id = $1`, id)
	res, err := scanResult(row)
	if err != nil {
		return result.Result{}, err
	}
	logs, err := r.loadStatusLogs(ctx, []uuid.UUID{res.ID})
	if err != nil {
		return result.Result{}, err
	}
	res.StatusLog = logs[res.ID]
	return res, nil
}

func (r *PgResultRepository) GetAll(ctx context.Context) ([]result.Result, error) {
	return r.queryMany(ctx, `SELECT`+resultSelectColumns+` FROM results ORDER BY exam_date, roll_number`)
}

func (r *PgResultRepository) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]result.Result, error) {
	return r.queryMany(ctx,
		`SELECT`+resultSelectColumns+` FROM results WHERE student_id = $1 ORDER BY exam_date, subject`,
		studentID,
	)
}

func (r *PgResultRepository) ListPublishedByStudent(ctx context.Context, studentID uuid.UUID) ([]result.Result, error) {
	return r.queryMany(ctx,
		`SELECT`+resultSelectColumns+` FROM results WHERE student_id = $1 AND status = $2 ORDER BY exam_date, subject`,
		studentID, string(result.StatusPublished),
	)
}

func (r *PgResultRepository) Create(ctx context.Context, res result.Result) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}
	_, err = tx.Exec(ctx, resultInsertQuery,
		res.ID,
		res.StudentID,
		res.ImportBatchID,
		nullableText(res.RespondentID),
		res.RollNumber,
		res.StudentName,
		res.Block,
		res.Year,
		res.Subject,
		res.WrittenMarks,
		res.VivaMarks,
		res.TotalMarks,
		res.Grade,
		res.ExamDate,
		string(res.Status),
		res.PublishedAt,
		res.CreatedAt,
		res.UpdatedAt,
	)
	if err != nil {
		if importer.IsUniqueViolation(err) {
			return errors.Wrapf(result.ErrDuplicate, "key %s", res.Key())
		}
		return errors.Wrap(err, "failed to insert result")
	}
	for _, entry := range res.StatusLog {
		if err := r.AppendTransition(ctx, res.ID, entry); err != nil {
			return err
		}
	}
	return nil
}

func (r *PgResultRepository) Update(ctx context.Context, res result.Result) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}
	tag, err := tx.Exec(ctx, resultUpdateQuery,
		res.ID,
		res.StudentID,
		res.ImportBatchID,
		nullableText(res.RespondentID),
		res.StudentName,
		res.Block,
		res.Year,
		res.WrittenMarks,
		res.VivaMarks,
		res.TotalMarks,
		res.Grade,
		string(res.Status),
		res.PublishedAt,
		res.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to update result")
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(result.ErrNotFound, "id %s", res.ID)
	}
	return nil
}

func (r *PgResultRepository) AppendTransition(ctx context.Context, resultID uuid.UUID, entry result.TransitionEntry) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}
	_, err = tx.Exec(ctx, transitionInsertQuery,
		resultID,
		nullableText(string(entry.From)),
		string(entry.To),
		entry.Actor,
		nullableText(entry.Note),
		entry.At,
	)
	if err != nil {
		return errors.Wrap(err, "failed to insert status log entry")
	}
	return nil
}

func (r *PgResultRepository) queryMany(ctx context.Context, query string, args ...any) ([]result.Result, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query results")
	}
	defer rows.Close()

	var out []result.Result
	var ids []uuid.UUID
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
		ids = append(ids, res.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating results")
	}
	if len(out) == 0 {
		return out, nil
	}

	logs, err := r.loadStatusLogs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].StatusLog = logs[out[i].ID]
	}
	return out, nil
}

func (r *PgResultRepository) loadStatusLogs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]result.TransitionEntry, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	rows, err := tx.Query(ctx, transitionSelectQuery, ids)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query status log")
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]result.TransitionEntry, len(ids))
	for rows.Next() {
		var (
			resultID   uuid.UUID
			fromStatus *string
			toStatus   string
			note       *string
			entry      result.TransitionEntry
		)
		if err := rows.Scan(&resultID, &fromStatus, &toStatus, &entry.Actor, &note, &entry.At); err != nil {
			return nil, errors.Wrap(err, "failed to scan status log entry")
		}
		if fromStatus != nil {
			entry.From = result.Status(*fromStatus)
		}
		entry.To = result.Status(toStatus)
		if note != nil {
			entry.Note = *note
		}
		out[resultID] = append(out[resultID], entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating status log")
	}
	return out, nil
}

func scanResult(row pgx.Row) (result.Result, error) {
	var (
		res          result.Result
		respondentID *string
		status       string
	)
	if err := row.Scan(
		&res.ID,
		&res.StudentID,
		&res.ImportBatchID,
		&respondentID,
		&res.RollNumber,
		&res.StudentName,
		&res.Block,
		&res.Year,
		&res.Subject,
		&res.WrittenMarks,
		&res.VivaMarks,
		&res.TotalMarks,
		&res.Grade,
		&res.ExamDate,
		&status,
		&res.PublishedAt,
		&res.CreatedAt,
		&res.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return result.Result{}, result.ErrNotFound
		}
		return result.Result{}, errors.Wrap(err, "failed to scan result")
	}
	res.Status = result.Status(status)
	if respondentID != nil {
		res.RespondentID = *respondentID
	}
	return res, nil
}

func nullableText(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

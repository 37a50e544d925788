package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/pmc-edu/results-portal/modules/accounts/domain/aggregates/student"
	"github.com/pmc-edu/results-portal/pkg/composables"
	"github.com/pmc-edu/results-portal/pkg/importer"
)

const (
	studentSelectColumns = `
		id,
		roll_number,
		first_name,
		last_name,
		display_name,
		official_email,
		recovery_email,
		batch_code,
		status,
		created_at,
		updated_at`

	studentInsertQuery = `
		INSERT INTO students (
			id,
			roll_number,
			first_name,
			last_name,
			display_name,
			official_email,
			recovery_email,
			batch_code,
			status,
			created_at,
			updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	studentUpdateQuery = `
		UPDATE students
		SET first_name = $2,
			last_name = $3,
			display_name = $4,
			official_email = $5,
			recovery_email = $6,
			batch_code = $7,
			status = $8,
			updated_at = $9
		WHERE id = $1`
)

type PgStudentRepository struct{}

func NewPgStudentRepository() *PgStudentRepository {
	return &PgStudentRepository{}
}

func (r *PgStudentRepository) GetByID(ctx context.Context, id uuid.UUID) (student.Student, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "failed to get transaction")
	}
	row := tx.QueryRow(ctx, `SELECT`+studentSelectColumns+` FROM students WHERE id = $1`, id)
	return scanStudent(row)
}

func (r *PgStudentRepository) GetByRollNumber(ctx context.Context, rollNumber string) (student.Student, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "failed to get transaction")
	}
	row := tx.QueryRow(ctx,
		`SELECT`+studentSelectColumns+` FROM students WHERE lower(roll_number) = $1`,
		student.CanonicalRoll(rollNumber),
	)
	return scanStudent(row)
}

func (r *PgStudentRepository) GetAll(ctx context.Context) ([]student.Student, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	rows, err := tx.Query(ctx, `SELECT`+studentSelectColumns+` FROM students ORDER BY roll_number`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query students")
	}
	defer rows.Close()

	var out []student.Student
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating students")
	}
	return out, nil
}

func (r *PgStudentRepository) Count(ctx context.Context) (int64, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get transaction")
	}
	var total int64
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM students`).Scan(&total); err != nil {
		return 0, errors.Wrap(err, "failed to count students")
	}
	return total, nil
}

func (r *PgStudentRepository) Create(ctx context.Context, s student.Student) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}
	_, err = tx.Exec(ctx, studentInsertQuery,
		s.ID,
		s.RollNumber,
		s.FirstName,
		s.LastName,
		s.DisplayName,
		s.OfficialEmail,
		nullableText(s.RecoveryEmail),
		s.BatchCode,
		string(s.Status),
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		if importer.IsUniqueViolation(err) {
			return errors.Wrapf(student.ErrDuplicate, "roll %s", s.RollNumber)
		}
		return errors.Wrap(err, "failed to insert student")
	}
	return nil
}

func (r *PgStudentRepository) Update(ctx context.Context, s student.Student) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}
	tag, err := tx.Exec(ctx, studentUpdateQuery,
		s.ID,
		s.FirstName,
		s.LastName,
		s.DisplayName,
		s.OfficialEmail,
		nullableText(s.RecoveryEmail),
		s.BatchCode,
		string(s.Status),
		s.UpdatedAt,
	)
	if err != nil {
		if importer.IsUniqueViolation(err) {
			return errors.Wrapf(student.ErrDuplicate, "roll %s", s.RollNumber)
		}
		return errors.Wrap(err, "failed to update student")
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(student.ErrNotFound, "id %s", s.ID)
	}
	return nil
}

func scanStudent(row pgx.Row) (student.Student, error) {
	var (
		s             student.Student
		recoveryEmail *string
		status        string
	)
	if err := row.Scan(
		&s.ID,
		&s.RollNumber,
		&s.FirstName,
		&s.LastName,
		&s.DisplayName,
		&s.OfficialEmail,
		&recoveryEmail,
		&s.BatchCode,
		&status,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return student.Student{}, student.ErrNotFound
		}
		return student.Student{}, errors.Wrap(err, "failed to scan student")
	}
	s.Status = student.Status(status)
	if recoveryEmail != nil {
		s.RecoveryEmail = *recoveryEmail
	}
	return s, nil
}

func nullableText(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// Package result holds the examination Result entity and its publication
// workflow. A result belongs to exactly one student (matched by roll number)
// and one exam context (block/year/subject/date); uniqueness is enforced on
// (roll number, subject, exam date).
package result

import (
	"context"
	"fmt"
	"strings"
	"time"

	gerrors "github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound  = gerrors.New("result not found")
	ErrDuplicate = gerrors.New("result already exists")
)

type Result struct {
	ID            uuid.UUID
	StudentID     uuid.UUID
	ImportBatchID uuid.UUID

	RespondentID string
	RollNumber   string
	StudentName  string
	Block        string
	Year         int
	Subject      string
	WrittenMarks decimal.Decimal
	VivaMarks    decimal.Decimal
	TotalMarks   decimal.Decimal
	Grade        string
	ExamDate     time.Time

	Status      Status
	StatusLog   []TransitionEntry
	PublishedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NaturalKey builds the business key a result row is matched on.
func NaturalKey(rollNumber, subject string, examDate time.Time) string {
	return fmt.Sprintf("%s|%s|%s",
		strings.ToLower(strings.TrimSpace(rollNumber)),
		strings.ToLower(strings.TrimSpace(subject)),
		examDate.UTC().Format("2006-01-02"),
	)
}

func (r Result) Key() string {
	return NaturalKey(r.RollNumber, r.Subject, r.ExamDate)
}

// IsVisibleToStudent reports whether the owning student may see this result.
func (r Result) IsVisibleToStudent() bool {
	return r.Status == StatusPublished
}

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (Result, error)
	GetAll(ctx context.Context) ([]Result, error)
	ListByStudent(ctx context.Context, studentID uuid.UUID) ([]Result, error)
	ListPublishedByStudent(ctx context.Context, studentID uuid.UUID) ([]Result, error)
	Create(ctx context.Context, r Result) error
	Update(ctx context.Context, r Result) error
	// AppendTransition persists one status-log entry. The log is append-only;
	// there is no update or delete counterpart.
	AppendTransition(ctx context.Context, resultID uuid.UUID, entry TransitionEntry) error
}

package importer

import (
	"errors"
	"fmt"

	gerrors "github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgconn"
)

// Mode selects between a read-only preview and an applying commit. Every
// import invocation must pass one explicitly; there is no default.
type Mode string

const (
	ModePreview Mode = "preview"
	ModeCommit  Mode = "commit"
)

var ErrModeRequired = gerrors.New("import mode must be preview or commit")

func (m Mode) Validate() error {
	switch m {
	case ModePreview, ModeCommit:
		return nil
	default:
		return ErrModeRequired
	}
}

// CommitError wraps any failure inside the commit transaction. The whole
// batch is rolled back before it is returned; partial commits are never
// observable.
type CommitError struct {
	Kind  string
	Cause error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("%s import commit failed: %v", e.Kind, e.Cause)
}

func (e *CommitError) Unwrap() error {
	return e.Cause
}

const uniqueViolationCode = "23505"

// IsUniqueViolation reports whether err stems from a Postgres unique
// constraint violation, i.e. a concurrent writer won the race for a natural
// key after this batch's preview resolved it as absent.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

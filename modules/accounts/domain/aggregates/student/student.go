// Package student holds the Student aggregate: the roster record every
// examination result hangs off. Students are matched by roll number (the
// natural key) and are never hard-deleted; deactivation flips the status.
package student

import (
	"context"
	"strings"
	"time"

	gerrors "github.com/go-faster/errors"
	"github.com/google/uuid"
)

var (
	ErrNotFound  = gerrors.New("student not found")
	ErrDuplicate = gerrors.New("student already exists")
)

type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusGraduated Status = "graduated"
	StatusSuspended Status = "suspended"
)

func Statuses() []string {
	return []string{
		string(StatusActive),
		string(StatusInactive),
		string(StatusGraduated),
		string(StatusSuspended),
	}
}

type Student struct {
	ID            uuid.UUID
	RollNumber    string
	FirstName     string
	LastName      string
	DisplayName   string
	OfficialEmail string
	RecoveryEmail string
	BatchCode     string
	Status        Status
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func New(rollNumber, displayName, officialEmail string) Student {
	return Student{
		ID:            uuid.New(),
		RollNumber:    strings.TrimSpace(rollNumber),
		DisplayName:   strings.TrimSpace(displayName),
		OfficialEmail: strings.ToLower(strings.TrimSpace(officialEmail)),
		Status:        StatusActive,
	}
}

// CanonicalRoll normalizes a roll number for natural-key comparison.
func CanonicalRoll(rollNumber string) string {
	return strings.ToLower(strings.TrimSpace(rollNumber))
}

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (Student, error)
	GetByRollNumber(ctx context.Context, rollNumber string) (Student, error)
	GetAll(ctx context.Context) ([]Student, error)
	Count(ctx context.Context) (int64, error)
	Create(ctx context.Context, s Student) error
	Update(ctx context.Context, s Student) error
}

package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/pmc-edu/results-portal/modules/accounts/domain/aggregates/student"
	"github.com/pmc-edu/results-portal/pkg/eventbus"
)

// StudentDeactivatedEvent is published after a student is switched to
// INACTIVE; downstream consumers suspend portal access, never delete data.
type StudentDeactivatedEvent struct {
	StudentID  uuid.UUID
	RollNumber string
	Actor      string
}

type StudentService struct {
	repo      student.Repository
	publisher eventbus.EventBus
}

func NewStudentService(repo student.Repository, publisher eventbus.EventBus) *StudentService {
	return &StudentService{
		repo:      repo,
		publisher: publisher,
	}
}

func (s *StudentService) GetByID(ctx context.Context, id uuid.UUID) (student.Student, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *StudentService) GetByRollNumber(ctx context.Context, rollNumber string) (student.Student, error) {
	return s.repo.GetByRollNumber(ctx, rollNumber)
}

func (s *StudentService) GetAll(ctx context.Context) ([]student.Student, error) {
	return s.repo.GetAll(ctx)
}

func (s *StudentService) Count(ctx context.Context) (int64, error) {
	return s.repo.Count(ctx)
}

// Deactivate flips a student to INACTIVE. There is no delete: the roster is
// append-only and results must keep resolving their owner.
func (s *StudentService) Deactivate(ctx context.Context, id uuid.UUID, actor string) (student.Student, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return student.Student{}, err
	}
	if existing.Status == student.StatusInactive {
		return existing, nil
	}

	existing.Status = student.StatusInactive
	existing.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, existing); err != nil {
		return student.Student{}, errors.Wrap(err, "failed to deactivate student")
	}

	s.publisher.Publish(StudentDeactivatedEvent{
		StudentID:  existing.ID,
		RollNumber: existing.RollNumber,
		Actor:      actor,
	})
	return existing, nil
}

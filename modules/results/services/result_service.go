package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pmc-edu/results-portal/modules/results/domain/entities/result"
	"github.com/pmc-edu/results-portal/pkg/composables"
	"github.com/pmc-edu/results-portal/pkg/eventbus"
)

// StatusChangedEvent is published after a workflow transition is durable.
type StatusChangedEvent struct {
	ResultID uuid.UUID
	From     result.Status
	To       result.Status
	Actor    string
}

// ResultService owns the verification/publication workflow. Every mutation
// goes through one guarded transition; there is no free-form status setter.
type ResultService struct {
	repo       result.Repository
	transactor composables.Transactor
	publisher  eventbus.EventBus
	log        *logrus.Logger
}

func NewResultService(
	repo result.Repository,
	transactor composables.Transactor,
	publisher eventbus.EventBus,
	log *logrus.Logger,
) *ResultService {
	return &ResultService{
		repo:       repo,
		transactor: transactor,
		publisher:  publisher,
		log:        log,
	}
}

func (s *ResultService) GetByID(ctx context.Context, id uuid.UUID) (result.Result, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ResultService) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]result.Result, error) {
	return s.repo.ListByStudent(ctx, studentID)
}

// VisibleToStudent returns only what the student-facing portal may show:
// published results, nothing else.
func (s *ResultService) VisibleToStudent(ctx context.Context, studentID uuid.UUID) ([]result.Result, error) {
	return s.repo.ListPublishedByStudent(ctx, studentID)
}

func (s *ResultService) Submit(ctx context.Context, id uuid.UUID, actor string) (result.Result, error) {
	return s.transition(ctx, id, result.StatusSubmitted, actor)
}

func (s *ResultService) Verify(ctx context.Context, id uuid.UUID, actor string) (result.Result, error) {
	return s.transition(ctx, id, result.StatusVerified, actor)
}

func (s *ResultService) Return(ctx context.Context, id uuid.UUID, actor string) (result.Result, error) {
	return s.transition(ctx, id, result.StatusReturned, actor)
}

// Resubmit moves a RETURNED result back into the verification queue. It is
// the same guarded edge as Submit; the separate name keeps intent visible in
// call sites and logs.
func (s *ResultService) Resubmit(ctx context.Context, id uuid.UUID, actor string) (result.Result, error) {
	return s.transition(ctx, id, result.StatusSubmitted, actor)
}

func (s *ResultService) Publish(ctx context.Context, id uuid.UUID, actor string) (result.Result, error) {
	return s.transition(ctx, id, result.StatusPublished, actor)
}

// Unpublish retracts a published result back to VERIFIED, clearing its
// publication timestamp. The status log keeps the full history.
func (s *ResultService) Unpublish(ctx context.Context, id uuid.UUID, actor string) (result.Result, error) {
	return s.transition(ctx, id, result.StatusVerified, actor)
}

func (s *ResultService) transition(ctx context.Context, id uuid.UUID, to result.Status, actor string) (result.Result, error) {
	var out result.Result
	err := s.transactor.InTx(ctx, func(ctx context.Context) error {
		res, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		from := res.Status

		now := time.Now().UTC()
		if err := res.TransitionTo(to, actor, now); err != nil {
			return err
		}
		res.UpdatedAt = now

		if err := s.repo.Update(ctx, res); err != nil {
			return err
		}
		entry := res.StatusLog[len(res.StatusLog)-1]
		if err := s.repo.AppendTransition(ctx, res.ID, entry); err != nil {
			return err
		}

		s.log.WithFields(logrus.Fields{
			"result_id": res.ID,
			"from":      string(from),
			"to":        string(to),
			"actor":     actor,
		}).Info("result status changed")
		out = res
		return nil
	})
	if err != nil {
		return result.Result{}, err
	}

	s.publisher.Publish("result.status_changed", StatusChangedEvent{
		ResultID: out.ID,
		From:     out.StatusLog[len(out.StatusLog)-1].From,
		To:       out.Status,
		Actor:    actor,
	})
	return out, nil
}

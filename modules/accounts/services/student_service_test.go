package services_test

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pmc-edu/results-portal/modules/accounts/domain/aggregates/student"
	"github.com/pmc-edu/results-portal/modules/accounts/infrastructure/persistence"
	"github.com/pmc-edu/results-portal/modules/accounts/services"
	"github.com/pmc-edu/results-portal/pkg/eventbus"
)

func newStudentService(t *testing.T) (*services.StudentService, *persistence.InmemStudentRepository, eventbus.EventBus) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	repo := persistence.NewInmemStudentRepository()
	bus := eventbus.NewEventPublisher(log)
	return services.NewStudentService(repo, bus), repo, bus
}

func seedStudent(t *testing.T, repo *persistence.InmemStudentRepository, roll string) student.Student {
	t.Helper()
	s := student.New(roll, "Ayesha Khan", roll+"@pmc.edu.pk")
	require.NoError(t, repo.Create(context.Background(), s))
	return s
}

func TestStudentService_Deactivate(t *testing.T) {
	svc, repo, bus := newStudentService(t)
	ctx := context.Background()
	seeded := seedStudent(t, repo, "PMC-001")

	var events []services.StudentDeactivatedEvent
	bus.Subscribe(func(e services.StudentDeactivatedEvent) {
		events = append(events, e)
	})

	got, err := svc.Deactivate(ctx, seeded.ID, "admin@pmc.edu.pk")
	require.NoError(t, err)
	assert.Equal(t, student.StatusInactive, got.Status)

	stored, err := repo.GetByID(ctx, seeded.ID)
	require.NoError(t, err)
	assert.Equal(t, student.StatusInactive, stored.Status)

	require.Len(t, events, 1)
	assert.Equal(t, seeded.ID, events[0].StudentID)
	assert.Equal(t, "PMC-001", events[0].RollNumber)
}

func TestStudentService_DeactivateTwiceIsNoop(t *testing.T) {
	svc, repo, bus := newStudentService(t)
	ctx := context.Background()
	seeded := seedStudent(t, repo, "PMC-001")

	var events int
	bus.Subscribe(func(e services.StudentDeactivatedEvent) { events++ })

	_, err := svc.Deactivate(ctx, seeded.ID, "admin@pmc.edu.pk")
	require.NoError(t, err)
	_, err = svc.Deactivate(ctx, seeded.ID, "admin@pmc.edu.pk")
	require.NoError(t, err)
	assert.Equal(t, 1, events)

	_, err = svc.Deactivate(ctx, uuid.New(), "admin@pmc.edu.pk")
	require.ErrorIs(t, err, student.ErrNotFound)
}

func TestStudentService_GetByRollNumberIsCaseInsensitive(t *testing.T) {
	svc, repo, _ := newStudentService(t)
	ctx := context.Background()
	seeded := seedStudent(t, repo, "PMC-001")

	got, err := svc.GetByRollNumber(ctx, "pmc-001")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, got.ID)
}

package persistence

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/pmc-edu/results-portal/modules/accounts/domain/aggregates/student"
)

type SafeMap[K comparable, V any] struct {
	mu sync.RWMutex
	m  map[K]V
}

func NewSafeMap[K comparable, V any]() *SafeMap[K, V] {
	return &SafeMap[K, V]{
		m: make(map[K]V),
	}
}

func (s *SafeMap[K, V]) Set(key K, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
}

func (s *SafeMap[K, V]) Get(key K) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, found := s.m[key]
	return val, found
}

func (s *SafeMap[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

func (s *SafeMap[K, V]) Values() []V {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Collect(maps.Values(s.m))
}

func (s *SafeMap[K, V]) Clone() map[K]V {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.m)
}

func (s *SafeMap[K, V]) Replace(m map[K]V) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m = maps.Clone(m)
}

// InmemStudentRepository backs service tests; it mirrors the Postgres
// repository's behavior including the unique roll number constraint.
type InmemStudentRepository struct {
	storage *SafeMap[uuid.UUID, student.Student]
}

func NewInmemStudentRepository() *InmemStudentRepository {
	return &InmemStudentRepository{
		storage: NewSafeMap[uuid.UUID, student.Student](),
	}
}

func (r *InmemStudentRepository) GetByID(_ context.Context, id uuid.UUID) (student.Student, error) {
	s, found := r.storage.Get(id)
	if !found {
		return student.Student{}, student.ErrNotFound
	}
	return s, nil
}

func (r *InmemStudentRepository) GetByRollNumber(_ context.Context, rollNumber string) (student.Student, error) {
	canonical := student.CanonicalRoll(rollNumber)
	for _, s := range r.storage.Values() {
		if student.CanonicalRoll(s.RollNumber) == canonical {
			return s, nil
		}
	}
	return student.Student{}, student.ErrNotFound
}

func (r *InmemStudentRepository) GetAll(_ context.Context) ([]student.Student, error) {
	out := r.storage.Values()
	slices.SortFunc(out, func(a, b student.Student) int {
		return strings.Compare(a.RollNumber, b.RollNumber)
	})
	return out, nil
}

func (r *InmemStudentRepository) Count(_ context.Context) (int64, error) {
	return int64(r.storage.Len()), nil
}

func (r *InmemStudentRepository) Create(_ context.Context, s student.Student) error {
	canonical := student.CanonicalRoll(s.RollNumber)
	for _, existing := range r.storage.Values() {
		if student.CanonicalRoll(existing.RollNumber) == canonical {
			return student.ErrDuplicate
		}
	}
	r.storage.Set(s.ID, s)
	return nil
}

func (r *InmemStudentRepository) Update(_ context.Context, s student.Student) error {
	if _, found := r.storage.Get(s.ID); !found {
		return student.ErrNotFound
	}
	r.storage.Set(s.ID, s)
	return nil
}

func (r *InmemStudentRepository) Snapshot() any {
	return r.storage.Clone()
}

func (r *InmemStudentRepository) Restore(snapshot any) {
	r.storage.Replace(snapshot.(map[uuid.UUID]student.Student))
}

package persistence

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/pmc-edu/results-portal/modules/results/domain/entities/importbatch"
	"github.com/pmc-edu/results-portal/modules/results/domain/entities/result"
)

// InmemResultRepository backs service tests; like its Postgres counterpart it
// rejects a second result with the same natural key.
type InmemResultRepository struct {
	mu sync.RWMutex
	m  map[uuid.UUID]result.Result
}

func NewInmemResultRepository() *InmemResultRepository {
	return &InmemResultRepository{m: make(map[uuid.UUID]result.Result)}
}

func (r *InmemResultRepository) GetByID(_ context.Context, id uuid.UUID) (result.Result, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, found := r.m[id]
	if !found {
		return result.Result{}, result.ErrNotFound
	}
	return cloneResult(res), nil
}

func (r *InmemResultRepository) GetAll(_ context.Context) ([]result.Result, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]result.Result, 0, len(r.m))
	for _, res := range r.m {
		out = append(out, cloneResult(res))
	}
	sortResults(out)
	return out, nil
}

func (r *InmemResultRepository) ListByStudent(_ context.Context, studentID uuid.UUID) ([]result.Result, error) {
	return r.listFiltered(func(res result.Result) bool {
		return res.StudentID == studentID
	}), nil
}

func (r *InmemResultRepository) ListPublishedByStudent(_ context.Context, studentID uuid.UUID) ([]result.Result, error) {
	return r.listFiltered(func(res result.Result) bool {
		return res.StudentID == studentID && res.Status == result.StatusPublished
	}), nil
}

func (r *InmemResultRepository) Create(_ context.Context, res result.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := res.Key()
	for _, existing := range r.m {
		if existing.Key() == key {
			return result.ErrDuplicate
		}
	}
	r.m[res.ID] = cloneResult(res)
	return nil
}

func (r *InmemResultRepository) Update(_ context.Context, res result.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, found := r.m[res.ID]
	if !found {
		return result.ErrNotFound
	}
	// The status log is append-only and owned by AppendTransition.
	next := cloneResult(res)
	next.StatusLog = stored.StatusLog
	r.m[res.ID] = next
	return nil
}

func (r *InmemResultRepository) AppendTransition(_ context.Context, resultID uuid.UUID, entry result.TransitionEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, found := r.m[resultID]
	if !found {
		return result.ErrNotFound
	}
	res.StatusLog = append(res.StatusLog, entry)
	r.m[resultID] = res
	return nil
}

func (r *InmemResultRepository) Snapshot() any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[uuid.UUID]result.Result, len(r.m))
	for id, res := range r.m {
		out[id] = cloneResult(res)
	}
	return out
}

func (r *InmemResultRepository) Restore(snapshot any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m = snapshot.(map[uuid.UUID]result.Result)
}

func (r *InmemResultRepository) listFiltered(keep func(result.Result) bool) []result.Result {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []result.Result
	for _, res := range r.m {
		if keep(res) {
			out = append(out, res)
		}
	}
	sortResults(out)
	return out
}

func cloneResult(res result.Result) result.Result {
	res.StatusLog = slices.Clone(res.StatusLog)
	if res.PublishedAt != nil {
		at := *res.PublishedAt
		res.PublishedAt = &at
	}
	return res
}

func sortResults(out []result.Result) {
	slices.SortFunc(out, func(a, b result.Result) int {
		if c := a.ExamDate.Compare(b.ExamDate); c != 0 {
			return c
		}
		if c := strings.Compare(a.RollNumber, b.RollNumber); c != 0 {
			return c
		}
		return strings.Compare(a.Subject, b.Subject)
	})
}

// InmemImportBatchRepository keeps committed batch records in memory.
type InmemImportBatchRepository struct {
	mu sync.RWMutex
	m  map[uuid.UUID]importbatch.ImportBatch
}

func NewInmemImportBatchRepository() *InmemImportBatchRepository {
	return &InmemImportBatchRepository{m: make(map[uuid.UUID]importbatch.ImportBatch)}
}

func (r *InmemImportBatchRepository) GetByID(_ context.Context, id uuid.UUID) (*importbatch.ImportBatch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, found := r.m[id]
	if !found {
		return nil, importbatch.ErrNotFound
	}
	return &b, nil
}

func (r *InmemImportBatchRepository) List(_ context.Context, params *importbatch.FindParams) ([]*importbatch.ImportBatch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*importbatch.ImportBatch
	for _, b := range r.m {
		if params != nil && params.Kind != "" && b.Kind != params.Kind {
			continue
		}
		b := b
		out = append(out, &b)
	}
	slices.SortFunc(out, func(a, b *importbatch.ImportBatch) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if params != nil && params.Limit > 0 && len(out) > params.Limit {
		out = out[:params.Limit]
	}
	return out, nil
}

func (r *InmemImportBatchRepository) Create(_ context.Context, b *importbatch.ImportBatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[b.ID] = *b
	return nil
}

func (r *InmemImportBatchRepository) Snapshot() any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.m)
}

func (r *InmemImportBatchRepository) Restore(snapshot any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m = maps.Clone(snapshot.(map[uuid.UUID]importbatch.ImportBatch))
}

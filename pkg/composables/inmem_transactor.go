package composables

import "context"

// Snapshotter is implemented by in-memory repositories that can copy and
// restore their whole state. InmemTransactor uses it to emulate rollback.
type Snapshotter interface {
	Snapshot() any
	Restore(snapshot any)
}

// InmemTransactor gives service tests the same all-or-nothing semantics the
// pgx transactor gives production: if fn fails, every registered store is
// restored to its pre-call state.
type InmemTransactor struct {
	stores []Snapshotter
}

func NewInmemTransactor(stores ...Snapshotter) *InmemTransactor {
	return &InmemTransactor{stores: stores}
}

func (t *InmemTransactor) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	snapshots := make([]any, len(t.stores))
	for i, store := range t.stores {
		snapshots[i] = store.Snapshot()
	}
	if err := fn(ctx); err != nil {
		for i, store := range t.stores {
			store.Restore(snapshots[i])
		}
		return err
	}
	return nil
}

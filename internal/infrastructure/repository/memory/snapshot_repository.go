package memory

import (
	"context"
	"sync"

	"github.com/riskibarqy/chefscore/internal/domain/history"
	"github.com/riskibarqy/chefscore/internal/domain/weekstats"
)

type SnapshotRepository struct {
	mu       sync.RWMutex
	snapshot history.Snapshot
	exists   bool
}

func NewSnapshotRepository() *SnapshotRepository {
	return &SnapshotRepository{}
}

func (r *SnapshotRepository) Save(_ context.Context, snapshot history.Snapshot) error {
	snapshot.Weeks = append([]weekstats.Summary(nil), snapshot.Weeks...)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.snapshot = snapshot
	r.exists = true
	return nil
}

func (r *SnapshotRepository) Latest(_ context.Context) (history.Snapshot, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.exists {
		return history.Snapshot{}, false, nil
	}
	out := r.snapshot
	out.Weeks = append([]weekstats.Summary(nil), r.snapshot.Weeks...)
	return out, true, nil
}

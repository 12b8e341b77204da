package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/riskibarqy/chefscore/internal/domain/preference"
)

type PreferenceRepository struct {
	mu    sync.RWMutex
	items map[string]preference.Preference
}

func NewPreferenceRepository(seed ...preference.Preference) *PreferenceRepository {
	items := make(map[string]preference.Preference, len(seed))
	for _, item := range seed {
		items[item.Key] = item
	}
	return &PreferenceRepository{items: items}
}

func (r *PreferenceRepository) Get(_ context.Context, key string) (preference.Preference, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[key]
	return item, ok, nil
}

func (r *PreferenceRepository) List(_ context.Context) ([]preference.Preference, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]preference.Preference, 0, len(r.items))
	for _, item := range r.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (r *PreferenceRepository) Upsert(_ context.Context, pref preference.Preference) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[pref.Key] = pref
	return nil
}

package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/riskibarqy/chefscore/internal/domain/history"
	"github.com/riskibarqy/chefscore/internal/platform/logging"
)

var errFileMissing = errors.New("file missing")

const (
	exampleManifest = `[{"week":"12","file":"data_week_12.csv"},{"week":"13","file":"data_week_13.csv"}]`
	exampleWeek12   = "PLAYER,TOTAL_SCORE,CHEST_COUNT\nAlice,100,5\nBob,200,10"
	exampleWeek13   = "PLAYER,TOTAL_SCORE,CHEST_COUNT\nAlice,150,6"
)

// memorySource serves files from a map and counts fetches.
type memorySource struct {
	mu    sync.Mutex
	files map[string]string
	delay map[string]time.Duration
	calls map[string]int
}

func newMemorySource(files map[string]string) *memorySource {
	return &memorySource{files: files, delay: map[string]time.Duration{}, calls: map[string]int{}}
}

func (s *memorySource) Fetch(ctx context.Context, path string) ([]byte, error) {
	s.mu.Lock()
	s.calls[path]++
	body, ok := s.files[path]
	delay := s.delay[path]
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if !ok {
		return nil, errFileMissing
	}
	return []byte(body), nil
}

func (s *memorySource) remove(paths ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, path := range paths {
		delete(s.files, path)
	}
}

func (s *memorySource) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

type mockSource struct {
	mock.Mock
}

func (m *mockSource) Fetch(ctx context.Context, path string) ([]byte, error) {
	args := m.Called(ctx, path)
	body, _ := args.Get(0).([]byte)
	return body, args.Error(1)
}

type memorySnapshots struct {
	mu    sync.Mutex
	saved []history.Snapshot
	err   error
}

func (r *memorySnapshots) Save(_ context.Context, snapshot history.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.saved = append(r.saved, snapshot)
	return nil
}

func (r *memorySnapshots) Latest(_ context.Context) (history.Snapshot, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.saved) == 0 {
		return history.Snapshot{}, false, nil
	}
	return r.saved[len(r.saved)-1], true, nil
}

// gatedSnapshots blocks the first Save until release is closed.
type gatedSnapshots struct {
	memorySnapshots
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (r *gatedSnapshots) Save(ctx context.Context, snapshot history.Snapshot) error {
	first := false
	r.once.Do(func() { first = true })
	if first {
		close(r.entered)
		<-r.release
	}
	return r.memorySnapshots.Save(ctx, snapshot)
}

func newTestServices(source *memorySource, workers int) (*CatalogService, *WeekService, *HistoryService) {
	logger := logging.NewNop()
	catalog := NewCatalogService(source, "weeks.json", logger)
	weeks := NewWeekService(source, catalog, logger)
	hist := NewHistoryService(catalog, weeks, nil, nil, HistoryConfig{MaxWorkers: workers}, logger)
	return catalog, weeks, hist
}

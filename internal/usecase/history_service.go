package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/riskibarqy/chefscore/internal/domain/history"
	"github.com/riskibarqy/chefscore/internal/domain/playerrow"
	"github.com/riskibarqy/chefscore/internal/domain/week"
	"github.com/riskibarqy/chefscore/internal/domain/weekstats"
	"github.com/riskibarqy/chefscore/internal/platform/id"
	"github.com/riskibarqy/chefscore/internal/platform/logging"
)

const (
	DefaultHistoryWorkers = 4
	MaxHistoryWorkers     = 32
	DefaultTopPlayers     = 5
	MaxTopPlayers         = 50
)

type weekLoader interface {
	LoadWeek(ctx context.Context, info week.Descriptor) ([]playerrow.Row, error)
}

type HistoryConfig struct {
	MaxWorkers int
}

// WeekFailure records a week skipped during a historical load.
type WeekFailure struct {
	WeekID string `json:"weekId"`
	File   string `json:"file"`
	Reason string `json:"reason"`
}

type LoadResult struct {
	RunID       string        `json:"runId"`
	Generation  uint64        `json:"generation"`
	Applied     bool          `json:"applied"`
	WeekCount   int           `json:"weekCount"`
	LoadedCount int           `json:"loadedCount"`
	FailedCount int           `json:"failedCount"`
	WorkerCount int           `json:"workerCount"`
	DurationMs  int64         `json:"durationMs"`
	Failures    []WeekFailure `json:"failures"`
}

// Progress is called after every finished week with the running total. Calls are
// serialized and done increases by one each time.
type Progress func(done, total int)

// HistoryService owns the historical collection. Each load takes a generation
// token and its result is applied only while that token is still the newest.
type HistoryService struct {
	catalog   *CatalogService
	weeks     weekLoader
	snapshots history.SnapshotRepository
	ids       id.Generator
	logger    *logging.Logger
	cfg       HistoryConfig
	now       func() time.Time
	progress  Progress

	generation atomic.Uint64

	mu         sync.RWMutex
	collection history.Collection
	applied    uint64

	// saveMu orders snapshot writes so only the applied generation lands last.
	saveMu sync.Mutex
}

func NewHistoryService(
	catalog *CatalogService,
	weeks weekLoader,
	snapshots history.SnapshotRepository,
	ids id.Generator,
	cfg HistoryConfig,
	logger *logging.Logger,
) *HistoryService {
	if logger == nil {
		logger = logging.Default()
	}
	if ids == nil {
		ids = id.NewUUIDGenerator()
	}

	return &HistoryService{
		catalog:   catalog,
		weeks:     weeks,
		snapshots: snapshots,
		ids:       ids,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// OnProgress registers a callback for per-week completion. Not safe to change during a load.
func (s *HistoryService) OnProgress(fn Progress) {
	s.progress = fn
}

func (s *HistoryService) LoadHistorical(ctx context.Context) (LoadResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.HistoryService.LoadHistorical")
	defer span.End()

	token := s.generation.Add(1)
	runID, err := s.ids.NewID()
	if err != nil {
		return LoadResult{}, fmt.Errorf("generate run id: %w", err)
	}
	start := s.now()
	result := LoadResult{RunID: runID, Generation: token, Failures: make([]WeekFailure, 0)}
	ctx = logging.ContextWith(ctx, "run_id", runID)
	logger := s.logger.With("generation", token)
	span.SetAttributes(attribute.String("run_id", runID))

	if s.catalog == nil || s.weeks == nil {
		return result, fmt.Errorf("%w: history service is not configured", ErrResourceUnavailable)
	}

	items := s.catalog.Catalog()
	if len(items) == 0 {
		if _, err := s.catalog.LoadCatalog(ctx); err != nil {
			logger.WarnContext(ctx, "reload week catalog failed", "error", err)
		}
		items = s.catalog.Catalog()
	}
	result.WeekCount = len(items)
	if len(items) == 0 {
		empty := history.Collection{RunID: runID, LoadedAt: start}
		result.Applied = s.apply(ctx, logger, token, empty)
		if result.Applied {
			s.saveSnapshot(ctx, logger, token, empty)
		}
		err := fmt.Errorf("%w: week catalog is empty", ErrNoData)
		recordSpanError(span, err)
		return result, err
	}

	outcomes, workerCount, err := s.loadAll(ctx, items)
	result.WorkerCount = workerCount
	if err != nil {
		recordSpanError(span, err)
		return result, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return result, fmt.Errorf("load historical: %w", ctxErr)
	}

	collection := history.Collection{
		RunID:    runID,
		LoadedAt: start,
		Weeks:    make([]weekstats.WeekStats, 0, len(items)),
	}
	for idx, outcome := range outcomes {
		if outcome.err != nil {
			result.Failures = append(result.Failures, WeekFailure{
				WeekID: items[idx].Week,
				File:   items[idx].File,
				Reason: outcome.err.Error(),
			})
			logger.WarnContext(ctx, "skip week in historical load",
				"week", items[idx].Week,
				"file", items[idx].File,
				"error", outcome.err,
			)
			continue
		}
		collection.Weeks = append(collection.Weeks, outcome.stats)
	}
	result.LoadedCount = collection.Len()
	result.FailedCount = len(result.Failures)
	result.DurationMs = s.now().Sub(start).Milliseconds()

	result.Applied = s.apply(ctx, logger, token, collection)
	span.SetAttributes(
		attribute.Int("weeks_loaded", result.LoadedCount),
		attribute.Int("weeks_failed", result.FailedCount),
		attribute.Bool("applied", result.Applied),
	)

	if result.Applied {
		s.saveSnapshot(ctx, logger, token, collection)
	}

	if collection.Empty() {
		err := fmt.Errorf("%w: none of %d weeks could be loaded", ErrNoData, len(items))
		recordSpanError(span, err)
		return result, err
	}

	logger.InfoContext(ctx, "historical load finished",
		"weeks", result.WeekCount,
		"loaded", result.LoadedCount,
		"failed", result.FailedCount,
		"workers", result.WorkerCount,
		"applied", result.Applied,
		"duration_ms", result.DurationMs,
	)
	return result, nil
}

type weekOutcome struct {
	stats weekstats.WeekStats
	err   error
}

// loadAll fills one slot per catalog index so completion order never leaks.
func (s *HistoryService) loadAll(ctx context.Context, items []week.Descriptor) ([]weekOutcome, int, error) {
	outcomes := make([]weekOutcome, len(items))
	workerCount := normalizeHistoryWorkerCount(s.cfg.MaxWorkers, len(items))

	pool, err := ants.NewPool(workerCount)
	if err != nil {
		return nil, workerCount, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	var (
		workers    sync.WaitGroup
		progressMu sync.Mutex
		done       int
	)
	for idx := range items {
		idx := idx
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()
			outcomes[idx] = s.loadOne(ctx, items[idx])
			if s.progress != nil {
				progressMu.Lock()
				done++
				s.progress(done, len(items))
				progressMu.Unlock()
			}
		}); err != nil {
			workers.Done()
			workers.Wait()
			return nil, workerCount, fmt.Errorf("submit week to worker pool: %w", err)
		}
	}
	workers.Wait()

	return outcomes, workerCount, nil
}

func (s *HistoryService) loadOne(ctx context.Context, info week.Descriptor) weekOutcome {
	if err := ctx.Err(); err != nil {
		return weekOutcome{err: err}
	}
	rows, err := s.weeks.LoadWeek(ctx, info)
	if err != nil {
		return weekOutcome{err: err}
	}
	return weekOutcome{stats: computeWeekStatsWith(ctx, s.logger, rows, info)}
}

func (s *HistoryService) apply(ctx context.Context, logger *logging.Logger, token uint64, collection history.Collection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if current := s.generation.Load(); current != token {
		logger.InfoContext(ctx, "discard stale historical load", "current_generation", current)
		return false
	}
	s.collection = collection
	s.applied = token
	return true
}

// saveSnapshot persists collection unless a newer load has been applied since token.
// An empty collection is saved too so the store never outlives the data it mirrors.
func (s *HistoryService) saveSnapshot(ctx context.Context, logger *logging.Logger, token uint64, collection history.Collection) {
	if s.snapshots == nil {
		return
	}

	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	if current := s.Generation(); current != token {
		logger.InfoContext(ctx, "skip superseded history snapshot", "current_generation", current)
		return
	}
	snapshot := history.Snapshot{
		RunID:    collection.RunID,
		LoadedAt: collection.LoadedAt,
		Weeks:    weekstats.Summaries(collection.Weeks),
	}
	if err := s.snapshots.Save(ctx, snapshot); err != nil {
		logger.WarnContext(ctx, "save history snapshot failed", "error", err)
	}
}

// Collection returns a copy of the last applied collection.
func (s *HistoryService) Collection() history.Collection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collection.Clone()
}

func (s *HistoryService) appliedState() (history.Collection, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collection.Clone(), s.applied
}

// Generation is the token of the last applied load, 0 before any load.
func (s *HistoryService) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.applied
}

// Ordered returns the weeks sorted for presentation.
func (s *HistoryService) Ordered(descending bool) ([]weekstats.WeekStats, error) {
	collection := s.Collection()
	if collection.Empty() {
		return nil, fmt.Errorf("%w: historical data is not loaded", ErrNoData)
	}
	if descending {
		return history.LatestFirst(collection), nil
	}
	return history.Chronological(collection), nil
}

func (s *HistoryService) PlayerSeries(name string) (history.Series, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return history.Series{}, fmt.Errorf("%w: player name is required", ErrInvalidInput)
	}
	collection := s.Collection()
	if collection.Empty() {
		return history.Series{}, fmt.Errorf("%w: historical data is not loaded", ErrNoData)
	}

	series := history.PlayerSeries(collection, name)
	if series.WeeksFound == 0 {
		return series, fmt.Errorf("%w: player=%s", ErrNotFound, name)
	}
	return series, nil
}

func (s *HistoryService) TopPlayers(limit int) ([]history.Series, error) {
	if limit == 0 {
		limit = DefaultTopPlayers
	}
	if limit < 1 || limit > MaxTopPlayers {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidInput, MaxTopPlayers)
	}
	collection := s.Collection()
	if collection.Empty() {
		return nil, fmt.Errorf("%w: historical data is not loaded", ErrNoData)
	}
	return history.TopPlayers(collection, limit), nil
}

// Snapshot returns the persisted summaries of the last applied load, falling back
// to the in-memory collection when no repository is configured or the stored run
// is not the applied one. Before any load in this process the stored run is served as is.
func (s *HistoryService) Snapshot(ctx context.Context) (history.Snapshot, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.HistoryService.Snapshot")
	defer span.End()

	collection, applied := s.appliedState()
	if s.snapshots != nil {
		snapshot, ok, err := s.snapshots.Latest(ctx)
		if err != nil {
			recordSpanError(span, err)
			return history.Snapshot{}, fmt.Errorf("get history snapshot: %w", err)
		}
		if ok && (applied == 0 || snapshot.RunID == collection.RunID) {
			if len(snapshot.Weeks) == 0 {
				return history.Snapshot{}, fmt.Errorf("%w: history snapshot is empty", ErrNoData)
			}
			return snapshot, nil
		}
	}

	if collection.Empty() {
		return history.Snapshot{}, fmt.Errorf("%w: no history snapshot", ErrNoData)
	}
	return history.Snapshot{
		RunID:    collection.RunID,
		LoadedAt: collection.LoadedAt,
		Weeks:    weekstats.Summaries(collection.Weeks),
	}, nil
}

// IsNoData reports whether err means there is nothing to show rather than a failure.
func IsNoData(err error) bool {
	return errors.Is(err, ErrNoData)
}

func normalizeHistoryWorkerCount(requested, tasks int) int {
	if requested <= 0 {
		requested = DefaultHistoryWorkers
	}
	if requested > MaxHistoryWorkers {
		requested = MaxHistoryWorkers
	}
	if tasks > 0 && requested > tasks {
		requested = tasks
	}
	if requested < 1 {
		requested = 1
	}
	return requested
}

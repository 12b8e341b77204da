package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/riskibarqy/chefscore/internal/domain/week"
	"github.com/riskibarqy/chefscore/internal/platform/logging"
)

const DefaultManifestPath = "weeks.json"

// CatalogService owns the week catalog. Readers get copies.
type CatalogService struct {
	source       week.Source
	manifestPath string
	logger       *logging.Logger

	mu     sync.RWMutex
	items  []week.Descriptor
	loaded bool
}

func NewCatalogService(source week.Source, manifestPath string, logger *logging.Logger) *CatalogService {
	if logger == nil {
		logger = logging.Default()
	}
	manifestPath = strings.TrimSpace(manifestPath)
	if manifestPath == "" {
		manifestPath = DefaultManifestPath
	}

	return &CatalogService{
		source:       source,
		manifestPath: manifestPath,
		logger:       logger,
	}
}

// LoadCatalog fetches and parses the manifest, replacing the catalog on success.
// A failed load keeps the previous catalog.
func (s *CatalogService) LoadCatalog(ctx context.Context) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CatalogService.LoadCatalog", attribute.String("manifest", s.manifestPath))
	defer span.End()

	if s.source == nil {
		err := fmt.Errorf("%w: week source is not configured", ErrResourceUnavailable)
		recordSpanError(span, err)
		return 0, err
	}

	body, err := s.source.Fetch(ctx, s.manifestPath)
	if err != nil {
		err = fmt.Errorf("%w: fetch manifest %s: %w", ErrResourceUnavailable, s.manifestPath, err)
		s.logger.WarnContext(ctx, "week manifest unavailable", "manifest", s.manifestPath, "error", err)
		recordSpanError(span, err)
		return 0, err
	}

	items, dropped, err := week.ParseManifest(body)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrMalformedData, err)
		s.logger.WarnContext(ctx, "week manifest malformed", "manifest", s.manifestPath, "error", err)
		recordSpanError(span, err)
		return 0, err
	}
	if dropped > 0 {
		s.logger.WarnContext(ctx, "dropped manifest entries without week or file", "manifest", s.manifestPath, "dropped", dropped)
	}

	s.mu.Lock()
	s.items = items
	s.loaded = true
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "week catalog loaded", "manifest", s.manifestPath, "weeks", len(items))
	return len(items), nil
}

// EnsureLoaded loads the catalog once when it is still empty.
func (s *CatalogService) EnsureLoaded(ctx context.Context) error {
	if len(s.Catalog()) > 0 {
		return nil
	}
	_, err := s.LoadCatalog(ctx)
	return err
}

func (s *CatalogService) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

func (s *CatalogService) Catalog() []week.Descriptor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]week.Descriptor(nil), s.items...)
}

func (s *CatalogService) Latest() (week.Descriptor, bool) {
	return week.DetermineLatest(s.Catalog())
}

// Find matches by week id, then by file name.
func (s *CatalogService) Find(weekID string) (week.Descriptor, bool) {
	weekID = strings.TrimSpace(weekID)
	if weekID == "" {
		return week.Descriptor{}, false
	}

	items := s.Catalog()
	for _, item := range items {
		if item.Week == weekID {
			return item, true
		}
	}
	for _, item := range items {
		if item.File == weekID {
			return item, true
		}
	}
	return week.Descriptor{}, false
}

// Resolve finds a week, loading the catalog first when it is empty.
func (s *CatalogService) Resolve(ctx context.Context, weekID string) (week.Descriptor, error) {
	if strings.TrimSpace(weekID) == "" {
		return week.Descriptor{}, fmt.Errorf("%w: week id is required", ErrInvalidInput)
	}
	if err := s.EnsureLoaded(ctx); err != nil {
		return week.Descriptor{}, err
	}

	item, ok := s.Find(weekID)
	if !ok {
		return week.Descriptor{}, fmt.Errorf("%w: week=%s", ErrNotFound, weekID)
	}
	return item, nil
}

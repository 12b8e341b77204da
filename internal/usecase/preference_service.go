package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/riskibarqy/chefscore/internal/domain/preference"
)

type PreferenceService struct {
	repo            preference.Repository
	defaultLanguage string
	now             func() time.Time
}

func NewPreferenceService(repo preference.Repository, defaultLanguage string) *PreferenceService {
	defaultLanguage = strings.ToLower(strings.TrimSpace(defaultLanguage))
	if !preference.IsSupportedLanguage(defaultLanguage) {
		defaultLanguage = preference.LanguageEnglish
	}
	return &PreferenceService{
		repo:            repo,
		defaultLanguage: defaultLanguage,
		now:             time.Now,
	}
}

func (s *PreferenceService) defaults() map[string]string {
	return map[string]string{
		preference.KeyLanguage:   s.defaultLanguage,
		preference.KeyLastViewed: "",
	}
}

// Get returns the stored value, or the default for well-known keys.
func (s *PreferenceService) Get(ctx context.Context, key string) (preference.Preference, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PreferenceService.Get")
	defer span.End()

	key = strings.TrimSpace(key)
	if err := preference.ValidateKey(key); err != nil {
		return preference.Preference{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if s.repo != nil {
		item, ok, err := s.repo.Get(ctx, key)
		if err != nil {
			recordSpanError(span, err)
			return preference.Preference{}, fmt.Errorf("get preference key=%s: %w", key, err)
		}
		if ok {
			return item, nil
		}
	}

	if value, ok := s.defaults()[key]; ok {
		return preference.Preference{Key: key, Value: value}, nil
	}
	return preference.Preference{}, fmt.Errorf("%w: preference=%s", ErrNotFound, key)
}

func (s *PreferenceService) Set(ctx context.Context, key, value string) (preference.Preference, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PreferenceService.Set")
	defer span.End()

	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if key == preference.KeyLanguage {
		value = strings.ToLower(value)
	}
	if err := preference.Validate(key, value); err != nil {
		return preference.Preference{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if s.repo == nil {
		return preference.Preference{}, fmt.Errorf("%w: preference store is not configured", ErrResourceUnavailable)
	}

	item := preference.Preference{Key: key, Value: value, UpdatedAt: s.now().UTC()}
	if err := s.repo.Upsert(ctx, item); err != nil {
		recordSpanError(span, err)
		return preference.Preference{}, fmt.Errorf("upsert preference key=%s: %w", key, err)
	}
	return item, nil
}

// List merges stored values over defaults, sorted by key.
func (s *PreferenceService) List(ctx context.Context) ([]preference.Preference, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PreferenceService.List")
	defer span.End()

	merged := make(map[string]preference.Preference)
	for key, value := range s.defaults() {
		merged[key] = preference.Preference{Key: key, Value: value}
	}
	if s.repo != nil {
		items, err := s.repo.List(ctx)
		if err != nil {
			recordSpanError(span, err)
			return nil, fmt.Errorf("list preferences: %w", err)
		}
		for _, item := range items {
			merged[item.Key] = item
		}
	}

	out := make([]preference.Preference, 0, len(merged))
	for _, item := range merged {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// TouchLastViewed stamps the last-viewed preference with the current time.
func (s *PreferenceService) TouchLastViewed(ctx context.Context) (preference.Preference, error) {
	return s.Set(ctx, preference.KeyLastViewed, s.now().UTC().Format(time.RFC3339))
}

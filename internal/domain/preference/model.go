package preference

import (
	"context"
	"fmt"
	"regexp"
	"time"
)

const (
	KeyLanguage   = "language"
	KeyLastViewed = "lastViewed"

	LanguageEnglish = "en"
	LanguageGerman  = "de"

	MaxValueLength = 1024
)

var keyPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_.-]{0,63}$`)

// Preference is an opaque key/value pair.
type Preference struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

func SupportedLanguages() []string {
	return []string{LanguageEnglish, LanguageGerman}
}

func IsSupportedLanguage(lang string) bool {
	return lang == LanguageEnglish || lang == LanguageGerman
}

func ValidateKey(key string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("preference key %q is invalid", key)
	}
	return nil
}

func Validate(key, value string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if len(value) > MaxValueLength {
		return fmt.Errorf("preference value exceeds %d bytes", MaxValueLength)
	}
	switch key {
	case KeyLanguage:
		if !IsSupportedLanguage(value) {
			return fmt.Errorf("language must be one of %v", SupportedLanguages())
		}
	case KeyLastViewed:
		if value != "" {
			if _, err := time.Parse(time.RFC3339, value); err != nil {
				return fmt.Errorf("lastViewed must be an RFC3339 timestamp")
			}
		}
	}
	return nil
}

// Repository stores preferences. Get reports false for keys never set.
type Repository interface {
	Get(ctx context.Context, key string) (Preference, bool, error)
	List(ctx context.Context) ([]Preference, error)
	Upsert(ctx context.Context, pref Preference) error
}

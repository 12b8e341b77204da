package week

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
)

var ErrInvalidManifest = errors.New("invalid week manifest")

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := sonic.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(data)
	return nil
}

type manifestEntry struct {
	Week      flexString `json:"week"`
	File      flexString `json:"file"`
	StartDate flexString `json:"startDate"`
	EndDate   flexString `json:"endDate"`
}

type manifestEnvelope struct {
	Weeks []manifestEntry `json:"weeks"`
}

// ParseManifest decodes a JSON array of week entries, or an object wrapping them
// under "weeks". It returns the number of entries dropped for lacking both id and file.
func ParseManifest(data []byte) ([]Descriptor, int, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, 0, fmt.Errorf("%w: empty body", ErrInvalidManifest)
	}

	var entries []manifestEntry
	switch trimmed[0] {
	case '[':
		if err := sonic.Unmarshal(trimmed, &entries); err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
		}
	case '{':
		var envelope manifestEnvelope
		if err := sonic.Unmarshal(trimmed, &envelope); err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
		}
		entries = envelope.Weeks
	default:
		return nil, 0, fmt.Errorf("%w: expected JSON array", ErrInvalidManifest)
	}

	out := make([]Descriptor, 0, len(entries))
	dropped := 0
	for _, entry := range entries {
		item := Descriptor{
			Week:      strings.TrimSpace(string(entry.Week)),
			File:      strings.TrimSpace(string(entry.File)),
			StartDate: strings.TrimSpace(string(entry.StartDate)),
			EndDate:   strings.TrimSpace(string(entry.EndDate)),
		}
		if item.Week == "" && item.File == "" {
			dropped++
			continue
		}
		if item.File == "" {
			item.File = DefaultFile(item.Week)
		}
		out = append(out, item)
	}

	return out, dropped, nil
}

// DefaultFile is the file name used when a manifest entry omits one.
func DefaultFile(weekID string) string {
	return "data_week_" + weekID + ".csv"
}

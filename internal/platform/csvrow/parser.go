package csvrow

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// ErrMalformed reports text that cannot produce any data row.
var ErrMalformed = errors.New("malformed delimited text")

// Record is one data line keyed by header name. Values are float64 or string.
type Record map[string]any

type WarningKind string

const (
	WarningPadded          WarningKind = "padded"
	WarningTruncated       WarningKind = "truncated"
	WarningDuplicateHeader WarningKind = "duplicateHeader"
)

// Warning describes a repaired data line or header. Column and Renamed are set for
// duplicate headers only.
type Warning struct {
	Line    int
	Kind    WarningKind
	Fields  int
	Header  int
	Column  string
	Renamed string
}

func (w Warning) String() string {
	if w.Kind == WarningDuplicateHeader {
		return fmt.Sprintf("line %d %s: %q renamed to %q", w.Line, w.Kind, w.Column, w.Renamed)
	}
	return fmt.Sprintf("line %d %s: %d fields, header has %d", w.Line, w.Kind, w.Fields, w.Header)
}

// Report summarizes a parse. Headers are the record keys, after duplicate renaming.
// Skipped counts input rows that could not become records.
type Report struct {
	Headers  []string
	Rows     int
	Skipped  int
	Warnings []Warning
}

type Options struct {
	Delimiter rune
}

var numberPattern = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

func Parse(text string) ([]Record, Report, error) {
	return ParseWith(text, Options{})
}

func ParseWith(text string, opts Options) ([]Record, Report, error) {
	report := Report{}
	text = strings.TrimPrefix(text, "\ufeff")
	if strings.TrimSpace(text) == "" {
		return nil, report, fmt.Errorf("%w: empty input", ErrMalformed)
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}

	header, err := reader.Read()
	if err != nil {
		return nil, report, fmt.Errorf("%w: read header: %v", ErrMalformed, err)
	}
	headerLine, _ := reader.FieldPos(0)
	headers := make([]string, len(header))
	for i, name := range header {
		headers[i] = strings.TrimSpace(name)
	}
	headers, report.Warnings = uniqueHeaders(headers, headerLine)
	report.Headers = headers

	records := make([]Record, 0)
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, report, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if isBlank(fields) {
			continue
		}

		line, _ := reader.FieldPos(0)
		switch {
		case len(fields) < len(headers):
			report.Warnings = append(report.Warnings, Warning{Line: line, Kind: WarningPadded, Fields: len(fields), Header: len(headers)})
		case len(fields) > len(headers):
			report.Warnings = append(report.Warnings, Warning{Line: line, Kind: WarningTruncated, Fields: len(fields), Header: len(headers)})
		}

		record := make(Record, len(headers))
		for i, name := range headers {
			raw := ""
			if i < len(fields) {
				raw = fields[i]
			}
			record[name] = Coerce(raw)
		}
		records = append(records, record)
	}

	if len(records) == 0 {
		return nil, report, fmt.Errorf("%w: header without data lines", ErrMalformed)
	}
	report.Rows = len(records)

	return records, report, nil
}

// Coerce converts a field that is fully an integer or decimal literal into float64.
// Everything else, including true/false, stays a trimmed string.
func Coerce(raw string) any {
	value := strings.TrimSpace(raw)
	if !numberPattern.MatchString(value) {
		return value
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return value
	}
	return parsed
}

// uniqueHeaders keeps the first occurrence of each name and renames later ones to
// name_2, name_3, ... skipping any name already present in the header.
func uniqueHeaders(names []string, line int) ([]string, []Warning) {
	taken := make(map[string]bool, len(names))
	for _, name := range names {
		taken[name] = true
	}

	var warnings []Warning
	seen := make(map[string]bool, len(names))
	out := make([]string, len(names))
	for i, name := range names {
		if !seen[name] {
			seen[name] = true
			out[i] = name
			continue
		}
		for n := 2; ; n++ {
			candidate := fmt.Sprintf("%s_%d", name, n)
			if taken[candidate] {
				continue
			}
			taken[candidate] = true
			seen[candidate] = true
			out[i] = candidate
			warnings = append(warnings, Warning{Line: line, Kind: WarningDuplicateHeader, Column: name, Renamed: candidate})
			break
		}
	}
	return out, warnings
}

func isBlank(fields []string) bool {
	for _, field := range fields {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

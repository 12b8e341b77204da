package filesource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var ErrOutsideRoot = errors.New("path escapes data root")

const defaultMaxBytes = 32 << 20

// Source reads week files below a local root directory.
type Source struct {
	root     string
	maxBytes int64
}

func New(root string, maxBytes int64) (*Source, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("data root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve data root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat data root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("data root %s is not a directory", abs)
	}
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	return &Source{root: abs, maxBytes: maxBytes}, nil
}

func (s *Source) Root() string {
	return s.root
}

func (s *Source) Fetch(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("week file %s: %w", path, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("open week file %s: %w", path, err)
	}
	defer f.Close()

	body, err := io.ReadAll(io.LimitReader(f, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read week file %s: %w", path, err)
	}
	if int64(len(body)) > s.maxBytes {
		return nil, fmt.Errorf("week file %s exceeds %d bytes", path, s.maxBytes)
	}
	return body, nil
}

func (s *Source) resolve(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("week file path is required")
	}
	full := filepath.Join(s.root, filepath.FromSlash(path))
	rel, err := filepath.Rel(s.root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	return full, nil
}

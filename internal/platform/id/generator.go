package id

import (
	"fmt"

	"github.com/google/uuid"
)

// Generator creates opaque run identifiers.
type Generator interface {
	NewID() (string, error)
}

type UUIDGenerator struct{}

func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{}
}

func (g *UUIDGenerator) NewID() (string, error) {
	value, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate uuid: %w", err)
	}

	return value.String(), nil
}

// Static returns the same identifier for every call. Used by tests.
type Static string

func (s Static) NewID() (string, error) {
	return string(s), nil
}

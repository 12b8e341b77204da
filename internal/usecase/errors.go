package usecase

import "errors"

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrNotFound            = errors.New("resource not found")
	ErrNoData              = errors.New("no data available")
	ErrResourceUnavailable = errors.New("resource unavailable")
	ErrMalformedData       = errors.New("malformed data")
)

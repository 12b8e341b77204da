package httpapi

import (
	"context"
	"errors"
	"net/http"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/chefscore/internal/platform/resilience"
	"github.com/riskibarqy/chefscore/internal/usecase"
)

const (
	googleAPIVersion = "2.0"
	errorDomain      = "chefscore"
	retryAfterSecs   = "30"
)

// googleResponseEnvelope follows the Google JSON style guide. ID echoes the request id.
type googleResponseEnvelope struct {
	APIVersion string           `json:"apiVersion"`
	ID         string           `json:"id,omitempty"`
	Data       any              `json:"data,omitempty"`
	Error      *googleErrorBody `json:"error,omitempty"`
}

type googleErrorBody struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Status  string            `json:"status"`
	Errors  []googleErrorItem `json:"errors,omitempty"`
}

type googleErrorItem struct {
	Domain  string `json:"domain"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type mappedError struct {
	HTTPStatus int
	Reason     string
	Status     string
}

var internalError = mappedError{
	HTTPStatus: http.StatusInternalServerError,
	Reason:     "internalError",
	Status:     "INTERNAL",
}

// errorMappings is checked in order; the first matching target wins.
var errorMappings = []struct {
	targets []error
	mapped  mappedError
}{
	{
		targets: []error{usecase.ErrInvalidInput},
		mapped:  mappedError{HTTPStatus: http.StatusBadRequest, Reason: "invalidInput", Status: "INVALID_ARGUMENT"},
	},
	{
		targets: []error{usecase.ErrNoData},
		mapped:  mappedError{HTTPStatus: http.StatusNotFound, Reason: "noData", Status: "NOT_FOUND"},
	},
	{
		targets: []error{usecase.ErrNotFound},
		mapped:  mappedError{HTTPStatus: http.StatusNotFound, Reason: "notFound", Status: "NOT_FOUND"},
	},
	{
		targets: []error{usecase.ErrMalformedData},
		mapped:  mappedError{HTTPStatus: http.StatusUnprocessableEntity, Reason: "malformedData", Status: "FAILED_PRECONDITION"},
	},
	{
		targets: []error{usecase.ErrResourceUnavailable, resilience.ErrCircuitOpen, context.DeadlineExceeded},
		mapped:  mappedError{HTTPStatus: http.StatusServiceUnavailable, Reason: "resourceUnavailable", Status: "UNAVAILABLE"},
	},
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = sonic.ConfigDefault.NewEncoder(w).Encode(payload)
}

func writeSuccess(ctx context.Context, w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, googleResponseEnvelope{
		APIVersion: googleAPIVersion,
		ID:         requestIDFrom(ctx),
		Data:       data,
	})
}

// writeError maps err onto the envelope. 5xx messages are replaced so driver
// and origin details never reach clients.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	mapped := mapError(err)
	recordSpanError(ctx, mapped.HTTPStatus, err)

	message := err.Error()
	if mapped.HTTPStatus == http.StatusInternalServerError {
		message = "internal server error"
	}
	if mapped.HTTPStatus == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", retryAfterSecs)
	}

	writeJSON(w, mapped.HTTPStatus, googleResponseEnvelope{
		APIVersion: googleAPIVersion,
		ID:         requestIDFrom(ctx),
		Error: &googleErrorBody{
			Code:    mapped.HTTPStatus,
			Message: message,
			Status:  mapped.Status,
			Errors: []googleErrorItem{{
				Domain:  errorDomain,
				Reason:  mapped.Reason,
				Message: message,
			}},
		},
	})
}

func writeInternalError(ctx context.Context, w http.ResponseWriter) {
	writeError(ctx, w, errors.New("internal server error"))
}

func mapError(err error) mappedError {
	for _, m := range errorMappings {
		for _, target := range m.targets {
			if errors.Is(err, target) {
				return m.mapped
			}
		}
	}
	return internalError
}

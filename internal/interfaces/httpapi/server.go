package httpapi

import (
	"net/http"

	"github.com/riskibarqy/chefscore/internal/platform/logging"
)

// NewRouter mounts every API route. Middleware order, outermost first:
// tracing, request id, logging, CORS, panic recovery.
func NewRouter(
	handler *Handler,
	logger *logging.Logger,
	swaggerEnabled bool,
	corsAllowedOrigins []string,
) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}

	r := &routes{mux: http.NewServeMux()}
	registerSystemRoutes(r, handler, swaggerEnabled)
	registerWeekRoutes(r, handler)
	registerHistoryRoutes(r, handler)
	registerPreferenceRoutes(r, handler)

	return RequestTracing(RequestID(RequestLogging(logger, CORS(corsAllowedOrigins, recoverPanic(logger, r.mux)))))
}

type routes struct {
	mux *http.ServeMux
}

func (r *routes) handle(pattern string, fn http.HandlerFunc) {
	r.mux.HandleFunc(pattern, func(w http.ResponseWriter, req *http.Request) {
		nameServerSpan(req)
		fn(w, req)
	})
}

func recoverPanic(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				ctx := r.Context()
				logger.ErrorContext(ctx, "panic recovered",
					"panic", rec,
					"method", r.Method,
					"path", r.URL.Path,
				)
				writeInternalError(ctx, w)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

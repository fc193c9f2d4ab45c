package middlewares

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	common "github.com/matchcore/core/pkg/domain"
)

func devMode() bool {
	return os.Getenv("ENV") == "development" || os.Getenv("ENV") == "dev"
}

// ErrorMiddleware is the last-resort translator from a handler's outcome to
// an HTTP response: a handler either writes its own response, or sets an
// error via common.SetError (or a DomainError it returns via context) and
// lets this middleware map it through APIErrorFromDomain.
func ErrorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &errorResponseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		if err := common.GetError(r.Context()); err != nil && !rw.headerWritten {
			slog.ErrorContext(r.Context(), "handling context error", "error", err)
			rw.writeErrorResponse(common.APIErrorFromDomain(err, devMode()))
			return
		}

		if ctxErr := r.Context().Err(); ctxErr != nil && !rw.headerWritten {
			slog.ErrorContext(r.Context(), "request context error", "error", ctxErr)

			apiErr := &common.APIError{StatusCode: http.StatusInternalServerError, Code: "CONTEXT_ERROR", Message: ctxErr.Error()}
			switch ctxErr {
			case context.Canceled:
				apiErr = &common.APIError{StatusCode: http.StatusRequestTimeout, Code: "REQUEST_CANCELLED", Message: "request was cancelled"}
			case context.DeadlineExceeded:
				apiErr = &common.APIError{StatusCode: http.StatusRequestTimeout, Code: "REQUEST_TIMEOUT", Message: "request timeout"}
			}

			rw.writeErrorResponse(apiErr)
			return
		}

		if rw.statusCode >= 400 && !rw.headerWritten {
			slog.ErrorContext(r.Context(), "error status without response body", "status", rw.statusCode)
			rw.writeErrorResponse(&common.APIError{StatusCode: rw.statusCode, Code: "ERROR", Message: http.StatusText(rw.statusCode)})
			return
		}

		if rw.statusCode < 400 {
			slog.InfoContext(r.Context(), "request completed", "status", rw.statusCode, "path", r.URL.Path)
		}
	})
}

// ContextualErrorMiddleware is a backward-compatible alias for ErrorMiddleware.
func ContextualErrorMiddleware(next http.Handler) http.Handler {
	return ErrorMiddleware(next)
}

// errorResponseWriter tracks whether a handler already wrote a response, so
// ErrorMiddleware never double-writes headers.
type errorResponseWriter struct {
	http.ResponseWriter
	statusCode    int
	headerWritten bool
}

func (rw *errorResponseWriter) WriteHeader(statusCode int) {
	if !rw.headerWritten {
		rw.statusCode = statusCode
		rw.headerWritten = true
		rw.ResponseWriter.WriteHeader(statusCode)
	}
}

func (rw *errorResponseWriter) Write(data []byte) (int, error) {
	if !rw.headerWritten {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(data)
}

func (rw *errorResponseWriter) writeErrorResponse(apiErr *common.APIError) {
	if !rw.headerWritten {
		rw.headerWritten = true
		if err := common.WriteErrorResponse(rw.ResponseWriter, apiErr); err != nil {
			slog.Error("failed to write error response", "error", err)
		}
	}
}

package controllers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"

	common "github.com/matchcore/core/pkg/domain"
)

func devMode() bool {
	return os.Getenv("ENV") == "development" || os.Getenv("ENV") == "dev"
}

// ControllerHelper provides utility methods shared by command controllers:
// JSON decoding and a single error-to-response mapping keyed off
// common.DomainError's Kind, so no controller needs to sniff error strings.
type ControllerHelper struct{}

func NewControllerHelper() *ControllerHelper {
	return &ControllerHelper{}
}

// DecodeJSONRequest decodes JSON request body into dest, writing a 400 and
// returning false on failure.
func (h *ControllerHelper) DecodeJSONRequest(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		slog.WarnContext(r.Context(), "failed to decode request body", "err", err)
		WriteBadRequest(w, "invalid request body")
		return false
	}
	return true
}

// HandleError maps err's DomainError kind to an HTTP status and writes the
// response via common.APIErrorFromDomain, the same mapping ErrorMiddleware
// uses for errors left in the request context. Returns true if err was
// non-nil (and thus handled).
func (h *ControllerHelper) HandleError(w http.ResponseWriter, r *http.Request, err error, logMessage string) bool {
	if err == nil {
		return false
	}

	slog.WarnContext(r.Context(), logMessage, "err", err, "kind", common.KindOf(err))
	if writeErr := common.WriteErrorResponse(w, common.APIErrorFromDomain(err, devMode())); writeErr != nil {
		slog.ErrorContext(r.Context(), "failed to write error response", "err", writeErr)
	}
	return true
}

func (h *ControllerHelper) WriteOK(w http.ResponseWriter, data interface{}) {
	WriteSuccess(w, data)
}

func (h *ControllerHelper) WriteCreated(w http.ResponseWriter, data interface{}) {
	WriteCreated(w, data, "")
}

func (h *ControllerHelper) WriteNoContent(w http.ResponseWriter) {
	WriteNoContent(w)
}

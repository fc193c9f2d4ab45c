package common

import (
	"context"
	"encoding/json"
	"net/http"
)

// ErrorContextKey is used to store errors in the request context so the
// error middleware can translate them into an HTTP response after handlers
// return.
type ErrorContextKey struct{}

func SetError(ctx context.Context, err error) context.Context {
	return context.WithValue(ctx, ErrorContextKey{}, err)
}

func GetError(ctx context.Context) error {
	if err, ok := ctx.Value(ErrorContextKey{}).(error); ok {
		return err
	}
	return nil
}

// APIError is the wire shape an error middleware writes to the client.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
}

func (e APIError) Error() string {
	return e.Message
}

var kindStatus = map[ErrorKind]int{
	KindNotFound:     http.StatusNotFound,
	KindConflict:     http.StatusConflict,
	KindBadRequest:   http.StatusBadRequest,
	KindUnauthorized: http.StatusUnauthorized,
	KindForbidden:    http.StatusForbidden,
	KindValidation:   http.StatusUnprocessableEntity,
	KindRateLimit:    http.StatusTooManyRequests,
	KindInternal:     http.StatusInternalServerError,
}

// APIErrorFromDomain maps a DomainError (or any error) to an APIError using
// its Kind. devMode controls whether the underlying message is surfaced for
// internal errors; non-internal kinds always carry their own message since
// it is meant for the caller.
func APIErrorFromDomain(err error, devMode bool) *APIError {
	if err == nil {
		return nil
	}

	kind := KindOf(err)
	status := kindStatus[kind]
	if status == 0 {
		status = http.StatusInternalServerError
	}

	message := err.Error()
	if kind == KindInternal && !devMode {
		message = "internal server error"
	}

	return &APIError{
		StatusCode: status,
		Code:       string(kind),
		Message:    message,
	}
}

func WriteErrorResponse(w http.ResponseWriter, apiErr *APIError) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.StatusCode)

	response := map[string]string{
		"code":  apiErr.Code,
		"error": apiErr.Message,
	}

	return json.NewEncoder(w).Encode(response)
}

func WriteSuccessResponse(w http.ResponseWriter, data interface{}, statusCode int) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		return json.NewEncoder(w).Encode(data)
	}
	return nil
}

package common

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a DomainError so transport layers (HTTP, WebSocket)
// can map it to a status/close code without sniffing message strings.
type ErrorKind string

const (
	KindNotFound     ErrorKind = "not_found"
	KindConflict     ErrorKind = "conflict"
	KindBadRequest   ErrorKind = "bad_request"
	KindUnauthorized ErrorKind = "unauthorized"
	KindForbidden    ErrorKind = "forbidden"
	KindValidation   ErrorKind = "validation"
	KindRateLimit    ErrorKind = "rate_limit"
	KindInternal     ErrorKind = "internal"
)

// DomainError is the single error type every pkg/domain package returns for
// expected failure modes. Transport adapters inspect Kind(), never the
// message, to decide how to respond.
type DomainError struct {
	kind    ErrorKind
	message string
}

func (e *DomainError) Error() string   { return e.message }
func (e *DomainError) Kind() ErrorKind { return e.kind }

func newDomainError(kind ErrorKind, message string) error {
	return &DomainError{kind: kind, message: message}
}

func NewErrNotFound(resourceType, fieldName string, value interface{}) error {
	return newDomainError(KindNotFound, fmt.Sprintf("%s with %s %v not found", resourceType, fieldName, value))
}

func NewErrAlreadyExists(resourceType, fieldName string, value interface{}) error {
	return newDomainError(KindConflict, fmt.Sprintf("%s with %s %v already exists", resourceType, fieldName, value))
}

func NewErrBadRequest(message string) error {
	return newDomainError(KindBadRequest, message)
}

func NewErrUnauthorized(messages ...string) error {
	msg := "unauthorized"
	if len(messages) > 0 && messages[0] != "" {
		msg = messages[0]
	}
	return newDomainError(KindUnauthorized, msg)
}

func NewErrForbidden(messages ...string) error {
	msg := "forbidden"
	if len(messages) > 0 && messages[0] != "" {
		msg = messages[0]
	}
	return newDomainError(KindForbidden, msg)
}

func NewErrValidation(message string) error {
	return newDomainError(KindValidation, message)
}

func NewErrRateLimit(message string) error {
	return newDomainError(KindRateLimit, message)
}

func NewErrInternal(message string) error {
	return newDomainError(KindInternal, message)
}

// KindOf unwraps err looking for a *DomainError and returns its Kind, or
// KindInternal when err carries no classification of its own.
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.kind
	}
	return KindInternal
}

func IsNotFoundError(err error) bool     { return KindOf(err) == KindNotFound }
func IsConflictError(err error) bool     { return KindOf(err) == KindConflict }
func IsBadRequestError(err error) bool   { return KindOf(err) == KindBadRequest }
func IsUnauthorizedError(err error) bool { return KindOf(err) == KindUnauthorized }
func IsForbiddenError(err error) bool    { return KindOf(err) == KindForbidden }
func IsValidationError(err error) bool   { return KindOf(err) == KindValidation }
func IsRateLimitError(err error) bool    { return KindOf(err) == KindRateLimit }

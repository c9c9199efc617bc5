package httpapi

import "net/http"

// apiError carries the HTTP status a handler should respond with alongside
// the message sent to the client. It covers the first three kinds of the
// service's error taxonomy: validation, referential, and transient backend
// failures. The fourth kind, programmer errors (nil dereferences, invariant
// violations), is never wrapped here — it is expected to panic and let the
// process's recover middleware log and abort the request instead of
// pretending to have handled it.
type apiError struct {
	status  int
	message string
}

func (e *apiError) Error() string { return e.message }

// validationError reports a malformed request body: missing fields, wrong
// types, an unparseable timestamp.
func validationError(message string) *apiError {
	return &apiError{status: http.StatusBadRequest, message: message}
}

// referentialError reports a request that is well-formed but references
// something that doesn't exist: an unknown user or event type.
func referentialError(message string) *apiError {
	return &apiError{status: http.StatusBadRequest, message: message}
}

// transientError reports a backend failure the caller might succeed at
// retrying: a database timeout, a cache round-trip failure.
func transientError(message string) *apiError {
	return &apiError{status: http.StatusInternalServerError, message: message}
}

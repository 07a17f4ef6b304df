package api

import "net/http"

// Error is a client-facing request failure carrying the HTTP status the
// transport adapter should map it to.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

// badRequest reports a malformed request with a human-readable reason.
func badRequest(reason string) *Error {
	return &Error{Status: http.StatusBadRequest, Message: "Invalid request: " + reason}
}

// invalidRequest reports a generic client error. Targets that never existed
// and targets that vanished between validation and production both get this
// response; callers cannot distinguish the two cases.
func invalidRequest() *Error {
	return &Error{Status: http.StatusBadRequest, Message: "Invalid request"}
}

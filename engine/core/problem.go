package core

import "net/http"

// Problem captures the information returned in an RFC 7807 error response.
type Problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
	Code   Kind   `json:"code,omitempty"`
}

// StatusFor maps a failure kind to its HTTP status.
func StatusFor(kind Kind) int {
	switch kind {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindNoTranscript:
		return http.StatusUnprocessableEntity
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ProblemFrom builds the response body for err. Internal details are not exposed.
func ProblemFrom(err *Error) Problem {
	if err == nil {
		err = &Error{Kind: KindInternal}
	}
	status := StatusFor(err.Kind)
	detail := err.Message
	if err.Kind == KindInternal {
		detail = "internal error"
	}
	return Problem{
		Type:   "about:blank",
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
		Code:   err.Kind,
	}
}

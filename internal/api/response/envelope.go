package response

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Meta carries the request id and server time of an operator response.
type Meta struct {
	RequestID string `json:"requestId"`
	Timestamp string `json:"timestamp"`
}

// Error is the error member of an Envelope.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Envelope wraps operator endpoint responses (health, sync, endpoint
// registration). Exactly one of Data and Error is set.
type Envelope struct {
	Data  any    `json:"data"`
	Error *Error `json:"error"`
	Meta  Meta   `json:"meta"`
}

// NewMeta stamps the current UTC time. An empty requestID gets a fresh UUID
// so every envelope can be correlated with the logs.
func NewMeta(requestID string) Meta {
	if requestID == "" {
		requestID = uuid.NewString()
	}
	return Meta{RequestID: requestID, Timestamp: time.Now().UTC().Format(time.RFC3339)}
}

// Success writes data in an envelope.
func Success(w http.ResponseWriter, status int, data any, requestID string) {
	Raw(w, status, Envelope{Data: data, Meta: NewMeta(requestID)})
}

// Err writes an error envelope.
func Err(w http.ResponseWriter, status int, code, message, requestID string) {
	ErrWithDetails(w, status, code, message, nil, requestID)
}

// ErrWithDetails writes an error envelope whose details describe what went
// wrong, such as field errors or partial sync counts.
func ErrWithDetails(w http.ResponseWriter, status int, code, message string, details any, requestID string) {
	Raw(w, status, Envelope{
		Error: &Error{Code: code, Message: message, Details: details},
		Meta:  NewMeta(requestID),
	})
}

// Package types holds the JSON envelopes shared by the HTTP layer and its clients.
package types

// RequestIDHeader carries the correlation id on both requests and responses.
const RequestIDHeader = "X-Request-Id"

// SuccessEnvelope wraps every 2xx body as {"data": ...}.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public error body. Retryable marks failures a client may
// retry unchanged, such as no delivery partner being available yet.
// RequestID echoes the response header so support can find the log line from
// a screenshot.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Details   any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

package client

import (
	"encoding/json"
	"errors"
	"fmt"
)

// APIError represents a structured error response from the navgraph API.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	RequestID  string `json:"request_id,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("navgraph: %d %s: %s (request_id=%s)", e.StatusCode, e.Code, e.Message, e.RequestID)
	}
	return fmt.Sprintf("navgraph: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

func hasCode(err error, code string) bool {
	var e *APIError
	return errors.As(err, &e) && e.Code == code
}

// IsInvalidNode reports whether a query named a parcel that is not in the graph.
func IsInvalidNode(err error) bool { return hasCode(err, "invalid_node") }

// IsInvalidMode reports whether the mode was not real or all.
func IsInvalidMode(err error) bool { return hasCode(err, "invalid_mode") }

// IsNotLoaded reports whether the server could not load its graph.
func IsNotLoaded(err error) bool { return hasCode(err, "not_loaded") }

// IsRateLimited returns true if the error is a 429 rate limit.
func IsRateLimited(err error) bool {
	var e *APIError
	return errors.As(err, &e) && e.StatusCode == 429
}

// parseAPIError attempts to decode a JSON error body; falls back to raw text.
func parseAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = "unknown"
		apiErr.Message = string(body)
	}
	return apiErr
}

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError carries the backend's HTTP status and human-readable detail.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("workshop backend returned status %d: %s", e.StatusCode, e.Detail)
}

// Transient reports whether the failure is server contention or a restart
// (500, 503) and therefore worth retrying. Client and validation errors
// (400, 401, 404) are never transient.
func (e *APIError) Transient() bool {
	return e.StatusCode == http.StatusInternalServerError ||
		e.StatusCode == http.StatusServiceUnavailable
}

// IsTransient reports whether err is a retryable backend failure.
func IsTransient(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Transient()
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// decodeAPIError builds an APIError from an error response. The backend is
// expected to send a JSON body with a "detail" string; when the body is
// missing or unparsable, the HTTP status text stands in.
func decodeAPIError(resp *http.Response) error {
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Detail == "" {
		body.Detail = http.StatusText(resp.StatusCode)
	}
	return &APIError{StatusCode: resp.StatusCode, Detail: body.Detail}
}

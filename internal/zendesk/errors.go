package zendesk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrUnavailable wraps transport failures: DNS, refused connections,
	// timeouts and unreadable responses.
	ErrUnavailable = errors.New("zendesk: unavailable")

	// ErrInvalidTicketID is returned before any request is made when the
	// identifier is not a positive integer.
	ErrInvalidTicketID = errors.New("zendesk: invalid ticket id")
)

// APIError represents a non-2xx response from the Zendesk API.
type APIError struct {
	// StatusCode is the HTTP response status code.
	StatusCode int

	// Message is the error description from Zendesk, or the raw body
	// when it could not be parsed.
	Message string
}

func (err *APIError) Error() string {
	return fmt.Sprintf("zendesk: HTTP %d: %s", err.StatusCode, err.Message)
}

// IsUnauthorized reports whether err is a 401 or 403 response, which is
// what Zendesk returns for missing or revoked API tokens.
func IsUnauthorized(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) &&
		(apiError.StatusCode == http.StatusUnauthorized || apiError.StatusCode == http.StatusForbidden)
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.StatusCode == http.StatusNotFound
}

// Reason classifies err into a short label for logs and metrics.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidTicketID):
		return "invalid_id"
	case IsUnauthorized(err):
		return "unauthorized"
	case IsNotFound(err):
		return "not_found"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}

// parseAPIError builds an APIError from a Zendesk error body. Zendesk uses
// both {"error": "...", "description": "..."} and
// {"error": {"title": "...", "message": "..."}} shapes.
func parseAPIError(statusCode int, body []byte) *APIError {
	apiError := &APIError{StatusCode: statusCode}

	var parsed struct {
		Error       json.RawMessage `json:"error"`
		Description string          `json:"description"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Description != "" {
			apiError.Message = parsed.Description
			return apiError
		}
		var title string
		if json.Unmarshal(parsed.Error, &title) == nil && title != "" {
			apiError.Message = title
			return apiError
		}
		var detail struct {
			Title   string `json:"title"`
			Message string `json:"message"`
		}
		if json.Unmarshal(parsed.Error, &detail) == nil && (detail.Message != "" || detail.Title != "") {
			apiError.Message = strings.TrimSpace(detail.Title + " " + detail.Message)
			return apiError
		}
	}

	message := strings.TrimSpace(string(body))
	if len(message) > 200 {
		message = message[:200] + "..."
	}
	if message == "" {
		message = http.StatusText(statusCode)
	}
	apiError.Message = message
	return apiError
}

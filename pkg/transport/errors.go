package transport

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rhuss/modelfarm/pkg/api"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 4096

// MapHTTPError converts a non-2xx response into a RequestError, using the
// message from the body when one can be found.
func MapHTTPError(resp *http.Response) *api.RequestError {
	message := ExtractErrorMessage(resp.Body)
	status := resp.StatusCode

	switch {
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		if message == "" {
			message = "invalid request"
		}
		return api.NewInvalidRequestError(status, message)

	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		if message == "" {
			message = "authentication failed"
		}
		return api.NewUnauthorizedError(status, message)

	case status == http.StatusNotFound:
		if message == "" {
			message = "resource not found"
		}
		return api.NewNotFoundError(message)

	case status == http.StatusTooManyRequests:
		if message == "" {
			message = "rate limit exceeded"
		}
		return api.NewTooManyRequestsError(message)

	case status >= http.StatusInternalServerError:
		if message == "" {
			message = fmt.Sprintf("server error (HTTP %d)", status)
		}
		return api.NewServerError(status, message)

	default:
		if message == "" {
			message = fmt.Sprintf("unexpected response (HTTP %d)", status)
		}
		return api.NewServerError(status, message)
	}
}

// MapNetworkError converts a connection-level failure into a RequestError.
func MapNetworkError(err error) *api.RequestError {
	return api.NewNetworkError(fmt.Sprintf("connection error: %s", err.Error()))
}

// errorBody covers the error envelopes the service is known to return:
//
//	{"error":{"message":"..."}}
//	{"error":"..."}
//	{"detail":"..."}
//	{"message":"..."}
type errorBody struct {
	Error   json.RawMessage `json:"error"`
	Detail  any             `json:"detail"`
	Message string          `json:"message"`
}

// ExtractErrorMessage returns the message from an error body, or "".
func ExtractErrorMessage(body io.Reader) string {
	if body == nil {
		return ""
	}

	data, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}

	var eb errorBody
	if err := json.Unmarshal(data, &eb); err != nil {
		return ""
	}

	if len(eb.Error) > 0 {
		var nested struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(eb.Error, &nested) == nil && nested.Message != "" {
			return nested.Message
		}
		var s string
		if json.Unmarshal(eb.Error, &s) == nil && s != "" {
			return s
		}
	}

	switch d := eb.Detail.(type) {
	case string:
		if d != "" {
			return d
		}
	case nil:
	default:
		if b, err := json.Marshal(d); err == nil {
			return string(b)
		}
	}

	return eb.Message
}

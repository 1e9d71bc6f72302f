package transport

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/rhuss/modelfarm/pkg/api"
)

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestMapHTTPError(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantType    api.ErrorType
		wantMessage string
	}{
		{"400 with openai body", 400, `{"error":{"message":"model is required","type":"invalid_request_error"}}`, api.ErrorTypeInvalidRequest, "model is required"},
		{"400 empty body", 400, "", api.ErrorTypeInvalidRequest, "invalid request"},
		{"422 detail", 422, `{"detail":"temperature out of range"}`, api.ErrorTypeInvalidRequest, "temperature out of range"},
		{"401", 401, `{"error":"invalid token"}`, api.ErrorTypeUnauthorized, "invalid token"},
		{"403 default", 403, "", api.ErrorTypeUnauthorized, "authentication failed"},
		{"404", 404, `{"message":"no such model"}`, api.ErrorTypeNotFound, "no such model"},
		{"429 default", 429, "", api.ErrorTypeTooManyRequests, "rate limit exceeded"},
		{"500 default", 500, "oops", api.ErrorTypeServerError, "server error (HTTP 500)"},
		{"503 with body", 503, `{"error":{"message":"overloaded"}}`, api.ErrorTypeServerError, "overloaded"},
		{"302 unexpected", 302, "", api.ErrorTypeServerError, "unexpected response (HTTP 302)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapHTTPError(response(tt.status, tt.body))
			if err.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", err.Type, tt.wantType)
			}
			if err.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMessage)
			}
			if err.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", err.StatusCode, tt.status)
			}
		})
	}
}

func TestExtractErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"nested", `{"error":{"message":"nested msg"}}`, "nested msg"},
		{"string error", `{"error":"flat msg"}`, "flat msg"},
		{"detail string", `{"detail":"detail msg"}`, "detail msg"},
		{"detail object", `{"detail":[{"loc":["body"],"msg":"bad"}]}`, `[{"loc":["body"],"msg":"bad"}]`},
		{"message", `{"message":"top msg"}`, "top msg"},
		{"not json", "<html>bad gateway</html>", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractErrorMessage(strings.NewReader(tt.body)); got != tt.want {
				t.Errorf("ExtractErrorMessage = %q, want %q", got, tt.want)
			}
		})
	}

	if got := ExtractErrorMessage(nil); got != "" {
		t.Errorf("ExtractErrorMessage(nil) = %q, want empty", got)
	}
}

func TestMapNetworkError(t *testing.T) {
	err := MapNetworkError(errors.New("dial tcp 127.0.0.1:1: connection refused"))
	if err.Type != api.ErrorTypeNetwork {
		t.Errorf("Type = %q, want %q", err.Type, api.ErrorTypeNetwork)
	}
	if !strings.Contains(err.Message, "connection refused") {
		t.Errorf("Message = %q, want it to mention the cause", err.Message)
	}
}

package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "type and message",
			err:      ErrAuth("SERPER_API_KEY not set"),
			expected: "auth: SERPER_API_KEY not set",
		},
		{
			name:     "with status code",
			err:      ErrSearch("request failed").WithStatusCode(http.StatusUnauthorized),
			expected: "search: request failed (status 401)",
		},
		{
			name:     "with cause",
			err:      ErrTransport("post failed").WithCause(errors.New("connection refused")),
			expected: "transport: post failed: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestError_WithCauseCopiesStatus(t *testing.T) {
	se := NewStatusError(http.StatusServiceUnavailable, "http://x/api/chat", []byte("busy"))
	err := ErrTransport("chat failed").WithCause(fmt.Errorf("post: %w", se))

	if err.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d, want %d", err.StatusCode, http.StatusServiceUnavailable)
	}
	if !errors.Is(err, se) {
		t.Error("expected error chain to contain the StatusError")
	}
}

func TestIsType(t *testing.T) {
	wrapped := fmt.Errorf("stage web_research: %w", ErrSearch("exhausted"))

	if !IsType(wrapped, ErrorTypeSearch) {
		t.Error("IsType(search) = false, want true")
	}
	if IsType(wrapped, ErrorTypeAuth) {
		t.Error("IsType(auth) = true, want false")
	}
	if IsType(errors.New("plain"), ErrorTypeSearch) {
		t.Error("IsType on plain error = true, want false")
	}
}

func TestNewStatusError_TruncatesBody(t *testing.T) {
	body := make([]byte, 1000)
	for i := range body {
		body[i] = 'a'
	}
	se := NewStatusError(http.StatusBadGateway, "http://x", body)
	if len(se.Body) != maxErrorBody {
		t.Errorf("len(Body) = %d, want %d", len(se.Body), maxErrorBody)
	}
	if HTTPStatus(fmt.Errorf("wrap: %w", se)) != http.StatusBadGateway {
		t.Error("HTTPStatus did not find wrapped status")
	}
	if HTTPStatus(errors.New("x")) != 0 {
		t.Error("HTTPStatus on plain error should be 0")
	}
}

func TestNewStatusError_TruncatesOnRuneBoundary(t *testing.T) {
	body := []byte(strings.Repeat("é", 400))
	se := NewStatusError(http.StatusBadGateway, "http://x", body)
	if !utf8.ValidString(se.Body) {
		t.Error("Body is not valid UTF-8")
	}
	if got := utf8.RuneCountInString(se.Body); got != maxErrorBody {
		t.Errorf("runes = %d, want %d", got, maxErrorBody)
	}
}

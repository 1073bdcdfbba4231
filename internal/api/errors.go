package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrTransport    = errors.New("api: transport failure")
	ErrUnauthorized = errors.New("api: unauthorized")
	ErrForbidden    = errors.New("api: forbidden")
	ErrNotFound     = errors.New("api: not found")
	ErrRejected     = errors.New("api: request rejected")
	ErrUpstream     = errors.New("api: upstream error")
	ErrDecode       = errors.New("api: malformed response")
)

// Error is a non-2xx answer from the adoption API.
type Error struct {
	Op         string
	StatusCode int
	// Message is the server's own explanation, when the body carried one.
	Message string
	Body    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %s: status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api: %s: status %d", e.Op, e.StatusCode)
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrForbidden:
		return e.StatusCode == http.StatusForbidden
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrRejected:
		return e.StatusCode >= 400 && e.StatusCode < 500
	case ErrUpstream:
		return e.StatusCode >= 500
	}
	return false
}

func newError(op string, code int, body []byte) *Error {
	e := &Error{Op: op, StatusCode: code, Body: strings.TrimSpace(string(body))}
	e.Message = messageFrom(body)
	return e
}

// messageFrom pulls "message" (or "error") out of a JSON body. Plain-text
// bodies are used as-is when short.
func messageFrom(body []byte) string {
	var m struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &m); err == nil {
		if m.Message != "" {
			return m.Message
		}
		return m.Error
	}
	s := strings.TrimSpace(string(body))
	if s != "" && len(s) <= 200 && !strings.HasPrefix(s, "<") {
		return s
	}
	return ""
}

// UserMessage is the text to show for err: the server's message when it sent
// one, otherwise fallback.
func UserMessage(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}

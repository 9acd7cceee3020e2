package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Error is a non-2xx response from the API.
type Error struct {
	Method string
	Path   string
	Status int
	// Message and ErrorText are the "message" and "error" fields of the
	// response body, when it is a JSON object carrying them.
	Message   string
	ErrorText string
	Body      string
}

func (e *Error) Error() string {
	detail := e.Message
	if detail == "" {
		detail = e.ErrorText
	}
	if detail == "" {
		detail = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.Status, detail)
}

// HTTPStatus returns the response status code.
func (e *Error) HTTPStatus() int { return e.Status }

// ServerMessage returns the body's "message" field.
func (e *Error) ServerMessage() string { return e.Message }

// ServerError returns the body's "error" field.
func (e *Error) ServerError() string { return e.ErrorText }

func newError(method, path string, status int, body []byte) *Error {
	e := &Error{
		Method: method,
		Path:   path,
		Status: status,
		Body:   strings.TrimSpace(string(body)),
	}
	var payload struct {
		Message json.RawMessage `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		e.Message = textField(payload.Message)
		e.ErrorText = textField(payload.Error)
	}
	return e
}

// textField keeps string fields only; Spring-style error bodies sometimes
// carry objects under "error".
func textField(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

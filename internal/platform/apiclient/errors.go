package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// APIError is returned for any non-2xx backend response.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	// Message is the server-provided explanation, when the body carried one.
	Message string
	Body    []byte
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

// UserMessage returns the text suitable for a toast; empty when the server sent none.
func (e *APIError) UserMessage() string { return e.Message }

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.StatusCode == code
}

// UserMessage returns the server's message carried by err, or fallback when
// there is none.
func UserMessage(err error, fallback string) string {
	var ae *APIError
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	return fallback
}

func newAPIError(method, path string, status int, body []byte) *APIError {
	return &APIError{
		StatusCode: status,
		Method:     method,
		Path:       path,
		Message:    extractMessage(body),
		Body:       body,
	}
}

// extractMessage pulls a human-readable message out of an error body. The
// backend answers with {"detail": ...}, {"error": ...}, {"message": ...} or a
// field map such as {"truck_plate_num": ["truck with this plate already exists."]}.
func extractMessage(body []byte) string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		var list []string
		if json.Unmarshal(body, &list) == nil && len(list) > 0 {
			return list[0]
		}
		return ""
	}
	for _, k := range []string{"detail", "error", "message"} {
		if raw, ok := obj[k]; ok {
			if s := firstString(raw); s != "" {
				return s
			}
		}
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if s := firstString(obj[k]); s != "" {
			if k == "non_field_errors" {
				return s
			}
			return k + ": " + s
		}
	}
	return ""
}

func firstString(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return strings.TrimSpace(s)
	}
	var list []json.RawMessage
	if json.Unmarshal(raw, &list) == nil {
		for _, item := range list {
			if s := firstString(item); s != "" {
				return s
			}
		}
	}
	return ""
}

package api

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Error captures a normalized API failure. Transport failures carry Err and
// a zero Status.
type Error struct {
	Operation string
	Status    int
	Message   string
	Detail    string
	Raw       map[string]any
	Err       error
}

func (e *Error) Error() string {
	if e == nil {
		return "api error"
	}

	scope := "api"
	if e.Operation != "" {
		scope = e.Operation
	}

	if msg := e.APIMessage(); msg != "" {
		return fmt.Sprintf("%s failed (%d): %s", scope, e.Status, msg)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %v", scope, e.Err)
	}
	return fmt.Sprintf("%s failed with status %d", scope, e.Status)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// StatusCode returns the HTTP status, 0 for transport failures.
func (e *Error) StatusCode() int {
	if e == nil {
		return 0
	}
	return e.Status
}

// APIMessage returns the human readable message from the error body:
// message first, then detail.
func (e *Error) APIMessage() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Detail
}

// Metadata returns the error details as a flat map.
func (e *Error) Metadata() map[string]any {
	if e == nil {
		return nil
	}

	meta := map[string]any{}
	if e.Operation != "" {
		meta["operation"] = e.Operation
	}
	if e.Status != 0 {
		meta["status"] = e.Status
	}
	if e.Message != "" {
		meta["message"] = e.Message
	}
	if e.Detail != "" {
		meta["detail"] = e.Detail
	}
	if len(e.Raw) > 0 {
		meta["raw"] = e.Raw
	}
	return meta
}

func transportError(op string, err error) *Error {
	return &Error{Operation: op, Err: err}
}

// responseError builds an Error from a non 2xx response body. The body is
// usually {"message": ...} or {"detail": ...}; field errors of the form
// {"email": ["..."]} are folded into Detail.
func responseError(op string, status int, body []byte) *Error {
	e := &Error{Operation: op, Status: status}

	raw := map[string]any{}
	if err := json.Unmarshal(body, &raw); err != nil {
		if text := strings.TrimSpace(string(body)); text != "" && len(text) < 512 && !strings.HasPrefix(text, "<") {
			e.Detail = text
		}
		return e
	}

	e.Raw = raw
	e.Message = stringField(raw, "message")
	e.Detail = stringField(raw, "detail")
	if e.Message == "" && e.Detail == "" {
		e.Detail = stringField(raw, "error")
	}
	if e.Message == "" && e.Detail == "" {
		e.Detail = fieldErrors(raw)
	}
	return e
}

func stringField(raw map[string]any, key string) string {
	switch v := raw[key].(type) {
	case string:
		return v
	case []any:
		if len(v) > 0 {
			if s, ok := v[0].(string); ok {
				return s
			}
		}
	}
	return ""
}

func fieldErrors(raw map[string]any) string {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		msg := stringField(raw, k)
		if msg == "" {
			continue
		}
		if k == "non_field_errors" {
			parts = append(parts, msg)
			continue
		}
		parts = append(parts, k+": "+msg)
	}
	return strings.Join(parts, "; ")
}

package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
)

// StatusCode returns the HTTP status carried by err, or 0 when err did not
// come from an HTTP response (transport failures, timeouts).
func StatusCode(err error) int {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return 0
}

// IsUnauthorized reports whether err is an HTTP 401.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// IsNotFound reports whether err is an HTTP 404.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// FieldError holds the messages the server reported for one field.
type FieldError struct {
	Field    string
	Messages []string
}

// ValidationError is a 400 response with a per-field message map.
type ValidationError struct {
	Fields []FieldError
	Err    error
}

// Error joins every message, in server order, with " / ".
func (e *ValidationError) Error() string {
	var msgs []string
	for _, f := range e.Fields {
		msgs = append(msgs, f.Messages...)
	}
	return strings.Join(msgs, " / ")
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ParseValidationError extracts field errors from a 400 response.
// Returns nil when err is not a 400 or its body is not a JSON object.
func ParseValidationError(err error) *ValidationError {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) || gerr.Code != http.StatusBadRequest {
		return nil
	}
	fields, ok := decodeFieldErrors([]byte(gerr.Body))
	if !ok || len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields, Err: err}
}

// decodeFieldErrors walks a JSON object keeping key order, which a map
// would lose.
func decodeFieldErrors(body []byte) ([]FieldError, bool) {
	dec := json.NewDecoder(bytes.NewReader(body))
	tok, err := dec.Token()
	if err != nil {
		return nil, false
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, false
	}

	var fields []FieldError
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, false
		}
		key, ok := tok.(string)
		if !ok {
			return nil, false
		}
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return nil, false
		}
		fields = append(fields, FieldError{Field: key, Messages: flatten(raw)})
	}
	return fields, true
}

func flatten(v any) []string {
	switch v := v.(type) {
	case nil:
		return nil
	case string:
		return []string{v}
	case []any:
		var out []string
		for _, item := range v {
			out = append(out, flatten(item)...)
		}
		return out
	default:
		return []string{fmt.Sprint(v)}
	}
}

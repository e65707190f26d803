// Package validate provides field-level validation for console forms. Errors are
// keyed by the JSON field name so the frontend can render them inline under the
// offending input.
package validate

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire format for every date-only field exchanged with the backend.
const DateLayout = "2006-01-02"

// ErrValidation is matched by errors.Is for any non-empty Errors value.
var ErrValidation = errors.New("validation failed")

// Errors maps a field name to a human-readable message.
type Errors map[string]string

// Add records msg for field unless the field already has a message. The first
// failing rule wins, matching the order checks are written in.
func (e Errors) Add(field, msg string) {
	if _, ok := e[field]; ok {
		return
	}
	e[field] = msg
}

// Has reports whether field has a recorded message.
func (e Errors) Has(field string) bool {
	_, ok := e[field]
	return ok
}

// Merge copies every message of other into e, prefixing keys with prefix when
// prefix is non-empty.
func (e Errors) Merge(prefix string, other Errors) {
	for k, v := range other {
		if prefix != "" {
			k = prefix + "." + k
		}
		e.Add(k, v)
	}
}

// Err returns nil when e is empty and e otherwise.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for k := range e {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = fmt.Sprintf("%s: %s", f, e[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Is makes errors.Is(err, ErrValidation) true for Errors.
func (e Errors) Is(target error) bool {
	return target == ErrValidation
}

// Fields extracts the field map from err, or nil when err is not a validation error.
func Fields(err error) Errors {
	var e Errors
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// Required records a message when value is blank.
func Required(e Errors, field, value string) bool {
	if strings.TrimSpace(value) == "" {
		e.Add(field, "This field is required")
		return false
	}
	return true
}

// Date checks value is a YYYY-MM-DD date. Blank values pass; combine with
// Required for mandatory dates.
func Date(e Errors, field, value string) bool {
	if value == "" {
		return true
	}
	if _, err := time.Parse(DateLayout, value); err != nil {
		e.Add(field, "Enter a valid date (YYYY-MM-DD)")
		return false
	}
	return true
}

// NotFuture rejects dates after now. Blank and malformed values are left to Date.
func NotFuture(e Errors, field, value string, now time.Time) bool {
	d, err := time.Parse(DateLayout, value)
	if err != nil {
		return true
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if d.After(today) {
		e.Add(field, "Date cannot be in the future")
		return false
	}
	return true
}

// PositiveNumber checks value parses as a number greater than zero.
func PositiveNumber(e Errors, field, value string) bool {
	if value == "" {
		return true
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || n <= 0 {
		e.Add(field, "Enter a number greater than zero")
		return false
	}
	return true
}

// NonNegative checks n is zero or more.
func NonNegative(e Errors, field string, n float64) bool {
	if n < 0 {
		e.Add(field, "Value cannot be negative")
		return false
	}
	return true
}

// OneOf checks value is one of allowed. Blank values pass.
func OneOf(e Errors, field, value string, allowed ...string) bool {
	if value == "" {
		return true
	}
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	e.Add(field, fmt.Sprintf("Must be one of: %s", strings.Join(allowed, ", ")))
	return false
}

// MinItems checks a list field holds at least min entries.
func MinItems(e Errors, field string, n, min int) bool {
	if n < min {
		if min == 1 {
			e.Add(field, "Add at least one entry")
		} else {
			e.Add(field, fmt.Sprintf("Add at least %d entries", min))
		}
		return false
	}
	return true
}

var phonePattern = regexp.MustCompile(`^(09|\+639)\d{9}$`)

// Phone checks value is a Philippine mobile number (09XXXXXXXXX or +639XXXXXXXXX).
func Phone(e Errors, field, value string) bool {
	if value == "" {
		return true
	}
	if !phonePattern.MatchString(NormalizePhone(value)) {
		e.Add(field, "Enter a valid mobile number (09XXXXXXXXX)")
		return false
	}
	return true
}

// NormalizePhone strips spaces and dashes from a phone number.
func NormalizePhone(value string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(value))
}

// Package subrecord holds the small ordered lists edited inside a draft, such as
// vaccine doses, vital signs, complainants or attachments. Entries receive a
// client-side identifier when added; the backend assigns its own identity only
// once the whole draft is submitted.
package subrecord

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/barangay/egov/internal/platform/validate"
)

// Entry is one list item and its client-side identifier.
type Entry[T any] struct {
	ID   string `json:"id"`
	Data T      `json:"data"`
}

// List is an ordered sequence of entries. The zero value is an empty list.
type List[T any] struct {
	entries []Entry[T]
	newID   func() string
}

// Check validates a staging record before it is appended.
type Check[T any] func(v T) validate.Errors

// Add validates v with check (when non-nil), assigns it an identifier and
// appends it. The list is unchanged when validation fails.
func (l *List[T]) Add(v T, check Check[T]) (string, error) {
	if check != nil {
		if err := check(v).Err(); err != nil {
			return "", err
		}
	}
	id := l.id()
	l.entries = append(l.entries, Entry[T]{ID: id, Data: v})
	return id, nil
}

// Update replaces the entry with the given id in place.
func (l *List[T]) Update(id string, v T, check Check[T]) error {
	i := l.index(id)
	if i < 0 {
		return fmt.Errorf("entry %s not found", id)
	}
	if check != nil {
		if err := check(v).Err(); err != nil {
			return err
		}
	}
	l.entries[i].Data = v
	return nil
}

// Delete removes the entry with the given id and reports whether it existed.
func (l *List[T]) Delete(id string) bool {
	i := l.index(id)
	if i < 0 {
		return false
	}
	out := make([]Entry[T], 0, len(l.entries)-1)
	out = append(out, l.entries[:i]...)
	l.entries = append(out, l.entries[i+1:]...)
	return true
}

// Get returns the entry data for id.
func (l *List[T]) Get(id string) (T, bool) {
	i := l.index(id)
	if i < 0 {
		var zero T
		return zero, false
	}
	return l.entries[i].Data, true
}

// Len returns the number of entries.
func (l *List[T]) Len() int { return len(l.entries) }

// Entries returns a copy of the entries in insertion order.
func (l *List[T]) Entries() []Entry[T] {
	out := make([]Entry[T], len(l.entries))
	copy(out, l.entries)
	return out
}

// Values returns the entry data in insertion order, dropping identifiers. This
// is the shape sent to the backend on submit.
func (l *List[T]) Values() []T {
	out := make([]T, len(l.entries))
	for i, e := range l.entries {
		out[i] = e.Data
	}
	return out
}

// Clone returns an independent copy of the list.
func (l *List[T]) Clone() List[T] {
	return List[T]{entries: l.Entries(), newID: l.newID}
}

func (l *List[T]) index(id string) int {
	for i, e := range l.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

func (l *List[T]) id() string {
	if l.newID != nil {
		return l.newID()
	}
	return uuid.NewString()
}

// MarshalJSON encodes the list as an array of entries.
func (l List[T]) MarshalJSON() ([]byte, error) {
	if l.entries == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l.entries)
}

// UnmarshalJSON decodes an array of entries, as written by MarshalJSON.
func (l *List[T]) UnmarshalJSON(b []byte) error {
	var entries []Entry[T]
	if err := json.Unmarshal(b, &entries); err != nil {
		return err
	}
	l.entries = entries
	return nil
}

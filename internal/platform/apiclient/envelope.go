package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
)

// ErrUnexpectedShape is returned when a list endpoint answers with something
// other than a JSON array or a {"results": [...]} envelope.
var ErrUnexpectedShape = errors.New("unexpected list response shape")

// Page is the normalized form of every list response.
type Page[T any] struct {
	Results  []T     `json:"results"`
	Count    int     `json:"count"`
	Next     *string `json:"next,omitempty"`
	Previous *string `json:"previous,omitempty"`
}

// HasNext reports whether the backend advertised another page.
func (p Page[T]) HasNext() bool { return p.Next != nil && *p.Next != "" }

// Empty reports whether the page holds no results.
func (p Page[T]) Empty() bool { return len(p.Results) == 0 }

type envelope struct {
	Results  *json.RawMessage `json:"results"`
	Count    *int             `json:"count"`
	Next     *string          `json:"next"`
	Previous *string          `json:"previous"`
}

// DecodePage normalizes a list body. A bare array becomes a page whose count is
// its length; an envelope must carry a results array. Anything else fails.
func DecodePage[T any](raw []byte) (Page[T], error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return Page[T]{}, fmt.Errorf("%w: empty body", ErrUnexpectedShape)
	}

	switch trimmed[0] {
	case '[':
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return Page[T]{}, fmt.Errorf("decode list: %w", err)
		}
		if items == nil {
			items = []T{}
		}
		return Page[T]{Results: items, Count: len(items)}, nil
	case '{':
		var env envelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return Page[T]{}, fmt.Errorf("decode envelope: %w", err)
		}
		if env.Results == nil {
			return Page[T]{}, fmt.Errorf("%w: object without results", ErrUnexpectedShape)
		}
		rb := bytes.TrimSpace(*env.Results)
		if len(rb) == 0 || rb[0] != '[' {
			return Page[T]{}, fmt.Errorf("%w: results is not an array", ErrUnexpectedShape)
		}
		var items []T
		if err := json.Unmarshal(rb, &items); err != nil {
			return Page[T]{}, fmt.Errorf("decode results: %w", err)
		}
		if items == nil {
			items = []T{}
		}
		p := Page[T]{Results: items, Count: len(items), Next: env.Next, Previous: env.Previous}
		if env.Count != nil {
			p.Count = *env.Count
		}
		return p, nil
	default:
		return Page[T]{}, fmt.Errorf("%w: starts with %q", ErrUnexpectedShape, trimmed[0])
	}
}

// GetList fetches a list endpoint and normalizes it into a Page.
func GetList[T any](ctx context.Context, c *Client, path string, query url.Values) (Page[T], error) {
	raw, err := c.GetRaw(ctx, path, query)
	if err != nil {
		return Page[T]{}, err
	}
	p, err := DecodePage[T](raw)
	if err != nil {
		return Page[T]{}, fmt.Errorf("%s: %w", c.relPath(path), err)
	}
	return p, nil
}

// Package wizard implements multi-step forms: a typed step controller that owns
// one draft record, a type-erased Flow used by the gateway, draft persistence
// and the echo handlers that drive it.
package wizard

import (
	"context"
	"fmt"
	"net/http"

	"github.com/barangay/egov/internal/platform/validate"
)

// Error is a navigation or lifecycle failure with the HTTP status it maps to.
type Error struct {
	Code int
	Msg  string
}

func (e *Error) Error() string   { return e.Msg }
func (e *Error) StatusCode() int { return e.Code }

var (
	ErrAtLastStep   = &Error{Code: http.StatusConflict, Msg: "already at the last step"}
	ErrAtFirstStep  = &Error{Code: http.StatusConflict, Msg: "already at the first step"}
	ErrNotReady     = &Error{Code: http.StatusConflict, Msg: "the draft can only be submitted from the last step"}
	ErrUnknownStep  = &Error{Code: http.StatusBadRequest, Msg: "unknown step"}
	ErrUnknownList  = &Error{Code: http.StatusBadRequest, Msg: "unknown list"}
	ErrItemNotFound = &Error{Code: http.StatusNotFound, Msg: "list item not found"}
	ErrNotFound     = &Error{Code: http.StatusNotFound, Msg: "wizard session not found"}
	ErrUnknownKind  = &Error{Code: http.StatusNotFound, Msg: "unknown wizard kind"}
	ErrStepLocked   = &Error{Code: http.StatusConflict, Msg: "complete the earlier steps first"}
)

// Step is one page of a wizard. Check validates only the fields the step owns.
type Step[S ~int, D any] struct {
	ID    S
	Name  string
	Check func(d D) validate.Errors
}

func (s Step[S, D]) check(d D) validate.Errors {
	if s.Check == nil {
		return nil
	}
	return s.Check(d)
}

// Controller sequences a closed, ordered list of steps over one draft. The
// position is always a valid step: navigation past either end is refused.
type Controller[S ~int, D any] struct {
	steps []Step[S, D]
	pos   int
	draft D
}

// NewController creates a controller positioned on the first step.
func NewController[S ~int, D any](steps []Step[S, D], initial D) (*Controller[S, D], error) {
	if len(steps) == 0 {
		return nil, fmt.Errorf("wizard needs at least one step")
	}
	seen := make(map[S]bool, len(steps))
	for _, s := range steps {
		if seen[s.ID] {
			return nil, fmt.Errorf("duplicate step %v", s.ID)
		}
		seen[s.ID] = true
	}
	return &Controller[S, D]{steps: steps, draft: initial}, nil
}

// Current is the step the wizard is on.
func (c *Controller[S, D]) Current() S { return c.steps[c.pos].ID }

// CurrentName is the display name of the current step.
func (c *Controller[S, D]) CurrentName() string { return c.steps[c.pos].Name }

// Index is the 1-based position of the current step.
func (c *Controller[S, D]) Index() int { return c.pos + 1 }

// Total is the number of steps.
func (c *Controller[S, D]) Total() int { return len(c.steps) }

func (c *Controller[S, D]) IsFirst() bool { return c.pos == 0 }
func (c *Controller[S, D]) IsLast() bool  { return c.pos == len(c.steps)-1 }

// Names lists the step names in order.
func (c *Controller[S, D]) Names() []string {
	out := make([]string, len(c.steps))
	for i, s := range c.steps {
		out[i] = s.Name
	}
	return out
}

// Next validates the current step and advances by one. Validation errors
// block; at the last step ErrAtLastStep is returned and the position holds.
func (c *Controller[S, D]) Next() error {
	if errs := c.steps[c.pos].check(c.draft); len(errs) > 0 {
		return errs
	}
	if c.IsLast() {
		return ErrAtLastStep
	}
	c.pos++
	return nil
}

// Previous moves back one step without validating.
func (c *Controller[S, D]) Previous() error {
	if c.IsFirst() {
		return ErrAtFirstStep
	}
	c.pos--
	return nil
}

// GoTo jumps to step id. Moving back is always allowed; moving forward only
// when every step in between validates.
func (c *Controller[S, D]) GoTo(id S) error {
	target := -1
	for i, s := range c.steps {
		if s.ID == id {
			target = i
			break
		}
	}
	if target < 0 {
		return ErrUnknownStep
	}
	for i := c.pos; i < target; i++ {
		if errs := c.steps[i].check(c.draft); len(errs) > 0 {
			return ErrStepLocked
		}
	}
	c.pos = target
	return nil
}

// Update applies fn to the draft. fn is the typed merge for whatever fields the
// caller changes; everything else is left as it was.
func (c *Controller[S, D]) Update(fn func(d *D)) {
	fn(&c.draft)
}

// Draft returns the current draft.
func (c *Controller[S, D]) Draft() D { return c.draft }

// Errors runs every step's checks and merges the results.
func (c *Controller[S, D]) Errors() validate.Errors {
	all := validate.Errors{}
	for _, s := range c.steps {
		all.Merge("", s.check(c.draft))
	}
	return all
}

// StepErrors runs the checks of the current step only.
func (c *Controller[S, D]) StepErrors() validate.Errors {
	errs := c.steps[c.pos].check(c.draft)
	if errs == nil {
		return validate.Errors{}
	}
	return errs
}

// Submit re-runs every step's checks and, when they pass, hands the draft to
// fn. Neither the draft nor the position change, whatever the outcome.
func (c *Controller[S, D]) Submit(ctx context.Context, fn func(ctx context.Context, d D) error) error {
	if !c.IsLast() {
		return ErrNotReady
	}
	if err := c.Errors().Err(); err != nil {
		return err
	}
	return fn(ctx, c.draft)
}

// restore sets position and draft from persisted state, clamping the position.
func (c *Controller[S, D]) restore(index int, d D) {
	pos := index - 1
	if pos < 0 {
		pos = 0
	}
	if pos >= len(c.steps) {
		pos = len(c.steps) - 1
	}
	c.pos = pos
	c.draft = d
}

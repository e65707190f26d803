package wizard

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/barangay/egov/internal/platform/appctx"
	"github.com/barangay/egov/internal/platform/subrecord"
	"github.com/barangay/egov/internal/platform/validate"
)

// Mode says whether a wizard creates a record or edits an existing one.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

// Params are fixed when a wizard session starts.
type Params struct {
	Mode Mode   `json:"mode"`
	ID   string `json:"id,omitempty"`
}

// Flow is a wizard with its draft type erased, as driven by the gateway.
type Flow interface {
	Kind() string
	Params() Params
	Step() string
	Index() int
	Total() int
	Steps() []string
	IsFirst() bool
	IsLast() bool
	Next() error
	Previous() error
	GoTo(step string) error
	Apply(ctx context.Context, ac *appctx.Context, patch json.RawMessage) ([]string, error)
	AddItem(ctx context.Context, ac *appctx.Context, list string, item json.RawMessage) (string, error)
	RemoveItem(ctx context.Context, ac *appctx.Context, list, id string) error
	Draft() any
	Errors() validate.Errors
	StepErrors() validate.Errors
	Seed(ctx context.Context, ac *appctx.Context) error
	Submit(ctx context.Context, ac *appctx.Context) (any, error)
	MarshalState() ([]byte, error)
	UnmarshalState(data []byte) error
}

// List binds a named sub-record list of the draft to add/remove operations.
type List[D any] struct {
	Add    func(ctx context.Context, ac *appctx.Context, d *D, raw json.RawMessage) (string, error)
	Remove func(ctx context.Context, ac *appctx.Context, d *D, id string) error
}

// Items builds the List for a subrecord field. fill, when set, runs on the
// decoded item before it is checked (e.g. resident auto-fill).
func Items[D, T any](
	field func(d *D) *subrecord.List[T],
	check subrecord.Check[T],
	fill func(ctx context.Context, ac *appctx.Context, v *T) error,
) List[D] {
	return List[D]{
		Add: func(ctx context.Context, ac *appctx.Context, d *D, raw json.RawMessage) (string, error) {
			var v T
			if err := json.Unmarshal(raw, &v); err != nil {
				return "", &Error{Code: 400, Msg: "invalid item: " + err.Error()}
			}
			if fill != nil {
				if err := fill(ctx, ac, &v); err != nil {
					return "", err
				}
			}
			return field(d).Add(v, check)
		},
		Remove: func(ctx context.Context, ac *appctx.Context, d *D, id string) error {
			if !field(d).Delete(id) {
				return ErrItemNotFound
			}
			return nil
		},
	}
}

// Definition describes one kind of wizard.
type Definition[S ~int, D any] struct {
	Kind string
	// Roles lists who may start or drive the wizard. Empty means any
	// signed-in user.
	Roles []string
	Steps []Step[S, D]
	// New returns the initial draft with every field at its default.
	New func(p Params) D
	// Seed, when set, runs once when a session starts, e.g. to load the record
	// being edited.
	Seed  func(ctx context.Context, ac *appctx.Context, p Params, d *D) error
	Lists map[string]List[D]
	// Derive, when set, runs after every Apply with the changed keys and may
	// adjust dependent fields.
	Derive func(ctx context.Context, ac *appctx.Context, d *D, changed []string) error
	Submit func(ctx context.Context, ac *appctx.Context, p Params, d D) (any, error)
}

// Factory creates a fresh Flow for params.
type Factory func(p Params) (Flow, error)

// Factory turns the definition into a registry factory.
func (def Definition[S, D]) Factory() Factory {
	return func(p Params) (Flow, error) {
		if p.Mode == "" {
			p.Mode = ModeCreate
		}
		if p.Mode == ModeEdit && p.ID == "" {
			return nil, &Error{Code: 400, Msg: "edit mode needs a record id"}
		}
		if p.Mode != ModeCreate && p.Mode != ModeEdit {
			return nil, &Error{Code: 400, Msg: fmt.Sprintf("unknown mode %q", p.Mode)}
		}
		var initial D
		if def.New != nil {
			initial = def.New(p)
		}
		ctl, err := NewController(def.Steps, initial)
		if err != nil {
			return nil, err
		}
		d := def
		return &flow[S, D]{def: &d, params: p, ctl: ctl}, nil
	}
}

type flow[S ~int, D any] struct {
	def    *Definition[S, D]
	params Params
	ctl    *Controller[S, D]
}

func (f *flow[S, D]) Kind() string      { return f.def.Kind }
func (f *flow[S, D]) Params() Params    { return f.params }
func (f *flow[S, D]) Step() string      { return f.ctl.CurrentName() }
func (f *flow[S, D]) Index() int        { return f.ctl.Index() }
func (f *flow[S, D]) Total() int        { return f.ctl.Total() }
func (f *flow[S, D]) Steps() []string   { return f.ctl.Names() }
func (f *flow[S, D]) IsFirst() bool     { return f.ctl.IsFirst() }
func (f *flow[S, D]) IsLast() bool      { return f.ctl.IsLast() }
func (f *flow[S, D]) Next() error       { return f.ctl.Next() }
func (f *flow[S, D]) Previous() error   { return f.ctl.Previous() }
func (f *flow[S, D]) Draft() any        { return f.ctl.Draft() }

func (f *flow[S, D]) Errors() validate.Errors     { return f.ctl.Errors() }
func (f *flow[S, D]) StepErrors() validate.Errors { return f.ctl.StepErrors() }

func (f *flow[S, D]) GoTo(step string) error {
	for _, s := range f.def.Steps {
		if s.Name == step {
			return f.ctl.GoTo(s.ID)
		}
	}
	return ErrUnknownStep
}

func (f *flow[S, D]) lockedKeys() []string {
	keys := make([]string, 0, len(f.def.Lists))
	for k := range f.def.Lists {
		keys = append(keys, k)
	}
	return keys
}

// Apply merges patch into a copy of the draft, runs Derive, and only then
// commits the copy.
func (f *flow[S, D]) Apply(ctx context.Context, ac *appctx.Context, patch json.RawMessage) ([]string, error) {
	next := f.ctl.Draft()
	changed, err := MergeJSON(&next, patch, f.lockedKeys()...)
	if err != nil {
		return nil, err
	}
	if f.def.Derive != nil {
		if err := f.def.Derive(ctx, ac, &next, changed); err != nil {
			return nil, err
		}
	}
	f.ctl.Update(func(d *D) { *d = next })
	return changed, nil
}

func (f *flow[S, D]) AddItem(ctx context.Context, ac *appctx.Context, list string, item json.RawMessage) (string, error) {
	l, ok := f.def.Lists[list]
	if !ok || l.Add == nil {
		return "", ErrUnknownList
	}
	var id string
	var err error
	f.ctl.Update(func(d *D) { id, err = l.Add(ctx, ac, d, item) })
	return id, err
}

func (f *flow[S, D]) RemoveItem(ctx context.Context, ac *appctx.Context, list, id string) error {
	l, ok := f.def.Lists[list]
	if !ok || l.Remove == nil {
		return ErrUnknownList
	}
	var err error
	f.ctl.Update(func(d *D) { err = l.Remove(ctx, ac, d, id) })
	return err
}

func (f *flow[S, D]) Seed(ctx context.Context, ac *appctx.Context) error {
	if f.def.Seed == nil {
		return nil
	}
	var err error
	f.ctl.Update(func(d *D) { err = f.def.Seed(ctx, ac, f.params, d) })
	return err
}

func (f *flow[S, D]) Submit(ctx context.Context, ac *appctx.Context) (any, error) {
	if f.def.Submit == nil {
		return nil, fmt.Errorf("wizard %s has no submit", f.def.Kind)
	}
	var out any
	err := f.ctl.Submit(ctx, func(ctx context.Context, d D) error {
		var err error
		out, err = f.def.Submit(ctx, ac, f.params, d)
		return err
	})
	return out, err
}

type state[D any] struct {
	Step  int `json:"step"`
	Draft D   `json:"draft"`
}

func (f *flow[S, D]) MarshalState() ([]byte, error) {
	return json.Marshal(state[D]{Step: f.ctl.Index(), Draft: f.ctl.Draft()})
}

func (f *flow[S, D]) UnmarshalState(data []byte) error {
	st := state[D]{}
	if f.def.New != nil {
		st.Draft = f.def.New(f.params)
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("decode %s state: %w", f.def.Kind, err)
	}
	f.ctl.restore(st.Step, st.Draft)
	return nil
}

package wizard

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/barangay/egov/internal/platform/auth"
)

type registered struct {
	factory Factory
	roles   []string
}

// Registry maps wizard kinds to their factories and the roles allowed to use
// them.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]registered
}

func NewRegistry() *Registry {
	return &Registry{kinds: make(map[string]registered)}
}

// Register adds def under its kind. Registering a kind twice is an error.
func Register[S ~int, D any](r *Registry, def Definition[S, D]) error {
	if def.Kind == "" {
		return fmt.Errorf("wizard kind is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.kinds[def.Kind]; ok {
		return fmt.Errorf("wizard %q already registered", def.Kind)
	}
	r.kinds[def.Kind] = registered{factory: def.Factory(), roles: append([]string(nil), def.Roles...)}
	return nil
}

// MustRegister is Register that panics, for wiring at startup.
func MustRegister[S ~int, D any](r *Registry, def Definition[S, D]) {
	if err := Register(r, def); err != nil {
		panic(err)
	}
}

// New creates a fresh flow of the given kind.
func (r *Registry) New(kind string, p Params) (Flow, error) {
	r.mu.RLock()
	k, ok := r.kinds[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownKind
	}
	return k.factory(p)
}

// Authorize returns a 403 Error unless s holds one of kind's roles. Unknown
// kinds report ErrUnknownKind.
func (r *Registry) Authorize(kind string, s auth.Session) error {
	r.mu.RLock()
	k, ok := r.kinds[kind]
	r.mu.RUnlock()
	if !ok {
		return ErrUnknownKind
	}
	if allowed(k.roles, s) {
		return nil
	}
	return &Error{Code: http.StatusForbidden, Msg: fmt.Sprintf("wizard %s requires role: %s", kind, strings.Join(k.roles, " or "))}
}

func allowed(roles []string, s auth.Session) bool {
	if len(roles) == 0 {
		return true
	}
	for _, role := range roles {
		if s.HasRole(role) {
			return true
		}
	}
	return false
}

// KindsFor lists the kinds s may start, sorted.
func (r *Registry) KindsFor(s auth.Session) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.kinds))
	for name, k := range r.kinds {
		if allowed(k.roles, s) {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

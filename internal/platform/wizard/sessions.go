package wizard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/barangay/egov/internal/platform/appctx"
	"github.com/barangay/egov/internal/platform/validate"
)

// DefaultDraftTTL is how long an untouched draft survives.
const DefaultDraftTTL = 72 * time.Hour

// View is what the gateway returns for a wizard session.
type View struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	Params    Params          `json:"params"`
	Step      string          `json:"step"`
	Index     int             `json:"index"`
	Total     int             `json:"total"`
	Steps     []string        `json:"steps"`
	IsFirst   bool            `json:"is_first"`
	IsLast    bool            `json:"is_last"`
	Draft     any             `json:"draft"`
	Errors    validate.Errors `json:"errors"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Summary lists a session without its draft.
type Summary struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Params    Params    `json:"params"`
	Step      int       `json:"step"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithDraftTTL sets how long an untouched draft is kept.
func WithDraftTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithNow overrides time.Now, for tests.
func WithNow(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// Manager runs wizard operations against persisted sessions. Operations on the
// same session are serialized; the draft is saved only when an operation
// succeeds, so a rejected patch or failed submit leaves it untouched.
type Manager struct {
	registry *Registry
	store    Store
	ttl      time.Duration
	now      func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewManager(registry *Registry, store Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		registry: registry,
		store:    store,
		ttl:      DefaultDraftTTL,
		now:      time.Now,
		locks:    make(map[string]*sync.Mutex),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Kinds lists the wizard kinds the caller may start.
func (m *Manager) Kinds(ac *appctx.Context) []string { return m.registry.KindsFor(ac.Session) }

func (m *Manager) lock(id string) func() {
	m.mu.Lock()
	l, ok := m.locks[id]
	if !ok {
		l = &sync.Mutex{}
		m.locks[id] = l
	}
	m.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func (m *Manager) forget(id string) {
	m.mu.Lock()
	delete(m.locks, id)
	m.mu.Unlock()
}

// Start creates a session of kind, seeds its draft and persists it.
func (m *Manager) Start(ctx context.Context, ac *appctx.Context, kind string, p Params) (*View, error) {
	if err := m.registry.Authorize(kind, ac.Session); err != nil {
		return nil, err
	}
	f, err := m.registry.New(kind, p)
	if err != nil {
		return nil, err
	}
	if err := f.Seed(ctx, ac); err != nil {
		return nil, err
	}
	now := m.now()
	rec := &Record{
		ID:        uuid.NewString(),
		Kind:      kind,
		OwnerID:   ac.Session.UserID,
		Params:    f.Params(),
		CreatedAt: now,
	}
	if err := m.save(ctx, rec, f); err != nil {
		return nil, err
	}
	ac.Logger.Debug().Str("wizard", kind).Str("session_id", rec.ID).Msg("wizard started")
	return viewOf(rec, f), nil
}

// Get returns the session's current state.
func (m *Manager) Get(ctx context.Context, ac *appctx.Context, id string) (*View, error) {
	rec, f, err := m.open(ctx, ac, id)
	if err != nil {
		return nil, err
	}
	return viewOf(rec, f), nil
}

// Do runs op on the session and saves the result when op succeeds.
func (m *Manager) Do(ctx context.Context, ac *appctx.Context, id string, op func(f Flow) error) (*View, error) {
	unlock := m.lock(id)
	defer unlock()

	rec, f, err := m.open(ctx, ac, id)
	if err != nil {
		return nil, err
	}
	if err := op(f); err != nil {
		return nil, err
	}
	if err := m.save(ctx, rec, f); err != nil {
		return nil, err
	}
	return viewOf(rec, f), nil
}

// Submit submits the session's draft. The session is removed on success and
// kept, unchanged, on failure.
func (m *Manager) Submit(ctx context.Context, ac *appctx.Context, id string) (any, error) {
	unlock := m.lock(id)
	defer unlock()

	_, f, err := m.open(ctx, ac, id)
	if err != nil {
		return nil, err
	}
	out, err := f.Submit(ctx, ac)
	if err != nil {
		return nil, err
	}
	if err := m.store.Delete(ctx, id); err != nil {
		ac.Logger.Warn().Err(err).Str("session_id", id).Msg("delete submitted wizard draft")
	}
	m.forget(id)
	return out, nil
}

// Discard deletes the session.
func (m *Manager) Discard(ctx context.Context, ac *appctx.Context, id string) error {
	unlock := m.lock(id)
	defer unlock()

	if _, _, err := m.open(ctx, ac, id); err != nil {
		return err
	}
	if err := m.store.Delete(ctx, id); err != nil {
		return err
	}
	m.forget(id)
	return nil
}

// List returns the caller's live sessions.
func (m *Manager) List(ctx context.Context, ac *appctx.Context) ([]Summary, error) {
	recs, err := m.store.List(ctx, ac.Session.UserID)
	if err != nil {
		return nil, err
	}
	cutoff := m.now().Add(-m.ttl)
	out := make([]Summary, 0, len(recs))
	for _, r := range recs {
		if r.UpdatedAt.Before(cutoff) {
			continue
		}
		out = append(out, Summary{ID: r.ID, Kind: r.Kind, Params: r.Params, Step: r.Step, UpdatedAt: r.UpdatedAt})
	}
	return out, nil
}

// Purge deletes drafts older than the TTL.
func (m *Manager) Purge(ctx context.Context) (int, error) {
	return m.store.Purge(ctx, m.now().Add(-m.ttl))
}

func (m *Manager) open(ctx context.Context, ac *appctx.Context, id string) (*Record, Flow, error) {
	rec, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if rec.OwnerID != ac.Session.UserID || rec.UpdatedAt.Before(m.now().Add(-m.ttl)) {
		return nil, nil, ErrNotFound
	}
	if err := m.registry.Authorize(rec.Kind, ac.Session); err != nil {
		return nil, nil, err
	}
	f, err := m.registry.New(rec.Kind, rec.Params)
	if err != nil {
		return nil, nil, err
	}
	if err := f.UnmarshalState(rec.State); err != nil {
		return nil, nil, fmt.Errorf("restore wizard %s: %w", id, err)
	}
	return rec, f, nil
}

func (m *Manager) save(ctx context.Context, rec *Record, f Flow) error {
	state, err := f.MarshalState()
	if err != nil {
		return fmt.Errorf("encode wizard %s: %w", rec.ID, err)
	}
	rec.State = state
	rec.Step = f.Index()
	rec.UpdatedAt = m.now()
	return m.store.Save(ctx, rec)
}

func viewOf(rec *Record, f Flow) *View {
	return &View{
		ID:        rec.ID,
		Kind:      rec.Kind,
		Params:    f.Params(),
		Step:      f.Step(),
		Index:     f.Index(),
		Total:     f.Total(),
		Steps:     f.Steps(),
		IsFirst:   f.IsFirst(),
		IsLast:    f.IsLast(),
		Draft:     f.Draft(),
		Errors:    f.StepErrors(),
		UpdatedAt: rec.UpdatedAt,
	}
}

// Package notify provides the toast center: short-lived, non-blocking
// notifications emitted by mutations and returned to the frontend alongside the
// response that produced them.
package notify

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ---------------------------------------------------------------------------
// Levels
// ---------------------------------------------------------------------------

// Level is the visual severity of a toast.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// DefaultTTL is how long a toast stays visible before it auto-dismisses.
const DefaultTTL = 5 * time.Second

// ---------------------------------------------------------------------------
// Toast
// ---------------------------------------------------------------------------

// Toast is a single user-facing notification.
type Toast struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Notifier is the write side of the toast center used by the mutation layer.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// ---------------------------------------------------------------------------
// Center
// ---------------------------------------------------------------------------

// Option configures a Center.
type Option func(*Center)

// WithTTL overrides the auto-dismiss duration.
func WithTTL(ttl time.Duration) Option {
	return func(c *Center) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Center) { c.now = now }
}

// Center collects toasts. It is safe for concurrent use.
type Center struct {
	mu     sync.Mutex
	toasts []Toast
	ttl    time.Duration
	now    func() time.Time
	logger zerolog.Logger
}

// NewCenter creates an empty toast center.
func NewCenter(logger zerolog.Logger, opts ...Option) *Center {
	c := &Center{
		ttl:    DefaultTTL,
		now:    time.Now,
		logger: logger,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Success emits a success toast.
func (c *Center) Success(msg string) { c.push(LevelSuccess, msg) }

// Error emits an error toast.
func (c *Center) Error(msg string) { c.push(LevelError, msg) }

// Info emits an informational toast.
func (c *Center) Info(msg string) { c.push(LevelInfo, msg) }

func (c *Center) push(level Level, msg string) {
	now := c.now()
	t := Toast{
		ID:        uuid.New().String(),
		Level:     level,
		Message:   msg,
		CreatedAt: now,
		ExpiresAt: now.Add(c.ttl),
	}

	evt := c.logger.Info()
	if level == LevelError {
		evt = c.logger.Warn()
	}
	evt.Str("toast_id", t.ID).Str("level", string(level)).Msg(msg)

	c.mu.Lock()
	c.toasts = append(c.toasts, t)
	c.mu.Unlock()
}

// Active returns the toasts that have not yet expired, oldest first. Expired
// toasts are dropped.
func (c *Center) Active() []Toast {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	kept := c.toasts[:0]
	for _, t := range c.toasts {
		if now.Before(t.ExpiresAt) {
			kept = append(kept, t)
		}
	}
	c.toasts = kept
	out := make([]Toast, len(kept))
	copy(out, kept)
	return out
}

// Drain returns the active toasts and clears the center.
func (c *Center) Drain() []Toast {
	out := c.Active()
	c.mu.Lock()
	c.toasts = nil
	c.mu.Unlock()
	return out
}

// Dismiss removes the toast with the given id and reports whether it existed.
func (c *Center) Dismiss(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, t := range c.toasts {
		if t.ID == id {
			c.toasts = append(c.toasts[:i], c.toasts[i+1:]...)
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Messages
// ---------------------------------------------------------------------------

// Messages holds the reusable toast texts. Placeholders use {{key}} syntax.
type Messages struct {
	mu        sync.RWMutex
	templates map[string]string
}

// NewMessages returns the built-in toast texts.
func NewMessages() *Messages {
	return &Messages{templates: map[string]string{
		"created":  "{{resource}} created successfully",
		"updated":  "{{resource}} updated successfully",
		"archived": "{{resource}} archived successfully",
		"restored": "{{resource}} restored successfully",
		"deleted":  "{{resource}} deleted successfully",
		"failed":   "Failed to {{action}} {{resource}}. Please try again.",
	}}
}

// Register adds or replaces a message template.
func (m *Messages) Register(id, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates[id] = text
}

// Render substitutes data into the template id. Placeholders missing from data
// are left as-is.
func (m *Messages) Render(id string, data map[string]string) (string, error) {
	m.mu.RLock()
	text, ok := m.templates[id]
	m.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("message %q not found", id)
	}
	for k, v := range data {
		text = strings.ReplaceAll(text, "{{"+k+"}}", v)
	}
	return text, nil
}

var defaultMessages = NewMessages()

// Text renders a built-in message for resource, e.g. Text("created", "Truck").
func Text(id, resource string) string {
	s, err := defaultMessages.Render(id, map[string]string{"resource": resource})
	if err != nil {
		return resource
	}
	return s
}

// Failure renders the generic failure fallback for an action on resource.
func Failure(action, resource string) string {
	s, _ := defaultMessages.Render("failed", map[string]string{"action": action, "resource": strings.ToLower(resource)})
	return s
}

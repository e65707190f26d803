package query

import (
	"context"
	"errors"
	"sync"

	"github.com/barangay/egov/internal/platform/notify"
)

// Mutation describes one write against the backend.
type Mutation[V, R any] struct {
	// Resource is the family the mutation writes to. Mutations of one family run
	// one at a time, and optimistic writes and rollbacks are scoped to it.
	Resource string
	// Invalidates lists the families marked stale on success. Defaults to
	// Resource.
	Invalidates []string
	// Optimistic, when set, updates the cache before Do runs. The family is
	// snapshotted first and restored if Do fails.
	Optimistic func(c *Client, vars V)
	Do         func(ctx context.Context, vars V) (R, error)
	// Success is the toast shown on success; empty means none.
	Success string
	// Failure is the toast shown on error when the error carries no message of
	// its own.
	Failure string
}

type userMessager interface {
	UserMessage() string
}

// ErrorMessage picks the text shown to the user for err.
func ErrorMessage(err error, fallback string) string {
	var um userMessager
	if errors.As(err, &um) {
		if msg := um.UserMessage(); msg != "" {
			return msg
		}
	}
	return fallback
}

func (c *Client) family(resource string) *sync.Mutex {
	c.famMu.Lock()
	defer c.famMu.Unlock()
	m, ok := c.families[resource]
	if !ok {
		m = &sync.Mutex{}
		c.families[resource] = m
	}
	return m
}

// Mutate runs m with vars. The order is fixed: wait for earlier mutations of
// the same family, cancel in-flight reads, snapshot, apply the optimistic
// write, call Do, then either restore the snapshot and toast the error or
// invalidate and toast success. n may be nil.
func Mutate[V, R any](ctx context.Context, c *Client, n notify.Notifier, m Mutation[V, R], vars V) (R, error) {
	if m.Resource != "" {
		fam := c.family(m.Resource)
		fam.Lock()
		defer fam.Unlock()
	}

	var snap *Snapshot
	if m.Optimistic != nil {
		c.CancelQueries(m.Resource)
		s := c.Snapshot(m.Resource)
		snap = &s
		m.Optimistic(c, vars)
	}

	r, err := m.Do(ctx, vars)
	if err != nil {
		if snap != nil {
			c.Restore(*snap)
		}
		msg := ErrorMessage(err, m.Failure)
		c.logger.Warn().Err(err).Str("resource", m.Resource).Msg("mutation failed")
		if n != nil && msg != "" {
			n.Error(msg)
		}
		return r, err
	}

	inv := m.Invalidates
	if len(inv) == 0 && m.Resource != "" {
		inv = []string{m.Resource}
	}
	c.Invalidate(inv...)
	if n != nil && m.Success != "" {
		n.Success(m.Success)
	}
	return r, nil
}

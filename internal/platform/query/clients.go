package query

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Clients hands out one Client per principal. Cached reads never cross
// principals, so each caller's first read of a key reaches the backend with
// that caller's own credentials. Invalidations do cross: a write by one
// principal marks the family stale in every Client.
//
// A Client nobody asked for during the gc time is dropped.
type Clients struct {
	opts   []Option
	gcTime time.Duration
	now    func() time.Time
	logger zerolog.Logger

	mu        sync.Mutex
	clients   map[string]*pooledClient
	lastSweep time.Time
}

type pooledClient struct {
	client *Client
	usedAt time.Time
}

// NewClients creates an empty pool. opts apply to every Client it creates.
func NewClients(opts ...Option) *Clients {
	tmpl := NewClient(opts...)
	return &Clients{
		opts:    opts,
		gcTime:  tmpl.gcTime,
		now:     tmpl.now,
		logger:  tmpl.logger,
		clients: make(map[string]*pooledClient),
	}
}

// For returns the Client of principal, creating it on first use.
func (p *Clients) For(principal string) *Client {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.now()
	p.sweepLocked(now)
	if pc, ok := p.clients[principal]; ok {
		pc.usedAt = now
		return pc.client
	}
	c := NewClient(p.opts...)
	c.onInvalidate = p.broadcast
	p.clients[principal] = &pooledClient{client: c, usedAt: now}
	return c
}

// Len reports how many principals currently have a Client.
func (p *Clients) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.clients)
}

func (p *Clients) sweepLocked(now time.Time) {
	if p.gcTime <= 0 || now.Sub(p.lastSweep) < p.gcTime/2 {
		return
	}
	p.lastSweep = now
	for k, pc := range p.clients {
		if now.Sub(pc.usedAt) >= p.gcTime {
			delete(p.clients, k)
		}
	}
}

func (p *Clients) broadcast(from *Client, resources []string) {
	p.mu.Lock()
	peers := make([]*Client, 0, len(p.clients))
	for _, pc := range p.clients {
		if pc.client != from {
			peers = append(peers, pc.client)
		}
	}
	p.mu.Unlock()

	for _, c := range peers {
		c.invalidate(resources)
	}
	if len(peers) > 0 {
		p.logger.Debug().Strs("resources", resources).Int("principals", len(peers)).Msg("invalidation shared")
	}
}

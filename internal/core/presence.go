package core

import "sync"

// Presence is the process-wide registry mapping a participant identity to its
// current connection. It is rebuilt from scratch on restart: everyone is
// offline until they reconnect. The raw map never leaves this type.
type Presence struct {
	mu         sync.RWMutex
	byIdentity map[string]*Client
}

// NewPresence creates an empty registry.
func NewPresence() *Presence {
	return &Presence{byIdentity: make(map[string]*Client)}
}

// Register binds identity to the client, replacing any existing mapping.
// Last register wins; the superseded connection is not closed.
func (p *Presence) Register(identity string, c *Client) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byIdentity[identity] = c
}

// Lookup returns the current connection for identity, if any.
func (p *Presence) Lookup(identity string) (*Client, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.byIdentity[identity]
	return c, ok
}

// Unregister removes the mapping only if c is still the current connection
// for its identity. A disconnect for a superseded connection must not evict
// the replacement registration.
func (p *Presence) Unregister(c *Client) {
	if c.Identity == "" {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if cur, ok := p.byIdentity[c.Identity]; ok && cur == c {
		delete(p.byIdentity, c.Identity)
	}
}

package core

// Client is one live connection as seen by the core layer. Identity is set
// when the connection registers a participant; until then the connection can
// only join rooms anonymously the way the source transport allowed.
type Client struct {
	// ID is the connection handle id, unique per connection.
	ID string
	// Identity is the participant id this connection registered, if any.
	// Written only by the connection's own serve goroutine.
	Identity string
	Name     string

	Commands chan *Command
	Events   chan *Event

	// Rooms tracks the rooms this connection has joined. Accessed only by the
	// connection's own serve goroutine.
	Rooms map[string]struct{}
}

// NewClient constructs a client with initialized channels.
func NewClient(id string) *Client {
	return &Client{
		ID:       id,
		Commands: make(chan *Command, 8),
		Events:   make(chan *Event, 16),
		Rooms:    make(map[string]struct{}),
	}
}

// trySend delivers an event without blocking. Returns false when the client's
// event buffer is full and the event was dropped.
func (c *Client) trySend(ev *Event) bool {
	select {
	case c.Events <- ev:
		return true
	default:
		return false
	}
}

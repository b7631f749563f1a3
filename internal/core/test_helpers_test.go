package core

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/consultwire/consult-server/internal/store"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

func mustNoEvent(t *testing.T, ch <-chan *Event, kind EventKind) {
	t.Helper()

	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected event kind %v received: %+v", kind, ev)
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// fakeStore is an in-memory store.Store with per-operation failure injection.
type fakeStore struct {
	mu       sync.Mutex
	rooms    map[string]*store.Room
	messages []*store.Message
	links    map[string]*store.PaymentLink

	failSetUnread       bool
	failSaveMessage     bool
	failGetRoom         bool
	failSavePaymentLink bool

	saveMessageCalls int
	setUnreadCalls   []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rooms: make(map[string]*store.Room),
		links: make(map[string]*store.PaymentLink),
	}
}

func (s *fakeStore) CreateRoom(_ context.Context, room *store.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *room
	s.rooms[room.ID] = &copied
	return nil
}

func (s *fakeStore) GetRoom(_ context.Context, id string) (*store.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGetRoom {
		return nil, errors.New("injected get failure")
	}
	room, ok := s.rooms[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *room
	return &copied, nil
}

func (s *fakeStore) UpdateRoomStatus(_ context.Context, id string, status store.RoomStatus) (store.RoomStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return "", store.ErrNotFound
	}
	room.Status = status
	return room.Status, nil
}

func (s *fakeStore) SetUnreadFlag(_ context.Context, id string, field store.UnreadField, value bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSetUnread {
		return errors.New("injected unread failure")
	}
	room, ok := s.rooms[id]
	if !ok {
		return store.ErrNotFound
	}
	switch field {
	case store.UnreadUser:
		room.UserUnread = value
	case store.UnreadSpecialist:
		room.SpecialistUnread = value
	}
	s.setUnreadCalls = append(s.setUnreadCalls, string(field))
	return nil
}

func (s *fakeStore) RoomsByParticipant(_ context.Context, role store.ParticipantRole, id string) ([]*store.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*store.Room
	for _, room := range s.rooms {
		match := room.UserID == id
		if role == store.RoleSpecialist {
			match = match || room.SpecialistID == id
		}
		if match {
			copied := *room
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *fakeStore) SaveMessage(_ context.Context, msg *store.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSaveMessage {
		return errors.New("injected save failure")
	}
	copied := *msg
	s.messages = append(s.messages, &copied)
	s.saveMessageCalls++
	return nil
}

func (s *fakeStore) ListMessages(_ context.Context, roomID string) ([]*store.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*store.Message
	for _, msg := range s.messages {
		if msg.RoomID == roomID {
			copied := *msg
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (s *fakeStore) ListMessagesSince(_ context.Context, roomID string, since time.Time) ([]*store.Message, error) {
	all, _ := s.ListMessages(context.Background(), roomID)
	var out []*store.Message
	for _, msg := range all {
		if !msg.Timestamp.Before(since) {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (s *fakeStore) SavePaymentLink(_ context.Context, link *store.PaymentLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSavePaymentLink {
		return errors.New("injected save payment link failure")
	}
	copied := *link
	s.links[link.RoomID+"/"+link.UserID] = &copied
	return nil
}

func (s *fakeStore) ListPaymentLinks(_ context.Context, userID string) ([]*store.PaymentLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*store.PaymentLink
	for _, link := range s.links {
		if link.UserID == userID {
			copied := *link
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *fakeStore) DeletePaymentLink(_ context.Context, roomID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.links, roomID+"/"+userID)
	return nil
}

func (s *fakeStore) Close() error { return nil }

// fakeQueue is an in-memory store.OfflineStore.
type fakeQueue struct {
	mu        sync.Mutex
	entries   map[string]map[string][]byte
	failDrain bool
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{entries: make(map[string]map[string][]byte)}
}

func (q *fakeQueue) Enqueue(_ context.Context, specialistID, roomID string, payload []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	rooms, ok := q.entries[specialistID]
	if !ok {
		rooms = make(map[string][]byte)
		q.entries[specialistID] = rooms
	}
	rooms[roomID] = payload
	return nil
}

func (q *fakeQueue) DrainAndDelete(_ context.Context, specialistID string) ([][]byte, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.failDrain {
		return nil, store.ErrIdentityExpired
	}
	var out [][]byte
	for _, payload := range q.entries[specialistID] {
		out = append(out, payload)
	}
	delete(q.entries, specialistID)
	return out, nil
}

func (q *fakeQueue) Close() error { return nil }

func (q *fakeQueue) pending(specialistID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries[specialistID])
}

// fakeNotifier records push notifications.
type fakeNotifier struct {
	mu    sync.Mutex
	sends []notification
	err   error
}

type notification struct {
	Token string
	Title string
	Body  string
}

func (n *fakeNotifier) Send(_ context.Context, token, title, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sends = append(n.sends, notification{Token: token, Title: title, Body: body})
	return nil
}

func (n *fakeNotifier) sent() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notification, len(n.sends))
	copy(out, n.sends)
	return out
}

// fakeCheckout returns a fixed link.
type fakeCheckout struct {
	link string
	err  error
}

func (c *fakeCheckout) CreateCheckout(_ context.Context, _ *PaymentLinkRequest) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	return c.link, nil
}

func newTestHub(st *fakeStore, q *fakeQueue, n *fakeNotifier) *Hub {
	return NewHub(Deps{
		Store:    st,
		Queue:    q,
		Notifier: n,
	})
}

func openRoom(t *testing.T, st *fakeStore, id, userID, specialistID string) {
	t.Helper()
	err := st.CreateRoom(context.Background(), &store.Room{
		ID:           id,
		Status:       store.RoomStatusOpen,
		UserID:       userID,
		SpecialistID: specialistID,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
}

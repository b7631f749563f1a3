package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/consultwire/consult-server/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedRoom(t *testing.T, s *SQLiteStore, id, userID, specialistID string, createdAt time.Time) {
	t.Helper()

	err := s.CreateRoom(context.Background(), &store.Room{
		ID:           id,
		Status:       store.RoomStatusOpen,
		UserID:       userID,
		SpecialistID: specialistID,
		CreatedAt:    createdAt,
	})
	if err != nil {
		t.Fatalf("failed to seed room %s: %v", id, err)
	}
}

func TestCreateRoomOverwritesSameID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seedRoom(t, s, "room-1", "user-1", "spec-1", time.Now().UTC())

	// A replayed creation for the same room must not fail and must win.
	err := s.CreateRoom(ctx, &store.Room{
		ID:                "room-1",
		Status:            store.RoomStatusOpen,
		UserID:            "user-1",
		SpecialistID:      "spec-1",
		ConsultationTitle: "Updated title",
		CreatedAt:         time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("replayed create failed: %v", err)
	}

	room, err := s.GetRoom(ctx, "room-1")
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	if room.ConsultationTitle != "Updated title" {
		t.Fatalf("replay did not overwrite, title = %q", room.ConsultationTitle)
	}
}

func TestGetRoomNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetRoom(context.Background(), "ghost")
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateRoomStatus(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedRoom(t, s, "room-1", "user-1", "spec-1", time.Now().UTC())

	status, err := s.UpdateRoomStatus(ctx, "room-1", store.RoomStatusClosed)
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if status != store.RoomStatusClosed {
		t.Fatalf("expected closed, got %s", status)
	}

	room, err := s.GetRoom(ctx, "room-1")
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	if room.Status != store.RoomStatusClosed {
		t.Fatalf("status not persisted, got %s", room.Status)
	}

	if _, err := s.UpdateRoomStatus(ctx, "ghost", store.RoomStatusClosed); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown room, got %v", err)
	}
}

func TestSetUnreadFlag(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedRoom(t, s, "room-1", "user-1", "spec-1", time.Now().UTC())

	if err := s.SetUnreadFlag(ctx, "room-1", store.UnreadSpecialist, true); err != nil {
		t.Fatalf("set unread: %v", err)
	}

	room, err := s.GetRoom(ctx, "room-1")
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	if !room.SpecialistUnread || room.UserUnread {
		t.Fatalf("expected only specialist_unread set, got user=%v specialist=%v",
			room.UserUnread, room.SpecialistUnread)
	}

	if err := s.SetUnreadFlag(ctx, "room-1", store.UnreadSpecialist, false); err != nil {
		t.Fatalf("clear unread: %v", err)
	}
	room, _ = s.GetRoom(ctx, "room-1")
	if room.SpecialistUnread {
		t.Fatal("specialist_unread not cleared")
	}

	if err := s.SetUnreadFlag(ctx, "room-1", "users_table; DROP", true); err == nil {
		t.Fatal("expected error for unknown field name")
	}
	if err := s.SetUnreadFlag(ctx, "ghost", store.UnreadUser, true); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown room, got %v", err)
	}
}

func TestRoomsByParticipant(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC()

	seedRoom(t, s, "room-a", "user-1", "spec-1", base.Add(-3*time.Hour))
	seedRoom(t, s, "room-b", "user-2", "spec-1", base.Add(-2*time.Hour))
	// spec-1 books a consultation as a user.
	seedRoom(t, s, "room-c", "spec-1", "spec-2", base.Add(-1*time.Hour))

	tests := []struct {
		name     string
		role     store.ParticipantRole
		id       string
		expected []string
	}{
		{"user sees own rooms", store.RoleUser, "user-1", []string{"room-a"}},
		{"specialist sees both sides, newest first", store.RoleSpecialist, "spec-1", []string{"room-c", "room-b", "room-a"}},
		{"user role ignores specialist column", store.RoleUser, "spec-1", []string{"room-c"}},
		{"no rooms", store.RoleUser, "nobody", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rooms, err := s.RoomsByParticipant(ctx, tt.role, tt.id)
			if err != nil {
				t.Fatalf("RoomsByParticipant failed: %v", err)
			}
			if len(rooms) != len(tt.expected) {
				t.Fatalf("expected %d rooms, got %d", len(tt.expected), len(rooms))
			}
			for i, want := range tt.expected {
				if rooms[i].ID != want {
					t.Fatalf("room %d: expected %s, got %s", i, want, rooms[i].ID)
				}
			}
		})
	}
}

func TestMessagesOrderingAndSince(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedRoom(t, s, "room-1", "user-1", "spec-1", time.Now().UTC())

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	bodies := []string{"one", "two", "three"}
	for i, body := range bodies {
		err := s.SaveMessage(ctx, &store.Message{
			ID:        body,
			RoomID:    "room-1",
			SenderID:  "user-1",
			Body:      body,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("save message %s: %v", body, err)
		}
	}

	all, err := s.ListMessages(ctx, "room-1")
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(all))
	}
	for i, body := range bodies {
		if all[i].Body != body {
			t.Fatalf("message %d out of order: %s", i, all[i].Body)
		}
	}
	if all[0].Status != store.MessageStatusUnread {
		t.Fatalf("default status should be unread, got %s", all[0].Status)
	}

	since, err := s.ListMessagesSince(ctx, "room-1", base.Add(time.Minute))
	if err != nil {
		t.Fatalf("list since: %v", err)
	}
	if len(since) != 2 || since[0].Body != "two" {
		t.Fatalf("unexpected since result: %+v", since)
	}

	empty, err := s.ListMessages(ctx, "other-room")
	if err != nil {
		t.Fatalf("list other room: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no messages, got %d", len(empty))
	}
}

func TestPaymentLinks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	link := &store.PaymentLink{
		RoomID:              "room-1",
		UserID:              "user-1",
		SpecialistID:        "spec-1",
		Link:                "https://pay.example/abc",
		ConsultationTitle:   "Checkup",
		SpecialistFirstName: "Bob",
	}
	if err := s.SavePaymentLink(ctx, link); err != nil {
		t.Fatalf("save link: %v", err)
	}

	// Re-issuing a link for the same pair overwrites.
	link.Link = "https://pay.example/def"
	if err := s.SavePaymentLink(ctx, link); err != nil {
		t.Fatalf("overwrite link: %v", err)
	}

	links, err := s.ListPaymentLinks(ctx, "user-1")
	if err != nil {
		t.Fatalf("list links: %v", err)
	}
	if len(links) != 1 || links[0].Link != "https://pay.example/def" {
		t.Fatalf("unexpected links: %+v", links)
	}

	if err := s.DeletePaymentLink(ctx, "room-1", "user-1"); err != nil {
		t.Fatalf("delete link: %v", err)
	}
	links, _ = s.ListPaymentLinks(ctx, "user-1")
	if len(links) != 0 {
		t.Fatalf("link not deleted: %+v", links)
	}
}

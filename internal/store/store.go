package store

import (
	"context"
	"errors"
	"time"
)

// RoomStatus is the lifecycle state of a consultation room.
type RoomStatus string

const (
	RoomStatusOpen   RoomStatus = "open"
	RoomStatusClosed RoomStatus = "closed"
)

// UnreadField names one of the two per-role unread flags on a room record.
type UnreadField string

const (
	UnreadUser       UnreadField = "user_unread"
	UnreadSpecialist UnreadField = "specialist_unread"
)

// Valid reports whether f names a known unread flag. Field names arrive from
// clients and must never reach a SQL statement unchecked.
func (f UnreadField) Valid() bool {
	return f == UnreadUser || f == UnreadSpecialist
}

// ParticipantRole distinguishes the two sides of a consultation.
type ParticipantRole string

const (
	RoleUser       ParticipantRole = "user"
	RoleSpecialist ParticipantRole = "specialist"
)

// MessageStatus is the read state of a persisted message.
type MessageStatus string

const (
	MessageStatusUnread MessageStatus = "unread"
	MessageStatusRead   MessageStatus = "read"
)

var (
	// ErrNotFound is returned when a room or message does not exist.
	ErrNotFound = errors.New("not found")
	// ErrIdentityExpired is returned when the credential backing an
	// offline-queue operation is no longer valid.
	ErrIdentityExpired = errors.New("identity expired")
)

// Room represents a consultation room between a user and a specialist.
type Room struct {
	ID                   string
	Status               RoomStatus
	UserID               string
	UserFirstName        string
	UserProfilePic       string
	UserPushToken        string
	SpecialistID         string
	SpecialistFirstName  string
	SpecialistProfilePic string
	SpecialistPushToken  string
	ConsultationTitle    string
	ConsultationDetails  string
	UserUnread           bool
	SpecialistUnread     bool
	CreatedAt            time.Time
}

// Message represents a persisted chat message. Immutable once stored.
type Message struct {
	ID        string
	RoomID    string
	SenderID  string
	Body      string
	MediaURL  string
	MediaType string
	Timestamp time.Time
	Status    MessageStatus
}

// PaymentLink is a pending checkout link for a consultation.
type PaymentLink struct {
	RoomID              string
	UserID              string
	SpecialistID        string
	Link                string
	ConsultationTitle   string
	SpecialistFirstName string
	SpecialistLastName  string
}

// RoomStore handles room persistence.
type RoomStore interface {
	// CreateRoom persists a new room. An existing room with the same ID is
	// overwritten, which keeps webhook retries idempotent.
	CreateRoom(ctx context.Context, room *Room) error

	// GetRoom retrieves a room by ID. Returns ErrNotFound if missing.
	GetRoom(ctx context.Context, id string) (*Room, error)

	// UpdateRoomStatus sets the room status and returns the resulting status.
	// Returns ErrNotFound when the room is unknown.
	UpdateRoomStatus(ctx context.Context, id string, status RoomStatus) (RoomStatus, error)

	// SetUnreadFlag sets exactly one of the two unread flags.
	SetUnreadFlag(ctx context.Context, id string, field UnreadField, value bool) error

	// RoomsByParticipant lists rooms for one side of a consultation.
	// Specialists also see rooms where they participate as the user.
	RoomsByParticipant(ctx context.Context, role ParticipantRole, id string) ([]*Room, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// SaveMessage persists a message.
	SaveMessage(ctx context.Context, msg *Message) error

	// ListMessages retrieves all messages of a room, ascending by timestamp.
	ListMessages(ctx context.Context, roomID string) ([]*Message, error)

	// ListMessagesSince retrieves messages at or after the given timestamp,
	// ascending.
	ListMessagesSince(ctx context.Context, roomID string, since time.Time) ([]*Message, error)
}

// PaymentLinkStore handles pending checkout links.
type PaymentLinkStore interface {
	SavePaymentLink(ctx context.Context, link *PaymentLink) error
	ListPaymentLinks(ctx context.Context, userID string) ([]*PaymentLink, error)
	DeletePaymentLink(ctx context.Context, roomID, userID string) error
}

// OfflineStore is the durable holding area for room-creation events addressed
// to a specialist with no live connection.
type OfflineStore interface {
	// Enqueue stores a serialized room-creation payload keyed by
	// (specialist, room). A repeat enqueue for the same key overwrites.
	Enqueue(ctx context.Context, specialistID, roomID string, payload []byte) error

	// DrainAndDelete retrieves and removes all pending payloads for the
	// specialist in one atomic step, in no guaranteed order. A retrieval
	// failure is reported as ErrIdentityExpired so callers can distinguish
	// "nothing pending" from "could not retrieve".
	DrainAndDelete(ctx context.Context, specialistID string) ([][]byte, error)

	Close() error
}

// Store aggregates the record-store interfaces backed by one database.
type Store interface {
	RoomStore
	MessageStore
	PaymentLinkStore

	// Close closes the underlying database connection.
	Close() error
}

package core

import (
	"time"

	"github.com/consultwire/consult-server/internal/store"
)

// CommandKind describes what the connection wants to do.
type CommandKind int

const (
	// CommandRegisterUser binds a participant identity to the connection and
	// replays any room-creation events queued while the participant was offline.
	CommandRegisterUser CommandKind = iota
	// CommandJoinRoom subscribes the connection to a room.
	CommandJoinRoom
	// CommandLeaveRoom unsubscribes the connection from a room.
	CommandLeaveRoom
	// CommandSendMessage relays a chat message into a room.
	CommandSendMessage
	// CommandCloseRoom transitions a room to closed.
	CommandCloseRoom
	// CommandRoomStatus fetches a room's current status.
	CommandRoomStatus
	// CommandListRooms fetches the rooms a participant belongs to.
	CommandListRooms
	// CommandSendPaymentLink creates a checkout link for a consultation.
	CommandSendPaymentLink
)

// Command represents an action requested by a connection.
type Command struct {
	Kind CommandKind

	// Room is set for close/status/leave commands.
	Room string

	Register *RegisterRequest
	Join     *JoinRequest
	Send     *SendRequest
	List     *ListRoomsRequest
	Payment  *PaymentLinkRequest
}

// RegisterRequest binds an identity to the connection.
type RegisterRequest struct {
	Identity string
	Token    string
}

// JoinRequest subscribes the connection to a room.
type JoinRequest struct {
	RoomID    string
	Identity  string
	FirstName string
	Role      store.ParticipantRole
	PushToken string
}

// SendRequest relays one message.
type SendRequest struct {
	RoomID     string
	Body       string
	MediaURL   string
	MediaType  string
	SenderID   string
	SenderName string
	// RecipientPushToken is the device token used for the notification
	// fallback when the recipient is not present in the room.
	RecipientPushToken string
	Timestamp          time.Time
	MessageID          string
	// UnreadField names the recipient's unread flag to raise.
	UnreadField store.UnreadField
}

// ListRoomsRequest fetches rooms by participant.
type ListRoomsRequest struct {
	Role     store.ParticipantRole
	Identity string
}

// PaymentLinkRequest carries the attributes needed to create a checkout.
type PaymentLinkRequest struct {
	RoomID               string
	SpecialistID         string
	SpecialistFirstName  string
	SpecialistLastName   string
	SpecialistPushToken  string
	SpecialistPrice      float64
	SpecialistProfilePic string
	UserID               string
	UserFirstName        string
	UserEmail            string
	UserPushToken        string
	UserProfilePic       string
	ConsultationTitle    string
	ConsultationDetails  string
}

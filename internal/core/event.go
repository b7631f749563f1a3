package core

import "github.com/consultwire/consult-server/internal/store"

// EventKind is a notification the core emits to connections.
type EventKind int

const (
	// EventSaveChatRoom delivers a room-creation event, live or replayed.
	EventSaveChatRoom EventKind = iota
	// EventPreviousMessages delivers room history to a joining connection.
	EventPreviousMessages
	// EventJoinedRoom confirms a join and carries the room's current status.
	EventJoinedRoom
	// EventReceiveMessage is the room broadcast delivery path.
	EventReceiveMessage
	// EventReceiveMessageDirect is the recipient-channel delivery path.
	EventReceiveMessageDirect
	// EventChatRoomClosed notifies that a room transitioned to closed.
	EventChatRoomClosed
	// EventRoomStatus answers a status query.
	EventRoomStatus
	// EventRoomList answers a room-list query.
	EventRoomList
	// EventRegisterResult acks a register, or reports an expired identity.
	EventRegisterResult
	// EventMessageSendError tells the sender a send failed and may be retried.
	EventMessageSendError
	// EventPaymentLink delivers a freshly created checkout link.
	EventPaymentLink
	// EventPaymentError reports a checkout failure.
	EventPaymentError
	// EventError reports any other domain error.
	EventError
)

// Event is sent to connections to describe what happened in the system.
type Event struct {
	Kind EventKind
	Room string

	Creation *RoomCreation
	Message  *MessagePayload
	Messages []*store.Message
	Status   store.RoomStatus
	Rooms    []*store.Room
	Register *RegisterResult
	Payment  *PaymentLinkEvent
	Error    *CoreError
}

// MessagePayload is the wire shape of a relayed message.
type MessagePayload struct {
	Room      string
	Body      string
	Sender    string
	SenderID  string
	MediaURL  string
	MediaType string
	Timestamp int64
}

// RegisterResult acks a register command.
type RegisterResult struct {
	OK bool
	// Code is set when OK is false, e.g. expired_identity.
	Code string
}

// PaymentLinkEvent carries a checkout link back to the requesting user.
type PaymentLinkEvent struct {
	Link                string
	ConsultationTitle   string
	SpecialistFirstName string
	SpecialistLastName  string
}

package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client. Every body is
// a typed struct validated at the boundary before it reaches the core.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeRegisterUser    = "registerUser"
	InboundTypeJoinRoom        = "joinChatRoom"
	InboundTypeSendMessage     = "sendMessageToRoom"
	InboundTypeCloseRoom       = "closeChatRoom"
	InboundTypeRoomStatus      = "getChatRoomStatus"
	InboundTypeGetRooms        = "getChatRooms"
	InboundTypeLeaveRoom       = "leaveChatRoom"
	InboundTypeSendPaymentLink = "sendPaymentLink"

	OutboundTypeSaveChatRoom     = "saveChatRoom"
	OutboundTypePreviousMessages = "previousMessages"
	OutboundTypeJoinedRoom       = "joinedRoom"
	OutboundTypeReceiveMessage   = "receiveMessage"
	OutboundTypeReceiveMessage2  = "receiveMessage2"
	OutboundTypeChatRoomClosed   = "chatRoomClosed"
	OutboundTypeStatusResponse   = "chatRoomStatusResponse"
	OutboundTypeRoomsResponse    = "chatRoomsResponse"
	OutboundTypeRegisterResult   = "registerResult"
	OutboundTypeMessageSendError = "messageSendError"
	OutboundTypePaymentLink      = "getPaymentLink"
	OutboundTypePaymentError     = "paymentError"
	OutboundTypeError            = "error"
)

// RegisterUserData binds a participant identity to the connection.
type RegisterUserData struct {
	UserID string `json:"user_id"`
	Token  string `json:"token,omitempty"`
}

// JoinRoomData requests to join a consultation room.
type JoinRoomData struct {
	RoomID    string `json:"room_id"`
	UserID    string `json:"user_id"`
	FirstName string `json:"first_name,omitempty"`
	UserType  string `json:"user_type"`
	PushToken string `json:"fcm_token,omitempty"`
}

// SendMessageData relays a chat message into a room.
type SendMessageData struct {
	Room        string `json:"room"`
	Message     string `json:"message"`
	MediaURL    string `json:"media_url,omitempty"`
	MessageType string `json:"message_type,omitempty"`
	SenderID    string `json:"sender_id"`
	SenderName  string `json:"sender_name"`
	PushToken   string `json:"fcm_token,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
	MessageID   string `json:"message_id,omitempty"`
	SetUnread   string `json:"set_unread"`
}

// RoomIDData addresses a single room (close, status, leave).
type RoomIDData struct {
	RoomID string `json:"room_id"`
}

// GetRoomsData requests the rooms of one participant.
type GetRoomsData struct {
	UserRole string `json:"user_role"`
	UserID   string `json:"user_id"`
}

// SendPaymentLinkData requests a checkout link for a consultation.
type SendPaymentLinkData struct {
	RoomID               string `json:"chatroomId"`
	SpecialistID         string `json:"specialist_id"`
	SpecialistFirstName  string `json:"specialist_first_name"`
	SpecialistLastName   string `json:"specialist_last_name"`
	SpecialistPushToken  string `json:"specialist_fcm_token,omitempty"`
	SpecialistPrice      string `json:"specialist_price"`
	SpecialistProfilePic string `json:"specialist_profile_pic,omitempty"`
	UserID               string `json:"user_id"`
	UserFirstName        string `json:"user_first_name,omitempty"`
	UserEmail            string `json:"user_email,omitempty"`
	UserPushToken        string `json:"user_fcm_token,omitempty"`
	UserProfilePic       string `json:"user_profile_pic,omitempty"`
	ConsultationTitle    string `json:"consultation_title"`
	ConsultationDetails  string `json:"consultation_details,omitempty"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// MessageEvent is the wire shape of a relayed message. SenderID is present
// only on the direct delivery path.
type MessageEvent struct {
	Message     string `json:"message"`
	Sender      string `json:"sender"`
	Timestamp   int64  `json:"timestamp"`
	MediaURL    string `json:"media_url,omitempty"`
	MessageType string `json:"message_type,omitempty"`
	Room        string `json:"room"`
	SenderID    string `json:"sender_id,omitempty"`
}

// MessageRecord is one persisted message replayed as history.
type MessageRecord struct {
	MessageID   string `json:"message_id"`
	RoomID      string `json:"room_id"`
	SenderID    string `json:"sender_id"`
	Message     string `json:"message"`
	MediaURL    string `json:"media_url,omitempty"`
	MessageType string `json:"message_type,omitempty"`
	Timestamp   string `json:"timestamp"`
	Status      string `json:"status"`
}

// PreviousMessagesEvent replays room history to a joining connection.
type PreviousMessagesEvent struct {
	RoomID   string          `json:"room_id"`
	Messages []MessageRecord `json:"messages"`
}

// JoinedRoomEvent confirms a join.
type JoinedRoomEvent struct {
	Success bool   `json:"success"`
	RoomID  string `json:"room_id"`
	Status  string `json:"status"`
}

// RoomClosedEvent notifies that a room is closed.
type RoomClosedEvent struct {
	RoomID string `json:"room_id"`
	Status string `json:"status"`
}

// StatusResponseEvent answers a status query.
type StatusResponseEvent struct {
	RoomID string `json:"room_id"`
	Status string `json:"status"`
}

// RoomItem is one room in a chatRoomsResponse.
type RoomItem struct {
	ChatRoomID           string `json:"chat_room_id"`
	Status               string `json:"status"`
	UserID               string `json:"user_id"`
	UserFirstName        string `json:"user_first_name,omitempty"`
	UserProfilePic       string `json:"user_profile_pic,omitempty"`
	SpecialistID         string `json:"specialist_id"`
	SpecialistFirstName  string `json:"specialist_first_name,omitempty"`
	SpecialistProfilePic string `json:"specialist_profile_pic,omitempty"`
	ConsultationTitle    string `json:"consultation_title,omitempty"`
	ConsultationDetails  string `json:"consultation_details,omitempty"`
	UserUnread           bool   `json:"user_unread"`
	SpecialistUnread     bool   `json:"specialist_unread"`
	CreatedAt            string `json:"createdAt"`
}

// RoomsResponseEvent answers a room-list query.
type RoomsResponseEvent struct {
	Items []RoomItem `json:"Items"`
}

// RegisterResultEvent acks a register command.
type RegisterResultEvent struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
}

// PaymentLinkEvent delivers a checkout link.
type PaymentLinkEvent struct {
	Link                string `json:"link"`
	ConsultationTitle   string `json:"consultation_title,omitempty"`
	SpecialistFirstName string `json:"specialist_first_name,omitempty"`
	SpecialistLastName  string `json:"specialist_last_name,omitempty"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Op   string `json:"op,omitempty"`
	Msg  string `json:"msg"`
}

package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/consultwire/consult-server/internal/log"
	"github.com/consultwire/consult-server/internal/store"
	"github.com/consultwire/consult-server/internal/utils"
)

// Notifier delivers a best-effort push notification.
type Notifier interface {
	Send(ctx context.Context, token, title, body string) error
}

// Checkout creates a payment link for a consultation. The payment provider is
// an external collaborator; only this narrow surface is consumed.
type Checkout interface {
	CreateCheckout(ctx context.Context, req *PaymentLinkRequest) (string, error)
}

// TokenChecker validates the credential presented on register.
type TokenChecker interface {
	Check(token string) error
}

// TokenCheckerFunc adapts a function to TokenChecker.
type TokenCheckerFunc func(token string) error

func (f TokenCheckerFunc) Check(token string) error { return f(token) }

// Deps bundles the collaborators a hub needs.
type Deps struct {
	Store        store.Store
	Queue        store.OfflineStore
	Notifier     Notifier
	Checkout     Checkout
	TokenChecker TokenChecker
	Logger       *zerolog.Logger
	// StoreTimeout bounds every store and notification call.
	StoreTimeout time.Duration
}

// Hub coordinates presence, room membership and message relay. Each
// connection is served by its own goroutine; the presence registry and the
// membership map are the only shared state and carry their own locks. No lock
// is ever held across a store call.
type Hub struct {
	presence *Presence
	store    store.Store
	queue    store.OfflineStore
	notifier Notifier
	checkout Checkout
	tokens   TokenChecker
	log      *zerolog.Logger

	storeTimeout time.Duration

	mu sync.Mutex
	// rooms maps room id to the joined connections and the identity each one
	// presented when joining.
	rooms map[string]map[*Client]string
}

// NewHub creates a hub with the given collaborators.
func NewHub(deps Deps) *Hub {
	logger := deps.Logger
	if logger == nil {
		logger = log.Nop()
	}
	timeout := deps.StoreTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Hub{
		presence:     NewPresence(),
		store:        deps.Store,
		queue:        deps.Queue,
		notifier:     deps.Notifier,
		checkout:     deps.Checkout,
		tokens:       deps.TokenChecker,
		log:          logger,
		storeTimeout: timeout,
		rooms:        make(map[string]map[*Client]string),
	}
}

// Presence exposes the registry for transports that need direct lookups.
func (h *Hub) Presence() *Presence {
	return h.presence
}

// ServeClient consumes the client's commands until the context is canceled or
// the command channel closes, then runs the disconnect path.
func (h *Hub) ServeClient(ctx context.Context, c *Client) {
	defer h.Disconnect(c)

	for {
		select {
		case cmd, ok := <-c.Commands:
			if !ok {
				return
			}
			h.handle(ctx, c, cmd)
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) handle(ctx context.Context, c *Client, cmd *Command) {
	switch cmd.Kind {
	case CommandRegisterUser:
		h.registerUser(ctx, c, cmd.Register)
	case CommandJoinRoom:
		h.joinRoom(ctx, c, cmd.Join)
	case CommandLeaveRoom:
		h.leaveRoom(c, cmd.Room)
	case CommandSendMessage:
		h.sendMessage(ctx, c, cmd.Send)
	case CommandCloseRoom:
		h.closeRoom(ctx, c, cmd.Room)
	case CommandRoomStatus:
		h.roomStatus(ctx, c, cmd.Room)
	case CommandListRooms:
		h.listRooms(ctx, c, cmd.List)
	case CommandSendPaymentLink:
		h.sendPaymentLink(ctx, c, cmd.Payment)
	default:
		c.trySend(&Event{
			Kind:  EventError,
			Error: coreError(ErrCodeBadRequest, "handle", "unknown command"),
		})
	}
}

func (h *Hub) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, h.storeTimeout)
}

// registerUser binds the participant identity to this connection
// (last-register-wins) and drains queued room-creation events. The drain is
// atomic per identity: entries are removed only after they have been read.
func (h *Hub) registerUser(ctx context.Context, c *Client, req *RegisterRequest) {
	if req == nil || req.Identity == "" {
		c.trySend(&Event{
			Kind:  EventError,
			Error: coreError(ErrCodeBadRequest, "register_user", "identity is required"),
		})
		return
	}

	c.Identity = req.Identity
	h.presence.Register(req.Identity, c)

	if h.tokens != nil {
		if err := h.tokens.Check(req.Token); err != nil {
			// Only an expired credential is worth re-authenticating for; every
			// other rejection gets its own code.
			code := ErrCodeInvalidCredentials
			if errors.Is(err, store.ErrIdentityExpired) {
				code = ErrCodeExpiredIdentity
			}
			h.log.Warn().Err(err).Str("identity", req.Identity).Msg("register credential rejected")
			c.trySend(&Event{
				Kind:     EventRegisterResult,
				Register: &RegisterResult{OK: false, Code: code},
			})
			return
		}
	}

	var payloads [][]byte
	if h.queue != nil {
		qctx, cancel := h.storeCtx(ctx)
		drained, err := h.queue.DrainAndDelete(qctx, req.Identity)
		cancel()
		if err != nil {
			// A retrieval failure must not masquerade as "nothing pending".
			h.log.Warn().Err(err).Str("identity", req.Identity).Msg("offline queue drain failed")
			c.trySend(&Event{
				Kind:     EventRegisterResult,
				Register: &RegisterResult{OK: false, Code: ErrCodeExpiredIdentity},
			})
			return
		}
		payloads = drained
	}

	c.trySend(&Event{Kind: EventRegisterResult, Register: &RegisterResult{OK: true}})

	for _, payload := range payloads {
		var creation RoomCreation
		if err := json.Unmarshal(payload, &creation); err != nil {
			h.log.Warn().Err(err).Str("identity", req.Identity).Msg("skipping invalid queued room event")
			continue
		}
		c.trySend(&Event{Kind: EventSaveChatRoom, Room: creation.RoomID, Creation: &creation})
	}
}

// joinRoom subscribes the connection to a room, replays history
// asynchronously, clears the joiner's own unread flag and acks with the
// current room status.
func (h *Hub) joinRoom(ctx context.Context, c *Client, req *JoinRequest) {
	if req == nil || req.RoomID == "" {
		c.trySend(&Event{
			Kind:  EventError,
			Error: coreError(ErrCodeBadRequest, "join_room", "room_id is required"),
		})
		return
	}

	if req.Identity != "" {
		c.Identity = req.Identity
	}
	c.Rooms[req.RoomID] = struct{}{}
	h.addMember(req.RoomID, c, req.Identity)

	// History must not block the join ack.
	go h.deliverHistory(c, req.RoomID)

	sctx, cancel := h.storeCtx(ctx)
	room, err := h.store.GetRoom(sctx, req.RoomID)
	cancel()
	if err != nil {
		code := ErrCodeStoreError
		if errors.Is(err, store.ErrNotFound) {
			code = ErrCodeRoomNotFound
		}
		h.log.Error().Err(err).Str("room", req.RoomID).Msg("join: fetch room failed")
		c.trySend(&Event{
			Kind:  EventError,
			Room:  req.RoomID,
			Error: coreError(code, "join_room", "failed to join chatroom"),
		})
		return
	}

	// Joining a room means the participant has seen it.
	field := store.UnreadUser
	if req.Role == store.RoleSpecialist {
		field = store.UnreadSpecialist
	}
	uctx, cancel := h.storeCtx(ctx)
	err = h.store.SetUnreadFlag(uctx, req.RoomID, field, false)
	cancel()
	if err != nil {
		h.log.Error().Err(err).Str("room", req.RoomID).Msg("join: clear unread flag failed")
		c.trySend(&Event{
			Kind:  EventError,
			Room:  req.RoomID,
			Error: coreError(ErrCodeStoreError, "clear_unread", "failed to clear unread flag"),
		})
	}

	c.trySend(&Event{Kind: EventJoinedRoom, Room: req.RoomID, Status: room.Status})
}

func (h *Hub) deliverHistory(c *Client, roomID string) {
	ctx, cancel := context.WithTimeout(context.Background(), h.storeTimeout)
	defer cancel()

	messages, err := h.store.ListMessages(ctx, roomID)
	if err != nil {
		h.log.Error().Err(err).Str("room", roomID).Msg("fetch history failed")
		c.trySend(&Event{
			Kind:  EventError,
			Room:  roomID,
			Error: coreError(ErrCodeStoreError, "previous_messages", "failed to fetch messages"),
		})
		return
	}

	c.trySend(&Event{Kind: EventPreviousMessages, Room: roomID, Messages: messages})
}

// leaveRoom unsubscribes the connection from a room.
func (h *Hub) leaveRoom(c *Client, roomID string) {
	if roomID == "" {
		c.trySend(&Event{
			Kind:  EventError,
			Error: coreError(ErrCodeBadRequest, "leave_room", "room_id is required"),
		})
		return
	}

	delete(c.Rooms, roomID)
	h.removeMember(roomID, c)
}

// sendMessage runs the send path: raise the recipient's unread flag, persist
// the message, then attempt direct and broadcast delivery independently, with
// a push-notification fallback when the recipient is not in the room.
func (h *Hub) sendMessage(ctx context.Context, c *Client, req *SendRequest) {
	if req == nil || req.RoomID == "" || req.SenderID == "" {
		c.trySend(&Event{
			Kind:  EventError,
			Error: coreError(ErrCodeBadRequest, "send_message", "room_id and sender_id are required"),
		})
		return
	}
	if !req.UnreadField.Valid() {
		c.trySend(&Event{
			Kind:  EventError,
			Error: coreError(ErrCodeBadRequest, "send_message", "unknown unread field"),
		})
		return
	}

	// Step 1: raise the recipient's unread flag. A failure must not block the
	// send, but it must reach the sender; a lost update shows up as a wrong
	// notification badge.
	uctx, cancel := h.storeCtx(ctx)
	if err := h.store.SetUnreadFlag(uctx, req.RoomID, req.UnreadField, true); err != nil {
		h.log.Error().Err(err).Str("room", req.RoomID).Msg("send: set unread flag failed")
		c.trySend(&Event{
			Kind:  EventError,
			Room:  req.RoomID,
			Error: coreError(ErrCodeStoreError, "mark_unread", "failed to mark room unread"),
		})
	}
	cancel()

	// Step 2: persist.
	msg := &store.Message{
		ID:        req.MessageID,
		RoomID:    req.RoomID,
		SenderID:  req.SenderID,
		Body:      req.Body,
		MediaURL:  req.MediaURL,
		MediaType: req.MediaType,
		Timestamp: req.Timestamp,
		Status:    store.MessageStatusUnread,
	}
	if msg.ID == "" {
		msg.ID = utils.NewID()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	mctx, cancel := h.storeCtx(ctx)
	err := h.store.SaveMessage(mctx, msg)
	cancel()
	if err != nil {
		h.log.Error().Err(err).Str("room", req.RoomID).Msg("send: persist message failed")
		c.trySend(&Event{
			Kind:  EventMessageSendError,
			Room:  req.RoomID,
			Error: coreError(ErrCodeStoreError, "store_message", "failed to send message"),
		})
		return
	}

	// Step 3: resolve the recipient as whichever participant is not the sender.
	rctx, cancel := h.storeCtx(ctx)
	room, err := h.store.GetRoom(rctx, req.RoomID)
	cancel()
	if err != nil {
		code := ErrCodeStoreError
		if errors.Is(err, store.ErrNotFound) {
			code = ErrCodeRoomNotFound
		}
		h.log.Error().Err(err).Str("room", req.RoomID).Msg("send: fetch room failed")
		c.trySend(&Event{
			Kind:  EventMessageSendError,
			Room:  req.RoomID,
			Error: coreError(code, "resolve_recipient", "failed to send message"),
		})
		return
	}

	recipientID := room.UserID
	if recipientID == req.SenderID {
		recipientID = room.SpecialistID
	}

	payload := &MessagePayload{
		Room:      req.RoomID,
		Body:      req.Body,
		Sender:    req.SenderName,
		MediaURL:  req.MediaURL,
		MediaType: req.MediaType,
		Timestamp: msg.Timestamp.Unix(),
	}

	// Step 4: two independent delivery paths. One failing must not stop the
	// other.
	directPayload := *payload
	directPayload.SenderID = req.SenderID

	directFailed := false
	if rc, online := h.presence.Lookup(recipientID); online {
		if !rc.trySend(&Event{Kind: EventReceiveMessageDirect, Room: req.RoomID, Message: &directPayload}) {
			directFailed = true
		}
	}

	_, dropped := h.broadcast(req.RoomID, c, &Event{Kind: EventReceiveMessage, Room: req.RoomID, Message: payload})
	broadcastFailed := dropped > 0

	if directFailed != broadcastFailed {
		h.log.Warn().
			Str("code", ErrCodePartialDelivery).
			Str("room", req.RoomID).
			Bool("direct_failed", directFailed).
			Bool("broadcast_failed", broadcastFailed).
			Msg("one delivery path failed")
	}

	// Step 5: notification fallback when the recipient is not in the room.
	if h.notifier != nil && !h.identityInRoom(req.RoomID, recipientID) {
		title := notificationTitle(req.SenderName, req.MediaURL, req.MediaType)
		nctx, cancel := h.storeCtx(ctx)
		if err := h.notifier.Send(nctx, req.RecipientPushToken, title, req.Body); err != nil {
			// Terminal for the notification only, never for the send.
			h.log.Warn().Err(err).Str("room", req.RoomID).Msg("push notification failed")
		}
		cancel()
	}
}

func notificationTitle(senderName, mediaURL, mediaType string) string {
	if mediaURL == "" {
		return "New message from " + senderName
	}
	major := mediaType
	if i := strings.Index(mediaType, "/"); i >= 0 {
		major = mediaType[:i]
	}
	return "New " + major + " from " + senderName
}

// closeRoom transitions the room to closed. Closing an already-closed room
// re-confirms the status.
func (h *Hub) closeRoom(ctx context.Context, c *Client, roomID string) {
	if roomID == "" {
		c.trySend(&Event{
			Kind:  EventError,
			Error: coreError(ErrCodeBadRequest, "close_room", "room_id is required"),
		})
		return
	}

	sctx, cancel := h.storeCtx(ctx)
	status, err := h.store.UpdateRoomStatus(sctx, roomID, store.RoomStatusClosed)
	cancel()
	if err != nil {
		code := ErrCodeStoreError
		if errors.Is(err, store.ErrNotFound) {
			code = ErrCodeRoomNotFound
		}
		h.log.Error().Err(err).Str("room", roomID).Msg("close room failed")
		c.trySend(&Event{
			Kind:  EventError,
			Room:  roomID,
			Error: coreError(code, "close_room", "failed to close chatroom"),
		})
		return
	}

	ev := &Event{Kind: EventChatRoomClosed, Room: roomID, Status: status}
	h.broadcast(roomID, nil, ev)
	if _, joined := c.Rooms[roomID]; !joined {
		c.trySend(ev)
	}
}

// roomStatus answers a status query.
func (h *Hub) roomStatus(ctx context.Context, c *Client, roomID string) {
	sctx, cancel := h.storeCtx(ctx)
	room, err := h.store.GetRoom(sctx, roomID)
	cancel()
	if err != nil {
		code := ErrCodeStoreError
		if errors.Is(err, store.ErrNotFound) {
			code = ErrCodeRoomNotFound
		}
		c.trySend(&Event{
			Kind:  EventError,
			Room:  roomID,
			Error: coreError(code, "room_status", "failed to get chatroom status"),
		})
		return
	}

	c.trySend(&Event{Kind: EventRoomStatus, Room: roomID, Status: room.Status})
}

// listRooms answers a room-list query for one participant.
func (h *Hub) listRooms(ctx context.Context, c *Client, req *ListRoomsRequest) {
	if req == nil || req.Identity == "" {
		c.trySend(&Event{
			Kind:  EventError,
			Error: coreError(ErrCodeBadRequest, "list_rooms", "identity is required"),
		})
		return
	}

	sctx, cancel := h.storeCtx(ctx)
	rooms, err := h.store.RoomsByParticipant(sctx, req.Role, req.Identity)
	cancel()
	if err != nil {
		h.log.Error().Err(err).Str("identity", req.Identity).Msg("list rooms failed")
		c.trySend(&Event{
			Kind:  EventError,
			Error: coreError(ErrCodeStoreError, "list_rooms", "failed to fetch chatrooms"),
		})
		return
	}

	c.trySend(&Event{Kind: EventRoomList, Rooms: rooms})
}

// sendPaymentLink asks the payment collaborator for a checkout link, records
// it, and delivers it to the requesting user's channel.
func (h *Hub) sendPaymentLink(ctx context.Context, c *Client, req *PaymentLinkRequest) {
	if req == nil || req.UserID == "" || req.SpecialistID == "" {
		c.trySend(&Event{
			Kind:  EventError,
			Error: coreError(ErrCodeBadRequest, "send_payment_link", "user_id and specialist_id are required"),
		})
		return
	}

	target := c
	if uc, online := h.presence.Lookup(req.UserID); online {
		target = uc
	}

	if h.checkout == nil {
		target.trySend(&Event{
			Kind:  EventPaymentError,
			Error: coreError(ErrCodePaymentError, "create_checkout", "checkout is not configured"),
		})
		return
	}

	link, err := h.checkout.CreateCheckout(ctx, req)
	if err != nil {
		h.log.Error().Err(err).Str("user", req.UserID).Msg("create checkout failed")
		target.trySend(&Event{
			Kind:  EventPaymentError,
			Error: coreError(ErrCodePaymentError, "create_checkout", "failed to create checkout link"),
		})
		return
	}

	sctx, cancel := h.storeCtx(ctx)
	err = h.store.SavePaymentLink(sctx, &store.PaymentLink{
		RoomID:              req.RoomID,
		UserID:              req.UserID,
		SpecialistID:        req.SpecialistID,
		Link:                link,
		ConsultationTitle:   req.ConsultationTitle,
		SpecialistFirstName: req.SpecialistFirstName,
		SpecialistLastName:  req.SpecialistLastName,
	})
	cancel()
	if err != nil {
		h.log.Error().Err(err).Str("room", req.RoomID).Msg("save payment link failed")
		target.trySend(&Event{
			Kind:  EventError,
			Room:  req.RoomID,
			Error: coreError(ErrCodeStoreError, "save_payment_link", "failed to record payment link"),
		})
	}

	target.trySend(&Event{
		Kind: EventPaymentLink,
		Room: req.RoomID,
		Payment: &PaymentLinkEvent{
			Link:                link,
			ConsultationTitle:   req.ConsultationTitle,
			SpecialistFirstName: req.SpecialistFirstName,
			SpecialistLastName:  req.SpecialistLastName,
		},
	})
}

// CreateRoomFromPayment persists a new open room and fans the creation event
// out: the user's channel gets it directly, the specialist's channel gets it
// directly when connected and the offline queue otherwise.
func (h *Hub) CreateRoomFromPayment(ctx context.Context, creation *RoomCreation) error {
	if creation == nil || creation.RoomID == "" || creation.UserID == "" || creation.SpecialistID == "" {
		return fmt.Errorf("incomplete room creation payload")
	}

	sctx, cancel := h.storeCtx(ctx)
	err := h.store.CreateRoom(sctx, creation.ToRoom(time.Now()))
	cancel()
	if err != nil {
		return fmt.Errorf("create room: %w", err)
	}

	ev := &Event{Kind: EventSaveChatRoom, Room: creation.RoomID, Creation: creation}

	if uc, online := h.presence.Lookup(creation.UserID); online {
		uc.trySend(ev)
	}

	if sc, online := h.presence.Lookup(creation.SpecialistID); online {
		sc.trySend(ev)
		return nil
	}

	payload, err := json.Marshal(creation)
	if err != nil {
		return fmt.Errorf("marshal room creation: %w", err)
	}

	qctx, cancel := h.storeCtx(ctx)
	err = h.queue.Enqueue(qctx, creation.SpecialistID, creation.RoomID, payload)
	cancel()
	if err != nil {
		return fmt.Errorf("enqueue offline room: %w", err)
	}

	h.log.Info().
		Str("room", creation.RoomID).
		Str("specialist", creation.SpecialistID).
		Msg("room creation queued for offline specialist")
	return nil
}

// Disconnect removes the connection from the presence registry (only while it
// is still the current handle for its identity) and from every joined room.
func (h *Hub) Disconnect(c *Client) {
	h.presence.Unregister(c)

	h.mu.Lock()
	for roomID := range c.Rooms {
		h.removeMemberLocked(roomID, c)
	}
	h.mu.Unlock()

	c.Rooms = make(map[string]struct{})
}

// ==== membership helpers ====

func (h *Hub) addMember(roomID string, c *Client, identity string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[roomID]
	if !ok {
		members = make(map[*Client]string)
		h.rooms[roomID] = members
	}
	members[c] = identity
}

func (h *Hub) removeMember(roomID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeMemberLocked(roomID, c)
}

func (h *Hub) removeMemberLocked(roomID string, c *Client) {
	members, ok := h.rooms[roomID]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, roomID)
	}
}

// broadcast sends an event to every connection joined to the room except the
// given one. Slow consumers are dropped, not waited for; holding the lock for
// the whole loop keeps broadcasts in relay order per room.
func (h *Hub) broadcast(roomID string, except *Client, ev *Event) (delivered, dropped int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for member := range h.rooms[roomID] {
		if member == except {
			continue
		}
		if member.trySend(ev) {
			delivered++
		} else {
			dropped++
		}
	}
	return delivered, dropped
}

// identityInRoom reports whether any connection joined to the room presented
// the given identity.
func (h *Hub) identityInRoom(roomID, identity string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, memberIdentity := range h.rooms[roomID] {
		if memberIdentity == identity {
			return true
		}
	}
	return false
}

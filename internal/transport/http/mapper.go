package http

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/consultwire/consult-server/internal/core"
	"github.com/consultwire/consult-server/internal/proto"
	"github.com/consultwire/consult-server/internal/store"
)

func parseRole(s string) (store.ParticipantRole, bool) {
	switch s {
	case string(store.RoleUser):
		return store.RoleUser, true
	case string(store.RoleSpecialist):
		return store.RoleSpecialist, true
	default:
		return "", false
	}
}

func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error, error) {
	switch inbound.Type {
	case proto.InboundTypeRegisterUser:
		var data proto.RegisterUserData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		if data.UserID == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "user_id is required"}, nil
		}
		return &core.Command{
			Kind:     core.CommandRegisterUser,
			Register: &core.RegisterRequest{Identity: data.UserID, Token: data.Token},
		}, nil, nil

	case proto.InboundTypeJoinRoom:
		var data proto.JoinRoomData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		if data.RoomID == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "room_id is required"}, nil
		}
		role, ok := parseRole(data.UserType)
		if !ok {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "unknown user_type"}, nil
		}
		return &core.Command{
			Kind: core.CommandJoinRoom,
			Join: &core.JoinRequest{
				RoomID:    data.RoomID,
				Identity:  data.UserID,
				FirstName: data.FirstName,
				Role:      role,
				PushToken: data.PushToken,
			},
		}, nil, nil

	case proto.InboundTypeSendMessage:
		var data proto.SendMessageData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		if data.Room == "" || data.SenderID == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "room and sender_id are required"}, nil
		}
		field := store.UnreadField(data.SetUnread)
		if !field.Valid() {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "unknown unread field"}, nil
		}
		var ts time.Time
		if data.Timestamp != "" {
			parsed, err := time.Parse(time.RFC3339, data.Timestamp)
			if err != nil {
				return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "invalid timestamp"}, nil
			}
			ts = parsed
		}
		return &core.Command{
			Kind: core.CommandSendMessage,
			Send: &core.SendRequest{
				RoomID:             data.Room,
				Body:               data.Message,
				MediaURL:           data.MediaURL,
				MediaType:          data.MessageType,
				SenderID:           data.SenderID,
				SenderName:         data.SenderName,
				RecipientPushToken: data.PushToken,
				Timestamp:          ts,
				MessageID:          data.MessageID,
				UnreadField:        field,
			},
		}, nil, nil

	case proto.InboundTypeCloseRoom, proto.InboundTypeRoomStatus, proto.InboundTypeLeaveRoom:
		var data proto.RoomIDData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		if data.RoomID == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "room_id is required"}, nil
		}
		kind := core.CommandCloseRoom
		switch inbound.Type {
		case proto.InboundTypeRoomStatus:
			kind = core.CommandRoomStatus
		case proto.InboundTypeLeaveRoom:
			kind = core.CommandLeaveRoom
		}
		return &core.Command{Kind: kind, Room: data.RoomID}, nil, nil

	case proto.InboundTypeGetRooms:
		var data proto.GetRoomsData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		if data.UserID == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "user_id is required"}, nil
		}
		role, ok := parseRole(data.UserRole)
		if !ok {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "unknown user_role"}, nil
		}
		return &core.Command{
			Kind: core.CommandListRooms,
			List: &core.ListRoomsRequest{Role: role, Identity: data.UserID},
		}, nil, nil

	case proto.InboundTypeSendPaymentLink:
		var data proto.SendPaymentLinkData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		if data.UserID == "" || data.SpecialistID == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "user_id and specialist_id are required"}, nil
		}
		price, err := strconv.ParseFloat(data.SpecialistPrice, 64)
		if err != nil {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "invalid specialist_price"}, nil
		}
		return &core.Command{
			Kind: core.CommandSendPaymentLink,
			Payment: &core.PaymentLinkRequest{
				RoomID:               data.RoomID,
				SpecialistID:         data.SpecialistID,
				SpecialistFirstName:  data.SpecialistFirstName,
				SpecialistLastName:   data.SpecialistLastName,
				SpecialistPushToken:  data.SpecialistPushToken,
				SpecialistPrice:      price,
				SpecialistProfilePic: data.SpecialistProfilePic,
				UserID:               data.UserID,
				UserFirstName:        data.UserFirstName,
				UserEmail:            data.UserEmail,
				UserPushToken:        data.UserPushToken,
				UserProfilePic:       data.UserProfilePic,
				ConsultationTitle:    data.ConsultationTitle,
				ConsultationDetails:  data.ConsultationDetails,
			},
		}, nil, nil

	default:
		return nil, &proto.Error{Code: "invalid_message", Msg: "unknown message type"}, nil
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventSaveChatRoom:
		return proto.Outbound{Type: proto.OutboundTypeSaveChatRoom, Data: event.Creation}

	case core.EventPreviousMessages:
		records := make([]proto.MessageRecord, 0, len(event.Messages))
		for _, msg := range event.Messages {
			records = append(records, proto.MessageRecord{
				MessageID:   msg.ID,
				RoomID:      msg.RoomID,
				SenderID:    msg.SenderID,
				Message:     msg.Body,
				MediaURL:    msg.MediaURL,
				MessageType: msg.MediaType,
				Timestamp:   msg.Timestamp.UTC().Format(time.RFC3339),
				Status:      string(msg.Status),
			})
		}
		return proto.Outbound{
			Type: proto.OutboundTypePreviousMessages,
			Data: proto.PreviousMessagesEvent{RoomID: event.Room, Messages: records},
		}

	case core.EventJoinedRoom:
		return proto.Outbound{
			Type: proto.OutboundTypeJoinedRoom,
			Data: proto.JoinedRoomEvent{Success: true, RoomID: event.Room, Status: string(event.Status)},
		}

	case core.EventReceiveMessage, core.EventReceiveMessageDirect:
		outType := proto.OutboundTypeReceiveMessage
		if event.Kind == core.EventReceiveMessageDirect {
			outType = proto.OutboundTypeReceiveMessage2
		}
		return proto.Outbound{
			Type: outType,
			Data: proto.MessageEvent{
				Message:     event.Message.Body,
				Sender:      event.Message.Sender,
				Timestamp:   event.Message.Timestamp,
				MediaURL:    event.Message.MediaURL,
				MessageType: event.Message.MediaType,
				Room:        event.Message.Room,
				SenderID:    event.Message.SenderID,
			},
		}

	case core.EventChatRoomClosed:
		return proto.Outbound{
			Type: proto.OutboundTypeChatRoomClosed,
			Data: proto.RoomClosedEvent{RoomID: event.Room, Status: string(event.Status)},
		}

	case core.EventRoomStatus:
		return proto.Outbound{
			Type: proto.OutboundTypeStatusResponse,
			Data: proto.StatusResponseEvent{RoomID: event.Room, Status: string(event.Status)},
		}

	case core.EventRoomList:
		items := make([]proto.RoomItem, 0, len(event.Rooms))
		for _, room := range event.Rooms {
			items = append(items, roomItem(room))
		}
		return proto.Outbound{
			Type: proto.OutboundTypeRoomsResponse,
			Data: proto.RoomsResponseEvent{Items: items},
		}

	case core.EventRegisterResult:
		return proto.Outbound{
			Type: proto.OutboundTypeRegisterResult,
			Data: proto.RegisterResultEvent{Success: event.Register.OK, Code: event.Register.Code},
		}

	case core.EventMessageSendError:
		return proto.Outbound{
			Type:  proto.OutboundTypeMessageSendError,
			Error: protoError(event.Error),
		}

	case core.EventPaymentLink:
		return proto.Outbound{
			Type: proto.OutboundTypePaymentLink,
			Data: proto.PaymentLinkEvent{
				Link:                event.Payment.Link,
				ConsultationTitle:   event.Payment.ConsultationTitle,
				SpecialistFirstName: event.Payment.SpecialistFirstName,
				SpecialistLastName:  event.Payment.SpecialistLastName,
			},
		}

	case core.EventPaymentError:
		return proto.Outbound{
			Type:  proto.OutboundTypePaymentError,
			Error: protoError(event.Error),
		}

	case core.EventError:
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: protoError(event.Error),
		}

	default:
		return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown event"}}
	}
}

func protoError(err *core.CoreError) *proto.Error {
	if err == nil {
		return &proto.Error{Code: "unknown", Msg: "unknown error"}
	}
	return &proto.Error{Code: err.Code, Op: err.Op, Msg: err.Message}
}

func roomItem(room *store.Room) proto.RoomItem {
	return proto.RoomItem{
		ChatRoomID:           room.ID,
		Status:               string(room.Status),
		UserID:               room.UserID,
		UserFirstName:        room.UserFirstName,
		UserProfilePic:       room.UserProfilePic,
		SpecialistID:         room.SpecialistID,
		SpecialistFirstName:  room.SpecialistFirstName,
		SpecialistProfilePic: room.SpecialistProfilePic,
		ConsultationTitle:    room.ConsultationTitle,
		ConsultationDetails:  room.ConsultationDetails,
		UserUnread:           room.UserUnread,
		SpecialistUnread:     room.SpecialistUnread,
		CreatedAt:            room.CreatedAt.UTC().Format(time.RFC3339),
	}
}

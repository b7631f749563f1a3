package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/consultwire/consult-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.String("user", "smoke-user", "participant id to register")
	role := flag.String("role", "user", "participant role (user or specialist)")
	room := flag.String("room", "", "room id to join and message")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(msgType string, data any) error {
		raw, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", msgType, err)
		}
		if err := wsjson.Write(ctx, conn, proto.Inbound{Type: msgType, Data: raw}); err != nil {
			return fmt.Errorf("send %s: %w", msgType, err)
		}
		return nil
	}

	if err := send(proto.InboundTypeRegisterUser, proto.RegisterUserData{UserID: *user}); err != nil {
		return err
	}

	if *room != "" {
		if err := send(proto.InboundTypeJoinRoom, proto.JoinRoomData{
			RoomID:   *room,
			UserID:   *user,
			UserType: *role,
		}); err != nil {
			return err
		}

		unread := "specialist_unread"
		if *role == "specialist" {
			unread = "user_unread"
		}
		if err := send(proto.InboundTypeSendMessage, proto.SendMessageData{
			Room:       *room,
			Message:    *text,
			SenderID:   *user,
			SenderName: *user,
			SetUnread:  unread,
		}); err != nil {
			return err
		}
	}

	for {
		var outbound struct {
			Type  string          `json:"type"`
			Data  json.RawMessage `json:"data"`
			Error *proto.Error    `json:"error,omitempty"`
		}
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		fmt.Printf("Received: type=%s\n", outbound.Type)
		if outbound.Error != nil {
			fmt.Printf("Error: %s (%s)\n", outbound.Error.Msg, outbound.Error.Code)
		}

		switch outbound.Type {
		case proto.OutboundTypeRegisterResult:
			var ev proto.RegisterResultEvent
			if err := json.Unmarshal(outbound.Data, &ev); err == nil {
				fmt.Printf("Registered: success=%v code=%s\n", ev.Success, ev.Code)
			}
			if *room == "" {
				return nil
			}
		case proto.OutboundTypeJoinedRoom:
			var ev proto.JoinedRoomEvent
			if err := json.Unmarshal(outbound.Data, &ev); err == nil {
				fmt.Printf("Joined: room=%s status=%s\n", ev.RoomID, ev.Status)
			}
		case proto.OutboundTypePreviousMessages:
			var ev proto.PreviousMessagesEvent
			if err := json.Unmarshal(outbound.Data, &ev); err == nil {
				fmt.Printf("History: %d messages in %s\n", len(ev.Messages), ev.RoomID)
			}
		case proto.OutboundTypeReceiveMessage, proto.OutboundTypeReceiveMessage2:
			var ev proto.MessageEvent
			if err := json.Unmarshal(outbound.Data, &ev); err == nil {
				fmt.Printf("Message: room=%s sender=%s text=%q\n", ev.Room, ev.Sender, ev.Message)
			}
			return nil
		case proto.OutboundTypeMessageSendError:
			return fmt.Errorf("message send failed")
		}
	}
}

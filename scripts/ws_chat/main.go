package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/consultwire/consult-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.String("user", "cli-user", "participant id")
	name := flag.String("name", "", "display name (defaults to the participant id)")
	role := flag.String("role", "user", "participant role (user or specialist)")
	room := flag.String("room", "", "room id to join")
	token := flag.String("token", "", "access token to present on register")
	flag.Parse()

	if *name == "" {
		*name = *user
	}
	if *room == "" {
		return fmt.Errorf("-room is required")
	}

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
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

	if err := send(proto.InboundTypeRegisterUser, proto.RegisterUserData{UserID: *user, Token: *token}); err != nil {
		return err
	}
	if err := send(proto.InboundTypeJoinRoom, proto.JoinRoomData{
		RoomID:    *room,
		UserID:    *user,
		FirstName: *name,
		UserType:  *role,
	}); err != nil {
		return err
	}

	fmt.Printf("Connected to %s as %s (%s) in room %s\n", *addr, *user, *role, *room)
	fmt.Println("Type messages and press Enter to send. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	unread := "specialist_unread"
	if *role == "specialist" {
		unread = "user_unread"
	}
	writeLoop(ctx, conn, *room, *user, *name, unread)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var outbound struct {
			Type  string          `json:"type"`
			Data  json.RawMessage `json:"data"`
			Error *proto.Error    `json:"error,omitempty"`
		}
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		switch outbound.Type {
		case proto.OutboundTypeReceiveMessage:
			var evt proto.MessageEvent
			if err := json.Unmarshal(outbound.Data, &evt); err != nil {
				log.Printf("unmarshal message: %v", err)
				continue
			}
			fmt.Printf("[%s] %s: %s\n", evt.Room, evt.Sender, evt.Message)
		case proto.OutboundTypeReceiveMessage2:
			// Direct copy of a message already shown by the broadcast path.
		case proto.OutboundTypePreviousMessages:
			var evt proto.PreviousMessagesEvent
			if err := json.Unmarshal(outbound.Data, &evt); err != nil {
				log.Printf("unmarshal history: %v", err)
				continue
			}
			for _, msg := range evt.Messages {
				fmt.Printf("[%s] %s: %s\n", evt.RoomID, msg.SenderID, msg.Message)
			}
		case proto.OutboundTypeJoinedRoom:
			var evt proto.JoinedRoomEvent
			if err := json.Unmarshal(outbound.Data, &evt); err == nil {
				fmt.Printf("[room %s] joined, status=%s\n", evt.RoomID, evt.Status)
			}
		case proto.OutboundTypeChatRoomClosed:
			var evt proto.RoomClosedEvent
			if err := json.Unmarshal(outbound.Data, &evt); err == nil {
				fmt.Printf("[room %s] consultation closed\n", evt.RoomID)
			}
		case proto.OutboundTypeRegisterResult:
			var evt proto.RegisterResultEvent
			if err := json.Unmarshal(outbound.Data, &evt); err == nil && !evt.Success {
				fmt.Printf("register failed: %s\n", evt.Code)
			}
		default:
			if outbound.Error != nil {
				fmt.Printf("error: %s (%s)\n", outbound.Error.Msg, outbound.Error.Code)
			}
		}
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn, room, user, name, unread string) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}

			payload, err := json.Marshal(proto.SendMessageData{
				Room:       room,
				Message:    text,
				SenderID:   user,
				SenderName: name,
				SetUnread:  unread,
			})
			if err != nil {
				log.Printf("marshal msg: %v", err)
				return
			}
			if err := wsjson.Write(ctx, conn, proto.Inbound{Type: proto.InboundTypeSendMessage, Data: payload}); err != nil {
				log.Printf("send error: %v", err)
				return
			}
		}
	}
}

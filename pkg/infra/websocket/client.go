package websocket

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	lobbyentities "github.com/matchcore/core/pkg/domain/lobby/entities"
	lobbyin "github.com/matchcore/core/pkg/domain/lobby/ports/in"
)

const maxMessageBytes = 4096

// inboundMessage is the shape of every message a client sends unprompted:
// a room (un)subscription, or a chat send/typing event. Fields not
// relevant to Type are simply left zero.
type inboundMessage struct {
	Type        string                    `json:"type"`
	LobbyID     *uuid.UUID                `json:"lobby_id,omitempty"`
	RequestID   *uuid.UUID                `json:"request_id,omitempty"`
	UserIDs     []uuid.UUID               `json:"user_ids,omitempty"`
	Content     string                    `json:"content,omitempty"`
	ContentType lobbyentities.ContentType `json:"content_type,omitempty"`
	IsTyping    bool                      `json:"is_typing,omitempty"`
}

// NewClient wraps an upgraded connection for userID, ready to be
// registered with the hub.
func NewClient(userID uuid.UUID, conn Connection) *Client {
	return &Client{
		ID:         uuid.New(),
		UserID:     userID,
		Conn:       conn,
		Send:       make(chan *WebSocketMessage, 64),
		lobbies:    make(map[uuid.UUID]struct{}),
		matches:    make(map[uuid.UUID]struct{}),
		watching:   make(map[uuid.UUID]struct{}),
		disconnect: make(chan struct{}),
	}
}

// WritePump drains Send to the socket until it is closed by the hub.
func (c *Client) WritePump() {
	defer c.Conn.Close()

	for msg := range c.Send {
		if err := c.Conn.WriteJSON(msg); err != nil {
			slog.Error("socket write error", "user_id", c.UserID, "error", err)
			return
		}
	}
	c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// ReadPump handles every inbound control message the socket protocol
// defines: lobby/match/user-status (un)subscription and chat send/typing.
// chat may be nil where a deployment doesn't wire lobby chat over the
// socket at all; chat:send is then silently ignored. It unregisters the
// client on any read error, including a normal close.
func (c *Client) ReadPump(hub *SocketHub, chat lobbyin.SendChatMessageUseCase) {
	defer hub.UnregisterClient(c)

	c.Conn.SetReadLimit(maxMessageBytes)

	for {
		var msg inboundMessage
		if err := c.Conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Error("socket read error", "user_id", c.UserID, "error", err)
			}
			return
		}

		c.handleInbound(hub, chat, msg)
	}
}

func (c *Client) handleInbound(hub *SocketHub, chat lobbyin.SendChatMessageUseCase, msg inboundMessage) {
	switch msg.Type {
	case "subscribe_lobby", "lobby:subscribe":
		if msg.LobbyID != nil {
			hub.JoinLobbyRoom(c.UserID, *msg.LobbyID)
		}
	case "unsubscribe_lobby", "lobby:unsubscribe":
		if msg.LobbyID != nil {
			hub.LeaveLobbyRoom(c.UserID, *msg.LobbyID)
		}
	case "matchmaking:subscribe":
		if msg.RequestID != nil {
			hub.SubscribeMatch(c, *msg.RequestID)
		}
	case "matchmaking:unsubscribe":
		if msg.RequestID != nil {
			hub.UnsubscribeMatch(c, *msg.RequestID)
		}
	case "user:status:subscribe":
		if len(msg.UserIDs) > 0 {
			hub.SubscribeUserStatus(c, msg.UserIDs)
		}
	case "user:status:unsubscribe":
		if len(msg.UserIDs) > 0 {
			hub.UnsubscribeUserStatus(c, msg.UserIDs)
		}
	case "chat:send":
		if msg.LobbyID == nil || chat == nil {
			return
		}
		if msg.ContentType == "" {
			msg.ContentType = lobbyentities.ContentText
		}
		_, err := chat.Exec(context.Background(), lobbyin.SendChatMessageCommand{
			LobbyID:     *msg.LobbyID,
			SenderID:    c.UserID,
			Content:     msg.Content,
			ContentType: msg.ContentType,
		})
		if err != nil {
			slog.Warn("chat:send rejected", "user_id", c.UserID, "lobby_id", *msg.LobbyID, "error", err)
		}
	case "chat:typing":
		if msg.LobbyID != nil {
			hub.BroadcastTyping(context.Background(), *msg.LobbyID, c.UserID, msg.IsTyping)
		}
	default:
		slog.Debug("ignoring unrecognized socket message", "user_id", c.UserID, "type", msg.Type)
	}
}

package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	lobbyentities "github.com/matchcore/core/pkg/domain/lobby/entities"
	lobbyout "github.com/matchcore/core/pkg/domain/lobby/ports/out"
	mmout "github.com/matchcore/core/pkg/domain/matchmaking/ports/out"
	userout "github.com/matchcore/core/pkg/domain/user/ports/out"
	"github.com/matchcore/core/pkg/infra/metrics"
)

// Event types carried on WebSocketMessage.Type. Named after the room they
// fan out to: matchmaking:* goes to a match:{requestId} room, lobby:* goes
// to every connection subscribed to a lobby, user:status* goes to
// status:{userId} subscribers.
const (
	EventConnected               = "connected"
	EventMatchmakingStatus       = "matchmaking:status"
	EventMatchmakingSubscribed   = "matchmaking:subscribed"
	EventMatchmakingUnsubscribed = "matchmaking:unsubscribed"
	EventUserStatus              = "user:status"
	EventUserStatusUpdate        = "user:status:update"
	EventLobbyCreated            = "lobby:created"
	EventLobbyUpdate             = "lobby:update"
	EventMemberJoined            = "lobby:member:joined"
	EventMemberLeft              = "lobby:member:left"
	EventMemberReady             = "lobby:member:ready"
	EventLobbyClosed             = "lobby:closed"
	EventChatMessage             = "lobby:chat:message"
	EventTyping                  = "lobby:chat:typing"
)

// WebSocketMessage is the wire protocol envelope for every fan-out event.
type WebSocketMessage struct {
	Type      string          `json:"type"`
	LobbyID   *uuid.UUID      `json:"lobby_id,omitempty"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
}

// Client is one authenticated, upgraded WebSocket connection. UserID
// identifies who it belongs to; ID identifies the socket itself, since a
// single user may hold several concurrent sockets (multiple tabs/devices)
// and must stay online until the last one drops.
type Client struct {
	ID     uuid.UUID
	UserID uuid.UUID
	Conn   Connection
	Send   chan *WebSocketMessage

	lobbies  map[uuid.UUID]struct{}
	matches  map[uuid.UUID]struct{}
	watching map[uuid.UUID]struct{} // status:{userId} rooms this socket subscribed to

	disconnect chan struct{}
}

// Connection is the subset of *gorilla/websocket.Conn the hub depends on,
// so unit tests can substitute a fake without opening a real socket.
type Connection interface {
	WriteJSON(v interface{}) error
	ReadJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
	Close() error
	SetReadLimit(limit int64)
}

// SocketHub is the process-wide connection registry: per-user socket sets
// (userSockets), per-lobby/match/status rooms, a buffered broadcast
// channel, and best-effort fan-out (a full client send buffer drops the
// message rather than blocking the hub's event loop). It implements both
// lobby.ports.out.LobbyBroadcaster and matchmaking.ports.out.
// MatchmakingBroadcaster so domain code never imports this package.
type SocketHub struct {
	mu sync.RWMutex

	userSockets map[uuid.UUID]map[uuid.UUID]*Client // userId -> socketId -> client
	bySocket    map[uuid.UUID]*Client                // socketId -> client
	lobbyRooms  map[uuid.UUID]map[uuid.UUID]*Client  // lobbyId -> socketId -> client
	matchRooms  map[uuid.UUID]map[uuid.UUID]*Client  // requestId -> socketId -> client
	statusRooms map[uuid.UUID]map[uuid.UUID]*Client  // watched userId -> socketId -> client

	users userout.UserReader

	register   chan *Client
	unregister chan *Client
	broadcast  chan targetedMessage
}

// targetedMessage is the hub's internal broadcast envelope. userIDs fans
// out to every socket of those users; room is a pre-snapshotted set of
// clients (lobby/match/status) so deliver never has to touch the
// registries under lock.
type targetedMessage struct {
	userIDs []uuid.UUID
	room    map[uuid.UUID]*Client
	msg     *WebSocketMessage
}

// NewSocketHub builds a hub. users is used for the fire-and-forget
// lastActive touch on connect; pass nil where that capability isn't
// wired (e.g. tests).
func NewSocketHub(users userout.UserReader) *SocketHub {
	return &SocketHub{
		userSockets: make(map[uuid.UUID]map[uuid.UUID]*Client),
		bySocket:    make(map[uuid.UUID]*Client),
		lobbyRooms:  make(map[uuid.UUID]map[uuid.UUID]*Client),
		matchRooms:  make(map[uuid.UUID]map[uuid.UUID]*Client),
		statusRooms: make(map[uuid.UUID]map[uuid.UUID]*Client),
		users:       users,
		register:    make(chan *Client, 256),
		unregister:  make(chan *Client, 256),
		broadcast:   make(chan targetedMessage, 1024),
	}
}

func (h *SocketHub) RegisterClient(c *Client) { h.register <- c }

func (h *SocketHub) UnregisterClient(c *Client) { h.unregister <- c }

// Run owns the hub's single-goroutine event loop; all mutation of the
// registries happens here to avoid lock contention on the hot broadcast
// path.
func (h *SocketHub) Run(ctx context.Context) {
	slog.InfoContext(ctx, "socket hub started")
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case c := <-h.register:
			h.registerClient(c)
		case c := <-h.unregister:
			h.unregisterClient(c)
		case tm := <-h.broadcast:
			h.deliver(tm)
		}
	}
}

func (h *SocketHub) registerClient(c *Client) {
	h.mu.Lock()
	wasOnline := len(h.userSockets[c.UserID]) > 0
	if h.userSockets[c.UserID] == nil {
		h.userSockets[c.UserID] = make(map[uuid.UUID]*Client)
	}
	h.userSockets[c.UserID][c.ID] = c
	h.bySocket[c.ID] = c
	h.mu.Unlock()

	metrics.SocketConnections.Inc()
	slog.Info("socket client connected", "user_id", c.UserID, "socket_id", c.ID)

	if h.users != nil {
		go h.users.TouchLastActive(context.Background(), c.UserID, time.Now().UTC())
	}

	h.sendDirect(c, EventConnected, struct {
		SocketID uuid.UUID `json:"socket_id"`
		UserID   uuid.UUID `json:"user_id"`
	}{SocketID: c.ID, UserID: c.UserID})

	if !wasOnline {
		h.emitUserStatus(c.UserID, "online")
	}
}

func (h *SocketHub) unregisterClient(c *Client) {
	h.mu.Lock()

	if _, ok := h.bySocket[c.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.bySocket, c.ID)

	sockets := h.userSockets[c.UserID]
	delete(sockets, c.ID)
	lastSocket := len(sockets) == 0
	if lastSocket {
		delete(h.userSockets, c.UserID)
	}

	for lobbyID := range c.lobbies {
		delete(h.lobbyRooms[lobbyID], c.ID)
		if len(h.lobbyRooms[lobbyID]) == 0 {
			delete(h.lobbyRooms, lobbyID)
		}
	}
	for requestID := range c.matches {
		delete(h.matchRooms[requestID], c.ID)
		if len(h.matchRooms[requestID]) == 0 {
			delete(h.matchRooms, requestID)
		}
	}
	for watchedID := range c.watching {
		delete(h.statusRooms[watchedID], c.ID)
		if len(h.statusRooms[watchedID]) == 0 {
			delete(h.statusRooms, watchedID)
		}
	}
	h.mu.Unlock()

	close(c.Send)
	metrics.SocketConnections.Dec()
	slog.Info("socket client disconnected", "user_id", c.UserID, "socket_id", c.ID)

	if lastSocket {
		h.emitUserStatus(c.UserID, "offline")
	}
}

// JoinLobbyRoom subscribes every current socket of userID to a lobby room;
// called both from a client's lobby:subscribe control message and once a
// join/createLobby use case succeeds server-side.
func (h *SocketHub) JoinLobbyRoom(userID, lobbyID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range h.userSockets[userID] {
		if h.lobbyRooms[lobbyID] == nil {
			h.lobbyRooms[lobbyID] = make(map[uuid.UUID]*Client)
		}
		h.lobbyRooms[lobbyID][c.ID] = c
		c.lobbies[lobbyID] = struct{}{}
	}
}

func (h *SocketHub) LeaveLobbyRoom(userID, lobbyID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range h.userSockets[userID] {
		delete(c.lobbies, lobbyID)
		delete(h.lobbyRooms[lobbyID], c.ID)
	}
	if len(h.lobbyRooms[lobbyID]) == 0 {
		delete(h.lobbyRooms, lobbyID)
	}
}

// SubscribeMatch joins c to match:{requestId}, confirmed with
// matchmaking:subscribed.
func (h *SocketHub) SubscribeMatch(c *Client, requestID uuid.UUID) {
	h.mu.Lock()
	if h.matchRooms[requestID] == nil {
		h.matchRooms[requestID] = make(map[uuid.UUID]*Client)
	}
	h.matchRooms[requestID][c.ID] = c
	c.matches[requestID] = struct{}{}
	h.mu.Unlock()

	h.sendDirect(c, EventMatchmakingSubscribed, struct {
		RequestID uuid.UUID `json:"request_id"`
	}{RequestID: requestID})
}

// UnsubscribeMatch leaves match:{requestId}; best-effort, no failure reply.
func (h *SocketHub) UnsubscribeMatch(c *Client, requestID uuid.UUID) {
	h.mu.Lock()
	delete(c.matches, requestID)
	delete(h.matchRooms[requestID], c.ID)
	if len(h.matchRooms[requestID]) == 0 {
		delete(h.matchRooms, requestID)
	}
	h.mu.Unlock()

	h.sendDirect(c, EventMatchmakingUnsubscribed, struct {
		RequestID uuid.UUID `json:"request_id"`
	}{RequestID: requestID})
}

// SubscribeUserStatus joins c to status:{id} for every id in userIDs and
// immediately replies with the current online/offline snapshot.
func (h *SocketHub) SubscribeUserStatus(c *Client, userIDs []uuid.UUID) {
	statuses := make(map[uuid.UUID]string, len(userIDs))

	h.mu.Lock()
	for _, id := range userIDs {
		if h.statusRooms[id] == nil {
			h.statusRooms[id] = make(map[uuid.UUID]*Client)
		}
		h.statusRooms[id][c.ID] = c
		c.watching[id] = struct{}{}
		statuses[id] = onlineStatus(len(h.userSockets[id]) > 0)
	}
	h.mu.Unlock()

	h.sendDirect(c, EventUserStatusUpdate, struct {
		Statuses map[uuid.UUID]string `json:"statuses"`
	}{Statuses: statuses})
}

// UnsubscribeUserStatus leaves status:{id} for every id in userIDs;
// best-effort, no failure reply.
func (h *SocketHub) UnsubscribeUserStatus(c *Client, userIDs []uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, id := range userIDs {
		delete(c.watching, id)
		delete(h.statusRooms[id], c.ID)
		if len(h.statusRooms[id]) == 0 {
			delete(h.statusRooms, id)
		}
	}
}

func onlineStatus(online bool) string {
	if online {
		return "online"
	}
	return "offline"
}

func (h *SocketHub) emitUserStatus(userID uuid.UUID, status string) {
	h.mu.RLock()
	room := snapshotRoom(h.statusRooms[userID])
	h.mu.RUnlock()

	if len(room) == 0 {
		return
	}
	h.emit(room, EventUserStatus, struct {
		UserID    uuid.UUID `json:"user_id"`
		Status    string    `json:"status"`
		Timestamp int64     `json:"timestamp"`
	}{UserID: userID, Status: status, Timestamp: time.Now().Unix()})
}

func snapshotRoom(room map[uuid.UUID]*Client) map[uuid.UUID]*Client {
	snap := make(map[uuid.UUID]*Client, len(room))
	for k, v := range room {
		snap[k] = v
	}
	return snap
}

func (h *SocketHub) deliver(tm targetedMessage) {
	send := func(c *Client) {
		select {
		case c.Send <- tm.msg:
			metrics.SocketMessagesSentTotal.WithLabelValues(tm.msg.Type).Inc()
		default:
			metrics.SocketMessagesDroppedTotal.WithLabelValues(tm.msg.Type).Inc()
			slog.Warn("socket client send buffer full, dropping message", "user_id", c.UserID, "socket_id", c.ID, "type", tm.msg.Type)
		}
	}

	if len(tm.userIDs) > 0 {
		h.mu.RLock()
		clients := make([]*Client, 0, len(tm.userIDs))
		for _, uid := range tm.userIDs {
			for _, c := range h.userSockets[uid] {
				clients = append(clients, c)
			}
		}
		h.mu.RUnlock()
		for _, c := range clients {
			send(c)
		}
		return
	}
	for _, c := range tm.room {
		send(c)
	}
}

func (h *SocketHub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.bySocket {
		close(c.Send)
	}
	slog.Info("socket hub shut down")
}

// sendDirect delivers to exactly one socket, bypassing the room
// registries — used for handshake/subscription acks that must never fan
// out to a user's other connections.
func (h *SocketHub) sendDirect(c *Client, eventType string, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		slog.Error("failed to marshal socket payload", "type", eventType, "error", err)
		return
	}
	msg := &WebSocketMessage{Type: eventType, Payload: raw, Timestamp: time.Now().Unix()}
	select {
	case c.Send <- msg:
		metrics.SocketMessagesSentTotal.WithLabelValues(eventType).Inc()
	default:
		metrics.SocketMessagesDroppedTotal.WithLabelValues(eventType).Inc()
	}
}

func (h *SocketHub) emit(room map[uuid.UUID]*Client, eventType string, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		slog.Error("failed to marshal socket payload", "type", eventType, "error", err)
		return
	}
	h.broadcast <- targetedMessage{
		room: room,
		msg:  &WebSocketMessage{Type: eventType, Payload: raw, Timestamp: time.Now().Unix()},
	}
}

func (h *SocketHub) emitToUser(userID uuid.UUID, eventType string, payload interface{}) {
	h.emitToUsers([]uuid.UUID{userID}, eventType, payload)
}

func (h *SocketHub) emitToUsers(userIDs []uuid.UUID, eventType string, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		slog.Error("failed to marshal socket payload", "type", eventType, "error", err)
		return
	}
	h.broadcast <- targetedMessage{
		userIDs: userIDs,
		msg:     &WebSocketMessage{Type: eventType, Payload: raw, Timestamp: time.Now().Unix()},
	}
}

func (h *SocketHub) emitToLobby(lobbyID uuid.UUID, eventType string, payload interface{}) {
	h.mu.RLock()
	room := snapshotRoom(h.lobbyRooms[lobbyID])
	h.mu.RUnlock()

	raw, err := json.Marshal(payload)
	if err != nil {
		slog.Error("failed to marshal socket payload", "type", eventType, "error", err)
		return
	}
	h.broadcast <- targetedMessage{
		room: room,
		msg:  &WebSocketMessage{Type: eventType, LobbyID: &lobbyID, Payload: raw, Timestamp: time.Now().Unix()},
	}
}

func (h *SocketHub) emitToMatch(requestID uuid.UUID, eventType string, payload interface{}) {
	h.mu.RLock()
	room := snapshotRoom(h.matchRooms[requestID])
	h.mu.RUnlock()

	h.emit(room, eventType, payload)
}

// --- matchmaking.ports.out.MatchmakingBroadcaster ---

var (
	_ mmout.MatchmakingBroadcaster = (*SocketHub)(nil)
	_ lobbyout.LobbyBroadcaster    = (*SocketHub)(nil)
)

func (h *SocketHub) BroadcastRequestStatus(ctx context.Context, userID uuid.UUID, payload mmout.RequestStatusPayload) {
	h.emitToMatch(payload.RequestID, EventMatchmakingStatus, payload)
}

func (h *SocketHub) BroadcastLobbyCreated(ctx context.Context, userID uuid.UUID, lobbyID uuid.UUID) {
	h.JoinLobbyRoom(userID, lobbyID)
	h.emitToUser(userID, EventLobbyCreated, struct {
		LobbyID uuid.UUID `json:"lobby_id"`
	}{LobbyID: lobbyID})
}

// --- lobby.ports.out.LobbyBroadcaster ---

func (h *SocketHub) BroadcastLobbyUpdate(ctx context.Context, lobby *lobbyentities.Lobby) {
	h.emitToLobby(lobby.ID, EventLobbyUpdate, lobby)
}

func (h *SocketHub) BroadcastMemberJoined(ctx context.Context, lobbyID, userID uuid.UUID) {
	h.emitToLobby(lobbyID, EventMemberJoined, struct {
		UserID uuid.UUID `json:"user_id"`
	}{UserID: userID})
}

func (h *SocketHub) BroadcastMemberLeft(ctx context.Context, lobbyID, userID uuid.UUID) {
	h.emitToLobby(lobbyID, EventMemberLeft, struct {
		UserID uuid.UUID `json:"user_id"`
	}{UserID: userID})
	h.LeaveLobbyRoom(userID, lobbyID)
}

func (h *SocketHub) BroadcastMemberReady(ctx context.Context, lobbyID, userID uuid.UUID, ready bool) {
	h.emitToLobby(lobbyID, EventMemberReady, struct {
		UserID uuid.UUID `json:"user_id"`
		Ready  bool      `json:"ready"`
	}{UserID: userID, Ready: ready})
}

func (h *SocketHub) BroadcastClosed(ctx context.Context, lobbyID uuid.UUID, reason string) {
	h.emitToLobby(lobbyID, EventLobbyClosed, struct {
		Reason string `json:"reason"`
	}{Reason: reason})
}

func (h *SocketHub) BroadcastChatMessage(ctx context.Context, lobbyID uuid.UUID, msg lobbyentities.Message) {
	h.emitToLobby(lobbyID, EventChatMessage, msg)
}

func (h *SocketHub) BroadcastTyping(ctx context.Context, lobbyID, userID uuid.UUID, isTyping bool) {
	h.emitToLobby(lobbyID, EventTyping, struct {
		UserID   uuid.UUID `json:"user_id"`
		IsTyping bool      `json:"is_typing"`
	}{UserID: userID, IsTyping: isTyping})
}

// ConnectedClients reports the total authenticated sockets, used by the
// Prometheus gauge.
func (h *SocketHub) ConnectedClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.bySocket)
}

func (h *SocketHub) LobbyClients(lobbyID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.lobbyRooms[lobbyID])
}

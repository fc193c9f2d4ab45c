package websocket_controllers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/golobby/container/v3"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	lobbyin "github.com/matchcore/core/pkg/domain/lobby/ports/in"
	socket "github.com/matchcore/core/pkg/infra/websocket"
)

// LobbyWebSocketHandler upgrades an authenticated HTTP connection into a
// socket registered with the hub, pre-subscribed to the lobby room named
// in the path. AuthenticateHandshake is what actually gates the upgrade;
// lobby membership itself is enforced by the REST join endpoint before a
// client ever has a reason to subscribe.
type LobbyWebSocketHandler struct {
	container container.Container
	hub       *socket.SocketHub
	authCfg   socket.AuthConfig
	upgrader  websocket.Upgrader
	sendChat  lobbyin.SendChatMessageUseCase
}

func NewLobbyWebSocketHandler(container container.Container, hub *socket.SocketHub, authCfg socket.AuthConfig) *LobbyWebSocketHandler {
	h := &LobbyWebSocketHandler{
		container: container,
		hub:       hub,
		authCfg:   authCfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	if err := container.Resolve(&h.sendChat); err != nil {
		slog.Error("failed to resolve SendChatMessageUseCase for websocket handler", "err", err)
	}
	return h
}

// UpgradeConnection handles GET /ws/lobby/{lobby_id}.
func (h *LobbyWebSocketHandler) UpgradeConnection(ctx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lobbyIDStr := mux.Vars(r)["lobby_id"]

		userID, err := socket.AuthenticateHandshake(r, h.authCfg)
		if err != nil {
			slog.WarnContext(ctx, "websocket handshake rejected", "error", err)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := h.upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.ErrorContext(ctx, "failed to upgrade websocket connection", "error", err)
			return
		}

		client := socket.NewClient(userID, conn)
		h.hub.RegisterClient(client)

		if lobbyID, err := uuid.Parse(lobbyIDStr); err == nil {
			h.hub.JoinLobbyRoom(userID, lobbyID)
		}

		go client.WritePump()
		go client.ReadPump(h.hub, h.sendChat)

		slog.InfoContext(ctx, "websocket client connected", "user_id", userID, "lobby_id", lobbyIDStr)
	}
}

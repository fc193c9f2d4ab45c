package out

import (
	"context"

	"github.com/google/uuid"

	"github.com/matchcore/core/pkg/domain/lobby/entities"
)

// LobbyBroadcaster is the fan-out capability LobbyEngine needs; the
// WebSocket SocketHub implements it so the domain layer never imports the
// transport package directly.
type LobbyBroadcaster interface {
	BroadcastLobbyUpdate(ctx context.Context, lobby *entities.Lobby)
	BroadcastMemberJoined(ctx context.Context, lobbyID, userID uuid.UUID)
	BroadcastMemberLeft(ctx context.Context, lobbyID, userID uuid.UUID)
	BroadcastMemberReady(ctx context.Context, lobbyID, userID uuid.UUID, ready bool)
	BroadcastClosed(ctx context.Context, lobbyID uuid.UUID, reason string)
	BroadcastChatMessage(ctx context.Context, lobbyID uuid.UUID, msg entities.Message)
	BroadcastTyping(ctx context.Context, lobbyID, userID uuid.UUID, isTyping bool)
}

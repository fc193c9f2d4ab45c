package in

import (
	"context"

	"github.com/google/uuid"

	"github.com/matchcore/core/pkg/domain/lobby/entities"
)

type JoinLobbyCommand struct {
	LobbyID uuid.UUID
	UserID  uuid.UUID
}

type JoinLobbyUseCase interface {
	Exec(ctx context.Context, cmd JoinLobbyCommand) (*entities.Lobby, error)
}

type LeaveLobbyCommand struct {
	LobbyID uuid.UUID
	UserID  uuid.UUID
}

type LeaveLobbyUseCase interface {
	Exec(ctx context.Context, cmd LeaveLobbyCommand) (*entities.Lobby, error)
}

package usecases

import (
	"context"

	"github.com/matchcore/core/pkg/domain/lobby/entities"
	in "github.com/matchcore/core/pkg/domain/lobby/ports/in"
	"github.com/matchcore/core/pkg/domain/lobby/services"
)

type joinLobby struct {
	engine *services.LobbyEngine
}

func NewJoinLobbyUseCase(engine *services.LobbyEngine) in.JoinLobbyUseCase {
	return &joinLobby{engine: engine}
}

func (u *joinLobby) Exec(ctx context.Context, cmd in.JoinLobbyCommand) (*entities.Lobby, error) {
	return u.engine.JoinLobby(ctx, cmd.LobbyID, cmd.UserID)
}

type leaveLobby struct {
	engine *services.LobbyEngine
}

func NewLeaveLobbyUseCase(engine *services.LobbyEngine) in.LeaveLobbyUseCase {
	return &leaveLobby{engine: engine}
}

func (u *leaveLobby) Exec(ctx context.Context, cmd in.LeaveLobbyCommand) (*entities.Lobby, error) {
	return u.engine.LeaveLobby(ctx, cmd.LobbyID, cmd.UserID)
}

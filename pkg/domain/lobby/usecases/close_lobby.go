package usecases

import (
	"context"

	"github.com/matchcore/core/pkg/domain/lobby/entities"
	in "github.com/matchcore/core/pkg/domain/lobby/ports/in"
	"github.com/matchcore/core/pkg/domain/lobby/services"
)

type closeLobby struct {
	engine *services.LobbyEngine
}

func NewCloseLobbyUseCase(engine *services.LobbyEngine) in.CloseLobbyUseCase {
	return &closeLobby{engine: engine}
}

func (u *closeLobby) Exec(ctx context.Context, cmd in.CloseLobbyCommand) (*entities.Lobby, error) {
	return u.engine.CloseLobby(ctx, cmd.LobbyID, cmd.Reason)
}

type getLobby struct {
	engine *services.LobbyEngine
}

func NewGetLobbyUseCase(engine *services.LobbyEngine) in.GetLobbyUseCase {
	return &getLobby{engine: engine}
}

func (u *getLobby) Exec(ctx context.Context, q in.GetLobbyQuery) (*entities.Lobby, error) {
	return u.engine.GetLobbyByID(ctx, q.LobbyID, q.ViewerID)
}

type getUserLobbies struct {
	engine *services.LobbyEngine
}

func NewGetUserLobbiesUseCase(engine *services.LobbyEngine) in.GetUserLobbiesUseCase {
	return &getUserLobbies{engine: engine}
}

func (u *getUserLobbies) Exec(ctx context.Context, q in.GetUserLobbiesQuery) ([]*entities.Lobby, error) {
	return u.engine.GetUserLobbies(ctx, q.UserID, q.IncludeHistory, q.Limit)
}

package usecases

import (
	"context"

	"github.com/matchcore/core/pkg/domain/lobby/entities"
	in "github.com/matchcore/core/pkg/domain/lobby/ports/in"
	"github.com/matchcore/core/pkg/domain/lobby/services"
)

type setMemberReady struct {
	engine *services.LobbyEngine
}

func NewSetMemberReadyUseCase(engine *services.LobbyEngine) in.SetMemberReadyUseCase {
	return &setMemberReady{engine: engine}
}

func (u *setMemberReady) Exec(ctx context.Context, cmd in.SetMemberReadyCommand) (*entities.Lobby, error) {
	return u.engine.SetMemberReady(ctx, cmd.LobbyID, cmd.UserID, cmd.Ready)
}

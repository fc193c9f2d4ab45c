package in

import (
	"context"

	"github.com/google/uuid"

	"github.com/matchcore/core/pkg/domain/lobby/entities"
)

type SetMemberReadyCommand struct {
	LobbyID uuid.UUID
	UserID  uuid.UUID
	Ready   bool
}

type SetMemberReadyUseCase interface {
	Exec(ctx context.Context, cmd SetMemberReadyCommand) (*entities.Lobby, error)
}

package in

import (
	"context"

	"github.com/google/uuid"

	"github.com/matchcore/core/pkg/domain/lobby/entities"
)

type CloseLobbyCommand struct {
	LobbyID uuid.UUID
	Reason  string
}

type CloseLobbyUseCase interface {
	Exec(ctx context.Context, cmd CloseLobbyCommand) (*entities.Lobby, error)
}

type GetLobbyQuery struct {
	LobbyID  uuid.UUID
	ViewerID uuid.UUID
}

type GetLobbyUseCase interface {
	Exec(ctx context.Context, q GetLobbyQuery) (*entities.Lobby, error)
}

type GetUserLobbiesQuery struct {
	UserID         uuid.UUID
	IncludeHistory bool
	Limit          int
}

type GetUserLobbiesUseCase interface {
	Exec(ctx context.Context, q GetUserLobbiesQuery) ([]*entities.Lobby, error)
}

package out

import (
	"context"

	"github.com/google/uuid"

	"github.com/matchcore/core/pkg/domain/lobby/entities"
)

// LobbyStore persists Lobby. Save upserts the full document; LobbyEngine
// always reads-modifies-writes the whole aggregate rather than issuing
// partial field updates, so every mutation goes through Save.
type LobbyStore interface {
	Save(ctx context.Context, lobby *entities.Lobby) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Lobby, error)
	// GetActiveForUser finds the lobby, if any, where userID is an active
	// (joined|ready) member and status != closed — used to enforce "a user
	// appears in at most one non-closed lobby".
	GetActiveForUser(ctx context.Context, userID uuid.UUID) (*entities.Lobby, error)
	ListForUser(ctx context.Context, userID uuid.UUID, includeHistory bool, limit int) ([]*entities.Lobby, error)
}

type ChatStore interface {
	Save(ctx context.Context, chat *entities.Chat) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Chat, error)
	GetByLobbyID(ctx context.Context, lobbyID uuid.UUID) (*entities.Chat, error)
}

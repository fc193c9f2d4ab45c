package out

import (
	"context"

	"github.com/google/uuid"

	"github.com/matchcore/core/pkg/domain/matchmaking/entities"
)

type HistoryFilters struct {
	UserID *uuid.UUID
	GameID *uuid.UUID
	Status *entities.HistoryStatus
	Page   int
	Limit  int
}

// HistoryStore persists MatchHistory. Save must be safe to call
// concurrently for the same id (finalizeMatch's idempotent re-read relies
// on this), and GetByID must return the latest committed state.
type HistoryStore interface {
	Save(ctx context.Context, h *entities.MatchHistory) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.MatchHistory, error)
	ListForUser(ctx context.Context, userID uuid.UUID, filters HistoryFilters) ([]*entities.MatchHistory, error)
}

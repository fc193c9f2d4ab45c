package in

import (
	"context"

	"github.com/google/uuid"

	"github.com/matchcore/core/pkg/domain/matchmaking/entities"
	out "github.com/matchcore/core/pkg/domain/matchmaking/ports/out"
)

// QueueInfo accompanies the caller's live MatchRequest with an
// estimated-wait projection, per spec's wait-time estimator.
type QueueInfo struct {
	EstimatedWaitSeconds int    `json:"estimated_wait_seconds"`
	Confidence           string `json:"confidence"` // "low" | "medium"
	PotentialMatches     int    `json:"potential_matches"`
}

type CurrentMatchRequestResult struct {
	Request *entities.MatchRequest `json:"request"`
	Queue   QueueInfo              `json:"queue_info"`
}

type GetCurrentMatchRequestUseCase interface {
	Exec(ctx context.Context, userID uuid.UUID) (*CurrentMatchRequestResult, error)
}

type GetMatchHistoryQuery struct {
	UserID uuid.UUID
	Filter out.HistoryFilters
}

type GetMatchHistoryUseCase interface {
	Exec(ctx context.Context, q GetMatchHistoryQuery) ([]*entities.MatchHistory, error)
}

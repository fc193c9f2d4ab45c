package in

import (
	"context"

	"github.com/google/uuid"

	"github.com/matchcore/core/pkg/domain/matchmaking/entities"
)

// SubmitMatchRequestCommand is the input to SubmitMatchRequestUseCase.
type SubmitMatchRequestCommand struct {
	UserID   uuid.UUID
	Criteria entities.Criteria
}

func (c SubmitMatchRequestCommand) Validate() error {
	return c.Criteria.Validate()
}

type SubmitMatchRequestUseCase interface {
	Exec(ctx context.Context, cmd SubmitMatchRequestCommand) (*entities.MatchRequest, error)
}

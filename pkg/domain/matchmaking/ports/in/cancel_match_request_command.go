package in

import (
	"context"

	"github.com/google/uuid"

	common "github.com/matchcore/core/pkg/domain"
	"github.com/matchcore/core/pkg/domain/matchmaking/entities"
)

type CancelMatchRequestCommand struct {
	UserID    uuid.UUID
	RequestID uuid.UUID
}

func (c CancelMatchRequestCommand) Validate() error {
	if c.UserID == uuid.Nil || c.RequestID == uuid.Nil {
		return common.NewErrBadRequest("userId and requestId are required")
	}
	return nil
}

type CancelMatchRequestUseCase interface {
	Exec(ctx context.Context, cmd CancelMatchRequestCommand) (*entities.MatchRequest, error)
}

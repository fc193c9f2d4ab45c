package in

import (
	"context"

	"github.com/google/uuid"

	"github.com/matchcore/core/pkg/domain/lobby/entities"
)

type SendChatMessageCommand struct {
	LobbyID     uuid.UUID
	SenderID    uuid.UUID
	Content     string
	ContentType entities.ContentType
}

type SendChatMessageUseCase interface {
	Exec(ctx context.Context, cmd SendChatMessageCommand) (entities.Message, error)
}

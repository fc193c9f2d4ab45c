package usecases

import (
	"context"

	"github.com/matchcore/core/pkg/domain/lobby/entities"
	in "github.com/matchcore/core/pkg/domain/lobby/ports/in"
	"github.com/matchcore/core/pkg/domain/lobby/services"
)

type sendChatMessage struct {
	engine *services.LobbyEngine
}

func NewSendChatMessageUseCase(engine *services.LobbyEngine) in.SendChatMessageUseCase {
	return &sendChatMessage{engine: engine}
}

func (u *sendChatMessage) Exec(ctx context.Context, cmd in.SendChatMessageCommand) (entities.Message, error) {
	return u.engine.SendChatMessage(ctx, cmd.LobbyID, cmd.SenderID, cmd.Content, cmd.ContentType)
}

package entities

import (
	"time"

	"github.com/google/uuid"

	common "github.com/matchcore/core/pkg/domain"
)

type ChatType string

const (
	ChatTypeLobby  ChatType = "lobby"
	ChatTypeDirect ChatType = "direct"
	ChatTypeGroup  ChatType = "group"
)

type ContentType string

const (
	ContentText   ContentType = "text"
	ContentEmoji  ContentType = "emoji"
	ContentSystem ContentType = "system"
	ContentAuto   ContentType = "auto"
)

// MaxMessageLength bounds Message.Content.
const MaxMessageLength = 1000

type Message struct {
	ID          uuid.UUID   `json:"id" bson:"id"`
	SenderID    *uuid.UUID  `json:"sender_id" bson:"sender_id"` // nil for system messages
	Content     string      `json:"content" bson:"content"`
	ContentType ContentType `json:"content_type" bson:"content_type"`
	CreatedAt   time.Time   `json:"created_at" bson:"created_at"`
	EditedAt    *time.Time  `json:"edited_at,omitempty" bson:"edited_at,omitempty"`
	DeletedAt   *time.Time  `json:"deleted_at,omitempty" bson:"deleted_at,omitempty"`
}

// Chat is a bounded message log attached to a lobby, owned by it when
// ChatType is lobby and destroyed alongside it.
type Chat struct {
	common.BaseEntity `bson:",inline"`

	ChatType      ChatType    `json:"chat_type" bson:"chat_type"`
	Participants  []uuid.UUID `json:"participants" bson:"participants"`
	LobbyID       *uuid.UUID  `json:"lobby_id,omitempty" bson:"lobby_id,omitempty"`
	Messages      []Message   `json:"messages" bson:"messages"`
	LastMessageAt *time.Time  `json:"last_message_at,omitempty" bson:"last_message_at,omitempty"`
}

func NewLobbyChat(owner common.ResourceOwner, lobbyID uuid.UUID, participants []uuid.UUID) *Chat {
	return &Chat{
		BaseEntity:   common.NewEntity(owner),
		ChatType:     ChatTypeLobby,
		Participants: append([]uuid.UUID{}, participants...),
		LobbyID:      &lobbyID,
	}
}

func (c *Chat) HasParticipant(userID uuid.UUID) bool {
	for _, id := range c.Participants {
		if id == userID {
			return true
		}
	}
	return false
}

// AddParticipant is a monotone append: once a user has joined a lobby chat
// they remain a participant for the chat's lifetime, even after leaving the
// lobby, per the chat-participants-are-a-superset invariant.
func (c *Chat) AddParticipant(userID uuid.UUID) {
	if c.HasParticipant(userID) {
		return
	}
	c.Participants = append(c.Participants, userID)
	c.touch()
}

func (c *Chat) AppendMessage(senderID *uuid.UUID, content string, contentType ContentType) Message {
	now := time.Now().UTC()
	msg := Message{
		ID:          uuid.New(),
		SenderID:    senderID,
		Content:     content,
		ContentType: contentType,
		CreatedAt:   now,
	}
	c.Messages = append(c.Messages, msg)
	c.LastMessageAt = &now
	c.touch()
	return msg
}

func (c *Chat) AppendSystemMessage(text string) Message {
	return c.AppendMessage(nil, text, ContentSystem)
}

func (c *Chat) touch() {
	c.UpdatedAt = time.Now().UTC()
}

func ValidateMessageContent(content string) error {
	if content == "" {
		return common.NewErrBadRequest("message content must not be empty")
	}
	if len(content) > MaxMessageLength {
		return common.NewErrBadRequest("message content exceeds max length")
	}
	return nil
}

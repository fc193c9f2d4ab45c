package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	common "github.com/matchcore/core/pkg/domain"
	"github.com/matchcore/core/pkg/domain/lobby/entities"
	out "github.com/matchcore/core/pkg/domain/lobby/ports/out"
)

// ChatStore is the MongoDB adapter for lobby.ports.out.ChatStore. Like
// LobbyStore, Save always replaces the full document — a chat's message log
// is small and bounded, so there is no need for per-message updates.
type ChatStore struct {
	collection *mongo.Collection
}

func NewChatStore(db *mongo.Database) *ChatStore {
	s := &ChatStore{collection: db.Collection("chats")}
	if err := s.ensureIndexes(context.Background()); err != nil {
		fmt.Printf("WARNING: failed to create chats indexes (non-fatal): %v\n", err)
	}
	return s
}

func (s *ChatStore) ensureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "lobby_id", Value: 1}},
		Options: options.Index().SetName("idx_lobby_id").SetUnique(true).SetSparse(true),
	})
	return err
}

func (s *ChatStore) Save(ctx context.Context, chat *entities.Chat) error {
	_, err := s.collection.ReplaceOne(ctx, bson.M{"_id": chat.ID}, chat, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save chat %s: %w", chat.ID, err)
	}
	return nil
}

func (s *ChatStore) GetByID(ctx context.Context, id uuid.UUID) (*entities.Chat, error) {
	var chat entities.Chat
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&chat)
	if err == mongo.ErrNoDocuments {
		return nil, common.NewErrNotFound("Chat", "id", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find chat %s: %w", id, err)
	}
	return &chat, nil
}

func (s *ChatStore) GetByLobbyID(ctx context.Context, lobbyID uuid.UUID) (*entities.Chat, error) {
	var chat entities.Chat
	err := s.collection.FindOne(ctx, bson.M{"lobby_id": lobbyID}).Decode(&chat)
	if err == mongo.ErrNoDocuments {
		return nil, common.NewErrNotFound("Chat", "lobbyId", lobbyID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find chat for lobby %s: %w", lobbyID, err)
	}
	return &chat, nil
}

var _ out.ChatStore = (*ChatStore)(nil)

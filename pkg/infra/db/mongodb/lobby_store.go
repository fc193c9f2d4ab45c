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

// LobbyStore is the MongoDB adapter for lobby.ports.out.LobbyStore.
type LobbyStore struct {
	collection *mongo.Collection
}

func NewLobbyStore(db *mongo.Database) *LobbyStore {
	s := &LobbyStore{collection: db.Collection("lobbies")}
	if err := s.ensureIndexes(context.Background()); err != nil {
		fmt.Printf("WARNING: failed to create lobbies indexes (non-fatal): %v\n", err)
	}
	return s
}

func (s *LobbyStore) ensureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "members.user_id", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_member_status"),
		},
	})
	return err
}

func (s *LobbyStore) Save(ctx context.Context, lobby *entities.Lobby) error {
	_, err := s.collection.ReplaceOne(ctx, bson.M{"_id": lobby.ID}, lobby, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save lobby %s: %w", lobby.ID, err)
	}
	return nil
}

func (s *LobbyStore) GetByID(ctx context.Context, id uuid.UUID) (*entities.Lobby, error) {
	var lobby entities.Lobby
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&lobby)
	if err == mongo.ErrNoDocuments {
		return nil, common.NewErrNotFound("Lobby", "id", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find lobby %s: %w", id, err)
	}
	return &lobby, nil
}

func (s *LobbyStore) GetActiveForUser(ctx context.Context, userID uuid.UUID) (*entities.Lobby, error) {
	filter := bson.M{
		"members": bson.M{"$elemMatch": bson.M{"user_id": userID, "status": bson.M{"$in": bson.A{entities.MemberJoined, entities.MemberReady}}}},
		"status":  bson.M{"$ne": entities.StatusClosed},
	}
	var lobby entities.Lobby
	err := s.collection.FindOne(ctx, filter).Decode(&lobby)
	if err == mongo.ErrNoDocuments {
		return nil, common.NewErrNotFound("Lobby", "userId", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find active lobby for user %s: %w", userID, err)
	}
	return &lobby, nil
}

func (s *LobbyStore) ListForUser(ctx context.Context, userID uuid.UUID, includeHistory bool, limit int) ([]*entities.Lobby, error) {
	filter := bson.M{"members.user_id": userID}
	if !includeHistory {
		filter["status"] = bson.M{"$ne": entities.StatusClosed}
	}

	if limit <= 0 {
		limit = 20
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(int64(limit))

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list lobbies for user %s: %w", userID, err)
	}
	defer cursor.Close(ctx)

	var lobbies []*entities.Lobby
	if err := cursor.All(ctx, &lobbies); err != nil {
		return nil, fmt.Errorf("failed to decode lobbies for user %s: %w", userID, err)
	}
	return lobbies, nil
}

var _ out.LobbyStore = (*LobbyStore)(nil)

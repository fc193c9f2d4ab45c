package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	common "github.com/matchcore/core/pkg/domain"
	"github.com/matchcore/core/pkg/domain/matchmaking/entities"
	out "github.com/matchcore/core/pkg/domain/matchmaking/ports/out"
)

// HistoryStore is the MongoDB adapter for matchmaking.ports.out.HistoryStore.
type HistoryStore struct {
	collection *mongo.Collection
}

func NewHistoryStore(db *mongo.Database) *HistoryStore {
	s := &HistoryStore{collection: db.Collection("match_histories")}
	if err := s.ensureIndexes(context.Background()); err != nil {
		fmt.Printf("WARNING: failed to create match_histories indexes (non-fatal): %v\n", err)
	}
	return s
}

func (s *HistoryStore) ensureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "participants.user_id", Value: 1}, {Key: "formed_at", Value: -1}},
			Options: options.Index().SetName("idx_participant_formed_at"),
		},
	})
	return err
}

func (s *HistoryStore) Save(ctx context.Context, h *entities.MatchHistory) error {
	_, err := s.collection.ReplaceOne(ctx, bson.M{"_id": h.ID}, h, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save match history %s: %w", h.ID, err)
	}
	return nil
}

func (s *HistoryStore) GetByID(ctx context.Context, id uuid.UUID) (*entities.MatchHistory, error) {
	var h entities.MatchHistory
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&h)
	if err == mongo.ErrNoDocuments {
		return nil, common.NewErrNotFound("MatchHistory", "id", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find match history %s: %w", id, err)
	}
	return &h, nil
}

func (s *HistoryStore) ListForUser(ctx context.Context, userID uuid.UUID, filters out.HistoryFilters) ([]*entities.MatchHistory, error) {
	filter := bson.M{"participants.user_id": userID}
	if filters.GameID != nil {
		filter["game_id"] = *filters.GameID
	}
	if filters.Status != nil {
		filter["status"] = *filters.Status
	}

	limit := int64(filters.Limit)
	if limit <= 0 {
		limit = 20
	}
	page := int64(filters.Page)
	if page < 0 {
		page = 0
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "formed_at", Value: -1}}).
		SetLimit(limit).
		SetSkip(page * limit)

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list match history for user %s: %w", userID, err)
	}
	defer cursor.Close(ctx)

	var histories []*entities.MatchHistory
	if err := cursor.All(ctx, &histories); err != nil {
		return nil, fmt.Errorf("failed to decode match history for user %s: %w", userID, err)
	}
	return histories, nil
}

var _ out.HistoryStore = (*HistoryStore)(nil)

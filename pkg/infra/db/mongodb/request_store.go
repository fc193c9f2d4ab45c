package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	common "github.com/matchcore/core/pkg/domain"
	"github.com/matchcore/core/pkg/domain/matchmaking/entities"
	out "github.com/matchcore/core/pkg/domain/matchmaking/ports/out"
)

// RequestStore is the MongoDB adapter for matchmaking.ports.out.RequestStore.
// A unique index on {user_id, status} (partial, status='searching') is what
// actually enforces "at most one active request per user" when the
// in-memory QueueManager index is cold (process restart) or racing a
// concurrent submit on another instance.
type RequestStore struct {
	collection *mongo.Collection
}

func NewRequestStore(db *mongo.Database) *RequestStore {
	s := &RequestStore{collection: db.Collection("match_requests")}
	if err := s.ensureIndexes(context.Background()); err != nil {
		fmt.Printf("WARNING: failed to create match_requests indexes (non-fatal): %v\n", err)
	}
	return s
}

func (s *RequestStore) ensureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().
				SetName("idx_user_searching_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "status", Value: "searching"}}),
		},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "search_start_time", Value: 1}},
			Options: options.Index().SetName("idx_status_search_start"),
		},
	})
	return err
}

func (s *RequestStore) Save(ctx context.Context, req *entities.MatchRequest) error {
	_, err := s.collection.ReplaceOne(ctx, bson.M{"_id": req.ID}, req, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save match request %s: %w", req.ID, err)
	}
	return nil
}

func (s *RequestStore) GetByID(ctx context.Context, id uuid.UUID) (*entities.MatchRequest, error) {
	var req entities.MatchRequest
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&req)
	if err == mongo.ErrNoDocuments {
		return nil, common.NewErrNotFound("MatchRequest", "id", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find match request %s: %w", id, err)
	}
	return &req, nil
}

func (s *RequestStore) GetActiveByUser(ctx context.Context, userID uuid.UUID) (*entities.MatchRequest, error) {
	var req entities.MatchRequest
	filter := bson.M{"user_id": userID, "status": entities.RequestSearching}
	err := s.collection.FindOne(ctx, filter).Decode(&req)
	if err == mongo.ErrNoDocuments {
		return nil, common.NewErrNotFound("MatchRequest", "userId", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find active match request for user %s: %w", userID, err)
	}
	return &req, nil
}

func (s *RequestStore) ListSearching(ctx context.Context) ([]*entities.MatchRequest, error) {
	cursor, err := s.collection.Find(ctx, bson.M{"status": entities.RequestSearching})
	if err != nil {
		return nil, fmt.Errorf("failed to list searching match requests: %w", err)
	}
	defer cursor.Close(ctx)

	var reqs []*entities.MatchRequest
	if err := cursor.All(ctx, &reqs); err != nil {
		return nil, fmt.Errorf("failed to decode searching match requests: %w", err)
	}
	return reqs, nil
}

func (s *RequestStore) ListAgedSearching(ctx context.Context, olderThanSeconds int64, limit int) ([]*entities.MatchRequest, error) {
	cutoff := time.Now().UTC().Add(-time.Duration(olderThanSeconds) * time.Second)
	filter := bson.M{
		"status":            entities.RequestSearching,
		"search_start_time": bson.M{"$lt": cutoff},
	}
	opts := options.Find().SetSort(bson.D{{Key: "search_start_time", Value: 1}}).SetLimit(int64(limit))

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list aged match requests: %w", err)
	}
	defer cursor.Close(ctx)

	var reqs []*entities.MatchRequest
	if err := cursor.All(ctx, &reqs); err != nil {
		return nil, fmt.Errorf("failed to decode aged match requests: %w", err)
	}
	return reqs, nil
}

func (s *RequestStore) UpdateStatus(ctx context.Context, id uuid.UUID, status entities.RequestStatus) error {
	update := bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}}
	result, err := s.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update match request status %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return common.NewErrNotFound("MatchRequest", "id", id)
	}
	return nil
}

func (s *RequestStore) SupportsTransactions() bool {
	return true
}

var _ out.RequestStore = (*RequestStore)(nil)

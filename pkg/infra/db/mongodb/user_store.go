package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	common "github.com/matchcore/core/pkg/domain"
	"github.com/matchcore/core/pkg/domain/user/entities"
	out "github.com/matchcore/core/pkg/domain/user/ports/out"
)

// UserStore is the MongoDB adapter for user.ports.out.UserReader. Core owns
// no write path for users beyond the presence touch; the collection is
// populated and otherwise maintained by the owning service.
type UserStore struct {
	collection *mongo.Collection
}

func NewUserStore(db *mongo.Database) *UserStore {
	return &UserStore{collection: db.Collection("users")}
}

func (s *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	var u entities.User
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, common.NewErrNotFound("User", "id", id)
	}
	if err != nil {
		return nil, common.NewErrInternal(fmt.Sprintf("failed to find user %s: %v", id, err))
	}
	return &u, nil
}

// TouchLastActive is best-effort: a failure here must never propagate into
// the caller's critical path, so it only logs.
func (s *UserStore) TouchLastActive(ctx context.Context, id uuid.UUID, at time.Time) {
	_, err := s.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"last_active_at": at}})
	if err != nil {
		slog.WarnContext(ctx, "failed to touch user last_active_at", "user_id", id, "error", err)
	}
}

var _ out.UserReader = (*UserStore)(nil)

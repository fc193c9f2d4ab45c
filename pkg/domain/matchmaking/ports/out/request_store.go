package out

import (
	"context"

	"github.com/google/uuid"

	"github.com/matchcore/core/pkg/domain/matchmaking/entities"
)

// RequestFilters holds optional request-query filters; zero values mean
// "no filter on this field". No RequestStore method takes it.
type RequestFilters struct {
	GameID *uuid.UUID
	Status *entities.RequestStatus
	Page   int
	Limit  int
}

// RequestStore persists MatchRequest. SupportsTransactions reports whether
// the backend supports multi-document transactions; MatchmakingService does
// not consult it, and submit and finalize run without a transaction.
type RequestStore interface {
	Save(ctx context.Context, req *entities.MatchRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.MatchRequest, error)
	GetActiveByUser(ctx context.Context, userID uuid.UUID) (*entities.MatchRequest, error)
	// ListSearching is used at startup to rebuild the QueueManager index.
	ListSearching(ctx context.Context) ([]*entities.MatchRequest, error)
	// ListAgedSearching returns up to limit searching requests with
	// SearchStartTime older than olderThanSeconds, oldest first, for the
	// relaxation sweep.
	ListAgedSearching(ctx context.Context, olderThanSeconds int64, limit int) ([]*entities.MatchRequest, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status entities.RequestStatus) error
	SupportsTransactions() bool
}

package out

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/matchcore/core/pkg/domain/user/entities"
)

// UserReader is the only capability core needs from the user collaborator:
// read-by-id and the fire-and-forget presence touch. User CRUD, auth, and
// profile management live outside this module.
type UserReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error)
	TouchLastActive(ctx context.Context, id uuid.UUID, at time.Time)
}

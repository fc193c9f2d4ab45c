package common

import (
	"context"

	"github.com/google/uuid"
)

// ResourceOwner identifies the user a resource belongs to. The platform this
// module serves has no tenancy concept of its own (matchmaking runs inside a
// single game backend), so unlike a multi-tenant store this only tracks the
// owning user.
type ResourceOwner struct {
	UserID uuid.UUID `json:"user_id" bson:"user_id"`
}

func NewResourceOwner(userID uuid.UUID) ResourceOwner {
	return ResourceOwner{UserID: userID}
}

// GetResourceOwner reads the authenticated user out of a request/socket context.
func GetResourceOwner(ctx context.Context) ResourceOwner {
	if userID, ok := ctx.Value(UserIDKey).(uuid.UUID); ok {
		return ResourceOwner{UserID: userID}
	}
	return ResourceOwner{}
}

func (ro ResourceOwner) IsZero() bool {
	return ro.UserID == uuid.Nil
}

// IsAuthenticated reports whether the context carries a verified identity.
func IsAuthenticated(ctx context.Context) bool {
	isAuth, ok := ctx.Value(AuthenticatedKey).(bool)
	return ok && isAuth
}

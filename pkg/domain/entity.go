package common

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity is embedded by every aggregate root in pkg/domain/*/entities.
type BaseEntity struct {
	ID            uuid.UUID     `json:"id" bson:"_id"`
	ResourceOwner ResourceOwner `json:"resource_owner" bson:"resource_owner"`
	CreatedAt     time.Time     `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" bson:"updated_at"`
}

type Entity interface {
	GetID() uuid.UUID
}

func (b BaseEntity) GetID() uuid.UUID {
	return b.ID
}

func NewEntity(resourceOwner ResourceOwner) BaseEntity {
	now := time.Now().UTC()
	return BaseEntity{
		ID:            uuid.New(),
		ResourceOwner: resourceOwner,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

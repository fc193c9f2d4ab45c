package out

import (
	"context"

	"github.com/google/uuid"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

type NotificationType string

const (
	TypeMatchFound      NotificationType = "match_found"
	TypeFriendRequest   NotificationType = "friend_request"
	TypeFriendAccepted  NotificationType = "friend_accepted"
	TypeLobbyInvite     NotificationType = "lobby_invite"
)

type NotificationData struct {
	EntityType string    `json:"entity_type"`
	EntityID   uuid.UUID `json:"entity_id"`
	ActionURL  string    `json:"action_url,omitempty"`
}

type Notification struct {
	Type     NotificationType `json:"type"`
	Title    string           `json:"title"`
	Message  string           `json:"message"`
	Data     NotificationData `json:"data"`
	Priority Priority         `json:"priority"`
}

// NotificationTrigger is the thin contract core calls on match-found /
// lobby-invite; delivery (push, email, in-app) and per-user channel
// preferences are owned by an external notification subsystem. The trigger
// only guarantees the enqueue happens; it does not wait for delivery.
type NotificationTrigger interface {
	CreateNotification(ctx context.Context, userID uuid.UUID, n Notification) error
}

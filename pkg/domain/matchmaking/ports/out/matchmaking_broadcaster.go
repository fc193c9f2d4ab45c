package out

import (
	"context"

	"github.com/google/uuid"
)

type RequestStatusEvent string

const (
	StatusSearching RequestStatusEvent = "searching"
	StatusMatched   RequestStatusEvent = "matched"
	StatusCancelled RequestStatusEvent = "cancelled"
	StatusExpired   RequestStatusEvent = "expired"
)

// RequestStatusPayload is what goes out on matchmaking:status.
type RequestStatusPayload struct {
	Status           RequestStatusEvent `json:"status"`
	RequestID        uuid.UUID          `json:"request_id"`
	SearchTimeMs     int64              `json:"search_time_ms,omitempty"`
	PotentialMatches int                `json:"potential_matches,omitempty"`
	EstimatedWaitSec int                `json:"estimated_wait_seconds,omitempty"`
	MatchID          uuid.UUID          `json:"match_id,omitempty"`
	LobbyID          uuid.UUID          `json:"lobby_id,omitempty"`
	Participants     []uuid.UUID        `json:"participants,omitempty"`
}

// MatchmakingBroadcaster is the fan-out capability MatchmakingService needs
// on the per-request room; the SocketHub implements it.
type MatchmakingBroadcaster interface {
	BroadcastRequestStatus(ctx context.Context, userID uuid.UUID, payload RequestStatusPayload)
	BroadcastLobbyCreated(ctx context.Context, userID uuid.UUID, lobbyID uuid.UUID)
}

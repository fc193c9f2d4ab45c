package entities

import (
	"time"

	"github.com/google/uuid"

	common "github.com/matchcore/core/pkg/domain"
)

type RequestStatus string

const (
	RequestSearching RequestStatus = "searching"
	RequestCancelled RequestStatus = "cancelled"
	RequestMatched   RequestStatus = "matched"
	RequestExpired   RequestStatus = "expired"
)

// DefaultExpiry is the TTL a MatchRequest lives under while searching;
// NewMatchRequest sets MatchExpireTime to SearchStartTime plus this.
const DefaultExpiry = 10 * time.Minute

// MaxRelaxationLevel is the ceiling applyCriteriaRelaxation clamps to.
const MaxRelaxationLevel = 10

// RelaxationStep is how long a request must wait, in wall-clock time,
// before its relaxation level advances by one.
const RelaxationStep = 30 * time.Second

// MatchRequest is the atom of matchmaking: one player's standing ask to be
// grouped, carrying its own search criteria and aging state.
type MatchRequest struct {
	common.BaseEntity `bson:",inline"`

	UserID              uuid.UUID     `json:"user_id" bson:"user_id"`
	Status              RequestStatus `json:"status" bson:"status"`
	Criteria            Criteria      `json:"criteria" bson:"criteria"`
	PreselectedUsers    []uuid.UUID   `json:"preselected_users,omitempty" bson:"preselected_users,omitempty"`
	SearchStartTime     time.Time     `json:"search_start_time" bson:"search_start_time"`
	RelaxationLevel     int           `json:"relaxation_level" bson:"relaxation_level"`
	RelaxationTimestamp time.Time     `json:"relaxation_timestamp" bson:"relaxation_timestamp"`
	MatchedLobbyID      *uuid.UUID    `json:"matched_lobby_id,omitempty" bson:"matched_lobby_id,omitempty"`
	MatchExpireTime     time.Time     `json:"match_expire_time" bson:"match_expire_time"`
}

func NewMatchRequest(owner common.ResourceOwner, userID uuid.UUID, criteria Criteria) *MatchRequest {
	now := time.Now().UTC()
	base := common.NewEntity(owner)
	return &MatchRequest{
		BaseEntity:          base,
		UserID:              userID,
		Status:              RequestSearching,
		Criteria:            criteria,
		SearchStartTime:     now,
		RelaxationLevel:     0,
		RelaxationTimestamp: now,
		MatchExpireTime:     now.Add(DefaultExpiry),
	}
}

// SearchDuration is now - searchStartTime while searching, else zero.
func (r *MatchRequest) SearchDuration(now time.Time) time.Duration {
	if r.Status != RequestSearching {
		return 0
	}
	return now.Sub(r.SearchStartTime)
}

func (r *MatchRequest) IsExpired(now time.Time) bool {
	return r.Status == RequestSearching && !now.Before(r.MatchExpireTime)
}

// ApplyRelaxation recomputes the relaxation level from elapsed search
// duration, clamped to MaxRelaxationLevel. It never decreases the level and
// reports whether the level actually advanced so callers know to re-score.
func (r *MatchRequest) ApplyRelaxation(now time.Time) bool {
	if r.Status != RequestSearching {
		return false
	}
	elapsed := r.SearchDuration(now)
	level := int(elapsed / RelaxationStep)
	if level > MaxRelaxationLevel {
		level = MaxRelaxationLevel
	}
	if level <= r.RelaxationLevel {
		return false
	}
	r.RelaxationLevel = level
	r.RelaxationTimestamp = now
	return true
}

func (r *MatchRequest) MarkCancelled() {
	r.Status = RequestCancelled
	r.UpdatedAt = time.Now().UTC()
}

func (r *MatchRequest) MarkExpired() {
	r.Status = RequestExpired
	r.UpdatedAt = time.Now().UTC()
}

func (r *MatchRequest) MarkMatched(lobbyID uuid.UUID) {
	r.Status = RequestMatched
	r.MatchedLobbyID = &lobbyID
	r.UpdatedAt = time.Now().UTC()
}

// PreselectsEachOther reports whether both requests list each other in
// their preselected party.
func PreselectsEachOther(a, b *MatchRequest) bool {
	return contains(a.PreselectedUsers, b.UserID) && contains(b.PreselectedUsers, a.UserID)
}

func contains(ids []uuid.UUID, target uuid.UUID) bool {
	for _, id := range ids {
		if id == target {
			return true
		}
	}
	return false
}

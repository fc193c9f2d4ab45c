package entities

import "github.com/google/uuid"

type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusBanned    Status = "banned"
	StatusDeleted   Status = "deleted"
)

func (s Status) IsActive() bool {
	return s == StatusActive
}

// GameProfile is a user's skill record within a single game.
type GameProfile struct {
	GameID      uuid.UUID `json:"game_id" bson:"game_id"`
	SkillLevel  int       `json:"skill_level" bson:"skill_level"` // [0,100]
	Rank        string    `json:"rank" bson:"rank"`
	InGameName  string    `json:"in_game_name" bson:"in_game_name"`
}

// User is an external collaborator: core treats it as an immutable
// reference resolved by ID, never mutated except for LastActive via the
// SocketHub's fire-and-forget presence hook.
type User struct {
	ID           uuid.UUID     `json:"id" bson:"_id"`
	Username     string        `json:"username" bson:"username"`
	Status       Status        `json:"status" bson:"status"`
	GameProfiles []GameProfile `json:"game_profiles" bson:"game_profiles"`
}

// GameProfile returns the user's profile for gameID, if any.
func (u User) GameProfileFor(gameID uuid.UUID) (GameProfile, bool) {
	for _, p := range u.GameProfiles {
		if p.GameID == gameID {
			return p, true
		}
	}
	return GameProfile{}, false
}

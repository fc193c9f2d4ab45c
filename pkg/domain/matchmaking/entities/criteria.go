package entities

import (
	"github.com/google/uuid"

	common "github.com/matchcore/core/pkg/domain"
)

type GameMode string

const (
	GameModeCasual      GameMode = "casual"
	GameModeCompetitive GameMode = "competitive"
	GameModeRanked      GameMode = "ranked"
	GameModeCustom       GameMode = "custom"
)

func (m GameMode) IsValid() bool {
	switch m {
	case GameModeCasual, GameModeCompetitive, GameModeRanked, GameModeCustom:
		return true
	}
	return false
}

type Region string

const (
	RegionNA  Region = "NA"
	RegionEU  Region = "EU"
	RegionAS  Region = "AS"
	RegionSA  Region = "SA"
	RegionOC  Region = "OC"
	RegionAF  Region = "AF"
	RegionAny Region = "ANY"
)

func (r Region) IsValid() bool {
	switch r {
	case RegionNA, RegionEU, RegionAS, RegionSA, RegionOC, RegionAF, RegionAny:
		return true
	}
	return false
}

type Preference string

const (
	PreferenceStrict    Preference = "strict"
	PreferencePreferred Preference = "preferred"
	PreferenceAny       Preference = "any"
)

func (p Preference) IsValid() bool {
	switch p {
	case PreferenceStrict, PreferencePreferred, PreferenceAny:
		return true
	}
	return false
}

type SkillPreference string

const (
	SkillPreferenceSimilar SkillPreference = "similar"
	SkillPreferenceAny     SkillPreference = "any"
)

func (p SkillPreference) IsValid() bool {
	switch p {
	case SkillPreferenceSimilar, SkillPreferenceAny:
		return true
	}
	return false
}

// GameWeight pairs a game with how much it should dominate primary-game
// selection; the game with the highest weight is the "primary game" used
// for skill scoring.
type GameWeight struct {
	GameID uuid.UUID `json:"game_id" bson:"game_id"`
	Weight int       `json:"weight" bson:"weight"` // [1,10]
}

type GroupSize struct {
	Min int `json:"min" bson:"min"`
	Max int `json:"max" bson:"max"`
}

func (g GroupSize) Valid() bool {
	return g.Min > 0 && g.Min <= g.Max
}

// Criteria is the player's matchmaking preference set, submitted with each
// MatchRequest.
type Criteria struct {
	Games               []GameWeight    `json:"games" bson:"games"`
	GameMode            GameMode        `json:"game_mode" bson:"game_mode"`
	GroupSize           GroupSize       `json:"group_size" bson:"group_size"`
	Regions             []Region        `json:"regions" bson:"regions"`
	RegionPreference    Preference      `json:"region_preference" bson:"region_preference"`
	Languages           []string        `json:"languages" bson:"languages"`
	LanguagePreference  Preference      `json:"language_preference" bson:"language_preference"`
	SkillPreference     SkillPreference `json:"skill_preference" bson:"skill_preference"`
	ScheduledTime       *int64          `json:"scheduled_time,omitempty" bson:"scheduled_time,omitempty"`
}

// PrimaryGame returns the GameWeight with the highest weight, used as the
// key for skill scoring. Ties keep the first one encountered.
func (c Criteria) PrimaryGame() (GameWeight, bool) {
	if len(c.Games) == 0 {
		return GameWeight{}, false
	}
	best := c.Games[0]
	for _, g := range c.Games[1:] {
		if g.Weight > best.Weight {
			best = g
		}
	}
	return best, true
}

// RegionSet returns Regions as a set, defaulting to {ANY} when empty.
func (c Criteria) RegionSet() map[Region]struct{} {
	out := make(map[Region]struct{}, len(c.Regions))
	if len(c.Regions) == 0 {
		out[RegionAny] = struct{}{}
		return out
	}
	for _, r := range c.Regions {
		out[r] = struct{}{}
	}
	return out
}

func (c Criteria) Validate() error {
	if len(c.Games) == 0 {
		return common.NewErrBadRequest("criteria.games must not be empty")
	}
	if !c.GroupSize.Valid() {
		return common.NewErrBadRequest("criteria.groupSize.min must be <= groupSize.max and > 0")
	}
	if !c.GameMode.IsValid() {
		return common.NewErrBadRequest("criteria.gameMode is invalid")
	}
	if c.RegionPreference != "" && !c.RegionPreference.IsValid() {
		return common.NewErrBadRequest("criteria.regionPreference is invalid")
	}
	if c.LanguagePreference != "" && !c.LanguagePreference.IsValid() {
		return common.NewErrBadRequest("criteria.languagePreference is invalid")
	}
	if c.SkillPreference != "" && !c.SkillPreference.IsValid() {
		return common.NewErrBadRequest("criteria.skillPreference is invalid")
	}
	for _, r := range c.Regions {
		if !r.IsValid() {
			return common.NewErrBadRequest("criteria.regions contains an invalid region")
		}
	}
	return nil
}

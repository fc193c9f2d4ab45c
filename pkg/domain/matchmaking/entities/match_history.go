package entities

import (
	"time"

	"github.com/google/uuid"

	common "github.com/matchcore/core/pkg/domain"
)

type ParticipantStatus string

const (
	ParticipantActive       ParticipantStatus = "active"
	ParticipantLeft         ParticipantStatus = "left"
	ParticipantKicked       ParticipantStatus = "kicked"
	ParticipantDisconnected ParticipantStatus = "disconnected"
)

type Participant struct {
	UserID    uuid.UUID         `json:"user_id" bson:"user_id"`
	RequestID uuid.UUID         `json:"request_id" bson:"request_id"`
	JoinedAt  time.Time         `json:"joined_at" bson:"joined_at"`
	LeftAt    *time.Time        `json:"left_at,omitempty" bson:"left_at,omitempty"`
	Status    ParticipantStatus `json:"status" bson:"status"`
}

// MatchQuality scores a formed group on three axes, each in [0,100], plus
// an aggregate overallScore = 0.3*region + 0.2*language + 0.5*skillBalance.
type MatchQuality struct {
	SkillBalance          float64 `json:"skill_balance" bson:"skill_balance"`
	RegionCompatibility   float64 `json:"region_compatibility" bson:"region_compatibility"`
	LanguageCompatibility float64 `json:"language_compatibility" bson:"language_compatibility"`
	OverallScore          float64 `json:"overall_score" bson:"overall_score"`
}

// MatchingMetrics records how long the group's members waited, used for
// the QueueManager's running wait-time average and for audit.
type MatchingMetrics struct {
	TotalSearchTimeMs      int64   `json:"total_search_time_ms" bson:"total_search_time_ms"`
	MaxSearchTimeMs        int64   `json:"max_search_time_ms" bson:"max_search_time_ms"`
	MinSearchTimeMs        int64   `json:"min_search_time_ms" bson:"min_search_time_ms"`
	RelaxationLevelsUsed   []int   `json:"relaxation_levels_used" bson:"relaxation_levels_used"`
}

type HistoryStatus string

const (
	HistoryForming    HistoryStatus = "forming"
	HistoryReady      HistoryStatus = "ready"
	HistoryInProgress HistoryStatus = "in_progress"
	HistoryCompleted  HistoryStatus = "completed"
	HistoryCancelled  HistoryStatus = "cancelled"
)

// MatchHistory is the authoritative record of a formed group: created
// during finalization, never mutated once status reaches Completed.
type MatchHistory struct {
	common.BaseEntity `bson:",inline"`

	GameID       uuid.UUID       `json:"game_id" bson:"game_id"`
	GameMode     GameMode        `json:"game_mode" bson:"game_mode"`
	Region       Region          `json:"region" bson:"region"`
	Participants []Participant   `json:"participants" bson:"participants"`
	Quality      MatchQuality    `json:"match_quality" bson:"match_quality"`
	Metrics      MatchingMetrics `json:"matching_metrics" bson:"matching_metrics"`
	LobbyID      *uuid.UUID      `json:"lobby_id,omitempty" bson:"lobby_id,omitempty"`
	Status       HistoryStatus   `json:"status" bson:"status"`
	FormedAt     time.Time       `json:"formed_at" bson:"formed_at"`
	StartedAt    *time.Time      `json:"started_at,omitempty" bson:"started_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}

func NewMatchHistory(owner common.ResourceOwner, gameID uuid.UUID, mode GameMode, region Region, participants []Participant, quality MatchQuality, metrics MatchingMetrics) *MatchHistory {
	return &MatchHistory{
		BaseEntity:   common.NewEntity(owner),
		GameID:       gameID,
		GameMode:     mode,
		Region:       region,
		Participants: participants,
		Quality:      quality,
		Metrics:      metrics,
		Status:       HistoryForming,
		FormedAt:     time.Now().UTC(),
	}
}

// IsFinalized reports whether a lobby has already been materialized for
// this match; finalizeMatch re-reads this to stay idempotent.
func (h *MatchHistory) IsFinalized() bool {
	return h.LobbyID != nil
}

func (h *MatchHistory) AttachLobby(lobbyID uuid.UUID) {
	h.LobbyID = &lobbyID
	h.Status = HistoryReady
	h.UpdatedAt = time.Now().UTC()
}

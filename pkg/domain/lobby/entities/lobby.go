package entities

import (
	"time"

	"github.com/google/uuid"

	common "github.com/matchcore/core/pkg/domain"
	"github.com/matchcore/core/pkg/domain/matchmaking/entities"
)

type Status string

const (
	StatusForming Status = "forming"
	StatusReady   Status = "ready"
	StatusActive  Status = "active"
	StatusClosed  Status = "closed"
)

type MemberStatus string

const (
	MemberJoined MemberStatus = "joined"
	MemberReady  MemberStatus = "ready"
	MemberLeft   MemberStatus = "left"
	MemberKicked MemberStatus = "kicked"
)

// AutoStartDelay is how long a lobby waits in Ready before auto-starting,
// cancelled if readiness regresses in the meantime.
const AutoStartDelay = 5 * time.Second

type Member struct {
	UserID      uuid.UUID    `json:"user_id" bson:"user_id"`
	Status      MemberStatus `json:"status" bson:"status"`
	ReadyStatus bool         `json:"ready_status" bson:"ready_status"`
	IsHost      bool         `json:"is_host" bson:"is_host"`
	JoinedAt    time.Time    `json:"joined_at" bson:"joined_at"`
	LeftAt      *time.Time   `json:"left_at,omitempty" bson:"left_at,omitempty"`
}

func (m Member) active() bool {
	return m.Status == MemberJoined || m.Status == MemberReady
}

type Capacity struct {
	Min int `json:"min" bson:"min"`
	Max int `json:"max" bson:"max"`
}

type Settings struct {
	IsPrivate bool `json:"is_private" bson:"is_private"`
	AutoStart bool `json:"auto_start" bson:"auto_start"`
	AutoClose bool `json:"auto_close" bson:"auto_close"`
}

// Lobby is the live coordination container a formed match materializes
// into: membership, ready-gating, and host transfer all live here.
type Lobby struct {
	common.BaseEntity `bson:",inline"`

	Name           string            `json:"name" bson:"name"`
	GameID         uuid.UUID         `json:"game_id" bson:"game_id"`
	GameMode       entities.GameMode `json:"game_mode" bson:"game_mode"`
	Region         entities.Region   `json:"region" bson:"region"`
	MatchHistoryID uuid.UUID         `json:"match_history_id" bson:"match_history_id"`
	HostID         uuid.UUID         `json:"host_id" bson:"host_id"`
	Capacity       Capacity          `json:"capacity" bson:"capacity"`
	Members        []Member          `json:"members" bson:"members"`
	Status         Status            `json:"status" bson:"status"`
	ChatID         uuid.UUID         `json:"chat_id" bson:"chat_id"`
	Settings       Settings          `json:"settings" bson:"settings"`
	ClosedAt       *time.Time        `json:"closed_at,omitempty" bson:"closed_at,omitempty"`
}

func NewLobby(owner common.ResourceOwner, name string, gameID uuid.UUID, mode entities.GameMode, region entities.Region, matchHistoryID uuid.UUID, settings Settings) *Lobby {
	return &Lobby{
		BaseEntity:     common.NewEntity(owner),
		Name:           name,
		GameID:         gameID,
		GameMode:       mode,
		Region:         region,
		MatchHistoryID: matchHistoryID,
		Status:         StatusForming,
		Settings:       settings,
	}
}

// MemberCount is the count of members in {joined,ready}; always recomputed
// from Members rather than cached.
func (l *Lobby) MemberCount() int {
	n := 0
	for _, m := range l.Members {
		if m.active() {
			n++
		}
	}
	return n
}

// ReadyCount is the count of members with ReadyStatus=true.
func (l *Lobby) ReadyCount() int {
	n := 0
	for _, m := range l.Members {
		if m.active() && m.ReadyStatus {
			n++
		}
	}
	return n
}

func (l *Lobby) IsMember(userID uuid.UUID) bool {
	for _, m := range l.Members {
		if m.UserID == userID && m.active() {
			return true
		}
	}
	return false
}

func (l *Lobby) memberIndex(userID uuid.UUID) int {
	for i, m := range l.Members {
		if m.UserID == userID {
			return i
		}
	}
	return -1
}

// AddMember appends a new active member; the caller is responsible for
// enforcing capacity and status preconditions before calling this.
func (l *Lobby) AddMember(userID uuid.UUID, isHost bool) {
	l.Members = append(l.Members, Member{
		UserID:   userID,
		Status:   MemberJoined,
		IsHost:   isHost,
		JoinedAt: time.Now().UTC(),
	})
	l.touch()
}

// MarkLeft transitions a member to Left and returns whether they were host,
// so the caller (LobbyEngine) can drive host transfer.
func (l *Lobby) MarkLeft(userID uuid.UUID) (wasHost bool, ok bool) {
	i := l.memberIndex(userID)
	if i == -1 || !l.Members[i].active() {
		return false, false
	}
	now := time.Now().UTC()
	l.Members[i].Status = MemberLeft
	l.Members[i].LeftAt = &now
	wasHost = l.Members[i].IsHost
	l.Members[i].IsHost = false
	l.touch()
	return wasHost, true
}

// TransferHost promotes the oldest-joined non-host active member and
// returns their id, or uuid.Nil if no eligible member remains.
func (l *Lobby) TransferHost() uuid.UUID {
	var next *Member
	for i := range l.Members {
		m := &l.Members[i]
		if !m.active() || m.IsHost {
			continue
		}
		if next == nil || m.JoinedAt.Before(next.JoinedAt) {
			next = m
		}
	}
	if next == nil {
		return uuid.Nil
	}
	next.IsHost = true
	l.HostID = next.UserID
	l.touch()
	return next.UserID
}

// SetReady flips a member's ready flag and returns whether it actually
// changed.
func (l *Lobby) SetReady(userID uuid.UUID, ready bool) bool {
	i := l.memberIndex(userID)
	if i == -1 || !l.Members[i].active() {
		return false
	}
	if l.Members[i].ReadyStatus == ready {
		return false
	}
	l.Members[i].ReadyStatus = ready
	if ready {
		l.Members[i].Status = MemberReady
	} else {
		l.Members[i].Status = MemberJoined
	}
	l.touch()
	return true
}

// AllReady reports whether every active member is ready and member count
// sits within capacity.
func (l *Lobby) AllReady() bool {
	count := l.MemberCount()
	if count < l.Capacity.Min || count > l.Capacity.Max {
		return false
	}
	return count > 0 && l.ReadyCount() == count
}

func (l *Lobby) TransitionToReady() {
	l.Status = StatusReady
	l.touch()
}

func (l *Lobby) TransitionToForming() {
	l.Status = StatusForming
	l.touch()
}

func (l *Lobby) TransitionToActive() {
	l.Status = StatusActive
	l.touch()
}

func (l *Lobby) Close() {
	if l.Status == StatusClosed {
		return
	}
	l.Status = StatusClosed
	now := time.Now().UTC()
	l.ClosedAt = &now
	l.touch()
}

func (l *Lobby) touch() {
	l.UpdatedAt = time.Now().UTC()
}

package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	common "github.com/matchcore/core/pkg/domain"
	"github.com/matchcore/core/pkg/domain/lobby/entities"
	out "github.com/matchcore/core/pkg/domain/lobby/ports/out"
	mmentities "github.com/matchcore/core/pkg/domain/matchmaking/entities"
	userout "github.com/matchcore/core/pkg/domain/user/ports/out"
)

// CreateLobbyInput is what finalizeMatch hands LobbyEngine: an already-
// formed group plus the MatchHistory it belongs to.
type CreateLobbyInput struct {
	MatchHistoryID uuid.UUID
	GameID         uuid.UUID
	GameMode       mmentities.GameMode
	Region         mmentities.Region
	Participants   []uuid.UUID // first entry becomes host
}

// LobbyEngine owns the Lobby+Chat lifecycle: membership, ready-gating,
// host transfer, and system-message emission, driven by the strict
// forming -> ready -> active -> closed state graph.
type LobbyEngine struct {
	lobbies      out.LobbyStore
	chats        out.ChatStore
	users        userout.UserReader
	broadcaster  out.LobbyBroadcaster
	autoStartFns map[uuid.UUID]context.CancelFunc
}

func NewLobbyEngine(lobbies out.LobbyStore, chats out.ChatStore, users userout.UserReader, broadcaster out.LobbyBroadcaster) *LobbyEngine {
	return &LobbyEngine{
		lobbies:      lobbies,
		chats:        chats,
		users:        users,
		broadcaster:  broadcaster,
		autoStartFns: make(map[uuid.UUID]context.CancelFunc),
	}
}

// CreateLobby materializes a formed group into a Lobby + Chat, links the
// MatchHistory, emits a system message, and fans out lobby:update.
func (e *LobbyEngine) CreateLobby(ctx context.Context, owner common.ResourceOwner, in CreateLobbyInput) (*entities.Lobby, error) {
	n := len(in.Participants)
	lobby := entities.NewLobby(owner, "", in.GameID, in.GameMode, in.Region, in.MatchHistoryID,
		entities.Settings{AutoStart: true, AutoClose: true})
	lobby.Capacity = entities.Capacity{Min: n, Max: n}

	for i, userID := range in.Participants {
		lobby.AddMember(userID, i == 0)
		if i == 0 {
			lobby.HostID = userID
		}
	}

	if err := e.lobbies.Save(ctx, lobby); err != nil {
		return nil, err
	}

	chat := entities.NewLobbyChat(owner, lobby.ID, in.Participants)
	if err := e.chats.Save(ctx, chat); err != nil {
		return nil, err
	}
	lobby.ChatID = chat.ID
	if err := e.lobbies.Save(ctx, lobby); err != nil {
		return nil, err
	}

	chat.AppendSystemMessage("Lobby created!")
	if err := e.chats.Save(ctx, chat); err != nil {
		slog.ErrorContext(ctx, "failed to persist lobby-created system message", "lobby_id", lobby.ID, "error", err)
	}

	e.broadcaster.BroadcastLobbyUpdate(ctx, lobby)
	slog.InfoContext(ctx, "lobby created", "lobby_id", lobby.ID, "match_history_id", in.MatchHistoryID, "members", n)
	return lobby, nil
}

// GetLobbyByID resolves a lobby, hiding existence of private lobbies from
// non-members behind a NotFound.
func (e *LobbyEngine) GetLobbyByID(ctx context.Context, id uuid.UUID, viewerID uuid.UUID) (*entities.Lobby, error) {
	lobby, err := e.lobbies.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if lobby.Settings.IsPrivate && !lobby.IsMember(viewerID) {
		return nil, common.NewErrNotFound("Lobby", "id", id)
	}
	return lobby, nil
}

// JoinLobby adds userID as a member, provided the lobby is forming, not
// full, the user is active, and has no other non-closed lobby.
func (e *LobbyEngine) JoinLobby(ctx context.Context, id, userID uuid.UUID) (*entities.Lobby, error) {
	lobby, err := e.lobbies.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if lobby.Status != entities.StatusForming {
		return nil, common.NewErrBadRequest("lobby is not accepting new members")
	}
	if lobby.MemberCount() >= lobby.Capacity.Max {
		return nil, common.NewErrBadRequest("lobby is full")
	}

	user, err := e.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.Status.IsActive() {
		return nil, common.NewErrBadRequest("user is not active")
	}

	other, err := e.lobbies.GetActiveForUser(ctx, userID)
	if err == nil && other != nil && other.ID != id {
		return nil, common.NewErrAlreadyExists("LobbyMembership", "userId", userID)
	}

	lobby.AddMember(userID, false)
	if err := e.lobbies.Save(ctx, lobby); err != nil {
		return nil, err
	}

	chat, err := e.chats.GetByID(ctx, lobby.ChatID)
	if err == nil && chat != nil {
		chat.AddParticipant(userID)
		chat.AppendSystemMessage("a new player joined the lobby")
		if err := e.chats.Save(ctx, chat); err != nil {
			slog.WarnContext(ctx, "failed to append join system message", "lobby_id", id, "error", err)
		}
	}

	e.broadcaster.BroadcastMemberJoined(ctx, id, userID)
	e.broadcaster.BroadcastLobbyUpdate(ctx, lobby)
	return lobby, nil
}

// LeaveLobby marks userID left, transfers host if needed, and closes the
// lobby if it empties and settings.AutoClose is set.
func (e *LobbyEngine) LeaveLobby(ctx context.Context, id, userID uuid.UUID) (*entities.Lobby, error) {
	lobby, err := e.lobbies.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if lobby.Status == entities.StatusClosed {
		return nil, common.NewErrBadRequest("lobby is already closed")
	}

	wasHost, ok := lobby.MarkLeft(userID)
	if !ok {
		return nil, common.NewErrNotFound("LobbyMember", "userId", userID)
	}

	if wasHost && lobby.MemberCount() > 0 {
		newHost := lobby.TransferHost()
		if newHost != uuid.Nil {
			e.appendSystemMessage(ctx, lobby, "host has transferred")
		}
	}

	if lobby.MemberCount() == 0 && lobby.Settings.AutoClose {
		e.closeLocked(ctx, lobby, "all members left")
	} else if lobby.Status == entities.StatusReady && !lobby.AllReady() {
		lobby.TransitionToForming()
		e.cancelAutoStart(id)
	}

	if err := e.lobbies.Save(ctx, lobby); err != nil {
		return nil, err
	}

	e.broadcaster.BroadcastMemberLeft(ctx, id, userID)
	e.broadcaster.BroadcastLobbyUpdate(ctx, lobby)
	return lobby, nil
}

// SetMemberReady flips readiness and drives the forming<->ready transition.
// When every member is ready and Settings.AutoStart is set, it schedules the
// one-shot auto-start timer itself via ScheduleAutoStart; falling back from
// ready to forming cancels that timer.
func (e *LobbyEngine) SetMemberReady(ctx context.Context, id, userID uuid.UUID, ready bool) (*entities.Lobby, error) {
	lobby, err := e.lobbies.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if lobby.Status != entities.StatusForming && lobby.Status != entities.StatusReady {
		return nil, common.NewErrBadRequest("lobby is not accepting ready changes")
	}

	changed := lobby.SetReady(userID, ready)
	if !changed {
		return lobby, nil
	}

	if lobby.AllReady() {
		lobby.TransitionToReady()
		if lobby.Settings.AutoStart {
			e.ScheduleAutoStart(id, func(lobbyID uuid.UUID) {
				e.ActivateIfReady(context.Background(), lobbyID)
			})
		}
	} else if lobby.Status == entities.StatusReady {
		lobby.TransitionToForming()
		e.cancelAutoStart(id)
	}

	if err := e.lobbies.Save(ctx, lobby); err != nil {
		return nil, err
	}

	e.broadcaster.BroadcastMemberReady(ctx, id, userID, ready)
	e.broadcaster.BroadcastLobbyUpdate(ctx, lobby)
	return lobby, nil
}

// ScheduleAutoStart arms the 5-second auto-start timer once a lobby enters
// Ready; it is cancelled automatically if readiness regresses before it
// fires. onFire is invoked with the lobby id once the timer elapses
// uncancelled — the caller re-fetches the lobby and transitions it if it is
// still Ready.
func (e *LobbyEngine) ScheduleAutoStart(lobbyID uuid.UUID, onFire func(uuid.UUID)) {
	ctx, cancel := context.WithCancel(context.Background())
	e.autoStartFns[lobbyID] = cancel
	go func() {
		select {
		case <-time.After(entities.AutoStartDelay):
			onFire(lobbyID)
		case <-ctx.Done():
		}
	}()
}

// ActivateIfReady transitions a lobby from Ready to Active, called once the
// auto-start timer fires uncancelled. It is a no-op if the lobby regressed
// out of Ready in the meantime.
func (e *LobbyEngine) ActivateIfReady(ctx context.Context, lobbyID uuid.UUID) {
	lobby, err := e.lobbies.GetByID(ctx, lobbyID)
	if err != nil {
		return
	}
	delete(e.autoStartFns, lobbyID)
	if lobby.Status != entities.StatusReady {
		return
	}
	lobby.TransitionToActive()
	if err := e.lobbies.Save(ctx, lobby); err != nil {
		slog.ErrorContext(ctx, "failed to persist lobby activation", "lobby_id", lobbyID, "error", err)
		return
	}
	e.appendSystemMessage(ctx, lobby, "lobby is now active")
	e.broadcaster.BroadcastLobbyUpdate(ctx, lobby)
}

func (e *LobbyEngine) cancelAutoStart(lobbyID uuid.UUID) {
	if cancel, ok := e.autoStartFns[lobbyID]; ok {
		cancel()
		delete(e.autoStartFns, lobbyID)
	}
}

// CloseLobby idempotently transitions to closed, emitting a system message
// and per-user lobby:closed events.
func (e *LobbyEngine) CloseLobby(ctx context.Context, id uuid.UUID, reason string) (*entities.Lobby, error) {
	lobby, err := e.lobbies.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if lobby.Status == entities.StatusClosed {
		return lobby, nil
	}

	e.closeLocked(ctx, lobby, reason)

	if err := e.lobbies.Save(ctx, lobby); err != nil {
		return nil, err
	}
	e.broadcaster.BroadcastClosed(ctx, id, reason)
	return lobby, nil
}

func (e *LobbyEngine) closeLocked(ctx context.Context, lobby *entities.Lobby, reason string) {
	e.cancelAutoStart(lobby.ID)
	lobby.Close()
	e.appendSystemMessage(ctx, lobby, "lobby closed: "+reason)
}

func (e *LobbyEngine) appendSystemMessage(ctx context.Context, lobby *entities.Lobby, text string) {
	chat, err := e.chats.GetByID(ctx, lobby.ChatID)
	if err != nil || chat == nil {
		return
	}
	msg := chat.AppendSystemMessage(text)
	if err := e.chats.Save(ctx, chat); err != nil {
		slog.WarnContext(ctx, "failed to persist system message", "lobby_id", lobby.ID, "error", err)
		return
	}
	e.broadcaster.BroadcastChatMessage(ctx, lobby.ID, msg)
}

// SendSystemMessage is the public entry point for system messages not tied
// to a membership transition (used by admin tooling / tests).
func (e *LobbyEngine) SendSystemMessage(ctx context.Context, lobbyID uuid.UUID, text string) error {
	lobby, err := e.lobbies.GetByID(ctx, lobbyID)
	if err != nil {
		return err
	}
	e.appendSystemMessage(ctx, lobby, text)
	return nil
}

func (e *LobbyEngine) GetUserLobbies(ctx context.Context, userID uuid.UUID, includeHistory bool, limit int) ([]*entities.Lobby, error) {
	return e.lobbies.ListForUser(ctx, userID, includeHistory, limit)
}

func (e *LobbyEngine) SendChatMessage(ctx context.Context, lobbyID, senderID uuid.UUID, content string, contentType entities.ContentType) (entities.Message, error) {
	if err := entities.ValidateMessageContent(content); err != nil {
		return entities.Message{}, err
	}

	lobby, err := e.lobbies.GetByID(ctx, lobbyID)
	if err != nil {
		return entities.Message{}, err
	}
	if !lobby.IsMember(senderID) {
		return entities.Message{}, common.NewErrForbidden("only active lobby members may send chat messages")
	}

	chat, err := e.chats.GetByID(ctx, lobby.ChatID)
	if err != nil {
		return entities.Message{}, err
	}

	if contentType == "" {
		contentType = entities.ContentText
	}
	sid := senderID
	msg := chat.AppendMessage(&sid, content, contentType)
	if err := e.chats.Save(ctx, chat); err != nil {
		return entities.Message{}, err
	}

	e.broadcaster.BroadcastChatMessage(ctx, lobbyID, msg)
	return msg, nil
}

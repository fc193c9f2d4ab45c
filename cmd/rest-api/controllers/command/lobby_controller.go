package cmd_controllers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/golobby/container/v3"
	"github.com/google/uuid"

	common "github.com/matchcore/core/pkg/domain"
	lobbyentities "github.com/matchcore/core/pkg/domain/lobby/entities"
	lobbyin "github.com/matchcore/core/pkg/domain/lobby/ports/in"

	"github.com/matchcore/core/cmd/rest-api/controllers"
)

// LobbyController exposes lobby membership, readiness, chat, and closing.
// Lobbies themselves are created by the matchmaking engine once a match
// forms, so there is no client-facing create-lobby endpoint here.
type LobbyController struct {
	container container.Container
	helper    *controllers.ControllerHelper

	getLobby       lobbyin.GetLobbyUseCase
	getUserLobbies lobbyin.GetUserLobbiesUseCase
	join           lobbyin.JoinLobbyUseCase
	leave          lobbyin.LeaveLobbyUseCase
	setReady       lobbyin.SetMemberReadyUseCase
	closeLobby     lobbyin.CloseLobbyUseCase
	sendChat       lobbyin.SendChatMessageUseCase
}

func NewLobbyController(c container.Container) *LobbyController {
	ctrl := &LobbyController{container: c, helper: controllers.NewControllerHelper()}

	if err := c.Resolve(&ctrl.getLobby); err != nil {
		slog.Error("failed to resolve GetLobbyUseCase", "err", err)
	}
	if err := c.Resolve(&ctrl.getUserLobbies); err != nil {
		slog.Error("failed to resolve GetUserLobbiesUseCase", "err", err)
	}
	if err := c.Resolve(&ctrl.join); err != nil {
		slog.Error("failed to resolve JoinLobbyUseCase", "err", err)
	}
	if err := c.Resolve(&ctrl.leave); err != nil {
		slog.Error("failed to resolve LeaveLobbyUseCase", "err", err)
	}
	if err := c.Resolve(&ctrl.setReady); err != nil {
		slog.Error("failed to resolve SetMemberReadyUseCase", "err", err)
	}
	if err := c.Resolve(&ctrl.closeLobby); err != nil {
		slog.Error("failed to resolve CloseLobbyUseCase", "err", err)
	}
	if err := c.Resolve(&ctrl.sendChat); err != nil {
		slog.Error("failed to resolve SendChatMessageUseCase", "err", err)
	}

	return ctrl
}

// GetLobbyHandler handles GET /api/lobbies/{lobby_id}.
func (ctrl *LobbyController) GetLobbyHandler(apiContext context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := common.GetResourceOwner(r.Context())

		lobbyID, err := uuid.Parse(lobbyIDParam(r))
		if err != nil {
			controllers.WriteBadRequest(w, "invalid lobby_id")
			return
		}

		lobby, err := ctrl.getLobby.Exec(r.Context(), lobbyin.GetLobbyQuery{LobbyID: lobbyID, ViewerID: owner.UserID})
		if ctrl.helper.HandleError(w, r, err, "failed to get lobby") {
			return
		}

		ctrl.helper.WriteOK(w, lobby)
	}
}

// GetUserLobbiesHandler handles GET /api/lobbies.
func (ctrl *LobbyController) GetUserLobbiesHandler(apiContext context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := common.GetResourceOwner(r.Context())

		includeHistory := r.URL.Query().Get("include_history") == "true"

		lobbies, err := ctrl.getUserLobbies.Exec(r.Context(), lobbyin.GetUserLobbiesQuery{
			UserID:         owner.UserID,
			IncludeHistory: includeHistory,
			Limit:          queryInt(r, "limit", 20),
		})
		if ctrl.helper.HandleError(w, r, err, "failed to get user lobbies") {
			return
		}

		ctrl.helper.WriteOK(w, lobbies)
	}
}

// JoinLobbyHandler handles POST /api/lobbies/{lobby_id}/members.
func (ctrl *LobbyController) JoinLobbyHandler(apiContext context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := common.GetResourceOwner(r.Context())

		lobbyID, err := uuid.Parse(lobbyIDParam(r))
		if err != nil {
			controllers.WriteBadRequest(w, "invalid lobby_id")
			return
		}

		lobby, err := ctrl.join.Exec(r.Context(), lobbyin.JoinLobbyCommand{LobbyID: lobbyID, UserID: owner.UserID})
		if ctrl.helper.HandleError(w, r, err, "failed to join lobby") {
			return
		}

		ctrl.helper.WriteOK(w, lobby)
	}
}

// LeaveLobbyHandler handles DELETE /api/lobbies/{lobby_id}/members/me.
func (ctrl *LobbyController) LeaveLobbyHandler(apiContext context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := common.GetResourceOwner(r.Context())

		lobbyID, err := uuid.Parse(lobbyIDParam(r))
		if err != nil {
			controllers.WriteBadRequest(w, "invalid lobby_id")
			return
		}

		lobby, err := ctrl.leave.Exec(r.Context(), lobbyin.LeaveLobbyCommand{LobbyID: lobbyID, UserID: owner.UserID})
		if ctrl.helper.HandleError(w, r, err, "failed to leave lobby") {
			return
		}

		ctrl.helper.WriteOK(w, lobby)
	}
}

// SetMemberReadyRequest is the body for SetMemberReadyHandler.
type SetMemberReadyRequest struct {
	Ready bool `json:"ready"`
}

// SetMemberReadyHandler handles PUT /api/lobbies/{lobby_id}/members/me/ready.
func (ctrl *LobbyController) SetMemberReadyHandler(apiContext context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := common.GetResourceOwner(r.Context())

		lobbyID, err := uuid.Parse(lobbyIDParam(r))
		if err != nil {
			controllers.WriteBadRequest(w, "invalid lobby_id")
			return
		}

		var body SetMemberReadyRequest
		if !ctrl.helper.DecodeJSONRequest(w, r, &body) {
			return
		}

		lobby, err := ctrl.setReady.Exec(r.Context(), lobbyin.SetMemberReadyCommand{LobbyID: lobbyID, UserID: owner.UserID, Ready: body.Ready})
		if ctrl.helper.HandleError(w, r, err, "failed to set member ready") {
			return
		}

		ctrl.helper.WriteOK(w, lobby)
	}
}

// CloseLobbyRequest is the body for CloseLobbyHandler.
type CloseLobbyRequest struct {
	Reason string `json:"reason"`
}

// CloseLobbyHandler handles DELETE /api/lobbies/{lobby_id}.
func (ctrl *LobbyController) CloseLobbyHandler(apiContext context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lobbyID, err := uuid.Parse(lobbyIDParam(r))
		if err != nil {
			controllers.WriteBadRequest(w, "invalid lobby_id")
			return
		}

		var body CloseLobbyRequest
		_ = json.NewDecoder(r.Body).Decode(&body) // reason is optional; ignore a missing/empty body

		lobby, err := ctrl.closeLobby.Exec(r.Context(), lobbyin.CloseLobbyCommand{LobbyID: lobbyID, Reason: body.Reason})
		if ctrl.helper.HandleError(w, r, err, "failed to close lobby") {
			return
		}

		ctrl.helper.WriteOK(w, lobby)
	}
}

// SendChatMessageRequest is the body for SendChatMessageHandler.
type SendChatMessageRequest struct {
	Content     string                    `json:"content"`
	ContentType lobbyentities.ContentType `json:"content_type"`
}

// SendChatMessageHandler handles POST /api/lobbies/{lobby_id}/messages.
func (ctrl *LobbyController) SendChatMessageHandler(apiContext context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := common.GetResourceOwner(r.Context())

		lobbyID, err := uuid.Parse(lobbyIDParam(r))
		if err != nil {
			controllers.WriteBadRequest(w, "invalid lobby_id")
			return
		}

		var body SendChatMessageRequest
		if !ctrl.helper.DecodeJSONRequest(w, r, &body) {
			return
		}
		if body.ContentType == "" {
			body.ContentType = lobbyentities.ContentText
		}

		message, err := ctrl.sendChat.Exec(r.Context(), lobbyin.SendChatMessageCommand{
			LobbyID:     lobbyID,
			SenderID:    owner.UserID,
			Content:     body.Content,
			ContentType: body.ContentType,
		})
		if ctrl.helper.HandleError(w, r, err, "failed to send chat message") {
			return
		}

		ctrl.helper.WriteCreated(w, message)
	}
}

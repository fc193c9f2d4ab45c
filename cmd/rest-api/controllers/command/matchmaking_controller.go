package cmd_controllers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/golobby/container/v3"
	"github.com/google/uuid"

	common "github.com/matchcore/core/pkg/domain"
	mmentities "github.com/matchcore/core/pkg/domain/matchmaking/entities"
	mmin "github.com/matchcore/core/pkg/domain/matchmaking/ports/in"
	mmout "github.com/matchcore/core/pkg/domain/matchmaking/ports/out"
	"github.com/matchcore/core/pkg/infra/security"

	"github.com/matchcore/core/cmd/rest-api/controllers"
)

const (
	submitRateRefillPerSec = 0.2 // one submit every 5s, sustained
	submitRateBurst        = 3
	cancelRateRefillPerSec = 1.0
	cancelRateBurst        = 5
	rateLimiterIdleAfter   = 30 * time.Minute
	rateLimiterCleanupTick = 5 * time.Minute
)

// MatchmakingController exposes the matchmaking queue: submit/cancel a
// match request, inspect the caller's live request, and browse match
// history, all resolved from the container's wired use cases.
type MatchmakingController struct {
	container container.Container
	helper    *controllers.ControllerHelper

	submit     mmin.SubmitMatchRequestUseCase
	cancel     mmin.CancelMatchRequestUseCase
	getCurrent mmin.GetCurrentMatchRequestUseCase
	getHistory mmin.GetMatchHistoryUseCase

	submitLimiter *security.RateLimiter
	cancelLimiter *security.RateLimiter
}

func NewMatchmakingController(c container.Container) *MatchmakingController {
	ctrl := &MatchmakingController{
		container:     c,
		helper:        controllers.NewControllerHelper(),
		submitLimiter: security.NewRateLimiter(submitRateRefillPerSec, submitRateBurst),
		cancelLimiter: security.NewRateLimiter(cancelRateRefillPerSec, cancelRateBurst),
	}
	go ctrl.submitLimiter.RunCleanup(context.Background(), rateLimiterCleanupTick, rateLimiterIdleAfter)
	go ctrl.cancelLimiter.RunCleanup(context.Background(), rateLimiterCleanupTick, rateLimiterIdleAfter)

	if err := c.Resolve(&ctrl.submit); err != nil {
		slog.Error("failed to resolve SubmitMatchRequestUseCase", "err", err)
	}
	if err := c.Resolve(&ctrl.cancel); err != nil {
		slog.Error("failed to resolve CancelMatchRequestUseCase", "err", err)
	}
	if err := c.Resolve(&ctrl.getCurrent); err != nil {
		slog.Error("failed to resolve GetCurrentMatchRequestUseCase", "err", err)
	}
	if err := c.Resolve(&ctrl.getHistory); err != nil {
		slog.Error("failed to resolve GetMatchHistoryUseCase", "err", err)
	}

	return ctrl
}

// SubmitMatchRequestHandler handles POST /api/matchmaking/requests.
func (ctrl *MatchmakingController) SubmitMatchRequestHandler(apiContext context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := common.GetResourceOwner(r.Context())

		if err := ctrl.submitLimiter.Check(r.Context(), owner.UserID); ctrl.helper.HandleError(w, r, err, "submit match request rate limited") {
			return
		}

		var criteria mmentities.Criteria
		if !ctrl.helper.DecodeJSONRequest(w, r, &criteria) {
			return
		}

		request, err := ctrl.submit.Exec(r.Context(), mmin.SubmitMatchRequestCommand{UserID: owner.UserID, Criteria: criteria})
		if ctrl.helper.HandleError(w, r, err, "failed to submit match request") {
			return
		}

		ctrl.helper.WriteCreated(w, request)
	}
}

// CancelMatchRequestHandler handles DELETE /api/matchmaking/requests/{requestId}.
func (ctrl *MatchmakingController) CancelMatchRequestHandler(apiContext context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := common.GetResourceOwner(r.Context())

		if err := ctrl.cancelLimiter.Check(r.Context(), owner.UserID); ctrl.helper.HandleError(w, r, err, "cancel match request rate limited") {
			return
		}

		requestID, err := uuid.Parse(requestIDParam(r))
		if err != nil {
			controllers.WriteBadRequest(w, "invalid requestId")
			return
		}

		request, err := ctrl.cancel.Exec(r.Context(), mmin.CancelMatchRequestCommand{UserID: owner.UserID, RequestID: requestID})
		if ctrl.helper.HandleError(w, r, err, "failed to cancel match request") {
			return
		}

		ctrl.helper.WriteOK(w, request)
	}
}

// GetCurrentMatchRequestHandler handles GET /api/matchmaking/requests/current.
func (ctrl *MatchmakingController) GetCurrentMatchRequestHandler(apiContext context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := common.GetResourceOwner(r.Context())

		result, err := ctrl.getCurrent.Exec(r.Context(), owner.UserID)
		if ctrl.helper.HandleError(w, r, err, "failed to get current match request") {
			return
		}

		ctrl.helper.WriteOK(w, result)
	}
}

// GetMatchHistoryHandler handles GET /api/matchmaking/history.
func (ctrl *MatchmakingController) GetMatchHistoryHandler(apiContext context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := common.GetResourceOwner(r.Context())

		filter := mmout.HistoryFilters{
			UserID: &owner.UserID,
			Page:   queryInt(r, "page", 1),
			Limit:  queryInt(r, "limit", 20),
		}

		if gameID := r.URL.Query().Get("game_id"); gameID != "" {
			if parsed, err := uuid.Parse(gameID); err == nil {
				filter.GameID = &parsed
			}
		}

		history, err := ctrl.getHistory.Exec(r.Context(), mmin.GetMatchHistoryQuery{UserID: owner.UserID, Filter: filter})
		if ctrl.helper.HandleError(w, r, err, "failed to get match history") {
			return
		}

		ctrl.helper.WriteOK(w, history)
	}
}

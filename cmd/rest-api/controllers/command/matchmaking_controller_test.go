package cmd_controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	common "github.com/matchcore/core/pkg/domain"
	mmentities "github.com/matchcore/core/pkg/domain/matchmaking/entities"
	mmin "github.com/matchcore/core/pkg/domain/matchmaking/ports/in"
	"github.com/matchcore/core/pkg/infra/security"

	"github.com/matchcore/core/cmd/rest-api/controllers"
)

type stubSubmit struct {
	request *mmentities.MatchRequest
	err     error
	lastCmd mmin.SubmitMatchRequestCommand
}

func (s *stubSubmit) Exec(ctx context.Context, cmd mmin.SubmitMatchRequestCommand) (*mmentities.MatchRequest, error) {
	s.lastCmd = cmd
	return s.request, s.err
}

type stubCancel struct {
	request *mmentities.MatchRequest
	err     error
	lastCmd mmin.CancelMatchRequestCommand
}

func (s *stubCancel) Exec(ctx context.Context, cmd mmin.CancelMatchRequestCommand) (*mmentities.MatchRequest, error) {
	s.lastCmd = cmd
	return s.request, s.err
}

type stubCurrent struct {
	result *mmin.CurrentMatchRequestResult
	err    error
}

func (s *stubCurrent) Exec(ctx context.Context, userID uuid.UUID) (*mmin.CurrentMatchRequestResult, error) {
	return s.result, s.err
}

type stubHistory struct {
	result []*mmentities.MatchHistory
	err    error
	lastQ  mmin.GetMatchHistoryQuery
}

func (s *stubHistory) Exec(ctx context.Context, q mmin.GetMatchHistoryQuery) ([]*mmentities.MatchHistory, error) {
	s.lastQ = q
	return s.result, s.err
}

func newTestController() (*MatchmakingController, *stubSubmit, *stubCancel, *stubCurrent, *stubHistory) {
	submit := &stubSubmit{}
	cancel := &stubCancel{}
	current := &stubCurrent{}
	history := &stubHistory{}

	ctrl := &MatchmakingController{
		helper:        controllers.NewControllerHelper(),
		submit:        submit,
		cancel:        cancel,
		getCurrent:    current,
		getHistory:    history,
		submitLimiter: security.NewRateLimiter(1000, 1000),
		cancelLimiter: security.NewRateLimiter(1000, 1000),
	}
	return ctrl, submit, cancel, current, history
}

func validCriteria() mmentities.Criteria {
	return mmentities.Criteria{
		Games:     []mmentities.GameWeight{{GameID: uuid.New(), Weight: 5}},
		GameMode:  mmentities.GameModeCasual,
		GroupSize: mmentities.GroupSize{Min: 1, Max: 5},
	}
}

func withAuthenticatedUser(r *http.Request, userID uuid.UUID) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), common.UserIDKey, userID))
}

func TestSubmitMatchRequestHandler_Success(t *testing.T) {
	ctrl, submit, _, _, _ := newTestController()
	userID := uuid.New()
	submit.request = &mmentities.MatchRequest{BaseEntity: common.BaseEntity{ID: uuid.New()}, UserID: userID}

	body, _ := json.Marshal(validCriteria())
	req := withAuthenticatedUser(httptest.NewRequest(http.MethodPost, "/api/matchmaking/requests", bytes.NewReader(body)), userID)
	rr := httptest.NewRecorder()

	ctrl.SubmitMatchRequestHandler(req.Context())(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, userID, submit.lastCmd.UserID)
}

func TestSubmitMatchRequestHandler_RateLimited(t *testing.T) {
	ctrl, submit, _, _, _ := newTestController()
	ctrl.submitLimiter = security.NewRateLimiter(0, 1)
	userID := uuid.New()
	submit.request = &mmentities.MatchRequest{BaseEntity: common.BaseEntity{ID: uuid.New()}, UserID: userID}

	body, _ := json.Marshal(validCriteria())
	makeReq := func() *http.Request {
		return withAuthenticatedUser(httptest.NewRequest(http.MethodPost, "/api/matchmaking/requests", bytes.NewReader(body)), userID)
	}

	first := httptest.NewRecorder()
	ctrl.SubmitMatchRequestHandler(context.Background())(first, makeReq())
	require.Equal(t, http.StatusCreated, first.Code)

	second := httptest.NewRecorder()
	ctrl.SubmitMatchRequestHandler(context.Background())(second, makeReq())
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestCancelMatchRequestHandler_InvalidRequestID(t *testing.T) {
	ctrl, _, _, _, _ := newTestController()
	userID := uuid.New()

	req := withAuthenticatedUser(httptest.NewRequest(http.MethodDelete, "/api/matchmaking/requests/not-a-uuid", nil), userID)
	req = mux.SetURLVars(req, map[string]string{string(common.RequestIDParamKey): "not-a-uuid"})
	rr := httptest.NewRecorder()

	ctrl.CancelMatchRequestHandler(req.Context())(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCancelMatchRequestHandler_Success(t *testing.T) {
	ctrl, _, cancel, _, _ := newTestController()
	userID := uuid.New()
	requestID := uuid.New()
	cancel.request = &mmentities.MatchRequest{BaseEntity: common.BaseEntity{ID: requestID}, UserID: userID}

	req := withAuthenticatedUser(httptest.NewRequest(http.MethodDelete, "/api/matchmaking/requests/"+requestID.String(), nil), userID)
	req = mux.SetURLVars(req, map[string]string{string(common.RequestIDParamKey): requestID.String()})
	rr := httptest.NewRecorder()

	ctrl.CancelMatchRequestHandler(req.Context())(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, requestID, cancel.lastCmd.RequestID)
}

func TestGetCurrentMatchRequestHandler(t *testing.T) {
	ctrl, _, _, current, _ := newTestController()
	userID := uuid.New()
	current.result = &mmin.CurrentMatchRequestResult{
		Request: &mmentities.MatchRequest{BaseEntity: common.BaseEntity{ID: uuid.New()}, UserID: userID},
		Queue:   mmin.QueueInfo{EstimatedWaitSeconds: 30, Confidence: "low"},
	}

	req := withAuthenticatedUser(httptest.NewRequest(http.MethodGet, "/api/matchmaking/requests/current", nil), userID)
	rr := httptest.NewRecorder()

	ctrl.GetCurrentMatchRequestHandler(req.Context())(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestGetMatchHistoryHandler_ParsesFilters(t *testing.T) {
	ctrl, _, _, _, history := newTestController()
	userID := uuid.New()
	gameID := uuid.New()
	history.result = []*mmentities.MatchHistory{}

	req := withAuthenticatedUser(httptest.NewRequest(http.MethodGet, "/api/matchmaking/history?page=2&limit=10&game_id="+gameID.String(), nil), userID)
	rr := httptest.NewRecorder()

	ctrl.GetMatchHistoryHandler(req.Context())(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, history.lastQ.Filter.GameID)
	assert.Equal(t, gameID, *history.lastQ.Filter.GameID)
	assert.Equal(t, 2, history.lastQ.Filter.Page)
	assert.Equal(t, 10, history.lastQ.Filter.Limit)
}

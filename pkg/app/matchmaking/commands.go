package matchmaking

import (
	"context"

	"github.com/google/uuid"

	common "github.com/matchcore/core/pkg/domain"
	mmentities "github.com/matchcore/core/pkg/domain/matchmaking/entities"
	mmin "github.com/matchcore/core/pkg/domain/matchmaking/ports/in"
	mmout "github.com/matchcore/core/pkg/domain/matchmaking/ports/out"
)

// submitMatchRequest rejects with Conflict if the user already has a
// searching request, BadRequest if the user is not active.
func (s *MatchmakingService) submitMatchRequest(ctx context.Context, cmd mmin.SubmitMatchRequestCommand) (*mmentities.MatchRequest, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}
	if !user.Status.IsActive() {
		return nil, common.NewErrBadRequest("user is not active")
	}

	if existing, err := s.requests.GetActiveByUser(ctx, cmd.UserID); err == nil && existing != nil {
		return nil, common.NewErrAlreadyExists("MatchRequest", "userId", cmd.UserID)
	}

	req := mmentities.NewMatchRequest(common.NewResourceOwner(cmd.UserID), cmd.UserID, cmd.Criteria)
	if err := s.requests.Save(ctx, req); err != nil {
		return nil, err
	}
	if err := s.queue.AddRequest(req); err != nil {
		return nil, err
	}

	return req, nil
}

func (s *MatchmakingService) cancelMatchRequest(ctx context.Context, cmd mmin.CancelMatchRequestCommand) (*mmentities.MatchRequest, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	req, err := s.requests.GetByID(ctx, cmd.RequestID)
	if err != nil {
		return nil, err
	}
	if req.UserID != cmd.UserID {
		return nil, common.NewErrForbidden("request does not belong to user")
	}
	if req.Status != mmentities.RequestSearching {
		return nil, common.NewErrBadRequest("only a searching request can be cancelled")
	}

	req.MarkCancelled()
	if err := s.requests.Save(ctx, req); err != nil {
		return nil, err
	}
	s.queue.RemoveRequest(req.UserID, req.ID, false)

	s.broadcaster.BroadcastRequestStatus(ctx, req.UserID, mmout.RequestStatusPayload{
		Status:    mmout.StatusCancelled,
		RequestID: req.ID,
	})
	return req, nil
}

func (s *MatchmakingService) getCurrentMatchRequest(ctx context.Context, userID uuid.UUID) (*mmin.CurrentMatchRequestResult, error) {
	req, err := s.requests.GetActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	bucket := bucketKeyFor(req)
	size, _ := s.queue.GetQueueSize(bucket)
	info := s.estimateWait(bucket, size)

	return &mmin.CurrentMatchRequestResult{Request: req, Queue: info}, nil
}

func (s *MatchmakingService) getMatchHistory(ctx context.Context, q mmin.GetMatchHistoryQuery) ([]*mmentities.MatchHistory, error) {
	return s.histories.ListForUser(ctx, q.UserID, q.Filter)
}

// The four ports/in interfaces each declare their own Exec(ctx, X) method,
// so MatchmakingService cannot implement all of them directly (the
// signatures collide). These thin wrappers are what the composition root
// actually hands out as each interface.
type submitMatchRequestAdapter struct{ svc *MatchmakingService }

func NewSubmitMatchRequestUseCase(svc *MatchmakingService) mmin.SubmitMatchRequestUseCase {
	return submitMatchRequestAdapter{svc: svc}
}

func (a submitMatchRequestAdapter) Exec(ctx context.Context, cmd mmin.SubmitMatchRequestCommand) (*mmentities.MatchRequest, error) {
	return a.svc.submitMatchRequest(ctx, cmd)
}

type cancelMatchRequestAdapter struct{ svc *MatchmakingService }

func NewCancelMatchRequestUseCase(svc *MatchmakingService) mmin.CancelMatchRequestUseCase {
	return cancelMatchRequestAdapter{svc: svc}
}

func (a cancelMatchRequestAdapter) Exec(ctx context.Context, cmd mmin.CancelMatchRequestCommand) (*mmentities.MatchRequest, error) {
	return a.svc.cancelMatchRequest(ctx, cmd)
}

type getCurrentMatchRequestAdapter struct{ svc *MatchmakingService }

func NewGetCurrentMatchRequestUseCase(svc *MatchmakingService) mmin.GetCurrentMatchRequestUseCase {
	return getCurrentMatchRequestAdapter{svc: svc}
}

func (a getCurrentMatchRequestAdapter) Exec(ctx context.Context, userID uuid.UUID) (*mmin.CurrentMatchRequestResult, error) {
	return a.svc.getCurrentMatchRequest(ctx, userID)
}

type getMatchHistoryAdapter struct{ svc *MatchmakingService }

func NewGetMatchHistoryUseCase(svc *MatchmakingService) mmin.GetMatchHistoryUseCase {
	return getMatchHistoryAdapter{svc: svc}
}

func (a getMatchHistoryAdapter) Exec(ctx context.Context, q mmin.GetMatchHistoryQuery) ([]*mmentities.MatchHistory, error) {
	return a.svc.getMatchHistory(ctx, q)
}

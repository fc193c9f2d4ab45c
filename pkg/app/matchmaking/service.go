package matchmaking

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	common "github.com/matchcore/core/pkg/domain"
	lobbyservices "github.com/matchcore/core/pkg/domain/lobby/services"
	mmentities "github.com/matchcore/core/pkg/domain/matchmaking/entities"
	mmin "github.com/matchcore/core/pkg/domain/matchmaking/ports/in"
	mmout "github.com/matchcore/core/pkg/domain/matchmaking/ports/out"
	"github.com/matchcore/core/pkg/domain/matchmaking/services"
	notifyout "github.com/matchcore/core/pkg/domain/notification/ports/out"
	userentities "github.com/matchcore/core/pkg/domain/user/entities"
	userout "github.com/matchcore/core/pkg/domain/user/ports/out"
	"github.com/matchcore/core/pkg/infra/metrics"
)

const (
	defaultTickInterval  = 5 * time.Second
	defaultLockTTL       = 10 * time.Second
	relaxationSweepAgeS  = 30
	relaxationSweepLimit = 50
	minEstimatedWaitSec  = 10
	maxEstimatedWaitSec  = 30 * 60
)

// MatchmakingService is the process-owned orchestrator: it accepts
// requests, drives the scheduler tick and the event-driven immediate pass,
// invokes MatchAlgorithm, and finalizes matches by handing formed groups to
// LobbyEngine under a named lock.
type MatchmakingService struct {
	requests     mmout.RequestStore
	histories    mmout.HistoryStore
	queue        *services.QueueManager
	users        userout.UserReader
	locks        mmout.LockManager
	notifier     notifyout.NotificationTrigger
	broadcaster  mmout.MatchmakingBroadcaster
	lobbyEngine  *lobbyservices.LobbyEngine
	tickInterval time.Duration
	lockTTL      time.Duration
	isProcessing int32
	ticker       *time.Ticker
}

func NewMatchmakingService(
	requests mmout.RequestStore,
	histories mmout.HistoryStore,
	queue *services.QueueManager,
	users userout.UserReader,
	locks mmout.LockManager,
	notifier notifyout.NotificationTrigger,
	broadcaster mmout.MatchmakingBroadcaster,
	lobbyEngine *lobbyservices.LobbyEngine,
	tickInterval time.Duration,
	lockTTL time.Duration,
) *MatchmakingService {
	if tickInterval <= 0 {
		tickInterval = defaultTickInterval
	}
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}

	s := &MatchmakingService{
		requests:     requests,
		histories:    histories,
		queue:        queue,
		users:        users,
		locks:        locks,
		notifier:     notifier,
		broadcaster:  broadcaster,
		lobbyEngine:  lobbyEngine,
		tickInterval: tickInterval,
		lockTTL:      lockTTL,
	}

	queue.On(func(evt services.RequestAddedEvent) {
		s.processSpecificQueue(context.Background(), evt.Bucket)
	})

	return s
}

// RebuildQueueIndex replays every persisted searching request into
// QueueManager. QueueManager is purely in-memory, so a process restart
// otherwise leaves it empty while RequestStore still thinks those requests
// are searching. The REST server runs this once at startup, before the
// scheduler loop; the rebuild-queue-index CLI command runs it in its own
// process.
func (s *MatchmakingService) RebuildQueueIndex(ctx context.Context) (int, error) {
	searching, err := s.requests.ListSearching(ctx)
	if err != nil {
		return 0, err
	}

	restored := 0
	for _, req := range searching {
		if err := s.queue.AddRequest(req); err != nil {
			slog.WarnContext(ctx, "failed to re-index searching request", "request_id", req.ID, "error", err)
			continue
		}
		restored++
	}
	return restored, nil
}

// RunExpirySweep runs one relaxation sweep (applyRelaxationToWaitingRequests)
// immediately. It does not transition any request to expired: requests past
// their MatchExpireTime stay searching.
func (s *MatchmakingService) RunExpirySweep(ctx context.Context) {
	s.applyRelaxationToWaitingRequests(ctx)
}

// Run drives the periodic scheduler tick; it owns the ticker's lifecycle
// and exits on ctx cancellation.
func (s *MatchmakingService) Run(ctx context.Context) {
	s.ticker = time.NewTicker(s.tickInterval)
	defer s.ticker.Stop()

	slog.InfoContext(ctx, "matchmaking scheduler started", "interval", s.tickInterval)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "matchmaking scheduler stopped")
			return
		case <-s.ticker.C:
			s.processAllQueues(ctx)
		}
	}
}

func (s *MatchmakingService) processAllQueues(ctx context.Context) {
	if !atomic.CompareAndSwapInt32(&s.isProcessing, 0, 1) {
		return
	}
	defer atomic.StoreInt32(&s.isProcessing, 0)

	for _, bucket := range s.queue.BucketKeys() {
		if size, ok := s.queue.GetQueueSize(bucket); ok && size >= services.MinGroupSize {
			s.processSpecificQueue(ctx, bucket)
		}
	}

	s.applyRelaxationToWaitingRequests(ctx)
}

func (s *MatchmakingService) processSpecificQueue(ctx context.Context, bucket services.BucketKey) {
	now := time.Now().UTC()
	snapshot := s.queue.GetQueueRequests(bucket)
	reportQueueDepth(bucket, len(snapshot))

	for _, req := range snapshot {
		s.emitSearchingStatus(ctx, req, now)
	}

	if len(snapshot) < services.MinGroupSize {
		return
	}

	users := s.resolveUsers(ctx, snapshot)
	enriched := services.Enrich(snapshot, users)
	groups := services.FindMatches(enriched, now)

	for _, group := range groups {
		if err := s.finalizeMatch(ctx, group); err != nil {
			slog.ErrorContext(ctx, "finalize match failed", "bucket", bucket.String(), "error", err)
		}
	}
}

func (s *MatchmakingService) resolveUsers(ctx context.Context, reqs []*mmentities.MatchRequest) map[uuid.UUID]*userentities.User {
	out := make(map[uuid.UUID]*userentities.User, len(reqs))
	for _, r := range reqs {
		if _, ok := out[r.UserID]; ok {
			continue
		}
		u, err := s.users.GetByID(ctx, r.UserID)
		if err != nil {
			slog.WarnContext(ctx, "could not resolve user for match request", "user_id", r.UserID, "error", err)
			continue
		}
		out[r.UserID] = u
	}
	return out
}

func (s *MatchmakingService) emitSearchingStatus(ctx context.Context, req *mmentities.MatchRequest, now time.Time) {
	bucketSize := len(s.queue.GetQueueRequests(bucketKeyFor(req)))
	info := s.estimateWait(bucketKeyFor(req), bucketSize)

	s.broadcaster.BroadcastRequestStatus(ctx, req.UserID, mmout.RequestStatusPayload{
		Status:           mmout.StatusSearching,
		RequestID:        req.ID,
		SearchTimeMs:     req.SearchDuration(now).Milliseconds(),
		PotentialMatches: info.PotentialMatches,
		EstimatedWaitSec: info.EstimatedWaitSeconds,
	})
}

func reportQueueDepth(bucket services.BucketKey, size int) {
	metrics.QueueDepth.WithLabelValues(bucket.GameID.String(), string(bucket.GameMode), string(bucket.Region)).Set(float64(size))
}

func bucketKeyFor(req *mmentities.MatchRequest) services.BucketKey {
	primary, _ := req.Criteria.PrimaryGame()
	region := mmentities.RegionAny
	for r := range req.Criteria.RegionSet() {
		region = r
		break
	}
	return services.BucketKey{GameID: primary.GameID, GameMode: req.Criteria.GameMode, Region: region}
}

// estimateWait implements the clamp(avgWaitTime x playersNeeded, 10s, 30min)
// estimator, falling back to avgWaitTime/minGroupSize once the bucket
// already meets the floor size.
func (s *MatchmakingService) estimateWait(bucket services.BucketKey, bucketSize int) mmin.QueueInfo {
	stats := s.queue.GetStats(bucket)
	avgWaitSec := stats.AvgWaitTimeMs / 1000

	var estimated float64
	confidence := "low"
	if bucketSize >= services.MinGroupSize {
		estimated = avgWaitSec / float64(services.MinGroupSize)
		confidence = "medium"
	} else {
		playersNeeded := services.MinGroupSize - bucketSize
		if playersNeeded < 0 {
			playersNeeded = 0
		}
		estimated = avgWaitSec * float64(playersNeeded)
	}

	if estimated < minEstimatedWaitSec {
		estimated = minEstimatedWaitSec
	}
	if estimated > maxEstimatedWaitSec {
		estimated = maxEstimatedWaitSec
	}

	return mmin.QueueInfo{
		EstimatedWaitSeconds: int(estimated),
		Confidence:           confidence,
		PotentialMatches:     bucketSize,
	}
}

// applyRelaxationToWaitingRequests scans up to relaxationSweepLimit oldest
// searching requests aged beyond relaxationSweepAgeS and re-triggers an
// immediate pass on any bucket whose relaxation actually advanced.
func (s *MatchmakingService) applyRelaxationToWaitingRequests(ctx context.Context) {
	aged, err := s.requests.ListAgedSearching(ctx, relaxationSweepAgeS, relaxationSweepLimit)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list aged requests for relaxation sweep", "error", err)
		return
	}

	now := time.Now().UTC()
	touched := map[string]services.BucketKey{}

	for _, req := range aged {
		if !req.ApplyRelaxation(now) {
			continue
		}
		if err := s.requests.Save(ctx, req); err != nil {
			slog.ErrorContext(ctx, "failed to persist relaxed request", "request_id", req.ID, "error", err)
			continue
		}
		k := bucketKeyFor(req)
		metrics.RelaxationAppliedTotal.WithLabelValues(k.GameID.String(), string(k.GameMode), string(k.Region)).Inc()
		touched[k.String()] = k
	}

	for _, k := range touched {
		s.processSpecificQueue(ctx, k)
	}
}

// deterministicMatchID derives a stable id for a candidate group from its
// participants' sorted request ids, so two concurrent finalize attempts
// over the same group (the ticker and the event-driven immediate pass can
// both snapshot it) compute the same id and collide on the same lock
// instead of each minting their own MatchHistory.
var matchHistoryNamespace = uuid.MustParse("7b3f9b2a-4c2e-4a7d-9e3a-2f6b7c8d9e0f")

func deterministicMatchID(group services.MatchGroup) uuid.UUID {
	requestIDs := make([]string, len(group.Members))
	for i, m := range group.Members {
		requestIDs[i] = m.Request.ID.String()
	}
	sort.Strings(requestIDs)
	return uuid.NewSHA1(matchHistoryNamespace, []byte(strings.Join(requestIDs, ",")))
}

// finalizeMatch is the critical section: acquire a named lock keyed on the
// group's deterministic match id, idempotently read-or-create the
// MatchHistory, materialize a Lobby, detach participants from the queue,
// and notify — releasing the lock unconditionally.
func (s *MatchmakingService) finalizeMatch(ctx context.Context, group services.MatchGroup) error {
	matchID := deterministicMatchID(group)
	owner := common.NewResourceOwner(group.Members[0].Request.UserID)
	bucket := bucketKeyFor(group.Members[0].Request)

	lockName := "match:" + matchID.String()
	lock, acquired, err := s.locks.Acquire(ctx, lockName, s.lockTTL)
	if err != nil {
		return err
	}
	if !acquired {
		metrics.LockContentionTotal.WithLabelValues(bucket.GameID.String()).Inc()
		existing, rerr := s.histories.GetByID(ctx, matchID)
		if rerr == nil && existing != nil && existing.IsFinalized() {
			return nil
		}
		return common.NewErrAlreadyExists("MatchHistory", "id", matchID)
	}
	defer lock.Release(ctx)

	finalizeStart := time.Now()
	defer func() {
		metrics.FinalizeLatency.WithLabelValues(bucket.GameID.String()).Observe(time.Since(finalizeStart).Seconds())
	}()

	history, err := s.histories.GetByID(ctx, matchID)
	if err != nil && !common.IsNotFoundError(err) {
		return err
	}
	if history != nil {
		if history.IsFinalized() {
			return nil
		}
	} else {
		history = buildMatchHistory(owner, group)
		history.ID = matchID
		if err := s.histories.Save(ctx, history); err != nil {
			return err
		}
	}

	participantIDs := make([]uuid.UUID, len(group.Members))
	for i, m := range group.Members {
		participantIDs[i] = m.Request.UserID
	}

	lobby, err := s.lobbyEngine.CreateLobby(ctx, owner, lobbyservices.CreateLobbyInput{
		MatchHistoryID: history.ID,
		GameID:         history.GameID,
		GameMode:       history.GameMode,
		Region:         history.Region,
		Participants:   participantIDs,
	})
	if err != nil {
		return err
	}

	history.AttachLobby(lobby.ID)
	if err := s.histories.Save(ctx, history); err != nil {
		return err
	}

	metrics.MatchesFormedTotal.WithLabelValues(bucket.GameID.String(), string(bucket.GameMode), string(bucket.Region)).Inc()

	for _, m := range group.Members {
		s.queue.RemoveRequest(m.Request.UserID, m.Request.ID, true)
		s.queue.UpdateStats(bucketKeyFor(m.Request), true, float64(m.Request.SearchDuration(time.Now().UTC()).Milliseconds()))

		m.Request.MarkMatched(lobby.ID)
		if err := s.requests.Save(ctx, m.Request); err != nil {
			slog.ErrorContext(ctx, "failed to persist matched request", "request_id", m.Request.ID, "error", err)
		}

		s.broadcaster.BroadcastRequestStatus(ctx, m.Request.UserID, mmout.RequestStatusPayload{
			Status:       mmout.StatusMatched,
			RequestID:    m.Request.ID,
			MatchID:      history.ID,
			LobbyID:      lobby.ID,
			Participants: participantIDs,
		})
		s.broadcaster.BroadcastLobbyCreated(ctx, m.Request.UserID, lobby.ID)

		if err := s.notifier.CreateNotification(ctx, m.Request.UserID, notifyout.Notification{
			Type:     notifyout.TypeMatchFound,
			Title:    "Match found!",
			Message:  "Your lobby is ready.",
			Data:     notifyout.NotificationData{EntityType: "lobby", EntityID: lobby.ID},
			Priority: notifyout.PriorityHigh,
		}); err != nil {
			slog.WarnContext(ctx, "failed to enqueue match_found notification", "user_id", m.Request.UserID, "error", err)
		}
	}

	slog.InfoContext(ctx, "match finalized", "match_history_id", history.ID, "lobby_id", lobby.ID, "participants", len(participantIDs))
	return nil
}

func buildMatchHistory(owner common.ResourceOwner, group services.MatchGroup) *mmentities.MatchHistory {
	now := time.Now().UTC()
	participants := make([]mmentities.Participant, len(group.Members))
	for i, m := range group.Members {
		participants[i] = mmentities.Participant{
			UserID:    m.Request.UserID,
			RequestID: m.Request.ID,
			JoinedAt:  now,
			Status:    mmentities.ParticipantActive,
		}
	}

	primary, _ := group.Members[0].Request.Criteria.PrimaryGame()
	region := mmentities.RegionAny
	for r := range group.Members[0].Request.Criteria.RegionSet() {
		region = r
		break
	}

	return mmentities.NewMatchHistory(owner, primary.GameID, group.Members[0].Request.Criteria.GameMode, region, participants, group.Quality, group.Metrics)
}

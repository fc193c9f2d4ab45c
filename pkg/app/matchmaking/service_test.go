package matchmaking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	common "github.com/matchcore/core/pkg/domain"
	lobbyentities "github.com/matchcore/core/pkg/domain/lobby/entities"
	lobbyservices "github.com/matchcore/core/pkg/domain/lobby/services"
	mmentities "github.com/matchcore/core/pkg/domain/matchmaking/entities"
	mmout "github.com/matchcore/core/pkg/domain/matchmaking/ports/out"
	"github.com/matchcore/core/pkg/domain/matchmaking/services"
	notifyout "github.com/matchcore/core/pkg/domain/notification/ports/out"
	userentities "github.com/matchcore/core/pkg/domain/user/entities"
)

// --- fakes, just enough surface to satisfy each port ---

type fakeRequestStore struct {
	byID      map[uuid.UUID]*mmentities.MatchRequest
	searching []*mmentities.MatchRequest
	aged      []*mmentities.MatchRequest
}

func newFakeRequestStore() *fakeRequestStore {
	return &fakeRequestStore{byID: map[uuid.UUID]*mmentities.MatchRequest{}}
}

func (f *fakeRequestStore) Save(ctx context.Context, req *mmentities.MatchRequest) error {
	f.byID[req.ID] = req
	return nil
}
func (f *fakeRequestStore) GetByID(ctx context.Context, id uuid.UUID) (*mmentities.MatchRequest, error) {
	return f.byID[id], nil
}
func (f *fakeRequestStore) GetActiveByUser(ctx context.Context, userID uuid.UUID) (*mmentities.MatchRequest, error) {
	return nil, nil
}
func (f *fakeRequestStore) ListSearching(ctx context.Context) ([]*mmentities.MatchRequest, error) {
	return f.searching, nil
}
func (f *fakeRequestStore) ListAgedSearching(ctx context.Context, olderThanSeconds int64, limit int) ([]*mmentities.MatchRequest, error) {
	return f.aged, nil
}
func (f *fakeRequestStore) UpdateStatus(ctx context.Context, id uuid.UUID, status mmentities.RequestStatus) error {
	return nil
}
func (f *fakeRequestStore) SupportsTransactions() bool { return false }

type fakeHistoryStore struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*mmentities.MatchHistory
}

func newFakeHistoryStore() *fakeHistoryStore {
	return &fakeHistoryStore{byID: map[uuid.UUID]*mmentities.MatchHistory{}}
}

func (f *fakeHistoryStore) Save(ctx context.Context, h *mmentities.MatchHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[h.ID] = h
	return nil
}
func (f *fakeHistoryStore) GetByID(ctx context.Context, id uuid.UUID) (*mmentities.MatchHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.byID[id]
	if !ok {
		return nil, common.NewErrNotFound("MatchHistory", "id", id)
	}
	return h, nil
}
func (f *fakeHistoryStore) ListForUser(ctx context.Context, userID uuid.UUID, filters mmout.HistoryFilters) ([]*mmentities.MatchHistory, error) {
	return nil, nil
}

type fakeUserReader struct{}

func (f *fakeUserReader) GetByID(ctx context.Context, id uuid.UUID) (*userentities.User, error) {
	return &userentities.User{ID: id}, nil
}
func (f *fakeUserReader) TouchLastActive(ctx context.Context, id uuid.UUID, at time.Time) {}

// fakeLockManager mimics a real named-lease lock: the first Acquire for a
// given name succeeds, every concurrent Acquire for the same name fails
// until Release, matching the contention finalizeMatch relies on to
// collapse duplicate finalize attempts onto one winner.
type fakeLockManager struct {
	mu  sync.Mutex
	out map[string]bool
}

func newFakeLockManager() *fakeLockManager {
	return &fakeLockManager{out: map[string]bool{}}
}

func (f *fakeLockManager) Acquire(ctx context.Context, name string, ttl time.Duration) (mmout.Lock, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.out[name] {
		return nil, false, nil
	}
	f.out[name] = true
	return &fakeLock{mgr: f, name: name}, true, nil
}

type fakeLock struct {
	mgr  *fakeLockManager
	name string
}

func (l *fakeLock) Release(ctx context.Context) error {
	l.mgr.mu.Lock()
	defer l.mgr.mu.Unlock()
	delete(l.mgr.out, l.name)
	return nil
}

type fakeNotificationTrigger struct{}

func (f *fakeNotificationTrigger) CreateNotification(ctx context.Context, userID uuid.UUID, n notifyout.Notification) error {
	return nil
}

type fakeBroadcaster struct{}

func (f *fakeBroadcaster) BroadcastRequestStatus(ctx context.Context, userID uuid.UUID, payload mmout.RequestStatusPayload) {
}
func (f *fakeBroadcaster) BroadcastLobbyCreated(ctx context.Context, userID, lobbyID uuid.UUID) {}

type fakeLobbyStore struct{}

func (f *fakeLobbyStore) Save(ctx context.Context, lobby *lobbyentities.Lobby) error { return nil }
func (f *fakeLobbyStore) GetByID(ctx context.Context, id uuid.UUID) (*lobbyentities.Lobby, error) {
	return nil, nil
}
func (f *fakeLobbyStore) GetActiveForUser(ctx context.Context, userID uuid.UUID) (*lobbyentities.Lobby, error) {
	return nil, nil
}
func (f *fakeLobbyStore) ListForUser(ctx context.Context, userID uuid.UUID, includeHistory bool, limit int) ([]*lobbyentities.Lobby, error) {
	return nil, nil
}

type fakeChatStore struct{}

func (f *fakeChatStore) Save(ctx context.Context, chat *lobbyentities.Chat) error { return nil }
func (f *fakeChatStore) GetByID(ctx context.Context, id uuid.UUID) (*lobbyentities.Chat, error) {
	return nil, nil
}
func (f *fakeChatStore) GetByLobbyID(ctx context.Context, lobbyID uuid.UUID) (*lobbyentities.Chat, error) {
	return nil, nil
}

type fakeLobbyBroadcaster struct{}

func (f *fakeLobbyBroadcaster) BroadcastLobbyUpdate(ctx context.Context, lobby *lobbyentities.Lobby) {}
func (f *fakeLobbyBroadcaster) BroadcastMemberJoined(ctx context.Context, lobbyID, userID uuid.UUID) {}
func (f *fakeLobbyBroadcaster) BroadcastMemberLeft(ctx context.Context, lobbyID, userID uuid.UUID)   {}
func (f *fakeLobbyBroadcaster) BroadcastMemberReady(ctx context.Context, lobbyID, userID uuid.UUID, ready bool) {
}
func (f *fakeLobbyBroadcaster) BroadcastClosed(ctx context.Context, lobbyID uuid.UUID, reason string) {
}
func (f *fakeLobbyBroadcaster) BroadcastChatMessage(ctx context.Context, lobbyID uuid.UUID, msg lobbyentities.Message) {
}
func (f *fakeLobbyBroadcaster) BroadcastTyping(ctx context.Context, lobbyID, userID uuid.UUID, isTyping bool) {
}

func newTestService(requests *fakeRequestStore) *MatchmakingService {
	return newTestServiceWithHistory(requests, newFakeHistoryStore(), newFakeLockManager())
}

func newTestServiceWithHistory(requests *fakeRequestStore, histories *fakeHistoryStore, locks *fakeLockManager) *MatchmakingService {
	queue := services.NewQueueManager()
	lobbyEngine := lobbyservices.NewLobbyEngine(&fakeLobbyStore{}, &fakeChatStore{}, &fakeUserReader{}, &fakeLobbyBroadcaster{})

	return NewMatchmakingService(
		requests,
		histories,
		queue,
		&fakeUserReader{},
		locks,
		&fakeNotificationTrigger{},
		&fakeBroadcaster{},
		lobbyEngine,
		time.Minute,
		10*time.Second,
	)
}

func searchingRequest(gameID uuid.UUID) *mmentities.MatchRequest {
	return &mmentities.MatchRequest{
		UserID: uuid.New(),
		Status: mmentities.RequestSearching,
		Criteria: mmentities.Criteria{
			Games:     []mmentities.GameWeight{{GameID: gameID, Weight: 5}},
			GameMode:  mmentities.GameModeCasual,
			GroupSize: mmentities.GroupSize{Min: 1, Max: 5},
		},
		SearchStartTime: time.Now().UTC(),
	}
}

func TestRebuildQueueIndex_RestoresSearchingRequests(t *testing.T) {
	requests := newFakeRequestStore()
	gameID := uuid.New()
	requests.searching = []*mmentities.MatchRequest{searchingRequest(gameID), searchingRequest(gameID)}

	svc := newTestService(requests)

	restored, err := svc.RebuildQueueIndex(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, restored)
}

func TestRebuildQueueIndex_NoSearchingRequests(t *testing.T) {
	svc := newTestService(newFakeRequestStore())

	restored, err := svc.RebuildQueueIndex(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, restored)
}

func testMatchGroup(gameID uuid.UUID) services.MatchGroup {
	members := make([]services.EnrichedRequest, services.MinGroupSize)
	for i := range members {
		req := searchingRequest(gameID)
		req.BaseEntity = common.NewEntity(common.NewResourceOwner(req.UserID))
		members[i] = services.EnrichedRequest{Request: req, User: &userentities.User{ID: req.UserID}}
	}
	return services.MatchGroup{Members: members}
}

func TestFinalizeMatch_DeterministicIDCollidesAcrossAttempts(t *testing.T) {
	histories := newFakeHistoryStore()
	locks := newFakeLockManager()
	svc := newTestServiceWithHistory(newFakeRequestStore(), histories, locks)
	group := testMatchGroup(uuid.New())

	matchID := deterministicMatchID(group)

	require.NoError(t, svc.finalizeMatch(context.Background(), group))

	history, err := histories.GetByID(context.Background(), matchID)
	require.NoError(t, err)
	assert.True(t, history.IsFinalized())

	// Re-finalizing the same candidate group (e.g. the ticker racing the
	// event-driven pass) must land on the same match id and find it already
	// finalized, instead of minting a second MatchHistory/Lobby.
	require.NoError(t, svc.finalizeMatch(context.Background(), group))

	assert.Len(t, histories.byID, 1)
}

func TestFinalizeMatch_LockHeldByConcurrentAttemptIsRejected(t *testing.T) {
	histories := newFakeHistoryStore()
	locks := newFakeLockManager()
	svc := newTestServiceWithHistory(newFakeRequestStore(), histories, locks)
	group := testMatchGroup(uuid.New())

	matchID := deterministicMatchID(group)
	lockName := "match:" + matchID.String()

	holder, acquired, err := locks.Acquire(context.Background(), lockName, time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)
	defer holder.Release(context.Background())

	err = svc.finalizeMatch(context.Background(), group)
	require.Error(t, err)

	assert.Len(t, histories.byID, 0)
}

func TestFinalizeMatch_DerivesOwnerFromFirstParticipant(t *testing.T) {
	histories := newFakeHistoryStore()
	locks := newFakeLockManager()
	svc := newTestServiceWithHistory(newFakeRequestStore(), histories, locks)
	group := testMatchGroup(uuid.New())

	require.NoError(t, svc.finalizeMatch(context.Background(), group))

	matchID := deterministicMatchID(group)
	history, err := histories.GetByID(context.Background(), matchID)
	require.NoError(t, err)
	assert.Equal(t, group.Members[0].Request.UserID, history.ResourceOwner.UserID)
}

func TestRunExpirySweep_PersistsRelaxedRequests(t *testing.T) {
	requests := newFakeRequestStore()
	req := searchingRequest(uuid.New())
	req.SearchStartTime = time.Now().UTC().Add(-time.Hour)
	requests.aged = []*mmentities.MatchRequest{req}

	svc := newTestService(requests)

	svc.RunExpirySweep(context.Background())

	saved, ok := requests.byID[req.ID]
	require.True(t, ok)
	assert.True(t, saved.RelaxationLevel > 0)
}

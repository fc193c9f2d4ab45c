package services

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	common "github.com/matchcore/core/pkg/domain"
	"github.com/matchcore/core/pkg/domain/matchmaking/entities"
)

// BucketKey identifies a (game, mode, region) partition of the
// searching-request space.
type BucketKey struct {
	GameID   uuid.UUID
	GameMode entities.GameMode
	Region   entities.Region
}

func (k BucketKey) String() string {
	return fmt.Sprintf("%s:%s:%s", k.GameID, k.GameMode, k.Region)
}

// RequestAddedEvent is emitted once per submitted request, per bucket it
// was indexed under.
type RequestAddedEvent struct {
	Bucket    BucketKey
	RequestID uuid.UUID
}

type bucketStats struct {
	avgWaitTimeMs float64
	matchedCount  int64
}

// QueueManager is the in-memory index of active searching requests. All
// mutation is guarded by a single mutex: the bucket map is small and
// contended briefly per operation, so the reference's per-bucket locking is
// simplified to one lock guarding the whole index — correctness matters
// more here than sub-millisecond contention.
type QueueManager struct {
	mu        sync.Mutex
	bucketKey map[string]BucketKey
	buckets   map[string][]*entities.MatchRequest
	byUser    map[uuid.UUID]*entities.MatchRequest
	stats     map[string]*bucketStats
	handlers  []func(RequestAddedEvent)
}

func NewQueueManager() *QueueManager {
	return &QueueManager{
		bucketKey: make(map[string]BucketKey),
		buckets:   make(map[string][]*entities.MatchRequest),
		byUser:    make(map[uuid.UUID]*entities.MatchRequest),
		stats:     make(map[string]*bucketStats),
	}
}

// On registers a callback invoked (outside the lock) whenever a request is
// added to a bucket. MatchmakingService uses this to trigger an immediate
// processSpecificQueue pass for that bucket.
func (q *QueueManager) On(handler func(RequestAddedEvent)) {
	q.mu.Lock()
	q.handlers = append(q.handlers, handler)
	q.mu.Unlock()
}

// AddRequest indexes req under every (gameId, gameMode, region) bucket its
// criteria spans, plus the user reverse index. Fails if the user already
// has an indexed request.
func (q *QueueManager) AddRequest(req *entities.MatchRequest) error {
	q.mu.Lock()

	if _, exists := q.byUser[req.UserID]; exists {
		q.mu.Unlock()
		return common.NewErrAlreadyExists("MatchRequest", "userId", req.UserID)
	}

	regions := req.Criteria.RegionSet()
	keys := make([]BucketKey, 0, len(regions)*len(req.Criteria.Games))
	for _, g := range req.Criteria.Games {
		for region := range regions {
			keys = append(keys, BucketKey{GameID: g.GameID, GameMode: req.Criteria.GameMode, Region: region})
		}
	}

	for _, k := range keys {
		ks := k.String()
		q.buckets[ks] = append(q.buckets[ks], req)
		q.bucketKey[ks] = k
	}
	q.byUser[req.UserID] = req

	handlers := append([]func(RequestAddedEvent){}, q.handlers...)
	q.mu.Unlock()

	for _, k := range keys {
		event := RequestAddedEvent{Bucket: k, RequestID: req.ID}
		for _, h := range handlers {
			h(event)
		}
	}
	return nil
}

// RemoveRequest removes req from every index it appears in. Idempotent:
// returns whether a removal actually occurred. silent suppresses nothing
// behaviorally here (there are no removal events to emit) but is accepted
// to mirror the calling convention finalizeMatch and cancel share.
func (q *QueueManager) RemoveRequest(userID, requestID uuid.UUID, silent bool) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	existing, ok := q.byUser[userID]
	if !ok || existing.ID != requestID {
		return false
	}
	delete(q.byUser, userID)

	for key, reqs := range q.buckets {
		filtered := reqs[:0]
		for _, r := range reqs {
			if r.ID != requestID {
				filtered = append(filtered, r)
			}
		}
		if len(filtered) == 0 {
			delete(q.buckets, key)
			delete(q.bucketKey, key)
		} else {
			q.buckets[key] = filtered
		}
	}
	return true
}

// GetQueueRequests returns a FIFO-ordered snapshot of the bucket.
func (q *QueueManager) GetQueueRequests(k BucketKey) []*entities.MatchRequest {
	q.mu.Lock()
	defer q.mu.Unlock()

	reqs := q.buckets[k.String()]
	snapshot := make([]*entities.MatchRequest, len(reqs))
	copy(snapshot, reqs)
	sort.SliceStable(snapshot, func(i, j int) bool {
		return snapshot[i].SearchStartTime.Before(snapshot[j].SearchStartTime)
	})
	return snapshot
}

// GetQueueSize reports bucket size and whether the bucket exists at all.
func (q *QueueManager) GetQueueSize(k BucketKey) (size int, found bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	reqs, ok := q.buckets[k.String()]
	return len(reqs), ok
}

func (q *QueueManager) GetUserRequest(userID uuid.UUID) (*entities.MatchRequest, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	r, ok := q.byUser[userID]
	return r, ok
}

// BucketKeys returns every currently populated bucket.
func (q *QueueManager) BucketKeys() []BucketKey {
	q.mu.Lock()
	defer q.mu.Unlock()

	keys := make([]BucketKey, 0, len(q.bucketKey))
	for _, k := range q.bucketKey {
		keys = append(keys, k)
	}
	return keys
}

// Stats is the queue health snapshot returned by GetStats.
type Stats struct {
	AvgWaitTimeMs float64
	MatchedCount  int64
}

func (q *QueueManager) GetStats(k BucketKey) Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	s, ok := q.stats[k.String()]
	if !ok {
		return Stats{AvgWaitTimeMs: 60000} // default per spec's 60s fallback
	}
	return Stats{AvgWaitTimeMs: s.avgWaitTimeMs, MatchedCount: s.matchedCount}
}

// UpdateStats accumulates an exponential moving average of search time for
// the bucket, and a running matched count when matched=true.
func (q *QueueManager) UpdateStats(k BucketKey, matched bool, searchTimeMs float64) {
	const alpha = 0.2

	q.mu.Lock()
	defer q.mu.Unlock()

	s, ok := q.stats[k.String()]
	if !ok {
		s = &bucketStats{avgWaitTimeMs: searchTimeMs}
		q.stats[k.String()] = s
	} else {
		s.avgWaitTimeMs = alpha*searchTimeMs + (1-alpha)*s.avgWaitTimeMs
	}
	if matched {
		s.matchedCount++
	}
}

// ClearQueues purges all indices; test-only.
func (q *QueueManager) ClearQueues() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.buckets = make(map[string][]*entities.MatchRequest)
	q.bucketKey = make(map[string]BucketKey)
	q.byUser = make(map[uuid.UUID]*entities.MatchRequest)
	q.stats = make(map[string]*bucketStats)
}

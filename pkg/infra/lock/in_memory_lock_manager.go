package lock

import (
	"context"
	"sync"
	"time"

	out "github.com/matchcore/core/pkg/domain/matchmaking/ports/out"
)

type inMemoryLease struct {
	name    string
	manager *InMemoryLockManager
	expires time.Time
}

func (l *inMemoryLease) Release(ctx context.Context) error {
	l.manager.mu.Lock()
	defer l.manager.mu.Unlock()

	if held, ok := l.manager.leases[l.name]; ok && held == l {
		delete(l.manager.leases, l.name)
	}
	return nil
}

// InMemoryLockManager is a single-process LockManager for tests and
// single-instance deployments: a mutex-guarded map standing in for the
// Redis SETNX+TTL scheme RedisLockManager implements for multi-instance
// deployments.
type InMemoryLockManager struct {
	mu     sync.Mutex
	leases map[string]*inMemoryLease
}

func NewInMemoryLockManager() *InMemoryLockManager {
	return &InMemoryLockManager{leases: make(map[string]*inMemoryLease)}
}

func (m *InMemoryLockManager) Acquire(ctx context.Context, name string, ttl time.Duration) (out.Lock, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if existing, ok := m.leases[name]; ok {
		if existing.expires.After(now) {
			return nil, false, nil
		}
		delete(m.leases, name)
	}

	lease := &inMemoryLease{name: name, manager: m, expires: now.Add(ttl)}
	m.leases[name] = lease
	return lease, true, nil
}

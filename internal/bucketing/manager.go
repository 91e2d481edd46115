package bucketing

import (
	"hash"
	"sync"
	"time"

	"github.com/spaolacci/murmur3"

	"recovery-service/internal/config"
)

// Manager assigns stable murmur3 buckets. User buckets spread account
// rows across Scylla partitions; event buckets partition the security
// event tables.
type Manager struct {
	userBuckets  int
	eventBuckets int
	hasherPool   sync.Pool
}

func NewManager(cfg *config.Config) *Manager {
	m := &Manager{
		userBuckets:  cfg.Bucketing.UserBuckets,
		eventBuckets: cfg.Bucketing.EventBuckets,
	}

	// Pool hashers to avoid per-call allocation
	m.hasherPool = sync.Pool{
		New: func() interface{} {
			return murmur3.New64()
		},
	}

	return m
}

// UserBucket returns the consistent bucket for a user id (0..userBuckets-1).
func (m *Manager) UserBucket(userID string) int {
	return m.bucket(userID, m.userBuckets)
}

// EventBucket returns the bucket for a security-event partition key.
func (m *Manager) EventBucket(identifier string) int {
	return m.bucket(identifier, m.eventBuckets)
}

// DateBucket returns the UTC date partition for event tables.
func (m *Manager) DateBucket(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func (m *Manager) UserBuckets() int {
	return m.userBuckets
}

func (m *Manager) bucket(key string, numBuckets int) int {
	if numBuckets <= 0 {
		return 0
	}

	h := m.hasherPool.Get().(hash.Hash64)
	defer m.hasherPool.Put(h)

	h.Reset()
	h.Write([]byte(key))
	return int(h.Sum64() % uint64(numBuckets))
}

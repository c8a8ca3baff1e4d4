package store

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ReplicateFunc pushes an envelope to the remote replica. Errors are
// best-effort and only logged.
type ReplicateFunc func(userID uint, data []byte) error

// Manager hands out one Store per user and runs the periodic best-effort
// replication loop. Stores are cached for the process lifetime; the database
// row (or local file) remains the durable copy.
type Manager struct {
	mu        sync.Mutex
	stores    map[uint]*Store
	db        *gorm.DB
	stateDir  string
	replicate ReplicateFunc
	log       *zap.SugaredLogger
	stop      chan struct{}
	stopOnce  sync.Once
}

// NewManager creates a store manager. db may be nil (offline mode); stores
// then persist to local files only.
func NewManager(db *gorm.DB, stateDir string, replicate ReplicateFunc, log *zap.SugaredLogger) *Manager {
	return &Manager{
		stores:    map[uint]*Store{},
		db:        db,
		stateDir:  stateDir,
		replicate: replicate,
		log:       log,
		stop:      make(chan struct{}),
	}
}

// ForUser returns the user's store, creating and loading it on first use.
func (m *Manager) ForUser(userID uint) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.stores[userID]; ok {
		return s
	}

	file := NewFilePersister(m.stateDir, userID)
	var p Persister = file
	if m.db != nil {
		p = NewFallbackPersister(NewSnapshotPersister(m.db, userID), file)
	}
	s := New(p, m.log)
	m.stores[userID] = s
	return s
}

// StartReplication begins the fire-and-forget sync loop. Local state is
// always the source of truth; replication never blocks a score computation.
func (m *Manager) StartReplication(interval time.Duration) {
	if m.replicate == nil || interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.replicateDirty()
			case <-m.stop:
				return
			}
		}
	}()
}

// Close stops the replication loop.
func (m *Manager) Close() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *Manager) replicateDirty() {
	m.mu.Lock()
	dirty := make(map[uint]*Store)
	for id, s := range m.stores {
		if s.Dirty() {
			dirty[id] = s
		}
	}
	m.mu.Unlock()

	for id, s := range dirty {
		data, err := s.Snapshot()
		if err != nil {
			continue
		}
		if err := m.replicate(id, data); err != nil {
			if m.log != nil {
				m.log.Debugf("state replication skipped user=%d err=%v", id, err)
			}
			continue
		}
		s.ClearDirty()
	}
}

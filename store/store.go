package store

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/leaplabs/leap-server/models"
)

// EnvelopeVersion is the on-disk snapshot format version.
const EnvelopeVersion = 1

// Wildcard subscribes to every state change.
const Wildcard = "*"

// Envelope wraps a persisted state tree so the format can evolve.
type Envelope struct {
	Version   int            `json:"version"`
	Timestamp int64          `json:"timestamp"`
	State     map[string]any `json:"state"`
}

// Persister durably stores one user's state envelope.
type Persister interface {
	// Load returns the saved envelope bytes, or ok=false when nothing has
	// been saved yet.
	Load() (data []byte, ok bool, err error)
	Save(data []byte) error
}

type listener struct {
	id int
	fn func(any)
}

// Store is the single source of truth for one user's state tree. All reads
// and writes go through key paths ("momentum.score"); every mutation
// persists the whole tree and notifies subscribers. Persistence failures are
// logged and never interrupt the in-memory state.
type Store struct {
	mu        sync.RWMutex
	state     map[string]any
	listeners map[string][]listener
	nextID    int
	persister Persister
	log       *zap.SugaredLogger
	dirty     bool
}

// New builds a store seeded with the default tree and, when the persister
// has a saved envelope, merges it on top key-by-key.
func New(p Persister, log *zap.SugaredLogger) *Store {
	s := &Store{
		state:     models.DefaultState(),
		listeners: map[string][]listener{},
		persister: p,
		log:       log,
	}
	s.load()
	return s
}

// Get resolves a dot-separated path. Missing paths return nil. An empty
// path returns the whole tree.
func (s *Store) Get(path string) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lookup(s.state, path)
}

// Set writes a value at path, creating intermediate objects as needed, then
// notifies subscribers and persists.
func (s *Store) Set(path string, value any) {
	s.mu.Lock()
	s.setLocked(path, value)
	s.mu.Unlock()

	s.notify(path)
	s.persist()
}

// Update shallow-merges partial onto the object at path. When the current
// value is not a plain object (or is an array) it is replaced outright. The
// read-merge-write runs under one lock so concurrent updates to the same
// path cannot drop each other's keys.
func (s *Store) Update(path string, partial map[string]any) {
	s.mu.Lock()
	value := any(partial)
	if current, ok := lookup(s.state, path).(map[string]any); ok {
		merged := make(map[string]any, len(current)+len(partial))
		for k, v := range current {
			merged[k] = v
		}
		for k, v := range partial {
			merged[k] = v
		}
		value = merged
	}
	s.setLocked(path, value)
	s.mu.Unlock()

	s.notify(path)
	s.persist()
}

// setLocked writes value at path, creating intermediate objects as needed.
// Callers hold s.mu.
func (s *Store) setLocked(path string, value any) {
	keys := strings.Split(path, ".")
	target := s.state
	for _, key := range keys[:len(keys)-1] {
		next, ok := target[key].(map[string]any)
		if !ok {
			next = map[string]any{}
			target[key] = next
		}
		target = next
	}
	target[keys[len(keys)-1]] = value
	s.dirty = true
}

// Subscribe registers a callback for changes at exactly path (or Wildcard
// for all changes). The returned function removes the subscription.
func (s *Store) Subscribe(path string, fn func(any)) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners[path] = append(s.listeners[path], listener{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		subs := s.listeners[path]
		for i, l := range subs {
			if l.id == id {
				s.listeners[path] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}
}

// Reset restores the default tree, persists it, and notifies wildcard
// listeners.
func (s *Store) Reset() {
	s.mu.Lock()
	s.state = models.DefaultState()
	s.dirty = true
	s.mu.Unlock()

	s.notify(Wildcard)
	s.persist()
}

// Snapshot serializes the current envelope. Used by the replication ticker.
func (s *Store) Snapshot() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return json.Marshal(Envelope{
		Version:   EnvelopeVersion,
		Timestamp: time.Now().UnixMilli(),
		State:     s.state,
	})
}

// Dirty reports whether the tree changed since the last ClearDirty.
func (s *Store) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// ClearDirty marks the current tree as replicated.
func (s *Store) ClearDirty() {
	s.mu.Lock()
	s.dirty = false
	s.mu.Unlock()
}

func (s *Store) notify(path string) {
	s.mu.RLock()
	var exact, wild []func(any)
	for _, l := range s.listeners[path] {
		exact = append(exact, l.fn)
	}
	if path != Wildcard {
		for _, l := range s.listeners[Wildcard] {
			wild = append(wild, l.fn)
		}
	}
	value := lookup(s.state, path)
	full := s.state
	s.mu.RUnlock()

	for _, fn := range exact {
		fn(value)
	}
	for _, fn := range wild {
		fn(full)
	}
}

func (s *Store) persist() {
	if s.persister == nil {
		return
	}
	data, err := s.Snapshot()
	if err != nil {
		s.logw("state serialize failed", err)
		return
	}
	if err := s.persister.Save(data); err != nil {
		s.logw("state persist failed", err)
	}
}

func (s *Store) load() {
	if s.persister == nil {
		return
	}
	data, ok, err := s.persister.Load()
	if err != nil {
		s.logw("state load failed", err)
		return
	}
	if !ok {
		return
	}
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		s.logw("state decode failed", err)
		return
	}
	if env.Version != EnvelopeVersion || env.State == nil {
		return
	}
	s.mu.Lock()
	s.state = mergeTree(s.state, env.State)
	s.mu.Unlock()
}

func (s *Store) logw(msg string, err error) {
	if s.log != nil {
		s.log.Warnf("%s: %v", msg, err)
	}
}

func lookup(tree map[string]any, path string) any {
	if path == "" || path == Wildcard {
		return tree
	}
	var value any = tree
	for _, key := range strings.Split(path, ".") {
		m, ok := value.(map[string]any)
		if !ok {
			return nil
		}
		value, ok = m[key]
		if !ok {
			return nil
		}
	}
	return value
}

// mergeTree overlays saved state onto the default tree. Objects merge
// recursively so new default fields survive old snapshots; scalars and
// arrays from the snapshot win.
func mergeTree(initial, saved map[string]any) map[string]any {
	merged := make(map[string]any, len(initial)+len(saved))
	for k, v := range initial {
		merged[k] = v
	}
	for k, v := range saved {
		savedObj, savedIsObj := v.(map[string]any)
		initObj, initIsObj := initial[k].(map[string]any)
		if savedIsObj && initIsObj {
			merged[k] = mergeTree(initObj, savedObj)
		} else if savedIsObj {
			merged[k] = mergeTree(map[string]any{}, savedObj)
		} else {
			merged[k] = v
		}
	}
	return merged
}

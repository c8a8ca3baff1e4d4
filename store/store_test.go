package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/leaplabs/leap-server/models"
)

// memPersister is an in-memory Persister for tests.
type memPersister struct {
	data     []byte
	ok       bool
	saves    int
	failSave bool
}

func (p *memPersister) Load() ([]byte, bool, error) {
	return p.data, p.ok, nil
}

func (p *memPersister) Save(data []byte) error {
	p.saves++
	if p.failSave {
		return errors.New("disk full")
	}
	p.data = append([]byte(nil), data...)
	p.ok = true
	return nil
}

func TestDefaultsArePresent(t *testing.T) {
	s := New(nil, nil)

	if got := s.Get("user.dailyCommitment"); got != float64(15) {
		t.Fatalf("default daily commitment = %v, want 15", got)
	}
	if got := s.Get("leagues.currentLeague"); got != "bronze" {
		t.Fatalf("default league = %v, want bronze", got)
	}
	if got := s.Get("momentum.score"); got != float64(0) {
		t.Fatalf("default score = %v, want 0", got)
	}
}

func TestSetCreatesIntermediatePaths(t *testing.T) {
	s := New(nil, nil)

	s.Set("a.b.c", 42)
	if got := s.Get("a.b.c"); got != 42 {
		t.Fatalf("Get after deep Set = %v, want 42", got)
	}
	if got := s.Get("a.missing"); got != nil {
		t.Fatalf("missing path should be nil, got %v", got)
	}
}

func TestUpdateShallowMerges(t *testing.T) {
	s := New(nil, nil)

	s.Set("settings", map[string]any{"theme": "dark", "notifications": true})
	s.Update("settings", map[string]any{"theme": "light"})

	if got := s.Get("settings.theme"); got != "light" {
		t.Fatalf("updated key = %v, want light", got)
	}
	if got := s.Get("settings.notifications"); got != true {
		t.Fatalf("untouched key lost: %v", got)
	}

	// Non-object target gets replaced outright.
	s.Set("momentum.score", 10)
	s.Update("momentum.score", map[string]any{"x": 1})
	if got := s.Get("momentum.score.x"); got != 1 {
		t.Fatalf("scalar should be replaced by the partial, got %v", got)
	}
}

func TestConcurrentUpdatesKeepEveryKey(t *testing.T) {
	s := New(nil, nil)
	s.Set("settings", map[string]any{})

	const writers = 50
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s.Update("settings", map[string]any{fmt.Sprintf("k%d", n): n})
		}(i)
	}
	wg.Wait()

	tree, ok := s.Get("settings").(map[string]any)
	if !ok {
		t.Fatalf("settings is not an object: %T", s.Get("settings"))
	}
	for i := 0; i < writers; i++ {
		key := fmt.Sprintf("k%d", i)
		if tree[key] != i {
			t.Fatalf("concurrent update lost %s: %v", key, tree[key])
		}
	}
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	s := New(nil, nil)

	var calls []any
	unsub := s.Subscribe("momentum.score", func(v any) { calls = append(calls, v) })

	s.Set("momentum.score", 55)
	if len(calls) != 1 || calls[0] != 55 {
		t.Fatalf("expected one callback with 55, got %v", calls)
	}

	// Other paths do not fire an exact subscription.
	s.Set("momentum.streak", 3)
	if len(calls) != 1 {
		t.Fatalf("unrelated path triggered callback: %v", calls)
	}

	unsub()
	s.Set("momentum.score", 60)
	if len(calls) != 1 {
		t.Fatalf("unsubscribed callback still fired: %v", calls)
	}
}

func TestWildcardSubscription(t *testing.T) {
	s := New(nil, nil)

	fired := 0
	s.Subscribe(Wildcard, func(v any) {
		fired++
		if _, ok := v.(map[string]any); !ok {
			t.Fatalf("wildcard should receive the full tree, got %T", v)
		}
	})

	s.Set("momentum.score", 10)
	s.Set("leagues.leaguePoints", 100)
	if fired != 2 {
		t.Fatalf("wildcard should fire on every change, got %d", fired)
	}
}

func TestResetRestoresDefaults(t *testing.T) {
	s := New(nil, nil)

	s.Set("momentum.score", 88)
	wildcardFired := false
	s.Subscribe(Wildcard, func(any) { wildcardFired = true })

	s.Reset()
	if got := s.Get("momentum.score"); got != float64(0) {
		t.Fatalf("reset should restore defaults, got %v", got)
	}
	if !wildcardFired {
		t.Fatal("reset should notify wildcard listeners")
	}
}

func TestMutationsPersist(t *testing.T) {
	p := &memPersister{}
	s := New(p, nil)

	s.Set("momentum.score", 12)
	if p.saves == 0 {
		t.Fatal("Set should persist")
	}

	var env Envelope
	if err := json.Unmarshal(p.data, &env); err != nil {
		t.Fatalf("saved envelope is not valid JSON: %v", err)
	}
	if env.Version != EnvelopeVersion {
		t.Fatalf("envelope version = %d, want %d", env.Version, EnvelopeVersion)
	}
	if env.Timestamp == 0 {
		t.Fatal("envelope timestamp missing")
	}
}

func TestLoadMergesOntoDefaults(t *testing.T) {
	saved, err := json.Marshal(Envelope{
		Version: EnvelopeVersion,
		State: map[string]any{
			"momentum": map[string]any{"score": 42, "streak": 6},
		},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	s := New(&memPersister{data: saved, ok: true}, nil)

	if got := s.Get("momentum.score"); got != float64(42) {
		t.Fatalf("saved score = %v, want 42", got)
	}
	// Fields the snapshot never saw keep their defaults.
	if got := s.Get("user.dailyCommitment"); got != float64(15) {
		t.Fatalf("default lost on merge: %v", got)
	}
	if got := s.Get("leagues.currentLeague"); got != "bronze" {
		t.Fatalf("default league lost on merge: %v", got)
	}
}

func TestUnknownEnvelopeVersionIgnored(t *testing.T) {
	saved, _ := json.Marshal(Envelope{
		Version: EnvelopeVersion + 1,
		State:   map[string]any{"momentum": map[string]any{"score": 99}},
	})

	s := New(&memPersister{data: saved, ok: true}, nil)
	if got := s.Get("momentum.score"); got != float64(0) {
		t.Fatalf("future envelope should be ignored, got score %v", got)
	}
}

func TestPersistFailureDoesNotLoseState(t *testing.T) {
	p := &memPersister{failSave: true}
	s := New(p, nil)

	s.Set("momentum.score", 33)
	if got := s.Get("momentum.score"); got != 33 {
		t.Fatalf("in-memory state must survive persist failure, got %v", got)
	}
	if !s.Dirty() {
		t.Fatal("failed persist should leave the store dirty")
	}
}

func TestDirtyTracking(t *testing.T) {
	s := New(nil, nil)
	if s.Dirty() {
		t.Fatal("fresh store should be clean")
	}

	s.Set("momentum.score", 5)
	if !s.Dirty() {
		t.Fatal("Set should mark the store dirty")
	}

	s.ClearDirty()
	if s.Dirty() {
		t.Fatal("ClearDirty should reset the flag")
	}
}

func TestTypedAccessorRoundTrip(t *testing.T) {
	s := New(nil, nil)

	ms := s.Momentum()
	ms.Streak = 4
	ms.LongestStreak = 9
	ms.LastActivityDate = models.Date("2026-01-10")
	ms.ActivityHistory = append(ms.ActivityHistory, models.ActivityRecord{
		Date: "2026-01-10", Actions: 5, Effort: 7,
	})
	s.PutMomentum(ms)

	got := s.Momentum()
	if got.Streak != 4 || got.LongestStreak != 9 {
		t.Fatalf("streaks lost in round trip: %+v", got)
	}
	if len(got.ActivityHistory) != 1 || got.ActivityHistory[0].Actions != 5 {
		t.Fatalf("history lost in round trip: %+v", got.ActivityHistory)
	}

	// The generic view stays in sync with the typed write.
	if v := s.Get("momentum.streak"); v != float64(4) {
		t.Fatalf("generic read after typed write = %v, want 4", v)
	}
}

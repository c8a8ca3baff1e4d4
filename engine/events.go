package engine

import "sync"

// Event is the closed set of notifications the scoring engines raise.
// Consumers switch on the concrete type; the compiler keeps the set honest.
type Event interface {
	event()
}

// MomentumUpdated fires after every momentum recomputation.
type MomentumUpdated struct {
	Score int
}

// StreakPaused fires when a multi-day gap pauses the streak.
type StreakPaused struct {
	DaysMissed int
}

// StreakResumed fires when activity after a pause revives the streak.
type StreakResumed struct {
	Streak int
}

// LeagueChanged fires whenever the league tier differs from the stored one,
// in either direction.
type LeagueChanged struct {
	NewLeague string
	Promoted  bool
	Points    int
}

func (MomentumUpdated) event() {}
func (StreakPaused) event()    {}
func (StreakResumed) event()   {}
func (LeagueChanged) event()   {}

// Bus is a synchronous in-process publish/subscribe fan-out. Publishers
// never wait on consumers beyond the callback returning.
type Bus struct {
	mu     sync.Mutex
	subs   map[int]func(Event)
	nextID int
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: map[int]func(Event){}}
}

// Subscribe registers a handler for all events. The returned function
// removes it.
func (b *Bus) Subscribe(fn func(Event)) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Publish delivers the event to every subscriber in registration order.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	fns := make([]func(Event), 0, len(b.subs))
	// deliver in subscription order; map iteration alone is randomized
	for i := 1; i <= b.nextID; i++ {
		if fn, ok := b.subs[i]; ok {
			fns = append(fns, fn)
		}
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(e)
	}
}

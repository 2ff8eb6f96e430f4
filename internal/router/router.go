// Package router is the process-wide combat event hub: it fans game events
// out to interested subscribers with O(1) bitmask kind filtering, supports
// both synchronous dispatch (for latency-critical kinds) and a bounded
// queue-then-drain path, and keeps lock-free per-kind statistics. Queue
// overflow logs at exponentially spaced drop counts rather than per drop.
package router

import (
	"log/slog"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ashgrove/legion/internal/ids"
)

// EventKind is a bitmask identifying one or more of the 32 combat event
// kinds. Subscribers register interest in a mask of kinds.
type EventKind uint32

const (
	KindDamage EventKind = 1 << iota
	KindHeal
	KindCastStart
	KindCastSuccess
	KindCastInterrupted
	KindAuraApplied
	KindAuraRemoved
	KindAuraStackChanged
	KindThreatChanged
	KindUnitDied
	KindCombatStarted
	KindCombatEnded
	KindEncounterStart
	KindEncounterEnd
	KindPhaseChanged
	KindSpellCastStart // kept distinct from KindCastStart: interrupt-latency-critical dispatch path
	KindPositionUpdate
	KindResourceChanged
	KindObjectiveStateChanged
	KindScoreChanged
	KindCCApplied
	KindCCBroken
	KindGroupRosterChanged
	KindLootDropped
	KindRespawn
	KindCorpseCreated
	KindCorpseRemoved
	KindKeystoneUpdated
	KindDeathPenalty
	KindCustom1
	KindCustom2
	KindCustom3
)

// numKinds is the total number of distinct event kind bits.
const numKinds = 32

// bitIndex returns the position (0..31) of the single set bit in k, or -1
// if k is zero or not a single bit.
func bitIndex(k EventKind) int {
	if k == 0 || k&(k-1) != 0 {
		return -1
	}
	for i := 0; i < numKinds; i++ {
		if EventKind(1<<uint(i)) == k {
			return i
		}
	}
	return -1
}

// SpellMeta is a small cached metadata pointer attached to spell-carrying
// events. It is opaque to the router; coordinators interpret it.
type SpellMeta struct {
	Name        string
	School      int
	IsInterrupt bool
	IsDispel    bool
	IsCC        bool
	CCCategory  ids.DRCategory
}

// CombatEvent is a single flat value carrying every event kind. Fields
// irrelevant to the event's Kind are left zero. Event is a plain value and
// is freely copied — it is never mutated after construction.
type CombatEvent struct {
	Kind      EventKind
	Timestamp time.Time
	Source    ids.EntityId
	Target    ids.EntityId

	Amount float64 // damage/heal amount

	SpellID   uint32
	SpellMeta *SpellMeta

	AuraID        uint32
	AuraStacks    int
	AuraRemaining time.Duration

	ThreatDelta float64

	EncounterID ids.EntityId
	Phase       int
}

// Subscriber receives dispatched events. Implementations must return from
// OnEvent in under 1ms; heavy work must be deferred by queuing an internal
// follow-up message rather than blocking the caller.
type Subscriber interface {
	OnEvent(event CombatEvent)
}

// Predicate is an optional per-subscription filter evaluated before
// delivery. A nil predicate always passes.
type Predicate func(CombatEvent) bool

type subscription struct {
	sub       Subscriber
	kinds     EventKind
	priority  int
	predicate Predicate
}

// OverflowPolicy controls what the bounded queue does when full.
type OverflowPolicy int

const (
	DropOldest OverflowPolicy = iota
	DropNewest
)

// Stats is a point-in-time snapshot of router counters.
type Stats struct {
	TotalDispatched int64
	TotalQueued     int64
	TotalDropped    int64
	PerKind         [numKinds]int64
}

// Router is the single process-wide combat event hub.
type Router struct {
	mu     sync.RWMutex
	subs   map[any]*subscription
	byKind [numKinds][]*subscription

	queueMu        sync.Mutex
	queue          []CombatEvent
	maxQueueSize   int
	overflowPolicy OverflowPolicy

	dispatchCounts [numKinds]atomic.Int64
	totalDispatched atomic.Int64
	totalQueued     atomic.Int64
	totalDropped    atomic.Int64

	logger          *slog.Logger
	lastDropWarning atomic.Int64
}

// Option configures a Router at construction.
type Option func(*Router)

// WithMaxQueueSize overrides the default bounded-queue capacity (10000).
func WithMaxQueueSize(n int) Option {
	return func(r *Router) { r.maxQueueSize = n }
}

// WithOverflowPolicy overrides the default drop-oldest overflow policy.
func WithOverflowPolicy(p OverflowPolicy) Option {
	return func(r *Router) { r.overflowPolicy = p }
}

// WithLogger attaches a logger for subscriber-fault and overflow warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) { r.logger = logger }
}

// New creates a Router with the given options.
func New(opts ...Option) *Router {
	r := &Router{
		subs:         make(map[any]*subscription),
		maxQueueSize: 10000,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Subscribe registers a subscriber for the given kind mask and priority.
// Re-subscribing an already-registered subscriber merges the kind masks and
// replaces its priority and predicate. A subscriber whose dynamic type is
// not comparable (a func type) has no identity to look up: each Subscribe
// call adds a separate subscription for it, and Unsubscribe ignores it.
func (r *Router) Subscribe(sub Subscriber, kinds EventKind, priority int, predicate Predicate) {
	if sub == nil || kinds == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if !reflect.TypeOf(sub).Comparable() {
		s := &subscription{sub: sub, kinds: kinds, priority: priority, predicate: predicate}
		r.subs[s] = s
	} else if existing, ok := r.subs[sub]; ok {
		existing.kinds |= kinds
		existing.priority = priority
		existing.predicate = predicate
	} else {
		r.subs[sub] = &subscription{sub: sub, kinds: kinds, priority: priority, predicate: predicate}
	}
	r.rebuildLocked()
}

// Unsubscribe removes a subscriber from all kind lists.
func (r *Router) Unsubscribe(sub Subscriber) {
	if sub == nil || !reflect.TypeOf(sub).Comparable() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.subs[sub]; !ok {
		return
	}
	delete(r.subs, sub)
	r.rebuildLocked()
}

// rebuildLocked recomputes the per-kind subscriber slices, sorted by
// priority descending. Must be called with mu held for writing.
func (r *Router) rebuildLocked() {
	for i := 0; i < numKinds; i++ {
		r.byKind[i] = r.byKind[i][:0]
	}
	for _, s := range r.subs {
		for i := 0; i < numKinds; i++ {
			bit := EventKind(1 << uint(i))
			if s.kinds&bit != 0 {
				r.byKind[i] = append(r.byKind[i], s)
			}
		}
	}
	for i := 0; i < numKinds; i++ {
		list := r.byKind[i]
		sort.SliceStable(list, func(a, b int) bool {
			return list[a].priority > list[b].priority
		})
	}
}

// Dispatch synchronously fans event out to every matching subscriber on the
// caller's goroutine. Callable only from the tick thread (the goroutine
// that owns coordinator Update calls).
// A panicking subscriber is recovered and logged; fan-out continues.
func (r *Router) Dispatch(event CombatEvent) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	r.totalDispatched.Add(1)

	for i := 0; i < numKinds; i++ {
		bit := EventKind(1 << uint(i))
		if event.Kind&bit == 0 {
			continue
		}
		r.dispatchCounts[i].Add(1)
		for _, s := range r.byKind[i] {
			r.deliver(s, event)
		}
	}
}

func (r *Router) deliver(s *subscription, event CombatEvent) {
	defer func() {
		if rec := recover(); rec != nil {
			if r.logger != nil {
				r.logger.Error("router: subscriber panicked", "recovered", rec)
			}
		}
	}()
	if s.predicate != nil && !s.predicate(event) {
		return
	}
	s.sub.OnEvent(event)
}

// Queue enqueues event for later processing by Drain. Safe to call from any
// goroutine. Returns false if the event was dropped due to a full queue.
func (r *Router) Queue(event CombatEvent) bool {
	r.queueMu.Lock()
	defer r.queueMu.Unlock()

	r.totalQueued.Add(1)

	if len(r.queue) >= r.maxQueueSize {
		switch r.overflowPolicy {
		case DropNewest:
			r.recordDrop()
			return false
		default: // DropOldest
			copy(r.queue, r.queue[1:])
			r.queue = r.queue[:len(r.queue)-1]
			r.recordDrop()
		}
	}
	r.queue = append(r.queue, event)
	return true
}

func (r *Router) recordDrop() {
	n := r.totalDropped.Add(1)
	if r.logger == nil {
		return
	}
	threshold := dropThreshold(n)
	if n != threshold {
		return
	}
	last := r.lastDropWarning.Load()
	if threshold <= last {
		return
	}
	if r.lastDropWarning.CompareAndSwap(last, threshold) {
		r.logger.Warn("router: queue overflow reached threshold", "dropped", n)
	}
}

func dropThreshold(count int64) int64 {
	t := int64(1)
	for t*10 <= count {
		t *= 10
	}
	return t
}

// Drain processes every currently queued event in FIFO order on the caller's
// goroutine (the tick thread). Events queued by another goroutine while
// Drain runs are picked up on the next Drain call.
func (r *Router) Drain() {
	r.queueMu.Lock()
	pending := r.queue
	r.queue = nil
	r.queueMu.Unlock()

	for _, event := range pending {
		r.Dispatch(event)
	}
}

// Stats returns a snapshot of dispatch/queue/drop counters.
func (r *Router) Stats() Stats {
	var s Stats
	s.TotalDispatched = r.totalDispatched.Load()
	s.TotalQueued = r.totalQueued.Load()
	s.TotalDropped = r.totalDropped.Load()
	for i := 0; i < numKinds; i++ {
		s.PerKind[i] = r.dispatchCounts[i].Load()
	}
	return s
}

// QueueDepth returns the number of events currently waiting to be drained.
func (r *Router) QueueDepth() int {
	r.queueMu.Lock()
	defer r.queueMu.Unlock()
	return len(r.queue)
}

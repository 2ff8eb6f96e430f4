// Package claims serialises mutually-exclusive bot intents — interrupts,
// dispels, crowd-control applications, loot rolls, pull calls — across a
// short resolution window so that multiple agents racing to claim the same
// action converge on exactly one winner instead of all acting redundantly.
//
// Claims are keyed on (kind, target, spell-or-aura id) in a mutex-guarded
// table. A submission either joins a pending queue resolved at window
// close, or hits an already-active claim and is granted (priority
// override) or denied on the spot. Each submission may carry a callback,
// invoked with Granted or Denied when the claim is decided; a granted
// claim's callback is invoked again with Denied if it is overridden or with
// Expired when CleanupExpired reaps it.
package claims

import (
	"log/slog"
	"sync"
	"time"

	"github.com/ashgrove/legion/internal/ids"
	"github.com/ashgrove/legion/internal/swarmbus"
)

// ClaimStatus aliases the shared status enum; kept local so callers that
// only import internal/claims don't also need to name internal/ids.
type ClaimStatus = ids.ClaimStatus

const (
	StatusPending = ids.ClaimPending
	StatusGranted = ids.ClaimGranted
	StatusDenied  = ids.ClaimDenied
	StatusExpired = ids.ClaimExpired
)

// Key uniquely identifies a claimable action: the claim kind, its target,
// and the spell or aura driving it (spell id takes precedence; aura id is
// the fallback when no spell id is present, e.g. a claim to dispel an
// existing debuff).
type Key struct {
	Kind          swarmbus.Kind
	Target        ids.EntityId
	SpellOrAuraID uint32
}

func keyFor(msg swarmbus.Message) Key {
	id := msg.SpellID
	if id == 0 {
		id = msg.AuraID
	}
	return Key{Kind: msg.Kind, Target: msg.Target, SpellOrAuraID: id}
}

// ActiveClaim is the currently-installed winner for a Key.
type ActiveClaim struct {
	Key       Key
	Claimer   ids.EntityId
	Group     ids.GroupId
	Priority  int
	ClaimedAt time.Time
	ExpiresAt time.Time
	MessageID uint64

	callback func(ClaimStatus)
}

type pendingClaim struct {
	msg        swarmbus.Message
	receivedAt time.Time
	callback   func(ClaimStatus)
}

// Statistics are lifetime counters mirroring the resolver's C++
// counterpart, kept under the resolver's mutex.
type Statistics struct {
	TotalSubmitted int64
	TotalGranted   int64
	TotalDenied    int64
	TotalReleased  int64
	TotalExpired   int64
}

// Resolver serialises claims across a configurable resolution window
// (default 200ms). The zero value is not usable; construct with New.
type Resolver struct {
	mu sync.Mutex

	active  map[Key]ActiveClaim
	pending map[Key][]pendingClaim

	window time.Duration
	logger *slog.Logger

	nextMessageID uint64
	stats         Statistics
}

// New constructs a Resolver with the default 200ms claim window.
func New(logger *slog.Logger) *Resolver {
	return &Resolver{
		active:  make(map[Key]ActiveClaim),
		pending: make(map[Key][]pendingClaim),
		window:  200 * time.Millisecond,
		logger:  logger,
	}
}

// SetWindow overrides the claim resolution window. Intended for tests and
// for configuration loaded at startup; not safe to change concurrently with
// Submit/ProcessPending.
func (r *Resolver) SetWindow(d time.Duration) { r.window = d }

// Submit registers a claim attempt. It always returns immediately: either
// Granted/Denied when an unexpired active claim already governs the key, or
// Pending when the claim joins the queue to be resolved by ProcessPending
// once the window elapses. callback, if non-nil, is invoked with Granted or
// Denied when the claim is decided, and again with Denied or Expired if a
// granted claim is later overridden or reaped by CleanupExpired.
func (r *Resolver) Submit(msg swarmbus.Message, callback func(ClaimStatus)) ClaimStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stats.TotalSubmitted++
	key := keyFor(msg)
	now := msg.Created

	if active, ok := r.active[key]; ok && active.ExpiresAt.After(now) {
		if msg.ClaimPriority < active.Priority {
			r.overrideLocked(key, active, msg, callback, now)
			r.stats.TotalGranted++
			r.invoke(callback, StatusGranted)
			return StatusGranted
		}
		r.stats.TotalDenied++
		r.invoke(callback, StatusDenied)
		return StatusDenied
	}

	r.pending[key] = append(r.pending[key], pendingClaim{msg: msg, receivedAt: now, callback: callback})
	return StatusPending
}

// overrideLocked replaces the active claim for key with msg's claimer and
// notifies the displaced claimer that it has been denied. Must be called
// with mu held.
func (r *Resolver) overrideLocked(key Key, previous ActiveClaim, msg swarmbus.Message, callback func(ClaimStatus), grantedAt time.Time) {
	r.installLocked(key, msg, callback, grantedAt)
	r.invoke(previous.callback, StatusDenied)
	if r.logger != nil {
		r.logger.Debug("claims: override", "key", key, "previous", previous.Claimer, "new", msg.Sender)
	}
}

// installLocked makes msg's sender the active claimer for key. The claim's
// lifetime runs from grantedAt, not from the message's creation time: a
// claim resolved at window close would otherwise be born already expired,
// since the message TTL and the resolution window are the same order of
// magnitude.
func (r *Resolver) installLocked(key Key, msg swarmbus.Message, callback func(ClaimStatus), grantedAt time.Time) {
	ttl := msg.Expiry.Sub(msg.Created)
	if ttl <= 0 {
		ttl = r.window
	}
	r.nextMessageID++
	r.active[key] = ActiveClaim{
		Key:       key,
		Claimer:   msg.Sender,
		Group:     msg.Group,
		Priority:  msg.ClaimPriority,
		ClaimedAt: grantedAt,
		ExpiresAt: grantedAt.Add(ttl),
		MessageID: r.nextMessageID,
		callback:  callback,
	}
}

func (r *Resolver) invoke(callback func(ClaimStatus), status ClaimStatus) {
	if callback == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil && r.logger != nil {
			r.logger.Error("claims: callback panicked", "recovered", rec)
		}
	}()
	callback(status)
}

// Status reports whether claimer currently holds the active claim for key,
// is still pending, or holds nothing.
func (r *Resolver) Status(claimer ids.EntityId, key Key) ClaimStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	if active, ok := r.active[key]; ok && active.Claimer == claimer {
		return StatusGranted
	}
	for _, p := range r.pending[key] {
		if p.msg.Sender == claimer {
			return StatusPending
		}
	}
	return StatusDenied
}

// IsClaimed reports whether key currently has an installed active claim.
// Expiry is not evaluated against wall-clock time here — callers
// wanting expiry-aware state should call CleanupExpired first.
func (r *Resolver) IsClaimed(key Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.active[key]
	return ok
}

// CurrentClaimer returns the active claimer for key, or ids.Empty if none.
func (r *Resolver) CurrentClaimer(key Key) ids.EntityId {
	r.mu.Lock()
	defer r.mu.Unlock()
	if active, ok := r.active[key]; ok {
		return active.Claimer
	}
	return ids.Empty
}

// Release drops claimer's active claim for key, if it holds one. Used when
// a bot can no longer fulfill its claim (death, out of mana, stunned).
func (r *Resolver) Release(claimer ids.EntityId, key Key) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if active, ok := r.active[key]; ok && active.Claimer == claimer {
		delete(r.active, key)
		r.stats.TotalReleased++
	}
}

// ReleaseAll drops every active claim held by claimer, e.g. on death.
func (r *Resolver) ReleaseAll(claimer ids.EntityId) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, active := range r.active {
		if active.Claimer == claimer {
			delete(r.active, key)
			r.stats.TotalReleased++
		}
	}
}

// ProcessPending resolves every key whose oldest pending claim has sat in
// queue for at least the claim window. The winner is the claim with the
// highest priority (lowest numeric value); ties go to the earliest arrival.
// Returns the number of keys resolved.
func (r *Resolver) ProcessPending(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	resolved := 0
	for key, claims := range r.pending {
		if len(claims) == 0 {
			delete(r.pending, key)
			continue
		}
		oldest := claims[0].receivedAt
		for _, c := range claims[1:] {
			if c.receivedAt.Before(oldest) {
				oldest = c.receivedAt
			}
		}
		if now.Sub(oldest) < r.window {
			continue
		}

		winner := claims[0]
		for _, c := range claims[1:] {
			if c.msg.ClaimPriority < winner.msg.ClaimPriority {
				winner = c
				continue
			}
			if c.msg.ClaimPriority == winner.msg.ClaimPriority && c.receivedAt.Before(winner.receivedAt) {
				winner = c
			}
		}

		r.installLocked(key, winner.msg, winner.callback, now)
		r.stats.TotalGranted++
		r.invoke(winner.callback, StatusGranted)

		for _, c := range claims {
			if c.msg.Sender == winner.msg.Sender {
				continue
			}
			r.stats.TotalDenied++
			r.invoke(c.callback, StatusDenied)
		}

		delete(r.pending, key)
		resolved++
	}
	return resolved
}

// CleanupExpired drops active claims whose expiry has passed and notifies
// each claim's callback with Expired. Returns the number reclaimed.
func (r *Resolver) CleanupExpired(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	reclaimed := 0
	for key, active := range r.active {
		if !active.ExpiresAt.After(now) {
			delete(r.active, key)
			r.stats.TotalExpired++
			reclaimed++
			r.invoke(active.callback, StatusExpired)
		}
	}
	return reclaimed
}

// GetStatistics returns a snapshot of lifetime claim counters.
func (r *Resolver) GetStatistics() Statistics {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// Package deathsafety guards against a use-after-free race in the host
// simulator: its object-publication pass walks active entities, including
// corpses, while ordinary game logic may try to delete a corpse the moment
// its owner resurrects. Two independent paths close the race:
//
//   - corpse-creation prevention: skip corpse creation entirely by moving
//     the agent straight to an alive-ghost posture at the graveyard.
//   - safe deletion: every corpse that IS created is tracked by reference
//     count; the pre-remove hook refuses deletion while references are
//     held or the corpse hasn't been marked safe. A scoped reference guard
//     brackets the publication pass, and a 30-minute reap bound clears
//     abandoned entries.
package deathsafety

import (
	"sync"
	"time"

	"github.com/ashgrove/legion/internal/ids"
)

// corpseExpiry bounds how long a zero-reference corpse may sit untouched
// before the janitor reaps it regardless of its safe-to-delete flag.
const corpseExpiry = 30 * time.Minute

// CorpseRecord is one tracked corpse: its owner, cached death location
// (read instead of the corpse object by resurrection/corpse-run logic),
// and the refcount/safety state gating deletion.
type CorpseRecord struct {
	CorpseID     ids.EntityId
	OwnerID      ids.EntityId
	MapID        uint32
	DeathLocation ids.Position
	CreatedAt    time.Time
	SafeToDelete bool
	refs         int
}

// Tracker is the process-wide corpse-safety registry. All methods are
// safe for concurrent use; Acquire/Release are expected to be called from
// any thread around a publication pass while PreRemoveHook and the reaper
// run on the tick thread.
type Tracker struct {
	mu           sync.Mutex
	corpses      map[ids.EntityId]*CorpseRecord
	ownerToCorpse map[ids.EntityId]ids.EntityId
	delayedRemovals int
}

// New constructs an empty Tracker.
func New() *Tracker {
	return &Tracker{
		corpses:       make(map[ids.EntityId]*CorpseRecord),
		ownerToCorpse: make(map[ids.EntityId]ids.EntityId),
	}
}

// RegisterCorpse starts tracking a newly created corpse with an initial
// reference count of 1, mirroring the moment the host simulator's own
// object-creation path holds the first live pointer to it.
func (t *Tracker) RegisterCorpse(corpseID, ownerID ids.EntityId, mapID uint32, deathLocation ids.Position, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.corpses[corpseID] = &CorpseRecord{
		CorpseID:      corpseID,
		OwnerID:       ownerID,
		MapID:         mapID,
		DeathLocation: deathLocation,
		CreatedAt:     now,
		refs:          1,
	}
	t.ownerToCorpse[ownerID] = corpseID
}

// MarkSafeForDeletion flags a corpse as eligible for removal once its
// reference count reaches zero (e.g. after the owning map's update cycle
// for this corpse has fully completed).
func (t *Tracker) MarkSafeForDeletion(corpseID ids.EntityId) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rec, ok := t.corpses[corpseID]; ok {
		rec.SafeToDelete = true
	}
}

// addReference increments a corpse's refcount. Returns false if the corpse
// isn't tracked.
func (t *Tracker) addReference(corpseID ids.EntityId) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.corpses[corpseID]
	if !ok {
		return false
	}
	rec.refs++
	return true
}

// removeReference decrements a corpse's refcount.
func (t *Tracker) removeReference(corpseID ids.EntityId) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rec, ok := t.corpses[corpseID]; ok && rec.refs > 0 {
		rec.refs--
	}
}

// ReferenceGuard is a scoped hold on a corpse during a publication pass:
// construct with Acquire, release with Release (or defer it). Holding a
// guard on an untracked corpse is a harmless no-op, since nothing needs
// protecting.
type ReferenceGuard struct {
	tracker  *Tracker
	corpseID ids.EntityId
	held     bool
}

// Acquire takes a scoped reference on corpseID for the duration of a
// publication pass. Release must be called when the pass ends; calls after
// the first have no effect.
func (t *Tracker) Acquire(corpseID ids.EntityId) *ReferenceGuard {
	held := t.addReference(corpseID)
	return &ReferenceGuard{tracker: t, corpseID: corpseID, held: held}
}

// Release drops the scoped reference taken by Acquire. Safe to call more
// than once; only the first call has effect.
func (g *ReferenceGuard) Release() {
	if g.held {
		g.tracker.removeReference(g.corpseID)
		g.held = false
	}
}

// PreRemoveHook is called by the host simulator immediately before it
// would delete a corpse. RegisterCorpse starts a corpse's refcount at 1 to
// represent the host's own baseline hold; a publication pass's scoped
// Acquire adds to that on top. PreRemoveHook denies while any such extra
// reference is outstanding (refs > 1) or the corpse hasn't been explicitly
// marked safe; it allows once only the baseline hold remains. An untracked
// corpse is always allowed, since nothing is guarding it.
func (t *Tracker) PreRemoveHook(corpseID ids.EntityId) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.corpses[corpseID]
	if !ok {
		return true
	}
	if rec.refs > 1 || !rec.SafeToDelete {
		t.delayedRemovals++
		return false
	}
	delete(t.corpses, corpseID)
	if t.ownerToCorpse[rec.OwnerID] == corpseID {
		delete(t.ownerToCorpse, rec.OwnerID)
	}
	return true
}

// DeathLocation returns the cached death position for a corpse's owner
// without needing to read the corpse object itself, along with whether a
// corpse is currently tracked for that owner.
func (t *Tracker) DeathLocation(ownerID ids.EntityId) (ids.Position, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	corpseID, ok := t.ownerToCorpse[ownerID]
	if !ok {
		return ids.Position{}, false
	}
	rec := t.corpses[corpseID]
	if rec == nil {
		return ids.Position{}, false
	}
	return rec.DeathLocation, true
}

// CleanupExpired reaps corpses with no outstanding external references
// (only the baseline hold, if any) older than the 30-minute bound
// regardless of their safe-to-delete flag, so an abandoned corpse whose
// owner never returns doesn't leak forever. Returns the count reaped.
func (t *Tracker) CleanupExpired(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	reaped := 0
	for id, rec := range t.corpses {
		if rec.refs <= 1 && now.Sub(rec.CreatedAt) >= corpseExpiry {
			delete(t.corpses, id)
			if t.ownerToCorpse[rec.OwnerID] == id {
				delete(t.ownerToCorpse, rec.OwnerID)
			}
			reaped++
		}
	}
	return reaped
}

// TrackedCount returns the number of corpses currently tracked.
func (t *Tracker) TrackedCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.corpses)
}

// DelayedRemovalCount returns how many PreRemoveHook calls were denied so
// far, for telemetry.
func (t *Tracker) DelayedRemovalCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.delayedRemovals
}

// AlivePosture is the corpse-creation-prevention outcome: the agent is
// placed at the graveyard with minimal health instead of dying normally,
// bypassing corpse creation (and this tracker) entirely.
type AlivePosture struct {
	AgentID    ids.EntityId
	Graveyard  ids.Position
	HealthFrac float64
}

// PreventCorpseAndResurrect returns the alive-ghost posture an agent
// should adopt instead of creating a corpse: placed at the graveyard with
// health set as a fraction, 1% of maximum; AlivePosture carries no
// absolute hit-point value, so a literal 1 HP is not expressed. This
// is the preferred path; RegisterCorpse/PreRemoveHook are the fallback for
// whatever corpses the host simulator creates anyway (e.g. for non-agent
// deaths the prevention path doesn't cover).
func PreventCorpseAndResurrect(agentID ids.EntityId, graveyard ids.Position) AlivePosture {
	const ghostHealthFrac = 1.0 / 100.0
	return AlivePosture{AgentID: agentID, Graveyard: graveyard, HealthFrac: ghostHealthFrac}
}

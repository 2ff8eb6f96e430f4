package deathsafety

import (
	"testing"
	"time"

	"github.com/ashgrove/legion/internal/ids"
)

// TestSafeCorpseRace walks the full publication race: a corpse is
// created (refcount 1), a publication pass takes a scoped reference
// (refcount 2), resurrection requests removal while the pass is still
// mid-walk (denied, refcount above the baseline 1), the pass completes
// (refcount 1), and
// only then does the next removal attempt succeed.
func TestSafeCorpseRace(t *testing.T) {
	tracker := New()
	now := time.Now()
	corpse := ids.EntityId(1)
	owner := ids.EntityId(2)

	tracker.RegisterCorpse(corpse, owner, 42, ids.Position{X: 1, Y: 2, Z: 3}, now)
	if tracker.TrackedCount() != 1 {
		t.Fatalf("tracked count = %d, want 1", tracker.TrackedCount())
	}

	guard := tracker.Acquire(corpse)

	tracker.MarkSafeForDeletion(corpse)
	if tracker.PreRemoveHook(corpse) {
		t.Fatal("expected pre-remove to deny while the publication pass still holds a reference")
	}

	guard.Release()
	if !tracker.PreRemoveHook(corpse) {
		t.Fatal("expected pre-remove to allow once only the baseline reference remains and the corpse is marked safe")
	}
	if tracker.TrackedCount() != 0 {
		t.Fatalf("tracked count after removal = %d, want 0", tracker.TrackedCount())
	}
}

func TestPreRemoveHook_DeniesWhileNotMarkedSafeEvenWithNoExtraRefs(t *testing.T) {
	tracker := New()
	now := time.Now()
	corpse := ids.EntityId(1)

	tracker.RegisterCorpse(corpse, ids.EntityId(2), 1, ids.Position{}, now)
	guard := tracker.Acquire(corpse)
	guard.Release()
	guard.Release() // idempotent: must not double-decrement

	if tracker.PreRemoveHook(corpse) {
		t.Fatal("expected pre-remove to deny: no outstanding guard but corpse was never marked safe")
	}
}

func TestPreRemoveHook_UntrackedCorpseAlwaysAllowed(t *testing.T) {
	tracker := New()
	if !tracker.PreRemoveHook(ids.EntityId(999)) {
		t.Fatal("expected an untracked corpse to be allowed through unconditionally")
	}
}

func TestDeathLocation_CachedBeforeCorpseRemoval(t *testing.T) {
	tracker := New()
	now := time.Now()
	owner := ids.EntityId(5)
	pos := ids.Position{X: 10, Y: 20, Z: 0}

	tracker.RegisterCorpse(ids.EntityId(9), owner, 1, pos, now)
	got, ok := tracker.DeathLocation(owner)
	if !ok {
		t.Fatal("expected a cached death location for the owner")
	}
	if got != pos {
		t.Fatalf("death location = %+v, want %+v", got, pos)
	}
}

func TestCleanupExpired_ReapsOldZeroRefCorpses(t *testing.T) {
	tracker := New()
	now := time.Now()
	corpse := ids.EntityId(1)

	tracker.RegisterCorpse(corpse, ids.EntityId(2), 1, ids.Position{}, now)
	guard := tracker.Acquire(corpse)
	guard.Release()

	reaped := tracker.CleanupExpired(now.Add(31 * time.Minute))
	if reaped != 1 {
		t.Fatalf("reaped = %d, want 1", reaped)
	}
	if tracker.TrackedCount() != 0 {
		t.Fatal("expected the expired corpse to be removed from tracking")
	}
}

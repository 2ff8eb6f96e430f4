package claims

import (
	"testing"
	"time"

	"github.com/ashgrove/legion/internal/ids"
	"github.com/ashgrove/legion/internal/swarmbus"
)

func claimMsg(sender, target ids.EntityId, priority int, at time.Time) swarmbus.Message {
	return swarmbus.NewClaim(swarmbus.KindClaimInterrupt, sender, target, ids.EntityId(1), 9001, priority, at)
}

func TestSubmit_TwoSimultaneousInterruptsResolveToOneWinner(t *testing.T) {
	r := New(nil)
	now := time.Now()
	target := ids.EntityId(50)

	var results []ClaimStatus
	a := claimMsg(ids.EntityId(1), target, 5, now)
	b := claimMsg(ids.EntityId(2), target, 3, now.Add(10*time.Millisecond))

	if got := r.Submit(a, func(s ClaimStatus) { results = append(results, s) }); got != StatusPending {
		t.Fatalf("a status = %v, want pending", got)
	}
	if got := r.Submit(b, func(s ClaimStatus) { results = append(results, s) }); got != StatusPending {
		t.Fatalf("b status = %v, want pending", got)
	}

	resolved := r.ProcessPending(now.Add(250 * time.Millisecond))
	if resolved != 1 {
		t.Fatalf("resolved %d keys, want 1", resolved)
	}

	key := keyFor(a)
	if claimer := r.CurrentClaimer(key); claimer != ids.EntityId(2) {
		t.Fatalf("winner = %v, want bot 2 (higher priority)", claimer)
	}
	if len(results) != 2 {
		t.Fatalf("got %d callback results, want 2", len(results))
	}
}

func TestSubmit_OverrideByHigherPriorityWithinWindow(t *testing.T) {
	r := New(nil)
	now := time.Now()
	target := ids.EntityId(50)

	var deniedPrevious bool
	low := claimMsg(ids.EntityId(1), target, 5, now)
	r.Submit(low, func(s ClaimStatus) {
		if s == StatusDenied {
			deniedPrevious = true
		}
	})
	r.ProcessPending(now.Add(250 * time.Millisecond))

	key := keyFor(low)
	if r.CurrentClaimer(key) != ids.EntityId(1) {
		t.Fatal("expected bot 1 to hold the active claim before override")
	}

	high := claimMsg(ids.EntityId(2), target, 1, now.Add(300*time.Millisecond))
	status := r.Submit(high, nil)
	if status != StatusGranted {
		t.Fatalf("override status = %v, want granted", status)
	}
	if r.CurrentClaimer(key) != ids.EntityId(2) {
		t.Fatal("expected bot 2 to hold the claim after override")
	}
	if !deniedPrevious {
		t.Fatal("expected bot 1's callback to be notified with Denied on override")
	}
}

func TestSubmit_LowerPriorityDeniedWhileActiveHeld(t *testing.T) {
	r := New(nil)
	now := time.Now()
	target := ids.EntityId(50)

	first := claimMsg(ids.EntityId(1), target, 3, now)
	r.Submit(first, nil)
	r.ProcessPending(now.Add(250 * time.Millisecond))

	second := claimMsg(ids.EntityId(2), target, 9, now.Add(300*time.Millisecond))
	status := r.Submit(second, nil)
	if status != StatusDenied {
		t.Fatalf("status = %v, want denied", status)
	}
}

func TestReleaseAll_ClearsClaimerState(t *testing.T) {
	r := New(nil)
	now := time.Now()
	target := ids.EntityId(50)

	msg := claimMsg(ids.EntityId(1), target, 3, now)
	r.Submit(msg, nil)
	r.ProcessPending(now.Add(250 * time.Millisecond))

	key := keyFor(msg)
	if r.CurrentClaimer(key) != ids.EntityId(1) {
		t.Fatal("expected active claim before release")
	}

	r.ReleaseAll(ids.EntityId(1))

	if r.CurrentClaimer(key) != ids.Empty {
		t.Fatal("expected no claimer after ReleaseAll")
	}
	if r.IsClaimed(key) {
		t.Fatal("IsClaimed true after ReleaseAll")
	}
}

func TestCleanupExpired_DropsStaleActiveClaim(t *testing.T) {
	r := New(nil)
	r.SetWindow(10 * time.Millisecond)
	now := time.Now()
	target := ids.EntityId(50)

	msg := claimMsg(ids.EntityId(1), target, 3, now)
	r.Submit(msg, nil)
	r.ProcessPending(now.Add(20 * time.Millisecond))

	key := keyFor(msg)
	if !r.IsClaimed(key) {
		t.Fatal("expected claim active immediately after resolution")
	}

	reclaimed := r.CleanupExpired(now.Add(time.Hour))
	if reclaimed != 1 {
		t.Fatalf("reclaimed %d, want 1", reclaimed)
	}
	if r.IsClaimed(key) {
		t.Fatal("claim still active after CleanupExpired past its expiry")
	}
}

func TestCleanupExpired_NotifiesCallbackWithExpired(t *testing.T) {
	r := New(nil)
	now := time.Now()
	target := ids.EntityId(50)

	var got ClaimStatus
	msg := claimMsg(ids.EntityId(1), target, 3, now)
	r.Submit(msg, func(s ClaimStatus) { got = s })
	r.ProcessPending(now.Add(250 * time.Millisecond))

	if got != StatusGranted {
		t.Fatalf("status after resolution = %v, want granted", got)
	}

	r.CleanupExpired(now.Add(time.Hour))
	if got != StatusExpired {
		t.Fatalf("status after CleanupExpired = %v, want expired", got)
	}
}

func TestStatistics_TrackGrantedAndDenied(t *testing.T) {
	r := New(nil)
	now := time.Now()
	target := ids.EntityId(50)

	r.Submit(claimMsg(ids.EntityId(1), target, 5, now), nil)
	r.Submit(claimMsg(ids.EntityId(2), target, 2, now.Add(5*time.Millisecond)), nil)
	r.ProcessPending(now.Add(250 * time.Millisecond))

	stats := r.GetStatistics()
	if stats.TotalSubmitted != 2 {
		t.Fatalf("submitted = %d, want 2", stats.TotalSubmitted)
	}
	if stats.TotalGranted != 1 {
		t.Fatalf("granted = %d, want 1", stats.TotalGranted)
	}
	if stats.TotalDenied != 1 {
		t.Fatalf("denied = %d, want 1", stats.TotalDenied)
	}
}

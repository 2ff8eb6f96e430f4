package arena

import (
	"testing"
	"time"

	"github.com/ashgrove/legion/internal/ids"
)

func TestKillTargetManager_VetoesSwitchBeforeMinTimeOnTarget(t *testing.T) {
	cfg := DefaultConfig()
	m := newKillTargetManager(cfg)
	start := time.Now()

	e1 := Enemy{ID: ids.EntityId(1), HealthFrac: 1.0}
	m.update(start, []Enemy{e1})
	if m.Current() != e1.ID {
		t.Fatalf("current = %v, want %v", m.Current(), e1.ID)
	}

	// E2 far outscores E1 (E1 scores 0) at t=1.2s — inside
	// min-time-on-target, must veto.
	e2 := Enemy{ID: ids.EntityId(2), HealthFrac: 0.1, IsHealer: true}
	soon := start.Add(1200 * time.Millisecond)
	if m.ShouldSwitch(soon, score(e1), score(e2)) {
		t.Fatal("ShouldSwitch returned true before min-time-on-target elapsed")
	}

	// At t=3.0s the gate opens.
	later := start.Add(3 * time.Second)
	if !m.ShouldSwitch(later, score(e1), score(e2)) {
		t.Fatal("ShouldSwitch returned false after min-time-on-target and sufficient margin")
	}
}

func TestKillTargetManager_CallSwitchOverridesGates(t *testing.T) {
	cfg := DefaultConfig()
	m := newKillTargetManager(cfg)
	now := time.Now()
	m.current = ids.EntityId(1)
	m.lastSwitch = now

	m.CallSwitch(now.Add(time.Millisecond), ids.EntityId(2))
	if m.Current() != ids.EntityId(2) {
		t.Fatal("CallSwitch did not override current target")
	}
}

func TestBurstCoordinator_ExecutingToRetreatingOnDeathWithinOneTick(t *testing.T) {
	cfg := DefaultConfig()
	b := newBurstCoordinator(cfg)
	now := time.Now()

	target := ids.EntityId(5)
	b.phase = BurstExecuting
	b.phaseStart = now
	b.target = target

	teammates := []Teammate{{ID: ids.EntityId(1), Alive: true, HealthFrac: 1.0}}
	deadEnemy := Enemy{ID: target, HealthFrac: 0}

	b.update(now.Add(time.Millisecond), []Enemy{deadEnemy}, teammates, target)

	if b.Phase() != BurstRetreating {
		t.Fatalf("phase = %v, want retreating", b.Phase())
	}
}

func TestBurstCoordinator_IsViableRequiresMinBurstersAndTrinketDown(t *testing.T) {
	cfg := DefaultConfig()
	b := newBurstCoordinator(cfg)

	target := Enemy{HealthFrac: 0.9, TrinketDown: false}
	teammates := []Teammate{
		{ID: ids.EntityId(1), Alive: true, BurstReady: true},
		{ID: ids.EntityId(2), Alive: true, BurstReady: true},
	}
	if b.IsViable(target, teammates) {
		t.Fatal("viable with trinket up")
	}

	target.TrinketDown = true
	if b.IsViable(target, teammates) {
		t.Fatal("viable with healthy, non-CCed target and defensives up")
	}

	target.HealthFrac = 0.3
	if !b.IsViable(target, teammates) {
		t.Fatal("expected viable: trinket down, 2 bursters ready, target low health")
	}
}

func TestDRStackMultiplier_ImmuneAfterThreeApplications(t *testing.T) {
	cfg := DefaultConfig()
	m := newCCChainManager(cfg)
	now := time.Now()
	target := ids.EntityId(1)
	caster := ids.EntityId(2)

	link1, ok := m.PlanNext(caster, target, ids.DRFear, 4*time.Second, now)
	if !ok || link1.ExpectedDuration != 4*time.Second {
		t.Fatalf("first application expected 4s full duration, got %v ok=%v", link1.ExpectedDuration, ok)
	}

	link2, ok := m.PlanNext(caster, target, ids.DRFear, 4*time.Second, now.Add(3*time.Second))
	if !ok || link2.ExpectedDuration != 2*time.Second {
		t.Fatalf("second application expected 2s (0.5x), got %v ok=%v", link2.ExpectedDuration, ok)
	}

	link3, ok := m.PlanNext(caster, target, ids.DRFear, 4*time.Second, now.Add(6*time.Second))
	if !ok || link3.ExpectedDuration != time.Second {
		t.Fatalf("third application expected 1s (0.25x), got %v ok=%v", link3.ExpectedDuration, ok)
	}

	_, ok = m.PlanNext(caster, target, ids.DRFear, 4*time.Second, now.Add(9*time.Second))
	if ok {
		t.Fatal("fourth application should be refused: DR-immune (0x multiplier < 500ms gate)")
	}
}

func TestDefensiveCoordinator_EscalatesStateByHealthThresholds(t *testing.T) {
	cfg := DefaultConfig()
	d := newDefensiveCoordinator(cfg)
	now := time.Now()

	d.update(now, []Teammate{{ID: ids.EntityId(1), HealthFrac: 0.9}})
	if d.State(ids.EntityId(1)) != Healthy {
		t.Fatalf("state = %v, want healthy", d.State(ids.EntityId(1)))
	}

	d.update(now, []Teammate{{ID: ids.EntityId(1), HealthFrac: 0.6}})
	if d.State(ids.EntityId(1)) != Pressured {
		t.Fatalf("state = %v, want pressured", d.State(ids.EntityId(1)))
	}

	d.update(now, []Teammate{{ID: ids.EntityId(1), HealthFrac: 0.4}})
	if d.State(ids.EntityId(1)) != Danger {
		t.Fatalf("state = %v, want danger", d.State(ids.EntityId(1)))
	}

	d.update(now, []Teammate{{ID: ids.EntityId(1), HealthFrac: 0.2}})
	if d.State(ids.EntityId(1)) != Critical {
		t.Fatalf("state = %v, want critical", d.State(ids.EntityId(1)))
	}
}

func TestDefensiveCoordinator_AssignPeelRejectsDoubleCommitment(t *testing.T) {
	cfg := DefaultConfig()
	d := newDefensiveCoordinator(cfg)
	now := time.Now()

	peeler, threatened, threat := ids.EntityId(1), ids.EntityId(2), ids.EntityId(3)
	if !d.AssignPeel(now, peeler, threatened, threat) {
		t.Fatal("first peel assignment should succeed")
	}
	if d.AssignPeel(now.Add(time.Second), peeler, ids.EntityId(4), ids.EntityId(5)) {
		t.Fatal("second peel for the same peeler should be rejected while first is active")
	}
}

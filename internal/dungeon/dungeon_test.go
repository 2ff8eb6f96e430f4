package dungeon

import (
	"testing"
	"time"

	"github.com/ashgrove/legion/internal/ids"
)

func TestIsSafeToPull_FalseWhileAnyMemberInCombat(t *testing.T) {
	trash := newTrashPullManager(DefaultConfig())
	snap := GroupSnapshot{
		Members: []Member{
			{ID: 1, Role: ids.RoleTank, Alive: true, HealthFrac: 1.0, ManaFrac: 1.0},
			{ID: 2, Role: ids.RoleHealer, Alive: true, HealthFrac: 1.0, ManaFrac: 1.0, InCombat: true},
		},
	}
	if trash.IsSafeToPull(snap) {
		t.Fatal("expected IsSafeToPull to return false while a member is in combat")
	}
}

func TestIsSafeToPull_FalseOnLowTankOrHealerMana(t *testing.T) {
	trash := newTrashPullManager(DefaultConfig())
	snap := GroupSnapshot{
		Members: []Member{
			{ID: 1, Role: ids.RoleTank, Alive: true, HealthFrac: 1.0, ManaFrac: 0.3},
			{ID: 2, Role: ids.RoleHealer, Alive: true, HealthFrac: 1.0, ManaFrac: 1.0},
		},
	}
	if trash.IsSafeToPull(snap) {
		t.Fatal("expected false: tank mana below threshold")
	}
}

func TestIsSafeToPull_TrueWhenAllConditionsMet(t *testing.T) {
	trash := newTrashPullManager(DefaultConfig())
	snap := GroupSnapshot{
		Members: []Member{
			{ID: 1, Role: ids.RoleTank, Alive: true, HealthFrac: 1.0, ManaFrac: 1.0},
			{ID: 2, Role: ids.RoleHealer, Alive: true, HealthFrac: 1.0, ManaFrac: 1.0},
			{ID: 3, Role: ids.RoleDps, Alive: true, HealthFrac: 1.0, ManaFrac: 1.0},
		},
	}
	if !trash.IsSafeToPull(snap) {
		t.Fatal("expected true: combat-free, mana above thresholds, all alive, no patrols")
	}
}

func TestIsSafeToPull_FalseBelowMinimumHealth(t *testing.T) {
	trash := newTrashPullManager(DefaultConfig())
	snap := GroupSnapshot{
		Members: []Member{
			{ID: 1, Role: ids.RoleTank, Alive: true, HealthFrac: 1.0, ManaFrac: 1.0},
			{ID: 2, Role: ids.RoleDps, Alive: true, HealthFrac: 0.5, ManaFrac: 1.0},
		},
	}
	if trash.IsSafeToPull(snap) {
		t.Fatal("expected false: a member is below the minimum pull health")
	}
}

func TestCoordinator_ReadyCheckPassesWhenAllConfirm(t *testing.T) {
	c := NewCoordinator(DefaultConfig())
	now := time.Now()
	members := []Member{{ID: 1}, {ID: 2}, {ID: 3}}

	c.EnterInstance()
	c.BeginReadyCheck(now)
	if c.State() != StateReadyCheck {
		t.Fatalf("state = %v, want ready_check", c.State())
	}

	c.ConfirmReady(1)
	c.ConfirmReady(2)
	if concluded, _ := c.ResolveReadyCheck(now.Add(time.Second), members); concluded {
		t.Fatal("check concluded before every member confirmed")
	}

	c.ConfirmReady(3)
	concluded, passed := c.ResolveReadyCheck(now.Add(2*time.Second), members)
	if !concluded || !passed {
		t.Fatalf("concluded=%v passed=%v, want both true", concluded, passed)
	}
	if c.State() != StateClearingTrash {
		t.Fatalf("state after passed check = %v, want clearing_trash", c.State())
	}
}

func TestCoordinator_ReadyCheckTimesOutAsFailed(t *testing.T) {
	c := NewCoordinator(DefaultConfig())
	now := time.Now()
	members := []Member{{ID: 1}, {ID: 2}}

	c.BeginReadyCheck(now)
	c.ConfirmReady(1)

	concluded, passed := c.ResolveReadyCheck(now.Add(31*time.Second), members)
	if !concluded {
		t.Fatal("expected the check to conclude at the timeout")
	}
	if passed {
		t.Fatal("a timed-out check must not count as passed")
	}
}

func TestCoordinator_WipeRecoveryReturnsToTrash(t *testing.T) {
	c := NewCoordinator(DefaultConfig())
	start := time.Now()
	members := []Member{
		{ID: 1, Role: ids.RoleHealer, ManaFrac: 1.0},
		{ID: 2, Role: ids.RoleTank, ManaFrac: 1.0},
	}

	c.EnterWipe(start, members)
	if c.State() != StateWiped {
		t.Fatalf("state = %v, want wiped", c.State())
	}

	if got := c.UpdateRecovery(start.Add(10*time.Second), members); got != StateRecovering {
		t.Fatalf("state once recovery starts = %v, want recovering", got)
	}

	wipe := c.Wipe()
	wipe.Update(start.Add(25*time.Second), members)
	wipe.ArriveAtCorpse(1)
	wipe.MarkRezzed(1)
	wipe.MarkRezzed(2)
	wipe.Update(start.Add(26*time.Second), members) // rezzing → rebuffing
	wipe.Update(start.Add(27*time.Second), members) // rebuffing → mana regen

	if got := c.UpdateRecovery(start.Add(28*time.Second), members); got != StateClearingTrash {
		t.Fatalf("state once group is ready = %v, want clearing_trash", got)
	}
}

func TestBuildPlan_SkullOnHighestThreatNonCaster_CrossOnCaster(t *testing.T) {
	trash := newTrashPullManager(DefaultConfig())
	pack := Pack{
		ID: 100,
		Members: []PackMember{
			{ID: 1, Role: mobMelee, Threat: 5},
			{ID: 2, Role: mobMelee, Threat: 9},
			{ID: 3, Role: mobCaster, Threat: 4},
		},
	}
	plan := trash.BuildPlan(pack, RoleCapacity{Tanks: 1, InterruptCap: 5}, ids.EntityId(1))
	if plan.SkullTarget != ids.EntityId(2) {
		t.Fatalf("skull target = %v, want the highest-threat non-caster (2)", plan.SkullTarget)
	}
	if plan.CrossTarget != ids.EntityId(3) {
		t.Fatalf("cross target = %v, want the caster (3)", plan.CrossTarget)
	}
}

func TestNeedsCC_TrueWhenElitePackExceedsCapacity(t *testing.T) {
	trash := newTrashPullManager(DefaultConfig())
	pack := Pack{
		ID: 1,
		Members: []PackMember{
			{ID: 1, Elite: true},
			{ID: 2, Elite: true},
			{ID: 3, Elite: true},
		},
	}
	if !trash.NeedsCC(pack, RoleCapacity{Tanks: 1, InterruptCap: 1}) {
		t.Fatal("expected NeedsCC true: three elites exceed tank+interrupt capacity of 2")
	}
}

func TestWipeRecovery_PhasesAdvanceMonotonically(t *testing.T) {
	wipe := newWipeRecoveryManager()
	start := time.Now()
	members := []Member{
		{ID: 1, Role: ids.RoleHealer, HasBattleRez: true},
		{ID: 2, Role: ids.RoleTank},
		{ID: 3, Role: ids.RoleDps},
	}
	wipe.BeginWipe(start, members)
	if wipe.Phase() != PhaseWaiting {
		t.Fatalf("phase = %v, want Waiting", wipe.Phase())
	}

	if p := wipe.Update(start.Add(10*time.Second), members); p != PhaseReleasing {
		t.Fatalf("phase at 10s = %v, want Releasing", p)
	}
	if p := wipe.Update(start.Add(25*time.Second), members); p != PhaseRunningBack {
		t.Fatalf("phase at 25s = %v, want RunningBack", p)
	}

	wipe.ArriveAtCorpse(1)
	if wipe.Phase() != PhaseRezzing {
		t.Fatalf("phase after arrival = %v, want Rezzing", wipe.Phase())
	}

	if target := wipe.NextRezTarget(); target != ids.EntityId(1) {
		t.Fatalf("next rez target = %v, want healer with battle-rez (1)", target)
	}
	wipe.MarkRezzed(1)
	if target := wipe.NextRezTarget(); target != ids.EntityId(2) {
		t.Fatalf("next rez target after healer = %v, want tank (2)", target)
	}
	wipe.MarkRezzed(2)
	wipe.MarkRezzed(3)

	if p := wipe.Update(start.Add(26*time.Second), members); p != PhaseRebuffing {
		t.Fatalf("phase after all rezzed = %v, want Rebuffing", p)
	}
	if p := wipe.Update(start.Add(27*time.Second), members); p != PhaseManaRegen {
		t.Fatalf("phase after rebuff tick = %v, want ManaRegen", p)
	}

	fullMana := []Member{{ID: 1, ManaFrac: 1}, {ID: 2, ManaFrac: 1}, {ID: 3, ManaFrac: 1}}
	if p := wipe.Update(start.Add(28*time.Second), fullMana); p != PhaseReady {
		t.Fatalf("phase at full mana = %v, want Ready", p)
	}
}

func TestMythicPlusManager_RemainingTimeFormula(t *testing.T) {
	m := newMythicPlusManager()
	start := time.Now()
	m.Initialize(KeystoneInfo{Level: 10, TimeLimit: 30 * time.Minute})
	m.StartTimer(start)

	m.OnPlayerDied()
	m.OnPlayerDied()

	now := start.Add(5 * time.Minute)
	got := m.RemainingTime(now)
	want := 30*time.Minute - 5*time.Minute - 2*deathPenalty
	if got != want {
		t.Fatalf("remaining = %v, want %v", got, want)
	}
}

func TestMythicPlusManager_RemainingTimeClipsToZero(t *testing.T) {
	m := newMythicPlusManager()
	start := time.Now()
	m.Initialize(KeystoneInfo{Level: 10, TimeLimit: 1 * time.Minute})
	m.StartTimer(start)

	if got := m.RemainingTime(start.Add(2 * time.Minute)); got != 0 {
		t.Fatalf("remaining = %v, want 0 (clipped)", got)
	}
}

func TestMythicPlusManager_HasAffixAndRagingGate(t *testing.T) {
	m := newMythicPlusManager()
	m.Initialize(KeystoneInfo{Level: 10, Affixes: []Affix{AffixRaging, AffixFortified}})

	if !m.HasAffix(AffixRaging) {
		t.Fatal("expected Raging affix present")
	}
	if !m.ShouldSaveCooldownsForRaging(0.5) {
		t.Fatal("expected cooldowns saved above the 30% Raging threshold")
	}
	if m.ShouldSaveCooldownsForRaging(0.2) {
		t.Fatal("expected cooldowns released below the 30% Raging threshold")
	}
}

func TestBossEncounterManager_MustInterruptOverridesMechanicTable(t *testing.T) {
	boss := newBossEncounterManager()
	boss.LoadStrategy(Strategy{
		BossID:        42,
		Mechanics:     []Mechanic{{TriggerSpellID: 100, Response: ResponseSpread}},
		MustInterrupt: []uint32{100},
	})
	response, must, _ := boss.OnEvent(42, 100)
	if !must {
		t.Fatal("expected must-interrupt to be reported")
	}
	if response != ResponseInterrupt {
		t.Fatalf("response = %v, want Interrupt (overrides the mechanic table)", response)
	}
}

func TestBossEncounterManager_TankSwapTriggersAtStackThreshold(t *testing.T) {
	boss := newBossEncounterManager()
	boss.LoadStrategy(Strategy{BossID: 1, TankSwapStackLimit: 3})

	if boss.RecordTankDebuff(1, 5, 2) {
		t.Fatal("swap should not trigger below the stack threshold")
	}
	if !boss.RecordTankDebuff(1, 5, 1) {
		t.Fatal("swap should trigger once stacks reach the threshold")
	}
}

func TestBossEncounterManager_BloodlustOnFirstPullRegardlessOfHealth(t *testing.T) {
	boss := newBossEncounterManager()
	boss.LoadStrategy(Strategy{BossID: 1, BloodlustAtHealth: 0.20})
	if !boss.ShouldBloodlust(1, 0.95) {
		t.Fatal("expected Bloodlust allowed on first pull regardless of boss health")
	}
	boss.MarkPullAttempted()
	if boss.ShouldBloodlust(1, 0.95) {
		t.Fatal("expected Bloodlust withheld on a later pull above the configured threshold")
	}
	if !boss.ShouldBloodlust(1, 0.15) {
		t.Fatal("expected Bloodlust allowed once health drops to the configured threshold")
	}
}

package battleground

import (
	"testing"
	"time"

	"github.com/ashgrove/legion/internal/ids"
)

func TestRegistry_CreateUnregisteredMapErrors(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Create(999); err == nil {
		t.Fatal("expected error creating unregistered map script")
	}
}

func TestRegistry_RegisterAndCreate(t *testing.T) {
	r := NewRegistry()
	r.Register(489, "warsong_gulch", func() Script { return NewCTFScript(489, 10) })

	if !r.HasScript(489) {
		t.Fatal("expected map 489 to be registered")
	}
	script, err := r.Create(489)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if script.MapID() != 489 {
		t.Fatalf("script map id = %d, want 489", script.MapID())
	}
}

func TestRegisterBuiltins_CoversEveryMapFamily(t *testing.T) {
	r := NewRegistry()
	RegisterBuiltins(r)

	for _, mapID := range []int{
		MapWarsongGulch, MapTwinPeaks, MapArathiBasin, MapBattleForGilneas,
		MapSilvershardMines, MapStrandOfAncients, MapAlteracValley,
	} {
		if !r.HasScript(mapID) {
			t.Fatalf("map %d has no registered script", mapID)
		}
		if _, err := r.Create(mapID); err != nil {
			t.Fatalf("Create(%d): %v", mapID, err)
		}
	}
}

func TestCTFScript_FlagStandoffRecommendsBreakTarget(t *testing.T) {
	s := NewCTFScript(489, 10)
	carrier := ids.EntityId(7)

	start := time.Now()
	s.flags[0].Carrier = carrier
	s.flags[0].TakenAt = start

	s.UpdateCarrierDebuff(0, start.Add(10*time.Minute))
	if _, broken := s.RecommendedBreakTarget(); broken {
		t.Fatal("break target recommended too early, at exactly 10 minutes (1 stack, not critical)")
	}

	s.UpdateCarrierDebuff(0, start.Add(15*time.Minute+time.Second))
	target, broken := s.RecommendedBreakTarget()
	if !broken {
		t.Fatal("expected break target recommendation at 15+ minutes held")
	}
	if target != carrier {
		t.Fatalf("break target = %v, want %v", target, carrier)
	}

	decision := s.AdjustStrategy(0, 0.5, 0.5)
	if decision.Strategy != StrategyAggressive {
		t.Fatalf("strategy = %v, want aggressive", decision.Strategy)
	}
	if decision.Reasoning != "flag standoff — break opposing carrier" {
		t.Fatalf("reasoning = %q", decision.Reasoning)
	}
}

func TestCoordinator_StrategyChangeRequiresMinInterval(t *testing.T) {
	script := NewCTFScript(489, 10)
	c := NewCoordinator(script, 20*time.Minute)
	c.OpenGates(time.Now())

	now := time.Now()
	c.Update(now, Score{0, 0}, 0.5)
	first := c.Decision()

	// Too soon (< 30s min-change interval) — strategy must not change even
	// if the script would recommend something new.
	c.Update(now.Add(6*time.Second), Score{5, 0}, 0.5)
	after := c.Decision()
	if after.Strategy != first.Strategy || after.Reasoning != first.Reasoning {
		t.Fatal("strategy changed before min-change interval elapsed")
	}
}

func TestEpicScript_BossAssaultIsTerminal(t *testing.T) {
	events := []SideEvent{
		{ID: ids.EntityId(10), Name: "mine", Weight: 2, ControllingTeam: -1},
		{ID: ids.EntityId(11), Name: "tower", Weight: 1, ControllingTeam: -1},
	}
	s := NewEpicScript(30, 40, 600, events, [2]ids.EntityId{100, 200})

	if got := s.ExtractScore(nil); got.Team0 != 600 || got.Team1 != 600 {
		t.Fatalf("initial reinforcements = %+v, want 600/600", got)
	}
	s.RecordDeath(1)
	if got := s.ExtractScore(nil); got.Team1 != 599 {
		t.Fatalf("team1 reinforcements after death = %d, want 599", got.Team1)
	}

	d := s.AdjustStrategy(1, 0.5, 0.2)
	if d.Strategy == StrategyAllIn {
		t.Fatal("all-in recommended before the boss assault opened")
	}

	s.OpenBossAssault(0)
	if !s.BossAssaultOpen(0) {
		t.Fatal("boss assault not reported open after OpenBossAssault")
	}
	d = s.AdjustStrategy(1, 0.5, 0.2)
	if d.Strategy != StrategyAllIn {
		t.Fatalf("strategy = %v, want all-in once the boss assault opens", d.Strategy)
	}

	if s.DamageBoss(0, 0.5) {
		t.Fatal("boss reported dead at half health")
	}
	if !s.DamageBoss(0, 0.6) {
		t.Fatal("boss not reported dead at zero health")
	}
	if got := s.WinProbability(s.ExtractScore(nil), 0.5); got != 1 {
		t.Fatalf("win probability after boss kill = %v, want 1", got)
	}
}

func TestEpicScript_SideEventsTrackedViaOnEvent(t *testing.T) {
	events := []SideEvent{{ID: ids.EntityId(10), Name: "mine", Weight: 2, ControllingTeam: -1}}
	s := NewEpicScript(30, 40, 600, events, [2]ids.EntityId{100, 200})

	if n := len(s.ActiveSideEvents()); n != 0 {
		t.Fatalf("active side events = %d, want 0 before any start", n)
	}
	s.OnEvent("side_event_start", ids.EntityId(10))
	if n := len(s.ActiveSideEvents()); n != 1 {
		t.Fatalf("active side events = %d, want 1 after start", n)
	}
	s.OnEvent("side_event_end", ids.EntityId(10))
	if n := len(s.ActiveSideEvents()); n != 0 {
		t.Fatalf("active side events = %d, want 0 after end", n)
	}
}

func TestParseMapData_SeedsDominationScript(t *testing.T) {
	raw := []byte(`
map_id: 529
name: arathi_basin
max_per_side: 15
spawns:
  0: {x: 100, y: 200, z: 10}
  1: {x: -100, y: -200, z: 10}
strategic:
  blacksmith: {x: 0, y: 0, z: 5}
nodes:
  - {id: 1, name: stables, pos: {x: 50, y: 50, z: 0}}
  - {id: 2, name: farm, pos: {x: -50, y: -50, z: 0}}
points_per_tick:
  1: 1
  2: 3
`)
	d, err := ParseMapData(raw)
	if err != nil {
		t.Fatalf("ParseMapData: %v", err)
	}
	if d.MapID != 529 || d.MaxPerSide != 15 {
		t.Fatalf("decoded map = %d/%d, want 529/15", d.MapID, d.MaxPerSide)
	}
	if got := d.SpawnPositions()[0]; got != (ids.Position{X: 100, Y: 200, Z: 10}) {
		t.Fatalf("team 0 spawn = %+v", got)
	}
	if _, ok := d.StrategicPositions()["blacksmith"]; !ok {
		t.Fatal("strategic table missing blacksmith")
	}

	s := d.DominationScript()
	if s.MapID() != 529 {
		t.Fatalf("script map id = %d, want 529", s.MapID())
	}
	if n := len(s.InitialObjectives()); n != 2 {
		t.Fatalf("objectives = %d, want 2", n)
	}
}

func TestParseMapData_RejectsMissingMapID(t *testing.T) {
	if _, err := ParseMapData([]byte("name: broken\n")); err == nil {
		t.Fatal("expected an error for map data without a map_id")
	}
}

func TestAssign_RespectsRoleDistributionCapacity(t *testing.T) {
	candidates := []Candidate{
		{Agent: ids.EntityId(1), BaseRole: ids.RoleHealer},
		{Agent: ids.EntityId(2), BaseRole: ids.RoleHealer},
		{Agent: ids.EntityId(3), BaseRole: ids.RoleDps},
	}
	dist := RoleDistribution{RoleHealerOffense: 1, RoleFlagHunter: 1}

	assigned := Assign(candidates, dist, nil)
	if len(assigned) != 2 {
		t.Fatalf("assigned %d agents, want 2 (capacity-limited)", len(assigned))
	}

	counts := map[Role]int{}
	for _, role := range assigned {
		counts[role]++
	}
	if counts[RoleHealerOffense] != 1 {
		t.Fatalf("healer_offense count = %d, want 1", counts[RoleHealerOffense])
	}
}

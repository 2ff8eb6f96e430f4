package battleground

import (
	"github.com/ashgrove/legion/internal/ids"
)

// SideEvent is one of an epic map's simultaneous optional objectives:
// capturing it grants its bonus (reinforcements, a buff, a summon) but none
// of them is individually required to win.
type SideEvent struct {
	ID              ids.EntityId
	Name            string
	ControllingTeam int // -1 uncontrolled
	Active          bool
	Weight          float64 // strategic value relative to the main push
}

// EpicScript is the shared base for long-format hybrid maps: no score cap,
// reinforcement attrition on both sides, several side events running at
// once, and a terminal boss whose death ends the match outright.
type EpicScript struct {
	mapID      int
	maxPerSide int

	reinforcements [2]int
	sideEvents     map[ids.EntityId]*SideEvent
	bosses         [2]ids.EntityId // bosses[team] is the boss team must kill
	bossHealth     [2]float64
	bossAssault    [2]bool // bossAssault[team]: team's path to the enemy boss is open
}

// NewEpicScript constructs the base with the given side events and per-team
// terminal bosses. startingReinforcements seeds both sides equally.
func NewEpicScript(mapID, maxPerSide, startingReinforcements int, events []SideEvent, bosses [2]ids.EntityId) *EpicScript {
	s := &EpicScript{
		mapID:          mapID,
		maxPerSide:     maxPerSide,
		reinforcements: [2]int{startingReinforcements, startingReinforcements},
		sideEvents:     make(map[ids.EntityId]*SideEvent, len(events)),
		bosses:         bosses,
		bossHealth:     [2]float64{1, 1},
	}
	for i := range events {
		s.sideEvents[events[i].ID] = &events[i]
	}
	return s
}

func (s *EpicScript) MapID() int             { return s.mapID }
func (s *EpicScript) MaxPlayersPerSide() int { return s.maxPerSide }

func (s *EpicScript) AllowedRoles() []Role {
	return []Role{RoleBossAssault, RoleNodeAttacker, RoleNodeDefender, RoleRoamer, RoleHealerOffense, RoleHealerDefense}
}

func (s *EpicScript) InitialObjectives() []ObjectiveState {
	out := make([]ObjectiveState, 0, len(s.sideEvents)+2)
	for _, ev := range s.sideEvents {
		out = append(out, ObjectiveState{ID: ev.ID, Name: ev.Name, Owner: ev.ControllingTeam})
	}
	for team, boss := range s.bosses {
		out = append(out, ObjectiveState{ID: boss, Name: "boss", Owner: 1 - team, Value: 1})
	}
	return out
}

func (s *EpicScript) SpawnPositions() map[int]ids.Position        { return map[int]ids.Position{} }
func (s *EpicScript) StrategicPositions() map[string]ids.Position { return map[string]ids.Position{} }
func (s *EpicScript) InitialWorldState() map[int]int              { return map[int]int{} }

func (s *EpicScript) InterpretWorldState(delta WorldStateDelta) (ObjectiveChange, bool) {
	ev, ok := s.sideEvents[ids.EntityId(delta.Key)]
	if !ok {
		return ObjectiveChange{}, false
	}
	ev.ControllingTeam = delta.Value
	ev.Active = delta.Value >= 0
	return ObjectiveChange{
		ObjectiveID: ev.ID,
		NewState:    ObjectiveState{ID: ev.ID, Name: ev.Name, Owner: delta.Value},
	}, true
}

// ExtractScore reports reinforcement counts: epic maps have no score cap,
// so "score" is how much attrition each side can still absorb.
func (s *EpicScript) ExtractScore(worldState map[int]int) Score {
	return Score{Team0: s.reinforcements[0], Team1: s.reinforcements[1]}
}

// RecordDeath decrements team's reinforcement pool on a player death.
func (s *EpicScript) RecordDeath(team int) {
	if team == 0 || team == 1 {
		if s.reinforcements[team] > 0 {
			s.reinforcements[team]--
		}
	}
}

// OpenBossAssault marks team's path to the enemy boss as breached.
func (s *EpicScript) OpenBossAssault(team int) {
	if team == 0 || team == 1 {
		s.bossAssault[team] = true
	}
}

// BossAssaultOpen reports whether team can reach the enemy boss.
func (s *EpicScript) BossAssaultOpen(team int) bool {
	if team != 0 && team != 1 {
		return false
	}
	return s.bossAssault[team]
}

// DamageBoss applies fractional damage to the boss team must kill,
// reporting whether that boss is now dead, the terminal win condition.
func (s *EpicScript) DamageBoss(team int, fraction float64) bool {
	if team != 0 && team != 1 {
		return false
	}
	s.bossHealth[team] -= fraction
	if s.bossHealth[team] < 0 {
		s.bossHealth[team] = 0
	}
	return s.bossHealth[team] <= 0
}

// BossHealth returns the health fraction of the boss team must kill.
func (s *EpicScript) BossHealth(team int) float64 {
	if team != 0 && team != 1 {
		return 1
	}
	return s.bossHealth[team]
}

// ActiveSideEvents returns the side events currently running, for the role
// manager to spread roamers across.
func (s *EpicScript) ActiveSideEvents() []SideEvent {
	out := make([]SideEvent, 0, len(s.sideEvents))
	for _, ev := range s.sideEvents {
		if ev.Active {
			out = append(out, *ev)
		}
	}
	return out
}

func (s *EpicScript) RecommendRoles(decision StrategicDecision) RoleDistribution {
	if decision.Strategy == StrategyAllIn {
		return RoleDistribution{
			RoleBossAssault:   s.maxPerSide - 2,
			RoleNodeDefender:  1,
			RoleHealerOffense: 1,
		}
	}
	attackers := s.maxPerSide / 2
	return RoleDistribution{
		RoleNodeAttacker:  attackers,
		RoleNodeDefender:  s.maxPerSide - attackers - 2,
		RoleRoamer:        1,
		RoleHealerOffense: 1,
	}
}

func (s *EpicScript) AdjustStrategy(scoreAdvantage int, control float64, timeFraction float64) StrategicDecision {
	if s.bossAssault[0] {
		return StrategicDecision{
			Strategy:      StrategyAllIn,
			AttackTargets: []ids.EntityId{s.bosses[0]},
			Reasoning:     "boss assault open, commit everything",
			Confidence:    0.9,
		}
	}
	if scoreAdvantage < 0 {
		// Behind on reinforcements: trading deaths loses; shift to side
		// events that refill the pool instead of open-field fights.
		return StrategicDecision{Strategy: StrategyDefensive, Reasoning: "conserve reinforcements, work side events", Confidence: 0.65}
	}
	if control > 0.6 {
		return StrategicDecision{Strategy: StrategyAggressive, Reasoning: "press map control toward the boss", Confidence: 0.7}
	}
	return StrategicDecision{Strategy: StrategyBalanced, Reasoning: "long match, hold shape", Confidence: 0.5}
}

func (s *EpicScript) AttackPriority(objectiveID ids.EntityId) float64 {
	if objectiveID == s.bosses[0] && s.bossAssault[0] {
		return 10
	}
	if ev, ok := s.sideEvents[objectiveID]; ok && ev.Active {
		return ev.Weight
	}
	return 0.5
}

func (s *EpicScript) DefendPriority(objectiveID ids.EntityId) float64 {
	if objectiveID == s.bosses[1] {
		return 10
	}
	return 1.0
}

func (s *EpicScript) WinProbability(score Score, timeFraction float64) float64 {
	if s.bossHealth[0] <= 0 {
		return 1
	}
	if s.bossHealth[1] <= 0 {
		return 0
	}
	total := float64(score.Team0 + score.Team1)
	if total == 0 {
		return 0.5
	}
	return clamp01(float64(score.Team0) / total)
}

// OnEvent lets the coordinator feed named battleground events (a side event
// spawning or despawning) without a world-state delta.
func (s *EpicScript) OnEvent(name string, objectiveID ids.EntityId) {
	ev, ok := s.sideEvents[objectiveID]
	if !ok {
		return
	}
	switch name {
	case "side_event_start":
		ev.Active = true
	case "side_event_end":
		ev.Active = false
		ev.ControllingTeam = -1
	}
}

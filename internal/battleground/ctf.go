package battleground

import (
	"time"

	"github.com/ashgrove/legion/internal/ids"
)

// Carrier-debuff timings: the escalating debuff begins at 10 minutes held
// and intensifies at 15.
const (
	flagCarrierDebuffAt10Min = 10 * time.Minute
	flagCarrierDebuffAt15Min = 15 * time.Minute
)

// criticalCarrierStacks is the stack count at which a flag carrier becomes
// the recommended break target.
const criticalCarrierStacks = 3

// FlagState tracks one team's flag.
type FlagState struct {
	AtBase   bool
	Carrier  ids.EntityId // Empty if at base or dropped
	Dropped  bool
	DropPos  ids.Position
	TakenAt  time.Time
	DebuffStacks int
}

// CTFScript is the shared base for capture-the-flag map variants: flag
// pickup/drop/capture/return, carrier debuff escalation, EFC hunting, and
// overtime tie-breaking.
type CTFScript struct {
	mapID       int
	maxPerSide  int
	flags       [2]FlagState
	scoreByTeam [2]int
	overtime    bool
}

// NewCTFScript constructs the CTF base for mapID with maxPerSide-player
// rosters. Map-specific scripts embed this and override as needed.
func NewCTFScript(mapID, maxPerSide int) *CTFScript {
	return &CTFScript{mapID: mapID, maxPerSide: maxPerSide, flags: [2]FlagState{{AtBase: true}, {AtBase: true}}}
}

func (s *CTFScript) MapID() int            { return s.mapID }
func (s *CTFScript) MaxPlayersPerSide() int { return s.maxPerSide }

func (s *CTFScript) AllowedRoles() []Role {
	return []Role{RoleFlagCarrier, RoleFlagEscort, RoleFlagHunter, RoleRoamer, RoleHealerOffense, RoleHealerDefense}
}

func (s *CTFScript) InitialObjectives() []ObjectiveState {
	return []ObjectiveState{
		{ID: ids.EntityId(1), Name: "team0_flag", Owner: 0, Value: 1},
		{ID: ids.EntityId(2), Name: "team1_flag", Owner: 1, Value: 1},
	}
}

func (s *CTFScript) SpawnPositions() map[int]ids.Position       { return map[int]ids.Position{} }
func (s *CTFScript) StrategicPositions() map[string]ids.Position { return map[string]ids.Position{} }
func (s *CTFScript) InitialWorldState() map[int]int              { return map[int]int{} }

// Flag world-state keys: team index selects which flag, value selects the
// FlagState transition. The mapping lives here, next to the state it
// mutates, rather than in callers' comments.
const (
	worldStateFlagAtBase = iota
	worldStateFlagTaken
	worldStateFlagDropped
	worldStateFlagCaptured
)

func (s *CTFScript) InterpretWorldState(delta WorldStateDelta) (ObjectiveChange, bool) {
	team := delta.Key
	if team != 0 && team != 1 {
		return ObjectiveChange{}, false
	}
	flag := &s.flags[team]
	switch delta.Value {
	case worldStateFlagAtBase:
		*flag = FlagState{AtBase: true}
	case worldStateFlagTaken:
		flag.AtBase, flag.Dropped = false, false
		flag.TakenAt = time.Now()
	case worldStateFlagDropped:
		flag.Dropped = true
		flag.Carrier = ids.Empty
	case worldStateFlagCaptured:
		s.scoreByTeam[1-team]++
		*flag = FlagState{AtBase: true}
	default:
		return ObjectiveChange{}, false
	}
	return ObjectiveChange{
		ObjectiveID: ids.EntityId(team + 1),
		NewState:    ObjectiveState{ID: ids.EntityId(team + 1), Owner: team, Value: flagValue(*flag)},
	}, true
}

func flagValue(f FlagState) float64 {
	if f.AtBase {
		return 1
	}
	if f.Dropped {
		return 0.5
	}
	return 0
}

func (s *CTFScript) ExtractScore(worldState map[int]int) Score {
	return Score{Team0: s.scoreByTeam[0], Team1: s.scoreByTeam[1]}
}

// UpdateCarrierDebuff advances a carrier's debuff stack count given how
// long they've held the flag. The caller invokes it per tick; the
// Coordinator does not call it.
func (s *CTFScript) UpdateCarrierDebuff(team int, now time.Time) {
	flag := &s.flags[team]
	if flag.Carrier.IsEmpty() || flag.TakenAt.IsZero() {
		return
	}
	held := now.Sub(flag.TakenAt)
	switch {
	case held >= flagCarrierDebuffAt15Min:
		flag.DebuffStacks = 3
	case held >= flagCarrierDebuffAt10Min:
		flag.DebuffStacks = 1
	}
}

// RecommendedBreakTarget returns the carrier whose debuff has reached
// criticalCarrierStacks, if any — the enemy flag carrier (EFC) the team
// should focus to force a drop.
func (s *CTFScript) RecommendedBreakTarget() (ids.EntityId, bool) {
	for i := range s.flags {
		if s.flags[i].DebuffStacks >= criticalCarrierStacks && !s.flags[i].Carrier.IsEmpty() {
			return s.flags[i].Carrier, true
		}
	}
	return ids.Empty, false
}

func (s *CTFScript) RecommendRoles(decision StrategicDecision) RoleDistribution {
	dist := RoleDistribution{
		RoleFlagCarrier: 1,
		RoleFlagEscort:  2,
		RoleFlagHunter:  2,
	}
	if decision.Strategy == StrategyAggressive {
		dist[RoleFlagHunter] = 3
		dist[RoleFlagEscort] = 1
	}
	return dist
}

func (s *CTFScript) AdjustStrategy(scoreAdvantage int, control float64, timeFraction float64) StrategicDecision {
	if _, broken := s.RecommendedBreakTarget(); broken {
		return StrategicDecision{
			Strategy:   StrategyAggressive,
			Reasoning:  "flag standoff — break opposing carrier",
			Confidence: 0.8,
		}
	}
	if scoreAdvantage < 0 && timeFraction > 0.8 {
		return StrategicDecision{Strategy: StrategyComeback, Reasoning: "behind late in match", Confidence: 0.6}
	}
	if scoreAdvantage > 0 {
		return StrategicDecision{Strategy: StrategyDefensive, Reasoning: "protect lead", Confidence: 0.6}
	}
	return StrategicDecision{Strategy: StrategyBalanced, Reasoning: "even match", Confidence: 0.5}
}

func (s *CTFScript) AttackPriority(objectiveID ids.EntityId) float64 { return 1.0 }
func (s *CTFScript) DefendPriority(objectiveID ids.EntityId) float64 { return 1.0 }

func (s *CTFScript) WinProbability(score Score, timeFraction float64) float64 {
	diff := float64(score.Team0 - score.Team1)
	return clamp01(0.5 + diff*0.1)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

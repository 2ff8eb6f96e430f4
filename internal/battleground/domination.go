package battleground

import (
	"github.com/ashgrove/legion/internal/ids"
)

// Node is a capturable control point tracked by the domination base.
type Node struct {
	ID          ids.EntityId
	Name        string
	Owner       int // -1 neutral
	Progress    float64
	PointsPerTick int
}

// DominationScript is the shared base for node-capture map variants: progress
// bars, tick-based scoring keyed by count-controlled nodes, and routing
// between nodes.
type DominationScript struct {
	mapID      int
	maxPerSide int
	nodes      []Node
	scoreByTeam [2]int

	// pointsPerTickByCount maps "nodes controlled" to per-tick score, the
	// "optimal count" table (e.g. 3 of 5 is usually sufficient).
	pointsPerTickByCount map[int]int
}

// NewDominationScript constructs the base with the given node set and
// points-per-tick table (indexed by number of nodes one team controls).
func NewDominationScript(mapID, maxPerSide int, nodes []Node, pointsPerTickByCount map[int]int) *DominationScript {
	return &DominationScript{mapID: mapID, maxPerSide: maxPerSide, nodes: nodes, pointsPerTickByCount: pointsPerTickByCount}
}

func (s *DominationScript) MapID() int            { return s.mapID }
func (s *DominationScript) MaxPlayersPerSide() int { return s.maxPerSide }

func (s *DominationScript) AllowedRoles() []Role {
	return []Role{RoleNodeAttacker, RoleNodeDefender, RoleRoamer, RoleHealerOffense, RoleHealerDefense}
}

func (s *DominationScript) InitialObjectives() []ObjectiveState {
	out := make([]ObjectiveState, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, ObjectiveState{ID: n.ID, Name: n.Name, Owner: n.Owner, Value: n.Progress})
	}
	return out
}

func (s *DominationScript) SpawnPositions() map[int]ids.Position        { return map[int]ids.Position{} }
func (s *DominationScript) StrategicPositions() map[string]ids.Position { return map[string]ids.Position{} }
func (s *DominationScript) InitialWorldState() map[int]int              { return map[int]int{} }

func (s *DominationScript) InterpretWorldState(delta WorldStateDelta) (ObjectiveChange, bool) {
	idx := delta.Key
	if idx < 0 || idx >= len(s.nodes) {
		return ObjectiveChange{}, false
	}
	s.nodes[idx].Owner = delta.Value
	return ObjectiveChange{
		ObjectiveID: s.nodes[idx].ID,
		NewState:    ObjectiveState{ID: s.nodes[idx].ID, Owner: delta.Value, Value: 1},
	}, true
}

// Tick applies one scoring tick: each team earns points based on how many
// nodes it currently controls, per the points-per-tick table.
func (s *DominationScript) Tick() {
	controlled := [2]int{}
	for _, n := range s.nodes {
		if n.Owner == 0 || n.Owner == 1 {
			controlled[n.Owner]++
		}
	}
	s.scoreByTeam[0] += s.pointsPerTickByCount[controlled[0]]
	s.scoreByTeam[1] += s.pointsPerTickByCount[controlled[1]]
}

func (s *DominationScript) ExtractScore(worldState map[int]int) Score {
	return Score{Team0: s.scoreByTeam[0], Team1: s.scoreByTeam[1]}
}

// optimalNodeCount returns the smallest controlled-count that yields the
// maximum available points-per-tick, i.e. the point past which taking more
// nodes stops mattering (e.g. 3 of 5).
func (s *DominationScript) optimalNodeCount() int {
	best, bestPts := 0, 0
	for count, pts := range s.pointsPerTickByCount {
		if pts > bestPts || (pts == bestPts && count < best) {
			bestPts, best = pts, count
		}
	}
	return best
}

func (s *DominationScript) RecommendRoles(decision StrategicDecision) RoleDistribution {
	optimal := s.optimalNodeCount()
	if optimal == 0 {
		optimal = len(s.nodes)
	}
	attackers := optimal
	if attackers > s.maxPerSide-1 {
		attackers = s.maxPerSide - 1
	}
	return RoleDistribution{
		RoleNodeAttacker: attackers,
		RoleNodeDefender: s.maxPerSide - attackers,
	}
}

func (s *DominationScript) AdjustStrategy(scoreAdvantage int, control float64, timeFraction float64) StrategicDecision {
	if control < 0.4 {
		return StrategicDecision{Strategy: StrategyAggressive, Reasoning: "under-controlling nodes", Confidence: 0.7}
	}
	if control > 0.6 && scoreAdvantage > 0 {
		return StrategicDecision{Strategy: StrategyTurtle, Reasoning: "hold node advantage", Confidence: 0.65}
	}
	return StrategicDecision{Strategy: StrategyBalanced, Reasoning: "contested map", Confidence: 0.5}
}

func (s *DominationScript) AttackPriority(objectiveID ids.EntityId) float64 { return 1.0 }
func (s *DominationScript) DefendPriority(objectiveID ids.EntityId) float64 { return 1.0 }

func (s *DominationScript) WinProbability(score Score, timeFraction float64) float64 {
	diff := float64(score.Team0 - score.Team1)
	return clamp01(0.5 + diff*0.01*timeFraction)
}

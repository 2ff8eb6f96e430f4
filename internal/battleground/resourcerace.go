package battleground

import (
	"github.com/ashgrove/legion/internal/ids"
)

// Intersection is a branch point on a cart track where the next direction
// is decided by which team currently controls it.
type Intersection struct {
	ID          ids.EntityId
	ControllingTeam int // -1 contested/neutral
}

// Cart is a mobile resource carrier moving along a track.
type Cart struct {
	ID           ids.EntityId
	Team         int
	Position     ids.Position
	AtIntersection ids.EntityId // Empty when in transit
	Contested    bool
}

// ResourceRaceScript is the shared base for mobile-cart map variants: carts
// on tracks with intersections, direction chosen by intersection control,
// and in-transit contest checks.
type ResourceRaceScript struct {
	mapID        int
	maxPerSide   int
	intersections map[ids.EntityId]*Intersection
	carts        map[ids.EntityId]*Cart
	scoreByTeam  [2]int
}

// NewResourceRaceScript constructs the base with the given track topology.
func NewResourceRaceScript(mapID, maxPerSide int, intersections []Intersection, carts []Cart) *ResourceRaceScript {
	s := &ResourceRaceScript{
		mapID:        mapID,
		maxPerSide:   maxPerSide,
		intersections: make(map[ids.EntityId]*Intersection, len(intersections)),
		carts:        make(map[ids.EntityId]*Cart, len(carts)),
	}
	for i := range intersections {
		s.intersections[intersections[i].ID] = &intersections[i]
	}
	for i := range carts {
		s.carts[carts[i].ID] = &carts[i]
	}
	return s
}

func (s *ResourceRaceScript) MapID() int            { return s.mapID }
func (s *ResourceRaceScript) MaxPlayersPerSide() int { return s.maxPerSide }

func (s *ResourceRaceScript) AllowedRoles() []Role {
	return []Role{RoleCartPusher, RoleNodeAttacker, RoleNodeDefender, RoleRoamer}
}

func (s *ResourceRaceScript) InitialObjectives() []ObjectiveState {
	out := make([]ObjectiveState, 0, len(s.carts))
	for _, c := range s.carts {
		out = append(out, ObjectiveState{ID: c.ID, Name: "cart", Owner: c.Team})
	}
	return out
}

func (s *ResourceRaceScript) SpawnPositions() map[int]ids.Position        { return map[int]ids.Position{} }
func (s *ResourceRaceScript) StrategicPositions() map[string]ids.Position { return map[string]ids.Position{} }
func (s *ResourceRaceScript) InitialWorldState() map[int]int              { return map[int]int{} }

func (s *ResourceRaceScript) InterpretWorldState(delta WorldStateDelta) (ObjectiveChange, bool) {
	return ObjectiveChange{}, false
}

func (s *ResourceRaceScript) ExtractScore(worldState map[int]int) Score {
	return Score{Team0: s.scoreByTeam[0], Team1: s.scoreByTeam[1]}
}

// NextDirection returns which team's track branch a cart should take at
// intersectionID: whichever team currently controls it, or -1 if contested,
// uncontrolled or unknown (cart should hold position).
func (s *ResourceRaceScript) NextDirection(intersectionID ids.EntityId) int {
	in, ok := s.intersections[intersectionID]
	if !ok {
		return -1
	}
	return in.ControllingTeam
}

// SetIntersectionControl updates which team controls an intersection.
func (s *ResourceRaceScript) SetIntersectionControl(intersectionID ids.EntityId, team int) {
	if in, ok := s.intersections[intersectionID]; ok {
		in.ControllingTeam = team
	}
}

// MarkContested flags a cart as currently being fought over in transit. The
// script records the flag only; it does not model cart movement.
func (s *ResourceRaceScript) MarkContested(cartID ids.EntityId, contested bool) {
	if c, ok := s.carts[cartID]; ok {
		c.Contested = contested
	}
}

func (s *ResourceRaceScript) RecommendRoles(decision StrategicDecision) RoleDistribution {
	return RoleDistribution{RoleCartPusher: 2, RoleNodeAttacker: s.maxPerSide - 3, RoleNodeDefender: 1}
}

func (s *ResourceRaceScript) AdjustStrategy(scoreAdvantage int, control float64, timeFraction float64) StrategicDecision {
	if scoreAdvantage < 0 {
		return StrategicDecision{Strategy: StrategyAggressive, Reasoning: "push carts harder", Confidence: 0.6}
	}
	return StrategicDecision{Strategy: StrategyBalanced, Reasoning: "maintain pace", Confidence: 0.5}
}

func (s *ResourceRaceScript) AttackPriority(objectiveID ids.EntityId) float64 { return 1.0 }
func (s *ResourceRaceScript) DefendPriority(objectiveID ids.EntityId) float64 { return 1.0 }

func (s *ResourceRaceScript) WinProbability(score Score, timeFraction float64) float64 {
	return clamp01(0.5 + float64(score.Team0-score.Team1)*0.05)
}

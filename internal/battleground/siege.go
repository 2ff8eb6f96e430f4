package battleground

import (
	"time"

	"github.com/ashgrove/legion/internal/ids"
)

// Gate is a destructible barrier gating access to deeper objectives.
type Gate struct {
	ID      ids.EntityId
	Name    string
	Health  float64 // fraction 0..1
	Destroyed bool
	RequiresGate ids.EntityId // Empty if no prerequisite
}

// VehicleSeat is a driver/gunner slot in a siege vehicle.
type VehicleSeat struct {
	Role    Role // RoleVehicleDriver or RoleVehicleGunner
	Occupant ids.EntityId
}

// Vehicle is a siege-map mobile asset with driver/gunner lifecycle.
type Vehicle struct {
	ID    ids.EntityId
	Team  int
	Seats []VehicleSeat
	Alive bool
}

// SiegeScript is the shared base for gate/vehicle/boss map variants,
// including round-based attacker/defender swap formats.
type SiegeScript struct {
	mapID      int
	maxPerSide int
	gates      map[ids.EntityId]*Gate
	vehicles   map[ids.EntityId]*Vehicle
	bossReachable bool

	roundBased   bool
	round        int
	round1Time   time.Duration
	attackerTeam int
}

// NewSiegeScript constructs the base with the given gate chain and vehicle
// roster. roundBased enables the attacker/defender swap format where
// round 1's clear time becomes round 2's benchmark.
func NewSiegeScript(mapID, maxPerSide int, gates []Gate, vehicles []Vehicle, roundBased bool) *SiegeScript {
	s := &SiegeScript{
		mapID:      mapID,
		maxPerSide: maxPerSide,
		gates:      make(map[ids.EntityId]*Gate, len(gates)),
		vehicles:   make(map[ids.EntityId]*Vehicle, len(vehicles)),
		roundBased: roundBased,
		round:      1,
	}
	for i := range gates {
		s.gates[gates[i].ID] = &gates[i]
	}
	for i := range vehicles {
		s.vehicles[vehicles[i].ID] = &vehicles[i]
	}
	return s
}

func (s *SiegeScript) MapID() int            { return s.mapID }
func (s *SiegeScript) MaxPlayersPerSide() int { return s.maxPerSide }

func (s *SiegeScript) AllowedRoles() []Role {
	return []Role{RoleVehicleDriver, RoleVehicleGunner, RoleNodeAttacker, RoleNodeDefender, RoleBossAssault}
}

func (s *SiegeScript) InitialObjectives() []ObjectiveState {
	out := make([]ObjectiveState, 0, len(s.gates))
	for _, g := range s.gates {
		out = append(out, ObjectiveState{ID: g.ID, Name: g.Name, Value: g.Health})
	}
	return out
}

func (s *SiegeScript) SpawnPositions() map[int]ids.Position        { return map[int]ids.Position{} }
func (s *SiegeScript) StrategicPositions() map[string]ids.Position { return map[string]ids.Position{} }
func (s *SiegeScript) InitialWorldState() map[int]int              { return map[int]int{} }

func (s *SiegeScript) InterpretWorldState(delta WorldStateDelta) (ObjectiveChange, bool) {
	return ObjectiveChange{}, false
}

func (s *SiegeScript) ExtractScore(worldState map[int]int) Score { return Score{} }

// DamageGate applies damage to a gate and destroys it at zero health,
// unlocking any gate whose RequiresGate points at it.
func (s *SiegeScript) DamageGate(gateID ids.EntityId, fraction float64) {
	g, ok := s.gates[gateID]
	if !ok || g.Destroyed {
		return
	}
	if req, ok := s.gates[g.RequiresGate]; ok && !req.Destroyed {
		return
	}
	g.Health -= fraction
	if g.Health <= 0 {
		g.Health = 0
		g.Destroyed = true
	}
	s.recomputeBossReachable()
}

func (s *SiegeScript) recomputeBossReachable() {
	for _, g := range s.gates {
		if !g.Destroyed {
			s.bossReachable = false
			return
		}
	}
	s.bossReachable = true
}

// BossReachable reports whether the entire gate chain has been destroyed.
func (s *SiegeScript) BossReachable() bool { return s.bossReachable }

// StartNextRound advances to round 2, recording round 1's clear time as the
// benchmark and swapping attacker/defender sides.
func (s *SiegeScript) StartNextRound(round1ClearTime time.Duration) {
	s.round1Time = round1ClearTime
	s.round = 2
	s.attackerTeam = 1 - s.attackerTeam
}

// Round1Benchmark returns the time the round-2 attackers must beat.
func (s *SiegeScript) Round1Benchmark() time.Duration { return s.round1Time }

func (s *SiegeScript) RecommendRoles(decision StrategicDecision) RoleDistribution {
	return RoleDistribution{RoleVehicleDriver: 1, RoleVehicleGunner: 2, RoleNodeAttacker: s.maxPerSide - 3}
}

func (s *SiegeScript) AdjustStrategy(scoreAdvantage int, control float64, timeFraction float64) StrategicDecision {
	if s.bossReachable {
		return StrategicDecision{Strategy: StrategyAllIn, Reasoning: "gate chain down, boss assault window", Confidence: 0.85}
	}
	return StrategicDecision{Strategy: StrategyBalanced, Reasoning: "breaching gate chain", Confidence: 0.5}
}

func (s *SiegeScript) AttackPriority(objectiveID ids.EntityId) float64 {
	if g, ok := s.gates[objectiveID]; ok && !g.Destroyed {
		return 1.0 - g.Health
	}
	return 0
}

func (s *SiegeScript) DefendPriority(objectiveID ids.EntityId) float64 { return 1.0 }

func (s *SiegeScript) WinProbability(score Score, timeFraction float64) float64 {
	if s.bossReachable {
		return 0.75
	}
	return 0.5
}

// Package battleground coordinates large-scale objective-driven PvP. Map
// variants differ enough that per-map logic is factored into a Script
// implementation selected by map id through a Registry. Scripts are
// registered explicitly at subsystem init, never via package-level init()
// side effects, which link-time dead-code elimination can silently drop.
package battleground

import (
	"github.com/ashgrove/legion/internal/ids"
)

// Role is a battleground-specific assignment, distinct from the generic
// arena Tank/Healer/Dps role.
type Role int

const (
	RoleFlagCarrier Role = iota
	RoleFlagEscort
	RoleFlagHunter
	RoleNodeAttacker
	RoleNodeDefender
	RoleRoamer
	RoleHealerOffense
	RoleHealerDefense
	RoleVehicleDriver
	RoleVehicleGunner
	RoleCartPusher
	RoleTurretOperator
	RoleOrbCarrier
	RoleBossAssault
)

// Strategy is the coordinator's current high-level posture.
type Strategy int

const (
	StrategyBalanced Strategy = iota
	StrategyAggressive
	StrategyDefensive
	StrategyTurtle
	StrategyAllIn
	StrategyStall
	StrategyComeback
)

func (s Strategy) String() string {
	switch s {
	case StrategyAggressive:
		return "aggressive"
	case StrategyDefensive:
		return "defensive"
	case StrategyTurtle:
		return "turtle"
	case StrategyAllIn:
		return "all_in"
	case StrategyStall:
		return "stall"
	case StrategyComeback:
		return "comeback"
	default:
		return "balanced"
	}
}

// StrategicDecision is the coordinator's current strategy tag plus target
// allocations, re-evaluated on a fixed cadence (see coordinator.go).
type StrategicDecision struct {
	Strategy           Strategy
	AttackTargets      []ids.EntityId
	DefendTargets      []ids.EntityId
	OffenseAllocation  uint8 // percent
	DefenseAllocation  uint8 // percent
	Reasoning          string
	Confidence         float32
}

// ObjectiveState describes a single trackable objective's current status.
type ObjectiveState struct {
	ID     ids.EntityId
	Name   string
	Owner  int // faction/team index, -1 if neutral
	Value  float64 // generic progress/capture value, 0..1
}

// WorldStateDelta is a raw (key, value) change from the host, which a
// script interprets into an objective-state change.
type WorldStateDelta struct {
	Key   int
	Value int
}

// ObjectiveChange is a script's interpretation of a WorldStateDelta.
type ObjectiveChange struct {
	ObjectiveID ids.EntityId
	NewState    ObjectiveState
}

// Score is the current score snapshot for both sides.
type Score struct {
	Team0, Team1 int
}

// RoleDistribution maps each allowed role to the number of agents that
// should be assigned to it, for a given StrategicDecision.
type RoleDistribution map[Role]int

// Script is the per-map-variant strategy interface. Each battleground map
// selects one Script instance via the Registry.
type Script interface {
	// MapID returns the map this script instance was created for.
	MapID() int
	// MaxPlayersPerSide returns the per-team roster limit.
	MaxPlayersPerSide() int
	// AllowedRoles returns the roles this map's role manager may assign.
	AllowedRoles() []Role
	// InitialObjectives returns the objective list at match start.
	InitialObjectives() []ObjectiveState
	// SpawnPositions returns each team's spawn point.
	SpawnPositions() map[int]ids.Position
	// StrategicPositions returns named strategic points (chokepoints,
	// graveyards, flag rooms) for positioning advice.
	StrategicPositions() map[string]ids.Position
	// InitialWorldState returns the key/value pairs the host begins with.
	InitialWorldState() map[int]int
	// InterpretWorldState turns a raw delta into an objective-state change,
	// or false if the delta is not one this script tracks.
	InterpretWorldState(delta WorldStateDelta) (ObjectiveChange, bool)
	// ExtractScore computes the current score from world state.
	ExtractScore(worldState map[int]int) Score
	// RecommendRoles returns how many agents should hold each allowed role
	// given the current strategic decision.
	RecommendRoles(decision StrategicDecision) RoleDistribution
	// AdjustStrategy proposes a strategy given score advantage (team0 - team1,
	// positive favors us), fractional objective control (0..1), and fraction
	// of match time elapsed (0..1).
	AdjustStrategy(scoreAdvantage int, control float64, timeFraction float64) StrategicDecision
	// AttackPriority ranks objectiveID for offensive focus; higher is more urgent.
	AttackPriority(objectiveID ids.EntityId) float64
	// DefendPriority ranks objectiveID for defensive focus; higher is more urgent.
	DefendPriority(objectiveID ids.EntityId) float64
	// WinProbability estimates the current match win probability for our side.
	WinProbability(score Score, timeFraction float64) float64
}

// TickAware is implemented by scripts that need a per-tick callback in
// addition to the event-driven InterpretWorldState path.
type TickAware interface {
	OnTick(nowFraction float64)
}

// EventAware is implemented by scripts that want to observe coordinator
// events (objective captured, carrier died, etc.) beyond world-state deltas.
type EventAware interface {
	OnEvent(name string, objectiveID ids.EntityId)
}

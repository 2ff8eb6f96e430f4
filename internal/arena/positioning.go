package arena

import (
	"github.com/ashgrove/legion/internal/ids"
)

// Goal is a positioning recommendation for one teammate.
type Goal int

const (
	GoalNone Goal = iota
	GoalAttack
	GoalDefend
	GoalLosPillar
	GoalSpread
	GoalStack
	GoalKite
	GoalChase
	GoalReset
)

func (g Goal) String() string {
	switch g {
	case GoalAttack:
		return "attack"
	case GoalDefend:
		return "defend"
	case GoalLosPillar:
		return "los_pillar"
	case GoalSpread:
		return "spread"
	case GoalStack:
		return "stack"
	case GoalKite:
		return "kite"
	case GoalChase:
		return "chase"
	case GoalReset:
		return "reset"
	default:
		return "none"
	}
}

// Pillar is a line-of-sight obstacle on an arena map.
type Pillar struct {
	Center ids.Position
	Radius float64
	Height float64
}

// MapLayout is the per-map table of pillar obstacles, loaded at match start
// by map id.
type MapLayout struct {
	MapID   int
	Pillars []Pillar
}

// Positioning holds the loaded map layout and computes LOS spots and goal
// recommendations.
type Positioning struct {
	layout MapLayout
}

func newPositioning() *Positioning { return &Positioning{} }

// LoadMap installs the pillar table for a match's map id.
func (p *Positioning) LoadMap(layout MapLayout) { p.layout = layout }

// LOSSpot returns a position behind the pillar nearest to self, relative to
// primaryCaster, that breaks line of sight to it. Falls back to self's
// current position when the map has no pillars.
func (p *Positioning) LOSSpot(self, primaryCaster ids.Position) ids.Position {
	nearest, ok := p.nearestPillar(self)
	if !ok {
		return self
	}
	// Project a point on the far side of the pillar from the caster: walk
	// from the caster through the pillar centre and continue one radius past.
	dx := nearest.Center.X - primaryCaster.X
	dy := nearest.Center.Y - primaryCaster.Y
	d := primaryCaster.Distance(nearest.Center)
	if d == 0 {
		return nearest.Center
	}
	ux, uy := dx/d, dy/d
	return ids.Position{
		X: nearest.Center.X + ux*nearest.Radius,
		Y: nearest.Center.Y + uy*nearest.Radius,
		Z: self.Z,
	}
}

func (p *Positioning) nearestPillar(from ids.Position) (Pillar, bool) {
	if len(p.layout.Pillars) == 0 {
		return Pillar{}, false
	}
	best := p.layout.Pillars[0]
	bestDist := from.Distance(best.Center)
	for _, pillar := range p.layout.Pillars[1:] {
		if d := from.Distance(pillar.Center); d < bestDist {
			bestDist = d
			best = pillar
		}
	}
	return best, true
}

// SpreadDirection returns a unit-ish vector pointing self away from the
// nearest teammate, for spread-out positioning (e.g. to avoid cleave/AoE).
func SpreadDirection(self ids.Position, nearestTeammate ids.Position) ids.Position {
	dx := self.X - nearestTeammate.X
	dy := self.Y - nearestTeammate.Y
	d := self.Distance(nearestTeammate)
	if d == 0 {
		return ids.Position{X: 1}
	}
	return ids.Position{X: dx / d, Y: dy / d}
}

// StackDirection returns a vector pointing self toward stackPoint.
func StackDirection(self, stackPoint ids.Position) ids.Position {
	dx := stackPoint.X - self.X
	dy := stackPoint.Y - self.Y
	d := self.Distance(stackPoint)
	if d == 0 {
		return ids.Position{}
	}
	return ids.Position{X: dx / d, Y: dy / d}
}

// KiteDirection returns a vector pointing self away from threat.
func KiteDirection(self, threat ids.Position) ids.Position {
	return SpreadDirection(self, threat)
}

// RecommendGoal picks a single positioning goal for self given the match
// context. This is a coarse heuristic: LosPillar takes priority whenever
// primaryCasterInLOS is false, burst windows favor Stack, otherwise
// Attack/Defend follow role. CC state is not an input.
func (p *Positioning) RecommendGoal(self Teammate, primaryCasterInLOS bool, burstActive bool, isDefensiveRole bool) Goal {
	if !self.Alive {
		return GoalNone
	}
	if !primaryCasterInLOS {
		return GoalLosPillar
	}
	if burstActive {
		return GoalStack
	}
	if isDefensiveRole {
		return GoalDefend
	}
	return GoalAttack
}

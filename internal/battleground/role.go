package battleground

import (
	"sort"

	"github.com/ashgrove/legion/internal/ids"
)

// Candidate is an agent's profile as seen by the role manager: its class
// role proxy (tank/healer/dps), current state, and suitability hints.
type Candidate struct {
	Agent      ids.EntityId
	BaseRole   ids.Role
	IsMounted  bool
	HasFlag    bool
	NearObjective bool
}

// SuitabilityFunc scores how well a candidate fits a Role; higher is
// better. The default table below covers the common cases; callers can
// supply their own for map-specific nuance.
type SuitabilityFunc func(Candidate, Role) float64

// DefaultSuitability scores a candidate against a role using generic
// class/state heuristics shared across every map family.
func DefaultSuitability(c Candidate, role Role) float64 {
	switch role {
	case RoleFlagCarrier, RoleOrbCarrier:
		if c.HasFlag {
			return 10
		}
		if c.BaseRole == ids.RoleDps {
			return 3
		}
		return 1
	case RoleFlagEscort, RoleNodeDefender:
		if c.BaseRole == ids.RoleTank {
			return 4
		}
		return 2
	case RoleFlagHunter, RoleRoamer, RoleNodeAttacker, RoleBossAssault:
		if c.BaseRole == ids.RoleDps {
			return 3
		}
		return 1.5
	case RoleHealerOffense, RoleHealerDefense:
		if c.BaseRole == ids.RoleHealer {
			return 5
		}
		return 0
	case RoleVehicleDriver, RoleVehicleGunner, RoleCartPusher, RoleTurretOperator:
		if c.IsMounted {
			return 4
		}
		return 2
	default:
		return 1
	}
}

// Assign greedily assigns candidates to roles to best satisfy dist, by
// repeatedly picking the highest-scoring (candidate, open role) pair. Each
// candidate receives at most one role; roles with no remaining capacity are
// skipped.
func Assign(candidates []Candidate, dist RoleDistribution, suitability SuitabilityFunc) map[ids.EntityId]Role {
	if suitability == nil {
		suitability = DefaultSuitability
	}
	remaining := make(map[Role]int, len(dist))
	for role, n := range dist {
		remaining[role] = n
	}

	type pair struct {
		candidate int
		role      Role
		score     float64
	}
	var pairs []pair
	for i, c := range candidates {
		for role := range dist {
			pairs = append(pairs, pair{candidate: i, role: role, score: suitability(c, role)})
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].score > pairs[j].score })

	assigned := make(map[ids.EntityId]Role, len(candidates))
	taken := make(map[int]bool, len(candidates))
	for _, p := range pairs {
		if taken[p.candidate] || remaining[p.role] <= 0 {
			continue
		}
		assigned[candidates[p.candidate].Agent] = p.role
		taken[p.candidate] = true
		remaining[p.role]--
	}
	return assigned
}

package dungeon

import (
	"time"

	"github.com/ashgrove/legion/internal/ids"
	"github.com/ashgrove/legion/internal/swarmbus"
)

// Marker is a raid-marker icon used to communicate kill order and CC
// targets at a glance, mirroring the skull/cross/diamond/moon/square set.
type Marker int

const (
	MarkerNone Marker = iota
	MarkerSkull
	MarkerCross
	MarkerDiamond
	MarkerMoon
	MarkerSquare
)

// eliteModifier inflates a pack's effective size when scoring CC need: an
// elite counts as more than one body worth of incoming damage and threat.
const eliteModifier = 1.75

// mobRole classifies one enemy in a trash pack for pull-plan purposes.
type mobRole int

const (
	mobMelee mobRole = iota
	mobCaster
	mobHealer
	mobElite
)

// PackMember is one enemy in a trash pack.
type PackMember struct {
	ID     ids.EntityId
	Role   mobRole
	Threat float64
	Elite  bool
}

// Pack is a trash pull: a cluster of enemies pulled together.
type Pack struct {
	ID           ids.EntityId
	Members      []PackMember
	Neighbours   []ids.EntityId // linked packs whose aggro range overlaps this one
	Position     ids.Position
}

// PullPlan is the TrashPullManager's recommendation for executing a pack.
type PullPlan struct {
	PackID      ids.EntityId
	KillOrder   []ids.EntityId // skull, then cross, then remaining non-CC members in pack order
	SkullTarget ids.EntityId
	CrossTarget ids.EntityId
	CCTargets   map[ids.EntityId]Marker // caster/healer adds assigned diamond/moon/square
	Puller      ids.EntityId
	NeedsCC     bool
}

// RoleCapacity is the group's available CC/interrupt capacity, used to
// decide whether a pack needs crowd control at all.
type RoleCapacity struct {
	Tanks        int
	InterruptCap int // number of agents that can reliably interrupt/CC
}

// TrashPullManager builds and gates pull plans for dungeon trash: pack
// CC-need scoring, skull/cross kill-order marking, and the IsSafeToPull
// gate. It only decides; turning a plan into a bus command is ExecutePull's
// job, so the manager itself never touches message construction.
type TrashPullManager struct {
	cfg Config
}

func newTrashPullManager(cfg Config) *TrashPullManager {
	return &TrashPullManager{cfg: cfg}
}

// NeedsCC reports whether a pack's effective size (elite-weighted) exceeds
// the group's interrupt/CC capacity.
func (m *TrashPullManager) NeedsCC(pack Pack, capacity RoleCapacity) bool {
	effective := 0.0
	for _, member := range pack.Members {
		if member.Elite {
			effective += eliteModifier
		} else {
			effective += 1.0
		}
	}
	return effective > float64(capacity.InterruptCap)+float64(capacity.Tanks)
}

// BuildPlan constructs a pull plan for pack: skull goes on the highest-threat
// non-caster (the thing that will hit hardest if left unchecked), cross on
// the most dangerous caster. When the pack needs CC, remaining casters and
// healers get diamond, moon and square in that order; any beyond three get
// no marker and stay in the kill order.
func (m *TrashPullManager) BuildPlan(pack Pack, capacity RoleCapacity, tank ids.EntityId) PullPlan {
	plan := PullPlan{
		PackID:    pack.ID,
		CCTargets: make(map[ids.EntityId]Marker),
		Puller:    tank,
		NeedsCC:   m.NeedsCC(pack, capacity),
	}

	var bestNonCaster, bestCaster PackMember
	haveNonCaster, haveCaster := false, false
	ccMarkers := []Marker{MarkerDiamond, MarkerMoon, MarkerSquare}
	markerIdx := 0

	for _, member := range pack.Members {
		switch member.Role {
		case mobCaster, mobHealer:
			if !haveCaster || member.Threat > bestCaster.Threat {
				if haveCaster {
					// Previous best caster gets demoted to a CC assignment
					// rather than dropped, so every caster is tracked.
					if plan.NeedsCC && markerIdx < len(ccMarkers) {
						plan.CCTargets[bestCaster.ID] = ccMarkers[markerIdx]
						markerIdx++
					}
				}
				bestCaster = member
				haveCaster = true
			} else if plan.NeedsCC && markerIdx < len(ccMarkers) {
				plan.CCTargets[member.ID] = ccMarkers[markerIdx]
				markerIdx++
			}
		default:
			if !haveNonCaster || member.Threat > bestNonCaster.Threat {
				bestNonCaster = member
				haveNonCaster = true
			}
		}
	}

	if haveNonCaster {
		plan.SkullTarget = bestNonCaster.ID
		plan.KillOrder = append(plan.KillOrder, bestNonCaster.ID)
	}
	if haveCaster {
		plan.CrossTarget = bestCaster.ID
		plan.KillOrder = append(plan.KillOrder, bestCaster.ID)
	}
	for _, member := range pack.Members {
		if member.ID == plan.SkullTarget || member.ID == plan.CrossTarget {
			continue
		}
		if _, cced := plan.CCTargets[member.ID]; cced {
			continue
		}
		plan.KillOrder = append(plan.KillOrder, member.ID)
	}

	if !haveNonCaster && plan.Puller == ids.Empty {
		// No tank available: prefer a ranged puller, chosen by the caller
		// from behind line of sight; left unset here for the caller to fill.
		plan.Puller = ids.Empty
	}
	return plan
}

// GroupSnapshot is the minimal group state IsSafeToPull needs.
type GroupSnapshot struct {
	Members           []Member
	PatrolsInPullRange bool
}

// IsSafeToPull reports whether the group may begin the next pull: nobody in
// combat, tank and healer mana above their thresholds, everyone alive and
// above the minimum health, and no wandering patrol within range to add to
// the pull.
func (m *TrashPullManager) IsSafeToPull(snap GroupSnapshot) bool {
	if snap.PatrolsInPullRange {
		return false
	}
	for _, member := range snap.Members {
		if member.InCombat {
			return false
		}
		if !member.Alive {
			return false
		}
		if member.HealthFrac*100 < m.cfg.MinHealthForPull {
			return false
		}
		switch member.Role {
		case ids.RoleTank:
			if member.ManaFrac*100 < m.cfg.MinManaForPull {
				return false
			}
		case ids.RoleHealer:
			if member.ManaFrac*100 < 80 {
				return false
			}
		}
	}
	return true
}

// ExecutePull returns the CommandFocusTarget message announcing the skull
// target, ready for Bus.Publish. Callers should only call this once
// IsSafeToPull has returned true.
func ExecutePull(plan PullPlan, sender ids.EntityId, group ids.GroupId, now time.Time) swarmbus.Message {
	msg := swarmbus.NewCommand(swarmbus.KindCommandFocusTarget, sender, group, now)
	msg.Target = plan.SkullTarget
	return msg
}

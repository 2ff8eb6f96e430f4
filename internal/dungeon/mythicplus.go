package dungeon

import (
	"sync"
	"time"

	"github.com/ashgrove/legion/internal/ids"
)

// Affix identifies a Mythic+ keystone affix. Numeric ids are carried over
// from the original game data so logging and config lines up with what
// players call these affixes.
type Affix uint32

const (
	AffixNone Affix = 0

	// Level 2+ base affixes.
	AffixFortified  Affix = 10
	AffixTyrannical Affix = 9

	// Level 4+.
	AffixBolstering Affix = 7
	AffixRaging     Affix = 6
	AffixSanguine   Affix = 8
	AffixBursting   Affix = 11

	// Level 7+.
	AffixNecrotic  Affix = 4
	AffixVolcanic  Affix = 3
	AffixExplosive Affix = 13
	AffixQuaking   Affix = 14
	AffixGrievous  Affix = 12
	AffixStorming  Affix = 124

	// Level 10+.
	AffixInspiring Affix = 122
	AffixSpiteful  Affix = 123

	// Seasonal.
	AffixAwakened    Affix = 120
	AffixPrideful    Affix = 121
	AffixTormented   Affix = 128
	AffixEncrypted   Affix = 130
	AffixShrouded    Affix = 131
	AffixThundering  Affix = 132
	AffixAfflicted   Affix = 135
	AffixIncorporeal Affix = 136
)

func (a Affix) String() string {
	switch a {
	case AffixFortified:
		return "fortified"
	case AffixTyrannical:
		return "tyrannical"
	case AffixBolstering:
		return "bolstering"
	case AffixRaging:
		return "raging"
	case AffixSanguine:
		return "sanguine"
	case AffixBursting:
		return "bursting"
	case AffixNecrotic:
		return "necrotic"
	case AffixVolcanic:
		return "volcanic"
	case AffixExplosive:
		return "explosive"
	case AffixQuaking:
		return "quaking"
	case AffixGrievous:
		return "grievous"
	case AffixStorming:
		return "storming"
	case AffixInspiring:
		return "inspiring"
	case AffixSpiteful:
		return "spiteful"
	case AffixAwakened:
		return "awakened"
	case AffixPrideful:
		return "prideful"
	case AffixTormented:
		return "tormented"
	case AffixEncrypted:
		return "encrypted"
	case AffixShrouded:
		return "shrouded"
	case AffixThundering:
		return "thundering"
	case AffixAfflicted:
		return "afflicted"
	case AffixIncorporeal:
		return "incorporeal"
	default:
		return "none"
	}
}

const (
	deathPenalty      = 5 * time.Second
	quakingDuration    = 4 * time.Second
	twoChestTimeMod   = 0.8
	threeChestTimeMod = 0.6
	ragingHealthFrac  = 0.30 // Raging: enemies enrage at 30% health — save interrupts/stuns for then
)

// KeystoneInfo describes the active key: dungeon, level, affix set, and
// the base time limit before any chest-tier modifier is applied.
type KeystoneInfo struct {
	DungeonID ids.EntityId
	Level     uint8
	Affixes   []Affix
	TimeLimit time.Duration
}

func (k KeystoneInfo) HasAffix(a Affix) bool {
	for _, have := range k.Affixes {
		if have == a {
			return true
		}
	}
	return false
}

// EnemyForces is one creature's contribution toward the 100% forces bar.
type EnemyForces struct {
	CreatureID  uint32
	ForcesValue float64 // percentage points this mob contributes when killed
	IsPriority  bool
}

// MythicPlusManager tracks the timed-run state: the keystone timer, death
// penalties, enemy-forces percentage, affix-driven hazard state, and a
// route of packs supplied by the caller through SetRoute. The manager does
// not order or recompute routes itself; it only flags the route for
// recompute when packs clear out of order. All timing is
// wall-clock time.Time/time.Duration, since the coordination core runs on
// Update calls rather than a fixed server tick.
type MythicPlusManager struct {
	mu sync.Mutex

	keystone    KeystoneInfo
	startedAt   time.Time
	active      bool
	deathCount  int
	enemyForces float64

	forcesTable map[uint32]EnemyForces

	quakingActive bool
	quakingUntil  time.Time
	sanguinePools map[ids.EntityId]ids.Position
	explosiveOrbs map[ids.EntityId]bool
	volcanicPools map[ids.EntityId]ids.Position

	plannedRoute []ids.EntityId
	routeIndex   int
	routeDirty   bool
}

func newMythicPlusManager() *MythicPlusManager {
	return &MythicPlusManager{
		forcesTable:   make(map[uint32]EnemyForces),
		sanguinePools: make(map[ids.EntityId]ids.Position),
		explosiveOrbs: make(map[ids.EntityId]bool),
		volcanicPools: make(map[ids.EntityId]ids.Position),
		routeDirty:    true,
	}
}

// Initialize loads a keystone and clears all run-scoped state.
func (m *MythicPlusManager) Initialize(keystone KeystoneInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keystone = keystone
	m.active = false
	m.deathCount = 0
	m.enemyForces = 0
	m.quakingActive = false
	m.sanguinePools = make(map[ids.EntityId]ids.Position)
	m.explosiveOrbs = make(map[ids.EntityId]bool)
	m.volcanicPools = make(map[ids.EntityId]ids.Position)
	m.plannedRoute = nil
	m.routeIndex = 0
	m.routeDirty = true
}

// StartTimer starts the keystone timer at now.
func (m *MythicPlusManager) StartTimer(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startedAt = now
	m.active = true
}

func (m *MythicPlusManager) IsActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

func (m *MythicPlusManager) Keystone() KeystoneInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keystone
}

func (m *MythicPlusManager) HasAffix(a Affix) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keystone.HasAffix(a)
}

// ElapsedTime returns how long the run has been active as of now.
func (m *MythicPlusManager) ElapsedTime(now time.Time) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.active {
		return 0
	}
	return now.Sub(m.startedAt)
}

// RemainingTime returns time_limit - elapsed - death_count*deathPenalty,
// clipped to 0.
func (m *MythicPlusManager) RemainingTime(now time.Time) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.remainingLocked(now)
}

func (m *MythicPlusManager) remainingLocked(now time.Time) time.Duration {
	elapsed := time.Duration(0)
	if m.active {
		elapsed = now.Sub(m.startedAt)
	}
	penalty := time.Duration(m.deathCount) * deathPenalty
	remaining := m.keystone.TimeLimit - elapsed - penalty
	if remaining < 0 {
		return 0
	}
	return remaining
}

// IsOnTime reports whether the run is still within its unmodified time
// limit (not rushing for a chest tier, just avoiding depletion).
func (m *MythicPlusManager) IsOnTime(now time.Time) bool {
	return m.RemainingTime(now) > 0
}

// CanTwoChest / CanThreeChest report whether the elapsed time (plus death
// penalty) still fits under the 80%/60% chest-tier time modifiers.
func (m *MythicPlusManager) CanTwoChest(now time.Time) bool {
	return m.withinChestMod(now, twoChestTimeMod)
}

func (m *MythicPlusManager) CanThreeChest(now time.Time) bool {
	return m.withinChestMod(now, threeChestTimeMod)
}

func (m *MythicPlusManager) withinChestMod(now time.Time, mod float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	budget := time.Duration(float64(m.keystone.TimeLimit) * mod)
	elapsed := time.Duration(0)
	if m.active {
		elapsed = now.Sub(m.startedAt)
	}
	elapsed += time.Duration(m.deathCount) * deathPenalty
	return elapsed <= budget
}

// TimeProgress returns elapsed/timeLimit clamped to [0, 1].
func (m *MythicPlusManager) TimeProgress(now time.Time) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keystone.TimeLimit <= 0 {
		return 0
	}
	elapsed := time.Duration(0)
	if m.active {
		elapsed = now.Sub(m.startedAt)
	}
	frac := float64(elapsed) / float64(m.keystone.TimeLimit)
	return clamp01(frac)
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

// EnemyForcesPercent returns the run's accumulated forces percentage.
func (m *MythicPlusManager) EnemyForcesPercent() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enemyForces
}

// HasEnoughForces reports whether the 100% forces requirement is met.
func (m *MythicPlusManager) HasEnoughForces() bool {
	return m.EnemyForcesPercent() >= 100.0
}

// RegisterEnemyForces loads a creature's forces contribution, used by
// OnEnemyKilled to look up how much killing it is worth.
func (m *MythicPlusManager) RegisterEnemyForces(creatureID uint32, forces EnemyForces) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forcesTable[creatureID] = forces
}

// OnEnemyKilled credits the creature's registered forces value toward the
// run's total.
func (m *MythicPlusManager) OnEnemyKilled(creatureID uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if forces, ok := m.forcesTable[creatureID]; ok {
		m.enemyForces += forces.ForcesValue
	}
	m.routeDirty = true
}

// DeathCount returns the run's accumulated death count.
func (m *MythicPlusManager) DeathCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deathCount
}

// OnPlayerDied increments the death counter, applying the timer penalty.
func (m *MythicPlusManager) OnPlayerDied() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deathCount++
}

// WouldDeplete reports whether one more death right now would push
// remaining time to zero.
func (m *MythicPlusManager) WouldDeplete(now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	afterNextDeath := m.keystone.TimeLimit - now.Sub(m.startedAt) - time.Duration(m.deathCount+1)*deathPenalty
	return afterNextDeath <= 0
}

// TriggerQuaking marks the quaking hazard window active from now.
func (m *MythicPlusManager) TriggerQuaking(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quakingActive = true
	m.quakingUntil = now.Add(quakingDuration)
}

// UpdateQuaking clears the quaking flag once its window has elapsed. Call
// once per tick alongside the coordinator's Update.
func (m *MythicPlusManager) UpdateQuaking(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.quakingActive && now.After(m.quakingUntil) {
		m.quakingActive = false
	}
}

func (m *MythicPlusManager) IsQuakingActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.quakingActive
}

// AddSanguinePool / RemoveSanguinePool track ground pools left by Sanguine
// affix deaths; agents should avoid standing in them while healing.
func (m *MythicPlusManager) AddSanguinePool(id ids.EntityId, pos ids.Position) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sanguinePools[id] = pos
}

func (m *MythicPlusManager) RemoveSanguinePool(id ids.EntityId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sanguinePools, id)
}

// ShouldAvoidSanguine reports whether pos falls inside any tracked pool's
// radius.
func (m *MythicPlusManager) ShouldAvoidSanguine(pos ids.Position, poolRadius float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, pool := range m.sanguinePools {
		if pos.Distance(pool) <= poolRadius {
			return true
		}
	}
	return false
}

// AddExplosiveOrb / RemoveExplosiveOrb track Explosive affix orbs.
func (m *MythicPlusManager) AddExplosiveOrb(id ids.EntityId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.explosiveOrbs[id] = true
}

func (m *MythicPlusManager) RemoveExplosiveOrb(id ids.EntityId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.explosiveOrbs, id)
}

// ShouldKillExplosive always recommends killing a tracked orb on sight;
// Explosive orbs are priority kills regardless of current target.
func (m *MythicPlusManager) ShouldKillExplosive(orb ids.EntityId) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.explosiveOrbs[orb]
}

// ShouldSaveCooldownsForRaging reports whether interrupts/stuns should be
// held back for a Raging enrage rather than spent early, given the
// target's current health fraction.
func (m *MythicPlusManager) ShouldSaveCooldownsForRaging(targetHealthFrac float64) bool {
	if !m.HasAffix(AffixRaging) {
		return false
	}
	return targetHealthFrac > ragingHealthFrac
}

// ShouldKiteSpiteful reports whether Spiteful shades are active and should
// be kited rather than tanked.
func (m *MythicPlusManager) ShouldKiteSpiteful() bool {
	return m.HasAffix(AffixSpiteful)
}

// ShouldControlBurstingStacks reports whether kill pace should be slowed
// (healing through stacks rather than burning packs down) under Bursting.
func (m *MythicPlusManager) ShouldControlBurstingStacks() bool {
	return m.HasAffix(AffixBursting)
}

// ShouldAvoidAoeOnPack reports whether Bolstering calls for killing enemies
// in a pack evenly rather than cleaving them down unevenly.
func (m *MythicPlusManager) ShouldAvoidAoeOnPack() bool {
	return m.HasAffix(AffixBolstering)
}

// ShouldUseCooldowns reports whether Fortified/Tyrannical warrant leaning
// on cooldowns more aggressively (trash and bosses both hit harder).
func (m *MythicPlusManager) ShouldUseCooldowns() bool {
	return m.HasAffix(AffixFortified) || m.HasAffix(AffixTyrannical)
}

// ShouldLust reports whether Bloodlust/Heroism should be used: true only
// when Tyrannical is active and the run has no time remaining (IsOnTime is
// false). Fortified is not considered.
func (m *MythicPlusManager) ShouldLust(now time.Time) bool {
	return m.HasAffix(AffixTyrannical) && !m.IsOnTime(now)
}

// RecommendedPullSize returns how many packs to pull together: Fortified
// inflates trash danger, so the recommendation drops from 2 to 1.
func (m *MythicPlusManager) RecommendedPullSize() int {
	if m.HasAffix(AffixFortified) {
		return 1
	}
	return 2
}

// SetRoute overrides the planned pack route explicitly (e.g. from a
// pre-computed guide route for the dungeon).
func (m *MythicPlusManager) SetRoute(route []ids.EntityId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plannedRoute = route
	m.routeIndex = 0
	m.routeDirty = false
}

// NotifyPackCleared advances the route pointer if packID is the expected
// next pack, or marks the route dirty (needing recomputation) if packs are
// clearing out of the planned order.
func (m *MythicPlusManager) NotifyPackCleared(packID ids.EntityId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.routeIndex < len(m.plannedRoute) && m.plannedRoute[m.routeIndex] == packID {
		m.routeIndex++
		return
	}
	m.routeDirty = true
}

// Route returns the current planned route of pack ids.
func (m *MythicPlusManager) Route() []ids.EntityId {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ids.EntityId, len(m.plannedRoute))
	copy(out, m.plannedRoute)
	return out
}

// RouteNeedsRecompute reports whether a pack cleared out of planned order
// and the route should be regenerated by the caller's route planner.
func (m *MythicPlusManager) RouteNeedsRecompute() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.routeDirty
}

// RouteProgress returns the fraction of the planned route completed.
func (m *MythicPlusManager) RouteProgress() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.plannedRoute) == 0 {
		return 0
	}
	return float64(m.routeIndex) / float64(len(m.plannedRoute))
}

// ShouldSkipPack reports whether a pack can be bypassed: enough forces are
// already banked that clearing it isn't required to hit 100%.
func (m *MythicPlusManager) ShouldSkipPack() bool {
	return m.HasEnoughForces()
}

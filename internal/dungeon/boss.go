package dungeon

import (
	"sync"

	"github.com/ashgrove/legion/internal/ids"
)

// ResponseKind is the coordinated action a boss mechanic calls for.
type ResponseKind int

const (
	ResponseNone ResponseKind = iota
	ResponseTankSwap
	ResponseSpread
	ResponseStack
	ResponseMoveOut
	ResponseMoveIn
	ResponseInterrupt
	ResponseDispel
	ResponseDodgeAoe
	ResponseSoak
	ResponseKite
	ResponseSwitchTarget
	ResponseBloodlust
	ResponseDefensiveCd
)

func (r ResponseKind) String() string {
	switch r {
	case ResponseTankSwap:
		return "tank_swap"
	case ResponseSpread:
		return "spread"
	case ResponseStack:
		return "stack"
	case ResponseMoveOut:
		return "move_out"
	case ResponseMoveIn:
		return "move_in"
	case ResponseInterrupt:
		return "interrupt"
	case ResponseDispel:
		return "dispel"
	case ResponseDodgeAoe:
		return "dodge_aoe"
	case ResponseSoak:
		return "soak"
	case ResponseKite:
		return "kite"
	case ResponseSwitchTarget:
		return "switch_target"
	case ResponseBloodlust:
		return "bloodlust"
	case ResponseDefensiveCd:
		return "defensive_cd"
	default:
		return "none"
	}
}

// PhaseTransition fires when the boss's health fraction drops to or below
// Threshold, moving the encounter to Phase.
type PhaseTransition struct {
	Phase     int
	Threshold float64 // health fraction, 0..1
}

// Mechanic maps a trigger spell id to a coordinated Response.
type Mechanic struct {
	TriggerSpellID uint32
	Response       ResponseKind
}

// Strategy is one boss's full mechanics table. The zero value is a valid,
// fully passive strategy: no phases beyond 1, no mechanics, no interrupts.
type Strategy struct {
	BossID             ids.EntityId
	PhaseTransitions   []PhaseTransition
	Mechanics          []Mechanic
	MustInterrupt      []uint32
	ShouldInterrupt    []uint32
	TankSwapStackLimit int     // debuff stacks on active tank that trigger a swap; 0 disables
	BloodlustAtHealth  float64 // health fraction at which Bloodlust is recommended if not first pull; 0 means "only first pull"
}

func mechanicFor(s Strategy, spellID uint32) (Mechanic, bool) {
	for _, m := range s.Mechanics {
		if m.TriggerSpellID == spellID {
			return m, true
		}
	}
	return Mechanic{}, false
}

func isInList(list []uint32, spellID uint32) bool {
	for _, id := range list {
		if id == spellID {
			return true
		}
	}
	return false
}

// tankSwapState tracks one tank's accumulated debuff stacks for swap gating.
type tankSwapState struct {
	stacks int
}

// BossEncounterManager drives boss-mechanic responses from a loaded
// per-boss Strategy table: a declarative spell-id → response table
// interpreted by a generic event dispatcher, rather than one hand-written
// script per boss.
type BossEncounterManager struct {
	mu         sync.Mutex
	strategies map[ids.EntityId]Strategy
	phase      map[ids.EntityId]int
	tankStacks map[ids.EntityId]map[ids.EntityId]*tankSwapState // bossID -> tankID -> state
	firstPull  bool
}

func newBossEncounterManager() *BossEncounterManager {
	return &BossEncounterManager{
		strategies: make(map[ids.EntityId]Strategy),
		phase:      make(map[ids.EntityId]int),
		tankStacks: make(map[ids.EntityId]map[ids.EntityId]*tankSwapState),
		firstPull:  true,
	}
}

// LoadStrategy registers a boss's strategy table. An empty/zero-value
// Strategy is valid and yields a passive encounter.
func (m *BossEncounterManager) LoadStrategy(s Strategy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.strategies[s.BossID] = s
	if _, ok := m.phase[s.BossID]; !ok {
		m.phase[s.BossID] = 1
	}
}

// Phase returns the boss's current phase number (1-based; 1 if unknown).
func (m *BossEncounterManager) Phase(bossID ids.EntityId) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.phase[bossID]; ok {
		return p
	}
	return 1
}

// UpdateHealth advances the boss's phase if healthFrac has crossed a
// configured transition threshold. Transitions only move forward.
func (m *BossEncounterManager) UpdateHealth(bossID ids.EntityId, healthFrac float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	strategy, ok := m.strategies[bossID]
	if !ok {
		return
	}
	current := m.phase[bossID]
	for _, t := range strategy.PhaseTransitions {
		if healthFrac <= t.Threshold && t.Phase > current {
			current = t.Phase
		}
	}
	m.phase[bossID] = current
}

// OnEvent classifies triggerSpellID against the boss's strategy and returns
// the coordinated response, along with whether the spell must or should be
// interrupted.
func (m *BossEncounterManager) OnEvent(bossID ids.EntityId, triggerSpellID uint32) (response ResponseKind, mustInterrupt, shouldInterrupt bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	strategy, ok := m.strategies[bossID]
	if !ok {
		return ResponseNone, false, false
	}
	mustInterrupt = isInList(strategy.MustInterrupt, triggerSpellID)
	shouldInterrupt = !mustInterrupt && isInList(strategy.ShouldInterrupt, triggerSpellID)
	if mustInterrupt {
		return ResponseInterrupt, true, false
	}
	if mechanic, found := mechanicFor(strategy, triggerSpellID); found {
		return mechanic.Response, false, shouldInterrupt
	}
	if shouldInterrupt {
		return ResponseInterrupt, false, true
	}
	return ResponseNone, false, false
}

// RecordTankDebuff adds stacks of the active tank's swap-tracking debuff and
// reports whether the stack count has crossed the strategy's swap
// threshold, requiring a tank swap.
func (m *BossEncounterManager) RecordTankDebuff(bossID, tankID ids.EntityId, stacksAdded int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	strategy, ok := m.strategies[bossID]
	if !ok || strategy.TankSwapStackLimit <= 0 {
		return false
	}
	byTank, ok := m.tankStacks[bossID]
	if !ok {
		byTank = make(map[ids.EntityId]*tankSwapState)
		m.tankStacks[bossID] = byTank
	}
	state, ok := byTank[tankID]
	if !ok {
		state = &tankSwapState{}
		byTank[tankID] = state
	}
	state.stacks += stacksAdded
	return state.stacks >= strategy.TankSwapStackLimit
}

// ResetTankStacks clears a tank's debuff count after a swap completes.
func (m *BossEncounterManager) ResetTankStacks(bossID, tankID ids.EntityId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if byTank, ok := m.tankStacks[bossID]; ok {
		delete(byTank, tankID)
	}
}

// ShouldBloodlust reports whether Bloodlust/Heroism should be used now:
// always true on the first pull of the instance, otherwise only once the
// boss's health has dropped to the strategy's configured threshold.
func (m *BossEncounterManager) ShouldBloodlust(bossID ids.EntityId, healthFrac float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.firstPull {
		return true
	}
	strategy, ok := m.strategies[bossID]
	if !ok || strategy.BloodlustAtHealth <= 0 {
		return false
	}
	return healthFrac <= strategy.BloodlustAtHealth
}

// MarkPullAttempted records that a pull has occurred, disabling the
// first-pull Bloodlust allowance for subsequent attempts.
func (m *BossEncounterManager) MarkPullAttempted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.firstPull = false
}

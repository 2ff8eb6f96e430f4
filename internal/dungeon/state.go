// Package dungeon coordinates 5-player PvE content: trash pulls, boss
// encounters, wipe recovery, and the Mythic+ timed-affix mode. Like
// internal/arena, the coordinator composes independent sub-managers rather
// than centralising all logic in one type.
package dungeon

import (
	"sync"
	"time"

	"github.com/ashgrove/legion/internal/ids"
)

// RunState is the dungeon coordinator's top-level phase.
type RunState int

const (
	StateIdle RunState = iota
	StateEntering
	StateReadyCheck
	StateClearingTrash
	StatePreBoss
	StateBossCombat
	StatePostBoss
	StateWiped
	StateRecovering
	StateCompleted
)

func (s RunState) String() string {
	switch s {
	case StateEntering:
		return "entering"
	case StateReadyCheck:
		return "ready_check"
	case StateClearingTrash:
		return "clearing_trash"
	case StatePreBoss:
		return "pre_boss"
	case StateBossCombat:
		return "boss_combat"
	case StatePostBoss:
		return "post_boss"
	case StateWiped:
		return "wiped"
	case StateRecovering:
		return "recovering"
	case StateCompleted:
		return "completed"
	default:
		return "idle"
	}
}

// Config holds the dungeon coordinator's tunables.
type Config struct {
	MinManaForPull      float64 // percent, default 50
	MinHealthForPull    float64 // percent, default 70 — all-alive is separately required
	UpdateIntervalMs    int     // default 500
	ReadyCheckTimeoutMs int     // default 30000
}

func DefaultConfig() Config {
	return Config{MinManaForPull: 50, MinHealthForPull: 70, UpdateIntervalMs: 500, ReadyCheckTimeoutMs: 30000}
}

// Member is one of the five tracked group members.
type Member struct {
	ID           ids.EntityId
	Role         ids.Role
	Alive        bool
	HealthFrac   float64
	ManaFrac     float64
	InCombat     bool
	HasBattleRez bool
	Position     ids.Position
}

// Coordinator owns the dungeon run's FSM and sub-managers.
type Coordinator struct {
	mu    sync.Mutex
	state RunState
	cfg   Config

	readyCheckStart time.Time
	readyConfirmed  map[ids.EntityId]bool

	trash *TrashPullManager
	boss  *BossEncounterManager
	wipe  *WipeRecoveryManager
	mplus *MythicPlusManager
}

// NewCoordinator constructs a Coordinator wired to cfg.
func NewCoordinator(cfg Config) *Coordinator {
	return &Coordinator{
		state:          StateIdle,
		cfg:            cfg,
		readyConfirmed: make(map[ids.EntityId]bool),
		trash:          newTrashPullManager(cfg),
		boss:           newBossEncounterManager(),
		wipe:           newWipeRecoveryManager(),
		mplus:          newMythicPlusManager(),
	}
}

func (c *Coordinator) State() RunState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) setState(s RunState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Coordinator) Trash() *TrashPullManager       { return c.trash }
func (c *Coordinator) Boss() *BossEncounterManager    { return c.boss }
func (c *Coordinator) Wipe() *WipeRecoveryManager     { return c.wipe }
func (c *Coordinator) MythicPlus() *MythicPlusManager { return c.mplus }

// EnterInstance transitions Idle → Entering when the group zones in.
func (c *Coordinator) EnterInstance() { c.setState(StateEntering) }

// BeginReadyCheck starts a ready check at now. Confirmations arrive via
// ConfirmReady; ResolveReadyCheck decides the outcome.
func (c *Coordinator) BeginReadyCheck(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateReadyCheck
	c.readyCheckStart = now
	c.readyConfirmed = make(map[ids.EntityId]bool)
}

// ConfirmReady records agent's ready confirmation.
func (c *Coordinator) ConfirmReady(agent ids.EntityId) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateReadyCheck {
		c.readyConfirmed[agent] = true
	}
}

// ResolveReadyCheck reports whether the check has concluded and whether it
// passed: everyone in members confirmed, or the configured timeout elapsed
// (a timeout fails the check). On either outcome the run advances to
// ClearingTrash so the group isn't stuck; a failed check just means the
// pull gate (IsSafeToPull) does the real holding.
func (c *Coordinator) ResolveReadyCheck(now time.Time, members []Member) (concluded, passed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateReadyCheck {
		return false, false
	}

	allConfirmed := len(members) > 0
	for _, m := range members {
		if !c.readyConfirmed[m.ID] {
			allConfirmed = false
			break
		}
	}
	timeout := time.Duration(c.cfg.ReadyCheckTimeoutMs) * time.Millisecond
	timedOut := timeout > 0 && now.Sub(c.readyCheckStart) >= timeout

	if !allConfirmed && !timedOut {
		return false, false
	}
	c.state = StateClearingTrash
	return true, allConfirmed
}

// EnterTrash transitions to the trash-clearing phase.
func (c *Coordinator) EnterTrash() { c.setState(StateClearingTrash) }

// EnterPreBoss transitions to the pre-boss staging phase (mana, assignments,
// marker placement before the pull).
func (c *Coordinator) EnterPreBoss() { c.setState(StatePreBoss) }

// EnterBoss transitions to the boss-combat phase.
func (c *Coordinator) EnterBoss() { c.setState(StateBossCombat) }

// ExitBoss transitions BossCombat → PostBoss after a kill.
func (c *Coordinator) ExitBoss() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateBossCombat {
		c.state = StatePostBoss
	}
}

// EnterWipe transitions to Wiped and starts wipe recovery.
func (c *Coordinator) EnterWipe(now time.Time, members []Member) {
	c.setState(StateWiped)
	c.wipe.BeginWipe(now, members)
}

// UpdateRecovery drives the wipe-recovery sub-manager while wiped and moves
// the run through Recovering back to ClearingTrash once the group is ready.
func (c *Coordinator) UpdateRecovery(now time.Time, members []Member) RunState {
	phase := c.wipe.Update(now, members)

	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StateWiped:
		if phase > PhaseWaiting {
			c.state = StateRecovering
		}
	case StateRecovering:
		if phase == PhaseReady {
			c.state = StateClearingTrash
		}
	}
	return c.state
}

// Complete transitions to the run-complete terminal state.
func (c *Coordinator) Complete() { c.setState(StateCompleted) }

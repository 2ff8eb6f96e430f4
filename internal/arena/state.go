// Package arena coordinates small-scale team PvP: kill-target selection,
// burst windows, crowd-control chains, defensive triage, and positioning.
// The coordinator composes five independent sub-managers behind a shared
// FSM: one small owning type per concern, wired together by a thin
// top-level coordinator rather than one large god-object.
package arena

import (
	"sync"
	"time"

	"github.com/ashgrove/legion/internal/ids"
)

// MatchState is the arena coordinator's top-level phase.
type MatchState int

const (
	StateIdle MatchState = iota
	StatePreparation
	StateCombat
	StateFinished
)

func (s MatchState) String() string {
	switch s {
	case StatePreparation:
		return "preparation"
	case StateCombat:
		return "combat"
	case StateFinished:
		return "finished"
	default:
		return "idle"
	}
}

// Enemy is a tracked opposing agent's scoring-relevant snapshot, passed in
// by the host on each Update call.
type Enemy struct {
	ID            ids.EntityId
	HealthFrac    float64
	IsHealer      bool
	TrinketDown   bool
	DefensivesDown bool
	InRangeAndLOS bool
	IsCCed        bool
	RecentDamageToFocus float64
	Position      ids.Position
}

// Teammate is a tracked friendly agent's snapshot.
type Teammate struct {
	ID             ids.EntityId
	HealthFrac     float64
	IsMelee        bool
	Alive          bool
	BurstReady     bool
	Position       ids.Position
}

// Config holds the arena coordinator's tunables.
type Config struct {
	SwitchThreshold      float64 // default 1.5 (new score must exceed current by ≥50%)
	MinTimeOnTarget      time.Duration
	BurstMinBursters     int
	BurstMaxDuration     time.Duration
	CCOverlapWindow      time.Duration
	PeelDuration         time.Duration
	DefensiveHealthHigh  float64 // Healthy→Pressured boundary, default 80
	DefensiveHealthMid   float64 // Pressured→Danger boundary, default 50
	DefensiveHealthLow   float64 // Danger→Critical boundary, default 30
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		SwitchThreshold:     1.5,
		MinTimeOnTarget:     3 * time.Second,
		BurstMinBursters:    2,
		BurstMaxDuration:    10 * time.Second,
		CCOverlapWindow:     300 * time.Millisecond,
		PeelDuration:        5 * time.Second,
		DefensiveHealthHigh: 80,
		DefensiveHealthMid:  50,
		DefensiveHealthLow:  30,
	}
}

// Coordinator owns the arena match FSM and its five sub-managers. All
// exported methods are safe to call from any goroutine; Update must only be
// called from the tick thread.
type Coordinator struct {
	mu    sync.Mutex
	state MatchState
	cfg   Config

	killTarget *KillTargetManager
	burst      *BurstCoordinator
	ccChain    *CCChainManager
	defensive  *DefensiveCoordinator
	positioning *Positioning
}

// NewCoordinator constructs a Coordinator with its sub-managers wired to cfg.
func NewCoordinator(cfg Config) *Coordinator {
	return &Coordinator{
		state:       StateIdle,
		cfg:         cfg,
		killTarget:  newKillTargetManager(cfg),
		burst:       newBurstCoordinator(cfg),
		ccChain:     newCCChainManager(cfg),
		defensive:   newDefensiveCoordinator(cfg),
		positioning: newPositioning(),
	}
}

// State returns the current match phase.
func (c *Coordinator) State() MatchState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// StartGateCountdown transitions Idle → Preparation.
func (c *Coordinator) StartGateCountdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateIdle {
		c.state = StatePreparation
	}
}

// OpenGates transitions Preparation → Combat.
func (c *Coordinator) OpenGates(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StatePreparation {
		c.state = StateCombat
		c.killTarget.lastSwitch = now
	}
}

// FinishMatch transitions Combat → Finished when one side has wiped.
func (c *Coordinator) FinishMatch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateCombat {
		c.state = StateFinished
	}
}

// Update drives every sub-manager for one tick. now and dt come from the
// host's tick thread; Update itself must only be called there.
func (c *Coordinator) Update(now time.Time, dt time.Duration, enemies []Enemy, teammates []Teammate) {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()
	if state != StateCombat {
		return
	}

	c.killTarget.update(now, enemies)
	c.burst.update(now, enemies, teammates, c.killTarget.Current())
	c.ccChain.update(now)
	c.defensive.update(now, teammates)
}

// KillTarget exposes the kill-target sub-manager for query/command access.
func (c *Coordinator) KillTarget() *KillTargetManager { return c.killTarget }

// Burst exposes the burst sub-manager.
func (c *Coordinator) Burst() *BurstCoordinator { return c.burst }

// CCChain exposes the CC-chain sub-manager.
func (c *Coordinator) CCChain() *CCChainManager { return c.ccChain }

// Defensive exposes the defensive-triage sub-manager.
func (c *Coordinator) Defensive() *DefensiveCoordinator { return c.defensive }

// Positioning exposes the positioning sub-manager.
func (c *Coordinator) Positioning() *Positioning { return c.positioning }

package battleground

import (
	"sync"
	"time"
)

// The strategic decision is re-evaluated every 5s, with a 30s minimum
// between strategy changes and a required 20% confidence margin to switch,
// so the team doesn't thrash between postures on noisy score swings.
const (
	strategicEvalInterval     = 5 * time.Second
	minStrategyChangeInterval = 30 * time.Second
	strategySwitchMargin      = 1.20
)

// Coordinator drives one active battleground match: FSM, strategic
// decisions, and role assignment, all delegated to the map's Script.
type Coordinator struct {
	mu sync.Mutex

	state  MatchState
	script Script

	decision       StrategicDecision
	decisionScore  float64
	lastEval       time.Time
	lastChange     time.Time
	matchStart     time.Time
	matchDuration  time.Duration
}

// NewCoordinator constructs a Coordinator for the given match script. matchDuration
// is used to compute the time-fraction passed to the script's AdjustStrategy.
func NewCoordinator(script Script, matchDuration time.Duration) *Coordinator {
	return &Coordinator{state: StateIdle, script: script, matchDuration: matchDuration}
}

// State returns the current match phase.
func (c *Coordinator) State() MatchState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// OpenGates transitions Idle/Gates → Active and records the match start time.
func (c *Coordinator) OpenGates(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateActive
	c.matchStart = now
}

// StartGateCountdown transitions Idle → Gates.
func (c *Coordinator) StartGateCountdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateIdle {
		c.state = StateGates
	}
}

// EnterOvertime transitions Active → Overtime (tied score at time limit).
func (c *Coordinator) EnterOvertime() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateActive {
		c.state = StateOvertime
	}
}

// FinishMatch transitions to Finished from any in-progress state.
func (c *Coordinator) FinishMatch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateFinished
}

// Decision returns the coordinator's currently active strategic decision.
func (c *Coordinator) Decision() StrategicDecision {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.decision
}

// Update re-evaluates the strategic decision on the 5s cadence and applies
// the new one only if the min-change-interval has elapsed and it scores at
// least strategySwitchMargin higher than the current decision's confidence.
func (c *Coordinator) Update(now time.Time, score Score, control float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateActive && c.state != StateOvertime {
		return
	}
	if !c.lastEval.IsZero() && now.Sub(c.lastEval) < strategicEvalInterval {
		return
	}
	c.lastEval = now

	timeFraction := 1.0
	if c.matchDuration > 0 {
		timeFraction = clamp01(float64(now.Sub(c.matchStart)) / float64(c.matchDuration))
	}

	candidate := c.script.AdjustStrategy(score.Team0-score.Team1, control, timeFraction)
	candidateScore := float64(candidate.Confidence)

	if c.lastChange.IsZero() {
		c.decision = candidate
		c.decisionScore = candidateScore
		c.lastChange = now
		return
	}
	if now.Sub(c.lastChange) < minStrategyChangeInterval {
		return
	}
	if candidateScore >= c.decisionScore*strategySwitchMargin {
		c.decision = candidate
		c.decisionScore = candidateScore
		c.lastChange = now
	}
}

// RecommendRoles delegates to the script using the currently active decision.
func (c *Coordinator) RecommendRoles() RoleDistribution {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.script.RecommendRoles(c.decision)
}

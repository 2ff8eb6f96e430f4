package arena

import (
	"time"

	"github.com/ashgrove/legion/internal/ids"
)

// minExpectedDuration is the gate below which a CC link isn't worth
// queuing at all; an immune or deeply diminished application wastes the spell.
const minExpectedDuration = 500 * time.Millisecond

// CCLink is one planned crowd-control application in a chain.
type CCLink struct {
	Caster           ids.EntityId
	Category         ids.DRCategory
	BaseDuration     time.Duration
	ExpectedDuration time.Duration
	StartAt          time.Time
}

type drState struct {
	stack     int
	lastApply time.Time
}

// CCChainManager plans sequences of CC links on a single target that
// maximise covered time without overlap gaps, tracking each category's DR
// stack per target.
type CCChainManager struct {
	cfg Config

	// per-target, per-category DR state.
	dr map[ids.EntityId]map[ids.DRCategory]*drState

	planned map[ids.EntityId][]CCLink

	chainsPlanned  int
	chainsSucceeded int
}

func newCCChainManager(cfg Config) *CCChainManager {
	return &CCChainManager{
		cfg:     cfg,
		dr:      make(map[ids.EntityId]map[ids.DRCategory]*drState),
		planned: make(map[ids.EntityId][]CCLink),
	}
}

func (m *CCChainManager) stateFor(target ids.EntityId, cat ids.DRCategory) *drState {
	byCat, ok := m.dr[target]
	if !ok {
		byCat = make(map[ids.DRCategory]*drState)
		m.dr[target] = byCat
	}
	s, ok := byCat[cat]
	if !ok {
		s = &drState{}
		byCat[cat] = s
	}
	return s
}

// update resets any DR stacks that have gone unrefreshed past the reset
// window (18s per ids.DRResetAfterSeconds).
func (m *CCChainManager) update(now time.Time) {
	for _, byCat := range m.dr {
		for _, s := range byCat {
			if s.stack > 0 && now.Sub(s.lastApply) >= ids.DRResetAfterSeconds*time.Second {
				s.stack = 0
			}
		}
	}
}

// PlanNext proposes the next link in target's CC chain starting no earlier
// than earliestStart, honoring the category's current DR stack. It returns
// false if the link should be skipped (expected duration below the 500ms
// gate, which includes a would-be-immune fourth application).
func (m *CCChainManager) PlanNext(caster, target ids.EntityId, category ids.DRCategory, baseDuration time.Duration, earliestStart time.Time) (CCLink, bool) {
	st := m.stateFor(target, category)
	mult := ids.DRStackMultiplier(st.stack)
	expected := time.Duration(float64(baseDuration) * mult)
	if expected < minExpectedDuration {
		return CCLink{}, false
	}

	start := earliestStart
	if chain := m.planned[target]; len(chain) > 0 {
		last := chain[len(chain)-1]
		lastEnd := last.StartAt.Add(last.ExpectedDuration)
		// Enforce a 300ms overlap window so the next link begins before the
		// previous one fully lapses, masking delivery latency.
		minStart := lastEnd.Add(-m.cfg.CCOverlapWindow)
		if start.Before(minStart) {
			start = minStart
		}
	}

	link := CCLink{Caster: caster, Category: category, BaseDuration: baseDuration, ExpectedDuration: expected, StartAt: start}
	if len(m.planned[target]) == 0 {
		m.chainsPlanned++
	}
	m.planned[target] = append(m.planned[target], link)
	st.stack++
	st.lastApply = start
	return link, true
}

// RecordOutcome marks whether the most recently planned chain against
// target landed as expected (used for the chain-success-rate statistic).
func (m *CCChainManager) RecordOutcome(target ids.EntityId, success bool) {
	if success {
		m.chainsSucceeded++
	}
	delete(m.planned, target)
}

// SuccessRate returns the fraction of planned chains recorded as successful.
func (m *CCChainManager) SuccessRate() float64 {
	if m.chainsPlanned == 0 {
		return 0
	}
	return float64(m.chainsSucceeded) / float64(m.chainsPlanned)
}

// ChainFor returns the currently-planned chain of links for target.
func (m *CCChainManager) ChainFor(target ids.EntityId) []CCLink {
	return append([]CCLink(nil), m.planned[target]...)
}

// Package spectator is a read-only diagnostic view over the coordination
// core: a terminal dashboard and a websocket feed, both driven by the same
// Snapshot polled from the coordinators' query methods. Nothing here
// mutates coordinator state: every field is read through an existing
// query method, never a new side channel.
package spectator

import (
	"time"

	"github.com/ashgrove/legion/internal/arena"
	"github.com/ashgrove/legion/internal/battleground"
	"github.com/ashgrove/legion/internal/claims"
	"github.com/ashgrove/legion/internal/deathsafety"
	"github.com/ashgrove/legion/internal/dungeon"
	"github.com/ashgrove/legion/internal/ids"
	"github.com/ashgrove/legion/internal/router"
	"github.com/ashgrove/legion/internal/swarmbus"
)

// Snapshot is a point-in-time read of everything a spectator cares about.
// It is a plain value: safe to copy, marshal, and hand across goroutines.
type Snapshot struct {
	Now time.Time `json:"now"`

	RouterStats      router.Stats `json:"router_stats"`
	RouterQueueDepth int          `json:"router_queue_depth"`

	BusInvalidMessages int64 `json:"bus_invalid_messages"`

	ClaimStats claims.Statistics `json:"claim_stats"`

	ArenaState    arena.MatchState `json:"arena_state,omitempty"`
	ArenaTarget   ids.EntityId     `json:"arena_target,omitempty"`
	ArenaBurst    arena.BurstPhase `json:"arena_burst_phase,omitempty"`
	ArenaCCRate   float64          `json:"arena_cc_success_rate,omitempty"`
	ArenaActive   bool             `json:"arena_active"`

	BattlegroundState    battleground.MatchState        `json:"battleground_state,omitempty"`
	BattlegroundDecision battleground.StrategicDecision `json:"battleground_decision,omitempty"`
	BattlegroundActive   bool                            `json:"battleground_active"`

	DungeonState      dungeon.RunState `json:"dungeon_state,omitempty"`
	DungeonKeystone    bool             `json:"dungeon_keystone_active"`
	DungeonRemainingMs int64            `json:"dungeon_remaining_ms,omitempty"`
	DungeonDeaths      int              `json:"dungeon_deaths,omitempty"`
	DungeonActive      bool             `json:"dungeon_active"`

	CorpsesTracked int `json:"corpses_tracked"`

	LastError string `json:"last_error,omitempty"`
}

// Sources bundles the live subsystem pointers a Provider reads from. Any
// field may be nil; a nil coordinator is simply omitted from the snapshot
// rather than treated as an error, since a demo run may only stand up a
// subset (e.g. arena without a dungeon run active).
type Sources struct {
	Router   *router.Router
	Bus      *swarmbus.Bus
	Resolver *claims.Resolver
	Corpses  *deathsafety.Tracker

	Arena        *arena.Coordinator
	Battleground *battleground.Coordinator
	Dungeon      *dungeon.Coordinator

	BusGroupID ids.GroupId
}

// Provider produces a fresh Snapshot on demand.
type Provider func() Snapshot

// NewProvider builds a Provider closed over src. LastError reporting is
// left to the caller (e.g. cmd/legiond can wrap this to capture a run loop
// error and surface it on the next poll).
func NewProvider(src Sources, lastError func() string) Provider {
	return func() Snapshot {
		snap := Snapshot{Now: time.Now()}

		if src.Router != nil {
			snap.RouterStats = src.Router.Stats()
			snap.RouterQueueDepth = src.Router.QueueDepth()
		}
		if src.Bus != nil {
			snap.BusInvalidMessages = src.Bus.InvalidMessageCount()
		}
		if src.Resolver != nil {
			snap.ClaimStats = src.Resolver.GetStatistics()
		}
		if src.Corpses != nil {
			snap.CorpsesTracked = src.Corpses.TrackedCount()
		}

		if src.Arena != nil {
			snap.ArenaActive = true
			snap.ArenaState = src.Arena.State()
			snap.ArenaTarget = src.Arena.KillTarget().Current()
			snap.ArenaBurst = src.Arena.Burst().Phase()
			snap.ArenaCCRate = src.Arena.CCChain().SuccessRate()
		}
		if src.Battleground != nil {
			snap.BattlegroundActive = true
			snap.BattlegroundState = src.Battleground.State()
			snap.BattlegroundDecision = src.Battleground.Decision()
		}
		if src.Dungeon != nil {
			snap.DungeonActive = true
			snap.DungeonState = src.Dungeon.State()
			if mplus := src.Dungeon.MythicPlus(); mplus != nil && mplus.IsActive() {
				snap.DungeonKeystone = true
				snap.DungeonRemainingMs = mplus.RemainingTime(snap.Now).Milliseconds()
				snap.DungeonDeaths = mplus.DeathCount()
			}
		}

		if lastError != nil {
			snap.LastError = lastError()
		}
		return snap
	}
}

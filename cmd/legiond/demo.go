package main

import (
	"context"
	"log/slog"
	"math/rand"
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

// demoGroup is the single coordination group every synthetic agent joins.
// A real deployment runs one group per five-or-forty-person party; the
// harness only ever stands up one.
const demoGroup = ids.GroupId(1)

// botAgent is a synthetic party member: it subscribes to both the combat
// event router and the group message bus and just logs what it sees,
// standing in for the real per-agent decision loop the coordination core
// exists to serve.
type botAgent struct {
	id     ids.EntityId
	role   ids.Role
	logger *slog.Logger
}

func (b *botAgent) OnEvent(event router.CombatEvent) {
	b.logger.Debug("bot observed event", "bot", b.id, "kind", event.Kind, "target", event.Target)
}

func (b *botAgent) OnMessage(msg swarmbus.Message) {
	b.logger.Debug("bot observed message", "bot", b.id, "kind", msg.Kind, "sender", msg.Sender)
}

// demoDeps bundles every long-lived subsystem the synthetic scenarios drive.
type demoDeps struct {
	logger   *slog.Logger
	rtr      *router.Router
	bus      *swarmbus.Bus
	resolver *claims.Resolver
	corpses  *deathsafety.Tracker

	arenaCoord *arena.Coordinator
	bgCoord    *battleground.Coordinator
	dungeonRun *dungeon.Coordinator
}

// spawnAgents registers numAgents synthetic bots on both the router and the
// bus so the demo's traffic actually has somewhere to go.
func spawnAgents(d *demoDeps, numAgents int) []*botAgent {
	agents := make([]*botAgent, 0, numAgents)
	roles := []ids.Role{ids.RoleTank, ids.RoleHealer, ids.RoleDps}
	for i := 0; i < numAgents; i++ {
		a := &botAgent{id: ids.EntityId(100 + i), role: roles[i%len(roles)], logger: d.logger}
		agents = append(agents, a)
		d.rtr.Subscribe(a, router.KindDamage|router.KindHeal|router.KindUnitDied|router.KindCCApplied, 0, nil)
		d.bus.Subscribe(a.id, demoGroup, a, a.role, ids.SubGroupNone)
	}
	return agents
}

// runArenaScenario drives a short 3v3 match: gates open, a kill target
// emerges, a switch call is published on tick 3, an enemy dies every fifth
// tick, and the match ends once the enemy team is reduced to one member.
// No enemy is made burst-viable and no crowd-control chain is planned.
func runArenaScenario(ctx context.Context, d *demoDeps, agents []*botAgent) {
	d.arenaCoord.StartGateCountdown()
	now := time.Now()
	d.arenaCoord.OpenGates(now)

	enemies := []arena.Enemy{
		{ID: ids.EntityId(901), HealthFrac: 1.0, IsHealer: true, InRangeAndLOS: true},
		{ID: ids.EntityId(902), HealthFrac: 1.0, InRangeAndLOS: true},
		{ID: ids.EntityId(903), HealthFrac: 1.0, InRangeAndLOS: true},
	}
	teammates := make([]arena.Teammate, 0, len(agents))
	for _, a := range agents {
		teammates = append(teammates, arena.Teammate{ID: a.id, HealthFrac: 1.0, Alive: true, BurstReady: true})
	}

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	tick := 0
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			tick++
			if tick == 3 {
				// Focus the healer down: publish the call so every agent
				// sees a CommandCallSwitch before the coordinator itself
				// converges on the same target by score.
				msg := swarmbus.NewCommand(swarmbus.KindCommandCallSwitch, agents[0].id, demoGroup, now)
				msg.Target = enemies[0].ID
				d.bus.Publish(msg)
				enemies[0].RecentDamageToFocus = 500
			}
			if tick%5 == 0 {
				enemies[0].HealthFrac = 0
				d.rtr.Dispatch(router.CombatEvent{Kind: router.KindUnitDied, Target: enemies[0].ID, Timestamp: now})
				enemies = enemies[1:]
			}
			d.arenaCoord.Update(now, 500*time.Millisecond, enemies, teammates)
			d.bus.Process(16)
			d.rtr.Drain()

			if len(enemies) <= 1 {
				d.arenaCoord.FinishMatch()
				return
			}
		}
	}
}

// runBattlegroundScenario drives a short capture-the-flag match: score
// ticks up for both sides and the strategic decision re-evaluates every
// few ticks until one side pulls ahead.
func runBattlegroundScenario(ctx context.Context, d *demoDeps) {
	d.bgCoord.StartGateCountdown()
	start := time.Now()
	d.bgCoord.OpenGates(start)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	score := battleground.Score{}
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			score.Team0 += rand.Intn(2)
			if rand.Intn(3) == 0 {
				score.Team1++
			}
			d.bgCoord.Update(now, score, 0.5)

			if score.Team0 >= 3 || score.Team1 >= 3 {
				d.bgCoord.FinishMatch()
				return
			}
		}
	}
}

// runDungeonScenario drives one keystone pull: a trash pack, a wipe and
// recovery, a boss kill, and the Mythic+ timer's forces tracking.
func runDungeonScenario(ctx context.Context, d *demoDeps, agents []*botAgent) {
	mplus := d.dungeonRun.MythicPlus()
	mplus.Initialize(dungeon.KeystoneInfo{
		DungeonID: ids.EntityId(55),
		Level:     10,
		Affixes:   []dungeon.Affix{dungeon.AffixFortified, dungeon.AffixBolstering, dungeon.AffixSanguine},
		TimeLimit: 30 * time.Minute,
	})
	now := time.Now()
	mplus.StartTimer(now)
	mplus.RegisterEnemyForces(1, dungeon.EnemyForces{CreatureID: 1, ForcesValue: 40})
	mplus.RegisterEnemyForces(2, dungeon.EnemyForces{CreatureID: 2, ForcesValue: 60, IsPriority: true})

	members := make([]dungeon.Member, 0, len(agents))
	for _, a := range agents {
		members = append(members, dungeon.Member{ID: a.id, Role: a.role, Alive: true, HealthFrac: 1.0, ManaFrac: 1.0})
	}

	d.dungeonRun.EnterInstance()
	d.dungeonRun.BeginReadyCheck(now)
	for _, a := range agents {
		d.dungeonRun.ConfirmReady(a.id)
	}
	d.dungeonRun.ResolveReadyCheck(now.Add(time.Second), members)

	pack := dungeon.Pack{
		ID: ids.EntityId(1),
		Members: []dungeon.PackMember{
			{ID: ids.EntityId(1), Threat: 10},
			{ID: ids.EntityId(2), Threat: 6},
		},
	}
	trash := d.dungeonRun.Trash()
	if trash.IsSafeToPull(dungeon.GroupSnapshot{Members: members}) {
		plan := trash.BuildPlan(pack, dungeon.RoleCapacity{Tanks: 1, InterruptCap: 2}, agents[0].id)
		d.bus.Publish(dungeon.ExecutePull(plan, agents[0].id, demoGroup, now))
	}
	mplus.OnEnemyKilled(1)

	boss := d.dungeonRun.Boss()
	boss.LoadStrategy(dungeon.Strategy{
		BossID:         ids.EntityId(999),
		Mechanics:      []dungeon.Mechanic{{TriggerSpellID: 12345, Response: dungeon.ResponseInterrupt}},
		MustInterrupt:  []uint32{12345},
		TankSwapStackLimit: 3,
	})

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	d.dungeonRun.EnterBoss()
	tick := 0
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			tick++
			boss.UpdateHealth(ids.EntityId(999), 1.0-float64(tick)*0.12)
			if tick == 2 {
				if _, mustInterrupt, _ := boss.OnEvent(ids.EntityId(999), 12345); mustInterrupt {
					claimMsg := swarmbus.NewClaim(swarmbus.KindClaimInterrupt, agents[0].id, ids.EntityId(999), demoGroup, 12345, 1, now)
					d.resolver.Submit(claimMsg, func(status ids.ClaimStatus) {
						d.logger.Info("demo: interrupt claim resolved", "status", status)
					})
				}
			}
			if tick == 4 {
				// Simulate a wipe, full recovery, then the kill.
				d.dungeonRun.EnterWipe(now, members)
				d.dungeonRun.UpdateRecovery(now.Add(releaseAfterDemo), members)
			}
			mplus.OnEnemyKilled(2)
			if tick >= 6 {
				d.dungeonRun.ExitBoss()
				d.dungeonRun.Complete()
				d.logger.Info("demo: dungeon run complete",
					"on_time", mplus.IsOnTime(now),
					"forces_percent", mplus.EnemyForcesPercent(),
					"deaths", mplus.DeathCount())
				return
			}
			d.resolver.ProcessPending(now)
		}
	}
}

// releaseAfterDemo stands in for the wipe manager's release-and-run-back
// delay without the demo actually having to wait out the real ~25s of game
// time between a wipe and the group being back at the pull.
const releaseAfterDemo = 30 * time.Second

// runDemo runs every scenario concurrently against the shared subsystems,
// exercising the full coordination core the way a live raid, battleground,
// and Mythic+ run would simultaneously stress a real deployment.
func runDemo(ctx context.Context, d *demoDeps) {
	agents := spawnAgents(d, 5)
	d.logger.Info("demo: scenarios starting", "agents", len(agents))

	done := make(chan struct{}, 3)
	go func() { runArenaScenario(ctx, d, agents); done <- struct{}{} }()
	go func() { runBattlegroundScenario(ctx, d); done <- struct{}{} }()
	go func() { runDungeonScenario(ctx, d, agents); done <- struct{}{} }()

	for i := 0; i < 3; i++ {
		select {
		case <-ctx.Done():
			return
		case <-done:
		}
	}
	d.logger.Info("demo: all scenarios finished")
}

package spectator

import (
	"encoding/json"
	"testing"

	"github.com/ashgrove/legion/internal/arena"
	"github.com/ashgrove/legion/internal/battleground"
	"github.com/ashgrove/legion/internal/claims"
	"github.com/ashgrove/legion/internal/deathsafety"
	"github.com/ashgrove/legion/internal/dungeon"
	"github.com/ashgrove/legion/internal/router"
	"github.com/ashgrove/legion/internal/swarmbus"
)

func TestNewProvider_AggregatesAcrossNilAndLiveSources(t *testing.T) {
	r := router.New()
	resolver := claims.New(nil)
	bus := swarmbus.New(resolver, nil)
	corpses := deathsafety.New()
	arenaCoord := arena.NewCoordinator(arena.DefaultConfig())
	bgCoord := battleground.NewCoordinator(battleground.NewCTFScript(489, 10), 0)

	provider := NewProvider(Sources{
		Router:       r,
		Bus:          bus,
		Resolver:     resolver,
		Corpses:      corpses,
		Arena:        arenaCoord,
		Battleground: bgCoord,
		// Dungeon intentionally left nil: snapshot should omit it cleanly.
	}, func() string { return "" })

	snap := provider()
	if !snap.ArenaActive {
		t.Fatal("expected arena to be marked active")
	}
	if !snap.BattlegroundActive {
		t.Fatal("expected battleground to be marked active")
	}
	if snap.DungeonActive {
		t.Fatal("expected dungeon to be marked inactive when its coordinator is nil")
	}
	if snap.CorpsesTracked != 0 {
		t.Fatalf("corpses tracked = %d, want 0 on a fresh tracker", snap.CorpsesTracked)
	}
}

func TestNewProvider_DungeonOnly(t *testing.T) {
	dungeonCoord := dungeon.NewCoordinator(dungeon.DefaultConfig())
	provider := NewProvider(Sources{Dungeon: dungeonCoord}, nil)

	snap := provider()
	if !snap.DungeonActive {
		t.Fatal("expected dungeon to be marked active")
	}
	if snap.DungeonKeystone {
		t.Fatal("expected no keystone active without one configured")
	}
}

func TestSnapshot_MarshalsToJSON(t *testing.T) {
	snap := Snapshot{}
	data, err := MarshalForTest(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal back: %v", err)
	}
	if _, ok := out["now"]; !ok {
		t.Fatal("expected a now field in the marshaled snapshot")
	}
}

package battleground

import (
	"github.com/ashgrove/legion/internal/ids"
)

// Built-in map ids. The numbers match the host simulator's map table.
const (
	MapWarsongGulch     = 489
	MapTwinPeaks        = 726
	MapArathiBasin      = 529
	MapBattleForGilneas = 761
	MapSilvershardMines = 727
	MapStrandOfAncients = 607
	MapAlteracValley    = 30
)

// RegisterBuiltins installs every built-in map script into r. Call this
// once at subsystem init; keeping the list here, apart from the Registry
// itself, means adding a map variant never touches the registry's code.
func RegisterBuiltins(r *Registry) {
	// registerEach gives every map id its own factory, so each created
	// script reports the map id it was created for.
	registerEach := func(mapIDs []int, name string, build func(mapID int) Script) {
		for _, id := range mapIDs {
			r.Register(id, name, func() Script { return build(id) })
		}
	}

	registerEach([]int{MapWarsongGulch, MapTwinPeaks}, "capture_the_flag", func(mapID int) Script {
		return NewCTFScript(mapID, 10)
	})

	registerEach([]int{MapArathiBasin, MapBattleForGilneas}, "domination", func(mapID int) Script {
		nodes := []Node{
			{ID: ids.EntityId(1), Name: "stables", Owner: -1},
			{ID: ids.EntityId(2), Name: "blacksmith", Owner: -1},
			{ID: ids.EntityId(3), Name: "lumber_mill", Owner: -1},
			{ID: ids.EntityId(4), Name: "gold_mine", Owner: -1},
			{ID: ids.EntityId(5), Name: "farm", Owner: -1},
		}
		// Points per tick by controlled-node count. Income rises with every
		// extra node up to all five, so optimalNodeCount reports 5 here.
		points := map[int]int{1: 1, 2: 2, 3: 4, 4: 7, 5: 10}
		return NewDominationScript(mapID, 15, nodes, points)
	})

	r.Register(MapSilvershardMines, "resource_race", func() Script {
		intersections := []Intersection{
			{ID: ids.EntityId(1), ControllingTeam: -1},
			{ID: ids.EntityId(2), ControllingTeam: -1},
		}
		carts := []Cart{
			{ID: ids.EntityId(10), Team: -1},
			{ID: ids.EntityId(11), Team: -1},
		}
		return NewResourceRaceScript(MapSilvershardMines, 10, intersections, carts)
	})

	r.Register(MapStrandOfAncients, "siege", func() Script {
		gates := []Gate{
			{ID: ids.EntityId(1), Name: "green_gate", Health: 1},
			{ID: ids.EntityId(2), Name: "blue_gate", Health: 1},
			{ID: ids.EntityId(3), Name: "chamber_gate", Health: 1, RequiresGate: ids.EntityId(1)},
		}
		vehicles := []Vehicle{
			{ID: ids.EntityId(20), Team: 0, Alive: true, Seats: []VehicleSeat{{Role: RoleVehicleDriver}, {Role: RoleVehicleGunner}}},
			{ID: ids.EntityId(21), Team: 0, Alive: true, Seats: []VehicleSeat{{Role: RoleVehicleDriver}, {Role: RoleVehicleGunner}}},
		}
		return NewSiegeScript(MapStrandOfAncients, 15, gates, vehicles, true)
	})

	r.Register(MapAlteracValley, "epic", func() Script {
		events := []SideEvent{
			{ID: ids.EntityId(40), Name: "mine", Weight: 2, ControllingTeam: -1},
			{ID: ids.EntityId(41), Name: "tower", Weight: 1.5, ControllingTeam: -1},
			{ID: ids.EntityId(42), Name: "graveyard", Weight: 1, ControllingTeam: -1},
		}
		return NewEpicScript(MapAlteracValley, 40, 600, events, [2]ids.EntityId{100, 200})
	})
}

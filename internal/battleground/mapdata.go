package battleground

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ashgrove/legion/internal/ids"
)

// PositionData is a YAML-decodable world position.
type PositionData struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

func (p PositionData) position() ids.Position {
	return ids.Position{X: p.X, Y: p.Y, Z: p.Z}
}

// NodeData is one capturable node in a map's data file.
type NodeData struct {
	ID   uint64       `yaml:"id"`
	Name string       `yaml:"name"`
	Pos  PositionData `yaml:"pos"`
}

// MapData is the static per-map table a script can be seeded from: spawn
// and strategic positions plus the node/points tables for maps that score
// by control. Shipping these as data files instead of Go literals lets a
// deployment retune a map (repositioned graveyard, rebalanced tick table)
// without a rebuild.
type MapData struct {
	MapID      int                     `yaml:"map_id"`
	Name       string                  `yaml:"name"`
	MaxPerSide int                     `yaml:"max_per_side"`
	Spawns     map[int]PositionData    `yaml:"spawns"`
	Strategic  map[string]PositionData `yaml:"strategic"`

	Nodes         []NodeData  `yaml:"nodes"`
	PointsPerTick map[int]int `yaml:"points_per_tick"`
}

// LoadMapData reads and decodes one map's data file.
func LoadMapData(path string) (MapData, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return MapData{}, fmt.Errorf("battleground: read map data: %w", err)
	}
	return ParseMapData(raw)
}

// ParseMapData decodes a map data document.
func ParseMapData(raw []byte) (MapData, error) {
	var d MapData
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return MapData{}, fmt.Errorf("battleground: parse map data: %w", err)
	}
	if d.MapID == 0 {
		return MapData{}, fmt.Errorf("battleground: map data missing map_id")
	}
	if d.MaxPerSide <= 0 {
		d.MaxPerSide = 10
	}
	return d, nil
}

// SpawnPositions converts the decoded spawn table to world positions.
func (d MapData) SpawnPositions() map[int]ids.Position {
	out := make(map[int]ids.Position, len(d.Spawns))
	for team, pos := range d.Spawns {
		out[team] = pos.position()
	}
	return out
}

// StrategicPositions converts the decoded strategic-point table.
func (d MapData) StrategicPositions() map[string]ids.Position {
	out := make(map[string]ids.Position, len(d.Strategic))
	for name, pos := range d.Strategic {
		out[name] = pos.position()
	}
	return out
}

// DominationScript builds a domination script seeded from the data file's
// node and points tables.
func (d MapData) DominationScript() *DominationScript {
	nodes := make([]Node, 0, len(d.Nodes))
	for _, n := range d.Nodes {
		nodes = append(nodes, Node{ID: ids.EntityId(n.ID), Name: n.Name, Owner: -1})
	}
	return NewDominationScript(d.MapID, d.MaxPerSide, nodes, d.PointsPerTick)
}

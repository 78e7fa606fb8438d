package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ===== POLYGON TESTS =====

func Test_Polygon_Area(t *testing.T) {
	tests := []struct {
		name string
		poly Polygon
		want float64
	}{
		{"square", Rectangle(Point{}, 4, 4), 16},
		{"clockwise", Polygon{{0, 0}, {0, 3}, {2, 3}, {2, 0}}, 6},
		{"triangle", Polygon{{0, 0}, {4, 0}, {0, 3}}, 6},
		{"degenerate", Polygon{{0, 0}, {1, 1}}, 0},
		{"empty", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.poly.Area(), 1e-9)
		})
	}
}

func Test_Polygon_Centroid(t *testing.T) {
	c := Rectangle(Point{X: 2, Y: 1}, 4, 2).Centroid()
	assert.InDelta(t, 4.0, c.X, 1e-9)
	assert.InDelta(t, 2.0, c.Y, 1e-9)

	// Collinear ring falls back to vertex mean
	c = Polygon{{0, 0}, {2, 0}, {4, 0}}.Centroid()
	assert.InDelta(t, 2.0, c.X, 1e-9)
	assert.InDelta(t, 0.0, c.Y, 1e-9)
}

func Test_Polygon_TransformsDoNotAlias(t *testing.T) {
	orig := Rectangle(Point{}, 2, 2)

	moved := orig.Translate(1, 1)
	scaled := orig.ScaleAbout(Point{X: 1, Y: 1}, 2, 2)

	assert.Equal(t, Point{X: 0, Y: 0}, orig[0], "original must be untouched")
	assert.Equal(t, Point{X: 1, Y: 1}, moved[0])
	assert.Equal(t, Point{X: -1, Y: -1}, scaled[0])
	assert.InDelta(t, 16.0, scaled.Area(), 1e-9)
}

func Test_Polygon_Edges(t *testing.T) {
	edges := Rectangle(Point{}, 3, 1).Edges()
	require.Len(t, edges, 4)
	assert.Equal(t, Point{X: 0, Y: 1}, edges[3].Start)
	assert.Equal(t, Point{X: 0, Y: 0}, edges[3].End, "closing edge returns to the first vertex")
	assert.InDelta(t, 3.0, edges[0].Length(), 1e-9)
}

// ===== ROOM TESTS =====

func Test_Room_Matches(t *testing.T) {
	room := Room{ID: "r1", Name: "Master Bedroom", Type: "bedroom"}

	assert.True(t, room.Matches("bedroom"))
	assert.True(t, room.Matches("MASTER"))
	assert.False(t, room.Matches("kitchen"))
	assert.False(t, room.Matches("  "))
}

func Test_Room_EffectiveArea(t *testing.T) {
	assert.InDelta(t, 12.0, Room{AreaM2: 12, Polygon: Rectangle(Point{}, 1, 1)}.EffectiveArea(), 1e-9)
	assert.InDelta(t, 6.0, Room{Polygon: Rectangle(Point{}, 2, 3)}.EffectiveArea(), 1e-9)
}

// ===== GEOMETRY TESTS =====

func Test_Geometry_Clone(t *testing.T) {
	g := Geometry{
		Levels: []Level{{Index: 0}},
		Rooms: []Room{
			{ID: "r1", Name: "Kitchen", Level: IntPtr(0), Polygon: Rectangle(Point{}, 3, 3)},
		},
		Walls:       []Wall{{ID: "w1", RoomIDs: []string{"r1"}}},
		Circulation: []CirculationPath{{ID: "c1", Points: []Point{{0, 0}, {1, 0}}, Connects: []string{"r1"}}},
	}

	clone := g.Clone()
	*clone.Rooms[0].Level = 3
	clone.Rooms[0].Polygon[0].X = 99
	clone.Walls[0].RoomIDs[0] = "other"
	clone.Circulation[0].Points[0].X = 42
	clone.Levels[0].Name = "changed"

	assert.Equal(t, 0, *g.Rooms[0].Level)
	assert.Equal(t, 0.0, g.Rooms[0].Polygon[0].X)
	assert.Equal(t, "r1", g.Walls[0].RoomIDs[0])
	assert.Equal(t, 0.0, g.Circulation[0].Points[0].X)
	assert.Empty(t, g.Levels[0].Name)
}

func Test_Geometry_RoomsOnLevel(t *testing.T) {
	g := Geometry{
		Rooms: []Room{
			{ID: "a", Level: IntPtr(0)},
			{ID: "b", Level: IntPtr(1)},
			{ID: "c"},
			{ID: "d", Level: IntPtr(0)},
		},
	}

	ground := g.RoomsOnLevel(0)
	require.Len(t, ground, 2)
	assert.Equal(t, "a", ground[0].ID)
	assert.Equal(t, "d", ground[1].ID)

	idx, ok := g.RoomIndex("c")
	assert.True(t, ok)
	assert.Equal(t, 2, idx)
	_, ok = g.RoomIndex("missing")
	assert.False(t, ok)
}

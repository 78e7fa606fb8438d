// Package entities contains domain entities for the plumbline domain model.
package entities

import (
	"math"
	"strings"
)

// Point is a plan-space coordinate in meters.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Polygon is a closed ring of points. The closing edge is implicit.
type Polygon []Point

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	MinX float64 `json:"minX"`
	MinY float64 `json:"minY"`
	MaxX float64 `json:"maxX"`
	MaxY float64 `json:"maxY"`
}

// Width returns the X extent.
func (b Bounds) Width() float64 { return b.MaxX - b.MinX }

// Depth returns the Y extent.
func (b Bounds) Depth() float64 { return b.MaxY - b.MinY }

// Center returns the midpoint of the box.
func (b Bounds) Center() Point {
	return Point{X: (b.MinX + b.MaxX) / 2, Y: (b.MinY + b.MaxY) / 2}
}

// Area returns the absolute shoelace area.
func (p Polygon) Area() float64 {
	if len(p) < 3 {
		return 0
	}
	var sum float64
	for i := range p {
		j := (i + 1) % len(p)
		sum += p[i].X*p[j].Y - p[j].X*p[i].Y
	}
	return math.Abs(sum) / 2
}

// Centroid returns the area centroid, falling back to the vertex mean for
// degenerate rings.
func (p Polygon) Centroid() Point {
	if len(p) == 0 {
		return Point{}
	}
	var a, cx, cy float64
	for i := range p {
		j := (i + 1) % len(p)
		cross := p[i].X*p[j].Y - p[j].X*p[i].Y
		a += cross
		cx += (p[i].X + p[j].X) * cross
		cy += (p[i].Y + p[j].Y) * cross
	}
	if math.Abs(a) < 1e-12 {
		var mx, my float64
		for _, pt := range p {
			mx += pt.X
			my += pt.Y
		}
		n := float64(len(p))
		return Point{X: mx / n, Y: my / n}
	}
	a *= 0.5
	return Point{X: cx / (6 * a), Y: cy / (6 * a)}
}

// Bounds returns the bounding box of the ring.
func (p Polygon) Bounds() Bounds {
	if len(p) == 0 {
		return Bounds{}
	}
	b := Bounds{MinX: p[0].X, MinY: p[0].Y, MaxX: p[0].X, MaxY: p[0].Y}
	for _, pt := range p[1:] {
		b.MinX = math.Min(b.MinX, pt.X)
		b.MinY = math.Min(b.MinY, pt.Y)
		b.MaxX = math.Max(b.MaxX, pt.X)
		b.MaxY = math.Max(b.MaxY, pt.Y)
	}
	return b
}

// Translate returns a copy offset by (dx, dy).
func (p Polygon) Translate(dx, dy float64) Polygon {
	out := make(Polygon, len(p))
	for i, pt := range p {
		out[i] = Point{X: pt.X + dx, Y: pt.Y + dy}
	}
	return out
}

// ScaleAbout returns a copy scaled by (sx, sy) around origin.
func (p Polygon) ScaleAbout(origin Point, sx, sy float64) Polygon {
	out := make(Polygon, len(p))
	for i, pt := range p {
		out[i] = Point{
			X: origin.X + (pt.X-origin.X)*sx,
			Y: origin.Y + (pt.Y-origin.Y)*sy,
		}
	}
	return out
}

// Clone returns an independent copy.
func (p Polygon) Clone() Polygon {
	if p == nil {
		return nil
	}
	out := make(Polygon, len(p))
	copy(out, p)
	return out
}

// Edges returns the ring's edges including the closing one.
func (p Polygon) Edges() []Segment {
	if len(p) < 2 {
		return nil
	}
	edges := make([]Segment, 0, len(p))
	for i := range p {
		edges = append(edges, Segment{Start: p[i], End: p[(i+1)%len(p)]})
	}
	return edges
}

// Rectangle builds an axis-aligned rectangle with its lower-left corner at origin.
func Rectangle(origin Point, width, depth float64) Polygon {
	return Polygon{
		origin,
		{X: origin.X + width, Y: origin.Y},
		{X: origin.X + width, Y: origin.Y + depth},
		{X: origin.X, Y: origin.Y + depth},
	}
}

// Segment is a straight line between two points.
type Segment struct {
	Start Point `json:"start"`
	End   Point `json:"end"`
}

// Length returns the Euclidean length.
func (s Segment) Length() float64 {
	return math.Hypot(s.End.X-s.Start.X, s.End.Y-s.Start.Y)
}

// Level is one storey of the building.
type Level struct {
	Index   int     `json:"index"`
	Name    string  `json:"name,omitempty"`
	HeightM float64 `json:"heightM,omitempty"`
}

// Room is a named space placed on a level.
// Level is nil when the design carries no level metadata for the room.
type Room struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Type    string  `json:"type,omitempty"`
	Level   *int    `json:"level,omitempty"`
	AreaM2  float64 `json:"areaM2,omitempty"`
	Polygon Polygon `json:"polygon,omitempty"`
}

// LevelIndex returns the room's level and whether it is known.
func (r Room) LevelIndex() (int, bool) {
	if r.Level == nil {
		return 0, false
	}
	return *r.Level, true
}

// EffectiveArea returns the declared area, or the polygon area when none is declared.
func (r Room) EffectiveArea() float64 {
	if r.AreaM2 > 0 {
		return r.AreaM2
	}
	return r.Polygon.Area()
}

// Matches reports whether the room answers to the given space name,
// using a case-insensitive substring test on name and type.
func (r Room) Matches(space string) bool {
	needle := strings.ToLower(strings.TrimSpace(space))
	if needle == "" {
		return false
	}
	return strings.Contains(strings.ToLower(r.Name), needle) ||
		strings.Contains(strings.ToLower(r.Type), needle)
}

// Clone returns an independent copy.
func (r Room) Clone() Room {
	out := r
	if r.Level != nil {
		lvl := *r.Level
		out.Level = &lvl
	}
	out.Polygon = r.Polygon.Clone()
	return out
}

// Wall is a straight wall segment.
type Wall struct {
	ID         string   `json:"id"`
	Start      Point    `json:"start"`
	End        Point    `json:"end"`
	ThicknessM float64  `json:"thicknessM,omitempty"`
	Exterior   bool     `json:"exterior,omitempty"`
	Level      int      `json:"level"`
	RoomIDs    []string `json:"roomIds,omitempty"`
}

// Length returns the wall's centerline length.
func (w Wall) Length() float64 {
	return Segment{Start: w.Start, End: w.End}.Length()
}

// Opening is a door or window hosted by a wall.
type Opening struct {
	ID          string  `json:"id"`
	Kind        string  `json:"kind"`
	WallID      string  `json:"wallId,omitempty"`
	Position    float64 `json:"position"`
	WidthM      float64 `json:"widthM"`
	HeightM     float64 `json:"heightM"`
	SillHeightM float64 `json:"sillHeightM,omitempty"`
}

// CirculationPath is a corridor or stair run connecting rooms.
type CirculationPath struct {
	ID       string   `json:"id"`
	Kind     string   `json:"kind,omitempty"`
	Points   []Point  `json:"points,omitempty"`
	WidthM   float64  `json:"widthM,omitempty"`
	Connects []string `json:"connects,omitempty"`
	Level    int      `json:"level"`
}

// Geometry is the built layout of a design.
// The floor count is the number of levels.
type Geometry struct {
	Levels      []Level           `json:"levels"`
	Rooms       []Room            `json:"rooms"`
	Walls       []Wall            `json:"walls,omitempty"`
	Openings    []Opening         `json:"openings,omitempty"`
	Circulation []CirculationPath `json:"circulation,omitempty"`
}

// FloorCount returns the number of levels.
func (g *Geometry) FloorCount() int {
	return len(g.Levels)
}

// RoomIndex returns the position of the room with the given ID.
func (g *Geometry) RoomIndex(id string) (int, bool) {
	for i := range g.Rooms {
		if g.Rooms[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

// RoomsOnLevel returns the rooms placed on the given level.
func (g *Geometry) RoomsOnLevel(level int) []Room {
	var out []Room
	for _, r := range g.Rooms {
		if l, ok := r.LevelIndex(); ok && l == level {
			out = append(out, r)
		}
	}
	return out
}

// TotalArea sums the effective area of every room.
func (g *Geometry) TotalArea() float64 {
	var total float64
	for _, r := range g.Rooms {
		total += r.EffectiveArea()
	}
	return total
}

// Clone returns a deep copy that shares no slices with the receiver.
func (g *Geometry) Clone() Geometry {
	out := Geometry{}
	if g.Levels != nil {
		out.Levels = append([]Level(nil), g.Levels...)
	}
	if g.Rooms != nil {
		out.Rooms = make([]Room, len(g.Rooms))
		for i, r := range g.Rooms {
			out.Rooms[i] = r.Clone()
		}
	}
	if g.Walls != nil {
		out.Walls = make([]Wall, len(g.Walls))
		for i, w := range g.Walls {
			w.RoomIDs = cloneStrings(w.RoomIDs)
			out.Walls[i] = w
		}
	}
	if g.Openings != nil {
		out.Openings = append([]Opening(nil), g.Openings...)
	}
	if g.Circulation != nil {
		out.Circulation = make([]CirculationPath, len(g.Circulation))
		for i, c := range g.Circulation {
			if c.Points != nil {
				c.Points = append([]Point(nil), c.Points...)
			}
			c.Connects = cloneStrings(c.Connects)
			out.Circulation[i] = c
		}
	}
	return out
}

func cloneStrings(src []string) []string {
	if src == nil {
		return nil
	}
	dst := make([]string, len(src))
	copy(dst, src)
	return dst
}

// IntPtr returns a pointer to v. Handy for optional level fields.
func IntPtr(v int) *int {
	return &v
}

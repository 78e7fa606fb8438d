package services

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/plumbline-dev/plumbline/internal/domain/entities"
)

// Defaults used when a correction asks for elements without describing them.
const (
	DefaultCorridorWidthM = 1.2
	DefaultExteriorWallM  = 0.3
	DefaultInteriorWallM  = 0.1
	DefaultWindowWidthM   = 1.2
	DefaultWindowHeightM  = 1.2
	DefaultWindowSillM    = 0.9
	MinWindowWallSpanM    = 1.5
	defaultRoomAreaM2     = 12.0
	placementGapM         = 1.0
)

var wetRoomKeywords = []string{"bath", "kitchen", "utility", "wc", "ensuite", "shower", "laundry"}

// SkippedCorrection records a correction that changed nothing.
type SkippedCorrection struct {
	Action entities.CorrectionAction `json:"action"`
	Reason string                    `json:"reason"`
}

// CorrectionResult lists what Apply did with each action.
type CorrectionResult struct {
	Applied []entities.CorrectionAction `json:"applied,omitempty"`
	Skipped []SkippedCorrection         `json:"skipped,omitempty"`
}

// GeometryCorrector applies reasoner corrections to a geometry candidate.
// Unknown or inapplicable actions are logged and skipped; Apply never fails.
type GeometryCorrector struct {
	logger *slog.Logger
}

// NewGeometryCorrector creates a corrector. A nil logger uses slog.Default.
func NewGeometryCorrector(logger *slog.Logger) *GeometryCorrector {
	if logger == nil {
		logger = slog.Default()
	}
	return &GeometryCorrector{logger: logger}
}

// Apply returns a corrected copy of g. The input is not modified.
func (c *GeometryCorrector) Apply(g entities.Geometry, actions []entities.CorrectionAction) (entities.Geometry, CorrectionResult) {
	out := g.Clone()
	var result CorrectionResult

	for _, action := range actions {
		if err := c.apply(&out, action); err != nil {
			c.logger.Debug("correction skipped", "action", action.String(), "reason", err.Error())
			result.Skipped = append(result.Skipped, SkippedCorrection{Action: action, Reason: err.Error()})
			continue
		}
		c.logger.Debug("correction applied", "action", action.String())
		result.Applied = append(result.Applied, action)
	}
	return out, result
}

func (c *GeometryCorrector) apply(g *entities.Geometry, a entities.CorrectionAction) error {
	switch a.Kind {
	case entities.CorrectionTranslate:
		return translateRoom(g, a)
	case entities.CorrectionResize:
		return resizeRoom(g, a)
	case entities.CorrectionSwap:
		return swapRooms(g, a)
	case entities.CorrectionReorient:
		c.logger.Info("reorient correction is not actionable; ignoring", "target", a.Target)
		return fmt.Errorf("reorient is a no-op")
	case entities.CorrectionCreateRooms:
		if len(a.Rooms) == 0 {
			return fmt.Errorf("no rooms given")
		}
		for _, r := range a.Rooms {
			addRoom(g, r, a.Level)
		}
		return nil
	case entities.CorrectionAddRoom:
		return addSingleRoom(g, a)
	case entities.CorrectionRemoveRoom:
		return removeRoom(g, a)
	case entities.CorrectionAdjustDimensions:
		return adjustDimensions(g, a)
	case entities.CorrectionDefineCirculation:
		return defineCirculation(g, a)
	case entities.CorrectionAddWalls:
		return addWalls(g, a)
	case entities.CorrectionAddOpenings:
		return addOpenings(g, a)
	case entities.CorrectionAlignWetRooms:
		return alignWetRooms(g, a)
	default:
		c.logger.Warn("unknown correction kind", "kind", string(a.Kind), "target", a.Target)
		return fmt.Errorf("unknown correction kind %q", a.Kind)
	}
}

// findRoom resolves a target by room ID, then by case-insensitive name.
func findRoom(g *entities.Geometry, target string) (int, error) {
	if target == "" {
		return -1, fmt.Errorf("no target room")
	}
	if i, ok := g.RoomIndex(target); ok {
		return i, nil
	}
	for i := range g.Rooms {
		if strings.EqualFold(g.Rooms[i].Name, target) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("room %q not found", target)
}

func translateRoom(g *entities.Geometry, a entities.CorrectionAction) error {
	i, err := findRoom(g, a.Target)
	if err != nil {
		return err
	}
	if a.DX == 0 && a.DY == 0 {
		return fmt.Errorf("zero offset")
	}
	g.Rooms[i].Polygon = g.Rooms[i].Polygon.Translate(a.DX, a.DY)
	return nil
}

func resizeRoom(g *entities.Geometry, a entities.CorrectionAction) error {
	i, err := findRoom(g, a.Target)
	if err != nil {
		return err
	}
	sx, sy := a.ScaleX, a.ScaleY
	if sx == 0 {
		sx = 1
	}
	if sy == 0 {
		sy = 1
	}
	if sx < 0 || sy < 0 || (sx == 1 && sy == 1) {
		return fmt.Errorf("invalid scale %gx%g", a.ScaleX, a.ScaleY)
	}
	room := &g.Rooms[i]
	if len(room.Polygon) == 0 {
		return fmt.Errorf("room %q has no outline", room.ID)
	}
	room.Polygon = room.Polygon.ScaleAbout(room.Polygon.Bounds().Center(), sx, sy)
	if room.AreaM2 > 0 {
		room.AreaM2 *= sx * sy
	}
	return nil
}

func swapRooms(g *entities.Geometry, a entities.CorrectionAction) error {
	i, err := findRoom(g, a.Target)
	if err != nil {
		return err
	}
	j, err := findRoom(g, a.With)
	if err != nil {
		return err
	}
	if i == j {
		return fmt.Errorf("cannot swap a room with itself")
	}
	g.Rooms[i].Polygon, g.Rooms[j].Polygon = g.Rooms[j].Polygon, g.Rooms[i].Polygon
	return nil
}

func addSingleRoom(g *entities.Geometry, a entities.CorrectionAction) error {
	switch {
	case len(a.Rooms) > 0:
		addRoom(g, a.Rooms[0], a.Level)
	case a.Target != "":
		addRoom(g, entities.Room{Name: a.Target, AreaM2: a.TargetAreaM2}, a.Level)
	default:
		return fmt.Errorf("no room described")
	}
	return nil
}

// addRoom appends r, generating an ID and a square outline east of the
// current layout when they are missing.
func addRoom(g *entities.Geometry, r entities.Room, level *int) {
	r = r.Clone()
	if r.ID == "" {
		r.ID = uniqueID("room", roomIDs(g))
	}
	if r.Level == nil && level != nil {
		r.Level = entities.IntPtr(*level)
	}
	if len(r.Polygon) < 3 {
		origin := entities.Point{}
		if b, ok := layoutExtent(g); ok {
			origin = entities.Point{X: b.MaxX + placementGapM, Y: b.MinY}
		}
		area := r.AreaM2
		if area <= 0 {
			area = defaultRoomAreaM2
		}
		r.Polygon = squareFor(origin, area)
	}
	g.Rooms = append(g.Rooms, r)
}

func removeRoom(g *entities.Geometry, a entities.CorrectionAction) error {
	i, err := findRoom(g, a.Target)
	if err != nil {
		return err
	}
	g.Rooms = append(g.Rooms[:i], g.Rooms[i+1:]...)
	return nil
}

func adjustDimensions(g *entities.Geometry, a entities.CorrectionAction) error {
	i, err := findRoom(g, a.Target)
	if err != nil {
		return err
	}
	if a.TargetAreaM2 <= 0 {
		return fmt.Errorf("target area must be positive")
	}
	room := &g.Rooms[i]
	current := room.Polygon.Area()
	if current <= 0 {
		return fmt.Errorf("room %q has no measurable outline", room.ID)
	}
	k := math.Sqrt(a.TargetAreaM2 / current)
	room.Polygon = room.Polygon.ScaleAbout(room.Polygon.Centroid(), k, k)
	room.AreaM2 = a.TargetAreaM2
	return nil
}

func defineCirculation(g *entities.Geometry, a entities.CorrectionAction) error {
	if len(a.Paths) > 0 {
		ids := pathIDs(g)
		for _, p := range a.Paths {
			if p.ID == "" {
				p.ID = uniqueID("path", ids)
			}
			ids[p.ID] = true
			if p.WidthM <= 0 {
				p.WidthM = DefaultCorridorWidthM
			}
			g.Circulation = append(g.Circulation, p)
		}
		return nil
	}

	if len(g.Rooms) < 2 {
		return fmt.Errorf("need at least two rooms to connect")
	}
	type stop struct {
		id string
		at entities.Point
	}
	stops := make([]stop, 0, len(g.Rooms))
	for _, r := range g.Rooms {
		if len(r.Polygon) == 0 {
			continue
		}
		stops = append(stops, stop{r.ID, r.Polygon.Centroid()})
	}
	if len(stops) < 2 {
		return fmt.Errorf("need at least two rooms with outlines to connect")
	}
	sort.SliceStable(stops, func(i, j int) bool {
		if stops[i].at.X != stops[j].at.X {
			return stops[i].at.X < stops[j].at.X
		}
		return stops[i].at.Y < stops[j].at.Y
	})

	corridor := entities.CirculationPath{
		ID:     uniqueID("corridor", pathIDs(g)),
		Kind:   "corridor",
		WidthM: DefaultCorridorWidthM,
	}
	if a.Level != nil {
		corridor.Level = *a.Level
	}
	for _, s := range stops {
		corridor.Points = append(corridor.Points, s.at)
		corridor.Connects = append(corridor.Connects, s.id)
	}
	g.Circulation = append(g.Circulation, corridor)
	return nil
}

func addWalls(g *entities.Geometry, a entities.CorrectionAction) error {
	ids := wallIDs(g)
	if len(a.Walls) > 0 {
		for _, w := range a.Walls {
			if w.ID == "" {
				w.ID = uniqueID("wall", ids)
			}
			ids[w.ID] = true
			if w.ThicknessM <= 0 {
				w.ThicknessM = DefaultInteriorWallM
				if w.Exterior {
					w.ThicknessM = DefaultExteriorWallM
				}
			}
			g.Walls = append(g.Walls, w)
		}
		return nil
	}

	existing := make(map[string]bool, len(g.Walls))
	for _, w := range g.Walls {
		existing[wallKey(w.Level, entities.Segment{Start: w.Start, End: w.End})] = true
	}

	// An edge seen once bounds the building; seen twice it separates rooms.
	index := make(map[string]int)
	var synthesized []entities.Wall
	for _, r := range g.Rooms {
		level, _ := r.LevelIndex()
		for _, e := range r.Polygon.Edges() {
			if e.Length() == 0 {
				continue
			}
			key := wallKey(level, e)
			if existing[key] {
				continue
			}
			if i, ok := index[key]; ok {
				w := &synthesized[i]
				w.Exterior = false
				w.ThicknessM = DefaultInteriorWallM
				w.RoomIDs = append(w.RoomIDs, r.ID)
				continue
			}
			index[key] = len(synthesized)
			synthesized = append(synthesized, entities.Wall{
				Start:      e.Start,
				End:        e.End,
				ThicknessM: DefaultExteriorWallM,
				Exterior:   true,
				Level:      level,
				RoomIDs:    []string{r.ID},
			})
		}
	}
	if len(synthesized) == 0 {
		return fmt.Errorf("no room edges without walls")
	}
	for _, w := range synthesized {
		w.ID = uniqueID("wall", ids)
		ids[w.ID] = true
		g.Walls = append(g.Walls, w)
	}
	return nil
}

func wallKey(level int, s entities.Segment) string {
	return fmt.Sprintf("%d:%s", level, segmentKey(s))
}

func addOpenings(g *entities.Geometry, a entities.CorrectionAction) error {
	ids := openingIDs(g)
	if len(a.Openings) > 0 {
		for _, o := range a.Openings {
			if o.ID == "" {
				o.ID = uniqueID("opening", ids)
			}
			ids[o.ID] = true
			g.Openings = append(g.Openings, o)
		}
		return nil
	}

	hosted := make(map[string]bool, len(g.Openings))
	for _, o := range g.Openings {
		hosted[o.WallID] = true
	}
	added := 0
	for _, w := range g.Walls {
		if !w.Exterior || hosted[w.ID] || w.Length() <= MinWindowWallSpanM {
			continue
		}
		id := uniqueID("window", ids)
		ids[id] = true
		g.Openings = append(g.Openings, entities.Opening{
			ID:          id,
			Kind:        "window",
			WallID:      w.ID,
			Position:    w.Length() / 2,
			WidthM:      DefaultWindowWidthM,
			HeightM:     DefaultWindowHeightM,
			SillHeightM: DefaultWindowSillM,
		})
		added++
	}
	if added == 0 {
		return fmt.Errorf("no exterior walls longer than %.1f m without openings", MinWindowWallSpanM)
	}
	return nil
}

// IsWetRoom reports whether a room needs plumbing.
func IsWetRoom(r entities.Room) bool {
	for _, kw := range wetRoomKeywords {
		if r.Matches(kw) {
			return true
		}
	}
	return false
}

func alignWetRooms(g *entities.Geometry, a entities.CorrectionAction) error {
	useY := strings.EqualFold(a.Axis, "y")

	var wet []int
	var sum float64
	for i, r := range g.Rooms {
		if !IsWetRoom(r) || len(r.Polygon) == 0 {
			continue
		}
		wet = append(wet, i)
		c := r.Polygon.Centroid()
		if useY {
			sum += c.Y
		} else {
			sum += c.X
		}
	}
	if len(wet) < 2 {
		return fmt.Errorf("fewer than two wet rooms to align")
	}

	axis := sum / float64(len(wet))
	for _, i := range wet {
		c := g.Rooms[i].Polygon.Centroid()
		if useY {
			g.Rooms[i].Polygon = g.Rooms[i].Polygon.Translate(0, axis-c.Y)
		} else {
			g.Rooms[i].Polygon = g.Rooms[i].Polygon.Translate(axis-c.X, 0)
		}
	}
	return nil
}

func uniqueID(prefix string, taken map[string]bool) string {
	for n := len(taken) + 1; ; n++ {
		id := fmt.Sprintf("%s-%d", prefix, n)
		if !taken[id] {
			return id
		}
	}
}

func roomIDs(g *entities.Geometry) map[string]bool {
	ids := make(map[string]bool, len(g.Rooms))
	for _, r := range g.Rooms {
		ids[r.ID] = true
	}
	return ids
}

func wallIDs(g *entities.Geometry) map[string]bool {
	ids := make(map[string]bool, len(g.Walls))
	for _, w := range g.Walls {
		ids[w.ID] = true
	}
	return ids
}

func openingIDs(g *entities.Geometry) map[string]bool {
	ids := make(map[string]bool, len(g.Openings))
	for _, o := range g.Openings {
		ids[o.ID] = true
	}
	return ids
}

func pathIDs(g *entities.Geometry) map[string]bool {
	ids := make(map[string]bool, len(g.Circulation))
	for _, p := range g.Circulation {
		ids[p.ID] = true
	}
	return ids
}

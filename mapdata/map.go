// Package mapdata implements the 2-D grid game map: a text-format loader
// producing a TileMatrix plus parallel spawn/resource vectors, solidity
// and one-way-tile rules, Bresenham line-of-sight, and A* pathfinding
// over the 8-connected grid.
package mapdata

import (
	"container/heap"
	"hash/crc32"
	"strings"
)

const (
	AirChar          = ' '
	OneWayLeftChar   = '<'
	OneWayRightChar  = '>'
	OneWayUpChar     = '^'
	OneWayDownChar   = 'v'
)

// IsSolidChar reports whether ch is solid with no team/direction context.
func IsSolidChar(ch byte) bool {
	switch ch {
	case AirChar, OneWayLeftChar, OneWayRightChar, OneWayUpChar, OneWayDownChar:
		return false
	default:
		return true
	}
}

// Map is an immutable, loaded game map: the tile grid, its CRC32 identity,
// and the semantic point/path lists lifted out of the grid during parsing.
type Map struct {
	matrix TileMatrix
	name   string
	hash   uint32

	redCartSpawn, blueCartSpawn   Vec2
	redCartPath, blueCartPath     []Vec2
	redFlagSpawns, blueFlagSpawns []Vec2
	redSpawns, blueSpawns         []Vec2
	redSpawnVis, blueSpawnVis     []Vec2
	resupplyLockers               []Vec2
	medkitSpawns, ammopackSpawns  []Vec2

	resources []string
	script    []string
}

func parseSubstr(str, beginTag, endTag string) string {
	i := strings.Index(str, beginTag)
	if i < 0 {
		return ""
	}
	iBegin := i + len(beginTag)
	iEnd := strings.Index(str[i:], endTag)
	if iEnd < 0 {
		return ""
	}
	iEnd += i
	if iBegin < iEnd {
		return str[iBegin:iEnd]
	}
	return ""
}

func parseChar(str, tag string) byte {
	i := strings.Index(str, tag)
	if i < 0 || i+len(tag) >= len(str) {
		return 0
	}
	return str[i+len(tag)]
}

// parseScript splits a script block into non-empty, non-comment command
// lines; the interpreter itself is an external collaborator, so
// these are handed back opaquely via Resources()/Script().
func parseScript(block string) []string {
	var out []string
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		out = append(out, line)
	}
	return out
}

// Load parses str (the full map file text blob) into a Map named name.
// Returns false iff the tile grid is empty.
func Load(name, str string) (Map, bool) {
	data := parseSubstr(str, "[DATA]\n", "\n[END_DATA]")
	if data == "" {
		data = str // entire string is data if the tag is absent
	}

	m := Map{
		name: name,
		hash: crc32.ChecksumIEEE([]byte(data)),
	}
	m.matrix = NewTileMatrix(data, AirChar)
	if m.matrix.Empty() {
		return Map{}, false
	}

	m.resources = parseScript(parseSubstr(str, "[RESOURCES]\n", "[END_RESOURCES]"))
	m.script = parseScript(parseSubstr(str, "[SCRIPT]\n", "\n[END_SCRIPT]"))

	redSpawnChar := parseChar(str, "[SPAWN_RED] ")
	blueSpawnChar := parseChar(str, "[SPAWN_BLU] ")
	medkitChar := parseChar(str, "[MEDKIT] ")
	ammopackChar := parseChar(str, "[AMMOPACK] ")
	redFlagChar := parseChar(str, "[FLAG_RED] ")
	blueFlagChar := parseChar(str, "[FLAG_BLU] ")
	redSpawnVisChar := parseChar(str, "[SPAWNVIS_RED] ")
	blueSpawnVisChar := parseChar(str, "[SPAWNVIS_BLU] ")
	resupplyChar := parseChar(str, "[RESUPPLY] ")
	redTrackChar := parseChar(str, "[TRACK_RED] ")
	blueTrackChar := parseChar(str, "[TRACK_BLU] ")
	redCartChar := parseChar(str, "[CART_RED] ")
	blueCartChar := parseChar(str, "[CART_BLU] ")

	redTrack := make(map[Vec2]struct{})
	blueTrack := make(map[Vec2]struct{})

	for y := 0; y < m.matrix.Height(); y++ {
		for x := 0; x < m.matrix.Width(); x++ {
			ch := m.matrix.Get(x, y, 0)
			if ch == 0 {
				continue
			}
			p := Vec2{x, y}
			switch {
			case redTrackChar != 0 && ch == redTrackChar:
				redTrack[p] = struct{}{}
				m.matrix.Set(x, y, AirChar)
			case blueTrackChar != 0 && ch == blueTrackChar:
				blueTrack[p] = struct{}{}
				m.matrix.Set(x, y, AirChar)
			case redCartChar != 0 && ch == redCartChar:
				m.redCartSpawn = p
				m.matrix.Set(x, y, AirChar)
			case blueCartChar != 0 && ch == blueCartChar:
				m.blueCartSpawn = p
				m.matrix.Set(x, y, AirChar)
			case redSpawnChar != 0 && ch == redSpawnChar:
				m.redSpawns = append(m.redSpawns, p)
				m.matrix.Set(x, y, AirChar)
			case blueSpawnChar != 0 && ch == blueSpawnChar:
				m.blueSpawns = append(m.blueSpawns, p)
				m.matrix.Set(x, y, AirChar)
			case medkitChar != 0 && ch == medkitChar:
				m.medkitSpawns = append(m.medkitSpawns, p)
				m.matrix.Set(x, y, AirChar)
			case ammopackChar != 0 && ch == ammopackChar:
				m.ammopackSpawns = append(m.ammopackSpawns, p)
				m.matrix.Set(x, y, AirChar)
			case redFlagChar != 0 && ch == redFlagChar:
				m.redFlagSpawns = append(m.redFlagSpawns, p)
				m.matrix.Set(x, y, AirChar)
			case blueFlagChar != 0 && ch == blueFlagChar:
				m.blueFlagSpawns = append(m.blueFlagSpawns, p)
				m.matrix.Set(x, y, AirChar)
			case redSpawnVisChar != 0 && ch == redSpawnVisChar:
				m.redSpawnVis = append(m.redSpawnVis, p)
				m.matrix.Set(x, y, AirChar)
			case blueSpawnVisChar != 0 && ch == blueSpawnVisChar:
				m.blueSpawnVis = append(m.blueSpawnVis, p)
				m.matrix.Set(x, y, AirChar)
			case resupplyChar != 0 && ch == resupplyChar:
				m.resupplyLockers = append(m.resupplyLockers, p)
				m.matrix.Set(x, y, AirChar)
			}
		}
	}

	if len(redTrack) > 0 {
		m.redCartPath = makePath(redTrack, m.redCartSpawn)
	}
	if len(blueTrack) > 0 {
		m.blueCartPath = makePath(blueTrack, m.blueCartSpawn)
	}

	return m, true
}

// getUnvisitedNeighbor scans the four cardinal neighbors first, then the
// four diagonals, preferring the first unvisited node present in the
// track-tile set.
func getUnvisitedNeighbor(nodes map[Vec2]struct{}, p Vec2, visited map[Vec2]struct{}) (Vec2, bool) {
	candidates := [...]Vec2{
		{p.X, p.Y - 1}, {p.X, p.Y + 1}, {p.X - 1, p.Y}, {p.X + 1, p.Y},
		{p.X - 1, p.Y - 1}, {p.X + 1, p.Y - 1}, {p.X - 1, p.Y + 1}, {p.X + 1, p.Y + 1},
	}
	for _, c := range candidates {
		if _, isNode := nodes[c]; !isNode {
			continue
		}
		if _, seen := visited[c]; seen {
			continue
		}
		return c, true
	}
	return Vec2{}, false
}

// makePath walks the unordered track-tile set into an ordered path starting
// at start, extrapolating the previous step's direction first so straight
// runs of track are not zig-zagged by the neighbor-scan order.
func makePath(nodes map[Vec2]struct{}, start Vec2) []Vec2 {
	path := []Vec2{start}
	visited := make(map[Vec2]struct{})

	previous := start
	node, ok := getUnvisitedNeighbor(nodes, start, visited)
	for ok {
		extrapolated := node.Add(node.Sub(previous))

		path = append(path, node)
		visited[node] = struct{}{}

		if _, isNode := nodes[extrapolated]; isNode {
			if _, seen := visited[extrapolated]; !seen {
				previous = node
				node = extrapolated
				continue
			}
		}
		previous = node
		node, ok = getUnvisitedNeighbor(nodes, node, visited)
	}
	return path
}

func (m Map) Loaded() bool         { return !m.matrix.Empty() }
func (m Map) Width() int           { return m.matrix.Width() }
func (m Map) Height() int          { return m.matrix.Height() }
func (m Map) Hash() uint32         { return m.hash }
func (m Map) Name() string         { return m.name }
func (m Map) Matrix() TileMatrix   { return m.matrix }
func (m Map) Resources() []string  { return m.resources }
func (m Map) Script() []string     { return m.script }

func (m Map) RedCartSpawn() Vec2  { return m.redCartSpawn }
func (m Map) BlueCartSpawn() Vec2 { return m.blueCartSpawn }
func (m Map) RedCartPath() []Vec2 { return m.redCartPath }
func (m Map) BlueCartPath() []Vec2 { return m.blueCartPath }
func (m Map) RedFlagSpawns() []Vec2  { return m.redFlagSpawns }
func (m Map) BlueFlagSpawns() []Vec2 { return m.blueFlagSpawns }
func (m Map) RedSpawns() []Vec2  { return m.redSpawns }
func (m Map) BlueSpawns() []Vec2 { return m.blueSpawns }
func (m Map) RedRespawnRoomVisualizers() []Vec2  { return m.redSpawnVis }
func (m Map) BlueRespawnRoomVisualizers() []Vec2 { return m.blueSpawnVis }
func (m Map) ResupplyLockers() []Vec2 { return m.resupplyLockers }
func (m Map) MedkitSpawns() []Vec2    { return m.medkitSpawns }
func (m Map) AmmopackSpawns() []Vec2  { return m.ammopackSpawns }

// Get returns the tile at p, or 0 if out of bounds.
func (m Map) Get(p Vec2) byte { return m.matrix.Get(p.X, p.Y, 0) }

func containsVec(list []Vec2, p Vec2) bool {
	for _, v := range list {
		if v == p {
			return true
		}
	}
	return false
}

func (m Map) IsResupplyLocker(p Vec2) bool { return containsVec(m.resupplyLockers, p) }
func (m Map) IsRedRespawnRoomVisualizer(p Vec2) bool  { return containsVec(m.redSpawnVis, p) }
func (m Map) IsBlueRespawnRoomVisualizer(p Vec2) bool { return containsVec(m.blueSpawnVis, p) }

// IsSolid reports whether p blocks movement, ignoring any direction-aware
// one-way rule (used e.g. by spawn-point validity checks).
func (m Map) IsSolid(p Vec2, red, blue bool) bool {
	switch m.Get(p) {
	case AirChar:
		if !red && m.IsRedRespawnRoomVisualizer(p) {
			return true
		}
		if !blue && m.IsBlueRespawnRoomVisualizer(p) {
			return true
		}
		return false
	case OneWayLeftChar, OneWayRightChar, OneWayUpChar, OneWayDownChar:
		return false
	default:
		return true
	}
}

// IsSolidDir reports whether p blocks movement in moveDirection, applying
// one-way-tile rules: a one-way tile refuses any movement that lacks its
// arrow's component.
func (m Map) IsSolidDir(p Vec2, red, blue bool, moveDirection Direction) bool {
	switch m.Get(p) {
	case AirChar:
		if !red && m.IsRedRespawnRoomVisualizer(p) {
			return true
		}
		if !blue && m.IsBlueRespawnRoomVisualizer(p) {
			return true
		}
		return false
	case OneWayLeftChar:
		return !moveDirection.HasLeft()
	case OneWayRightChar:
		return !moveDirection.HasRight()
	case OneWayUpChar:
		return !moveDirection.HasUp()
	case OneWayDownChar:
		return !moveDirection.HasDown()
	default:
		return true
	}
}

func abs(a int) int {
	if a < 0 {
		return -a
	}
	return a
}

// LineOfSight Bresenham-rasterizes the segment p1->p2 and reports whether
// every cell on it is non-solid, ignoring team-specific respawn
// visualizers.
func (m Map) LineOfSight(p1, p2 Vec2) bool {
	dx := abs(p2.X - p1.X)
	dy := abs(p2.Y - p1.Y)
	sx, sy := 1, 1
	if p1.X >= p2.X {
		sx = -1
	}
	if p1.Y >= p2.Y {
		sy = -1
	}

	err := 0
	if dx > dy {
		err = dx / 2
	} else {
		err = -dy / 2
	}

	for {
		if IsSolidChar(m.Get(p1)) {
			return false
		}
		if p1 == p2 {
			break
		}
		e2 := err
		if e2 > -dx {
			err -= dy
			p1.X += sx
		}
		if e2 < dy {
			err += dx
			p1.Y += sy
		}
	}
	return true
}

const (
	costStraight = 1000
	costDiagonal = 1414
)

func forEachNonSolidNeighbor(m Map, p Vec2, red, blue bool, cb func(Vec2, int)) {
	up := Vec2{p.X, p.Y - 1}
	if !m.IsSolidDir(up, red, blue, DirUp) {
		cb(up, costStraight)
	}
	down := Vec2{p.X, p.Y + 1}
	if !m.IsSolidDir(down, red, blue, DirDown) {
		cb(down, costStraight)
	}
	left := Vec2{p.X - 1, p.Y}
	if !m.IsSolidDir(left, red, blue, DirLeft) {
		cb(left, costStraight)
	}
	right := Vec2{p.X + 1, p.Y}
	if !m.IsSolidDir(right, red, blue, DirRight) {
		cb(right, costStraight)
	}

	upLeft := Vec2{p.X - 1, p.Y - 1}
	if !m.IsSolidDir(upLeft, red, blue, DirUp|DirLeft) {
		cb(upLeft, costDiagonal)
	}
	upRight := Vec2{p.X + 1, p.Y - 1}
	if !m.IsSolidDir(upRight, red, blue, DirUp|DirRight) {
		cb(upRight, costDiagonal)
	}
	downLeft := Vec2{p.X - 1, p.Y + 1}
	if !m.IsSolidDir(downLeft, red, blue, DirDown|DirLeft) {
		cb(downLeft, costDiagonal)
	}
	downRight := Vec2{p.X + 1, p.Y + 1}
	if !m.IsSolidDir(downRight, red, blue, DirDown|DirRight) {
		cb(downRight, costDiagonal)
	}
}

func heuristic(p, destination Vec2) int {
	return (abs(p.X-destination.X) + abs(p.Y-destination.Y)) * 1000
}

type aStarNode struct {
	priority int
	position Vec2
}

type nodeHeap []aStarNode

func (h nodeHeap) Len() int            { return len(h) }
func (h nodeHeap) Less(i, j int) bool  { return h[i].priority < h[j].priority }
func (h nodeHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *nodeHeap) Push(x interface{}) { *h = append(*h, x.(aStarNode)) }
func (h *nodeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	v := old[n-1]
	*h = old[:n-1]
	return v
}

// FindPath runs A* over the 8-connected grid (step costs 1000 cardinal,
// 1414 diagonal, Manhattan*1000 heuristic) and returns the path excluding
// start, in destination-first order, so a caller walks it by popping the
// back. Returns nil if no path exists.
func (m Map) FindPath(start, destination Vec2, red, blue bool) []Vec2 {
	cost := map[Vec2]int{start: 0}
	previous := map[Vec2]Vec2{start: start}

	pq := &nodeHeap{{priority: heuristic(start, destination), position: start}}
	heap.Init(pq)

	for pq.Len() > 0 {
		node := (*pq)[0].position
		if node == destination {
			break
		}
		heap.Pop(pq)

		forEachNonSolidNeighbor(m, node, red, blue, func(neighbor Vec2, weight int) {
			newCost := cost[node] + weight
			if existing, ok := cost[neighbor]; !ok {
				cost[neighbor] = newCost
				previous[neighbor] = node
				heap.Push(pq, aStarNode{priority: newCost + heuristic(neighbor, destination), position: neighbor})
			} else if newCost < existing {
				cost[neighbor] = newCost
				previous[neighbor] = node
				heap.Push(pq, aStarNode{priority: newCost + heuristic(neighbor, destination), position: neighbor})
			}
		})
	}

	var path []Vec2
	it, ok := previous[destination]
	if !ok {
		return nil
	}
	path = append(path, destination)
	for it != start {
		path = append(path, it)
		next, found := previous[it]
		if !found {
			break
		}
		it = next
	}
	return path
}

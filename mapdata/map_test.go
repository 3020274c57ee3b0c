package mapdata

import "testing"

func TestMapParity(t *testing.T) {
	data := "[DATA]\n#####\n#   #\n# # #\n#   #\n#####\n[END_DATA]"
	m, ok := Load("test", data)
	if !ok {
		t.Fatal("Load failed")
	}
	for y := 0; y < m.Height(); y++ {
		for x := 0; x < m.Width(); x++ {
			want := byte(' ')
			switch {
			case y == 0 || y == 4, x == 0 || x == 4:
				want = '#'
			case x == 2 && y == 2:
				want = '#'
			}
			if got := m.Get(Vec2{x, y}); got != want {
				t.Fatalf("(%d,%d) = %q, want %q", x, y, got, want)
			}
		}
	}
}

func TestSolidityNonAirSymmetry(t *testing.T) {
	for _, ch := range []byte{' ', '<', '>', '^', 'v'} {
		if IsSolidChar(ch) {
			t.Errorf("IsSolidChar(%q) = true, want false", ch)
		}
	}
	for _, ch := range []byte{'#', 'X', '@', '1'} {
		if !IsSolidChar(ch) {
			t.Errorf("IsSolidChar(%q) = false, want true", ch)
		}
	}
}

func buildBlankMap(t *testing.T, w, h int, solid func(x, y int) bool) Map {
	t.Helper()
	rows := make([]byte, 0, (w+1)*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if solid(x, y) {
				rows = append(rows, '#')
			} else {
				rows = append(rows, ' ')
			}
		}
		rows = append(rows, '\n')
	}
	m, ok := Load("test", string(rows))
	if !ok {
		t.Fatal("Load failed")
	}
	return m
}

func TestLineOfSight(t *testing.T) {
	m := buildBlankMap(t, 5, 5, func(x, y int) bool { return x == 2 && y == 2 })

	if m.LineOfSight(Vec2{0, 0}, Vec2{4, 4}) {
		t.Error("LineOfSight((0,0),(4,4)) = true, want false (blocked by (2,2))")
	}
	if !m.LineOfSight(Vec2{0, 4}, Vec2{4, 0}) {
		t.Error("LineOfSight((0,4),(4,0)) = false, want true")
	}
}

func TestAStarPath(t *testing.T) {
	m := buildBlankMap(t, 10, 10, func(x, y int) bool {
		return x == 4 && y <= 8
	})

	path := m.FindPath(Vec2{0, 0}, Vec2{9, 0}, true, true)
	if len(path) != 18 {
		t.Fatalf("len(path) = %d, want 18", len(path))
	}
	if path[0] != (Vec2{9, 0}) {
		t.Fatalf("path[0] = %v, want (9,0)", path[0])
	}
}

func TestAStarOptimalityAgainstDijkstra(t *testing.T) {
	m := buildBlankMap(t, 8, 8, func(x, y int) bool {
		return (x == 3 && y < 6) || (x == 5 && y > 2)
	})

	start, dest := Vec2{0, 0}, Vec2{7, 7}
	path := m.FindPath(start, dest, true, true)
	if len(path) == 0 {
		t.Fatal("expected a path to exist")
	}

	gotCost := pathCost(t, m, start, path)
	wantCost := dijkstra(m, start, dest)
	if gotCost != wantCost {
		t.Fatalf("A* cost = %d, want %d (dijkstra)", gotCost, wantCost)
	}
}

// pathCost walks path (destination-first) and sums the step costs the A*
// search itself would have charged, used only to cross-check against an
// independent Dijkstra implementation in the optimality test above.
func pathCost(t *testing.T, m Map, start Vec2, path []Vec2) int {
	t.Helper()
	prev := start
	total := 0
	for i := len(path) - 1; i >= 0; i-- {
		cur := path[i]
		dx, dy := abs(cur.X-prev.X), abs(cur.Y-prev.Y)
		if dx != 0 && dy != 0 {
			total += costDiagonal
		} else {
			total += costStraight
		}
		prev = cur
	}
	return total
}

func dijkstra(m Map, start, dest Vec2) int {
	dist := map[Vec2]int{start: 0}
	visited := map[Vec2]bool{}
	for {
		var current Vec2
		best := -1
		for p, d := range dist {
			if !visited[p] && (best == -1 || d < best) {
				best = d
				current = p
			}
		}
		if best == -1 {
			break
		}
		if current == dest {
			return best
		}
		visited[current] = true
		forEachNonSolidNeighbor(m, current, true, true, func(n Vec2, weight int) {
			nd := dist[current] + weight
			if old, ok := dist[n]; !ok || nd < old {
				dist[n] = nd
			}
		})
	}
	return dist[dest]
}

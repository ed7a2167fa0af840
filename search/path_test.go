package search

import (
	"math/rand"
	"testing"

	"github.com/brensch/autosnake/game"
	"github.com/brensch/autosnake/rules"
)

func snapshotFromRows(t *testing.T, rows []string) *game.Snapshot {
	t.Helper()

	height := int32(len(rows))
	width := int32(len(rows[0]))
	s := &game.Snapshot{Width: width, Height: height, Heading: game.MoveUp}

	var head, goal *game.Point
	var body []game.Point
	for i, row := range rows {
		y := height - 1 - int32(i) // rows are listed top-down
		for x := int32(0); x < width; x++ {
			p := game.Point{X: x, Y: y}
			switch row[x] {
			case 'O':
				q := p
				head = &q
			case 'o':
				body = append(body, p)
			case '*':
				q := p
				goal = &q
			}
		}
	}
	if head == nil {
		t.Fatalf("board has no head")
	}
	s.Body = append([]game.Point{*head}, body...)
	if goal != nil {
		s.Goal = *goal
	}
	return s
}

func validatePath(t *testing.T, s *game.Snapshot, path []game.Point, from, to game.Point) {
	t.Helper()

	if path[0] != from || path[len(path)-1] != to {
		t.Fatalf("path endpoints %v..%v want %v..%v", path[0], path[len(path)-1], from, to)
	}
	for i := 1; i < len(path); i++ {
		dx := path[i].X - path[i-1].X
		dy := path[i].Y - path[i-1].Y
		if dx*dx+dy*dy != 1 {
			t.Fatalf("path step %v -> %v not 4-adjacent", path[i-1], path[i])
		}
		for _, bp := range s.Body {
			if path[i] == bp {
				t.Fatalf("path crosses body at %v", path[i])
			}
		}
	}
}

func TestShortestPath_OpenBoard(t *testing.T) {
	s := &game.Snapshot{
		Width:   10,
		Height:  10,
		Body:    []game.Point{{X: 0, Y: 0}},
		Heading: game.MoveUp,
	}
	from := game.Point{X: 0, Y: 0}
	to := game.Point{X: 9, Y: 9}

	path := ShortestPath(s, from, to)
	if path == nil {
		t.Fatalf("no path on open board")
	}
	// Manhattan distance 18, so 19 cells including both endpoints.
	if len(path) != 19 {
		t.Fatalf("path len=%d want=19", len(path))
	}
	validatePath(t, s, path, from, to)
}

func TestShortestPath_AroundBody(t *testing.T) {
	s := snapshotFromRows(t, []string{
		".......",
		"..ooo..",
		"..o.o..",
		"..oOo..",
		"..o.o..",
		".......",
		"...*...",
	})

	path := ShortestPath(s, s.Head(), s.Goal)
	if path == nil {
		t.Fatalf("no path out of the open-bottomed box")
	}
	validatePath(t, s, path, s.Head(), s.Goal)
	// Straight down through the open bottom: 3 steps, 4 cells.
	if len(path) != 4 {
		t.Fatalf("path len=%d want=4", len(path))
	}
}

func TestShortestPath_Unreachable(t *testing.T) {
	s := snapshotFromRows(t, []string{
		".......",
		"..ooo..",
		"..oOo..",
		"..ooo..",
		".......",
		"...*...",
		".......",
	})

	if path := ShortestPath(s, s.Head(), s.Goal); path != nil {
		t.Fatalf("found path %v out of a sealed box", path)
	}
}

func TestShortestPath_Deterministic(t *testing.T) {
	s := &game.Snapshot{
		Width:   8,
		Height:  8,
		Body:    []game.Point{{X: 2, Y: 2}},
		Heading: game.MoveUp,
	}
	from := game.Point{X: 2, Y: 2}
	to := game.Point{X: 6, Y: 5}

	first := ShortestPath(s, from, to)
	second := ShortestPath(s, from, to)
	if len(first) != len(second) {
		t.Fatalf("path lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("paths diverge at %d: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestShortestPath_TrivialAndInvalid(t *testing.T) {
	s := &game.Snapshot{
		Width:   5,
		Height:  5,
		Body:    []game.Point{{X: 2, Y: 2}},
		Heading: game.MoveUp,
	}

	p := game.Point{X: 2, Y: 2}
	path := ShortestPath(s, p, p)
	if len(path) != 1 || path[0] != p {
		t.Fatalf("identity path=%v want=[%v]", path, p)
	}

	if got := ShortestPath(s, p, game.Point{X: 9, Y: 9}); got != nil {
		t.Fatalf("path to off-board cell: %v", got)
	}
}

// oracleDistances computes shortest distances from `from` by repeated
// relaxation sweeps, independent of the BFS under test.
func oracleDistances(s *game.Snapshot, from game.Point) map[game.Point]int {
	dist := map[game.Point]int{from: 0}
	for changed := true; changed; {
		changed = false
		for y := int32(0); y < s.Height; y++ {
			for x := int32(0); x < s.Width; x++ {
				p := game.Point{X: x, Y: y}
				if rules.Blocked(s, p) {
					continue
				}
				for m := 0; m < game.MoveCount; m++ {
					n := game.Step(p, m)
					if dn, ok := dist[n]; ok {
						if dp, seen := dist[p]; !seen || dn+1 < dp {
							dist[p] = dn + 1
							changed = true
						}
					}
				}
			}
		}
	}
	return dist
}

func TestShortestPath_MatchesRelaxationOracle(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 20; trial++ {
		w := int32(5 + rng.Intn(6))
		h := int32(5 + rng.Intn(6))
		s := &game.Snapshot{Width: w, Height: h, Heading: game.MoveUp}

		head := game.Point{X: rng.Int31n(w), Y: rng.Int31n(h)}
		s.Body = []game.Point{head}
		occupied := map[game.Point]bool{head: true}
		for i := 0; i < int(w*h/4); i++ {
			p := game.Point{X: rng.Int31n(w), Y: rng.Int31n(h)}
			if !occupied[p] {
				occupied[p] = true
				s.Body = append(s.Body, p)
			}
		}

		dist := oracleDistances(s, head)
		for y := int32(0); y < h; y++ {
			for x := int32(0); x < w; x++ {
				to := game.Point{X: x, Y: y}
				if occupied[to] {
					continue
				}
				path := ShortestPath(s, head, to)
				want, reachable := dist[to]
				if !reachable {
					if path != nil {
						t.Fatalf("trial %d: path %v to unreachable %v", trial, path, to)
					}
					continue
				}
				if path == nil {
					t.Fatalf("trial %d: no path to %v, oracle says %d", trial, to, want)
				}
				if len(path)-1 != want {
					t.Fatalf("trial %d: path to %v has %d steps, oracle says %d", trial, to, len(path)-1, want)
				}
				validatePath(t, s, path, head, to)
			}
		}
	}
}

func TestReachableCount_OpenBoard(t *testing.T) {
	s := &game.Snapshot{
		Width:   5,
		Height:  5,
		Body:    []game.Point{},
		Heading: game.MoveUp,
	}

	got := ReachableCount(s, game.Point{X: 2, Y: 2}, 100)
	if got != 25 {
		t.Fatalf("reachable=%d want=25", got)
	}
}

func TestReachableCount_CapStopsEarly(t *testing.T) {
	s := &game.Snapshot{
		Width:   20,
		Height:  20,
		Body:    []game.Point{},
		Heading: game.MoveUp,
	}

	got := ReachableCount(s, game.Point{X: 10, Y: 10}, 7)
	if got != 7 {
		t.Fatalf("reachable=%d want capped at 7", got)
	}
}

func TestReachableCount_Pocket(t *testing.T) {
	// The head sits in a sealed 1-cell pocket next to the goal side.
	s := snapshotFromRows(t, []string{
		".....",
		".ooo.",
		".oOo.",
		".ooo.",
		".....",
	})

	// Count from the head's own cell, which Blocked treats as occupied, so
	// measure from a hypothetical free cell inside an identical pocket.
	inner := game.Point{X: 2, Y: 2}
	s.Body = s.Body[1:] // remove the head, keep the ring
	got := ReachableCount(s, inner, 100)
	if got != 1 {
		t.Fatalf("reachable=%d want=1 inside sealed pocket", got)
	}
}

func TestReachableCount_BlockedStart(t *testing.T) {
	s := &game.Snapshot{
		Width:   5,
		Height:  5,
		Body:    []game.Point{{X: 2, Y: 2}},
		Heading: game.MoveUp,
	}

	if got := ReachableCount(s, game.Point{X: 2, Y: 2}, 100); got != 0 {
		t.Fatalf("reachable=%d want=0 from occupied cell", got)
	}
	if got := ReachableCount(s, game.Point{X: 0, Y: 0}, 0); got != 0 {
		t.Fatalf("reachable=%d want=0 with zero cap", got)
	}
}

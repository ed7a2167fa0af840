// Package game defines the core world model for the autonomous snake agent.
//
// These types represent the minimal state a decision strategy needs each tick.
// Snapshots are designed to be cheaply clonable; strategies treat them as
// read-only and never retain references across ticks.
package game

// Point is a board coordinate.
// (0,0) is bottom-left; MoveUp increases Y.
type Point struct {
	X int32
	Y int32
}

// The four headings, in canonical order. This order is also the BFS neighbor
// expansion order and the tie-break preference everywhere a choice is made
// between equally good moves, so decisions are reproducible.
const (
	MoveUp    = 0
	MoveDown  = 1
	MoveLeft  = 2
	MoveRight = 3
)

// MoveCount is the size of the action space.
const MoveCount = 4

var moveDeltas = [MoveCount]Point{
	{X: 0, Y: 1},  // up
	{X: 0, Y: -1}, // down
	{X: -1, Y: 0}, // left
	{X: 1, Y: 0},  // right
}

var opposites = [MoveCount]int{MoveDown, MoveUp, MoveRight, MoveLeft}

var moveNames = [MoveCount]string{"up", "down", "left", "right"}

// Step returns the cell reached by taking move from p.
func Step(p Point, move int) Point {
	d := moveDeltas[move]
	return Point{X: p.X + d.X, Y: p.Y + d.Y}
}

// Opposite returns the direct reverse of a heading.
func Opposite(move int) int {
	return opposites[move]
}

// MoveName returns the lowercase name of a heading ("up", "down", ...).
func MoveName(move int) string {
	if move < 0 || move >= MoveCount {
		return "unknown"
	}
	return moveNames[move]
}

// ParseMove is the inverse of MoveName. Returns -1 for unrecognized names.
func ParseMove(name string) int {
	for m, n := range moveNames {
		if n == name {
			return m
		}
	}
	return -1
}

// Snapshot is the complete per-tick world state consumed by a strategy.
//
// Body is ordered head-first and always has length >= 1. Heading is the
// direction the snake is currently committed to; callers must keep it
// consistent with the most recent SetHeading/Advance rather than derive it
// from the body (a length-1 snake has no neck to derive from).
type Snapshot struct {
	Width   int32
	Height  int32
	Body    []Point
	Goal    Point
	Heading int32
	Turn    int32
}

// Head returns the snake's head cell.
func (s *Snapshot) Head() Point {
	return s.Body[0]
}

// InBounds reports whether p lies on the board.
func (s *Snapshot) InBounds(p Point) bool {
	return p.X >= 0 && p.X < s.Width && p.Y >= 0 && p.Y < s.Height
}

// Clone performs a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}

	out := &Snapshot{
		Width:   s.Width,
		Height:  s.Height,
		Goal:    s.Goal,
		Heading: s.Heading,
		Turn:    s.Turn,
	}

	if len(s.Body) > 0 {
		out.Body = make([]Point, len(s.Body))
		copy(out.Body, s.Body)
	}

	return out
}

// Package rules implements occupancy classification, heading updates, and
// tick advancement for the snake world.
//
// Transitions are pure: Advance clones the snapshot and returns an explicit
// Outcome value instead of signaling collisions through panics or errors.
package rules

import (
	"github.com/brensch/autosnake/game"
)

// Cause identifies why a tick was terminal.
type Cause string

const (
	CauseNone Cause = ""
	CauseWall Cause = "wall"
	CauseSelf Cause = "self"
)

// Outcome is the result of advancing the world by one tick.
type Outcome struct {
	AteGoal  bool
	Terminal bool
	Cause    Cause
}

// Blocked reports whether p is off the board or occupied by any body segment,
// head included.
func Blocked(s *game.Snapshot, p game.Point) bool {
	if !s.InBounds(p) {
		return true
	}
	for _, bp := range s.Body {
		if p == bp {
			return true
		}
	}
	return false
}

// BlockedIgnoringHead is Blocked with the head cell excluded, for queries
// made from the head's own position (path searches start there).
func BlockedIgnoringHead(s *game.Snapshot, p game.Point) bool {
	if !s.InBounds(p) {
		return true
	}
	for i := 1; i < len(s.Body); i++ {
		if p == s.Body[i] {
			return true
		}
	}
	return false
}

// SetHeading updates the snake's heading, ignoring a direct reverse of the
// current heading. The no-U-turn invariant is enforced here, at the point
// headings are set, and nowhere else.
func SetHeading(s *game.Snapshot, move int) {
	if move < 0 || move >= game.MoveCount {
		return
	}
	if len(s.Body) > 1 && move == game.Opposite(int(s.Heading)) {
		return
	}
	s.Heading = int32(move)
}

// LegalMoves returns the non-blocked, non-reversing candidate moves in
// canonical order.
func LegalMoves(s *game.Snapshot) []int {
	head := s.Head()
	reverse := game.Opposite(int(s.Heading))

	moves := []int{}
	for m := 0; m < game.MoveCount; m++ {
		if m == reverse && len(s.Body) > 1 {
			continue
		}
		if Blocked(s, game.Step(head, m)) {
			continue
		}
		moves = append(moves, m)
	}
	return moves
}

// Advance applies one tick of movement in the snapshot's current heading.
//
// Segments shift head-to-tail and the new head comes from the heading delta.
// Eating the goal appends a duplicate tail segment, which catches up over the
// following ticks. The returned snapshot still holds the consumed goal cell;
// callers relocate it via game.PlaceGoal.
func Advance(s *game.Snapshot) (*game.Snapshot, Outcome) {
	next := s.Clone()
	next.Turn++

	head := next.Head()
	newHead := game.Step(head, int(next.Heading))

	body := make([]game.Point, 0, len(next.Body)+1)
	body = append(body, newHead)
	body = append(body, next.Body[:len(next.Body)-1]...)

	ate := newHead == next.Goal
	out := Outcome{AteGoal: ate}

	if !next.InBounds(newHead) {
		next.Body = body
		out.Terminal = true
		out.Cause = CauseWall
		return next, out
	}

	// Collision is checked against the shifted body only. The growth
	// duplicate is appended afterwards so a just-eaten stacked segment
	// never collides with the head that created it.
	for i := 1; i < len(body); i++ {
		if body[i] == newHead {
			next.Body = body
			out.Terminal = true
			out.Cause = CauseSelf
			return next, out
		}
	}

	if ate {
		body = append(body, body[len(body)-1])
	}
	next.Body = body

	return next, out
}

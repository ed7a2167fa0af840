// planner.go implements the search-and-score planning strategy.

package agent

import (
	"github.com/brensch/autosnake/game"
	"github.com/brensch/autosnake/rules"
	"github.com/brensch/autosnake/search"
)

// Planner decides by cascading through degrading tactics each tick:
// follow the shortest path to the goal, otherwise take the best-scored safe
// move, otherwise take anything survivable. The cascade is stateless and
// re-evaluated from scratch every tick.
type Planner struct {
	Weights Weights
}

// NewPlanner returns a Planner with the default scoring weights.
func NewPlanner() *Planner {
	return &Planner{Weights: DefaultWeights}
}

// Decide returns a heading for the current snapshot. It always returns one
// of the four headings; when no move avoids collision it commits to the
// least-bad option and leaves collision detection to the simulation.
func (p *Planner) Decide(s *game.Snapshot) int {
	// SeekPath: a full path to the goal exists, take its first step.
	if path := search.ShortestPath(s, s.Head(), s.Goal); len(path) >= 2 {
		if move, ok := stepToward(s.Head(), path[1]); ok {
			if len(s.Body) == 1 || move != game.Opposite(int(s.Heading)) {
				return move
			}
			// The path starts with a U-turn (only possible for a length-1
			// body edge case); fall through to scoring.
		}
	}

	// ScoreMoves: no path, pick the best-scored survivable candidate.
	if move, ok := BestMove(s, p.Weights); ok {
		return move
	}

	// Emergency: any non-blocked, non-reversing heading.
	head := s.Head()
	reverse := game.Opposite(int(s.Heading))
	for m := 0; m < game.MoveCount; m++ {
		if m == reverse && len(s.Body) > 1 {
			continue
		}
		if !rules.Blocked(s, game.Step(head, m)) {
			return m
		}
	}

	// Last resort: permit a reversal, since the alternative is certain
	// collision anyway.
	for m := 0; m < game.MoveCount; m++ {
		if !rules.Blocked(s, game.Step(head, m)) {
			return m
		}
	}

	// Nothing survives next tick; commit to the current heading.
	return int(s.Heading)
}

// stepToward maps a single-cell displacement to the heading that produces
// it. ok is false for non-adjacent cells.
func stepToward(from, to game.Point) (int, bool) {
	for m := 0; m < game.MoveCount; m++ {
		if game.Step(from, m) == to {
			return m, true
		}
	}
	return 0, false
}

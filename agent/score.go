// score.go implements the weighted move evaluator used when no direct path
// to the goal exists.

package agent

import (
	"math"

	"github.com/brensch/autosnake/game"
	"github.com/brensch/autosnake/rules"
	"github.com/brensch/autosnake/search"
)

// Weights combines the four sub-scores into one desirability value.
// They should sum to 1.0; the defaults are tuned empirically, not a
// correctness requirement.
type Weights struct {
	Progress  float64
	Openness  float64
	Mobility  float64
	TrapAvoid float64
}

// DefaultWeights favors goal progress with a meaningful safety component.
var DefaultWeights = Weights{
	Progress:  0.4,
	Openness:  0.3,
	Mobility:  0.2,
	TrapAvoid: 0.1,
}

// trapMargin is the slack added to body length when flood-filling for trap
// detection: a pocket needs room for the whole snake plus a little headroom
// to count as safe.
const trapMargin = 5

// opennessRadius sets the local window for the openness sub-score: a 5x5
// block centered on the candidate.
const opennessRadius = 2

// ScoreMove computes the composite desirability of moving the head to
// candidate, all sub-scores normalized to [0,100].
func ScoreMove(s *game.Snapshot, candidate game.Point, w Weights) float64 {
	return w.Progress*progressScore(s, candidate) +
		w.Openness*opennessScore(s, candidate) +
		w.Mobility*mobilityScore(s, candidate) +
		w.TrapAvoid*trapAvoidScore(s, candidate)
}

// BestMove evaluates every non-blocked, non-reversing candidate and returns
// the highest scorer. Ties keep the earliest candidate in canonical order.
// ok is false when every candidate was rejected.
func BestMove(s *game.Snapshot, w Weights) (move int, ok bool) {
	head := s.Head()
	reverse := game.Opposite(int(s.Heading))

	best := -1
	bestScore := math.Inf(-1)
	for m := 0; m < game.MoveCount; m++ {
		if m == reverse && len(s.Body) > 1 {
			continue
		}
		next := game.Step(head, m)
		if rules.Blocked(s, next) {
			continue
		}
		score := ScoreMove(s, next, w)
		if score > bestScore {
			bestScore = score
			best = m
		}
	}

	if best < 0 {
		return 0, false
	}
	return best, true
}

// progressScore rewards reducing Euclidean distance to the goal, normalized
// by the board diagonal.
func progressScore(s *game.Snapshot, p game.Point) float64 {
	dx := float64(s.Goal.X - p.X)
	dy := float64(s.Goal.Y - p.Y)
	dist := math.Sqrt(dx*dx + dy*dy)

	maxDist := math.Sqrt(float64(s.Width*s.Width + s.Height*s.Height))
	if maxDist == 0 {
		return 0
	}
	return (maxDist - dist) / maxDist * 100
}

// opennessScore is the fraction of free cells in a 5x5 window centered on p.
func opennessScore(s *game.Snapshot, p game.Point) float64 {
	free, total := 0, 0
	for dy := int32(-opennessRadius); dy <= opennessRadius; dy++ {
		for dx := int32(-opennessRadius); dx <= opennessRadius; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			total++
			if !rules.Blocked(s, game.Point{X: p.X + dx, Y: p.Y + dy}) {
				free++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(free) / float64(total) * 100
}

// mobilityScore is the fraction of p's own four neighbors that are free.
func mobilityScore(s *game.Snapshot, p game.Point) float64 {
	free := 0
	for m := 0; m < game.MoveCount; m++ {
		if !rules.Blocked(s, game.Step(p, m)) {
			free++
		}
	}
	return float64(free) / float64(game.MoveCount) * 100
}

// trapAvoidScore flood-fills from p to detect moves that funnel the snake
// into a pocket smaller than its own body, which pure distance minimization
// cannot see. Full marks once the reachable space covers body length plus
// margin; below that the score degrades linearly.
func trapAvoidScore(s *game.Snapshot, p game.Point) float64 {
	need := len(s.Body) + trapMargin
	reachable := search.ReachableCount(s, p, need)
	if reachable >= need {
		return 100
	}
	return float64(reachable) / float64(need) * 100
}

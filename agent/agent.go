// Package agent implements the decision strategies that map a board snapshot
// to a heading each tick: a search-and-score planner and a tabular
// reinforcement learner. Both share the same world model, reachability
// engine, and move evaluator rather than duplicating per-variant logic.
package agent

import (
	"github.com/brensch/autosnake/game"
)

// Strategy picks one heading per tick from a read-only snapshot.
//
// Decide is total: it always returns one of the four headings, even when
// every move is fatal. It never mutates the snapshot.
type Strategy interface {
	Decide(s *game.Snapshot) int
}

// Observer receives the per-tick learning feedback after the environment has
// applied the chosen move. Strategies that do not learn simply do not
// implement it.
type Observer interface {
	Observe(state LearnState, action int, reward float64, next *LearnState)
}

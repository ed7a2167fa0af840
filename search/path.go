// Package search implements reachability queries over the free cells of a
// board snapshot: shortest paths for goal seeking and capped flood fills for
// trap detection.
//
// Both operations are pure and deterministic: neighbors expand in the
// canonical move order (up, down, left, right), so identical snapshots
// always produce identical results.
package search

import (
	"github.com/brensch/autosnake/game"
	"github.com/brensch/autosnake/rules"
)

// ShortestPath returns the shortest 4-connected path over free cells from
// `from` to `to`, both endpoints included, or nil when no path exists.
//
// Exploration is capped at one visit per board cell, so the search always
// terminates within the tick budget; exhausting the frontier without
// reaching `to` is an expected outcome, not an error.
func ShortestPath(s *game.Snapshot, from, to game.Point) []game.Point {
	if !s.InBounds(from) || !s.InBounds(to) {
		return nil
	}
	if from == to {
		return []game.Point{from}
	}

	// Parent links double as the visited set.
	parent := make(map[game.Point]game.Point, int(s.Width*s.Height))
	parent[from] = from

	queue := make([]game.Point, 0, 64)
	queue = append(queue, from)

	maxIterations := int(s.Width * s.Height)
	for iterations := 0; len(queue) > 0 && iterations < maxIterations; iterations++ {
		cur := queue[0]
		queue = queue[1:]

		for m := 0; m < game.MoveCount; m++ {
			n := game.Step(cur, m)
			if _, seen := parent[n]; seen {
				continue
			}
			if rules.Blocked(s, n) {
				continue
			}
			parent[n] = cur
			if n == to {
				return reconstruct(parent, from, to)
			}
			queue = append(queue, n)
		}
	}

	return nil
}

func reconstruct(parent map[game.Point]game.Point, from, to game.Point) []game.Point {
	path := []game.Point{to}
	for cur := to; cur != from; {
		cur = parent[cur]
		path = append(path, cur)
	}
	// Reverse into from->to order.
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// ReachableCount flood-fills free cells from `from` and returns the number of
// distinct cells visited, up to cap. It is a cheap proxy for remaining open
// space, not a full connectivity analysis: the cap bounds worst-case work to
// O(cap) per call, which matters because trap scoring runs it for every
// candidate move every tick.
//
// The starting cell is counted if it is free; a blocked start counts as zero.
func ReachableCount(s *game.Snapshot, from game.Point, cap int) int {
	if cap <= 0 || rules.Blocked(s, from) {
		return 0
	}

	visited := map[game.Point]bool{from: true}
	queue := []game.Point{from}
	count := 1

	for len(queue) > 0 && count < cap {
		cur := queue[0]
		queue = queue[1:]

		for m := 0; m < game.MoveCount; m++ {
			n := game.Step(cur, m)
			if visited[n] || rules.Blocked(s, n) {
				continue
			}
			visited[n] = true
			count++
			if count >= cap {
				break
			}
			queue = append(queue, n)
		}
	}

	return count
}

// goal.go implements goal (re)placement after consumption.

package game

import (
	"errors"
	"math/rand"
)

// ErrBoardFull reports that every cell is occupied by the body and the goal
// cannot be placed. Callers decide what that means; the episode runner treats
// it as a win.
var ErrBoardFull = errors.New("no free cell for goal placement")

// PlaceGoal picks a uniformly random free cell for the goal, never on the
// body. If rng is nil a deterministic hash of the turn is used instead, so
// tests and replays get reproducible placements.
//
// The returned point is not written back into s; the caller owns the world.
func PlaceGoal(s *Snapshot, rng *rand.Rand) (Point, error) {
	occupied := make(map[Point]bool, len(s.Body))
	for _, p := range s.Body {
		occupied[p] = true
	}

	free := make([]Point, 0, int(s.Width*s.Height)-len(occupied))
	for y := int32(0); y < s.Height; y++ {
		for x := int32(0); x < s.Width; x++ {
			p := Point{X: x, Y: y}
			if !occupied[p] {
				free = append(free, p)
			}
		}
	}

	if len(free) == 0 {
		return Point{}, ErrBoardFull
	}

	var idx int
	if rng != nil {
		idx = rng.Intn(len(free))
	} else {
		idx = int(deterministicU64(uint64(s.Turn), 0x60A1) % uint64(len(free)))
	}
	return free[idx], nil
}

// deterministicU64 is a splitmix64 variant used when no RNG is injected.
func deterministicU64(a, b uint64) uint64 {
	x := a + b
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

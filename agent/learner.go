// learner.go implements the tabular Q-learning strategy.

package agent

import (
	"math/rand"
	"sync"

	"github.com/brensch/autosnake/game"
)

// LearnState is the discretized world state the learner conditions on: the
// sign of the goal's offset from the head on each axis, plus the current
// heading. 3*3*4 = 36 states total, deliberately tiny so single-step
// updates converge in few episodes, at the cost of ignoring absolute
// position and body shape.
type LearnState struct {
	DX  int8
	DY  int8
	Dir int8
}

// ActionValues holds one value per heading, indexed by the move constants.
type ActionValues [game.MoveCount]float64

// LearnerConfig fixes the learning constants at construction time.
type LearnerConfig struct {
	Alpha   float64 // learning rate, (0,1]
	Gamma   float64 // discount, [0,1]
	Epsilon float64 // exploration probability, [0,1]
}

// DefaultLearnerConfig matches the constants the policy was originally tuned
// with.
var DefaultLearnerConfig = LearnerConfig{Alpha: 0.1, Gamma: 0.9, Epsilon: 0.2}

// Learner is an epsilon-greedy tabular policy updated online by a
// single-step temporal-difference rule.
//
// The table is created lazily: states read as the zero vector until first
// written. All table and rng access is serialized through a mutex so
// concurrent episode workers can share one policy (each tick's update
// touches at most one of the 36 keys).
type Learner struct {
	cfg LearnerConfig
	rng *rand.Rand

	mu    sync.Mutex
	table map[LearnState]ActionValues
}

// NewLearner creates a Learner with an empty table. rng drives exploration
// and must be non-nil when cfg.Epsilon > 0.
func NewLearner(cfg LearnerConfig, rng *rand.Rand) *Learner {
	return &Learner{
		cfg:   cfg,
		rng:   rng,
		table: make(map[LearnState]ActionValues),
	}
}

// EncodeState discretizes a snapshot into the learner's state space. The
// encoder is total: every reachable head/goal/heading combination maps into
// the 36-state space.
func EncodeState(s *game.Snapshot) LearnState {
	head := s.Head()
	return LearnState{
		DX:  sign(s.Goal.X - head.X),
		DY:  sign(s.Goal.Y - head.Y),
		Dir: int8(s.Heading),
	}
}

func sign(v int32) int8 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// Decide picks a heading epsilon-greedily. Unlike the planner, reversal is
// not structurally forbidden here; the policy has to learn it is fatal.
//
// With epsilon zero an unseen state reads as the all-zero vector and the
// choice falls deterministically on the first heading in canonical order.
func (l *Learner) Decide(s *game.Snapshot) int {
	state := EncodeState(s)

	l.mu.Lock()
	defer l.mu.Unlock()

	// The rng draws stay under the mutex: *rand.Rand is not goroutine-safe
	// and the learner is shared across episode workers.
	if l.cfg.Epsilon > 0 && l.rng != nil && l.rng.Float64() < l.cfg.Epsilon {
		return l.rng.Intn(game.MoveCount)
	}

	values := l.table[state]

	best := 0
	for m := 1; m < game.MoveCount; m++ {
		if values[m] > values[best] {
			best = m
		}
	}
	return best
}

// Observe applies the single-step temporal-difference update for one
// transition. next is nil for terminal transitions (collision), in which
// case the target is the reward alone.
func (l *Learner) Observe(state LearnState, action int, reward float64, next *LearnState) {
	if action < 0 || action >= game.MoveCount {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	values := l.table[state]

	target := reward
	if next != nil {
		nextValues := l.table[*next]
		best := nextValues[0]
		for m := 1; m < game.MoveCount; m++ {
			if nextValues[m] > best {
				best = nextValues[m]
			}
		}
		target += l.cfg.Gamma * best
	}

	values[action] += l.cfg.Alpha * (target - values[action])
	l.table[state] = values
}

// Export returns a copy of the policy table. The on-disk encoding belongs to
// the persistence layer, not here.
func (l *Learner) Export() map[LearnState]ActionValues {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[LearnState]ActionValues, len(l.table))
	for k, v := range l.table {
		out[k] = v
	}
	return out
}

// Import replaces the policy table with a copy of m.
func (l *Learner) Import(m map[LearnState]ActionValues) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.table = make(map[LearnState]ActionValues, len(m))
	for k, v := range m {
		l.table[k] = v
	}
}

package agent

import (
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/brensch/autosnake/game"
)

func TestEncodeState(t *testing.T) {
	s := &game.Snapshot{
		Width:   10,
		Height:  10,
		Body:    []game.Point{{X: 4, Y: 4}},
		Goal:    game.Point{X: 7, Y: 2},
		Heading: game.MoveRight,
	}

	got := EncodeState(s)
	want := LearnState{DX: 1, DY: -1, Dir: int8(game.MoveRight)}
	if got != want {
		t.Fatalf("state=%+v want=%+v", got, want)
	}

	// Goal on the head's column collapses that axis to zero.
	s.Goal = game.Point{X: 4, Y: 9}
	got = EncodeState(s)
	if got.DX != 0 || got.DY != 1 {
		t.Fatalf("state=%+v want DX=0 DY=1", got)
	}
}

func TestLearnerDecide_GreedyPicksHighestValue(t *testing.T) {
	l := NewLearner(LearnerConfig{Alpha: 0.1, Gamma: 0.9, Epsilon: 0}, nil)

	s := &game.Snapshot{
		Width:   10,
		Height:  10,
		Body:    []game.Point{{X: 4, Y: 4}},
		Goal:    game.Point{X: 8, Y: 4},
		Heading: game.MoveUp,
	}
	state := EncodeState(s)

	l.Import(map[LearnState]ActionValues{
		state: {1.0, 2.0, 0.5, 9.0},
	})

	if move := l.Decide(s); move != game.MoveRight {
		t.Fatalf("move=%s want right (highest value)", game.MoveName(move))
	}
}

func TestLearnerDecide_UnseenStateDeterministic(t *testing.T) {
	// Epsilon zero and an empty table: the zero action vector ties and the
	// first heading in canonical order wins, every time.
	l := NewLearner(LearnerConfig{Alpha: 0.1, Gamma: 0.9, Epsilon: 0}, nil)

	s := &game.Snapshot{
		Width:   10,
		Height:  10,
		Body:    []game.Point{{X: 4, Y: 4}},
		Goal:    game.Point{X: 8, Y: 4},
		Heading: game.MoveUp,
	}

	for i := 0; i < 10; i++ {
		if move := l.Decide(s); move != game.MoveUp {
			t.Fatalf("move=%s want up for an unseen state", game.MoveName(move))
		}
	}
}

func TestLearnerDecide_EpsilonOneAlwaysExplores(t *testing.T) {
	l := NewLearner(LearnerConfig{Alpha: 0.1, Gamma: 0.9, Epsilon: 1}, rand.New(rand.NewSource(3)))

	s := &game.Snapshot{
		Width:   10,
		Height:  10,
		Body:    []game.Point{{X: 4, Y: 4}},
		Goal:    game.Point{X: 8, Y: 4},
		Heading: game.MoveUp,
	}
	state := EncodeState(s)
	l.Import(map[LearnState]ActionValues{
		state: {0, 0, 0, 100},
	})

	seen := map[int]bool{}
	for i := 0; i < 200; i++ {
		seen[l.Decide(s)] = true
	}
	if len(seen) != game.MoveCount {
		t.Fatalf("exploration only produced %d distinct moves: %v", len(seen), seen)
	}
}

func TestLearner_SharedAcrossWorkers(t *testing.T) {
	// One learner shared by several goroutines, as the batch driver shares
	// it across episode workers. Exercises the exploration draws and table
	// updates together; the race detector flags any unguarded access.
	l := NewLearner(LearnerConfig{Alpha: 0.1, Gamma: 0.9, Epsilon: 0.5}, rand.New(rand.NewSource(17)))

	s := &game.Snapshot{
		Width:   10,
		Height:  10,
		Body:    []game.Point{{X: 4, Y: 4}},
		Goal:    game.Point{X: 8, Y: 4},
		Heading: game.MoveUp,
	}
	state := EncodeState(s)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				move := l.Decide(s)
				if move < 0 || move >= game.MoveCount {
					t.Errorf("move %d out of range", move)
					return
				}
				l.Observe(state, move, 1, &state)
			}
		}()
	}
	wg.Wait()

	values := l.Export()[state]
	for m, v := range values {
		if v < 0 {
			t.Fatalf("q[%s]=%v went negative on positive rewards", game.MoveName(m), v)
		}
	}
}

func TestObserve_SingleStepUpdate(t *testing.T) {
	l := NewLearner(LearnerConfig{Alpha: 0.5, Gamma: 0.9, Epsilon: 0}, nil)

	state := LearnState{DX: 1, DY: 0, Dir: int8(game.MoveRight)}
	next := LearnState{DX: 1, DY: 0, Dir: int8(game.MoveUp)}

	l.Import(map[LearnState]ActionValues{
		next: {0, 0, 0, 4.0},
	})

	// Q(s,a) <- 0 + 0.5 * (10 + 0.9*4 - 0) = 6.8
	l.Observe(state, game.MoveRight, 10, &next)

	got := l.Export()[state][game.MoveRight]
	if math.Abs(got-6.8) > 1e-9 {
		t.Fatalf("q=%v want=6.8", got)
	}
}

func TestObserve_TerminalIgnoresNextState(t *testing.T) {
	l := NewLearner(LearnerConfig{Alpha: 1, Gamma: 0.9, Epsilon: 0}, nil)

	state := LearnState{DX: 0, DY: 1, Dir: int8(game.MoveUp)}
	l.Observe(state, game.MoveUp, -10, nil)

	got := l.Export()[state][game.MoveUp]
	if got != -10 {
		t.Fatalf("q=%v want=-10 (reward alone on terminal)", got)
	}
}

func TestObserve_ZeroAlphaIsNoOp(t *testing.T) {
	l := NewLearner(LearnerConfig{Alpha: 0, Gamma: 0.9, Epsilon: 0}, nil)

	state := LearnState{DX: -1, DY: -1, Dir: int8(game.MoveLeft)}
	l.Observe(state, game.MoveLeft, 10, nil)

	if got := l.Export()[state][game.MoveLeft]; got != 0 {
		t.Fatalf("q=%v want=0 with zero learning rate", got)
	}
}

func TestObserve_RejectsBadAction(t *testing.T) {
	l := NewLearner(DefaultLearnerConfig, nil)

	state := LearnState{DX: 1, DY: 1, Dir: int8(game.MoveUp)}
	l.Observe(state, -1, 10, nil)
	l.Observe(state, game.MoveCount, 10, nil)

	if len(l.Export()) != 0 {
		t.Fatalf("table gained entries from out-of-range actions")
	}
}

func TestExportImport_Roundtrip(t *testing.T) {
	src := NewLearner(DefaultLearnerConfig, nil)
	src.Observe(LearnState{DX: 1, DY: 0, Dir: 0}, game.MoveRight, 10, nil)
	src.Observe(LearnState{DX: 0, DY: -1, Dir: 2}, game.MoveDown, -10, nil)

	exported := src.Export()

	dst := NewLearner(DefaultLearnerConfig, nil)
	dst.Import(exported)

	got := dst.Export()
	if len(got) != len(exported) {
		t.Fatalf("table size=%d want=%d", len(got), len(exported))
	}
	for k, v := range exported {
		if got[k] != v {
			t.Fatalf("state %+v values=%v want=%v", k, got[k], v)
		}
	}

	// The exported map is a copy: mutating it must not touch the learner.
	for k := range exported {
		exported[k] = ActionValues{99, 99, 99, 99}
	}
	if src.Export()[LearnState{DX: 1, DY: 0, Dir: 0}] == (ActionValues{99, 99, 99, 99}) {
		t.Fatalf("Export leaked internal table storage")
	}
}

// Package runner drives complete episodes: it owns the world, calls the
// strategy once per tick, applies movement, computes rewards, feeds the
// learning channel, and records archive rows.
package runner

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/brensch/autosnake/agent"
	"github.com/brensch/autosnake/game"
	"github.com/brensch/autosnake/rules"
	"github.com/brensch/autosnake/store"
)

// Environment reward contract. The strategy never computes these itself;
// they arrive as external feedback after each transition.
const (
	RewardGoal      = 10
	RewardCollision = -10
	RewardStep      = 0
)

// Config describes one episode.
type Config struct {
	Width    int32
	Height   int32
	MaxTurns int    // 0 means no cap
	Strategy string // label recorded in archive rows
}

// Result summarizes a finished episode.
type Result struct {
	EpisodeID string
	Score     int // goals consumed
	Steps     int
	Cause     rules.Cause
	Won       bool // body filled the board
	Completed bool // false when aborted by ctx or MaxTurns
}

// NewSnapshot builds the starting world: a length-1 snake near the corner
// heading down, goal placed on a free cell.
func NewSnapshot(cfg Config, rng *rand.Rand) (*game.Snapshot, error) {
	s := &game.Snapshot{
		Width:   cfg.Width,
		Height:  cfg.Height,
		Body:    []game.Point{{X: 1, Y: 1}},
		Heading: game.MoveDown,
	}
	goal, err := game.PlaceGoal(s, rng)
	if err != nil {
		return nil, err
	}
	s.Goal = goal
	return s, nil
}

// RunEpisode plays one episode to termination and returns the per-turn
// archive rows plus the result.
//
// If strat implements agent.Observer it receives the learning feedback
// (prior state, action, reward, next state or nil on terminal) once per
// tick, after movement and collision check.
func RunEpisode(ctx context.Context, workerID int, cfg Config, strat agent.Strategy, rng *rand.Rand, verbose bool, onStep func()) ([]store.EpisodeTurnRow, Result) {
	episodeID := fmt.Sprintf("ep_%d_%d", time.Now().UnixNano(), workerID)
	result := Result{EpisodeID: episodeID}

	observer, _ := strat.(agent.Observer)

	s, err := NewSnapshot(cfg, rng)
	if err != nil {
		// Board too small to hold even the starting snake and goal.
		result.Won = true
		result.Completed = true
		return nil, result
	}

	rows := make([]store.EpisodeTurnRow, 0, 256)

	for {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return rows, result
			default:
			}
		}

		if cfg.MaxTurns > 0 && result.Steps >= cfg.MaxTurns {
			return rows, result
		}

		if verbose {
			PrintBoard(s)
		}

		prior := agent.EncodeState(s)
		move := strat.Decide(s)

		rules.SetHeading(s, move)
		next, out := rules.Advance(s)

		reward := float64(RewardStep)
		switch {
		case out.Terminal:
			reward = RewardCollision
		case out.AteGoal:
			reward = RewardGoal
		}

		rows = append(rows, turnRow(episodeID, cfg.Strategy, s, move, reward, out))
		result.Steps++
		if onStep != nil {
			onStep()
		}

		if out.Terminal {
			if observer != nil {
				observer.Observe(prior, move, reward, nil)
			}
			result.Cause = out.Cause
			result.Completed = true
			return rows, result
		}

		if out.AteGoal {
			result.Score++
			goal, err := game.PlaceGoal(next, rng)
			if err != nil {
				// Body fills the board: nothing left to chase. Count the
				// final goal as a terminal transition and declare the win.
				if observer != nil {
					observer.Observe(prior, move, reward, nil)
				}
				result.Won = true
				result.Completed = true
				return rows, result
			}
			next.Goal = goal
		}

		if observer != nil {
			nextState := agent.EncodeState(next)
			observer.Observe(prior, move, reward, &nextState)
		}

		s = next
	}
}

// turnRow snapshots the pre-move world plus the chosen action and observed
// reward into an archive row.
func turnRow(episodeID, strategy string, s *game.Snapshot, move int, reward float64, out rules.Outcome) store.EpisodeTurnRow {
	row := store.EpisodeTurnRow{
		EpisodeID: episodeID,
		Turn:      s.Turn,
		Width:     s.Width,
		Height:    s.Height,
		GoalX:     s.Goal.X,
		GoalY:     s.Goal.Y,
		Heading:   s.Heading,
		Action:    int32(move),
		Reward:    float32(reward),
		Terminal:  out.Terminal,
		Strategy:  strategy,
		Cause:     string(out.Cause),
	}

	row.BodyX = make([]int32, 0, len(s.Body))
	row.BodyY = make([]int32, 0, len(s.Body))
	for _, p := range s.Body {
		row.BodyX = append(row.BodyX, p.X)
		row.BodyY = append(row.BodyY, p.Y)
	}

	return row
}

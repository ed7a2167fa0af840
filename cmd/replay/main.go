// Command replay renders an archived episode back to the terminal,
// tick by tick, from its parquet rows.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/brensch/autosnake/game"
	"github.com/brensch/autosnake/runner"
	"github.com/brensch/autosnake/store"
)

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	file := fs.String("file", "", "Parquet batch file to read")
	episodeID := fs.String("episode", "", "Episode to replay (default: first in the file)")
	delay := fs.Duration("delay", 100*time.Millisecond, "Pause between frames")
	list := fs.Bool("list", false, "List episodes in the file instead of replaying")

	if err := fs.Parse(os.Args[1:]); err != nil {
		log.Fatalf("flag parse: %v", err)
	}
	if *file == "" {
		log.Fatalf("-file is required")
	}

	rows, err := parquet.ReadFile[store.EpisodeTurnRow](*file)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", *file, err)
	}
	if len(rows) == 0 {
		log.Fatalf("No rows in %s", *file)
	}

	if *list {
		listEpisodes(rows)
		return
	}

	id := *episodeID
	if id == "" {
		id = rows[0].EpisodeID
	}

	frames := make([]store.EpisodeTurnRow, 0, 256)
	for _, row := range rows {
		if row.EpisodeID == id {
			frames = append(frames, row)
		}
	}
	if len(frames) == 0 {
		log.Fatalf("Episode %s not found in %s", id, *file)
	}
	sort.Slice(frames, func(i, j int) bool { return frames[i].Turn < frames[j].Turn })

	log.Printf("Replaying %s: %d turns, strategy=%s", id, len(frames), frames[0].Strategy)

	score := 0
	for _, row := range frames {
		runner.PrintBoard(rowSnapshot(row))
		if row.Reward > 0 {
			score++
		}
		log.Printf("action=%s reward=%.0f score=%d", game.MoveName(int(row.Action)), row.Reward, score)
		if row.Terminal {
			log.Printf("Episode ended: %s", row.Cause)
			return
		}
		time.Sleep(*delay)
	}
}

func listEpisodes(rows []store.EpisodeTurnRow) {
	type summary struct {
		turns int
		score int
	}
	strategies := map[string]string{}
	episodes := map[string]*summary{}
	order := []string{}
	for _, row := range rows {
		s, ok := episodes[row.EpisodeID]
		if !ok {
			s = &summary{}
			episodes[row.EpisodeID] = s
			order = append(order, row.EpisodeID)
			strategies[row.EpisodeID] = row.Strategy
		}
		s.turns++
		if row.Reward > 0 {
			s.score++
		}
	}

	for _, id := range order {
		fmt.Printf("%-30s %-10s turns=%d score=%d\n", id, strategies[id], episodes[id].turns, episodes[id].score)
	}
}

// rowSnapshot rebuilds the pre-move board a row was captured from.
func rowSnapshot(row store.EpisodeTurnRow) *game.Snapshot {
	s := &game.Snapshot{
		Width:   row.Width,
		Height:  row.Height,
		Goal:    game.Point{X: row.GoalX, Y: row.GoalY},
		Heading: row.Heading,
		Turn:    row.Turn,
	}
	for i := range row.BodyX {
		s.Body = append(s.Body, game.Point{X: row.BodyX[i], Y: row.BodyY[i]})
	}
	return s
}

// Command simulate runs batches of episodes with a chosen strategy, writing
// per-turn parquet archives, logging results to SQLite, and (for the
// learner) persisting the trained policy table at shutdown.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/brensch/autosnake/agent"
	"github.com/brensch/autosnake/runner"
	"github.com/brensch/autosnake/store"
)

var totalMoves atomic.Int64
var totalEpisodes atomic.Int64
var totalGoals atomic.Int64

type EpisodeUpdate struct {
	WorkerID int
	Result   runner.Result
	Rows     int
}

type rowWriteRequest struct {
	rows []store.EpisodeTurnRow
}

type model struct {
	episodes    int
	totalGoals  int
	moves       int64
	startTime   time.Time
	recent      []string
	updates     chan EpisodeUpdate
	quitting    bool
	cancelWorld context.CancelFunc
}

func initialModel(updates chan EpisodeUpdate, cancel context.CancelFunc) model {
	return model{
		startTime:   time.Now(),
		updates:     updates,
		cancelWorld: cancel,
	}
}

type TickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*100, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m model) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.updates), tickCmd())
}

func waitForUpdate(updates chan EpisodeUpdate) tea.Cmd {
	return func() tea.Msg {
		return <-updates
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			m.quitting = true
			m.cancelWorld()
			return m, tea.Quit
		}
	case TickMsg:
		m.moves = totalMoves.Load()
		return m, tickCmd()
	case EpisodeUpdate:
		m.episodes++
		m.totalGoals += msg.Result.Score
		end := string(msg.Result.Cause)
		if msg.Result.Won {
			end = "won"
		} else if end == "" {
			end = "aborted"
		}
		logMsg := fmt.Sprintf("Worker %d: score %d, steps %d, %s", msg.WorkerID, msg.Result.Score, msg.Result.Steps, end)
		m.recent = append([]string{logMsg}, m.recent...)
		if len(m.recent) > 10 {
			m.recent = m.recent[:10]
		}
		return m, waitForUpdate(m.updates)
	}
	return m, nil
}

func (m model) View() string {
	duration := time.Since(m.startTime)
	epsPerSec := float64(m.episodes) / duration.Seconds()
	movesPerSec := float64(m.moves) / duration.Seconds()
	if duration.Seconds() < 1 {
		epsPerSec = 0
		movesPerSec = 0
	}

	avgScore := float64(0)
	if m.episodes > 0 {
		avgScore = float64(m.totalGoals) / float64(m.episodes)
	}

	s := fmt.Sprintf("Episodes:     %d\n", m.episodes)
	s += fmt.Sprintf("Total Goals:  %d\n", m.totalGoals)
	s += fmt.Sprintf("Total Moves:  %d\n", m.moves)
	s += fmt.Sprintf("Avg Score:    %.2f\n", avgScore)
	s += fmt.Sprintf("Duration:     %s\n", duration.Round(time.Second))
	s += fmt.Sprintf("Episodes/Sec: %.2f\n", epsPerSec)
	s += fmt.Sprintf("Moves/Sec:    %.2f\n\n", movesPerSec)

	s += "Recent Episodes:\n"
	for _, g := range m.recent {
		s += g + "\n"
	}

	s += "\nPress q to quit.\n"
	return s
}

func main() {
	episodes := flag.Int64("episodes", int64(getEnvIntOrDefault("EPISODES", 0)), "If > 0, stop after this many episodes (across all workers)")
	workers := flag.Int("workers", getEnvIntOrDefault("WORKERS", 4), "Number of episode workers")
	strategy := flag.String("strategy", getEnvOrDefault("STRATEGY", "planner"), "Decision strategy: planner or learner")
	width := flag.Int("width", getEnvIntOrDefault("WIDTH", 25), "Board width in cells")
	height := flag.Int("height", getEnvIntOrDefault("HEIGHT", 20), "Board height in cells")
	maxTurns := flag.Int("max-turns", getEnvIntOrDefault("MAX_TURNS", 10000), "Per-episode turn cap (0 = unlimited)")
	alpha := flag.Float64("alpha", 0.1, "Learning rate (learner only)")
	gamma := flag.Float64("gamma", 0.9, "Discount factor (learner only)")
	epsilon := flag.Float64("epsilon", 0.2, "Exploration probability (learner only)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	outDir := flag.String("out-dir", getEnvOrDefault("OUT_DIR", "data/episodes"), "Output directory for parquet batches")
	dbPath := flag.String("db", getEnvOrDefault("DB_PATH", "autosnake.db"), "SQLite database for episode log and policy table")
	episodesPerFlush := flag.Int("episodes-per-flush", 50, "Episodes to buffer per parquet flush")
	useTUI := flag.Bool("tui", false, "Render a live TUI instead of log output")
	verbose := flag.Bool("verbose", false, "Trace worker 0's boards to the log")
	flag.Parse()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	baseSeed := *seed
	if baseSeed == 0 {
		baseSeed = time.Now().UnixNano()
	}

	db, err := store.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	// The learner is shared across workers; its table access is serialized
	// internally, so concurrent Observe calls are safe.
	var learner *agent.Learner
	var strat agent.Strategy
	switch *strategy {
	case "planner":
		strat = agent.NewPlanner()
	case "learner":
		cfg := agent.LearnerConfig{Alpha: *alpha, Gamma: *gamma, Epsilon: *epsilon}
		learner = agent.NewLearner(cfg, rand.New(rand.NewSource(baseSeed)))
		if table, err := db.LoadTable(); err != nil {
			log.Fatalf("Failed to load policy table: %v", err)
		} else if len(table) > 0 {
			learner.Import(table)
			log.Printf("Loaded policy table with %d states", len(table))
		}
		strat = learner
	default:
		log.Fatalf("Unknown strategy %q (want planner or learner)", *strategy)
	}

	epCfg := runner.Config{
		Width:    int32(*width),
		Height:   int32(*height),
		MaxTurns: *maxTurns,
		Strategy: *strategy,
	}

	log.Printf("Starting %d workers, strategy=%s, board=%dx%d", *workers, *strategy, *width, *height)

	updates := make(chan EpisodeUpdate, *workers)
	writeReqs := make(chan rowWriteRequest, (*workers)*4)

	writerDone := make(chan struct{})
	go func() {
		parquetWriterLoop(*outDir, *episodesPerFlush, writeReqs)
		close(writerDone)
	}()

	var workerWG sync.WaitGroup
	for i := 0; i < *workers; i++ {
		workerWG.Add(1)
		go func(workerID int) {
			defer workerWG.Done()
			rng := rand.New(rand.NewSource(baseSeed + int64(workerID)*1000003))
			trace := *verbose && workerID == 0

			for {
				select {
				case <-ctx.Done():
					return
				default:
				}

				rows, result := runner.RunEpisode(ctx, workerID, epCfg, strat, rng, trace, func() {
					totalMoves.Add(1)
				})

				if !result.Completed && ctx.Err() != nil {
					return
				}
				// A MaxTurns truncation still has rows worth keeping; the
				// worker records them and moves on to the next episode.

				totalGoals.Add(int64(result.Score))
				total := totalEpisodes.Add(1)
				if *episodes > 0 && total >= *episodes {
					cancel()
				}

				if err := db.InsertEpisode(store.Episode{
					ID:       result.EpisodeID,
					Strategy: epCfg.Strategy,
					Score:    result.Score,
					Steps:    result.Steps,
					Cause:    string(result.Cause),
					Won:      result.Won,
				}); err != nil {
					log.Printf("Worker %d: episode insert failed: %v", workerID, err)
				}

				if len(rows) > 0 {
					writeReqs <- rowWriteRequest{rows: rows}
				}

				// Avoid blocking shutdown if the UI stops consuming.
				select {
				case updates <- EpisodeUpdate{WorkerID: workerID, Result: result, Rows: len(rows)}:
				default:
				}
			}
		}(i)
	}

	if *useTUI {
		p := tea.NewProgram(initialModel(updates, cancel), tea.WithAltScreen())
		go func() {
			<-ctx.Done()
			p.Quit()
		}()
		if _, err := p.Run(); err != nil {
			log.Fatal(err)
		}
		cancel()
	} else {
		runLogLoop(ctx, updates)
	}

	log.Printf("Shutdown requested; waiting for workers to finish current episodes...")
	workerWG.Wait()
	close(writeReqs)
	<-writerDone

	if learner != nil {
		table := learner.Export()
		if err := db.SaveTable(table); err != nil {
			log.Printf("Failed to save policy table: %v", err)
		} else {
			log.Printf("Saved policy table with %d states", len(table))
		}
	}

	log.Printf("Shutdown complete: episodes=%d goals=%d moves=%d", totalEpisodes.Load(), totalGoals.Load(), totalMoves.Load())
}

func runLogLoop(ctx context.Context, updates chan EpisodeUpdate) {
	startTime := time.Now()
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case update := <-updates:
			end := string(update.Result.Cause)
			if update.Result.Won {
				end = "won"
			}
			log.Printf("Worker %d: score %d, steps %d, %s", update.WorkerID, update.Result.Score, update.Result.Steps, end)
		case <-ticker.C:
			duration := time.Since(startTime)
			moves := totalMoves.Load()
			eps := totalEpisodes.Load()
			log.Printf("Stats: Episodes: %d (%.2f/s), Moves/s: %.2f", eps, float64(eps)/duration.Seconds(), float64(moves)/duration.Seconds())
		}
	}
}

func parquetWriterLoop(outDir string, episodesPerFlush int, in <-chan rowWriteRequest) {
	if episodesPerFlush <= 0 {
		episodesPerFlush = 50
	}

	pendingRows := make([]store.EpisodeTurnRow, 0, 1024)
	pendingEpisodes := 0

	for req := range in {
		if len(req.rows) == 0 {
			continue
		}
		pendingRows = append(pendingRows, req.rows...)
		pendingEpisodes++

		if pendingEpisodes < episodesPerFlush {
			continue
		}

		outPath, err := store.WriteBatchParquetAtomic(outDir, pendingRows)
		if err != nil {
			log.Printf("Parquet flush failed (episodes=%d rows=%d): %v", pendingEpisodes, len(pendingRows), err)
		} else {
			log.Printf("Parquet flush ok: %s (episodes=%d rows=%d)", outPath, pendingEpisodes, len(pendingRows))
		}

		pendingRows = pendingRows[:0]
		pendingEpisodes = 0
	}

	if pendingEpisodes > 0 && len(pendingRows) > 0 {
		outPath, err := store.WriteBatchParquetAtomic(outDir, pendingRows)
		if err != nil {
			log.Printf("Parquet final flush failed (episodes=%d rows=%d): %v", pendingEpisodes, len(pendingRows), err)
			return
		}
		log.Printf("Parquet final flush ok: %s (episodes=%d rows=%d)", outPath, pendingEpisodes, len(pendingRows))
	}
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvIntOrDefault(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// Command agentd serves move decisions over HTTP.
//
// It answers POST /move with a heading for the supplied board snapshot,
// exposes the learner's policy table for import/export, and streams live
// episodes over a websocket for watching the agent play.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"math/rand"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/brensch/autosnake/agent"
	"github.com/brensch/autosnake/game"
	"github.com/brensch/autosnake/rules"
	"github.com/brensch/autosnake/runner"
	"github.com/brensch/autosnake/store"
)

type InfoResponse struct {
	Name     string `json:"name"`
	Strategy string `json:"strategy"`
	Version  string `json:"version"`
}

type Coord struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
}

// MoveRequest is a board snapshot: body head-first, heading by name.
type MoveRequest struct {
	Width   int32   `json:"width"`
	Height  int32   `json:"height"`
	Body    []Coord `json:"body"`
	Goal    Coord   `json:"goal"`
	Heading string  `json:"heading"`
	Turn    int32   `json:"turn"`
}

type MoveResponse struct {
	Move string `json:"move"`
}

// TableEntry flattens one policy-table state for JSON transport.
type TableEntry struct {
	DX     int8       `json:"dx"`
	DY     int8       `json:"dy"`
	Dir    int8       `json:"dir"`
	Values [4]float64 `json:"values"`
}

// WatchFrame is one tick of a streamed episode.
type WatchFrame struct {
	Turn     int32   `json:"turn"`
	Width    int32   `json:"width"`
	Height   int32   `json:"height"`
	Body     []Coord `json:"body"`
	Goal     Coord   `json:"goal"`
	Heading  string  `json:"heading"`
	Move     string  `json:"move"`
	Reward   float64 `json:"reward"`
	Terminal bool    `json:"terminal"`
	Cause    string  `json:"cause,omitempty"`
	Score    int     `json:"score"`
}

// Server routes decisions to a configured strategy.
type Server struct {
	strategy string
	planner  *agent.Planner
	learner  *agent.Learner
	upgrader websocket.Upgrader
}

func NewServer(strategy string, learner *agent.Learner) *Server {
	return &Server{
		strategy: strategy,
		planner:  agent.NewPlanner(),
		learner:  learner,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 10 * time.Second,
			// The watch endpoint is a local debugging surface.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) strategyFor(name string) agent.Strategy {
	switch name {
	case "learner":
		if s.learner != nil {
			return s.learner
		}
		return s.planner
	default:
		return s.planner
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	response := InfoResponse{
		Name:     "autosnake",
		Strategy: s.strategy,
		Version:  "1.0.0",
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleMove decides a heading for the posted snapshot. The decision cascade
// is total, so this never fails for a well-formed board.
func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	var req MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Width <= 0 || req.Height <= 0 || len(req.Body) == 0 {
		http.Error(w, "snapshot requires positive dimensions and a non-empty body", http.StatusBadRequest)
		return
	}

	snap := convertSnapshot(&req)
	strat := s.strategyFor(s.strategy)
	move := strat.Decide(snap)

	log.Printf("Turn %d: Move=%s, Time=%v", req.Turn, game.MoveName(move), time.Since(startTime))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(MoveResponse{Move: game.MoveName(move)})
}

// handleTable exports (GET) or imports (POST) the learner's policy table.
func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	if s.learner == nil {
		http.Error(w, "no learner configured", http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodGet:
		table := s.learner.Export()
		entries := make([]TableEntry, 0, len(table))
		for state, values := range table {
			entries = append(entries, TableEntry{DX: state.DX, DY: state.DY, Dir: state.Dir, Values: values})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(entries)

	case http.MethodPost:
		var entries []TableEntry
		if err := json.NewDecoder(r.Body).Decode(&entries); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		table := make(map[agent.LearnState]agent.ActionValues, len(entries))
		for _, e := range entries {
			table[agent.LearnState{DX: e.DX, DY: e.DY, Dir: e.Dir}] = e.Values
		}
		s.learner.Import(table)
		log.Printf("Imported policy table with %d states", len(table))
		w.WriteHeader(http.StatusOK)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleWatch upgrades to a websocket and streams one live episode,
// frame per tick.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Watch upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	width := queryInt32(r, "width", 25)
	height := queryInt32(r, "height", 20)
	delay := time.Duration(queryInt32(r, "delay_ms", 50)) * time.Millisecond
	stratName := r.URL.Query().Get("strategy")
	if stratName == "" {
		stratName = s.strategy
	}
	strat := s.strategyFor(stratName)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	cfg := runner.Config{Width: width, Height: height, MaxTurns: 10000, Strategy: stratName}

	snap, err := runner.NewSnapshot(cfg, rng)
	if err != nil {
		log.Printf("Watch setup failed: %v", err)
		return
	}

	score := 0
	for turn := 0; turn < cfg.MaxTurns; turn++ {
		move := strat.Decide(snap)
		rules.SetHeading(snap, move)
		next, out := rules.Advance(snap)

		reward := float64(runner.RewardStep)
		switch {
		case out.Terminal:
			reward = runner.RewardCollision
		case out.AteGoal:
			reward = runner.RewardGoal
			score++
		}

		frame := WatchFrame{
			Turn:     snap.Turn,
			Width:    snap.Width,
			Height:   snap.Height,
			Body:     toCoords(snap.Body),
			Goal:     Coord{X: snap.Goal.X, Y: snap.Goal.Y},
			Heading:  game.MoveName(int(snap.Heading)),
			Move:     game.MoveName(move),
			Reward:   reward,
			Terminal: out.Terminal,
			Cause:    string(out.Cause),
			Score:    score,
		}
		if err := conn.WriteJSON(frame); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return
			}
			log.Printf("Watch write failed: %v", err)
			return
		}

		if out.Terminal {
			return
		}

		if out.AteGoal {
			goal, err := game.PlaceGoal(next, rng)
			if err != nil {
				// Board full: the episode is won.
				return
			}
			next.Goal = goal
		}

		snap = next
		time.Sleep(delay)
	}
}

func convertSnapshot(req *MoveRequest) *game.Snapshot {
	snap := &game.Snapshot{
		Width:  req.Width,
		Height: req.Height,
		Goal:   game.Point{X: req.Goal.X, Y: req.Goal.Y},
		Turn:   req.Turn,
	}

	snap.Body = make([]game.Point, len(req.Body))
	for i, c := range req.Body {
		snap.Body[i] = game.Point{X: c.X, Y: c.Y}
	}

	if m := game.ParseMove(req.Heading); m >= 0 {
		snap.Heading = int32(m)
	}

	return snap
}

func toCoords(pts []game.Point) []Coord {
	out := make([]Coord, len(pts))
	for i, p := range pts {
		out[i] = Coord{X: p.X, Y: p.Y}
	}
	return out
}

func queryInt32(r *http.Request, key string, def int32) int32 {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return int32(n)
		}
	}
	return def
}

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	listen := fs.String("listen", ":8080", "HTTP listen address")
	strategy := fs.String("strategy", "planner", "Default decision strategy: planner or learner")
	dbPath := fs.String("db", "", "SQLite database to load the policy table from (optional)")
	alpha := fs.Float64("alpha", 0.1, "Learning rate for the learner strategy")
	gamma := fs.Float64("gamma", 0.9, "Discount factor for the learner strategy")

	if err := fs.Parse(os.Args[1:]); err != nil {
		log.Fatalf("flag parse: %v", err)
	}

	// Serve the learner greedily: exploration belongs in training runs.
	learner := agent.NewLearner(agent.LearnerConfig{Alpha: *alpha, Gamma: *gamma, Epsilon: 0}, nil)
	if *dbPath != "" {
		db, err := store.Open(*dbPath)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		table, err := db.LoadTable()
		db.Close()
		if err != nil {
			log.Fatalf("Failed to load policy table: %v", err)
		}
		learner.Import(table)
		log.Printf("Loaded policy table with %d states", len(table))
	}

	server := NewServer(*strategy, learner)

	mux := http.NewServeMux()
	mux.HandleFunc("/", server.handleIndex)
	mux.HandleFunc("/move", server.handleMove)
	mux.HandleFunc("/table", server.handleTable)
	mux.HandleFunc("/watch", server.handleWatch)

	srv := &http.Server{
		Addr:              *listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("autosnake agent listening on http://%s (strategy=%s)", *listen, *strategy)
	log.Fatal(srv.ListenAndServe())
}

// Command stats reports aggregate episode results from parquet archives.
//
// It builds an in-memory DuckDB view over every parquet file under the
// given roots and prints per-strategy aggregates, plus recent episodes
// from the SQLite results database when one is supplied.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/brensch/autosnake/store"
)

// StrategyStats is one row of the per-strategy aggregate report.
type StrategyStats struct {
	Strategy  string
	Episodes  int64
	AvgSteps  float64
	AvgScore  float64
	WallRate  float64
	SelfRate  float64
	BestScore int64
}

// openDuckDBWithGlobs creates a DuckDB connection with a turns view over
// glob patterns for the roots. Much faster than enumerating files.
func openDuckDBWithGlobs(roots []string) (*sql.DB, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, err
	}
	// Basic pragmas; ignore errors for compatibility across versions.
	_, _ = db.Exec("PRAGMA threads=4")

	globs := make([]string, 0, len(roots))
	for _, root := range roots {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		glob := filepath.Join(root, "**", "*.parquet")
		globs = append(globs, "'"+escapeSQLString(glob)+"'")
	}
	if len(globs) == 0 {
		_ = db.Close()
		return nil, fmt.Errorf("no data roots supplied")
	}

	// Exclude tmp directories where in-flight batches land before rename.
	sqlText := `CREATE OR REPLACE VIEW turns AS
		SELECT * FROM read_parquet([` + strings.Join(globs, ",") + `], filename=true, union_by_name=true)
		WHERE NOT contains(filename, '/tmp/')`
	if _, err := db.Exec(sqlText); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func escapeSQLString(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func queryStrategyStats(ctx context.Context, db *sql.DB) ([]StrategyStats, error) {
	// Roll turns up to episodes first, then aggregate per strategy.
	rows, err := db.QueryContext(ctx, `
		WITH episodes AS (
			SELECT
				strategy,
				episode_id,
				COUNT(*) AS steps,
				SUM(CASE WHEN reward > 0 THEN 1 ELSE 0 END) AS score,
				MAX(CASE WHEN terminal AND cause = 'wall' THEN 1 ELSE 0 END) AS hit_wall,
				MAX(CASE WHEN terminal AND cause = 'self' THEN 1 ELSE 0 END) AS hit_self
			FROM turns
			GROUP BY strategy, episode_id
		)
		SELECT
			strategy,
			COUNT(*) AS episodes,
			AVG(steps) AS avg_steps,
			AVG(score) AS avg_score,
			AVG(hit_wall) AS wall_rate,
			AVG(hit_self) AS self_rate,
			MAX(score) AS best_score
		FROM episodes
		GROUP BY strategy
		ORDER BY strategy`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StrategyStats
	for rows.Next() {
		var s StrategyStats
		if err := rows.Scan(&s.Strategy, &s.Episodes, &s.AvgSteps, &s.AvgScore, &s.WallRate, &s.SelfRate, &s.BestScore); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func queryTurnsTotal(ctx context.Context, db *sql.DB) (int64, error) {
	var total int64
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM turns`).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func printReport(stats []StrategyStats, turns int64) {
	fmt.Printf("Total turns recorded: %d\n\n", turns)
	fmt.Printf("%-10s %10s %10s %10s %10s %10s %10s\n",
		"STRATEGY", "EPISODES", "AVG STEPS", "AVG SCORE", "WALL%", "SELF%", "BEST")
	for _, s := range stats {
		fmt.Printf("%-10s %10d %10.1f %10.2f %9.1f%% %9.1f%% %10d\n",
			s.Strategy, s.Episodes, s.AvgSteps, s.AvgScore,
			s.WallRate*100, s.SelfRate*100, s.BestScore)
	}
}

func printRecent(db *store.DB, limit int) error {
	episodes, err := db.RecentEpisodes(limit)
	if err != nil {
		return err
	}

	fmt.Printf("\nRecent episodes:\n")
	fmt.Printf("%-30s %-10s %6s %8s %-6s %s\n", "ID", "STRATEGY", "SCORE", "STEPS", "CAUSE", "PLAYED")
	for _, e := range episodes {
		fmt.Printf("%-30s %-10s %6d %8d %-6s %s\n",
			e.ID, e.Strategy, e.Score, e.Steps, e.Cause, e.PlayedAt.Format(time.RFC3339))
	}
	return nil
}

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	dataRoots := fs.String("data", "./data", "Comma-separated roots containing parquet archives")
	dbPath := fs.String("db", "", "SQLite results database for recent episodes (optional)")
	recent := fs.Int("recent", 10, "Number of recent episodes to show from the results database")
	timeout := fs.Duration("timeout", 2*time.Minute, "Query timeout")

	if err := fs.Parse(os.Args[1:]); err != nil {
		log.Fatalf("flag parse: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	start := time.Now()
	db, err := openDuckDBWithGlobs(strings.Split(*dataRoots, ","))
	if err != nil {
		log.Fatalf("Failed to open parquet view: %v", err)
	}
	defer db.Close()

	turns, err := queryTurnsTotal(ctx, db)
	if err != nil {
		log.Fatalf("Failed to count turns: %v", err)
	}

	stats, err := queryStrategyStats(ctx, db)
	if err != nil {
		log.Fatalf("Failed to aggregate episodes: %v", err)
	}
	log.Printf("Aggregated %d strategies in %v", len(stats), time.Since(start))

	printReport(stats, turns)

	if *dbPath != "" {
		results, err := store.Open(*dbPath)
		if err != nil {
			log.Fatalf("Failed to open results database: %v", err)
		}
		defer results.Close()
		if err := printRecent(results, *recent); err != nil {
			log.Fatalf("Failed to read recent episodes: %v", err)
		}
	}
}

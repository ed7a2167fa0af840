package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

// EpisodeTurnRow is a single (episode, turn) snapshot intended for long-term
// storage and offline analysis.
//
// Action is the heading chosen this turn: 0=Up, 1=Down, 2=Left, 3=Right.
// Reward follows the environment contract: +10 goal, -10 collision,
// 0 otherwise.
type EpisodeTurnRow struct {
	EpisodeID string `parquet:"episode_id,dict"`
	Turn      int32  `parquet:"turn"`
	Width     int32  `parquet:"width"`
	Height    int32  `parquet:"height"`

	BodyX []int32 `parquet:"body_x"`
	BodyY []int32 `parquet:"body_y"`

	GoalX int32 `parquet:"goal_x"`
	GoalY int32 `parquet:"goal_y"`

	Heading  int32   `parquet:"heading"`
	Action   int32   `parquet:"action"`
	Reward   float32 `parquet:"reward"`
	Terminal bool    `parquet:"terminal"`

	Strategy string `parquet:"strategy,dict"`
	Cause    string `parquet:"cause,dict"`
}

// WriteEpisodeParquet writes rows to outPath via a temp file and an atomic
// rename.
func WriteEpisodeParquet(outPath string, rows []EpisodeTurnRow) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	tmpPath := outPath + ".tmp"
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, rows,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", "episode_turn_v1"),
	); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write parquet: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename parquet: %w", err)
	}
	return nil
}

// WriteBatchParquetAtomic writes a timestamped batch file into outDir/tmp and
// then atomically moves it into outDir, so long-running writers never expose
// partially-written files to readers globbing the directory.
func WriteBatchParquetAtomic(outDir string, rows []EpisodeTurnRow) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	tmpDir := filepath.Join(outDir, "tmp")
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return "", fmt.Errorf("create tmp dir: %w", err)
	}

	name := fmt.Sprintf("batch_%d.parquet", time.Now().UnixNano())
	finalPath := filepath.Join(outDir, name)
	tmpPath := filepath.Join(tmpDir, name+".tmp")
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, rows,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", "episode_turn_v1"),
	); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("write parquet: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("rename parquet: %w", err)
	}

	return finalPath, nil
}

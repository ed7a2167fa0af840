package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
)

func sampleRows() []EpisodeTurnRow {
	return []EpisodeTurnRow{
		{
			EpisodeID: "ep_test_1",
			Turn:      0,
			Width:     10,
			Height:    10,
			BodyX:     []int32{1},
			BodyY:     []int32{1},
			GoalX:     5,
			GoalY:     5,
			Heading:   1,
			Action:    3,
			Reward:    0,
			Strategy:  "planner",
		},
		{
			EpisodeID: "ep_test_1",
			Turn:      1,
			Width:     10,
			Height:    10,
			BodyX:     []int32{2, 1},
			BodyY:     []int32{1, 1},
			GoalX:     5,
			GoalY:     5,
			Heading:   3,
			Action:    3,
			Reward:    -10,
			Terminal:  true,
			Strategy:  "planner",
			Cause:     "wall",
		},
	}
}

func TestWriteEpisodeParquet(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "episodes", "ep_test_1.parquet")

	if err := WriteEpisodeParquet(outPath, sampleRows()); err != nil {
		t.Fatalf("WriteEpisodeParquet: %v", err)
	}

	got, err := parquet.ReadFile[EpisodeTurnRow](outPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("rows=%d want=2", len(got))
	}
	if got[1].Cause != "wall" || !got[1].Terminal || got[1].Reward != -10 {
		t.Fatalf("row=%+v want terminal wall row", got[1])
	}
	if len(got[1].BodyX) != 2 || got[1].BodyX[0] != 2 {
		t.Fatalf("body columns=%v/%v", got[1].BodyX, got[1].BodyY)
	}

	// No stray temp file after the rename.
	if _, err := os.Stat(outPath + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}
}

func TestWriteBatchParquetAtomic(t *testing.T) {
	outDir := t.TempDir()

	path, err := WriteBatchParquetAtomic(outDir, sampleRows())
	if err != nil {
		t.Fatalf("WriteBatchParquetAtomic: %v", err)
	}

	if filepath.Dir(path) != outDir {
		t.Fatalf("batch landed in %s want %s", filepath.Dir(path), outDir)
	}

	got, err := parquet.ReadFile[EpisodeTurnRow](path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("rows=%d want=2", len(got))
	}

	// The staging directory must be empty once the batch is published.
	entries, err := os.ReadDir(filepath.Join(outDir, "tmp"))
	if err != nil {
		t.Fatalf("ReadDir tmp: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("staging dir still holds %d entries", len(entries))
	}
}

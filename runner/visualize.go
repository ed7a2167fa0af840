// visualize.go - console visualization for debugging episodes.

package runner

import (
	"fmt"
	"log"
	"strings"

	"github.com/brensch/autosnake/game"
)

// PrintBoard logs an ASCII rendering of the board: O head, o body, G goal.
func PrintBoard(s *game.Snapshot) {
	grid := make([][]string, s.Height)
	for y := range grid {
		grid[y] = make([]string, s.Width)
		for x := range grid[y] {
			grid[y][x] = "."
		}
	}

	if s.InBounds(s.Goal) {
		grid[s.Goal.Y][s.Goal.X] = "G"
	}

	for i, p := range s.Body {
		if !s.InBounds(p) {
			continue
		}
		if i == 0 {
			grid[p.Y][p.X] = "O"
		} else {
			grid[p.Y][p.X] = "o"
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("\n=== Turn %d (heading=%s) ===\n", s.Turn, game.MoveName(int(s.Heading))))
	for y := s.Height - 1; y >= 0; y-- {
		for x := int32(0); x < s.Width; x++ {
			sb.WriteString(grid[y][x] + " ")
		}
		sb.WriteString("\n")
	}
	log.Print(sb.String())
}

package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mattn/go-runewidth"

	"mandala/internal/grid"
)

// MaxLabelWidth is the widest label shown in a board cell. Longer labels are
// clipped with an ellipsis.
const MaxLabelWidth = 18

// EmptyCell marks a board cell with no position.
const EmptyCell = "·"

// ClipLabel shortens label to at most width terminal columns.
func ClipLabel(label string, width int) string {
	return runewidth.Truncate(label, width, "…")
}

// boardRows lays g out as three rows of three cells, each "label\n(bias)".
func boardRows(g *grid.Grid) [][]string {
	rows := make([][]string, 3)
	for r := 0; r < 3; r++ {
		rows[r] = make([]string, 3)
		for c := 0; c < 3; c++ {
			p, ok := g.At(grid.Cell{Row: r, Col: c})
			if !ok {
				rows[r][c] = EmptyCell
				continue
			}
			rows[r][c] = fmt.Sprintf("%s\n(%s)", ClipLabel(p.Label, MaxLabelWidth), grid.FormatBias(p.Bias))
		}
	}
	return rows
}

// RenderBoard draws g as a bordered 3x3 table in board layout.
func RenderBoard(styles Styles, g *grid.Grid) string {
	rows := boardRows(g)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderRow(true).
		BorderStyle(styles.Border).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row >= 0 && row < len(rows) {
				if p, ok := g.At(grid.Cell{Row: row, Col: col}); ok && p.IsCenter() {
					return styles.Center
				}
			}
			return styles.Cell
		}).
		Rows(rows...)
	return t.Render()
}

// RenderHeadline draws the boxed "Mandala Grid: name (vX)" banner.
func RenderHeadline(styles Styles, g *grid.Grid) string {
	const width = 50
	var sb strings.Builder
	sb.WriteString(styles.RenderDivider("═", width) + "\n")
	sb.WriteString("  " + styles.Title.Render(fmt.Sprintf("Mandala Grid: %s (v%s)", g.Name(), g.Version())) + "\n")
	sb.WriteString(styles.RenderDivider("═", width) + "\n")
	return sb.String()
}

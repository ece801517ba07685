package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/bodul/recite/internal/puzzle"
)

var (
	cellStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	pathStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	startStyle = pathStyle.Bold(true).Underline(true)
	boardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
	captionStyle = lipgloss.NewStyle().Faint(true)
)

// renderLayout draws a layout for the terminal with the solution path
// highlighted and the start cell in bold.
func renderLayout(l *puzzle.Layout) string {
	var b strings.Builder
	for row := range l.Size() {
		if row > 0 {
			b.WriteByte('\n')
		}
		for col := range l.Size() {
			if col > 0 {
				b.WriteByte(' ')
			}
			c := puzzle.Coord{Row: row, Col: col}
			cell, _ := l.At(c)
			switch {
			case c == l.Start():
				b.WriteString(startStyle.Render(cell.Char))
			case cell.IsTarget:
				b.WriteString(pathStyle.Render(cell.Char))
			default:
				b.WriteString(cellStyle.Render(cell.Char))
			}
		}
	}
	caption := captionStyle.Render(l.Segment())
	return lipgloss.JoinVertical(lipgloss.Left, boardStyle.Render(b.String()), caption)
}

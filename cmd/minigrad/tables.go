package main

import (
	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
)

var (
	headerRowStyle = lipgloss.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)
	oddRowStyle = lipgloss.NewStyle().Faint(false).
			PaddingLeft(1).PaddingRight(1)
	evenRowStyle = lipgloss.NewStyle().Faint(true).
			PaddingLeft(1).PaddingRight(1)
	redRowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "9", Dark: "9"}).
			Bold(true).
			PaddingLeft(1).PaddingRight(1)

	titleStyle = lipgloss.NewStyle().Bold(true).Padding(1, 4, 0, 4)
)

func newPlainTable(withHeader bool, alignments ...lipgloss.Position) *lgtable.Table {
	return newPlainTableWithReds(withHeader, alignments...).table
}

// tableWithReds highlights failing rows.
type tableWithReds struct {
	table *lgtable.Table
	count int
	reds  map[int]bool
}

func (t *tableWithReds) Row(isRed bool, row ...string) {
	if isRed {
		t.reds[t.count] = true
	}
	t.table.Row(row...)
	t.count++
}

func newPlainTableWithReds(withHeader bool, alignments ...lipgloss.Position) *tableWithReds {
	t := &tableWithReds{
		reds: make(map[int]bool),
	}
	t.table = lgtable.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) (s lipgloss.Style) {
			if withHeader && row < 0 {
				s = headerRowStyle
				return
			}
			if t.reds[row] {
				s = redRowStyle
			} else if row%2 == 0 {
				s = oddRowStyle
			} else {
				s = evenRowStyle
			}
			alignment := lipgloss.Left
			if col < len(alignments) {
				alignment = alignments[col]
			} else if len(alignments) > 0 {
				alignment = alignments[len(alignments)-1]
			}
			return s.Align(alignment)
		})
	return t
}

package cli

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	failedStyle = cellStyle.Foreground(lipgloss.Color("9"))
)

// renderTable lays out rows under headers with a rounded border.
// Cells equal to statusFailed are highlighted.
func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row >= 0 && row < len(rows) && col < len(rows[row]) && rows[row][col] == statusFailed:
				return failedStyle
			default:
				return cellStyle
			}
		}).
		String()
}

const (
	statusOK     = "ok"
	statusFailed = "failed"
	dateTime     = "2006-01-02 15:04:05"
)

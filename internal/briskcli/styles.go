package briskcli

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F1F5E4")).Background(lipgloss.Color("#5B6B2F")).Padding(0, 1)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#7FA34A")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#D9A441")).Bold(true)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8A8F7A")).Width(10)
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#E7E9DF"))
)

// summary renders a titled block of label/value lines.
func summary(title string, rows [][2]string) string {
	lines := []string{titleStyle.Render(title)}
	for _, row := range rows {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(row[0]), valueStyle.Render(row[1])))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/nimbusdfir/nimbus/pkg/ui/theme"
)

// printTable renders rows with a styled header, the standard listing
// format for every `list` subcommand.
func printTable(headers []string, rows [][]string) {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers(headers...).
		Rows(rows...)

	fmt.Println(t)
}

func printSuccess(format string, a ...interface{}) {
	theme.Colors.Success.Printf(format+"\n", a...)
}

func printInfo(format string, a ...interface{}) {
	theme.Colors.Info.Printf(format+"\n", a...)
}

func printWarning(format string, a ...interface{}) {
	theme.Colors.Warning.Printf(format+"\n", a...)
}

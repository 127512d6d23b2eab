package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/fbot/emotions-bridge/pkg/head"
)

type EmotionsCommand struct{}

func (c *EmotionsCommand) Execute(args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		fatal("%v", err)
	}
	reg, err := loadRegistry(cfg)
	if err != nil {
		fatal("%v", err)
	}

	fmt.Println(headerStyle.Render("Motors") + dimStyle.Render(" from "+cfg.Params.File))
	fmt.Println(renderEmotionTable(reg))
	return nil
}

// renderEmotionTable shows one row per motor with its pin and the value of
// every known emotion. Missing values are shown as "-".
func renderEmotionTable(reg *head.Registry) string {
	emotions := reg.AllEmotions()
	headers := append([]string{"Motor", "Pin"}, emotions...)

	rows := make([][]string, 0, reg.Len())
	for _, m := range reg.Motors() {
		row := []string{m.Name, strconv.Itoa(m.Pin)}
		for _, e := range emotions {
			if v, ok := m.Value(e); ok {
				row = append(row, strconv.Itoa(v))
			} else {
				row = append(row, "-")
			}
		}
		rows = append(rows, row)
	}

	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableMotorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Padding(0, 1)
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)
	tableMissingStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Padding(0, 1)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return tableHeaderStyle
			case col == 0:
				return tableMotorStyle
			case row >= 0 && row < len(rows) && rows[row][col] == "-":
				return tableMissingStyle
			default:
				return tableCellStyle
			}
		})
	return t.Render()
}

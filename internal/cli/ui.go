package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"cardgen/internal/batch"
	"cardgen/internal/card"
)

var (
	colorCyan   = lipgloss.Color("36")
	colorGreen  = lipgloss.Color("35")
	colorYellow = lipgloss.Color("220")
	colorRed    = lipgloss.Color("167")
	colorWhite  = lipgloss.Color("255")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")
)

var (
	StyleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	StyleDim     = lipgloss.NewStyle().Foreground(colorDim)
	StyleValue   = lipgloss.NewStyle().Foreground(colorWhite)
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)

	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleKey         = lipgloss.NewStyle().Foreground(colorGray).Width(9)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
)

func (c *CLI) printf(format string, args ...any) {
	fmt.Fprintf(c.Out, format, args...)
}

func (c *CLI) printInfo(format string, args ...any) {
	c.printf("%s %s\n", styleIconInfo.Render(iconInfo), fmt.Sprintf(format, args...))
}

func (c *CLI) printError(format string, args ...any) {
	c.printf("%s %s\n", styleIconError.Render(iconError), fmt.Sprintf(format, args...))
}

func (c *CLI) printWarning(format string, args ...any) {
	c.printf("%s %s\n", styleIconWarning.Render(iconWarning), StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func (c *CLI) printKeyValue(key, value string) {
	c.printf("  %s %s\n", styleKey.Render(key+":"), StyleValue.Render(value))
}

// printCard reports a generated card and the dates printed on it.
func (c *CLI) printCard(path string, rec card.Record) {
	layout := c.cfg.Card.DateLayout
	c.printf("%s Generated: %s\n", styleIconSuccess.Render(iconSuccess), StyleTitle.Render(path))
	c.printKeyValue("Name", rec.Name())
	c.printKeyValue("DOB", rec.DateOfBirth().Format(layout))
	c.printKeyValue("Issued", rec.IssueDate().Format(layout))
	c.printKeyValue("Expires", rec.ExpirationDate().Format(layout))
}

func (c *CLI) printSummary(s batch.Summary) {
	icon := styleIconSuccess.Render(iconSuccess)
	if s.Failed > 0 {
		icon = styleIconError.Render(iconError)
	}
	c.printf("%s %s %s\n", icon, StyleValue.Render(s.String()), StyleDim.Render(fmt.Sprintf("(%d entries)", s.Total)))
}

package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Color palette
var (
	PrimaryColor = lipgloss.Color("#7D56F4") // Purple - headers, borders
	SuccessColor = lipgloss.Color("#43BF6D") // Green - success, checkmarks
	ErrorColor   = lipgloss.Color("#FF5555") // Red - errors, X marks
	WarningColor = lipgloss.Color("#FFA500") // Orange - warnings, spinner
	MutedColor   = lipgloss.Color("#626262") // Gray - secondary info
	TextColor    = lipgloss.Color("#FFFFFF") // White - main content
)

// Layout constants
const (
	MinTerminalWidth = 60
	MaxContentWidth  = 100
)

// Markers
const (
	SuccessMarker = "✓"
	FailureMarker = "✗"
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(TextColor).Bold(true).PaddingLeft(2)
	commandStyle = lipgloss.NewStyle().Foreground(MutedColor).PaddingLeft(2)
	keyStyle     = lipgloss.NewStyle().Foreground(MutedColor).Width(18)
	valueStyle   = lipgloss.NewStyle().Foreground(TextColor)
	mutedStyle   = lipgloss.NewStyle().Foreground(MutedColor)

	successTitleStyle = lipgloss.NewStyle().Foreground(SuccessColor).Bold(true)
	errorTitleStyle   = lipgloss.NewStyle().Foreground(ErrorColor).Bold(true)
	errorTextStyle    = lipgloss.NewStyle().Foreground(ErrorColor)
	spinnerStyle      = lipgloss.NewStyle().Foreground(WarningColor)
)

// GetTerminalWidth returns the current terminal width, clamped to the
// supported range.
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < MinTerminalWidth {
		return MinTerminalWidth
	}
	if width > MaxContentWidth {
		return MaxContentWidth
	}
	return width
}

func headerBox(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Width(width - 2)
}

func resultBox(width int, color lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(color).
		Width(width-2).
		Padding(0, 2)
}

func divider(width int) string {
	if width < 10 {
		width = 10
	}
	return lipgloss.NewStyle().Foreground(PrimaryColor).Render(strings.Repeat("─", width))
}

func isTTY(fd uintptr) bool {
	return term.IsTerminal(int(fd))
}

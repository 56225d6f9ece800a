package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Color palette for the monitor UI
var (
	PrimaryColor = lipgloss.Color("#7D56F4") // Purple - headers, borders
	SuccessColor = lipgloss.Color("#43BF6D") // Green - connected, running
	ErrorColor   = lipgloss.Color("#FF5555") // Red - errors, gaps
	WarningColor = lipgloss.Color("#FFA500") // Orange - idle states
	MutedColor   = lipgloss.Color("#626262") // Gray - secondary info
	TextColor    = lipgloss.Color("#FFFFFF") // White - main content
)

// Layout constants
const (
	MinTerminalWidth = 60  // Minimum supported terminal width
	MaxContentWidth  = 100 // Maximum content width before capping
)

var (
	// TitleStyle is for the monitor header line
	TitleStyle = lipgloss.NewStyle().
			Foreground(TextColor).
			Bold(true).
			PaddingLeft(2)

	// LabelStyle is for stat labels (e.g., "Frequency:")
	LabelStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			PaddingLeft(2).
			Width(18)

	// ValueStyle is for stat values
	ValueStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	// ActiveStyle marks connected/streaming states
	ActiveStyle = lipgloss.NewStyle().
			Foreground(SuccessColor)

	// IdleStyle marks stopped states
	IdleStyle = lipgloss.NewStyle().
			Foreground(WarningColor)

	// AlertStyle marks decode failures and sequence gaps
	AlertStyle = lipgloss.NewStyle().
			Foreground(ErrorColor)

	// FooterStyle is for the help footer
	FooterStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			PaddingLeft(2)
)

// BorderStyle returns the rounded border for the monitor panel.
func BorderStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(PrimaryColor).
		Width(width - 2)
}

// GetTerminalWidth returns the current terminal width, with fallback.
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

package render

import "github.com/charmbracelet/lipgloss"

var (
	colorGold    = lipgloss.Color("#FFD700")
	colorCyan    = lipgloss.Color("#00BFFF")
	colorMuted   = lipgloss.Color("#8C8C8C")
	colorDim     = lipgloss.Color("#636363")
	colorSuccess = lipgloss.Color("#00E676")
	colorDanger  = lipgloss.Color("#FF5252")
)

const (
	iconComplete = "✓"
	iconLoading  = "◎"
	iconSkeleton = "·"
	iconDense    = "⋯"
)

var (
	styleTitle = lipgloss.NewStyle().Bold(true)

	stylePhase = lipgloss.NewStyle().
			Foreground(colorCyan).
			Bold(true)

	styleSeparator = lipgloss.NewStyle().Foreground(colorDim)

	styleRevolutionary = lipgloss.NewStyle().
				Foreground(colorGold).
				Bold(true)

	styleHigh   = lipgloss.NewStyle().Foreground(colorCyan)
	styleMedium = lipgloss.NewStyle().Foreground(colorMuted)

	styleDone    = lipgloss.NewStyle().Foreground(colorSuccess)
	styleFailure = lipgloss.NewStyle().Foreground(colorDanger).Bold(true)
	styleDim     = lipgloss.NewStyle().Foreground(colorDim)
)

package main

import "github.com/charmbracelet/lipgloss"

// Shared CLI styles.
var (
	stylePass   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // green
	styleWarn   = lipgloss.NewStyle().Foreground(lipgloss.Color("11")) // yellow
	styleFail   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))  // red
	styleAccent = lipgloss.NewStyle().Foreground(lipgloss.Color("12")) // blue
	styleDim    = lipgloss.NewStyle().Faint(true)
)

func renderPass(s string) string   { return stylePass.Render(s) }
func renderWarn(s string) string   { return styleWarn.Render(s) }
func renderFail(s string) string   { return styleFail.Render(s) }
func renderAccent(s string) string { return styleAccent.Render(s) }
func renderDim(s string) string    { return styleDim.Render(s) }

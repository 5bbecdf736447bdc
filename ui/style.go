package ui

import (
	gloss "github.com/charmbracelet/lipgloss"
)

const (
	TabSpacing    = 4
	TabPaddingTop = 1
	TabPaddingBot = 0
)

// Tab styles
var (
	ActiveTabStyle = gloss.NewStyle().
			Foreground(gloss.Color("#89b4fa")).
			Padding(TabPaddingTop, TabSpacing, TabPaddingBot, TabSpacing).
			Align(gloss.Center).
			Bold(true)

	InactiveTabStyle = gloss.NewStyle().
				Foreground(gloss.Color("#585b70")).
				Padding(TabPaddingTop, TabSpacing, TabPaddingBot, TabSpacing).
				Align(gloss.Center)
)

// Library pane item styles
var (
	SelectedTitleStyle = gloss.NewStyle().
				Foreground(gloss.Color("#89b4fa")).
				Bold(true)

	SelectedDescStyle = gloss.NewStyle().
				Foreground(gloss.Color("#bac2de"))

	NormalTitleStyle = gloss.NewStyle().
				Foreground(gloss.Color("#cdd6f4"))

	NormalDescStyle = gloss.NewStyle().
			Foreground(gloss.Color("#585b70"))

	DeletingStyle = gloss.NewStyle().
			Foreground(gloss.Color("#45475a")).
			Strikethrough(true)

	PageMarkerStyle = gloss.NewStyle().
			Foreground(gloss.Color("#363a4f"))
)

var (
	PromptStyle = gloss.NewStyle().
			Foreground(gloss.Color("#89b4fa"))

	PromptTextStyle = gloss.NewStyle().
			Foreground(gloss.Color("#cdd6f4"))
)

// Footer / status rows
var (
	StatusStyle = gloss.NewStyle().
			Foreground(gloss.Color("#89b4fa")).
			PaddingLeft(2)

	StatusMutedStyle = gloss.NewStyle().
				Foreground(gloss.Color("#585b70")).
				PaddingLeft(2)

	ErrorStyle = gloss.NewStyle().
			Foreground(gloss.Color("#f38ba8")).
			PaddingLeft(2)
)

// Detail overlay
var (
	DetailBoxStyle = gloss.NewStyle().
			Border(gloss.RoundedBorder()).
			BorderForeground(gloss.Color("#89b4fa")).
			Padding(1, 2)

	DetailTitleStyle = gloss.NewStyle().
				Foreground(gloss.Color("#89b4fa")).
				Bold(true)

	DetailLabelStyle = gloss.NewStyle().
				Foreground(gloss.Color("#585b70"))

	DetailTextStyle = gloss.NewStyle().
			Foreground(gloss.Color("#cdd6f4"))
)

var ConfirmStyle = gloss.NewStyle().
	Foreground(gloss.Color("#f9e2af")).
	PaddingLeft(2)

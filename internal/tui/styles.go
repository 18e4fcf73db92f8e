package tui

import "github.com/charmbracelet/lipgloss"

// Palette. Brand is the Gurubase violet; the rest are 256-color codes so the
// TUI degrades the same way on terminals without truecolor.
var (
	colorBrand  = lipgloss.Color("#7C5CFC")
	colorInk    = lipgloss.Color("254")
	colorMuted  = lipgloss.Color("244")
	colorFaint  = lipgloss.Color("237")
	colorOK     = lipgloss.Color("114")
	colorPend   = lipgloss.Color("179")
	colorFail   = lipgloss.Color("203")
	colorBinge  = lipgloss.Color("176")
	colorSource = lipgloss.Color("74")
)

func fg(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

func strong(c lipgloss.Color) lipgloss.Style { return fg(c).Bold(true) }

// Banner
var (
	bannerStyle      = fg(colorBrand)
	bannerMarkStyle  = strong(colorInk)
	bannerTitleStyle = strong(colorInk)
	versionStyle     = fg(colorMuted)
	welcomeHintStyle = fg(colorMuted).Italic(true)
	welcomeInfoLabel = fg(colorMuted)
)

// Prompt, hint bar and the slash-command menu.
var (
	promptSymbol   = strong(colorBrand)
	hintBarStyle   = fg(colorMuted)
	hintKeyStyle   = strong(colorMuted)
	bingeHintStyle = fg(colorBinge)

	cmdNameStyle         = fg(colorBrand)
	cmdDescStyle         = fg(colorMuted)
	cmdSelectedNameStyle = strong(colorBrand).Reverse(true)
	cmdSelectedDescStyle = strong(colorInk)
)

// Transcript
var (
	successMsgStyle = fg(colorOK)
	errorMsgStyle   = fg(colorFail)
	warnMsgStyle    = fg(colorPend)
	statusStyle     = fg(colorPend).Italic(true)
	userPromptStyle = strong(colorBrand)

	referencesHeaderStyle = strong(colorSource)
	relatedStyle          = fg(colorBrand)
	dimStyle              = fg(colorMuted)
	separatorStyle        = fg(colorFaint)

	tableHeaderStyle = lipgloss.NewStyle().Bold(true).Underline(true).Padding(0, 1)
	tableCellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

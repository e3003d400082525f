// Package ui provides the terminal presentation for vpnonline.
// This file contains the colors and styles used for highlighting and the
// interactive picker.
package ui

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/yllada/vpnonline/common"
	"github.com/yllada/vpnonline/vpn"
)

// Palette shared by the highlighter and the picker.
var (
	colorAccent  = lipgloss.Color("#3584e4")
	colorSuccess = lipgloss.Color("#2ec27e")
	colorWarning = lipgloss.Color("#e5a50a")
	colorMatch   = lipgloss.Color("1")
	colorMuted   = lipgloss.AdaptiveColor{Light: "#77767b", Dark: "#9a9996"}
)

// ColorHighlighter renders matches in red.
type ColorHighlighter struct {
	style lipgloss.Style
}

// NewColorHighlighter creates a highlighter that renders with r.
func NewColorHighlighter(r *lipgloss.Renderer) *ColorHighlighter {
	return &ColorHighlighter{
		style: r.NewStyle().Foreground(colorMatch),
	}
}

// Highlight colors s.
func (h *ColorHighlighter) Highlight(s string) string {
	return h.style.Render(s)
}

// NewHighlighter picks the highlighter for output written to w.
// "always" forces color, "never" forces brackets and "auto" uses color
// only when w is a terminal and NO_COLOR is unset.
func NewHighlighter(colorMode string, w io.Writer) vpn.Highlighter {
	if !useColor(colorMode, w) {
		return vpn.BracketHighlighter{}
	}

	r := lipgloss.NewRenderer(w)
	if colorMode == common.ColorAlways && r.ColorProfile() == termenv.Ascii {
		r.SetColorProfile(termenv.ANSI)
	}
	return NewColorHighlighter(r)
}

func useColor(colorMode string, w io.Writer) bool {
	switch colorMode {
	case common.ColorAlways:
		return true
	case common.ColorNever:
		return false
	}

	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return isTerminal(w)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// pickerStyles holds the styles of the interactive picker.
type pickerStyles struct {
	title    lipgloss.Style
	selected lipgloss.Style
	index    lipgloss.Style
	status   lipgloss.Style
	help     lipgloss.Style
}

func newPickerStyles(r *lipgloss.Renderer) pickerStyles {
	return pickerStyles{
		title:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffffff")).Background(colorAccent).Padding(0, 1),
		selected: r.NewStyle().Bold(true).Foreground(colorSuccess),
		index:    r.NewStyle().Foreground(colorMuted),
		status:   r.NewStyle().Foreground(colorWarning),
		help:     r.NewStyle().Foreground(colorMuted),
	}
}

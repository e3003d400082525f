// Package ui provides the terminal presentation for vpnonline.
//
// This package implements:
//
//   - Highlighting: coloring search matches with lipgloss, falling back to
//     brackets when the output cannot carry color
//   - Picker: a bubbletea list for choosing a definition interactively
//
// # Color Modes
//
// NewHighlighter honors the color setting: "always", "never" or "auto".
// In auto mode color is used only when the output is a terminal and the
// NO_COLOR environment variable is unset.
//
// # File Organization
//
//   - styles.go: palette, highlighters and picker styles
//   - picker.go: the interactive definition picker
package ui

// Package ui provides the terminal presentation for vpnonline.
// This file contains the interactive definition picker.
package ui

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/yllada/vpnonline/common"
	"github.com/yllada/vpnonline/vpn"
)

const (
	defaultPickerWidth  = 80
	defaultPickerHeight = 20
)

// entryItem adapts a vpn.Entry to the list component.
type entryItem struct {
	vpn.Entry
}

func (i entryItem) FilterValue() string { return i.Name }

// entryDelegate renders one definition per line as "<index> <name>".
type entryDelegate struct {
	keywords    []string
	highlighter vpn.Highlighter
	styles      pickerStyles
}

func (d entryDelegate) Height() int                             { return 1 }
func (d entryDelegate) Spacing() int                            { return 0 }
func (d entryDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d entryDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	e, ok := item.(entryItem)
	if !ok {
		return
	}

	cursor := "  "
	if index == m.Index() {
		cursor = d.styles.selected.Render("> ")
	}
	fmt.Fprintf(w, "%s%s %s",
		cursor,
		d.styles.index.Render(common.FormatIndex(e.Index)),
		vpn.Render(e.Name, d.keywords, d.highlighter))
}

// pickerModel is the bubbletea model of the picker.
type pickerModel struct {
	list      list.Model
	styles    pickerStyles
	chosen    *vpn.Entry
	cancelled bool
}

func newPickerModel(entries []vpn.Entry, keywords []string, h vpn.Highlighter, r *lipgloss.Renderer) pickerModel {
	styles := newPickerStyles(r)

	items := make([]list.Item, len(entries))
	for i, e := range entries {
		items[i] = entryItem{Entry: e}
	}

	delegate := entryDelegate{keywords: keywords, highlighter: h, styles: styles}
	l := list.New(items, delegate, defaultPickerWidth, defaultPickerHeight)
	l.Title = fmt.Sprintf("%s: %d definitions", common.AppName, len(entries))
	l.Styles.Title = styles.title
	l.SetShowStatusBar(false)

	return pickerModel{list: l, styles: styles}
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.cancelled = true
			return m, tea.Quit
		}
		// keys belong to the filter input while it is being edited
		if m.list.FilterState() == list.Filtering {
			break
		}

		switch msg.String() {
		case "enter":
			if item, ok := m.list.SelectedItem().(entryItem); ok {
				entry := item.Entry
				m.chosen = &entry
				return m, tea.Quit
			}
			return m, nil
		case "esc":
			if m.list.FilterState() == list.FilterApplied {
				break
			}
			m.cancelled = true
			return m, tea.Quit
		case "q":
			m.cancelled = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m pickerModel) View() string {
	if m.chosen != nil || m.cancelled {
		return ""
	}
	return m.list.View() + "\n" + m.styles.help.Render("enter: connect • esc: cancel")
}

// PickerOptions configures Pick.
type PickerOptions struct {
	// Keywords are highlighted in the definition names.
	Keywords []string
	// ColorMode is one of the common.Color* modes.
	ColorMode string
	In        io.Reader
	Out       io.Writer
}

// Pick lets the user choose one of entries interactively. Leaving the
// picker without a choice returns common.ErrInterrupted.
func Pick(ctx context.Context, entries []vpn.Entry, opts PickerOptions) (vpn.Entry, error) {
	if len(entries) == 0 {
		return vpn.Entry{}, common.KindError(common.ErrIndex, nil, "no definitions to pick from")
	}

	r := lipgloss.NewRenderer(opts.Out)
	model := newPickerModel(entries, opts.Keywords, NewHighlighter(opts.ColorMode, opts.Out), r)

	programOpts := []tea.ProgramOption{
		tea.WithContext(ctx),
		tea.WithOutput(opts.Out),
		tea.WithAltScreen(),
	}
	if opts.In != nil {
		programOpts = append(programOpts, tea.WithInput(opts.In))
	}

	final, err := tea.NewProgram(model, programOpts...).Run()
	if err != nil {
		if errors.Is(err, tea.ErrInterrupted) || errors.Is(err, tea.ErrProgramKilled) {
			return vpn.Entry{}, common.KindError(common.ErrInterrupted, err, "picker")
		}
		return vpn.Entry{}, common.WrapError(err, "picker failed")
	}

	return pickerResult(final)
}

func pickerResult(final tea.Model) (vpn.Entry, error) {
	m, ok := final.(pickerModel)
	if !ok || m.chosen == nil {
		return vpn.Entry{}, common.KindError(common.ErrInterrupted, nil, "no definition picked")
	}
	return *m.chosen, nil
}

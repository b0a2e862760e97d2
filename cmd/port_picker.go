// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/samber/lo"
	"go.bug.st/serial/enumerator"
)

var errNoPortChosen = errors.New("no serial port chosen")

// portItem implements list.Item
type portItem struct {
	details *enumerator.PortDetails
}

func (p portItem) Title() string { return p.details.Name }
func (p portItem) Description() string {
	if !p.details.IsUSB {
		return "native"
	}
	return fmt.Sprintf("USB %s:%s %s", p.details.VID, p.details.PID, p.details.Product)
}
func (p portItem) FilterValue() string { return p.details.Name }

// pickerModel is the Bubble Tea model for choosing a port
type pickerModel struct {
	list     list.Model
	choice   string
	quitting bool
}

func newPickerModel(ports []*enumerator.PortDetails) pickerModel {
	items := lo.Map(ports, func(p *enumerator.PortDetails, _ int) list.Item {
		return portItem{details: p}
	})

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	l := list.New(items, delegate, 60, 14)
	l.Title = "Select a serial port"
	l.Styles.Title = titleStyle
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)

	return pickerModel{list: l}
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, min(msg.Height, 20))
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			if item, ok := m.list.SelectedItem().(portItem); ok {
				m.choice = item.details.Name
			}
			return m, tea.Quit
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m pickerModel) View() string {
	if m.choice != "" || m.quitting {
		return ""
	}
	return "\n" + m.list.View()
}

// pickPort asks the operator to choose one of ports
func pickPort(ports []*enumerator.PortDetails) (string, error) {
	p := tea.NewProgram(newPickerModel(ports), tea.WithOutput(os.Stderr))
	final, err := p.Run()
	if err != nil {
		return "", fmt.Errorf("port picker error: %w", err)
	}

	m, ok := final.(pickerModel)
	if !ok || m.choice == "" {
		return "", errNoPortChosen
	}
	return m.choice, nil
}

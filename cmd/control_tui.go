// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Thermoquad/ocular/pkg/host"
)

//////////////////////////////////////////////////////////////
// Constants
//////////////////////////////////////////////////////////////

const (
	pollIntervalSeconds = 1                // Refresh the status panel every N seconds
	actionDeadline      = 30 * time.Second // Homing runs can take a while
)

// Focus states
const (
	focusCommandList = iota
	focusArgsInput
	focusButton
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// commandItem is an action shown in the command list
type commandItem struct {
	action *action
	reset  bool
}

// Implement list.Item interface
func (c commandItem) Title() string {
	if c.reset {
		return "reset"
	}
	return c.action.name
}

func (c commandItem) Description() string {
	if c.reset {
		return "Reset the controller"
	}
	return c.action.help
}

func (c commandItem) FilterValue() string { return c.Title() }

func (c commandItem) usage() string {
	if c.reset {
		return "reset"
	}
	return c.action.usage
}

// controlModel is the Bubble Tea model for the control TUI
type controlModel struct {
	// Connection manager (for sending commands and reconnection)
	connMgr  *connectionManager
	connInfo string

	// Commands
	commandList list.Model
	argsInput   textinput.Model
	busy        bool

	// Monitoring
	status        *statusView
	lastResult    *linkResult
	sent          uint64
	succeeded     uint64
	failed        uint64
	timeouts      uint64
	totalRTT      time.Duration
	errorLog      []errorLogEntry
	maxLogEntries int
	joystick      bool

	// UI state
	focusedField   int
	width          int
	height         int
	quitting       bool
	connectionLost bool
	lastPollTime   time.Time
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type controlTickMsg time.Time

type commandResultMsg struct {
	action *action // nil for reset
	args   []string
	result *linkResult
	err    error
	poll   bool
}

type joystickMsg struct {
	pressed bool
}

type connectionLostMsg struct{}

type reconnectedMsg struct {
	connInfo string
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

// availableCommands lists the actions the selected protocol can send
func availableCommands() []list.Item {
	items := []list.Item{}
	for _, name := range actionNames() {
		if name == "reset" {
			items = append(items, commandItem{reset: true})
			continue
		}
		a := actions[name]
		if !a.available() {
			continue
		}
		items = append(items, commandItem{action: a})
	}
	return items
}

func initialControlModel(connMgr *connectionManager, connInfo string) controlModel {
	// Initialize text input for arguments
	ti := textinput.New()
	ti.Placeholder = "x 1000"
	ti.CharLimit = 64
	ti.Width = 30

	// Initialize command list
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.SetHeight(2)
	commandList := list.New(availableCommands(), delegate, 30, 10)
	commandList.Title = "Commands"
	commandList.SetShowStatusBar(false)
	commandList.SetShowHelp(false)
	commandList.SetFilteringEnabled(false)

	return controlModel{
		connMgr:       connMgr,
		connInfo:      connInfo,
		commandList:   commandList,
		argsInput:     ti,
		errorLog:      make([]errorLogEntry, 0),
		maxLogEntries: 100,
		focusedField:  focusCommandList,
		width:         80,
		height:        24,
	}
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m controlModel) Init() tea.Cmd {
	return controlTickCmd()
}

func controlTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return controlTickMsg(t)
	})
}

func (m controlModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.MouseMsg:
		return m.handleMouseMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateListSize()

	case controlTickMsg:
		cmds = append(cmds, controlTickCmd())
		if m.connectionLost {
			break
		}
		// Legacy controllers stream status on their own; v2 ones are polled
		if st := m.connMgr.getLink().Status(); st != nil {
			m.status = st
		}
		if !isLegacy() && !m.busy && time.Since(m.lastPollTime) >= pollIntervalSeconds*time.Second {
			m.lastPollTime = time.Now()
			m.busy = true
			cmds = append(cmds, m.connMgr.runAction(actions["state"], nil, true))
		}

	case commandResultMsg:
		m.busy = false
		m.handleResult(msg)

	case joystickMsg:
		m.joystick = msg.pressed
		if msg.pressed {
			m.addLogEntry("Joystick button pressed", false)
		}

	case connectionLostMsg:
		m.connectionLost = true
		m.addLogEntry("Connection lost - reconnecting...", true)

	case reconnectedMsg:
		m.connectionLost = false
		m.busy = false
		m.connInfo = msg.connInfo
		m.status = nil
		m.addLogEntry("Reconnected", false)
	}

	// Update child components
	var cmd tea.Cmd
	if m.focusedField == focusArgsInput {
		m.argsInput, cmd = m.argsInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	if m.focusedField == focusCommandList {
		m.commandList, cmd = m.commandList.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *controlModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.focusedField != focusArgsInput || msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}

	case "tab":
		return m.cycleFocus(1), nil

	case "shift+tab":
		return m.cycleFocus(-1), nil

	case "enter":
		return m.handleEnter()

	case "up", "k", "down", "j":
		if m.focusedField == focusCommandList {
			m.commandList, _ = m.commandList.Update(msg)
			m.updatePlaceholder()
			return m, nil
		}
	}

	// Pass through to focused component
	if m.focusedField == focusArgsInput {
		var cmd tea.Cmd
		m.argsInput, cmd = m.argsInput.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *controlModel) handleMouseMsg(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action != tea.MouseActionRelease || msg.Button != tea.MouseButtonLeft {
		return m, nil
	}

	// Button detection would need layout coordinates; pass clicks to the list
	m.commandList, _ = m.commandList.Update(msg)
	m.updatePlaceholder()

	return m, nil
}

func (m *controlModel) cycleFocus(delta int) *controlModel {
	maxFocus := focusButton

	// Cycle through focus states
	m.focusedField = (m.focusedField + delta + maxFocus + 1) % (maxFocus + 1)

	// Update focus state
	if m.focusedField == focusArgsInput {
		m.argsInput.Focus()
	} else {
		m.argsInput.Blur()
	}

	return m
}

func (m *controlModel) handleEnter() (tea.Model, tea.Cmd) {
	// Don't allow control commands while connection is lost
	if m.connectionLost {
		m.addLogEntry("Cannot send command: connection lost", true)
		return m, nil
	}
	if m.focusedField == focusCommandList {
		m.focusedField = focusArgsInput
		m.argsInput.Focus()
		return m, nil
	}
	if m.busy {
		m.addLogEntry("Command in flight, try again", true)
		return m, nil
	}

	item, ok := m.commandList.SelectedItem().(commandItem)
	if !ok {
		return m, nil
	}

	m.busy = true
	if item.reset {
		m.addLogEntry("Sent reset", false)
		return m, m.connMgr.runAction(nil, nil, false)
	}

	args := strings.Fields(m.argsInput.Value())
	if len(args) < item.action.minArgs {
		m.busy = false
		m.addLogEntry("Usage: "+item.action.usage, true)
		return m, nil
	}
	m.addLogEntry(fmt.Sprintf("Sent %s %s", item.action.name, strings.Join(args, " ")), false)
	return m, m.connMgr.runAction(item.action, args, false)
}

func (m *controlModel) handleResult(msg commandResultMsg) {
	name := "reset"
	if msg.action != nil {
		name = msg.action.name
	}

	if msg.err != nil {
		if msg.poll {
			return
		}
		m.sent++
		m.failed++
		if errors.Is(msg.err, host.ErrTimeout) {
			m.timeouts++
		}
		m.addLogEntry(fmt.Sprintf("%s: %v", name, msg.err), true)
		return
	}

	res := msg.result
	if res.status != nil {
		m.status = res.status
	}
	if msg.poll {
		return
	}

	m.sent++
	m.totalRTT += res.elapsed
	m.lastResult = res
	if res.failed {
		m.failed++
		m.addLogEntry(fmt.Sprintf("%s: %s", name, res.summary), true)
		return
	}
	m.succeeded++
	m.addLogEntry(fmt.Sprintf("%s: %s (%v)", name, res.summary, res.elapsed.Round(time.Microsecond)), false)
}

func (m *controlModel) updatePlaceholder() {
	item, ok := m.commandList.SelectedItem().(commandItem)
	if !ok {
		return
	}
	usage := item.usage()
	if i := strings.Index(usage, " "); i >= 0 {
		m.argsInput.Placeholder = usage[i+1:]
	} else {
		m.argsInput.Placeholder = "(no arguments)"
	}
}

func (m controlModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	statsLabelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	statsValueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	focusedBoxStyle := boxStyle.
		BorderForeground(lipgloss.Color("12"))

	buttonStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("0")).
		Background(lipgloss.Color("12")).
		Padding(0, 2)

	focusedButtonStyle := buttonStyle.
		Background(lipgloss.Color("10"))

	// Header
	s.WriteString(titleStyle.Render("OCULAR CONTROL"))
	s.WriteString(" ")
	connStatus := m.connInfo
	if m.connectionLost {
		connStatus = warningStyle.Render("RECONNECTING...")
	}
	s.WriteString(headerStyle.Render(fmt.Sprintf("| %s | %s | q=quit Tab=switch Enter=send", connStatus, protocolName)))
	s.WriteString("\n\n")

	// Layout: left panel (commands) | right panel (control)
	leftWidth := 30
	rightWidth := m.width - leftWidth - 6

	listStyle := boxStyle.Width(leftWidth)
	if m.focusedField == focusCommandList {
		listStyle = focusedBoxStyle.Width(leftWidth)
	}
	commandPanel := listStyle.Render(m.commandList.View())

	controlContent := m.renderControlPanel(statsLabelStyle, statsValueStyle, errorStyle, headerStyle, buttonStyle, focusedButtonStyle)
	controlPanel := boxStyle.Width(rightWidth).Render(controlContent)

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, commandPanel, " ", controlPanel))
	s.WriteString("\n\n")

	// Statistics bar
	s.WriteString(m.renderStatisticsBar(statsLabelStyle, statsValueStyle, errorStyle, boxStyle))
	s.WriteString("\n\n")

	// Device status
	s.WriteString(m.renderStatus(statsLabelStyle, statsValueStyle, errorStyle, boxStyle))
	s.WriteString("\n\n")

	// Event log
	s.WriteString(m.renderEventLog(statsLabelStyle, warningStyle, boxStyle))

	return s.String()
}

//////////////////////////////////////////////////////////////
// View Helpers
//////////////////////////////////////////////////////////////

func (m controlModel) renderControlPanel(statsLabelStyle, statsValueStyle, errorStyle, headerStyle, buttonStyle, focusedButtonStyle lipgloss.Style) string {
	var s strings.Builder

	item, ok := m.commandList.SelectedItem().(commandItem)
	if !ok {
		s.WriteString(headerStyle.Render("No command selected"))
		return s.String()
	}

	s.WriteString(fmt.Sprintf("%s %s\n", statsLabelStyle.Render("Command:"), statsValueStyle.Render(item.Title())))
	s.WriteString(headerStyle.Render(item.usage()))
	s.WriteString("\n\n")

	s.WriteString(statsLabelStyle.Render("Args: "))
	if m.focusedField == focusArgsInput {
		s.WriteString(m.argsInput.View())
	} else {
		// Show as plain text when not focused
		val := m.argsInput.Value()
		if val == "" {
			val = m.argsInput.Placeholder
		}
		s.WriteString(fmt.Sprintf("[%s]", val))
	}
	s.WriteString("\n\n")

	btnText := "[ Send ]"
	if m.busy {
		btnText = "[ Waiting... ]"
	}
	if m.focusedField == focusButton {
		s.WriteString(focusedButtonStyle.Render(btnText))
	} else {
		s.WriteString(buttonStyle.Render(btnText))
	}

	if r := m.lastResult; r != nil {
		s.WriteString("\n\n")
		style := statsValueStyle
		if r.failed {
			style = errorStyle
		}
		s.WriteString(fmt.Sprintf("%s %s", statsLabelStyle.Render("Last:"), style.Render(r.summary)))
	}

	return s.String()
}

func (m controlModel) renderStatisticsBar(statsLabelStyle, statsValueStyle, errorStyle, boxStyle lipgloss.Style) string {
	var avg time.Duration
	if m.sent > m.failed {
		avg = m.totalRTT / time.Duration(m.sent-m.failed)
	}

	content := fmt.Sprintf("%s %s  %s %s  %s %s  %s %s  %s %s",
		statsLabelStyle.Render("Sent:"), statsValueStyle.Render(fmt.Sprintf("%d", m.sent)),
		statsLabelStyle.Render("OK:"), statsValueStyle.Render(fmt.Sprintf("%d", m.succeeded)),
		statsLabelStyle.Render("Failed:"), func() string {
			if m.failed > 0 {
				return errorStyle.Render(fmt.Sprintf("%d", m.failed))
			}
			return statsValueStyle.Render("0")
		}(),
		statsLabelStyle.Render("Timeouts:"), statsValueStyle.Render(fmt.Sprintf("%d", m.timeouts)),
		statsLabelStyle.Render("Avg RTT:"), statsValueStyle.Render(avg.Round(time.Microsecond).String()),
	)

	return boxStyle.Width(m.width - 4).Render(content)
}

func (m controlModel) renderStatus(statsLabelStyle, statsValueStyle, errorStyle, boxStyle lipgloss.Style) string {
	var content strings.Builder
	content.WriteString(statsLabelStyle.Render("STATUS"))
	content.WriteString(" | ")

	st := m.status
	if st == nil {
		content.WriteString("No status received")
		return boxStyle.Width(m.width - 4).Render(content.String())
	}

	style := statsValueStyle
	if st.failed {
		style = errorStyle
	}
	content.WriteString(fmt.Sprintf("%s %d  %s %s", statsLabelStyle.Render("Id:"), st.commandID, statsLabelStyle.Render("Status:"), style.Render(st.status)))
	if st.mode != "" {
		content.WriteString(fmt.Sprintf("  %s %s", statsLabelStyle.Render("Mode:"), statsValueStyle.Render(st.mode)))
	}
	content.WriteString("\n")

	for _, a := range st.axes {
		content.WriteString(fmt.Sprintf("%s %s  ",
			statsLabelStyle.Render(a.name+":"),
			statsValueStyle.Render(fmt.Sprintf("%d", a.position))))
	}
	content.WriteString("\n")
	content.WriteString(fmt.Sprintf("%s %s  %s %s",
		statsLabelStyle.Render("Lights:"), statsValueStyle.Render(st.lights),
		statsLabelStyle.Render("Buttons:"), statsValueStyle.Render(st.buttons)))

	return boxStyle.Width(m.width - 4).Render(content.String())
}

func (m controlModel) renderEventLog(statsLabelStyle, warningStyle, boxStyle lipgloss.Style) string {
	var s strings.Builder
	s.WriteString(statsLabelStyle.Render("EVENTS"))
	s.WriteString("\n")

	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyleLocal := lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

	// Calculate available height for log
	logHeight := 8
	if len(m.errorLog) < logHeight {
		logHeight = len(m.errorLog)
	}

	startIdx := len(m.errorLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.errorLog) == 0 {
		s.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.errorLog); i++ {
			entry := m.errorLog[i]
			timestamp := entry.timestamp.Format("15:04:05.000")
			icon := "i"
			style := warningStyle
			if entry.isError {
				icon = "x"
				style = errorStyleLocal
			}
			s.WriteString(fmt.Sprintf("%s %s %s\n",
				headerStyle.Render(timestamp),
				style.Render(icon),
				entry.message))
		}
	}

	return boxStyle.Width(m.width - 4).Render(s.String())
}

//////////////////////////////////////////////////////////////
// Helpers
//////////////////////////////////////////////////////////////

func (m *controlModel) addLogEntry(message string, isError bool) {
	entry := errorLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.errorLog = append(m.errorLog, entry)

	if len(m.errorLog) > m.maxLogEntries {
		m.errorLog = m.errorLog[len(m.errorLog)-m.maxLogEntries:]
	}
}

func (m *controlModel) updateListSize() {
	// Adjust list size based on terminal size
	listHeight := m.height / 3
	if listHeight < 5 {
		listHeight = 5
	}
	m.commandList.SetSize(28, listHeight)
}

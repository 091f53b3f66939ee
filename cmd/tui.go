// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Error log entry
type errorLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool // true for errors, false for warnings
}

// TUI model
type model struct {
	connInfo      string
	statsInterval int
	showAll       bool
	monitor       streamMonitor
	errorLog      []errorLogEntry
	maxLogEntries int
	synchronized  bool
	invalidBytes  int
	linkClosed    bool
	started       time.Time
	lastFailure   string
	width         int
	height        int
	quitting      bool
	lastStatus    *statusView
	lastStatusAt  time.Time
}

// Messages
type tickMsg time.Time
type streamEventMsg struct {
	event *monitorEvent
}
type linkClosedMsg struct{}

// formatSession renders a session length as "2h 05m 09s"
func formatSession(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	if h > 0 {
		return fmt.Sprintf("%dh %02dm %02ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %02ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

func initialModel(connInfo string, monitor streamMonitor, statsInterval int, showAll bool) model {
	return model{
		connInfo:      connInfo,
		statsInterval: statsInterval,
		showAll:       showAll,
		monitor:       monitor,
		errorLog:      make([]errorLogEntry, 0),
		maxLogEntries: 100,
		started:       time.Now(),
		width:         80,
		height:        24,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		tea.EnterAltScreen,
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		return m, tickCmd()

	case linkClosedMsg:
		m.linkClosed = true
		m.addLogEntry("Connection closed", true)

	case streamEventMsg:
		m.handleEvent(msg.event)
	}

	return m, nil
}

func (m *model) handleEvent(ev *monitorEvent) {
	switch ev.kind {
	case eventDecodeError:
		m.addLogEntry(fmt.Sprintf("%s: %v", ev.summary, ev.decodeErr), true)
		return

	case eventSync:
		m.synchronized = true
		m.invalidBytes = ev.invalidBytes
		if ev.invalidBytes > 0 {
			m.addLogEntry(fmt.Sprintf("Synchronized after skipping %d invalid bytes", ev.invalidBytes), false)
		} else {
			m.addLogEntry("Synchronized", false)
		}
	}

	if ev.status != nil {
		m.lastStatus = ev.status
		m.lastStatusAt = ev.timestamp
	}

	switch {
	case len(ev.anomalies) > 0:
		for _, a := range ev.anomalies {
			m.addLogEntry(fmt.Sprintf("%s: %s", ev.summary, a), true)
		}
	case ev.status != nil && ev.status.failed:
		if ev.summary != m.lastFailure {
			m.addLogEntry(ev.summary, true)
			m.lastFailure = ev.summary
		}
	case m.showAll:
		m.addLogEntry(fmt.Sprintf("%s (valid)", ev.summary), false)
	}
}

func (m *model) addLogEntry(message string, isError bool) {
	entry := errorLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.errorLog = append(m.errorLog, entry)

	// Keep only last N entries
	if len(m.errorLog) > m.maxLogEntries {
		m.errorLog = m.errorLog[len(m.errorLog)-m.maxLogEntries:]
	}
}

func (m model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

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

	// Header
	var s strings.Builder
	s.WriteString(titleStyle.Render("OCULAR - ERROR DETECTION"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | %s | Mode: %s | Up %s | Press 'q' to quit",
		m.connInfo, protocolName, func() string {
			if m.showAll {
				return "All packets"
			}
			return "Errors only"
		}(), formatSession(time.Since(m.started)))))
	s.WriteString("\n\n")

	// Sync status
	switch {
	case m.linkClosed:
		s.WriteString(errorStyle.Render("✗ Connection closed"))
		s.WriteString("\n\n")
	case !m.synchronized:
		s.WriteString(warningStyle.Render("⏳ Waiting for synchronization..."))
		s.WriteString("\n\n")
	default:
		s.WriteString(statsValueStyle.Render("✓ Synchronized"))
		if m.invalidBytes > 0 {
			s.WriteString(headerStyle.Render(fmt.Sprintf(" (skipped %d invalid bytes)", m.invalidBytes)))
		}
		s.WriteString("\n\n")
	}

	// Statistics
	c := m.monitor.Counters()
	var validPercent, errorPercent float64
	if c.total > 0 {
		validPercent = float64(c.valid) * 100.0 / float64(c.total)
		errorPercent = float64(c.errors()) * 100.0 / float64(c.total)
	}

	statsContent := strings.Builder{}
	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		statsLabelStyle.Render("Total:"), statsValueStyle.Render(fmt.Sprintf("%d", c.total)),
		statsLabelStyle.Render("Valid:"), statsValueStyle.Render(fmt.Sprintf("%d (%.1f%%)", c.valid, validPercent)),
		statsLabelStyle.Render("Errors:"), errorStyle.Render(fmt.Sprintf("%d (%.1f%%)", c.errors(), errorPercent)),
	))

	if c.checksumErrors > 0 || c.decodeErrors > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s   %s %s\n",
			statsLabelStyle.Render("CRC Errors:"), errorStyle.Render(fmt.Sprintf("%d", c.checksumErrors)),
			statsLabelStyle.Render("Decode Errors:"), errorStyle.Render(fmt.Sprintf("%d", c.decodeErrors)),
		))
	}

	if c.malformed > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s\n",
			statsLabelStyle.Render("Malformed:"), errorStyle.Render(fmt.Sprintf("%d", c.malformed)),
		))
	}

	if c.anomalous > 0 {
		statsContent.WriteString(fmt.Sprintf("%s %s\n",
			statsLabelStyle.Render("Anomalous:"), warningStyle.Render(fmt.Sprintf("%d", c.anomalous)),
		))
	}

	statsContent.WriteString(fmt.Sprintf("%s %s   %s %s",
		statsLabelStyle.Render("Packet Rate:"), statsValueStyle.Render(fmt.Sprintf("%.1f pkts/s", c.packetRate)),
		statsLabelStyle.Render("Error Rate:"), func() string {
			if c.errorRate > 0 {
				return errorStyle.Render(fmt.Sprintf("%.1f err/s", c.errorRate))
			}
			return statsValueStyle.Render(fmt.Sprintf("%.1f err/s", c.errorRate))
		}(),
	))

	s.WriteString(boxStyle.Render(statsContent.String()))
	s.WriteString("\n\n")

	// Device status (only shown once a status has been received)
	if st := m.lastStatus; st != nil {
		s.WriteString(statsLabelStyle.Render("Latest Status:"))
		s.WriteString(headerStyle.Render(" " + m.lastStatusAt.Format("15:04:05.000")))
		s.WriteString("\n")

		statusContent := strings.Builder{}

		statusStyle := statsValueStyle
		if st.failed {
			statusStyle = errorStyle
		}
		statusContent.WriteString(fmt.Sprintf("%s %d   %s %s",
			statsLabelStyle.Render("Command:"), st.commandID,
			statsLabelStyle.Render("Status:"), statusStyle.Render(st.status),
		))
		if st.mode != "" {
			statusContent.WriteString(fmt.Sprintf("   %s %s", statsLabelStyle.Render("Mode:"), statsValueStyle.Render(st.mode)))
		}
		statusContent.WriteString("\n")

		for _, a := range st.axes {
			line := fmt.Sprintf("%s %s",
				statsLabelStyle.Render(fmt.Sprintf("%-8s", a.name)),
				statsValueStyle.Render(fmt.Sprintf("%d", a.position)),
			)
			if a.state != "" {
				line += fmt.Sprintf(" (target: %d, %s", a.target, a.state)
				if a.homed {
					line += ", homed"
				}
				line += ")"
			}
			statusContent.WriteString(line + "\n")
		}

		statusContent.WriteString(fmt.Sprintf("%s %s   %s %s",
			statsLabelStyle.Render("Lights:"), statsValueStyle.Render(st.lights),
			statsLabelStyle.Render("Buttons:"), statsValueStyle.Render(st.buttons),
		))

		s.WriteString(boxStyle.Render(statusContent.String()))
		s.WriteString("\n\n")
	}

	// Error log
	s.WriteString(statsLabelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	// Calculate how many log entries we can show
	logHeight := m.height - 22 // Reserve space for header, stats and status
	if logHeight < 5 {
		logHeight = 5
	}

	logContent := strings.Builder{}
	startIdx := len(m.errorLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.errorLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.errorLog); i++ {
			entry := m.errorLog[i]
			timestamp := entry.timestamp.Format("01/02/06 15:04:05.000")
			if entry.isError {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					errorStyle.Render("✗ "+entry.message),
				))
			} else {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					warningStyle.Render("ℹ "+entry.message),
				))
			}
		}
	}

	s.WriteString(boxStyle.Width(m.width - 4).Render(logContent.String()))

	return s.String()
}

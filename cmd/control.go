// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var controlCmd = &cobra.Command{
	Use:   "control",
	Short: "Interactive TUI for controlling a microscope controller",
	Long: `Control an Ocular microscope controller via an interactive terminal UI.

This command provides a TUI for driving stages, illumination and cameras on a
controller connected via WebSocket or UART (direct connection).

Features:
  - Command list covering motion, illumination, DAC, GPIO and camera triggers
  - Live axis positions, illumination and button state
  - Round-trip timing and failure tracking
  - Event logging
  - Automatic reconnection on connection loss

Tab switches between the command list, the argument field and the Send
button. Arrow keys navigate the command list.

Supports both serial and WebSocket connections.`,
	RunE: runControl,
}

func init() {
	rootCmd.AddCommand(controlCmd)
}

// connectionManager handles connection lifecycle and reconnection
type connectionManager struct {
	link     deviceLink
	connInfo string
	mu       sync.RWMutex
	p        *tea.Program
	done     chan struct{}
}

func (cm *connectionManager) getLink() deviceLink {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.link
}

func (cm *connectionManager) setLink(link deviceLink, connInfo string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.link = link
	cm.connInfo = connInfo
}

func runControl(cmd *cobra.Command, args []string) error {
	// Open initial connection (serial or WebSocket)
	link, connInfo, err := openLink()
	if err != nil {
		return err
	}

	// Create connection manager
	cm := &connectionManager{
		link:     link,
		connInfo: connInfo,
		done:     make(chan struct{}),
	}

	// Create TUI model with connection manager
	m := initialControlModel(cm, connInfo)

	// Create TUI program with alt screen and mouse support
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	cm.p = p

	cm.watchButtons(link)
	go cm.supervise()

	// Run TUI
	_, err = p.Run()
	close(cm.done) // Signal goroutines to stop
	cm.getLink().Close()
	if err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}
	return nil
}

// watchButtons forwards joystick button edges to the TUI (v2 only; legacy
// controllers report the button in every status message)
func (cm *connectionManager) watchButtons(link deviceLink) {
	if l, ok := link.(*v2Link); ok {
		l.client.OnJoystickButton(func(pressed bool) {
			cm.p.Send(joystickMsg{pressed: pressed})
		})
	}
}

// supervise waits for the link to drop and reconnects
func (cm *connectionManager) supervise() {
	for {
		select {
		case <-cm.done:
			return
		case <-cm.getLink().Done():
		}

		select {
		case <-cm.done:
			return
		default:
		}

		// Notify TUI about connection loss
		cm.p.Send(connectionLostMsg{})

		if !cm.reconnect() {
			return // Shutdown requested during reconnect
		}
	}
}

// reconnect attempts to reconnect with exponential backoff
// Returns false if shutdown was requested during reconnection
func (cm *connectionManager) reconnect() bool {
	// Close old connection
	if link := cm.getLink(); link != nil {
		link.Close()
	}

	backoff := 1 * time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-cm.done:
			return false
		case <-time.After(backoff):
		}

		// Attempt to reconnect
		link, connInfo, err := openLink()
		if err == nil {
			cm.setLink(link, connInfo)
			cm.watchButtons(link)

			// Notify TUI about reconnection
			cm.p.Send(reconnectedMsg{connInfo: connInfo})
			return true
		}

		// Exponential backoff
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// runAction returns a tea.Cmd that executes an action on the current link
func (cm *connectionManager) runAction(a *action, args []string, poll bool) tea.Cmd {
	link := cm.getLink()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionDeadline)
		defer cancel()

		var res *linkResult
		var err error
		if a == nil {
			res, err = link.Reset(ctx)
		} else {
			res, err = link.Run(ctx, a, args)
		}
		return commandResultMsg{action: a, args: args, result: res, err: err, poll: poll}
	}
}

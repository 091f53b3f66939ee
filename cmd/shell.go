// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/abiosoft/ishell"
	"github.com/spf13/cobra"
)

var shellCmd = &cobra.Command{
	Use:   "shell [COMMAND [ARGS...]]",
	Short: "Interactive command shell for a controller",
	Long: `Open a line-oriented shell connected to a controller.

Every command from "ocular send help" is available, plus:
  status   show the latest status received
  stats    show link statistics
  verbose  toggle printing of full responses

With arguments, the shell runs that one command and exits.`,
	RunE: runShell,
}

func init() {
	rootCmd.AddCommand(shellCmd)
	shellCmd.Flags().SetInterspersed(false)
}

const shellKey = "$link"

// controllerShell is an ishell shell bound to one link
type controllerShell struct {
	shell   *ishell.Shell
	link    deviceLink
	verbose bool
}

func newControllerShell(link deviceLink, connInfo string) *controllerShell {
	s := &controllerShell{shell: ishell.New(), link: link}
	s.shell.Set(shellKey, s)
	s.shell.SetPrompt(fmt.Sprintf("[%s] > ", connInfo))

	for _, name := range actionNames() {
		if name == "reset" {
			s.shell.AddCmd(&ishell.Cmd{Name: "reset", Help: "Reset the controller", Func: s.run("reset")})
			continue
		}
		a := actions[name]
		if !a.available() {
			continue
		}
		s.shell.AddCmd(&ishell.Cmd{
			Name:     a.name,
			Help:     a.help,
			LongHelp: "usage: " + a.usage,
			Func:     s.run(a.name),
		})
	}

	s.shell.AddCmd(&ishell.Cmd{
		Name:    "status",
		Aliases: []string{"st"},
		Help:    "Show the latest status received",
		Func: func(c *ishell.Context) {
			st := shellFrom(c).link.Status()
			if st == nil {
				c.Println("No status received yet")
				return
			}
			c.Print(formatStatusView(st))
		},
	})
	s.shell.AddCmd(&ishell.Cmd{
		Name: "stats",
		Help: "Show link statistics",
		Func: func(c *ishell.Context) {
			c.Print(shellFrom(c).link.Stats())
		},
	})
	s.shell.AddCmd(&ishell.Cmd{
		Name: "verbose",
		Help: "Toggle printing of full responses",
		Func: func(c *ishell.Context) {
			s := shellFrom(c)
			s.verbose = !s.verbose
			c.Printf("verbose %t\n", s.verbose)
		},
	})
	return s
}

func shellFrom(c *ishell.Context) *controllerShell {
	return c.Get(shellKey).(*controllerShell)
}

// run returns the handler for one command name
func (s *controllerShell) run(name string) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		ctx, cancel := context.WithTimeout(context.Background(), actionDeadline)
		defer cancel()

		res, err := runWords(ctx, s.link, append([]string{name}, c.Args...))
		if err != nil {
			c.Err(err)
			return
		}
		c.Printf("%s (%v)\n", res.summary, res.elapsed.Round(time.Microsecond))
		if s.verbose || res.failed {
			c.Print(res.detail)
		}
	}
}

func runShell(cmd *cobra.Command, args []string) error {
	link, connInfo, err := openLink()
	if err != nil {
		return err
	}
	defer link.Close()

	s := newControllerShell(link, connInfo)
	if len(args) > 0 {
		return s.shell.Process(args...)
	}

	go func() {
		<-link.Done()
		s.shell.Println("\nConnection closed")
		s.shell.Close()
	}()

	s.shell.Printf("Ocular shell, %s protocol. Type help for commands.\n", protocolName)
	s.shell.Run()
	return nil
}

// formatStatusView renders a status the way the TUIs list it
func formatStatusView(st *statusView) string {
	out := fmt.Sprintf("Command %d: %s\n", st.commandID, st.status)
	if st.mode != "" {
		out += fmt.Sprintf("Mode: %s\n", st.mode)
	}
	for _, a := range st.axes {
		homed := ""
		if a.homed {
			homed = " homed"
		}
		state := a.state
		if state == "" {
			state = "-"
		}
		out += fmt.Sprintf("  %-8s %10d -> %10d  %s%s\n", a.name, a.position, a.target, state, homed)
	}
	out += fmt.Sprintf("Lights: %s\n", st.lights)
	out += fmt.Sprintf("Buttons: %s\n", st.buttons)
	return out
}

// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var sendVerbose bool

var sendCmd = &cobra.Command{
	Use:   "send COMMAND [ARGS...]",
	Short: "Send one command to a controller",
	Long: `Send a single command and print the controller's reply.

Commands use the same syntax as the control TUI and the shell, e.g.

  ocular send --port /dev/ttyUSB0 move x 1000
  ocular send --port /dev/ttyUSB0 light 488 500 on
  ocular send -P legacy --port /dev/ttyACM0 home z
  ocular send --port /dev/ttyUSB0 reset

Run "ocular send help" to list the commands for --protocol.

Exit codes:
  0 - Command completed
  1 - Controller rejected the command or it timed out
  2 - Connection error`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().BoolVarP(&sendVerbose, "verbose", "v", false, "Print the full response")
	// everything after the command name is an argument, so "move x -100" works
	sendCmd.Flags().SetInterspersed(false)
}

func runSend(cmd *cobra.Command, args []string) error {
	if strings.EqualFold(args[0], "help") {
		printActionHelp()
		return nil
	}

	link, connInfo, err := openLink()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer link.Close()

	ctx, cancel := context.WithTimeout(context.Background(), actionDeadline)
	defer cancel()

	res, err := runWords(ctx, link, args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", connInfo, err)
		os.Exit(1)
	}

	fmt.Printf("%s (%v)\n", res.summary, res.elapsed.Round(time.Microsecond))
	if sendVerbose {
		fmt.Print(res.detail)
	}
	if res.failed {
		os.Exit(1)
	}
	return nil
}

// printActionHelp lists the commands available in the selected protocol
func printActionHelp() {
	fmt.Printf("Commands (%s protocol):\n", protocolName)
	for _, name := range actionNames() {
		if name == "reset" {
			fmt.Printf("  %-40s %s\n", "reset", "Reset the controller")
			continue
		}
		a := actions[name]
		if !a.available() {
			continue
		}
		fmt.Printf("  %-40s %s\n", a.usage, a.help)
	}
}

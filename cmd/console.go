/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"

	"github.com/allbin/serialrepl/internal/tui/models"
	"github.com/allbin/serialrepl/repl"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// consoleCmd represents the console command
var consoleCmd = &cobra.Command{
	Use:   "console <port>",
	Short: "Open an interactive REPL console on a port",
	Long: `Open an interactive terminal console on one port.

Commands typed at the prompt are sent to the device and every reply is
shown next to the command it answers. Output the device prints on its own
is shown as unsolicited. The side panel lists the commands still waiting
for their echo.

Key bindings:
  INSERT mode: Enter sends, Up/Down walk the history, Esc leaves
  NORMAL mode: i insert, c clear, r resync, p pending panel,
               t timestamps, ? help, q quit

Examples:
  serialrepl console 3
  serialrepl console 1 --baud 9600`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		port, err := parsePort(args[0])
		if err != nil {
			return err
		}
		baudFlag, _ := cmd.Flags().GetInt("baud")

		e, err := loadEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		events := repl.NewChanObserver(256)
		opts, err := e.managerOptions(repl.WithObserver(events))
		if err != nil {
			return err
		}
		mgr := repl.NewManager(opts...)

		model := models.NewConsole(mgr, events, port, baudOrDefault(baudFlag, e.cfg), e.cfg.Prompt, e.cfg.PollInterval)
		p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())

		_, runErr := p.Run()

		// A command still running may be blocked on a full channel
		stop := make(chan struct{})
		go drain(events, stop)
		err = mgr.Teardown()
		close(stop)

		if runErr != nil {
			return fmt.Errorf("console: %w", runErr)
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(consoleCmd)

	consoleCmd.Flags().IntP("baud", "b", 0, "Baud rate (default: transport.baud_rate)")
}

func drain(events *repl.ChanObserver, stop <-chan struct{}) {
	for {
		select {
		case <-events.Errors:
		case <-events.Sent:
		case <-events.Results:
		case <-stop:
			return
		}
	}
}

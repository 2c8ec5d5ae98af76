/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/allbin/serialrepl/repl"
	"github.com/spf13/cobra"
)

// errNoReply is returned when the device never echoes the command.
var errNoReply = errors.New("no reply before timeout")

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send <port> <command>",
	Short: "Send one command to a REPL and print its result",
	Long: `Open the device for a port number, send one REPL command and wait for
the reply that echoes it.

Output already waiting on the device (a boot banner, prints from a running
program) is read and shown before the command is sent. A reply that does
not echo the command is reported as a desync and exits non-zero.

Examples:
  serialrepl send 3 "machine.unique_id()"
  serialrepl send 3 "led.toggle()" --baud 9600
  serialrepl send 1 "1+1" --json
  serialrepl send 1 "import time; time.sleep(3)" --timeout 10s`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		port, err := parsePort(args[0])
		if err != nil {
			return err
		}
		command := args[1]

		baudFlag, _ := cmd.Flags().GetInt("baud")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		jsonOut, _ := cmd.Flags().GetBool("json")

		e, err := loadEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		opts, err := e.managerOptions()
		if err != nil {
			return err
		}
		baud := baudOrDefault(baudFlag, e.cfg)

		if !jsonOut {
			fmt.Printf("%s Opening port %d...\n", infoStyle.Render("⚡"), port)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		ex := exchange{
			port:     port,
			baud:     baud,
			interval: e.cfg.PollInterval,
			onConnect: func(info repl.ConnInfo) {
				if !jsonOut {
					fmt.Printf("%s Connected to %s at %d baud\n", successStyle.Render("✓"), info.PortName, info.BaudRate)
				}
			},
			onSent: func(p repl.Packet) {
				if !jsonOut {
					fmt.Printf("%s %s\n", infoStyle.Render("📤"), p.CommandText)
				}
			},
			onUnsolicited: func(p repl.Packet) {
				if jsonOut {
					printJSON(p)
					return
				}
				fmt.Println(mutedStyle.Render(p.ResultText))
			},
		}

		result, err := ex.run(ctx, repl.NewManager(opts...), command)
		if err != nil {
			if jsonOut && result.Err != nil {
				printJSON(result)
			}
			return err
		}

		if jsonOut {
			printJSON(result)
			return nil
		}
		fmt.Printf("%s %s\n", successStyle.Render("📥"), result.ResultText)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().IntP("baud", "b", 0, "Baud rate (default: transport.baud_rate)")
	sendCmd.Flags().DurationP("timeout", "t", 5*time.Second, "How long to wait for the reply")
	sendCmd.Flags().Bool("json", false, "Print packets as JSON lines")
}

// exchange is a single open, send, poll-until-reply round trip.
type exchange struct {
	port     int
	baud     int
	interval time.Duration

	onConnect     func(repl.ConnInfo)
	onSent        func(repl.Packet)
	onUnsolicited func(repl.Packet)
}

// run drives mgr until command's result arrives, an error is notified or
// ctx ends. The manager is torn down before returning. On an error
// notification the failing packet is returned along with its error.
func (x exchange) run(ctx context.Context, mgr *repl.Manager, command string) (repl.Packet, error) {
	var (
		result  *repl.Packet
		failure *repl.Packet
	)
	mgr.Subscribe(repl.ObserverFuncs{
		Sent: x.onSent,
		Error: func(p repl.Packet) {
			if failure == nil {
				failure = &p
			}
		},
		Result: func(p repl.Packet) {
			if !p.HasExecuted {
				if x.onUnsolicited != nil {
					x.onUnsolicited(p)
				}
				return
			}
			if result == nil {
				result = &p
			}
		},
	})
	defer mgr.Teardown()

	info, err := mgr.Open(x.port, x.baud)
	if err != nil {
		return repl.Packet{}, err
	}
	if x.onConnect != nil {
		x.onConnect(info)
	}

	// Flush whatever the board printed before the command goes out
	mgr.PollAll()
	mgr.Send(x.port, command)

	interval := x.interval
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if failure != nil {
			err := failure.Err
			if err == nil {
				err = errors.New(failure.ResultText)
			}
			return *failure, err
		}
		if result != nil {
			return *result, nil
		}

		select {
		case <-ctx.Done():
			return repl.Packet{}, fmt.Errorf("port %d: %w (%s)", x.port, errNoReply, command)
		case <-ticker.C:
			mgr.PollAll()
		}
	}
}

func printJSON(p repl.Packet) {
	data, err := json.Marshal(p)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding packet: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

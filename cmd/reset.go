/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/allbin/serialrepl"
	"github.com/spf13/cobra"
)

// softResetSequence interrupts a running program (Ctrl-C) and soft reboots
// the interpreter (Ctrl-D).
const softResetSequence = "\x03\x04"

// resetCmd represents the reset command
var resetCmd = &cobra.Command{
	Use:   "reset <port>",
	Short: "Reset the board behind a port",
	Long: `Reset the board a port number resolves to.

By default a modem line is pulsed, which resets boards whose auto-reset
circuit ties RTS or DTR to the enable pin. With --soft the REPL is sent
Ctrl-C followed by Ctrl-D instead, which stops the running program and
soft reboots the interpreter.

Any replies still queued for the port are lost; run this before starting
a session, not during one.

Examples:
  serialrepl reset 3
  serialrepl reset 3 --line dtr --active high --pulse 250ms
  serialrepl reset 1 --soft

Valid --active states: high, low, on, off, true, false, 1, 0`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		port, err := parsePort(args[0])
		if err != nil {
			return err
		}
		line, _ := cmd.Flags().GetString("line")
		activeArg, _ := cmd.Flags().GetString("active")
		pulse, _ := cmd.Flags().GetDuration("pulse")
		soft, _ := cmd.Flags().GetBool("soft")

		active, err := parseSignalState(activeArg)
		if err != nil {
			return err
		}

		e, err := loadEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		path, err := e.resolvePath(port)
		if err != nil {
			return err
		}

		p, err := serial.Open(path, serial.WithBaudRate(e.cfg.Transport.BaudRate))
		if err != nil {
			return fmt.Errorf("opening %s: %w", path, err)
		}
		defer p.Close()

		if soft {
			fmt.Printf("%s Soft resetting %s...\n", infoStyle.Render("⚡"), path)
			err = softReset(p)
		} else {
			fmt.Printf("%s Pulsing %s on %s for %v...\n", infoStyle.Render("⚡"), strings.ToUpper(line), path, pulse)
			err = pulseReset(p, line, active, pulse, time.Sleep)
		}
		if err != nil {
			return err
		}

		// Drop the boot banner so the next session starts clean
		if err := p.FlushInput(); err != nil {
			e.logger.Warn("flush after reset failed", "path", path, "error", err)
		}
		fmt.Printf("%s Port %d reset\n", successStyle.Render("✓"), port)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)

	resetCmd.Flags().String("line", "rts", "Modem line wired to the reset pin: rts, dtr")
	resetCmd.Flags().String("active", "high", "Line state that holds the board in reset")
	resetCmd.Flags().Duration("pulse", 100*time.Millisecond, "How long to hold the board in reset")
	resetCmd.Flags().Bool("soft", false, "Send Ctrl-C Ctrl-D instead of pulsing a line")
}

// lineSetter is the modem control half of serial.Port.
type lineSetter interface {
	SetRTS(state bool) error
	SetDTR(state bool) error
}

// pulseReset drives line to active, waits pulse and releases it.
func pulseReset(p lineSetter, line string, active bool, pulse time.Duration, sleep func(time.Duration)) error {
	var set func(bool) error
	switch strings.ToLower(line) {
	case "rts":
		set = p.SetRTS
	case "dtr":
		set = p.SetDTR
	default:
		return fmt.Errorf("invalid line: %s (valid: rts, dtr)", line)
	}

	if err := set(active); err != nil {
		return fmt.Errorf("asserting %s: %w", line, err)
	}
	sleep(pulse)
	if err := set(!active); err != nil {
		return fmt.Errorf("releasing %s: %w", line, err)
	}
	return nil
}

type drainWriter interface {
	io.Writer
	Drain() error
}

func softReset(w drainWriter) error {
	if _, err := io.WriteString(w, softResetSequence); err != nil {
		return fmt.Errorf("writing soft reset: %w", err)
	}
	return w.Drain()
}

func parseSignalState(state string) (bool, error) {
	switch strings.ToLower(state) {
	case "high", "on", "true", "1":
		return true, nil
	case "low", "off", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid state: %s (valid: high, low, on, off, true, false, 1, 0)", state)
	}
}

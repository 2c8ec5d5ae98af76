/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/allbin/serialrepl"
	"github.com/spf13/cobra"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <port>",
	Short: "Show which device a port number opens",
	Long: `Resolve a port number with the configured backend and match policy and
display the device it selects.

With --signals the device is opened briefly with the termios transport and
the current modem line states are shown.

Examples:
  serialrepl info 3
  serialrepl info 0 --signals
  serialrepl info 1 --match suffix

Signal meanings:
  CTS - Clear To Send (input)
  DSR - Data Set Ready (input)
  RI  - Ring Indicator (input)
  DCD - Data Carrier Detect (input)
  RTS - Request To Send (output)
  DTR - Data Terminal Ready (output)`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		port, err := parsePort(args[0])
		if err != nil {
			return err
		}
		showSignals, _ := cmd.Flags().GetBool("signals")

		e, err := loadEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		path, err := e.resolvePath(port)
		if err != nil {
			return err
		}

		fmt.Printf("Port %d: %s\n\n", port, path)
		fmt.Printf("  Backend:     %s\n", e.cfg.Transport.Backend)
		fmt.Printf("  Match:       %s\n", e.cfg.Match)
		fmt.Printf("  Type:        %s\n", getPortType(filepath.Base(path)))
		if info, err := serial.GetPortInfo(path); err == nil {
			fmt.Printf("  Name:        %s\n", info.Name)
			fmt.Printf("  Description: %s\n", info.Description)
		}

		if !showSignals {
			return nil
		}

		p, err := serial.Open(path, serial.WithBaudRate(e.cfg.Transport.BaudRate))
		if err != nil {
			return fmt.Errorf("opening %s: %w", path, err)
		}
		defer p.Close()

		signals, err := p.GetModemSignals()
		if err != nil {
			return fmt.Errorf("reading modem signals: %w", err)
		}
		fmt.Print("\nModem Signals:\n\n")
		fmt.Print(formatSignals(signals))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)

	infoCmd.Flags().BoolP("signals", "s", false, "Open the device and show modem signal states")
}

func formatSignals(s serial.ModemSignals) string {
	return fmt.Sprintf(""+
		"  CTS (Clear To Send):       %s\n"+
		"  DSR (Data Set Ready):      %s\n"+
		"  RI  (Ring Indicator):      %s\n"+
		"  DCD (Data Carrier Detect): %s\n"+
		"  RTS (Request To Send):     %s\n"+
		"  DTR (Data Terminal Ready): %s\n",
		formatSignalState(s.CTS),
		formatSignalState(s.DSR),
		formatSignalState(s.RI),
		formatSignalState(s.DCD),
		formatSignalState(s.RTS),
		formatSignalState(s.DTR),
	)
}

func formatSignalState(state bool) string {
	if state {
		return "HIGH"
	}
	return "LOW"
}

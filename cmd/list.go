/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/allbin/serialrepl"
	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"
	"github.com/spf13/cobra"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available serial ports",
	Long: `List the serial devices found by the configured backend.

With --port the configured match policy is applied and the device that
port number would open is marked. Use this to check which board a port
number addresses before running commands against it.

Examples:
  serialrepl list
  serialrepl list --table
  serialrepl list --port 3
  serialrepl list --backend bugst --match suffix --port 1`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		dialer, err := newDialer(e.cfg.Transport, e.logger)
		if err != nil {
			return err
		}
		ports, err := dialer.Ports()
		if err != nil {
			return fmt.Errorf("listing ports: %w", err)
		}

		if len(ports) == 0 {
			fmt.Println("No serial ports found")
			return nil
		}

		tableFormat, _ := cmd.Flags().GetBool("table")
		portNum, _ := cmd.Flags().GetInt("port")

		selected := ""
		if portNum >= 0 {
			selected, err = matchPath(e.cfg.Match, portNum, ports)
			if err != nil {
				return err
			}
		}

		if tableFormat {
			fmt.Printf("Found %d serial port(s):\n\n", len(ports))
			fmt.Println(renderTable(describePorts(ports), selected))
		} else {
			fmt.Print(renderSimple(ports, selected))
		}

		if selected != "" {
			fmt.Printf("\n%s port %d -> %s\n", successStyle.Render("✓"), portNum, selected)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().BoolP("table", "t", false, "Display output in a styled table format")
	listCmd.Flags().IntP("port", "p", -1, "Mark the device this port number resolves to")
}

// portRow is one enumerated device.
type portRow struct {
	Path        string
	Type        string
	Description string
}

func describePorts(ports []string) []portRow {
	rows := make([]portRow, 0, len(ports))
	for _, p := range ports {
		row := portRow{Path: p, Type: getPortType(filepath.Base(p))}
		if info, err := serial.GetPortInfo(p); err == nil {
			row.Description = info.Description
		} else {
			row.Description = "-"
		}
		rows = append(rows, row)
	}
	return rows
}

const (
	columnKeyPath        = "path"
	columnKeyType        = "type"
	columnKeyDescription = "description"
	columnKeySelected    = "selected"
)

// renderTable renders the port list as a static table
func renderTable(rows []portRow, selected string) string {
	columns := []table.Column{
		table.NewColumn(columnKeySelected, "", 2),
		table.NewColumn(columnKeyPath, "Port", 20),
		table.NewColumn(columnKeyType, "Type", 18),
		table.NewColumn(columnKeyDescription, "Description", 30),
	}

	tableRows := make([]table.Row, 0, len(rows))
	for _, r := range rows {
		data := table.RowData{
			columnKeySelected:    "",
			columnKeyPath:        r.Path,
			columnKeyType:        r.Type,
			columnKeyDescription: r.Description,
		}
		if r.Path != selected {
			tableRows = append(tableRows, table.NewRow(data))
			continue
		}
		data[columnKeySelected] = "✓"
		tableRows = append(tableRows, table.NewRow(data).
			WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("40"))))
	}

	return table.New(columns).
		WithRows(tableRows).
		HeaderStyle(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99"))).
		BorderRounded().
		View()
}

// renderSimple renders the port list in simple text format
func renderSimple(ports []string, selected string) string {
	var b strings.Builder
	for _, p := range ports {
		if p == selected {
			b.WriteString(successStyle.Render(p) + "\n")
			continue
		}
		b.WriteString(p + "\n")
	}
	return b.String()
}

// getPortType returns a more specific type classification for the port
func getPortType(name string) string {
	name = strings.ToLower(name)
	switch {
	case strings.HasPrefix(name, "ttyusb"):
		return "USB Serial"
	case strings.HasPrefix(name, "ttyacm"):
		return "USB CDC/ACM"
	case strings.HasPrefix(name, "ttyama"):
		return "ARM Serial"
	case strings.HasPrefix(name, "ttymxc"):
		return "i.MX Serial"
	case strings.HasPrefix(name, "ttysac"):
		return "Samsung Serial"
	case strings.HasPrefix(name, "ttyths"):
		return "Tegra Serial"
	case strings.HasPrefix(name, "ttyo"):
		return "OMAP Serial"
	case strings.HasPrefix(name, "ttys"):
		return "Standard Serial"
	case strings.HasPrefix(name, "com"):
		return "COM Port"
	case strings.HasPrefix(name, "cu.") || strings.HasPrefix(name, "tty."):
		return "macOS Serial"
	default:
		return "Serial Port"
	}
}

/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/allbin/serialrepl/repl"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Feed the demo command sequence to every port",
	Long: `Open every configured port and feed the demo command sequence to all of
them, one command per tick. Every tick also polls all ports, so results
are printed as they arrive.

The default sequence imports machine, sets up the LED pin, toggles it and
asks for the board's unique id. Override it with demo.commands in the
config file.

The command exits non-zero if any error was reported: a port that could
not be opened, a failed write or a desync. Packets can be recorded as JSON
lines with --record; the file is opened in append mode.

Examples:
  serialrepl run --port 1 --port 2
  serialrepl run --interval 500ms --record packets.jsonl
  serialrepl run --metrics-addr :9100`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		defer e.Close()

		ports, _ := cmd.Flags().GetIntSlice("port")
		if len(ports) == 0 {
			ports = e.cfg.Ports
		}
		if len(ports) == 0 {
			return errors.New("no ports given: use --port or set ports in the config file")
		}

		baudFlag, _ := cmd.Flags().GetInt("baud")
		interval, _ := cmd.Flags().GetDuration("interval")
		if interval <= 0 {
			interval = e.cfg.Demo.Interval
		}
		drain, _ := cmd.Flags().GetDuration("drain")
		recordPath, _ := cmd.Flags().GetString("record")
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
		if metricsAddr == "" {
			metricsAddr = e.cfg.Metrics.Addr
		}

		var extra []repl.Option
		if metricsAddr != "" {
			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			metrics, err := repl.NewMetrics(reg)
			if err != nil {
				return err
			}
			extra = append(extra, repl.WithMetrics(metrics))

			srv := serveMetrics(metricsAddr, reg, e)
			defer srv.Shutdown(context.Background())
		}

		var out io.Writer = os.Stdout
		tally := &errorTally{}
		extra = append(extra, repl.WithObserver(tally), repl.WithObserver(packetPrinter{w: out}))

		if recordPath != "" {
			file, err := os.OpenFile(recordPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				return fmt.Errorf("failed to open record file: %w", err)
			}
			defer file.Close()
			extra = append(extra, repl.WithObserver(&packetRecorder{w: file}))
		}

		opts, err := e.managerOptions(extra...)
		if err != nil {
			return err
		}

		// Setup signal handling for clean shutdown
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigChan
			fmt.Fprintf(os.Stderr, "\nReceived interrupt signal, shutting down...\n")
			cancel()
		}()

		d := demo{
			ports:    ports,
			baud:     baudOrDefault(baudFlag, e.cfg),
			commands: e.cfg.Demo.Commands,
			interval: interval,
			drain:    drain,
			out:      out,
		}
		if err := d.run(ctx, repl.NewManager(opts...)); err != nil {
			return err
		}
		if n := tally.Count(); n > 0 {
			return fmt.Errorf("%d error(s) reported", n)
		}
		fmt.Printf("%s Demo complete\n", successStyle.Render("✓"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().IntSliceP("port", "p", nil, "Port numbers to open (default: ports from config)")
	runCmd.Flags().IntP("baud", "b", 0, "Baud rate (default: transport.baud_rate)")
	runCmd.Flags().DurationP("interval", "i", 0, "Time between commands (default: demo.interval)")
	runCmd.Flags().Duration("drain", 5*time.Second, "How long to keep polling for replies after the last command")
	runCmd.Flags().String("record", "", "Append every packet as a JSON line to this file")
	runCmd.Flags().String("metrics-addr", "", "Serve prometheus metrics on this address (default: metrics.addr)")
}

func serveMetrics(addr string, reg *prometheus.Registry, e *env) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		e.logger.Info("metrics server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.logger.Error("metrics server failed", "error", err)
		}
	}()
	return srv
}

// demo feeds commands to every open port, one per tick.
type demo struct {
	ports    []int
	baud     int
	commands []string
	interval time.Duration
	drain    time.Duration
	out      io.Writer
}

// run opens the ports, feeds the sequence and polls until every queue is
// empty, the drain period after the last command ends, or ctx is done.
// Ports that fail to open are reported through the manager's observers
// and skipped. The manager is always torn down.
func (d demo) run(ctx context.Context, mgr *repl.Manager) error {
	var opened []int
	for _, port := range d.ports {
		info, err := mgr.Open(port, d.baud)
		if err != nil {
			continue
		}
		fmt.Fprintf(d.out, "%s Connected port %d to %s at %d baud\n", successStyle.Render("✓"), info.Port, info.PortName, info.BaudRate)
		opened = append(opened, port)
	}
	if len(opened) == 0 {
		mgr.Teardown()
		return fmt.Errorf("%w: none of %v could be opened", repl.ErrOpen, d.ports)
	}

	err := d.feed(ctx, mgr, opened)
	if terr := mgr.Teardown(); terr != nil {
		err = errors.Join(err, terr)
	}
	return err
}

func (d demo) feed(ctx context.Context, mgr *repl.Manager, ports []int) error {
	interval := d.interval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	queue := append([]string(nil), d.commands...)
	var drainUntil time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if len(queue) > 0 {
				command := queue[0]
				queue = queue[1:]
				for _, port := range ports {
					mgr.Send(port, command)
				}
				if len(queue) == 0 {
					drainUntil = now.Add(d.drain)
				}
			}

			mgr.PollAll()

			if len(queue) > 0 {
				continue
			}
			left := pendingTotal(mgr, ports)
			if left == 0 {
				return nil
			}
			if !now.Before(drainUntil) {
				return fmt.Errorf("%d command(s) still awaiting a reply", left)
			}
		}
	}
}

func pendingTotal(mgr *repl.Manager, ports []int) int {
	n := 0
	for _, port := range ports {
		n += len(mgr.Pending(port))
	}
	return n
}

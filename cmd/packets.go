/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/allbin/serialrepl/repl"
)

// packetPrinter writes one styled line per notification.
type packetPrinter struct {
	w io.Writer
}

func (pp packetPrinter) OnSent(p repl.Packet) {
	fmt.Fprintf(pp.w, "%s [%d] %s\n", infoStyle.Render("📤"), p.Port, p.CommandText)
}

func (pp packetPrinter) OnResult(p repl.Packet) {
	if !p.HasExecuted {
		fmt.Fprintf(pp.w, "%s\n", mutedStyle.Render(fmt.Sprintf("   [%d] %s", p.Port, p.ResultText)))
		return
	}
	fmt.Fprintf(pp.w, "%s [%d] %s => %s\n", successStyle.Render("📥"), p.Port, p.CommandText, p.ResultText)
}

func (pp packetPrinter) OnError(p repl.Packet) {
	line := fmt.Sprintf("%s [%d] %s", errorStyle.Render("✗"), p.Port, p.ResultText)
	if p.Err != nil && p.Err.Error() != p.ResultText {
		line += ": " + p.Err.Error()
	}
	fmt.Fprintln(pp.w, line)
}

// errorTally counts error notifications.
type errorTally struct {
	n int
}

func (t *errorTally) OnError(repl.Packet)  { t.n++ }
func (t *errorTally) OnSent(repl.Packet)   {}
func (t *errorTally) OnResult(repl.Packet) {}

func (t *errorTally) Count() int {
	return t.n
}

// packetRecord is one line of a --record file.
type packetRecord struct {
	Time   time.Time   `json:"time"`
	Kind   string      `json:"kind"`
	Packet repl.Packet `json:"packet"`
}

// packetRecorder appends every notification to w as a JSON line.
type packetRecorder struct {
	w   io.Writer
	now func() time.Time
}

func (r *packetRecorder) OnError(p repl.Packet)  { r.write("error", p) }
func (r *packetRecorder) OnSent(p repl.Packet)   { r.write("sent", p) }
func (r *packetRecorder) OnResult(p repl.Packet) { r.write(resultKind(p), p) }

func (r *packetRecorder) write(kind string, p repl.Packet) {
	now := time.Now
	if r.now != nil {
		now = r.now
	}
	if err := json.NewEncoder(r.w).Encode(packetRecord{Time: now(), Kind: kind, Packet: p}); err != nil {
		fmt.Fprintf(os.Stderr, "Error recording packet: %v\n", err)
	}
}

func resultKind(p repl.Packet) string {
	if p.HasExecuted {
		return "result"
	}
	return "unsolicited"
}

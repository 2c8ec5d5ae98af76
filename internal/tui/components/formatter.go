package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/allbin/serialrepl/internal/tui/styles"
	"github.com/allbin/serialrepl/repl"
)

// EntryKind is the notification that produced a log entry.
type EntryKind int

const (
	EntrySent EntryKind = iota
	EntryResult
	EntryUnsolicited
	EntryError
	EntryInfo
)

func (k EntryKind) String() string {
	switch k {
	case EntrySent:
		return "TX"
	case EntryResult:
		return "RX"
	case EntryUnsolicited:
		return "--"
	case EntryError:
		return "ERR"
	default:
		return "INFO"
	}
}

// Entry is one line of the console log.
type Entry struct {
	Timestamp time.Time
	Kind      EntryKind
	Packet    repl.Packet
	// Text replaces the packet rendering for EntryInfo
	Text string
}

// PacketMsg carries a repl notification into the bubbletea loop.
type PacketMsg struct {
	Kind   EntryKind
	Packet repl.Packet
}

// NewEntry stamps a notification. Results that were not triggered by a
// command are recorded as unsolicited.
func NewEntry(msg PacketMsg) Entry {
	kind := msg.Kind
	if kind == EntryResult && !msg.Packet.HasExecuted {
		kind = EntryUnsolicited
	}
	return Entry{Timestamp: time.Now(), Kind: kind, Packet: msg.Packet}
}

// InfoEntry is a console-generated line, e.g. a resync notice.
func InfoEntry(format string, args ...any) Entry {
	return Entry{Timestamp: time.Now(), Kind: EntryInfo, Text: fmt.Sprintf(format, args...)}
}

// Formatter renders entries as single styled lines.
type Formatter struct {
	ShowTimestamps bool
}

func NewFormatter() *Formatter {
	return &Formatter{ShowTimestamps: true}
}

func (f *Formatter) ToggleTimestamps() {
	f.ShowTimestamps = !f.ShowTimestamps
}

func (f *Formatter) Format(e Entry) string {
	var indicator, body string

	switch e.Kind {
	case EntrySent:
		indicator = styles.SentStyle.Render("↗ TX")
		body = e.Packet.CommandText
	case EntryResult:
		indicator = styles.ResultStyle.Render("↙ RX")
		body = e.Packet.CommandText
		if e.Packet.ResultText != "" {
			body += styles.MutedStyle.Render(" => ") + printable(e.Packet.ResultText)
		}
	case EntryUnsolicited:
		indicator = styles.UnsolicitedStyle.Render("↙ --")
		body = printable(e.Packet.ResultText)
	case EntryError:
		indicator = styles.ErrorStyle.Render("✗ ERR")
		body = e.Packet.ResultText
		if e.Packet.Err != nil && e.Packet.Err.Error() != e.Packet.ResultText {
			body += styles.MutedStyle.Render(" (" + e.Packet.Err.Error() + ")")
		}
	default:
		indicator = styles.InfoStyle.Render("• INFO")
		body = e.Text
	}

	line := indicator + " " + body
	if f.ShowTimestamps {
		ts := styles.TimestampStyle.Render(fmt.Sprintf("[%s]", e.Timestamp.Format("15:04:05.000")))
		line = ts + " " + line
	}
	return line
}

func (f *Formatter) FormatAll(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = f.Format(e)
	}
	return out
}

// printable folds multi-line device output onto one line and replaces
// control characters.
func printable(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ⏎ ")
	s = strings.ReplaceAll(s, "\n", " ⏎ ")
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return '·'
		}
		return r
	}, s)
}

// Package repl correlates line-oriented commands sent to serial-attached
// microcontrollers with the replies they echo back.
//
// A Session owns one connection and a FIFO of commands that have been
// written but not yet confirmed. Every Poll reads what the device has
// buffered and classifies it:
//
//   - blank output or the bare prompt ">>>" is ignored
//   - output that arrives while nothing is pending (a boot banner, prints
//     from a running program) is unsolicited: it is delivered as a result
//     with HasExecuted false and no CommandText, after the prompt is
//     stripped; if only prompts remain it is dropped
//   - output that does not contain the oldest pending command is a desync
//   - anything else is a result: the echo and prompt are stripped and the
//     remaining text is delivered together with the command that caused it
//
// Unsolicited output is never a desync, so a quiet queue cannot raise one.
// A reply of more than 64 KiB buffered at once is split across polls.
//
// A Manager multiplexes sessions keyed by logical port number behind a
// single mutex. Callers drive it from one polling loop:
//
//	m := repl.NewManager(repl.WithObserver(repl.ObserverFuncs{
//	    Result: func(p repl.Packet) { fmt.Println(p.CommandText, "=>", p.ResultText) },
//	    Error:  func(p repl.Packet) { log.Println(p.ResultText) },
//	}))
//	defer m.Teardown()
//
//	if _, err := m.Open(3, 115200); err != nil {
//	    return err
//	}
//	m.Send(3, "machine.unique_id()")
//	for range time.Tick(time.Second) {
//	    m.PollAll()
//	}
//
// Notifications are delivered synchronously, before the call that produced
// them returns, and while the manager lock is held. Observers must not call
// back into the Manager.
//
// After a desync the session stays connected and keeps matching against
// whatever is next in its queue. Call Manager.Resync to drop the queue
// explicitly.
package repl

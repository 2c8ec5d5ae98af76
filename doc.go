// Package serial provides a small Linux serial port transport used by the
// repl package to talk to MicroPython-style boards.
//
// # Basic Usage
//
// Open a serial port with the default configuration (115200 8N1, RTS and
// DTR asserted, 1.5 second read timeout):
//
//	port, err := serial.Open("/dev/ttyACM0")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer port.Close()
//
//	n, err := port.Write([]byte("print(1)\r\n"))
//	buffer := make([]byte, 256)
//	n, err = port.Read(buffer)
//
// A read that sees no data before the timeout returns ErrReadTimeout. A write
// the driver stops accepting returns ErrWriteTimeout with the bytes written
// so far.
//
// # Configuration Options
//
//	port, err := serial.Open("/dev/ttyUSB0",
//	    serial.WithBaudRate(9600),
//	    serial.WithReadTimeout(500*time.Millisecond),
//	    serial.WithInitialDTR(false),
//	)
//
// # Port Discovery
//
//	ports, err := serial.ListPorts()
//	for _, portPath := range ports {
//	    info, _ := serial.GetPortInfo(portPath)
//	    fmt.Printf("%s: %s\n", info.Path, info.Description)
//	}
//
// # Error Handling
//
// Open maps errno values onto ErrDeviceNotFound, ErrPermissionDenied and
// ErrDeviceInUse; use errors.Is to check them.
//
// # Default Configuration
//
//   - BaudRate: 115200
//   - DataBits: 8
//   - StopBits: 1
//   - Parity: None
//   - ReadTimeout: 1.5 seconds
//   - WriteTimeout: 1.5 seconds
//   - RTS/DTR: asserted
package serial

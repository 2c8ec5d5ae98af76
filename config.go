package serial

import "time"

// maxReadTimeout is the largest VTIME value (255 deciseconds).
const maxReadTimeout = 25500 * time.Millisecond

// Config holds the configuration for a serial port
type Config struct {
	BaudRate    int
	DataBits    int
	StopBits    int
	Parity      Parity
	ReadTimeout time.Duration // 100ms resolution, 0 = non-blocking

	// How long Write and Drain wait for the driver to accept more bytes
	WriteTimeout time.Duration

	// Modem lines applied right after open, nil leaves the driver default
	InitialRTS *bool
	InitialDTR *bool
}

// Option is a functional option for configuring a serial port
type Option func(*Config) error

// DefaultConfig returns a configuration matching the line settings used by
// MicroPython-style REPL boards: 115200 8N1, RTS and DTR asserted, 1.5s reads
// and writes.
func DefaultConfig() Config {
	rts, dtr := true, true
	return Config{
		BaudRate:     115200,
		DataBits:     8,
		StopBits:     1,
		Parity:       ParityNone,
		ReadTimeout:  1500 * time.Millisecond,
		WriteTimeout: 1500 * time.Millisecond,
		InitialRTS:   &rts,
		InitialDTR:   &dtr,
	}
}

// readTimeoutTenths converts ReadTimeout to the termios VTIME unit
func (c Config) readTimeoutTenths() uint8 {
	return uint8(c.ReadTimeout / (100 * time.Millisecond))
}

// WithBaudRate sets the baud rate
func WithBaudRate(rate int) Option {
	return func(c *Config) error {
		if _, err := getBaudRate(rate); err != nil {
			return err
		}
		c.BaudRate = rate
		return nil
	}
}

// WithDataBits sets the number of data bits (5, 6, 7, or 8)
func WithDataBits(bits int) Option {
	return func(c *Config) error {
		if bits < 5 || bits > 8 {
			return ErrInvalidConfig
		}
		c.DataBits = bits
		return nil
	}
}

// WithStopBits sets the number of stop bits (1 or 2)
func WithStopBits(bits int) Option {
	return func(c *Config) error {
		if bits != 1 && bits != 2 {
			return ErrInvalidConfig
		}
		c.StopBits = bits
		return nil
	}
}

// WithParity sets the parity mode
func WithParity(parity Parity) Option {
	return func(c *Config) error {
		c.Parity = parity
		return nil
	}
}

// WithReadTimeout sets how long a read waits for the first byte.
// The kernel counts in tenths of a second, so the value must be a multiple
// of 100ms between 0 and 25.5s.
func WithReadTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		if timeout < 0 || timeout > maxReadTimeout {
			return ErrInvalidConfig
		}
		if timeout%(100*time.Millisecond) != 0 {
			return ErrInvalidConfig
		}
		c.ReadTimeout = timeout
		return nil
	}
}

// WithWriteTimeout bounds how long a write may stall on a device that stops
// draining its output. It must be positive.
func WithWriteTimeout(timeout time.Duration) Option {
	return func(c *Config) error {
		if timeout <= 0 {
			return ErrInvalidConfig
		}
		c.WriteTimeout = timeout
		return nil
	}
}

// WithInitialRTS sets the RTS line state applied when the port opens
func WithInitialRTS(state bool) Option {
	return func(c *Config) error {
		c.InitialRTS = &state
		return nil
	}
}

// WithInitialDTR sets the DTR line state applied when the port opens
func WithInitialDTR(state bool) Option {
	return func(c *Config) error {
		c.InitialDTR = &state
		return nil
	}
}

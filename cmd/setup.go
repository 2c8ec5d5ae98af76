/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/allbin/serialrepl/internal/config"
	"github.com/allbin/serialrepl/internal/logging"
	"github.com/allbin/serialrepl/repl"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/viper"
)

var (
	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("99")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("40")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// env is the loaded configuration and logger shared by the subcommands.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	closer io.Closer
}

func loadEnv() (*env, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	logger, closer, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	})
	if err != nil {
		return nil, err
	}

	return &env{cfg: cfg, logger: logger, closer: closer}, nil
}

func (e *env) Close() error {
	return e.closer.Close()
}

// managerOptions wires the configured backend, match policy, prompt and
// logger into repl options.
func (e *env) managerOptions(extra ...repl.Option) ([]repl.Option, error) {
	dialer, err := newDialer(e.cfg.Transport, e.logger)
	if err != nil {
		return nil, err
	}
	match, err := repl.MatcherByName(e.cfg.Match)
	if err != nil {
		return nil, err
	}

	opts := []repl.Option{
		repl.WithDialer(dialer),
		repl.WithMatcher(match),
		repl.WithPrompt(e.cfg.Prompt),
		repl.WithLogger(e.logger),
	}
	return append(opts, extra...), nil
}

func newDialer(t config.TransportConfig, logger *slog.Logger) (repl.Dialer, error) {
	switch strings.ToLower(t.Backend) {
	case "", "termios":
		d := repl.NewTermiosDialer(logger)
		if t.ReadTimeout > 0 {
			d.Timeout = t.ReadTimeout
		}
		return d, nil
	case "bugst":
		d := repl.NewBugstDialer()
		if t.ReadTimeout > 0 {
			d.Timeout = t.ReadTimeout
		}
		return d, nil
	default:
		return nil, fmt.Errorf("unknown backend %q", t.Backend)
	}
}

// resolvePath applies the configured match policy to the devices found by
// the configured backend.
func (e *env) resolvePath(port int) (string, error) {
	dialer, err := newDialer(e.cfg.Transport, e.logger)
	if err != nil {
		return "", err
	}
	candidates, err := dialer.Ports()
	if err != nil {
		return "", fmt.Errorf("listing ports: %w", err)
	}
	return matchPath(e.cfg.Match, port, candidates)
}

func matchPath(policy string, port int, candidates []string) (string, error) {
	match, err := repl.MatcherByName(policy)
	if err != nil {
		return "", err
	}
	path, ok := match(port, candidates)
	if !ok {
		return "", fmt.Errorf("%w: port %d (%d candidates)", repl.ErrPortNotFound, port, len(candidates))
	}
	return path, nil
}

// parsePort accepts a logical port number such as "3".
func parsePort(arg string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil || port < 0 {
		return 0, fmt.Errorf("invalid port %q: want a non-negative number", arg)
	}
	return port, nil
}

// baudOrDefault returns the --baud flag when set, else the configured rate.
func baudOrDefault(flag int, cfg *config.Config) int {
	if flag > 0 {
		return flag
	}
	return cfg.Transport.BaudRate
}

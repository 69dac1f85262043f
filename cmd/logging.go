package main

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"github.com/starnote/ai-gateway/internal/monitoring"
)

// setupLogging configures the global zerolog logger. The returned func
// closes the log file, if one was opened.
func setupLogging(cfg monitoring.LoggerConfig, debug bool) (func(), error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	out, closeFn, err := openLogOutput(cfg.Output)
	if err != nil {
		return nil, err
	}

	var w io.Writer = out
	if useConsoleFormat(cfg.Format, out) {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()

	// net/http server errors go through the standard logger
	stdlog.SetFlags(0)
	stdlog.SetOutput(log.Logger)

	return closeFn, nil
}

func openLogOutput(output string) (*os.File, func(), error) {
	switch output {
	case "", "stderr":
		return os.Stderr, func() {}, nil
	case "stdout":
		return os.Stdout, func() {}, nil
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file %s: %w", output, err)
		}
		return f, func() { _ = f.Close() }, nil
	}
}

// useConsoleFormat picks human-readable output for "console", and for
// "auto" when out is a terminal.
func useConsoleFormat(format string, out *os.File) bool {
	switch format {
	case "console":
		return true
	case "json":
		return false
	default:
		return term.IsTerminal(int(out.Fd()))
	}
}

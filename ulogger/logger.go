// Package ulogger provides the structured, leveled logger used by every
// axiomd component. It wraps zerolog the same way the upstream chain node
// does: a pretty console writer for interactive use, a plain JSON writer for
// production, selected by configuration.
package ulogger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	colorBlack = iota + 30
	colorRed
	colorGreen
	colorYellow
	colorBlue
	colorMagenta
	colorCyan
	colorWhite

	colorBold = 1
)

// Logger is the interface every axiomd package logs through. Components
// never depend on zerolog directly so the backend can be swapped in tests.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})

	With() zerolog.Context
}

// ZLoggerWrapper adapts a zerolog.Logger to the Logger interface, tagging
// every line with the emitting component's name.
type ZLoggerWrapper struct {
	zerolog.Logger
	service string
}

// New builds the default logger for service at the given level; pretty
// selects the console writer, whose colours the NO_COLOR environment
// variable turns off.
func New(service string, level string, pretty bool) *ZLoggerWrapper {
	if service == "" {
		service = "axiomd"
	}

	var z *ZLoggerWrapper
	if pretty {
		z = prettyLogger(service)
	} else {
		z = &ZLoggerWrapper{
			zerolog.New(os.Stdout).With().
				Timestamp().
				Str("service", service).
				Logger(),
			service,
		}
	}

	setLevel(level, z)
	return z
}

func setLevel(level string, z *ZLoggerWrapper) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		z.Logger = z.Logger.Level(zerolog.DebugLevel)
	case "INFO":
		z.Logger = z.Logger.Level(zerolog.InfoLevel)
	case "WARN":
		z.Logger = z.Logger.Level(zerolog.WarnLevel)
	case "ERROR":
		z.Logger = z.Logger.Level(zerolog.ErrorLevel)
	case "FATAL":
		z.Logger = z.Logger.Level(zerolog.FatalLevel)
	default:
		z.Logger = z.Logger.Level(zerolog.InfoLevel)
	}
}

func prettyLogger(service string) *ZLoggerWrapper {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}

	output.FormatTimestamp = func(i interface{}) string {
		parsed, _ := time.Parse(time.RFC3339, fmt.Sprintf("%v", i))
		return parsed.Format("15:04:05")
	}

	output.FormatLevel = func(i interface{}) string {
		l := strings.ToUpper(fmt.Sprintf("%-6s", i))
		switch i {
		case "debug":
			l = colorize(l, colorBlue)
		case "info":
			l = colorize(l, colorGreen)
		case "warn":
			l = colorize(l, colorYellow)
		case "error", "fatal", "panic":
			l = colorize(l, colorRed)
		default:
			l = colorize(l, colorWhite)
		}
		return fmt.Sprintf("| %s|", l)
	}

	output.FormatMessage = func(i interface{}) string {
		return fmt.Sprintf("| %-10s| %s", service, i)
	}

	output.FormatFieldName = func(i interface{}) string { return fmt.Sprintf("%s:", i) }

	output.FormatCaller = func(i interface{}) string {
		c, _ := i.(string)
		if c == "" {
			return c
		}
		if cwd, err := os.Getwd(); err == nil {
			if rel, err := filepath.Rel(cwd, c); err == nil {
				c = rel
			}
		}
		return colorize(c, colorBold)
	}

	return &ZLoggerWrapper{
		zerolog.New(output).With().
			CallerWithSkipFrameCount(zerolog.CallerSkipFrameCount + 1).
			Timestamp().
			Logger(),
		service,
	}
}

func (z *ZLoggerWrapper) Debugf(format string, args ...interface{}) { z.Logger.Debug().Msgf(format, args...) }
func (z *ZLoggerWrapper) Infof(format string, args ...interface{})  { z.Logger.Info().Msgf(format, args...) }
func (z *ZLoggerWrapper) Warnf(format string, args ...interface{})  { z.Logger.Warn().Msgf(format, args...) }
func (z *ZLoggerWrapper) Errorf(format string, args ...interface{}) { z.Logger.Error().Msgf(format, args...) }
func (z *ZLoggerWrapper) Fatalf(format string, args ...interface{}) { z.Logger.Fatal().Msgf(format, args...) }

// With creates a child-logger builder so callers can attach structured
// fields (peer id, block height, ...) before emitting a line.
func (z *ZLoggerWrapper) With() zerolog.Context { return z.Logger.With() }

// Output duplicates the logger with a new sink, used by tests that want to
// capture log lines into a buffer.
func (z *ZLoggerWrapper) Output(w io.Writer) *ZLoggerWrapper {
	return &ZLoggerWrapper{z.Logger.Output(w), z.service}
}

func colorize(s string, c int) string {
	if os.Getenv("NO_COLOR") != "" || c == 0 {
		return s
	}
	return fmt.Sprintf("\x1b[%dm%s\x1b[0m", c, s)
}

// TestLogger returns a quiet logger suitable for unit tests: it discards
// output unless AXIOM_TEST_LOGS is set, mirroring how the teacher's test
// suites silence service logs by default.
func TestLogger(service string) *ZLoggerWrapper {
	if os.Getenv("AXIOM_TEST_LOGS") != "" {
		return New(service, "debug", true)
	}
	return &ZLoggerWrapper{zerolog.New(io.Discard), service}
}

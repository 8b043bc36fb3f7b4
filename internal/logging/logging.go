// Package logging configures the process-wide log output: a console writer
// on stderr plus, once the configuration is known, a rotating file sink.
package logging

import (
	"io"
	"os"

	"gorsync-backup/internal/models"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options control verbosity and the console format.
type Options struct {
	Verbose bool
	Quiet   bool
	JSON    bool
}

// New builds the console-only logger used before the configuration is
// loaded.
func New(opts Options) zerolog.Logger {
	return zerolog.New(consoleWriter(opts)).Level(level(opts)).With().Timestamp().Logger()
}

// WithFile extends the console logger with the persistent log file. The
// file is rotated by size and rotated copies are pruned by age.
//
// The file sink is unfiltered and records debug detail, including captured
// subprocess output; the console honors the selected verbosity, so that
// detail reaches the terminal only with --verbose.
func WithFile(opts Options, cfg models.LogConfig) zerolog.Logger {
	file := &lumberjack.Logger{
		Filename: cfg.Path,
		MaxSize:  cfg.MaxSizeMB,
		MaxAge:   cfg.MaxAgeDays,
	}
	console := &zerolog.FilteredLevelWriter{
		Writer: zerolog.LevelWriterAdapter{Writer: consoleWriter(opts)},
		Level:  level(opts),
	}
	writer := zerolog.MultiLevelWriter(console, file)
	return zerolog.New(writer).Level(zerolog.DebugLevel).With().Timestamp().Logger()
}

func consoleWriter(opts Options) io.Writer {
	if opts.JSON {
		return os.Stderr
	}
	return zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
}

func level(opts Options) zerolog.Level {
	switch {
	case opts.Quiet:
		return zerolog.WarnLevel
	case opts.Verbose:
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}

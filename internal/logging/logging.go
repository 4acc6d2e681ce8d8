// Package logging builds the zap logger used by the CLI.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures New.
type Options struct {
	// Level is the minimum level written to the log file ("info" if empty).
	Level string

	// File is the JSON log file; DefaultLogPath() if empty, "-" disables it.
	File string

	// Console receives warnings and errors in human form; nil disables it.
	Console io.Writer
}

// DefaultLogPath returns $XDG_DATA_HOME/iromo/logs/iromo.log, falling back
// to ~/.local/share.
func DefaultLogPath() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "iromo", "logs", "iromo.log")
}

// ParseLevel converts a config level name to a zap level.
func ParseLevel(level string) (zapcore.Level, error) {
	if level == "" {
		return zapcore.InfoLevel, nil
	}
	l, err := zapcore.ParseLevel(level)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return l, nil
}

// New returns a logger writing JSON lines to the log file and warnings to
// the console. The returned close func syncs and closes the file.
func New(opts Options) (*zap.Logger, func() error, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	var cores []zapcore.Core
	closeFn := func() error { return nil }

	path := opts.File
	if path == "" {
		path = DefaultLogPath()
	}
	if path != "" && path != "-" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, nil, fmt.Errorf("creating log directory: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(f), level))
		closeFn = func() error {
			_ = f.Sync()
			return f.Close()
		}
	}

	if opts.Console != nil {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.TimeKey = ""
		encCfg.CallerKey = ""
		consoleLevel := zapcore.WarnLevel
		if level > consoleLevel {
			consoleLevel = level
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(opts.Console), consoleLevel))
	}

	if len(cores) == 0 {
		return zap.NewNop(), closeFn, nil
	}
	return zap.New(zapcore.NewTee(cores...)), closeFn, nil
}

// Package logger wraps zap's SugaredLogger. The live dashboard owns the
// terminal, so it logs to a file; headless commands log to stdout.
package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log levels accepted in configuration.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

// Stdout is the path value that selects standard output as the sink.
const Stdout = "-"

// Logger wraps zap's SugaredLogger.
type Logger struct {
	*zap.SugaredLogger
	closer func() error
}

// toZapLevel converts a textual level, falling back to info.
func toZapLevel(levelStr string) zapcore.Level {
	switch strings.ToLower(levelStr) {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// New builds a logger at the given level writing JSON lines to path, or a
// console encoder on stdout when path is "" or "-".
func New(level, path string) (*Logger, error) {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	if path == "" || path == Stdout {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		core := zapcore.NewCore(
			zapcore.NewConsoleEncoder(encCfg),
			zapcore.Lock(os.Stdout),
			zap.NewAtomicLevelAt(toZapLevel(level)),
		)
		return &Logger{SugaredLogger: zap.New(core).Sugar()}, nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encCfg),
		zapcore.AddSync(f),
		zap.NewAtomicLevelAt(toZapLevel(level)),
	)
	return &Logger{SugaredLogger: zap.New(core).Sugar(), closer: f.Close}, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// Close flushes buffered entries and releases the file sink, if any.
func (l *Logger) Close() error {
	_ = l.Sync()
	if l.closer != nil {
		return l.closer()
	}
	return nil
}

package log

import (
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/YuminosukeSato/decisionforest/pkg/errors"
)

var (
	globalMu     sync.RWMutex
	globalLogger Logger = NewZerologLogger(os.Stderr, LevelWarn)
)

func init() {
	errors.SetZerologWarnFunc(func(w error) {
		GetLogger().Warn(w.Error(), "warning", w)
	})
}

// GetLogger returns the package-wide logger.
func GetLogger() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// GetLoggerWithName returns the package-wide logger tagged with a component name.
func GetLoggerWithName(name string) Logger {
	return GetLogger().With(ComponentKey, name)
}

// SetLogger replaces the package-wide logger. A nil logger silences output.
func SetLogger(l Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = OrNop(l)
}

// SetupLogger configures both the package-wide zerolog logger and the slog default
// to write JSON records to w. slog records carrying an error get its stack trace.
func SetupLogger(w io.Writer, loglevel string) error {
	level, ok := ParseLevel(loglevel)
	if !ok {
		return errors.NewValidationError("log-level", "must be one of debug, info, warn, error", loglevel)
	}

	ops := slog.HandlerOptions{
		AddSource: true,
		Level:     slog.Level(level),
	}
	handler := slog.NewJSONHandler(w, &ops)
	slog.SetDefault(slog.New(WrapByErrFmtHandler(handler)))

	SetLogger(NewZerologLogger(w, level))
	return nil
}

const (
	ErrAttrKey        = "error"
	StacktraceAttrKey = "stacktrace"
)

// ErrAttr is a wrapper to pass err to slog.
func ErrAttr(err error) slog.Attr {
	return slog.Any(ErrAttrKey, err)
}

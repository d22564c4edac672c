package logger

import (
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// The process-wide logger. It starts as a nop so packages may log during
// tests and early bootstrap before Init has run.
var global atomic.Pointer[zap.Logger]

func init() {
	global.Store(zap.NewNop())
}

// Init installs a production JSON logger at the given level. Unknown level
// strings fall back to info rather than failing startup.
func Init(level string) error {
	parsed, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		parsed = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parsed)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	built, err := cfg.Build()
	if err != nil {
		return err
	}

	global.Store(built)
	return nil
}

// Logger returns the current process-wide logger.
func Logger() *zap.Logger {
	return global.Load()
}

// WithModule returns a child logger tagged with the owning module, the
// convention every package here uses instead of per-package loggers.
func WithModule(module string) *zap.Logger {
	return Logger().With(zap.String("module", module))
}

// Sync flushes buffered entries. Called once on shutdown.
func Sync() error {
	return Logger().Sync()
}

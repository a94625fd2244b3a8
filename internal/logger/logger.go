// Package logger provides the shared zap logger. Level comes from LOG_LEVEL
// and the encoder from ENVIRONMENT (production uses JSON).
package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger *zap.SugaredLogger
	once   sync.Once
)

// IsTest switches the logger to a development config on stdout.
var IsTest bool

// Options overrides the environment-driven configuration. The terminal
// inbox uses it to redirect logs away from the screen.
type Options struct {
	OutputPaths []string
}

var opts Options

func initLoggerInternal() {
	var (
		zapLogger *zap.Logger
		err       error
		level     zapcore.Level
	)

	if err := level.UnmarshalText([]byte(os.Getenv("LOG_LEVEL"))); err != nil {
		level = zapcore.InfoLevel
	}

	var cfg zap.Config
	switch {
	case IsTest:
		cfg = zap.NewDevelopmentConfig()
		cfg.OutputPaths = []string{"stdout"}
	case os.Getenv("ENVIRONMENT") == "production":
		cfg = zap.NewProductionConfig()
		cfg.OutputPaths = []string{"stdout"}
		cfg.ErrorOutputPaths = []string{"stderr"}
	default:
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	if len(opts.OutputPaths) > 0 {
		cfg.OutputPaths = opts.OutputPaths
	}

	zapLogger, err = cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	logger = zapLogger.Sugar()
}

// InitLogger initializes the global logger once. Options only take effect
// on the first call.
func InitLogger(o ...Options) {
	if len(o) > 0 {
		opts = o[0]
	}
	once.Do(initLoggerInternal)
}

// GetLogger returns the shared sugared logger, initializing it on first use.
func GetLogger() *zap.SugaredLogger {
	once.Do(initLoggerInternal)
	return logger
}

// Named returns a structured child logger for a component.
func Named(name string) *zap.Logger {
	return GetLogger().Desugar().Named(name)
}

// Close flushes buffered log entries.
func Close() error {
	if logger != nil && !IsTest {
		if err := logger.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "Error syncing logger: %v\n", err)
			return err
		}
	}
	return nil
}

// MaskSensitiveString masks the middle of s, keeping prefixLen leading and
// suffixLen trailing characters.
func MaskSensitiveString(s string, prefixLen, suffixLen int) string {
	if s == "" {
		return ""
	}
	if len(s) < prefixLen+suffixLen+3 {
		return strings.Repeat("*", len(s))
	}
	return s[:prefixLen] + "..." + s[len(s)-suffixLen:]
}

// MaskToken is MaskSensitiveString tuned for GitHub tokens (ghp_...).
func MaskToken(token string) string {
	return MaskSensitiveString(token, 4, 4)
}

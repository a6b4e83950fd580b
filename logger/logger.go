package logger

import (
	"log"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger returns the development logger used across favdial.
func NewLogger() *zap.SugaredLogger {
	return NewLoggerWithLevel("debug")
}

// NewLoggerWithLevel is NewLogger with a minimum level, e.g. "info" or "warn".
// An unknown level falls back to debug.
func NewLoggerWithLevel(level string) *zap.SugaredLogger {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zapcore.DebugLevel
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)

	logger, err := config.Build()
	if err != nil {
		log.Panic(err)
	}

	// flushes buffer, if any
	defer logger.Sync()

	return logger.Sugar()
}

// OrNop returns logg, or a no-op logger when logg is nil.
func OrNop(logg *zap.SugaredLogger) *zap.SugaredLogger {
	if logg == nil {
		return zap.NewNop().Sugar()
	}
	return logg
}

// Package observ builds the process-wide zap logger.
//
// Every component receives a *zap.Logger through its constructor rather
// than reaching for a global, so tests can hand in zap.NewNop() or an
// observer core and assert on what was logged.
package observ

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger picks the encoder from env and the level from level.
//
// Production ("production"):
//   - JSON lines, one object per entry, for the log shipper to index.
//   - "timestamp" in ISO8601 instead of zap's default epoch float, so
//     entries read correctly when a clinic's timezone differs from UTC.
//
// Anything else:
//   - Console encoder with colored levels for local runs.
//
// level is any zapcore level name ("debug", "info", "warn", "error").
// An unknown name falls back to info instead of failing startup over a
// typo in LOG_LEVEL. Every entry carries service=medroster so mixed log
// streams can be filtered.
func NewLogger(env, level string) (*zap.Logger, error) {
	var config zap.Config

	if env == "production" {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		zapLevel = zapcore.InfoLevel
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("service", "medroster")), nil
}

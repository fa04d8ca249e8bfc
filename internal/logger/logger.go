package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const ProductionEnv = "production"

// Config selects the level and the encoding of the logger
type Config struct {
	Level   string
	Env     string
	Service string
	// Stderr sends every entry to stderr so stdout stays clean for command output
	Stderr bool
}

// ParseLevel maps a level name to a zap level, falling back to info
func ParseLevel(name string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

// New builds a JSON logger in production and a console logger everywhere else
func New(cfg Config) (*zap.Logger, error) {
	level := ParseLevel(cfg.Level)

	var zapConfig zap.Config
	if cfg.Env == ProductionEnv {
		zapConfig = zap.NewProductionConfig()
		zapConfig.EncoderConfig.TimeKey = "timestamp"
		zapConfig.EncoderConfig.MessageKey = "message"
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		if cfg.Service != "" {
			zapConfig.InitialFields = map[string]interface{}{
				"service": cfg.Service,
				"env":     cfg.Env,
			}
		}
	} else {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		zapConfig.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)
	zapConfig.DisableStacktrace = cfg.Env == ProductionEnv && level > zapcore.DebugLevel
	if cfg.Stderr {
		zapConfig.OutputPaths = []string{"stderr"}
	}

	return zapConfig.Build()
}

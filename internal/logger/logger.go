package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "tit-pharmacy"

// Option adjusts the zap configuration before the logger is built
type Option func(*zap.Config) error

// WithLevel overrides the environment's default level. An empty level keeps
// the default.
func WithLevel(level string) Option {
	return func(c *zap.Config) error {
		if level == "" {
			return nil
		}
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", level, err)
		}
		c.Level = zap.NewAtomicLevelAt(lvl)
		return nil
	}
}

// New creates the service logger. Production logs are JSON at info level,
// everything else is console output with colored levels at debug.
func New(env string, opts ...Option) (*zap.Logger, error) {
	var config zap.Config

	if env == "production" {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	// Always log to stdout for container compatibility
	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}

	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return nil, err
		}
	}

	logger, err := config.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return logger.With(zap.String("service", serviceName)), nil
}

// Component returns a child logger tagged with the component name
func Component(l *zap.Logger, name string) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l.Named(name)
}

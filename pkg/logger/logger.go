package logger

import (
	"context"
	"fmt"

	"buildflow/pkg/config"
	"buildflow/pkg/trace"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger. Unknown levels are an error rather than a
// silent fallback to info.
func New(cfg config.LogConfig, service string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.EncoderConfig.TimeKey = "ts"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("parse log level %q: %w", cfg.Level, err)
		}
		zcfg.Level = level
	}

	l, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	return l.With(zap.String("service", service)), nil
}

// WithTrace adds trace_id and run_id from ctx when present.
func WithTrace(ctx context.Context, logger *zap.Logger) *zap.Logger {
	if traceID := trace.FromContext(ctx); traceID != "" {
		logger = logger.With(zap.String("trace_id", traceID))
	}
	if runID := trace.RunIDFromContext(ctx); runID != "" {
		logger = logger.With(zap.String("run_id", runID))
	}
	return logger
}

// ForProject scopes logger to one project.
func ForProject(ctx context.Context, logger *zap.Logger, projectID int) *zap.Logger {
	return WithTrace(ctx, logger).With(zap.Int("project_id", projectID))
}

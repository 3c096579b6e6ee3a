// Package kernellog provides the structured, leveled logging wrapper used
// by every kernel component. It mirrors the context-aware logger pattern
// used elsewhere in this codebase: a base logrus.Logger wrapped by a
// ContextLogger that accumulates fields and can be derived per call site.
package kernellog

import (
	"context"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
)

// Level is a minimum log level selector.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Config configures a new base logger.
type Config struct {
	Level     Level
	Format    string // "json" or "text"
	Component string
	AddCaller bool
}

func DefaultConfig(component string) Config {
	return Config{Level: LevelInfo, Format: "json", Component: component}
}

// New creates a configured *logrus.Logger.
func New(cfg Config) *logrus.Logger {
	logger := logrus.New()

	switch cfg.Level {
	case LevelDebug:
		logger.SetLevel(logrus.DebugLevel)
	case LevelWarn:
		logger.SetLevel(logrus.WarnLevel)
	case LevelError:
		logger.SetLevel(logrus.ErrorLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{TimestampFormat: time.RFC3339, FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	}

	logger.SetReportCaller(cfg.AddCaller)
	return logger
}

// ContextLogger accumulates fields across a call chain.
type ContextLogger struct {
	logger *logrus.Logger
	fields logrus.Fields
}

func NewContextLogger(logger *logrus.Logger, component string) *ContextLogger {
	return &ContextLogger{logger: logger, fields: logrus.Fields{"component": component}}
}

func (c *ContextLogger) clone() *ContextLogger {
	next := logrus.Fields{}
	for k, v := range c.fields {
		next[k] = v
	}
	return &ContextLogger{logger: c.logger, fields: next}
}

func (c *ContextLogger) WithField(key string, value interface{}) *ContextLogger {
	nc := c.clone()
	nc.fields[key] = value
	return nc
}

func (c *ContextLogger) WithFields(fields map[string]interface{}) *ContextLogger {
	nc := c.clone()
	for k, v := range fields {
		nc.fields[k] = v
	}
	return nc
}

func (c *ContextLogger) WithError(err error) *ContextLogger {
	return c.WithField("error", err.Error())
}

// WithContext extracts well-known correlation fields from ctx, matching
// the request_id/trace_id/case_id convention used across the codebase.
func (c *ContextLogger) WithContext(ctx context.Context) *ContextLogger {
	nc := c.clone()
	for _, key := range []string{"request_id", "trace_id", "case_id"} {
		if v := ctx.Value(ctxKey(key)); v != nil {
			nc.fields[key] = v
		}
	}
	return nc
}

type ctxKey string

func (c *ContextLogger) entry() *logrus.Entry { return c.logger.WithFields(c.fields) }

func (c *ContextLogger) Debug(args ...interface{}) { c.entry().Debug(args...) }
func (c *ContextLogger) Info(args ...interface{})  { c.entry().Info(args...) }
func (c *ContextLogger) Warn(args ...interface{})  { c.entry().Warn(args...) }
func (c *ContextLogger) Error(args ...interface{}) { c.entry().Error(args...) }

func (c *ContextLogger) Debugf(format string, args ...interface{}) { c.entry().Debugf(format, args...) }
func (c *ContextLogger) Infof(format string, args ...interface{})  { c.entry().Infof(format, args...) }
func (c *ContextLogger) Warnf(format string, args ...interface{})  { c.entry().Warnf(format, args...) }
func (c *ContextLogger) Errorf(format string, args ...interface{}) { c.entry().Errorf(format, args...) }

// LogOperation times fn and logs its start and outcome under "operation".
func LogOperation(logger *ContextLogger, operation string, fn func() error) error {
	start := time.Now()
	l := logger.WithField("operation", operation)
	l.Debug("operation started")
	err := fn()
	fields := map[string]interface{}{"operation": operation, "duration_ms": time.Since(start).Milliseconds()}
	if err != nil {
		logger.WithFields(fields).WithError(err).Error("operation failed")
		return err
	}
	logger.WithFields(fields).Debug("operation completed")
	return nil
}

// LogPanic recovers a panic, logging it with a stack trace, and re-panics
// after logging so supervision can still observe the crash.
func LogPanic(logger *ContextLogger) {
	if r := recover(); r != nil {
		buf := make([]byte, 8192)
		n := runtime.Stack(buf, false)
		logger.WithFields(map[string]interface{}{
			"panic": r,
			"stack": string(buf[:n]),
		}).Error("recovered panic")
		panic(r)
	}
}

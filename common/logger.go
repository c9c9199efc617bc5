// Package common holds the small pieces of ambient infrastructure shared
// across the ingestion service: structured logging and the grouped
// diagnostics channel used by the background command bus.
package common

import (
	"time"

	"github.com/sirupsen/logrus"
)

// LogLevel is one of the standard logrus levels, expressed as a string so
// it can be read straight out of an environment variable.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LoggerConfig controls how NewLogger builds the root logger.
type LoggerConfig struct {
	Level   LogLevel
	Format  string // "json" or "text"
	Service string
}

// DefaultLoggerConfig returns text-formatted, info-level defaults.
func DefaultLoggerConfig() LoggerConfig {
	return LoggerConfig{
		Level:   LogLevelInfo,
		Format:  "text",
		Service: "eventline",
	}
}

// NewLogger builds a logrus.Logger with level/format applied and output
// split across stdout/stderr by level.
func NewLogger(cfg LoggerConfig) *logrus.Logger {
	logger := logrus.New()

	switch cfg.Level {
	case LogLevelDebug:
		logger.SetLevel(logrus.DebugLevel)
	case LogLevelWarn:
		logger.SetLevel(logrus.WarnLevel)
	case LogLevelError:
		logger.SetLevel(logrus.ErrorLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{TimestampFormat: time.RFC3339, FullTimestamp: true})
	}

	logger.SetOutput(&OutputSplitter{})
	return logger
}

// ContextLogger carries a fixed set of fields through a request or
// background task so call sites don't repeat WithFields boilerplate.
type ContextLogger struct {
	logger *logrus.Logger
	fields logrus.Fields
}

// NewContextLogger wraps logger with the given base fields.
func NewContextLogger(logger *logrus.Logger, fields map[string]interface{}) *ContextLogger {
	base := make(logrus.Fields, len(fields))
	for k, v := range fields {
		base[k] = v
	}
	return &ContextLogger{logger: logger, fields: base}
}

// WithField returns a copy of cl with an additional field.
func (cl *ContextLogger) WithField(key string, value interface{}) *ContextLogger {
	next := make(logrus.Fields, len(cl.fields)+1)
	for k, v := range cl.fields {
		next[k] = v
	}
	next[key] = value
	return &ContextLogger{logger: cl.logger, fields: next}
}

// WithError returns a copy of cl with the error's message attached.
func (cl *ContextLogger) WithError(err error) *ContextLogger {
	return cl.WithField("error", err.Error())
}

func (cl *ContextLogger) Debug(msg string) { cl.logger.WithFields(cl.fields).Debug(msg) }
func (cl *ContextLogger) Info(msg string)  { cl.logger.WithFields(cl.fields).Info(msg) }
func (cl *ContextLogger) Warn(msg string)  { cl.logger.WithFields(cl.fields).Warn(msg) }
func (cl *ContextLogger) Error(msg string) { cl.logger.WithFields(cl.fields).Error(msg) }

func (cl *ContextLogger) Debugf(format string, args ...interface{}) {
	cl.logger.WithFields(cl.fields).Debugf(format, args...)
}
func (cl *ContextLogger) Infof(format string, args ...interface{}) {
	cl.logger.WithFields(cl.fields).Infof(format, args...)
}
func (cl *ContextLogger) Errorf(format string, args ...interface{}) {
	cl.logger.WithFields(cl.fields).Errorf(format, args...)
}

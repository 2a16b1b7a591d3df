// Package logger provides the structured logging facade used across the
// shop service. It wraps logrus so that services depend on a single small
// surface instead of a concrete logging library.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// LoggingConfig controls logger construction.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string
	// Format is "json" or "text".
	Format string
	// Output is "stdout", "stderr" or a file path.
	Output string
	// Component is attached to every entry as the "component" field.
	Component string
}

// Logger is a structured logger bound to a component.
type Logger struct {
	entry *logrus.Entry
}

// New constructs a logger from configuration.
func New(cfg LoggingConfig) *Logger {
	l := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	switch cfg.Output {
	case "", "stdout":
		l.SetOutput(os.Stdout)
	case "stderr":
		l.SetOutput(os.Stderr)
	default:
		if f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			l.SetOutput(f)
		} else {
			l.SetOutput(os.Stdout)
		}
	}

	entry := logrus.NewEntry(l)
	if cfg.Component != "" {
		entry = entry.WithField("component", cfg.Component)
	}
	return &Logger{entry: entry}
}

// NewDefault returns an info-level text logger for the given component.
func NewDefault(component string) *Logger {
	return New(LoggingConfig{Level: "info", Component: component})
}

// SetOutput redirects the underlying logger output. Mainly used by tests.
func (l *Logger) SetOutput(w io.Writer) {
	l.entry.Logger.SetOutput(w)
}

// WithField returns a logger with an additional structured field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{entry: l.entry.WithField(key, value)}
}

// WithError returns a logger with the error attached.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{entry: l.entry.WithError(err)}
}

func (l *Logger) Debug(args ...interface{})                 { l.entry.Debug(args...) }
func (l *Logger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *Logger) Info(args ...interface{})                  { l.entry.Info(args...) }
func (l *Logger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *Logger) Warn(args ...interface{})                  { l.entry.Warn(args...) }
func (l *Logger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *Logger) Error(args ...interface{})                 { l.entry.Error(args...) }
func (l *Logger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

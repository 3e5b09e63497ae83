// Package log provides the logging interface used throughout the emulator.
package log

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the subset of a logrus logger the emulator calls.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// Level is the minimum severity a logger created by New emits.
type Level = logrus.Level

const (
	ErrorLevel = logrus.ErrorLevel
	WarnLevel  = logrus.WarnLevel
	InfoLevel  = logrus.InfoLevel
	DebugLevel = logrus.DebugLevel
)

// New returns a logrus backed Logger writing text to stderr at info level.
func New() Logger {
	return NewWithOutput(os.Stderr, InfoLevel)
}

// NewWithOutput returns a logrus backed Logger writing to w, discarding
// messages below level.
func NewWithOutput(w io.Writer, level Level) Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})
	return logger
}

// NewNullLogger returns a Logger that discards everything without
// formatting it.
func NewNullLogger() Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

// WithComponent returns a Logger that tags every entry with the given
// component name, when l is logrus backed. Other loggers are returned
// unchanged.
func WithComponent(l Logger, component string) Logger {
	if fl, ok := l.(logrus.FieldLogger); ok {
		return fl.WithField("component", component)
	}
	return l
}

package log

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewWithOutput(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithOutput(&buf, InfoLevel)

	l.Debugf("hidden %d", 1)
	l.Infof("mapper %d", 4)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug message written at info level: %q", out)
	}
	if !strings.Contains(out, "mapper 4") {
		t.Errorf("expected info message in output, got %q", out)
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := WithComponent(NewWithOutput(&buf, DebugLevel), "cart")
	l.Infof("bus conflict")

	if out := buf.String(); !strings.Contains(out, "component=cart") {
		t.Errorf("expected component field in output, got %q", out)
	}

	// loggers that aren't logrus backed are returned as is
	var l2 Logger = quietLogger{}
	if WithComponent(l2, "cart") != l2 {
		t.Error("expected a foreign logger to be returned unchanged")
	}
}

type quietLogger struct{}

func (quietLogger) Infof(string, ...interface{})  {}
func (quietLogger) Errorf(string, ...interface{}) {}
func (quietLogger) Debugf(string, ...interface{}) {}

func TestNewNullLogger(t *testing.T) {
	l := NewNullLogger()
	l.Infof("discarded")
	l.Errorf("discarded")

	if fl, ok := l.(*logrus.Logger); !ok || fl.IsLevelEnabled(logrus.ErrorLevel) {
		t.Error("expected a logrus logger with every level disabled")
	}
}

package cli

import (
	"bytes"
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNewLoggerTimestamp(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, log.InfoLevel).Info("building", "crate", "serde@1.0.197")

	out := buf.String()
	if !regexp.MustCompile(`^\d{2}:\d{2}:\d{2}\.\d{2} `).MatchString(out) {
		t.Errorf("output %q does not start with an HH:MM:SS.cc timestamp", out)
	}
	if !strings.Contains(out, "crate=serde@1.0.197") {
		t.Errorf("output %q is missing the crate field", out)
	}
}

func TestSetLogLevel(t *testing.T) {
	tests := []struct {
		name    string
		level   log.Level
		logFunc func(*log.Logger)
		wantLog bool
	}{
		{"cache hit hidden at info", LogInfo, func(l *log.Logger) { l.Debug("cache hit") }, false},
		{"cache hit shown at debug", LogDebug, func(l *log.Logger) { l.Debug("cache hit") }, true},
		{"omission shown at info", LogInfo, func(l *log.Logger) { l.Warn("omitting dependency") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			c := New(&buf, LogInfo)
			c.SetLogLevel(tt.level)
			tt.logFunc(c.Logger)

			if got := buf.Len() > 0; got != tt.wantLog {
				t.Errorf("got log output = %v, want %v", got, tt.wantLog)
			}
		})
	}
}

func TestProgressReportsElapsed(t *testing.T) {
	var buf bytes.Buffer
	newProgress(newLogger(&buf, log.InfoLevel)).done("Built serde@1.0.197")

	if !regexp.MustCompile(`Built serde@1\.0\.197 \(\d+(\.\d+)?[µnm]?s\)`).MatchString(buf.String()) {
		t.Errorf("progress output %q lacks the elapsed duration", buf.String())
	}
}

func TestProgressSilentAboveInfo(t *testing.T) {
	var buf bytes.Buffer
	newProgress(newLogger(&buf, log.WarnLevel)).done("Committed index")

	if buf.Len() != 0 {
		t.Errorf("progress wrote %q at warn level", buf.String())
	}
}

func TestLoggerFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, log.InfoLevel)

	if got := loggerFromContext(withLogger(context.Background(), logger)); got != logger {
		t.Error("loggerFromContext should return the attached logger")
	}
	if loggerFromContext(context.Background()) != log.Default() {
		t.Error("loggerFromContext should fall back to log.Default()")
	}
}

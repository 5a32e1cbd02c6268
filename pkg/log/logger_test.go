// Structured logging tests
//
// Copyright (C) 2026  Knitout Visualizer Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func newTestLogger(prefix string) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := New(prefix)
	logger.SetWriter(&buf)
	logger.SetLevel(DEBUG)
	return logger, &buf
}

func TestLoggerBasic(t *testing.T) {
	logger, buf := newTestLogger("test")

	logger.Info("hello %s", "world")

	output := buf.String()
	if !strings.Contains(output, "[INFO ]") {
		t.Errorf("expected INFO level, got: %s", output)
	}
	if !strings.Contains(output, "test:") {
		t.Errorf("expected prefix 'test:', got: %s", output)
	}
	if !strings.Contains(output, "hello world") {
		t.Errorf("expected message 'hello world', got: %s", output)
	}
	if strings.Contains(output, "\x1b[") {
		t.Errorf("expected no color codes for a buffer writer, got: %q", output)
	}
}

func TestLoggerLevels(t *testing.T) {
	logger, buf := newTestLogger("test")
	logger.SetLevel(WARN)

	logger.Debug("debug message")
	logger.Info("info message")
	if buf.Len() != 0 {
		t.Errorf("expected DEBUG and INFO to be filtered, got: %s", buf.String())
	}

	logger.Warn("warn message")
	if !strings.Contains(buf.String(), "warn message") {
		t.Errorf("expected WARN to pass, got: %s", buf.String())
	}
	buf.Reset()

	logger.Error("error message")
	if !strings.Contains(buf.String(), "error message") {
		t.Errorf("expected ERROR to pass, got: %s", buf.String())
	}
}

func TestLoggerJSON(t *testing.T) {
	logger, buf := newTestLogger("interp")
	logger.SetFormat(FormatJSON)

	logger.WithFields(Fields{"line": 7, "op": "x-foo"}).Warn("unsupported extension")

	var entry JSONLogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON output: %v (%s)", err, buf.String())
	}
	if entry.Level != "WARN" {
		t.Errorf("expected level WARN, got: %s", entry.Level)
	}
	if entry.Logger != "interp" {
		t.Errorf("expected logger 'interp', got: %s", entry.Logger)
	}
	if entry.Fields["op"] != "x-foo" {
		t.Errorf("expected op=x-foo, got: %v", entry.Fields["op"])
	}
	// JSON numbers decode as float64
	if entry.Fields["line"] != float64(7) {
		t.Errorf("expected line=7, got: %v", entry.Fields["line"])
	}
}

func TestLoggerWithFieldsText(t *testing.T) {
	logger, buf := newTestLogger("test")

	logger.WithField("b", 2).WithField("a", 1).Info("sorted")

	output := buf.String()
	if !strings.Contains(output, "{a=1, b=2}") {
		t.Errorf("expected sorted fields, got: %s", output)
	}
}

func TestLoggerWithPrefixSharesSink(t *testing.T) {
	logger, buf := newTestLogger("parent")
	child := logger.WithPrefix("child")

	logger.SetLevel(ERROR)
	child.Warn("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected child to follow parent level, got: %s", buf.String())
	}

	child.Error("shown")
	if !strings.Contains(buf.String(), "child:") {
		t.Errorf("expected prefix 'child:', got: %s", buf.String())
	}
}

func TestLoggerCaller(t *testing.T) {
	logger, buf := newTestLogger("test")
	logger.SetCaller(true)

	logger.Info("where")
	if !strings.Contains(buf.String(), "logger_test.go:") {
		t.Errorf("expected caller info 'logger_test.go:', got: %s", buf.String())
	}

	buf.Reset()
	logger.WithField("k", "v").Info("entry")
	if !strings.Contains(buf.String(), "logger_test.go:") {
		t.Errorf("expected entry caller info 'logger_test.go:', got: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"DEBUG", DEBUG},
		{"debug", DEBUG},
		{"INFO", INFO},
		{"WARN", WARN},
		{"warning", WARN},
		{"ERROR", ERROR},
		{" error ", ERROR},
		{"bogus", INFO},
	}
	for _, tt := range tests {
		if result := ParseLevel(tt.input); result != tt.expected {
			t.Errorf("ParseLevel(%q) = %v, expected %v", tt.input, result, tt.expected)
		}
	}
}

func TestGetLogger(t *testing.T) {
	logger := GetLogger("machine")
	if logger.prefix != "machine" {
		t.Errorf("expected prefix 'machine', got %q", logger.prefix)
	}
	if GetLogger("") != defaultLogger {
		t.Error("expected empty prefix to return the default logger")
	}
}

func BenchmarkLoggerFiltered(b *testing.B) {
	var buf bytes.Buffer
	logger := New("bench")
	logger.SetWriter(&buf)
	logger.SetLevel(ERROR)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Debug("filtered message %d", i)
	}
}

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func newTestLogger(level LogLevel) (*StructuredLogger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	l := NewStructuredLogger("wq-test", "0.0.1", level)
	l.SetOutput(buf)
	return l, buf
}

func decodeEntries(t *testing.T, buf *bytes.Buffer) []LogEntry {
	t.Helper()
	var entries []LogEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e LogEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("invalid JSON log line %q: %v", line, err)
		}
		entries = append(entries, e)
	}
	return entries
}

func TestStructuredLogger_LevelFiltering(t *testing.T) {
	l, buf := newTestLogger(WarnLevel)
	ctx := context.Background()

	l.Debug(ctx, "debug", Fields{})
	l.Info(ctx, "info", Fields{})
	l.Warn(ctx, "warn", Fields{})
	l.Error(ctx, "error", Fields{}, errors.New("boom"))

	entries := decodeEntries(t, buf)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Level != "WARN" || entries[1].Level != "ERROR" {
		t.Errorf("levels = %s, %s", entries[0].Level, entries[1].Level)
	}
	if entries[1].Error != "boom" {
		t.Errorf("Error = %q, want boom", entries[1].Error)
	}
	if !strings.Contains(entries[1].Caller, "TestStructuredLogger_LevelFiltering") {
		t.Error("error entries should carry caller information")
	}
}

func TestStructuredLogger_RequestID(t *testing.T) {
	l, buf := newTestLogger(DebugLevel)
	ctx := WithRequestID(context.Background(), "req-123")

	l.Info(ctx, "[TEST] hello", Fields{"station": "Station A"})

	entries := decodeEntries(t, buf)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.RequestID != "req-123" {
		t.Errorf("RequestID = %q", e.RequestID)
	}
	if e.Service != "wq-test" || e.Version != "0.0.1" {
		t.Errorf("service/version = %s/%s", e.Service, e.Version)
	}
	if e.Fields["station"] != "Station A" {
		t.Errorf("fields = %v", e.Fields)
	}
	if RequestID(context.Background()) != "" {
		t.Error("RequestID on a bare context should be empty")
	}
}

func TestStructuredLogger_WithMergesFields(t *testing.T) {
	l, buf := newTestLogger(DebugLevel)
	child := l.With(Fields{"component": "generator", "seed": 1})

	child.Info(context.Background(), "merged", Fields{"seed": 2, "days": 7})
	l.Info(context.Background(), "parent", Fields{})

	entries := decodeEntries(t, buf)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	e := entries[0]
	if e.Fields["component"] != "generator" {
		t.Errorf("component = %v", e.Fields["component"])
	}
	if e.Fields["seed"] != float64(2) {
		t.Errorf("seed = %v, call fields should override", e.Fields["seed"])
	}
	if e.Fields["days"] != float64(7) {
		t.Errorf("days = %v", e.Fields["days"])
	}
	if _, ok := entries[1].Fields["component"]; ok {
		t.Error("child fields leaked into the parent logger")
	}
}

func TestStructuredLogger_UnencodableFields(t *testing.T) {
	l, buf := newTestLogger(InfoLevel)
	l.Info(context.Background(), "bad", Fields{"ch": make(chan int)})

	e := decodeEntries(t, buf)[0]
	if e.Message != "bad" {
		t.Errorf("message = %q", e.Message)
	}
	if _, ok := e.Fields["fields_error"]; !ok {
		t.Errorf("fields = %v, want fields_error", e.Fields)
	}
}

func TestStructuredLogger_FatalExits(t *testing.T) {
	l, buf := newTestLogger(InfoLevel)
	code := -1
	l.exit = func(c int) { code = c }

	l.Fatal(context.Background(), "fatal", Fields{}, errors.New("down"))

	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	e := decodeEntries(t, buf)[0]
	if e.Level != "FATAL" || e.Error != "down" {
		t.Errorf("entry = %+v", e)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", DebugLevel},
		{"INFO", InfoLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"", InfoLevel},
		{"verbose", InfoLevel},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDiscard(t *testing.T) {
	l := Discard()
	l.Error(context.Background(), "ignored", Fields{}, errors.New("x"))
	l.With(Fields{"a": 1}).Warn(context.Background(), "ignored", Fields{})
}

func TestLogLevel_String(t *testing.T) {
	if DebugLevel.String() != "DEBUG" || FatalLevel.String() != "FATAL" {
		t.Errorf("names = %s, %s", DebugLevel, FatalLevel)
	}
	if LogLevel(42).String() != "UNKNOWN" || LogLevel(-1).String() != "UNKNOWN" {
		t.Error("out of range levels should be UNKNOWN")
	}
}
